// Package worlddata holds the static, read-only game content: locations,
// NPC and enemy templates, items, quests and shop listings, keyed by world
// name then entity id.
package worlddata

import (
	"questweaver/internal/domain/rpg"
)

// Requirement gates entry to a location. Type "item" checks the inventory
// (optionally consuming the item); type "quest" checks quest status.
type Requirement struct {
	Type       string `json:"type"`
	ID         string `json:"id"`
	Status     string `json:"status,omitempty"`
	Consume    bool   `json:"consume,omitempty"`
	DenialNote string `json:"denial_note,omitempty"`
}

// LocationEvent fires once per session when a location is first entered.
type LocationEvent struct {
	Type      string           `json:"type"` // "trap" or "encounter"
	HPChange  int              `json:"hp_change,omitempty"`
	Enemies   []rpg.SpawnGroup `json:"enemies,omitempty"`
	Narrative string           `json:"narrative,omitempty"`
}

const (
	EventTrap      = "trap"
	EventEncounter = "encounter"
)

type Location struct {
	Name         string         `json:"name"`
	Description  string         `json:"description,omitempty"`
	NPCs         []string       `json:"npcs,omitempty"`
	Exits        []string       `json:"exits,omitempty"`
	Requirements []Requirement  `json:"requirements,omitempty"`
	OnEnter      *LocationEvent `json:"on_enter,omitempty"`
}

type NPCTemplate struct {
	Name        string `json:"name"`
	Personality string `json:"personality,omitempty"`
}

type EnemyTemplate struct {
	Name      string          `json:"name"`
	HP        int             `json:"hp"`
	Stats     map[string]int  `json:"stats,omitempty"`
	Abilities []string        `json:"abilities,omitempty"`
	Rewards   rpg.RewardTable `json:"rewards"`
}

type ItemTemplate struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Equippable  bool           `json:"equippable,omitempty"`
	Consumable  bool           `json:"consumable,omitempty"`
	Slot        string         `json:"slot,omitempty"`
	Bonuses     map[string]int `json:"bonuses,omitempty"`
	HPRestore   int            `json:"hp_restore,omitempty"`
	MPRestore   int            `json:"mp_restore,omitempty"`
	Price       int            `json:"price,omitempty"`
}

type QuestTemplate struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type Puzzle struct {
	LocationID  string `json:"location_id"`
	Description string `json:"description"`
}

type ShopListing struct {
	Item  string `json:"item"`
	Price int    `json:"price"`
}

type Shop struct {
	Name       string        `json:"name"`
	LocationID string        `json:"location_id,omitempty"`
	Listings   []ShopListing `json:"listings"`
}

type ClassTemplate struct {
	Name   string           `json:"name"`
	Skills []rpg.ClassSkill `json:"skills,omitempty"`
}

type RaceTemplate struct {
	Name      string         `json:"name"`
	StatBonus map[string]int `json:"stats_bonus,omitempty"`
}

// TimedEventTrigger matches against the session's in-world calendar.
type TimedEventTrigger struct {
	Day       int    `json:"day,omitempty"`
	DayModulo int    `json:"day_modulo,omitempty"`
	TimeOfDay string `json:"time_of_day,omitempty"`
}

// TimedEvent injects a narrative hint when its trigger matches.
type TimedEvent struct {
	Trigger   TimedEventTrigger `json:"trigger"`
	Narrative string            `json:"narrative"`
}

// Matches reports whether the trigger fires on the given day and phase.
func (e TimedEvent) Matches(day int, timeOfDay string) bool {
	t := e.Trigger
	dayMatch := (t.Day != 0 && day == t.Day) || (t.DayModulo != 0 && day%t.DayModulo == 0)
	return dayMatch && t.TimeOfDay != "" && t.TimeOfDay == timeOfDay
}

// CreationOptions are the race/class menus offered at character creation.
type CreationOptions struct {
	Classes []ClassTemplate `json:"classes,omitempty"`
	Races   []RaceTemplate  `json:"races,omitempty"`
}

// World is one complete static setting.
type World struct {
	Name            string                    `json:"name"`
	Rules           string                    `json:"rules,omitempty"`
	StartLocationID string                    `json:"start_location_id,omitempty"`
	Locations       map[string]Location       `json:"locations,omitempty"`
	NPCs            map[string]NPCTemplate    `json:"npcs,omitempty"`
	Enemies         map[string]EnemyTemplate  `json:"enemies,omitempty"`
	Items           map[string]ItemTemplate   `json:"items,omitempty"`
	Quests          map[string]QuestTemplate  `json:"quests,omitempty"`
	Puzzles         map[string]Puzzle         `json:"puzzles,omitempty"`
	Shops           map[string]Shop           `json:"shops,omitempty"`
	TimedEvents     map[string]TimedEvent     `json:"timed_events,omitempty"`
	CreationOptions CreationOptions           `json:"creation_options,omitempty"`
	InitialNPCState map[string]map[string]any `json:"initial_npc_states,omitempty"`
}

// SpawnEnemies instantiates combatants for the named spawn groups. Unknown
// template ids are skipped.
func (w World) SpawnEnemies(groups []rpg.SpawnGroup) []*rpg.Enemy {
	var out []*rpg.Enemy
	for _, g := range groups {
		tpl, ok := w.Enemies[g.ID]
		if !ok {
			continue
		}
		for i := 0; i < g.Count; i++ {
			out = append(out, rpg.NewEnemy(g.ID, tpl.Name, tpl.HP, tpl.Stats, tpl.Abilities, tpl.Rewards))
		}
	}
	return out
}

// ClassSkills returns the unlockable skills of the named class.
func (w World) ClassSkills(class string) []rpg.ClassSkill {
	for _, c := range w.CreationOptions.Classes {
		if c.Name == class {
			return c.Skills
		}
	}
	return nil
}

// RaceBonus returns the stat bonuses of the named race.
func (w World) RaceBonus(race string) map[string]int {
	for _, r := range w.CreationOptions.Races {
		if r.Name == race {
			return r.StatBonus
		}
	}
	return nil
}

// PuzzleAt returns the puzzle placed at a location, if any.
func (w World) PuzzleAt(locationID string) (Puzzle, bool) {
	if locationID == "" {
		return Puzzle{}, false
	}
	for _, p := range w.Puzzles {
		if p.LocationID == locationID {
			return p, true
		}
	}
	return Puzzle{}, false
}

// ShopAt returns the shop placed at a location, if any.
func (w World) ShopAt(locationID string) (Shop, bool) {
	for _, s := range w.Shops {
		if s.LocationID == locationID {
			return s, true
		}
	}
	return Shop{}, false
}

// TimedEventFor returns the first timed-event narrative matching the given
// calendar position.
func (w World) TimedEventFor(day int, timeOfDay string) string {
	for _, e := range w.TimedEvents {
		if e.Matches(day, timeOfDay) {
			return e.Narrative
		}
	}
	return ""
}
