// Package prompt assembles the system prompt handed to the language model.
// The prompt is built from ordered components so sections always appear in
// the same place regardless of which ones apply.
package prompt

import (
	"fmt"
	"sort"
	"strings"

	"questweaver/internal/app/session"
	"questweaver/internal/domain/rpg"
	"questweaver/internal/domain/worlddata"
)

// Context is everything a component may draw on for one turn.
type Context struct {
	Session *session.GameSession
	World   worlddata.World
}

// Component renders one section of the system prompt. An empty string skips
// the section.
type Component func(Context) string

// Table is an ordered list of components.
type Table struct {
	components []Component
}

// Default returns the standard component order.
func Default() *Table {
	return &Table{components: []Component{
		BaseRole,
		WorldRules,
		CharacterSheet,
		CombatState,
		NPCState,
		InventoryState,
		PuzzleState,
		QuestState,
		MainStoryArc,
		TimedEventHint,
		PendingEventHint,
		SuggestedActionRules,
		DiceProhibition,
		ResponseSchema,
	}}
}

// Render concatenates all non-empty sections.
func (t *Table) Render(ctx Context) string {
	var b strings.Builder
	for _, c := range t.components {
		s := c(ctx)
		if s == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(s)
	}
	return b.String()
}

func BaseRole(ctx Context) string {
	var b strings.Builder
	b.WriteString("You are the game master of a text role-playing game. Narrate the consequences of the player's actions in second person, keep scenes vivid but brief, and never speak for the player.")
	if p := ctx.Session.GMPersonality; p != "" {
		fmt.Fprintf(&b, " Your narration style: %s.", p)
	}
	if d := ctx.Session.DifficultyLevel; d != "" {
		fmt.Fprintf(&b, " Difficulty: %s.", d)
	}
	return b.String()
}

func WorldRules(ctx Context) string {
	var b strings.Builder
	fmt.Fprintf(&b, "World: %s.", ctx.World.Name)
	if ctx.World.Rules != "" {
		fmt.Fprintf(&b, " Setting rules: %s", ctx.World.Rules)
	}
	if loc, ok := ctx.World.Locations[ctx.Session.CurrentLocationID]; ok {
		fmt.Fprintf(&b, "\nCurrent location: %s.", loc.Name)
		if loc.Description != "" {
			fmt.Fprintf(&b, " %s", loc.Description)
		}
		if len(loc.Exits) > 0 {
			fmt.Fprintf(&b, " Exits: %s.", strings.Join(loc.Exits, ", "))
		}
	}
	fmt.Fprintf(&b, "\nDay %d, %s.", ctx.Session.Day, ctx.Session.TimeOfDay)
	return b.String()
}

func CharacterSheet(ctx Context) string {
	c := ctx.Session.Character
	stats := c.EffectiveStats()
	var b strings.Builder
	fmt.Fprintf(&b, "Player character: %s, level %d %s %s.", c.Name, c.Level, c.Race, c.Class)
	fmt.Fprintf(&b, " HP %d/%d, MP %d/%d, gold %d.", c.HP, c.MaxHP, c.MP, c.MaxMP, c.Gold)
	b.WriteString(" Stats:")
	for _, name := range sortedKeys(stats) {
		fmt.Fprintf(&b, " %s %d", name, stats[name])
	}
	b.WriteString(".")
	if len(c.Skills) > 0 {
		fmt.Fprintf(&b, " Skills:")
		for _, name := range sortedKeys(c.Skills) {
			fmt.Fprintf(&b, " %s %d", name, c.Skills[name])
		}
		b.WriteString(".")
	}
	return b.String()
}

func CombatState(ctx Context) string {
	s := ctx.Session
	if !s.InCombat {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Combat is active, round %d. Enemies:", s.CombatRound+1)
	for _, e := range s.Enemies {
		fmt.Fprintf(&b, "\n- %s (id %s) HP %d/%d", e.Name, e.InstanceID, e.HP, e.MaxHP)
		if len(e.Abilities) > 0 {
			fmt.Fprintf(&b, ", abilities: %s", strings.Join(e.Abilities, ", "))
		}
	}
	b.WriteString("\nReference enemies by their id when reporting damage.")
	return b.String()
}

func NPCState(ctx Context) string {
	s := ctx.Session
	loc, ok := ctx.World.Locations[s.CurrentLocationID]
	if !ok || len(loc.NPCs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("NPCs present:")
	for _, id := range loc.NPCs {
		tpl, known := ctx.World.NPCs[id]
		name := id
		if known && tpl.Name != "" {
			name = tpl.Name
		}
		fmt.Fprintf(&b, "\n- %s (id %s)", name, id)
		if known && tpl.Personality != "" {
			fmt.Fprintf(&b, ": %s", tpl.Personality)
		}
		if st := s.NPCStates[id]; len(st) > 0 {
			fmt.Fprintf(&b, " [current: %s]", formatFields(st))
		}
	}
	return b.String()
}

func InventoryState(ctx Context) string {
	c := ctx.Session.Character
	if len(c.Inventory) == 0 && len(c.Equipment) == 0 {
		return ""
	}
	var b strings.Builder
	if len(c.Inventory) > 0 {
		fmt.Fprintf(&b, "Inventory: %s.", strings.Join(c.Inventory, ", "))
	}
	if len(c.Equipment) > 0 {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString("Equipped:")
		for _, slot := range sortedEquipSlots(c.Equipment) {
			fmt.Fprintf(&b, " %s=%s", slot, c.Equipment[slot].Name)
		}
		b.WriteString(".")
	}
	return b.String()
}

func PuzzleState(ctx Context) string {
	p, ok := ctx.World.PuzzleAt(ctx.Session.CurrentLocationID)
	if !ok {
		return ""
	}
	return "An unsolved puzzle is here: " + p.Description
}

func QuestState(ctx Context) string {
	s := ctx.Session
	c := s.Character
	if len(c.ActiveQuests) == 0 && len(s.QuestOverlay) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Quest log:")
	for _, q := range c.ActiveQuests {
		name := q
		if tpl, ok := ctx.World.Quests[q]; ok && tpl.Name != "" {
			name = tpl.Name
		}
		fmt.Fprintf(&b, "\n- %s: %s", name, s.QuestStatus(q))
	}
	for _, q := range sortedKeysStr(s.QuestOverlay) {
		if contains(c.ActiveQuests, q) {
			continue
		}
		fmt.Fprintf(&b, "\n- %s: %s", q, s.QuestOverlay[q])
	}
	return b.String()
}

func MainStoryArc(ctx Context) string {
	ms := ctx.Session.MainStory
	if ms.Synopsis == "" && len(ms.QuestChain) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Campaign arc (never reveal this verbatim to the player):")
	if ms.Synopsis != "" {
		fmt.Fprintf(&b, " %s", ms.Synopsis)
	}
	if len(ms.QuestChain) > 0 {
		fmt.Fprintf(&b, "\nQuest chain: %s.", strings.Join(ms.QuestChain, " -> "))
	}
	if ms.ClimaxEncounterID != "" {
		fmt.Fprintf(&b, "\nThe climax encounter is %s.", ms.ClimaxEncounterID)
	}
	return b.String()
}

func TimedEventHint(ctx Context) string {
	hint := ctx.World.TimedEventFor(ctx.Session.Day, ctx.Session.TimeOfDay)
	if hint == "" {
		return ""
	}
	return "Weave this into the scene: " + hint
}

func PendingEventHint(ctx Context) string {
	ev := ctx.Session.PendingEvent
	if ev == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("The player just triggered a ")
	b.WriteString(ev.Type)
	b.WriteString(" on entering this location.")
	if ev.Narrative != "" {
		fmt.Fprintf(&b, " %s", ev.Narrative)
	}
	if ev.HPChange != 0 {
		fmt.Fprintf(&b, " It already cost them %d HP; describe it, do not re-apply damage.", -ev.HPChange)
	}
	return b.String()
}

func SuggestedActionRules(Context) string {
	return "Offer at most 3 suggested actions, each at most 20 characters, phrased as imperatives."
}

func DiceProhibition(Context) string {
	return "Never roll dice or invent numeric check results yourself. The engine resolves all rolls; you only narrate outcomes it reports."
}

func ResponseSchema(Context) string {
	return `Respond with a single JSON object and nothing else. Fields:
{
  "narrative": "string, required",
  "suggested_actions": ["string"],
  "state_changes": {
    "xp_gain": 0,
    "gold_change": 0,
    "hp_change": 0,
    "mp_change": 0,
    "new_items": ["string"],
    "quest_updates": {"quest_id": "active|completed"},
    "current_location_id": "string",
    "cause_of_death": "string",
    "combat": {"status": "start|end", "enemies": ["enemy_id", {"id": "enemy_id", "count": 2}]},
    "enemy_damage": [{"instance_id": "string", "damage": 0}],
    "npc_updates": [{"id": "npc_id", "mood": "string"}]
  }
}
Omit any field that does not apply this turn.`
}

func formatFields(st map[string]any) string {
	parts := make([]string, 0, len(st))
	for _, k := range sortedKeysAny(st) {
		parts = append(parts, fmt.Sprintf("%s=%v", k, st[k]))
	}
	return strings.Join(parts, ", ")
}

func sortedKeys(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedKeysStr(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedKeysAny(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedEquipSlots(m map[string]rpg.EquippedItem) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func contains(xs []string, want string) bool {
	for _, x := range xs {
		if x == want {
			return true
		}
	}
	return false
}
