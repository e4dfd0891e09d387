package rpg

import (
	"encoding/json"
	"errors"
	"strings"
)

// Quest statuses carried in state-change bundles.
const (
	QuestInactive  = "inactive"
	QuestActive    = "active"
	QuestCompleted = "completed"
)

// Combat statuses carried in state-change bundles.
const (
	CombatStart = "start"
	CombatEnd   = "end"
)

// ActionResult is dice-roll metadata attached to a reply. It is produced by
// the deterministic core, never by the narrative backend.
type ActionResult struct {
	Type    string         `json:"type"`
	Details map[string]any `json:"details,omitempty"`
}

// SpawnGroup names an enemy template and how many to spawn. The backend is
// contracted to send bare id strings but is known to sometimes send
// {"id": "..."} objects instead; both shapes decode.
type SpawnGroup struct {
	ID    string `json:"id"`
	Count int    `json:"count,omitempty"`
}

func (g *SpawnGroup) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		g.ID = id
		g.Count = 1
		return nil
	}
	var obj struct {
		ID    string `json:"id"`
		Count int    `json:"count"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	g.ID = obj.ID
	g.Count = obj.Count
	if g.Count <= 0 {
		g.Count = 1
	}
	return nil
}

// NPCUpdate is a partial overlay for one NPC's dynamic state.
type NPCUpdate struct {
	ID     string
	Fields map[string]any
}

// npcUpdates accepts both the contracted list form
// [{"id": "...", ...fields}] and the legacy map form {"id": {...fields}}.
type npcUpdates []NPCUpdate

func (u *npcUpdates) UnmarshalJSON(data []byte) error {
	var list []map[string]any
	if err := json.Unmarshal(data, &list); err == nil {
		for _, entry := range list {
			id, _ := entry["id"].(string)
			if id == "" {
				continue
			}
			fields := make(map[string]any, len(entry))
			for k, v := range entry {
				if k != "id" {
					fields[k] = v
				}
			}
			*u = append(*u, NPCUpdate{ID: id, Fields: fields})
		}
		return nil
	}
	var byID map[string]map[string]any
	if err := json.Unmarshal(data, &byID); err != nil {
		return err
	}
	for id, fields := range byID {
		*u = append(*u, NPCUpdate{ID: id, Fields: fields})
	}
	return nil
}

// EnemyDamage is damage dealt to one enemy instance.
type EnemyDamage struct {
	InstanceID string `json:"instance_id"`
	Damage     int    `json:"damage"`
}

// CombatChange starts or ends an encounter.
type CombatChange struct {
	Status  string       `json:"status"`
	Enemies []SpawnGroup `json:"enemies,omitempty"`
}

// StateChanges is the structured effect payload the backend returns
// alongside narrative text. Every field is optional.
type StateChanges struct {
	XPGain            int               `json:"xp_gain,omitempty"`
	HPChange          int               `json:"hp_change,omitempty"`
	MPChange          int               `json:"mp_change,omitempty"`
	GoldChange        int               `json:"gold_change,omitempty"`
	NewItems          []string          `json:"new_items,omitempty"`
	QuestUpdates      map[string]string `json:"quest_updates,omitempty"`
	NPCUpdates        []NPCUpdate       `json:"npc_updates,omitempty"`
	Combat            *CombatChange     `json:"combat,omitempty"`
	NewEnemies        []SpawnGroup      `json:"new_enemies,omitempty"`
	EnemyDamage       []EnemyDamage     `json:"enemy_damage,omitempty"`
	CurrentLocationID string            `json:"current_location_id,omitempty"`
	CauseOfDeath      string            `json:"cause_of_death,omitempty"`
}

// AIResponse is one decoded backend reply.
type AIResponse struct {
	Narrative        string        `json:"narrative"`
	ActionResult     *ActionResult `json:"action_result,omitempty"`
	StateChanges     *StateChanges `json:"state_changes,omitempty"`
	SuggestedActions []string      `json:"suggested_actions,omitempty"`
	GameOver         bool          `json:"game_over,omitempty"`
	GameClear        bool          `json:"game_clear,omitempty"`
}

// ErrNotJSONObject reports a reply that is not a JSON object at the top
// level. Only this case is a decode failure; malformed optional fields
// inside an otherwise valid object are dropped, not errors.
var ErrNotJSONObject = errors.New("reply is not a JSON object")

// DecodeAIResponse parses a backend reply. Unknown fields are ignored and
// each optional field is decoded independently so one malformed field never
// poisons the rest of the reply.
func DecodeAIResponse(raw []byte) (AIResponse, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return AIResponse{}, ErrNotJSONObject
	}

	var out AIResponse
	if v, ok := fields["narrative"]; ok {
		_ = json.Unmarshal(v, &out.Narrative)
	}
	if v, ok := fields["action_result"]; ok {
		var ar ActionResult
		if json.Unmarshal(v, &ar) == nil && ar.Type != "" {
			out.ActionResult = &ar
		}
	}
	if v, ok := fields["state_changes"]; ok {
		if sc := decodeStateChanges(v); sc != nil {
			out.StateChanges = sc
		}
	}
	if v, ok := fields["suggested_actions"]; ok {
		_ = json.Unmarshal(v, &out.SuggestedActions)
	}
	if v, ok := fields["game_over"]; ok {
		_ = json.Unmarshal(v, &out.GameOver)
	}
	if v, ok := fields["game_clear"]; ok {
		_ = json.Unmarshal(v, &out.GameClear)
	}
	return out, nil
}

func decodeStateChanges(raw json.RawMessage) *StateChanges {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil
	}
	sc := &StateChanges{}
	intField := func(key string, dst *int) {
		if v, ok := fields[key]; ok {
			_ = json.Unmarshal(v, dst)
		}
	}
	intField("xp_gain", &sc.XPGain)
	intField("hp_change", &sc.HPChange)
	intField("mp_change", &sc.MPChange)
	intField("gold_change", &sc.GoldChange)
	if v, ok := fields["new_items"]; ok {
		_ = json.Unmarshal(v, &sc.NewItems)
	}
	if v, ok := fields["quest_updates"]; ok {
		_ = json.Unmarshal(v, &sc.QuestUpdates)
	}
	if v, ok := fields["npc_updates"]; ok {
		var u npcUpdates
		if json.Unmarshal(v, &u) == nil {
			sc.NPCUpdates = u
		}
	}
	if v, ok := fields["combat"]; ok {
		var cc CombatChange
		if json.Unmarshal(v, &cc) == nil && cc.Status != "" {
			sc.Combat = &cc
		}
	}
	if v, ok := fields["new_enemies"]; ok {
		_ = json.Unmarshal(v, &sc.NewEnemies)
	}
	if v, ok := fields["enemy_damage"]; ok {
		_ = json.Unmarshal(v, &sc.EnemyDamage)
	}
	if v, ok := fields["current_location_id"]; ok {
		_ = json.Unmarshal(v, &sc.CurrentLocationID)
	}
	if v, ok := fields["cause_of_death"]; ok {
		_ = json.Unmarshal(v, &sc.CauseOfDeath)
	}
	sc.sanitize()
	return sc
}

// sanitize drops entries that survived field decoding but are unusable:
// empty spawn ids, non-positive damage, blank item names.
func (sc *StateChanges) sanitize() {
	sc.NewItems = dropBlank(sc.NewItems)
	sc.NewEnemies = dropEmptySpawns(sc.NewEnemies)
	if sc.Combat != nil {
		sc.Combat.Status = strings.ToLower(strings.TrimSpace(sc.Combat.Status))
		sc.Combat.Enemies = dropEmptySpawns(sc.Combat.Enemies)
	}
	kept := sc.EnemyDamage[:0]
	for _, d := range sc.EnemyDamage {
		if d.InstanceID != "" && d.Damage > 0 {
			kept = append(kept, d)
		}
	}
	sc.EnemyDamage = kept
}

func dropBlank(items []string) []string {
	kept := items[:0]
	for _, it := range items {
		if strings.TrimSpace(it) != "" {
			kept = append(kept, it)
		}
	}
	return kept
}

func dropEmptySpawns(groups []SpawnGroup) []SpawnGroup {
	kept := groups[:0]
	for _, g := range groups {
		if g.ID == "" {
			continue
		}
		if g.Count <= 0 {
			g.Count = 1
		}
		kept = append(kept, g)
	}
	return kept
}
