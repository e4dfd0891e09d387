package rpg

import "time"

// GraveRecord archives a fallen character so other sessions can loot the
// remains.
type GraveRecord struct {
	Name         string   `json:"name"`
	Level        int      `json:"level"`
	CauseOfDeath string   `json:"cause_of_death"`
	DroppedItems []string `json:"dropped_items,omitempty"`
}

// WorldState is the single shared durable document: NPC overlays flushed
// from ended sessions plus the graveyard. Whole-document read/write,
// last-writer-wins.
type WorldState struct {
	NPCStates map[string]map[string]any `json:"npc_states"`
	Graveyard map[string]GraveRecord    `json:"graveyard"`
}

// NewWorldState returns an empty, non-nil world state.
func NewWorldState() *WorldState {
	return &WorldState{
		NPCStates: map[string]map[string]any{},
		Graveyard: map[string]GraveRecord{},
	}
}

// Normalize fills nil maps after decoding an older document.
func (w *WorldState) Normalize() {
	if w.NPCStates == nil {
		w.NPCStates = map[string]map[string]any{}
	}
	if w.Graveyard == nil {
		w.Graveyard = map[string]GraveRecord{}
	}
}

// GameEvent is one entry in the per-user event log.
type GameEvent struct {
	Type       string         `json:"type"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// Event types appended by the turn pipeline.
const (
	EventGameStarted   = "game_started"
	EventGameEnded     = "game_ended"
	EventTurnProcessed = "turn_processed"
)
