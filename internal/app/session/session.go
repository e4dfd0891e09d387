// Package session holds the per-player live game state and the manager that
// indexes and serializes access to it.
package session

import (
	"questweaver/internal/domain/rpg"
)

const historyLimit = 10

// Combat turn owners.
const (
	TurnPlayer = "player"
	TurnEnemy  = "enemy"
)

// HistoryEntry is one player action and the narration it produced.
type HistoryEntry struct {
	Action    string `json:"action"`
	Narration string `json:"narration"`
}

// MainStory is the campaign arc seeded by the introduction call.
type MainStory struct {
	Synopsis          string   `json:"synopsis,omitempty"`
	QuestChain        []string `json:"quest_chain,omitempty"`
	ClimaxEncounterID string   `json:"climax_encounter_id,omitempty"`
}

// TriggeredEventInfo carries a one-shot location event into the next prompt.
type TriggeredEventInfo struct {
	Type      string
	Narrative string
	HPChange  int
}

// GameSession is everything the engine knows about one player's run.
type GameSession struct {
	UserID   string
	ThreadID string

	Character *rpg.Character
	WorldName string

	CurrentLocationID string
	NPCStates         map[string]map[string]any
	TriggeredEvents   map[string]bool

	InCombat    bool
	CombatTurn  string
	CombatRound int
	Enemies     []*rpg.Enemy

	// QuestOverlay tracks quest statuses the AI has set that are not part
	// of the static quest list.
	QuestOverlay map[string]string

	History   []HistoryEntry
	TurnCount int
	Day       int
	TimeOfDay string

	GMPersonality   string
	DifficultyLevel string
	ModelName       string
	MainStory       MainStory

	LastResponse *rpg.AIResponse
	VictoryNote  string
	PendingEvent *TriggeredEventInfo

	defeated []*rpg.Enemy
}

// New builds a fresh session at turn zero, day one.
func New(userID string, ch *rpg.Character, worldName, startLocationID string) *GameSession {
	return &GameSession{
		UserID:            userID,
		Character:         ch,
		WorldName:         worldName,
		CurrentLocationID: startLocationID,
		NPCStates:         make(map[string]map[string]any),
		TriggeredEvents:   make(map[string]bool),
		QuestOverlay:      make(map[string]string),
		Day:               1,
		TimeOfDay:         rpg.TimeCycle[0],
	}
}

// RecordTurn appends one action/narration pair, keeping only the most recent
// entries, and advances the in-world clock.
func (s *GameSession) RecordTurn(action, narration string) {
	s.History = append(s.History, HistoryEntry{Action: action, Narration: narration})
	if len(s.History) > historyLimit {
		s.History = s.History[len(s.History)-historyLimit:]
	}
	s.TurnCount++
	s.Day = rpg.DayFor(s.TurnCount)
	s.TimeOfDay = rpg.TimeOfDayFor(s.TurnCount)
}

// MarkTriggered records that a location's one-shot event has fired. Returns
// false when it already had.
func (s *GameSession) MarkTriggered(locationID string) bool {
	if s.TriggeredEvents[locationID] {
		return false
	}
	s.TriggeredEvents[locationID] = true
	return true
}

// StartCombat puts the session into combat with the given enemies.
func (s *GameSession) StartCombat(enemies []*rpg.Enemy) {
	if len(enemies) == 0 {
		return
	}
	s.InCombat = true
	s.CombatTurn = TurnPlayer
	s.CombatRound = 0
	s.Enemies = append(s.Enemies, enemies...)
}

// EndCombat clears combat state and returns the enemies that were defeated
// over the whole encounter.
func (s *GameSession) EndCombat() []*rpg.Enemy {
	defeated := s.defeated
	s.InCombat = false
	s.CombatTurn = ""
	s.CombatRound = 0
	s.Enemies = nil
	s.defeated = nil
	return defeated
}

// ApplyEnemyDamage applies per-instance damage, moves dead enemies to the
// defeated list, and reports whether any live enemies remain.
func (s *GameSession) ApplyEnemyDamage(hits []rpg.EnemyDamage) bool {
	for _, h := range hits {
		for _, e := range s.Enemies {
			if e.InstanceID == h.InstanceID {
				e.TakeDamage(h.Damage)
			}
		}
	}
	var alive []*rpg.Enemy
	for _, e := range s.Enemies {
		if e.IsDefeated() {
			s.defeated = append(s.defeated, e)
		} else {
			alive = append(alive, e)
		}
	}
	s.Enemies = alive
	return len(alive) > 0
}

// MergeNPCUpdates folds AI-provided NPC field changes into the session's
// overlay state.
func (s *GameSession) MergeNPCUpdates(updates []rpg.NPCUpdate) {
	for _, u := range updates {
		if u.ID == "" {
			continue
		}
		st := s.NPCStates[u.ID]
		if st == nil {
			st = make(map[string]any)
			s.NPCStates[u.ID] = st
		}
		for k, v := range u.Fields {
			st[k] = v
		}
	}
}

// QuestStatus resolves a quest's status, preferring the AI overlay over the
// character sheet.
func (s *GameSession) QuestStatus(questID string) string {
	if st, ok := s.QuestOverlay[questID]; ok {
		return st
	}
	for _, q := range s.Character.ActiveQuests {
		if q == questID {
			return rpg.QuestActive
		}
	}
	for _, q := range s.Character.CompletedQuests {
		if q == questID {
			return rpg.QuestCompleted
		}
	}
	return rpg.QuestInactive
}
