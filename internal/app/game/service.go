// Package game orchestrates full turns: prompt assembly, the narrative
// backend call, sanitized state application, combat and reward bookkeeping,
// and persistence.
package game

import (
	"context"
	"fmt"
	"log"
	"time"

	"questweaver/internal/app/ai"
	"questweaver/internal/app/ports"
	"questweaver/internal/app/prompt"
	"questweaver/internal/app/session"
	"questweaver/internal/domain/rpg"
)

// TurnResponse is what the UI renders after one operation.
type TurnResponse struct {
	Narrative        string            `json:"narrative"`
	ActionResult     *rpg.ActionResult `json:"action_result,omitempty"`
	SuggestedActions []string          `json:"suggested_actions,omitempty"`
	NewSkills        []string          `json:"new_skills,omitempty"`
	InCombat         bool              `json:"in_combat"`
	GameOver         bool              `json:"game_over,omitempty"`
	GameClear        bool              `json:"game_clear,omitempty"`
}

// StartOptions tune a new run.
type StartOptions struct {
	WorldName       string
	GMPersonality   string
	DifficultyLevel string
}

type Service struct {
	Sessions   *session.Manager
	Characters ports.CharacterRepository
	Worlds     ports.WorldProvider
	WorldState ports.WorldStateRepository
	Guilds     ports.GuildConfigRepository
	Events     ports.EventRepository
	AI         *ai.Service
	Metrics    ports.TurnMetrics
	Tx         ports.TxManager
	Prompts    *prompt.Table
	Dice       rpg.Roller
	Now        func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// StartGame loads a character, creates the session, and asks the model for
// the opening scene. The model's hidden campaign arc is kept on the session.
func (s *Service) StartGame(ctx context.Context, userID, guildID, characterName string, opts StartOptions) (*TurnResponse, error) {
	lock := s.Sessions.Lock(userID)
	lock.Lock()
	defer lock.Unlock()

	if s.Sessions.HasSession(userID) {
		return nil, validationf("you already have a game in progress")
	}
	ch, err := s.Characters.GetByOwnerAndName(ctx, userID, characterName)
	if err != nil {
		return nil, fmt.Errorf("load character %q: %w", characterName, err)
	}

	worldName, model := s.guildDefaults(ctx, guildID)
	if opts.WorldName != "" {
		worldName = opts.WorldName
	}
	world, ok := s.Worlds.World(worldName)
	if !ok {
		if world, ok = s.Worlds.Default(); !ok {
			return nil, fmt.Errorf("world %q: %w", worldName, ports.ErrNotFound)
		}
	}

	sess := session.New(userID, ch, world.Name, world.StartLocationID)
	sess.GMPersonality = opts.GMPersonality
	sess.DifficultyLevel = opts.DifficultyLevel
	sess.ModelName = model
	for id, st := range world.InitialNPCState {
		sess.NPCStates[id] = st
	}

	pctx := prompt.Context{Session: sess, World: world}
	intro, err := s.AI.GenerateIntroduction(ctx, model, prompt.IntroSystem(pctx))
	if err != nil {
		return nil, err
	}
	sess.MainStory = intro.MainStory
	sess.RecordTurn("(begin)", intro.Narrative)
	s.Sessions.Put(sess)

	s.publish(ctx, userID, rpg.GameEvent{
		Type:       rpg.EventGameStarted,
		OccurredAt: s.now(),
		Payload:    map[string]any{"character": ch.Name, "world": world.Name},
	})
	return &TurnResponse{Narrative: intro.Narrative, SuggestedActions: intro.SuggestedActions}, nil
}

// EndGame persists the character and tears the session down.
func (s *Service) EndGame(ctx context.Context, userID string) error {
	lock := s.Sessions.Lock(userID)
	lock.Lock()
	defer lock.Unlock()

	sess := s.Sessions.Remove(userID)
	if sess == nil {
		return validationf("no active game")
	}
	if err := s.Characters.Save(ctx, sess.Character); err != nil {
		return fmt.Errorf("save character: %w", err)
	}
	if s.WorldState != nil && len(sess.NPCStates) > 0 {
		state, err := s.WorldState.Get(ctx, sess.WorldName)
		if err != nil || state == nil {
			state = rpg.NewWorldState()
		}
		state.Normalize()
		for id, st := range sess.NPCStates {
			state.NPCStates[id] = st
		}
		if err := s.WorldState.Save(ctx, sess.WorldName, state); err != nil {
			log.Printf("game: flush npc state for %s: %v", userID, err)
		}
	}
	s.publish(ctx, userID, rpg.GameEvent{
		Type:       rpg.EventGameEnded,
		OccurredAt: s.now(),
		Payload:    map[string]any{"character": sess.Character.Name, "turns": sess.TurnCount},
	})
	return nil
}

// AssociateThread binds a UI thread to the user's session.
func (s *Service) AssociateThread(userID, threadID string) error {
	if !s.Sessions.AssociateThread(userID, threadID) {
		return validationf("no active game")
	}
	return nil
}

// ResolveUser maps a thread id back to its player.
func (s *Service) ResolveUser(threadID string) (string, bool) {
	sess, ok := s.Sessions.GetByThreadID(threadID)
	if !ok {
		return "", false
	}
	return sess.UserID, true
}

// SessionView is the read-only snapshot of a live run served to the UI.
type SessionView struct {
	UserID            string            `json:"user_id"`
	ThreadID          string            `json:"thread_id,omitempty"`
	Character         *rpg.Character    `json:"character"`
	WorldName         string            `json:"world"`
	CurrentLocationID string            `json:"current_location_id"`
	InCombat          bool              `json:"in_combat"`
	CombatTurn        string            `json:"combat_turn,omitempty"`
	CombatRound       int               `json:"combat_round,omitempty"`
	Enemies           []*rpg.Enemy      `json:"enemies,omitempty"`
	TurnCount         int               `json:"turn_count"`
	Day               int               `json:"day"`
	TimeOfDay         string            `json:"time_of_day"`
	GMPersonality     string            `json:"gm_personality,omitempty"`
	DifficultyLevel   string            `json:"difficulty,omitempty"`
	QuestOverlay      map[string]string `json:"quest_overlay,omitempty"`
}

func viewOf(sess *session.GameSession) *SessionView {
	return &SessionView{
		UserID:            sess.UserID,
		ThreadID:          sess.ThreadID,
		Character:         sess.Character,
		WorldName:         sess.WorldName,
		CurrentLocationID: sess.CurrentLocationID,
		InCombat:          sess.InCombat,
		CombatTurn:        sess.CombatTurn,
		CombatRound:       sess.CombatRound,
		Enemies:           sess.Enemies,
		TurnCount:         sess.TurnCount,
		Day:               sess.Day,
		TimeOfDay:         sess.TimeOfDay,
		GMPersonality:     sess.GMPersonality,
		DifficultyLevel:   sess.DifficultyLevel,
		QuestOverlay:      sess.QuestOverlay,
	}
}

// Session returns a snapshot of the user's live run.
func (s *Service) Session(userID string) (*SessionView, error) {
	lock := s.Sessions.Lock(userID)
	lock.Lock()
	defer lock.Unlock()

	sess, ok := s.Sessions.Get(userID)
	if !ok {
		return nil, fmt.Errorf("session for %s: %w", userID, ports.ErrNotFound)
	}
	return viewOf(sess), nil
}

// SessionByThread resolves a thread binding and returns that run's snapshot.
func (s *Service) SessionByThread(threadID string) (*SessionView, error) {
	sess, ok := s.Sessions.GetByThreadID(threadID)
	if !ok {
		return nil, fmt.Errorf("session for thread %s: %w", threadID, ports.ErrNotFound)
	}
	return s.Session(sess.UserID)
}

// Replay lists the recorded events of a user's runs, newest first.
func (s *Service) Replay(ctx context.Context, userID string, limit int) ([]rpg.GameEvent, error) {
	return s.Events.ListByUserID(ctx, userID, limit)
}

func (s *Service) guildDefaults(ctx context.Context, guildID string) (worldName, model string) {
	if s.Guilds == nil || guildID == "" {
		return "", ""
	}
	cfg, err := s.Guilds.Get(ctx, guildID)
	if err != nil {
		return "", ""
	}
	return cfg.WorldName, cfg.ModelName
}

func (s *Service) publish(ctx context.Context, userID string, ev rpg.GameEvent) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Append(ctx, userID, []rpg.GameEvent{ev}); err != nil {
		log.Printf("game: append event %s for %s: %v", ev.Type, userID, err)
	}
}

// persistTurn saves the character and shared world state together. A failure
// leaves the in-memory session intact; the caller surfaces the warning.
func (s *Service) persistTurn(ctx context.Context, sess *session.GameSession, state *rpg.WorldState) error {
	save := func(ctx context.Context) error {
		if err := s.Characters.Save(ctx, sess.Character); err != nil {
			return err
		}
		if state != nil && s.WorldState != nil {
			return s.WorldState.Save(ctx, sess.WorldName, state)
		}
		return nil
	}
	if s.Tx != nil {
		return s.Tx.RunInTx(ctx, save)
	}
	return save(ctx)
}
