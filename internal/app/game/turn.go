package game

import (
	"context"
	"log"
	"strings"

	"questweaver/internal/app/prompt"
	"questweaver/internal/app/session"
	"questweaver/internal/domain/rpg"
	"questweaver/internal/domain/worlddata"
)

// ProceedGame resolves one player action end to end: narrative call, gated
// state application, combat resolution including the enemy's reply turn, and
// persistence. The per-user lock is held for the whole exchange, so no two
// turns for the same player ever interleave.
func (s *Service) ProceedGame(ctx context.Context, userID, input string) (*TurnResponse, error) {
	started := s.now()
	lock := s.Sessions.Lock(userID)
	lock.Lock()
	defer lock.Unlock()

	sess, ok := s.Sessions.Get(userID)
	if !ok {
		return nil, validationf("no active game, start one first")
	}
	world, ok := s.Worlds.World(sess.WorldName)
	if !ok {
		return nil, validationf("world %q is no longer available", sess.WorldName)
	}

	action := rewriteSpeech(input)
	pctx := prompt.Context{Session: sess, World: world}
	resp, err := s.AI.GenerateResponse(ctx, sess.ModelName, s.Prompts.Render(pctx), prompt.TurnHistory(pctx), action)
	if err != nil {
		// Nothing has been applied yet; the turn fails atomically.
		return nil, err
	}
	sess.PendingEvent = nil

	tr := &TurnResponse{
		Narrative:        resp.Narrative,
		ActionResult:     resp.ActionResult,
		SuggestedActions: resp.SuggestedActions,
		GameClear:        resp.GameClear,
	}
	sc := resp.StateChanges
	if sc == nil {
		sc = &rpg.StateChanges{}
	}

	s.gateTransition(sess, world, sc, tr)
	s.applyChanges(sess, world, sc, tr)
	moved := sc.CurrentLocationID != "" && sc.CurrentLocationID == sess.CurrentLocationID
	if moved {
		s.fireEnterEvent(sess, world, sc, tr)
	}
	s.startCombat(sess, world, sc)

	if sess.InCombat && len(sc.EnemyDamage) > 0 {
		s.resolveEnemyDamage(ctx, sess, world, sc.EnemyDamage, tr)
	}
	if sess.InCombat && sc.Combat != nil && sc.Combat.Status == rpg.CombatEnd {
		// A declared stand-down discards the encounter with no rewards,
		// like a successful flee. The enemies get no reply turn.
		sess.EndCombat()
	}
	if sess.InCombat && !sess.Character.IsDead() {
		s.enemyTurn(ctx, sess, world, tr)
	}

	if sess.Character.IsDead() {
		s.handleDeath(ctx, sess, sc.CauseOfDeath, tr)
		if s.Metrics != nil {
			s.Metrics.RecordTurn(s.now().Sub(started))
		}
		return tr, nil
	}

	if resp.GameClear {
		sess.Character.GrantAchievement(rpg.AchievementGameClear)
	}

	sess.RecordTurn(action, tr.Narrative)
	sess.LastResponse = &resp
	tr.InCombat = sess.InCombat

	if err := s.persistTurn(ctx, sess, nil); err != nil {
		log.Printf("game: persist turn for %s: %v", userID, err)
		tr.Narrative += "\n\n(Your progress may not have saved.)"
	}
	s.publish(ctx, userID, rpg.GameEvent{
		Type:       rpg.EventTurnProcessed,
		OccurredAt: s.now(),
		Payload:    map[string]any{"turn": sess.TurnCount, "in_combat": sess.InCombat},
	})
	if s.Metrics != nil {
		s.Metrics.RecordTurn(s.now().Sub(started))
	}
	return tr, nil
}

// gateTransition drops a proposed location move whose requirements the
// player does not meet, appending a denial note instead. A met requirement
// with a consume flag eats the item.
func (s *Service) gateTransition(sess *session.GameSession, world worlddata.World, sc *rpg.StateChanges, tr *TurnResponse) {
	dest := sc.CurrentLocationID
	if dest == "" || dest == sess.CurrentLocationID {
		sc.CurrentLocationID = ""
		return
	}
	loc, ok := world.Locations[dest]
	if !ok {
		sc.CurrentLocationID = ""
		return
	}
	for _, req := range loc.Requirements {
		switch req.Type {
		case "item":
			if !sess.Character.HasItem(req.ID) {
				sc.CurrentLocationID = ""
				tr.Narrative += "\n\n" + denialNote(req, "You need "+req.ID+" to go there.")
				return
			}
			if req.Consume {
				sess.Character.RemoveItem(req.ID)
				tr.Narrative += "\n\n(The " + req.ID + " is consumed.)"
			}
		case "quest":
			want := req.Status
			if want == "" {
				want = rpg.QuestCompleted
			}
			if sess.QuestStatus(req.ID) != want {
				sc.CurrentLocationID = ""
				tr.Narrative += "\n\n" + denialNote(req, "Something unfinished holds you back.")
				return
			}
		}
	}
}

func denialNote(req worlddata.Requirement, fallback string) string {
	if req.DenialNote != "" {
		return req.DenialNote
	}
	return fallback
}

// applyChanges folds the sanitized state-change bundle onto the character
// and the session transients.
func (s *Service) applyChanges(sess *session.GameSession, world worlddata.World, sc *rpg.StateChanges, tr *TurnResponse) {
	leveled := sess.Character.ApplyStateChanges(*sc)
	if leveled {
		tr.NewSkills = mergeSkills(tr.NewSkills, sess.Character.CheckNewSkills(world.ClassSkills(sess.Character.Class)))
	}
	for id, status := range sc.QuestUpdates {
		sess.QuestOverlay[id] = status
	}
	sess.MergeNPCUpdates(sc.NPCUpdates)
	if sc.CurrentLocationID != "" {
		sess.CurrentLocationID = sc.CurrentLocationID
	}
}

// fireEnterEvent runs a location's one-shot on_enter effect: traps damage
// the character directly, encounters queue spawns for this turn.
func (s *Service) fireEnterEvent(sess *session.GameSession, world worlddata.World, sc *rpg.StateChanges, tr *TurnResponse) {
	loc, ok := world.Locations[sess.CurrentLocationID]
	if !ok || loc.OnEnter == nil {
		return
	}
	if !sess.MarkTriggered(sess.CurrentLocationID) {
		return
	}
	ev := loc.OnEnter
	switch ev.Type {
	case worlddata.EventTrap:
		if ev.HPChange < 0 {
			sess.Character.TakeDamage(-ev.HPChange)
		} else {
			sess.Character.HealHP(ev.HPChange)
		}
	case worlddata.EventEncounter:
		sc.NewEnemies = append(sc.NewEnemies, ev.Enemies...)
	}
	if ev.Narrative != "" {
		tr.Narrative += "\n\n" + ev.Narrative
	}
	sess.PendingEvent = &session.TriggeredEventInfo{Type: ev.Type, Narrative: ev.Narrative, HPChange: ev.HPChange}
}

// startCombat instantiates enemies from combat-start declarations and any
// queued encounter spawns.
func (s *Service) startCombat(sess *session.GameSession, world worlddata.World, sc *rpg.StateChanges) {
	var groups []rpg.SpawnGroup
	if sc.Combat != nil && sc.Combat.Status == rpg.CombatStart {
		groups = append(groups, sc.Combat.Enemies...)
	}
	groups = append(groups, sc.NewEnemies...)
	if len(groups) == 0 {
		return
	}
	enemies := world.SpawnEnemies(groups)
	if len(enemies) == 0 {
		return
	}
	wasInCombat := sess.InCombat
	sess.StartCombat(enemies)
	if !wasInCombat && s.Metrics != nil {
		s.Metrics.RecordCombatStarted()
	}
}

// resolveEnemyDamage applies damage to enemy instances; when the last enemy
// falls the whole encounter's rewards land at once and a victory narrative
// is merged onto the reply.
func (s *Service) resolveEnemyDamage(ctx context.Context, sess *session.GameSession, world worlddata.World, hits []rpg.EnemyDamage, tr *TurnResponse) {
	if sess.ApplyEnemyDamage(hits) {
		return
	}
	defeated := sess.EndCombat()
	rewards := rpg.SumRewards(defeated)

	leveled := sess.Character.AddXP(rewards.XP)
	sess.Character.Gold += rewards.Gold
	for _, item := range rewards.Items {
		sess.Character.AddItem(item)
	}
	if leveled {
		tr.NewSkills = mergeSkills(tr.NewSkills, sess.Character.CheckNewSkills(world.ClassSkills(sess.Character.Class)))
	}

	note := prompt.VictoryNote(len(defeated), rewards.XP, rewards.Gold, rewards.Items)
	pctx := prompt.Context{Session: sess, World: world}
	victory, err := s.AI.GenerateResponse(ctx, sess.ModelName, s.Prompts.Render(pctx), nil, note)
	if err != nil {
		// The win already happened; a missing flourish is not a failed turn.
		log.Printf("game: victory narrative for %s: %v", sess.UserID, err)
		return
	}
	if victory.Narrative != "" {
		tr.Narrative += "\n\n" + victory.Narrative
	}
}

// enemyTurn runs the enemies' reply inside the same player action and folds
// its state changes back in the same way.
func (s *Service) enemyTurn(ctx context.Context, sess *session.GameSession, world worlddata.World, tr *TurnResponse) {
	sess.CombatTurn = session.TurnEnemy
	defer func() {
		sess.CombatTurn = session.TurnPlayer
		sess.CombatRound++
	}()

	pctx := prompt.Context{Session: sess, World: world}
	resp, err := s.AI.GenerateResponse(ctx, sess.ModelName, s.Prompts.Render(pctx), nil,
		"It is the enemies' turn. Narrate their attacks and report the damage they deal in state_changes.")
	if err != nil {
		log.Printf("game: enemy turn for %s: %v", sess.UserID, err)
		return
	}
	if resp.Narrative != "" {
		tr.Narrative += "\n\n" + resp.Narrative
	}
	if resp.StateChanges != nil {
		sc := resp.StateChanges
		// Enemies never move the player or start new encounters.
		sc.CurrentLocationID = ""
		sc.Combat = nil
		sc.NewEnemies = nil
		s.applyChanges(sess, world, sc, tr)
		if sess.InCombat && len(sc.EnemyDamage) > 0 {
			s.resolveEnemyDamage(ctx, sess, world, sc.EnemyDamage, tr)
		}
	}
}

// handleDeath archives the character into the world graveyard, destroys the
// session, and marks the reply as game over.
func (s *Service) handleDeath(ctx context.Context, sess *session.GameSession, cause string, tr *TurnResponse) {
	if cause == "" {
		cause = "met a violent end"
	}
	if epitaph, err := s.AI.GenerateResponse(ctx, sess.ModelName, deathPrompt(sess, cause), nil, "Describe the end."); err == nil && epitaph.Narrative != "" {
		tr.Narrative += "\n\n" + epitaph.Narrative
	}

	if s.WorldState != nil {
		state, err := s.WorldState.Get(ctx, sess.WorldName)
		if err != nil || state == nil {
			state = rpg.NewWorldState()
		}
		state.Normalize()
		state.Graveyard[sess.Character.Name] = rpg.GraveRecord{
			Name:         sess.Character.Name,
			Level:        sess.Character.Level,
			CauseOfDeath: cause,
			DroppedItems: append([]string(nil), sess.Character.Inventory...),
		}
		for id, st := range sess.NPCStates {
			state.NPCStates[id] = st
		}
		if err := s.WorldState.Save(ctx, sess.WorldName, state); err != nil {
			log.Printf("game: save graveyard for %s: %v", sess.UserID, err)
		}
	}

	if err := s.Characters.Save(ctx, sess.Character); err != nil {
		log.Printf("game: save dead character %s: %v", sess.Character.Name, err)
	}
	s.Sessions.Remove(sess.UserID)
	if s.Metrics != nil {
		s.Metrics.RecordDeath()
	}
	s.publish(ctx, sess.UserID, rpg.GameEvent{
		Type:       rpg.EventGameEnded,
		OccurredAt: s.now(),
		Payload:    map[string]any{"character": sess.Character.Name, "cause": cause, "died": true},
	})
	tr.GameOver = true
	tr.InCombat = false
}

func deathPrompt(sess *session.GameSession, cause string) string {
	var b strings.Builder
	b.WriteString("You are the game master of a text role-playing game. The player character ")
	b.WriteString(sess.Character.Name)
	b.WriteString(" has just died: ")
	b.WriteString(cause)
	b.WriteString(". Write a short, somber closing scene. Respond with a single JSON object {\"narrative\": \"...\"}.")
	return b.String()
}

func mergeSkills(have, add []string) []string {
	for _, sk := range add {
		dup := false
		for _, h := range have {
			if h == sk {
				dup = true
				break
			}
		}
		if !dup {
			have = append(have, sk)
		}
	}
	return have
}

// rewriteSpeech marks fully quoted input as spoken dialogue.
func rewriteSpeech(input string) string {
	t := strings.TrimSpace(input)
	if len(t) > 1 && strings.HasPrefix(t, `"`) && strings.HasSuffix(t, `"`) {
		return "say " + t
	}
	return t
}
