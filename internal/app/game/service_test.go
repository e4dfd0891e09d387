package game

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"questweaver/internal/app/ai"
	"questweaver/internal/app/ports"
	"questweaver/internal/app/prompt"
	"questweaver/internal/app/session"
	"questweaver/internal/domain/rpg"
	"questweaver/internal/domain/worlddata"
)

type memCharRepo struct {
	mu    sync.Mutex
	byKey map[string]*rpg.Character
}

func newMemCharRepo() *memCharRepo { return &memCharRepo{byKey: map[string]*rpg.Character{}} }

func (r *memCharRepo) Save(_ context.Context, ch *rpg.Character) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byKey[ch.OwnerID+"/"+ch.Name] = ch
	return nil
}

func (r *memCharRepo) GetByOwnerAndName(_ context.Context, owner, name string) (*rpg.Character, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.byKey[owner+"/"+name]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return ch, nil
}

func (r *memCharRepo) ListByOwner(_ context.Context, owner string) ([]*rpg.Character, error) {
	return nil, nil
}

func (r *memCharRepo) Delete(_ context.Context, owner, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byKey, owner+"/"+name)
	return nil
}

type memWorldState struct {
	mu    sync.Mutex
	state map[string]*rpg.WorldState
}

func newMemWorldState() *memWorldState { return &memWorldState{state: map[string]*rpg.WorldState{}} }

func (r *memWorldState) Get(_ context.Context, world string) (*rpg.WorldState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.state[world]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return st, nil
}

func (r *memWorldState) Save(_ context.Context, world string, st *rpg.WorldState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state[world] = st
	return nil
}

type memEvents struct {
	mu     sync.Mutex
	byUser map[string][]rpg.GameEvent
}

func newMemEvents() *memEvents { return &memEvents{byUser: map[string][]rpg.GameEvent{}} }

func (r *memEvents) Append(_ context.Context, userID string, events []rpg.GameEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byUser[userID] = append(r.byUser[userID], events...)
	return nil
}

func (r *memEvents) ListByUserID(_ context.Context, userID string, limit int) ([]rpg.GameEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	evs := r.byUser[userID]
	if limit > 0 && len(evs) > limit {
		evs = evs[len(evs)-limit:]
	}
	return evs, nil
}

type scriptedChat struct {
	mu      sync.Mutex
	replies []string
	calls   int
}

func (c *scriptedChat) Complete(_ context.Context, _ ports.CompletionRequest) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calls >= len(c.replies) {
		return `{"narrative": "The world waits."}`, nil
	}
	r := c.replies[c.calls]
	c.calls++
	if r == "ERR" {
		return "", errors.New("backend down")
	}
	return r, nil
}

type fixedDice struct{ d20 int }

func (d fixedDice) D20() int          { return d.d20 }
func (d fixedDice) TwoD6() (int, int) { return 3, 4 }

func testWorld() worlddata.World {
	return worlddata.World{
		Name:            "greyhollow",
		StartLocationID: "village",
		Locations: map[string]worlddata.Location{
			"village": {Name: "Village", Exits: []string{"vault", "crypt"}},
			"vault": {Name: "Vault", Requirements: []worlddata.Requirement{
				{Type: "item", ID: "brass_key", DenialNote: "The vault door will not budge."},
			}},
			"crypt": {Name: "Crypt", OnEnter: &worlddata.LocationEvent{
				Type: worlddata.EventTrap, HPChange: -4, Narrative: "A dart catches your arm.",
			}},
		},
		Enemies: map[string]worlddata.EnemyTemplate{
			"goblin": {Name: "Goblin", HP: 5, Stats: map[string]int{"DEX": 12},
				Rewards: rpg.RewardTable{XP: 30, Gold: 7, Items: []string{"goblin ear"}}},
		},
		Items: map[string]worlddata.ItemTemplate{
			"potion":      {Name: "potion", Consumable: true, HPRestore: 10},
			"short sword": {Name: "short sword", Equippable: true, Slot: "weapon", Bonuses: map[string]int{"STR": 1}},
		},
		Shops: map[string]worlddata.Shop{
			"smith": {Name: "Smithy", LocationID: "village", Listings: []worlddata.ShopListing{{Item: "short sword", Price: 30}}},
		},
	}
}

const introReply = `{"narrative": "The bells toll over Greyhollow.", "suggested_actions": ["Look around"], "main_story": {"synopsis": "A cult stirs.", "quest_chain": ["find the bell"], "climax_encounter_id": "goblin"}}`

func newTestService(replies ...string) (*Service, *scriptedChat, *memCharRepo, *memWorldState) {
	chat := &scriptedChat{replies: replies}
	chars := newMemCharRepo()
	worldState := newMemWorldState()
	svc := &Service{
		Sessions:   session.NewManager(),
		Characters: chars,
		Worlds:     worlddata.NewCatalog(testWorld()),
		WorldState: worldState,
		Events:     newMemEvents(),
		AI:         &ai.Service{Client: chat, Model: "test-model"},
		Prompts:    prompt.Default(),
		Dice:       fixedDice{d20: 10},
		Now:        func() time.Time { return time.Unix(1700000000, 0) },
	}
	return svc, chat, chars, worldState
}

func startRun(t *testing.T, svc *Service, chars *memCharRepo) {
	t.Helper()
	ch := rpg.NewCharacter(rpg.CreationInput{OwnerID: "u1", Name: "Ash", Race: "Human", Class: "Warrior"})
	if err := chars.Save(context.Background(), ch); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.StartGame(context.Background(), "u1", "", "Ash", StartOptions{}); err != nil {
		t.Fatalf("StartGame: %v", err)
	}
}

func TestStartGameSeedsSessionAndArc(t *testing.T) {
	svc, _, chars, _ := newTestService(introReply)
	startRun(t, svc, chars)

	sess, ok := svc.Sessions.Get("u1")
	if !ok {
		t.Fatal("session not registered")
	}
	if sess.CurrentLocationID != "village" {
		t.Errorf("start location = %q", sess.CurrentLocationID)
	}
	if sess.MainStory.ClimaxEncounterID != "goblin" {
		t.Errorf("main story = %+v", sess.MainStory)
	}
	if len(sess.History) != 1 {
		t.Errorf("history = %+v", sess.History)
	}
	if _, err := svc.StartGame(context.Background(), "u1", "", "Ash", StartOptions{}); err == nil {
		t.Error("second StartGame should fail")
	}
}

func TestProceedGameRequiresSession(t *testing.T) {
	svc, _, _, _ := newTestService()
	_, err := svc.ProceedGame(context.Background(), "nobody", "look")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestProceedGameAIFailureMutatesNothing(t *testing.T) {
	svc, _, chars, _ := newTestService(introReply, "ERR")
	startRun(t, svc, chars)
	sess, _ := svc.Sessions.Get("u1")
	hpBefore, turnBefore := sess.Character.HP, sess.TurnCount

	_, err := svc.ProceedGame(context.Background(), "u1", "look")
	if !errors.Is(err, ai.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if sess.Character.HP != hpBefore || sess.TurnCount != turnBefore {
		t.Error("failed turn must not mutate state")
	}
}

// Scenario: a declared combat start spawns the enemies and hands the player
// the first turn.
func TestCombatStartFromStateChanges(t *testing.T) {
	svc, _, chars, _ := newTestService(introReply,
		`{"narrative": "A goblin leaps out!", "state_changes": {"combat": {"status": "start", "enemies": ["goblin"]}}}`,
		`{"narrative": "The goblin circles you.", "state_changes": {"hp_change": -2, "enemy_damage": []}}`,
	)
	startRun(t, svc, chars)

	tr, err := svc.ProceedGame(context.Background(), "u1", "walk down the road")
	if err != nil {
		t.Fatalf("ProceedGame: %v", err)
	}
	sess, _ := svc.Sessions.Get("u1")
	if !sess.InCombat || len(sess.Enemies) != 1 {
		t.Fatalf("in_combat=%v enemies=%d", sess.InCombat, len(sess.Enemies))
	}
	if sess.CombatTurn != session.TurnPlayer {
		t.Errorf("combat turn = %q, want player", sess.CombatTurn)
	}
	if !tr.InCombat {
		t.Error("response should report combat")
	}
	// The enemy got its reply turn inside the same call.
	if sess.Character.HP != sess.Character.MaxHP-2 {
		t.Errorf("HP = %d, enemy turn damage not applied", sess.Character.HP)
	}
	if sess.CombatRound != 1 {
		t.Errorf("combat round = %d", sess.CombatRound)
	}
}

// Scenario: a declared combat end stands the encounter down with no rewards
// and no enemy reply turn.
func TestCombatEndFromStateChanges(t *testing.T) {
	svc, chat, chars, _ := newTestService(introReply,
		`{"narrative": "A goblin leaps out!", "state_changes": {"combat": {"status": "start", "enemies": ["goblin"]}}}`,
		`{"narrative": "It snaps at you.", "state_changes": {}}`,
		`{"narrative": "The goblin throws down its club and flees.", "state_changes": {"combat": {"status": "end"}}}`,
	)
	startRun(t, svc, chars)
	if _, err := svc.ProceedGame(context.Background(), "u1", "walk"); err != nil {
		t.Fatal(err)
	}
	sess, _ := svc.Sessions.Get("u1")
	if !sess.InCombat {
		t.Fatal("combat should have started")
	}
	xpBefore, hpBefore := sess.Character.XP, sess.Character.HP
	chat.mu.Lock()
	callsBefore := chat.calls
	chat.mu.Unlock()

	tr, err := svc.ProceedGame(context.Background(), "u1", "lower your sword")
	if err != nil {
		t.Fatalf("ProceedGame: %v", err)
	}
	if sess.InCombat || tr.InCombat || len(sess.Enemies) != 0 {
		t.Errorf("in_combat=%v enemies=%d, want encounter stood down", sess.InCombat, len(sess.Enemies))
	}
	if sess.Character.XP != xpBefore {
		t.Errorf("xp = %d, a stand-down must award nothing", sess.Character.XP)
	}
	if sess.Character.HP != hpBefore {
		t.Errorf("HP = %d, no enemy turn may follow the end", sess.Character.HP)
	}
	chat.mu.Lock()
	calls := chat.calls
	chat.mu.Unlock()
	if calls != callsBefore+1 {
		t.Errorf("backend calls = %d, want exactly one for the ending turn", calls-callsBefore)
	}
}

// Scenario: killing the last enemy ends combat and applies its rewards
// exactly once.
func TestLastKillEndsCombatAndAppliesRewardsOnce(t *testing.T) {
	svc, chat, chars, _ := newTestService(introReply,
		`{"narrative": "Goblins attack!", "state_changes": {"combat": {"status": "start", "enemies": [{"id": "goblin", "count": 2}]}}}`,
		`{"narrative": "They press in.", "state_changes": {}}`,
	)
	startRun(t, svc, chars)
	if _, err := svc.ProceedGame(context.Background(), "u1", "into the woods"); err != nil {
		t.Fatal(err)
	}
	sess, _ := svc.Sessions.Get("u1")
	if len(sess.Enemies) != 2 {
		t.Fatalf("enemies = %d", len(sess.Enemies))
	}
	id1, id2 := sess.Enemies[0].InstanceID, sess.Enemies[1].InstanceID
	goldBefore := sess.Character.Gold

	chat.mu.Lock()
	chat.replies = append(chat.replies,
		`{"narrative": "You cut both down.", "state_changes": {"enemy_damage": [{"instance_id": "`+id1+`", "damage": 5}, {"instance_id": "`+id2+`", "damage": 5}]}}`,
		`{"narrative": "Silence falls over the clearing."}`,
	)
	chat.mu.Unlock()

	tr, err := svc.ProceedGame(context.Background(), "u1", "attack")
	if err != nil {
		t.Fatalf("ProceedGame: %v", err)
	}
	if sess.InCombat || tr.InCombat {
		t.Error("combat should be over")
	}
	if sess.Character.XP != 60 {
		t.Errorf("xp = %d, want 60 (two goblins, once)", sess.Character.XP)
	}
	if sess.Character.Gold != goldBefore+14 {
		t.Errorf("gold = %d, want +14", sess.Character.Gold)
	}
	ears := 0
	for _, it := range sess.Character.Inventory {
		if it == "goblin ear" {
			ears++
		}
	}
	if ears != 2 {
		t.Errorf("goblin ears = %d, want 2", ears)
	}
	if !strings.Contains(tr.Narrative, "Silence falls") {
		t.Error("victory narrative should be merged onto the reply")
	}
}

// Scenario: a gated location transition is dropped with a denial note.
func TestLocationRequirementDeniesTransition(t *testing.T) {
	svc, _, chars, _ := newTestService(introReply,
		`{"narrative": "You push at the vault door.", "state_changes": {"current_location_id": "vault"}}`,
	)
	startRun(t, svc, chars)

	tr, err := svc.ProceedGame(context.Background(), "u1", "enter the vault")
	if err != nil {
		t.Fatalf("ProceedGame: %v", err)
	}
	sess, _ := svc.Sessions.Get("u1")
	if sess.CurrentLocationID != "village" {
		t.Errorf("location = %q, want unchanged", sess.CurrentLocationID)
	}
	if !strings.Contains(tr.Narrative, "will not budge") {
		t.Errorf("narrative missing denial note: %q", tr.Narrative)
	}
}

// Scenario: a trap on first entry fires once; revisits do not re-trigger.
func TestOnEnterTrapIsOneShot(t *testing.T) {
	svc, _, chars, _ := newTestService(introReply,
		`{"narrative": "You descend.", "state_changes": {"current_location_id": "crypt"}}`,
		`{"narrative": "You climb out.", "state_changes": {"current_location_id": "village"}}`,
		`{"narrative": "You descend again.", "state_changes": {"current_location_id": "crypt"}}`,
	)
	startRun(t, svc, chars)
	sess, _ := svc.Sessions.Get("u1")
	maxHP := sess.Character.MaxHP

	tr, err := svc.ProceedGame(context.Background(), "u1", "enter the crypt")
	if err != nil {
		t.Fatal(err)
	}
	if sess.Character.HP != maxHP-4 {
		t.Errorf("HP = %d, want trap damage applied", sess.Character.HP)
	}
	if !strings.Contains(tr.Narrative, "dart") {
		t.Error("trap narrative should be appended")
	}
	if _, err := svc.ProceedGame(context.Background(), "u1", "leave"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ProceedGame(context.Background(), "u1", "enter again"); err != nil {
		t.Fatal(err)
	}
	if sess.Character.HP != maxHP-4 {
		t.Errorf("HP = %d, trap should not re-fire", sess.Character.HP)
	}
}

func TestCharacterDeathArchivesGraveAndEndsSession(t *testing.T) {
	svc, _, chars, worldState := newTestService(introReply,
		`{"narrative": "The blow lands true.", "state_changes": {"hp_change": -999, "cause_of_death": "a goblin spear"}}`,
		`{"narrative": "Ash falls, and the bells toll once more."}`,
	)
	startRun(t, svc, chars)
	sess, _ := svc.Sessions.Get("u1")
	sess.Character.AddItem("lucky coin")

	tr, err := svc.ProceedGame(context.Background(), "u1", "charge")
	if err != nil {
		t.Fatalf("ProceedGame: %v", err)
	}
	if !tr.GameOver {
		t.Error("response should be game over")
	}
	if svc.Sessions.HasSession("u1") {
		t.Error("session should be destroyed")
	}
	st, err := worldState.Get(context.Background(), "greyhollow")
	if err != nil {
		t.Fatalf("world state: %v", err)
	}
	grave, ok := st.Graveyard["Ash"]
	if !ok {
		t.Fatalf("graveyard = %+v", st.Graveyard)
	}
	if grave.CauseOfDeath != "a goblin spear" || len(grave.DroppedItems) != 1 {
		t.Errorf("grave = %+v", grave)
	}
	if !strings.Contains(tr.Narrative, "bells toll once more") {
		t.Error("death narrative should be merged")
	}
}

func TestLootGraveIsOneShot(t *testing.T) {
	svc, _, chars, worldState := newTestService(introReply)
	startRun(t, svc, chars)
	st := rpg.NewWorldState()
	st.Graveyard["Brom"] = rpg.GraveRecord{Name: "Brom", Level: 3, CauseOfDeath: "fell", DroppedItems: []string{"old boots"}}
	if err := worldState.Save(context.Background(), "greyhollow", st); err != nil {
		t.Fatal(err)
	}

	tr, err := svc.LootGrave(context.Background(), "u1", "Brom")
	if err != nil {
		t.Fatalf("LootGrave: %v", err)
	}
	sess, _ := svc.Sessions.Get("u1")
	if !sess.Character.HasItem("old boots") {
		t.Error("dropped items should transfer")
	}
	if !strings.Contains(tr.Narrative, "Brom") {
		t.Errorf("narrative = %q", tr.Narrative)
	}
	if _, err := svc.LootGrave(context.Background(), "u1", "Brom"); err == nil {
		t.Error("second loot should fail")
	}
}

func TestUseItemValidation(t *testing.T) {
	svc, _, chars, _ := newTestService(introReply)
	startRun(t, svc, chars)
	sess, _ := svc.Sessions.Get("u1")
	inventoryBefore := len(sess.Character.Inventory)

	_, err := svc.UseItem(context.Background(), "u1", "potion")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if len(sess.Character.Inventory) != inventoryBefore {
		t.Error("failed use must not mutate inventory")
	}

	sess.Character.TakeDamage(15)
	sess.Character.AddItem("potion")
	tr, err := svc.UseItem(context.Background(), "u1", "potion")
	if err != nil {
		t.Fatalf("UseItem: %v", err)
	}
	if sess.Character.HasItem("potion") {
		t.Error("potion should be consumed")
	}
	if sess.Character.HP != sess.Character.MaxHP-5 {
		t.Errorf("HP = %d, want 10 restored", sess.Character.HP)
	}
	if tr.Narrative == "" {
		t.Error("use should narrate")
	}
}

func TestBuyAndEquipFlow(t *testing.T) {
	svc, _, chars, _ := newTestService(introReply)
	startRun(t, svc, chars)
	sess, _ := svc.Sessions.Get("u1")

	if _, err := svc.BuyItem(context.Background(), "u1", "short sword"); err == nil {
		t.Fatal("buying with no gold should fail")
	}
	sess.Character.Gold = 50
	if _, err := svc.BuyItem(context.Background(), "u1", "short sword"); err != nil {
		t.Fatalf("BuyItem: %v", err)
	}
	if sess.Character.Gold != 20 {
		t.Errorf("gold = %d, want 20", sess.Character.Gold)
	}
	if _, err := svc.EquipItem(context.Background(), "u1", "short sword"); err != nil {
		t.Fatalf("EquipItem: %v", err)
	}
	if sess.Character.HasItem("short sword") {
		t.Error("equipped item must leave the inventory")
	}
	if sess.Character.Equipment["weapon"].Name != "short sword" {
		t.Errorf("equipment = %+v", sess.Character.Equipment)
	}
	if sess.Character.EffectiveStats()["STR"] != 11 {
		t.Errorf("effective STR = %d, want bonus applied", sess.Character.EffectiveStats()["STR"])
	}
}

func TestFleeSuccessAndFailure(t *testing.T) {
	svc, chat, chars, _ := newTestService(introReply,
		`{"narrative": "Goblin!", "state_changes": {"combat": {"status": "start", "enemies": ["goblin"]}}}`,
		`{"narrative": "It lunges.", "state_changes": {}}`,
	)
	startRun(t, svc, chars)
	if _, err := svc.ProceedGame(context.Background(), "u1", "walk"); err != nil {
		t.Fatal(err)
	}
	sess, _ := svc.Sessions.Get("u1")
	xpBefore := sess.Character.XP

	// Goblin DEX 12 is the target. Roll 5 + mod 0 fails.
	svc.Dice = fixedDice{d20: 5}
	chat.mu.Lock()
	chat.replies = append(chat.replies, `{"narrative": "It claws you as you turn.", "state_changes": {"hp_change": -3}}`)
	chat.mu.Unlock()
	tr, err := svc.FleeCombat(context.Background(), "u1")
	if err != nil {
		t.Fatalf("FleeCombat: %v", err)
	}
	if !sess.InCombat || !tr.InCombat {
		t.Fatal("failed flee should stay in combat")
	}
	if tr.ActionResult == nil || tr.ActionResult.Details["success"] != false {
		t.Errorf("action result = %+v", tr.ActionResult)
	}
	if sess.Character.HP != sess.Character.MaxHP-3 {
		t.Errorf("HP = %d, enemy turn should follow a failed flee", sess.Character.HP)
	}

	// Roll 15 + mod 0 beats 12.
	svc.Dice = fixedDice{d20: 15}
	tr, err = svc.FleeCombat(context.Background(), "u1")
	if err != nil {
		t.Fatalf("FleeCombat: %v", err)
	}
	if sess.InCombat || tr.InCombat {
		t.Error("successful flee should end combat")
	}
	if sess.Character.XP != xpBefore {
		t.Error("fleeing must award no rewards")
	}
	if _, err := svc.FleeCombat(context.Background(), "u1"); err == nil {
		t.Error("flee outside combat should fail")
	}
}

func TestSpendPoints(t *testing.T) {
	svc, _, chars, _ := newTestService(introReply)
	startRun(t, svc, chars)
	sess, _ := svc.Sessions.Get("u1")
	sess.Character.StatPoints = 1
	sess.Character.SkillPoints = 5

	if _, err := svc.SpendStatPoint(context.Background(), "u1", "luck"); err == nil {
		t.Error("unknown stat should fail")
	}
	if _, err := svc.SpendStatPoint(context.Background(), "u1", "str"); err != nil {
		t.Fatalf("SpendStatPoint: %v", err)
	}
	if sess.Character.BaseStats["STR"] != 11 || sess.Character.StatPoints != 0 {
		t.Errorf("STR=%d points=%d", sess.Character.BaseStats["STR"], sess.Character.StatPoints)
	}
	if _, err := svc.SpendSkillPoints(context.Background(), "u1", "Tracking", 3); err != nil {
		t.Fatalf("SpendSkillPoints: %v", err)
	}
	if sess.Character.Skills["Tracking"] != 3 || sess.Character.SkillPoints != 2 {
		t.Errorf("skills=%v points=%d", sess.Character.Skills, sess.Character.SkillPoints)
	}
	if _, err := svc.SpendSkillPoints(context.Background(), "u1", "Tracking", 9); err == nil {
		t.Error("overspending should fail")
	}
}

func TestEndGamePersistsAndPublishes(t *testing.T) {
	svc, _, chars, _ := newTestService(introReply)
	startRun(t, svc, chars)
	sess, _ := svc.Sessions.Get("u1")
	sess.Character.Gold = 99

	if err := svc.EndGame(context.Background(), "u1"); err != nil {
		t.Fatalf("EndGame: %v", err)
	}
	if svc.Sessions.HasSession("u1") {
		t.Error("session should be gone")
	}
	saved, err := chars.GetByOwnerAndName(context.Background(), "u1", "Ash")
	if err != nil || saved.Gold != 99 {
		t.Errorf("saved character = %+v, %v", saved, err)
	}
	if err := svc.EndGame(context.Background(), "u1"); err == nil {
		t.Error("second EndGame should fail")
	}
	events, err := svc.Replay(context.Background(), "u1", 0)
	if err != nil {
		t.Fatal(err)
	}
	var types []string
	for _, ev := range events {
		types = append(types, ev.Type)
	}
	if len(types) < 2 || types[0] != rpg.EventGameStarted || types[len(types)-1] != rpg.EventGameEnded {
		t.Errorf("event types = %v", types)
	}
}

func TestGameClearGrantsAchievementOnce(t *testing.T) {
	svc, _, chars, _ := newTestService(introReply,
		`{"narrative": "The drowned king falls and the bells go quiet.", "game_clear": true}`,
		`{"narrative": "You linger in the silence.", "game_clear": true}`,
	)
	startRun(t, svc, chars)

	tr, err := svc.ProceedGame(context.Background(), "u1", "strike the final blow")
	if err != nil {
		t.Fatalf("ProceedGame: %v", err)
	}
	if !tr.GameClear {
		t.Error("response should report the clear")
	}
	saved, err := chars.GetByOwnerAndName(context.Background(), "u1", "Ash")
	if err != nil {
		t.Fatal(err)
	}
	if len(saved.Achievements) != 1 || saved.Achievements[0] != rpg.AchievementGameClear {
		t.Errorf("achievements = %v", saved.Achievements)
	}

	if _, err := svc.ProceedGame(context.Background(), "u1", "look around"); err != nil {
		t.Fatal(err)
	}
	if len(saved.Achievements) != 1 {
		t.Errorf("achievements = %v, want no duplicate", saved.Achievements)
	}
}

func TestConcurrentTurnsForOneUserSerialize(t *testing.T) {
	svc, _, chars, _ := newTestService(introReply)
	startRun(t, svc, chars)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.ProceedGame(context.Background(), "u1", "wander")
		}()
	}
	wg.Wait()
	sess, _ := svc.Sessions.Get("u1")
	if sess.TurnCount != 21 {
		t.Errorf("turn count = %d, want 21 (intro + 20 serialized turns)", sess.TurnCount)
	}
}

func TestSessionViewAndThreadLookup(t *testing.T) {
	svc, _, chars, _ := newTestService(introReply)
	startRun(t, svc, chars)

	view, err := svc.Session("u1")
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if view.WorldName != "greyhollow" || view.CurrentLocationID != "village" {
		t.Errorf("view = world %q location %q", view.WorldName, view.CurrentLocationID)
	}
	if view.Character == nil || view.Character.Name != "Ash" {
		t.Errorf("view character = %+v", view.Character)
	}
	if view.Day != 1 {
		t.Errorf("view day = %d", view.Day)
	}

	if err := svc.AssociateThread("u1", "t1"); err != nil {
		t.Fatalf("AssociateThread: %v", err)
	}
	byThread, err := svc.SessionByThread("t1")
	if err != nil {
		t.Fatalf("SessionByThread: %v", err)
	}
	if byThread.UserID != "u1" || byThread.ThreadID != "t1" {
		t.Errorf("thread view = user %q thread %q", byThread.UserID, byThread.ThreadID)
	}

	if _, err := svc.Session("nobody"); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("missing session err = %v", err)
	}
	if _, err := svc.SessionByThread("t-missing"); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("missing thread err = %v", err)
	}
}
