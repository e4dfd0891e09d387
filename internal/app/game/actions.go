package game

import (
	"context"
	"fmt"
	"log"
	"strings"

	"questweaver/internal/app/session"
	"questweaver/internal/domain/rpg"
	"questweaver/internal/domain/worlddata"
)

// withSession runs fn under the user's turn lock with the session and its
// world resolved.
func (s *Service) withSession(userID string, fn func(sess *session.GameSession, world worlddata.World) (*TurnResponse, error)) (*TurnResponse, error) {
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
	return fn(sess, world)
}

// UseItem consumes an item from the inventory and applies its restorative
// effect.
func (s *Service) UseItem(ctx context.Context, userID, itemName string) (*TurnResponse, error) {
	return s.withSession(userID, func(sess *session.GameSession, world worlddata.World) (*TurnResponse, error) {
		ch := sess.Character
		if !ch.HasItem(itemName) {
			return nil, validationf("you don't have %q", itemName)
		}
		tpl, ok := world.Items[itemName]
		if !ok || !tpl.Consumable {
			return nil, validationf("%q cannot be used", itemName)
		}
		ch.RemoveItem(itemName)
		if tpl.HPRestore > 0 {
			ch.HealHP(tpl.HPRestore)
		}
		if tpl.MPRestore > 0 {
			ch.RecoverMP(tpl.MPRestore)
		}
		s.saveCharacter(ctx, sess)
		return &TurnResponse{
			Narrative: fmt.Sprintf("You use the %s. HP %d/%d, MP %d/%d.", itemName, ch.HP, ch.MaxHP, ch.MP, ch.MaxMP),
			InCombat:  sess.InCombat,
		}, nil
	})
}

// EquipItem moves an inventory item into its equipment slot.
func (s *Service) EquipItem(ctx context.Context, userID, itemName string) (*TurnResponse, error) {
	return s.withSession(userID, func(sess *session.GameSession, world worlddata.World) (*TurnResponse, error) {
		ch := sess.Character
		if !ch.HasItem(itemName) {
			return nil, validationf("you don't have %q", itemName)
		}
		tpl, ok := world.Items[itemName]
		if !ok || !tpl.Equippable || tpl.Slot == "" {
			return nil, validationf("%q cannot be equipped", itemName)
		}
		ch.Equip(itemName, tpl.Slot, tpl.Bonuses)
		s.saveCharacter(ctx, sess)
		return &TurnResponse{
			Narrative: fmt.Sprintf("You equip the %s (%s).", itemName, tpl.Slot),
			InCombat:  sess.InCombat,
		}, nil
	})
}

// BuyItem purchases from the shop at the current location.
func (s *Service) BuyItem(ctx context.Context, userID, itemName string) (*TurnResponse, error) {
	return s.withSession(userID, func(sess *session.GameSession, world worlddata.World) (*TurnResponse, error) {
		shop, ok := world.ShopAt(sess.CurrentLocationID)
		if !ok {
			return nil, validationf("there is no shop here")
		}
		price := -1
		for _, l := range shop.Listings {
			if l.Item == itemName {
				price = l.Price
				break
			}
		}
		if price < 0 {
			return nil, validationf("%s does not sell %q", shop.Name, itemName)
		}
		ch := sess.Character
		if ch.Gold < price {
			return nil, validationf("insufficient gold: %s costs %d, you have %d", itemName, price, ch.Gold)
		}
		ch.Gold -= price
		ch.AddItem(itemName)
		s.saveCharacter(ctx, sess)
		return &TurnResponse{
			Narrative: fmt.Sprintf("You buy the %s for %d gold. %d gold remains.", itemName, price, ch.Gold),
			InCombat:  sess.InCombat,
		}, nil
	})
}

// FleeCombat rolls d20 plus the DEX modifier against the fastest enemy's
// DEX (floor 10). Success discards the encounter with no rewards; failure
// hands the turn to the enemies.
func (s *Service) FleeCombat(ctx context.Context, userID string) (*TurnResponse, error) {
	return s.withSession(userID, func(sess *session.GameSession, world worlddata.World) (*TurnResponse, error) {
		if !sess.InCombat {
			return nil, validationf("you are not in combat")
		}
		target := 10
		for _, e := range sess.Enemies {
			if dex := e.Stat("DEX"); dex > target {
				target = dex
			}
		}
		roll := s.Dice.D20()
		total := roll + sess.Character.Modifier("DEX")
		tr := &TurnResponse{
			ActionResult: &rpg.ActionResult{
				Type: "flee_check",
				Details: map[string]any{
					"roll": roll, "modifier": sess.Character.Modifier("DEX"),
					"total": total, "target": target, "success": total >= target,
				},
			},
		}
		if total >= target {
			// No rewards on escape, even for enemies downed earlier.
			sess.EndCombat()
			tr.Narrative = fmt.Sprintf("You break away and run. (%d vs %d)", total, target)
			s.saveCharacter(ctx, sess)
			return tr, nil
		}
		tr.Narrative = fmt.Sprintf("You try to run but the enemies cut you off. (%d vs %d)", total, target)
		s.enemyTurn(ctx, sess, world, tr)
		if sess.Character.IsDead() {
			s.handleDeath(ctx, sess, "cut down while fleeing", tr)
			return tr, nil
		}
		tr.InCombat = sess.InCombat
		s.saveCharacter(ctx, sess)
		return tr, nil
	})
}

// SpendStatPoint raises one ability score by one.
func (s *Service) SpendStatPoint(ctx context.Context, userID, stat string) (*TurnResponse, error) {
	return s.withSession(userID, func(sess *session.GameSession, _ worlddata.World) (*TurnResponse, error) {
		ch := sess.Character
		if !ch.UseStatPoint(stat) {
			return nil, validationf("cannot raise %q: no points or unknown stat", stat)
		}
		s.saveCharacter(ctx, sess)
		canon := strings.ToUpper(stat)
		return &TurnResponse{
			Narrative: fmt.Sprintf("%s rises to %d. %d stat points remain.", canon, ch.BaseStats[canon], ch.StatPoints),
			InCombat:  sess.InCombat,
		}, nil
	})
}

// SpendSkillPoints puts n points into one skill.
func (s *Service) SpendSkillPoints(ctx context.Context, userID, skill string, n int) (*TurnResponse, error) {
	return s.withSession(userID, func(sess *session.GameSession, _ worlddata.World) (*TurnResponse, error) {
		ch := sess.Character
		if !ch.UseSkillPoints(skill, n) {
			return nil, validationf("cannot spend %d points on %q", n, skill)
		}
		s.saveCharacter(ctx, sess)
		return &TurnResponse{
			Narrative: fmt.Sprintf("%s is now rank %d. %d skill points remain.", skill, ch.Skills[skill], ch.SkillPoints),
			InCombat:  sess.InCombat,
		}, nil
	})
}

// LootGrave takes a fallen character's dropped items from the shared
// graveyard. The grave is removed so it can only be looted once.
func (s *Service) LootGrave(ctx context.Context, userID, graveName string) (*TurnResponse, error) {
	return s.withSession(userID, func(sess *session.GameSession, _ worlddata.World) (*TurnResponse, error) {
		if s.WorldState == nil {
			return nil, validationf("there are no graves in this world")
		}
		state, err := s.WorldState.Get(ctx, sess.WorldName)
		if err != nil || state == nil {
			return nil, validationf("there are no graves in this world")
		}
		state.Normalize()
		grave, ok := state.Graveyard[graveName]
		if !ok {
			return nil, validationf("no grave of %q here", graveName)
		}
		delete(state.Graveyard, graveName)
		for _, item := range grave.DroppedItems {
			sess.Character.AddItem(item)
		}
		if err := s.persistTurn(ctx, sess, state); err != nil {
			log.Printf("game: persist loot for %s: %v", userID, err)
		}
		narr := fmt.Sprintf("You search the grave of %s (level %d, %s).", grave.Name, grave.Level, grave.CauseOfDeath)
		if len(grave.DroppedItems) == 0 {
			narr += " Nothing remains worth taking."
		} else {
			narr += fmt.Sprintf(" You recover: %v.", grave.DroppedItems)
		}
		return &TurnResponse{Narrative: narr, InCombat: sess.InCombat}, nil
	})
}

func (s *Service) saveCharacter(ctx context.Context, sess *session.GameSession) {
	if err := s.Characters.Save(ctx, sess.Character); err != nil {
		log.Printf("game: save character %s: %v", sess.Character.Name, err)
	}
}
