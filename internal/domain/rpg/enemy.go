package rpg

import "github.com/google/uuid"

// RewardTable is what defeating one enemy is worth.
type RewardTable struct {
	XP    int      `json:"xp,omitempty"`
	Gold  int      `json:"gold,omitempty"`
	Items []string `json:"items,omitempty"`
}

// Enemy is one combatant instance. Instances are combat-scoped and never
// persisted; the instance id makes duplicate enemy types in an encounter
// individually addressable.
type Enemy struct {
	TemplateID string         `json:"enemy_id"`
	InstanceID string         `json:"instance_id"`
	Name       string         `json:"name"`
	HP         int            `json:"hp"`
	MaxHP      int            `json:"max_hp"`
	Stats      map[string]int `json:"stats,omitempty"`
	Abilities  []string       `json:"abilities,omitempty"`
	Rewards    RewardTable    `json:"-"`
}

// NewEnemy instantiates a combatant from static template values.
func NewEnemy(templateID, name string, hp int, stats map[string]int, abilities []string, rewards RewardTable) *Enemy {
	if hp <= 0 {
		hp = 20
	}
	return &Enemy{
		TemplateID: templateID,
		InstanceID: uuid.NewString(),
		Name:       name,
		HP:         hp,
		MaxHP:      hp,
		Stats:      stats,
		Abilities:  abilities,
		Rewards:    rewards,
	}
}

func (e *Enemy) TakeDamage(amount int) {
	if amount <= 0 {
		return
	}
	e.HP -= amount
	if e.HP < 0 {
		e.HP = 0
	}
}

func (e *Enemy) IsDefeated() bool {
	return e.HP <= 0
}

// AttackPower is derived from STR.
func (e *Enemy) AttackPower() int {
	if v, ok := e.Stats[StatSTR]; ok {
		return v
	}
	return 10
}

// Stat returns a named stat with a default of 10.
func (e *Enemy) Stat(name string) int {
	if v, ok := e.Stats[name]; ok {
		return v
	}
	return 10
}

// SumRewards aggregates reward tables across all enemies defeated in one
// encounter. Currencies sum, item lists concatenate.
func SumRewards(defeated []*Enemy) RewardTable {
	var total RewardTable
	for _, e := range defeated {
		total.XP += e.Rewards.XP
		total.Gold += e.Rewards.Gold
		total.Items = append(total.Items, e.Rewards.Items...)
	}
	return total
}
