package rpg

import "math/rand"

// Roller is the deterministic core's dice source. Narrative generation never
// rolls dice; all rolls happen here.
type Roller interface {
	D20() int
	TwoD6() (int, int)
}

type randRoller struct {
	rng *rand.Rand
}

// NewRoller returns a Roller backed by the given seed.
func NewRoller(seed int64) Roller {
	return &randRoller{rng: rand.New(rand.NewSource(seed))}
}

func (r *randRoller) D20() int {
	return r.rng.Intn(20) + 1
}

func (r *randRoller) TwoD6() (int, int) {
	return r.rng.Intn(6) + 1, r.rng.Intn(6) + 1
}

// AbilityModifier maps an ability score to its check bonus, rounding down
// so that 7 maps to -2, not -1.
func AbilityModifier(score int) int {
	d := score - 10
	if d < 0 {
		return -((-d + 1) / 2)
	}
	return d / 2
}
