package rpg

import (
	"strings"

	"github.com/google/uuid"
)

// Ability names recognized in stat pools.
const (
	StatSTR = "STR"
	StatDEX = "DEX"
	StatCON = "CON"
	StatINT = "INT"
	StatWIS = "WIS"
	StatCHA = "CHA"
)

const (
	statPointsPerLevel  = 1
	skillPointsPerLevel = 5
)

// AchievementGameClear marks a character that finished a campaign.
const AchievementGameClear = "game_clear"

// EquippedItem is one occupied equipment slot.
type EquippedItem struct {
	Name    string         `json:"name"`
	Bonuses map[string]int `json:"bonuses,omitempty"`
}

// Character is the durable per-player aggregate. It owns stat math and
// inventory/quest mutation and knows nothing about sessions, AI or storage.
type Character struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`
	Name    string `json:"name"`

	Race       string `json:"race"`
	Class      string `json:"class"`
	Appearance string `json:"appearance,omitempty"`
	Background string `json:"background,omitempty"`

	// BaseStats holds unmodified ability scores. Equipment bonuses are
	// layered on by EffectiveStats at read time and never written back.
	BaseStats map[string]int `json:"stats"`
	Skills    map[string]int `json:"skills"`

	Level       int `json:"level"`
	XP          int `json:"xp"`
	StatPoints  int `json:"stat_points"`
	SkillPoints int `json:"skill_points"`

	ActiveQuests    []string `json:"active_quests"`
	CompletedQuests []string `json:"completed_quests"`
	Achievements    []string `json:"achievements,omitempty"`

	Inventory []string                `json:"inventory"`
	Equipment map[string]EquippedItem `json:"equipment"`
	Gold      int                     `json:"gold"`

	HP    int `json:"hp"`
	MaxHP int `json:"max_hp"`
	MP    int `json:"mp"`
	MaxMP int `json:"max_mp"`
}

// CreationInput carries the fields supplied by the character-creation flow.
type CreationInput struct {
	OwnerID    string
	Name       string
	Race       string
	Class      string
	Appearance string
	Background string
	Stats      map[string]int
}

// NewCharacter builds a level-1 character. Max HP/MP derive from CON/INT
// once here and are not recomputed afterward.
func NewCharacter(in CreationInput) *Character {
	stats := map[string]int{StatSTR: 10, StatDEX: 10, StatCON: 10, StatINT: 10, StatWIS: 10, StatCHA: 10}
	for k, v := range in.Stats {
		if v >= 0 {
			stats[k] = v
		}
	}
	maxHP := 10 + stats[StatCON]*2
	maxMP := 10 + stats[StatINT]*2
	return &Character{
		ID:         uuid.NewString(),
		OwnerID:    in.OwnerID,
		Name:       in.Name,
		Race:       in.Race,
		Class:      in.Class,
		Appearance: in.Appearance,
		Background: in.Background,
		BaseStats:  stats,
		Skills:     map[string]int{},
		Level:      1,
		Equipment:  map[string]EquippedItem{},
		HP:         maxHP,
		MaxHP:      maxHP,
		MP:         maxMP,
		MaxMP:      maxMP,
	}
}

// XPToNextLevel is the cost of the next level. It grows linearly.
func (c *Character) XPToNextLevel() int {
	return c.Level * 100
}

// EffectiveStats returns base stats plus equipment bonuses. The base map is
// never mutated.
func (c *Character) EffectiveStats() map[string]int {
	out := make(map[string]int, len(c.BaseStats))
	for k, v := range c.BaseStats {
		out[k] = v
	}
	for _, item := range c.Equipment {
		for stat, bonus := range item.Bonuses {
			if _, ok := out[stat]; ok {
				out[stat] += bonus
			}
		}
	}
	return out
}

// Modifier returns the check bonus for an ability score or a skill rank.
// Ability modifiers use (score-10)/2 rounded down; skill ranks count as-is.
func (c *Character) Modifier(name string) int {
	if score, ok := c.EffectiveStats()[strings.ToUpper(name)]; ok {
		return AbilityModifier(score)
	}
	if rank, ok := c.Skills[name]; ok {
		return rank
	}
	return 0
}

// Defense is derived from effective CON.
func (c *Character) Defense() int {
	return c.EffectiveStats()[StatCON] / 2
}

// AddXP awards experience, resolving as many level-ups as the amount covers.
// Each level gained grants stat and skill points. Reports whether at least
// one level was gained.
func (c *Character) AddXP(amount int) bool {
	if amount <= 0 {
		return false
	}
	c.XP += amount
	leveled := false
	for c.XP >= c.XPToNextLevel() {
		c.XP -= c.XPToNextLevel()
		c.Level++
		c.StatPoints += statPointsPerLevel
		c.SkillPoints += skillPointsPerLevel
		leveled = true
	}
	return leveled
}

// UseStatPoint spends one stat point on the named ability. No mutation on
// failure.
func (c *Character) UseStatPoint(stat string) bool {
	stat = strings.ToUpper(stat)
	if c.StatPoints <= 0 {
		return false
	}
	if _, ok := c.BaseStats[stat]; !ok {
		return false
	}
	c.StatPoints--
	c.BaseStats[stat]++
	return true
}

// UseSkillPoints spends n skill points on a skill, creating it at rank 0
// first if unknown. No mutation on failure.
func (c *Character) UseSkillPoints(skill string, n int) bool {
	if n <= 0 || n > c.SkillPoints {
		return false
	}
	if c.Skills == nil {
		c.Skills = map[string]int{}
	}
	if _, ok := c.Skills[skill]; !ok {
		c.Skills[skill] = 0
	}
	c.SkillPoints -= n
	c.Skills[skill] += n
	return true
}

// ApplyRaceBonus folds a race's stat bonuses into the base stats. Called
// once at creation.
func (c *Character) ApplyRaceBonus(bonuses map[string]int) {
	for stat, bonus := range bonuses {
		if _, ok := c.BaseStats[stat]; ok {
			c.BaseStats[stat] += bonus
		}
	}
}

// RederiveResources recomputes max HP/MP from the current base stats and
// refills both. Only valid before play starts.
func (c *Character) RederiveResources() {
	c.MaxHP = 10 + c.BaseStats[StatCON]*2
	c.MaxMP = 10 + c.BaseStats[StatINT]*2
	c.HP = c.MaxHP
	c.MP = c.MaxMP
}

// ClassSkill is a skill unlocked by reaching a level in a class.
type ClassSkill struct {
	Name  string `json:"name"`
	Level int    `json:"level"`
}

// CheckNewSkills learns any listed skills whose level requirement is now met
// and returns the names learned this call.
func (c *Character) CheckNewSkills(available []ClassSkill) []string {
	var learned []string
	for _, s := range available {
		if c.Level < s.Level {
			continue
		}
		if _, ok := c.Skills[s.Name]; ok {
			continue
		}
		if c.Skills == nil {
			c.Skills = map[string]int{}
		}
		c.Skills[s.Name] = 1
		learned = append(learned, s.Name)
	}
	return learned
}

// --- inventory & equipment ---

// AddItem appends an item. Duplicates are allowed; the inventory is a
// multiset.
func (c *Character) AddItem(name string) {
	if name == "" {
		return
	}
	c.Inventory = append(c.Inventory, name)
}

// RemoveItem removes one occurrence of the named item.
func (c *Character) RemoveItem(name string) bool {
	for i, it := range c.Inventory {
		if it == name {
			c.Inventory = append(c.Inventory[:i], c.Inventory[i+1:]...)
			return true
		}
	}
	return false
}

// HasItem reports whether at least one occurrence is carried.
func (c *Character) HasItem(name string) bool {
	for _, it := range c.Inventory {
		if it == name {
			return true
		}
	}
	return false
}

// Equip moves an item from the inventory into a slot. A previously equipped
// item in that slot returns to the inventory, so an item name lives in the
// inventory or in exactly one slot, never both.
func (c *Character) Equip(name, slot string, bonuses map[string]int) {
	c.RemoveItem(name)
	if c.Equipment == nil {
		c.Equipment = map[string]EquippedItem{}
	}
	if old, ok := c.Equipment[slot]; ok {
		c.Inventory = append(c.Inventory, old.Name)
	}
	c.Equipment[slot] = EquippedItem{Name: name, Bonuses: bonuses}
}

// Unequip clears a slot and returns its item to the inventory.
func (c *Character) Unequip(slot string) bool {
	item, ok := c.Equipment[slot]
	if !ok {
		return false
	}
	delete(c.Equipment, slot)
	c.Inventory = append(c.Inventory, item.Name)
	return true
}

// --- quests ---

// StartQuest activates a quest unless it is already active or completed.
func (c *Character) StartQuest(id string) {
	if id == "" || contains(c.ActiveQuests, id) || contains(c.CompletedQuests, id) {
		return
	}
	c.ActiveQuests = append(c.ActiveQuests, id)
}

// CompleteQuest moves a quest from active to completed. Active and completed
// membership stay mutually exclusive.
func (c *Character) CompleteQuest(id string) {
	for i, q := range c.ActiveQuests {
		if q == id {
			c.ActiveQuests = append(c.ActiveQuests[:i], c.ActiveQuests[i+1:]...)
			if !contains(c.CompletedQuests, id) {
				c.CompletedQuests = append(c.CompletedQuests, id)
			}
			return
		}
	}
}

// GrantAchievement records an achievement, refusing duplicates. Reports
// whether it was newly earned.
func (c *Character) GrantAchievement(id string) bool {
	if id == "" || contains(c.Achievements, id) {
		return false
	}
	c.Achievements = append(c.Achievements, id)
	return true
}

// --- HP / MP ---

func (c *Character) TakeDamage(amount int) {
	if amount <= 0 {
		return
	}
	c.HP -= amount
	if c.HP < 0 {
		c.HP = 0
	}
}

func (c *Character) HealHP(amount int) {
	if amount <= 0 {
		return
	}
	c.HP += amount
	if c.HP > c.MaxHP {
		c.HP = c.MaxHP
	}
}

// SpendMP deducts MP, refusing (without mutation) when the pool is short.
func (c *Character) SpendMP(amount int) bool {
	if amount < 0 || c.MP < amount {
		return false
	}
	c.MP -= amount
	return true
}

func (c *Character) RecoverMP(amount int) {
	if amount <= 0 {
		return
	}
	c.MP += amount
	if c.MP > c.MaxMP {
		c.MP = c.MaxMP
	}
}

func (c *Character) IsDead() bool {
	return c.HP <= 0
}

// ApplyStateChanges folds an effect bundle onto the character and reports
// whether it caused a level up. Every field is optional; absent or zero
// fields are no-ops.
func (c *Character) ApplyStateChanges(ch StateChanges) bool {
	leveled := false
	if ch.XPGain > 0 {
		leveled = c.AddXP(ch.XPGain)
	}
	if ch.GoldChange != 0 {
		c.Gold += ch.GoldChange
		if c.Gold < 0 {
			c.Gold = 0
		}
	}
	if ch.HPChange > 0 {
		c.HealHP(ch.HPChange)
	} else if ch.HPChange < 0 {
		c.TakeDamage(-ch.HPChange)
	}
	if ch.MPChange > 0 {
		c.RecoverMP(ch.MPChange)
	} else if ch.MPChange < 0 {
		c.SpendMP(-ch.MPChange)
	}
	for _, item := range ch.NewItems {
		c.AddItem(item)
	}
	for id, status := range ch.QuestUpdates {
		switch status {
		case QuestActive:
			c.StartQuest(id)
		case QuestCompleted:
			c.CompleteQuest(id)
		}
	}
	return leveled
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
