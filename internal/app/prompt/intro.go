package prompt

import (
	"fmt"
	"strings"

	"questweaver/internal/app/ports"
)

// IntroSystem is the system prompt for the opening scene. The model also
// plans the campaign arc here, which the engine keeps for later prompts.
func IntroSystem(ctx Context) string {
	var b strings.Builder
	b.WriteString(BaseRole(ctx))
	b.WriteString("\n\n")
	b.WriteString(WorldRules(ctx))
	b.WriteString("\n\n")
	b.WriteString(CharacterSheet(ctx))
	b.WriteString("\n\nThis is the opening of a new campaign. Introduce the world and the character's situation, then plan a hidden campaign arc.")
	b.WriteString("\n\n")
	b.WriteString(SuggestedActionRules(ctx))
	b.WriteString("\n")
	b.WriteString(DiceProhibition(ctx))
	b.WriteString(`

Respond with a single JSON object and nothing else. Fields:
{
  "narrative": "string, the opening scene",
  "suggested_actions": ["string"],
  "main_story": {
    "synopsis": "string, one paragraph, never shown to the player",
    "quest_chain": ["quest names in order"],
    "climax_encounter_id": "an enemy id from this world"
  }
}`)
	return b.String()
}

// TurnHistory renders the bounded conversation history as alternating
// user/assistant messages for a completion request.
func TurnHistory(ctx Context) []ports.ChatMessage {
	msgs := make([]ports.ChatMessage, 0, len(ctx.Session.History)*2)
	for _, h := range ctx.Session.History {
		msgs = append(msgs,
			ports.ChatMessage{Role: ports.RoleUser, Content: h.Action},
			ports.ChatMessage{Role: ports.RoleAssistant, Content: h.Narration},
		)
	}
	return msgs
}

// VictoryNote phrases a combat outcome for the model to narrate.
func VictoryNote(defeated int, xp, gold int, items []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The player has won the fight, defeating %d enemies. They gain %d XP and %d gold", defeated, xp, gold)
	if len(items) > 0 {
		fmt.Fprintf(&b, " and loot: %s", strings.Join(items, ", "))
	}
	b.WriteString(". Narrate the victory; the rewards are already applied.")
	return b.String()
}
