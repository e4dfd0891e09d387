// Package ai turns prompt text into decoded game responses, retrying when
// the model returns something that is not the contracted JSON object.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"questweaver/internal/app/ports"
	"questweaver/internal/app/session"
	"questweaver/internal/domain/rpg"
)

// ErrUnavailable reports that the narrative backend could not produce a
// usable reply. Transport failures surface it immediately; malformed replies
// surface it after retries are exhausted.
var ErrUnavailable = errors.New("narrative backend unavailable")

const decodeRetries = 2

type Service struct {
	Client  ports.ChatClient
	Model   string
	Metrics ports.TurnMetrics
}

// GenerateResponse sends one turn to the model and decodes the reply. The
// history is spliced between the system prompt and the user turn. A reply
// that is not a JSON object is retried up to two times with the same
// request.
func (s *Service) GenerateResponse(ctx context.Context, model, system string, history []ports.ChatMessage, user string) (rpg.AIResponse, error) {
	if model == "" {
		model = s.Model
	}
	msgs := make([]ports.ChatMessage, 0, len(history)+2)
	msgs = append(msgs, ports.ChatMessage{Role: ports.RoleSystem, Content: system})
	msgs = append(msgs, history...)
	msgs = append(msgs, ports.ChatMessage{Role: ports.RoleUser, Content: user})
	req := ports.CompletionRequest{
		Model:    model,
		Messages: msgs,
		JSONMode: true,
	}
	for attempt := 0; ; attempt++ {
		raw, err := s.Client.Complete(ctx, req)
		if err != nil {
			if s.Metrics != nil {
				s.Metrics.RecordAIFailure()
			}
			return rpg.AIResponse{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		resp, err := rpg.DecodeAIResponse([]byte(stripFences(raw)))
		if err == nil {
			return resp, nil
		}
		if attempt >= decodeRetries {
			if s.Metrics != nil {
				s.Metrics.RecordAIFailure()
			}
			return rpg.AIResponse{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if s.Metrics != nil {
			s.Metrics.RecordAIRetry()
		}
		log.Printf("ai: reply was not a JSON object, retrying (attempt %d)", attempt+1)
	}
}

// Introduction is the decoded opening scene plus the hidden campaign arc.
type Introduction struct {
	Narrative        string
	SuggestedActions []string
	MainStory        session.MainStory
}

// GenerateIntroduction asks the model for the opening scene of a new run and
// the campaign arc it plans to follow.
func (s *Service) GenerateIntroduction(ctx context.Context, model, system string) (Introduction, error) {
	if model == "" {
		model = s.Model
	}
	req := ports.CompletionRequest{
		Model: model,
		Messages: []ports.ChatMessage{
			{Role: ports.RoleSystem, Content: system},
			{Role: ports.RoleUser, Content: "Begin the campaign."},
		},
		JSONMode: true,
	}
	for attempt := 0; ; attempt++ {
		raw, err := s.Client.Complete(ctx, req)
		if err != nil {
			if s.Metrics != nil {
				s.Metrics.RecordAIFailure()
			}
			return Introduction{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		intro, err := decodeIntroduction([]byte(stripFences(raw)))
		if err == nil {
			return intro, nil
		}
		if attempt >= decodeRetries {
			if s.Metrics != nil {
				s.Metrics.RecordAIFailure()
			}
			return Introduction{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if s.Metrics != nil {
			s.Metrics.RecordAIRetry()
		}
	}
}

func decodeIntroduction(raw []byte) (Introduction, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return Introduction{}, rpg.ErrNotJSONObject
	}
	var out Introduction
	if v, ok := fields["narrative"]; ok {
		_ = json.Unmarshal(v, &out.Narrative)
	}
	if v, ok := fields["suggested_actions"]; ok {
		_ = json.Unmarshal(v, &out.SuggestedActions)
	}
	if v, ok := fields["main_story"]; ok {
		var ms struct {
			Synopsis          string   `json:"synopsis"`
			QuestChain        []string `json:"quest_chain"`
			ClimaxEncounterID string   `json:"climax_encounter_id"`
		}
		if json.Unmarshal(v, &ms) == nil {
			out.MainStory = session.MainStory{
				Synopsis:          ms.Synopsis,
				QuestChain:        ms.QuestChain,
				ClimaxEncounterID: ms.ClimaxEncounterID,
			}
		}
	}
	return out, nil
}

// stripFences removes a markdown code fence wrapping the reply. Some models
// fence their JSON even in JSON mode.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
