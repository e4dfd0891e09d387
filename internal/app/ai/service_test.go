package ai

import (
	"context"
	"errors"
	"testing"

	"questweaver/internal/app/ports"
)

type scriptedClient struct {
	replies []string
	errs    []error
	calls   int
	lastReq ports.CompletionRequest
}

func (c *scriptedClient) Complete(_ context.Context, req ports.CompletionRequest) (string, error) {
	c.lastReq = req
	i := c.calls
	c.calls++
	if i < len(c.errs) && c.errs[i] != nil {
		return "", c.errs[i]
	}
	if i < len(c.replies) {
		return c.replies[i], nil
	}
	return "", errors.New("script exhausted")
}

func TestGenerateResponseDecodesAndSetsJSONMode(t *testing.T) {
	client := &scriptedClient{replies: []string{`{"narrative": "You step forward."}`}}
	svc := &Service{Client: client, Model: "gpt-4o"}

	resp, err := svc.GenerateResponse(context.Background(), "", "system", nil, "go north")
	if err != nil {
		t.Fatalf("GenerateResponse: %v", err)
	}
	if resp.Narrative != "You step forward." {
		t.Errorf("narrative = %q", resp.Narrative)
	}
	if !client.lastReq.JSONMode {
		t.Error("request should ask for JSON mode")
	}
	if client.lastReq.Model != "gpt-4o" {
		t.Errorf("model = %q, want fallback to service default", client.lastReq.Model)
	}
	if len(client.lastReq.Messages) != 2 || client.lastReq.Messages[0].Role != ports.RoleSystem {
		t.Errorf("messages = %+v", client.lastReq.Messages)
	}
}

func TestGenerateResponseSplicesHistoryBetweenSystemAndUser(t *testing.T) {
	client := &scriptedClient{replies: []string{`{"narrative": "ok"}`}}
	svc := &Service{Client: client, Model: "m"}

	history := []ports.ChatMessage{
		{Role: ports.RoleUser, Content: "look around"},
		{Role: ports.RoleAssistant, Content: "You see a quiet square."},
	}
	if _, err := svc.GenerateResponse(context.Background(), "", "system", history, "talk to the elder"); err != nil {
		t.Fatalf("GenerateResponse: %v", err)
	}
	msgs := client.lastReq.Messages
	if len(msgs) != 4 {
		t.Fatalf("messages = %+v", msgs)
	}
	wantRoles := []string{ports.RoleSystem, ports.RoleUser, ports.RoleAssistant, ports.RoleUser}
	for i, role := range wantRoles {
		if msgs[i].Role != role {
			t.Errorf("message %d role = %q, want %q", i, msgs[i].Role, role)
		}
	}
	if msgs[3].Content != "talk to the elder" {
		t.Errorf("final message = %+v", msgs[3])
	}
}

func TestGenerateResponseRetriesMalformedReplies(t *testing.T) {
	client := &scriptedClient{replies: []string{
		"The goblin snarls at you.",
		"```json\n{\"narrative\": \"fenced\"}\n```",
	}}
	svc := &Service{Client: client}

	resp, err := svc.GenerateResponse(context.Background(), "m", "s", nil, "u")
	if err != nil {
		t.Fatalf("GenerateResponse: %v", err)
	}
	if resp.Narrative != "fenced" {
		t.Errorf("narrative = %q", resp.Narrative)
	}
	if client.calls != 2 {
		t.Errorf("calls = %d, want 2", client.calls)
	}
}

func TestGenerateResponseGivesUpAfterRetries(t *testing.T) {
	client := &scriptedClient{replies: []string{"nope", "still nope", "never json"}}
	svc := &Service{Client: client}

	_, err := svc.GenerateResponse(context.Background(), "m", "s", nil, "u")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if client.calls != 3 {
		t.Errorf("calls = %d, want 3", client.calls)
	}
}

func TestGenerateResponseTransportErrorIsImmediate(t *testing.T) {
	client := &scriptedClient{errs: []error{errors.New("connection refused")}}
	svc := &Service{Client: client}

	_, err := svc.GenerateResponse(context.Background(), "m", "s", nil, "u")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if client.calls != 1 {
		t.Errorf("calls = %d, want no retry on transport error", client.calls)
	}
}

func TestGenerateIntroductionSeedsArc(t *testing.T) {
	client := &scriptedClient{replies: []string{`{
		"narrative": "The bells of Greyhollow toll.",
		"suggested_actions": ["Enter the inn"],
		"main_story": {
			"synopsis": "A cult wakes the drowned king.",
			"quest_chain": ["find the bell", "break the seal"],
			"climax_encounter_id": "drowned_king"
		}
	}`}}
	svc := &Service{Client: client}

	intro, err := svc.GenerateIntroduction(context.Background(), "m", "system")
	if err != nil {
		t.Fatalf("GenerateIntroduction: %v", err)
	}
	if intro.Narrative == "" || len(intro.SuggestedActions) != 1 {
		t.Errorf("intro = %+v", intro)
	}
	if intro.MainStory.ClimaxEncounterID != "drowned_king" || len(intro.MainStory.QuestChain) != 2 {
		t.Errorf("main story = %+v", intro.MainStory)
	}
}
