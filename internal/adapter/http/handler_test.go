package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"testing"

	"questweaver/internal/app/ai"
	"questweaver/internal/app/character"
	"questweaver/internal/app/game"
	"questweaver/internal/app/ports"
	"questweaver/internal/app/session"
	"questweaver/internal/domain/rpg"
	"questweaver/internal/domain/worlddata"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

func TestWriteError_Validation(t *testing.T) {
	ctx := &app.RequestContext{}
	writeError(ctx, &game.ValidationError{Message: "no shop here"})

	if got, want := ctx.Response.StatusCode(), consts.StatusBadRequest; got != want {
		t.Fatalf("status mismatch: got=%d want=%d", got, want)
	}
	var body map[string]map[string]string
	if err := json.Unmarshal(ctx.Response.Body(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if got, want := body["error"]["code"], "validation_error"; got != want {
		t.Fatalf("error code mismatch: got=%q want=%q", got, want)
	}
	if got, want := body["error"]["message"], "no shop here"; got != want {
		t.Fatalf("error message mismatch: got=%q want=%q", got, want)
	}
}

func TestWriteError_AIUnavailable(t *testing.T) {
	ctx := &app.RequestContext{}
	writeError(ctx, ai.ErrUnavailable)

	if got, want := ctx.Response.StatusCode(), consts.StatusServiceUnavailable; got != want {
		t.Fatalf("status mismatch: got=%d want=%d", got, want)
	}
	var body map[string]map[string]string
	if err := json.Unmarshal(ctx.Response.Body(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if got, want := body["error"]["code"], "ai_unavailable"; got != want {
		t.Fatalf("error code mismatch: got=%q want=%q", got, want)
	}
}

func TestWriteError_NotFound(t *testing.T) {
	ctx := &app.RequestContext{}
	writeError(ctx, ports.ErrNotFound)

	if got, want := ctx.Response.StatusCode(), consts.StatusNotFound; got != want {
		t.Fatalf("status mismatch: got=%d want=%d", got, want)
	}
}

func TestWriteError_Conflict(t *testing.T) {
	ctx := &app.RequestContext{}
	writeError(ctx, ports.ErrConflict)

	if got, want := ctx.Response.StatusCode(), consts.StatusConflict; got != want {
		t.Fatalf("status mismatch: got=%d want=%d", got, want)
	}
}

func TestWriteError_Unknown(t *testing.T) {
	ctx := &app.RequestContext{}
	writeError(ctx, errors.New("boom"))

	if got, want := ctx.Response.StatusCode(), consts.StatusInternalServerError; got != want {
		t.Fatalf("status mismatch: got=%d want=%d", got, want)
	}
	var body map[string]map[string]string
	if err := json.Unmarshal(ctx.Response.Body(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if got, want := body["error"]["message"], "internal error"; got != want {
		t.Fatalf("error message mismatch: got=%q want=%q", got, want)
	}
}

func TestCreateCharacter_OK(t *testing.T) {
	h := Handler{
		Characters: &character.Service{Repo: &fakeCharRepo{}},
	}
	ctx := &app.RequestContext{}
	ctx.Request.SetBody([]byte(`{"user_id":"u1","name":"Brin","race":"Human","class":"Warrior"}`))

	h.createCharacter(context.Background(), ctx)

	if got, want := ctx.Response.StatusCode(), consts.StatusCreated; got != want {
		t.Fatalf("status mismatch: got=%d want=%d", got, want)
	}
	var body map[string]any
	if err := json.Unmarshal(ctx.Response.Body(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if got, want := body["name"], "Brin"; got != want {
		t.Fatalf("name mismatch: got=%v want=%v", got, want)
	}
	if got, want := body["owner_id"], "u1"; got != want {
		t.Fatalf("owner mismatch: got=%v want=%v", got, want)
	}
}

func TestCreateCharacter_MissingName(t *testing.T) {
	h := Handler{
		Characters: &character.Service{Repo: &fakeCharRepo{}},
	}
	ctx := &app.RequestContext{}
	ctx.Request.SetBody([]byte(`{"user_id":"u1"}`))

	h.createCharacter(context.Background(), ctx)

	if got, want := ctx.Response.StatusCode(), consts.StatusBadRequest; got != want {
		t.Fatalf("status mismatch: got=%d want=%d", got, want)
	}
}

func TestCreateCharacter_Duplicate(t *testing.T) {
	repo := &fakeCharRepo{}
	h := Handler{Characters: &character.Service{Repo: repo}}

	ctx := &app.RequestContext{}
	ctx.Request.SetBody([]byte(`{"user_id":"u1","name":"Brin","race":"Human","class":"Warrior"}`))
	h.createCharacter(context.Background(), ctx)

	ctx = &app.RequestContext{}
	ctx.Request.SetBody([]byte(`{"user_id":"u1","name":"Brin","race":"Elf","class":"Mage"}`))
	h.createCharacter(context.Background(), ctx)

	if got, want := ctx.Response.StatusCode(), consts.StatusConflict; got != want {
		t.Fatalf("status mismatch: got=%d want=%d", got, want)
	}
}

func TestGetCharacter_NotFound(t *testing.T) {
	h := Handler{Characters: &character.Service{Repo: &fakeCharRepo{}}}
	ctx := &app.RequestContext{}
	ctx.QueryArgs().Set("user_id", "u1")
	ctx.QueryArgs().Set("name", "Nobody")

	h.getCharacter(context.Background(), ctx)

	if got, want := ctx.Response.StatusCode(), consts.StatusNotFound; got != want {
		t.Fatalf("status mismatch: got=%d want=%d", got, want)
	}
}

func TestTurn_UnknownThread(t *testing.T) {
	h := Handler{Game: &game.Service{Sessions: session.NewManager()}}
	ctx := &app.RequestContext{}
	ctx.Request.SetBody([]byte(`{"thread_id":"t-404","input":"look around"}`))

	h.turn(context.Background(), ctx)

	if got, want := ctx.Response.StatusCode(), consts.StatusNotFound; got != want {
		t.Fatalf("status mismatch: got=%d want=%d", got, want)
	}
}

func TestTurn_InvalidJSON(t *testing.T) {
	h := Handler{Game: &game.Service{Sessions: session.NewManager()}}
	ctx := &app.RequestContext{}
	ctx.Request.SetBody([]byte(`{not json`))

	h.turn(context.Background(), ctx)

	if got, want := ctx.Response.StatusCode(), consts.StatusBadRequest; got != want {
		t.Fatalf("status mismatch: got=%d want=%d", got, want)
	}
}

func TestWorlds_ListsCatalog(t *testing.T) {
	h := Handler{Worlds: worlddata.NewCatalog(
		worlddata.World{Name: "default"},
		worlddata.World{Name: "greyhollow"},
	)}
	ctx := &app.RequestContext{}

	h.worlds(context.Background(), ctx)

	if got, want := ctx.Response.StatusCode(), consts.StatusOK; got != want {
		t.Fatalf("status mismatch: got=%d want=%d", got, want)
	}
	var body map[string][]string
	if err := json.Unmarshal(ctx.Response.Body(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	got := body["worlds"]
	sort.Strings(got)
	if len(got) != 2 || got[0] != "default" || got[1] != "greyhollow" {
		t.Fatalf("unexpected world list: %v", got)
	}
}

func TestGuildConfig_SaveAndGet(t *testing.T) {
	repo := &fakeGuildRepo{}
	h := Handler{Guilds: repo}

	ctx := &app.RequestContext{}
	ctx.Request.SetBody([]byte(`{"guild_id":"g1","model":"gpt-4o-mini","world":"greyhollow"}`))
	h.saveGuildConfig(context.Background(), ctx)
	if got, want := ctx.Response.StatusCode(), consts.StatusOK; got != want {
		t.Fatalf("save status mismatch: got=%d want=%d", got, want)
	}

	ctx = &app.RequestContext{}
	ctx.QueryArgs().Set("guild_id", "g1")
	h.getGuildConfig(context.Background(), ctx)
	if got, want := ctx.Response.StatusCode(), consts.StatusOK; got != want {
		t.Fatalf("get status mismatch: got=%d want=%d", got, want)
	}
	var body map[string]any
	if err := json.Unmarshal(ctx.Response.Body(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if got, want := body["world"], "greyhollow"; got != want {
		t.Fatalf("world mismatch: got=%v want=%v", got, want)
	}
}

func TestGuildConfig_RequiresGuildID(t *testing.T) {
	h := Handler{Guilds: &fakeGuildRepo{}}
	ctx := &app.RequestContext{}
	ctx.Request.SetBody([]byte(`{"model":"gpt-4o-mini"}`))

	h.saveGuildConfig(context.Background(), ctx)

	if got, want := ctx.Response.StatusCode(), consts.StatusBadRequest; got != want {
		t.Fatalf("status mismatch: got=%d want=%d", got, want)
	}
}

func TestKPI_NotConfigured(t *testing.T) {
	h := Handler{}
	ctx := &app.RequestContext{}

	h.kpi(context.Background(), ctx)

	if got, want := ctx.Response.StatusCode(), consts.StatusNotFound; got != want {
		t.Fatalf("status mismatch: got=%d want=%d", got, want)
	}
}

func TestKPI_ReturnsSnapshot(t *testing.T) {
	h := Handler{KPI: fakeKPI{snapshot: map[string]any{"turn_total": 3}}}
	ctx := &app.RequestContext{}

	h.kpi(context.Background(), ctx)

	if got, want := ctx.Response.StatusCode(), consts.StatusOK; got != want {
		t.Fatalf("status mismatch: got=%d want=%d", got, want)
	}
	var body map[string]any
	if err := json.Unmarshal(ctx.Response.Body(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if got, want := body["turn_total"], float64(3); got != want {
		t.Fatalf("snapshot mismatch: got=%v want=%v", got, want)
	}
}

type fakeCharRepo struct {
	chars map[string]*rpg.Character
}

func (r *fakeCharRepo) key(ownerID, name string) string { return ownerID + "::" + name }

func (r *fakeCharRepo) Save(_ context.Context, ch *rpg.Character) error {
	if r.chars == nil {
		r.chars = map[string]*rpg.Character{}
	}
	r.chars[r.key(ch.OwnerID, ch.Name)] = ch
	return nil
}

func (r *fakeCharRepo) GetByOwnerAndName(_ context.Context, ownerID, name string) (*rpg.Character, error) {
	if ch, ok := r.chars[r.key(ownerID, name)]; ok {
		return ch, nil
	}
	return nil, ports.ErrNotFound
}

func (r *fakeCharRepo) ListByOwner(_ context.Context, ownerID string) ([]*rpg.Character, error) {
	var out []*rpg.Character
	for _, ch := range r.chars {
		if ch.OwnerID == ownerID {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (r *fakeCharRepo) Delete(_ context.Context, ownerID, name string) error {
	if _, ok := r.chars[r.key(ownerID, name)]; !ok {
		return ports.ErrNotFound
	}
	delete(r.chars, r.key(ownerID, name))
	return nil
}

type fakeGuildRepo struct {
	configs map[string]ports.GuildConfig
}

func (r *fakeGuildRepo) Get(_ context.Context, guildID string) (ports.GuildConfig, error) {
	if cfg, ok := r.configs[guildID]; ok {
		return cfg, nil
	}
	return ports.GuildConfig{}, ports.ErrNotFound
}

func (r *fakeGuildRepo) Save(_ context.Context, cfg ports.GuildConfig) error {
	if r.configs == nil {
		r.configs = map[string]ports.GuildConfig{}
	}
	r.configs[cfg.GuildID] = cfg
	return nil
}

type fakeKPI struct {
	snapshot any
}

func (k fakeKPI) SnapshotAny() any { return k.snapshot }
