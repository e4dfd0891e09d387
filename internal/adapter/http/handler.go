package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"questweaver/internal/app/ai"
	"questweaver/internal/app/character"
	"questweaver/internal/app/game"
	"questweaver/internal/app/ports"
	"questweaver/internal/domain/rpg"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

type Handler struct {
	Game       *game.Service
	Characters *character.Service
	Guilds     ports.GuildConfigRepository
	Worlds     ports.WorldProvider
	KPI        kpiSnapshotProvider
}

func (h Handler) RegisterRoutes(s *server.Hertz) {
	s.Use(corsMiddleware())

	ch := s.Group("/api/character")
	ch.POST("/create", h.createCharacter)
	ch.GET("/get", h.getCharacter)
	ch.GET("/list", h.listCharacters)
	ch.POST("/delete", h.deleteCharacter)

	g := s.Group("/api/game")
	g.POST("/start", h.startGame)
	g.POST("/end", h.endGame)
	g.POST("/turn", h.turn)
	g.POST("/use-item", h.useItem)
	g.POST("/equip", h.equipItem)
	g.POST("/buy", h.buyItem)
	g.POST("/flee", h.flee)
	g.POST("/loot", h.lootGrave)
	g.POST("/stat-point", h.spendStatPoint)
	g.POST("/skill-points", h.spendSkillPoints)
	g.POST("/thread", h.associateThread)
	g.GET("/session", h.sessionView)
	g.GET("/by-thread", h.sessionByThread)
	g.GET("/replay", h.replay)

	s.GET("/api/worlds", h.worlds)
	guild := s.Group("/api/guild")
	guild.GET("/config", h.getGuildConfig)
	guild.POST("/config", h.saveGuildConfig)

	s.GET("/ops/kpi", h.kpi)
}

type createCharacterRequest struct {
	UserID     string         `json:"user_id"`
	Name       string         `json:"name"`
	Race       string         `json:"race"`
	Class      string         `json:"class"`
	Appearance string         `json:"appearance,omitempty"`
	Background string         `json:"background,omitempty"`
	Stats      map[string]int `json:"stats,omitempty"`
	World      string         `json:"world,omitempty"`
}

func (h Handler) createCharacter(c context.Context, ctx *app.RequestContext) {
	var body createCharacterRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	if body.UserID == "" || body.Name == "" {
		writeErrorBody(ctx, consts.StatusBadRequest, "bad_request", "user_id and name are required")
		return
	}
	ch, err := h.Characters.Create(c, body.World, rpg.CreationInput{
		OwnerID:    body.UserID,
		Name:       body.Name,
		Race:       body.Race,
		Class:      body.Class,
		Appearance: body.Appearance,
		Background: body.Background,
		Stats:      body.Stats,
	})
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusCreated, ch)
}

func (h Handler) getCharacter(c context.Context, ctx *app.RequestContext) {
	ch, err := h.Characters.Get(c, string(ctx.Query("user_id")), string(ctx.Query("name")))
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, ch)
}

func (h Handler) listCharacters(c context.Context, ctx *app.RequestContext) {
	list, err := h.Characters.List(c, string(ctx.Query("user_id")))
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, map[string]any{"characters": list})
}

type userCharacterRequest struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

func (h Handler) deleteCharacter(c context.Context, ctx *app.RequestContext) {
	var body userCharacterRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	if err := h.Characters.Delete(c, body.UserID, body.Name); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, map[string]any{"deleted": body.Name})
}

type startGameRequest struct {
	UserID        string `json:"user_id"`
	GuildID       string `json:"guild_id,omitempty"`
	Character     string `json:"character"`
	World         string `json:"world,omitempty"`
	GMPersonality string `json:"gm_personality,omitempty"`
	Difficulty    string `json:"difficulty,omitempty"`
}

func (h Handler) startGame(c context.Context, ctx *app.RequestContext) {
	var body startGameRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	resp, err := h.Game.StartGame(c, body.UserID, body.GuildID, body.Character, game.StartOptions{
		WorldName:       body.World,
		GMPersonality:   body.GMPersonality,
		DifficultyLevel: body.Difficulty,
	})
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

type userRequest struct {
	UserID string `json:"user_id"`
}

func (h Handler) endGame(c context.Context, ctx *app.RequestContext) {
	var body userRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	if err := h.Game.EndGame(c, body.UserID); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, map[string]any{"ended": true})
}

type turnRequest struct {
	UserID   string `json:"user_id,omitempty"`
	ThreadID string `json:"thread_id,omitempty"`
	Input    string `json:"input"`
}

func (h Handler) turn(c context.Context, ctx *app.RequestContext) {
	var body turnRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	userID := body.UserID
	if userID == "" && body.ThreadID != "" {
		var ok bool
		if userID, ok = h.Game.ResolveUser(body.ThreadID); !ok {
			writeErrorBody(ctx, consts.StatusNotFound, "not_found", "no game bound to that thread")
			return
		}
	}
	resp, err := h.Game.ProceedGame(c, userID, body.Input)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

type itemRequest struct {
	UserID string `json:"user_id"`
	Item   string `json:"item"`
}

func (h Handler) useItem(c context.Context, ctx *app.RequestContext) {
	h.itemAction(c, ctx, h.Game.UseItem)
}

func (h Handler) equipItem(c context.Context, ctx *app.RequestContext) {
	h.itemAction(c, ctx, h.Game.EquipItem)
}

func (h Handler) buyItem(c context.Context, ctx *app.RequestContext) {
	h.itemAction(c, ctx, h.Game.BuyItem)
}

func (h Handler) itemAction(c context.Context, ctx *app.RequestContext, fn func(context.Context, string, string) (*game.TurnResponse, error)) {
	var body itemRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	resp, err := fn(c, body.UserID, body.Item)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

func (h Handler) flee(c context.Context, ctx *app.RequestContext) {
	var body userRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	resp, err := h.Game.FleeCombat(c, body.UserID)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

type lootRequest struct {
	UserID string `json:"user_id"`
	Grave  string `json:"grave"`
}

func (h Handler) lootGrave(c context.Context, ctx *app.RequestContext) {
	var body lootRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	resp, err := h.Game.LootGrave(c, body.UserID, body.Grave)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

type statPointRequest struct {
	UserID string `json:"user_id"`
	Stat   string `json:"stat"`
}

func (h Handler) spendStatPoint(c context.Context, ctx *app.RequestContext) {
	var body statPointRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	resp, err := h.Game.SpendStatPoint(c, body.UserID, body.Stat)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

type skillPointsRequest struct {
	UserID string `json:"user_id"`
	Skill  string `json:"skill"`
	Points int    `json:"points"`
}

func (h Handler) spendSkillPoints(c context.Context, ctx *app.RequestContext) {
	var body skillPointsRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	resp, err := h.Game.SpendSkillPoints(c, body.UserID, body.Skill, body.Points)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

type threadRequest struct {
	UserID   string `json:"user_id"`
	ThreadID string `json:"thread_id"`
}

func (h Handler) associateThread(_ context.Context, ctx *app.RequestContext) {
	var body threadRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	if err := h.Game.AssociateThread(body.UserID, body.ThreadID); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, map[string]any{"bound": body.ThreadID})
}

func (h Handler) sessionView(_ context.Context, ctx *app.RequestContext) {
	view, err := h.Game.Session(string(ctx.Query("user_id")))
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, view)
}

func (h Handler) sessionByThread(_ context.Context, ctx *app.RequestContext) {
	view, err := h.Game.SessionByThread(string(ctx.Query("thread_id")))
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, view)
}

func (h Handler) replay(c context.Context, ctx *app.RequestContext) {
	limit, _ := strconv.Atoi(string(ctx.Query("limit")))
	events, err := h.Game.Replay(c, string(ctx.Query("user_id")), limit)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, map[string]any{"events": events})
}

func (h Handler) worlds(_ context.Context, ctx *app.RequestContext) {
	ctx.JSON(consts.StatusOK, map[string]any{"worlds": h.Worlds.Names()})
}

func (h Handler) getGuildConfig(c context.Context, ctx *app.RequestContext) {
	cfg, err := h.Guilds.Get(c, string(ctx.Query("guild_id")))
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, cfg)
}

type guildConfigRequest struct {
	GuildID      string `json:"guild_id"`
	Model        string `json:"model,omitempty"`
	World        string `json:"world,omitempty"`
	LogChannelID string `json:"log_channel_id,omitempty"`
}

func (h Handler) saveGuildConfig(c context.Context, ctx *app.RequestContext) {
	var body guildConfigRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	if body.GuildID == "" {
		writeErrorBody(ctx, consts.StatusBadRequest, "bad_request", "guild_id is required")
		return
	}
	cfg := ports.GuildConfig{
		GuildID:      body.GuildID,
		ModelName:    body.Model,
		WorldName:    body.World,
		LogChannelID: body.LogChannelID,
	}
	if err := h.Guilds.Save(c, cfg); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, cfg)
}

type kpiSnapshotProvider interface {
	SnapshotAny() any
}

func (h Handler) kpi(_ context.Context, ctx *app.RequestContext) {
	if h.KPI == nil {
		writeErrorBody(ctx, consts.StatusNotFound, "not_configured", "kpi provider not configured")
		return
	}
	ctx.JSON(consts.StatusOK, h.KPI.SnapshotAny())
}

func decodeJSON(ctx *app.RequestContext, out any) error {
	body := ctx.Request.Body()
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

func writeError(ctx *app.RequestContext, err error) {
	var verr *game.ValidationError
	switch {
	case errors.As(err, &verr):
		writeErrorBody(ctx, consts.StatusBadRequest, "validation_error", verr.Message)
	case errors.Is(err, ai.ErrUnavailable):
		writeErrorBody(ctx, consts.StatusServiceUnavailable, "ai_unavailable", "the storyteller is unreachable, try again shortly")
	case errors.Is(err, ports.ErrNotFound):
		writeErrorBody(ctx, consts.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, ports.ErrConflict):
		writeErrorBody(ctx, consts.StatusConflict, "conflict", err.Error())
	default:
		writeErrorBody(ctx, consts.StatusInternalServerError, "internal_error", "internal error")
	}
}

func writeErrorBody(ctx *app.RequestContext, status int, code, message string) {
	ctx.JSON(status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
