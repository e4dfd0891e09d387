package main

import (
	"context"
	"log"
	"strings"
	"time"

	httpadapter "questweaver/internal/adapter/http"
	"questweaver/internal/adapter/llm/gemini"
	"questweaver/internal/adapter/llm/openai"
	metricsinmem "questweaver/internal/adapter/metrics/inmemory"
	gormrepo "questweaver/internal/adapter/repo/gorm"
	memrepo "questweaver/internal/adapter/repo/memory"
	"questweaver/internal/app/ai"
	"questweaver/internal/app/character"
	"questweaver/internal/app/game"
	"questweaver/internal/app/ports"
	"questweaver/internal/app/prompt"
	"questweaver/internal/app/session"
	"questweaver/internal/domain/rpg"
	"questweaver/internal/domain/worlddata"

	"github.com/caarlos0/env/v11"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/joho/godotenv"
)

type config struct {
	ListenAddr  string `env:"LISTEN_ADDR" envDefault:":8080"`
	DatabaseDSN string `env:"QUESTWEAVER_DB_DSN"`
	WorldDir    string `env:"WORLD_DIR" envDefault:"./worlds"`

	LLMProvider   string `env:"LLM_PROVIDER" envDefault:"openai"`
	Model         string `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`
	OpenAIKey     string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`
	GeminiKey     string `env:"GEMINI_API_KEY"`
}

func main() {
	_ = godotenv.Load()
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("parse config: %v", err)
	}

	catalog, err := worlddata.LoadDir(cfg.WorldDir)
	if err != nil {
		log.Fatalf("load worlds from %s: %v", cfg.WorldDir, err)
	}

	chars, worldState, guilds, events, txManager := mustBuildRepos(cfg.DatabaseDSN)
	client, closeClient := mustBuildLLMClient(cfg)
	defer closeClient()

	recorder := metricsinmem.NewRecorder()
	aiSvc := &ai.Service{Client: client, Model: cfg.Model, Metrics: recorder}
	gameSvc := &game.Service{
		Sessions:   session.NewManager(),
		Characters: chars,
		Worlds:     catalog,
		WorldState: worldState,
		Guilds:     guilds,
		Events:     events,
		AI:         aiSvc,
		Metrics:    recorder,
		Tx:         txManager,
		Prompts:    prompt.Default(),
		Dice:       rpg.NewRoller(time.Now().UnixNano()),
		Now:        time.Now,
	}

	h := httpadapter.Handler{
		Game:       gameSvc,
		Characters: &character.Service{Repo: chars, Worlds: catalog},
		Guilds:     guilds,
		Worlds:     catalog,
		KPI:        recorder,
	}

	s := server.Default(server.WithHostPorts(cfg.ListenAddr))
	h.RegisterRoutes(s)

	log.Printf("questweaver listening on %s (worlds: %s)", cfg.ListenAddr, strings.Join(catalog.Names(), ", "))
	s.Spin()
}

func mustBuildRepos(dsn string) (ports.CharacterRepository, ports.WorldStateRepository, ports.GuildConfigRepository, ports.EventRepository, ports.TxManager) {
	if strings.TrimSpace(dsn) == "" {
		log.Println("QUESTWEAVER_DB_DSN is empty, using in-memory storage (state is lost on restart)")
		store := memrepo.NewStore()
		return memrepo.NewCharacterRepo(store), memrepo.NewWorldStateRepo(store), memrepo.NewGuildConfigRepo(store), memrepo.NewEventRepo(store), memrepo.NewTxManager()
	}

	db, err := gormrepo.OpenPostgres(dsn)
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}
	if err := gormrepo.Migrate(context.Background(), db); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	return gormrepo.NewCharacterRepo(db), gormrepo.NewWorldStateRepo(db), gormrepo.NewGuildConfigRepo(db), gormrepo.NewEventRepo(db), gormrepo.NewTxManager(db)
}

func mustBuildLLMClient(cfg config) (ports.ChatClient, func()) {
	switch strings.ToLower(cfg.LLMProvider) {
	case "gemini":
		client, err := gemini.New(context.Background(), cfg.GeminiKey)
		if err != nil {
			log.Fatalf("gemini client: %v", err)
		}
		return client, func() { _ = client.Close() }
	case "openai", "":
		if cfg.OpenAIKey == "" {
			log.Fatal("OPENAI_API_KEY is required when LLM_PROVIDER=openai")
		}
		var opts []openai.Option
		if cfg.OpenAIBaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.OpenAIBaseURL))
		}
		return openai.New(cfg.OpenAIKey, opts...), func() {}
	default:
		log.Fatalf("unknown LLM_PROVIDER %q (want openai or gemini)", cfg.LLMProvider)
		return nil, nil
	}
}
