package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/theloz33-bot/jino-ai-interviewer/internal/ai"
	"github.com/theloz33-bot/jino-ai-interviewer/internal/ai/gemini"
	"github.com/theloz33-bot/jino-ai-interviewer/internal/interview"
	"github.com/theloz33-bot/jino-ai-interviewer/internal/logger"
	"github.com/theloz33-bot/jino-ai-interviewer/internal/secrets"
	"github.com/theloz33-bot/jino-ai-interviewer/internal/storage"
)

const (
	providerGemini = "gemini"
	providerBank   = "bank"
)

// application bundles what serve and chat share.
type application struct {
	config       *Config
	logger       *zap.Logger
	orchestrator *interview.Orchestrator
	closeStore   storage.Closer
}

func newApplication(ctx context.Context) *application {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}
	if config == nil {
		logger.Fatal("config is empty")
	}

	logger.Info("starting the interviewer", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(redacted(config), "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	store, closeStore, err := storage.Open(ctx, config.Store, logger.Named("store"))
	if err != nil {
		logger.Fatal("opening the session store", zap.Error(err))
	}

	questions, evaluator, err := newAIServices(ctx, config.AI, logger)
	if err != nil {
		logger.Fatal("creating ai services", zap.Error(err))
	}

	settings := interview.DefaultSettings()
	if config.Interview != nil {
		if config.Interview.MaxQuestions > 0 {
			settings.MaxQuestions = config.Interview.MaxQuestions
		}
		if d := strings.TrimSpace(config.Interview.Difficulty); d != "" {
			settings.Difficulty = d
		}
	}

	orchestrator := interview.NewOrchestrator(store, questions, evaluator, settings, logger.Named("orchestrator"))

	return &application{
		config:       config,
		logger:       logger,
		orchestrator: orchestrator,
		closeStore:   closeStore,
	}
}

func (a *application) userID() string {
	if a.config.Interview != nil && strings.TrimSpace(a.config.Interview.UserID) != "" {
		return a.config.Interview.UserID
	}
	return "user1"
}

func (a *application) close(ctx context.Context) {
	if err := a.closeStore(ctx); err != nil {
		a.logger.Warn("closing the session store", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// newAIServices returns the question and evaluation services. Gemini without
// a usable API key degrades to the offline question bank.
func newAIServices(ctx context.Context, cfg *AIConfig, log *zap.Logger) (interview.QuestionService, interview.EvaluationService, error) {
	provider := providerGemini
	if cfg != nil && strings.TrimSpace(cfg.Provider) != "" {
		provider = strings.TrimSpace(strings.ToLower(cfg.Provider))
	}

	switch provider {
	case providerBank:
		log.Info("using the built-in question bank", logger.AIFields(providerBank, "")...)
		bank := ai.NewBank(nil)
		return bank, bank, nil
	case providerGemini:
	default:
		return nil, nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	gcfg := &GeminiConfig{}
	if cfg != nil && cfg.Gemini != nil {
		gcfg = cfg.Gemini
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: gcfg.APIKeyFile,
		Env:  []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	})
	if err != nil {
		log.Warn("gemini is not configured, falling back to the built-in question bank",
			zap.Error(err),
			zap.String("hint", "set ai.gemini.api-key-file, GEMINI_API_KEY_FILE or GEMINI_API_KEY"),
		)
		bank := ai.NewBank(nil)
		return bank, bank, nil
	}

	genLogger := logger.WithFields(log, logger.AIFields(providerGemini, gcfg.Model)...).With(
		zap.Int("ai_retry_attempts", gcfg.MaxRetries),
	)

	generator, err := gemini.NewGenerator(ctx, apiKey, gcfg.Model, gcfg.MaxRetries, genLogger.Named("generator"))
	if err != nil {
		return nil, nil, err
	}
	if gcfg.Temperature > 0 {
		generator.SetTemperature(gcfg.Temperature)
	}

	genLogger.Info("gemini services configured", zap.String("model", generator.Model()))

	return gemini.NewInterviewer(generator, gcfg.MaxLogLength, genLogger.Named("interviewer")),
		gemini.NewEvaluator(generator, gcfg.MaxLogLength, genLogger.Named("evaluator")),
		nil
}

// redacted hides credentials before the config is logged.
func redacted(cfg *Config) *Config {
	out := *cfg
	if cfg.Store != nil {
		store := *cfg.Store
		if store.Redis != nil {
			r := *store.Redis
			if r.Password != "" {
				r.Password = "***"
			}
			store.Redis = &r
		}
		if store.Mongo != nil {
			m := *store.Mongo
			if m.URI != "" {
				m.URI = "***"
			}
			store.Mongo = &m
		}
		out.Store = &store
	}
	return &out
}
