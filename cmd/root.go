package cmd

import (
	"errors"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/theloz33-bot/jino-ai-interviewer/internal/storage"
)

const (
	app = "interviewer"
)

type Config struct {
	Listen    string           `mapstructure:"listen"`
	StaticDir string           `mapstructure:"static-dir"`
	Interview *InterviewConfig `mapstructure:"interview"`
	Store     *storage.Config  `mapstructure:"store"`
	AI        *AIConfig        `mapstructure:"ai"`
}

type InterviewConfig struct {
	MaxQuestions int      `mapstructure:"max-questions"`
	Difficulty   string   `mapstructure:"difficulty"`
	UserID       string   `mapstructure:"user-id"`
	StartWords   []string `mapstructure:"start-words"`
}

type AIConfig struct {
	// Provider is gemini or bank.
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile   string  `mapstructure:"api-key-file"`
	Model        string  `mapstructure:"model"`
	MaxRetries   int     `mapstructure:"max-retries"`
	MaxLogLength int     `mapstructure:"max-log-length"`
	Temperature  float32 `mapstructure:"temperature"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "interviewer runs a bilingual (Korean/Vietnamese) AI job interview",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	viper.SetEnvPrefix("INTERVIEWER")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if err := viper.BindEnv("ai.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	setDefaults()

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is interviewer.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults() {
	viper.SetDefault("listen", ":8503")
	viper.SetDefault("interview.max-questions", 9)
	viper.SetDefault("interview.difficulty", "medium")
	viper.SetDefault("interview.user-id", "user1")
	viper.SetDefault("interview.start-words", []string{"start", "시작"})
	viper.SetDefault("store.driver", storage.DriverMemory)
	viper.SetDefault("store.redis.key-prefix", "interview:session:")
	viper.SetDefault("store.mongo.database", "interviewer")
	viper.SetDefault("store.mongo.collection", "sessions")
	viper.SetDefault("ai.provider", providerGemini)
	viper.SetDefault("ai.gemini.model", "gemini-2.5-flash")
	viper.SetDefault("ai.gemini.max-retries", 3)
	viper.SetDefault("ai.gemini.max-log-length", 200)
	viper.SetDefault("ai.gemini.temperature", 0.7)
}

func initConfig() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		// Defaults and environment are enough to run; an explicit file must parse.
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
