package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Ark        ArkConfig        `mapstructure:"ark"`
	Generation GenerationConfig `mapstructure:"generation"`
	Embedding  EmbeddingConfig  `mapstructure:"embedding"`
	Index      IndexConfig      `mapstructure:"index"`
	Analysis   AnalysisConfig   `mapstructure:"analysis"`
	Sources    SourcesConfig    `mapstructure:"sources"`
}

type ServerConfig struct {
	Host string     `mapstructure:"host"`
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

// ArkConfig configures the Ark vision-language endpoint used for meme analysis.
type ArkConfig struct {
	APIKey         string `mapstructure:"api_key"`
	APIURL         string `mapstructure:"api_url"`
	Model          string `mapstructure:"model"`
	Prompt         string `mapstructure:"prompt"`
	InstructPrompt string `mapstructure:"instruct_prompt"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// GenerationConfig configures the Ark image generation endpoint.
type GenerationConfig struct {
	APIURL         string `mapstructure:"api_url"`
	Model          string `mapstructure:"model"`
	Size           string `mapstructure:"size"`
	Watermark      bool   `mapstructure:"watermark"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// IndexConfig locates the persisted vector index artifact.
type IndexConfig struct {
	Path string `mapstructure:"path"`
}

// AnalysisConfig holds batch-analysis defaults.
type AnalysisConfig struct {
	ImageMode              string  `mapstructure:"image_mode"`
	DownloadTimeoutSeconds int     `mapstructure:"download_timeout_seconds"`
	SleepSeconds           float64 `mapstructure:"sleep_seconds"`
}

type SourcesConfig struct {
	ChineseBQB ChineseBQBConfig `mapstructure:"chinesebqb"`
}

type ChineseBQBConfig struct {
	RepoPath string `mapstructure:"repo_path"`
	BaseURL  string `mapstructure:"base_url"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	// Set config file path
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Enable environment variable override
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("ark.api_url", "https://ark.cn-beijing.volces.com/api/v3/chat/completions")
	v.SetDefault("ark.model", "doubao-seed-1-8-251228")
	v.SetDefault("ark.timeout_seconds", 60)
	v.SetDefault("generation.api_url", "https://ark.cn-beijing.volces.com/api/v3/images/generations")
	v.SetDefault("generation.model", "doubao-seedream-4-5-251128")
	v.SetDefault("generation.size", "1920x1920")
	v.SetDefault("generation.watermark", true)
	v.SetDefault("generation.timeout_seconds", 120)
	v.SetDefault("embedding.provider", "jina")
	v.SetDefault("embedding.model", "jina-embeddings-v3")
	v.SetDefault("embedding.dimensions", 1024)
	v.SetDefault("embedding.timeout_seconds", 30)
	v.SetDefault("index.path", "meme_index.vec")
	v.SetDefault("analysis.image_mode", "remote")
	v.SetDefault("analysis.download_timeout_seconds", 15)
	v.SetDefault("analysis.sleep_seconds", 0)
	v.SetDefault("sources.chinesebqb.repo_path", "./data/ChineseBQB")
	v.SetDefault("sources.chinesebqb.base_url", "")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("server.host", "ANALYSIS_HOST")
	v.BindEnv("server.port", "ANALYSIS_PORT")
	v.BindEnv("ark.api_key", "ARK_API_KEY")
	v.BindEnv("ark.api_url", "ARK_API_URL")
	v.BindEnv("ark.model", "ARK_MODEL")
	v.BindEnv("ark.prompt", "ARK_PROMPT")
	v.BindEnv("ark.instruct_prompt", "INSTRUCT_PROMPT")
	v.BindEnv("generation.model", "GENERATION_MODEL")
	v.BindEnv("embedding.api_key", "EMBEDDING_API_KEY", "JINA_API_KEY")
	v.BindEnv("embedding.base_url", "EMBEDDING_BASE_URL")
	v.BindEnv("index.path", "INDEX_PATH")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
