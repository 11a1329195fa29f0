package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv        = "SOCIAL_POSTER_CONFIG"
	redisAddrEnv         = "REDIS_ADDR"
	databaseDSNEnv       = "DATABASE_DSN"
	openAIAPIKeyEnv      = "OPENAI_API_KEY"
	openAIModelEnv       = "OPENAI_MODEL"
	storageAPIKeyEnv     = "STORAGE_API_KEY"
	renderAPIKeyEnv      = "RENDER_API_KEY"
	igAccessTokenEnv     = "IG_ACCESS_TOKEN"
	igAccountIDEnv       = "IG_BUSINESS_ACCOUNT_ID"
	twConsumerKeyEnv     = "TWITTER_CONSUMER_KEY"
	twConsumerSecretEnv  = "TWITTER_CONSUMER_SECRET"
	twAccessTokenEnv     = "TWITTER_ACCESS_TOKEN"
	twAccessSecretEnv    = "TWITTER_ACCESS_SECRET"
	defaultListenAddrEnv = "LISTEN_ADDR"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Server    ServerConfig    `yaml:"server"`
	Redis     RedisConfig     `yaml:"redis"`
	Database  DatabaseConfig  `yaml:"database"`
	Feeds     []FeedConfig    `yaml:"feeds"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Render    RenderConfig    `yaml:"render"`
	Storage   StorageConfig   `yaml:"storage"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Instagram InstagramConfig `yaml:"instagram"`
	Twitter   TwitterConfig   `yaml:"twitter"`
}

// LoggingConfig controls the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// ServerConfig describes the HTTP surface.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// RedisConfig describes the dedup backing store connection.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// DatabaseConfig describes the optional Postgres audit store.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// FeedConfig describes one RSS source.
type FeedConfig struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	MaxItems int    `yaml:"maxItems"`
}

// OpenAIConfig defines how to contact the chat-completions API.
type OpenAIConfig struct {
	APIKey  string `yaml:"apiKey"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"baseUrl"`
}

// RenderConfig points at the caption-card render service.
type RenderConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"apiKey"`
}

// StorageConfig points at the object storage bucket.
type StorageConfig struct {
	Endpoint       string `yaml:"endpoint"`
	Bucket         string `yaml:"bucket"`
	APIKey         string `yaml:"apiKey"`
	PublicBaseURL  string `yaml:"publicBaseUrl"`
	PlaceholderURL string `yaml:"placeholderUrl"`
}

// PipelineConfig tunes the orchestration pass.
type PipelineConfig struct {
	MaxPosts              int    `yaml:"maxPosts"`
	InterPostDelaySeconds int    `yaml:"interPostDelaySeconds"`
	PerFeedTimeoutSeconds int    `yaml:"perFeedTimeoutSeconds"`
	HeadlineTTLDays       int    `yaml:"headlineTtlDays"`
	QuizTTLDays           int    `yaml:"quizTtlDays"`
	TagBlock              string `yaml:"tagBlock"`
}

// InterPostDelay resolves the configured delay between successive artifacts.
func (p PipelineConfig) InterPostDelay() time.Duration {
	return time.Duration(p.InterPostDelaySeconds) * time.Second
}

// PerFeedTimeout bounds one feed fetch.
func (p PipelineConfig) PerFeedTimeout() time.Duration {
	return time.Duration(p.PerFeedTimeoutSeconds) * time.Second
}

// HeadlineTTL is the retention window for headline fingerprints.
func (p PipelineConfig) HeadlineTTL() time.Duration {
	return time.Duration(p.HeadlineTTLDays) * 24 * time.Hour
}

// QuizTTL is the retention window for quiz fingerprints.
func (p PipelineConfig) QuizTTL() time.Duration {
	return time.Duration(p.QuizTTLDays) * 24 * time.Hour
}

// InstagramConfig wires the photo-platform Graph API.
type InstagramConfig struct {
	AccessToken       string `yaml:"accessToken"`
	BusinessAccountID string `yaml:"businessAccountId"`
	APIBaseURL        string `yaml:"apiBaseUrl"`
	CaptionLimit      int    `yaml:"captionLimit"`
}

// TwitterConfig wires the microblog API and its signing credentials.
type TwitterConfig struct {
	ConsumerKey    string `yaml:"consumerKey"`
	ConsumerSecret string `yaml:"consumerSecret"`
	AccessToken    string `yaml:"accessToken"`
	AccessSecret   string `yaml:"accessSecret"`
	UploadBaseURL  string `yaml:"uploadBaseUrl"`
	APIBaseURL     string `yaml:"apiBaseUrl"`
	CaptionLimit   int    `yaml:"captionLimit"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()

	if len(cfg.Feeds) == 0 {
		cfg.Feeds = defaultConfig().Feeds
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	set := func(target *string, env string) {
		if v := os.Getenv(env); v != "" {
			*target = v
		}
	}

	set(&c.Server.Addr, defaultListenAddrEnv)
	set(&c.Redis.Addr, redisAddrEnv)
	set(&c.Database.DSN, databaseDSNEnv)
	set(&c.OpenAI.APIKey, openAIAPIKeyEnv)
	set(&c.OpenAI.Model, openAIModelEnv)
	set(&c.Storage.APIKey, storageAPIKeyEnv)
	set(&c.Render.APIKey, renderAPIKeyEnv)
	set(&c.Instagram.AccessToken, igAccessTokenEnv)
	set(&c.Instagram.BusinessAccountID, igAccountIDEnv)
	set(&c.Twitter.ConsumerKey, twConsumerKeyEnv)
	set(&c.Twitter.ConsumerSecret, twConsumerSecretEnv)
	set(&c.Twitter.AccessToken, twAccessTokenEnv)
	set(&c.Twitter.AccessSecret, twAccessSecretEnv)
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}
	if override.Server.Addr != "" {
		base.Server = override.Server
	}
	if override.Redis.Addr != "" {
		base.Redis = override.Redis
	}
	if override.Database.DSN != "" {
		base.Database = override.Database
	}
	if len(override.Feeds) > 0 {
		base.Feeds = override.Feeds
	}

	if override.OpenAI.APIKey != "" {
		base.OpenAI.APIKey = override.OpenAI.APIKey
	}
	if override.OpenAI.Model != "" {
		base.OpenAI.Model = override.OpenAI.Model
	}
	if override.OpenAI.BaseURL != "" {
		base.OpenAI.BaseURL = override.OpenAI.BaseURL
	}

	if override.Render.Endpoint != "" {
		base.Render = override.Render
	}
	if override.Storage.Endpoint != "" {
		base.Storage = override.Storage
	}

	if override.Pipeline.MaxPosts > 0 {
		base.Pipeline.MaxPosts = override.Pipeline.MaxPosts
	}
	if override.Pipeline.InterPostDelaySeconds > 0 {
		base.Pipeline.InterPostDelaySeconds = override.Pipeline.InterPostDelaySeconds
	}
	if override.Pipeline.PerFeedTimeoutSeconds > 0 {
		base.Pipeline.PerFeedTimeoutSeconds = override.Pipeline.PerFeedTimeoutSeconds
	}
	if override.Pipeline.HeadlineTTLDays > 0 {
		base.Pipeline.HeadlineTTLDays = override.Pipeline.HeadlineTTLDays
	}
	if override.Pipeline.QuizTTLDays > 0 {
		base.Pipeline.QuizTTLDays = override.Pipeline.QuizTTLDays
	}
	if override.Pipeline.TagBlock != "" {
		base.Pipeline.TagBlock = override.Pipeline.TagBlock
	}

	if override.Instagram.AccessToken != "" {
		base.Instagram.AccessToken = override.Instagram.AccessToken
	}
	if override.Instagram.BusinessAccountID != "" {
		base.Instagram.BusinessAccountID = override.Instagram.BusinessAccountID
	}
	if override.Instagram.APIBaseURL != "" {
		base.Instagram.APIBaseURL = override.Instagram.APIBaseURL
	}
	if override.Instagram.CaptionLimit > 0 {
		base.Instagram.CaptionLimit = override.Instagram.CaptionLimit
	}

	if override.Twitter.ConsumerKey != "" {
		base.Twitter.ConsumerKey = override.Twitter.ConsumerKey
	}
	if override.Twitter.ConsumerSecret != "" {
		base.Twitter.ConsumerSecret = override.Twitter.ConsumerSecret
	}
	if override.Twitter.AccessToken != "" {
		base.Twitter.AccessToken = override.Twitter.AccessToken
	}
	if override.Twitter.AccessSecret != "" {
		base.Twitter.AccessSecret = override.Twitter.AccessSecret
	}
	if override.Twitter.UploadBaseURL != "" {
		base.Twitter.UploadBaseURL = override.Twitter.UploadBaseURL
	}
	if override.Twitter.APIBaseURL != "" {
		base.Twitter.APIBaseURL = override.Twitter.APIBaseURL
	}
	if override.Twitter.CaptionLimit > 0 {
		base.Twitter.CaptionLimit = override.Twitter.CaptionLimit
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Server:  ServerConfig{Addr: ":8080"},
		Redis:   RedisConfig{Addr: "localhost:6379"},
		Feeds: []FeedConfig{
			{Name: "etonline", URL: "https://www.etonline.com/news/rss", MaxItems: 10},
			{Name: "eonline", URL: "https://www.eonline.com/syndication/feeds/rssfeeds/topstories.xml", MaxItems: 10},
		},
		OpenAI: OpenAIConfig{Model: "gpt-4o-mini"},
		Render: RenderConfig{Endpoint: "http://localhost:9090/render"},
		Storage: StorageConfig{
			Endpoint:       "http://localhost:9000",
			Bucket:         "posts",
			PublicBaseURL:  "http://localhost:9000/public/posts",
			PlaceholderURL: "https://placehold.co/1080x1080/png?text=news",
		},
		Pipeline: PipelineConfig{
			MaxPosts:              3,
			InterPostDelaySeconds: 10,
			PerFeedTimeoutSeconds: 20,
			HeadlineTTLDays:       7,
			QuizTTLDays:           30,
			TagBlock:              "#entertainment #celebrity #news",
		},
		Instagram: InstagramConfig{
			APIBaseURL:   "https://graph.facebook.com/v19.0",
			CaptionLimit: 2200,
		},
		Twitter: TwitterConfig{
			UploadBaseURL: "https://upload.twitter.com/1.1",
			APIBaseURL:    "https://api.twitter.com/2",
			CaptionLimit:  280,
		},
	}
}
