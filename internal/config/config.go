package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Embedding  EmbeddingConfig  `mapstructure:"embedding"`
	Store      StoreConfig      `mapstructure:"store"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Similarity SimilarityConfig `mapstructure:"similarity"`
	Search     SearchConfig     `mapstructure:"search"`
	Video      VideoConfig      `mapstructure:"video"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	MaxUploadMB     int64         `mapstructure:"max_upload_mb"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	UploadDir       string        `mapstructure:"upload_dir"`
	CORS            CORSConfig    `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StoreConfig selects how the fingerprint document is persisted.
type StoreConfig struct {
	Backend          string `mapstructure:"backend"` // "json" or "database"
	Path             string `mapstructure:"path"`    // json document path
	RejectCollisions bool   `mapstructure:"reject_collisions"`
	StrictLoad       bool   `mapstructure:"strict_load"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // sqlite or postgres
	Path   string `mapstructure:"path"`   // sqlite file
	URL    string `mapstructure:"url"`    // postgres DSN
	Debug  bool   `mapstructure:"debug"`
}

// DSN returns the driver-specific connection string.
func (c DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return c.URL
	}
	return c.Path
}

type StorageConfig struct {
	Type      string `mapstructure:"type"` // local, s3, r2, s3compatible; empty disables copying originals
	LocalDir  string `mapstructure:"local_dir"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	PublicURL string `mapstructure:"public_url"`
	Prefix    string `mapstructure:"prefix"`
}

type SimilarityConfig struct {
	Weights    WeightsConfig    `mapstructure:"weights"`
	Thresholds ThresholdsConfig `mapstructure:"thresholds"`
}

type WeightsConfig struct {
	Direct  float64 `mapstructure:"direct"`
	Style   float64 `mapstructure:"style"`
	Content float64 `mapstructure:"content"`
}

type ThresholdsConfig struct {
	High   float64 `mapstructure:"high"`
	Medium float64 `mapstructure:"medium"`
}

type SearchConfig struct {
	AdmissionThreshold float64 `mapstructure:"admission_threshold"`
	TopK               int     `mapstructure:"top_k"`
	Workers            int     `mapstructure:"workers"`
}

type VideoConfig struct {
	Frames          int    `mapstructure:"frames"`
	MatchesPerFrame int    `mapstructure:"matches_per_frame"`
	Workers         int    `mapstructure:"workers"`
	TempDir         string `mapstructure:"temp_dir"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from configPath, or from config.yaml in ./configs or the
// working directory when configPath is empty. Environment variables override file values.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	_ = v.BindEnv("embedding.base_url", "EMBEDDING_BASE_URL")
	_ = v.BindEnv("embedding.api_key", "EMBEDDING_API_KEY")
	_ = v.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY")
	_ = v.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY")
	_ = v.BindEnv("database.url", "DATABASE_URL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Embedding.ResolveEnvVars()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.max_upload_mb", 256)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.upload_dir", "")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("embedding.provider", "http")
	v.SetDefault("embedding.base_url", "http://localhost:8500")
	v.SetDefault("embedding.model", "resnet50")
	v.SetDefault("embedding.input_size", 224)
	v.SetDefault("embedding.timeout", 30*time.Second)
	v.SetDefault("embedding.layer_aliases", map[string]string{
		"layer1": "early",
		"layer2": "mid_low",
		"layer3": "mid_high",
		"final":  "final",
	})

	v.SetDefault("store.backend", "json")
	v.SetDefault("store.path", "copyright_database.json")
	v.SetDefault("store.reject_collisions", false)
	v.SetDefault("store.strict_load", false)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/copyscale.db")

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_dir", "./data/references")
	v.SetDefault("storage.bucket", "copyscale")
	v.SetDefault("storage.prefix", "references")

	v.SetDefault("similarity.weights.direct", 0.5)
	v.SetDefault("similarity.weights.style", 0.1)
	v.SetDefault("similarity.weights.content", 0.5)
	v.SetDefault("similarity.thresholds.high", 0.7)
	v.SetDefault("similarity.thresholds.medium", 0.4)

	v.SetDefault("search.admission_threshold", 0.3)
	v.SetDefault("search.top_k", 3)
	v.SetDefault("search.workers", 1)

	v.SetDefault("video.frames", 8)
	v.SetDefault("video.matches_per_frame", 2)
	v.SetDefault("video.workers", 1)
	v.SetDefault("video.temp_dir", "")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if err := c.Embedding.Validate(); err != nil {
		return err
	}
	switch c.Store.Backend {
	case "json":
		if c.Store.Path == "" {
			return fmt.Errorf("store: path is required for the json backend")
		}
	case "database":
		switch c.Database.Driver {
		case "sqlite", "postgres":
		default:
			return fmt.Errorf("database: unknown driver %q", c.Database.Driver)
		}
		if c.Database.DSN() == "" {
			return fmt.Errorf("database: connection target is required for driver %q", c.Database.Driver)
		}
	default:
		return fmt.Errorf("store: unknown backend %q", c.Store.Backend)
	}
	if c.Similarity.Thresholds.Medium > c.Similarity.Thresholds.High {
		return fmt.Errorf("similarity: medium threshold %.2f exceeds high threshold %.2f",
			c.Similarity.Thresholds.Medium, c.Similarity.Thresholds.High)
	}
	if c.Search.Workers < 1 || c.Video.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	if c.Video.Frames < 1 {
		return fmt.Errorf("video: frames must be at least 1")
	}
	return nil
}
