package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreFile     = "file"

	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAPL       = "apl"
	ProviderNone      = "none"
)

type Config struct {
	LogMode string `yaml:"log_mode"`
	Addr    string `yaml:"addr"`

	Store struct {
		Driver      string `yaml:"driver"`
		SQLitePath  string `yaml:"sqlite_path"`
		StatePath   string `yaml:"state_path"`
		PostgresDSN string `yaml:"postgres_dsn"`
	} `yaml:"store"`

	Redis struct {
		Addr    string `yaml:"addr"`
		Channel string `yaml:"channel"`
	} `yaml:"redis"`

	Narrative struct {
		Provider       string        `yaml:"provider"`
		Model          string        `yaml:"model"`
		Endpoint       string        `yaml:"endpoint"`
		Timeout        time.Duration `yaml:"timeout"`
		ExpertPrompt   string        `yaml:"expert_prompt"`
		AnthropicKey   string        `yaml:"-"`
		GeminiKey      string        `yaml:"-"`
		OpenAIKey      string        `yaml:"-"`
		PayloadBudget  int           `yaml:"payload_budget"`
		SmallBudget    int           `yaml:"small_budget"`
		ChunkBudget    int           `yaml:"chunk_budget"`
		MaxConcurrency int           `yaml:"max_concurrency"`
	} `yaml:"narrative"`

	Autosave struct {
		Debounce time.Duration `yaml:"debounce"`
		Throttle time.Duration `yaml:"throttle"`
	} `yaml:"autosave"`

	Render struct {
		ChromePath string `yaml:"chrome_path"`
		StylePath  string `yaml:"style_path"`
	} `yaml:"render"`

	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

// Default returns the configuration used when no file or environment overrides exist.
func Default() Config {
	var c Config
	c.LogMode = "dev"
	c.Addr = ":8095"
	c.Store.Driver = StoreMemory
	c.Store.SQLitePath = "./data/feasibility.db"
	c.Store.StatePath = "./data/state.json"
	c.Redis.Channel = "feasibility-answers"
	c.Narrative.Provider = ProviderNone
	c.Narrative.Timeout = 90 * time.Second
	c.Narrative.PayloadBudget = 40000
	c.Narrative.SmallBudget = 12000
	c.Narrative.ChunkBudget = 30000
	c.Narrative.MaxConcurrency = 3
	c.Autosave.Debounce = 400 * time.Millisecond
	c.Autosave.Throttle = 1500 * time.Millisecond
	return c
}

// Load reads .env (if present), then the optional YAML file, then environment
// overrides. An empty path skips the YAML step.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		blob, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(blob, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(c *Config) {
	c.LogMode = envString("LOG_MODE", c.LogMode)
	c.Addr = envString("FEASIBILITY_ADDR", c.Addr)
	c.Store.Driver = envString("FEASIBILITY_STORE", c.Store.Driver)
	c.Store.SQLitePath = envString("FEASIBILITY_SQLITE_PATH", c.Store.SQLitePath)
	c.Store.StatePath = envString("STATE_FILE", c.Store.StatePath)
	c.Store.PostgresDSN = envString("DATABASE_URL", c.Store.PostgresDSN)
	c.Redis.Addr = envString("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Channel = envString("REDIS_CHANNEL", c.Redis.Channel)
	c.Narrative.Provider = envString("NARRATIVE_PROVIDER", c.Narrative.Provider)
	c.Narrative.Model = envString("NARRATIVE_MODEL", c.Narrative.Model)
	c.Narrative.Endpoint = envString("NARRATIVE_ENDPOINT", c.Narrative.Endpoint)
	c.Narrative.Timeout = envDuration("NARRATIVE_TIMEOUT", c.Narrative.Timeout)
	c.Narrative.ExpertPrompt = envString("EXPERT_PROMPT_TEXT", c.Narrative.ExpertPrompt)
	c.Narrative.AnthropicKey = envString("ANTHROPIC_API_KEY", c.Narrative.AnthropicKey)
	c.Narrative.GeminiKey = envString("GEMINI_API_KEY", c.Narrative.GeminiKey)
	c.Narrative.OpenAIKey = envString("OPENAI_API_KEY", c.Narrative.OpenAIKey)
	c.Narrative.PayloadBudget = envInt("NARRATIVE_PAYLOAD_BUDGET", c.Narrative.PayloadBudget)
	c.Narrative.MaxConcurrency = envInt("NARRATIVE_MAX_CONCURRENCY", c.Narrative.MaxConcurrency)
	c.Autosave.Debounce = envDuration("AUTOSAVE_DEBOUNCE", c.Autosave.Debounce)
	c.Autosave.Throttle = envDuration("AUTOSAVE_THROTTLE", c.Autosave.Throttle)
	c.Render.ChromePath = envString("CHROME_PATH", c.Render.ChromePath)
	c.Render.StylePath = envString("REPORT_STYLE_PATH", c.Render.StylePath)
	c.OTLPEndpoint = envString("OTEL_EXPORTER_OTLP_ENDPOINT", c.OTLPEndpoint)
}

func (c Config) Validate() error {
	switch c.Store.Driver {
	case StoreMemory:
	case StoreSQLite:
		if strings.TrimSpace(c.Store.SQLitePath) == "" {
			return errors.New("store.sqlite_path is required for the sqlite driver")
		}
	case StoreFile:
		if strings.TrimSpace(c.Store.StatePath) == "" {
			return errors.New("store.state_path is required for the file driver")
		}
	case StorePostgres:
		if strings.TrimSpace(c.Store.PostgresDSN) == "" {
			return errors.New("DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	switch c.Narrative.Provider {
	case ProviderNone:
	case ProviderAnthropic:
		if c.Narrative.AnthropicKey == "" {
			return errors.New("ANTHROPIC_API_KEY not configured")
		}
	case ProviderGemini:
		if c.Narrative.GeminiKey == "" {
			return errors.New("GEMINI_API_KEY not configured")
		}
	case ProviderOpenAI, ProviderAPL:
		if strings.TrimSpace(c.Narrative.Endpoint) == "" {
			return errors.New("NARRATIVE_ENDPOINT is required for the openai and apl providers")
		}
	default:
		return fmt.Errorf("unknown narrative provider %q", c.Narrative.Provider)
	}
	if c.Narrative.Timeout <= 0 {
		return errors.New("narrative.timeout must be positive")
	}
	return nil
}

func envString(name, def string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return def
}

func envInt(name string, def int) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func envDuration(name string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
