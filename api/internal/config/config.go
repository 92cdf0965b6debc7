package config

import (
	"fmt"
	"log"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port string `yaml:"port"`
	DPI  int    `yaml:"dpi"`

	Engine             string        `yaml:"lmm_engine"`
	GeminiAPIKey       string        `yaml:"gemini_api_key"`
	GeminiModel        string        `yaml:"gemini_model"`
	VertexAPIKey       string        `yaml:"vertex_api_key"`
	Debug              bool          `yaml:"lmm_debug"`
	MaxOutputTokens    int           `yaml:"lmm_max_output_tokens"`
	CallTimeout        time.Duration `yaml:"lmm_call_timeout"`
	RateLimit          float64       `yaml:"lmm_rate_limit"`
	TesseractLanguages []string      `yaml:"tesseract_lang"`

	MaxUploadMB  int    `yaml:"max_upload_mb"`
	HintLogDir   string `yaml:"hint_log_dir"`
	CorrectedDir string `yaml:"corrected_dir"`

	DatabaseURL string        `yaml:"database_url"`
	CacheMaxAge time.Duration `yaml:"cache_max_age"`

	TelegramBotToken string `yaml:"telegram_bot_token"`
	WebhookURL       string `yaml:"webhook_url"`
}

func defaults() *Config {
	return &Config{
		Port:               "8000",
		DPI:                400,
		Engine:             "gemini",
		GeminiModel:        "gemini-2.5-flash",
		MaxOutputTokens:    4096,
		CallTimeout:        120 * time.Second,
		TesseractLanguages: []string{"eng"},
		MaxUploadMB:        50,
		CacheMaxAge:        24 * time.Hour,
	}
}

func MustEnv(k string) string {
	v := os.Getenv(k)
	if v == "" {
		log.Fatalf("missing required env %s", k)
	}
	return v
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

// Load reads the optional CONFIG_FILE overlay and then the environment;
// environment variables win.
func Load() (*Config, error) {
	cfg := defaults()

	if path := getEnv("CONFIG_FILE", ""); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if cfg.VertexAPIKey == "" {
		cfg.VertexAPIKey = cfg.GeminiAPIKey
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = resolveDSN()
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Port = getEnv("PORT", c.Port)
	c.Engine = strings.ToLower(getEnv("LMM_ENGINE", c.Engine))
	c.GeminiAPIKey = getEnv("GEMINI_API_KEY", c.GeminiAPIKey)
	c.GeminiModel = getEnv("GEMINI_MODEL", c.GeminiModel)
	c.VertexAPIKey = getEnv("VERTEX_API_KEY", c.VertexAPIKey)
	c.HintLogDir = getEnv("HINT_LOG_DIR", c.HintLogDir)
	c.CorrectedDir = getEnv("CORRECTED_DIR", c.CorrectedDir)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.TelegramBotToken = getEnv("TELEGRAM_BOT_TOKEN", c.TelegramBotToken)
	c.WebhookURL = getEnv("WEBHOOK_URL", c.WebhookURL)

	if v := getEnv("LMM_DEBUG", ""); v != "" {
		c.Debug = v == "1" || strings.EqualFold(v, "true")
	}

	if v := getEnv("TESSERACT_LANG", ""); v != "" {
		c.TesseractLanguages = strings.Split(v, "+")
	}

	var err error

	if c.DPI, err = envInt("DPI", c.DPI); err != nil {
		return err
	}
	if c.MaxOutputTokens, err = envInt("LMM_MAX_OUTPUT_TOKENS", c.MaxOutputTokens); err != nil {
		return err
	}
	if c.MaxUploadMB, err = envInt("MAX_UPLOAD_MB", c.MaxUploadMB); err != nil {
		return err
	}
	if c.CallTimeout, err = envDuration("LMM_CALL_TIMEOUT", c.CallTimeout); err != nil {
		return err
	}
	if c.CacheMaxAge, err = envDuration("CACHE_MAX_AGE", c.CacheMaxAge); err != nil {
		return err
	}

	if v := getEnv("LMM_RATE_LIMIT", ""); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			return fmt.Errorf("LMM_RATE_LIMIT must be a non-negative number, got %q", v)
		}
		c.RateLimit = f
	}

	if c.DPI <= 0 {
		return fmt.Errorf("DPI must be positive, got %d", c.DPI)
	}

	return nil
}

func envInt(k string, def int) (int, error) {
	v := getEnv(k, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be int, got %q", k, v)
	}
	return n, nil
}

func envDuration(k string, def time.Duration) (time.Duration, error) {
	v := getEnv(k, "")
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration, got %q", k, v)
	}
	return d, nil
}

// KeyLoaded reports whether the selected engine has credentials.
func (c *Config) KeyLoaded() bool {
	if c.Engine == "vertex" {
		return c.VertexAPIKey != ""
	}
	return c.GeminiAPIKey != ""
}

func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// resolveDSN builds a DSN from POSTGRES_* / PG* variables. Without
// POSTGRES_DB nothing is configured and the result cache stays off.
func resolveDSN() string {
	name := getEnv("POSTGRES_DB", "")
	if name == "" {
		return ""
	}

	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(getEnv("POSTGRES_USER", "postgres"), os.Getenv("POSTGRES_PASSWORD")),
		Host:     net.JoinHostPort(getEnv("PGHOST", "localhost"), getEnv("PGPORT", "5432")),
		Path:     "/" + name,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// SafeDSNSummary prints a DSN without its password.
func SafeDSNSummary(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "dsn: parse error"
	}
	user := u.User.Username()
	host := u.Host
	port := ""
	if h, p, err := net.SplitHostPort(u.Host); err == nil {
		host, port = h, p
	}
	db := strings.TrimPrefix(u.Path, "/")
	if port == "" {
		return fmt.Sprintf("host=%s db=%s user=%s", host, db, user)
	}
	return fmt.Sprintf("host=%s port=%s db=%s user=%s", host, port, db, user)
}
