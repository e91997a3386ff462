package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	//App
	Env string // dev / staging / prod
	//HTTP
	HTTPAddr           string
	CORSAllowedOrigins []string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	//Security
	BcryptCost          int
	CommonPasswordsFile string

	// CAPTCHA
	RecaptchaSecret    string
	RecaptchaVerifyURL string
	CaptchaTimeout     time.Duration
	CaptchaMaxRetries  int
	CaptchaRetryDelay  time.Duration

	// Uniqueness lookups
	LookupTimeout    time.Duration
	LookupMaxRetries int

	// Infrastructure
	DBAddr   string
	DBDebug  bool
	UseMemDB bool

	// Optional: empty disables the component.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TakenCacheTTL time.Duration

	RabbitURL      string
	RabbitExchange string

	SeedDemoUsers bool
}

// LoadDotEnv reads .env if present. A missing file is not an error.
func LoadDotEnv(paths ...string) error {
	err := godotenv.Load(paths...)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load .env: %w", err)
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:                 getEnv("ENV", "dev"),
		HTTPAddr:            getEnv("HTTP_ADDR", ":8080"),
		CORSAllowedOrigins:  getList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		CommonPasswordsFile: os.Getenv("COMMON_PASSWORDS_FILE"),
		RecaptchaVerifyURL:  os.Getenv("RECAPTCHA_VERIFY_URL"),
		RedisAddr:           os.Getenv("REDIS_ADDR"),
		RedisPassword:       os.Getenv("REDIS_PASSWORD"),
		RabbitURL:           os.Getenv("RABBIT_URL"),
		RabbitExchange:      getEnv("RABBIT_EXCHANGE", "city.events"),
	}

	// required values
	cfg.RecaptchaSecret = os.Getenv("RECAPTCHA_SECRET_KEY")
	if cfg.RecaptchaSecret == "" {
		return nil, fmt.Errorf("missing required env var: RECAPTCHA_SECRET_KEY")
	}

	var err error
	if cfg.UseMemDB, err = getBool("USE_MEMORY_STORE", false); err != nil {
		return nil, err
	}

	// The database is the source of truth for uniqueness; refuse to start
	// without one unless the in-memory store was asked for explicitly.
	cfg.DBAddr = os.Getenv("DB_ADDR")
	if cfg.DBAddr == "" && !cfg.UseMemDB {
		return nil, fmt.Errorf("missing required env var: DB_ADDR")
	}
	if cfg.DBAddr != "" {
		if err := validatePostgresDSN(cfg.DBAddr); err != nil {
			return nil, err
		}
	}
	if cfg.DBDebug, err = getBool("DB_DEBUG", false); err != nil {
		return nil, err
	}

	if cfg.BcryptCost, err = getInt("BCRYPT_SALT_ROUNDS", 10); err != nil {
		return nil, err
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, fmt.Errorf("BCRYPT_SALT_ROUNDS must be between 4 and 31, got %d", cfg.BcryptCost)
	}

	if cfg.CaptchaTimeout, err = getDuration("CAPTCHA_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.CaptchaMaxRetries, err = getInt("CAPTCHA_MAX_RETRIES", 2); err != nil {
		return nil, err
	}
	if cfg.CaptchaRetryDelay, err = getDuration("CAPTCHA_RETRY_DELAY", 200*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.LookupTimeout, err = getDuration("LOOKUP_TIMEOUT", 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.LookupMaxRetries, err = getInt("LOOKUP_MAX_RETRIES", 1); err != nil {
		return nil, err
	}
	if cfg.CaptchaMaxRetries < 0 || cfg.LookupMaxRetries < 0 {
		return nil, fmt.Errorf("retry counts must not be negative")
	}

	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.TakenCacheTTL, err = getDuration("TAKEN_CACHE_TTL", 10*time.Minute); err != nil {
		return nil, err
	}

	if cfg.SeedDemoUsers, err = getBool("SEED_DEMO_USERS", false); err != nil {
		return nil, err
	}

	//Timeout values are optional and have a default value if not
	if cfg.HTTPReadTimeout, err = getDuration("HTTP_READ_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.HTTPWriteTimeout, err = getDuration("HTTP_WRITE_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.HTTPIdleTimeout, err = getDuration("HTTP_IDLE_TIMEOUT", time.Minute); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validatePostgresDSN(dsn string) error {
	u, err := url.Parse(dsn)
	if err != nil {
		return fmt.Errorf("invalid DB_ADDR: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return fmt.Errorf("DB_ADDR must use postgres:// or postgresql://, got %q", u.Scheme)
	}
	if strings.Trim(u.Path, "/") == "" {
		return fmt.Errorf("DB_ADDR must name a database")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid int for %s: %q: %w", key, v, err)
	}
	return n, nil
}

func getBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid bool for %s: %q: %w", key, v, err)
	}
	return b, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %q: %w", key, v, err)
	}
	return d, nil
}
