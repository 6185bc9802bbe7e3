package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// ランキングに使えるフィールド名。書き込み側は totalVote、旧トップ一覧は topVote を参照していた。
const (
	RankFieldTotalVote = "totalVote"
	RankFieldTopVote   = "topVote"
)

var defaultAllowedOrigins = []string{
	"http://localhost:5173",
	"https://survey-haven.web.app",
	"https://survey-haven.firebaseapp.com",
}

// TokenConfig defines the signing secret and lifetime of issued access tokens.
type TokenConfig struct {
	Secret []byte
	TTL    time.Duration
}

// RateLimitConfig enables the Redis-backed limiter for anonymous write routes.
type RateLimitConfig struct {
	RedisAddr      string
	RedisPassword  string
	RedisPrefix    string
	LimitPerMinute int
}

// Enabled reports whether a Redis address was configured.
func (c RateLimitConfig) Enabled() bool {
	return strings.TrimSpace(c.RedisAddr) != ""
}

// Config holds runtime configuration shared across the application.
type Config struct {
	Addr             string
	MongoURI         string
	MongoDatabase    string
	UserCollection   string
	SurveyCollection string
	Timeout          time.Duration
	RequestTimeout   time.Duration
	ServerLog        *log.Logger
	Token            TokenConfig
	AllowedOrigins   []string
	RankField        string
	TopLimit         int
	AtomicWrites     bool
	RateLimit        RateLimitConfig
}

// Load reads environment variables and returns a fully populated Config.
func Load() (Config, error) {
	timeout, err := durationOrDefault("MONGO_CONNECT_TIMEOUT", 10*time.Second)
	if err != nil {
		return Config{}, err
	}
	requestTimeout, err := durationOrDefault("REQUEST_TIMEOUT", 5*time.Second)
	if err != nil {
		return Config{}, err
	}
	tokenTTL, err := durationOrDefault("ACCESS_TOKEN_TTL", 7*24*time.Hour)
	if err != nil {
		return Config{}, err
	}

	secret := strings.TrimSpace(os.Getenv("ACCESS_TOKEN_SECRET"))
	if secret == "" {
		return Config{}, errors.New("ACCESS_TOKEN_SECRET must be configured")
	}

	rankField := envOrDefault("SURVEY_RANK_FIELD", RankFieldTotalVote)
	if rankField != RankFieldTotalVote && rankField != RankFieldTopVote {
		return Config{}, fmt.Errorf("SURVEY_RANK_FIELD must be %q or %q, got %q", RankFieldTotalVote, RankFieldTopVote, rankField)
	}

	topLimit, err := intOrDefault("SURVEY_TOP_LIMIT", 6)
	if err != nil {
		return Config{}, err
	}
	if topLimit <= 0 {
		return Config{}, fmt.Errorf("SURVEY_TOP_LIMIT must be positive, got %d", topLimit)
	}

	atomicWrites, err := boolOrDefault("ATOMIC_WRITES", true)
	if err != nil {
		return Config{}, err
	}

	limitPerMinute, err := intOrDefault("WRITE_RATE_LIMIT_PER_MINUTE", 30)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Addr:             listenAddr(),
		MongoURI:         mongoURI(),
		MongoDatabase:    envOrDefault("MONGO_DB", "SurveyDb"),
		UserCollection:   envOrDefault("USER_COLLECTION", "users"),
		SurveyCollection: envOrDefault("SURVEY_COLLECTION", "surveys"),
		Timeout:          timeout,
		RequestTimeout:   requestTimeout,
		ServerLog:        log.New(os.Stdout, "[survey-haven-api] ", log.LstdFlags|log.Lshortfile),
		Token: TokenConfig{
			Secret: []byte(secret),
			TTL:    tokenTTL,
		},
		AllowedOrigins: parseList("API_ALLOWED_ORIGINS", defaultAllowedOrigins),
		RankField:      rankField,
		TopLimit:       topLimit,
		AtomicWrites:   atomicWrites,
		RateLimit: RateLimitConfig{
			RedisAddr:      strings.TrimSpace(os.Getenv("REDIS_ADDR")),
			RedisPassword:  os.Getenv("REDIS_PASSWORD"),
			RedisPrefix:    envOrDefault("RATE_LIMIT_PREFIX", "survey-haven:ratelimit"),
			LimitPerMinute: limitPerMinute,
		},
	}

	cfg.ServerLog.Printf("loaded config: addr=%q db=%q rankField=%q atomicWrites=%t rateLimit=%t",
		cfg.Addr, cfg.MongoDatabase, cfg.RankField, cfg.AtomicWrites, cfg.RateLimit.Enabled())

	return cfg, nil
}

// listenAddr は HTTP_ADDR を優先し、無ければ PORT から待ち受けアドレスを組み立てる。
func listenAddr() string {
	if addr := strings.TrimSpace(os.Getenv("HTTP_ADDR")); addr != "" {
		return addr
	}
	return ":" + envOrDefault("PORT", "5000")
}

// mongoURI は MONGO_URI が無い場合に DB_USER/DB_PASS から Atlas 形式の URI を組み立てる。
func mongoURI() string {
	if uri := strings.TrimSpace(os.Getenv("MONGO_URI")); uri != "" {
		return uri
	}
	user := strings.TrimSpace(os.Getenv("DB_USER"))
	pass := os.Getenv("DB_PASS")
	if user == "" {
		return "mongodb://mongo:27017"
	}
	u := url.URL{
		Scheme:   "mongodb+srv",
		User:     url.UserPassword(user, pass),
		Host:     envOrDefault("MONGO_CLUSTER_HOST", "cluster0.mongodb.net"),
		Path:     "/",
		RawQuery: "retryWrites=true&w=majority&appName=Cluster0",
	}
	return u.String()
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func durationOrDefault(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return parsed, nil
}

func intOrDefault(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return parsed, nil
}

func boolOrDefault(key string, fallback bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return parsed, nil
}

func parseList(key string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			values = append(values, part)
		}
	}

	if len(values) == 0 {
		return fallback
	}
	return values
}
