package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Configはアプリ全体の設定
type Config struct {
	Port  string // サーバーポート（8080）
	GoEnv string // dev/prod/test

	DBDriver    string // postgres / sqlite
	DatabaseURL string // あれば最優先

	PostgresUser     string // DBユーザー
	PostgresPassword string // DBパスワード
	PostgresDB       string // DB名
	PostgresHost     string // DBホスト（localhost）
	PostgresPort     int    // DBポート（5432）
	PostgresSSLMode  string

	SQLitePath string

	JWTSecret       string // JWT署名シークレット
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	BcryptCost      int

	FEURL string // フロントURL（CORSで使う）

	RedisAddr     string // 空ならキャッシュ無効
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	TracingEnabled bool
	RateLimitRPS   float64 // 0なら無効

	// seedで作る管理者
	AdminUsername string
	AdminPassword string
	AdminEmail    string
}

func (c Config) IsProd() bool { return c.GoEnv == "prod" }

// Loadは 環境変数 > .env > YAMLファイル の順で設定を読む。
// pathが空ならCONFIG_FILEを見る。
func Load(path string) (Config, error) {
	//.envは無くてもよい
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	file := map[string]string{}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(b, &file); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	l := loader{file: file}
	cfg := Config{
		Port:  l.str("PORT", "8080"),
		GoEnv: l.str("GO_ENV", "dev"),

		DBDriver:    l.str("DB_DRIVER", "postgres"),
		DatabaseURL: l.str("DATABASE_URL", ""),

		PostgresUser:     l.str("POSTGRES_USER", "postgres"),
		PostgresPassword: l.str("POSTGRES_PASSWORD", "postgres"),
		PostgresDB:       l.str("POSTGRES_DB", "farmmarket"),
		PostgresHost:     l.str("POSTGRES_HOST", "localhost"),
		PostgresPort:     l.int("POSTGRES_PORT", 5432),
		PostgresSSLMode:  l.str("POSTGRES_SSLMODE", "disable"),

		SQLitePath: l.str("SQLITE_PATH", "farmmarket.db"),

		JWTSecret:       l.str("JWT_SECRET", ""),
		AccessTokenTTL:  l.duration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL: l.duration("REFRESH_TOKEN_TTL", 14*24*time.Hour),
		BcryptCost:      l.int("BCRYPT_COST", 12),

		FEURL: l.str("FE_URL", "http://localhost:3000"),

		RedisAddr:     l.str("REDIS_ADDR", ""),
		RedisPassword: l.str("REDIS_PASSWORD", ""),
		RedisDB:       l.int("REDIS_DB", 0),
		CacheTTL:      l.duration("CACHE_TTL", 5*time.Minute),

		TracingEnabled: l.bool("TRACING_ENABLED", false),
		RateLimitRPS:   l.float("RATE_LIMIT_RPS", 20),

		AdminUsername: l.str("ADMIN_USERNAME", "admin"),
		AdminPassword: l.str("ADMIN_PASSWORD", ""),
		AdminEmail:    l.str("ADMIN_EMAIL", ""),
	}
	if l.err != nil {
		return Config{}, l.err
	}

	//必須チェック
	switch cfg.DBDriver {
	case "postgres", "sqlite":
	default:
		return Config{}, fmt.Errorf("DB_DRIVER must be postgres or sqlite: %q", cfg.DBDriver)
	}
	if cfg.JWTSecret == "" {
		if cfg.IsProd() {
			return Config{}, fmt.Errorf("JWT_SECRET is required")
		}
		cfg.JWTSecret = "dev_secret_change_me"
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return Config{}, fmt.Errorf("BCRYPT_COST must be between 4 and 31")
	}
	return cfg, nil
}

// 最初のエラーだけ覚える
type loader struct {
	file map[string]string
	err  error
}

func (l *loader) raw(key string) (string, bool) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v, true
	}
	if v, ok := l.file[key]; ok && v != "" {
		return v, true
	}
	return "", false
}

func (l *loader) str(key, def string) string {
	if v, ok := l.raw(key); ok {
		return v
	}
	return def
}

func (l *loader) int(key string, def int) int {
	v, ok := l.raw(key)
	if !ok {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		l.fail(fmt.Errorf("%s must be number: %w", key, err))
		return def
	}
	return i
}

func (l *loader) float(key string, def float64) float64 {
	v, ok := l.raw(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		l.fail(fmt.Errorf("%s must be number: %w", key, err))
		return def
	}
	return f
}

func (l *loader) bool(key string, def bool) bool {
	v, ok := l.raw(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(strings.ToLower(v))
	if err != nil {
		l.fail(fmt.Errorf("%s must be bool: %w", key, err))
		return def
	}
	return b
}

func (l *loader) duration(key string, def time.Duration) time.Duration {
	v, ok := l.raw(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		l.fail(fmt.Errorf("%s must be duration: %w", key, err))
		return def
	}
	return d
}

func (l *loader) fail(err error) {
	if l.err == nil {
		l.err = err
	}
}
