package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode     Mode
	HTTPAddr string

	DBDriver string // sqlite|postgres
	DBDSN    string

	StoreDriver   string // sql|memory|redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	BlobBasePath string // archived reports

	EnableLocalAuth bool
	AuthHMACSecret  string
	TeacherUser     string
	TeacherPassHash string // bcrypt

	CORSOriginsOnline  []string
	CORSOriginsOffline []string

	// narrative summary; empty key disables it
	SummaryAPIKey  string
	SummaryModel   string
	SummaryBaseURL string
	SummaryTimeout time.Duration

	// LTI AGS grade publishing; empty token URL disables it
	AGSTokenURL     string
	AGSClientID     string
	AGSClientSecret string
}

// Load reads an optional .env file and then the environment.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: .env not loaded: %v", err)
	}
	return FromEnv()
}

func FromEnv() Config {
	mode := Mode(os.Getenv("MODE"))
	if mode == "" {
		mode = ModeOffline
	}
	return Config{
		Mode:     mode,
		HTTPAddr: envOr("HTTP_ADDR", ":8080"),

		DBDriver: envOr("DB_DRIVER", "sqlite"),
		DBDSN:    envOr("DB_DSN", ""),

		StoreDriver:   envOr("STORE_DRIVER", "sql"),
		RedisAddr:     envOr("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),

		BlobBasePath: envOr("BLOB_BASE_PATH", "./data"),

		EnableLocalAuth: envBool("ENABLE_LOCAL_AUTH", true),
		AuthHMACSecret:  envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),
		TeacherUser:     envOr("TEACHER_USER", "teacher"),
		TeacherPassHash: envOr("TEACHER_PASS_HASH", "$2y$12$pyZAiWaTfVtM7UElIRStvOC3gNbnp70nmQU4eYopLGBfCJr1DOvji"),

		CORSOriginsOnline:  csvOr("CORS_ORIGINS_ONLINE", "https://gradewise.mindengage.ai"),
		CORSOriginsOffline: csvOr("CORS_ORIGINS_OFFLINE", "http://localhost:3000,http://localhost:5173"),

		SummaryAPIKey:  envOr("SUMMARY_API_KEY", os.Getenv("API_KEY")),
		SummaryModel:   envOr("SUMMARY_MODEL", "gemini-2.5-flash"),
		SummaryBaseURL: os.Getenv("SUMMARY_BASE_URL"),
		SummaryTimeout: envDuration("SUMMARY_TIMEOUT", 30*time.Second),

		AGSTokenURL:     os.Getenv("AGS_TOKEN_URL"),
		AGSClientID:     os.Getenv("AGS_CLIENT_ID"),
		AGSClientSecret: os.Getenv("AGS_CLIENT_SECRET"),
	}
}

// CORSOrigins returns the allow-list for the configured mode.
func (c Config) CORSOrigins() []string {
	if c.Mode == ModeOnline {
		return c.CORSOriginsOnline
	}
	return c.CORSOriginsOffline
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}
func envInt(k string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(k)); err == nil {
		return v
	}
	return def
}
func envDuration(k string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(k)); err == nil && v > 0 {
		return v
	}
	return def
}
func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
