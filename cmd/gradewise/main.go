package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-redis/redis/v8"

	api "github.com/mind-engage/gradewise/internal/api/http"
	auth "github.com/mind-engage/gradewise/internal/auth/middleware"
	"github.com/mind-engage/gradewise/internal/config"
	"github.com/mind-engage/gradewise/internal/db"
	"github.com/mind-engage/gradewise/internal/lms"
	"github.com/mind-engage/gradewise/internal/rbac"
	"github.com/mind-engage/gradewise/internal/storage"
	"github.com/mind-engage/gradewise/internal/summary"
	syncx "github.com/mind-engage/gradewise/internal/sync"
	"github.com/mind-engage/gradewise/internal/workspace"
)

func main() {
	cfg := config.Load()

	// --- DB (class snapshots when STORE_DRIVER=sql, event log always) ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	defer dbh.Close()

	var (
		store workspace.Store
		rdb   *redis.Client
	)
	switch cfg.StoreDriver {
	case "memory":
		store = workspace.NewMemoryStore()
	case "redis":
		rdb, err = workspace.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer rdb.Close()
		store = workspace.NewRedisStore(rdb)
	default:
		store = workspace.NewSQLStore(dbh, cfg.DBDriver)
	}
	classes := workspace.NewService(store, workspace.WithEventLog(syncx.NewEventRepo(dbh)))

	bs, err := storage.NewFSStore(cfg.BlobBasePath)
	if err != nil {
		log.Fatalf("blob store: %v", err)
	}

	var summarizer summary.Summarizer
	if cfg.SummaryAPIKey != "" {
		summarizer = summary.NewGeminiClient(summary.GeminiConfig{
			APIKey:  cfg.SummaryAPIKey,
			Model:   cfg.SummaryModel,
			BaseURL: cfg.SummaryBaseURL,
			Timeout: cfg.SummaryTimeout,
		})
	} else {
		log.Printf("summary: no API key configured, narrative reports disabled")
	}

	var publisher *lms.Publisher
	if cfg.AGSTokenURL != "" {
		publisher = lms.NewPublisher(lms.NewClient(lms.Config{
			TokenURL:     cfg.AGSTokenURL,
			ClientID:     cfg.AGSClientID,
			ClientSecret: cfg.AGSClientSecret,
			Timeout:      30 * time.Second,
		}), nil)
	}

	authSvc := auth.NewAuthService(cfg.AuthHMACSecret)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length", "Content-Disposition", "X-Archive-Key", "X-Archive-URL"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.EnableLocalAuth {
		r.Post("/auth/login", auth.LoginHandler(authSvc, auth.Account{
			Username: cfg.TeacherUser,
			PassHash: cfg.TeacherPassHash,
			Role:     auth.RoleTeacher,
		}))
	}

	// Protected API (JWT → role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))

		pr.Get("/auth/me", auth.MeHandler())
		pr.With(rbac.Require(rbac.PermClassAnalyze)).
			Post("/analyze", api.AnalyzeHandler())

		pr.Route("/classes", func(cr chi.Router) {
			api.MountClasses(cr, api.Deps{
				Classes:    classes,
				Blobs:      bs,
				Summarizer: summarizer,
				Publisher:  publisher,
			})
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", readyHandler(dbh, rdb))

	log.Printf("listening on %s (mode=%s, db=%s, store=%s)", cfg.HTTPAddr, cfg.Mode, cfg.DBDriver, cfg.StoreDriver)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}

func readyHandler(dbh *sql.DB, rdb *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := dbh.PingContext(ctx); err != nil {
			http.Error(w, "db: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctx).Err(); err != nil {
				http.Error(w, "redis: "+err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	}
}
