package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	api "github.com/item-bank/itembank/internal/api/http"
	"github.com/item-bank/itembank/internal/audit"
	"github.com/item-bank/itembank/internal/auth"
	"github.com/item-bank/itembank/internal/bank"
	"github.com/item-bank/itembank/internal/config"
	"github.com/item-bank/itembank/internal/db"
	"github.com/item-bank/itembank/internal/gate"
	"github.com/item-bank/itembank/internal/grading"
	"github.com/item-bank/itembank/internal/mastery"
	"github.com/item-bank/itembank/internal/quiz"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func main() {
	cfg := config.FromEnv()

	// --- DB ---
	openCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	dbh, err := db.Open(openCtx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	cancel()
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}

	// --- Stores & services ---
	items := bank.NewSQLStore(dbh)
	bankSvc := bank.NewService(items)
	machine := gate.NewMachine(items, gate.NewSQLStore(dbh), gate.Policy(cfg.GatePolicy))
	progress := mastery.NewService(mastery.NewSQLStore(dbh))
	checker := grading.NewChecker()

	engine, err := quiz.NewEngine(items, progress, quiz.Config{MaxCount: cfg.QuizMaxCount})
	if err != nil {
		log.Fatalf("quiz engine: %v", err)
	}

	judge := audit.NewOpenAIJudge(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
	runner, err := audit.NewRunner(audit.Config{
		Judge:       judge,
		Machine:     machine,
		Items:       items,
		Auditors:    cfg.Auditors,
		Concurrency: cfg.AuditConcurrency,
		RPS:         cfg.AuditRPS,
		MaxRetries:  cfg.AuditMaxRetries,
		BatchSize:   cfg.AuditBatchSize,
	})
	if err != nil {
		log.Fatalf("audit runner: %v", err)
	}

	// --- Auth (guest learner tokens) ---
	authSvc := auth.NewService(cfg.JWTSecret, cfg.TokenTTL)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api", func(pr chi.Router) {
		pr.Post("/auth/learner", auth.LearnerLoginHandler(authSvc, cfg.EnableLearnerAuth))

		// Operator surface: ingestion, curation, audits.
		pr.Post("/batches", api.IngestBatchHandler(bankSvc))
		pr.Get("/batches/{batchID}", api.BatchReportHandler(bankSvc))
		pr.Post("/items", api.CreateItemHandler(bankSvc))
		pr.Get("/items", api.ListItemsHandler(bankSvc))
		pr.Get("/items/{itemID}", api.GetItemHandler(bankSvc, machine))
		pr.Post("/items/{itemID}/retire", api.RetireItemHandler(bankSvc))
		pr.Post("/items/{itemID}/verdicts", api.RecordVerdictHandler(machine))
		pr.Get("/items/{itemID}/verdicts", api.ListVerdictsHandler(bankSvc, machine))
		pr.Post("/audits/run", api.RunAuditHandler(runner))
		pr.Get("/pool/stats", api.PoolStatsHandler(bankSvc))

		// Learner surface. With learner auth on, a bearer token is
		// required and its identity wins over ids in the body.
		pr.Group(func(lr chi.Router) {
			lr.Use(auth.Middleware(authSvc, cfg.EnableLearnerAuth))
			lr.Post("/quiz", api.SelectQuizHandler(engine))
			lr.Post("/answers", api.RecordAnswerHandler(bankSvc, checker, progress))
			lr.Get("/learners/{learnerID}/mastery", api.MasteryOverviewHandler(progress))
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := dbh.PingContext(r.Context()); err != nil {
			http.Error(w, "db not ready", 503)
			return
		}
		w.WriteHeader(200)
	})

	// --- Serve until signalled ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	log.Printf("gateway listening on %s (db=%s, policy=%s)", cfg.HTTPAddr, cfg.DBDriver, machine.Policy())

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}
}
