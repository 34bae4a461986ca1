package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/item-bank/itembank/internal/audit"
	"github.com/item-bank/itembank/internal/bank"
	"github.com/item-bank/itembank/internal/config"
	"github.com/item-bank/itembank/internal/db"
	"github.com/item-bank/itembank/internal/gate"
)

// auditd sweeps the pending pool on a fixed interval and feeds every
// configured auditor's verdicts through the gate. It shares the
// gateway's database and needs nothing else running.
func main() {
	cfg := config.FromEnv()

	openCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	dbh, err := db.Open(openCtx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	cancel()
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}

	items := bank.NewSQLStore(dbh)
	machine := gate.NewMachine(items, gate.NewSQLStore(dbh), gate.Policy(cfg.GatePolicy))
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("auditd sweeping every %s (db=%s, batch=%d)", cfg.AuditInterval, cfg.DBDriver, cfg.AuditBatchSize)
	ticker := time.NewTicker(cfg.AuditInterval)
	defer ticker.Stop()

	sweep(ctx, runner)
	for {
		select {
		case <-ctx.Done():
			log.Printf("auditd shutting down")
			return
		case <-ticker.C:
			sweep(ctx, runner)
		}
	}
}

func sweep(ctx context.Context, runner *audit.Runner) {
	rep, err := runner.Sweep(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Printf("sweep failed: %v", err)
		return
	}
	if rep.Scanned == 0 {
		return
	}
	log.Printf("sweep: scanned=%d passed=%d failed=%d tool_failures=%d errors=%d",
		rep.Scanned, rep.Passed, rep.Failed, rep.ToolFailures, rep.Errors)
}
