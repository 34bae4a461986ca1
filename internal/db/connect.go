package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open opens a DB and ensures schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:itembank.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/itembank?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

const schemaSQLite = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS items (
  id TEXT PRIMARY KEY,
  batch_id TEXT NOT NULL DEFAULT '',
  fingerprint TEXT NOT NULL,
  type TEXT NOT NULL,
  difficulty TEXT NOT NULL,
  topic TEXT NOT NULL DEFAULT '',
  unit TEXT NOT NULL DEFAULT '',
  question TEXT NOT NULL,
  canonical_answer TEXT NOT NULL,
  variations_json TEXT NOT NULL DEFAULT 'null',
  options_json TEXT NOT NULL DEFAULT 'null',
  explanation TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL,
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);

-- retired rows free their fingerprint for re-insertion
CREATE UNIQUE INDEX IF NOT EXISTS items_live_fingerprint
  ON items(fingerprint) WHERE status != 'retired';
CREATE INDEX IF NOT EXISTS items_status ON items(status, created_at);
CREATE INDEX IF NOT EXISTS items_batch ON items(batch_id);

CREATE TABLE IF NOT EXISTS item_verdicts (
  id TEXT PRIMARY KEY,
  item_id TEXT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
  auditor TEXT NOT NULL,
  gates_json TEXT NOT NULL DEFAULT 'null',
  signals_json TEXT NOT NULL DEFAULT 'null',
  suggested_difficulty TEXT NOT NULL DEFAULT '',
  remove_variations_json TEXT NOT NULL DEFAULT 'null',
  severity TEXT NOT NULL DEFAULT '',
  note TEXT NOT NULL DEFAULT '',
  tool_failure INTEGER NOT NULL DEFAULT 0,
  failure_reason TEXT NOT NULL DEFAULT '',
  created_at INTEGER NOT NULL -- unix nanos
);

CREATE INDEX IF NOT EXISTS item_verdicts_item ON item_verdicts(item_id, created_at);

CREATE TABLE IF NOT EXISTS batches (
  id TEXT PRIMARY KEY,
  unit TEXT NOT NULL DEFAULT '',
  topic TEXT NOT NULL DEFAULT '',
  source TEXT NOT NULL DEFAULT '',
  attempted INTEGER NOT NULL DEFAULT 0,
  inserted INTEGER NOT NULL DEFAULT 0,
  skipped INTEGER NOT NULL DEFAULT 0,
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS mastery (
  learner_id TEXT NOT NULL,
  item_id TEXT NOT NULL,
  box INTEGER NOT NULL,
  consecutive_correct INTEGER NOT NULL,
  last_reviewed_at INTEGER NOT NULL,
  PRIMARY KEY (learner_id, item_id)
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS items (
  id TEXT PRIMARY KEY,
  batch_id TEXT NOT NULL DEFAULT '',
  fingerprint TEXT NOT NULL,
  type TEXT NOT NULL,
  difficulty TEXT NOT NULL,
  topic TEXT NOT NULL DEFAULT '',
  unit TEXT NOT NULL DEFAULT '',
  question TEXT NOT NULL,
  canonical_answer TEXT NOT NULL,
  variations_json TEXT NOT NULL DEFAULT 'null',
  options_json TEXT NOT NULL DEFAULT 'null',
  explanation TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL,
  created_at BIGINT NOT NULL,
  updated_at BIGINT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS items_live_fingerprint
  ON items(fingerprint) WHERE status != 'retired';
CREATE INDEX IF NOT EXISTS items_status ON items(status, created_at);
CREATE INDEX IF NOT EXISTS items_batch ON items(batch_id);

CREATE TABLE IF NOT EXISTS item_verdicts (
  id TEXT PRIMARY KEY,
  item_id TEXT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
  auditor TEXT NOT NULL,
  gates_json TEXT NOT NULL DEFAULT 'null',
  signals_json TEXT NOT NULL DEFAULT 'null',
  suggested_difficulty TEXT NOT NULL DEFAULT '',
  remove_variations_json TEXT NOT NULL DEFAULT 'null',
  severity TEXT NOT NULL DEFAULT '',
  note TEXT NOT NULL DEFAULT '',
  tool_failure BOOLEAN NOT NULL DEFAULT FALSE,
  failure_reason TEXT NOT NULL DEFAULT '',
  created_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS item_verdicts_item ON item_verdicts(item_id, created_at);

CREATE TABLE IF NOT EXISTS batches (
  id TEXT PRIMARY KEY,
  unit TEXT NOT NULL DEFAULT '',
  topic TEXT NOT NULL DEFAULT '',
  source TEXT NOT NULL DEFAULT '',
  attempted INTEGER NOT NULL DEFAULT 0,
  inserted INTEGER NOT NULL DEFAULT 0,
  skipped INTEGER NOT NULL DEFAULT 0,
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS mastery (
  learner_id TEXT NOT NULL,
  item_id TEXT NOT NULL,
  box INTEGER NOT NULL,
  consecutive_correct INTEGER NOT NULL,
  last_reviewed_at BIGINT NOT NULL,
  PRIMARY KEY (learner_id, item_id)
);
`
