package bank

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// SQLStore persists items and batches through database/sql. It works
// unchanged against sqlite (modernc) and postgres (pgx stdlib); the
// schema lives in internal/db.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

const itemColumns = `id,batch_id,fingerprint,type,difficulty,topic,unit,question,canonical_answer,variations_json,options_json,explanation,status,created_at,updated_at`

func (s *SQLStore) Insert(ctx context.Context, it Item) error {
	vj, err := json.Marshal(it.Variations)
	if err != nil {
		return fmt.Errorf("marshal variations: %w", err)
	}
	oj, err := json.Marshal(it.Options)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO items (`+itemColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		it.ID, it.BatchID, it.Fingerprint, string(it.Type), string(it.Difficulty),
		it.Topic, it.Unit, it.Question, it.CanonicalAnswer,
		string(vj), string(oj), it.Explanation, string(it.Status),
		it.CreatedAt.Unix(), it.UpdatedAt.Unix())
	if err != nil {
		// the partial unique index on fingerprint rejects duplicate
		// live rows; report it as the duplicate it is
		if strings.Contains(strings.ToLower(err.Error()), "unique") ||
			strings.Contains(err.Error(), "duplicate key") {
			return errDuplicateFingerprint
		}
		return err
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id=$1`, id)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Item{}, ErrNotFound
	}
	return it, err
}

func (s *SQLStore) Update(ctx context.Context, it Item) error {
	vj, err := json.Marshal(it.Variations)
	if err != nil {
		return fmt.Errorf("marshal variations: %w", err)
	}
	oj, err := json.Marshal(it.Options)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE items SET
			batch_id=$1, fingerprint=$2, type=$3, difficulty=$4, topic=$5, unit=$6,
			question=$7, canonical_answer=$8, variations_json=$9, options_json=$10,
			explanation=$11, status=$12, updated_at=$13
		WHERE id=$14`,
		it.BatchID, it.Fingerprint, string(it.Type), string(it.Difficulty), it.Topic, it.Unit,
		it.Question, it.CanonicalAnswer, string(vj), string(oj),
		it.Explanation, string(it.Status), it.UpdatedAt.Unix(), it.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) List(ctx context.Context, f Filter) ([]Item, error) {
	var (
		where []string
		args  []interface{}
	)
	add := func(col, val string) {
		if val == "" {
			return
		}
		args = append(args, val)
		where = append(where, fmt.Sprintf("%s=$%d", col, len(args)))
	}
	add("status", string(f.Status))
	add("unit", f.Unit)
	add("topic", f.Topic)
	add("difficulty", string(f.Difficulty))
	add("type", string(f.Type))
	add("batch_id", f.BatchID)

	q := `SELECT ` + itemColumns + ` FROM items`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY created_at ASC, id ASC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()
	var out []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *SQLStore) FingerprintExists(ctx context.Context, fp string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM items WHERE fingerprint=$1 AND status != 'retired' LIMIT 1`, fp).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *SQLStore) ListForAudit(ctx context.Context, limit int) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM items
		WHERE status='pending' ORDER BY created_at ASC, id ASC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending items: %w", err)
	}
	defer rows.Close()
	var out []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *SQLStore) Stats(ctx context.Context) (PoolStats, error) {
	st := PoolStats{
		ByStatus:     map[Status]int{},
		ByType:       map[ItemType]int{},
		ByDifficulty: map[Difficulty]int{},
	}
	count := func(col string, sink func(key string, n int)) error {
		rows, err := s.db.QueryContext(ctx,
			fmt.Sprintf(`SELECT %s, COUNT(*) FROM items GROUP BY %s`, col, col))
		if err != nil {
			return fmt.Errorf("pool stats by %s: %w", col, err)
		}
		defer rows.Close()
		for rows.Next() {
			var key string
			var n int
			if err := rows.Scan(&key, &n); err != nil {
				return err
			}
			sink(key, n)
		}
		return rows.Err()
	}
	if err := count("status", func(k string, n int) {
		st.ByStatus[Status(k)] = n
		st.Total += n
	}); err != nil {
		return PoolStats{}, err
	}
	if err := count("type", func(k string, n int) { st.ByType[ItemType(k)] = n }); err != nil {
		return PoolStats{}, err
	}
	if err := count("difficulty", func(k string, n int) { st.ByDifficulty[Difficulty(k)] = n }); err != nil {
		return PoolStats{}, err
	}
	return st, nil
}

func (s *SQLStore) PutBatch(ctx context.Context, b Batch) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO batches (id,unit,topic,source,attempted,inserted,skipped,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO UPDATE SET attempted=EXCLUDED.attempted, inserted=EXCLUDED.inserted, skipped=EXCLUDED.skipped`,
		b.ID, b.Unit, b.Topic, b.Source, b.Attempted, b.Inserted, b.Skipped, b.CreatedAt.Unix())
	return err
}

func (s *SQLStore) GetBatch(ctx context.Context, id string) (Batch, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,unit,topic,source,attempted,inserted,skipped,created_at FROM batches WHERE id=$1`, id)
	var b Batch
	var created int64
	if err := row.Scan(&b.ID, &b.Unit, &b.Topic, &b.Source, &b.Attempted, &b.Inserted, &b.Skipped, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Batch{}, ErrBatchNotFound
		}
		return Batch{}, err
	}
	b.CreatedAt = time.Unix(created, 0).UTC()
	return b, nil
}

func (s *SQLStore) StatusCountsByBatch(ctx context.Context, batchID string) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM items WHERE batch_id=$1 GROUP BY status`, batchID)
	if err != nil {
		return nil, fmt.Errorf("batch status counts: %w", err)
	}
	defer rows.Close()
	counts := map[Status]int{}
	for rows.Next() {
		var st string
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, err
		}
		counts[Status(st)] = n
	}
	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row rowScanner) (Item, error) {
	var it Item
	var typ, diff, status string
	var vjson, ojson string
	var created, updated int64
	if err := row.Scan(&it.ID, &it.BatchID, &it.Fingerprint, &typ, &diff,
		&it.Topic, &it.Unit, &it.Question, &it.CanonicalAnswer,
		&vjson, &ojson, &it.Explanation, &status, &created, &updated); err != nil {
		return Item{}, err
	}
	it.Type = ItemType(typ)
	it.Difficulty = Difficulty(diff)
	it.Status = Status(status)
	if err := json.Unmarshal([]byte(vjson), &it.Variations); err != nil {
		it.Variations = nil
	}
	if err := json.Unmarshal([]byte(ojson), &it.Options); err != nil {
		it.Options = nil
	}
	it.CreatedAt = time.Unix(created, 0).UTC()
	it.UpdatedAt = time.Unix(updated, 0).UTC()
	return it, nil
}
