package mastery

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Get(ctx context.Context, learnerID, itemID string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT learner_id,item_id,box,consecutive_correct,last_reviewed_at
		FROM mastery WHERE learner_id=$1 AND item_id=$2`, learnerID, itemID)
	var rec Record
	var reviewed int64
	if err := row.Scan(&rec.LearnerID, &rec.ItemID, &rec.Box, &rec.ConsecutiveCorrect, &reviewed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	rec.LastReviewedAt = time.Unix(reviewed, 0).UTC()
	return rec, nil
}

func (s *SQLStore) Upsert(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO mastery (learner_id,item_id,box,consecutive_correct,last_reviewed_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (learner_id,item_id) DO UPDATE SET
			box=EXCLUDED.box,
			consecutive_correct=EXCLUDED.consecutive_correct,
			last_reviewed_at=EXCLUDED.last_reviewed_at`,
		rec.LearnerID, rec.ItemID, rec.Box, rec.ConsecutiveCorrect, rec.LastReviewedAt.Unix())
	return err
}

func (s *SQLStore) ListByLearner(ctx context.Context, learnerID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT learner_id,item_id,box,consecutive_correct,last_reviewed_at
		FROM mastery WHERE learner_id=$1 ORDER BY last_reviewed_at DESC, item_id ASC`, learnerID)
	if err != nil {
		return nil, fmt.Errorf("list mastery: %w", err)
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		var rec Record
		var reviewed int64
		if err := rows.Scan(&rec.LearnerID, &rec.ItemID, &rec.Box, &rec.ConsecutiveCorrect, &reviewed); err != nil {
			return nil, err
		}
		rec.LastReviewedAt = time.Unix(reviewed, 0).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLStore) Boxes(ctx context.Context, learnerID string) (map[string]int, error) {
	boxes := map[string]int{}
	if learnerID == "" {
		return boxes, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT item_id, box FROM mastery WHERE learner_id=$1`, learnerID)
	if err != nil {
		return nil, fmt.Errorf("load boxes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var itemID string
		var box int
		if err := rows.Scan(&itemID, &box); err != nil {
			return nil, err
		}
		boxes[itemID] = box
	}
	return boxes, rows.Err()
}
