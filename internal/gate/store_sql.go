package gate

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/item-bank/itembank/internal/bank"
)

// SQLStore keeps verdict history in the item_verdicts table.
// Timestamps are stored at nanosecond precision: verdicts from one
// batch-parallel sweep land within the same second, and recency
// decides status under PolicyRecent.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

const verdictColumns = `id,item_id,auditor,gates_json,signals_json,suggested_difficulty,remove_variations_json,severity,note,tool_failure,failure_reason,created_at`

func (s *SQLStore) Append(ctx context.Context, v Verdict) (Verdict, error) {
	gj, err := json.Marshal(v.Gates)
	if err != nil {
		return Verdict{}, fmt.Errorf("marshal gates: %w", err)
	}
	sj, err := json.Marshal(v.Signals)
	if err != nil {
		return Verdict{}, fmt.Errorf("marshal signals: %w", err)
	}
	rj, err := json.Marshal(v.RemoveVariations)
	if err != nil {
		return Verdict{}, fmt.Errorf("marshal removals: %w", err)
	}
	suggested := ""
	if v.SuggestedDifficulty != nil {
		suggested = string(*v.SuggestedDifficulty)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO item_verdicts (`+verdictColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		v.ID, v.ItemID, v.Auditor, string(gj), string(sj), suggested, string(rj),
		string(v.Severity), v.Note, v.ToolFailure, v.FailureReason, v.CreatedAt.UnixNano())
	if err != nil {
		return Verdict{}, err
	}
	return v, nil
}

func (s *SQLStore) ListByItem(ctx context.Context, itemID string) ([]Verdict, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+verdictColumns+` FROM item_verdicts
		WHERE item_id=$1 ORDER BY created_at ASC, id ASC`, itemID)
	if err != nil {
		return nil, fmt.Errorf("list verdicts: %w", err)
	}
	defer rows.Close()
	var out []Verdict
	for rows.Next() {
		v, err := scanVerdict(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *SQLStore) LatestPerAuditor(ctx context.Context, itemID string) ([]Verdict, error) {
	all, err := s.ListByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return latestPerAuditor(all), nil
}

func scanVerdict(rows *sql.Rows) (Verdict, error) {
	var v Verdict
	var gjson, sjson, rjson string
	var suggested, sevStr string
	var created int64
	if err := rows.Scan(&v.ID, &v.ItemID, &v.Auditor, &gjson, &sjson, &suggested,
		&rjson, &sevStr, &v.Note, &v.ToolFailure, &v.FailureReason, &created); err != nil {
		return Verdict{}, err
	}
	if err := json.Unmarshal([]byte(gjson), &v.Gates); err != nil {
		v.Gates = nil
	}
	if err := json.Unmarshal([]byte(sjson), &v.Signals); err != nil {
		v.Signals = nil
	}
	if err := json.Unmarshal([]byte(rjson), &v.RemoveVariations); err != nil {
		v.RemoveVariations = nil
	}
	if suggested != "" {
		d := bank.Difficulty(suggested)
		v.SuggestedDifficulty = &d
	}
	v.Severity = Severity(sevStr)
	v.CreatedAt = time.Unix(0, created).UTC()
	return v, nil
}
