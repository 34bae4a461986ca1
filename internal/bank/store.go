package bank

import (
	"context"
	"errors"
)

var (
	ErrNotFound      = errors.New("item not found")
	ErrBatchNotFound = errors.New("batch not found")

	// returned by Insert when a concurrent writer landed the same
	// fingerprint between the caller's existence check and the write
	errDuplicateFingerprint = errors.New("fingerprint already present")
)

// Filter narrows List results. Zero values mean "any".
type Filter struct {
	Status     Status
	Unit       string
	Topic      string
	Difficulty Difficulty
	Type       ItemType
	BatchID    string
	Limit      int
	Offset     int
}

// PoolStats counts the pool along its reporting axes.
type PoolStats struct {
	Total        int                `json:"total"`
	ByStatus     map[Status]int     `json:"by_status"`
	ByType       map[ItemType]int   `json:"by_type"`
	ByDifficulty map[Difficulty]int `json:"by_difficulty"`
}

type Store interface {
	Insert(ctx context.Context, it Item) error
	Get(ctx context.Context, id string) (Item, error)
	// Update replaces the stored row. Item status changes are
	// single-record read-modify-write; nothing here needs a
	// multi-row transaction.
	Update(ctx context.Context, it Item) error
	List(ctx context.Context, f Filter) ([]Item, error)
	// FingerprintExists reports whether any non-retired item carries
	// the fingerprint. Uniqueness is repository-backed: every insert
	// consults storage rather than a process-lifetime cache.
	FingerprintExists(ctx context.Context, fp string) (bool, error)
	// ListForAudit returns pending items, oldest first.
	ListForAudit(ctx context.Context, limit int) ([]Item, error)
	Stats(ctx context.Context) (PoolStats, error)

	PutBatch(ctx context.Context, b Batch) error
	GetBatch(ctx context.Context, id string) (Batch, error)
	// StatusCountsByBatch reports the current status distribution of
	// a batch's surviving items.
	StatusCountsByBatch(ctx context.Context, batchID string) (map[Status]int, error)
}
