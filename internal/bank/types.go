// Package bank holds the item pool: content identity, ingestion and
// the storage boundary. An item enters the pool in status "pending",
// becomes servable only through the quality gate, and leaves the
// dedup set only when an operator retires it.
package bank

import (
	"errors"
	"fmt"
	"time"
)

type ItemType string

const (
	TypeMultipleChoice ItemType = "mc"
	TypeTrueFalse      ItemType = "tf"
	TypeFillInBlank    ItemType = "fib"
	TypeWriting        ItemType = "writing"
)

func (t ItemType) Valid() bool {
	switch t {
	case TypeMultipleChoice, TypeTrueFalse, TypeFillInBlank, TypeWriting:
		return true
	}
	return false
}

// Types lists all item types in their canonical order.
func Types() []ItemType {
	return []ItemType{TypeMultipleChoice, TypeTrueFalse, TypeFillInBlank, TypeWriting}
}

type Difficulty string

const (
	Beginner     Difficulty = "beginner"
	Intermediate Difficulty = "intermediate"
	Advanced     Difficulty = "advanced"
)

func (d Difficulty) Valid() bool {
	switch d {
	case Beginner, Intermediate, Advanced:
		return true
	}
	return false
}

// Difficulties lists all difficulty labels, easiest first.
func Difficulties() []Difficulty {
	return []Difficulty{Beginner, Intermediate, Advanced}
}

// Rank orders difficulties: beginner < intermediate < advanced.
func (d Difficulty) Rank() int {
	switch d {
	case Beginner:
		return 0
	case Intermediate:
		return 1
	case Advanced:
		return 2
	}
	return -1
}

type Status string

const (
	StatusPending Status = "pending"
	StatusActive  Status = "active"
	StatusFlagged Status = "flagged"
	StatusRetired Status = "retired"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusFlagged, StatusRetired:
		return true
	}
	return false
}

// Item is one quiz item. Fingerprint is the dedup key across all
// non-retired items; ID is the primary key.
type Item struct {
	ID              string     `json:"id"`
	BatchID         string     `json:"batch_id,omitempty"`
	Fingerprint     string     `json:"fingerprint"`
	Type            ItemType   `json:"type"`
	Difficulty      Difficulty `json:"difficulty"`
	Topic           string     `json:"topic"`
	Unit            string     `json:"unit"`
	Question        string     `json:"question"`
	CanonicalAnswer string     `json:"canonical_answer"`
	Variations      []string   `json:"variations,omitempty"`
	Options         []string   `json:"options,omitempty"`
	Explanation     string     `json:"explanation,omitempty"`
	Status          Status     `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// ErrInvalid marks item validation failures so callers can tell a bad
// request from a storage fault.
var ErrInvalid = errors.New("invalid item")

func (it Item) Validate() error {
	if !it.Type.Valid() {
		return fmt.Errorf("%w: unknown item type %q", ErrInvalid, it.Type)
	}
	if !it.Difficulty.Valid() {
		return fmt.Errorf("%w: unknown difficulty %q", ErrInvalid, it.Difficulty)
	}
	if it.Question == "" {
		return fmt.Errorf("%w: question is required", ErrInvalid)
	}
	if it.CanonicalAnswer == "" {
		return fmt.Errorf("%w: canonical answer is required", ErrInvalid)
	}
	if it.Type == TypeMultipleChoice && len(it.Options) < 2 {
		return fmt.Errorf("%w: multiple-choice items need at least two options", ErrInvalid)
	}
	return nil
}

// Batch groups items ingested together. It scopes reports only; no
// behavior depends on batch membership.
type Batch struct {
	ID        string    `json:"id"`
	Unit      string    `json:"unit,omitempty"`
	Topic     string    `json:"topic,omitempty"`
	Source    string    `json:"source,omitempty"`
	Attempted int       `json:"attempted"`
	Inserted  int       `json:"inserted"`
	Skipped   int       `json:"skipped"`
	CreatedAt time.Time `json:"created_at"`
}

// Outcome of one insert attempt. A duplicate is an outcome, not an error.
type Outcome string

const (
	Inserted Outcome = "inserted"
	Skipped  Outcome = "skipped"
)
