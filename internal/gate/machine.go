package gate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/item-bank/itembank/internal/bank"

	"github.com/google/uuid"
)

// ErrBadVerdict marks verdicts rejected before recording: unknown
// auditor or a shape that does not conform to the auditor's rubric.
var ErrBadVerdict = errors.New("bad verdict")

// Policy names how competing auditors are reconciled.
//
// PolicyRecent keeps the original behavior: the most recent
// non-tool-failure verdict is authoritative, whoever produced it.
// PolicyConsensus activates an item only while the latest verdict
// from every auditor that has ever judged it passes.
type Policy string

const (
	PolicyRecent    Policy = "recent"
	PolicyConsensus Policy = "consensus"
)

func (p Policy) Valid() bool { return p == PolicyRecent || p == PolicyConsensus }

// Machine applies the transition rule. It owns no goroutines and no
// caches; every decision reads current storage.
type Machine struct {
	items    bank.Store
	verdicts Store
	policy   Policy
	now      func() time.Time
	newID    func() string
}

func NewMachine(items bank.Store, verdicts Store, policy Policy) *Machine {
	if policy == "" {
		policy = PolicyRecent
	}
	return &Machine{
		items:    items,
		verdicts: verdicts,
		policy:   policy,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

func (m *Machine) Policy() Policy { return m.policy }

// Record appends a verdict to an item's history and applies the
// transition rule:
//
//   - tool failure: recorded distinctly, status untouched, no
//     remediation; it is neither a pass nor a fail.
//   - otherwise: active iff every gate criterion passed (under the
//     configured policy), else flagged.
//
// When the incoming verdict passes its gates, remediation runs before
// the status write: difficulty relabel and subtractive variation
// pruning, both idempotent. Retired items keep their history growing
// but never transition.
func (m *Machine) Record(ctx context.Context, itemID string, v Verdict) (bank.Item, Verdict, error) {
	it, err := m.items.Get(ctx, itemID)
	if err != nil {
		return bank.Item{}, Verdict{}, err
	}

	rubric, ok := RubricFor(v.Auditor)
	if !ok {
		return bank.Item{}, Verdict{}, fmt.Errorf("%w: unknown auditor %q", ErrBadVerdict, v.Auditor)
	}
	if v, err = rubric.Conform(v); err != nil {
		return bank.Item{}, Verdict{}, fmt.Errorf("%w: %v", ErrBadVerdict, err)
	}

	v.ID = m.newID()
	v.ItemID = it.ID
	if v.CreatedAt.IsZero() {
		v.CreatedAt = m.now().UTC()
	}
	stored, err := m.verdicts.Append(ctx, v)
	if err != nil {
		return bank.Item{}, Verdict{}, fmt.Errorf("append verdict: %w", err)
	}

	if v.ToolFailure || it.Status == bank.StatusRetired {
		return it, stored, nil
	}

	next, err := m.nextStatus(ctx, it, v)
	if err != nil {
		return bank.Item{}, Verdict{}, err
	}
	if v.GatePassed() {
		if err := m.remediate(ctx, &it, v); err != nil {
			return bank.Item{}, Verdict{}, err
		}
	}
	it.Status = next
	it.UpdatedAt = m.now().UTC()
	if err := m.items.Update(ctx, it); err != nil {
		return bank.Item{}, Verdict{}, fmt.Errorf("update item: %w", err)
	}
	return it, stored, nil
}

func (m *Machine) nextStatus(ctx context.Context, it bank.Item, v Verdict) (bank.Status, error) {
	switch m.policy {
	case PolicyConsensus:
		latest, err := m.verdicts.LatestPerAuditor(ctx, it.ID)
		if err != nil {
			return "", fmt.Errorf("latest verdicts: %w", err)
		}
		for _, lv := range latest {
			if !lv.GatePassed() {
				return bank.StatusFlagged, nil
			}
		}
		return bank.StatusActive, nil
	default:
		if v.GatePassed() {
			return bank.StatusActive, nil
		}
		return bank.StatusFlagged, nil
	}
}

func (m *Machine) remediate(ctx context.Context, it *bank.Item, v Verdict) error {
	if v.SuggestedDifficulty != nil && *v.SuggestedDifficulty != it.Difficulty {
		fp := bank.Fingerprint(it.Question, it.CanonicalAnswer, it.Topic, *v.SuggestedDifficulty)
		exists, err := m.items.FingerprintExists(ctx, fp)
		if err != nil {
			return fmt.Errorf("check relabel fingerprint: %w", err)
		}
		// a relabel must not merge two live items onto one key; when
		// the target slot is taken the label stays and the suggestion
		// remains on record in the verdict
		if !exists {
			it.Difficulty = *v.SuggestedDifficulty
			it.Fingerprint = fp
		}
	}
	if len(v.RemoveVariations) == 0 {
		return nil
	}
	drop := make(map[string]struct{}, len(v.RemoveVariations))
	for _, s := range v.RemoveVariations {
		drop[s] = struct{}{}
	}
	kept := make([]string, 0, len(it.Variations))
	for _, s := range it.Variations {
		if _, gone := drop[s]; !gone {
			kept = append(kept, s)
		}
	}
	it.Variations = kept
	return nil
}

// History returns an item's full audit trail, oldest first.
func (m *Machine) History(ctx context.Context, itemID string) ([]Verdict, error) {
	return m.verdicts.ListByItem(ctx, itemID)
}
