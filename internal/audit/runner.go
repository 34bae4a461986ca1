// Package audit drives quality-review sweeps over the item pool. A
// sweep fans out one evaluator call per item and auditor under a
// bounded worker pool, pushes every call through a shared rate limit,
// retries transient evaluator failures with exponential backoff, and
// records whatever each call ends up with through the gate. Items are
// isolated from each other: one stuck or failing item never blocks
// the rest of the batch.
package audit

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/cenkalti/backoff/v4"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/item-bank/itembank/internal/bank"
	"github.com/item-bank/itembank/internal/gate"
)

// Config wires a Runner. Judge, Machine and Items are required; the
// knobs fall back to defaults when zero.
type Config struct {
	Judge   Judge
	Machine *gate.Machine
	Items   bank.Store

	// Auditors run per item, in order. Defaults to every known rubric.
	Auditors []string

	// Concurrency bounds in-flight evaluator calls. Defaults to 4.
	Concurrency int

	// RPS caps evaluator calls per second across all workers.
	// Defaults to 2.
	RPS float64

	// MaxRetries bounds extra attempts after a transient evaluator
	// error. Defaults to 3.
	MaxRetries int

	// BatchSize bounds how many pending items one sweep picks up.
	// Defaults to 25.
	BatchSize int
}

// Runner fans audit work out over the pool.
type Runner struct {
	judge       Judge
	machine     *gate.Machine
	items       bank.Store
	auditors    []string
	limiter     *rate.Limiter
	concurrency int
	maxRetries  int
	batchSize   int
}

func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Judge == nil {
		return nil, errors.New("audit: Judge is required")
	}
	if cfg.Machine == nil {
		return nil, errors.New("audit: Machine is required")
	}
	if cfg.Items == nil {
		return nil, errors.New("audit: Items is required")
	}

	auditors := cfg.Auditors
	if len(auditors) == 0 {
		for _, r := range gate.Rubrics() {
			auditors = append(auditors, r.Auditor)
		}
	}
	for _, a := range auditors {
		if _, ok := gate.RubricFor(a); !ok {
			return nil, fmt.Errorf("audit: unknown auditor %q", a)
		}
	}

	if cfg.Concurrency < 0 || cfg.RPS < 0 || cfg.MaxRetries < 0 || cfg.BatchSize < 0 {
		return nil, errors.New("audit: config knobs must not be negative")
	}
	concurrency := cfg.Concurrency
	if concurrency == 0 {
		concurrency = 4
	}
	rps := cfg.RPS
	if rps == 0 {
		rps = 2
	}
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 3
	}
	batchSize := cfg.BatchSize
	if batchSize == 0 {
		batchSize = 25
	}

	return &Runner{
		judge:       cfg.Judge,
		machine:     cfg.Machine,
		items:       cfg.Items,
		auditors:    auditors,
		limiter:     rate.NewLimiter(rate.Limit(rps), concurrency),
		concurrency: concurrency,
		maxRetries:  maxRetries,
		batchSize:   batchSize,
	}, nil
}

// Review is the recorded outcome of one auditor pass over one item.
type Review struct {
	ItemID      string      `json:"item_id"`
	Auditor     string      `json:"auditor"`
	Status      bank.Status `json:"status,omitempty"`
	GatePassed  bool        `json:"gate_passed"`
	ToolFailure bool        `json:"tool_failure,omitempty"`
	Error       string      `json:"error,omitempty"`
}

// Report summarizes one sweep. Errors counts reviews that could not
// even be recorded; tool failures were recorded but carry no judgment.
type Report struct {
	Scanned      int      `json:"scanned"`
	Passed       int      `json:"passed"`
	Failed       int      `json:"failed"`
	ToolFailures int      `json:"tool_failures"`
	Errors       int      `json:"errors"`
	Reviews      []Review `json:"reviews,omitempty"`
}

// Sweep reviews the oldest pending items, up to the batch size.
func (r *Runner) Sweep(ctx context.Context) (Report, error) {
	items, err := r.items.ListForAudit(ctx, r.batchSize)
	if err != nil {
		return Report{}, fmt.Errorf("list pending items: %w", err)
	}
	return r.run(ctx, items)
}

// Audit reviews the named items regardless of status, so flagged or
// stale entries can be put back in front of the auditors.
func (r *Runner) Audit(ctx context.Context, ids []string) (Report, error) {
	items := make([]bank.Item, 0, len(ids))
	for _, id := range ids {
		it, err := r.items.Get(ctx, id)
		if err != nil {
			return Report{}, fmt.Errorf("load item %s: %w", id, err)
		}
		items = append(items, it)
	}
	return r.run(ctx, items)
}

func (r *Runner) run(ctx context.Context, items []bank.Item) (Report, error) {
	reviews := make([]Review, len(items)*len(r.auditors))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, it := range items {
		for j, auditor := range r.auditors {
			it, auditor := it, auditor
			idx := i*len(r.auditors) + j
			g.Go(func() error {
				reviews[idx] = r.reviewOne(gctx, auditor, it)
				return nil
			})
		}
	}
	waitErr := g.Wait()

	rep := Report{Scanned: len(items), Reviews: reviews}
	for _, rv := range reviews {
		switch {
		case rv.Error != "":
			rep.Errors++
		case rv.ToolFailure:
			rep.ToolFailures++
		case rv.GatePassed:
			rep.Passed++
		default:
			rep.Failed++
		}
	}
	return rep, waitErr
}

// reviewOne runs a single evaluator call and records the result. It
// never returns an error: a call that stays broken after retries is
// recorded as a tool failure, and a storage error lands in the review
// row, keeping items isolated from each other.
func (r *Runner) reviewOne(ctx context.Context, auditor string, it bank.Item) Review {
	rv := Review{ItemID: it.ID, Auditor: auditor}

	v, err := r.evaluate(ctx, auditor, it)
	if err != nil {
		v = gate.ToolFailureVerdict(auditor, err.Error())
	}

	updated, stored, err := r.machine.Record(ctx, it.ID, v)
	if err != nil {
		rv.Error = err.Error()
		return rv
	}
	rv.Status = updated.Status
	rv.GatePassed = stored.GatePassed()
	rv.ToolFailure = stored.ToolFailure
	return rv
}

// evaluate runs one judge call under the shared rate limit, retrying
// transient failures with exponential backoff.
func (r *Runner) evaluate(ctx context.Context, auditor string, it bank.Item) (gate.Verdict, error) {
	var v gate.Verdict
	op := func() error {
		if err := r.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(fmt.Errorf("rate limit wait: %w", err))
		}
		var err error
		v, err = r.judge.Evaluate(ctx, auditor, it)
		if err == nil {
			return nil
		}
		if transient(err) {
			return err
		}
		return backoff.Permanent(err)
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(r.maxRetries)), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return gate.Verdict{}, err
	}
	return v, nil
}

// transient reports whether an evaluator error is worth retrying:
// rate limits and server-side failures are, everything else is not.
func transient(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	return false
}
