package bank

import "fmt"

// Collision-rate thresholds. Advisory for the generator operating the
// ingestion API; nothing in the core enforces them.
const (
	saturatingRate = 0.30
	degradingRate  = 0.50
	stopRate       = 0.80
)

type CollisionLevel string

const (
	CollisionOK         CollisionLevel = "ok"
	CollisionSaturating CollisionLevel = "saturating"
	CollisionDegrading  CollisionLevel = "degrading"
	CollisionStop       CollisionLevel = "stop"
)

// CollisionReport summarizes one ingestion batch: how many inserts
// were attempted and how many were skipped as fingerprint duplicates.
type CollisionReport struct {
	Attempted int `json:"attempted"`
	Inserted  int `json:"inserted"`
	Skipped   int `json:"skipped"`
}

// Rate is skipped/attempted; zero for an empty batch.
func (r CollisionReport) Rate() float64 {
	if r.Attempted == 0 {
		return 0
	}
	return float64(r.Skipped) / float64(r.Attempted)
}

func (r CollisionReport) Level() CollisionLevel {
	rate := r.Rate()
	switch {
	case rate >= stopRate:
		return CollisionStop
	case rate >= degradingRate:
		return CollisionDegrading
	case rate >= saturatingRate:
		return CollisionSaturating
	}
	return CollisionOK
}

// Advice renders the level as the sentence shown to generator operators.
func (r CollisionReport) Advice() string {
	switch r.Level() {
	case CollisionStop:
		return fmt.Sprintf("collision rate %.0f%%: slice exhausted, stop generating for it", r.Rate()*100)
	case CollisionDegrading:
		return fmt.Sprintf("collision rate %.0f%%: returns are degrading, consider moving on", r.Rate()*100)
	case CollisionSaturating:
		return fmt.Sprintf("collision rate %.0f%%: slice is saturating", r.Rate()*100)
	}
	return ""
}
