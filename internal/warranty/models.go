package warranty

import (
	"time"

	"custodia/pkg/domain"
)

// Warranty is the per-asset coverage record. LastRecordedStatus is the status
// as of the last mutation; because nothing advances time-based state between
// calls, expiry is computed lazily at read time and the stored status may
// legitimately lag EffectiveStatus.
type Warranty struct {
	AssetID            domain.AssetID        `json:"asset_id"`
	StartDate          time.Time             `json:"start_date"`
	DurationDays       int                   `json:"duration_days"`
	MaxClaims          int                   `json:"max_claims"`
	ClaimedCount       int                   `json:"claimed_count"`
	LastRecordedStatus domain.WarrantyStatus `json:"status"`
	ServiceLog         []LogEntry            `json:"service_log"`
}

// LogEntry is one service-log line: a claim request, an approval note or a
// rejection reason.
type LogEntry struct {
	At   time.Time `json:"at"`
	Kind string    `json:"kind"`
	Note string    `json:"note"`
}

// Log entry kinds.
const (
	LogRequested = "requested"
	LogApproved  = "approved"
	LogRejected  = "rejected"
)

// ExpiresAt is the end of the coverage window.
func (w *Warranty) ExpiresAt() time.Time {
	return w.StartDate.AddDate(0, 0, w.DurationDays)
}

// EffectiveStatus collapses the stored status against the clock: an Active or
// Pending warranty whose window has elapsed reads as Expired without any
// stored mutation. Fulfilled is terminal regardless of time.
func (w *Warranty) EffectiveStatus(now time.Time) domain.WarrantyStatus {
	switch w.LastRecordedStatus {
	case domain.WarrantyActive, domain.WarrantyPending:
		if !now.Before(w.ExpiresAt()) {
			return domain.WarrantyExpired
		}
	}
	return w.LastRecordedStatus
}

// Valid reports whether a claim could still be entertained at now: the status
// must collapse to Active or Pending and the claim cap must not be reached.
func (w *Warranty) Valid(now time.Time) bool {
	status := w.EffectiveStatus(now)
	if status != domain.WarrantyActive && status != domain.WarrantyPending {
		return false
	}
	return w.ClaimedCount < w.MaxClaims
}

// Clone returns a deep copy so store internals are never aliased by callers.
func (w *Warranty) Clone() *Warranty {
	if w == nil {
		return nil
	}
	cp := *w
	cp.ServiceLog = append([]LogEntry{}, w.ServiceLog...)
	return &cp
}
