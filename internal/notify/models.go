// Package notify carries the lifecycle notifications the business operations
// emit: listings, completed sales, service requests and claim resolutions.
// Emission is best-effort and never fails the emitting operation.
package notify

import (
	"time"

	"github.com/google/uuid"

	"custodia/pkg/domain"
)

// EventType classifies a notification.
type EventType string

const (
	EventListed           EventType = "LISTED"
	EventSold             EventType = "SOLD"
	EventServiceRequested EventType = "SERVICE_REQUESTED"
	EventClaimResolved    EventType = "CLAIM_RESOLVED"
	EventClaimRejected    EventType = "CLAIM_REJECTED"

	// EventWarrantyIssueFailed marks a minted asset whose warranty issuance
	// failed, so the residue stays auditable until issuance is retried.
	EventWarrantyIssueFailed EventType = "WARRANTY_ISSUE_FAILED"
)

// Event is emitted from domain logic. Keep it transport-agnostic so stores
// and sinks can fan out.
type Event struct {
	ID           string            `json:"id"`
	Type         EventType         `json:"type"`
	AssetID      domain.AssetID    `json:"asset_id"`
	Actor        domain.Identity   `json:"actor"`
	Counterparty domain.Identity   `json:"counterparty,omitempty"`
	Amount       domain.Money      `json:"amount,omitempty"`
	Note         string            `json:"note,omitempty"`
	ClaimCount   int               `json:"claim_count,omitempty"`
	Timestamp    time.Time         `json:"timestamp"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// fill assigns the id and timestamp when the emitter left them unset.
func (e Event) fill(now time.Time) Event {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = now
	}
	return e
}
