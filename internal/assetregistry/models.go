package assetregistry

import (
	"time"

	"custodia/pkg/domain"
)

// Asset is the canonical record of one tracked product. The registry is the
// single source of truth for ownership; `Owner` is only ever mutated through
// the authorized transfer paths.
type Asset struct {
	ID                  domain.AssetID   `json:"id"`
	SerialNumber        string           `json:"serial_number"`
	ModelDetails        string           `json:"model_details"`
	ManufacturerDetails string           `json:"manufacturer_details"`
	WarrantyTermsRef    string           `json:"warranty_terms_ref"`
	CreatedAt           time.Time        `json:"created_at"`
	Owner               domain.Identity  `json:"owner"`
	Approved            domain.Identity  `json:"approved,omitempty"`
	Price               domain.Money     `json:"price"`
	Listed              bool             `json:"listed"`
	History             []TransferRecord `json:"history"`
}

// TransferRecord is one append-only entry in an asset's ownership history.
// Records are immutable once appended; their order is transaction order.
type TransferRecord struct {
	From  domain.Identity          `json:"from"`
	To    domain.Identity          `json:"to"`
	At    time.Time                `json:"at"`
	Event domain.TransferEventType `json:"event"`
}

// Clone returns a deep copy so store internals are never aliased by callers.
func (a *Asset) Clone() *Asset {
	if a == nil {
		return nil
	}
	cp := *a
	cp.History = append([]TransferRecord{}, a.History...)
	return &cp
}

// Verification is the read-only aggregate returned by the verify query:
// static metadata, current market state, current owner, and the full
// ownership history.
type Verification struct {
	ID                  domain.AssetID   `json:"id"`
	SerialNumber        string           `json:"serial_number"`
	ModelDetails        string           `json:"model_details"`
	ManufacturerDetails string           `json:"manufacturer_details"`
	WarrantyTermsRef    string           `json:"warranty_terms_ref"`
	CreatedAt           time.Time        `json:"created_at"`
	Owner               domain.Identity  `json:"owner"`
	Price               domain.Money     `json:"price"`
	Listed              bool             `json:"listed"`
	History             []TransferRecord `json:"history"`
}

func verificationOf(a *Asset) *Verification {
	return &Verification{
		ID:                  a.ID,
		SerialNumber:        a.SerialNumber,
		ModelDetails:        a.ModelDetails,
		ManufacturerDetails: a.ManufacturerDetails,
		WarrantyTermsRef:    a.WarrantyTermsRef,
		CreatedAt:           a.CreatedAt,
		Owner:               a.Owner,
		Price:               a.Price,
		Listed:              a.Listed,
		History:             append([]TransferRecord{}, a.History...),
	}
}
