package domain

// WarrantyStatus is the claim state of an asset's warranty. The stored status
// may legitimately lag the effective status: expiry is derived lazily at read
// time, never eagerly transitioned.
type WarrantyStatus string

const (
	WarrantyNone      WarrantyStatus = "none"
	WarrantyActive    WarrantyStatus = "active"
	WarrantyPending   WarrantyStatus = "pending"
	WarrantyExpired   WarrantyStatus = "expired"
	WarrantyFulfilled WarrantyStatus = "fulfilled"
)

func (s WarrantyStatus) String() string {
	return string(s)
}

// Terminal reports whether no further claims can ever be made from this
// status.
func (s WarrantyStatus) Terminal() bool {
	return s == WarrantyFulfilled || s == WarrantyExpired
}
