// Package domain holds the value types shared by every component: principal
// identities, asset ids, roles, transfer classifications and warranty
// statuses. Construct values via the Parse helpers at trust boundaries;
// direct casting bypasses validation.
package domain

import (
	"strconv"
	"strings"

	dErrors "custodia/pkg/domain-errors"
)

// Identity is an opaque principal id. Identities are issued outside this
// system (the JWT subject claim in the HTTP transport) and are never created
// or destroyed here.
type Identity string

// Nobody is the absent identity, used as the transfer source of a mint
// record. It is never a valid owner.
const Nobody Identity = ""

// ParseIdentity validates an externally supplied principal id.
func ParseIdentity(s string) (Identity, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Nobody, dErrors.New(dErrors.CodeBadRequest, "identity cannot be empty")
	}
	return Identity(trimmed), nil
}

// IsZero reports whether the identity is the absent identity.
func (i Identity) IsZero() bool {
	return i == Nobody
}

func (i Identity) String() string {
	return string(i)
}

// AssetID uniquely identifies a minted asset. Ids are assigned sequentially
// starting at FirstAssetID and are never reused.
type AssetID uint64

// FirstAssetID is the id of the first asset ever minted.
const FirstAssetID AssetID = 1000

// ParseAssetID validates an externally supplied asset id.
func ParseAssetID(s string) (AssetID, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeBadRequest, "invalid asset id")
	}
	if AssetID(n) < FirstAssetID {
		return 0, dErrors.New(dErrors.CodeBadRequest, "asset id out of range")
	}
	return AssetID(n), nil
}

// IsZero reports whether the id is unset.
func (a AssetID) IsZero() bool {
	return a == 0
}

func (a AssetID) String() string {
	return strconv.FormatUint(uint64(a), 10)
}

// Money is an amount in the smallest currency unit. Amounts are never
// negative by construction.
type Money uint64

func (m Money) String() string {
	return strconv.FormatUint(uint64(m), 10)
}
