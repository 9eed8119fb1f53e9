package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"

	dErrors "custodia/pkg/domain-errors"
)

func TestParseIdentity(t *testing.T) {
	id, err := ParseIdentity("  acct-retailer-7 ")
	assert.NoError(t, err)
	assert.Equal(t, Identity("acct-retailer-7"), id)
	assert.False(t, id.IsZero())

	_, err = ParseIdentity("   ")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	assert.True(t, Nobody.IsZero())
}

func TestParseAssetID(t *testing.T) {
	id, err := ParseAssetID("1042")
	assert.NoError(t, err)
	assert.Equal(t, AssetID(1042), id)

	_, err = ParseAssetID("999")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest), "below the fixed base")

	_, err = ParseAssetID("not-a-number")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))

	_, err = ParseAssetID("-5")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func TestParseRole(t *testing.T) {
	for _, r := range BusinessRoles() {
		parsed, err := ParseRole(r.String())
		assert.NoError(t, err)
		assert.Equal(t, r, parsed)
	}

	_, err := ParseRole("admin")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	_, err = ParseRole("")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func TestClassifySale(t *testing.T) {
	assert.Equal(t, EventDistributionSale, ClassifySale(true, false))
	assert.Equal(t, EventDistributionSale, ClassifySale(true, true), "manufacturer wins over retailer")
	assert.Equal(t, EventRetailSale, ClassifySale(false, true))
	assert.Equal(t, EventSecondarySale, ClassifySale(false, false))
}

func TestWarrantyStatusTerminal(t *testing.T) {
	assert.True(t, WarrantyFulfilled.Terminal())
	assert.True(t, WarrantyExpired.Terminal())
	assert.False(t, WarrantyActive.Terminal())
	assert.False(t, WarrantyPending.Terminal())
	assert.False(t, WarrantyNone.Terminal())
}
