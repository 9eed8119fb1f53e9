package domain

// TransferEventType classifies an entry in an asset's ownership history. The
// classification is decided by the marketplace coordinator, which alone knows
// the roles of both parties at sale time.
type TransferEventType string

const (
	// EventMintListed marks the creation record: the asset enters the
	// ledger already listed for sale by its manufacturer.
	EventMintListed TransferEventType = "MINT_LISTED"
	// EventDistributionSale is a purchase from a manufacturer by a
	// retailer (the only buyer tier permitted at that stage).
	EventDistributionSale TransferEventType = "DISTRIBUTION_SALE"
	// EventRetailSale is a purchase from a retailer.
	EventRetailSale TransferEventType = "RETAIL_SALE"
	// EventSecondarySale is a purchase from a plain consumer.
	EventSecondarySale TransferEventType = "SECONDARY_SALE"
	// EventPeerTransfer is a direct transfer outside the marketplace.
	EventPeerTransfer TransferEventType = "PEER_TRANSFER"
)

// ClassifySale picks the history classification for a completed purchase
// from the seller's roles.
func ClassifySale(sellerIsManufacturer, sellerIsRetailer bool) TransferEventType {
	switch {
	case sellerIsManufacturer:
		return EventDistributionSale
	case sellerIsRetailer:
		return EventRetailSale
	default:
		return EventSecondarySale
	}
}
