package perks

import (
	"encoding/hex"

	"alphapoints/native/partner"
)

const (
	definitionPrefix = "perks/definition/"
	claimPrefix      = "perks/claim/"
	metadataPrefix   = "perks/metadata/"
	creatorPrefix    = "perks/creator/"
	ownerPrefix      = "perks/owner/"
	lastClaimPrefix  = "perks/lastclaim/"
	counterKey       = "perks/counter"
)

func definitionKey(id [32]byte) []byte {
	return []byte(definitionPrefix + hex.EncodeToString(id[:]))
}

func claimKey(id [32]byte) []byte {
	return []byte(claimPrefix + hex.EncodeToString(id[:]))
}

func metadataKey(id [32]byte) []byte {
	return []byte(metadataPrefix + hex.EncodeToString(id[:]))
}

func creatorIndexKey(id partner.CapabilityID) []byte {
	return []byte(creatorPrefix + hex.EncodeToString(id[:]))
}

func ownerIndexKey(addr [20]byte) []byte {
	return []byte(ownerPrefix + hex.EncodeToString(addr[:]))
}

func lastClaimKey(def [32]byte, addr [20]byte) []byte {
	return []byte(lastClaimPrefix + hex.EncodeToString(def[:]) + "/" + hex.EncodeToString(addr[:]))
}
