package partner

import "encoding/hex"

var (
	capabilityPrefix = []byte("partner/capability/")
	ownerIndexPrefix = []byte("partner/owner/")
	counterKey       = []byte("partner/counter")
)

func capabilityKey(id CapabilityID) []byte {
	encoded := hex.EncodeToString(id[:])
	buf := make([]byte, len(capabilityPrefix)+len(encoded))
	copy(buf, capabilityPrefix)
	copy(buf[len(capabilityPrefix):], encoded)
	return buf
}

func ownerIndexKey(owner [20]byte) []byte {
	encoded := hex.EncodeToString(owner[:])
	buf := make([]byte, len(ownerIndexPrefix)+len(encoded))
	copy(buf, ownerIndexPrefix)
	copy(buf[len(ownerIndexPrefix):], encoded)
	return buf
}
