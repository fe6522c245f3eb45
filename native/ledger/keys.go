package ledger

import "encoding/hex"

var (
	balancePrefix = []byte("ledger/balance/")
	supplyKey     = []byte("ledger/supply")
)

func balanceKey(user [20]byte) []byte {
	encoded := hex.EncodeToString(user[:])
	buf := make([]byte, len(balancePrefix)+len(encoded))
	copy(buf, balancePrefix)
	copy(buf[len(balancePrefix):], encoded)
	return buf
}
