package rpc

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Addresses and IDs travel as 0x-prefixed hex strings on the wire.

func encodeAddress(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

func encodeID(id [32]byte) string {
	return "0x" + hex.EncodeToString(id[:])
}

func stripHexPrefix(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s[2:]
	}
	return s
}

func decodeAddress(s string) ([20]byte, error) {
	var addr [20]byte
	raw, err := hex.DecodeString(stripHexPrefix(s))
	if err != nil {
		return addr, fmt.Errorf("invalid address %q: %w", s, err)
	}
	if len(raw) != len(addr) {
		return addr, fmt.Errorf("invalid address length %d", len(raw))
	}
	copy(addr[:], raw)
	return addr, nil
}

func decodeID(s string) ([32]byte, error) {
	var id [32]byte
	raw, err := hex.DecodeString(stripHexPrefix(s))
	if err != nil {
		return id, fmt.Errorf("invalid id %q: %w", s, err)
	}
	if len(raw) != len(id) {
		return id, fmt.Errorf("invalid id length %d", len(raw))
	}
	copy(id[:], raw)
	return id, nil
}
