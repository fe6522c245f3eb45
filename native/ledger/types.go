package ledger

// PointBalance tracks a user's spendable and reserved points. Entries are
// created lazily on first credit and persist at zero; they are never deleted.
type PointBalance struct {
	Available uint64 `json:"available"`
	Locked    uint64 `json:"locked"`
}

// Total returns the combined balance. The fields are uint64 so the sum can in
// principle wrap, but engine invariants keep Available+Locked below the global
// supply, which is itself overflow-checked.
func (b PointBalance) Total() uint64 {
	return b.Available + b.Locked
}
