package events

import "alphapoints/core/types"

const (
	TypePointsEarned   = "points.earned"
	TypePointsSpent    = "points.spent"
	TypePointsLocked   = "points.locked"
	TypePointsUnlocked = "points.unlocked"
)

// PointsEarned is emitted when points are credited to a user's available
// balance and the global supply grows by the same amount.
type PointsEarned struct {
	User   [20]byte
	Amount uint64
	Supply uint64
}

func (PointsEarned) EventType() string { return TypePointsEarned }

func (e PointsEarned) Event() *types.Event {
	return &types.Event{
		Type: TypePointsEarned,
		Attributes: map[string]string{
			"user":   hexAddr(e.User),
			"amount": uintToString(e.Amount),
			"supply": uintToString(e.Supply),
		},
	}
}

// PointsSpent is emitted when points are debited from a user's available
// balance and burned out of the global supply.
type PointsSpent struct {
	User   [20]byte
	Amount uint64
	Supply uint64
}

func (PointsSpent) EventType() string { return TypePointsSpent }

func (e PointsSpent) Event() *types.Event {
	return &types.Event{
		Type: TypePointsSpent,
		Attributes: map[string]string{
			"user":   hexAddr(e.User),
			"amount": uintToString(e.Amount),
			"supply": uintToString(e.Supply),
		},
	}
}

// PointsLocked is emitted when available points are reserved, e.g. as loan
// collateral.
type PointsLocked struct {
	User   [20]byte
	Amount uint64
}

func (PointsLocked) EventType() string { return TypePointsLocked }

func (e PointsLocked) Event() *types.Event {
	return &types.Event{
		Type: TypePointsLocked,
		Attributes: map[string]string{
			"user":   hexAddr(e.User),
			"amount": uintToString(e.Amount),
		},
	}
}

// PointsUnlocked is emitted when reserved points return to the available
// balance.
type PointsUnlocked struct {
	User   [20]byte
	Amount uint64
}

func (PointsUnlocked) EventType() string { return TypePointsUnlocked }

func (e PointsUnlocked) Event() *types.Event {
	return &types.Event{
		Type: TypePointsUnlocked,
		Attributes: map[string]string{
			"user":   hexAddr(e.User),
			"amount": uintToString(e.Amount),
		},
	}
}
