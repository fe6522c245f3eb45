// Package points ties the native engines together behind one service
// facade. Every mutating operation runs inside a state transaction so a
// failure anywhere in the sequence rolls the whole operation back, events
// included.
package points

import (
	"sync"
	"time"

	"alphapoints/native/common"
	"alphapoints/native/ledger"
	"alphapoints/native/oracle"
	"alphapoints/native/partner"
	"alphapoints/native/perks"
	"alphapoints/state"
)

// Service is the mutating entry point used by the RPC layer. Callers are
// identified by explicit addresses; authentication happens upstream.
type Service struct {
	mgr    *state.Manager
	oracle *oracle.Oracle

	ledger   *ledger.Engine
	partners *partner.Registry
	perks    *perks.Engine

	mu    sync.Mutex
	nowFn func() time.Time
}

// NewService wires the engines over a shared state manager. Engines emit
// into the manager's journal; operations re-route emission through their
// transaction while it is open.
func NewService(mgr *state.Manager, o *oracle.Oracle) *Service {
	ledgerEngine := ledger.NewEngine(mgr)
	ledgerEngine.SetEmitter(mgr)
	ledgerEngine.SetPauses(mgr)

	partners := partner.NewRegistry(mgr)
	partners.SetEmitter(mgr)
	partners.SetPauses(mgr)

	perksEngine := perks.NewEngine(mgr, partners, ledgerEngine, o)
	perksEngine.SetEmitter(mgr)
	perksEngine.SetPauses(mgr)

	return &Service{
		mgr:      mgr,
		oracle:   o,
		ledger:   ledgerEngine,
		partners: partners,
		perks:    perksEngine,
		nowFn:    time.Now,
	}
}

// SetNowFunc overrides the clock, used by tests and deterministic replays.
func (s *Service) SetNowFunc(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	s.nowFn = now
	s.perks.SetNowFunc(now)
}

// State exposes the underlying manager for wiring subscribers and reads.
func (s *Service) State() *state.Manager {
	return s.mgr
}

func (s *Service) day() uint64 {
	return common.DayOf(s.nowFn())
}

type txnEnv struct {
	ledger   *ledger.Engine
	partners *partner.Registry
	perks    *perks.Engine
}

// withTxn runs fn against engine copies bound to a fresh transaction.
// Commit only happens when fn succeeds; otherwise the overlay is dropped
// and no write or event reaches the manager.
func (s *Service) withTxn(fn func(env txnEnv) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	txn := s.mgr.Begin()
	boundLedger := s.ledger.Rebind(txn)
	boundLedger.SetEmitter(txn)
	boundPartners := s.partners.Rebind(txn)
	boundPartners.SetEmitter(txn)
	boundPerks := s.perks.Rebind(txn, boundPartners, boundLedger)
	boundPerks.SetEmitter(txn)

	env := txnEnv{ledger: boundLedger, partners: boundPartners, perks: boundPerks}
	if err := fn(env); err != nil {
		txn.Abort()
		return err
	}
	return txn.Commit()
}

// EarnFromPartner mints points to a user against the partner's daily and
// lifetime quotas. The caller must own the capability or hold the partner
// admin role.
func (s *Service) EarnFromPartner(caller [20]byte, id partner.CapabilityID, user [20]byte, amount uint64) error {
	return s.withTxn(func(env txnEnv) error {
		capability, err := env.partners.Get(id)
		if err != nil {
			return err
		}
		if caller != capability.Owner && !s.mgr.HasRole(partner.RoleAdmin, caller[:]) {
			return partner.ErrUnauthorized
		}
		if _, err := env.partners.ConsumeQuota(id, amount, s.day()); err != nil {
			return err
		}
		return env.ledger.Earn(user, amount)
	})
}

// RedeemPoints burns points out of the caller's available balance and
// returns the asset amount the external payout rail owes the caller. A
// stale oracle fails the redemption before any balance moves.
func (s *Service) RedeemPoints(caller [20]byte, amount uint64) (uint64, error) {
	quote, err := s.oracle.GetRate()
	if err != nil {
		return 0, err
	}
	asset, err := oracle.ConvertPointsToAsset(amount, quote.Rate, quote.Decimals)
	if err != nil {
		return 0, err
	}
	err = s.withTxn(func(env txnEnv) error {
		return env.ledger.Spend(caller, amount)
	})
	if err != nil {
		return 0, err
	}
	return asset, nil
}

// LockPoints reserves available points.
func (s *Service) LockPoints(caller [20]byte, amount uint64) error {
	return s.withTxn(func(env txnEnv) error {
		return env.ledger.Lock(caller, amount)
	})
}

// UnlockPoints releases previously locked points.
func (s *Service) UnlockPoints(caller [20]byte, amount uint64) error {
	return s.withTxn(func(env txnEnv) error {
		return env.ledger.Unlock(caller, amount)
	})
}

// CreatePartner registers a capability backed by the stated collateral.
func (s *Service) CreatePartner(caller, owner [20]byte, name string, collateralMicroUSD uint64) (*partner.Capability, error) {
	var created *partner.Capability
	err := s.withTxn(func(env txnEnv) error {
		var err error
		created, err = env.partners.Create(caller, owner, name, collateralMicroUSD, s.day())
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// PausePartner suspends a capability.
func (s *Service) PausePartner(caller [20]byte, id partner.CapabilityID) error {
	return s.withTxn(func(env txnEnv) error {
		return env.partners.Pause(caller, id)
	})
}

// ResumePartner lifts a capability suspension.
func (s *Service) ResumePartner(caller [20]byte, id partner.CapabilityID) error {
	return s.withTxn(func(env txnEnv) error {
		return env.partners.Resume(caller, id)
	})
}

// RevokePartner deletes a capability. Admin only.
func (s *Service) RevokePartner(caller [20]byte, id partner.CapabilityID) error {
	return s.withTxn(func(env txnEnv) error {
		return env.partners.Revoke(caller, id)
	})
}

// SetPartnerPolicy replaces the capability's perk policy.
func (s *Service) SetPartnerPolicy(caller [20]byte, id partner.CapabilityID, policy partner.Policy) error {
	return s.withTxn(func(env txnEnv) error {
		return env.partners.SetPolicy(caller, id, policy)
	})
}

// SetPartnerReinvestPct configures the revenue slice recycled into
// collateral on each claim.
func (s *Service) SetPartnerReinvestPct(caller [20]byte, id partner.CapabilityID, pct uint8) error {
	return s.withTxn(func(env txnEnv) error {
		return env.partners.SetReinvestPct(caller, id, pct)
	})
}

// TopUpCollateral raises the capability's collateral valuation and with it
// the daily quota.
func (s *Service) TopUpCollateral(caller [20]byte, id partner.CapabilityID, addMicroUSD uint64) error {
	return s.withTxn(func(env txnEnv) error {
		return env.partners.TopUpCollateral(caller, id, addMicroUSD)
	})
}

// CreatePerk publishes a perk definition under the capability.
func (s *Service) CreatePerk(caller [20]byte, id partner.CapabilityID, in perks.CreateInput) (*perks.Definition, error) {
	var created *perks.Definition
	err := s.withTxn(func(env txnEnv) error {
		var err error
		created, err = env.perks.CreateDefinition(caller, id, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ClaimPerk purchases a perk for the caller.
func (s *Service) ClaimPerk(caller [20]byte, defID [32]byte) (*perks.Claim, error) {
	var claimed *perks.Claim
	err := s.withTxn(func(env txnEnv) error {
		var err error
		claimed, err = env.perks.Claim(caller, defID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// ConsumePerkUse burns one use of a consumable claim.
func (s *Service) ConsumePerkUse(caller [20]byte, claimID, defID [32]byte) (*perks.Claim, error) {
	var updated *perks.Claim
	err := s.withTxn(func(env txnEnv) error {
		var err error
		updated, err = env.perks.ConsumeUse(caller, claimID, defID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// SetPerkActive toggles a definition's availability.
func (s *Service) SetPerkActive(caller [20]byte, defID [32]byte, active bool) error {
	return s.withTxn(func(env txnEnv) error {
		return env.perks.SetActive(caller, defID, active)
	})
}

// UpdatePerkDescription rewrites a definition's description.
func (s *Service) UpdatePerkDescription(caller [20]byte, defID [32]byte, description string) error {
	return s.withTxn(func(env txnEnv) error {
		return env.perks.UpdateDescription(caller, defID, description)
	})
}

// Balance returns the caller-visible sub-balances.
func (s *Service) Balance(user [20]byte) (available, locked uint64, err error) {
	available, err = s.ledger.Available(user)
	if err != nil {
		return 0, 0, err
	}
	locked, err = s.ledger.LockedBalance(user)
	if err != nil {
		return 0, 0, err
	}
	return available, locked, nil
}

// Supply returns the global points supply.
func (s *Service) Supply() (uint64, error) {
	return s.ledger.Supply()
}

// GetPartner loads a capability.
func (s *Service) GetPartner(id partner.CapabilityID) (*partner.Capability, error) {
	return s.partners.Get(id)
}

// GetPerk loads a definition.
func (s *Service) GetPerk(id [32]byte) (*perks.Definition, error) {
	return s.perks.GetDefinition(id)
}

// GetClaim loads a claim.
func (s *Service) GetClaim(id [32]byte) (*perks.Claim, error) {
	return s.perks.GetClaim(id)
}

// PerksByPartner lists the definition IDs published under a capability.
func (s *Service) PerksByPartner(id partner.CapabilityID) ([][32]byte, error) {
	return s.perks.DefinitionsByCreator(id)
}

// ClaimsByOwner lists the claim IDs held by an address.
func (s *Service) ClaimsByOwner(owner [20]byte) ([][32]byte, error) {
	return s.perks.ClaimsByOwner(owner)
}
