package partner

import (
	"encoding/binary"
	"fmt"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"alphapoints/core/events"
	nativecommon "alphapoints/native/common"
)

const (
	// RoleAdmin may create capabilities on behalf of partners, pause any
	// capability and revoke capabilities outright.
	RoleAdmin = "ROLE_PARTNER_ADMIN"

	moduleName = "partner"
)

type registryState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
	KVAppend(key []byte, value []byte) error
	HasRole(role string, addr []byte) bool
}

// Registry manages persistence and lifecycle of partner capabilities.
type Registry struct {
	st      registryState
	emitter events.Emitter
	pauses  nativecommon.PauseView
}

// NewRegistry creates a registry backed by the provided state.
func NewRegistry(st registryState) *Registry {
	return &Registry{st: st, emitter: events.NoopEmitter{}}
}

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (r *Registry) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		r.emitter = events.NoopEmitter{}
		return
	}
	r.emitter = emitter
}

// SetPauses wires the operator pause switches.
func (r *Registry) SetPauses(p nativecommon.PauseView) {
	if r == nil {
		return
	}
	r.pauses = p
}

// Rebind returns a registry bound to a different state handle, e.g. a
// transaction overlay, sharing emitter and pause configuration.
func (r *Registry) Rebind(st registryState) *Registry {
	return &Registry{st: st, emitter: r.emitter, pauses: r.pauses}
}

func (r *Registry) nextCounter() (uint64, error) {
	var counter uint64
	if _, err := r.st.KVGet(counterKey, &counter); err != nil {
		return 0, err
	}
	counter++
	if err := r.st.KVPut(counterKey, counter); err != nil {
		return 0, err
	}
	return counter, nil
}

func newCapabilityID(owner [20]byte, name string, counter uint64) CapabilityID {
	var nonce [8]byte
	binary.BigEndian.PutUint64(nonce[:], counter)
	digest := ethcrypto.Keccak256(owner[:], []byte(name), nonce[:])
	var id CapabilityID
	copy(id[:], digest)
	return id
}

// Create mints a capability for the owner against the supplied collateral
// valuation. The caller must be the owner or hold RoleAdmin. A collateral
// value that converts to a zero daily quota is rejected.
func (r *Registry) Create(caller, owner [20]byte, name string, collateralMicroUSD uint64, day uint64) (*Capability, error) {
	if r == nil || r.st == nil {
		return nil, ErrNilState
	}
	if err := nativecommon.Guard(r.pauses, moduleName); err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, ErrInvalidName
	}
	if caller != owner && !r.st.HasRole(RoleAdmin, caller[:]) {
		return nil, ErrUnauthorized
	}
	dailyQuota, err := ComputeDailyQuota(collateralMicroUSD)
	if err != nil {
		return nil, err
	}
	if dailyQuota == 0 {
		return nil, ErrZeroCollateral
	}
	counter, err := r.nextCounter()
	if err != nil {
		return nil, err
	}
	c := &Capability{
		ID:                 newCapabilityID(owner, trimmed, counter),
		Owner:              owner,
		Name:               trimmed,
		CollateralMicroUSD: collateralMicroUSD,
		DailyQuota:         dailyQuota,
		MintRemainingToday: dailyQuota,
		LastEpochReset:     day,
		LifetimeQuota:      ComputeLifetimeQuota(dailyQuota),
		Policy:             DefaultPolicy(),
	}
	if err := r.st.KVPut(capabilityKey(c.ID), c); err != nil {
		return nil, err
	}
	if err := r.st.KVAppend(ownerIndexKey(owner), c.ID[:]); err != nil {
		return nil, err
	}
	r.emitter.Emit(events.PartnerCreated{
		ID:                 c.ID,
		Owner:              c.Owner,
		Name:               c.Name,
		CollateralMicroUSD: c.CollateralMicroUSD,
		DailyQuota:         c.DailyQuota,
		LifetimeQuota:      c.LifetimeQuota,
	})
	return c.Clone(), nil
}

// Get loads a capability by ID.
func (r *Registry) Get(id CapabilityID) (*Capability, error) {
	if r == nil || r.st == nil {
		return nil, ErrNilState
	}
	c := new(Capability)
	ok, err := r.st.KVGet(capabilityKey(id), c)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrCapabilityNotFound
	}
	return c, nil
}

func (r *Registry) store(c *Capability) error {
	return r.st.KVPut(capabilityKey(c.ID), c)
}

func (r *Registry) authorize(caller [20]byte, c *Capability) error {
	if caller != c.Owner && !r.st.HasRole(RoleAdmin, caller[:]) {
		return ErrUnauthorized
	}
	return nil
}

// Pause suspends minting through the capability.
func (r *Registry) Pause(caller [20]byte, id CapabilityID) error {
	c, err := r.Get(id)
	if err != nil {
		return err
	}
	if err := r.authorize(caller, c); err != nil {
		return err
	}
	if c.Paused {
		return nil
	}
	c.Paused = true
	if err := r.store(c); err != nil {
		return err
	}
	r.emitter.Emit(events.PartnerPaused{ID: c.ID, Caller: caller})
	return nil
}

// Resume reactivates a paused capability.
func (r *Registry) Resume(caller [20]byte, id CapabilityID) error {
	c, err := r.Get(id)
	if err != nil {
		return err
	}
	if err := r.authorize(caller, c); err != nil {
		return err
	}
	if !c.Paused {
		return nil
	}
	c.Paused = false
	if err := r.store(c); err != nil {
		return err
	}
	r.emitter.Emit(events.PartnerResumed{ID: c.ID, Caller: caller})
	return nil
}

// Revoke destroys the capability. Admin only; this is the single terminal
// transition in a capability's lifecycle.
func (r *Registry) Revoke(caller [20]byte, id CapabilityID) error {
	if r == nil || r.st == nil {
		return ErrNilState
	}
	if !r.st.HasRole(RoleAdmin, caller[:]) {
		return ErrUnauthorized
	}
	if _, err := r.Get(id); err != nil {
		return err
	}
	if err := r.st.KVDelete(capabilityKey(id)); err != nil {
		return err
	}
	r.emitter.Emit(events.PartnerRevoked{ID: id, Caller: caller})
	return nil
}

// SetPolicy replaces the perk-control policy sub-record.
func (r *Registry) SetPolicy(caller [20]byte, id CapabilityID, policy Policy) error {
	if err := policy.Validate(); err != nil {
		return err
	}
	c, err := r.Get(id)
	if err != nil {
		return err
	}
	if err := r.authorize(caller, c); err != nil {
		return err
	}
	c.Policy = policy
	return r.store(c)
}

// SetReinvestPct configures the slice of perk revenue recycled into the
// capability's effective collateral on each claim.
func (r *Registry) SetReinvestPct(caller [20]byte, id CapabilityID, pct uint8) error {
	if pct > 100 {
		return fmt.Errorf("%w: reinvest pct %d", ErrInvalidPolicy, pct)
	}
	c, err := r.Get(id)
	if err != nil {
		return err
	}
	if err := r.authorize(caller, c); err != nil {
		return err
	}
	c.ReinvestPct = pct
	return r.store(c)
}

func (r *Registry) raiseCollateral(c *Capability, addMicroUSD uint64, reason string) error {
	newCollateral, err := nativecommon.AddU64(c.CollateralMicroUSD, addMicroUSD)
	if err != nil {
		return err
	}
	dailyQuota, err := ComputeDailyQuota(newCollateral)
	if err != nil {
		return err
	}
	c.CollateralMicroUSD = newCollateral
	c.DailyQuota = dailyQuota
	c.LifetimeQuota = ComputeLifetimeQuota(dailyQuota)
	// Today's remaining throttle is untouched; the raise takes effect at the
	// next lazy reset.
	if err := r.store(c); err != nil {
		return err
	}
	r.emitter.Emit(events.PartnerCollateralIncreased{
		ID:                 c.ID,
		AddedMicroUSD:      addMicroUSD,
		CollateralMicroUSD: c.CollateralMicroUSD,
		DailyQuota:         c.DailyQuota,
		Reason:             reason,
	})
	return nil
}

// TopUpCollateral records an additional collateral deposit, raising future
// daily quotas.
func (r *Registry) TopUpCollateral(caller [20]byte, id CapabilityID, addMicroUSD uint64) error {
	if addMicroUSD == 0 {
		return ErrZeroCollateral
	}
	c, err := r.Get(id)
	if err != nil {
		return err
	}
	if err := r.authorize(caller, c); err != nil {
		return err
	}
	return r.raiseCollateral(c, addMicroUSD, "topup")
}

// ReinvestRevenue folds recycled perk revenue into the capability's effective
// collateral. Invoked deliberately by the claim flow after the partner's
// share has been credited; a zero value is a no-op.
func (r *Registry) ReinvestRevenue(id CapabilityID, addMicroUSD uint64) error {
	if addMicroUSD == 0 {
		return nil
	}
	c, err := r.Get(id)
	if err != nil {
		return err
	}
	return r.raiseCollateral(c, addMicroUSD, "reinvest")
}

// ResetDailyIfNeeded runs the lazy daily throttle reset and persists the
// result when a reset occurred. Returns the up-to-date capability.
func (r *Registry) ResetDailyIfNeeded(id CapabilityID, day uint64) (*Capability, error) {
	c, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	if c.ResetDailyIfNeeded(day) {
		if err := r.store(c); err != nil {
			return nil, err
		}
		r.emitter.Emit(events.PartnerQuotaReset{ID: c.ID, Day: day, DailyQuota: c.DailyQuota})
	}
	return c, nil
}

// ConsumeQuota runs the full mint-gating sequence for the given day: lazy
// reset, pause check, daily and lifetime validation, decrement, lifetime
// record, persist. Any error leaves the stored capability unchanged.
func (r *Registry) ConsumeQuota(id CapabilityID, points uint64, day uint64) (*Capability, error) {
	if err := nativecommon.Guard(r.pauses, moduleName); err != nil {
		return nil, err
	}
	c, err := r.ResetDailyIfNeeded(id, day)
	if err != nil {
		return nil, err
	}
	if err := c.ValidateAndDecrement(points); err != nil {
		return nil, err
	}
	c.RecordMinted(points)
	if err := r.store(c); err != nil {
		return nil, err
	}
	return c, nil
}

// IncrementPerksCreated bumps the running perk counter checked by the
// creation gate.
func (r *Registry) IncrementPerksCreated(id CapabilityID) error {
	c, err := r.Get(id)
	if err != nil {
		return err
	}
	c.PerksCreated++
	return r.store(c)
}
