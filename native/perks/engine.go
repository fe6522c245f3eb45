package perks

import (
	"encoding/binary"
	"strings"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"alphapoints/core/events"
	nativecommon "alphapoints/native/common"
	"alphapoints/native/ledger"
	"alphapoints/native/oracle"
	"alphapoints/native/partner"
)

const moduleName = "perks"

// PriceRefreshInterval bounds how long a cached points price may serve
// claims before it must be recomputed from the USD anchor.
const PriceRefreshInterval = time.Hour

type engineState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVAppend(key []byte, value []byte) error
	KVGetList(key []byte, out *[][]byte) error
	HasRole(role string, addr []byte) bool
}

// Engine manages the perk catalog and claim lifecycle. Pricing flows
// through the oracle, quota through the partner registry, and funds
// through the points ledger.
type Engine struct {
	st       engineState
	partners *partner.Registry
	ledger   *ledger.Engine
	oracle   *oracle.Oracle
	emitter  events.Emitter
	pauses   nativecommon.PauseView
	nowFn    func() time.Time
}

func NewEngine(st engineState, partners *partner.Registry, ledgerEngine *ledger.Engine, o *oracle.Oracle) *Engine {
	return &Engine{
		st:       st,
		partners: partners,
		ledger:   ledgerEngine,
		oracle:   o,
		emitter:  events.NoopEmitter{},
		nowFn:    time.Now,
	}
}

func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e.emitter = emitter
}

func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

func (e *Engine) SetNowFunc(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	e.nowFn = now
}

// Rebind returns a copy of the engine whose state access and collaborators
// run against st, typically a transaction overlay.
func (e *Engine) Rebind(st engineState, partners *partner.Registry, ledgerEngine *ledger.Engine) *Engine {
	return &Engine{
		st:       st,
		partners: partners,
		ledger:   ledgerEngine,
		oracle:   e.oracle,
		emitter:  e.emitter,
		pauses:   e.pauses,
		nowFn:    e.nowFn,
	}
}

func (e *Engine) ready() error {
	if e == nil || e.st == nil || e.partners == nil || e.ledger == nil {
		return ErrNilState
	}
	return nil
}

// pointsPrice converts the micro-USD anchor into points at the oracle's
// current rate. A stale or unusable quote is a hard failure.
func (e *Engine) pointsPrice(usdPriceMicro uint64) (uint64, error) {
	quote, err := e.oracle.GetRate()
	if err != nil {
		return 0, err
	}
	return oracle.ConvertAssetToPoints(usdPriceMicro, quote.Rate, quote.Decimals)
}

func (e *Engine) nextCounter() (uint64, error) {
	var counter uint64
	if _, err := e.st.KVGet([]byte(counterKey), &counter); err != nil {
		return 0, err
	}
	counter++
	if err := e.st.KVPut([]byte(counterKey), counter); err != nil {
		return 0, err
	}
	return counter, nil
}

func newDefinitionID(creator partner.CapabilityID, name string, counter uint64) [32]byte {
	var nonce [8]byte
	binary.BigEndian.PutUint64(nonce[:], counter)
	digest := ethcrypto.Keccak256(creator[:], []byte(name), nonce[:])
	var id [32]byte
	copy(id[:], digest)
	return id
}

func newClaimID(def [32]byte, owner [20]byte, ordinal uint64) [32]byte {
	var nonce [8]byte
	binary.BigEndian.PutUint64(nonce[:], ordinal)
	digest := ethcrypto.Keccak256(def[:], owner[:], nonce[:])
	var id [32]byte
	copy(id[:], digest)
	return id
}

// CreateInput carries the caller-supplied fields of a new definition.
type CreateInput struct {
	Name            string
	Description     string
	PerkType        string
	Tags            []string
	USDPriceMicro   uint64
	PartnerSharePct uint8
	PartnerPayout   [20]byte
	PlatformPayout  [20]byte
	MaxClaims       *uint64
	MaxUsesPerClaim *uint64
	ExpiresAt       int64
	CooldownSeconds uint64
	UniqueMetadata  bool
}

// CreateDefinition publishes a perk under the partner capability after the
// full policy gate passes. The caller must own the capability or hold the
// partner admin role, and the capability must not be paused. The points
// price is fixed from the oracle at creation time and refreshed lazily on
// claims.
func (e *Engine) CreateDefinition(caller [20]byte, creator partner.CapabilityID, in CreateInput) (*Definition, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	capability, err := e.partners.Get(creator)
	if err != nil {
		return nil, err
	}
	if caller != capability.Owner && !e.st.HasRole(partner.RoleAdmin, caller[:]) {
		return nil, partner.ErrUnauthorized
	}
	if capability.Paused {
		return nil, partner.ErrCapabilityPaused
	}

	name := strings.TrimSpace(in.Name)
	if name == "" || strings.TrimSpace(in.PerkType) == "" || in.USDPriceMicro == 0 {
		return nil, ErrInvalidDefinition
	}
	// normalize tags before validation so the checked value is the stored one
	tags := make([]string, 0, len(in.Tags))
	for _, tag := range in.Tags {
		if trimmed := strings.TrimSpace(tag); trimmed != "" {
			tags = append(tags, trimmed)
		}
	}
	if in.PartnerSharePct > 100 {
		return nil, ErrShareOutOfRange
	}

	price, err := e.pointsPrice(in.USDPriceMicro)
	if err != nil {
		return nil, err
	}
	if price == 0 {
		return nil, ErrInvalidDefinition
	}

	now := e.nowFn()
	def := &Definition{
		Creator:            creator,
		Name:               name,
		Description:        strings.TrimSpace(in.Description),
		PerkType:           strings.TrimSpace(in.PerkType),
		Tags:               tags,
		USDPriceMicro:      in.USDPriceMicro,
		CurrentPointsPrice: price,
		LastPriceUpdate:    now.Unix(),
		Split: RevenueSplit{
			PartnerSharePct: in.PartnerSharePct,
			PartnerPayout:   in.PartnerPayout,
			PlatformPayout:  in.PlatformPayout,
		},
		ExpiresAt:       in.ExpiresAt,
		CooldownSeconds: in.CooldownSeconds,
		UniqueMetadata:  in.UniqueMetadata,
		Active:          true,
	}
	if in.MaxClaims != nil {
		v := *in.MaxClaims
		def.MaxClaims = &v
	}
	if in.MaxUsesPerClaim != nil {
		v := *in.MaxUsesPerClaim
		def.MaxUsesPerClaim = &v
	}

	if err := validateCreation(capability, def); err != nil {
		return nil, err
	}

	counter, err := e.nextCounter()
	if err != nil {
		return nil, err
	}
	def.ID = newDefinitionID(creator, name, counter)

	if err := e.st.KVPut(definitionKey(def.ID), def); err != nil {
		return nil, err
	}
	if err := e.st.KVAppend(creatorIndexKey(creator), def.ID[:]); err != nil {
		return nil, err
	}
	if err := e.partners.IncrementPerksCreated(creator); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.PerkDefinitionCreated{
		ID:          def.ID,
		Partner:     creator,
		Name:        def.Name,
		PerkType:    def.PerkType,
		PointsPrice: def.CurrentPointsPrice,
	})
	return def.Clone(), nil
}

// refreshPrice recomputes the cached points price when the cached value has
// outlived the refresh interval. The refreshed fields are written back by
// the caller together with the rest of the claim.
func (e *Engine) refreshPrice(def *Definition, now time.Time) error {
	if now.Unix()-def.LastPriceUpdate <= int64(PriceRefreshInterval/time.Second) {
		return nil
	}
	price, err := e.pointsPrice(def.USDPriceMicro)
	if err != nil {
		return err
	}
	if price != def.CurrentPointsPrice {
		e.emitter.Emit(events.PerkPriceRefreshed{
			Definition: def.ID,
			OldPrice:   def.CurrentPointsPrice,
			NewPrice:   price,
		})
	}
	def.CurrentPointsPrice = price
	def.LastPriceUpdate = now.Unix()
	return nil
}

// Claim debits the caller the full points price and splits it between the
// partner and platform payout accounts. The partner's share counts against
// its minting quota; the debit happens only after every gate has passed so
// a rejected claim leaves no balance, quota, or catalog mutation behind.
func (e *Engine) Claim(caller [20]byte, defID [32]byte) (*Claim, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	def, err := e.loadDefinition(defID)
	if err != nil {
		return nil, err
	}
	now := e.nowFn()
	if !def.Active {
		return nil, ErrPerkNotActive
	}
	if def.Expired(now.Unix()) {
		return nil, ErrPerkExpired
	}
	if def.CooldownSeconds > 0 {
		var last int64
		found, err := e.st.KVGet(lastClaimKey(defID, caller), &last)
		if err != nil {
			return nil, err
		}
		if found && now.Unix()-last < int64(def.CooldownSeconds) {
			return nil, ErrAlreadyClaimedTooSoon
		}
	}
	if err := e.refreshPrice(def, now); err != nil {
		return nil, err
	}
	if def.MaxClaims != nil && def.TotalClaims >= *def.MaxClaims {
		return nil, ErrMaxClaimsReached
	}

	capability, err := e.partners.Get(def.Creator)
	if err != nil {
		return nil, err
	}
	if capability.Paused {
		return nil, partner.ErrCapabilityPaused
	}

	price := def.CurrentPointsPrice
	partnerShare, err := shareOf(price, def.Split.PartnerSharePct)
	if err != nil {
		return nil, err
	}
	platformShare := price - partnerShare

	// The quota decrement and the ledger legs all validate before any of
	// them writes, so the whole claim either lands or leaves state as-is.
	available, err := e.ledger.Available(caller)
	if err != nil {
		return nil, err
	}
	if available < price {
		return nil, ledger.ErrInsufficientBalance
	}
	day := nativecommon.DayNumber(now.Unix())
	capability, err = e.partners.ConsumeQuota(def.Creator, partnerShare, day)
	if err != nil {
		return nil, err
	}
	if err := e.ledger.Spend(caller, price); err != nil {
		return nil, err
	}
	if err := e.ledger.Earn(def.Split.PartnerPayout, partnerShare); err != nil {
		return nil, err
	}
	if err := e.ledger.Earn(def.Split.PlatformPayout, platformShare); err != nil {
		return nil, err
	}

	if capability.ReinvestPct > 0 && partnerShare > 0 {
		reinvestPts, err := shareOf(partnerShare, capability.ReinvestPct)
		if err != nil {
			return nil, err
		}
		if reinvestPts > 0 {
			micro, err := oracle.ConvertPointsToMicroUSD(reinvestPts)
			if err != nil {
				return nil, err
			}
			if err := e.partners.ReinvestRevenue(def.Creator, micro); err != nil {
				return nil, err
			}
		}
	}

	def.TotalClaims++
	claim := &Claim{
		ID:         newClaimID(defID, caller, def.TotalClaims),
		Definition: defID,
		Owner:      caller,
		ClaimedAt:  now.Unix(),
		Status:     StatusActive,
	}
	if def.MaxUsesPerClaim != nil {
		uses := *def.MaxUsesPerClaim
		claim.RemainingUses = &uses
	}
	if def.UniqueMetadata {
		meta := &Metadata{
			ID:         newMetadataID(claim.ID),
			Definition: defID,
			Claim:      claim.ID,
			CreatedAt:  now.Unix(),
		}
		if err := e.st.KVPut(metadataKey(meta.ID), meta); err != nil {
			return nil, err
		}
		claim.MetadataID = meta.ID
	}

	if err := e.st.KVPut(definitionKey(defID), def); err != nil {
		return nil, err
	}
	if err := e.st.KVPut(claimKey(claim.ID), claim); err != nil {
		return nil, err
	}
	if err := e.st.KVAppend(ownerIndexKey(caller), claim.ID[:]); err != nil {
		return nil, err
	}
	if def.CooldownSeconds > 0 {
		if err := e.st.KVPut(lastClaimKey(defID, caller), now.Unix()); err != nil {
			return nil, err
		}
	}
	e.emitter.Emit(events.PerkClaimed{
		ClaimID:       claim.ID,
		Definition:    defID,
		Owner:         caller,
		Cost:          price,
		PartnerShare:  partnerShare,
		PlatformShare: platformShare,
		ClaimedAt:     claim.ClaimedAt,
	})
	return claim.Clone(), nil
}

// ConsumeUse burns one use of a consumable claim. The final use flips the
// claim to FULLY_CONSUMED.
func (e *Engine) ConsumeUse(caller [20]byte, claimID [32]byte, defID [32]byte) (*Claim, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	claim, err := e.loadClaim(claimID)
	if err != nil {
		return nil, err
	}
	if claim.Definition != defID {
		return nil, ErrWrongPerkDefinition
	}
	if claim.Owner != caller {
		return nil, ErrNotClaimOwner
	}
	if claim.RemainingUses == nil {
		return nil, ErrNotConsumable
	}
	if claim.Status == StatusFullyConsumed || *claim.RemainingUses == 0 {
		return nil, ErrMaxUsesReached
	}
	*claim.RemainingUses--
	if *claim.RemainingUses == 0 {
		claim.Status = StatusFullyConsumed
	}
	if err := e.st.KVPut(claimKey(claimID), claim); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.ClaimedPerkStatusUpdated{
		ClaimID:       claim.ID,
		Owner:         claim.Owner,
		Status:        claim.Status,
		RemainingUses: *claim.RemainingUses,
	})
	return claim.Clone(), nil
}

// SetActive toggles a definition's availability. Only the capability owner
// or an admin may flip it.
func (e *Engine) SetActive(caller [20]byte, defID [32]byte, active bool) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	def, err := e.loadDefinition(defID)
	if err != nil {
		return err
	}
	capability, err := e.partners.Get(def.Creator)
	if err != nil {
		return err
	}
	if caller != capability.Owner && !e.st.HasRole(partner.RoleAdmin, caller[:]) {
		return ErrNotPerkCreator
	}
	if def.Active == active {
		return nil
	}
	def.Active = active
	return e.st.KVPut(definitionKey(defID), def)
}

// UpdateDescription rewrites a definition's marketing copy without touching
// pricing or claim state. Only the capability owner or an admin may edit it.
func (e *Engine) UpdateDescription(caller [20]byte, defID [32]byte, description string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	def, err := e.loadDefinition(defID)
	if err != nil {
		return err
	}
	capability, err := e.partners.Get(def.Creator)
	if err != nil {
		return err
	}
	if caller != capability.Owner && !e.st.HasRole(partner.RoleAdmin, caller[:]) {
		return ErrNotPerkCreator
	}
	if def.Description == description {
		return nil
	}
	def.Description = description
	return e.st.KVPut(definitionKey(defID), def)
}

func (e *Engine) loadDefinition(id [32]byte) (*Definition, error) {
	def := new(Definition)
	found, err := e.st.KVGet(definitionKey(id), def)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrPerkNotFound
	}
	return def, nil
}

func (e *Engine) loadClaim(id [32]byte) (*Claim, error) {
	claim := new(Claim)
	found, err := e.st.KVGet(claimKey(id), claim)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrClaimNotFound
	}
	return claim, nil
}

// GetDefinition loads a definition by ID.
func (e *Engine) GetDefinition(id [32]byte) (*Definition, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	def, err := e.loadDefinition(id)
	if err != nil {
		return nil, err
	}
	return def.Clone(), nil
}

// GetClaim loads a claim by ID.
func (e *Engine) GetClaim(id [32]byte) (*Claim, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	claim, err := e.loadClaim(id)
	if err != nil {
		return nil, err
	}
	return claim.Clone(), nil
}

// GetMetadata loads a unique metadata record by ID.
func (e *Engine) GetMetadata(id [32]byte) (*Metadata, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	meta := new(Metadata)
	found, err := e.st.KVGet(metadataKey(id), meta)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrClaimNotFound
	}
	return meta, nil
}

// DefinitionsByCreator returns the IDs of every definition published under
// the capability, in creation order.
func (e *Engine) DefinitionsByCreator(creator partner.CapabilityID) ([][32]byte, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	return e.idList(creatorIndexKey(creator))
}

// ClaimsByOwner returns the IDs of every claim held by the address, in
// claim order.
func (e *Engine) ClaimsByOwner(owner [20]byte) ([][32]byte, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	return e.idList(ownerIndexKey(owner))
}

func (e *Engine) idList(key []byte) ([][32]byte, error) {
	var raw [][]byte
	if err := e.st.KVGetList(key, &raw); err != nil {
		return nil, err
	}
	ids := make([][32]byte, 0, len(raw))
	for _, entry := range raw {
		if len(entry) != 32 {
			continue
		}
		var id [32]byte
		copy(id[:], entry)
		ids = append(ids, id)
	}
	return ids, nil
}

func newMetadataID(claimID [32]byte) [32]byte {
	digest := ethcrypto.Keccak256([]byte("perks/metadata"), claimID[:])
	var id [32]byte
	copy(id[:], digest)
	return id
}

// shareOf computes pct percent of amount with overflow-checked math.
func shareOf(amount uint64, pct uint8) (uint64, error) {
	product, err := nativecommon.MulU64(amount, uint64(pct))
	if err != nil {
		return 0, err
	}
	return product / 100, nil
}
