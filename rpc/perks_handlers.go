package rpc

import (
	"net/http"

	"alphapoints/native/perks"
)

type perkCreateParams struct {
	PartnerID       string   `json:"partnerId"`
	Name            string   `json:"name"`
	Description     string   `json:"description,omitempty"`
	PerkType        string   `json:"perkType"`
	Tags            []string `json:"tags,omitempty"`
	USDPriceMicro   uint64   `json:"usdPriceMicro"`
	PartnerSharePct uint8    `json:"partnerSharePct"`
	PartnerPayout   string   `json:"partnerPayout"`
	PlatformPayout  string   `json:"platformPayout"`
	MaxClaims       *uint64  `json:"maxClaims,omitempty"`
	MaxUsesPerClaim *uint64  `json:"maxUsesPerClaim,omitempty"`
	ExpiresAt       int64    `json:"expiresAt,omitempty"`
	CooldownSeconds uint64   `json:"cooldownSeconds,omitempty"`
	UniqueMetadata  bool     `json:"uniqueMetadata,omitempty"`
}

type perkIDParams struct {
	PerkID string `json:"perkId"`
}

type perkListParams struct {
	PartnerID string `json:"partnerId"`
}

type perkSetActiveParams struct {
	PerkID string `json:"perkId"`
	Active bool   `json:"active"`
}

type claimIDParams struct {
	ClaimID string `json:"claimId"`
}

type claimListParams struct {
	Owner string `json:"owner"`
}

type consumeUseParams struct {
	ClaimID string `json:"claimId"`
	PerkID  string `json:"perkId"`
}

type perkResult struct {
	ID                 string   `json:"id"`
	PartnerID          string   `json:"partnerId"`
	Name               string   `json:"name"`
	Description        string   `json:"description,omitempty"`
	PerkType           string   `json:"perkType"`
	Tags               []string `json:"tags,omitempty"`
	USDPriceMicro      uint64   `json:"usdPriceMicro"`
	CurrentPointsPrice uint64   `json:"currentPointsPrice"`
	LastPriceUpdate    int64    `json:"lastPriceUpdate"`
	PartnerSharePct    uint8    `json:"partnerSharePct"`
	MaxClaims          *uint64  `json:"maxClaims,omitempty"`
	TotalClaims        uint64   `json:"totalClaims"`
	MaxUsesPerClaim    *uint64  `json:"maxUsesPerClaim,omitempty"`
	ExpiresAt          int64    `json:"expiresAt,omitempty"`
	Active             bool     `json:"active"`
}

type claimResult struct {
	ID            string  `json:"id"`
	PerkID        string  `json:"perkId"`
	Owner         string  `json:"owner"`
	ClaimedAt     int64   `json:"claimedAt"`
	Status        string  `json:"status"`
	RemainingUses *uint64 `json:"remainingUses,omitempty"`
	MetadataID    string  `json:"metadataId,omitempty"`
}

func perkToResult(def *perks.Definition) perkResult {
	return perkResult{
		ID:                 encodeID(def.ID),
		PartnerID:          encodeID(def.Creator),
		Name:               def.Name,
		Description:        def.Description,
		PerkType:           def.PerkType,
		Tags:               def.Tags,
		USDPriceMicro:      def.USDPriceMicro,
		CurrentPointsPrice: def.CurrentPointsPrice,
		LastPriceUpdate:    def.LastPriceUpdate,
		PartnerSharePct:    def.Split.PartnerSharePct,
		MaxClaims:          def.MaxClaims,
		TotalClaims:        def.TotalClaims,
		MaxUsesPerClaim:    def.MaxUsesPerClaim,
		ExpiresAt:          def.ExpiresAt,
		Active:             def.Active,
	}
}

func claimToResult(claim *perks.Claim) claimResult {
	out := claimResult{
		ID:            encodeID(claim.ID),
		PerkID:        encodeID(claim.Definition),
		Owner:         encodeAddress(claim.Owner),
		ClaimedAt:     claim.ClaimedAt,
		Status:        claim.Status,
		RemainingUses: claim.RemainingUses,
	}
	if claim.MetadataID != ([32]byte{}) {
		out.MetadataID = encodeID(claim.MetadataID)
	}
	return out
}

func (s *Server) handlePerkCreate(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	caller, ok := s.caller(w, r, req)
	if !ok {
		return
	}
	var params perkCreateParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	partnerID, err := decodeID(params.PartnerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	partnerPayout, err := decodeAddress(params.PartnerPayout)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	platformPayout, err := decodeAddress(params.PlatformPayout)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	created, err := s.svc.CreatePerk(caller, partnerID, perks.CreateInput{
		Name:            params.Name,
		Description:     params.Description,
		PerkType:        params.PerkType,
		Tags:            params.Tags,
		USDPriceMicro:   params.USDPriceMicro,
		PartnerSharePct: params.PartnerSharePct,
		PartnerPayout:   partnerPayout,
		PlatformPayout:  platformPayout,
		MaxClaims:       params.MaxClaims,
		MaxUsesPerClaim: params.MaxUsesPerClaim,
		ExpiresAt:       params.ExpiresAt,
		CooldownSeconds: params.CooldownSeconds,
		UniqueMetadata:  params.UniqueMetadata,
	})
	if err != nil {
		writeServiceError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, perkToResult(created))
}

func (s *Server) handlePerkGet(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params perkIDParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	id, err := decodeID(params.PerkID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	def, err := s.svc.GetPerk(id)
	if err != nil {
		writeServiceError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, perkToResult(def))
}

func (s *Server) handlePerkList(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params perkListParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	id, err := decodeID(params.PartnerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	ids, err := s.svc.PerksByPartner(id)
	if err != nil {
		writeServiceError(w, req.ID, err)
		return
	}
	out := make([]string, 0, len(ids))
	for _, perkID := range ids {
		out = append(out, encodeID(perkID))
	}
	writeResult(w, req.ID, out)
}

func (s *Server) handlePerkSetActive(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	caller, ok := s.caller(w, r, req)
	if !ok {
		return
	}
	var params perkSetActiveParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	id, err := decodeID(params.PerkID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.svc.SetPerkActive(caller, id, params.Active); err != nil {
		writeServiceError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handlePerkClaim(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	caller, ok := s.caller(w, r, req)
	if !ok {
		return
	}
	var params perkIDParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	id, err := decodeID(params.PerkID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	claim, err := s.svc.ClaimPerk(caller, id)
	if err != nil {
		writeServiceError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, claimToResult(claim))
}

func (s *Server) handleClaimGet(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params claimIDParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	id, err := decodeID(params.ClaimID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	claim, err := s.svc.GetClaim(id)
	if err != nil {
		writeServiceError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, claimToResult(claim))
}

func (s *Server) handleClaimList(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params claimListParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	owner, err := decodeAddress(params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	ids, err := s.svc.ClaimsByOwner(owner)
	if err != nil {
		writeServiceError(w, req.ID, err)
		return
	}
	out := make([]string, 0, len(ids))
	for _, claimID := range ids {
		out = append(out, encodeID(claimID))
	}
	writeResult(w, req.ID, out)
}

func (s *Server) handleConsumeUse(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	caller, ok := s.caller(w, r, req)
	if !ok {
		return
	}
	var params consumeUseParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	claimID, err := decodeID(params.ClaimID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	perkID, err := decodeID(params.PerkID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	claim, err := s.svc.ConsumePerkUse(caller, claimID, perkID)
	if err != nil {
		writeServiceError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, claimToResult(claim))
}
