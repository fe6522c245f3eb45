package rpc

import (
	"net/http"

	"alphapoints/native/partner"
)

type partnerCreateParams struct {
	Owner              string `json:"owner"`
	Name               string `json:"name"`
	CollateralMicroUSD uint64 `json:"collateralMicroUsd"`
}

type partnerIDParams struct {
	PartnerID string `json:"partnerId"`
}

type partnerEarnParams struct {
	PartnerID string `json:"partnerId"`
	User      string `json:"user"`
	Amount    uint64 `json:"amount"`
}

type partnerTopUpParams struct {
	PartnerID   string `json:"partnerId"`
	AddMicroUSD uint64 `json:"addMicroUsd"`
}

type partnerPolicyParams struct {
	PartnerID string         `json:"partnerId"`
	Policy    partner.Policy `json:"policy"`
}

type partnerReinvestParams struct {
	PartnerID string `json:"partnerId"`
	Pct       uint8  `json:"pct"`
}

type partnerResult struct {
	ID                 string `json:"id"`
	Owner              string `json:"owner"`
	Name               string `json:"name"`
	Paused             bool   `json:"paused"`
	CollateralMicroUSD uint64 `json:"collateralMicroUsd"`
	DailyQuota         uint64 `json:"dailyQuota"`
	MintRemainingToday uint64 `json:"mintRemainingToday"`
	LifetimeQuota      uint64 `json:"lifetimeQuota"`
	LifetimeMinted     uint64 `json:"lifetimeMinted"`
	PerksCreated       uint64 `json:"perksCreated"`
	ReinvestPct        uint8  `json:"reinvestPct"`
}

func partnerToResult(c *partner.Capability) partnerResult {
	return partnerResult{
		ID:                 encodeID(c.ID),
		Owner:              encodeAddress(c.Owner),
		Name:               c.Name,
		Paused:             c.Paused,
		CollateralMicroUSD: c.CollateralMicroUSD,
		DailyQuota:         c.DailyQuota,
		MintRemainingToday: c.MintRemainingToday,
		LifetimeQuota:      c.LifetimeQuota,
		LifetimeMinted:     c.LifetimeMinted,
		PerksCreated:       c.PerksCreated,
		ReinvestPct:        c.ReinvestPct,
	}
}

func (s *Server) handlePartnerCreate(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	caller, ok := s.caller(w, r, req)
	if !ok {
		return
	}
	var params partnerCreateParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	owner := caller
	if params.Owner != "" {
		decoded, err := decodeAddress(params.Owner)
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
			return
		}
		owner = decoded
	}
	created, err := s.svc.CreatePartner(caller, owner, params.Name, params.CollateralMicroUSD)
	if err != nil {
		writeServiceError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, partnerToResult(created))
}

func (s *Server) handlePartnerGet(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params partnerIDParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	id, err := decodeID(params.PartnerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	capability, err := s.svc.GetPartner(id)
	if err != nil {
		writeServiceError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, partnerToResult(capability))
}

func (s *Server) handlePartnerEarn(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	caller, ok := s.caller(w, r, req)
	if !ok {
		return
	}
	var params partnerEarnParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	id, err := decodeID(params.PartnerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	user, err := decodeAddress(params.User)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.svc.EarnFromPartner(caller, id, user, params.Amount); err != nil {
		writeServiceError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) partnerLifecycle(w http.ResponseWriter, r *http.Request, req *RPCRequest, op func(caller [20]byte, id partner.CapabilityID) error) {
	caller, ok := s.caller(w, r, req)
	if !ok {
		return
	}
	var params partnerIDParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	id, err := decodeID(params.PartnerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := op(caller, id); err != nil {
		writeServiceError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handlePartnerPause(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.partnerLifecycle(w, r, req, s.svc.PausePartner)
}

func (s *Server) handlePartnerResume(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.partnerLifecycle(w, r, req, s.svc.ResumePartner)
}

func (s *Server) handlePartnerRevoke(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.partnerLifecycle(w, r, req, s.svc.RevokePartner)
}

func (s *Server) handlePartnerSetPolicy(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	caller, ok := s.caller(w, r, req)
	if !ok {
		return
	}
	var params partnerPolicyParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	id, err := decodeID(params.PartnerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.svc.SetPartnerPolicy(caller, id, params.Policy); err != nil {
		writeServiceError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handlePartnerSetReinvest(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	caller, ok := s.caller(w, r, req)
	if !ok {
		return
	}
	var params partnerReinvestParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	id, err := decodeID(params.PartnerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.svc.SetPartnerReinvestPct(caller, id, params.Pct); err != nil {
		writeServiceError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handlePartnerTopUp(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	caller, ok := s.caller(w, r, req)
	if !ok {
		return
	}
	var params partnerTopUpParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	id, err := decodeID(params.PartnerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.svc.TopUpCollateral(caller, id, params.AddMicroUSD); err != nil {
		writeServiceError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}
