package rpc

import (
	"net/http"
)

type balanceParams struct {
	Address string `json:"address"`
}

type balanceResult struct {
	Address   string `json:"address"`
	Available uint64 `json:"available"`
	Locked    uint64 `json:"locked"`
	Total     uint64 `json:"total"`
}

type supplyResult struct {
	Supply uint64 `json:"supply"`
}

type amountParams struct {
	Amount uint64 `json:"amount"`
}

type redeemResult struct {
	Points      uint64 `json:"points"`
	AssetAmount uint64 `json:"assetAmount"`
}

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params balanceParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	addr, err := decodeAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	available, locked, err := s.svc.Balance(addr)
	if err != nil {
		writeServiceError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, balanceResult{
		Address:   encodeAddress(addr),
		Available: available,
		Locked:    locked,
		Total:     available + locked,
	})
}

func (s *Server) handleGetSupply(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	supply, err := s.svc.Supply()
	if err != nil {
		writeServiceError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, supplyResult{Supply: supply})
}

func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	caller, ok := s.caller(w, r, req)
	if !ok {
		return
	}
	var params amountParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	asset, err := s.svc.RedeemPoints(caller, params.Amount)
	if err != nil {
		writeServiceError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, redeemResult{Points: params.Amount, AssetAmount: asset})
}

func (s *Server) handleLock(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	caller, ok := s.caller(w, r, req)
	if !ok {
		return
	}
	var params amountParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	if err := s.svc.LockPoints(caller, params.Amount); err != nil {
		writeServiceError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleUnlock(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	caller, ok := s.caller(w, r, req)
	if !ok {
		return
	}
	var params amountParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	if err := s.svc.UnlockPoints(caller, params.Amount); err != nil {
		writeServiceError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}
