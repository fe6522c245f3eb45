package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"alphapoints/core/points"
	"alphapoints/native/ledger"
	"alphapoints/native/oracle"
	"alphapoints/native/partner"
	"alphapoints/native/perks"
	"alphapoints/observability/logging"
	"alphapoints/observability/metrics"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
	codeUnauthorized   = -32001
	codeNotFound       = -32004
	codeInsufficient   = -32010
	codeQuotaExceeded  = -32011
	codeOracleStale    = -32012
	codePolicyDenied   = -32013
)

// Server exposes the accounting service over JSON-RPC.
type Server struct {
	svc  *points.Service
	auth *Authenticator
	log  *slog.Logger

	httpServer *http.Server
}

// NewServer wires the RPC surface over the service. auth may be nil, which
// disables the mutating methods that require a partner identity.
func NewServer(svc *points.Service, auth *Authenticator, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{svc: svc, auth: auth, log: log}
}

// Handler returns the http handler for mounting under a router.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.handle)
}

// Start serves JSON-RPC on addr until the context is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("json-rpc server listening", "addr", addr)
		errCh <- s.httpServer.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      int               `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeServiceError maps engine sentinel errors onto stable RPC codes so
// clients can branch without string matching.
func writeServiceError(w http.ResponseWriter, id interface{}, err error) {
	switch {
	case errors.Is(err, partner.ErrCapabilityNotFound),
		errors.Is(err, perks.ErrPerkNotFound),
		errors.Is(err, perks.ErrClaimNotFound):
		writeError(w, http.StatusNotFound, id, codeNotFound, err.Error(), nil)
	case errors.Is(err, partner.ErrUnauthorized),
		errors.Is(err, perks.ErrNotClaimOwner),
		errors.Is(err, perks.ErrNotPerkCreator):
		writeError(w, http.StatusForbidden, id, codeUnauthorized, err.Error(), nil)
	case errors.Is(err, ledger.ErrInsufficientBalance),
		errors.Is(err, ledger.ErrInsufficientLockedBalance):
		writeError(w, http.StatusOK, id, codeInsufficient, err.Error(), nil)
	case errors.Is(err, partner.ErrDailyQuotaExceeded):
		metrics.Points().ObserveQuotaRejection("daily")
		writeError(w, http.StatusOK, id, codeQuotaExceeded, err.Error(), nil)
	case errors.Is(err, partner.ErrLifetimeQuotaExceeded):
		metrics.Points().ObserveQuotaRejection("lifetime")
		writeError(w, http.StatusOK, id, codeQuotaExceeded, err.Error(), nil)
	case errors.Is(err, oracle.ErrStale),
		errors.Is(err, oracle.ErrZeroRate),
		errors.Is(err, oracle.ErrNoSource):
		metrics.Points().ObserveOracleError(oracleErrorReason(err))
		writeError(w, http.StatusServiceUnavailable, id, codeOracleStale, err.Error(), nil)
	case errors.Is(err, perks.ErrTypeNotAllowed),
		errors.Is(err, perks.ErrTypeBlacklisted),
		errors.Is(err, perks.ErrCostExceedsLimit),
		errors.Is(err, perks.ErrShareOutOfRange),
		errors.Is(err, perks.ErrConsumablesDisabled),
		errors.Is(err, perks.ErrExpiringDisabled),
		errors.Is(err, perks.ErrUniqueMetadataDisabled),
		errors.Is(err, perks.ErrTagNotAllowed),
		errors.Is(err, perks.ErrTagBlacklisted),
		errors.Is(err, perks.ErrTooManyTags),
		errors.Is(err, perks.ErrMaxClaimsExceedsLimit),
		errors.Is(err, perks.ErrPerkLimitReached):
		writeError(w, http.StatusOK, id, codePolicyDenied, err.Error(), nil)
	default:
		writeError(w, http.StatusOK, id, codeServerError, err.Error(), nil)
	}
}

func oracleErrorReason(err error) string {
	switch {
	case errors.Is(err, oracle.ErrStale):
		return "stale"
	case errors.Is(err, oracle.ErrZeroRate):
		return "zero_rate"
	default:
		return "no_source"
	}
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	switch req.Method {
	case "points_getBalance":
		s.handleGetBalance(w, r, req)
	case "points_getSupply":
		s.handleGetSupply(w, r, req)
	case "points_redeem":
		s.handleRedeem(w, r, req)
	case "points_lock":
		s.handleLock(w, r, req)
	case "points_unlock":
		s.handleUnlock(w, r, req)
	case "partner_create":
		s.handlePartnerCreate(w, r, req)
	case "partner_get":
		s.handlePartnerGet(w, r, req)
	case "partner_earn":
		s.handlePartnerEarn(w, r, req)
	case "partner_pause":
		s.handlePartnerPause(w, r, req)
	case "partner_resume":
		s.handlePartnerResume(w, r, req)
	case "partner_revoke":
		s.handlePartnerRevoke(w, r, req)
	case "partner_setPolicy":
		s.handlePartnerSetPolicy(w, r, req)
	case "partner_setReinvestPct":
		s.handlePartnerSetReinvest(w, r, req)
	case "partner_topUpCollateral":
		s.handlePartnerTopUp(w, r, req)
	case "perks_create":
		s.handlePerkCreate(w, r, req)
	case "perks_get":
		s.handlePerkGet(w, r, req)
	case "perks_list":
		s.handlePerkList(w, r, req)
	case "perks_setActive":
		s.handlePerkSetActive(w, r, req)
	case "perks_claim":
		s.handlePerkClaim(w, r, req)
	case "perks_getClaim":
		s.handleClaimGet(w, r, req)
	case "perks_listClaims":
		s.handleClaimList(w, r, req)
	case "perks_consumeUse":
		s.handleConsumeUse(w, r, req)
	default:
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("method %q not found", req.Method), nil)
	}
}

// decodeParams expects exactly one JSON parameter object.
func decodeParams(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return fmt.Errorf("exactly one parameter object expected")
	}
	return json.Unmarshal(req.Params[0], out)
}

// caller resolves the authenticated identity for mutating methods.
func (s *Server) caller(w http.ResponseWriter, r *http.Request, req *RPCRequest) ([20]byte, bool) {
	if s.auth == nil {
		writeError(w, http.StatusUnauthorized, req.ID, codeUnauthorized, "authentication not configured", nil)
		return [20]byte{}, false
	}
	addr, err := s.auth.Authenticate(r)
	if err != nil {
		s.log.Warn("rpc authentication failed",
			slog.String("method", req.Method),
			logging.MaskField("authorization", r.Header.Get("Authorization")),
			slog.Any("error", err))
		writeError(w, http.StatusUnauthorized, req.ID, codeUnauthorized, "invalid or missing token", err.Error())
		return [20]byte{}, false
	}
	return addr, true
}
