package rpc

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/google/uuid"

	"ingotfund/native/fund"
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
)

// AuthTokenEnv names the environment variable carrying the admin bearer
// token.
const AuthTokenEnv = "INGOTFUND_RPC_TOKEN"

// Server exposes the fund engine over a single-endpoint JSON-RPC surface.
type Server struct {
	engine    *fund.Engine
	log       *slog.Logger
	authToken string
	pauser    Pauser
}

// Pauser controls the deposit emergency-halt switch.
type Pauser interface {
	Pause(module string)
	Resume(module string)
}

// NewServer builds an RPC server around the engine. The admin bearer token is
// read from the environment.
func NewServer(engine *fund.Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		engine:    engine,
		log:       logger,
		authToken: strings.TrimSpace(os.Getenv(AuthTokenEnv)),
	}
}

// SetPauser wires the deposit pause switch controlled by the admin surface.
func (s *Server) SetPauser(p Pauser) { s.pauser = p }

// SetAuthToken overrides the admin bearer token. Primarily for tests.
func (s *Server) SetAuthToken(token string) { s.authToken = token }

// Start serves the JSON-RPC endpoint on addr. It blocks.
func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	s.log.Info("starting JSON-RPC server", slog.String("addr", addr))
	return http.ListenAndServe(addr, mux)
}

// Handler returns the HTTP handler for embedding in tests or custom servers.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.handle)
}

// RPCRequest is the inbound JSON-RPC envelope.
type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

// RPCResponse is the outbound JSON-RPC envelope.
type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

// RPCError carries a JSON-RPC error object.
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	logger := s.log.With(slog.String("requestId", requestID))
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, nil, codeInvalidRequest, "POST required", nil)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "unable to read request body", nil)
		return
	}
	var req RPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON", err.Error())
		return
	}
	if req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "jsonrpc must be \"2.0\"", nil)
		return
	}
	method := strings.TrimSpace(req.Method)
	handler, ok := s.routes()[method]
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, "unknown method", method)
		return
	}
	logger.Info("rpc request", slog.String("method", method))
	handler(w, r, &req)
}

type handlerFunc func(http.ResponseWriter, *http.Request, *RPCRequest)

func (s *Server) routes() map[string]handlerFunc {
	return map[string]handlerFunc{
		"fund_register":               s.handleRegister,
		"fund_joinPool":               s.handleJoinPool,
		"fund_withdrawReferralReward": s.handleWithdrawReferralReward,
		"fund_withdrawReward":         s.handleWithdrawReward,
		"fund_claimableReferral":      s.handleClaimableReferral,
		"fund_claimablePayout":        s.handleClaimablePayout,
		"fund_getPool":                s.handleGetPool,
		"fund_getUser":                s.handleGetUser,
		"fund_activePool":             s.handleActivePool,
		"fund_nextPool":               s.handleNextPool,
		"fund_treasury":               s.handleTreasury,
		"fund_coverage":               s.handleCoverage,

		"fund_changeReferrer":      s.adminOnly(s.handleChangeReferrer),
		"fund_forceCreatePool":     s.adminOnly(s.handleForceCreatePool),
		"fund_setPoolActive":       s.adminOnly(s.handleSetPoolActive),
		"fund_triggerPayout":       s.adminOnly(s.handleTriggerPayout),
		"fund_withdrawReserve":     s.adminOnly(s.handleWithdrawReserve),
		"fund_withdrawOperational": s.adminOnly(s.handleWithdrawOperational),
		"fund_sweep":               s.adminOnly(s.handleSweep),
		"fund_setBlacklisted":      s.adminOnly(s.handleSetBlacklisted),
		"fund_setParity":           s.adminOnly(s.handleSetParity),
		"fund_pauseDeposits":       s.adminOnly(s.handlePauseDeposits),
		"fund_resumeDeposits":      s.adminOnly(s.handleResumeDeposits),
	}
}

func (s *Server) adminOnly(next handlerFunc) handlerFunc {
	return func(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
		if !s.authorized(r) {
			writeError(w, http.StatusUnauthorized, req.ID, codeUnauthorized, "admin token required", nil)
			return
		}
		next(w, r, req)
	}
}

func (s *Server) authorized(r *http.Request) bool {
	if s.authToken == "" {
		return false
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return false
	}
	supplied := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	return subtle.ConstantTimeCompare([]byte(supplied), []byte(s.authToken)) == 1
}

func decodeParams(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return errors.New("exactly one parameter object expected")
	}
	return json.Unmarshal(req.Params[0], out)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result})
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(RPCResponse{
		JSONRPC: jsonRPCVersion,
		ID:      id,
		Error:   &RPCError{Code: code, Message: message, Data: data},
	})
}

// writeEngineError maps engine error kinds onto JSON-RPC error codes.
func writeEngineError(w http.ResponseWriter, id interface{}, err error) {
	switch {
	case errors.Is(err, fund.ErrUnauthorized):
		writeError(w, http.StatusForbidden, id, codeUnauthorized, err.Error(), nil)
	case errors.Is(err, fund.ErrValidation):
		writeError(w, http.StatusBadRequest, id, codeInvalidParams, err.Error(), nil)
	default:
		writeError(w, http.StatusOK, id, codeServerError, err.Error(), nil)
	}
}
