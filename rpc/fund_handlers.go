package rpc

import (
	"math/big"
	"net/http"
	"strings"

	"ingotfund/core/types"
	"ingotfund/native/common"
	"ingotfund/native/fund"
)

type registerParams struct {
	Caller   string `json:"caller"`
	Referrer string `json:"referrer,omitempty"`
}

type joinPoolParams struct {
	Caller string `json:"caller"`
	Pool   uint64 `json:"pool"`
	Amount string `json:"amount"`
	Token  string `json:"token"`
}

type callerParams struct {
	Caller string `json:"caller"`
}

type addressParams struct {
	Address string `json:"address"`
}

type poolParams struct {
	Pool uint64 `json:"pool"`
}

type changeReferrerParams struct {
	Caller   string `json:"caller"`
	User     string `json:"user"`
	Referrer string `json:"referrer,omitempty"`
}

type forceCreatePoolParams struct {
	Caller string `json:"caller"`
	Pool   uint64 `json:"pool"`
	Kind   string `json:"kind"`
}

type setPoolActiveParams struct {
	Caller string `json:"caller"`
	Pool   uint64 `json:"pool"`
	Active bool   `json:"active"`
}

type triggerPayoutParams struct {
	Caller string `json:"caller"`
	Pool   uint64 `json:"pool"`
}

type treasuryDrawParams struct {
	Caller string `json:"caller"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type sweepParams struct {
	Caller string `json:"caller"`
	To     string `json:"to"`
	Token  string `json:"token"`
	Amount string `json:"amount"`
}

type blacklistParams struct {
	Caller      string `json:"caller"`
	User        string `json:"user"`
	Blacklisted bool   `json:"blacklisted"`
}

type parityParams struct {
	Caller    string `json:"caller"`
	ParityBps uint64 `json:"parityBps"`
}

type amountResult struct {
	Amount string `json:"amount"`
}

type poolResult struct {
	ID            uint64        `json:"id"`
	Kind          string        `json:"kind"`
	Fill          uint64        `json:"fill"`
	Active        bool          `json:"active"`
	PaidOut       bool          `json:"paidOut"`
	TotalInvested string        `json:"totalInvested"`
	Orders        []orderResult `json:"orders,omitempty"`
}

type orderResult struct {
	Sequence    uint64 `json:"sequence"`
	User        string `json:"user"`
	Invested    string `json:"invested"`
	RatePercent uint64 `json:"ratePercent"`
	Token       string `json:"token"`
	Paid        bool   `json:"paid"`
}

type userResult struct {
	Referrer            string   `json:"referrer,omitempty"`
	Uplines             []string `json:"uplines"`
	Downlines           []string `json:"downlines,omitempty"`
	Invested            string   `json:"invested"`
	ReferralRewardTotal string   `json:"referralRewardTotal"`
	ReferralWithdrawn   string   `json:"referralWithdrawn"`
	Blacklisted         bool     `json:"blacklisted"`
}

type treasuryResult struct {
	Reserve       string `json:"reserve"`
	Operational   string `json:"operational"`
	TotalInvested string `json:"totalInvested"`
}

func parseAddressParam(s string) (types.Address, error) {
	return types.ParseAddress(s)
}

func parseOptionalAddress(s string) (*types.Address, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	addr, err := types.ParseAddress(s)
	if err != nil {
		return nil, err
	}
	return &addr, nil
}

func parseAmountParam(s string) (*big.Int, bool) {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	return amount, ok
}

func (s *Server) handleRegister(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params registerParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := parseAddressParam(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	referrer, err := parseOptionalAddress(params.Referrer)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid referrer address", err.Error())
		return
	}
	if err := s.engine.Register(caller, referrer); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleJoinPool(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params joinPoolParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := parseAddressParam(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	amount, ok := parseAmountParam(params.Amount)
	if !ok {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid amount", params.Amount)
		return
	}
	if err := s.engine.JoinPool(caller, params.Pool, amount, params.Token); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleWithdrawReferralReward(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params callerParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := parseAddressParam(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	amount, err := s.engine.WithdrawReferralReward(caller)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, amountResult{Amount: amount.String()})
}

func (s *Server) handleWithdrawReward(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params callerParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := parseAddressParam(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	amount, err := s.engine.WithdrawReward(caller)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, amountResult{Amount: amount.String()})
}

func (s *Server) handleClaimableReferral(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params addressParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	addr, err := parseAddressParam(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid address", err.Error())
		return
	}
	amount, err := s.engine.ClaimableReferral(addr)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, amountResult{Amount: amount.String()})
}

func (s *Server) handleClaimablePayout(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params addressParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	addr, err := parseAddressParam(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid address", err.Error())
		return
	}
	amount, err := s.engine.ClaimablePayout(addr)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, amountResult{Amount: amount.String()})
}

func (s *Server) handleGetPool(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params poolParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	pool, err := s.engine.GetPool(params.Pool)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, poolToResult(pool))
}

func (s *Server) handleGetUser(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params addressParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	addr, err := parseAddressParam(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid address", err.Error())
		return
	}
	user, err := s.engine.GetUser(addr)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, userToResult(user))
}

func (s *Server) handleActivePool(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	id, err := s.engine.ActivePoolID()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]uint64{"pool": id})
}

func (s *Server) handleNextPool(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	id, err := s.engine.NextPoolID()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]uint64{"pool": id})
}

func (s *Server) handleTreasury(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	treasury, err := s.engine.TreasuryBalances()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, treasuryResult{
		Reserve:       treasury.Reserve.String(),
		Operational:   treasury.Operational.String(),
		TotalInvested: treasury.TotalInvested.String(),
	})
}

func (s *Server) handleCoverage(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	coverage, err := s.engine.CoverageRatio()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]uint64{"coveragePercent": coverage})
}

func (s *Server) handleChangeReferrer(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params changeReferrerParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := parseAddressParam(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	user, err := parseAddressParam(params.User)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid user address", err.Error())
		return
	}
	referrer, err := parseOptionalAddress(params.Referrer)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid referrer address", err.Error())
		return
	}
	if err := s.engine.ChangeReferrer(caller, user, referrer); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleForceCreatePool(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params forceCreatePoolParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := parseAddressParam(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	var kind fund.PoolKind
	switch strings.ToLower(strings.TrimSpace(params.Kind)) {
	case "standard":
		kind = fund.PoolStandard
	case "lottery":
		kind = fund.PoolLottery
	default:
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "kind must be standard or lottery", params.Kind)
		return
	}
	if err := s.engine.ForceCreatePool(caller, params.Pool, kind); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleSetPoolActive(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params setPoolActiveParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := parseAddressParam(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	if err := s.engine.SetPoolActive(caller, params.Pool, params.Active); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleTriggerPayout(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params triggerPayoutParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := parseAddressParam(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	if err := s.engine.TriggerPayout(caller, params.Pool); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleWithdrawReserve(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.handleTreasuryDraw(w, req, "reserve")
}

func (s *Server) handleWithdrawOperational(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.handleTreasuryDraw(w, req, "operational")
}

func (s *Server) handleTreasuryDraw(w http.ResponseWriter, req *RPCRequest, bucket string) {
	var params treasuryDrawParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := parseAddressParam(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	to, err := parseAddressParam(params.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid destination address", err.Error())
		return
	}
	amount, ok := parseAmountParam(params.Amount)
	if !ok {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid amount", params.Amount)
		return
	}
	var opErr error
	if bucket == "reserve" {
		opErr = s.engine.WithdrawReserve(caller, to, amount)
	} else {
		opErr = s.engine.WithdrawOperational(caller, to, amount)
	}
	if opErr != nil {
		writeEngineError(w, req.ID, opErr)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleSweep(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params sweepParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := parseAddressParam(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	to, err := parseAddressParam(params.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid destination address", err.Error())
		return
	}
	amount, ok := parseAmountParam(params.Amount)
	if !ok {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid amount", params.Amount)
		return
	}
	if err := s.engine.Sweep(caller, to, params.Token, amount); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleSetBlacklisted(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params blacklistParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := parseAddressParam(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	user, err := parseAddressParam(params.User)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid user address", err.Error())
		return
	}
	if err := s.engine.SetBlacklisted(caller, user, params.Blacklisted); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleSetParity(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params parityParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := parseAddressParam(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	if err := s.engine.SetParityBps(caller, params.ParityBps); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handlePauseDeposits(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if s.pauser == nil {
		writeError(w, http.StatusOK, req.ID, codeServerError, "pause switch not configured", nil)
		return
	}
	s.pauser.Pause(common.ModuleDeposits)
	writeResult(w, req.ID, true)
}

func (s *Server) handleResumeDeposits(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if s.pauser == nil {
		writeError(w, http.StatusOK, req.ID, codeServerError, "pause switch not configured", nil)
		return
	}
	s.pauser.Resume(common.ModuleDeposits)
	writeResult(w, req.ID, true)
}

func poolToResult(pool *fund.Pool) poolResult {
	result := poolResult{
		ID:            pool.ID,
		Kind:          pool.Kind.String(),
		Fill:          pool.Fill,
		Active:        pool.Active,
		PaidOut:       pool.PaidOut,
		TotalInvested: pool.TotalInvested.String(),
	}
	for _, order := range pool.Orders {
		result.Orders = append(result.Orders, orderResult{
			Sequence:    order.Sequence,
			User:        order.User.Hex(),
			Invested:    order.Invested.String(),
			RatePercent: order.RatePercent,
			Token:       order.Token,
			Paid:        order.Paid,
		})
	}
	return result
}

func userToResult(user *fund.User) userResult {
	result := userResult{
		Invested:            user.Invested.String(),
		ReferralRewardTotal: user.ReferralRewardTotal.String(),
		ReferralWithdrawn:   user.ReferralWithdrawn.String(),
		Blacklisted:         user.Blacklisted,
	}
	if user.Referrer != nil {
		result.Referrer = user.Referrer.Hex()
	}
	for _, upline := range user.Uplines {
		if upline == nil {
			break
		}
		result.Uplines = append(result.Uplines, upline.Hex())
	}
	for _, downline := range user.Downlines {
		result.Downlines = append(result.Downlines, downline.Hex())
	}
	return result
}
