package fund

import (
	"fmt"
	"math/big"
	"strings"
)

const (
	// PoolCapacityIngots is the fixed ingot capacity of every pool.
	PoolCapacityIngots = 100
	// StandardPoolMaxID is the last pool ID of the standard range; pools
	// beyond it are lottery pools.
	StandardPoolMaxID = 9
	// MaxPoolID bounds the pool ID space. Rollover and ForceCreatePool never
	// provision beyond it.
	MaxPoolID = 12
	// UplineLevels is the depth of the precomputed sponsor chain.
	UplineLevels = 7
	// MaxDirectReferrals caps the direct-referral fan-out per user.
	MaxDirectReferrals = 36
	// BpsDenominator is the fixed denominator for basis-point rates.
	BpsDenominator = 10_000

	reserveShareBps          = 500
	payoutFeePercent         = 2
	rewardCapMultiplier      = 3
	coverageThresholdPercent = 60
)

// referralLevelBps holds the per-level commission rates in basis points:
// 3%, 2%, 1%, 1%, 1%, 0.5%, 0.25%.
var referralLevelBps = [UplineLevels]uint64{300, 200, 100, 100, 100, 50, 25}

// Params carries the tunable engine configuration. All monetary values are
// expressed in the smallest denomination of the respective token.
type Params struct {
	// PrimaryToken denominates ingot pricing, referral rewards and payouts.
	PrimaryToken string
	// SecondaryToken is the alternate deposit asset, pegged to the primary
	// via ParityBps.
	SecondaryToken string
	// IngotPrice is the primary-token price of one ingot.
	IngotPrice *big.Int
	// ParityBps pegs the secondary-token ingot price:
	// secondary price = IngotPrice * ParityBps / 10_000.
	ParityBps uint64
	// InterestRatePercent is the fixed nominal rate stamped on every order.
	InterestRatePercent uint64
	// MinReferralWithdraw is the smallest claimable referral amount that may
	// be withdrawn.
	MinReferralWithdraw *big.Int
	// TokenDecimals records per-token precision for cross-asset
	// normalization by consumers; the engine itself keeps raw units.
	TokenDecimals map[string]uint8
}

// DefaultParams returns the production defaults.
func DefaultParams() Params {
	return Params{
		PrimaryToken:        "GLD",
		SecondaryToken:      "ZGLD",
		IngotPrice:          big.NewInt(1000),
		ParityBps:           BpsDenominator,
		InterestRatePercent: 30,
		MinReferralWithdraw: big.NewInt(100),
		TokenDecimals:       map[string]uint8{"GLD": 18, "ZGLD": 18},
	}
}

// Clone produces a deep copy of the parameters.
func (p Params) Clone() Params {
	clone := p
	if p.IngotPrice != nil {
		clone.IngotPrice = new(big.Int).Set(p.IngotPrice)
	}
	if p.MinReferralWithdraw != nil {
		clone.MinReferralWithdraw = new(big.Int).Set(p.MinReferralWithdraw)
	}
	if p.TokenDecimals != nil {
		clone.TokenDecimals = make(map[string]uint8, len(p.TokenDecimals))
		for k, v := range p.TokenDecimals {
			clone.TokenDecimals[k] = v
		}
	}
	return clone
}

// Normalize ensures pointer fields are non-nil and token symbols are
// canonical. Returns the receiver copy for chaining.
func (p Params) Normalize() Params {
	p.PrimaryToken = strings.ToUpper(strings.TrimSpace(p.PrimaryToken))
	p.SecondaryToken = strings.ToUpper(strings.TrimSpace(p.SecondaryToken))
	if p.IngotPrice == nil {
		p.IngotPrice = big.NewInt(0)
	}
	if p.MinReferralWithdraw == nil {
		p.MinReferralWithdraw = big.NewInt(0)
	}
	if p.TokenDecimals == nil {
		p.TokenDecimals = make(map[string]uint8)
	}
	return p
}

// Validate performs static validation of the parameters.
func (p Params) Validate() error {
	if strings.TrimSpace(p.PrimaryToken) == "" {
		return fmt.Errorf("primary token must be configured")
	}
	if strings.TrimSpace(p.SecondaryToken) == "" {
		return fmt.Errorf("secondary token must be configured")
	}
	if strings.EqualFold(p.PrimaryToken, p.SecondaryToken) {
		return fmt.Errorf("primary and secondary token must differ")
	}
	if p.IngotPrice == nil || p.IngotPrice.Sign() <= 0 {
		return fmt.Errorf("ingot price must be positive")
	}
	if p.ParityBps == 0 {
		return fmt.Errorf("parity bps must be positive")
	}
	if p.InterestRatePercent == 0 {
		return fmt.Errorf("interest rate must be positive")
	}
	if p.MinReferralWithdraw != nil && p.MinReferralWithdraw.Sign() < 0 {
		return fmt.Errorf("minimum referral withdrawal must not be negative")
	}
	return nil
}

// IngotPriceFor resolves the one-ingot price for a deposit token. The
// secondary token price is derived through the global parity rate.
func (p Params) IngotPriceFor(token string) (*big.Int, error) {
	normalized := strings.ToUpper(strings.TrimSpace(token))
	switch normalized {
	case p.PrimaryToken:
		return new(big.Int).Set(p.IngotPrice), nil
	case p.SecondaryToken:
		price := new(big.Int).Mul(p.IngotPrice, new(big.Int).SetUint64(p.ParityBps))
		price.Quo(price, big.NewInt(BpsDenominator))
		if price.Sign() <= 0 {
			return nil, ErrZeroIngots
		}
		return price, nil
	default:
		return nil, ErrUnknownToken
	}
}

// NormalizeToken canonicalizes a deposit token symbol, rejecting tokens the
// engine does not price.
func (p Params) NormalizeToken(token string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(token))
	if normalized != p.PrimaryToken && normalized != p.SecondaryToken {
		return "", ErrUnknownToken
	}
	return normalized, nil
}
