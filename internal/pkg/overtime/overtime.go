// Package overtime splits monthly overtime hours into paid rate tiers.
package overtime

import "github.com/shopspring/decimal"

// Default tier caps, hours per period.
const (
	DefaultStandardTierCapHours = 40
	DefaultPremiumTierCapHours  = 20
)

var (
	StandardRateMultiplier = decimal.RequireFromString("1.5")
	PremiumRateMultiplier  = decimal.RequireFromString("2.0")
)

// Policy caps how many overtime hours each tier pays. Hours beyond both caps
// are not paid.
type Policy struct {
	StandardTierCapHours decimal.Decimal
	PremiumTierCapHours  decimal.Decimal
}

// DefaultPolicy returns the 40/20 hour tier caps.
func DefaultPolicy() Policy {
	return Policy{
		StandardTierCapHours: decimal.NewFromInt(DefaultStandardTierCapHours),
		PremiumTierCapHours:  decimal.NewFromInt(DefaultPremiumTierCapHours),
	}
}

// Split is the tier allocation for one period.
type Split struct {
	StandardHours decimal.Decimal
	PremiumHours  decimal.Decimal
}

// Paid returns the hours that attract overtime pay.
func (s Split) Paid() decimal.Decimal {
	return s.StandardHours.Add(s.PremiumHours)
}

// Unpaid returns the part of totalHours that exceeded both tier caps.
func (s Split) Unpaid(totalHours decimal.Decimal) decimal.Decimal {
	unpaid := totalHours.Sub(s.Paid())
	if unpaid.IsNegative() {
		return decimal.Zero
	}
	return unpaid
}

// Allocate fills the standard tier first and the premium tier with the
// remainder. Negative input allocates nothing.
func (p Policy) Allocate(totalHours decimal.Decimal) Split {
	if !totalHours.IsPositive() {
		return Split{StandardHours: decimal.Zero, PremiumHours: decimal.Zero}
	}

	standard := decimal.Min(totalHours, p.StandardTierCapHours)
	remaining := totalHours.Sub(standard)
	premium := decimal.Min(remaining, p.PremiumTierCapHours)
	if premium.IsNegative() {
		premium = decimal.Zero
	}

	return Split{StandardHours: standard, PremiumHours: premium}
}

// MaxPaidHours is the sum of both tier caps.
func (p Policy) MaxPaidHours() decimal.Decimal {
	return p.StandardTierCapHours.Add(p.PremiumTierCapHours)
}

// Allocate splits totalHours using the default caps.
func Allocate(totalHours decimal.Decimal) Split {
	return DefaultPolicy().Allocate(totalHours)
}

// RatesFromHourly returns the standard and premium overtime hourly rates.
func RatesFromHourly(hourlyRate decimal.Decimal) (standard, premium decimal.Decimal) {
	return hourlyRate.Mul(StandardRateMultiplier), hourlyRate.Mul(PremiumRateMultiplier)
}
