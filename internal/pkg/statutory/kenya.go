// Package statutory holds the Kenyan statutory deduction schedules applied to
// a monthly gross salary: PAYE income tax, the health insurance levy (NHIF),
// social security (NSSF) and the affordable housing levy.
//
// All functions are pure and return unrounded amounts. Callers round once,
// when storing.
package statutory

import "github.com/shopspring/decimal"

// PAYE band ceilings and relief, KES per month.
const (
	PAYEBand1Ceiling   = 24000
	PAYEBand2Ceiling   = 32333
	PAYEBand3Ceiling   = 500000
	PAYEBand4Ceiling   = 800000
	PAYEPersonalRelief = 2400
)

// Social security tiers, KES per month.
const (
	SocialSecurityTier1Ceiling = 7000
	SocialSecurityTier2Ceiling = 36000
)

// HealthLevyTopAmount applies to any gross above the last step.
const HealthLevyTopAmount = 1700

var (
	socialSecurityRate = decimal.RequireFromString("0.06")
	housingLevyRate    = decimal.RequireFromString("0.015")
)

// Band is one marginal PAYE band. A zero UpTo marks the open-ended top band.
type Band struct {
	UpTo decimal.Decimal
	Rate decimal.Decimal
}

func (b Band) open() bool {
	return b.UpTo.IsZero()
}

// PAYEBands is the marginal income tax schedule, lowest band first.
var PAYEBands = []Band{
	{UpTo: decimal.NewFromInt(PAYEBand1Ceiling), Rate: decimal.RequireFromString("0.10")},
	{UpTo: decimal.NewFromInt(PAYEBand2Ceiling), Rate: decimal.RequireFromString("0.25")},
	{UpTo: decimal.NewFromInt(PAYEBand3Ceiling), Rate: decimal.RequireFromString("0.30")},
	{UpTo: decimal.NewFromInt(PAYEBand4Ceiling), Rate: decimal.RequireFromString("0.325")},
	{Rate: decimal.RequireFromString("0.35")},
}

// LevyStep maps every gross amount up to and including UpTo to a flat levy.
type LevyStep struct {
	UpTo   decimal.Decimal
	Amount decimal.Decimal
}

func step(upTo, amount int64) LevyStep {
	return LevyStep{UpTo: decimal.NewFromInt(upTo), Amount: decimal.NewFromInt(amount)}
}

// HealthLevySteps is the NHIF step table, ascending by UpTo.
var HealthLevySteps = []LevyStep{
	step(5999, 150),
	step(7999, 300),
	step(11999, 400),
	step(14999, 500),
	step(19999, 600),
	step(24999, 750),
	step(29999, 850),
	step(34999, 900),
	step(39999, 950),
	step(44999, 1000),
	step(49999, 1100),
	step(59999, 1200),
	step(69999, 1300),
	step(79999, 1400),
	step(89999, 1500),
	step(99999, 1600),
}

// Deductions is the full statutory set for one gross amount.
type Deductions struct {
	PAYE           decimal.Decimal
	HealthLevy     decimal.Decimal
	SocialSecurity decimal.Decimal
	HousingLevy    decimal.Decimal
}

// Total sums the four statutory deductions.
func (d Deductions) Total() decimal.Decimal {
	return d.PAYE.Add(d.HealthLevy).Add(d.SocialSecurity).Add(d.HousingLevy)
}

// Compute applies every statutory schedule to grossPay.
func Compute(grossPay decimal.Decimal) Deductions {
	return Deductions{
		PAYE:           ComputePAYE(grossPay),
		HealthLevy:     ComputeHealthLevy(grossPay),
		SocialSecurity: ComputeSocialSecurity(grossPay),
		HousingLevy:    ComputeHousingLevy(grossPay),
	}
}

// ComputePAYE returns the marginal income tax on grossPay less personal
// relief, floored at zero.
func ComputePAYE(grossPay decimal.Decimal) decimal.Decimal {
	if !grossPay.IsPositive() {
		return decimal.Zero
	}

	tax := decimal.Zero
	lower := decimal.Zero
	for _, band := range PAYEBands {
		if grossPay.LessThanOrEqual(lower) {
			break
		}
		upper := grossPay
		if !band.open() && band.UpTo.LessThan(grossPay) {
			upper = band.UpTo
		}
		tax = tax.Add(upper.Sub(lower).Mul(band.Rate))
		lower = band.UpTo
	}

	tax = tax.Sub(decimal.NewFromInt(PAYEPersonalRelief))
	if tax.IsNegative() {
		return decimal.Zero
	}
	return tax
}

// ComputeHealthLevy returns the flat NHIF levy for the step containing grossPay.
func ComputeHealthLevy(grossPay decimal.Decimal) decimal.Decimal {
	for _, s := range HealthLevySteps {
		if grossPay.LessThanOrEqual(s.UpTo) {
			return s.Amount
		}
	}
	return decimal.NewFromInt(HealthLevyTopAmount)
}

// ComputeSocialSecurity returns the two-tier NSSF contribution. Earnings
// above the second tier ceiling are not contributory.
func ComputeSocialSecurity(grossPay decimal.Decimal) decimal.Decimal {
	if !grossPay.IsPositive() {
		return decimal.Zero
	}

	tier1Ceiling := decimal.NewFromInt(SocialSecurityTier1Ceiling)
	tier2Ceiling := decimal.NewFromInt(SocialSecurityTier2Ceiling)

	tier1 := decimal.Min(grossPay, tier1Ceiling)
	contribution := tier1.Mul(socialSecurityRate)

	if grossPay.GreaterThan(tier1Ceiling) {
		tier2 := decimal.Min(grossPay, tier2Ceiling).Sub(tier1Ceiling)
		contribution = contribution.Add(tier2.Mul(socialSecurityRate))
	}
	return contribution
}

// ComputeHousingLevy returns 1.5% of grossPay.
func ComputeHousingLevy(grossPay decimal.Decimal) decimal.Decimal {
	if !grossPay.IsPositive() {
		return decimal.Zero
	}
	return grossPay.Mul(housingLevyRate)
}
