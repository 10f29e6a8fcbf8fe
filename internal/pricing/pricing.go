// Package pricing derives the per-style credit charge and the suggested tier prices
// from a small set of economics knobs.
package pricing

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	DefaultStyleCostUSD         = 0.16
	DefaultTargetMargin         = 0.4
	DefaultCreditsPerStyle      = 5
	DefaultUSDToKRW             = 1350
	DefaultSafetyMultiplier     = 1.06
	DefaultStarterFixedPriceUSD = 10
)

// Settings are the raw knobs as configured. Resolve clamps them.
type Settings struct {
	StyleCostUSD         float64
	TargetMargin         float64
	CreditsPerStyle      float64
	USDToKRW             float64
	SafetyMultiplier     float64
	StarterFixedPriceUSD float64
}

// DefaultSettings returns the knobs used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		StyleCostUSD:         DefaultStyleCostUSD,
		TargetMargin:         DefaultTargetMargin,
		CreditsPerStyle:      DefaultCreditsPerStyle,
		USDToKRW:             DefaultUSDToKRW,
		SafetyMultiplier:     DefaultSafetyMultiplier,
		StarterFixedPriceUSD: DefaultStarterFixedPriceUSD,
	}
}

// Economics is the resolved pricing model.
type Economics struct {
	StyleCostUSD         float64 `json:"styleCostUsd"`
	TargetMargin         float64 `json:"targetMargin"`
	CreditsPerStyleValue int     `json:"creditsPerStyle"`
	USDToKRW             float64 `json:"usdToKrw"`
	SafetyMultiplier     float64 `json:"safetyMultiplier"`
	StarterFixedPriceUSD float64 `json:"starterFixedPriceUsd"`
	MinStylePriceUSD     float64 `json:"minStylePriceUsd"`
	MinCreditPriceUSD    float64 `json:"minCreditPriceUsd"`
	MinCreditPriceKRW    float64 `json:"minCreditPriceKrw"`

	minCreditPriceUSD decimal.Decimal
}

// CreditsPerStyle is the charge for one image generation.
func (e Economics) CreditsPerStyle() int {
	if e.CreditsPerStyleValue < 1 {
		return 1
	}
	return e.CreditsPerStyleValue
}

// Resolve clamps s into valid ranges and derives the minimum prices.
func Resolve(s Settings) Economics {
	styleCost := decimal.Max(decimal.NewFromFloat(s.StyleCostUSD), decimal.RequireFromString("0.0001"))
	margin := clamp(decimal.NewFromFloat(s.TargetMargin), decimal.RequireFromString("0.05"), decimal.RequireFromString("0.9"))
	credits := decimal.Max(decimal.NewFromFloat(s.CreditsPerStyle).Round(0), decimal.NewFromInt(1))
	usdToKRW := decimal.Max(decimal.NewFromFloat(s.USDToKRW), decimal.NewFromInt(1))
	safety := clamp(decimal.NewFromFloat(s.SafetyMultiplier), decimal.NewFromInt(1), decimal.NewFromInt(3))
	starter := decimal.Max(decimal.NewFromFloat(s.StarterFixedPriceUSD), decimal.Zero)

	minStyle := styleCost.Div(decimal.NewFromInt(1).Sub(margin))
	minCredit := minStyle.Div(credits)
	minCreditKRW := minCredit.Mul(usdToKRW)

	return Economics{
		StyleCostUSD:         styleCost.InexactFloat64(),
		TargetMargin:         margin.InexactFloat64(),
		CreditsPerStyleValue: int(credits.IntPart()),
		USDToKRW:             usdToKRW.InexactFloat64(),
		SafetyMultiplier:     safety.InexactFloat64(),
		StarterFixedPriceUSD: starter.InexactFloat64(),
		MinStylePriceUSD:     minStyle.InexactFloat64(),
		MinCreditPriceUSD:    minCredit.InexactFloat64(),
		MinCreditPriceKRW:    minCreditKRW.InexactFloat64(),
		minCreditPriceUSD:    minCredit,
	}
}

func clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	return decimal.Min(decimal.Max(v, lo), hi)
}

// RoundRetailKRW rounds a won amount to a retail-looking price: sub-1000 values go up to the
// next 100, larger values to the next thousand minus 100 (13,500 becomes 13,900).
func RoundRetailKRW(v decimal.Decimal) int64 {
	if !v.IsPositive() {
		return 0
	}
	thousand := decimal.NewFromInt(1000)
	if v.LessThan(thousand) {
		hundred := decimal.NewFromInt(100)
		return v.Div(hundred).Ceil().Mul(hundred).IntPart()
	}
	rounded := v.Div(thousand).Ceil().Mul(thousand).IntPart() - 100
	if rounded < 1000 {
		return 1000
	}
	return rounded
}

var krwPrinter = message.NewPrinter(language.Korean)

// FormatKRW renders a won amount with Korean digit grouping, e.g. ₩38,900.
func FormatKRW(v int64) string {
	return "₩" + krwPrinter.Sprintf("%d", v)
}

// FormatUSD renders whole dollars without decimals ($10) and cents otherwise ($9.90).
func FormatUSD(v decimal.Decimal) string {
	rounded := v.Round(2)
	if rounded.Equal(rounded.Truncate(0)) {
		return "$" + rounded.Truncate(0).String()
	}
	return "$" + rounded.StringFixed(2)
}
