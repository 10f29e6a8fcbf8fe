package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Tier keys.
const (
	TierFree    = "free"
	TierStarter = "starter"
	TierPro     = "pro"
)

var tierCredits = []struct {
	key     string
	credits int64
}{
	{TierFree, 20},
	{TierStarter, 120},
	{TierPro, 500},
}

// Tier is one suggested monthly plan.
type Tier struct {
	Key                string  `json:"key"`
	Name               string  `json:"name"`
	MonthlyCredits     int     `json:"monthlyCredits"`
	EstimatedStyles    int     `json:"estimatedStyles"`
	MonthlyPriceKRW    int64   `json:"monthlyPriceKrw"`
	MonthlyPriceLabel  string  `json:"monthlyPriceLabel"`
	EstimatedCostUSD   float64 `json:"estimatedCostUsd"`
	EstimatedMarginUSD float64 `json:"estimatedMarginUsd"`
}

var titleCaser = cases.Title(language.English)

// Tiers prices every plan. Starter is pinned to the fixed USD price; pro is priced from the
// minimum credit price times the safety multiplier; free costs nothing.
func (e Economics) Tiers() []Tier {
	perStyle := decimal.NewFromInt(int64(e.CreditsPerStyleValue))
	styleCost := decimal.NewFromFloat(e.StyleCostUSD)
	usdToKRW := decimal.NewFromFloat(e.USDToKRW)
	safety := decimal.NewFromFloat(e.SafetyMultiplier)
	starter := decimal.NewFromFloat(e.StarterFixedPriceUSD)

	out := make([]Tier, 0, len(tierCredits))
	for _, tc := range tierCredits {
		credits := decimal.NewFromInt(tc.credits)
		styles := credits.Div(perStyle)
		cost := styles.Mul(styleCost)

		var target decimal.Decimal
		switch tc.key {
		case TierFree:
			target = decimal.Zero
		case TierStarter:
			target = starter
		default:
			target = credits.Mul(e.minCreditPriceUSD).Mul(safety)
		}

		priceKRW := RoundRetailKRW(target.Mul(usdToKRW))
		realized := target
		if tc.key != TierStarter {
			realized = decimal.NewFromInt(priceKRW).Div(usdToKRW)
		}
		label := FormatKRW(priceKRW)
		if tc.key == TierStarter {
			label = FormatUSD(target)
		}

		out = append(out, Tier{
			Key:                tc.key,
			Name:               titleCaser.String(tc.key),
			MonthlyCredits:     int(tc.credits),
			EstimatedStyles:    int(styles.Floor().IntPart()),
			MonthlyPriceKRW:    priceKRW,
			MonthlyPriceLabel:  label,
			EstimatedCostUSD:   cost.InexactFloat64(),
			EstimatedMarginUSD: realized.Sub(cost).InexactFloat64(),
		})
	}
	return out
}

// Tier looks up a plan by key, case-insensitively.
func (e Economics) Tier(key string) (Tier, bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, t := range e.Tiers() {
		if t.Key == key {
			return t, true
		}
	}
	return Tier{}, false
}

// FreeTierCredits is the one-time signup grant.
func FreeTierCredits() int {
	return int(tierCredits[0].credits)
}
