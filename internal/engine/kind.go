package engine

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Kind identifies the evaluation strategy of a sub-target.
type Kind int

const (
	KindGeneric Kind = iota
	KindProduction
	KindQuality
	KindProfitability
)

var kindNames = map[Kind]string{
	KindGeneric:       "generic",
	KindProduction:    "production",
	KindQuality:       "quality",
	KindProfitability: "profitability",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	for kind, name := range kindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown sub-target kind %q", text)
}

var (
	productionPrefixes = []string{"PRODUÇÃO", "PRODUCAO", "PRODUCTION"}
	qualityNames       = []string{"QUALIDADE", "QUALITY"}
	profitabilityNames = []string{"LUCRATIVIDADE", "PROFITABILITY"}
)

// ClassifySubTarget maps a configured sub-target name to its Kind. Production
// sub-targets are matched by prefix ("Produção Cidade", "Production - hub"),
// the others by exact name.
func ClassifySubTarget(name string) Kind {
	n := Normalize(name)
	for _, p := range productionPrefixes {
		if strings.HasPrefix(n, p) {
			return KindProduction
		}
	}
	for _, q := range qualityNames {
		if n == q {
			return KindQuality
		}
	}
	for _, p := range profitabilityNames {
		if n == p {
			return KindProfitability
		}
	}
	return KindGeneric
}

// Tier is the share of a sub-target slice that was earned.
type Tier int

const (
	TierFull Tier = iota
	TierHalf
	TierPartial
	TierNone
)

var tierNames = map[Tier]string{
	TierFull:    "full",
	TierHalf:    "half",
	TierPartial: "partial",
	TierNone:    "none",
}

func (t Tier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return fmt.Sprintf("tier(%d)", int(t))
}

func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Tier) UnmarshalText(text []byte) error {
	for tier, name := range tierNames {
		if name == string(text) {
			*t = tier
			return nil
		}
	}
	return fmt.Errorf("unknown tier %q", text)
}

// Percent is the nominal earned percentage of the fixed tiers. TierPartial has
// no nominal value and reports -1.
func (t Tier) Percent() int {
	switch t {
	case TierFull:
		return 100
	case TierHalf:
		return 50
	case TierNone:
		return 0
	default:
		return -1
	}
}

var half = decimal.NewFromFloat(0.5)

// earnedShare splits amount according to a fixed tier.
func (t Tier) earnedShare(amount decimal.Decimal) (earned, lost decimal.Decimal) {
	switch t {
	case TierFull:
		return amount, decimal.Zero
	case TierHalf:
		earned = amount.Mul(half)
		return earned, amount.Sub(earned)
	default:
		return decimal.Zero, amount
	}
}
