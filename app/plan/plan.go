package plan

import (
	"errors"
	"strings"
)

type Tier string

const (
	TierFree         Tier = "free"
	TierStarter      Tier = "starter"
	TierProfessional Tier = "professional"
	TierBusiness     Tier = "business"
)

type Cycle string

const (
	CycleMonthly Cycle = "monthly"
	CycleYearly  Cycle = "yearly"
)

var (
	ErrUnknownTier  = errors.New("unknown plan")
	ErrUnknownCycle = errors.New("unknown billing cycle")
)

// Monthly credit allowance per purchasable tier. Yearly purchases grant twelve months at once.
var monthlyCredits = map[Tier]int64{
	TierStarter:      200,
	TierProfessional: 1000,
	TierBusiness:     2000,
}

var purchasable = []Tier{TierStarter, TierProfessional, TierBusiness}

var cycles = []Cycle{CycleMonthly, CycleYearly}

func Purchasable() []Tier {
	out := make([]Tier, len(purchasable))
	copy(out, purchasable)
	return out
}

func Cycles() []Cycle {
	out := make([]Cycle, len(cycles))
	copy(out, cycles)
	return out
}

func ParseTier(raw string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "free":
		return TierFree, nil
	case "starter":
		return TierStarter, nil
	case "professional", "pro":
		return TierProfessional, nil
	case "business":
		return TierBusiness, nil
	default:
		return "", ErrUnknownTier
	}
}

func ParseCycle(raw string) (Cycle, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "monthly", "month":
		return CycleMonthly, nil
	case "yearly", "year", "annual":
		return CycleYearly, nil
	default:
		return "", ErrUnknownCycle
	}
}

func ParseYearly(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "yearly", "year":
		return true
	default:
		return false
	}
}

func CycleFromYearly(yearly bool) Cycle {
	if yearly {
		return CycleYearly
	}
	return CycleMonthly
}

func (t Tier) Purchasable() bool {
	_, ok := monthlyCredits[t]
	return ok
}

func (t Tier) EnvToken() string {
	if t == TierProfessional {
		return "PRO"
	}
	return strings.ToUpper(string(t))
}

func (c Cycle) Multiplier() int64 {
	if c == CycleYearly {
		return 12
	}
	return 1
}

func (c Cycle) EnvToken() string {
	return strings.ToUpper(string(c))
}

func Credits(t Tier, c Cycle) int64 {
	return monthlyCredits[t] * c.Multiplier()
}

func Key(t Tier, c Cycle) string {
	return string(t) + "_" + string(c)
}
