package plan

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

var ErrMalformedOrderID = errors.New("malformed order id")

// Order is the checkout intent encoded in an order id of the form
// <userID>_<plan>_<cycle>_<unix millis>.
type Order struct {
	UserID    string
	Tier      Tier
	Cycle     Cycle
	Timestamp int64
}

func NewOrderID(userID string, tier Tier, cycle Cycle, now time.Time) string {
	return strings.Join([]string{userID, string(tier), string(cycle), strconv.FormatInt(now.UnixMilli(), 10)}, "_")
}

// ParseOrderID splits from the right so user ids containing underscores survive.
func ParseOrderID(raw string) (*Order, error) {
	parts := strings.Split(strings.TrimSpace(raw), "_")
	if len(parts) < 4 {
		return nil, ErrMalformedOrderID
	}
	n := len(parts)
	userID := strings.Join(parts[:n-3], "_")
	if userID == "" {
		return nil, ErrMalformedOrderID
	}
	tier, err := ParseTier(parts[n-3])
	if err != nil || !tier.Purchasable() {
		return nil, ErrMalformedOrderID
	}
	cycle, err := ParseCycle(parts[n-2])
	if err != nil {
		return nil, ErrMalformedOrderID
	}
	ts, err := strconv.ParseInt(parts[n-1], 10, 64)
	if err != nil {
		return nil, ErrMalformedOrderID
	}
	return &Order{UserID: userID, Tier: tier, Cycle: cycle, Timestamp: ts}, nil
}
