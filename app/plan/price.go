package plan

type Price struct {
	Amount  int64
	PriceID string
}

func (p Price) AmountMinor() int64 {
	return p.Amount * 100
}

type PriceTable map[string]Price

func (t PriceTable) Lookup(tier Tier, cycle Cycle) (Price, bool) {
	price, ok := t[Key(tier, cycle)]
	if !ok {
		return Price{}, false
	}
	if price.Amount <= 0 && price.PriceID == "" {
		return Price{}, false
	}
	return price, true
}

type Entry struct {
	Tier  Tier
	Cycle Cycle
	Price Price
}

func (t PriceTable) Entries() []Entry {
	entries := make([]Entry, 0, len(t))
	for _, tier := range purchasable {
		for _, cycle := range cycles {
			if price, ok := t.Lookup(tier, cycle); ok {
				entries = append(entries, Entry{Tier: tier, Cycle: cycle, Price: price})
			}
		}
	}
	return entries
}

// Catalogued keeps only the entries that reference a provider price id.
func (t PriceTable) Catalogued() PriceTable {
	out := make(PriceTable, len(t))
	for key, price := range t {
		if price.PriceID != "" {
			out[key] = price
		}
	}
	return out
}
