package billing

// PriceOf resolves the effective price of one session: a per-event
// override wins, otherwise the matched patient's default price. There
// is no other fallback.
func PriceOf(eventID string, defaultPrice float64, overrides Overrides) float64 {
	if price, ok := overrides[eventID]; ok {
		return price
	}
	return defaultPrice
}
