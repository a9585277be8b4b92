package indicator

// splitDelta separates a close-to-close change into its gain and loss parts.
// Both are non-negative and at most one is non-zero.
func splitDelta(delta float64) (gain, loss float64) {
	if delta > 0 {
		return delta, 0
	}
	return 0, -delta
}

// wilderNext smooths one gain or loss observation. k is the 1-based index of
// the delta. Up to the period the average is the running simple mean, after
// that Wilder's recurrence avg*(n-1)/n + x/n applies.
func wilderNext(prev, x float64, k, period int) float64 {
	if k <= period {
		return (prev*float64(k-1) + x) / float64(k)
	}
	p := float64(period)
	return prev*(p-1)/p + x/p
}

// RelativeStrength converts smoothed averages into an RSI in [0, 100].
//
// A zero average loss makes the ratio undefined. A positive gain then maps
// to 100 and a flat series maps to NeutralRSI; ambiguous reports that one of
// those two fallbacks was taken.
func RelativeStrength(avgGain, avgLoss float64) (rsi float64, ambiguous bool) {
	if avgLoss == 0 {
		if avgGain > 0 {
			return 100, true
		}
		return NeutralRSI, true
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), false
}
