package indicator

// Alpha returns the EMA smoothing factor 2/(n+1).
func Alpha(period int) float64 {
	return 2.0 / float64(period+1)
}

// emaNext applies one EMA recurrence: alpha*x + (1-alpha)*prev.
// A series' first observation is its own average; callers seed with it.
func emaNext(prev, x, alpha float64) float64 {
	return alpha*x + (1-alpha)*prev
}
