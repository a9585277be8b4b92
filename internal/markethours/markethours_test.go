package markethours

import (
	"strings"
	"testing"
	"time"
)

func et(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, ET)
}

func TestIsMarketOpen(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"before open", et(2026, time.March, 10, 9, 29), false},
		{"at open", et(2026, time.March, 10, 9, 30), true},
		{"midday", et(2026, time.March, 10, 12, 0), true},
		{"at close", et(2026, time.March, 10, 16, 0), false},
		{"saturday", et(2026, time.March, 14, 12, 0), false},
		{"good friday", et(2026, time.April, 3, 12, 0), false},
		{"july 4 observed", et(2026, time.July, 3, 12, 0), false},
		{"early close before", et(2026, time.November, 27, 12, 59), true},
		{"early close after", et(2026, time.November, 27, 13, 0), false},
		{"utc input", time.Date(2026, time.March, 10, 14, 30, 0, 0, time.UTC), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsMarketOpen(tt.at); got != tt.want {
				t.Errorf("IsMarketOpen(%s)=%v, want %v", tt.at, got, tt.want)
			}
		})
	}
}

func TestExtendedSession(t *testing.T) {
	ext := Session{Extended: true}
	if !ext.IsOpen(et(2026, time.March, 10, 4, 0)) {
		t.Error("extended should be open at 04:00")
	}
	if !ext.IsOpen(et(2026, time.March, 10, 19, 59)) {
		t.Error("extended should be open at 19:59")
	}
	if ext.IsOpen(et(2026, time.March, 10, 20, 0)) {
		t.Error("extended should be closed at 20:00")
	}
	if ext.IsOpen(et(2026, time.December, 25, 10, 0)) {
		t.Error("extended should be closed on holidays")
	}
}

func TestNextOpen(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want time.Time
	}{
		{"same day pre-open", et(2026, time.March, 10, 8, 0), et(2026, time.March, 10, 9, 30)},
		{"during session", et(2026, time.March, 10, 11, 0), et(2026, time.March, 10, 9, 30)},
		{"after close", et(2026, time.March, 10, 17, 0), et(2026, time.March, 11, 9, 30)},
		{"friday evening", et(2026, time.March, 13, 17, 0), et(2026, time.March, 16, 9, 30)},
		{"thursday before good friday", et(2026, time.April, 2, 17, 0), et(2026, time.April, 6, 9, 30)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextOpen(tt.at); !got.Equal(tt.want) {
				t.Errorf("NextOpen(%s)=%s, want %s", tt.at, got, tt.want)
			}
		})
	}
}

func TestTimeUntil(t *testing.T) {
	at := et(2026, time.March, 10, 15, 0)
	if d := Regular.TimeUntilClose(at); d != time.Hour {
		t.Errorf("TimeUntilClose=%s, want 1h", d)
	}
	if d := Regular.TimeUntilOpen(at); d != 0 {
		t.Errorf("TimeUntilOpen while open=%s, want 0", d)
	}
	if d := Regular.TimeUntilClose(et(2026, time.March, 10, 17, 0)); d != 0 {
		t.Errorf("TimeUntilClose after close=%s, want 0", d)
	}
}

func TestStatusString(t *testing.T) {
	if s := Regular.StatusString(et(2026, time.March, 10, 15, 0)); !strings.HasPrefix(s, "Market Open") {
		t.Errorf("status=%q", s)
	}
	s := Regular.StatusString(et(2026, time.March, 13, 17, 0))
	if !strings.Contains(s, "Mon 09:30") {
		t.Errorf("status=%q, want Monday open", s)
	}
}
