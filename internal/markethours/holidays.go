package markethours

import "time"

type day struct {
	year  int
	month time.Month
	day   int
}

// NYSE full-day closures, observed dates.
var nyseHolidays = []day{
	{2025, time.January, 1},   // New Year's Day
	{2025, time.January, 9},   // National Day of Mourning
	{2025, time.January, 20},  // Martin Luther King Jr. Day
	{2025, time.February, 17}, // Washington's Birthday
	{2025, time.April, 18},    // Good Friday
	{2025, time.May, 26},      // Memorial Day
	{2025, time.June, 19},     // Juneteenth
	{2025, time.July, 4},      // Independence Day
	{2025, time.September, 1}, // Labor Day
	{2025, time.November, 27}, // Thanksgiving
	{2025, time.December, 25}, // Christmas
	{2026, time.January, 1},   // New Year's Day
	{2026, time.January, 19},  // Martin Luther King Jr. Day
	{2026, time.February, 16}, // Washington's Birthday
	{2026, time.April, 3},     // Good Friday
	{2026, time.May, 25},      // Memorial Day
	{2026, time.June, 19},     // Juneteenth
	{2026, time.July, 3},      // Independence Day (observed)
	{2026, time.September, 7}, // Labor Day
	{2026, time.November, 26}, // Thanksgiving
	{2026, time.December, 25}, // Christmas
}

// Sessions that close at 13:00 ET.
var nyseEarlyCloses = []day{
	{2025, time.July, 3},
	{2025, time.November, 28},
	{2025, time.December, 24},
	{2026, time.November, 27},
	{2026, time.December, 24},
}

var (
	holidaySet    = toSet(nyseHolidays)
	earlyCloseSet = toSet(nyseEarlyCloses)
)

func toSet(days []day) map[string]bool {
	s := make(map[string]bool, len(days))
	for _, d := range days {
		s[dateKey(time.Date(d.year, d.month, d.day, 12, 0, 0, 0, ET))] = true
	}
	return s
}

// IsHoliday returns true if the date (in ET) is an NYSE holiday.
func IsHoliday(t time.Time) bool {
	return holidaySet[dateKey(t)]
}

// IsEarlyClose returns true if the regular session ends at 13:00 ET.
func IsEarlyClose(t time.Time) bool {
	return earlyCloseSet[dateKey(t)]
}

func dateKey(t time.Time) string {
	return t.In(ET).Format("2006-01-02")
}
