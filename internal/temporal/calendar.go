package temporal

import "time"

// Hemisphere selects the meteorological season mapping. The original data
// set covers the northern hemisphere; Northern is the documented default when
// the configuration is silent.
type Hemisphere string

const (
	Northern Hemisphere = "north"
	Southern Hemisphere = "south"
)

// Season is a meteorological season label.
type Season string

const (
	Winter Season = "Winter"
	Spring Season = "Spring"
	Summer Season = "Summer"
	Autumn Season = "Autumn"
)

// Features are the calendar attributes appended to point records.
type Features struct {
	Month      int    // 1..12
	WeekOfYear int    // ISO week, 1..53
	Season     Season // meteorological
}

// SeasonOf maps a month to its meteorological season. In the northern
// hemisphere Dec-Feb is winter; the southern mapping is shifted by six
// months.
func SeasonOf(month int, h Hemisphere) Season {
	if h == Southern {
		month = ((month + 5) % 12) + 1
	}
	switch month {
	case 12, 1, 2:
		return Winter
	case 3, 4, 5:
		return Spring
	case 6, 7, 8:
		return Summer
	default:
		return Autumn
	}
}

// HemisphereFor returns the hemisphere implied by a latitude sign.
func HemisphereFor(lat float64) Hemisphere {
	if lat < 0 {
		return Southern
	}
	return Northern
}

// CalendarFeatures extracts month, ISO week-of-year, and season from a
// timestamp.
func CalendarFeatures(t time.Time, h Hemisphere) Features {
	_, week := t.ISOWeek()
	month := int(t.Month())
	return Features{
		Month:      month,
		WeekOfYear: week,
		Season:     SeasonOf(month, h),
	}
}

// IsSummerMonth reports whether t falls in one of the given summer months.
func IsSummerMonth(t time.Time, months []int) bool {
	m := int(t.Month())
	for _, sm := range months {
		if m == sm {
			return true
		}
	}
	return false
}
