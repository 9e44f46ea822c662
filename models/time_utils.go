package models

import "time"

// Timeframe is the horizon of a prediction
type Timeframe string

const (
	Timeframe1Week   Timeframe = "1week"
	Timeframe1Month  Timeframe = "1month"
	Timeframe3Months Timeframe = "3months"
	Timeframe6Months Timeframe = "6months"
	Timeframe1Year   Timeframe = "1year"
	Timeframe5Years  Timeframe = "5years"
)

// Timeframes in menu order
var Timeframes = []Timeframe{
	Timeframe1Week,
	Timeframe1Month,
	Timeframe3Months,
	Timeframe6Months,
	Timeframe1Year,
	Timeframe5Years,
}

// LastUpdatedLayout matches "Mar 14, 2025, 09:30 AM"
const LastUpdatedLayout = "Jan 02, 2006, 03:04 PM"

// Label returns the human wording used in prompts and templates
func (t Timeframe) Label() string {
	switch t {
	case Timeframe1Week:
		return "1 week"
	case Timeframe1Month:
		return "1 month"
	case Timeframe3Months:
		return "3 months"
	case Timeframe6Months:
		return "6 months"
	case Timeframe1Year:
		return "1 year"
	case Timeframe5Years:
		return "5 years"
	}
	// Unknown values pass through so a custom horizon still reads naturally
	return string(t)
}

// FormatLastUpdated renders a timestamp the way clients display it
func FormatLastUpdated(t time.Time) string {
	return t.Format(LastUpdatedLayout)
}
