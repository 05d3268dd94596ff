package accrual

import "time"

// PeriodKey maps an instant to its accrual period. Periods are calendar
// days shifted by the anchor hour, so a 02:00 UTC anchor keeps the whole
// nightly window inside one period even when the run drifts past midnight.
func PeriodKey(now time.Time, anchorHourUTC int) string {
	return now.UTC().Add(-time.Duration(anchorHourUTC) * time.Hour).Format("2006-01-02")
}
