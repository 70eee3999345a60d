// Package stress replays historical market windows against the current portfolio.
package stress

import (
	"time"
)

// Scenario is a named historical window, inclusive on both ends.
type Scenario struct {
	Name  string    `json:"name" yaml:"name"`
	Start time.Time `json:"start" yaml:"start"`
	End   time.Time `json:"end" yaml:"end"`
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DefaultScenarios returns the built-in historical windows.
func DefaultScenarios() []Scenario {
	return []Scenario{
		{Name: "COVID Crash", Start: day(2020, time.February, 19), End: day(2020, time.March, 23)},
		{Name: "2022 Rate Hikes", Start: day(2022, time.January, 3), End: day(2022, time.October, 12)},
		{Name: "2018 Q4 Selloff", Start: day(2018, time.October, 1), End: day(2018, time.December, 24)},
		{Name: "GFC Lehman", Start: day(2008, time.September, 1), End: day(2009, time.March, 9)},
		{Name: "2015 China Devaluation", Start: day(2015, time.August, 10), End: day(2015, time.August, 25)},
		{Name: "2020 Tech Rebound", Start: day(2020, time.March, 23), End: day(2020, time.September, 2)},
		{Name: "Brexit Vote", Start: day(2016, time.June, 23), End: day(2016, time.June, 27)},
		{Name: "2023 Banking Stress", Start: day(2023, time.March, 8), End: day(2023, time.March, 24)},
	}
}
