// Package eta computes delivery ETAs from a store's preparation time and a transit estimate.
package eta

import "time"

// PeakTimeMultiplier scales preparation time during lunch and dinner rush.
const PeakTimeMultiplier = 1.2

// IsPeakTime reports whether t falls in lunch (11-13h) or dinner (18-20h) hours.
func IsPeakTime(t time.Time) bool {
	hour := t.Hour()
	return (hour >= 11 && hour <= 13) || (hour >= 18 && hour <= 20)
}

// PrepMinutes returns the preparation time to plan for at time now.
func PrepMinutes(avgPrepMinutes int, now time.Time) int {
	if IsPeakTime(now) {
		return int(float64(avgPrepMinutes) * PeakTimeMultiplier)
	}
	return avgPrepMinutes
}

// Calculate returns now plus preparation and transit minutes.
func Calculate(avgPrepMinutes, transitMinutes int, now time.Time) time.Time {
	total := PrepMinutes(avgPrepMinutes, now) + transitMinutes
	return now.Add(time.Duration(total) * time.Minute)
}
