// Package ration holds the pure decision logic for the daily credit
// allowance: when a user's balance refills and when credits become available
// again. It never touches storage; callers persist its decisions.
package ration

import "time"

// Refresh decides whether a user's allowance refills at instant now.
//
// A nil lastRefill means the user has never been refilled and always refills.
// Otherwise the elapsed time since lastRefill is truncated to whole hours and
// compared against the period: exactly period elapsed is refill-eligible, one
// second less is not.
//
// Refresh returns the post-decision balance and whether a refill happened.
// When refilled is true the caller must persist remaining = max and stamp the
// refill time with now inside the same unit of work.
func Refresh(remaining int, lastRefill *time.Time, now time.Time, max int, period time.Duration) (int, bool) {
	if lastRefill == nil {
		return max, true
	}

	elapsed := now.Sub(*lastRefill)
	if elapsed < 0 {
		// Clock moved backwards relative to the stored stamp; keep the
		// current balance rather than granting an early refill.
		return remaining, false
	}

	periodHours := int(period / time.Hour)
	if wholeHours(elapsed) >= periodHours {
		return max, true
	}
	return remaining, false
}

// NextEligibleAt projects the instant credits become available again after
// the refill stamped at lastRefill.
func NextEligibleAt(lastRefill time.Time, period time.Duration) time.Time {
	return lastRefill.Add(period)
}

// Countdown returns the time left until nextEligible, clamped at zero.
// Consumers re-evaluate it on a fixed interval to drive a live timer.
func Countdown(now, nextEligible time.Time) time.Duration {
	d := nextEligible.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// wholeHours truncates a duration to complete hours. The reference policy
// counts "24+ hours passed" in whole hours of real elapsed time, so partial
// hours never count.
func wholeHours(d time.Duration) int {
	return int(d / time.Hour)
}
