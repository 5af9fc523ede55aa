package domain

import "time"

// StreakTransition names the edge the streak state machine took for one work date.
type StreakTransition string

// Streak transitions.
const (
	StreakStarted   StreakTransition = "started"
	StreakSameDay   StreakTransition = "same_day"
	StreakContinued StreakTransition = "continued"
	StreakBroken    StreakTransition = "broken"
	StreakBackdated StreakTransition = "backdated"
)

// ApplyWorkDate advances the streak fields for a work event on workDate.
//
// An event dated before LastWorkDate is ignored entirely so out-of-order
// delivery can never move the streak backwards. A same-day event is a no-op.
func (s *UserStats) ApplyWorkDate(workDate time.Time) StreakTransition {
	workDate = Date(workDate)

	var transition StreakTransition
	switch {
	case s.LastWorkDate.IsZero():
		s.CurrentStreak = 1
		s.TotalWorkDays = 1
		s.LastWorkDate = workDate
		transition = StreakStarted
	default:
		diff := DaysBetween(s.LastWorkDate, workDate)
		switch {
		case diff == 0:
			return StreakSameDay
		case diff < 0:
			return StreakBackdated
		case diff == 1:
			s.CurrentStreak++
			transition = StreakContinued
		default:
			s.CurrentStreak = 1
			transition = StreakBroken
		}
		s.TotalWorkDays++
		s.LastWorkDate = workDate
	}

	s.LongestStreak = max(s.LongestStreak, s.CurrentStreak)
	return transition
}

// DecayStreak zeroes the current streak when more than one day has passed
// since the last work date. LongestStreak and TotalWorkDays are untouched.
// Returns true if the streak was reset.
func (s *UserStats) DecayStreak(today time.Time) bool {
	if s.LastWorkDate.IsZero() || s.CurrentStreak == 0 {
		return false
	}
	if DaysBetween(s.LastWorkDate, Date(today)) > 1 {
		s.CurrentStreak = 0
		return true
	}
	return false
}
