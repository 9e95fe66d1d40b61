package window

// Dashboard returns the windows of the classic subscriptions dashboard:
// the last three days, an eight day daily series, the last two weeks and
// months, and all time. Monthly and all time windows are segmented by plan.
func Dashboard() []Definition {
	return []Definition{
		Day("today", 0),
		Day("yesterday", 1),
		Day("2 days ago", 2),
		Rolling("for the last week", UnitDay, 8),
		Between("0-1 weeks ago", UnitWeek, 0, 1),
		Between("1-2 weeks ago", UnitWeek, 1, 2),
		Between("0-1 months ago", UnitMonth, 0, 1).PerPlan(),
		Between("1-2 months ago", UnitMonth, 1, 2).PerPlan(),
		Total("").PerPlan(),
	}
}

// Matrix returns the trailing day/week/month/year series
func Matrix() []Definition {
	return []Definition{
		Rolling("for the last 30 days", UnitDay, 30),
		Rolling("for the last 52 weeks", UnitWeek, 52),
		Rolling("for the last 12 months", UnitMonth, 12),
		Rolling("for the last 10 years", UnitYear, 10),
	}
}
