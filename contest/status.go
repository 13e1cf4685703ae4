package contest

import "time"

type Phase string

const (
	PhaseNotStarted Phase = "not_started"
	PhaseOngoing    Phase = "ongoing"
	PhaseFinished   Phase = "finished"
)

const upcomingLead = 24 * time.Hour

func (c Contest) IsNotStarted(now time.Time) bool {
	return now.Before(c.BeginAt)
}

func (c Contest) IsOngoing(now time.Time) bool {
	return !now.Before(c.BeginAt) && now.Before(c.EndAt)
}

func (c Contest) IsFinished(now time.Time) bool {
	return !now.Before(c.EndAt)
}

// IsUpcoming reports a contest starting within the next day.
func (c Contest) IsUpcoming(now time.Time) bool {
	return !now.Before(c.BeginAt.Add(-upcomingLead)) && now.Before(c.BeginAt)
}

// IsExtended reports a homework past its penalty start but still open.
func (c Contest) IsExtended(now time.Time) bool {
	if c.PenaltySince == nil {
		return false
	}
	return !now.Before(*c.PenaltySince) && now.Before(c.EndAt)
}

func (c Contest) Phase(now time.Time) Phase {
	switch {
	case c.IsNotStarted(now):
		return PhaseNotStarted
	case c.IsOngoing(now):
		return PhaseOngoing
	default:
		return PhaseFinished
	}
}
