package contest

import (
	"github.com/programme-lv/ojcore/srvcerror"
)

const (
	ErrCodeContestNotFound        = "contest_not_found"
	ErrCodeInvalidRule            = "invalid_rule"
	ErrCodeInvalidContestWindow   = "invalid_contest_window"
	ErrCodeInvalidPenaltySchedule = "invalid_penalty_schedule"
	ErrCodeInvalidProblemList     = "invalid_problem_list"
	ErrCodeContestNotLive         = "contest_not_live"
	ErrCodeContestNotAttended     = "contest_not_attended"
)

func ErrContestNotFound() *srvcerror.Error {
	return srvcerror.NotFound(
		ErrCodeContestNotFound,
		"contest not found",
	)
}

func ErrInvalidRule() *srvcerror.Error {
	return srvcerror.Validation(
		ErrCodeInvalidRule,
		"unknown contest rule",
	)
}

func ErrInvalidContestWindow(msg string) *srvcerror.Error {
	return srvcerror.Validation(
		ErrCodeInvalidContestWindow,
		msg,
	)
}

func ErrInvalidPenaltySchedule(msg string) *srvcerror.Error {
	return srvcerror.Validation(
		ErrCodeInvalidPenaltySchedule,
		msg,
	)
}

func ErrInvalidProblemList(msg string) *srvcerror.Error {
	return srvcerror.Validation(
		ErrCodeInvalidProblemList,
		msg,
	)
}

func ErrContestNotLive() *srvcerror.Error {
	return srvcerror.Validation(
		ErrCodeContestNotLive,
		"contest is not open for this action now",
	)
}

func ErrContestNotAttended() *srvcerror.Error {
	return srvcerror.Validation(
		ErrCodeContestNotAttended,
		"you have not attended this contest",
	)
}
