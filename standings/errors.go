package standings

import "github.com/programme-lv/ojcore/srvcerror"

const (
	ErrCodeStandingNotFound = "standing_not_found"
	ErrCodeScoreboardHidden = "scoreboard_hidden"
)

func ErrStandingNotFound() *srvcerror.Error {
	return srvcerror.NotFound(
		ErrCodeStandingNotFound,
		"no standing for this contestant",
	)
}

func ErrScoreboardHidden() *srvcerror.Error {
	return srvcerror.Forbidden(
		ErrCodeScoreboardHidden,
		"scoreboard is not visible yet",
	)
}
