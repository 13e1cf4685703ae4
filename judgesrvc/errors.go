package judgesrvc

import "github.com/programme-lv/ojcore/srvcerror"

const (
	ErrCodeInvalidClaim   = "invalid_claim"
	ErrCodeInvalidOutcome = "invalid_outcome"
)

func ErrInvalidClaim() *srvcerror.Error {
	return srvcerror.Validation(
		ErrCodeInvalidClaim,
		"judge id and token must not be empty",
	)
}

func ErrInvalidOutcome() *srvcerror.Error {
	return srvcerror.Validation(
		ErrCodeInvalidOutcome,
		"judge outcome must be a final status",
	)
}
