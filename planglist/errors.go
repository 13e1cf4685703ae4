package planglist

import (
	"github.com/programme-lv/ojcore/srvcerror"
)

const ErrCodeInvalidProgLang = "invalid_language"

func ErrInvalidProgLang() *srvcerror.Error {
	return srvcerror.Validation(
		ErrCodeInvalidProgLang,
		"invalid programming language",
	)
}
