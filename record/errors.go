package record

import (
	"github.com/programme-lv/ojcore/srvcerror"
)

const ErrCodeRecordNotFound = "record_not_found"

func ErrRecordNotFound() *srvcerror.Error {
	return srvcerror.NotFound(
		ErrCodeRecordNotFound,
		"record not found",
	)
}

const ErrCodeRecordExists = "record_exists"

func ErrRecordExists() *srvcerror.Error {
	return srvcerror.New(
		ErrCodeRecordExists,
		"record with this id already exists",
	)
}
