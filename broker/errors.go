package broker

import "github.com/programme-lv/ojcore/srvcerror"

const ErrCodeManagerClosed = "broker_manager_closed"

func ErrManagerClosed() *srvcerror.Error {
	return srvcerror.Unavailable(
		ErrCodeManagerClosed,
		"broker manager has been shut down",
	)
}
