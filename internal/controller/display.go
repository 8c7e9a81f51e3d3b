package controller

import (
	"errors"

	"github.com/Nazarious-ucu/weather-push-notifier/internal/models"
)

const (
	MsgSomethingWrong = "Something went wrong 🤔"
	MsgMalformedToken = "This device has no valid push token."
	MsgInFlight       = "Please wait, the previous change is still being saved."
	MsgStorage        = "Could not save your notification settings. Try again later."
	MsgNetwork        = "Could not reach the server. Check your connection."
)

// DisplayMessage turns an error returned by the controller into a string
// fit for the user. A nil error yields "".
func DisplayMessage(err error) string {
	if err == nil {
		return ""
	}

	var (
		storageErr   *models.StorageError
		transportErr *models.TransportError
	)
	switch {
	case errors.Is(err, models.ErrMalformedIdentity):
		return MsgMalformedToken
	case errors.Is(err, ErrOperationInFlight):
		return MsgInFlight
	case errors.As(err, &storageErr):
		return MsgStorage
	case errors.As(err, &transportErr):
		return MsgNetwork
	default:
		return MsgSomethingWrong
	}
}
