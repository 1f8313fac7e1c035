package errors

import (
	"context"
	"net/http"
)

// Response is a JSON-serializable version of an Error. It can be used to
// transmit errors across the REST API.
type Response struct {
	Error   string      `json:"error,omitempty"`
	Details interface{} `json:"details,omitempty"`
	Status  int         `json:"status,omitempty"`
}

// ToError converts an ErrorResponse back into an Error
func (e Response) ToError() error {
	switch e.Status {
	case http.StatusOK:
		return nil
	case http.StatusBadRequest:
		return E(Invalid, e.Error)
	case http.StatusNotFound:
		return E(NotExist, e.Error)
	case http.StatusConflict:
		return E(Conflict, e.Error)
	case http.StatusUnprocessableEntity:
		return E(Normalization, e.Error)
	case http.StatusBadGateway:
		return E(Transport, e.Error)
	}
	return Errorf("status %d: %s", e.Status, e.Error)
}

// ResponseForError constructs an ErrorResponse based on an Error. Since this
// object is user-visible it's not a 1-1 mapping. Some errors will return
// detailed information about why the error happened in the Error and Details
// sections. Others will just return an opaque error type.
func ResponseForError(err error) Response {
	return Response{
		Error:   errText(err),
		Details: errDetails(err),
		Status:  errStatus(err),
	}
}

func errText(err error) string {
	if e, ok := err.(*Error); ok {
		switch e.Kind {
		case Invalid, Conflict, Normalization, Export:
			return e.Error()
		case Transport:
			return "the upstream events feed is unavailable. try again in a few minutes."
		}
	}

	return http.StatusText(errStatus(err))
}

func errDetails(err error) interface{} {
	return nil
}

func errStatus(err error) int {
	switch err {
	case context.Canceled:
		return http.StatusBadRequest
	}

	if e, ok := err.(*Error); ok {
		switch e.Kind {
		case Other:
			return http.StatusInternalServerError
		case Invalid:
			return http.StatusBadRequest
		case NotExist:
			return http.StatusNotFound
		case Exist, Conflict:
			return http.StatusConflict
		case Normalization:
			return http.StatusUnprocessableEntity
		case Transport:
			return http.StatusBadGateway
		case Export, Internal:
			return http.StatusInternalServerError
		default:
			return http.StatusInternalServerError
		}
	}

	return http.StatusInternalServerError
}
