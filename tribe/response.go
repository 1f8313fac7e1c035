package tribe

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// EventsResponse is one page of the events feed. Events stay raw here:
// decoding them is the normalize package's job, and doing it one record at a
// time keeps a single malformed event from sinking the whole page.
type EventsResponse struct {
	Events []json.RawMessage `json:"events"`

	RestURL string `json:"rest_url"`
	// NextRestURL is empty on the last page.
	NextRestURL     string `json:"next_rest_url"`
	PreviousRestURL string `json:"previous_rest_url"`

	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// Error is an error returned by the Events Calendar REST API.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// Status is the HTTP status, taken from the error body's data.status
	// when present and the response line otherwise.
	Status int `json:"-"`
}

func (e Error) Error() string {
	return fmt.Sprintf("%s code=%q status=%d", e.Message, e.Code, e.Status)
}

func parseError(body io.Reader, httpStatus int) Error {
	var resp struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Data    struct {
			Status int `json:"status"`
		} `json:"data"`
	}
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		msg := fmt.Sprintf("failed to decode error: %v", err)
		return Error{Message: msg, Status: httpStatus}
	}

	status := resp.Data.Status
	if status == 0 {
		status = httpStatus
	}
	return Error{Code: resp.Code, Message: resp.Message, Status: status}
}

// IsNotFound reports whether err is the API saying an event id doesn't exist.
func IsNotFound(err error) bool {
	e, ok := err.(Error)
	if !ok {
		return false
	}
	return e.Status == http.StatusNotFound
}

// IsPastEnd reports whether err is the API's way of saying a page number ran
// past the last page. The feed can shrink while being paginated, so callers
// treat this as the end of the feed rather than a failure. A bare 400 with
// rest_invalid_param counts: page is the only parameter we vary.
func IsPastEnd(err error) bool {
	e, ok := err.(Error)
	if !ok {
		return false
	}
	if e.Status == http.StatusNotFound {
		return true
	}
	return e.Status == http.StatusBadRequest && e.Code == "rest_invalid_param"
}
