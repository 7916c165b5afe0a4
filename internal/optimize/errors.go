package optimize

import (
	"errors"
	"net/http"
	"slices"
)

var (
	ErrClosed        = errors.New("optimize: extension is closed")
	ErrQueueFull     = errors.New("optimize: event queue is full")
	ErrNoValidScopes = errors.New("optimize: no valid decision scopes")
)

// ErrorCodeUnexpected is reported under KeyResponseError when a get request
// cannot be answered.
const ErrorCodeUnexpected = 0

// StatusUnknown is the EdgeError status when the response carried none.
const StatusUnknown = -1

const unknown = "unknown"

// Statuses the network layer retries on its own. Errors with these statuses are
// logged but not reported back to the update requester.
var recoverableStatuses = []int{
	http.StatusRequestTimeout,
	http.StatusTooManyRequests,
	http.StatusBadGateway,
	http.StatusServiceUnavailable,
	http.StatusGatewayTimeout,
}

// EdgeError is an error reported by the personalization service for one request.
type EdgeError struct {
	Type   string         `json:"type"`
	Status int            `json:"status"`
	Title  string         `json:"title"`
	Detail string         `json:"detail"`
	Report map[string]any `json:"report,omitempty"`
}

func newEdgeError() EdgeError {
	return EdgeError{Type: unknown, Status: StatusUnknown, Title: unknown, Detail: unknown}
}

// Recoverable reports whether the status is one the network layer retries.
func (e EdgeError) Recoverable() bool {
	return slices.Contains(recoverableStatuses, e.Status)
}

func (e EdgeError) Error() string {
	return e.Title + ": " + e.Detail
}

// ToEventData returns the error in response event shape.
func (e EdgeError) ToEventData() map[string]any {
	data := map[string]any{
		"type":   e.Type,
		"status": e.Status,
		"title":  e.Title,
		"detail": e.Detail,
	}
	if len(e.Report) > 0 {
		data["report"] = e.Report
	}
	return data
}
