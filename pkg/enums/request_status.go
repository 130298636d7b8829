package enums

import "fmt"

// RequestStatus tracks the lifecycle of a donation request.
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusApproved  RequestStatus = "approved"
	RequestStatusRejected  RequestStatus = "rejected"
	RequestStatusCompleted RequestStatus = "completed"
	RequestStatusCancelled RequestStatus = "cancelled"
)

var validRequestStatuses = []RequestStatus{
	RequestStatusPending,
	RequestStatusApproved,
	RequestStatusRejected,
	RequestStatusCompleted,
	RequestStatusCancelled,
}

// String implements fmt.Stringer.
func (r RequestStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RequestStatus.
func (r RequestStatus) IsValid() bool {
	for _, candidate := range validRequestStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further status transitions are allowed.
func (r RequestStatus) IsTerminal() bool {
	switch r {
	case RequestStatusRejected, RequestStatusCompleted, RequestStatusCancelled:
		return true
	}
	return false
}

// ParseRequestStatus converts raw input into a RequestStatus.
func ParseRequestStatus(value string) (RequestStatus, error) {
	for _, candidate := range validRequestStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid request status %q", value)
}
