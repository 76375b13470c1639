package notary

// Status is the notarization session state. A session starts NotSubmitted,
// moves through Submitted and Polling, and ends in exactly one terminal
// state.
type Status string

const (
	StatusNotSubmitted Status = "not_submitted"
	StatusSubmitted    Status = "submitted"
	StatusPolling      Status = "polling"
	StatusSuccess      Status = "success"
	StatusRejected     Status = "rejected"
	StatusTimedOut     Status = "timed_out"
	StatusServiceError Status = "service_error"
)

// Terminal reports whether the status ends the session.
func (s Status) Terminal() bool {
	switch s {
	case StatusSuccess, StatusRejected, StatusTimedOut, StatusServiceError:
		return true
	default:
		return false
	}
}

// Session tracks one submission to the notarization service.
type Session struct {
	RequestID string
	BundleID  string
	Archive   string
	Status    Status
	Attempts  int
}
