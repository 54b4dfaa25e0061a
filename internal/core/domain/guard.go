package domain

// GuardResult is the outcome of a single policy check.
type GuardResult struct {
	Guard      string `json:"guard"`
	Passed     bool   `json:"passed"`
	Reason     string `json:"reason,omitempty"`
	TrackingID string `json:"trackingId"`
}
