package audit

import "time"

// Operation names the discovery call being audited.
type Operation string

const (
	OperationResolveByKey        Operation = "resolve_by_key"
	OperationResolveByAttributes Operation = "resolve_by_attributes"
)

// Event records one discovery request and the purpose disclosed with it.
// Search terms are not stored; only their length is kept.
type Event struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	RequestID   string    `json:"request_id,omitempty"`
	Operation   Operation `json:"operation"`
	Purpose     string    `json:"purpose"`
	Subject     string    `json:"subject,omitempty"`
	QueryLength int       `json:"query_length,omitempty"`
	Outcome     string    `json:"outcome"`
	Results     int       `json:"results"`
}
