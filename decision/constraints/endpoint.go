// Package constraints provides the vendor-constraint endpoint: callers post
// business rules against a ranked candidate list and get the post-filtered
// list back. The most recent posts are kept in history and the latest
// constraints per request id are cached for later lookup while that post is
// still in history.
package constraints

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"procurement-engine/decision/procurement"
)

// StatusSuccess is the status reported for every processed post.
const StatusSuccess = "success"

// DefaultHistoryLimit is how many posts an endpoint remembers.
const DefaultHistoryLimit = 1000

// HistoryEntry records one post.
type HistoryEntry struct {
	RequestID   string                   `json:"request_id"`
	Constraints *procurement.Constraints `json:"constraints"`
	Sequence    int                      `json:"sequence"`
	ReceivedAt  time.Time                `json:"received_at"`
}

// Response is returned for each post.
type Response struct {
	Status             string                   `json:"status"`
	RequestID          string                   `json:"request_id"`
	CandidatesBefore   int                      `json:"candidates_before"`
	CandidatesAfter    int                      `json:"candidates_after"`
	Candidates         []procurement.ScoredItem `json:"candidates"`
	ConstraintsApplied *procurement.Constraints `json:"constraints_applied"`
}

// BulkRequest is one entry of a bulk update.
type BulkRequest struct {
	RequestID   string                   `json:"request_id"`
	Candidates  []procurement.ScoredItem `json:"candidates"`
	Constraints *procurement.Constraints `json:"constraints"`
}

// BulkResponse wraps the per-request responses of a bulk update.
type BulkResponse struct {
	Status        string     `json:"status"`
	TotalRequests int        `json:"total_requests"`
	Results       []Response `json:"results"`
}

type cached struct {
	constraints *procurement.Constraints
	sequence    int
}

// Endpoint applies vendor constraints and remembers the last posts it was
// sent. It is safe for concurrent use.
type Endpoint struct {
	mu       sync.RWMutex
	history  []HistoryEntry
	cache    map[string]cached
	limit    int
	sequence int
	now      func() time.Time
}

// NewEndpoint creates an empty endpoint holding DefaultHistoryLimit posts.
func NewEndpoint() *Endpoint {
	return &Endpoint{
		cache: make(map[string]cached),
		limit: DefaultHistoryLimit,
		now:   time.Now,
	}
}

// WithHistoryLimit changes how many posts are kept. Values <= 0 are ignored.
func (e *Endpoint) WithHistoryLimit(n int) *Endpoint {
	if n > 0 {
		e.mu.Lock()
		e.limit = n
		e.trim()
		e.mu.Unlock()
	}
	return e
}

// Post applies constraints to candidates. An empty requestID is replaced
// with a generated one.
func (e *Endpoint) Post(requestID string, candidates []procurement.ScoredItem, c *procurement.Constraints) Response {
	if requestID == "" {
		requestID = uuid.NewString()
	}
	if candidates == nil {
		candidates = []procurement.ScoredItem{}
	}

	filtered := procurement.ApplyConstraints(candidates, c)

	e.mu.Lock()
	e.history = append(e.history, HistoryEntry{
		RequestID:   requestID,
		Constraints: c,
		Sequence:    e.sequence,
		ReceivedAt:  e.now(),
	})
	e.cache[requestID] = cached{constraints: c, sequence: e.sequence}
	e.sequence++
	e.trim()
	e.mu.Unlock()

	return Response{
		Status:             StatusSuccess,
		RequestID:          requestID,
		CandidatesBefore:   len(candidates),
		CandidatesAfter:    len(filtered),
		Candidates:         filtered,
		ConstraintsApplied: c,
	}
}

// Get returns the latest constraints posted for requestID.
func (e *Endpoint) Get(requestID string) (*procurement.Constraints, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	c, ok := e.cache[requestID]
	return c.constraints, ok
}

// Bulk posts each request in order.
func (e *Endpoint) Bulk(requests []BulkRequest) BulkResponse {
	results := make([]Response, 0, len(requests))
	for _, req := range requests {
		results = append(results, e.Post(req.RequestID, req.Candidates, req.Constraints))
	}
	return BulkResponse{
		Status:        StatusSuccess,
		TotalRequests: len(requests),
		Results:       results,
	}
}

// trim drops the oldest posts beyond the limit, along with cached constraints
// whose latest post was dropped. Callers hold mu.
func (e *Endpoint) trim() {
	over := len(e.history) - e.limit
	if over <= 0 {
		return
	}
	for _, h := range e.history[:over] {
		if c, ok := e.cache[h.RequestID]; ok && c.sequence == h.Sequence {
			delete(e.cache, h.RequestID)
		}
	}
	n := copy(e.history, e.history[over:])
	clear(e.history[n:])
	e.history = e.history[:n]
}

// History returns a copy of the retained posts, oldest first.
func (e *Endpoint) History() []HistoryEntry {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]HistoryEntry, len(e.history))
	copy(out, e.history)
	return out
}
