package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/spec-kit/mailroom/internal/domain"
)

// Metrics provides basic in-memory counters for requests and intake runs.
type Metrics struct {
	mu            sync.Mutex
	requestCount  map[string]int64
	errorCount    map[string]int64
	intakeCount   map[string]int64
	mailboxErrors map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:  make(map[string]int64),
		errorCount:    make(map[string]int64),
		intakeCount:   make(map[string]int64),
		mailboxErrors: make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + strconv.Itoa(status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordIntakeOutcome counts one ledgered message per tenant and outcome.
func (m *Metrics) RecordIntakeOutcome(tenantID string, outcome domain.LedgerOutcome) {
	if m == nil {
		return
	}
	key := tenantID + "|" + string(outcome)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.intakeCount[key]++
}

// RecordMailboxFailure counts a failed poll run for a mailbox.
func (m *Metrics) RecordMailboxFailure(mailboxID string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mailboxErrors[mailboxID]++
}

// IntakeSnapshot returns a copy of the intake counters, for the health API.
func (m *Metrics) IntakeSnapshot() map[string]int64 {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := make(map[string]int64, len(m.intakeCount))
	for key, count := range m.intakeCount {
		snapshot[key] = count
	}
	return snapshot
}
