package memory

import (
	"context"
	"sync"

	"github.com/mkshuvo/e-commerce-store-sub001/internal/domain/audit"
)

// AuditSink collects records in memory. Err, when set, is returned by every
// append; tests use it to exercise the degraded path.
type AuditSink struct {
	mu      sync.Mutex
	records []audit.Record

	Err error
}

var _ audit.Sink = (*AuditSink)(nil)

func NewAuditSink() *AuditSink { return &AuditSink{} }

func (s *AuditSink) Record(_ context.Context, rec audit.Record) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *AuditSink) Records() []audit.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]audit.Record, len(s.records))
	copy(out, s.records)
	return out
}
