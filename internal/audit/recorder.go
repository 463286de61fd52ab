// Package audit writes the security trail for the session core. Appends are
// fire-and-forget from the caller's perspective: a failed write never blocks
// the authentication decision, but it is counted and logged as a degraded
// mode since it weakens forensic guarantees.
package audit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mkshuvo/e-commerce-store-sub001/internal/domain/audit"
	"github.com/mkshuvo/e-commerce-store-sub001/internal/obs"
)

const writeTimeout = 2 * time.Second

type Recorder struct {
	sink audit.Sink
	log  *zap.Logger
	now  func() time.Time
}

func NewRecorder(sink audit.Sink, log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{
		sink: sink,
		log:  log.With(zap.String("component", "audit")),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source. Test use only.
func (r *Recorder) WithClock(now func() time.Time) *Recorder {
	cp := *r
	cp.now = now
	return &cp
}

// Record appends one entry. The write gets its own bounded timeout so a
// slow sink cannot hold an authentication request hostage.
func (r *Recorder) Record(ctx context.Context, rec audit.Record) {
	if rec.At.IsZero() {
		rec.At = r.now()
	}
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()
	if err := r.sink.Record(wctx, rec); err != nil {
		obs.AuditWriteFailures.Inc()
		r.log.Warn("audit append failed",
			zap.String("kind", string(rec.Kind)),
			zap.String("outcome", string(rec.Outcome)),
			zap.Error(err),
		)
	}
}
