package audit

import (
	"context"
	"time"
)

// Kind identifies the security-relevant operation an entry describes.
type Kind string

const (
	KindLogin          Kind = "auth.login"
	KindRefresh        Kind = "auth.refresh"
	KindRevoke         Kind = "auth.revoke"
	KindRevokeAll      Kind = "auth.revoke_all"
	KindServiceKeyAuth Kind = "auth.service_key"
)

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	// OutcomeReplay marks refresh-token reuse, the strongest signal of
	// credential theft this core can observe.
	OutcomeReplay Outcome = "replay"
)

// Record is one append-only audit entry. Never mutated, never deleted here;
// durable retention is the log collaborator's problem.
type Record struct {
	ActorID   string            `json:"actor_id,omitempty"` // empty for anonymous failures
	Kind      Kind              `json:"kind"`
	Outcome   Outcome           `json:"outcome"`
	Origin    string            `json:"origin,omitempty"`
	UserAgent string            `json:"user_agent,omitempty"`
	At        time.Time         `json:"at"`
	Detail    map[string]string `json:"detail,omitempty"`
}

// Sink appends records to the durable audit log.
type Sink interface {
	Record(ctx context.Context, rec Record) error
}
