// Package servicekey authenticates trusted service-to-service calls with a
// static shared secret. This path is independent of the token lifecycle:
// no token is issued, nothing expires, and key rotation is a configuration
// concern outside this process.
package servicekey

import (
	"crypto/subtle"
	"strings"

	domain "github.com/mkshuvo/e-commerce-store-sub001/internal/domain/token"
	"github.com/mkshuvo/e-commerce-store-sub001/internal/obs"
)

// RoleService is the single flat role granted to every service caller.
// Per-key scoping is deliberately not modeled.
const RoleService = "service"

// Identity is the fixed, non-expiring identity granted on a key match.
type Identity struct {
	Name string
	Role string
}

type Authenticator struct {
	keys [][]byte
}

func New(keys []string) *Authenticator {
	a := &Authenticator{}
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		a.keys = append(a.keys, []byte(k))
	}
	return a
}

// Authenticate succeeds only on an exact match against one of the
// configured keys. Every configured key is compared in constant time, and
// the failure is generic so callers learn nothing about the key set.
func (a *Authenticator) Authenticate(presented string) (Identity, error) {
	candidate := []byte(presented)
	matched := false
	for _, k := range a.keys {
		if len(k) == len(candidate) && subtle.ConstantTimeCompare(k, candidate) == 1 {
			matched = true
		}
	}
	if !matched {
		obs.ServiceKeyAuths.WithLabelValues("failure").Inc()
		return Identity{}, domain.ErrAuthFailed
	}
	obs.ServiceKeyAuths.WithLabelValues("success").Inc()
	return Identity{Name: "service", Role: RoleService}, nil
}
