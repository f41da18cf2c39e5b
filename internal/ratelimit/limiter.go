// Package ratelimit implements fixed-window admission control keyed by
// client origin and route.
//
// A Limiter delegates window bookkeeping to a Store. MemoryStore keeps
// windows in process and suits tests and single-instance deployments;
// RedisStore shares windows across replicas.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
)

// GlobalKey replaces client keys that cannot be used as-is.
const GlobalKey = "global"

const maxKeyLength = 256

var ErrStoreUnavailable = errors.New("rate limit store unavailable")

// Profile is a named request ceiling per window.
type Profile struct {
	Name        string
	MaxRequests int
	Window      time.Duration
}

// Strict is meant for credential-mutating endpoints.
func Strict(max int, window time.Duration) Profile {
	return Profile{Name: "strict", MaxRequests: max, Window: window}
}

// Lenient is meant for read-only endpoints.
func Lenient(max int, window time.Duration) Profile {
	return Profile{Name: "lenient", MaxRequests: max, Window: window}
}

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// RetryAfter is zero when allowed; otherwise the time left in the window.
	RetryAfter time.Duration
	ResetAt    time.Time
}

// Store applies one hit to the window identified by key.
// Implementations must serialize hits on the same key.
type Store interface {
	Hit(ctx context.Context, key string, profile Profile) (Decision, error)
}

type Limiter struct {
	store   Store
	timeout time.Duration
}

// New returns a Limiter. A non-positive timeout leaves store calls bounded
// only by the caller's context.
func New(store Store, timeout time.Duration) *Limiter {
	return &Limiter{store: store, timeout: timeout}
}

// Admit counts a request from clientKey against route under profile.
func (l *Limiter) Admit(ctx context.Context, clientKey, route string, profile Profile) (Decision, error) {
	if profile.MaxRequests <= 0 || profile.Window <= 0 {
		return Decision{}, fmt.Errorf("invalid rate limit profile %q", profile.Name)
	}

	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	decision, err := l.store.Hit(ctx, WindowKey(profile, route, clientKey), profile)
	if err != nil {
		if errors.Is(err, ErrStoreUnavailable) {
			return Decision{}, err
		}
		return Decision{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return decision, nil
}

// WindowKey composes the storage key for a (profile, route, client) triple.
func WindowKey(profile Profile, route, clientKey string) string {
	return profile.Name + "|" + normalizeRoute(route) + "|" + NormalizeClientKey(clientKey)
}

// NormalizeClientKey returns the trimmed key, or GlobalKey when the key is
// empty, oversized or contains control characters.
func NormalizeClientKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" || len(key) > maxKeyLength {
		return GlobalKey
	}
	for _, r := range key {
		if unicode.IsControl(r) || r == unicode.ReplacementChar {
			return GlobalKey
		}
	}
	return key
}

func normalizeRoute(route string) string {
	route = strings.TrimSpace(route)
	if route == "" {
		return "*"
	}
	return route
}
