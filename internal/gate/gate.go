// Package gate decides per page request whether a visitor may see a route,
// based on the route's class, the locale in its path and session presence.
package gate

import (
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/ikkim/coach-portal-backend/pkg/util"
)

type Class int

const (
	Public Class = iota
	AuthOnly
	Protected
)

func (c Class) String() string {
	switch c {
	case AuthOnly:
		return "auth_only"
	case Protected:
		return "protected"
	default:
		return "public"
	}
}

type Action int

const (
	PassThrough Action = iota
	Redirect
)

// Rule classifies every path equal to Prefix or below it.
type Rule struct {
	Prefix string
	Class  Class
}

// DefaultRules is the route table of the portal. The first matching rule wins.
var DefaultRules = []Rule{
	{Prefix: "/dashboard", Class: Protected},
	{Prefix: "/checkout", Class: Protected},
	{Prefix: "/auth/login", Class: AuthOnly},
	{Prefix: "/auth/register", Class: AuthOnly},
}

type Decision struct {
	Action   Action
	Location string
	Class    Class
	Locale   string
}

// SessionVerifier reports the session carried by a request, if any.
type SessionVerifier interface {
	Verify(r *http.Request) (*util.SessionClaims, bool)
}

type Gate struct {
	rules         []Rule
	locales       map[string]struct{}
	defaultLocale string
}

func New(rules []Rule, supportedLocales []string, defaultLocale string) *Gate {
	locales := make(map[string]struct{}, len(supportedLocales))
	for _, l := range supportedLocales {
		locales[l] = struct{}{}
	}
	return &Gate{
		rules:         append([]Rule(nil), rules...),
		locales:       locales,
		defaultLocale: defaultLocale,
	}
}

// Decide maps a request path and session presence to pass-through or redirect.
// Empty and dot segments are collapsed before matching.
func (g *Gate) Decide(requestPath string, hasSession bool) Decision {
	cleaned := path.Clean("/" + requestPath)
	locale, rest, detected := g.SplitLocale(cleaned)
	if !detected {
		locale = g.defaultLocale
	}
	class := g.Classify(rest)

	d := Decision{Action: PassThrough, Class: class, Locale: locale}
	switch {
	case class == Protected && !hasSession:
		d.Action = Redirect
		d.Location = LoginPath(locale, cleaned)
	case class == AuthOnly && hasSession:
		d.Action = Redirect
		d.Location = DashboardPath(locale)
	}
	return d
}

// Classify returns the class of the first rule matching a locale-free path.
func (g *Gate) Classify(path string) Class {
	for _, r := range g.rules {
		if matchPrefix(path, r.Prefix) {
			return r.Class
		}
	}
	return Public
}

// SplitLocale strips a supported locale from the first path segment.
func (g *Gate) SplitLocale(path string) (locale, rest string, ok bool) {
	trimmed := strings.TrimPrefix(path, "/")
	segment, tail, _ := strings.Cut(trimmed, "/")
	if _, supported := g.locales[segment]; !supported {
		return "", path, false
	}
	return segment, "/" + tail, true
}

// ResolveLocale returns tag if it is supported and the default otherwise.
func (g *Gate) ResolveLocale(tag string) string {
	if _, ok := g.locales[tag]; ok {
		return tag
	}
	return g.defaultLocale
}

func LoginPath(locale, callback string) string {
	return "/" + locale + "/auth/login?callbackUrl=" + escapeCallback(callback)
}

func DashboardPath(locale string) string {
	return "/" + locale + "/dashboard"
}

// escapeCallback query-escapes a path but keeps its slashes readable.
func escapeCallback(path string) string {
	return strings.ReplaceAll(url.QueryEscape(path), "%2F", "/")
}

func matchPrefix(path, prefix string) bool {
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix) && path[len(prefix)] == '/'
}
