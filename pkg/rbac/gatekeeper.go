package rbac

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/RAXITGAJERA/product-management/pkg/httputil"
	"github.com/RAXITGAJERA/product-management/pkg/observability"
)

const (
	// LoginPath is where anonymous requests are sent.
	LoginPath = "/login/"
	// HomePath is where denied mutation attempts are sent.
	HomePath = "/"
)

// publicPrefixes lists path prefixes reachable without a session.
var publicPrefixes = []string{
	"/login/",
	"/register/",
	"/admin/",
	"/health",
	"/metrics",
}

// EnsureProfileFunc resolves a user's role, creating a default customer
// profile when the user has none. It reports whether a profile was created.
type EnsureProfileFunc func(ctx context.Context, userID int64) (Role, bool, error)

// Gatekeeper enforces request-level access control in two stages: an
// access stage that authenticates the request and screens mutation
// paths by role, and a profile stage that guarantees every
// authenticated subject has exactly one role profile.
type Gatekeeper struct {
	ensure  EnsureProfileFunc
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewGatekeeper creates a gatekeeper. metrics may be nil.
func NewGatekeeper(ensure EnsureProfileFunc, logger *observability.Logger, metrics *observability.Metrics) *Gatekeeper {
	return &Gatekeeper{
		ensure:  ensure,
		logger:  logger,
		metrics: metrics,
	}
}

// IsPublic reports whether the path is reachable without a session.
func IsPublic(path string) bool {
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// AccessHandler is the access stage. Anonymous requests to non-public
// paths are redirected to the login page with the original path
// preserved in the next query parameter. Authenticated requests that
// target a mutation path are screened against the subject's role, and
// denied requests are redirected home with a flash message rather than
// rejected with a hard error.
func (g *Gatekeeper) AccessHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		subject := SubjectFromRequest(r)
		if subject == nil {
			if IsPublic(path) {
				next.ServeHTTP(w, r)
				return
			}
			g.denyAnonymous(w, r, path)
			return
		}

		if rule, ok := MatchMutation(path); ok && !CanMutate(subject.Role) {
			g.denyMutation(w, r, subject, rule)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (g *Gatekeeper) denyAnonymous(w http.ResponseWriter, r *http.Request, path string) {
	if g.metrics != nil {
		g.metrics.AccessDeniedTotal.WithLabelValues("unauthenticated").Inc()
	}
	g.logger.WithFields(map[string]any{
		"path":   path,
		"remote": r.RemoteAddr,
	}).Debug("redirecting anonymous request to login")

	httputil.SetFlash(w, httputil.FlashWarning, "Please log in to continue.")
	httputil.Redirect(w, r, LoginPath+"?next="+url.QueryEscape(path))
}

func (g *Gatekeeper) denyMutation(w http.ResponseWriter, r *http.Request, subject *Subject, rule MutationRule) {
	if g.metrics != nil {
		g.metrics.AccessDeniedTotal.WithLabelValues("forbidden_role").Inc()
	}
	g.logger.WithFields(map[string]any{
		"user_id":  subject.UserID,
		"role":     string(subject.Role),
		"resource": string(rule.Resource),
		"action":   string(rule.Action),
		"path":     r.URL.Path,
	}).Info("mutation denied by role")

	httputil.SetFlash(w, httputil.FlashError, "You do not have permission to perform this action.")
	httputil.Redirect(w, r, HomePath)
}

// ProfileHandler is the profile stage. It runs after authentication and
// guarantees the subject carries a role before any handler or the
// access stage consults it. Users without a profile get a customer
// profile created for them. Creation failures are logged and the
// request proceeds with no role, which denies all mutations.
func (g *Gatekeeper) ProfileHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject := SubjectFromRequest(r)
		if subject != nil && !subject.Role.Valid() {
			role, created, err := g.ensure(r.Context(), subject.UserID)
			if err != nil {
				g.logger.WithError(err).WithField("user_id", subject.UserID).Error("failed to ensure user profile")
			} else {
				subject.Role = role
				if created {
					if g.metrics != nil {
						g.metrics.ProfilesCreatedTotal.Inc()
					}
					g.logger.WithField("user_id", subject.UserID).Info("created default customer profile")
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}
