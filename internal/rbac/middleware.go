package rbac

import (
	"log/slog"
	"net/http"

	"github.com/fulfilhub/dashboard/internal/shared"
)

// DecisionRecorder counts gate outcomes.
type DecisionRecorder interface {
	ObserveGateDecision(outcome string)
}

// Gate runs Decide for every request before any page handler.
type Gate struct {
	Policy   *Policy
	Logger   *slog.Logger
	Recorder DecisionRecorder
}

// NewGate builds a gate over policy.
func NewGate(policy *Policy, logger *slog.Logger, recorder DecisionRecorder) (*Gate, error) {
	if policy == nil {
		return nil, ErrNoPolicy
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{Policy: policy, Logger: logger, Recorder: recorder}, nil
}

// Middleware reads the session stored in context by the session middleware.
// Allowed requests get the current path header; the rest are redirected with 303.
// A path that is not in clean form is redirected to its clean form first, so
// the router never dispatches a path other than the one the gate decided on.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if clean := cleanPath(r.URL.Path); clean != r.URL.Path {
			g.redirectClean(w, r, clean)
			return
		}
		sess := shared.SessionFromContext(r.Context())
		decision := Decide(r.URL.Path, sess, g.Policy)
		if g.Recorder != nil {
			g.Recorder.ObserveGateDecision(decision.Outcome.String())
		}
		if decision.Outcome == Allow {
			r.Header.Set(CurrentPathHeader, r.URL.Path)
			next.ServeHTTP(w, r)
			return
		}
		if decision.Resource != "" && g.Logger != nil {
			g.Logger.Debug("gate denied",
				slog.String("path", r.URL.Path),
				slog.String("resource", decision.Resource),
				slog.String("role", sess.Role.String()),
				slog.String("username", sess.Username))
		}
		http.Redirect(w, r, decision.Location, http.StatusSeeOther)
	})
}

func (g *Gate) redirectClean(w http.ResponseWriter, r *http.Request, clean string) {
	if g.Recorder != nil {
		g.Recorder.ObserveGateDecision(RedirectClean.String())
	}
	if g.Logger != nil {
		g.Logger.Debug("gate cleaned path",
			slog.String("path", r.URL.Path),
			slog.String("clean", clean))
	}
	location := clean
	if r.URL.RawQuery != "" {
		location += "?" + r.URL.RawQuery
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}
