package rbac

import (
	"path"
	"strings"

	"github.com/fulfilhub/dashboard/internal/shared"
)

// Decide evaluates one navigation. Precedence, first match wins:
//
//  1. "/" goes to the dashboard with a session and to login without.
//  2. "/login" with a session goes to the dashboard.
//  3. "/dashboard/**" without a session goes to login.
//  4. "/dashboard/**" whose rule does not admit the role goes to the dashboard.
//  5. Everything else is served.
//
// A session whose role is outside the fixed set is treated as absent.
func Decide(target string, sess shared.Session, p *Policy) Decision {
	clean := cleanPath(target)
	authed := sess.Authenticated()

	switch {
	case clean == RootPath:
		if authed {
			return Decision{Outcome: RedirectDashboard, Location: DashboardPath}
		}
		return Decision{Outcome: RedirectLogin, Location: LoginPath}
	case clean == LoginPath:
		if authed {
			return Decision{Outcome: RedirectDashboard, Location: DashboardPath}
		}
		return Decision{Outcome: Allow}
	case underPrefix(clean, DashboardPath):
		if !authed {
			return Decision{Outcome: RedirectLogin, Location: LoginPath}
		}
		if rule, ok := p.Match(clean); ok && !rule.Admits(sess.Role) {
			return Decision{Outcome: RedirectDashboard, Location: DashboardPath, Resource: rule.Resource}
		}
	}
	return Decision{Outcome: Allow}
}

func cleanPath(raw string) string {
	if raw == "" {
		return RootPath
	}
	if !strings.HasPrefix(raw, "/") {
		raw = "/" + raw
	}
	return path.Clean(raw)
}
