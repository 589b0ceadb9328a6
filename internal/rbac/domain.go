package rbac

import "github.com/fulfilhub/dashboard/internal/shared"

// Well-known paths the gate redirects between.
const (
	RootPath      = "/"
	LoginPath     = "/login"
	DashboardPath = "/dashboard"
)

// CurrentPathHeader carries the gated path to downstream handlers.
const CurrentPathHeader = "X-Current-Path"

// AnyRole admits every authenticated role.
const AnyRole = "*"

// Rule grants access to a dashboard path prefix.
type Rule struct {
	Resource string   `yaml:"resource" validate:"required"`
	Prefix   string   `yaml:"prefix" validate:"required,startswith=/dashboard/"`
	Roles    []string `yaml:"roles" validate:"required,min=1,dive,required"`

	anyRole bool
	allowed map[shared.Role]struct{}
}

// Admits reports whether role may open paths under the rule.
func (r Rule) Admits(role shared.Role) bool {
	if r.anyRole {
		return true
	}
	_, ok := r.allowed[role]
	return ok
}

// Outcome is what the gate does with a navigation.
type Outcome int

const (
	// Allow serves the requested page.
	Allow Outcome = iota
	// RedirectLogin sends the browser to the login page.
	RedirectLogin
	// RedirectDashboard sends the browser to the dashboard root.
	RedirectDashboard
	// RedirectClean sends the browser to the cleaned form of a path with
	// dot segments, duplicate or trailing slashes.
	RedirectClean
)

func (o Outcome) String() string {
	switch o {
	case Allow:
		return "allow"
	case RedirectLogin:
		return "redirect_login"
	case RedirectDashboard:
		return "redirect_dashboard"
	case RedirectClean:
		return "redirect_clean"
	default:
		return "unknown"
	}
}

// Decision is the gate's verdict for one navigation.
type Decision struct {
	Outcome  Outcome
	Location string
	// Resource names the rule that rejected the role, if any.
	Resource string
}
