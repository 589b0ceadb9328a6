package rbac

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/fulfilhub/dashboard/internal/shared"
)

//go:embed policy.yaml
var defaultPolicy []byte

// Policy is the ordered role table for dashboard resources.
type Policy struct {
	rules []Rule
}

type policyFile struct {
	Rules []Rule `yaml:"rules" validate:"required,min=1,dive"`
}

// DefaultPolicy parses the embedded role table.
func DefaultPolicy() (*Policy, error) {
	return ParsePolicy(defaultPolicy)
}

// LoadPolicy parses the table at path, or the embedded table when path is empty.
func LoadPolicy(path string) (*Policy, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultPolicy()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rbac: read policy: %w", err)
	}
	return ParsePolicy(data)
}

// ParsePolicy decodes and checks a YAML role table.
func ParsePolicy(data []byte) (*Policy, error) {
	var file policyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("rbac: decode policy: %w", err)
	}
	if err := validator.New().Struct(file); err != nil {
		return nil, fmt.Errorf("rbac: invalid policy: %w", err)
	}
	seen := make(map[string]string, len(file.Rules))
	rules := make([]Rule, 0, len(file.Rules))
	for _, rule := range file.Rules {
		rule.Prefix = strings.TrimRight(rule.Prefix, "/")
		if rule.Prefix == DashboardPath {
			return nil, fmt.Errorf("rbac: rule %s: prefix must name a page below %s", rule.Resource, DashboardPath)
		}
		if prev, dup := seen[rule.Prefix]; dup {
			return nil, fmt.Errorf("rbac: prefix %s declared by both %s and %s", rule.Prefix, prev, rule.Resource)
		}
		seen[rule.Prefix] = rule.Resource
		rule.allowed = make(map[shared.Role]struct{}, len(rule.Roles))
		for _, raw := range rule.Roles {
			if raw == AnyRole {
				rule.anyRole = true
				continue
			}
			role, ok := shared.ParseRole(raw)
			if !ok {
				return nil, fmt.Errorf("rbac: rule %s: unknown role %q", rule.Resource, raw)
			}
			rule.allowed[role] = struct{}{}
		}
		rules = append(rules, rule)
	}
	return &Policy{rules: rules}, nil
}

// Validate checks every known dashboard resource route is covered by a rule, so a
// new page cannot silently fall through to the default.
func (p *Policy) Validate(resources []string) error {
	var missing []string
	for _, name := range resources {
		if _, ok := p.Match(DashboardPath + "/" + name); !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("rbac: no rule for resources: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Match returns the first rule whose prefix covers path.
func (p *Policy) Match(path string) (Rule, bool) {
	if p == nil {
		return Rule{}, false
	}
	for _, rule := range p.rules {
		if underPrefix(path, rule.Prefix) {
			return rule, true
		}
	}
	return Rule{}, false
}

// Allows reports whether role may open path. Paths without a rule are open to
// every authenticated role.
func (p *Policy) Allows(role shared.Role, path string) bool {
	if !role.Valid() {
		return false
	}
	rule, ok := p.Match(path)
	if !ok {
		return true
	}
	return rule.Admits(role)
}

// AllowsResource is Allows for the dashboard page of resource.
func (p *Policy) AllowsResource(role shared.Role, resource string) bool {
	return p.Allows(role, DashboardPath+"/"+resource)
}

// Rules returns a copy of the ordered rules.
func (p *Policy) Rules() []Rule {
	if p == nil {
		return nil
	}
	return append([]Rule(nil), p.rules...)
}

// ErrNoPolicy is returned by the gate when it is built without a table.
var ErrNoPolicy = errors.New("rbac: policy required")

// underPrefix matches on segment boundaries: /a/b covers /a/b and /a/b/c but not /a/bc.
func underPrefix(path, prefix string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) || path[len(prefix)] == '/'
}
