package router

import (
	"errors"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
)

// ErrInvalidPolicy is returned for a policy line that is not "sub, obj, act".
var ErrInvalidPolicy = errors.New("router: policy must be \"sub, obj, act\"")

// rbacModel lets "*" stand for any route or method; g maps one role onto another.
const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && (p.obj == "*" || r.obj == p.obj) && (p.act == "*" || r.act == p.act)
`

// NewEnforcer builds an in-memory enforcer from policy lines such as
// "admin, *, *" or "investor, /api/v1/preferences, GET". A line starting with
// "g," declares role inheritance, e.g. "g, admin, investor".
func NewEnforcer(policies []string) (*casbin.Enforcer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, err
	}

	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, err
	}

	for _, line := range policies {
		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		switch {
		case len(parts) == 3 && parts[0] == "g":
			_, err = e.AddGroupingPolicy(parts[1], parts[2])
		case len(parts) == 3:
			_, err = e.AddPolicy(parts[0], parts[1], parts[2])
		default:
			return nil, fmt.Errorf("%w: %q", ErrInvalidPolicy, line)
		}
		if err != nil {
			return nil, err
		}
	}

	return e, nil
}
