// Package authz holds the role to action table consulted by the cutting
// service. It replaces per-screen role checks with one lookup per call.
package authz

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

type Role string

const (
	RoleOperator   Role = "OPERATOR"
	RoleSupervisor Role = "SUPERVISOR"
	RoleManager    Role = "MANAGER"
)

func (r Role) Valid() bool {
	switch r {
	case RoleOperator, RoleSupervisor, RoleManager:
		return true
	}
	return false
}

// ParseRole accepts any letter case.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("authz: unknown role %q", s)
	}
	return r, nil
}

type Action string

const (
	JobCreate       Action = "job.create"
	JobRevise       Action = "job.revise"
	JobStart        Action = "job.start"
	JobCancel       Action = "job.cancel"
	JobComplete     Action = "job.complete"
	OperationAdd    Action = "operation.add"
	OperationRemove Action = "operation.remove"
	ScrapCreate     Action = "scrap.create"
	ScrapApprove    Action = "scrap.approve"
	ScrapReject     Action = "scrap.reject"
)

var knownActions = map[Action]bool{
	JobCreate: true, JobRevise: true, JobStart: true, JobCancel: true, JobComplete: true,
	OperationAdd: true, OperationRemove: true,
	ScrapCreate: true, ScrapApprove: true, ScrapReject: true,
}

// supervisorOnly actions can never be granted to operators, whatever the file says.
var supervisorOnly = []Action{JobCancel, ScrapApprove, ScrapReject}

// Actor is the caller of an engine operation. It is always passed explicitly.
type Actor struct {
	ID   int64 `json:"id"`
	Role Role  `json:"role"`
}

type Policy struct {
	allowed map[Role]map[Action]bool
}

type policyFile struct {
	Roles map[string][]string `yaml:"roles"`
}

//go:embed policy.yaml
var defaultPolicy []byte

// Default returns the built-in table.
func Default() *Policy {
	p, err := Parse(defaultPolicy)
	if err != nil {
		panic(fmt.Sprintf("authz: embedded policy: %v", err))
	}
	return p
}

// Load reads a table from path, or returns Default when path is empty.
func Load(path string) (*Policy, error) {
	if path == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("authz: read policy: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Policy, error) {
	var f policyFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("authz: decode policy: %w", err)
	}

	p := &Policy{allowed: make(map[Role]map[Action]bool)}
	for name, actions := range f.Roles {
		role, err := ParseRole(name)
		if err != nil {
			return nil, err
		}
		set := make(map[Action]bool, len(actions))
		for _, a := range actions {
			action := Action(strings.TrimSpace(a))
			if !knownActions[action] {
				return nil, fmt.Errorf("authz: role %s: unknown action %q", role, a)
			}
			set[action] = true
		}
		p.allowed[role] = set
	}

	for _, a := range supervisorOnly {
		if p.allowed[RoleOperator][a] {
			return nil, fmt.Errorf("authz: %s cannot be granted to %s", a, RoleOperator)
		}
	}

	return p, nil
}

func (p *Policy) Allows(role Role, action Action) bool {
	if p == nil {
		return false
	}
	return p.allowed[role][action]
}

// Actions lists what role may do, sorted.
func (p *Policy) Actions(role Role) []Action {
	var out []Action
	for a := range p.allowed[role] {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
