// Package access holds the role permission table. The table is loaded once
// at startup and is read-only afterwards.
package access

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Resources guarded by the table.
const (
	ResourceEmployees     = "employees"
	ResourceDepartments   = "departments"
	ResourceAttendance    = "attendance"
	ResourceReports       = "reports"
	ResourceUsers         = "users"
	ResourceEmployeeFiles = "employee_files"
)

// RoleAdmin may do everything, whatever the table says.
const RoleAdmin = "admin"

// Actions a role may be granted on a resource.
const (
	ActionView   = "view"
	ActionCreate = "create"
	ActionEdit   = "edit"
	ActionDelete = "delete"
)

//go:embed default.yaml
var defaultTable []byte

// Policy maps role -> resource -> allowed actions.
type Policy struct {
	roles map[string]rolePolicy
}

type rolePolicy struct {
	all       bool
	resources map[string]map[string]bool
}

type policyFile struct {
	Roles map[string]rolePolicy `yaml:"roles"`
}

func (p *rolePolicy) UnmarshalYAML(value *yaml.Node) error {
	var raw map[string]yaml.Node
	if err := value.Decode(&raw); err != nil {
		return err
	}

	p.resources = make(map[string]map[string]bool, len(raw))
	for key, node := range raw {
		if key == "all" {
			if err := node.Decode(&p.all); err != nil {
				return fmt.Errorf("all: %w", err)
			}
			continue
		}

		var actions []string
		if err := node.Decode(&actions); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		set := make(map[string]bool, len(actions))
		for _, action := range actions {
			set[strings.ToLower(strings.TrimSpace(action))] = true
		}
		p.resources[strings.ToLower(key)] = set
	}
	return nil
}

// Default returns the built-in permission table.
func Default() *Policy {
	policy, err := Parse(defaultTable)
	if err != nil {
		panic(fmt.Sprintf("access: embedded table: %v", err))
	}
	return policy
}

// Load reads the table from path, or returns the built-in table when path is empty.
func Load(path string) (*Policy, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("access: read %s: %w", path, err)
	}
	policy, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("access: %s: %w", path, err)
	}
	return policy, nil
}

// Parse decodes a permission table from YAML.
func Parse(data []byte) (*Policy, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("access: table is empty")
	}
	var file policyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("access: decode table: %w", err)
	}
	if len(file.Roles) == 0 {
		return nil, fmt.Errorf("access: no roles defined")
	}

	roles := make(map[string]rolePolicy, len(file.Roles))
	for name, role := range file.Roles {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == RoleAdmin && !role.all {
			return nil, fmt.Errorf("access: role %s must be declared with all: true", RoleAdmin)
		}
		roles[name] = role
	}
	return &Policy{roles: roles}, nil
}

// Allowed reports whether role may perform action on resource. Admin is
// always allowed. Unknown roles, resources and actions are denied.
func (p *Policy) Allowed(role, resource, action string) bool {
	role = strings.ToLower(role)
	if role == RoleAdmin {
		return true
	}
	if p == nil {
		return false
	}
	rp, ok := p.roles[role]
	if !ok {
		return false
	}
	if rp.all {
		return true
	}
	return rp.resources[strings.ToLower(resource)][strings.ToLower(action)]
}

// Roles lists the roles present in the table.
func (p *Policy) Roles() []string {
	roles := make([]string, 0, len(p.roles))
	for name := range p.roles {
		roles = append(roles, name)
	}
	return roles
}
