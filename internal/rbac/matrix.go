package rbac

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed matrix.yaml
var defaultMatrixYAML []byte

// ErrInvalidMatrix indicates a malformed capability file.
var ErrInvalidMatrix = errors.New("rbac: invalid capability matrix")

type actionSet map[Action]struct{}

// Matrix is the immutable role → resource → actions grant table.
// The zero value and a nil *Matrix deny everything.
type Matrix struct {
	grants map[Role]map[Resource]actionSet
}

type matrixFile struct {
	Roles map[string]map[string][]string `yaml:"roles"`
}

// DefaultMatrix returns the capability matrix shipped with the binary.
func DefaultMatrix() (*Matrix, error) {
	return LoadMatrix(defaultMatrixYAML)
}

// LoadMatrixFile parses a capability matrix from disk.
func LoadMatrixFile(path string) (*Matrix, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rbac: read matrix: %w", err)
	}
	return LoadMatrix(data)
}

// LoadMatrix parses YAML into a Matrix. Unknown roles, resources or actions are rejected.
func LoadMatrix(data []byte) (*Matrix, error) {
	var file matrixFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMatrix, err)
	}
	if len(file.Roles) == 0 {
		return nil, fmt.Errorf("%w: no roles defined", ErrInvalidMatrix)
	}
	grants := make(map[Role]map[Resource]actionSet, len(file.Roles))
	for rawRole, resources := range file.Roles {
		role := Role(rawRole)
		if !role.Valid() {
			return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidMatrix, rawRole)
		}
		byResource := make(map[Resource]actionSet, len(resources))
		for rawResource, actions := range resources {
			resource := Resource(rawResource)
			if !resource.Valid() {
				return nil, fmt.Errorf("%w: unknown resource %q for role %s", ErrInvalidMatrix, rawResource, rawRole)
			}
			set := make(actionSet, len(actions))
			for _, rawAction := range actions {
				action := Action(rawAction)
				if !action.Valid() {
					return nil, fmt.Errorf("%w: unknown action %q on %s for role %s", ErrInvalidMatrix, rawAction, rawResource, rawRole)
				}
				set[action] = struct{}{}
			}
			byResource[resource] = set
		}
		grants[role] = byResource
	}
	return &Matrix{grants: grants}, nil
}

// NewMatrix builds a Matrix from capability lists, mostly for tests and tooling.
func NewMatrix(grants map[Role][]Capability) *Matrix {
	m := &Matrix{grants: make(map[Role]map[Resource]actionSet, len(grants))}
	for role, caps := range grants {
		byResource := make(map[Resource]actionSet)
		for _, c := range caps {
			set, ok := byResource[c.Resource]
			if !ok {
				set = make(actionSet)
				byResource[c.Resource] = set
			}
			set[c.Action] = struct{}{}
		}
		m.grants[role] = byResource
	}
	return m
}

// Authorize reports whether role may perform action on resource.
func (m *Matrix) Authorize(role Role, resource Resource, action Action) bool {
	if m == nil {
		return false
	}
	set, ok := m.grants[role][resource]
	if !ok {
		return false
	}
	_, ok = set[action]
	return ok
}

// Can is Authorize for a principal and capability.
func (m *Matrix) Can(p Principal, c Capability) bool {
	return m.Authorize(p.Role, c.Resource, c.Action)
}

// Capabilities lists the grants of role sorted by resource then action.
func (m *Matrix) Capabilities(role Role) []Capability {
	if m == nil {
		return nil
	}
	var caps []Capability
	for resource, set := range m.grants[role] {
		for action := range set {
			caps = append(caps, Capability{Resource: resource, Action: action})
		}
	}
	sort.Slice(caps, func(i, j int) bool {
		if caps[i].Resource != caps[j].Resource {
			return caps[i].Resource < caps[j].Resource
		}
		return caps[i].Action < caps[j].Action
	})
	return caps
}
