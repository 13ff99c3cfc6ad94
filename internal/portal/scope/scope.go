// Package scope resolves the operating scope of a portal request and layers
// department configuration overrides on top of the central configuration.
package scope

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Kind is the operating scope.
type Kind string

const (
	KindCentral    Kind = "central"
	KindDepartment Kind = "department"
)

// CentralID is the reserved department identifier of the central scope.
const CentralID = "central"

// DefaultDepartmentID is the department preselected when a department scope
// is requested without naming one.
const DefaultDepartmentID = "unfip"

// Department is a selectable organizational unit.
type Department struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

var departments = []Department{
	{ID: "unfip", Name: "UNFIP / Funding"},
	{ID: "advocacy", Name: "Advocacy / Comms"},
	{ID: "partnerships", Name: "Partnerships / Ops"},
	{ID: "gender", Name: "Gender / Women Rise"},
}

// CentralName is the display name of the central scope.
const CentralName = "Central (UN-wide)"

// Departments returns the configured department set, excluding central.
func Departments() []Department {
	out := make([]Department, len(departments))
	copy(out, departments)
	return out
}

// LookupDepartment returns the department with the given id.
func LookupDepartment(id string) (Department, bool) {
	for _, d := range departments {
		if d.ID == id {
			return d, true
		}
	}
	return Department{}, false
}

var (
	ErrUnknownKind       = errors.New("unknown scope")
	ErrUnknownDepartment = errors.New("unknown department")
)

// Context is the (scope kind, department) pair for one request. Use Central
// or Parse to build one; the zero value is not valid.
type Context struct {
	Kind         Kind   `json:"scope"`
	DepartmentID string `json:"department"`
}

// Central returns the organization-wide scope.
func Central() Context {
	return Context{Kind: KindCentral, DepartmentID: CentralID}
}

// Parse validates a scope selection. For the central kind the department
// argument is ignored and replaced with CentralID.
func Parse(kind, department string) (Context, error) {
	switch Kind(kind) {
	case KindCentral:
		return Central(), nil
	case KindDepartment:
		if _, ok := LookupDepartment(department); !ok {
			return Context{}, fmt.Errorf("%w: %q", ErrUnknownDepartment, department)
		}
		return Context{Kind: KindDepartment, DepartmentID: department}, nil
	default:
		return Context{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// IsDepartment reports whether the context is scoped to one department.
func (c Context) IsDepartment() bool {
	return c.Kind == KindDepartment
}

// Label is the human readable scope label.
func (c Context) Label() string {
	if !c.IsDepartment() {
		return CentralName
	}
	if d, ok := LookupDepartment(c.DepartmentID); ok {
		return "Department: " + d.Name
	}
	return "Department: " + c.DepartmentID
}

// Includes reports whether an asset owned by department belongs in this
// scope: everything for central, otherwise the department itself plus
// central assets.
func (c Context) Includes(department string) bool {
	if !c.IsDepartment() {
		return true
	}
	return department == c.DepartmentID || department == CentralID
}

func (c Context) String() string {
	return string(c.Kind) + "/" + c.DepartmentID
}

// EffectiveConfig is the merged key/value configuration for one scope.
type EffectiveConfig map[string]string

// Lookup returns the override for key, or fallback when the key is absent or
// empty.
func (c EffectiveConfig) Lookup(key, fallback string) string {
	if v := c[key]; v != "" {
		return v
	}
	return fallback
}

// Resolve merges the "central" layer of raw with the department layer when
// the scope is a department. Department keys win on conflict. Malformed or
// missing JSON, and layers that are not objects, contribute nothing.
func Resolve(sc Context, raw []byte) EffectiveConfig {
	out := EffectiveConfig{}
	if len(raw) == 0 {
		return out
	}
	var layers map[string]json.RawMessage
	if err := json.Unmarshal(raw, &layers); err != nil {
		return out
	}
	overlay(out, layers[CentralID])
	if sc.IsDepartment() {
		overlay(out, layers[sc.DepartmentID])
	}
	return out
}

func overlay(dst EffectiveConfig, layer json.RawMessage) {
	if len(layer) == 0 {
		return
	}
	var values map[string]any
	if err := json.Unmarshal(layer, &values); err != nil {
		return
	}
	for k, v := range values {
		if s, ok := stringify(v); ok {
			dst[k] = s
		}
	}
}

// stringify renders scalar JSON values; null, arrays and objects are skipped.
func stringify(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}
