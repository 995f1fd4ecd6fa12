// Package env is the registry of environment variables read by the agent
// proxy and the agent registration command. Each Register* call records the
// variable (name, default, description, type, component) in a process-wide
// table and hands back a typed accessor, so the hidden `env` subcommand can
// print the whole configuration surface.
package env

import (
	"cmp"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

// VarType identifies the data type of an environment variable.
type VarType int

const (
	TypeString VarType = iota
	TypeBool
	TypeDuration
)

func (v VarType) String() string {
	switch v {
	case TypeString:
		return "String"
	case TypeBool:
		return "Boolean"
	case TypeDuration:
		return "Duration"
	default:
		return "Unknown"
	}
}

// MarshalJSON serializes VarType as its string representation.
func (v VarType) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

// Component names the binary that reads a variable.
type Component string

const (
	ComponentProxy        Component = "proxy"
	ComponentRegistration Component = "registration"
	ComponentShared       Component = "shared"
	ComponentTesting      Component = "testing"
)

// Var is the metadata recorded for one environment variable.
type Var struct {
	Name         string    `json:"name"`
	DefaultValue string    `json:"default"`
	Description  string    `json:"description"`
	Type         VarType   `json:"type"`
	Component    Component `json:"component"`
	// Required variables have no usable default; Require fails when unset.
	Required bool `json:"required"`
	Hidden   bool `json:"-"`
}

var (
	allVars = make(map[string]Var)
	mu      sync.Mutex
)

func register(v Var) {
	mu.Lock()
	defer mu.Unlock()
	allVars[v.Name] = v
}

// VarDescriptions returns all registered variables sorted by name.
func VarDescriptions() []Var {
	mu.Lock()
	defer mu.Unlock()

	out := make([]Var, 0, len(allVars))
	for _, v := range allVars {
		out = append(out, v)
	}
	slices.SortFunc(out, func(a, b Var) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}

// MissingVarError reports a required variable that is unset or empty.
type MissingVarError struct {
	Name string
}

func (e *MissingVarError) Error() string {
	return fmt.Sprintf("%s environment variable is required", e.Name)
}

// StringVar is a registered string variable.
type StringVar struct {
	v Var
}

// RegisterStringVar registers a string variable with a default.
func RegisterStringVar(name, defaultValue, description string, component Component) StringVar {
	v := Var{
		Name:         name,
		DefaultValue: defaultValue,
		Description:  description,
		Type:         TypeString,
		Component:    component,
	}
	register(v)
	return StringVar{v: v}
}

// RegisterRequiredStringVar registers a string variable that has no default.
func RegisterRequiredStringVar(name, description string, component Component) StringVar {
	v := Var{
		Name:        name,
		Description: description,
		Type:        TypeString,
		Component:   component,
		Required:    true,
	}
	register(v)
	return StringVar{v: v}
}

// Get returns the current value, or the default when unset.
func (s StringVar) Get() string {
	if val, ok := os.LookupEnv(s.v.Name); ok {
		return val
	}
	return s.v.DefaultValue
}

// Lookup returns the value and whether the variable was set.
func (s StringVar) Lookup() (string, bool) {
	val, ok := os.LookupEnv(s.v.Name)
	if !ok {
		return s.v.DefaultValue, false
	}
	return val, true
}

// Require returns the value, or a *MissingVarError when the variable is
// unset or blank.
func (s StringVar) Require() (string, error) {
	val, ok := os.LookupEnv(s.v.Name)
	if !ok || strings.TrimSpace(val) == "" {
		return "", &MissingVarError{Name: s.v.Name}
	}
	return val, nil
}

func (s StringVar) Name() string         { return s.v.Name }
func (s StringVar) DefaultValue() string { return s.v.DefaultValue }

// BoolVar is a registered boolean variable. Unparseable values fall back to
// the default.
type BoolVar struct {
	v            Var
	defaultValue bool
}

func RegisterBoolVar(name string, defaultValue bool, description string, component Component) BoolVar {
	v := Var{
		Name:         name,
		DefaultValue: strconv.FormatBool(defaultValue),
		Description:  description,
		Type:         TypeBool,
		Component:    component,
	}
	register(v)
	return BoolVar{v: v, defaultValue: defaultValue}
}

func (b BoolVar) Get() bool {
	if val, ok := os.LookupEnv(b.v.Name); ok {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return b.defaultValue
}

func (b BoolVar) Name() string { return b.v.Name }

// DurationVar is a registered time.Duration variable. Unparseable values fall
// back to the default.
type DurationVar struct {
	v            Var
	defaultValue time.Duration
}

func RegisterDurationVar(name string, defaultValue time.Duration, description string, component Component) DurationVar {
	v := Var{
		Name:         name,
		DefaultValue: defaultValue.String(),
		Description:  description,
		Type:         TypeDuration,
		Component:    component,
	}
	register(v)
	return DurationVar{v: v, defaultValue: defaultValue}
}

func (d DurationVar) Get() time.Duration {
	if val, ok := os.LookupEnv(d.v.Name); ok {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return d.defaultValue
}

func (d DurationVar) Name() string { return d.v.Name }

func visible(component string) []Var {
	vars := VarDescriptions()
	out := make([]Var, 0, len(vars))
	for _, v := range vars {
		if v.Hidden {
			continue
		}
		if component != "" && component != "all" && string(v.Component) != component {
			continue
		}
		out = append(out, v)
	}
	return out
}

// ExportMarkdown renders the registered variables as markdown tables grouped
// by component. component filters the output; "" or "all" keeps everything.
func ExportMarkdown(component string) string {
	grouped := make(map[Component][]Var)
	for _, v := range visible(component) {
		grouped[v.Component] = append(grouped[v.Component], v)
	}

	components := make([]Component, 0, len(grouped))
	for c := range grouped {
		components = append(components, c)
	}
	slices.Sort(components)

	var sb strings.Builder
	sb.WriteString("# Agent Proxy Environment Variables\n\n")
	for _, comp := range components {
		fmt.Fprintf(&sb, "## %s\n\n", comp)
		sb.WriteString("| Variable | Type | Default | Description |\n")
		sb.WriteString("|----------|------|---------|-------------|\n")
		for _, v := range grouped[comp] {
			defaultVal := "`" + v.DefaultValue + "`"
			switch {
			case v.Required:
				defaultVal = "(required)"
			case v.DefaultValue == "":
				defaultVal = "(none)"
			}
			fmt.Fprintf(&sb, "| `%s` | %s | %s | %s |\n", v.Name, v.Type, defaultVal, v.Description)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// ExportJSON renders the registered variables as a JSON array.
func ExportJSON(component string) string {
	b, err := json.MarshalIndent(visible(component), "", "  ")
	if err != nil {
		return "[]\n"
	}
	return string(b) + "\n"
}
