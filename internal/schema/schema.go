// Package schema provides fail-open structural validation for deserialized
// state records. Each state kind declares a minimal field contract: required
// fields with expected primitive types, plus optional typed fields. A record
// that violates its contract is classified, logged with field-level
// diagnostics, and reported to the caller as a Violation the caller must
// treat identically to "no state exists". Validation never panics and never
// mutates the candidate.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/Iron-Ham/coordino/internal/errors"
	"github.com/Iron-Ham/coordino/internal/logging"
)

// FieldType is the expected primitive type of a contract field.
type FieldType int

const (
	TypeBool FieldType = iota
	TypeString
	TypeNumber
)

// String returns the human-readable type name used in diagnostics.
func (t FieldType) String() string {
	switch t {
	case TypeBool:
		return "boolean"
	case TypeString:
		return "string"
	case TypeNumber:
		return "number"
	default:
		return "unknown"
	}
}

// Field is one declared field of a contract. Fields are checked in
// declaration order so the first violation is deterministic.
type Field struct {
	Name     string
	Type     FieldType
	Optional bool
}

// Contract is the structural contract for one state kind.
type Contract struct {
	Fields []Field
}

// Violation describes the first contract violation found in a record.
type Violation struct {
	Kind        string    // State kind whose contract was violated
	Field       string    // Violating field, or "(record)" for a non-record candidate
	Expected    FieldType // Declared type
	Observed    any       // Value actually present; nil if the field is missing
	Missing     bool      // True when a required field is absent
	UnknownKind bool      // True when no contract is registered for Kind
}

// Err converts the violation to the error taxonomy, so callers can classify
// it with errors.IsValidation and errors.Is against ErrUnknownKind.
func (v *Violation) Err() error {
	if v.UnknownKind {
		return fmt.Errorf("state kind %q: %w", v.Kind, errors.ErrUnknownKind)
	}
	if v.Missing {
		return errors.NewValidationError(v.Kind, v.Field, v.Expected.String(), nil)
	}
	return errors.NewValidationError(v.Kind, v.Field, v.Expected.String(), v.Observed)
}

// Registry maps state kinds to contracts.
type Registry struct {
	contracts map[string]Contract
	logger    *logging.Logger
}

// NewRegistry creates a Registry with the built-in kinds registered.
// The logger may be nil.
func NewRegistry(logger *logging.Logger) *Registry {
	if logger == nil {
		logger = logging.NopLogger()
	}
	r := &Registry{
		contracts: make(map[string]Contract),
		logger:    logger,
	}
	registerBuiltins(r)
	return r
}

// Register adds or replaces the contract for a state kind.
func (r *Registry) Register(kind string, c Contract) {
	r.contracts[kind] = c
}

// Kinds returns true if a contract exists for kind.
func (r *Registry) Kinds(kind string) bool {
	_, ok := r.contracts[kind]
	return ok
}

// Validate checks candidate against the contract for kind. On success the
// candidate is returned unchanged; this is a classifier, not a normalizer.
// On the first violation, checking stops and a Violation describing it is
// returned along with a warn-level log entry carrying the diagnostics.
// Validate never panics; a nil candidate or unknown kind is a violation
// like any other.
func (r *Registry) Validate(kind string, candidate map[string]any) (map[string]any, *Violation) {
	contract, ok := r.contracts[kind]
	if !ok {
		v := &Violation{Kind: kind, Field: "(record)", Missing: true, UnknownKind: true}
		r.logger.Warn("state validation failed",
			"kind", kind,
			"reason", "no contract registered for kind",
		)
		return nil, v
	}

	if candidate == nil {
		v := &Violation{Kind: kind, Field: "(record)", Missing: true}
		r.logger.Warn("state validation failed",
			"kind", kind,
			"reason", "record is null or not an object",
		)
		return nil, v
	}

	for _, f := range contract.Fields {
		value, present := candidate[f.Name]
		if !present || value == nil {
			if f.Optional {
				continue
			}
			v := &Violation{Kind: kind, Field: f.Name, Expected: f.Type, Missing: true}
			r.logger.Warn("state validation failed",
				"kind", kind,
				"field", f.Name,
				"expected", f.Type.String(),
				"reason", "required field missing",
			)
			return nil, v
		}
		if !matchesType(value, f.Type) {
			v := &Violation{Kind: kind, Field: f.Name, Expected: f.Type, Observed: value}
			r.logger.Warn("state validation failed",
				"kind", kind,
				"field", f.Name,
				"expected", f.Type.String(),
				"observed", value,
			)
			return nil, v
		}
	}

	return candidate, nil
}

// matchesType reports whether value has the declared primitive type.
// Numbers accept every representation a JSON decoder may produce.
func matchesType(value any, t FieldType) bool {
	switch t {
	case TypeBool:
		_, ok := value.(bool)
		return ok
	case TypeString:
		_, ok := value.(string)
		return ok
	case TypeNumber:
		switch value.(type) {
		case float64, float32, int, int64, int32, json.Number:
			return true
		}
		return false
	default:
		return false
	}
}

// registerBuiltins installs the contracts for the state kinds the runtime's
// workflow trackers persist through this layer.
func registerBuiltins(r *Registry) {
	// Workflow-activation record
	r.Register("ralph", Contract{Fields: []Field{
		{Name: "active", Type: TypeBool},
		{Name: "storyId", Type: TypeString},
		{Name: "activatedAt", Type: TypeNumber},
		{Name: "completedStories", Type: TypeNumber, Optional: true},
	}})

	// Orchestration-progress record
	r.Register("maestro", Contract{Fields: []Field{
		{Name: "phase", Type: TypeString},
		{Name: "updatedAt", Type: TypeNumber},
		{Name: "tasksDone", Type: TypeNumber, Optional: true},
		{Name: "tasksTotal", Type: TypeNumber, Optional: true},
	}})
}
