// Package validate implements a declarative, data-driven rule engine for
// tabular data quality checks. A suite is an ordered list of
// {column, kind, params} records loaded from YAML; evaluation produces a
// complete report with one result per rule, never stopping at the first
// failure.
package validate

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// Kind identifies a rule type.
type Kind string

const (
	KindColumnExists    Kind = "column_exists"
	KindNotNull         Kind = "not_null"
	KindUnique          Kind = "unique"
	KindAcceptedValues  Kind = "accepted_values"
	KindBetween         Kind = "between"
	KindRowCountBetween Kind = "row_count_between"
)

// Kinds lists all supported rule kinds.
var Kinds = []Kind{
	KindColumnExists,
	KindNotNull,
	KindUnique,
	KindAcceptedValues,
	KindBetween,
	KindRowCountBetween,
}

// Severity controls whether a failing rule gates the load step.
type Severity string

const (
	// SeverityError marks a hard failure: the pipeline must not load.
	SeverityError Severity = "error"
	// SeverityWarn is reported but does not gate the load.
	SeverityWarn Severity = "warn"
)

// Rule is one declarative constraint. Rules are data, not code: a suite can
// be re-evaluated against any future snapshot without modification.
type Rule struct {
	// Column the rule applies to. Empty for table-level rules
	// (row_count_between).
	Column string `yaml:"column,omitempty" json:"column,omitempty"`
	// Kind selects the check.
	Kind Kind `yaml:"kind" json:"kind"`
	// Severity defaults to error.
	Severity Severity `yaml:"severity,omitempty" json:"severity,omitempty"`
	// Params holds kind-specific parameters.
	Params map[string]any `yaml:"params,omitempty" json:"params,omitempty"`
}

// Name returns a short stable identifier for the rule, used in reports.
func (r Rule) Name() string {
	if r.Column == "" {
		return string(r.Kind)
	}
	return fmt.Sprintf("%s(%s)", r.Kind, r.Column)
}

// EffectiveSeverity returns the rule severity with the default applied.
func (r Rule) EffectiveSeverity() Severity {
	if r.Severity == "" {
		return SeverityError
	}
	return r.Severity
}

type acceptedValuesParams struct {
	Values []string `mapstructure:"values"`
}

type betweenParams struct {
	Min *float64 `mapstructure:"min"`
	Max *float64 `mapstructure:"max"`
}

type rowCountParams struct {
	Min *int64 `mapstructure:"min"`
	Max *int64 `mapstructure:"max"`
}

// decodeParams decodes rule params into a typed struct. YAML numbers arrive
// as int or float64 depending on notation, so decoding is weakly typed.
func decodeParams(params map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(params)
}

// check verifies the rule is well-formed: known kind, column presence, and
// decodable params. Malformed rules are a configuration error, not a data
// quality failure.
func (r Rule) check() error {
	switch r.Kind {
	case KindColumnExists, KindNotNull, KindUnique:
		if r.Column == "" {
			return fmt.Errorf("rule %s: column is required", r.Kind)
		}
	case KindAcceptedValues:
		if r.Column == "" {
			return fmt.Errorf("rule %s: column is required", r.Kind)
		}
		var p acceptedValuesParams
		if err := decodeParams(r.Params, &p); err != nil {
			return fmt.Errorf("rule %s: invalid params: %w", r.Name(), err)
		}
		if len(p.Values) == 0 {
			return fmt.Errorf("rule %s: params.values must not be empty", r.Name())
		}
	case KindBetween:
		if r.Column == "" {
			return fmt.Errorf("rule %s: column is required", r.Kind)
		}
		var p betweenParams
		if err := decodeParams(r.Params, &p); err != nil {
			return fmt.Errorf("rule %s: invalid params: %w", r.Name(), err)
		}
		if p.Min == nil && p.Max == nil {
			return fmt.Errorf("rule %s: params must set min and/or max", r.Name())
		}
	case KindRowCountBetween:
		var p rowCountParams
		if err := decodeParams(r.Params, &p); err != nil {
			return fmt.Errorf("rule %s: invalid params: %w", r.Name(), err)
		}
		if p.Min == nil && p.Max == nil {
			return fmt.Errorf("rule %s: params must set min and/or max", r.Name())
		}
	default:
		return fmt.Errorf("unknown rule kind: %q", r.Kind)
	}

	switch r.Severity {
	case "", SeverityError, SeverityWarn:
	default:
		return fmt.Errorf("rule %s: unknown severity %q", r.Name(), r.Severity)
	}

	return nil
}
