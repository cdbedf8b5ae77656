package hrschema

import (
	"github.com/driftline-labs/hrflow/internal/validate"
)

// DefaultSuite derives the expectation suite for the cleaned table from the
// column registry: existence for every column, non-null for required ones,
// uniqueness for the identifier, value sets for categoricals, ranges for
// numerics, plus a table-level row count floor.
func DefaultSuite() *validate.Suite {
	var rules []validate.Rule

	for _, spec := range Columns() {
		rules = append(rules, validate.Rule{
			Column: spec.Name,
			Kind:   validate.KindColumnExists,
		})

		if spec.Required {
			rules = append(rules, validate.Rule{
				Column: spec.Name,
				Kind:   validate.KindNotNull,
			})
		}

		if spec.Unique {
			rules = append(rules, validate.Rule{
				Column: spec.Name,
				Kind:   validate.KindUnique,
			})
		}

		if len(spec.AllowedValues) > 0 {
			rules = append(rules, validate.Rule{
				Column: spec.Name,
				Kind:   validate.KindAcceptedValues,
				Params: map[string]any{"values": spec.AllowedValues},
			})
		}

		if spec.Min != nil || spec.Max != nil {
			params := map[string]any{}
			if spec.Min != nil {
				params["min"] = *spec.Min
			}
			if spec.Max != nil {
				params["max"] = *spec.Max
			}
			rules = append(rules, validate.Rule{
				Column: spec.Name,
				Kind:   validate.KindBetween,
				Params: params,
			})
		}
	}

	rules = append(rules, validate.Rule{
		Kind:   validate.KindRowCountBetween,
		Params: map[string]any{"min": 1},
	})

	return &validate.Suite{
		Name:  "hr_attrition",
		Rules: rules,
	}
}
