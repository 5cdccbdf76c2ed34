// SPDX-License-Identifier: MPL-2.0

package metrics

type (
	valueKind int

	// Value is one entry of a record template: a literal, a captured field
	// with a coercion, or the match index.
	Value struct {
		kind    valueKind
		literal any
		field   string
		coerce  Coercion
	}

	// Template maps record dimensions to the values that fill them.
	Template map[string]Value

	// Fields are the named values of one matched document: regex groups, or
	// the top-level scalars of a JSON report.
	Fields map[string]string
)

const (
	literalValue valueKind = iota
	fieldValue
	iterationValue
)

// Literal is a fixed value. Integer literals are stored as int64.
func Literal(v any) Value {
	if n, ok := v.(int); ok {
		v = int64(n)
	}
	return Value{kind: literalValue, literal: v}
}

// Field takes a captured field as a string.
func Field(name string) Value { return Coerced(name, Str) }

// Coerced takes a captured field through a coercion.
func Coerced(name string, c Coercion) Value {
	return Value{kind: fieldValue, field: name, coerce: c}
}

// Iteration is the zero-based index of the match within its rule.
func Iteration() Value { return Value{kind: iterationValue} }

// project fills the template from fields. A template referencing a field the
// document lacks yields no record.
func (t Template) project(rule string, fields Fields, iteration int) (Record, bool, error) {
	rec := make(Record, len(t))
	for key, v := range t {
		switch v.kind {
		case literalValue:
			rec[key] = v.literal
		case iterationValue:
			rec[key] = int64(iteration)
		case fieldValue:
			raw, ok := fields[v.field]
			if !ok {
				return nil, false, nil
			}
			val, err := v.coerce(raw)
			if err != nil {
				return nil, false, &CoercionError{Rule: rule, Key: key, Value: raw, Err: err}
			}
			rec[key] = val
		}
	}
	return rec, true, nil
}

// numeric is the template shape shared by the built-in rules: a lower-is-better
// numeric metric reported with the identity score function at iteration 0.
func numeric(benchmark Value, name string, unit, value Value) Template {
	return Template{
		KeyBenchmark:     benchmark,
		KeyName:          Literal(name),
		KeyValue:         value,
		KeyUnit:          unit,
		KeyType:          Literal("numeric"),
		KeyScoreFunction: Literal("id"),
		KeyBetter:        Literal("lower"),
		KeyIteration:     Literal(0),
	}
}

// with returns a copy of t with extra dimensions.
func (t Template) with(extra Template) Template {
	out := make(Template, len(t)+len(extra))
	for k, v := range t {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
