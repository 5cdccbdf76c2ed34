// SPDX-License-Identifier: MPL-2.0

package metrics

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// multiline makes ^ and $ match at line boundaries in declared patterns.
const multiline = "(?m)"

// ErrInvalidRule is the sentinel error wrapped by InvalidRuleError.
var ErrInvalidRule = errors.New("invalid metric rule")

type (
	// Declared is a stdout rule written as configuration data.
	Declared struct {
		Pattern string `json:"pattern" mapstructure:"pattern"`
		Metric  string `json:"metric" mapstructure:"metric"`
		Unit    string `json:"unit" mapstructure:"unit"`
		// Better is "lower" or "higher"; empty means lower.
		Better string `json:"better,omitempty" mapstructure:"better"`
		// ValueGroup names the capture group holding the value.
		ValueGroup string `json:"value_group" mapstructure:"value_group"`
		// Coercion is one of CoercionNames; empty means float.
		Coercion string `json:"coercion,omitempty" mapstructure:"coercion"`
		// Object is a fixed metric object, or a capture group when written as <group>.
		Object string `json:"object,omitempty" mapstructure:"object"`
		// StartMarker, when set, ignores output before the first match of it.
		StartMarker string `json:"start_marker,omitempty" mapstructure:"start_marker"`
	}

	// InvalidRuleError reports a declared rule that cannot be compiled.
	InvalidRuleError struct {
		Metric string
		Reason string
	}
)

// Error implements the error interface.
func (e *InvalidRuleError) Error() string {
	return fmt.Sprintf("invalid rule for metric %q: %s", e.Metric, e.Reason)
}

// Unwrap returns ErrInvalidRule for errors.Is() compatibility.
func (e *InvalidRuleError) Unwrap() error { return ErrInvalidRule }

// Compile turns the declaration into a Rule for benchmark.
func (d Declared) Compile(benchmark string) (Rule, error) {
	if d.Metric == "" {
		return Rule{}, &InvalidRuleError{Reason: "metric name is required"}
	}
	pattern, err := regexp.Compile(multiline + d.Pattern)
	if err != nil {
		return Rule{}, &InvalidRuleError{Metric: d.Metric, Reason: err.Error()}
	}
	if d.ValueGroup == "" || pattern.SubexpIndex(d.ValueGroup) < 0 {
		return Rule{}, &InvalidRuleError{Metric: d.Metric, Reason: fmt.Sprintf("pattern has no group %q", d.ValueGroup)}
	}

	coercion := Float
	if d.Coercion != "" {
		c, ok := CoercionByName(d.Coercion)
		if !ok {
			return Rule{}, &InvalidRuleError{
				Metric: d.Metric,
				Reason: fmt.Sprintf("unknown coercion %q (expected one of %s)", d.Coercion, strings.Join(CoercionNames(), ", ")),
			}
		}
		coercion = c
	}

	better := d.Better
	switch better {
	case "":
		better = "lower"
	case "lower", "higher":
	default:
		return Rule{}, &InvalidRuleError{Metric: d.Metric, Reason: fmt.Sprintf("better must be lower or higher, got %q", better)}
	}

	tmpl := numeric(Literal(benchmark), d.Metric, Literal(d.Unit), Coerced(d.ValueGroup, coercion))
	tmpl[KeyBetter] = Literal(better)
	if d.Object != "" {
		if group, ok := strings.CutPrefix(d.Object, "<"); ok && strings.HasSuffix(group, ">") {
			group = strings.TrimSuffix(group, ">")
			if pattern.SubexpIndex(group) < 0 {
				return Rule{}, &InvalidRuleError{Metric: d.Metric, Reason: fmt.Sprintf("pattern has no group %q", group)}
			}
			tmpl[KeyObject] = Field(group)
		} else {
			tmpl[KeyObject] = Literal(d.Object)
		}
	}

	rule := Rule{Name: d.Metric, Pattern: pattern, Template: tmpl}
	if d.StartMarker != "" {
		start, err := regexp.Compile(multiline + d.StartMarker)
		if err != nil {
			return Rule{}, &InvalidRuleError{Metric: d.Metric, Reason: "start marker: " + err.Error()}
		}
		rule.Strategy = ExcludeWarmup{Start: start}
	}
	return rule, nil
}
