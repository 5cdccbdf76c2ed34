// SPDX-License-Identifier: MPL-2.0

package metrics

import "regexp"

// Rule is a declarative metric extraction rule.
type Rule struct {
	// Name identifies the rule in errors.
	Name string
	// Pattern is matched against stdout. File strategies use it to find
	// report paths; FixedFile ignores it.
	Pattern *regexp.Regexp
	// Template projects each document into a record.
	Template Template
	// Strategy defaults to StdOut.
	Strategy Strategy
}

// Evaluate runs the rule over stdout. No match yields no records.
func (r Rule) Evaluate(stdout string) ([]Record, error) {
	strategy := r.Strategy
	if strategy == nil {
		strategy = StdOut{}
	}
	docs, err := strategy.Documents(r.Pattern, stdout)
	if err != nil {
		return nil, err
	}

	var records []Record
	for i, fields := range docs {
		rec, ok, err := r.Template.project(r.Name, fields, i)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if name, isString := rec[KeyName].(string); isString {
			rec[KeyName] = StandardName(name)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Evaluate runs every rule over the same stdout and concatenates the
// records in rule order. The first rule error stops evaluation.
func Evaluate(rules []Rule, stdout string) ([]Record, error) {
	var records []Record
	for _, r := range rules {
		recs, err := r.Evaluate(stdout)
		if err != nil {
			return nil, err
		}
		records = append(records, recs...)
	}
	return records, nil
}
