// SPDX-License-Identifier: MPL-2.0

package metrics

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	// standardNames maps harness metric identifiers to reported names.
	standardNames = map[string]string{
		"compilation-time":        "compile-time",
		"partial-evaluation-time": "pe-time",
		"allocated-bytes":         "allocated-memory",
		"peak-time":               "time",
	}

	metricClassPattern     = regexp.MustCompile(`metric class:\s*(?P<name>\w+)Metric`)
	bareMetricClassPattern = regexp.MustCompile(`metric class:\s*(?P<name>\w+)`)
)

// StandardName translates a harness metric identifier to its reported name.
// Unknown names are returned unchanged.
func StandardName(name string) string {
	if std, ok := standardNames[name]; ok {
		return std
	}
	return name
}

// MetricNameFromOutput finds the harness's "metric class:" line and returns
// the standardized metric name it announces.
func MetricNameFromOutput(stdout string) (string, bool) {
	m := metricClassPattern.FindStringSubmatch(stdout)
	if m == nil {
		m = bareMetricClassPattern.FindStringSubmatch(stdout)
	}
	if m == nil {
		return "", false
	}
	return StandardName(kebabCase(m[1])), true
}

// kebabCase turns "PeakTime" into "peak-time".
func kebabCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte('-')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
