// SPDX-License-Identifier: MPL-2.0

package metrics

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrCoercion is the sentinel error wrapped by CoercionError.
var ErrCoercion = errors.New("metric value coercion failed")

type (
	// Coercion converts a captured string into a record value.
	Coercion func(string) (any, error)

	// CoercionError reports a captured value its coercion rejected.
	CoercionError struct {
		Rule  string
		Key   string
		Value string
		Err   error
	}
)

var (
	// Str keeps the captured text.
	Str Coercion = func(s string) (any, error) { return s, nil }

	// Int parses an integer, stripping thousands separators. Fractional
	// values are parsed as floats and truncated toward zero.
	Int Coercion = func(s string) (any, error) {
		clean := stripThousands(s)
		if n, err := strconv.ParseInt(clean, 10, 64); err == nil {
			return n, nil
		}
		return truncate(clean)
	}

	// TimeToInt parses a timer value such as "1,234.5" and truncates it.
	TimeToInt Coercion = func(s string) (any, error) { return truncate(stripThousands(s)) }

	// HexToInt parses a hexadecimal integer with an optional 0x prefix.
	HexToInt Coercion = func(s string) (any, error) {
		clean := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
		return strconv.ParseInt(clean, 16, 64)
	}

	// Float parses a floating point value.
	Float Coercion = func(s string) (any, error) { return strconv.ParseFloat(strings.TrimSpace(s), 64) }

	coercions = map[string]Coercion{
		"str":   Str,
		"int":   Int,
		"time":  TimeToInt,
		"hex":   HexToInt,
		"float": Float,
	}
)

// Error implements the error interface.
func (e *CoercionError) Error() string {
	return fmt.Sprintf("rule %q: cannot convert %s value %q: %v", e.Rule, e.Key, e.Value, e.Err)
}

// Unwrap returns ErrCoercion for errors.Is() compatibility.
func (e *CoercionError) Unwrap() error { return ErrCoercion }

// CoercionByName looks up a coercion by its configuration name:
// str, int, time, hex or float.
func CoercionByName(name string) (Coercion, bool) {
	c, ok := coercions[name]
	return c, ok
}

// CoercionNames lists the names accepted by CoercionByName.
func CoercionNames() []string {
	return []string{"str", "int", "time", "hex", "float"}
}

func stripThousands(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), ",", "")
}

func truncate(s string) (any, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	// float64(math.MaxInt64) rounds up to 2^63, which int64 cannot hold.
	if math.IsNaN(f) || f >= 0x1p63 || f < -0x1p63 {
		return nil, fmt.Errorf("%q is out of integer range", s)
	}
	return int64(f), nil
}
