// SPDX-License-Identifier: MPL-2.0

package metrics

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/nibench/nibench/pkg/types"
)

// reportPathGroup names the capture group holding a report file path.
const reportPathGroup = "path"

type (
	// Strategy selects the documents a rule's template is projected from.
	Strategy interface {
		Documents(pattern *regexp.Regexp, stdout string) ([]Fields, error)
	}

	// StdOut projects every match of the pattern in stdout.
	StdOut struct{}

	// ExcludeWarmup projects only the matches after the first line matching
	// Start. Without the marker it yields nothing.
	ExcludeWarmup struct {
		Start *regexp.Regexp
	}

	// ReportFile projects JSON reports whose paths the pattern finds in
	// stdout, in its "path" group. Reports are looked up by base name in
	// Dir; in diagnostics mode the printed parent directory name is kept.
	// A path that does not resolve to a file is an artifact integrity error.
	ReportFile struct {
		Dir         string
		Diagnostics bool
	}

	// FixedFile projects the JSON report at Path. A missing report yields
	// nothing.
	FixedFile struct {
		Path string
	}
)

// Documents implements Strategy.
func (StdOut) Documents(pattern *regexp.Regexp, stdout string) ([]Fields, error) {
	return matches(pattern, stdout), nil
}

// Documents implements Strategy.
func (s ExcludeWarmup) Documents(pattern *regexp.Regexp, stdout string) ([]Fields, error) {
	loc := s.Start.FindStringIndex(stdout)
	if loc == nil {
		return nil, nil
	}
	// Skip the line break ending the marker.
	start := min(loc[1]+1, len(stdout))
	return matches(pattern, stdout[start:]), nil
}

// Documents implements Strategy.
func (s ReportFile) Documents(pattern *regexp.Regexp, stdout string) ([]Fields, error) {
	var docs []Fields
	for _, m := range matches(pattern, stdout) {
		printed, ok := m[reportPathGroup]
		if !ok {
			continue
		}
		dir := s.Dir
		if s.Diagnostics {
			dir = filepath.Join(dir, filepath.Base(filepath.Dir(printed)))
		}
		expected := filepath.Join(dir, filepath.Base(printed))
		if _, err := os.Stat(expected); err != nil {
			return nil, &types.ArtifactIntegrityError{
				Path:   expected,
				Source: printed,
				Reason: "matched file does not exist",
			}
		}
		fields, err := readJSONFields(expected)
		if err != nil {
			return nil, err
		}
		docs = append(docs, fields)
	}
	return docs, nil
}

// Documents implements Strategy.
func (s FixedFile) Documents(*regexp.Regexp, string) ([]Fields, error) {
	if _, err := os.Stat(s.Path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	fields, err := readJSONFields(s.Path)
	if err != nil {
		return nil, err
	}
	return []Fields{fields}, nil
}

// matches collects the named groups of every match. Groups that did not
// participate in a match are left out.
func matches(pattern *regexp.Regexp, text string) []Fields {
	names := pattern.SubexpNames()
	var out []Fields
	for _, idx := range pattern.FindAllStringSubmatchIndex(text, -1) {
		fields := make(Fields, len(names))
		for i, name := range names {
			if name == "" || idx[2*i] < 0 {
				continue
			}
			fields[name] = text[idx[2*i]:idx[2*i+1]]
		}
		out = append(out, fields)
	}
	return out
}

// readJSONFields reads the top-level scalar values of a JSON object.
// Numbers keep their literal text so integer coercions stay exact.
func readJSONFields(path string) (Fields, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open report %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	dec := json.NewDecoder(f)
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse report %s: %w", path, err)
	}

	fields := make(Fields, len(doc))
	for k, v := range doc {
		switch val := v.(type) {
		case json.Number:
			fields[k] = val.String()
		case string:
			fields[k] = val
		case bool:
			fields[k] = strconv.FormatBool(val)
		}
	}
	return fields, nil
}
