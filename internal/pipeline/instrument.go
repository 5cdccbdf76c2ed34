// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"context"
	"crypto/sha1" //nolint:gosec // G505: fingerprint printed for operators
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nibench/nibench/internal/executor"
	"github.com/nibench/nibench/internal/runtime"
	"github.com/nibench/nibench/pkg/types"
)

func (p *Pipeline) instrumentImage(ctx context.Context) error {
	var prefixes string
	if p.cfg.Options.JDKProfilesCollect {
		var err error
		if prefixes, err = p.profilingPackagePrefixes(ctx); err != nil {
			return err
		}
	}

	plan := p.cfg.Plan
	return p.exec.Execute(ctx, plan.InstrumentImageCommand(prefixes), func(ctx context.Context, s *executor.Scope) error {
		if _, err := s.Run(ctx); err != nil {
			return err
		}
		if err := plan.CollectBundleOutput(); err != nil {
			return err
		}
		if !s.Succeeded() {
			return nil
		}
		info, err := os.Stat(plan.InstrumentedImagePath())
		if err != nil {
			return &types.ArtifactIntegrityError{Path: plan.InstrumentedImagePath(), Reason: "instrumented image was not built"}
		}
		p.exec.BenchOut(fmt.Sprintf("Instrumented image size: %d B", info.Size()))
		return nil
	})
}

func (p *Pipeline) instrumentRun(ctx context.Context) error {
	profile := p.cfg.Plan.ProfilePath
	return p.exec.Execute(ctx, p.cfg.Plan.InstrumentRunCommand(), func(ctx context.Context, s *executor.Scope) error {
		code, err := s.Run(ctx)
		if err != nil {
			return err
		}
		if !s.Succeeded() {
			fmt.Fprintf(p.cfg.Console, "Profile file %s not dumped. Instrument run failed with exit code %s\n", profile, code)
			return nil
		}
		sum, err := sha1File(profile)
		if err != nil {
			return &types.ArtifactIntegrityError{Path: profile, Reason: "profile was not dumped"}
		}
		fmt.Fprintf(p.cfg.Console, "Profile file %s sha1 is %s\n", profile, sum)
		return p.ensureSamplesInProfile(profile)
	})
}

// ensureSamplesInProfile checks that a dumped profile carries well-formed
// sampling profiles. Suites without sampling profiles opt out, and LLVM
// images and JDK profile collection do not sample.
func (p *Pipeline) ensureSamplesInProfile(path string) error {
	if !p.cfg.Suite.CheckSamplesInPGO() || p.cfg.Options.LLVM || p.cfg.Options.JDKProfilesCollect {
		return nil
	}
	return CheckSamplingProfiles(path)
}

// CheckSamplingProfiles validates the samplingProfiles of an iprof file:
// at least one entry, each with a ctx containing ':' and exactly one
// positive record.
func CheckSamplingProfiles(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &types.ArtifactIntegrityError{Path: path, Reason: err.Error()}
	}
	var profile struct {
		SamplingProfiles []struct {
			Ctx     string    `json:"ctx"`
			Records []float64 `json:"records"`
		} `json:"samplingProfiles"`
	}
	if err := json.Unmarshal(data, &profile); err != nil {
		return &types.ArtifactIntegrityError{Path: path, Reason: "malformed profile: " + err.Error()}
	}

	fail := func(reason string) error { return &types.ArtifactIntegrityError{Path: path, Reason: reason} }
	if len(profile.SamplingProfiles) == 0 {
		return fail("no sampling profiles in iprof file")
	}
	for _, sample := range profile.SamplingProfiles {
		switch {
		case !strings.Contains(sample.Ctx, ":"):
			return fail("sampling profiles seem malformed")
		case len(sample.Records) != 1:
			return fail("sampling profiles seem to be missing records")
		case sample.Records[0] <= 0:
			return fail("sampling profiles seem to have a 0 in records")
		}
	}
	return nil
}

// profilingPackagePrefixes asks native-image-configure for the JDK package
// filters and joins their class patterns without the trailing ".*".
func (p *Pipeline) profilingPackagePrefixes(ctx context.Context) (string, error) {
	bin := filepath.Join(p.cfg.Home, "bin")
	configure := filepath.Join(bin, "native-image-configure")
	if _, err := os.Stat(configure); err != nil {
		var content []string
		if entries, rerr := os.ReadDir(bin); rerr == nil {
			for _, e := range entries {
				content = append(content, e.Name())
			}
		}
		return "", fmt.Errorf("failed to find the native-image-configure command at %s (content of %s: %s)",
			configure, bin, strings.Join(content, ", "))
	}

	tmp, err := os.CreateTemp("", "nibench-filters-*.json")
	if err != nil {
		return "", err
	}
	_ = tmp.Close()
	defer func() { _ = os.Remove(tmp.Name()) }()

	_, err = runtime.Output(ctx, p.cfg.Runner, runtime.Command{Args: []string{
		configure, "generate-filters",
		"--include-packages-from-modules=java.base",
		"--exclude-classes=org.graalvm.**", "--exclude-classes=com.oracle.**",
		"--output-file=" + tmp.Name(),
	}})
	if err != nil {
		return "", fmt.Errorf("native-image-configure failed: %w", err)
	}

	data, err := os.ReadFile(tmp.Name())
	if err != nil {
		return "", err
	}
	return ParseFilterPrefixes(data)
}

// ParseFilterPrefixes extracts the package prefixes from a
// native-image-configure filter file.
func ParseFilterPrefixes(data []byte) (string, error) {
	var filters struct {
		Rules *[]map[string]string `json:"rules"`
	}
	if err := json.Unmarshal(data, &filters); err != nil {
		return "", fmt.Errorf("malformed filter file: %w", err)
	}
	if filters.Rules == nil {
		return "", fmt.Errorf("native-image-configure generated no rules")
	}
	var prefixes []string
	for _, r := range *filters.Rules {
		if include, ok := r["includeClasses"]; ok {
			prefixes = append(prefixes, strings.TrimSuffix(include, ".*"))
		}
	}
	return strings.Join(prefixes, ","), nil
}

func sha1File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := sha1.New() //nolint:gosec // G401: fingerprint only
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
