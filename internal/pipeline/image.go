// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/nibench/nibench/internal/executor"
	"github.com/nibench/nibench/internal/runtime"
	"github.com/nibench/nibench/pkg/benchconfig"
	"github.com/nibench/nibench/pkg/types"
)

func (p *Pipeline) image(ctx context.Context) error {
	plan := p.cfg.Plan
	var adopted string
	if p.cfg.Options.AdoptedJDKPGO {
		adopted = p.cfg.AdoptedJDKProfile
		if adopted == "" {
			slog.Warn("adopted JDK profiles requested but adopted_jdk_profile is not configured")
		}
	}
	if plan.MissingInferenceDumpFile() {
		slog.Warn("to dump the profile inference features to a specific location, set the ProfileInferenceDumpFile flag")
	}

	return p.exec.Execute(ctx, plan.ImageCommand(adopted), func(ctx context.Context, s *executor.Scope) error {
		if _, err := s.Run(ctx); err != nil {
			return err
		}
		if err := plan.CollectBundleOutput(); err != nil {
			return err
		}
		if !s.Succeeded() {
			return nil
		}
		return p.reportImage(ctx, s)
	})
}

// reportImage prints the lines the image build rules read: the binary
// size, the section headers and the size of each agent configuration file.
func (p *Pipeline) reportImage(ctx context.Context, s *executor.Scope) error {
	plan := p.cfg.Plan
	image := plan.FinalImagePath()

	if p.cfg.Options.UPX {
		cmd := []string{p.cfg.UPXPath, image}
		fmt.Fprintf(p.cfg.Console, "Compressing image: %s\n", executor.ShellJoin(cmd))
		if _, err := p.cfg.Runner.Run(ctx, runtime.Command{Args: cmd, Dir: p.cfg.Dir, NonZeroIsFatal: true}, s.Stdout(true), s.Stderr(true)); err != nil {
			return err
		}
	}

	info, err := os.Stat(plan.BinaryPath())
	if err != nil {
		return &types.ArtifactIntegrityError{Path: plan.BinaryPath(), Reason: "image was not built"}
	}
	p.exec.BenchOut(fmt.Sprintf("The executed image size for benchmark %s:%s is %d B", plan.SuiteName, plan.BenchmarkName, info.Size()))

	sections, err := runtime.Output(ctx, p.cfg.Runner, runtime.Command{Args: []string{p.cfg.ObjdumpPath, "-h", image}})
	if err != nil {
		return fmt.Errorf("failed to list image sections: %w", err)
	}
	p.exec.BenchOut(sections)

	for _, configType := range benchconfig.ConfigTypes {
		info, err := os.Stat(plan.ConfigFilePath(configType))
		if err != nil {
			continue
		}
		p.exec.BenchOut(fmt.Sprintf("The %s configuration size for benchmark %s:%s is %d B",
			configType, plan.SuiteName, plan.BenchmarkName, info.Size()))
	}
	return nil
}

func (p *Pipeline) run(ctx context.Context) error {
	plan := p.cfg.Plan
	if !plan.Runnable {
		return &benchconfig.NotRunnableError{Suite: plan.SuiteName, Benchmark: plan.BenchmarkName}
	}
	return p.exec.Execute(ctx, plan.RunCommand(), runCommand)
}
