// SPDX-License-Identifier: MPL-2.0

package stages

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrPipelineFailed is returned when a stage is requested after a failure.
	ErrPipelineFailed = errors.New("a previous stage failed, no further stages may run")

	// ErrStageNotRequested is returned when the current stage is outside the requested list.
	ErrStageNotRequested = errors.New("stage was not requested")
)

// Plan tracks which stages a benchmark runs and how far it got.
//
// The requested list is fixed at construction. The removed set is supplied
// once the build configuration is known, and stages in it are skipped even
// when requested explicitly. The current stage, completed history and
// failure flag accumulate while stages execute.
type Plan struct {
	requested []Stage
	removed   map[Stage]bool
	fallback  bool

	current   Stage
	completed []Stage
	failed    bool
}

// NewPlan creates a plan for the requested stages. An empty request selects
// every stage. In fallback mode a single invocation executes all effective
// stages in order; otherwise the caller selects one stage per invocation.
func NewPlan(requested []Stage, fallback bool) (*Plan, error) {
	if len(requested) == 0 {
		requested = All()
	}
	ordered := make([]Stage, 0, len(requested))
	for _, s := range requested {
		if !s.IsValid() {
			return nil, &UnknownStageError{Value: string(s)}
		}
		if !slices.Contains(ordered, s) {
			ordered = append(ordered, s)
		}
	}
	slices.SortFunc(ordered, func(a, b Stage) int { return a.index() - b.index() })

	return &Plan{
		requested: ordered,
		removed:   make(map[Stage]bool),
		fallback:  fallback,
	}, nil
}

// Remove marks stages that cannot run for this configuration.
func (p *Plan) Remove(list ...Stage) {
	for _, s := range list {
		p.removed[s] = true
	}
}

// IsRemoved reports whether s was removed.
func (p *Plan) IsRemoved(s Stage) bool { return p.removed[s] }

// Removed returns the removed stages in canonical order.
func (p *Plan) Removed() []Stage {
	var out []Stage
	for _, s := range canonical {
		if p.removed[s] {
			out = append(out, s)
		}
	}
	return out
}

// Requested returns the requested stages in canonical order.
func (p *Plan) Requested() []Stage { return slices.Clone(p.requested) }

// EffectiveStages returns the requested stages that were not removed.
func (p *Plan) EffectiveStages() []Stage {
	out := make([]Stage, 0, len(p.requested))
	for _, s := range p.requested {
		if !p.removed[s] {
			out = append(out, s)
		}
	}
	return out
}

// LastStage returns the final effective stage, or "" when every requested
// stage was removed.
func (p *Plan) LastStage() Stage {
	eff := p.EffectiveStages()
	if len(eff) == 0 {
		return ""
	}
	return eff[len(eff)-1]
}

// Fallback reports whether all stages run in one invocation.
func (p *Plan) Fallback() bool { return p.fallback }

// ChangeStage makes s the current stage.
func (p *Plan) ChangeStage(s Stage) error {
	if p.failed {
		return ErrPipelineFailed
	}
	if !s.IsValid() {
		return &UnknownStageError{Value: string(s)}
	}
	if !slices.Contains(p.requested, s) {
		return fmt.Errorf("%w: %s (requested: %s)", ErrStageNotRequested, s, Join(p.requested))
	}
	p.current = s
	return nil
}

// RequestedStage returns the current stage as requested by the caller.
func (p *Plan) RequestedStage() Stage { return p.current }

// EffectiveStage returns the current stage, and false when it is skipped
// because it was removed.
func (p *Plan) EffectiveStage() (Stage, bool) {
	if p.current == "" || p.removed[p.current] {
		return "", false
	}
	return p.current, true
}

// SkipCurrent reports whether the current stage is skipped.
func (p *Plan) SkipCurrent() bool {
	_, ok := p.EffectiveStage()
	return !ok
}

// IsLastStage reports whether the current stage is the final effective stage.
func (p *Plan) IsLastStage() bool {
	return p.current != "" && p.current == p.LastStage()
}

// Succeed records the current stage as completed.
func (p *Plan) Succeed() {
	p.completed = append(p.completed, p.current)
}

// Fail records a failure of the current stage. The plan accepts no further stages.
func (p *Plan) Fail() { p.failed = true }

// Failed reports whether a stage failed.
func (p *Plan) Failed() bool { return p.failed }

// Completed returns the stages completed so far, in execution order.
func (p *Plan) Completed() []Stage { return slices.Clone(p.completed) }

// Done reports whether the final effective stage completed.
func (p *Plan) Done() bool {
	last := p.LastStage()
	return last != "" && !p.failed && slices.Contains(p.completed, last)
}
