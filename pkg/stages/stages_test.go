// SPDX-License-Identifier: MPL-2.0

package stages

import (
	"errors"
	"slices"
	"testing"
)

func TestCanonicalOrder(t *testing.T) {
	t.Parallel()

	want := []Stage{Agent, InstrumentImage, InstrumentRun, Image, Run}
	if got := All(); !slices.Equal(got, want) {
		t.Errorf("All() = %v, want %v", got, want)
	}
	if got := Names(); got[0] != "agent" || got[4] != "run" {
		t.Errorf("Names() = %v", got)
	}
}

func TestParseList(t *testing.T) {
	t.Parallel()

	got, err := ParseList("image, agent")
	if err != nil {
		t.Fatalf("ParseList() error = %v", err)
	}
	if !slices.Equal(got, []Stage{Image, Agent}) {
		t.Errorf("ParseList() = %v", got)
	}

	if got, err := ParseList(""); err != nil || got != nil {
		t.Errorf("ParseList(\"\") = %v, %v; want nil, nil", got, err)
	}

	_, err = ParseList("agent,compile")
	if !errors.Is(err, ErrUnknownStage) {
		t.Errorf("ParseList(unknown) error = %v, want ErrUnknownStage", err)
	}
}

func TestIsImageBuild(t *testing.T) {
	t.Parallel()

	for _, s := range All() {
		want := s == InstrumentImage || s == Image
		if s.IsImageBuild() != want {
			t.Errorf("%s.IsImageBuild() = %v, want %v", s, s.IsImageBuild(), want)
		}
	}
}

func TestStageInputs(t *testing.T) {
	t.Parallel()

	in := Image.Inputs()
	var from []Stage
	for _, e := range in {
		from = append(from, e.From)
	}
	if !slices.Equal(from, []Stage{Agent, InstrumentRun}) {
		t.Errorf("Image.Inputs() come from %v", from)
	}
	if len(Agent.Inputs()) != 0 {
		t.Errorf("Agent.Inputs() = %v, want none", Agent.Inputs())
	}
}

func TestNewPlanOrdersAndDeduplicates(t *testing.T) {
	t.Parallel()

	p, err := NewPlan([]Stage{Run, Agent, Run, Image}, false)
	if err != nil {
		t.Fatalf("NewPlan() error = %v", err)
	}
	if got := p.Requested(); !slices.Equal(got, []Stage{Agent, Image, Run}) {
		t.Errorf("Requested() = %v", got)
	}

	if _, err := NewPlan([]Stage{"bogus"}, false); !errors.Is(err, ErrUnknownStage) {
		t.Errorf("NewPlan(bogus) error = %v, want ErrUnknownStage", err)
	}
}

func TestPlanRemovedStagesAreSkipped(t *testing.T) {
	t.Parallel()

	p, err := NewPlan(nil, true)
	if err != nil {
		t.Fatalf("NewPlan() error = %v", err)
	}
	p.Remove(InstrumentImage, InstrumentRun)

	if got := p.EffectiveStages(); !slices.Equal(got, []Stage{Agent, Image, Run}) {
		t.Errorf("EffectiveStages() = %v", got)
	}
	if got := p.Removed(); !slices.Equal(got, []Stage{InstrumentImage, InstrumentRun}) {
		t.Errorf("Removed() = %v", got)
	}
	if p.LastStage() != Run {
		t.Errorf("LastStage() = %v, want run", p.LastStage())
	}

	if err := p.ChangeStage(InstrumentRun); err != nil {
		t.Fatalf("ChangeStage() error = %v", err)
	}
	if !p.SkipCurrent() {
		t.Error("removed stage must be skipped even when requested")
	}
	if s, ok := p.EffectiveStage(); ok || s != "" {
		t.Errorf("EffectiveStage() = %q, %v; want skipped", s, ok)
	}
	if p.RequestedStage() != InstrumentRun {
		t.Errorf("RequestedStage() = %v", p.RequestedStage())
	}
}

func TestPlanProgress(t *testing.T) {
	t.Parallel()

	p, err := NewPlan([]Stage{Agent, Image}, false)
	if err != nil {
		t.Fatalf("NewPlan() error = %v", err)
	}

	if err := p.ChangeStage(Run); !errors.Is(err, ErrStageNotRequested) {
		t.Errorf("ChangeStage(run) error = %v, want ErrStageNotRequested", err)
	}

	for _, s := range []Stage{Agent, Image} {
		if err := p.ChangeStage(s); err != nil {
			t.Fatalf("ChangeStage(%s) error = %v", s, err)
		}
		if p.IsLastStage() != (s == Image) {
			t.Errorf("IsLastStage() at %s = %v", s, p.IsLastStage())
		}
		p.Succeed()
	}

	if !p.Done() {
		t.Error("Done() = false after the last stage completed")
	}
	if got := p.Completed(); !slices.Equal(got, []Stage{Agent, Image}) {
		t.Errorf("Completed() = %v", got)
	}
}

func TestPlanFailureIsTerminal(t *testing.T) {
	t.Parallel()

	p, err := NewPlan(nil, true)
	if err != nil {
		t.Fatalf("NewPlan() error = %v", err)
	}
	if err := p.ChangeStage(Agent); err != nil {
		t.Fatalf("ChangeStage() error = %v", err)
	}
	p.Fail()

	if !p.Failed() || p.Done() {
		t.Errorf("Failed() = %v, Done() = %v after failure", p.Failed(), p.Done())
	}
	if err := p.ChangeStage(InstrumentImage); !errors.Is(err, ErrPipelineFailed) {
		t.Errorf("ChangeStage() after failure error = %v, want ErrPipelineFailed", err)
	}
}

func TestPlanEverythingRemoved(t *testing.T) {
	t.Parallel()

	p, err := NewPlan([]Stage{Run}, false)
	if err != nil {
		t.Fatalf("NewPlan() error = %v", err)
	}
	p.Remove(Run)
	if p.LastStage() != "" || p.Done() {
		t.Errorf("LastStage() = %q, Done() = %v with no effective stages", p.LastStage(), p.Done())
	}
}
