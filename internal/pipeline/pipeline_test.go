package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// stubStep records executions and optionally fails.
type stubStep struct {
	name     string
	err      error
	executed *[]string
}

func (s *stubStep) Do(_ context.Context, _ *Analysis) error {
	*s.executed = append(*s.executed, s.name)
	return s.err
}

func (s *stubStep) Name() string { return s.name }

// TestPipelineExecutesInOrder tests sequential step execution.
func TestPipelineExecutesInOrder(t *testing.T) {
	t.Parallel()

	var executed []string
	p := New()
	p.AddSteps(
		&stubStep{name: "first", executed: &executed},
		&stubStep{name: "second", executed: &executed},
		&stubStep{name: "third", executed: &executed},
	)

	analysis := NewAnalysis("test.log", strings.NewReader(""))
	if err := p.Execute(context.Background(), analysis); err != nil {
		t.Fatalf("Execute() = %v", err)
	}

	want := []string{"first", "second", "third"}
	if len(executed) != len(want) {
		t.Fatalf("executed %v, expected %v", executed, want)
	}
	for i := range want {
		if executed[i] != want[i] {
			t.Errorf("executed[%d] = %q, expected %q", i, executed[i], want[i])
		}
	}
}

// TestPipelineStopsOnError tests the default fail-fast behavior.
func TestPipelineStopsOnError(t *testing.T) {
	t.Parallel()

	stepErr := errors.New("ingest failed")
	var executed []string

	p := New()
	p.AddSteps(
		&stubStep{name: "failing", err: stepErr, executed: &executed},
		&stubStep{name: "never-runs", executed: &executed},
	)

	analysis := NewAnalysis("test.log", strings.NewReader(""))
	if err := p.Execute(context.Background(), analysis); !errors.Is(err, stepErr) {
		t.Fatalf("Execute() = %v, expected %v", err, stepErr)
	}
	if len(executed) != 1 {
		t.Errorf("executed %v, expected only the failing step", executed)
	}
	if !errors.Is(analysis.Err, stepErr) {
		t.Errorf("analysis.Err = %v, expected the step error", analysis.Err)
	}
}

// TestPipelineContinueOnError tests that later steps still run when
// configured to continue.
func TestPipelineContinueOnError(t *testing.T) {
	t.Parallel()

	var executed []string
	p := New(WithContinueOnError(true))
	p.AddSteps(
		&stubStep{name: "failing", err: errors.New("boom"), executed: &executed},
		&stubStep{name: "still-runs", executed: &executed},
	)

	analysis := NewAnalysis("test.log", strings.NewReader(""))
	if err := p.Execute(context.Background(), analysis); err != nil {
		t.Fatalf("Execute() = %v, expected nil with continue-on-error", err)
	}
	if len(executed) != 2 {
		t.Errorf("executed %v, expected both steps", executed)
	}
}

// TestPipelineCancellation tests that a cancelled context stops the
// pipeline between steps.
func TestPipelineCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var executed []string
	p := New()
	p.AddStep(&stubStep{name: "never-runs", executed: &executed})

	analysis := NewAnalysis("test.log", strings.NewReader(""))
	if err := p.Execute(ctx, analysis); !errors.Is(err, context.Canceled) {
		t.Fatalf("Execute() = %v, expected context.Canceled", err)
	}
	if len(executed) != 0 {
		t.Errorf("executed %v, expected none", executed)
	}
}

// TestPipelineStepNames tests step introspection.
func TestPipelineStepNames(t *testing.T) {
	t.Parallel()

	var executed []string
	p := New()
	p.AddSteps(
		&stubStep{name: "a", executed: &executed},
		&stubStep{name: "b", executed: &executed},
	)

	if p.StepCount() != 2 {
		t.Errorf("StepCount = %d, expected 2", p.StepCount())
	}
	names := p.StepNames()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("StepNames = %v, expected [a b]", names)
	}
}
