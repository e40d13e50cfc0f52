package notifications

import (
	"context"
	"fmt"
)

type Step struct {
	Name    string
	Execute func(ctx context.Context, d *Delivery) error
}

func NewStep(name string, execute func(ctx context.Context, d *Delivery) error) Step {
	return Step{
		Name:    name,
		Execute: execute,
	}
}

// Pipeline runs its steps in order and stops at the first failure.
type Pipeline struct {
	steps []Step
}

func NewPipeline(steps ...Step) *Pipeline {
	return &Pipeline{steps: steps}
}

func (p *Pipeline) Run(ctx context.Context, d *Delivery) error {
	for _, step := range p.steps {
		if err := step.Execute(ctx, d); err != nil {
			return fmt.Errorf("%s step failed: %w", step.Name, err)
		}
	}
	return nil
}

func (p *Pipeline) StepNames() []string {
	names := make([]string, 0, len(p.steps))
	for _, s := range p.steps {
		names = append(names, s.Name)
	}
	return names
}
