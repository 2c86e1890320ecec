package demo

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/me/timingbelt/pkg/model"
)

// Scenario describes a headless run: the renderables and jobs to create and
// how long to drive the belt.
type Scenario struct {
	Name        string           `yaml:"name"`
	Duration    time.Duration    `yaml:"duration"`
	Renderables []RenderableSpec `yaml:"renderables"`
	Jobs        []JobSpec        `yaml:"jobs"`
}

// RenderableSpec creates Count identical renderables.
type RenderableSpec struct {
	Spec  `yaml:",inline"`
	Count int `yaml:"count"`
}

// JobSpec queues Count identical synthetic jobs.
type JobSpec struct {
	Name     string        `yaml:"name"`
	Count    int           `yaml:"count"`
	Steps    int           `yaml:"steps"`
	StepCost time.Duration `yaml:"step_cost"`
	FailAt   int           `yaml:"fail_at"`
}

// Request converts j to a harness job request.
func (j JobSpec) Request() model.JobRequest {
	return model.JobRequest{
		Name:       j.Name,
		Steps:      j.Steps,
		StepCostMS: float64(j.StepCost) / float64(time.Millisecond),
		FailAt:     j.FailAt,
	}
}

// DefaultScenario returns three idle renderables and five short jobs.
func DefaultScenario() Scenario {
	return Scenario{
		Name:     "default",
		Duration: 2 * time.Second,
		Renderables: []RenderableSpec{
			{Spec: Spec{Name: "dummy"}, Count: 3},
		},
		Jobs: []JobSpec{
			{Name: "work", Count: 5, Steps: 4, StepCost: time.Millisecond},
		},
	}
}

// LoadScenario reads a scenario file.
func LoadScenario(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("read scenario: %w", err)
	}
	sc, err := ParseScenario(data)
	if err != nil {
		return Scenario{}, fmt.Errorf("scenario %s: %w", path, err)
	}
	return sc, nil
}

// ParseScenario decodes and validates YAML scenario data. Counts default to 1.
func ParseScenario(data []byte) (Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return Scenario{}, fmt.Errorf("parse: %w", err)
	}
	for i := range sc.Renderables {
		if sc.Renderables[i].Count == 0 {
			sc.Renderables[i].Count = 1
		}
	}
	for i := range sc.Jobs {
		if sc.Jobs[i].Count == 0 {
			sc.Jobs[i].Count = 1
		}
	}
	if err := sc.Validate(); err != nil {
		return Scenario{}, err
	}
	return sc, nil
}

// Validate reports every invalid entry.
func (sc Scenario) Validate() error {
	var errs []error
	if sc.Duration < 0 {
		errs = append(errs, fmt.Errorf("duration must not be negative"))
	}
	for i, r := range sc.Renderables {
		if r.Count < 0 {
			errs = append(errs, fmt.Errorf("renderables[%d].count must not be negative", i))
		}
		for field, src := range map[string]string{"tick": r.Exprs.Tick, "paint": r.Exprs.Paint, "render": r.Exprs.Render} {
			if _, err := CompileExpr(src); err != nil {
				errs = append(errs, fmt.Errorf("renderables[%d].exprs.%s: %w", i, field, err))
			}
		}
	}
	for i, j := range sc.Jobs {
		if j.Count < 0 {
			errs = append(errs, fmt.Errorf("jobs[%d].count must not be negative", i))
		}
		req := j.Request()
		for _, fe := range req.Validate() {
			errs = append(errs, fmt.Errorf("jobs[%d].%s %s", i, fe.Field, fe.Message))
		}
	}
	return errors.Join(errs...)
}

// Apply creates the scenario's renderables and queues its jobs on h.
func (sc Scenario) Apply(h *Harness) error {
	for _, r := range sc.Renderables {
		for n := 0; n < r.Count; n++ {
			spec := r.Spec
			if spec.Name != "" && r.Count > 1 {
				spec.Name = fmt.Sprintf("%s-%d", r.Name, n+1)
			}
			if _, err := h.AddRenderable(spec); err != nil {
				return fmt.Errorf("add renderable %s: %w", r.Name, err)
			}
		}
	}
	for _, j := range sc.Jobs {
		for n := 0; n < j.Count; n++ {
			req := j.Request()
			if req.Name != "" && j.Count > 1 {
				req.Name = fmt.Sprintf("%s-%d", j.Name, n+1)
			}
			if _, err := h.QueueJob(req); err != nil {
				return fmt.Errorf("queue job %s: %w", j.Name, err)
			}
		}
	}
	return nil
}
