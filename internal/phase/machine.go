// File path: internal/phase/machine.go
package phase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mdpstudio/sprintforge/internal/common"
	"github.com/mdpstudio/sprintforge/internal/sqlite"
	"github.com/mdpstudio/sprintforge/internal/synth"
)

var (
	// ErrPhaseLocked rejects operations against a phase the project has
	// not reached yet.
	ErrPhaseLocked = errors.New("phase is locked")
	// ErrConfirmRequired guards journey edits that would invalidate
	// downstream opportunity selections.
	ErrConfirmRequired = errors.New("edit requires confirmation")
	// ErrOpportunityCount enforces the exactly-three selection rule.
	ErrOpportunityCount = errors.New("exactly 3 opportunities must be selected")
)

// IterationEntry is one appended record in a phase's iteration history.
type IterationEntry struct {
	Synthesis  map[string]interface{} `json:"synthesis"`
	Feedback   string                 `json:"feedback,omitempty"`
	IteratedAt time.Time              `json:"iterated_at"`
}

// View is the full working state of one phase, ready for the API layer.
type View struct {
	Config           Config                   `json:"config"`
	Phase            int                      `json:"phase"`
	Inputs           map[string]interface{}   `json:"inputs"`
	Synthesis        map[string]interface{}   `json:"synthesis"`
	IterationHistory []IterationEntry         `json:"iteration_history"`
	Status           string                   `json:"status"`
	AcceptedAt       *time.Time               `json:"accepted_at,omitempty"`
	CanSkipLearning  bool                     `json:"can_skip_learning"`
}

// Machine drives a project through the seven phases. Mutating operations
// on the same (project, phase) pair are serialized with a keyed mutex so
// a synthesize racing an accept cannot interleave their read-modify-write
// cycles.
type Machine struct {
	store   *sqlite.Store
	invoker *synth.Invoker

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewMachine(store *sqlite.Store, invoker *synth.Invoker) *Machine {
	return &Machine{
		store:   store,
		invoker: invoker,
		locks:   make(map[string]*sync.Mutex),
	}
}

func (m *Machine) lockFor(projectID string, phase int) *sync.Mutex {
	key := fmt.Sprintf("%s|%d", projectID, phase)
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[key] = lock
	}
	return lock
}

// Get assembles the view of one phase. A phase with no saved row yet is
// returned with its default inputs and an empty history.
func (m *Machine) Get(ctx context.Context, projectID string, n int) (*View, error) {
	config, err := Lookup(n)
	if err != nil {
		return nil, err
	}
	if _, err := m.store.GetProject(ctx, projectID); err != nil {
		return nil, err
	}

	view := &View{
		Config: config,
		Phase:  n,
		Status: sqlite.PhaseInProgress,
	}
	record, err := m.store.GetPhase(ctx, projectID, n)
	if err != nil {
		if !errors.Is(err, sqlite.ErrNotFound) {
			return nil, err
		}
		view.Inputs, err = EmptyInputs(n)
		if err != nil {
			return nil, err
		}
		view.Synthesis = map[string]interface{}{}
		view.IterationHistory = []IterationEntry{}
		return view, nil
	}

	saved, err := decodeObject(record.Inputs)
	if err != nil {
		return nil, fmt.Errorf("decode phase inputs: %w", err)
	}
	view.Inputs, err = MergeDefaults(n, saved)
	if err != nil {
		return nil, err
	}
	view.Synthesis, err = decodeObject(record.Synthesis)
	if err != nil {
		return nil, fmt.Errorf("decode phase synthesis: %w", err)
	}
	view.IterationHistory, err = decodeHistory(record.IterationHistory)
	if err != nil {
		return nil, fmt.Errorf("decode iteration history: %w", err)
	}
	view.Status = record.Status
	if record.AcceptedAt.Valid {
		at := record.AcceptedAt.Time
		view.AcceptedAt = &at
	}
	view.CanSkipLearning = record.Status == sqlite.PhaseAccepted ||
		record.Status == sqlite.PhaseSkipped || HasAnyInput(saved)
	return view, nil
}

// List returns the views of all seven phases for a project.
func (m *Machine) List(ctx context.Context, projectID string) ([]View, error) {
	views := make([]View, 0, Count)
	for n := 1; n <= Count; n++ {
		view, err := m.Get(ctx, projectID, n)
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}
	return views, nil
}

// Save upserts the working inputs for a phase. Acceptance status is left
// alone; saving over an accepted phase does not un-accept it.
func (m *Machine) Save(ctx context.Context, projectID string, n int, inputs map[string]interface{}) (*View, error) {
	if _, err := Lookup(n); err != nil {
		return nil, err
	}
	lock := m.lockFor(projectID, n)
	lock.Lock()
	defer lock.Unlock()

	if err := m.saveInputs(ctx, projectID, n, inputs); err != nil {
		return nil, err
	}
	return m.Get(ctx, projectID, n)
}

// Synthesize persists the current inputs, runs the synthesis call for the
// phase, and stores the result. A provider failure leaves the stored
// synthesis untouched.
func (m *Machine) Synthesize(ctx context.Context, projectID string, n int, inputs map[string]interface{}, subStep string, previous map[string]interface{}, feedback string) (*View, synth.Result, error) {
	if _, err := Lookup(n); err != nil {
		return nil, synth.Result{}, err
	}
	project, err := m.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, synth.Result{}, err
	}
	if n > project.CurrentPhase {
		return nil, synth.Result{}, fmt.Errorf("phase %d beyond current phase %d: %w", n, project.CurrentPhase, ErrPhaseLocked)
	}

	lock := m.lockFor(projectID, n)
	lock.Lock()
	defer lock.Unlock()

	if err := m.saveInputs(ctx, projectID, n, inputs); err != nil {
		return nil, synth.Result{}, err
	}

	result, err := m.invoker.SynthesizePhase(ctx, synth.PhaseRequest{
		Phase:             n,
		Inputs:            inputs,
		SubStep:           subStep,
		PreviousSynthesis: previous,
		IterationFeedback: feedback,
	})
	if err != nil {
		return nil, synth.Result{}, err
	}

	synthesisJSON, err := result.SynthesisJSON()
	if err != nil {
		return nil, synth.Result{}, fmt.Errorf("encode synthesis: %w", err)
	}
	if err := m.store.SavePhaseSynthesis(ctx, projectID, n, string(synthesisJSON)); err != nil {
		return nil, synth.Result{}, err
	}
	common.Logger().Info("phase: synthesis stored",
		"project", projectID, "phase", n, "sub_step", subStep, "structured", result.IsStructured())

	view, err := m.Get(ctx, projectID, n)
	if err != nil {
		return nil, synth.Result{}, err
	}
	return view, result, nil
}

// Accept marks a phase accepted, persisting the final inputs and
// synthesis first. When the accepted phase is the project's current
// phase and below 7, the project advances one phase. The returned flag
// is true only for a phase 7 acceptance: the caller then runs the
// completion pipeline, since there is no phase 8 to advance into.
func (m *Machine) Accept(ctx context.Context, projectID string, n int, inputs, synthesis map[string]interface{}) (bool, error) {
	if _, err := Lookup(n); err != nil {
		return false, err
	}
	project, err := m.store.GetProject(ctx, projectID)
	if err != nil {
		return false, err
	}
	if n > project.CurrentPhase {
		return false, fmt.Errorf("phase %d beyond current phase %d: %w", n, project.CurrentPhase, ErrPhaseLocked)
	}

	lock := m.lockFor(projectID, n)
	lock.Lock()
	defer lock.Unlock()

	if err := m.saveInputs(ctx, projectID, n, inputs); err != nil {
		return false, err
	}
	if synthesis != nil {
		encoded, err := json.Marshal(synthesis)
		if err != nil {
			return false, fmt.Errorf("encode synthesis: %w", err)
		}
		if err := m.store.SavePhaseSynthesis(ctx, projectID, n, string(encoded)); err != nil {
			return false, err
		}
	}
	if err := m.store.AcceptPhase(ctx, projectID, n); err != nil {
		return false, err
	}

	if n == Count {
		common.Logger().Info("phase: final phase accepted", "project", projectID)
		return true, nil
	}
	if n == project.CurrentPhase {
		if err := m.store.AdvanceProject(ctx, projectID, n+1); err != nil {
			return false, err
		}
		common.Logger().Info("phase: project advanced",
			"project", projectID, "phase", n+1)
	}
	return false, nil
}

// Iterate archives the current synthesis into the iteration history and
// clears it. When feedback text is supplied the phase is immediately
// re-synthesized with the archived synthesis attached as revision
// context; otherwise the phase returns to input with no synthesis.
func (m *Machine) Iterate(ctx context.Context, projectID string, n int, subStep, feedback string) (*View, *synth.Result, error) {
	if _, err := Lookup(n); err != nil {
		return nil, nil, err
	}
	project, err := m.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}
	if n > project.CurrentPhase {
		return nil, nil, fmt.Errorf("phase %d beyond current phase %d: %w", n, project.CurrentPhase, ErrPhaseLocked)
	}
	lock := m.lockFor(projectID, n)
	lock.Lock()

	record, err := m.store.GetPhase(ctx, projectID, n)
	if err != nil {
		lock.Unlock()
		return nil, nil, err
	}
	previous, err := decodeObject(record.Synthesis)
	if err != nil {
		lock.Unlock()
		return nil, nil, fmt.Errorf("decode phase synthesis: %w", err)
	}
	history, err := decodeHistory(record.IterationHistory)
	if err != nil {
		lock.Unlock()
		return nil, nil, fmt.Errorf("decode iteration history: %w", err)
	}
	history = append(history, IterationEntry{
		Synthesis:  previous,
		Feedback:   feedback,
		IteratedAt: time.Now().UTC(),
	})
	encodedHistory, err := json.Marshal(history)
	if err != nil {
		lock.Unlock()
		return nil, nil, fmt.Errorf("encode iteration history: %w", err)
	}
	if err := m.store.RecordPhaseIteration(ctx, projectID, n, string(encodedHistory), "{}"); err != nil {
		lock.Unlock()
		return nil, nil, err
	}
	inputs, err := decodeObject(record.Inputs)
	if err != nil {
		lock.Unlock()
		return nil, nil, fmt.Errorf("decode phase inputs: %w", err)
	}
	lock.Unlock()

	if strings.TrimSpace(feedback) == "" {
		view, err := m.Get(ctx, projectID, n)
		if err != nil {
			return nil, nil, err
		}
		return view, nil, nil
	}

	view, result, err := m.Synthesize(ctx, projectID, n, inputs, subStep, previous, feedback)
	if err != nil {
		return nil, nil, err
	}
	return view, &result, nil
}

// SelectOpportunities stores the phase-4 opportunity selection. The
// selection must contain exactly three entries.
func (m *Machine) SelectOpportunities(ctx context.Context, projectID string, opportunities []Opportunity) (*View, error) {
	if len(opportunities) != 3 {
		return nil, fmt.Errorf("got %d: %w", len(opportunities), ErrOpportunityCount)
	}
	lock := m.lockFor(projectID, 4)
	lock.Lock()
	defer lock.Unlock()

	inputs, err := m.phase4Inputs(ctx, projectID)
	if err != nil {
		return nil, err
	}
	selected := make([]interface{}, 0, len(opportunities))
	for _, opp := range opportunities {
		entry := map[string]interface{}{
			"description": opp.Description,
			"chosen_hmw":  opp.ChosenHMW,
		}
		if opp.SourceStep >= 0 {
			entry["source_step_index"] = opp.SourceStep
		} else {
			entry["source_step_index"] = "custom"
		}
		selected = append(selected, entry)
	}
	inputs["selected_opportunities"] = selected
	inputs["opportunities_accepted"] = false

	if err := m.saveInputs(ctx, projectID, 4, inputs); err != nil {
		return nil, err
	}
	return m.Get(ctx, projectID, 4)
}

// EditJourneyStep replaces one journey step in the phase-4 inputs. Once
// opportunities have been selected the edit must be confirmed, and a
// confirmed edit invalidates everything derived from the map: selected
// opportunities, chosen HMW statements, and both acceptance flags.
func (m *Machine) EditJourneyStep(ctx context.Context, projectID string, index int, step JourneyStep, confirmed bool) (*View, error) {
	lock := m.lockFor(projectID, 4)
	lock.Lock()
	defer lock.Unlock()

	inputs, err := m.phase4Inputs(ctx, projectID)
	if err != nil {
		return nil, err
	}
	steps, _ := inputs["journey_steps"].([]interface{})
	if index < 0 || index >= len(steps) {
		return nil, fmt.Errorf("journey step %d out of range", index)
	}

	selected, _ := inputs["selected_opportunities"].([]interface{})
	if len(selected) > 0 && !confirmed {
		return nil, fmt.Errorf("journey step %d has dependent opportunities: %w", index, ErrConfirmRequired)
	}

	steps[index] = map[string]interface{}{
		"step":  step.Step,
		"label": step.Label,
		"notes": step.Notes,
	}
	inputs["journey_steps"] = steps
	if len(selected) > 0 {
		inputs["selected_opportunities"] = []interface{}{}
		inputs["opportunities_accepted"] = false
		inputs["journey_map_accepted"] = false
		common.Logger().Info("phase: journey edit invalidated opportunity selection",
			"project", projectID, "step", index)
	}

	if err := m.saveInputs(ctx, projectID, 4, inputs); err != nil {
		return nil, err
	}
	return m.Get(ctx, projectID, 4)
}

func (m *Machine) phase4Inputs(ctx context.Context, projectID string) (map[string]interface{}, error) {
	record, err := m.store.GetPhase(ctx, projectID, 4)
	if err != nil {
		if !errors.Is(err, sqlite.ErrNotFound) {
			return nil, err
		}
		return EmptyInputs(4)
	}
	saved, err := decodeObject(record.Inputs)
	if err != nil {
		return nil, fmt.Errorf("decode phase inputs: %w", err)
	}
	return MergeDefaults(4, saved)
}

func (m *Machine) saveInputs(ctx context.Context, projectID string, n int, inputs map[string]interface{}) error {
	if inputs == nil {
		inputs = map[string]interface{}{}
	}
	encoded, err := json.Marshal(inputs)
	if err != nil {
		return fmt.Errorf("encode phase inputs: %w", err)
	}
	if _, err := m.store.SavePhaseInputs(ctx, projectID, n, string(encoded)); err != nil {
		return err
	}
	return nil
}

func decodeObject(raw string) (map[string]interface{}, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]interface{}{}, nil
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, err
	}
	if decoded == nil {
		decoded = map[string]interface{}{}
	}
	return decoded, nil
}

func decodeHistory(raw string) ([]IterationEntry, error) {
	if strings.TrimSpace(raw) == "" {
		return []IterationEntry{}, nil
	}
	var history []IterationEntry
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		return nil, err
	}
	if history == nil {
		history = []IterationEntry{}
	}
	return history, nil
}
