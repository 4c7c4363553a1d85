package intake

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/linesmerrill/legal-case-api/cases"
	"github.com/linesmerrill/legal-case-api/client"
	"github.com/linesmerrill/legal-case-api/models"
)

// Step is one screen of the intake form
type Step int

// Steps in the order they can appear
const (
	StepCaseDetails Step = iota + 1
	StepClientDetails
	StepActsSections
	StepDocuments
	StepReview
)

func (s Step) String() string {
	switch s {
	case StepCaseDetails:
		return "case details"
	case StepClientDetails:
		return "client details"
	case StepActsSections:
		return "acts and sections"
	case StepDocuments:
		return "documents"
	case StepReview:
		return "review"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// Flow is the ordered list of steps a wizard walks through. Every flow ends
// with StepReview.
type Flow []Step

// The two supported flows
var (
	ThreeStep = Flow{StepCaseDetails, StepClientDetails, StepReview}
	FiveStep  = Flow{StepCaseDetails, StepClientDetails, StepActsSections, StepDocuments, StepReview}
)

func (f Flow) index(s Step) int {
	for i, step := range f {
		if step == s {
			return i
		}
	}
	return -1
}

// Phase is the lifecycle state of the wizard as a whole
type Phase int

// Phases
const (
	Editing Phase = iota
	Submitting
	Submitted
)

func (p Phase) String() string {
	switch p {
	case Editing:
		return "editing"
	case Submitting:
		return "submitting"
	case Submitted:
		return "submitted"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

type event int

const (
	evEdit event = iota
	evSubmit
	evSucceeded
	evFailed
	evReset
)

func (e event) String() string {
	return [...]string{"edit", "submit", "succeeded", "failed", "reset"}[e]
}

// transitions lists every legal phase change. Anything missing is rejected
// with ErrInvalidTransition.
var transitions = map[Phase]map[event]Phase{
	Editing: {
		evEdit:   Editing,
		evSubmit: Submitting,
		evReset:  Editing,
	},
	Submitting: {
		evSucceeded: Submitted,
		evFailed:    Editing,
	},
	Submitted: {
		evReset: Editing,
	},
}

var (
	// ErrInvalidTransition is returned for an action the current phase does not allow
	ErrInvalidTransition = errors.New("action not allowed in the current phase")
	// ErrNotVisited is returned when jumping to a step that has not been reached yet
	ErrNotVisited = errors.New("step has not been reached yet")
	// ErrNotReview is returned when submitting from any step other than review
	ErrNotReview = errors.New("submit is only possible from the review step")
)

// StepError carries the field errors of a step that failed validation
type StepError struct {
	Step   Step
	Fields map[string]string
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %s", e.Step, summary(e.Fields))
}

// SubmitError aggregates everything that stopped a submit: the field errors
// of each invalid step, or the failure returned by the submitter
type SubmitError struct {
	Steps map[Step]map[string]string
	Err   error
}

func (e *SubmitError) Error() string {
	if e.Err != nil {
		return "failed to submit case: " + e.Err.Error()
	}
	steps := make([]Step, 0, len(e.Steps))
	for s := range e.Steps {
		steps = append(steps, s)
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i] < steps[j] })
	parts := make([]string, len(steps))
	for i, s := range steps {
		parts[i] = fmt.Sprintf("%s: %s", s, summary(e.Steps[s]))
	}
	return "case is incomplete: " + strings.Join(parts, "; ")
}

func (e *SubmitError) Unwrap() error { return e.Err }

func summary(fields map[string]string) string {
	keys := cases.SortedFields(fields)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + " " + fields[k]
	}
	return strings.Join(parts, ", ")
}

// Submitter sends a finished case to the API. *client.Client satisfies it.
type Submitter interface {
	CreateCase(ctx context.Context, nc client.NewCase) (*models.Case, error)
}

// Wizard is the intake state machine. It is safe for concurrent use; while a
// submit is in flight every other action fails with ErrInvalidTransition.
type Wizard struct {
	flow      Flow
	submitter Submitter

	// Now is the clock used to decide what "today" is for hearing dates
	Now func() time.Time

	mu        sync.Mutex
	phase     Phase
	current   int
	form      Form
	errors    map[string]string
	submitErr *SubmitError
	result    *models.Case
}

// New returns a wizard over flow in the Editing phase at the first step
func New(flow Flow, submitter Submitter) *Wizard {
	if len(flow) == 0 || flow[len(flow)-1] != StepReview {
		panic("intake: flow must end with the review step")
	}
	return &Wizard{flow: flow, submitter: submitter}
}

func (w *Wizard) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}

// fire applies ev to the phase. Callers hold w.mu.
func (w *Wizard) fire(ev event) error {
	next, ok := transitions[w.phase][ev]
	if !ok {
		return fmt.Errorf("%w: %s while %s", ErrInvalidTransition, ev, w.phase)
	}
	w.phase = next
	return nil
}

// Phase returns the current lifecycle phase
func (w *Wizard) Phase() Phase {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.phase
}

// Step returns the active step
func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flow[w.current]
}

// Flow returns the steps of this wizard
func (w *Wizard) Flow() Flow {
	return append(Flow(nil), w.flow...)
}

// Form returns a copy of the collected values
func (w *Wizard) Form() Form {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.form.clone()
}

// Errors returns the field errors of the last failed Next, keyed by field
func (w *Wizard) Errors() map[string]string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string]string, len(w.errors))
	for k, v := range w.errors {
		out[k] = v
	}
	return out
}

// SubmitErr returns the error of the last failed submit, if any
func (w *Wizard) SubmitErr() *SubmitError {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.submitErr
}

// Result is the stored case once the wizard reached Submitted
func (w *Wizard) Result() *models.Case {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.result
}

// Update edits the form in place. Errors of fields that were touched stay
// until the next validation.
func (w *Wizard) Update(edit func(f *Form)) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.fire(evEdit); err != nil {
		return err
	}
	edit(&w.form)
	return nil
}

// Validate returns the field errors of step against the current form
func (w *Wizard) Validate(step Step) map[string]string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return validate(step, w.form, w.now())
}

// Next validates the active step and advances when it passes. On failure the
// wizard stays put and Errors reports every failing field.
func (w *Wizard) Next() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.fire(evEdit); err != nil {
		return err
	}
	step := w.flow[w.current]
	if step == StepReview {
		return fmt.Errorf("%w: review is the last step", ErrInvalidTransition)
	}
	if fields := validate(step, w.form, w.now()); len(fields) > 0 {
		w.errors = fields
		return &StepError{Step: step, Fields: fields}
	}
	w.errors = nil
	w.current++
	return nil
}

// Back moves to the previous step, keeping everything entered. On the first
// step it does nothing.
func (w *Wizard) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.fire(evEdit); err != nil {
		return err
	}
	if w.current > 0 {
		w.current--
	}
	w.errors = nil
	return nil
}

// JumpTo moves straight to an earlier step, as the edit links of the review
// screen do. Steps past the active one cannot be jumped to.
func (w *Wizard) JumpTo(step Step) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.fire(evEdit); err != nil {
		return err
	}
	idx := w.flow.index(step)
	if idx < 0 {
		return fmt.Errorf("%w: %s is not part of this flow", ErrNotVisited, step)
	}
	if idx > w.current {
		return fmt.Errorf("%w: %s", ErrNotVisited, step)
	}
	w.current = idx
	w.errors = nil
	return nil
}

// Submit re-validates every step and sends the case. Any invalid step, or a
// failure from the submitter, leaves the wizard on review with all data kept
// and the aggregated error available from SubmitErr.
func (w *Wizard) Submit(ctx context.Context) (*models.Case, error) {
	w.mu.Lock()
	if w.phase == Editing && w.flow[w.current] != StepReview {
		w.mu.Unlock()
		return nil, ErrNotReview
	}
	if err := w.fire(evSubmit); err != nil {
		w.mu.Unlock()
		return nil, err
	}

	now := w.now()
	invalid := map[Step]map[string]string{}
	for _, step := range w.flow {
		if fields := validate(step, w.form, now); len(fields) > 0 {
			invalid[step] = fields
		}
	}
	if len(invalid) > 0 {
		w.submitErr = &SubmitError{Steps: invalid}
		_ = w.fire(evFailed)
		err := w.submitErr
		w.mu.Unlock()
		return nil, err
	}

	form := w.form.clone()
	w.mu.Unlock()

	created, err := w.send(ctx, form)

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		zap.S().Warnw("case submission failed", "error", err)
		w.submitErr = &SubmitError{Err: err}
		_ = w.fire(evFailed)
		return nil, w.submitErr
	}
	_ = w.fire(evSucceeded)
	w.submitErr = nil
	w.result = created
	zap.S().Infow("case submitted", "case_number", created.CaseNumber)
	return created, nil
}

func (w *Wizard) send(ctx context.Context, form Form) (*models.Case, error) {
	nc, err := form.NewCase()
	if err != nil {
		return nil, err
	}
	created, err := w.submitter.CreateCase(ctx, nc)
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, errors.New("submitter returned no case")
	}
	return created, nil
}

// Reset clears the form and returns to the first step, from Editing or
// Submitted
func (w *Wizard) Reset() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.fire(evReset); err != nil {
		return err
	}
	w.current = 0
	w.form = Form{}
	w.errors = nil
	w.submitErr = nil
	w.result = nil
	return nil
}
