// Package assessment owns a single questionnaire session.
//
// The Controller applies answer and navigation events, computes section
// results lazily when their results step is reached, saves a draft after
// every mutation, and submits the finished session at most once.
package assessment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harrison/bshape/internal/catalog"
	"github.com/harrison/bshape/internal/draft"
	"github.com/harrison/bshape/internal/gating"
	"github.com/harrison/bshape/internal/models"
	"github.com/harrison/bshape/internal/planner"
	"github.com/harrison/bshape/internal/scoring"
)

var (
	// ErrPlanDrift means the current step has no location in the step plan.
	// It indicates a programming or catalog error and is never clamped.
	ErrPlanDrift = errors.New("current step is outside the step plan")

	// ErrAlreadySubmitted is returned when a submission has succeeded or is in flight.
	ErrAlreadySubmitted = errors.New("assessment already submitted")

	// ErrInvalidAnswer is returned for answers that do not fit the current step.
	ErrInvalidAnswer = errors.New("invalid answer")

	// ErrNotAtSummary is returned when submission is requested before the final step.
	ErrNotAtSummary = errors.New("assessment is not at the final summary step")
)

// DraftStore persists the in-progress session.
type DraftStore interface {
	Save(s *models.Session) error
	Load() (*models.Session, error)
	Clear() error
}

// Submitter delivers a completed session snapshot and returns the stored id.
type Submitter interface {
	Submit(ctx context.Context, snapshot *models.Session) (string, error)
}

// SubmitterFunc adapts a function to the Submitter interface.
type SubmitterFunc func(ctx context.Context, snapshot *models.Session) (string, error)

// Submit calls f.
func (f SubmitterFunc) Submit(ctx context.Context, snapshot *models.Session) (string, error) {
	return f(ctx, snapshot)
}

// Logger receives session events.
type Logger interface {
	LogStep(loc models.Location, total int)
	LogResult(sec models.Section, outcome scoring.Outcome)
	LogSubmission(id string, err error)
}

// Config wires a controller to its collaborators.
type Config struct {
	Drafts    DraftStore // optional; nil disables draft persistence
	Submitter Submitter  // required
	Logger    Logger     // optional
}

// Controller drives one assessment session.
type Controller struct {
	cat     *catalog.Catalog
	planner *planner.Planner
	gate    *gating.Gate
	scorer  *scoring.Engine

	drafts    DraftStore
	submitter Submitter
	logger    Logger
	clock     func() time.Time
	newID     func() string

	session *models.Session

	mu         sync.Mutex
	submitting bool
}

// New creates a controller with a fresh session.
func New(cat *catalog.Catalog, cfg Config) (*Controller, error) {
	if cat == nil {
		return nil, fmt.Errorf("assessment controller requires a catalog")
	}
	if cfg.Submitter == nil {
		return nil, fmt.Errorf("assessment controller requires a submitter")
	}

	p := planner.New(cat)
	c := &Controller{
		cat:       cat,
		planner:   p,
		gate:      gating.New(p),
		scorer:    scoring.New(cat),
		drafts:    cfg.Drafts,
		submitter: cfg.Submitter,
		logger:    cfg.Logger,
		clock:     time.Now,
		newID:     uuid.NewString,
	}
	c.session = models.NewSession(c.newID(), c.now())
	return c, nil
}

func (c *Controller) now() time.Time {
	return c.clock().UTC()
}

// Resume replaces the session with the saved draft, if one exists.
// It reports whether a draft was restored.
func (c *Controller) Resume() (bool, error) {
	if c.drafts == nil {
		return false, nil
	}
	s, err := c.drafts.Load()
	if errors.Is(err, draft.ErrNoDraft) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load draft: %w", err)
	}
	if _, err := c.planner.Locate(s.CurrentStep, s.RelationshipConcerns); err != nil {
		return false, fmt.Errorf("%w: draft step %d: %v", ErrPlanDrift, s.CurrentStep, err)
	}
	c.session = s
	return true, nil
}

// Reset discards the current session and any saved draft.
func (c *Controller) Reset() error {
	c.mu.Lock()
	c.submitting = false
	c.mu.Unlock()

	c.session = models.NewSession(c.newID(), c.now())
	if c.drafts == nil {
		return nil
	}
	if err := c.drafts.Clear(); err != nil {
		return fmt.Errorf("failed to clear draft: %w", err)
	}
	return nil
}

// Session returns a copy of the current session.
func (c *Controller) Session() *models.Session {
	return c.session.Clone()
}

// Planner returns the step planner used by the controller.
func (c *Controller) Planner() *planner.Planner {
	return c.planner
}

// Location returns the semantic location of the current step.
func (c *Controller) Location() (models.Location, error) {
	loc, err := c.planner.Locate(c.session.CurrentStep, c.session.RelationshipConcerns)
	if err != nil {
		return models.Location{}, fmt.Errorf("%w: %v", ErrPlanDrift, err)
	}
	return loc, nil
}

// CanGoNext reports whether Next would move forward.
func (c *Controller) CanGoNext() bool {
	loc, err := c.Location()
	if err != nil || loc.Kind == models.KindSummary {
		return false
	}
	return c.gate.CanGoNext(c.session)
}

// CanGoBack reports whether Back would move backward.
func (c *Controller) CanGoBack() bool {
	return c.gate.CanGoBack(c.session.CurrentStep)
}

// SetConcerns records the relationship concerns. Labels must be catalog options.
// Results of sections the new selection no longer activates are cleared.
func (c *Controller) SetConcerns(labels []string) error {
	if err := c.requireIntake(models.IntakeRelationshipConcerns); err != nil {
		return err
	}

	seen := make(map[string]bool, len(labels))
	concerns := make([]string, 0, len(labels))
	for _, label := range labels {
		if !c.cat.IsConcern(label) {
			return fmt.Errorf("%w: unknown relationship concern %q", ErrInvalidAnswer, label)
		}
		if !seen[label] {
			seen[label] = true
			concerns = append(concerns, label)
		}
	}

	c.session.RelationshipConcerns = concerns
	active := c.cat.ActivatedSections(concerns)
	for _, sec := range models.SectionOrder {
		if !active[sec] {
			c.session.Invalidate(sec)
		}
	}
	return c.persist()
}

// SetLivingWith records who the user lives with.
func (c *Controller) SetLivingWith(label string) error {
	if err := c.requireIntake(models.IntakeLivingWith); err != nil {
		return err
	}
	if !c.cat.IsLivingWith(label) {
		return fmt.Errorf("%w: unknown living-with option %q", ErrInvalidAnswer, label)
	}
	c.session.LivingWith = label
	return c.persist()
}

// SetLivingPreference records the living preference.
// Choosing an option that needs no description drops any earlier description.
func (c *Controller) SetLivingPreference(label string) error {
	if err := c.requireIntake(models.IntakeLivingPreference); err != nil {
		return err
	}
	opt, ok := c.cat.Preference(label)
	if !ok {
		return fmt.Errorf("%w: unknown living preference %q", ErrInvalidAnswer, label)
	}
	c.session.LivingPreference = label
	if !opt.RequiresDescription {
		c.session.LivingChangeDesc = ""
	}
	return c.persist()
}

// SetChangeDescription records the description of the desired living change.
func (c *Controller) SetChangeDescription(text string) error {
	if err := c.requireIntake(models.IntakeLivingPreference); err != nil {
		return err
	}
	opt, ok := c.cat.Preference(c.session.LivingPreference)
	if !ok || !opt.RequiresDescription {
		return fmt.Errorf("%w: the selected living preference takes no description", ErrInvalidAnswer)
	}
	c.session.LivingChangeDesc = strings.TrimSpace(text)
	return c.persist()
}

func (c *Controller) requireIntake(step models.IntakeStep) error {
	if c.session.Submitted {
		return ErrAlreadySubmitted
	}
	loc, err := c.Location()
	if err != nil {
		return err
	}
	if loc.Kind != models.KindIntake || loc.Intake != step {
		return fmt.Errorf("%w: current step is %s, not %s", ErrInvalidAnswer, loc, step)
	}
	return nil
}

// Answer records the answer to the current question or its presented sub-question.
// Any change to a section's answers clears that section's result and score.
func (c *Controller) Answer(questionID string, value models.Answer) error {
	if c.session.Submitted {
		return ErrAlreadySubmitted
	}
	loc, err := c.Location()
	if err != nil {
		return err
	}
	q, ok := c.planner.Question(loc)
	if !ok {
		return fmt.Errorf("%w: current step %s is not a question", ErrInvalidAnswer, loc)
	}

	answers := c.session.Answers(loc.Section)
	var target *models.Question
	switch {
	case questionID == q.ID:
		target = q
	case q.SubQuestion != nil && questionID == q.SubQuestion.ID:
		if !q.SubQuestionActive(answers) {
			return fmt.Errorf("%w: question %s is not presented for the current answer", ErrInvalidAnswer, questionID)
		}
		target = &q.SubQuestion.Question
	default:
		return fmt.Errorf("%w: question %s is not on the current step", ErrInvalidAnswer, questionID)
	}
	if !value.Fits(target.Type, target.Options) {
		return fmt.Errorf("%w: %q does not fit question %s (%s)", ErrInvalidAnswer, value.String(), questionID, target.Type)
	}

	answers[questionID] = value
	c.session.Invalidate(loc.Section)
	return c.persist()
}

// Next advances one step when gating allows it.
// It returns false without error when navigation is refused. Landing on the
// final summary triggers submission; a submission failure is returned after
// the step has moved so the caller can offer a retry.
func (c *Controller) Next(ctx context.Context) (bool, error) {
	if !c.CanGoNext() {
		if _, err := c.Location(); err != nil {
			return false, err
		}
		return false, nil
	}
	c.session.CurrentStep++
	return true, c.arrive(ctx)
}

// Back moves one step backward when possible.
func (c *Controller) Back(ctx context.Context) (bool, error) {
	if !c.CanGoBack() {
		return false, nil
	}
	c.session.CurrentStep--
	return true, c.arrive(ctx)
}

// JumpTo moves to an earlier step. Forward jumps are refused because they would
// bypass gating.
func (c *Controller) JumpTo(ctx context.Context, step int) (bool, error) {
	if step < 0 || step > c.session.CurrentStep {
		return false, nil
	}
	if step == c.session.CurrentStep {
		return true, nil
	}
	c.session.CurrentStep = step
	return true, c.arrive(ctx)
}

// arrive runs the side effects of landing on the current step.
func (c *Controller) arrive(ctx context.Context) error {
	loc, err := c.Location()
	if err != nil {
		return err
	}
	total := c.planner.TotalSteps(c.session.RelationshipConcerns)
	if c.logger != nil {
		c.logger.LogStep(loc, total)
	}

	switch loc.Kind {
	case models.KindResults:
		c.ensureResult(loc.Section)
	case models.KindSummary:
		for _, sec := range c.planner.ActiveSections(c.session.RelationshipConcerns) {
			c.ensureResult(sec)
		}
	}

	if err := c.persist(); err != nil {
		return err
	}

	if loc.Kind == models.KindSummary {
		if _, err := c.Submit(ctx); err != nil && !errors.Is(err, ErrAlreadySubmitted) {
			return err
		}
	}
	return nil
}

// ensureResult computes a section's result if it is missing.
func (c *Controller) ensureResult(sec models.Section) {
	if _, ok := c.session.Results.Get(sec); ok {
		return
	}
	out := c.scorer.Apply(c.session, sec)
	if c.logger != nil {
		c.logger.LogResult(sec, out)
	}
}

// Submit sends the completed session to the submitter.
//
// At most one submission succeeds per session. A second call after success, or
// while a call is in flight, returns ErrAlreadySubmitted without contacting the
// submitter. A failed call leaves the session unsubmitted so it can be retried.
func (c *Controller) Submit(ctx context.Context) (string, error) {
	loc, err := c.Location()
	if err != nil {
		return "", err
	}
	if loc.Kind != models.KindSummary {
		return "", ErrNotAtSummary
	}

	c.mu.Lock()
	if c.session.Submitted || c.submitting {
		id := c.session.SubmissionID
		c.mu.Unlock()
		return id, ErrAlreadySubmitted
	}
	c.submitting = true
	c.mu.Unlock()

	for _, sec := range c.planner.ActiveSections(c.session.RelationshipConcerns) {
		c.ensureResult(sec)
	}
	completedAt := c.now()
	snapshot := c.session.Clone()
	snapshot.CompletedAt = &completedAt

	id, err := c.submitter.Submit(ctx, snapshot)
	if c.logger != nil {
		c.logger.LogSubmission(id, err)
	}
	if err != nil {
		c.mu.Lock()
		c.submitting = false
		c.mu.Unlock()
		return "", fmt.Errorf("failed to submit assessment: %w", err)
	}

	c.mu.Lock()
	c.session.Submitted = true
	c.session.SubmissionID = id
	c.session.CompletedAt = &completedAt
	c.mu.Unlock()

	if c.drafts != nil {
		if err := c.drafts.Clear(); err != nil {
			return id, fmt.Errorf("assessment submitted as %s but draft could not be cleared: %w", id, err)
		}
	}
	return id, nil
}

// persist saves the session as a draft; a submitted session has no draft.
func (c *Controller) persist() error {
	if c.drafts == nil || c.session.Submitted {
		return nil
	}
	if err := c.drafts.Save(c.session); err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}
