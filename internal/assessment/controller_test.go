package assessment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/bshape/internal/catalog"
	"github.com/harrison/bshape/internal/draft"
	"github.com/harrison/bshape/internal/models"
	"github.com/harrison/bshape/internal/scoring"
)

const (
	partnerConcern = "My current husband or partner"
	inLawsConcern  = "My in-laws"
	liveAlone      = "I live alone"
	stayPreference = "Yes, I would like to continue living with people in my household or to continue living alone"
	movePreference = "No, I would prefer a change in my living situation"
)

var fixedNow = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

type recordingSubmitter struct {
	mu        sync.Mutex
	calls     int
	snapshots []*models.Session
	err       error
}

func (r *recordingSubmitter) Submit(_ context.Context, s *models.Session) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.snapshots = append(r.snapshots, s)
	if r.err != nil {
		return "", r.err
	}
	return "sub-1", nil
}

func (r *recordingSubmitter) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type recordingLogger struct {
	steps       []models.Location
	results     map[models.Section]scoring.Outcome
	submissions []string
}

func (l *recordingLogger) LogStep(loc models.Location, _ int) { l.steps = append(l.steps, loc) }

func (l *recordingLogger) LogResult(sec models.Section, out scoring.Outcome) {
	if l.results == nil {
		l.results = map[models.Section]scoring.Outcome{}
	}
	l.results[sec] = out
}

func (l *recordingLogger) LogSubmission(id string, err error) {
	if err != nil {
		id = "error"
	}
	l.submissions = append(l.submissions, id)
}

type fixture struct {
	c      *Controller
	sub    *recordingSubmitter
	drafts *draft.MemoryStore
	log    *recordingLogger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)

	f := &fixture{
		sub:    &recordingSubmitter{},
		drafts: draft.NewMemoryStore(),
		log:    &recordingLogger{},
	}
	f.c, err = New(cat, Config{Drafts: f.drafts, Submitter: f.sub, Logger: f.log})
	require.NoError(t, err)
	f.c.clock = func() time.Time { return fixedNow }
	f.c.newID = func() string { return "session-1" }
	require.NoError(t, f.c.Reset())
	return f
}

func (f *fixture) next(t *testing.T) {
	t.Helper()
	moved, err := f.c.Next(context.Background())
	require.NoError(t, err)
	require.True(t, moved, "next refused at step %d", f.c.session.CurrentStep)
}

// completeIntake walks the intake steps and lands on the first section intro
func (f *fixture) completeIntake(t *testing.T, concerns ...string) {
	t.Helper()
	for i := 0; i < 3; i++ {
		f.next(t)
	}
	require.NoError(t, f.c.SetConcerns(concerns))
	f.next(t)
	require.NoError(t, f.c.SetLivingWith(liveAlone))
	f.next(t)
	require.NoError(t, f.c.SetLivingPreference(stayPreference))
	f.next(t)
	f.next(t)
}

// answerSection answers every question of the current section with fn and stops on its results step
func (f *fixture) answerSection(t *testing.T, fn func(id string) models.Answer) {
	t.Helper()
	loc, err := f.c.Location()
	require.NoError(t, err)
	require.Equal(t, models.KindIntro, loc.Kind)
	f.next(t)

	for {
		v, err := f.c.View()
		require.NoError(t, err)
		if v.Location.Kind != models.KindQuestion {
			require.Equal(t, models.KindResults, v.Location.Kind)
			return
		}
		require.NoError(t, f.c.Answer(v.Question.ID, fn(v.Question.ID)))
		v, err = f.c.View()
		require.NoError(t, err)
		if v.ShowSubQuestion {
			require.NoError(t, f.c.Answer(v.Question.SubQuestion.ID, fn(v.Question.SubQuestion.ID)))
		}
		f.next(t)
	}
}

func allNo(string) models.Answer { return models.No() }

func TestNew_RequiresCollaborators(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)

	_, err = New(nil, Config{Submitter: &recordingSubmitter{}})
	assert.Error(t, err)
	_, err = New(cat, Config{})
	assert.Error(t, err)

	c, err := New(cat, Config{Submitter: &recordingSubmitter{}})
	require.NoError(t, err)
	assert.NotEmpty(t, c.Session().ID)
}

func TestEndToEnd_PartnerOnly(t *testing.T) {
	f := newFixture(t)

	f.completeIntake(t, partnerConcern)
	assert.Equal(t, 37, f.c.Planner().TotalSteps(f.c.session.RelationshipConcerns))

	f.answerSection(t, allNo)
	assert.Equal(t, 35, f.c.session.CurrentStep)
	assert.Equal(t, models.RiskVariable, f.c.session.Results.Partner, "computed on reaching the results step")

	v, err := f.c.View()
	require.NoError(t, err)
	require.Len(t, v.Results, 1)
	require.NotNil(t, v.Results[0].Points)
	assert.Equal(t, 9, *v.Results[0].Points)
	assert.Equal(t, "Variable Risk", v.Results[0].Advice.Title)

	f.next(t)
	loc, err := f.c.Location()
	require.NoError(t, err)
	assert.Equal(t, 36, loc.Step)
	assert.Equal(t, models.KindSummary, loc.Kind)

	require.Equal(t, 1, f.sub.Calls())
	snap := f.sub.snapshots[0]
	require.NotNil(t, snap.CompletedAt)
	assert.Equal(t, fixedNow, *snap.CompletedAt)
	assert.Equal(t, models.RiskVariable, snap.Results.Partner)
	points, ok := snap.Scores.PartnerPoints()
	require.True(t, ok)
	assert.Equal(t, 9, points)
	assert.Equal(t, liveAlone, snap.LivingWith)
	assert.Equal(t, "session-1", snap.ID)

	s := f.c.Session()
	assert.True(t, s.Submitted)
	assert.Equal(t, "sub-1", s.SubmissionID)

	_, err = f.drafts.Load()
	assert.ErrorIs(t, err, draft.ErrNoDraft, "draft cleared after submission")

	assert.False(t, f.c.CanGoNext(), "summary is the last step")
	assert.Equal(t, []string{"sub-1"}, f.log.submissions)
}

func TestSubmit_AtMostOnce(t *testing.T) {
	f := newFixture(t)
	f.completeIntake(t, inLawsConcern)
	f.answerSection(t, allNo)
	f.next(t)
	require.Equal(t, 1, f.sub.Calls())

	id, err := f.c.Submit(context.Background())
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
	assert.Equal(t, "sub-1", id)

	// Re-enter the summary step.
	moved, err := f.c.Back(context.Background())
	require.NoError(t, err)
	require.True(t, moved)
	moved, err = f.c.Next(context.Background())
	require.NoError(t, err)
	require.True(t, moved)

	assert.Equal(t, 1, f.sub.Calls())
}

func TestSubmit_ConcurrentCallsReachSubmitterOnce(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)

	started := make(chan struct{})
	release := make(chan struct{})
	var calls int
	var mu sync.Mutex
	blocking := SubmitterFunc(func(ctx context.Context, _ *models.Session) (string, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		close(started)
		<-release
		return "slow-1", nil
	})

	c, err := New(cat, Config{Submitter: blocking})
	require.NoError(t, err)
	c.session.RelationshipConcerns = []string{"Neighbours"}
	c.session.CurrentStep = models.IntakeStepCount // summary of an empty plan

	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background())
		done <- err
	}()

	<-started
	_, err = c.Submit(context.Background())
	assert.ErrorIs(t, err, ErrAlreadySubmitted)

	close(release)
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
	assert.True(t, c.Session().Submitted)
}

func TestSubmit_FailureAllowsRetry(t *testing.T) {
	f := newFixture(t)
	f.sub.err = errors.New("connection refused")

	f.completeIntake(t, inLawsConcern)
	f.answerSection(t, allNo)

	moved, err := f.c.Next(context.Background())
	assert.True(t, moved, "the step still advances")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	s := f.c.Session()
	assert.False(t, s.Submitted)
	assert.Nil(t, s.CompletedAt)

	saved, err := f.drafts.Load()
	require.NoError(t, err, "draft kept after a failed submission")
	assert.Equal(t, s.CurrentStep, saved.CurrentStep)

	f.sub.err = nil
	id, err := f.c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sub-1", id)
	assert.Equal(t, 2, f.sub.Calls())
	assert.True(t, f.c.Session().Submitted)
	assert.Equal(t, []string{"error", "sub-1"}, f.log.submissions)
}

func TestSubmit_OnlyFromSummary(t *testing.T) {
	f := newFixture(t)
	_, err := f.c.Submit(context.Background())
	assert.ErrorIs(t, err, ErrNotAtSummary)
	assert.Zero(t, f.sub.Calls())
}

func TestNext_RefusedByGating(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		f.next(t)
	}

	moved, err := f.c.Next(context.Background())
	require.NoError(t, err)
	assert.False(t, moved)
	assert.Equal(t, 3, f.c.session.CurrentStep)

	require.NoError(t, f.c.SetConcerns([]string{partnerConcern}))
	f.next(t)
	assert.Equal(t, 4, f.c.session.CurrentStep)
}

func TestLivingPreference_ChangeNeedsDescription(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		f.next(t)
	}
	require.NoError(t, f.c.SetConcerns([]string{partnerConcern}))
	f.next(t)
	require.NoError(t, f.c.SetLivingWith(liveAlone))
	f.next(t)

	assert.ErrorIs(t, f.c.SetChangeDescription("too early"), ErrInvalidAnswer)

	require.NoError(t, f.c.SetLivingPreference(movePreference))
	assert.False(t, f.c.CanGoNext())

	require.NoError(t, f.c.SetChangeDescription("  Move in with my mother  "))
	assert.True(t, f.c.CanGoNext())
	assert.Equal(t, "Move in with my mother", f.c.session.LivingChangeDesc)

	require.NoError(t, f.c.SetLivingPreference(stayPreference))
	assert.Empty(t, f.c.session.LivingChangeDesc)
	assert.True(t, f.c.CanGoNext())
}

func TestIntakeSetters_Validation(t *testing.T) {
	f := newFixture(t)

	assert.ErrorIs(t, f.c.SetConcerns([]string{partnerConcern}), ErrInvalidAnswer, "wrong step")

	for i := 0; i < 3; i++ {
		f.next(t)
	}
	assert.ErrorIs(t, f.c.SetConcerns([]string{"Neighbours"}), ErrInvalidAnswer)
	require.NoError(t, f.c.SetConcerns([]string{partnerConcern, partnerConcern, inLawsConcern}))
	assert.Equal(t, []string{partnerConcern, inLawsConcern}, f.c.session.RelationshipConcerns)

	f.next(t)
	assert.ErrorIs(t, f.c.SetLivingWith("On a boat"), ErrInvalidAnswer)
	assert.Empty(t, f.c.session.LivingWith)
	assert.ErrorIs(t, f.c.SetLivingPreference(stayPreference), ErrInvalidAnswer, "wrong step")
}

func TestAnswer_Validation(t *testing.T) {
	f := newFixture(t)
	f.completeIntake(t, partnerConcern)

	assert.ErrorIs(t, f.c.Answer("1", models.Yes()), ErrInvalidAnswer, "intro step")
	f.next(t)

	assert.ErrorIs(t, f.c.Answer("2", models.Yes()), ErrInvalidAnswer, "not the current question")
	assert.ErrorIs(t, f.c.Answer("1", models.TextAnswer("yes")), ErrInvalidAnswer, "wrong shape")
	require.NoError(t, f.c.Answer("1", models.Yes()))

	// Question 11 is at step 18; its sub-question only follows a yes.
	for f.c.session.CurrentStep < 18 {
		v, err := f.c.View()
		require.NoError(t, err)
		require.NoError(t, f.c.Answer(v.Question.ID, models.No()))
		if v2, _ := f.c.View(); v2.ShowSubQuestion {
			require.NoError(t, f.c.Answer(v2.Question.SubQuestion.ID, models.No()))
		}
		f.next(t)
	}
	require.NoError(t, f.c.Answer("11", models.No()))
	assert.ErrorIs(t, f.c.Answer("11a", models.Yes()), ErrInvalidAnswer)
	require.NoError(t, f.c.Answer("11", models.Yes()))
	assert.False(t, f.c.CanGoNext())
	require.NoError(t, f.c.Answer("11a", models.Yes()))
	assert.True(t, f.c.CanGoNext())
}

func TestAnswer_InvalidatesResult(t *testing.T) {
	f := newFixture(t)
	f.completeIntake(t, partnerConcern)
	f.answerSection(t, allNo)
	require.Equal(t, models.RiskVariable, f.c.session.Results.Partner)

	moved, err := f.c.Back(context.Background())
	require.NoError(t, err)
	require.True(t, moved)

	require.NoError(t, f.c.Answer("27", models.Yes()))
	_, ok := f.c.session.Results.Get(models.SectionPartner)
	assert.False(t, ok, "result cleared by a new answer")
	assert.False(t, f.c.session.Scores.Has(models.SectionPartner))

	// Jump back to question 3 and raise the score.
	moved, err = f.c.JumpTo(context.Background(), 10)
	require.NoError(t, err)
	require.True(t, moved)
	require.NoError(t, f.c.Answer("3", models.Yes()))
	for f.c.session.CurrentStep < 35 {
		f.next(t)
	}

	assert.Equal(t, models.RiskVariable, f.c.session.Results.Partner)
	points, _ := f.c.session.Scores.PartnerPoints()
	assert.Equal(t, 12, points)
}

func TestSetConcerns_DropsInactiveResults(t *testing.T) {
	f := newFixture(t)
	f.completeIntake(t, partnerConcern, inLawsConcern)
	f.answerSection(t, allNo)
	f.next(t)
	f.answerSection(t, allNo)
	require.Equal(t, models.RiskSome, f.c.session.Results.InLaws)

	moved, err := f.c.JumpTo(context.Background(), 3)
	require.NoError(t, err)
	require.True(t, moved)
	require.NoError(t, f.c.SetConcerns([]string{partnerConcern}))

	assert.Equal(t, models.RiskVariable, f.c.session.Results.Partner)
	_, ok := f.c.session.Results.Get(models.SectionInLaws)
	assert.False(t, ok)
}

func TestJumpTo(t *testing.T) {
	f := newFixture(t)
	f.completeIntake(t, partnerConcern)

	moved, err := f.c.JumpTo(context.Background(), 20)
	require.NoError(t, err)
	assert.False(t, moved, "forward jumps are refused")

	moved, err = f.c.JumpTo(context.Background(), -1)
	require.NoError(t, err)
	assert.False(t, moved)

	moved, err = f.c.JumpTo(context.Background(), 4)
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, 4, f.c.session.CurrentStep)
}

func TestBack(t *testing.T) {
	f := newFixture(t)

	moved, err := f.c.Back(context.Background())
	require.NoError(t, err)
	assert.False(t, moved)

	f.next(t)
	moved, err = f.c.Back(context.Background())
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Zero(t, f.c.session.CurrentStep)
}

func TestDraftSavedAfterEveryMutation(t *testing.T) {
	f := newFixture(t)
	f.completeIntake(t, partnerConcern)
	f.next(t)
	require.NoError(t, f.c.Answer("1", models.Yes()))

	saved, err := f.drafts.Load()
	require.NoError(t, err)
	assert.Equal(t, f.c.Session(), saved)
}

func TestResume(t *testing.T) {
	f := newFixture(t)
	f.completeIntake(t, partnerConcern)
	f.next(t)
	require.NoError(t, f.c.Answer("1", models.Yes()))
	want := f.c.Session()

	cat, err := catalog.Default()
	require.NoError(t, err)
	other, err := New(cat, Config{Drafts: f.drafts, Submitter: f.sub})
	require.NoError(t, err)

	resumed, err := other.Resume()
	require.NoError(t, err)
	assert.True(t, resumed)
	assert.Equal(t, want, other.Session())
}

func TestResume_NoDraft(t *testing.T) {
	f := newFixture(t)
	resumed, err := f.c.Resume()
	require.NoError(t, err)
	assert.False(t, resumed)
}

func TestResume_DraftOutsidePlan(t *testing.T) {
	f := newFixture(t)
	s := models.NewSession("old", fixedNow)
	s.RelationshipConcerns = []string{partnerConcern}
	s.CurrentStep = 99
	require.NoError(t, f.drafts.Save(s))

	_, err := f.c.Resume()
	assert.ErrorIs(t, err, ErrPlanDrift)
	assert.Equal(t, "session-1", f.c.Session().ID, "session unchanged")
}

func TestLocation_PlanDriftIsNotClamped(t *testing.T) {
	f := newFixture(t)
	f.c.session.CurrentStep = 50

	_, err := f.c.Location()
	assert.ErrorIs(t, err, ErrPlanDrift)

	moved, err := f.c.Next(context.Background())
	assert.False(t, moved)
	assert.ErrorIs(t, err, ErrPlanDrift)
	assert.Equal(t, 50, f.c.session.CurrentStep)
}

func TestSummaryWithNoActiveSections(t *testing.T) {
	f := newFixture(t)
	s := models.NewSession("legacy", fixedNow)
	s.RelationshipConcerns = []string{"A concern no longer offered"}
	s.CurrentStep = int(models.IntakeWarningSigns)
	require.NoError(t, f.drafts.Save(s))

	resumed, err := f.c.Resume()
	require.NoError(t, err)
	require.True(t, resumed)

	f.next(t)
	v, err := f.c.View()
	require.NoError(t, err)
	assert.Equal(t, models.KindSummary, v.Location.Kind)
	assert.Empty(t, v.Results)
	assert.Equal(t, 8, v.Total)
	assert.Equal(t, 1, f.sub.Calls())
}

func TestView_Question(t *testing.T) {
	f := newFixture(t)
	f.completeIntake(t, partnerConcern)

	v, err := f.c.View()
	require.NoError(t, err)
	assert.Equal(t, models.KindIntro, v.Location.Kind)
	require.NotNil(t, v.Section)
	assert.Equal(t, models.SectionPartner, v.Section.Section)
	assert.Equal(t, 8, v.Step)
	assert.Equal(t, 37, v.Total)
	assert.True(t, v.CanNext)
	assert.True(t, v.CanBack)

	for f.c.session.CurrentStep < 13 {
		cur, err := f.c.View()
		require.NoError(t, err)
		if cur.Question != nil {
			require.NoError(t, f.c.Answer(cur.Question.ID, models.No()))
		}
		f.next(t)
	}

	v, err = f.c.View()
	require.NoError(t, err)
	require.NotNil(t, v.Question)
	assert.Equal(t, "6", v.Question.ID)
	assert.Nil(t, v.Answer)
	assert.False(t, v.ShowSubQuestion)
	assert.False(t, v.CanNext)
	assert.Len(t, v.Missing, 1)

	require.NoError(t, f.c.Answer("6", models.Yes()))
	v, err = f.c.View()
	require.NoError(t, err)
	require.NotNil(t, v.Answer)
	assert.True(t, v.Answer.IsTrue())
	assert.True(t, v.ShowSubQuestion)
	assert.Nil(t, v.SubAnswer)
	assert.False(t, v.CanNext)
}

func TestView_Intake(t *testing.T) {
	f := newFixture(t)

	v, err := f.c.View()
	require.NoError(t, err)
	require.NotNil(t, v.Intake)
	assert.Equal(t, "welcome", v.Intake.Key)
	assert.False(t, v.CanBack)
	assert.True(t, v.CanNext)
	assert.Equal(t, 1, v.Step)
	assert.Equal(t, 8, v.Total)
}

func TestLoggerSeesStepsAndResults(t *testing.T) {
	f := newFixture(t)
	f.completeIntake(t, inLawsConcern)
	f.answerSection(t, allNo)

	require.NotEmpty(t, f.log.steps)
	last := f.log.steps[len(f.log.steps)-1]
	assert.Equal(t, models.KindResults, last.Kind)
	assert.Equal(t, models.RiskSome, f.log.results[models.SectionInLaws].Level)
}
