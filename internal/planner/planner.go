// Package planner maps a flat step counter onto the questionnaire layout.
//
// The layout is: the fixed intake steps, then for every active section (in
// partner, in-laws, family order) one intro step, one step per question and one
// results step, then a single final summary step. Every exported query is
// answered from the same layout value built by layout(), so the total step
// count and the step-to-location mapping cannot disagree.
package planner

import (
	"errors"
	"fmt"

	"github.com/harrison/bshape/internal/catalog"
	"github.com/harrison/bshape/internal/models"
)

// ErrStepOutOfRange is returned by Locate for a step outside [0, TotalSteps).
var ErrStepOutOfRange = errors.New("step out of range")

// Span is the block of steps occupied by one active section.
type Span struct {
	Section       models.Section
	Intro         int // step of the intro page
	FirstQuestion int // step of the first question
	Questions     int // number of question steps
	Results       int // step of the results page
}

// End returns the first step after the section.
func (s Span) End() int {
	return s.Results + 1
}

// Contains reports whether step falls inside the section's block.
func (s Span) Contains(step int) bool {
	return step >= s.Intro && step <= s.Results
}

// Layout is the full step plan for one concern selection.
type Layout struct {
	Spans   []Span
	Summary int // step of the final summary, always the last step
}

// Total returns the number of steps in the layout.
func (l Layout) Total() int {
	return l.Summary + 1
}

// Planner answers step questions against a catalog.
type Planner struct {
	cat *catalog.Catalog
}

// New creates a planner for the given catalog.
func New(cat *catalog.Catalog) *Planner {
	return &Planner{cat: cat}
}

// layout is the single place the step offsets are computed.
func (p *Planner) layout(concerns []string) Layout {
	var l Layout
	next := models.IntakeStepCount
	for _, sec := range p.ActiveSections(concerns) {
		n := p.cat.Section(sec).Len()
		span := Span{
			Section:       sec,
			Intro:         next,
			FirstQuestion: next + 1,
			Questions:     n,
			Results:       next + 1 + n,
		}
		l.Spans = append(l.Spans, span)
		next = span.End()
	}
	l.Summary = next
	return l
}

// Layout returns the step plan for a concern selection.
func (p *Planner) Layout(concerns []string) Layout {
	return p.layout(concerns)
}

// ActiveSections returns the sections implied by the concerns in presentation order.
// Nil or empty concerns activate nothing.
func (p *Planner) ActiveSections(concerns []string) []models.Section {
	active := p.cat.ActivatedSections(concerns)
	out := make([]models.Section, 0, len(active))
	for _, sec := range models.SectionOrder {
		if active[sec] {
			out = append(out, sec)
		}
	}
	return out
}

// TotalSteps returns the number of steps for a concern selection.
func (p *Planner) TotalSteps(concerns []string) int {
	return p.layout(concerns).Total()
}

// Locate maps a step index to its semantic location.
func (p *Planner) Locate(step int, concerns []string) (models.Location, error) {
	l := p.layout(concerns)
	return locateIn(l, step)
}

func locateIn(l Layout, step int) (models.Location, error) {
	if step < 0 || step >= l.Total() {
		return models.Location{}, fmt.Errorf("%w: step %d, plan has %d steps", ErrStepOutOfRange, step, l.Total())
	}

	loc := models.Location{Step: step}
	switch {
	case step < models.IntakeStepCount:
		loc.Kind = models.KindIntake
		loc.Intake = models.IntakeStep(step)
		return loc, nil
	case step == l.Summary:
		loc.Kind = models.KindSummary
		return loc, nil
	}

	for _, span := range l.Spans {
		if !span.Contains(step) {
			continue
		}
		loc.Section = span.Section
		switch step {
		case span.Intro:
			loc.Kind = models.KindIntro
		case span.Results:
			loc.Kind = models.KindResults
		default:
			loc.Kind = models.KindQuestion
			loc.Index = step - span.FirstQuestion
		}
		return loc, nil
	}

	// Unreachable while spans tile [IntakeStepCount, Summary) without gaps.
	return models.Location{}, fmt.Errorf("%w: step %d falls between sections", ErrStepOutOfRange, step)
}

// SectionKeyOf returns the section of a question step, or SectionNone for
// intake, intro, results, summary and out-of-range steps.
func (p *Planner) SectionKeyOf(step int, concerns []string) models.Section {
	loc, err := p.Locate(step, concerns)
	if err != nil || loc.Kind != models.KindQuestion {
		return models.SectionNone
	}
	return loc.Section
}

// SectionRange returns the span of an active section.
func (p *Planner) SectionRange(sec models.Section, concerns []string) (Span, bool) {
	for _, span := range p.layout(concerns).Spans {
		if span.Section == sec {
			return span, true
		}
	}
	return Span{}, false
}

// Question returns the catalog question at a location, if the location is a question step.
func (p *Planner) Question(loc models.Location) (*models.Question, bool) {
	if loc.Kind != models.KindQuestion {
		return nil, false
	}
	questions := p.cat.Questions(loc.Section)
	if loc.Index < 0 || loc.Index >= len(questions) {
		return nil, false
	}
	return &questions[loc.Index], true
}

// Catalog returns the catalog the planner was built with.
func (p *Planner) Catalog() *catalog.Catalog {
	return p.cat
}
