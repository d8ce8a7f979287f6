// Package catalog provides the static BSHAPE question catalog and risk guidance.
//
// Both documents are embedded in the binary: questions.yaml holds the intake
// content, the three question sections, and the clinical scoring weights;
// guidance.md holds the per-level advice shown with results. Sections are
// never mutated after loading.
package catalog

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/harrison/bshape/internal/models"
)

//go:embed questions.yaml
var questionsYAML []byte

//go:embed guidance.md
var guidanceMarkdown []byte

// IntakePage is the content of one fixed intake step.
type IntakePage struct {
	Step  models.IntakeStep
	Key   string
	Title string
	Body  string
}

// ConcernOption is a selectable relationship concern and the sections it activates.
type ConcernOption struct {
	Label     string
	Activates []models.Section
}

// PreferenceOption is a living-preference choice.
type PreferenceOption struct {
	Label               string
	RequiresDescription bool   // a free-text description must accompany this choice
	DescriptionPrompt   string // prompt shown for the description
}

// SectionDef is an ordered list of questions for one relationship category.
type SectionDef struct {
	Section   models.Section
	Title     string
	Intro     string
	Questions []models.Question
}

// Len returns the number of questions in the section.
func (s *SectionDef) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Questions)
}

// Catalog is the full static content of the questionnaire.
type Catalog struct {
	Intake            []IntakePage
	Concerns          []ConcernOption
	LivingWith        []string
	LivingPreferences []PreferenceOption
	Guidance          Guidance
	sections          map[models.Section]*SectionDef
}

type yamlCatalog struct {
	Version          int              `yaml:"version"`
	Intake           []yamlIntake     `yaml:"intake"`
	Concerns         []yamlConcern    `yaml:"concerns"`
	LivingWith       []string         `yaml:"living_with"`
	LivingPreference []yamlPreference `yaml:"living_preference"`
	Sections         []yamlSection    `yaml:"sections"`
}

type yamlIntake struct {
	Key   string `yaml:"key"`
	Title string `yaml:"title"`
	Body  string `yaml:"body"`
}

type yamlConcern struct {
	Label     string   `yaml:"label"`
	Activates []string `yaml:"activates"`
}

type yamlPreference struct {
	Label               string `yaml:"label"`
	RequiresDescription bool   `yaml:"requires_description"`
	DescriptionPrompt   string `yaml:"description_prompt"`
}

type yamlSection struct {
	Key       string         `yaml:"key"`
	Title     string         `yaml:"title"`
	Intro     string         `yaml:"intro"`
	Questions []yamlQuestion `yaml:"questions"`
}

type yamlQuestion struct {
	ID          string        `yaml:"id"`
	Text        string        `yaml:"text"`
	Type        string        `yaml:"type"`
	Options     []string      `yaml:"options"`
	Weight      models.Weight `yaml:"weight"`
	Critical    bool          `yaml:"critical"`
	Condition   string        `yaml:"condition"`
	SubQuestion *yamlQuestion `yaml:"sub_question"`
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// Default returns the catalog embedded in the binary.
// The result is parsed once and shared; callers must treat it as read-only.
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = Load(questionsYAML, guidanceMarkdown)
	})
	return defaultCatalog, defaultErr
}

// Load parses and validates a questions document and a guidance document.
func Load(questions, guidance []byte) (*Catalog, error) {
	var raw yamlCatalog
	if err := yaml.Unmarshal(questions, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse question catalog: %w", err)
	}

	cat := &Catalog{
		LivingWith: raw.LivingWith,
		sections:   make(map[models.Section]*SectionDef),
	}

	if err := cat.loadIntake(raw.Intake); err != nil {
		return nil, err
	}
	if err := cat.loadConcerns(raw.Concerns); err != nil {
		return nil, err
	}
	if len(cat.LivingWith) == 0 {
		return nil, fmt.Errorf("catalog: living_with options are required")
	}
	for _, p := range raw.LivingPreference {
		if p.Label == "" {
			return nil, fmt.Errorf("catalog: living preference label is required")
		}
		cat.LivingPreferences = append(cat.LivingPreferences, PreferenceOption(p))
	}
	if len(cat.LivingPreferences) == 0 {
		return nil, fmt.Errorf("catalog: living_preference options are required")
	}

	for _, rs := range raw.Sections {
		def, err := buildSection(rs)
		if err != nil {
			return nil, err
		}
		if _, dup := cat.sections[def.Section]; dup {
			return nil, fmt.Errorf("catalog: section %s defined twice", def.Section)
		}
		cat.sections[def.Section] = def
	}
	for _, sec := range models.SectionOrder {
		if cat.sections[sec].Len() == 0 {
			return nil, fmt.Errorf("catalog: section %s has no questions", sec)
		}
	}

	g, err := ParseGuidance(guidance)
	if err != nil {
		return nil, fmt.Errorf("failed to parse risk guidance: %w", err)
	}
	cat.Guidance = g

	return cat, nil
}

func (c *Catalog) loadIntake(pages []yamlIntake) error {
	if len(pages) != models.IntakeStepCount {
		return fmt.Errorf("catalog: expected %d intake pages, got %d", models.IntakeStepCount, len(pages))
	}
	for i, p := range pages {
		step := models.IntakeStep(i)
		if p.Key != step.String() {
			return fmt.Errorf("catalog: intake page %d must be %q, got %q", i, step, p.Key)
		}
		c.Intake = append(c.Intake, IntakePage{
			Step:  step,
			Key:   p.Key,
			Title: p.Title,
			Body:  strings.TrimSpace(p.Body),
		})
	}
	return nil
}

func (c *Catalog) loadConcerns(concerns []yamlConcern) error {
	if len(concerns) == 0 {
		return fmt.Errorf("catalog: relationship concerns are required")
	}
	for _, rc := range concerns {
		opt := ConcernOption{Label: rc.Label}
		for _, key := range rc.Activates {
			sec, err := models.ParseSection(key)
			if err != nil {
				return fmt.Errorf("catalog: concern %q: %w", rc.Label, err)
			}
			opt.Activates = append(opt.Activates, sec)
		}
		c.Concerns = append(c.Concerns, opt)
	}
	return nil
}

func buildSection(rs yamlSection) (*SectionDef, error) {
	sec, err := models.ParseSection(rs.Key)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}

	def := &SectionDef{
		Section: sec,
		Title:   rs.Title,
		Intro:   strings.TrimSpace(rs.Intro),
	}

	seen := make(map[string]bool)
	for _, rq := range rs.Questions {
		q := convertQuestion(rq)
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("catalog: section %s: %w", sec, err)
		}
		ids := []string{q.ID}
		if q.SubQuestion != nil {
			ids = append(ids, q.SubQuestion.ID)
		}
		for _, id := range ids {
			if seen[id] {
				return nil, fmt.Errorf("catalog: section %s: duplicate question id %q", sec, id)
			}
			seen[id] = true
		}
		def.Questions = append(def.Questions, q)
	}

	return def, nil
}

func convertQuestion(rq yamlQuestion) models.Question {
	q := models.Question{
		ID:       rq.ID,
		Text:     rq.Text,
		Type:     models.AnswerType(rq.Type),
		Options:  rq.Options,
		Weight:   rq.Weight,
		Critical: rq.Critical,
	}
	if rq.SubQuestion != nil {
		q.SubQuestion = &models.SubQuestion{
			Question:  convertQuestion(*rq.SubQuestion),
			Condition: models.Condition(rq.SubQuestion.Condition),
		}
	}
	return q
}

// Section returns the definition of a section, or nil if it is unknown.
func (c *Catalog) Section(s models.Section) *SectionDef {
	return c.sections[s]
}

// Questions returns the ordered questions of a section.
func (c *Catalog) Questions(s models.Section) []models.Question {
	if def := c.sections[s]; def != nil {
		return def.Questions
	}
	return nil
}

// IntakePage returns the content of an intake step.
func (c *Catalog) IntakePage(step models.IntakeStep) (IntakePage, bool) {
	if int(step) < 0 || int(step) >= len(c.Intake) {
		return IntakePage{}, false
	}
	return c.Intake[step], true
}

// ActivatedSections returns the set of sections implied by the selected concerns.
// Labels that are not catalog options activate nothing.
func (c *Catalog) ActivatedSections(concerns []string) map[models.Section]bool {
	active := make(map[models.Section]bool)
	for _, label := range concerns {
		for _, opt := range c.Concerns {
			if opt.Label != label {
				continue
			}
			for _, sec := range opt.Activates {
				active[sec] = true
			}
		}
	}
	return active
}

// IsConcern reports whether label is one of the relationship-concern options.
func (c *Catalog) IsConcern(label string) bool {
	for _, opt := range c.Concerns {
		if opt.Label == label {
			return true
		}
	}
	return false
}

// IsLivingWith reports whether label is one of the living-with options.
func (c *Catalog) IsLivingWith(label string) bool {
	for _, opt := range c.LivingWith {
		if opt == label {
			return true
		}
	}
	return false
}

// Preference returns the living-preference option with the given label.
func (c *Catalog) Preference(label string) (PreferenceOption, bool) {
	for _, opt := range c.LivingPreferences {
		if opt.Label == label {
			return opt, true
		}
	}
	return PreferenceOption{}, false
}
