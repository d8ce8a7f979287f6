package render

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/harrison/bshape/internal/assessment"
	"github.com/harrison/bshape/internal/models"
)

// Run drives an assessment from line-oriented input until the user quits or
// input ends. Every accepted answer is saved by the controller, so quitting
// keeps the draft.
func Run(ctx context.Context, ctrl *assessment.Controller, in io.Reader, term *Terminal) error {
	scanner := bufio.NewScanner(in)
	redraw := true

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		v, err := ctrl.View()
		if err != nil {
			return err
		}
		if redraw {
			term.Step(v)
		}
		term.printf("> ")

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}
			term.printf("\n")
			farewell(term, ctrl)
			return nil
		}

		quit, moved, err := handleInput(ctx, ctrl, term, v, strings.TrimSpace(scanner.Text()))
		if err != nil {
			if errors.Is(err, assessment.ErrPlanDrift) {
				return err
			}
			term.Error(err.Error())
		}
		if quit {
			farewell(term, ctrl)
			return nil
		}
		redraw = moved
	}
}

func farewell(term *Terminal, ctrl *assessment.Controller) {
	if ctrl.Session().Submitted {
		term.Message("Thank you for completing BSHAPE.")
		return
	}
	term.Message("Your progress is saved. Run bshape start to continue.")
}

// handleInput applies one line of input. It reports whether to quit and
// whether the view changed enough to redraw.
func handleInput(ctx context.Context, ctrl *assessment.Controller, term *Terminal, v assessment.StepView, line string) (bool, bool, error) {
	switch strings.ToLower(line) {
	case "q", "quit", "exit":
		return true, false, nil
	case "", ">", "next":
		if v.Location.Kind == models.KindSummary {
			return false, false, nil
		}
		moved, err := advance(ctx, ctrl, term, v)
		return false, moved, err
	case "<", "b", "back":
		moved, err := ctrl.Back(ctx)
		return false, moved, err
	case "?", "h", "help":
		return false, true, nil
	}

	switch v.Location.Kind {
	case models.KindIntake:
		err := intakeInput(ctrl, term, v, line)
		return false, err == nil, err
	case models.KindQuestion:
		changed, err := questionInput(ctrl, v, line)
		if err != nil || !changed {
			return false, false, err
		}
		// A completed step moves on by itself
		if ctrl.CanGoNext() {
			_, err := advance(ctx, ctrl, term, v)
			return false, true, err
		}
		return false, true, nil
	case models.KindSummary:
		if strings.EqualFold(line, "r") {
			_, err := ctrl.Submit(ctx)
			if errors.Is(err, assessment.ErrAlreadySubmitted) {
				return false, true, nil
			}
			return false, true, err
		}
	}
	return false, false, fmt.Errorf("unrecognized input %q", line)
}

func advance(ctx context.Context, ctrl *assessment.Controller, term *Terminal, v assessment.StepView) (bool, error) {
	moved, err := ctrl.Next(ctx)
	if !moved && err == nil {
		term.Refused(v.Missing)
	}
	return moved, err
}

func intakeInput(ctrl *assessment.Controller, term *Terminal, v assessment.StepView, line string) error {
	if v.Intake == nil {
		return fmt.Errorf("unrecognized input %q", line)
	}

	switch v.Intake.Step {
	case models.IntakeRelationshipConcerns:
		picks, err := parseChoices(line, len(term.cat.Concerns))
		if err != nil {
			return err
		}
		labels := make([]string, 0, len(picks))
		for _, i := range picks {
			labels = append(labels, term.cat.Concerns[i].Label)
		}
		return ctrl.SetConcerns(labels)

	case models.IntakeLivingWith:
		picks, err := parseChoices(line, len(term.cat.LivingWith))
		if err != nil {
			return err
		}
		if len(picks) != 1 {
			return fmt.Errorf("choose exactly one option")
		}
		return ctrl.SetLivingWith(term.cat.LivingWith[picks[0]])

	case models.IntakeLivingPreference:
		if picks, err := parseChoices(line, len(term.cat.LivingPreferences)); err == nil {
			if len(picks) != 1 {
				return fmt.Errorf("choose exactly one option")
			}
			return ctrl.SetLivingPreference(term.cat.LivingPreferences[picks[0]].Label)
		}
		if pref, ok := term.cat.Preference(v.LivingPreference); ok && pref.RequiresDescription {
			return ctrl.SetChangeDescription(line)
		}
	}
	return fmt.Errorf("unrecognized input %q", line)
}

// questionInput answers the main question or its follow-up and reports whether anything changed.
func questionInput(ctrl *assessment.Controller, v assessment.StepView, line string) (bool, error) {
	if v.Question == nil {
		return false, fmt.Errorf("unrecognized input %q", line)
	}

	fields := strings.Fields(strings.ToLower(line))
	target := v.Question.ID
	switch {
	case len(fields) == 2 && fields[0] == "sub":
		if !v.ShowSubQuestion {
			return false, fmt.Errorf("question %s has no follow-up right now", v.Question.ID)
		}
		target = v.Question.SubQuestion.ID
		fields = fields[1:]
	case len(fields) == 2 && fields[0] == "main":
		fields = fields[1:]
	case len(fields) == 1 && v.Answer != nil && v.ShowSubQuestion && v.SubAnswer == nil:
		target = v.Question.SubQuestion.ID
	}
	if len(fields) != 1 {
		return false, fmt.Errorf("unrecognized input %q", line)
	}

	answer, ok := parseYesNo(fields[0])
	if !ok {
		return false, fmt.Errorf("answer y or n")
	}
	if err := ctrl.Answer(target, answer); err != nil {
		return false, err
	}
	return true, nil
}

func parseYesNo(s string) (models.Answer, bool) {
	switch s {
	case "y", "yes":
		return models.Yes(), true
	case "n", "no":
		return models.No(), true
	}
	return models.Answer{}, false
}

// parseChoices turns "1, 3" into zero-based indexes, rejecting anything out of range.
func parseChoices(line string, n int) ([]int, error) {
	var picks []int
	seen := make(map[int]bool)
	for _, part := range strings.Split(line, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		i, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("%q is not an option number", part)
		}
		if i < 1 || i > n {
			return nil, fmt.Errorf("option %d is out of range 1-%d", i, n)
		}
		if !seen[i] {
			seen[i] = true
			picks = append(picks, i-1)
		}
	}
	if len(picks) == 0 {
		return nil, fmt.Errorf("enter at least one option number")
	}
	return picks, nil
}
