package entrance

import (
	"fmt"
	"net/url"
	"strconv"
)

// StepState is the visual state of a step relative to the current one.
type StepState string

const (
	StateDone    StepState = "done"
	StateActive  StepState = "active"
	StatePending StepState = "pending"
)

type StepView struct {
	Step
	Number  int       `json:"number"`
	Ordinal string    `json:"ordinal"` // zero-padded, e.g. "01"
	State   StepState `json:"state"`
	CTA     *Link     `json:"cta,omitempty"` // only set on the active step
}

// Stepper is everything a view needs to render the procedure of one branch/flow.
type Stepper struct {
	Branch      BranchType `json:"brchType"`
	Flow        FlowType   `json:"flowType"`
	Token       string     `json:"token,omitempty"`
	CourseLabel string     `json:"course_label"`
	Current     int        `json:"current"` // 0 when there are no steps
	Steps       []StepView `json:"steps"`
	PrevURL     string     `json:"prev_url,omitempty"`
	NextURL     string     `json:"next_url,omitempty"`
}

// NewStepper builds the stepper for a branch/flow with `current` clamped into
// [1, number of steps]. Unknown branches yield an empty stepper without links.
func NewStepper(branch BranchType, flow FlowType, current int, token string) Stepper {
	steps := MakeSteps(branch, flow)
	st := Stepper{
		Branch:      branch,
		Flow:        flow,
		Token:       token,
		CourseLabel: CourseLabel(branch, flow),
		Steps:       make([]StepView, 0, len(steps)),
	}
	if len(steps) == 0 {
		return st
	}

	st.Current = clamp(current, 1, len(steps))
	for idx, s := range steps {
		num := idx + 1
		view := StepView{
			Step:    s,
			Number:  num,
			Ordinal: fmt.Sprintf("%02d", num),
		}
		switch {
		case num < st.Current:
			view.State = StateDone
		case num == st.Current:
			view.State = StateActive
			if link, ok := StepCTA(s.Key, branch, token); ok {
				view.CTA = &link
			}
		default:
			view.State = StatePending
		}
		st.Steps = append(st.Steps, view)
	}

	st.PrevURL = StepURL(branch, flow, clamp(st.Current-1, 1, len(steps)), token)
	st.NextURL = StepURL(branch, flow, clamp(st.Current+1, 1, len(steps)), token)
	return st
}

// Empty reports whether there is nothing to render.
func (st Stepper) Empty() bool {
	return len(st.Steps) == 0
}

// HasPrev reports whether the prev link moves away from the current step.
func (st Stepper) HasPrev() bool { return !st.Empty() && st.Current > 1 }

// HasNext reports whether the next link moves away from the current step.
func (st Stepper) HasNext() bool { return !st.Empty() && st.Current < len(st.Steps) }

// StepURL links to the stepper page for a given step; the household token is only added when known.
func StepURL(branch BranchType, flow FlowType, step int, token string) string {
	v := url.Values{}
	v.Set("brchType", string(branch))
	v.Set("flowType", string(flow))
	v.Set("step", strconv.Itoa(step))
	if token != "" {
		v.Set("id", token)
	}
	return "/entrance/step?" + v.Encode()
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
