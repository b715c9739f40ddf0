package bookingflow

// Step is one stop in the booking sequence.
type Step string

const (
	StepCategory     Step = "category"
	StepService      Step = "service"
	StepVariation    Step = "variation"
	StepStaff        Step = "staff"
	StepAddons       Step = "addons"
	StepDateTime     Step = "datetime"
	StepClient       Step = "client"
	StepConsent      Step = "consent"
	StepSummary      Step = "summary"
	StepConfirmation Step = "confirmation"
)

// stepContext carries the only facts the sequence depends on: whether the
// chosen service has a single variation (bypassing the variation step) and
// whether add-ons apply to it (inserting the add-ons step).
type stepContext struct {
	singleVariation bool
	hasAddons       bool
}

// stepsFor returns the ordered step list for the given context. The list
// is recomputed on every navigation, so skipping forward past a step also
// skips backward past it.
func stepsFor(c stepContext) []Step {
	steps := make([]Step, 0, 9)
	steps = append(steps, StepCategory, StepService)
	if !c.singleVariation {
		steps = append(steps, StepVariation)
	}
	steps = append(steps, StepStaff)
	if c.hasAddons {
		steps = append(steps, StepAddons)
	}
	steps = append(steps, StepDateTime, StepClient, StepConsent, StepSummary)
	return steps
}

// nextStep returns the step after current in the recomputed sequence.
func nextStep(current Step, c stepContext) (Step, bool) {
	steps := stepsFor(c)
	for i, s := range steps {
		if s == current && i+1 < len(steps) {
			return steps[i+1], true
		}
	}
	return current, false
}

// prevStep returns the step before current in the recomputed sequence.
func prevStep(current Step, c stepContext) (Step, bool) {
	steps := stepsFor(c)
	for i, s := range steps {
		if s == current && i > 0 {
			return steps[i-1], true
		}
	}
	return current, false
}
