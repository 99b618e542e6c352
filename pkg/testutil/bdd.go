package testutil

import "testing"

// Scenario steps. Each step is a subtest whose name starts with its keyword,
// so `go test -run 'TestPolicyLifecycle/When'` selects a single phase.
const (
	givenStep = "Given"
	whenStep  = "When"
	thenStep  = "Then"
)

func step(t *testing.T, keyword, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return t.Run(keyword+" "+desc, fn)
}

// Given sets up scenario state.
func Given(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return step(t, givenStep, desc, fn)
}

// When performs the action under test.
func When(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return step(t, whenStep, desc, fn)
}

// Then checks the outcome. It is skipped when an earlier step of the same
// scenario failed, since its assertions would only repeat that failure.
func Then(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	if t.Failed() {
		t.Run(thenStep+" "+desc, func(t *testing.T) { t.Skip("earlier step failed") })
		return false
	}
	return step(t, thenStep, desc, fn)
}
