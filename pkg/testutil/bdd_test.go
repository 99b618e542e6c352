package testutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScenarioStepNames(t *testing.T) {
	var names []string
	record := func(t *testing.T) {
		names = append(names, t.Name()[strings.LastIndex(t.Name(), "/")+1:])
	}

	assert.True(t, Given(t, "a store", record))
	assert.True(t, When(t, "a policy is created", record))
	assert.True(t, Then(t, "it is listed", record))

	assert.Equal(t, []string{"Given_a_store", "When_a_policy_is_created", "Then_it_is_listed"}, names)
}
