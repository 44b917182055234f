package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		pattern string
		topic   string
		want    bool
	}{
		{"a/tasks", "a/tasks", true},
		{"a/tasks", "a/tasks/late/team_1", false},
		{"a/request/#", "a/request/team_1", true},
		{"a/request/#", "a/request/team_1/extra", true},
		{"a/request/#", "a/request", true},
		{"a/request/#", "a/present/team_1", false},
		{"a/+/team_1", "a/progress/team_1", true},
		{"a/+/team_1", "a/progress/team_2", false},
		{"a/+", "a/progress/team_1", false},
		{"a/#/b", "a/x/b", false},
		{"#", "anything/at/all", true},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Match(tc.pattern, tc.topic), "Match(%q, %q)", tc.pattern, tc.topic)
	}
}
