package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInferNicheTags(t *testing.T) {
	tests := []struct {
		name        string
		displayName string
		description string
		expected    []string
	}{
		{
			name:        "multiple keyword sets match",
			displayName: "r/tinyfeetlovers",
			description: "",
			expected:    []string{"feet", "petite"},
		},
		{
			name:        "no match falls back to general",
			displayName: "r/woodworking",
			description: "Projects and plans",
			expected:    []string{"general"},
		},
		{
			name:        "substring containment not word boundary",
			displayName: "r/asiantown",
			description: "",
			expected:    []string{"asian"},
		},
		{
			name:        "description contributes matches",
			displayName: "r/gymgirls",
			description: "Cosplay and fitness content welcome",
			expected:    []string{"cosplay", "fitness"},
		},
		{
			name:        "case insensitive",
			displayName: "r/GothStyle",
			description: "",
			expected:    []string{"goth"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tags := InferNicheTags(tc.displayName, tc.description)
			assert.Equal(t, tc.expected, tags)
		})
	}
}

func TestInferNicheTagsNeverEmpty(t *testing.T) {
	tags := InferNicheTags("", "")
	assert.NotEmpty(t, tags)
	assert.Equal(t, []string{"general"}, tags)
}
