package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bwalsh/subscout/models"
)

func TestParseRequirementsKarmaAndAge(t *testing.T) {
	text := "You need 500 combined karma and your account must be 30 days old. Verification required."
	req := ParseRequirements(text)

	require.NotNil(t, req.MinKarma)
	assert.Equal(t, 500, *req.MinKarma)
	require.NotNil(t, req.MinAccountAgeDays)
	assert.Equal(t, 30, *req.MinAccountAgeDays)
	assert.True(t, req.RequiresVerification)

	summary := BuildSummary(req, nil)
	expected := []string{
		"Need 500 karma",
		"Account must be 30+ days old",
		"Verification required",
	}
	assert.Equal(t, expected, summary)
}

func TestParseRequirementsKarmaPatternOrder(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
	}{
		{
			name:     "number before karma",
			input:    "Accounts need 100+ karma to post here",
			expected: 100,
		},
		{
			name:     "karma before number",
			input:    "Karma requirement: 250",
			expected: 250,
		},
		{
			name:     "minimum then number then karma",
			input:    "We enforce a minimum of 50 post karma",
			expected: 50,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := ParseRequirements(tc.input)
			if req.MinKarma == nil {
				t.Fatalf("ParseRequirements(%q) MinKarma = nil; want %d", tc.input, tc.expected)
			}
			if *req.MinKarma != tc.expected {
				t.Errorf("ParseRequirements(%q) MinKarma = %d; want %d",
					tc.input, *req.MinKarma, tc.expected)
			}
		})
	}
}

func TestParseRequirementsLinkPolicy(t *testing.T) {
	req := ParseRequirements("No external links allowed, links only in profile.")

	assert.False(t, req.AllowsLinksInPost)
	assert.False(t, req.AllowsLinksInComments)
	assert.True(t, req.AllowsLinksInProfileOnly)
}

func TestParseRequirementsNoLinksOnly(t *testing.T) {
	req := ParseRequirements("Rule 3: no links in posts or comments.")

	assert.False(t, req.AllowsLinksInPost)
	assert.False(t, req.AllowsLinksInComments)
	assert.False(t, req.AllowsLinksInProfileOnly)
}

func TestParseRequirementsPostingFrequency(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		expectedHours int
		expectedLimit string
	}{
		{
			name:          "per day maps to 24 hours",
			input:         "Submit 1 post per day maximum",
			expectedHours: 24,
			expectedLimit: "1 per 24 hours",
		},
		{
			name:          "explicit hour window",
			input:         "Limit yourself to 2 posts per 6 hours",
			expectedHours: 6,
			expectedLimit: "1 per 6 hours",
		},
		{
			name:          "bare hour defaults to 1",
			input:         "Only 1 submission per hour please",
			expectedHours: 1,
			expectedLimit: "1 per 1 hours",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := ParseRequirements(tc.input)
			if req.PostingFrequencyHours == nil {
				t.Fatalf("ParseRequirements(%q) PostingFrequencyHours = nil; want %d",
					tc.input, tc.expectedHours)
			}
			if *req.PostingFrequencyHours != tc.expectedHours {
				t.Errorf("ParseRequirements(%q) hours = %d; want %d",
					tc.input, *req.PostingFrequencyHours, tc.expectedHours)
			}
			if req.PostingFrequencyLimit != tc.expectedLimit {
				t.Errorf("ParseRequirements(%q) limit = %q; want %q",
					tc.input, req.PostingFrequencyLimit, tc.expectedLimit)
			}
		})
	}
}

func TestParseRequirementsDefaults(t *testing.T) {
	req := ParseRequirements("Be nice. Have fun. Follow reddiquette.")

	assert.Nil(t, req.MinKarma)
	assert.Nil(t, req.MinAccountAgeDays)
	assert.False(t, req.RequiresVerification)
	assert.True(t, req.AllowsLinksInPost)
	assert.True(t, req.AllowsLinksInComments)
	assert.False(t, req.AllowsLinksInProfileOnly)
	assert.Nil(t, req.PostingFrequencyHours)
	assert.Empty(t, req.PostingFrequencyLimit)
}

func TestBuildSummaryFallback(t *testing.T) {
	summary := BuildSummary(ParseRequirements("Be nice."), nil)
	assert.Equal(t, []string{"No special requirements found"}, summary)
}

func TestBuildSummaryFlairLine(t *testing.T) {
	summary := BuildSummary(ParseRequirements("Be nice."), []string{"OC", "Verified"})
	assert.Equal(t, []string{"Post flair required"}, summary)
}

func TestConcatRuleText(t *testing.T) {
	rules := []models.SubredditRule{
		{ShortName: "No spam", Description: "Spam gets you banned"},
		{ShortName: "Verification", ViolationReason: "Unverified poster"},
	}

	text := ConcatRuleText("A community for things.", rules)
	expected := "A community for things.\nNo spam\nSpam gets you banned\nVerification\nUnverified poster"
	assert.Equal(t, expected, text)
}

func TestConcatRuleTextEmpty(t *testing.T) {
	assert.Equal(t, "", ConcatRuleText("", nil))
}
