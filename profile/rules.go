package profile

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/bwalsh/subscout/models"
)

// Requirements holds the posting requirements extracted from a subreddit's
// description and rule text. Fields left at their zero value mean the text
// never mentioned them; link permissions default to allowed.
type Requirements struct {
	MinKarma                 *int
	MinAccountAgeDays        *int
	RequiresVerification     bool
	AllowsLinksInPost        bool
	AllowsLinksInComments    bool
	AllowsLinksInProfileOnly bool
	PostingFrequencyHours    *int
	PostingFrequencyLimit    string
}

// extractor tries its patterns in order against the rules text and hands
// the first match's capture groups to apply. Extractors are independent;
// adding a new field means appending one entry to requirementExtractors.
type extractor struct {
	field    string
	patterns []*regexp.Regexp
	apply    func(r *Requirements, groups []string)
}

var requirementExtractors = []extractor{
	{
		field: "min_karma",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(\d+)\s*\+?\s*(?:combined\s+)?karma`),
			regexp.MustCompile(`(?i)karma\D*?(\d+)`),
			regexp.MustCompile(`(?i)minimum\D*?(\d+)\D*?karma`),
		},
		apply: func(r *Requirements, groups []string) {
			if n, err := strconv.Atoi(groups[1]); err == nil {
				r.MinKarma = &n
			}
		},
	},
	{
		field: "min_account_age",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(\d+)\s*days?\s*old`),
			regexp.MustCompile(`(?i)account\D*?(\d+)\s*days?`),
			regexp.MustCompile(`(?i)(\d+)\s*days?[^.\n]*account`),
		},
		apply: func(r *Requirements, groups []string) {
			if n, err := strconv.Atoi(groups[1]); err == nil {
				r.MinAccountAgeDays = &n
			}
		},
	},
	{
		field: "verification",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:verify|verified|verification)\b`),
		},
		apply: func(r *Requirements, groups []string) {
			r.RequiresVerification = true
		},
	},
	// the two link checks are independent: "no links" and "links in profile
	// only" can both fire, and the second also clears the first two flags
	{
		field: "no_links",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)no\s+(?:external\s+)?links?`),
		},
		apply: func(r *Requirements, groups []string) {
			r.AllowsLinksInPost = false
			r.AllowsLinksInComments = false
		},
	},
	{
		field: "links_profile_only",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)links?\s+(?:only\s+)?(?:in\s+)?(?:your\s+)?profile`),
		},
		apply: func(r *Requirements, groups []string) {
			r.AllowsLinksInPost = false
			r.AllowsLinksInComments = false
			r.AllowsLinksInProfileOnly = true
		},
	},
	{
		field: "posting_frequency",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(\d+)\s*(?:posts?|submissions?)\s*per\s*(?:(\d+)\s*)?(hours?|day)`),
		},
		apply: func(r *Requirements, groups []string) {
			hours := 24
			if strings.HasPrefix(strings.ToLower(groups[3]), "hour") {
				hours = 1
				if groups[2] != "" {
					if n, err := strconv.Atoi(groups[2]); err == nil {
						hours = n
					}
				}
			}
			r.PostingFrequencyHours = &hours
			r.PostingFrequencyLimit = fmt.Sprintf("1 per %d hours", hours)
		},
	},
}

// ParseRequirements extracts posting requirements from free-form rule text.
// Each extractor's first matching pattern wins; fields whose patterns never
// match keep their defaults. Parsing never fails.
func ParseRequirements(text string) Requirements {
	req := Requirements{
		AllowsLinksInPost:     true,
		AllowsLinksInComments: true,
	}

	for _, ex := range requirementExtractors {
		for _, pattern := range ex.patterns {
			if groups := pattern.FindStringSubmatch(text); groups != nil {
				ex.apply(&req, groups)
				break
			}
		}
	}

	return req
}

// ConcatRuleText builds the single text blob the extractors run over: the
// subreddit description followed by each rule's short name and its
// description or violation reason, newline separated.
func ConcatRuleText(description string, rules []models.SubredditRule) string {
	parts := make([]string, 0, 1+len(rules))
	if description != "" {
		parts = append(parts, description)
	}

	for _, rule := range rules {
		if rule.ShortName != "" {
			parts = append(parts, rule.ShortName)
		}
		if rule.Description != "" {
			parts = append(parts, rule.Description)
		} else if rule.ViolationReason != "" {
			parts = append(parts, rule.ViolationReason)
		}
	}

	return strings.Join(parts, "\n")
}

// BuildSummary renders the extracted requirements as human-readable lines,
// one per requirement that is actually set, in a fixed order.
func BuildSummary(req Requirements, requiredFlairs []string) []string {
	lines := make([]string, 0, 6)

	if req.MinKarma != nil {
		lines = append(lines, fmt.Sprintf("Need %d karma", *req.MinKarma))
	}
	if req.MinAccountAgeDays != nil {
		lines = append(lines, fmt.Sprintf("Account must be %d+ days old", *req.MinAccountAgeDays))
	}
	if req.RequiresVerification {
		lines = append(lines, "Verification required")
	}
	if req.PostingFrequencyLimit != "" {
		lines = append(lines, "Posting limit: "+req.PostingFrequencyLimit)
	}
	if req.AllowsLinksInProfileOnly {
		lines = append(lines, "Links allowed in profile only")
	} else if !req.AllowsLinksInPost {
		lines = append(lines, "No links allowed")
	}
	if len(requiredFlairs) > 0 {
		lines = append(lines, "Post flair required")
	}

	if len(lines) == 0 {
		lines = append(lines, "No special requirements found")
	}

	return lines
}
