package profile

import (
	"github.com/bwalsh/subscout/models"
)

// Assemble derives a complete SubredditProfile from already-fetched raw
// inputs. It is a pure function: no I/O, no clock, and identical inputs
// always produce an identical profile. hotPosts feeds the engagement
// metrics, topPosts the posting-time analysis. ScrapedAt is left zero for
// the caller to stamp.
func Assemble(
	info models.SubredditInfo,
	rules []models.SubredditRule,
	flairs []models.FlairTemplate,
	hotPosts []models.Post,
	topPosts []models.Post,
) models.SubredditProfile {
	rulesRaw := ConcatRuleText(info.Description, rules)
	req := ParseRequirements(rulesRaw)

	requiredFlairs := make([]string, 0, len(flairs))
	for _, flair := range flairs {
		if flair.Text != "" {
			requiredFlairs = append(requiredFlairs, flair.Text)
		}
	}

	engagement := CalcEngagement(hotPosts)

	return models.SubredditProfile{
		Name:        info.Name,
		DisplayName: info.DisplayName,
		Subscribers: info.Subscribers,
		ActiveUsers: info.ActiveUsers,
		CreatedAt:   info.CreatedAt,
		IsNsfw:      info.IsNsfw,
		Description: info.Description,

		MinKarma:             req.MinKarma,
		MinAccountAgeDays:    req.MinAccountAgeDays,
		RequiresVerification: req.RequiresVerification,

		AllowsLinksInPost:        req.AllowsLinksInPost,
		AllowsLinksInComments:    req.AllowsLinksInComments,
		AllowsLinksInProfileOnly: req.AllowsLinksInProfileOnly,

		PostingFrequencyHours: req.PostingFrequencyHours,
		PostingFrequencyLimit: req.PostingFrequencyLimit,

		RequiredFlairs: requiredFlairs,
		RulesRaw:       rulesRaw,
		RulesSummary:   BuildSummary(req, requiredFlairs),

		AvgUpvotes:      engagement.AvgUpvotes,
		MedianUpvotes:   engagement.MedianUpvotes,
		AvgComments:     engagement.AvgComments,
		EngagementScore: engagement.EngagementScore,

		BestPostingTimes: BestPostingTimes(topPosts),
		NicheTags:        InferNicheTags(info.DisplayName, info.Description),
	}
}
