package models

import (
	"time"
)

// Post represents a Reddit post from a subreddit listing
type Post struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Subreddit   string    `json:"subreddit"`
	URL         string    `json:"url"`
	CreatedUTC  float64   `json:"created_utc"`
	CreatedAt   time.Time `json:"created_at"`
	Score       int       `json:"score"`
	NumComments int       `json:"num_comments"`
	Permalink   string    `json:"permalink"`
}

// SubredditInfo holds the raw metadata returned by the about endpoint
type SubredditInfo struct {
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name"`
	Subscribers int       `json:"subscribers"`
	ActiveUsers int       `json:"active_users"`
	CreatedAt   time.Time `json:"created_at"`
	IsNsfw      bool      `json:"is_nsfw"`
	Description string    `json:"description"`
}

// SubredditRule is a single entry from a subreddit's rules listing
type SubredditRule struct {
	ShortName       string `json:"short_name"`
	Description     string `json:"description"`
	ViolationReason string `json:"violation_reason"`
}

// FlairTemplate is a single entry from a subreddit's link flair templates
type FlairTemplate struct {
	Text string `json:"text"`
}

// SubredditProfile is the derived intelligence record for a subreddit.
// Name is the stable identity; re-scraping the same name replaces the
// whole profile.
type SubredditProfile struct {
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name"`
	Subscribers int       `json:"subscribers"`
	ActiveUsers int       `json:"active_users"`
	CreatedAt   time.Time `json:"created_at"`
	IsNsfw      bool      `json:"is_nsfw"`
	Description string    `json:"description"`

	MinKarma             *int `json:"min_karma"`
	MinAccountAgeDays    *int `json:"min_account_age_days"`
	RequiresVerification bool `json:"requires_verification"`

	AllowsLinksInPost        bool `json:"allows_links_in_post"`
	AllowsLinksInComments    bool `json:"allows_links_in_comments"`
	AllowsLinksInProfileOnly bool `json:"allows_links_in_profile_only"`

	PostingFrequencyHours *int   `json:"posting_frequency_hours"`
	PostingFrequencyLimit string `json:"posting_frequency_limit"`

	RequiredFlairs []string `json:"required_flairs"`
	RulesRaw       string   `json:"rules_raw"`
	RulesSummary   []string `json:"rules_summary"`

	AvgUpvotes      float64 `json:"avg_upvotes"`
	MedianUpvotes   float64 `json:"median_upvotes"`
	AvgComments     float64 `json:"avg_comments"`
	EngagementScore float64 `json:"engagement_score"`

	// day-of-week name -> up to 3 hours (0-23), best first
	BestPostingTimes map[string][]int `json:"best_posting_times"`

	NicheTags []string  `json:"niche_tags"`
	ScrapedAt time.Time `json:"scraped_at"`
}

// Scheduled post statuses. Pending is the only non-terminal state.
const (
	StatusPending   = "pending"
	StatusPosted    = "posted"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// ScheduledPost is a post a creator has queued up for one of their accounts
type ScheduledPost struct {
	ID          string    `json:"id"`
	Account     string    `json:"account"`
	Subreddit   string    `json:"subreddit"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Flair       string    `json:"flair"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ScrapeFailure records a single subreddit the batch driver could not scrape
type ScrapeFailure struct {
	Subreddit string `json:"subreddit"`
	Error     string `json:"error"`
}

// ScrapeReport summarizes the most recent batch scrape run
type ScrapeReport struct {
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Scraped    []string        `json:"scraped"`
	Failures   []ScrapeFailure `json:"failures"`
}
