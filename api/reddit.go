package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bwalsh/subscout/models"
)

const (
	baseURL      = "https://oauth.reddit.com"
	authURL      = "https://www.reddit.com/api/v1/access_token"
	defaultLimit = 100 // max number of posts per listing request
)

// Error taxonomy for upstream failures. Callers check these with errors.Is;
// everything else is a transport-level error.
var (
	ErrNotFound    = errors.New("subreddit not found")
	ErrForbidden   = errors.New("subreddit is private or banned")
	ErrRateLimited = errors.New("rate limited by reddit")
	ErrMalformed   = errors.New("malformed reddit response")
)

// RedditAPI is an authenticated Reddit API client
type RedditAPI struct {
	clientID          string
	clientSecret      string
	userAgent         string
	httpClient        *http.Client
	accessToken       string
	tokenExpiry       time.Time
	mutex             sync.RWMutex
	log               *logrus.Logger
	rateLimiter       *TokenBucket
	maxRequestsPerMin int
	rateResetCached   int
	rateUsedCached    int
	rateHeadersMutex  sync.RWMutex
}

// redditListing is the wire shape of a hot/top/new listing
type redditListing struct {
	Kind string `json:"kind"`
	Data struct {
		After    string `json:"after"`
		Children []struct {
			Kind string `json:"kind"`
			Data struct {
				ID          string  `json:"id"`
				Title       string  `json:"title"`
				Author      string  `json:"author"`
				Subreddit   string  `json:"subreddit"`
				URL         string  `json:"url"`
				CreatedUTC  float64 `json:"created_utc"`
				Score       int     `json:"score"`
				NumComments int     `json:"num_comments"`
				Permalink   string  `json:"permalink"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// redditAbout is the wire shape of /r/{name}/about
type redditAbout struct {
	Kind string `json:"kind"`
	Data struct {
		DisplayName       string  `json:"display_name"`
		DisplayNamePrefix string  `json:"display_name_prefixed"`
		Subscribers       int     `json:"subscribers"`
		ActiveUserCount   int     `json:"active_user_count"`
		CreatedUTC        float64 `json:"created_utc"`
		Over18            bool    `json:"over18"`
		PublicDescription string  `json:"public_description"`
	} `json:"data"`
}

// redditRules is the wire shape of /r/{name}/about/rules
type redditRules struct {
	Rules []struct {
		ShortName       string `json:"short_name"`
		Description     string `json:"description"`
		ViolationReason string `json:"violation_reason"`
	} `json:"rules"`
}

// redditFlair is one entry of the link flair template listing
type redditFlair struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// NewRedditAPI creates a new Reddit API client
func NewRedditAPI(clientID, clientSecret, userAgent string, maxRequestsPerMinute int, log *logrus.Logger) *RedditAPI {
	// default to 100 requests per minute (real Reddit limit)
	if maxRequestsPerMinute <= 0 {
		maxRequestsPerMinute = 100
	}

	// our 10 minute allocation
	totalAllocation := maxRequestsPerMinute * 10

	standardRate := float64(totalAllocation) / 600.0
	targetRate := standardRate * 0.95

	rateLimiter := NewTokenBucket(
		1, // no burst
		targetRate,
		30*time.Second,
	)

	return &RedditAPI{
		clientID:          clientID,
		clientSecret:      clientSecret,
		userAgent:         userAgent,
		httpClient:        &http.Client{Timeout: 30 * time.Second},
		log:               log,
		rateLimiter:       rateLimiter,
		maxRequestsPerMin: maxRequestsPerMinute,
		rateResetCached:   600,
	}
}

// GetRateLimitStatus returns the cached reset countdown and used-request count
func (r *RedditAPI) GetRateLimitStatus() (int, int) {
	r.rateHeadersMutex.RLock()
	defer r.rateHeadersMutex.RUnlock()
	return r.rateResetCached, r.rateUsedCached
}

// authenticate authenticates with the Reddit API using client credentials
func (r *RedditAPI) authenticate() error {
	r.mutex.RLock()
	token := r.accessToken
	expiry := r.tokenExpiry
	r.mutex.RUnlock()

	if token != "" && time.Now().Before(expiry) {
		return nil
	}

	r.log.Info("Authenticating with Reddit API")

	if !r.rateLimiter.TakeWithTimeout() {
		return fmt.Errorf("rate limit exceeded during authentication attempt")
	}

	data := url.Values{}
	data.Set("grant_type", "client_credentials")

	req, err := http.NewRequest("POST", authURL, strings.NewReader(data.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create auth request: %w", err)
	}

	req.SetBasicAuth(r.clientID, r.clientSecret)
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute auth request: %w", err)
	}
	defer resp.Body.Close()

	r.updateRateLimits(resp)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("auth request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var authResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
		TokenType   string `json:"token_type"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		return fmt.Errorf("failed to decode auth response: %w", err)
	}

	r.mutex.Lock()
	r.accessToken = authResp.AccessToken
	r.tokenExpiry = time.Now().Add(time.Duration(authResp.ExpiresIn) * time.Second)
	r.mutex.Unlock()

	r.log.Info("Successfully authenticated with Reddit API")
	return nil
}

// get issues an authenticated GET and maps error statuses onto the taxonomy
func (r *RedditAPI) get(endpoint string) (io.ReadCloser, error) {
	if err := r.authenticate(); err != nil {
		return nil, err
	}

	if !r.rateLimiter.TakeWithTimeout() {
		r.log.Warn("Rate limit exceeded, waiting before retrying")
		time.Sleep(time.Second)
		if !r.rateLimiter.TakeWithTimeout() {
			return nil, ErrRateLimited
		}
	}

	req, err := http.NewRequest("GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	r.mutex.RLock()
	token := r.accessToken
	r.mutex.RUnlock()

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}

	r.updateRateLimits(resp)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		r.log.WithFields(logrus.Fields{
			"endpoint":      endpoint,
			"status_code":   resp.StatusCode,
			"response_body": string(body),
		}).Error("Reddit API error response")
		return nil, mapStatusError(resp.StatusCode, string(body))
	}

	return resp.Body, nil
}

// mapStatusError converts a non-200 status into a taxonomy error
func mapStatusError(status int, body string) error {
	switch status {
	case http.StatusNotFound:
		return fmt.Errorf("%w (status %d)", ErrNotFound, status)
	case http.StatusForbidden:
		return fmt.Errorf("%w (status %d)", ErrForbidden, status)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w (status %d)", ErrRateLimited, status)
	default:
		return fmt.Errorf("request failed with status %d: %s", status, body)
	}
}

// GetSubredditInfo fetches the metadata for a single subreddit.
// A missing or private subreddit returns ErrNotFound / ErrForbidden.
func (r *RedditAPI) GetSubredditInfo(name string) (models.SubredditInfo, error) {
	endpoint := fmt.Sprintf("%s/r/%s/about.json", baseURL, name)

	body, err := r.get(endpoint)
	if err != nil {
		return models.SubredditInfo{}, err
	}
	defer body.Close()

	var about redditAbout
	if err := json.NewDecoder(body).Decode(&about); err != nil {
		return models.SubredditInfo{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if about.Data.DisplayName == "" {
		return models.SubredditInfo{}, fmt.Errorf("%w: about response missing display_name", ErrMalformed)
	}

	return models.SubredditInfo{
		Name:        about.Data.DisplayName,
		DisplayName: about.Data.DisplayNamePrefix,
		Subscribers: about.Data.Subscribers,
		ActiveUsers: about.Data.ActiveUserCount,
		CreatedAt:   time.Unix(int64(about.Data.CreatedUTC), 0).UTC(),
		IsNsfw:      about.Data.Over18,
		Description: about.Data.PublicDescription,
	}, nil
}

// GetSubredditRules fetches the subreddit's rules listing
func (r *RedditAPI) GetSubredditRules(name string) ([]models.SubredditRule, error) {
	endpoint := fmt.Sprintf("%s/r/%s/about/rules.json", baseURL, name)

	body, err := r.get(endpoint)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var rulesResp redditRules
	if err := json.NewDecoder(body).Decode(&rulesResp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	rules := make([]models.SubredditRule, 0, len(rulesResp.Rules))
	for _, rule := range rulesResp.Rules {
		rules = append(rules, models.SubredditRule{
			ShortName:       rule.ShortName,
			Description:     rule.Description,
			ViolationReason: rule.ViolationReason,
		})
	}

	return rules, nil
}

// GetFlairTemplates fetches the subreddit's link flair templates.
// Many subreddits 403 this endpoint for non-moderators; callers treat that
// as "no flairs", not a failure.
func (r *RedditAPI) GetFlairTemplates(name string) ([]models.FlairTemplate, error) {
	endpoint := fmt.Sprintf("%s/r/%s/api/link_flair_v2.json", baseURL, name)

	body, err := r.get(endpoint)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var flairResp []redditFlair
	if err := json.NewDecoder(body).Decode(&flairResp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	flairs := make([]models.FlairTemplate, 0, len(flairResp))
	for _, flair := range flairResp {
		flairs = append(flairs, models.FlairTemplate{Text: flair.Text})
	}

	return flairs, nil
}

// FetchPosts fetches a listing ("hot" or "top") from a subreddit. period is
// the top-listing window ("month" etc) and is ignored for other listings.
func (r *RedditAPI) FetchPosts(subreddit, listing, period string, limit int) ([]models.Post, error) {
	if limit <= 0 || limit > 100 {
		limit = defaultLimit
	}

	endpoint := fmt.Sprintf("%s/r/%s/%s.json?limit=%d", baseURL, subreddit, listing, limit)
	if listing == "top" && period != "" {
		endpoint += "&t=" + period
	}

	r.log.WithFields(logrus.Fields{
		"subreddit": subreddit,
		"listing":   listing,
		"limit":     limit,
	}).Debug("Fetching posts from Reddit API")

	body, err := r.get(endpoint)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var listResp redditListing
	if err := json.NewDecoder(body).Decode(&listResp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	posts := make([]models.Post, 0, len(listResp.Data.Children))
	for _, child := range listResp.Data.Children {
		posts = append(posts, models.Post{
			ID:          child.Data.ID,
			Title:       child.Data.Title,
			Author:      child.Data.Author,
			Subreddit:   child.Data.Subreddit,
			URL:         child.Data.URL,
			CreatedUTC:  child.Data.CreatedUTC,
			CreatedAt:   time.Unix(int64(child.Data.CreatedUTC), 0).UTC(),
			Score:       child.Data.Score,
			NumComments: child.Data.NumComments,
			Permalink:   child.Data.Permalink,
		})
	}

	r.log.WithFields(logrus.Fields{
		"post_count": len(posts),
		"subreddit":  subreddit,
		"listing":    listing,
	}).Debug("Fetched posts from Reddit")

	return posts, nil
}

// updateRateLimits updates the rate limiter based on response headers
func (r *RedditAPI) updateRateLimits(resp *http.Response) {
	// X-Ratelimit-Used: approximate number of requests used in this period
	// X-Ratelimit-Reset: seconds until the period resets (counts down from ~600)
	used := getHeaderAsInt(resp.Header, "X-Ratelimit-Used")
	reset := getHeaderAsInt(resp.Header, "X-Ratelimit-Reset")

	// skip if we didn't get valid headers
	if reset == 0 && used == 0 {
		return
	}

	r.rateHeadersMutex.Lock()
	r.rateResetCached = reset
	r.rateUsedCached = used
	r.rateHeadersMutex.Unlock()

	r.rateLimiter.Update(used, reset)

	r.log.WithFields(logrus.Fields{
		"used":      used,
		"reset_sec": reset,
	}).Debug("Updated rate limiter based on Reddit headers")
}

func getHeaderAsInt(header http.Header, name string) int {
	value := header.Get(name)
	if value == "" {
		return 0
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}

	return intValue
}
