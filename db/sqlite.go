package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/bwalsh/subscout/models"
)

// Database provides storage for subreddit profiles and scheduled posts
type Database struct {
	db    *sql.DB
	mutex sync.RWMutex
	log   *logrus.Logger
}

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = sql.ErrNoRows

// NewDatabase creates a new SQLite database connection
func NewDatabase(dbPath string, log *logrus.Logger) (*Database, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	database := &Database{
		db:  db,
		log: log,
	}

	if err := database.initTables(); err != nil {
		return nil, fmt.Errorf("failed to initialize tables: %w", err)
	}

	return database, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.db.Close()
}

// initTables creates the necessary tables if they don't exist
func (d *Database) initTables() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	// note: in an ideal world, this would be a migration that we could just run once per environment
	query := `
	CREATE TABLE IF NOT EXISTS subreddit_profiles (
		name TEXT PRIMARY KEY,
		display_name TEXT NOT NULL,
		subscribers INTEGER NOT NULL,
		active_users INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL,
		is_nsfw BOOLEAN NOT NULL,
		description TEXT,
		min_karma INTEGER,
		min_account_age_days INTEGER,
		requires_verification BOOLEAN NOT NULL,
		allows_links_in_post BOOLEAN NOT NULL,
		allows_links_in_comments BOOLEAN NOT NULL,
		allows_links_in_profile_only BOOLEAN NOT NULL,
		posting_frequency_hours INTEGER,
		posting_frequency_limit TEXT,
		required_flairs TEXT NOT NULL,
		rules_raw TEXT,
		rules_summary TEXT NOT NULL,
		avg_upvotes REAL NOT NULL,
		median_upvotes REAL NOT NULL,
		avg_comments REAL NOT NULL,
		engagement_score REAL NOT NULL,
		best_posting_times TEXT NOT NULL,
		niche_tags TEXT NOT NULL,
		scraped_at TIMESTAMP NOT NULL
	);
	CREATE TABLE IF NOT EXISTS scheduled_posts (
		id TEXT PRIMARY KEY,
		account TEXT NOT NULL,
		subreddit TEXT NOT NULL,
		title TEXT NOT NULL,
		body TEXT,
		flair TEXT,
		scheduled_at TIMESTAMP NOT NULL,
		status TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_scheduled_posts_status ON scheduled_posts(status);
	CREATE INDEX IF NOT EXISTS idx_scheduled_posts_account ON scheduled_posts(account);
	`

	_, err := d.db.Exec(query)
	return err
}

// UpsertProfile saves a profile, replacing any prior profile for the same name
func (d *Database) UpsertProfile(profile *models.SubredditProfile) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	flairsJSON, err := json.Marshal(profile.RequiredFlairs)
	if err != nil {
		return fmt.Errorf("failed to encode required flairs: %w", err)
	}
	summaryJSON, err := json.Marshal(profile.RulesSummary)
	if err != nil {
		return fmt.Errorf("failed to encode rules summary: %w", err)
	}
	timesJSON, err := json.Marshal(profile.BestPostingTimes)
	if err != nil {
		return fmt.Errorf("failed to encode best posting times: %w", err)
	}
	tagsJSON, err := json.Marshal(profile.NicheTags)
	if err != nil {
		return fmt.Errorf("failed to encode niche tags: %w", err)
	}

	query := `
	INSERT OR REPLACE INTO subreddit_profiles (
		name, display_name, subscribers, active_users, created_at, is_nsfw, description,
		min_karma, min_account_age_days, requires_verification,
		allows_links_in_post, allows_links_in_comments, allows_links_in_profile_only,
		posting_frequency_hours, posting_frequency_limit,
		required_flairs, rules_raw, rules_summary,
		avg_upvotes, median_upvotes, avg_comments, engagement_score,
		best_posting_times, niche_tags, scraped_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = d.db.Exec(
		query,
		profile.Name, profile.DisplayName, profile.Subscribers, profile.ActiveUsers,
		profile.CreatedAt, profile.IsNsfw, profile.Description,
		toNullInt(profile.MinKarma), toNullInt(profile.MinAccountAgeDays), profile.RequiresVerification,
		profile.AllowsLinksInPost, profile.AllowsLinksInComments, profile.AllowsLinksInProfileOnly,
		toNullInt(profile.PostingFrequencyHours), profile.PostingFrequencyLimit,
		string(flairsJSON), profile.RulesRaw, string(summaryJSON),
		profile.AvgUpvotes, profile.MedianUpvotes, profile.AvgComments, profile.EngagementScore,
		string(timesJSON), string(tagsJSON), profile.ScrapedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}

	return nil
}

// GetProfile returns the profile for a subreddit name, or ErrNotFound
func (d *Database) GetProfile(name string) (*models.SubredditProfile, error) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	query := profileSelectColumns + ` FROM subreddit_profiles WHERE name = ?`

	row := d.db.QueryRow(query, name)
	profile, err := scanProfile(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile for %s: %w", name, err)
	}

	return profile, nil
}

// ListProfiles returns all stored profiles ordered by engagement score
func (d *Database) ListProfiles() ([]models.SubredditProfile, error) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	query := profileSelectColumns + ` FROM subreddit_profiles ORDER BY engagement_score DESC`

	rows, err := d.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	profiles := make([]models.SubredditProfile, 0)
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, *profile)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return profiles, nil
}

const profileSelectColumns = `
	SELECT name, display_name, subscribers, active_users, created_at, is_nsfw, description,
		min_karma, min_account_age_days, requires_verification,
		allows_links_in_post, allows_links_in_comments, allows_links_in_profile_only,
		posting_frequency_hours, posting_frequency_limit,
		required_flairs, rules_raw, rules_summary,
		avg_upvotes, median_upvotes, avg_comments, engagement_score,
		best_posting_times, niche_tags, scraped_at`

// scanner covers both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(row scanner) (*models.SubredditProfile, error) {
	var profile models.SubredditProfile
	var minKarma, minAge, freqHours sql.NullInt64
	var description, rulesRaw, freqLimit sql.NullString
	var flairsJSON, summaryJSON, timesJSON, tagsJSON string
	var createdAt, scrapedAt string

	err := row.Scan(
		&profile.Name, &profile.DisplayName, &profile.Subscribers, &profile.ActiveUsers,
		&createdAt, &profile.IsNsfw, &description,
		&minKarma, &minAge, &profile.RequiresVerification,
		&profile.AllowsLinksInPost, &profile.AllowsLinksInComments, &profile.AllowsLinksInProfileOnly,
		&freqHours, &freqLimit,
		&flairsJSON, &rulesRaw, &summaryJSON,
		&profile.AvgUpvotes, &profile.MedianUpvotes, &profile.AvgComments, &profile.EngagementScore,
		&timesJSON, &tagsJSON, &scrapedAt,
	)
	if err != nil {
		return nil, err
	}

	profile.Description = description.String
	profile.RulesRaw = rulesRaw.String
	profile.PostingFrequencyLimit = freqLimit.String
	profile.MinKarma = fromNullInt(minKarma)
	profile.MinAccountAgeDays = fromNullInt(minAge)
	profile.PostingFrequencyHours = fromNullInt(freqHours)
	profile.CreatedAt = parseTimestamp(createdAt)
	profile.ScrapedAt = parseTimestamp(scrapedAt)

	if err := json.Unmarshal([]byte(flairsJSON), &profile.RequiredFlairs); err != nil {
		return nil, fmt.Errorf("failed to decode required flairs: %w", err)
	}
	if err := json.Unmarshal([]byte(summaryJSON), &profile.RulesSummary); err != nil {
		return nil, fmt.Errorf("failed to decode rules summary: %w", err)
	}
	if err := json.Unmarshal([]byte(timesJSON), &profile.BestPostingTimes); err != nil {
		return nil, fmt.Errorf("failed to decode best posting times: %w", err)
	}
	if err := json.Unmarshal([]byte(tagsJSON), &profile.NicheTags); err != nil {
		return nil, fmt.Errorf("failed to decode niche tags: %w", err)
	}

	return &profile, nil
}

// CreateScheduledPost stores a new scheduled post
func (d *Database) CreateScheduledPost(post *models.ScheduledPost) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	query := `
	INSERT INTO scheduled_posts (
		id, account, subreddit, title, body, flair,
		scheduled_at, status, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := d.db.Exec(
		query,
		post.ID, post.Account, post.Subreddit, post.Title, post.Body, post.Flair,
		post.ScheduledAt, post.Status, post.CreatedAt, post.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create scheduled post: %w", err)
	}

	return nil
}

// GetScheduledPost returns a single scheduled post by id, or ErrNotFound
func (d *Database) GetScheduledPost(id string) (*models.ScheduledPost, error) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	query := `
	SELECT id, account, subreddit, title, body, flair,
		scheduled_at, status, created_at, updated_at
	FROM scheduled_posts WHERE id = ?
	`

	post, err := scanScheduledPost(d.db.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get scheduled post %s: %w", id, err)
	}

	return post, nil
}

// ListScheduledPosts returns scheduled posts, optionally filtered by account,
// soonest first
func (d *Database) ListScheduledPosts(account string) ([]models.ScheduledPost, error) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	query := `
	SELECT id, account, subreddit, title, body, flair,
		scheduled_at, status, created_at, updated_at
	FROM scheduled_posts
	`
	args := []any{}
	if account != "" {
		query += " WHERE account = ?"
		args = append(args, account)
	}
	query += " ORDER BY scheduled_at ASC"

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query scheduled posts: %w", err)
	}
	defer rows.Close()

	posts := make([]models.ScheduledPost, 0)
	for rows.Next() {
		post, err := scanScheduledPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scheduled post: %w", err)
		}
		posts = append(posts, *post)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return posts, nil
}

// UpdateScheduledPostStatus moves a pending post to a new status. Posts in a
// terminal status are immutable; attempts to change them return an error.
func (d *Database) UpdateScheduledPostStatus(id, status string) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	result, err := d.db.Exec(
		`UPDATE scheduled_posts SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		status, time.Now().UTC(), id, models.StatusPending,
	)
	if err != nil {
		return fmt.Errorf("failed to update scheduled post status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		var current string
		err := d.db.QueryRow(`SELECT status FROM scheduled_posts WHERE id = ?`, id).Scan(&current)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to read scheduled post status: %w", err)
		}
		return fmt.Errorf("scheduled post %s is %s and cannot change status", id, current)
	}

	return nil
}

// DeleteScheduledPost removes a scheduled post
func (d *Database) DeleteScheduledPost(id string) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	result, err := d.db.Exec(`DELETE FROM scheduled_posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete scheduled post: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// MarkOverdueScheduledPosts flips pending posts whose scheduled time passed
// more than grace ago to failed, so stale items don't linger as pending.
// Returns the number of posts updated.
func (d *Database) MarkOverdueScheduledPosts(grace time.Duration) (int64, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	cutoff := time.Now().UTC().Add(-grace)

	result, err := d.db.Exec(
		`UPDATE scheduled_posts SET status = ?, updated_at = ? WHERE status = ? AND scheduled_at < ?`,
		models.StatusFailed, time.Now().UTC(), models.StatusPending, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark overdue scheduled posts: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check overdue update result: %w", err)
	}

	return affected, nil
}

func scanScheduledPost(row scanner) (*models.ScheduledPost, error) {
	var post models.ScheduledPost
	var body, flair sql.NullString
	var scheduledAt, createdAt, updatedAt string

	err := row.Scan(
		&post.ID, &post.Account, &post.Subreddit, &post.Title, &body, &flair,
		&scheduledAt, &post.Status, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	post.Body = body.String
	post.Flair = flair.String
	post.ScheduledAt = parseTimestamp(scheduledAt)
	post.CreatedAt = parseTimestamp(createdAt)
	post.UpdatedAt = parseTimestamp(updatedAt)

	return &post, nil
}

func toNullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func fromNullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

// parseTimestamp handles the timestamp formats go-sqlite3 stores time.Time as
func parseTimestamp(value string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05"} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed
		}
	}
	return time.Time{}
}
