package db

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bwalsh/subscout/models"
)

func testDatabase(t *testing.T) *Database {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	database, err := NewDatabase(":memory:", log)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	return database
}

func testProfile(name string) *models.SubredditProfile {
	minKarma := 500
	freqHours := 24
	return &models.SubredditProfile{
		Name:                  name,
		DisplayName:           "r/" + name,
		Subscribers:           12000,
		ActiveUsers:           340,
		CreatedAt:             time.Date(2019, 6, 1, 0, 0, 0, 0, time.UTC),
		IsNsfw:                true,
		Description:           "test community",
		MinKarma:              &minKarma,
		RequiresVerification:  true,
		AllowsLinksInPost:     true,
		AllowsLinksInComments: true,
		PostingFrequencyHours: &freqHours,
		PostingFrequencyLimit: "1 per 24 hours",
		RequiredFlairs:        []string{"OC"},
		RulesRaw:              "test community\nVerification required",
		RulesSummary:          []string{"Need 500 karma", "Verification required"},
		AvgUpvotes:            20,
		MedianUpvotes:         20,
		AvgComments:           4,
		EngagementScore:       15.2,
		BestPostingTimes:      map[string][]int{"Monday": {21, 9, 14}},
		NicheTags:             []string{"general"},
		ScrapedAt:             time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestUpsertAndGetProfile(t *testing.T) {
	database := testDatabase(t)

	original := testProfile("testsub")
	require.NoError(t, database.UpsertProfile(original))

	stored, err := database.GetProfile("testsub")
	require.NoError(t, err)

	assert.Equal(t, original.Name, stored.Name)
	assert.Equal(t, original.Subscribers, stored.Subscribers)
	require.NotNil(t, stored.MinKarma)
	assert.Equal(t, 500, *stored.MinKarma)
	assert.Nil(t, stored.MinAccountAgeDays)
	require.NotNil(t, stored.PostingFrequencyHours)
	assert.Equal(t, 24, *stored.PostingFrequencyHours)
	assert.Equal(t, original.RequiredFlairs, stored.RequiredFlairs)
	assert.Equal(t, original.RulesSummary, stored.RulesSummary)
	assert.Equal(t, original.BestPostingTimes, stored.BestPostingTimes)
	assert.Equal(t, original.NicheTags, stored.NicheTags)
	assert.Equal(t, original.EngagementScore, stored.EngagementScore)
}

func TestUpsertProfileReplaces(t *testing.T) {
	database := testDatabase(t)

	first := testProfile("testsub")
	require.NoError(t, database.UpsertProfile(first))

	second := testProfile("testsub")
	second.Subscribers = 99999
	second.MinKarma = nil
	second.NicheTags = []string{"feet", "petite"}
	require.NoError(t, database.UpsertProfile(second))

	stored, err := database.GetProfile("testsub")
	require.NoError(t, err)
	assert.Equal(t, 99999, stored.Subscribers)
	assert.Nil(t, stored.MinKarma)
	assert.Equal(t, []string{"feet", "petite"}, stored.NicheTags)

	profiles, err := database.ListProfiles()
	require.NoError(t, err)
	assert.Len(t, profiles, 1)
}

func TestGetProfileNotFound(t *testing.T) {
	database := testDatabase(t)

	_, err := database.GetProfile("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestScheduledPostLifecycle(t *testing.T) {
	database := testDatabase(t)

	now := time.Now().UTC()
	post := &models.ScheduledPost{
		ID:          "abc-123",
		Account:     "creator1",
		Subreddit:   "testsub",
		Title:       "My post",
		Body:        "content",
		Flair:       "OC",
		ScheduledAt: now.Add(time.Hour),
		Status:      models.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, database.CreateScheduledPost(post))

	stored, err := database.GetScheduledPost("abc-123")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status)
	assert.Equal(t, "creator1", stored.Account)

	require.NoError(t, database.UpdateScheduledPostStatus("abc-123", models.StatusPosted))

	stored, err = database.GetScheduledPost("abc-123")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPosted, stored.Status)

	// terminal statuses are immutable
	err = database.UpdateScheduledPostStatus("abc-123", models.StatusCancelled)
	assert.Error(t, err)

	require.NoError(t, database.DeleteScheduledPost("abc-123"))
	_, err = database.GetScheduledPost("abc-123")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateScheduledPostStatusMissing(t *testing.T) {
	database := testDatabase(t)

	err := database.UpdateScheduledPostStatus("nope", models.StatusPosted)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListScheduledPostsByAccount(t *testing.T) {
	database := testDatabase(t)

	now := time.Now().UTC()
	for i, account := range []string{"alice", "bob", "alice"} {
		post := &models.ScheduledPost{
			ID:          string(rune('a' + i)),
			Account:     account,
			Subreddit:   "testsub",
			Title:       "post",
			ScheduledAt: now.Add(time.Duration(i) * time.Hour),
			Status:      models.StatusPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		require.NoError(t, database.CreateScheduledPost(post))
	}

	all, err := database.ListScheduledPosts("")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	alices, err := database.ListScheduledPosts("alice")
	require.NoError(t, err)
	assert.Len(t, alices, 2)
	// soonest first
	assert.True(t, alices[0].ScheduledAt.Before(alices[1].ScheduledAt))
}

func TestMarkOverdueScheduledPosts(t *testing.T) {
	database := testDatabase(t)

	now := time.Now().UTC()
	overdue := &models.ScheduledPost{
		ID:          "overdue",
		Account:     "creator1",
		Subreddit:   "testsub",
		Title:       "late",
		ScheduledAt: now.Add(-2 * time.Hour),
		Status:      models.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	upcoming := &models.ScheduledPost{
		ID:          "upcoming",
		Account:     "creator1",
		Subreddit:   "testsub",
		Title:       "soon",
		ScheduledAt: now.Add(time.Hour),
		Status:      models.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, database.CreateScheduledPost(overdue))
	require.NoError(t, database.CreateScheduledPost(upcoming))

	marked, err := database.MarkOverdueScheduledPosts(30 * time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), marked)

	stored, err := database.GetScheduledPost("overdue")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, stored.Status)

	stored, err = database.GetScheduledPost("upcoming")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status)
}
