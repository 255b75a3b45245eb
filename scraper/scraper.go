package scraper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bwalsh/subscout/models"
	"github.com/bwalsh/subscout/profile"
)

// Fetcher is the slice of the Reddit client the scraper needs
type Fetcher interface {
	GetSubredditInfo(name string) (models.SubredditInfo, error)
	GetSubredditRules(name string) ([]models.SubredditRule, error)
	GetFlairTemplates(name string) ([]models.FlairTemplate, error)
	FetchPosts(subreddit, listing, period string, limit int) ([]models.Post, error)
}

// Store persists derived profiles
type Store interface {
	UpsertProfile(p *models.SubredditProfile) error
}

// Scraper drives profile derivation for a configured list of subreddits.
// Subreddits are processed strictly sequentially with a fixed delay between
// them to stay friendly to the upstream rate limit.
type Scraper struct {
	fetcher       Fetcher
	store         Store
	subreddits    []string
	delay         time.Duration
	rescrapeEvery time.Duration
	hotSampleSize int
	topSampleSize int
	log           *logrus.Logger
	mutex         sync.RWMutex
	lastReport    models.ScrapeReport
}

// NewScraper creates a new batch scraper
func NewScraper(
	fetcher Fetcher,
	store Store,
	subreddits []string,
	delaySeconds int,
	rescrapeMinutes int,
	hotSampleSize int,
	topSampleSize int,
	log *logrus.Logger,
) *Scraper {
	return &Scraper{
		fetcher:       fetcher,
		store:         store,
		subreddits:    subreddits,
		delay:         time.Duration(delaySeconds) * time.Second,
		rescrapeEvery: time.Duration(rescrapeMinutes) * time.Minute,
		hotSampleSize: hotSampleSize,
		topSampleSize: topSampleSize,
		log:           log,
	}
}

// Start runs an initial batch scrape and then re-scrapes on the configured
// interval until the context is cancelled.
func (s *Scraper) Start(ctx context.Context) error {
	s.RunBatch(ctx)

	ticker := time.NewTicker(s.rescrapeEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.RunBatch(ctx)
		}
	}
}

// RunBatch scrapes every configured subreddit once, sequentially. A failure
// on one subreddit is recorded in the report and the batch moves on.
func (s *Scraper) RunBatch(ctx context.Context) models.ScrapeReport {
	report := models.ScrapeReport{
		StartedAt: time.Now().UTC(),
		Scraped:   make([]string, 0, len(s.subreddits)),
		Failures:  make([]models.ScrapeFailure, 0),
	}

	s.log.WithField("subreddits", s.subreddits).Info("Starting batch scrape")

	for i, subreddit := range s.subreddits {
		if ctx.Err() != nil {
			break
		}

		if i > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(s.delay):
			}
			if ctx.Err() != nil {
				break
			}
		}

		if _, err := s.ScrapeOne(subreddit); err != nil {
			s.log.WithError(err).WithField("subreddit", subreddit).Error("Failed to scrape subreddit")
			report.Failures = append(report.Failures, models.ScrapeFailure{
				Subreddit: subreddit,
				Error:     err.Error(),
			})
			continue
		}

		report.Scraped = append(report.Scraped, subreddit)
	}

	report.FinishedAt = time.Now().UTC()

	s.mutex.Lock()
	s.lastReport = report
	s.mutex.Unlock()

	s.log.WithFields(logrus.Fields{
		"scraped":  len(report.Scraped),
		"failed":   len(report.Failures),
		"duration": report.FinishedAt.Sub(report.StartedAt).String(),
	}).Info("Batch scrape finished")

	return report
}

// ScrapeOne fetches everything needed for one subreddit, derives its profile,
// and upserts it. Failing to fetch the core metadata is fatal for the item;
// rules, flairs, and post samples degrade to empty inputs.
func (s *Scraper) ScrapeOne(name string) (*models.SubredditProfile, error) {
	info, err := s.fetcher.GetSubredditInfo(name)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subreddit info for %s: %w", name, err)
	}

	rules, err := s.fetcher.GetSubredditRules(name)
	if err != nil {
		s.log.WithError(err).WithField("subreddit", name).Warn("Rules fetch failed, continuing without")
		rules = nil
	}

	flairs, err := s.fetcher.GetFlairTemplates(name)
	if err != nil {
		s.log.WithError(err).WithField("subreddit", name).Warn("Flair fetch failed, continuing without")
		flairs = nil
	}

	hotPosts, err := s.fetcher.FetchPosts(name, "hot", "", s.hotSampleSize)
	if err != nil {
		s.log.WithError(err).WithField("subreddit", name).Warn("Hot listing fetch failed, continuing without")
		hotPosts = nil
	}

	topPosts, err := s.fetcher.FetchPosts(name, "top", "month", s.topSampleSize)
	if err != nil {
		s.log.WithError(err).WithField("subreddit", name).Warn("Top listing fetch failed, continuing without")
		topPosts = nil
	}

	derived := profile.Assemble(info, rules, flairs, hotPosts, topPosts)
	derived.ScrapedAt = time.Now().UTC()

	if err := s.store.UpsertProfile(&derived); err != nil {
		return nil, fmt.Errorf("failed to store profile for %s: %w", name, err)
	}

	s.log.WithFields(logrus.Fields{
		"subreddit":        derived.Name,
		"subscribers":      derived.Subscribers,
		"engagement_score": derived.EngagementScore,
		"niche_tags":       derived.NicheTags,
	}).Info("Scraped subreddit profile")

	return &derived, nil
}

// LastReport returns a copy of the most recent batch report
func (s *Scraper) LastReport() models.ScrapeReport {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.lastReport
}
