package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/bwalsh/subscout/api"
	"github.com/bwalsh/subscout/db"
	"github.com/bwalsh/subscout/models"
	"github.com/bwalsh/subscout/scraper"
)

// server holds the REST surface's collaborators
type server struct {
	database *db.Database
	scout    *scraper.Scraper
	log      *logrus.Logger
}

func newServer(database *db.Database, scout *scraper.Scraper, log *logrus.Logger) *server {
	return &server{
		database: database,
		scout:    scout,
		log:      log,
	}
}

// start runs the Echo HTTP API server until the context is cancelled
func (s *server) start(ctx context.Context, port int, maxRequestsPerMinute int) {
	e := echo.New()
	e.HideBanner = true

	// middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	requestsPerSecond := float64(maxRequestsPerMinute) / 60.0

	rateLimit := rate.Limit(requestsPerSecond * 0.95) // use 95% of the rate limit to be safe

	rateLimiterConfig := middleware.RateLimiterConfig{
		Skipper: middleware.DefaultSkipper,
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rateLimit,
				Burst:     1, // no burst capability
				ExpiresIn: 3 * time.Minute,
			},
		),
		IdentifierExtractor: func(ctx echo.Context) (string, error) {
			return ctx.RealIP(), nil
		},
		ErrorHandler: func(ctx echo.Context, err error) error {
			return ctx.JSON(http.StatusTooManyRequests, map[string]string{
				"error": "Rate limit exceeded, please try again later",
			})
		},
		DenyHandler: func(ctx echo.Context, identifier string, err error) error {
			return ctx.JSON(http.StatusTooManyRequests, map[string]string{
				"error": "Rate limit exceeded, please try again later",
			})
		},
	}
	e.Use(middleware.RateLimiterWithConfig(rateLimiterConfig))

	e.GET("/api/profiles", s.listProfiles)
	e.GET("/api/profiles/:name", s.getProfile)
	e.POST("/api/profiles/:name/scrape", s.scrapeProfile)
	e.GET("/api/scrape/report", s.scrapeReport)

	e.POST("/api/scheduled", s.createScheduledPost)
	e.GET("/api/scheduled", s.listScheduledPosts)
	e.GET("/api/scheduled/:id", s.getScheduledPost)
	e.PATCH("/api/scheduled/:id/status", s.updateScheduledPostStatus)
	e.DELETE("/api/scheduled/:id", s.deleteScheduledPost)

	// health check endpoint; useful for k8s liveliness probes
	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})

	go func() {
		serverAddr := fmt.Sprintf(":%d", port)
		s.log.WithField("port", port).Info("Starting API server")
		if err := e.Start(serverAddr); err != nil && err != http.ErrServerClosed {
			s.log.WithError(err).Fatal("API server failed")
		}
	}()

	<-ctx.Done()
	s.log.Info("Shutting down API server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		s.log.WithError(err).Error("API server shutdown failed")
	}
}

func (s *server) listProfiles(c echo.Context) error {
	profiles, err := s.database.ListProfiles()
	if err != nil {
		s.log.WithError(err).Error("Failed to list profiles")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to load profiles",
		})
	}
	return c.JSON(http.StatusOK, profiles)
}

func (s *server) getProfile(c echo.Context) error {
	name := c.Param("name")

	profile, err := s.database.GetProfile(name)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": fmt.Sprintf("No profile for subreddit %s", name),
			})
		}
		s.log.WithError(err).Error("Failed to get profile")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to load profile",
		})
	}

	return c.JSON(http.StatusOK, profile)
}

// scrapeProfile re-scrapes a single subreddit synchronously
func (s *server) scrapeProfile(c echo.Context) error {
	name := c.Param("name")

	profile, err := s.scout.ScrapeOne(name)
	if err != nil {
		switch {
		case errors.Is(err, api.ErrNotFound):
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": fmt.Sprintf("Subreddit %s does not exist", name),
			})
		case errors.Is(err, api.ErrForbidden):
			return c.JSON(http.StatusForbidden, map[string]string{
				"error": fmt.Sprintf("Subreddit %s is private or banned", name),
			})
		case errors.Is(err, api.ErrRateLimited):
			return c.JSON(http.StatusTooManyRequests, map[string]string{
				"error": "Reddit is rate limiting us, try again later",
			})
		default:
			s.log.WithError(err).WithField("subreddit", name).Error("Scrape failed")
			return c.JSON(http.StatusBadGateway, map[string]string{
				"error": "Scrape failed",
			})
		}
	}

	return c.JSON(http.StatusOK, profile)
}

func (s *server) scrapeReport(c echo.Context) error {
	return c.JSON(http.StatusOK, s.scout.LastReport())
}

type createScheduledPostRequest struct {
	Account     string    `json:"account"`
	Subreddit   string    `json:"subreddit"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Flair       string    `json:"flair"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

func (s *server) createScheduledPost(c echo.Context) error {
	var req createScheduledPostRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid request body",
		})
	}

	if req.Account == "" || req.Subreddit == "" || req.Title == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "account, subreddit, and title are required",
		})
	}
	if !req.ScheduledAt.After(time.Now()) {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "scheduled_at must be in the future",
		})
	}

	// enforce flair when the subreddit's profile says one is required
	if profile, err := s.database.GetProfile(req.Subreddit); err == nil {
		if len(profile.RequiredFlairs) > 0 && req.Flair == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": fmt.Sprintf("r/%s requires post flair, pick one of %v", req.Subreddit, profile.RequiredFlairs),
			})
		}
	}

	now := time.Now().UTC()
	post := models.ScheduledPost{
		ID:          uuid.NewString(),
		Account:     req.Account,
		Subreddit:   req.Subreddit,
		Title:       req.Title,
		Body:        req.Body,
		Flair:       req.Flair,
		ScheduledAt: req.ScheduledAt.UTC(),
		Status:      models.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.database.CreateScheduledPost(&post); err != nil {
		s.log.WithError(err).Error("Failed to create scheduled post")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to create scheduled post",
		})
	}

	return c.JSON(http.StatusCreated, post)
}

func (s *server) listScheduledPosts(c echo.Context) error {
	posts, err := s.database.ListScheduledPosts(c.QueryParam("account"))
	if err != nil {
		s.log.WithError(err).Error("Failed to list scheduled posts")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to load scheduled posts",
		})
	}
	return c.JSON(http.StatusOK, posts)
}

func (s *server) getScheduledPost(c echo.Context) error {
	id := c.Param("id")

	post, err := s.database.GetScheduledPost(id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": "Scheduled post not found",
			})
		}
		s.log.WithError(err).Error("Failed to get scheduled post")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to load scheduled post",
		})
	}

	return c.JSON(http.StatusOK, post)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (s *server) updateScheduledPostStatus(c echo.Context) error {
	id := c.Param("id")

	var req updateStatusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid request body",
		})
	}

	switch req.Status {
	case models.StatusPosted, models.StatusFailed, models.StatusCancelled:
	default:
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("status must be one of %s, %s, %s",
				models.StatusPosted, models.StatusFailed, models.StatusCancelled),
		})
	}

	if err := s.database.UpdateScheduledPostStatus(id, req.Status); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": "Scheduled post not found",
			})
		}
		return c.JSON(http.StatusConflict, map[string]string{
			"error": err.Error(),
		})
	}

	post, err := s.database.GetScheduledPost(id)
	if err != nil {
		s.log.WithError(err).Error("Failed to reload scheduled post")
		return c.NoContent(http.StatusNoContent)
	}

	return c.JSON(http.StatusOK, post)
}

func (s *server) deleteScheduledPost(c echo.Context) error {
	id := c.Param("id")

	if err := s.database.DeleteScheduledPost(id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": "Scheduled post not found",
			})
		}
		s.log.WithError(err).Error("Failed to delete scheduled post")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to delete scheduled post",
		})
	}

	return c.NoContent(http.StatusNoContent)
}
