package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bwalsh/subscout/api"
	"github.com/bwalsh/subscout/db"
	"github.com/bwalsh/subscout/scraper"
	"github.com/bwalsh/subscout/utils"
)

func main() {
	envPath := flag.String("env", ".env", "Path to .env file")
	logLevel := flag.String("log-level", "debug", "Logging level (debug, info, warn, error)")
	flag.Parse()

	log := setupLogger(*logLevel)
	log.Info("Starting Subreddit Scout")

	config, err := utils.LoadConfig(*envPath, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	log.WithFields(logrus.Fields{
		"subreddits":       config.Scrape.Subreddits,
		"scrape_delay_sec": config.Scrape.DelaySeconds,
		"rescrape_minutes": config.Scrape.RescrapeMinutes,
		"server_port":      config.Server.Port,
	}).Info("Configuration loaded")

	database, err := db.NewDatabase(config.Database.Path, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer database.Close()

	redditAPI := api.NewRedditAPI(
		config.Reddit.ClientID,
		config.Reddit.ClientSecret,
		config.Reddit.UserAgent,
		config.Reddit.MaxRequestsPerMinute,
		log,
	)

	scout := scraper.NewScraper(
		redditAPI,
		database,
		config.Scrape.Subreddits,
		config.Scrape.DelaySeconds,
		config.Scrape.RescrapeMinutes,
		config.Scrape.HotSampleSize,
		config.Scrape.TopSampleSize,
		log,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server := newServer(database, scout, log)
	go server.start(ctx, config.Server.Port, config.Reddit.MaxRequestsPerMinute)

	go func() {
		if err := scout.Start(ctx); err != nil && err != context.Canceled {
			log.WithError(err).Error("Batch scraper stopped unexpectedly")
		}
	}()

	go sweepOverduePosts(ctx, database, config.Scrape.PostGraceMinutes, log)

	waitForShutdown(cancel, log)
}

// setupLogger sets up the logger with the specified log level
func setupLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	switch level {
	case "debug":
		log.SetLevel(logrus.DebugLevel)
	case "info":
		log.SetLevel(logrus.InfoLevel)
	case "warn":
		log.SetLevel(logrus.WarnLevel)
	case "error":
		log.SetLevel(logrus.ErrorLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
	}

	return log
}

// sweepOverduePosts periodically fails pending posts whose scheduled time
// passed more than the grace window ago
func sweepOverduePosts(ctx context.Context, database *db.Database, graceMinutes int, log *logrus.Logger) {
	grace := time.Duration(graceMinutes) * time.Minute

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			marked, err := database.MarkOverdueScheduledPosts(grace)
			if err != nil {
				log.WithError(err).Error("Failed to sweep overdue scheduled posts")
				continue
			}
			if marked > 0 {
				log.WithField("count", marked).Info("Marked overdue scheduled posts as failed")
			}
		}
	}
}

// waitForShutdown waits for a shutdown signal
func waitForShutdown(cancel context.CancelFunc, log *logrus.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.WithField("signal", sig.String()).Info("Shutdown signal received")

	cancel()

	time.Sleep(1 * time.Second)
	log.Info("Subreddit Scout stopped")
}
