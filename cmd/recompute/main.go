// Command recompute runs a one-shot bulk recompute of daily training-load
// metrics for every user with recent activity in a tenant.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"example.com/trainingload/internal/acwr"
	"example.com/trainingload/internal/batch"
	"example.com/trainingload/internal/config"
	persistence "example.com/trainingload/internal/persistence/postgres"
)

func main() {
	tenantID := flag.String("tenant", "", "tenant to recompute (required)")
	lookbackDays := flag.Int("lookback", 0, "days of history to recompute (default from BULK_LOOKBACK_DAYS)")
	flag.Parse()

	if *tenantID == "" {
		log.Fatal("missing required -tenant flag")
	}

	cfg := config.Load()
	lookback := cfg.LookbackDays
	if *lookbackDays > 0 {
		lookback = *lookbackDays
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		log.Println("recompute interrupted, cancelling")
		cancel()
	}()

	metricsSrv := &http.Server{Addr: cfg.MetricsAddress, Handler: promhttp.Handler()}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()
	defer metricsSrv.Close()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	repo := persistence.NewRepository(pool)

	today := acwr.Day(time.Now().UTC())
	since := today.AddDate(0, 0, -(lookback - 1))

	users, err := repo.UsersWithActivitySince(ctx, *tenantID, since)
	if err != nil {
		log.Fatalf("failed to list users: %v", err)
	}
	if len(users) == 0 {
		log.Printf("no users with activity since %s, nothing to do", since.Format("2006-01-02"))
		return
	}

	dates := make([]time.Time, 0, lookback)
	for day := since; !day.After(today); day = day.AddDate(0, 0, 1) {
		dates = append(dates, day)
	}

	requests := make([]batch.Request, 0, len(users))
	for _, userID := range users {
		requests = append(requests, batch.Request{UserID: userID, Dates: dates})
	}

	service := batch.NewBulkService(repo, batch.Config{
		ChronicWindowDays: cfg.ChronicPeriodDays,
		DecayRate:         cfg.DecayRate,
		Concurrency:       cfg.BulkConcurrency,
	})

	summary := service.Recompute(ctx, *tenantID, requests)

	log.Printf("bulk recompute %s finished: users=%d rows=%d failures=%d elapsed=%s",
		summary.RunID, summary.Users, summary.Rows, len(summary.Failures), summary.Elapsed)
	for _, failure := range summary.Failures {
		log.Errorf("user %s failed: %s", failure.UserID, failure.Err)
	}
	if len(summary.Failures) > 0 {
		os.Exit(1)
	}
}
