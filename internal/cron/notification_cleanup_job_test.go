package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hoangkimbao/garage-backend/pkg/logger"
)

type fakeNotificationsRepo struct {
	cutoff  time.Time
	deleted int64
	err     error
}

func (f *fakeNotificationsRepo) DeleteReadOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return f.deleted, f.err
}

func TestNotificationCleanupJobUsesRetentionWindow(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test"})
	repo := &fakeNotificationsRepo{deleted: 7}
	job, err := NewNotificationCleanupJob(NotificationCleanupJobParams{
		Logger:     logg,
		Repository: repo,
		Retention:  10,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if age := time.Until(repo.cutoff); age > -9*24*time.Hour {
		t.Fatalf("cutoff should be ~10 days back, got %v", repo.cutoff)
	}
}

func TestNotificationCleanupJobPropagatesErrors(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test"})
	repo := &fakeNotificationsRepo{err: errors.New("db down")}
	job, err := NewNotificationCleanupJob(NotificationCleanupJobParams{Logger: logg, Repository: repo})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
