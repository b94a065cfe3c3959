package contact

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/hoangkimbao/garage-backend/pkg/db/models"
	pkgerrors "github.com/hoangkimbao/garage-backend/pkg/errors"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	dsn := "file:contact_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.ContactMessage{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	svc, err := NewService(db)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestSubmitAndList(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.Submit(ctx, MessageInput{
		Name:    "Tran Thi B",
		Email:   "b@example.com",
		Subject: "Opening hours",
		Message: "Are you open on Sundays?",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if first.ID == 0 {
		t.Fatal("expected assigned id")
	}

	if _, err := svc.Submit(ctx, MessageInput{
		Name:    "Le Van C",
		Email:   "c@example.com",
		Subject: "Quote",
		Message: "How much is a brake service?",
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	messages, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].Subject != "Quote" {
		t.Fatalf("expected newest first, got %q", messages[0].Subject)
	}
}

func TestSubmitValidation(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Submit(ctx, MessageInput{Name: "X", Email: "not-an-email", Subject: "S", Message: "M"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for bad email, got %v", err)
	}

	_, err = svc.Submit(ctx, MessageInput{Name: " ", Email: "x@example.com", Subject: "S", Message: "M"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for blank name, got %v", err)
	}
}
