package contact

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"gorm.io/gorm"

	"github.com/hoangkimbao/garage-backend/pkg/db/models"
	pkgerrors "github.com/hoangkimbao/garage-backend/pkg/errors"
)

// MessageInput is a public contact form submission.
type MessageInput struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject" validate:"required"`
	Message string `json:"message" validate:"required"`
}

// Service stores contact form submissions and lists them for admins.
type Service struct {
	db *gorm.DB
}

// NewService builds a contact service.
func NewService(db *gorm.DB) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("db required")
	}
	return &Service{db: db}, nil
}

// Submit validates and stores a contact message.
func (s *Service) Submit(ctx context.Context, input MessageInput) (*models.ContactMessage, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	input.Subject = strings.TrimSpace(input.Subject)
	input.Message = strings.TrimSpace(input.Message)

	if input.Name == "" || input.Subject == "" || input.Message == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name, subject, and message are required")
	}
	if _, err := mail.ParseAddress(input.Email); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid email address")
	}

	message := &models.ContactMessage{
		Name:    input.Name,
		Email:   input.Email,
		Subject: input.Subject,
		Message: input.Message,
	}
	if err := s.db.WithContext(ctx).Create(message).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store contact message")
	}
	return message, nil
}

// List returns submissions newest first for the admin inbox.
func (s *Service) List(ctx context.Context) ([]models.ContactMessage, error) {
	var messages []models.ContactMessage
	err := s.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Find(&messages).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list contact messages")
	}
	return messages, nil
}
