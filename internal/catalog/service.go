package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/hoangkimbao/garage-backend/pkg/db/models"
	pkgerrors "github.com/hoangkimbao/garage-backend/pkg/errors"
)

// Service exposes catalog browsing and admin part management.
type Service interface {
	ListPartGroups(ctx context.Context) ([]models.PartGroup, error)
	ListParts(ctx context.Context, categoryIDs []int64) ([]models.Part, error)
	GetPart(ctx context.Context, partID int64) (*models.Part, error)
	PartsByCategory(ctx context.Context, categoryID int64) (*models.PartCategory, []models.Part, error)
	Search(ctx context.Context, query string) (*SearchResult, error)

	ListServices(ctx context.Context) ([]models.GarageService, error)
	GetServiceBySlug(ctx context.Context, slug string) (*models.GarageService, error)

	CreatePart(ctx context.Context, input PartInput) (*models.Part, error)
	UpdatePart(ctx context.Context, partID int64, input PartInput) (*models.Part, error)
	DeletePart(ctx context.Context, partID int64) error
	SearchParts(ctx context.Context, query string) ([]models.Part, error)
}

// SearchResult bundles matches across parts and services for the storefront
// search box.
type SearchResult struct {
	Query    string                 `json:"query"`
	Parts    []models.Part          `json:"parts"`
	Services []models.GarageService `json:"services"`
}

// PartInput carries the writable part fields for admin management.
type PartInput struct {
	CategoryID  int64
	Name        string
	PartNumber  string
	Brand       string
	Description *string
	Tags        []string
	Price       decimal.Decimal
	Quantity    int
	ImageURL    *string
}

type service struct {
	repo Repository
}

// NewService builds a catalog service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListPartGroups(ctx context.Context) ([]models.PartGroup, error) {
	groups, err := s.repo.ListPartGroups(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list part groups")
	}
	return groups, nil
}

func (s *service) ListParts(ctx context.Context, categoryIDs []int64) ([]models.Part, error) {
	parts, err := s.repo.ListParts(ctx, PartFilter{CategoryIDs: categoryIDs})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list parts")
	}
	return parts, nil
}

func (s *service) GetPart(ctx context.Context, partID int64) (*models.Part, error) {
	if partID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "part id required")
	}
	part, err := s.repo.FindPartByID(ctx, partID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "part not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load part")
	}
	return part, nil
}

func (s *service) PartsByCategory(ctx context.Context, categoryID int64) (*models.PartCategory, []models.Part, error) {
	if categoryID <= 0 {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "category id required")
	}
	category, err := s.repo.FindCategoryByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}
	parts, err := s.repo.ListParts(ctx, PartFilter{CategoryIDs: []int64{categoryID}})
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list category parts")
	}
	return category, parts, nil
}

func (s *service) Search(ctx context.Context, query string) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	result := &SearchResult{Query: query, Parts: []models.Part{}, Services: []models.GarageService{}}
	if query == "" {
		return result, nil
	}

	parts, err := s.repo.ListParts(ctx, PartFilter{Query: query})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search parts")
	}
	services, err := s.repo.SearchServices(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search services")
	}

	result.Parts = parts
	result.Services = services
	return result, nil
}

func (s *service) ListServices(ctx context.Context) ([]models.GarageService, error) {
	services, err := s.repo.ListServices(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list services")
	}
	return services, nil
}

func (s *service) GetServiceBySlug(ctx context.Context, slug string) (*models.GarageService, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "service slug required")
	}
	svc, err := s.repo.FindServiceBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "service not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load service")
	}
	return svc, nil
}

func (s *service) CreatePart(ctx context.Context, input PartInput) (*models.Part, error) {
	if err := validatePartInput(input); err != nil {
		return nil, err
	}
	part := &models.Part{
		CategoryID:  input.CategoryID,
		Name:        input.Name,
		PartNumber:  input.PartNumber,
		Brand:       input.Brand,
		Description: input.Description,
		Tags:        pq.StringArray(input.Tags),
		Price:       input.Price,
		Quantity:    input.Quantity,
		ImageURL:    input.ImageURL,
	}
	created, err := s.repo.CreatePart(ctx, part)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create part")
	}
	return created, nil
}

func (s *service) UpdatePart(ctx context.Context, partID int64, input PartInput) (*models.Part, error) {
	if err := validatePartInput(input); err != nil {
		return nil, err
	}
	if _, err := s.GetPart(ctx, partID); err != nil {
		return nil, err
	}

	updates := map[string]any{
		"category_id": input.CategoryID,
		"name":        input.Name,
		"part_number": input.PartNumber,
		"brand":       input.Brand,
		"description": input.Description,
		"tags":        pq.StringArray(input.Tags),
		"price":       input.Price,
		"quantity":    input.Quantity,
		"image_url":   input.ImageURL,
	}
	if err := s.repo.UpdatePart(ctx, partID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update part")
	}
	return s.GetPart(ctx, partID)
}

func (s *service) DeletePart(ctx context.Context, partID int64) error {
	if _, err := s.GetPart(ctx, partID); err != nil {
		return err
	}
	if err := s.repo.DeletePart(ctx, partID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete part")
	}
	return nil
}

func (s *service) SearchParts(ctx context.Context, query string) ([]models.Part, error) {
	parts, err := s.repo.ListParts(ctx, PartFilter{Query: strings.TrimSpace(query)})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search parts")
	}
	return parts, nil
}

func validatePartInput(input PartInput) error {
	if input.CategoryID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "category id required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "part name required")
	}
	if strings.TrimSpace(input.PartNumber) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "part number required")
	}
	if input.Price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	if input.Quantity < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative")
	}
	return nil
}
