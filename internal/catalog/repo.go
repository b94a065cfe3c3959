package catalog

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/hoangkimbao/garage-backend/pkg/db/models"
)

// Repository defines persistence operations for the parts and services catalog.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	ListPartGroups(ctx context.Context) ([]models.PartGroup, error)
	FindCategoryByID(ctx context.Context, categoryID int64) (*models.PartCategory, error)
	ListParts(ctx context.Context, filter PartFilter) ([]models.Part, error)
	FindPartByID(ctx context.Context, partID int64) (*models.Part, error)
	CreatePart(ctx context.Context, part *models.Part) (*models.Part, error)
	UpdatePart(ctx context.Context, partID int64, updates map[string]any) error
	DeletePart(ctx context.Context, partID int64) error

	ListServices(ctx context.Context) ([]models.GarageService, error)
	FindServiceBySlug(ctx context.Context, slug string) (*models.GarageService, error)
	SearchServices(ctx context.Context, query string) ([]models.GarageService, error)
}

// PartFilter narrows part listings. A nil/empty filter lists everything,
// newest first.
type PartFilter struct {
	CategoryIDs []int64
	Query       string
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ListPartGroups(ctx context.Context) ([]models.PartGroup, error) {
	var groups []models.PartGroup
	err := r.db.WithContext(ctx).
		Preload("Categories").
		Order("name ASC").
		Find(&groups).Error
	if err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *repository) FindCategoryByID(ctx context.Context, categoryID int64) (*models.PartCategory, error) {
	var category models.PartCategory
	err := r.db.WithContext(ctx).
		Where("id = ?", categoryID).
		First(&category).Error
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *repository) ListParts(ctx context.Context, filter PartFilter) ([]models.Part, error) {
	query := r.db.WithContext(ctx).Model(&models.Part{}).Preload("Category")
	if len(filter.CategoryIDs) > 0 {
		query = query.Where("category_id IN ?", filter.CategoryIDs)
	}
	if filter.Query != "" {
		pattern := "%" + strings.ToLower(filter.Query) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(part_number) LIKE ? OR LOWER(brand) LIKE ?", pattern, pattern, pattern)
	}

	var parts []models.Part
	if err := query.Order("id DESC").Find(&parts).Error; err != nil {
		return nil, err
	}
	return parts, nil
}

func (r *repository) FindPartByID(ctx context.Context, partID int64) (*models.Part, error) {
	var part models.Part
	err := r.db.WithContext(ctx).
		Preload("Category").
		Where("id = ?", partID).
		First(&part).Error
	if err != nil {
		return nil, err
	}
	return &part, nil
}

func (r *repository) CreatePart(ctx context.Context, part *models.Part) (*models.Part, error) {
	if err := r.db.WithContext(ctx).Create(part).Error; err != nil {
		return nil, err
	}
	return part, nil
}

func (r *repository) UpdatePart(ctx context.Context, partID int64, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Part{}).
		Where("id = ?", partID).
		Updates(updates).Error
}

func (r *repository) DeletePart(ctx context.Context, partID int64) error {
	return r.db.WithContext(ctx).
		Where("id = ?", partID).
		Delete(&models.Part{}).Error
}

func (r *repository) ListServices(ctx context.Context) ([]models.GarageService, error) {
	var services []models.GarageService
	err := r.db.WithContext(ctx).
		Order("name ASC").
		Find(&services).Error
	if err != nil {
		return nil, err
	}
	return services, nil
}

func (r *repository) FindServiceBySlug(ctx context.Context, slug string) (*models.GarageService, error) {
	var service models.GarageService
	err := r.db.WithContext(ctx).
		Where("slug = ?", slug).
		First(&service).Error
	if err != nil {
		return nil, err
	}
	return &service, nil
}

func (r *repository) SearchServices(ctx context.Context, query string) ([]models.GarageService, error) {
	pattern := "%" + strings.ToLower(query) + "%"
	var services []models.GarageService
	err := r.db.WithContext(ctx).
		Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern).
		Order("name ASC").
		Find(&services).Error
	if err != nil {
		return nil, err
	}
	return services, nil
}
