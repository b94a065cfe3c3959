package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/hoangkimbao/garage-backend/pkg/db/models"
	pkgerrors "github.com/hoangkimbao/garage-backend/pkg/errors"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	dsn := "file:catalog_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.PartGroup{}, &models.PartCategory{}, &models.Part{}, &models.GarageService{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	svc, err := NewService(NewRepository(db))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, db
}

func seedTaxonomy(t *testing.T, db *gorm.DB) models.PartCategory {
	t.Helper()
	group := models.PartGroup{Name: "Engine " + uuid.NewString()}
	if err := db.Create(&group).Error; err != nil {
		t.Fatalf("seed group: %v", err)
	}
	category := models.PartCategory{GroupID: group.ID, Name: "Filters"}
	if err := db.Create(&category).Error; err != nil {
		t.Fatalf("seed category: %v", err)
	}
	return category
}

func TestCreateAndGetPart(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	category := seedTaxonomy(t, db)

	created, err := svc.CreatePart(ctx, PartInput{
		CategoryID: category.ID,
		Name:       "Oil Filter",
		PartNumber: "OF-100",
		Brand:      "Mann",
		Tags:       []string{"engine", "maintenance"},
		Price:      decimal.NewFromInt(150000),
		Quantity:   12,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("expected assigned id")
	}

	loaded, err := svc.GetPart(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded.Name != "Oil Filter" || loaded.Quantity != 12 {
		t.Fatalf("unexpected part %+v", loaded)
	}
}

func TestCreatePartValidation(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreatePart(ctx, PartInput{Name: "No Category", PartNumber: "X", Price: decimal.NewFromInt(1)})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	_, err = svc.CreatePart(ctx, PartInput{CategoryID: 1, Name: "Bad Price", PartNumber: "Y", Price: decimal.NewFromInt(-5)})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for negative price, got %v", err)
	}
}

func TestSearchSpansPartsAndServices(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	category := seedTaxonomy(t, db)

	if _, err := svc.CreatePart(ctx, PartInput{
		CategoryID: category.ID,
		Name:       "Brake Pad Set",
		PartNumber: "BP-7",
		Brand:      "Brembo",
		Price:      decimal.NewFromInt(420000),
	}); err != nil {
		t.Fatalf("seed part: %v", err)
	}

	desc := "Full brake system inspection"
	if err := db.Create(&models.GarageService{
		Name:        "Brake Service",
		Slug:        "brake-service",
		Description: &desc,
		Price:       decimal.NewFromInt(300000),
	}).Error; err != nil {
		t.Fatalf("seed service: %v", err)
	}

	result, err := svc.Search(ctx, "brake")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(result.Parts) != 1 || len(result.Services) != 1 {
		t.Fatalf("expected one part and one service, got %d/%d", len(result.Parts), len(result.Services))
	}

	empty, err := svc.Search(ctx, "   ")
	if err != nil {
		t.Fatalf("blank search: %v", err)
	}
	if len(empty.Parts) != 0 || len(empty.Services) != 0 {
		t.Fatal("blank query should return empty result")
	}
}

func TestPartsByCategory(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	category := seedTaxonomy(t, db)
	other := seedTaxonomy(t, db)

	for i, cat := range []models.PartCategory{category, category, other} {
		if _, err := svc.CreatePart(ctx, PartInput{
			CategoryID: cat.ID,
			Name:       "Part",
			PartNumber: uuid.NewString(),
			Brand:      "OEM",
			Price:      decimal.NewFromInt(int64(1000 * (i + 1))),
		}); err != nil {
			t.Fatalf("seed part: %v", err)
		}
	}

	loadedCategory, parts, err := svc.PartsByCategory(ctx, category.ID)
	if err != nil {
		t.Fatalf("parts by category: %v", err)
	}
	if loadedCategory.ID != category.ID {
		t.Fatalf("unexpected category %+v", loadedCategory)
	}
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(parts))
	}

	_, _, err = svc.PartsByCategory(ctx, 9999)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateAndDeletePart(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	category := seedTaxonomy(t, db)

	part, err := svc.CreatePart(ctx, PartInput{
		CategoryID: category.ID,
		Name:       "Cabin Filter",
		PartNumber: "CF-3",
		Brand:      "Bosch",
		Price:      decimal.NewFromInt(90000),
		Quantity:   4,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := svc.UpdatePart(ctx, part.ID, PartInput{
		CategoryID: category.ID,
		Name:       "Cabin Filter Premium",
		PartNumber: "CF-3",
		Brand:      "Bosch",
		Price:      decimal.NewFromInt(110000),
		Quantity:   9,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Cabin Filter Premium" || updated.Quantity != 9 {
		t.Fatalf("unexpected update result %+v", updated)
	}

	if err := svc.DeletePart(ctx, part.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.GetPart(ctx, part.ID); err == nil {
		t.Fatal("deleted part should not load")
	}
}

func TestGetServiceBySlug(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()

	if err := db.Create(&models.GarageService{
		Name:  "Oil Change",
		Slug:  "oil-change",
		Price: decimal.NewFromInt(200000),
	}).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	loaded, err := svc.GetServiceBySlug(ctx, "oil-change")
	if err != nil {
		t.Fatalf("get by slug: %v", err)
	}
	if loaded.Name != "Oil Change" {
		t.Fatalf("unexpected service %+v", loaded)
	}

	_, err = svc.GetServiceBySlug(ctx, "missing")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
