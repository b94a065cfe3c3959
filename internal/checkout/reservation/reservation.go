package reservation

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hoangkimbao/garage-backend/pkg/db/models"
	pkgerrors "github.com/hoangkimbao/garage-backend/pkg/errors"
)

// PartReservationRequest asks for qty units of a part to be taken from stock.
type PartReservationRequest struct {
	PartID int64
	Qty    int
}

// ReserveParts decrements stock for every request inside the caller's
// transaction. The operation is all-or-nothing: the first part that cannot
// cover its requested quantity aborts the whole reservation, and the returned
// error names that part. Rows are locked FOR UPDATE in part-id order so two
// concurrent checkouts cannot both take the last unit.
func ReserveParts(ctx context.Context, tx *gorm.DB, requests []PartReservationRequest) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction handle is required")
	}
	if len(requests) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "no parts to reserve")
	}

	merged, err := mergeRequests(requests)
	if err != nil {
		return err
	}

	for _, req := range merged {
		var part models.Part
		err := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", req.PartID).
			First(&part).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "part is no longer available").
					WithDetails(map[string]any{"part_id": req.PartID})
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "locking part stock")
		}

		if part.Quantity < req.Qty {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient stock").
				WithDetails(map[string]any{
					"part_id":   part.ID,
					"part_name": part.Name,
					"requested": req.Qty,
					"available": part.Quantity,
				})
		}

		result := tx.WithContext(ctx).
			Model(&models.Part{}).
			Where("id = ?", part.ID).
			UpdateColumn("quantity", gorm.Expr("quantity - ?", req.Qty))
		if result.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, result.Error, "decrementing part stock")
		}
	}

	return nil
}

// ReleaseParts returns previously reserved quantities to stock. Used when an
// order is voided before payment and the retention policy discards it.
func ReleaseParts(ctx context.Context, tx *gorm.DB, requests []PartReservationRequest) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction handle is required")
	}

	merged, err := mergeRequests(requests)
	if err != nil {
		return err
	}

	for _, req := range merged {
		result := tx.WithContext(ctx).
			Model(&models.Part{}).
			Where("id = ?", req.PartID).
			UpdateColumn("quantity", gorm.Expr("quantity + ?", req.Qty))
		if result.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, result.Error, "restoring part stock")
		}
	}

	return nil
}

// mergeRequests validates quantities and collapses duplicate part ids so each
// row is locked exactly once. The result is sorted by part id to keep lock
// acquisition order stable across concurrent transactions.
func mergeRequests(requests []PartReservationRequest) ([]PartReservationRequest, error) {
	totals := make(map[int64]int, len(requests))
	for _, req := range requests {
		if req.PartID <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "part id is required")
		}
		if req.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid quantity %d for part %d", req.Qty, req.PartID))
		}
		totals[req.PartID] += req.Qty
	}

	merged := make([]PartReservationRequest, 0, len(totals))
	for partID, qty := range totals {
		merged = append(merged, PartReservationRequest{PartID: partID, Qty: qty})
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].PartID < merged[j].PartID })
	return merged, nil
}
