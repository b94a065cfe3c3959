package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/hoangkimbao/garage-backend/pkg/db/models"
	pkgerrors "github.com/hoangkimbao/garage-backend/pkg/errors"
	pkgredis "github.com/hoangkimbao/garage-backend/pkg/redis"
)

// cartTTL caps how long an abandoned cart survives. Every write refreshes it.
const cartTTL = 14 * 24 * time.Hour

// store is the slice of the redis client the cart needs.
type store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// partGetter resolves parts for stock checks and pricing. The catalog
// repository satisfies it.
type partGetter interface {
	FindPartByID(ctx context.Context, partID int64) (*models.Part, error)
}

// Service manages per-user shopping carts stored in redis.
type Service struct {
	store store
	parts partGetter
}

// NewService builds a cart service.
func NewService(store store, parts partGetter) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if parts == nil {
		return nil, fmt.Errorf("part getter required")
	}
	return &Service{store: store, parts: parts}, nil
}

// Add puts qty units of a part into the user's cart. The requested total for
// the part (existing cart quantity plus qty) must not exceed what is in stock.
func (s *Service) Add(ctx context.Context, userID, partID int64, qty int) (*View, error) {
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	part, err := s.loadPart(ctx, partID)
	if err != nil {
		return nil, err
	}

	cart, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	inCart := 0
	if idx := cart.find(partID); idx >= 0 {
		inCart = cart.Items[idx].Qty
	}
	if inCart+qty > part.Quantity {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "not enough stock").
			WithDetails(map[string]any{
				"part_id":   part.ID,
				"part_name": part.Name,
				"in_cart":   inCart,
				"requested": qty,
				"available": part.Quantity,
			})
	}

	if idx := cart.find(partID); idx >= 0 {
		cart.Items[idx].Qty += qty
	} else {
		cart.Items = append(cart.Items, Item{PartID: partID, Qty: qty, UnitPrice: part.Price})
	}

	if err := s.save(ctx, userID, cart); err != nil {
		return nil, err
	}
	return s.render(ctx, cart)
}

// SetQty replaces the quantity of a part already in the cart. A qty of zero
// removes the line.
func (s *Service) SetQty(ctx context.Context, userID, partID int64, qty int) (*View, error) {
	if qty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative")
	}
	if qty == 0 {
		return s.Remove(ctx, userID, partID)
	}

	part, err := s.loadPart(ctx, partID)
	if err != nil {
		return nil, err
	}
	if qty > part.Quantity {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "not enough stock").
			WithDetails(map[string]any{
				"part_id":   part.ID,
				"part_name": part.Name,
				"requested": qty,
				"available": part.Quantity,
			})
	}

	cart, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	idx := cart.find(partID)
	if idx < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "part is not in the cart")
	}
	cart.Items[idx].Qty = qty

	if err := s.save(ctx, userID, cart); err != nil {
		return nil, err
	}
	return s.render(ctx, cart)
}

// Remove drops a part from the cart. Removing a part that is not in the cart
// is a no-op.
func (s *Service) Remove(ctx context.Context, userID, partID int64) (*View, error) {
	cart, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	idx := cart.find(partID)
	if idx >= 0 {
		cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
		if err := s.save(ctx, userID, cart); err != nil {
			return nil, err
		}
	}
	return s.render(ctx, cart)
}

// Get renders the user's cart with current catalog prices.
func (s *Service) Get(ctx context.Context, userID int64) (*View, error) {
	cart, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.render(ctx, cart)
}

// Snapshot returns the raw cart lines for checkout.
func (s *Service) Snapshot(ctx context.Context, userID int64) ([]Item, error) {
	cart, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return cart.Items, nil
}

// Clear deletes the cart entirely.
func (s *Service) Clear(ctx context.Context, userID int64) error {
	if err := s.store.Del(ctx, pkgredis.CartKey(userID)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

func (s *Service) loadPart(ctx context.Context, partID int64) (*models.Part, error) {
	if partID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "part id required")
	}
	part, err := s.parts.FindPartByID(ctx, partID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "part not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load part")
	}
	return part, nil
}

func (s *Service) load(ctx context.Context, userID int64) (*Cart, error) {
	raw, err := s.store.Get(ctx, pkgredis.CartKey(userID))
	if err != nil {
		if errors.Is(err, pkgredis.Nil) {
			return &Cart{}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	var cart Cart
	if err := json.Unmarshal([]byte(raw), &cart); err != nil {
		// A corrupt blob should not lock the user out of shopping.
		return &Cart{}, nil
	}
	return &cart, nil
}

func (s *Service) save(ctx context.Context, userID int64, cart *Cart) error {
	if len(cart.Items) == 0 {
		return s.Clear(ctx, userID)
	}
	raw, err := json.Marshal(cart)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode cart")
	}
	if err := s.store.Set(ctx, pkgredis.CartKey(userID), string(raw), cartTTL); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
	}
	return nil
}

// render resolves the cart against the catalog. Lines are priced at their
// add-time snapshot; stock and part details come from the live rows. Parts
// deleted since they were added are skipped rather than failing the whole view.
func (s *Service) render(ctx context.Context, cart *Cart) (*View, error) {
	view := &View{Lines: []Line{}}
	for _, item := range cart.Items {
		part, err := s.parts.FindPartByID(ctx, item.PartID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "price cart line")
		}
		price := item.UnitPrice
		if price.IsZero() {
			// Blobs written before prices were snapshotted carry no unit price.
			price = part.Price
		}
		line := Line{
			PartID:     part.ID,
			Name:       part.Name,
			PartNumber: part.PartNumber,
			Brand:      part.Brand,
			UnitPrice:  price,
			Qty:        item.Qty,
			LineTotal:  price.Mul(decimal.NewFromInt(int64(item.Qty))),
			Available:  part.Quantity,
		}
		view.Lines = append(view.Lines, line)
		view.Total = view.Total.Add(line.LineTotal)
	}
	return view, nil
}
