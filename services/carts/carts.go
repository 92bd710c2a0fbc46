package carts

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/junaidrashid-git/treatnaturally-api/apperr"
	"github.com/junaidrashid-git/treatnaturally-api/database"
	"github.com/junaidrashid-git/treatnaturally-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ItemInput adds a product to a cart. Adding a product that is already in
// the cart increments its quantity and overwrites the variation and the
// discounted price.
type ItemInput struct {
	ProductID               uint
	Quantity                int
	Variation               *string
	FinalPriceAfterDiscount decimal.NullDecimal
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) Create(ctx context.Context) (*models.Cart, error) {
	cart := models.Cart{ID: uuid.NewString()}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&cart).Error; err != nil {
		return nil, fmt.Errorf("create cart: %w", err)
	}
	cart.Items = []models.CartItem{}
	return &cart, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Cart, error) {
	return s.load(s.db.WithContext(ctx), id)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cart_id = ?", id).Delete(&models.CartItem{}).Error; err != nil {
			return fmt.Errorf("delete cart items: %w", err)
		}
		res := tx.Where("id = ?", id).Delete(&models.Cart{})
		if res.Error != nil {
			return fmt.Errorf("delete cart: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.NotFoundf("no cart with id %s", id)
		}
		return nil
	})
}

func (s *Service) AddItem(ctx context.Context, cartID string, in ItemInput) (*models.Cart, error) {
	if in.Quantity < 1 {
		return nil, apperr.Validationf("quantity must be at least 1")
	}
	if err := checkDiscount(in.FinalPriceAfterDiscount); err != nil {
		return nil, err
	}

	var out *models.Cart
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockCart(tx, cartID); err != nil {
			return err
		}
		if err := productExists(tx, in.ProductID); err != nil {
			return err
		}

		var item models.CartItem
		err := tx.Where("cart_id = ? AND product_id = ?", cartID, in.ProductID).First(&item).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			item = models.CartItem{
				CartID:                  cartID,
				ProductID:               in.ProductID,
				Variation:               in.Variation,
				Quantity:                in.Quantity,
				FinalPriceAfterDiscount: in.FinalPriceAfterDiscount,
			}
			if err := tx.Omit(clause.Associations).Create(&item).Error; err != nil {
				return fmt.Errorf("add cart item: %w", err)
			}
		case err != nil:
			return fmt.Errorf("load cart item: %w", err)
		default:
			if err := tx.Model(&models.CartItem{}).Where("id = ?", item.ID).Updates(map[string]any{
				"quantity":                   item.Quantity + in.Quantity,
				"variation":                  in.Variation,
				"final_price_after_discount": in.FinalPriceAfterDiscount,
			}).Error; err != nil {
				return fmt.Errorf("update cart item: %w", err)
			}
		}

		out, err = s.load(tx, cartID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) UpdateItem(ctx context.Context, cartID string, itemID uint, quantity int) (*models.Cart, error) {
	if quantity < 1 {
		return nil, apperr.Validationf("quantity must be at least 1")
	}
	var out *models.Cart
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockCart(tx, cartID); err != nil {
			return err
		}
		res := tx.Model(&models.CartItem{}).
			Where("id = ? AND cart_id = ?", itemID, cartID).
			Update("quantity", quantity)
		if res.Error != nil {
			return fmt.Errorf("update cart item: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.NotFoundf("no item %d in cart %s", itemID, cartID)
		}
		var err error
		out, err = s.load(tx, cartID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) RemoveItem(ctx context.Context, cartID string, itemID uint) (*models.Cart, error) {
	var out *models.Cart
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockCart(tx, cartID); err != nil {
			return err
		}
		res := tx.Where("id = ? AND cart_id = ?", itemID, cartID).Delete(&models.CartItem{})
		if res.Error != nil {
			return fmt.Errorf("delete cart item: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.NotFoundf("no item %d in cart %s", itemID, cartID)
		}
		var err error
		out, err = s.load(tx, cartID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) load(db *gorm.DB, id string) (*models.Cart, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	var cart models.Cart
	err := db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Items.Product").
		First(&cart, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("no cart with id %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	return &cart, nil
}

// lockCart serializes item changes with checkout of the same cart.
func lockCart(tx *gorm.DB, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	var cart models.Cart
	err := database.ForUpdate(tx).Select("id").First(&cart, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFoundf("no cart with id %s", id)
	}
	if err != nil {
		return fmt.Errorf("load cart: %w", err)
	}
	return nil
}

func productExists(tx *gorm.DB, id uint) error {
	var count int64
	if err := tx.Model(&models.Product{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("load product: %w", err)
	}
	if count == 0 {
		return apperr.Validationf("product %d does not exist", id)
	}
	return nil
}

func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperr.NotFoundf("no cart with id %s", id)
	}
	return nil
}

func checkDiscount(d decimal.NullDecimal) error {
	if !d.Valid {
		return nil
	}
	if d.Decimal.IsNegative() || !d.Decimal.Equal(d.Decimal.Round(2)) {
		return apperr.Validationf("final_price_after_discount must be a non-negative amount with at most 2 decimal places")
	}
	return nil
}
