package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cartsync/internal/domain"
	cartrepo "cartsync/internal/repository/cart"

	"github.com/go-playground/validator/v10"
)

type Service struct {
	repo        cartRepo
	productRepo productRepo
	validate    *validator.Validate
}

type cartRepo interface {
	Get(ctx context.Context, identityID string) (domain.Cart, error)
	AddLine(ctx context.Context, identityID string, product domain.Product, quantity int) error
	SetQuantity(ctx context.Context, identityID, productID string, quantity int) error
	RemoveLine(ctx context.Context, identityID, productID string) error
	Clear(ctx context.Context, identityID string) error
	Merge(ctx context.Context, identityID string, lines []cartrepo.MergeLine) error
}

type productRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

func New(repo cartRepo, productRepo productRepo) *Service {
	return &Service{repo: repo, productRepo: productRepo, validate: validator.New()}
}

// LineInput is one requested line change.
type LineInput struct {
	ProductID string `validate:"required"`
	Quantity  int    `validate:"gte=1"`
}

func (s *Service) Get(ctx context.Context, identityID string) (domain.Cart, error) {
	return s.repo.Get(ctx, identityID)
}

// AddItem creates the line or increments it, then returns the cart.
func (s *Service) AddItem(ctx context.Context, identityID string, in LineInput) (domain.Cart, error) {
	in.ProductID = strings.TrimSpace(in.ProductID)
	if err := s.check(in); err != nil {
		return domain.Cart{}, err
	}
	product, err := s.productRepo.GetByID(ctx, in.ProductID)
	if err != nil {
		return domain.Cart{}, err
	}
	if err := s.repo.AddLine(ctx, identityID, *product, in.Quantity); err != nil {
		return domain.Cart{}, err
	}
	return s.repo.Get(ctx, identityID)
}

// UpdateQuantity sets an absolute quantity on an existing line.
func (s *Service) UpdateQuantity(ctx context.Context, identityID string, in LineInput) (domain.Cart, error) {
	in.ProductID = strings.TrimSpace(in.ProductID)
	if err := s.check(in); err != nil {
		return domain.Cart{}, err
	}
	if err := s.repo.SetQuantity(ctx, identityID, in.ProductID, in.Quantity); err != nil {
		return domain.Cart{}, err
	}
	return s.repo.Get(ctx, identityID)
}

func (s *Service) RemoveItem(ctx context.Context, identityID, productID string) (domain.Cart, error) {
	if err := s.repo.RemoveLine(ctx, identityID, productID); err != nil {
		return domain.Cart{}, err
	}
	return s.repo.Get(ctx, identityID)
}

func (s *Service) Clear(ctx context.Context, identityID string) error {
	return s.repo.Clear(ctx, identityID)
}

// Sync merges a client's lines into the stored cart. Stored lines keep their
// quantities; new products are added with the client's quantity.
func (s *Service) Sync(ctx context.Context, identityID string, lines []LineInput) (domain.Cart, error) {
	merge := make([]cartrepo.MergeLine, 0, len(lines))
	seen := make(map[string]int, len(lines))
	for _, in := range lines {
		in.ProductID = strings.TrimSpace(in.ProductID)
		if err := s.check(in); err != nil {
			return domain.Cart{}, err
		}
		if idx, ok := seen[in.ProductID]; ok {
			merge[idx].Quantity += in.Quantity
			continue
		}
		seen[in.ProductID] = len(merge)
		merge = append(merge, cartrepo.MergeLine{ProductID: in.ProductID, Quantity: in.Quantity})
	}
	if err := s.repo.Merge(ctx, identityID, merge); err != nil {
		return domain.Cart{}, err
	}
	return s.repo.Get(ctx, identityID)
}

func (s *Service) check(in LineInput) error {
	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				if fe.Field() == "Quantity" {
					return domain.ErrInvalidQuantity
				}
			}
		}
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return nil
}
