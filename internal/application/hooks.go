package application

import (
	"context"
	"fmt"

	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/domain"
)

// MarkProductChanged flags a created or edited product for a full sync.
func (s *Service) MarkProductChanged(ctx context.Context, productID int64) error {
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return fmt.Errorf("load product %d: %w", productID, err)
	}
	if p == nil || !p.Status.Syncable() {
		return nil
	}
	if err := s.states.MarkFull(ctx, productID, s.now()); err != nil {
		return err
	}
	s.selector.InvalidateCount()
	return nil
}

// MarkStockChanged flags a product for a light sync; a pending full sync wins.
func (s *Service) MarkStockChanged(ctx context.Context, productID int64) error {
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return fmt.Errorf("load product %d: %w", productID, err)
	}
	if p == nil || !p.Status.Syncable() {
		return nil
	}
	if err := s.states.MarkLight(ctx, productID, s.now()); err != nil {
		return err
	}
	s.selector.InvalidateCount()
	return nil
}

// OnProductStatusTransition flags a full sync when a product enters or
// leaves a syncable status.
func (s *Service) OnProductStatusTransition(ctx context.Context, productID int64, from, to domain.ProductStatus) error {
	if from == to || !(from.Syncable() || to.Syncable()) {
		return nil
	}
	if err := s.states.MarkFull(ctx, productID, s.now()); err != nil {
		return err
	}
	s.selector.InvalidateCount()
	return nil
}
