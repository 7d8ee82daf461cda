package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront-backend/internal/apperr"
	"storefront-backend/internal/model"
	"storefront-backend/internal/repository"

	"gorm.io/gorm"
)

type SubscriptionService interface {
	ListMine(ctx context.Context, userID string) ([]*model.Subscription, error)
	// CancelMine cancels the user's active subscription. When the paid
	// period has not run out yet the subscription sits in
	// PENDING_CANCELLATION until the next billing date.
	CancelMine(ctx context.Context, userID string) (*model.Subscription, error)
	PauseMine(ctx context.Context, userID string) (*model.Subscription, error)
	ResumeMine(ctx context.Context, userID string) (*model.Subscription, error)
}

type subscriptionServiceImpl struct {
	subRepo repository.SubscriptionRepository
}

func NewSubscriptionService(subRepo repository.SubscriptionRepository) SubscriptionService {
	return &subscriptionServiceImpl{
		subRepo: subRepo,
	}
}

func (s *subscriptionServiceImpl) ListMine(ctx context.Context, userID string) ([]*model.Subscription, error) {
	return s.subRepo.ListByUser(ctx, userID)
}

func (s *subscriptionServiceImpl) CancelMine(ctx context.Context, userID string) (*model.Subscription, error) {
	sub, err := s.activeOrPaused(ctx, userID)
	if err != nil {
		return nil, err
	}

	status := model.SubCanceled
	if sub.NextBillingAt != nil && sub.NextBillingAt.After(time.Now()) {
		status = model.SubPendingCancellation
	}

	if err := s.subRepo.UpdateStatus(ctx, sub.ID, status); err != nil {
		return nil, fmt.Errorf("update subscription status: %w", err)
	}

	sub.Status = status
	return sub, nil
}

func (s *subscriptionServiceImpl) PauseMine(ctx context.Context, userID string) (*model.Subscription, error) {
	sub, err := s.activeOrPaused(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub.Status != model.SubActive {
		return nil, apperr.Business(apperr.CodeConflict, "subscription is not active")
	}

	if err := s.subRepo.UpdateStatus(ctx, sub.ID, model.SubPaused); err != nil {
		return nil, fmt.Errorf("update subscription status: %w", err)
	}

	sub.Status = model.SubPaused
	return sub, nil
}

func (s *subscriptionServiceImpl) ResumeMine(ctx context.Context, userID string) (*model.Subscription, error) {
	subs, err := s.subRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}

	for _, sub := range subs {
		if sub.Status == model.SubPaused {
			if err := s.subRepo.UpdateStatus(ctx, sub.ID, model.SubActive); err != nil {
				return nil, fmt.Errorf("update subscription status: %w", err)
			}
			sub.Status = model.SubActive
			return sub, nil
		}
	}

	return nil, apperr.NotFound("paused subscription")
}

func (s *subscriptionServiceImpl) activeOrPaused(ctx context.Context, userID string) (*model.Subscription, error) {
	sub, err := s.subRepo.FindActiveByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("active subscription")
		}
		return nil, fmt.Errorf("find active subscription: %w", err)
	}
	return sub, nil
}
