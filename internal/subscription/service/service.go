package service

import (
	"context"
	"log"
	"time"

	"subadmin/internal/api/dto"
	"subadmin/internal/subscription"
	"subadmin/internal/subscription/events"
)

type SubscriptionRepository interface {
	List(ctx context.Context) ([]subscription.Subscription, error)
	GetByID(ctx context.Context, id int64) (*subscription.Subscription, error)
	Create(ctx context.Context, f subscription.Fields) (*subscription.Subscription, error)
	Update(ctx context.Context, id int64, f subscription.Fields) (*subscription.Subscription, error)
	Delete(ctx context.Context, id int64) error
}

type Service struct {
	repo      SubscriptionRepository
	publisher events.Publisher
	now       func() time.Time
}

func NewService(repo SubscriptionRepository, publisher events.Publisher) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Service{repo: repo, publisher: publisher, now: time.Now}
}

func (s *Service) List(ctx context.Context) ([]subscription.Subscription, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (*subscription.Subscription, error) {
	return s.repo.GetByID(ctx, id)
}

// Create expects a request that already passed dto.Validate.
func (s *Service) Create(ctx context.Context, req dto.SubscriptionRequest) (*subscription.Subscription, error) {
	f, err := req.Fields()
	if err != nil {
		return nil, err
	}
	sub, err := s.repo.Create(ctx, f)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.OpCreated, sub.ID, sub)
	return sub, nil
}

func (s *Service) Update(ctx context.Context, id int64, req dto.SubscriptionRequest) (*subscription.Subscription, error) {
	f, err := req.Fields()
	if err != nil {
		return nil, err
	}
	sub, err := s.repo.Update(ctx, id, f)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.OpUpdated, sub.ID, sub)
	return sub, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, events.OpDeleted, id, nil)
	return nil
}

func (s *Service) publish(ctx context.Context, op string, id int64, sub *subscription.Subscription) {
	e := events.Event{Op: op, ID: id, Subscription: sub, At: s.now()}
	if err := s.publisher.Publish(ctx, e); err != nil {
		log.Printf("[api] failed to publish %s event for subscription %d: %v", op, id, err)
	}
}
