package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/foreman/internal/db"
	"github.com/alexanderramin/foreman/internal/domain"
	"github.com/alexanderramin/foreman/internal/repository"
)

// DefaultLeaseTTL applies when no lease time-to-live is configured.
const DefaultLeaseTTL = 15 * time.Minute

type leaseService struct {
	store    repository.LeaseStore
	plans    repository.PlanRepo
	ttl      time.Duration
	clock    Clock
	observer UseCaseObserver
}

func NewLeaseService(
	store repository.LeaseStore,
	plans repository.PlanRepo,
	ttl time.Duration,
	clock Clock,
	observers ...UseCaseObserver,
) LeaseService {
	if ttl <= 0 {
		ttl = DefaultLeaseTTL
	}
	return &leaseService{
		store:    store,
		plans:    plans,
		ttl:      ttl,
		clock:    clock,
		observer: useCaseObserverOrNoop(observers),
	}
}

func (s *leaseService) Acquire(ctx context.Context, planID, actorID string, ttl time.Duration) (lease *domain.PlanEditLease, err error) {
	if ttl <= 0 {
		ttl = s.ttl
	}
	fields := map[string]any{"plan_id": planID, "actor": actorID, "ttl": ttl.String()}
	defer observe(ctx, s.observer, "acquire-lease", time.Now(), fields, &err)

	if actorID == "" {
		return nil, domain.Validationf("actor is required")
	}
	if _, err = s.plans.GetByID(ctx, planID); err != nil {
		return nil, err
	}
	lease, err = s.store.Acquire(ctx, planID, actorID, s.clock.now(), ttl)
	if err != nil {
		return nil, err
	}
	fields["expires_at"] = lease.ExpiresAt.Format(time.RFC3339)
	return lease, nil
}

func (s *leaseService) Renew(ctx context.Context, planID, actorID string) (lease *domain.PlanEditLease, err error) {
	fields := map[string]any{"plan_id": planID, "actor": actorID}
	defer observe(ctx, s.observer, "renew-lease", time.Now(), fields, &err)

	lease, err = s.store.Renew(ctx, planID, actorID, s.clock.now(), s.ttl)
	if err != nil {
		return nil, err
	}
	fields["expires_at"] = lease.ExpiresAt.Format(time.RFC3339)
	return lease, nil
}

func (s *leaseService) Release(ctx context.Context, planID, actorID string) (err error) {
	fields := map[string]any{"plan_id": planID, "actor": actorID}
	defer observe(ctx, s.observer, "release-lease", time.Now(), fields, &err)

	return s.store.Release(ctx, planID, actorID, s.clock.now())
}

func (s *leaseService) Get(ctx context.Context, planID string) (*domain.PlanEditLease, error) {
	return s.store.Get(ctx, planID, s.clock.now())
}

// Check is evaluated against the store on every call; a grant is never cached.
func (s *leaseService) Check(ctx context.Context, planID, actorID string) (*domain.LeaseGrant, error) {
	return s.check(ctx, s.store, planID, actorID)
}

func (s *leaseService) CheckTx(ctx context.Context, tx db.DBTX, planID, actorID string) (*domain.LeaseGrant, error) {
	store := s.store
	if scoped, ok := store.(repository.TxScopedLeaseStore); ok {
		store = scoped.WithTx(tx)
	}
	return s.check(ctx, store, planID, actorID)
}

func (s *leaseService) check(ctx context.Context, store repository.LeaseStore, planID, actorID string) (*domain.LeaseGrant, error) {
	now := s.clock.now()
	lease, err := store.Get(ctx, planID, now)
	if errors.Is(err, domain.ErrLeaseNotFound) {
		return nil, fmt.Errorf("plan %s has no live lease: %w", planID, domain.ErrNotHolder)
	}
	if err != nil {
		return nil, err
	}
	if !lease.HeldBy(actorID, now) {
		return nil, fmt.Errorf("plan %s is leased to %s: %w", planID, lease.HolderID, domain.ErrNotHolder)
	}
	return domain.NewLeaseGrant(lease), nil
}
