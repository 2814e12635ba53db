package application

import (
	"context"
	"errors"
	"expvar"
	"time"

	"cloud.google.com/go/civil"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-user-directory/internal/domain/entity"
	repo "github.com/oksasatya/go-user-directory/internal/domain/repository"
	"github.com/oksasatya/go-user-directory/internal/domain/rules"
	"github.com/oksasatya/go-user-directory/pkg/apperror"
)

// per-operation counters served by the debug module at /debug/vars
var userOps = expvar.NewMap("user_ops")

// EventPublisher publishes user lifecycle events. *helpers.RabbitPublisher satisfies it.
type EventPublisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// SearchCache stores birth-date range results. Any write invalidates every entry.
// Get reports the cache generation it read; Put must store under that generation
// so rows read before a concurrent write are never served after it.
type SearchCache interface {
	Get(ctx context.Context, from, to civil.Date) ([]entity.User, int64, bool)
	Put(ctx context.Context, gen int64, from, to civil.Date, users []entity.User)
	Invalidate(ctx context.Context)
}

// Policy carries the configuration the service enforces.
type Policy struct {
	MinAge int
	// UpsertMissing makes Update insert under the requested id when no user has it;
	// otherwise Update reports not found.
	UpsertMissing bool
}

type Service struct {
	Repo   repo.UserRepository
	Policy Policy
	Events EventPublisher
	Cache  SearchCache
	Logger *logrus.Logger
	Today  func() civil.Date
}

func NewService(repo repo.UserRepository, policy Policy, events EventPublisher, cache SearchCache, logger *logrus.Logger) *Service {
	return &Service{
		Repo:   repo,
		Policy: policy,
		Events: events,
		Cache:  cache,
		Logger: logger,
		Today:  func() civil.Date { return civil.DateOf(time.Now()) },
	}
}

// Create validates the minimum age and persists u, assigning its id.
func (s *Service) Create(ctx context.Context, u *entity.User) (*entity.User, error) {
	if err := rules.MinimumAge(u.BirthDate, s.Today(), s.Policy.MinAge); err != nil {
		return nil, err
	}
	u.ID = 0
	if err := s.Repo.Save(ctx, u); err != nil {
		return nil, apperror.Wrap(err, "create user")
	}
	userOps.Add("created", 1)
	s.afterWrite(ctx, entity.EventUserCreated, u.ID, u)
	return u, nil
}

// Update merges in onto the user with the given id. created reports whether the
// user did not exist and was inserted under id.
func (s *Service) Update(ctx context.Context, id int64, in *entity.User) (*entity.User, bool, error) {
	existing, err := s.Repo.FindByID(ctx, id)
	switch {
	case err == nil:
		existing.MergeFrom(*in)
		if err := s.Repo.Save(ctx, existing); err != nil {
			return nil, false, apperror.Wrap(err, "update user")
		}
		userOps.Add("updated", 1)
		s.afterWrite(ctx, entity.EventUserUpdated, existing.ID, existing)
		return existing, false, nil

	case errors.Is(err, repo.ErrUserNotFound):
		if !s.Policy.UpsertMissing {
			return nil, false, apperror.NotFoundf("User with id %d not found", id)
		}
		in.ID = id
		if err := s.Repo.Save(ctx, in); err != nil {
			return nil, false, apperror.Wrap(err, "insert user")
		}
		userOps.Add("upserted", 1)
		s.afterWrite(ctx, entity.EventUserCreated, in.ID, in)
		return in, true, nil

	default:
		return nil, false, apperror.Wrap(err, "find user")
	}
}

// Delete removes the user with the given id, checking existence first so that a
// missing id is reported the same way by every store.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.Repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return apperror.NotFoundf("User with id %d not found", id)
		}
		return apperror.Wrap(err, "find user")
	}
	if err := s.Repo.DeleteByID(ctx, id); err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return apperror.NotFoundf("User with id %d not found", id)
		}
		return apperror.Wrap(err, "delete user")
	}
	userOps.Add("deleted", 1)
	s.afterWrite(ctx, entity.EventUserDeleted, id, nil)
	return nil
}

// FindByID returns the user with the given id; found is false when there is none.
func (s *Service) FindByID(ctx context.Context, id int64) (*entity.User, bool, error) {
	u, err := s.Repo.FindByID(ctx, id)
	if errors.Is(err, repo.ErrUserNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperror.Wrap(err, "find user")
	}
	return u, true, nil
}

// Search returns users whose birth date lies in [from, to].
func (s *Service) Search(ctx context.Context, from, to civil.Date) ([]entity.User, error) {
	if err := rules.DateRangeOrder(from, to); err != nil {
		return nil, err
	}
	userOps.Add("searched", 1)
	gen := int64(-1)
	if s.Cache != nil {
		users, g, ok := s.Cache.Get(ctx, from, to)
		if ok {
			userOps.Add("search_cache_hits", 1)
			return users, nil
		}
		gen = g
	}
	users, err := s.Repo.FindByBirthDateBetween(ctx, from, to)
	if err != nil {
		return nil, apperror.Wrap(err, "search users")
	}
	if users == nil {
		users = []entity.User{}
	}
	if s.Cache != nil {
		s.Cache.Put(ctx, gen, from, to, users)
	}
	return users, nil
}

// afterWrite drops cached searches and publishes the lifecycle event. Both are best effort.
func (s *Service) afterWrite(ctx context.Context, eventType string, id int64, u *entity.User) {
	if s.Cache != nil {
		s.Cache.Invalidate(ctx)
	}
	if s.Events == nil {
		return
	}
	ev := entity.UserEvent{Type: eventType, UserID: id, OccurredAt: time.Now().UTC()}
	if u != nil {
		cp := *u
		ev.User = &cp
	}
	if err := s.Events.PublishJSON(ctx, ev); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithFields(logrus.Fields{"event": eventType, "user_id": id}).Warn("publish user event failed")
	}
}
