package application_test

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-user-directory/internal/application"
	"github.com/oksasatya/go-user-directory/internal/domain/entity"
	"github.com/oksasatya/go-user-directory/internal/domain/repository"
	"github.com/oksasatya/go-user-directory/pkg/apperror"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Save(ctx context.Context, u *entity.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id int64) (*entity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) DeleteByID(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepository) FindByBirthDateBetween(ctx context.Context, from, to civil.Date) ([]entity.User, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.User), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishJSON(ctx context.Context, body any) error {
	args := m.Called(ctx, body)
	return args.Error(0)
}

type cacheKey struct {
	gen      int64
	from, to civil.Date
}

type fakeCache struct {
	gen         int64
	entries     map[cacheKey][]entity.User
	invalidated int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[cacheKey][]entity.User{}}
}

func (f *fakeCache) Get(_ context.Context, from, to civil.Date) ([]entity.User, int64, bool) {
	u, ok := f.entries[cacheKey{f.gen, from, to}]
	return u, f.gen, ok
}

func (f *fakeCache) Put(_ context.Context, gen int64, from, to civil.Date, users []entity.User) {
	f.entries[cacheKey{gen, from, to}] = users
}

func (f *fakeCache) Invalidate(context.Context) {
	f.gen++
	f.invalidated++
}

var today = civil.Date{Year: 2026, Month: 10, Day: 18}

func newService(r *MockUserRepository, upsert bool) *application.Service {
	svc := application.NewService(r, application.Policy{MinAge: 18, UpsertMissing: upsert}, nil, nil, nil)
	svc.Today = func() civil.Date { return today }
	return svc
}

func sampleUser(birth civil.Date) *entity.User {
	return &entity.User{
		Email:       "john@example.com",
		FirstName:   "John",
		LastName:    "Doe",
		BirthDate:   birth,
		Address:     "123 Street",
		PhoneNumber: "123456789",
	}
}

func assignID(id int64) func(mock.Arguments) {
	return func(args mock.Arguments) {
		args.Get(1).(*entity.User).ID = id
	}
}

func TestService_Create_Success(t *testing.T) {
	mockRepo := new(MockUserRepository)
	svc := newService(mockRepo, true)

	mockRepo.On("Save", mock.Anything, mock.AnythingOfType("*entity.User")).
		Run(assignID(42)).
		Return(nil).
		Once()

	created, err := svc.Create(context.Background(), sampleUser(today.AddDays(-20*365)))

	require.NoError(t, err)
	assert.Equal(t, int64(42), created.ID)
	mockRepo.AssertExpectations(t)
}

func TestService_Create_Underage(t *testing.T) {
	mockRepo := new(MockUserRepository)
	svc := newService(mockRepo, true)

	_, err := svc.Create(context.Background(), sampleUser(civil.Date{Year: 2016, Month: 10, Day: 18}))

	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
	assert.Contains(t, err.Error(), "18")
	mockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestService_Create_Boundary(t *testing.T) {
	mockRepo := new(MockUserRepository)
	svc := newService(mockRepo, true)
	mockRepo.On("Save", mock.Anything, mock.Anything).Run(assignID(1)).Return(nil)

	_, err := svc.Create(context.Background(), sampleUser(civil.Date{Year: 2008, Month: 10, Day: 18}))
	assert.NoError(t, err)

	_, err = svc.Create(context.Background(), sampleUser(civil.Date{Year: 2008, Month: 10, Day: 19}))
	assert.True(t, apperror.IsValidation(err))
	mockRepo.AssertNumberOfCalls(t, "Save", 1)
}

func TestService_Create_StoreFailureIsInternal(t *testing.T) {
	mockRepo := new(MockUserRepository)
	svc := newService(mockRepo, true)
	mockRepo.On("Save", mock.Anything, mock.Anything).Return(errors.New("connection refused")).Once()

	_, err := svc.Create(context.Background(), sampleUser(civil.Date{Year: 1990, Month: 1, Day: 1}))

	require.Error(t, err)
	assert.Equal(t, apperror.Internal, apperror.KindOf(err))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestService_Create_PublishesEventAndInvalidatesCache(t *testing.T) {
	mockRepo := new(MockUserRepository)
	pub := new(MockPublisher)
	cache := newFakeCache()
	svc := application.NewService(mockRepo, application.Policy{MinAge: 18}, pub, cache, nil)
	svc.Today = func() civil.Date { return today }

	mockRepo.On("Save", mock.Anything, mock.Anything).Run(assignID(5)).Return(nil).Once()
	pub.On("PublishJSON", mock.Anything, mock.MatchedBy(func(ev entity.UserEvent) bool {
		return ev.Type == entity.EventUserCreated && ev.UserID == 5 && ev.User != nil && ev.User.Email == "john@example.com"
	})).Return(errors.New("broker down")).Once()

	_, err := svc.Create(context.Background(), sampleUser(civil.Date{Year: 1990, Month: 1, Day: 1}))

	require.NoError(t, err, "publish failures must not fail the write")
	assert.Equal(t, 1, cache.invalidated)
	pub.AssertExpectations(t)
}

func TestService_Update_Existing(t *testing.T) {
	mockRepo := new(MockUserRepository)
	svc := newService(mockRepo, true)

	existing := &entity.User{ID: 3, Email: "old@example.com", FirstName: "Old", LastName: "Name", BirthDate: civil.Date{Year: 1980, Month: 1, Day: 1}}
	mockRepo.On("FindByID", mock.Anything, int64(3)).Return(existing, nil).Once()
	mockRepo.On("Save", mock.Anything, mock.MatchedBy(func(u *entity.User) bool {
		return u.ID == 3 && u.Email == "john@example.com"
	})).Return(nil).Once()

	in := sampleUser(civil.Date{Year: 2020, Month: 1, Day: 1})
	in.ID = 77
	updated, created, err := svc.Update(context.Background(), 3, in)

	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(3), updated.ID)
	assert.Equal(t, "john@example.com", updated.Email)
	assert.Equal(t, "John", updated.FirstName)
	assert.Equal(t, "Doe", updated.LastName)
	assert.Equal(t, "123 Street", updated.Address)
	assert.Equal(t, "123456789", updated.PhoneNumber)
	assert.Equal(t, civil.Date{Year: 2020, Month: 1, Day: 1}, updated.BirthDate, "age is not re-validated on update")
	mockRepo.AssertExpectations(t)
}

func TestService_Update_MissingUpserts(t *testing.T) {
	mockRepo := new(MockUserRepository)
	svc := newService(mockRepo, true)

	mockRepo.On("FindByID", mock.Anything, int64(50)).Return(nil, repository.ErrUserNotFound).Once()
	mockRepo.On("Save", mock.Anything, mock.MatchedBy(func(u *entity.User) bool { return u.ID == 50 })).Return(nil).Once()

	in := sampleUser(civil.Date{Year: 1990, Month: 1, Day: 1})
	got, created, err := svc.Update(context.Background(), 50, in)

	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(50), got.ID)
	assert.Equal(t, "john@example.com", got.Email)
	mockRepo.AssertExpectations(t)
}

func TestService_Update_MissingRejected(t *testing.T) {
	mockRepo := new(MockUserRepository)
	svc := newService(mockRepo, false)

	mockRepo.On("FindByID", mock.Anything, int64(50)).Return(nil, repository.ErrUserNotFound).Once()

	_, _, err := svc.Update(context.Background(), 50, sampleUser(civil.Date{Year: 1990, Month: 1, Day: 1}))

	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
	mockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestService_Delete(t *testing.T) {
	mockRepo := new(MockUserRepository)
	svc := newService(mockRepo, true)

	mockRepo.On("FindByID", mock.Anything, int64(1)).Return(&entity.User{ID: 1}, nil).Once()
	mockRepo.On("DeleteByID", mock.Anything, int64(1)).Return(nil).Once()

	require.NoError(t, svc.Delete(context.Background(), 1))
	mockRepo.AssertExpectations(t)
}

func TestService_Delete_Missing(t *testing.T) {
	mockRepo := new(MockUserRepository)
	svc := newService(mockRepo, true)

	mockRepo.On("FindByID", mock.Anything, int64(999)).Return(nil, repository.ErrUserNotFound).Once()

	err := svc.Delete(context.Background(), 999)

	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
	mockRepo.AssertNotCalled(t, "DeleteByID", mock.Anything, mock.Anything)
}

func TestService_Delete_RaceLostIsNotFound(t *testing.T) {
	mockRepo := new(MockUserRepository)
	svc := newService(mockRepo, true)

	mockRepo.On("FindByID", mock.Anything, int64(1)).Return(&entity.User{ID: 1}, nil).Once()
	mockRepo.On("DeleteByID", mock.Anything, int64(1)).Return(repository.ErrUserNotFound).Once()

	assert.True(t, apperror.IsNotFound(svc.Delete(context.Background(), 1)))
}

func TestService_FindByID(t *testing.T) {
	mockRepo := new(MockUserRepository)
	svc := newService(mockRepo, true)

	mockRepo.On("FindByID", mock.Anything, int64(1)).Return(&entity.User{ID: 1}, nil).Once()
	mockRepo.On("FindByID", mock.Anything, int64(2)).Return(nil, repository.ErrUserNotFound).Once()

	u, found, err := svc.FindByID(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(1), u.ID)

	u, found, err = svc.FindByID(context.Background(), 2)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, u)
}

func TestService_Search(t *testing.T) {
	mockRepo := new(MockUserRepository)
	svc := newService(mockRepo, true)

	from := civil.Date{Year: 1980, Month: 1, Day: 1}
	to := civil.Date{Year: 1990, Month: 1, Day: 1}
	mockRepo.On("FindByBirthDateBetween", mock.Anything, from, to).Return([]entity.User{{ID: 1}}, nil).Once()

	users, err := svc.Search(context.Background(), from, to)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	_, err = svc.Search(context.Background(), to, from)
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
	mockRepo.AssertExpectations(t)
}

func TestService_Search_UsesCache(t *testing.T) {
	mockRepo := new(MockUserRepository)
	cache := newFakeCache()
	svc := application.NewService(mockRepo, application.Policy{MinAge: 18}, nil, cache, nil)

	from := civil.Date{Year: 1980, Month: 1, Day: 1}
	to := civil.Date{Year: 1990, Month: 1, Day: 1}
	mockRepo.On("FindByBirthDateBetween", mock.Anything, from, to).Return(nil, nil).Once()

	first, err := svc.Search(context.Background(), from, to)
	require.NoError(t, err)
	assert.NotNil(t, first)
	assert.Empty(t, first)

	second, err := svc.Search(context.Background(), from, to)
	require.NoError(t, err)
	assert.Empty(t, second)
	mockRepo.AssertNumberOfCalls(t, "FindByBirthDateBetween", 1)
}

func TestService_Search_WriteDuringSearchIsNotCachedStale(t *testing.T) {
	mockRepo := new(MockUserRepository)
	cache := newFakeCache()
	svc := application.NewService(mockRepo, application.Policy{MinAge: 18}, nil, cache, nil)
	svc.Today = func() civil.Date { return today }
	ctx := context.Background()

	from := civil.Date{Year: 1980, Month: 1, Day: 1}
	to := civil.Date{Year: 2000, Month: 1, Day: 1}
	born := civil.Date{Year: 1990, Month: 1, Day: 1}

	mockRepo.On("Save", mock.Anything, mock.AnythingOfType("*entity.User")).Run(assignID(1)).Return(nil).Once()
	// a create commits after the rows were read but before they are cached
	mockRepo.On("FindByBirthDateBetween", mock.Anything, from, to).
		Run(func(mock.Arguments) {
			_, err := svc.Create(ctx, sampleUser(born))
			require.NoError(t, err)
		}).
		Return([]entity.User{}, nil).Once()
	mockRepo.On("FindByBirthDateBetween", mock.Anything, from, to).
		Return([]entity.User{{ID: 1, BirthDate: born}}, nil).Once()

	first, err := svc.Search(ctx, from, to)
	require.NoError(t, err)
	assert.Empty(t, first)

	second, err := svc.Search(ctx, from, to)
	require.NoError(t, err)
	assert.Len(t, second, 1)
	mockRepo.AssertExpectations(t)
}

func TestSeed(t *testing.T) {
	mockRepo := new(MockUserRepository)
	var next int64
	mockRepo.On("Save", mock.Anything, mock.AnythingOfType("*entity.User")).
		Run(func(args mock.Arguments) {
			next++
			args.Get(1).(*entity.User).ID = next
		}).
		Return(nil).
		Twice()

	users, err := application.Seed(context.Background(), mockRepo, nil)

	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "john@example.com", users[0].Email)
	assert.Equal(t, int64(1), users[0].ID)
	assert.Equal(t, "jane@example.com", users[1].Email)
	assert.Equal(t, int64(2), users[1].ID)
	mockRepo.AssertExpectations(t)
}

func TestSeed_Failure(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockRepo.On("Save", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()

	_, err := application.Seed(context.Background(), mockRepo, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "john@example.com")
}
