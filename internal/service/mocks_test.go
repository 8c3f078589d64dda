package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/utafrali/addressbook/internal/domain"
	"github.com/utafrali/addressbook/internal/repository"
)

// --- Mock Repositories ---

type mockAddressRepository struct {
	mock.Mock
}

func (m *mockAddressRepository) FindBy(ctx context.Context, criteria []repository.Criterion, opts repository.FindOptions) ([]domain.Address, error) {
	args := m.Called(ctx, criteria, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Address), args.Error(1)
}

func (m *mockAddressRepository) FindOneBy(ctx context.Context, criteria []repository.Criterion, opts repository.FindOptions) (*domain.Address, error) {
	args := m.Called(ctx, criteria, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Address), args.Error(1)
}

func (m *mockAddressRepository) Save(ctx context.Context, address *domain.Address) error {
	args := m.Called(ctx, address)
	return args.Error(0)
}

func (m *mockAddressRepository) Delete(ctx context.Context, criteria []repository.Criterion) error {
	args := m.Called(ctx, criteria)
	return args.Error(0)
}

type mockMemberRepository struct {
	mock.Mock
}

func (m *mockMemberRepository) FindByID(ctx context.Context, id int64) (*domain.Member, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Member), args.Error(1)
}

type mockRenderCache struct {
	mock.Mock
}

func (m *mockRenderCache) Get(ctx context.Context, key repository.RenderKey) (string, bool, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *mockRenderCache) Set(ctx context.Context, key repository.RenderKey, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *mockRenderCache) InvalidateAddress(ctx context.Context, addressID int64) error {
	args := m.Called(ctx, addressID)
	return args.Error(0)
}

// --- Mock Event Publisher ---

type mockEventPublisher struct {
	mock.Mock
}

func (m *mockEventPublisher) PublishAddressSaved(ctx context.Context, addr *domain.Address, created bool) error {
	args := m.Called(ctx, addr, created)
	return args.Error(0)
}

func (m *mockEventPublisher) PublishAddressDeleted(ctx context.Context, id, memberID int64, storeID int) error {
	args := m.Called(ctx, id, memberID, storeID)
	return args.Error(0)
}
