// Package mocks holds testify mocks shared by service and handler tests.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/oksasatya/user-registration-service/internal/domain/entity"
	"github.com/oksasatya/user-registration-service/internal/domain/repository"
)

// UserRepository is a mock implementation of repository.UserRepository.
// WithinTx runs the callback against the same mock unless an error is stubbed.
type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) Create(ctx context.Context, u *entity.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *UserRepository) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *UserRepository) FindAll(ctx context.Context) ([]*entity.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.User), args.Error(1)
}

func (m *UserRepository) SaveAll(ctx context.Context, users []*entity.User) error {
	args := m.Called(ctx, users)
	return args.Error(0)
}

func (m *UserRepository) SoftDeleteByIDs(ctx context.Context, ids []int64) (int64, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).(int64), args.Error(1)
}

func (m *UserRepository) WithinTx(ctx context.Context, fn func(tx repository.UserRepository) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(m)
}

// Notifier records notifications.
type Notifier struct {
	mock.Mock
}

func (m *Notifier) Notify(ctx context.Context, to, subject, body string) {
	m.Called(ctx, to, subject, body)
}

// UserIndex is a mock implementation of the search index.
type UserIndex struct {
	mock.Mock
}

func (m *UserIndex) Put(ctx context.Context, u *entity.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *UserIndex) MarkDeleted(ctx context.Context, ids []int64) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

func (m *UserIndex) Search(ctx context.Context, q string, size int) ([]*entity.User, error) {
	args := m.Called(ctx, q, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.User), args.Error(1)
}
