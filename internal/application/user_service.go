package application

import (
	"context"
	"errors"
	"expvar"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/user-registration-service/internal/domain/entity"
	repo "github.com/oksasatya/user-registration-service/internal/domain/repository"
	"github.com/oksasatya/user-registration-service/pkg/helpers"
	mailtpl "github.com/oksasatya/user-registration-service/pkg/mailer/templates"
	"github.com/oksasatya/user-registration-service/pkg/validation"
)

var (
	ErrValidation        = errors.New("invalid request")
	ErrUserNotFound      = errors.New("user not found")
	ErrDuplicateIdentity = errors.New("username or email already taken")

	// Batch variants; errors.Is still matches the base kind.
	ErrUsersNotFound       = fmt.Errorf("%w: at least one of the provided user IDs does not exist", ErrUserNotFound)
	ErrDuplicateIdentities = fmt.Errorf("%w: at least one of the usernames/emails provided already taken", ErrDuplicateIdentity)
)

var (
	registeredTotal  = expvar.NewInt("users_registered_total")
	updatedTotal     = expvar.NewInt("users_updated_total")
	softDeletedTotal = expvar.NewInt("users_soft_deleted_total")
)

// Notifier delivers a best-effort email. Implementations absorb their own failures.
type Notifier interface {
	Notify(ctx context.Context, to, subject, body string)
}

// UserIndex is an optional searchable copy of users.
type UserIndex interface {
	Put(ctx context.Context, u *entity.User) error
	MarkDeleted(ctx context.Context, ids []int64) error
	Search(ctx context.Context, q string, size int) ([]*entity.User, error)
}

// NotificationConfig controls the registration email.
type NotificationConfig struct {
	Enabled     bool
	Subject     string
	CompanyName string
}

type Service struct {
	Repo     repo.UserRepository
	Notifier Notifier
	Index    UserIndex
	Mail     NotificationConfig
	Logger   *logrus.Logger
}

func NewService(users repo.UserRepository, notifier Notifier, index UserIndex, mail NotificationConfig, logger *logrus.Logger) *Service {
	return &Service{
		Repo:     users,
		Notifier: notifier,
		Index:    index,
		Mail:     mail,
		Logger:   logger,
	}
}

type CreateUserInput struct {
	Email     string `json:"email" validate:"notblank,email"`
	Username  string `json:"username" validate:"notblank,username"`
	Password  string `json:"password" validate:"notblank,password"`
	FirstName string `json:"firstName" validate:"notblank,personname"`
	LastName  string `json:"lastName" validate:"notblank,personname"`
}

// UpdateUserInput is a partial update: nil fields keep their stored value.
type UpdateUserInput struct {
	ID        *int64  `json:"id" validate:"required"`
	Email     *string `json:"email" validate:"omitnil,email"`
	Username  *string `json:"username" validate:"omitnil,username"`
	Password  *string `json:"password" validate:"omitnil,password"`
	FirstName *string `json:"firstName" validate:"omitnil,personname"`
	LastName  *string `json:"lastName" validate:"omitnil,personname"`
}

func invalid(err error) error {
	return errors.Join(ErrValidation, err)
}

// Create registers a new user and sends the confirmation email when enabled.
func (s *Service) Create(ctx context.Context, in CreateUserInput) (*entity.User, error) {
	if err := validation.Struct(in); err != nil {
		return nil, invalid(err)
	}

	hash, err := helpers.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &entity.User{
		Email:     in.Email,
		Username:  in.Username,
		Password:  hash,
		FirstName: in.FirstName,
		LastName:  in.LastName,
	}

	err = s.Repo.WithinTx(ctx, func(tx repo.UserRepository) error {
		return tx.Create(ctx, u)
	})
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, fmt.Errorf("%w: %v", ErrDuplicateIdentity, err)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	registeredTotal.Add(1)
	if s.Logger != nil {
		helpers.LogInfo(s.Logger, "user registered", logrus.Fields{"user_id": u.ID})
	}

	s.notifyRegistered(ctx, u)
	s.index(ctx, u)
	return u, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	u, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return u, nil
}

// ListAll returns every user, soft-deleted ones included.
func (s *Service) ListAll(ctx context.Context) ([]*entity.User, error) {
	users, err := s.Repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if users == nil {
		users = []*entity.User{}
	}
	return users, nil
}

// UpdateMany applies a batch of partial updates atomically: either every
// update is stored or none is.
func (s *Service) UpdateMany(ctx context.Context, in []UpdateUserInput) ([]*entity.User, error) {
	if len(in) == 0 {
		return nil, invalid(errors.New("at least one update is required"))
	}
	for i := range in {
		if err := validation.Struct(in[i]); err != nil {
			return nil, invalid(err)
		}
	}

	// hash outside the transaction; bcrypt is slow
	hashes := make([]string, len(in))
	for i, req := range in {
		if req.Password == nil {
			continue
		}
		h, err := helpers.HashPassword(*req.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		hashes[i] = h
	}

	var updated []*entity.User
	err := s.Repo.WithinTx(ctx, func(tx repo.UserRepository) error {
		byID := make(map[int64]*entity.User, len(in))
		updated = make([]*entity.User, 0, len(in))
		for i, req := range in {
			u, ok := byID[*req.ID]
			if !ok {
				cur, err := tx.GetByID(ctx, *req.ID)
				if err != nil {
					return err
				}
				u = cur
				byID[u.ID] = u
				updated = append(updated, u)
			}
			applyUpdate(u, req, hashes[i])
		}
		return tx.SaveAll(ctx, updated)
	})
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrNotFound):
			return nil, ErrUsersNotFound
		case errors.Is(err, repo.ErrDuplicate):
			return nil, fmt.Errorf("%w: %v", ErrDuplicateIdentities, err)
		default:
			return nil, fmt.Errorf("update users: %w", err)
		}
	}

	updatedTotal.Add(int64(len(updated)))
	for _, u := range updated {
		s.index(ctx, u)
	}
	return updated, nil
}

// applyUpdate copies every present field of req onto u.
func applyUpdate(u *entity.User, req UpdateUserInput, passwordHash string) {
	if req.Email != nil {
		u.Email = *req.Email
	}
	if req.Username != nil {
		u.Username = *req.Username
	}
	if req.Password != nil {
		u.Password = passwordHash
	}
	if req.FirstName != nil {
		u.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		u.LastName = *req.LastName
	}
}

// SoftDeleteMany flags the given users as deleted. Unknown ids are ignored.
func (s *Service) SoftDeleteMany(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return invalid(errors.New("at least one id is required"))
	}
	var affected int64
	err := s.Repo.WithinTx(ctx, func(tx repo.UserRepository) error {
		n, err := tx.SoftDeleteByIDs(ctx, ids)
		affected = n
		return err
	})
	if err != nil {
		return fmt.Errorf("soft delete users: %w", err)
	}

	softDeletedTotal.Add(affected)
	if s.Index != nil {
		if err := s.Index.MarkDeleted(ctx, ids); err != nil && s.Logger != nil {
			s.Logger.WithError(err).WithField("user_ids", ids).Warn("es mark deleted failed")
		}
	}
	return nil
}

// SearchUsers queries the search index. Without an index it returns no results.
func (s *Service) SearchUsers(ctx context.Context, q string, size int) ([]*entity.User, error) {
	if s.Index == nil {
		return []*entity.User{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	return s.Index.Search(ctx, q, size)
}

func (s *Service) notifyRegistered(ctx context.Context, u *entity.User) {
	if !s.Mail.Enabled || s.Notifier == nil {
		return
	}
	body, err := mailtpl.Render(mailtpl.RegistrationConfirmed, mailtpl.RegistrationData{
		CompanyName: s.Mail.CompanyName,
		Username:    u.Username,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
	})
	if err != nil {
		if s.Logger != nil {
			helpers.LogError(s.Logger, "render registration email failed", err, logrus.Fields{"user_id": u.ID})
		}
		return
	}
	if s.Logger != nil {
		s.Logger.WithField("user_id", u.ID).Info("sending registration confirmation email")
	}
	s.Notifier.Notify(ctx, u.Email, s.Mail.Subject, body)
}

func (s *Service) index(ctx context.Context, u *entity.User) {
	if s.Index == nil {
		return
	}
	if err := s.Index.Put(ctx, u); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Warn("es index failed")
	}
}
