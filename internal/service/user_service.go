package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/Sumit771/1-2-1/internal/domain"
	"github.com/Sumit771/1-2-1/internal/repository"
	"github.com/Sumit771/1-2-1/pkg/log"
)

const minSearchLength = 2

type UserService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// List returns every user except the caller.
func (s *UserService) List(ctx context.Context, callerID string) ([]domain.PublicUser, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return publicExcept(users, callerID), nil
}

// Search matches username or email. Queries shorter than two characters
// match nothing.
func (s *UserService) Search(ctx context.Context, callerID, query string) ([]domain.PublicUser, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < minSearchLength {
		return []domain.PublicUser{}, nil
	}
	users, err := s.userRepo.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("searching users: %w", err)
	}
	return publicExcept(users, callerID), nil
}

func publicExcept(users []domain.User, callerID string) []domain.PublicUser {
	out := make([]domain.PublicUser, 0, len(users))
	for i := range users {
		if users[i].ID == callerID {
			continue
		}
		out = append(out, users[i].Public())
	}
	return out
}

// --- Admin ---

func (s *UserService) AdminList(ctx context.Context) ([]domain.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

func (s *UserService) AdminCreate(ctx context.Context, input RegisterInput) (*domain.User, error) {
	return createUser(ctx, s.userRepo, input)
}

type UpdateUserInput struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
}

// AdminUpdate changes the non-empty fields of input.
func (s *UserService) AdminUpdate(ctx context.Context, id string, input UpdateUserInput) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	if input.Username != "" {
		username := strings.ToLower(strings.TrimSpace(input.Username))
		if err := s.ensureFree(ctx, id, s.userRepo.GetByUsername, username); err != nil {
			return nil, err
		}
		user.Username = username
	}
	if input.Email != "" {
		email := strings.ToLower(strings.TrimSpace(input.Email))
		if err := s.ensureFree(ctx, id, s.userRepo.GetByEmail, email); err != nil {
			return nil, err
		}
		user.Email = email
	}
	if input.Password != "" {
		hash, err := hashPassword(input.Password)
		if err != nil {
			return nil, fmt.Errorf("hashing password: %w", err)
		}
		user.PasswordHash = hash
	}
	user.UpdatedAt = time.Now()

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) ensureFree(ctx context.Context, id string, get func(context.Context, string) (*domain.User, error), value string) error {
	existing, err := get(ctx, value)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != id {
		return ErrUserExists
	}
	return nil
}

func (s *UserService) AdminDelete(ctx context.Context, id string) error {
	ok, err := s.userRepo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("deleting user %s: %w", id, err)
	}
	if !ok {
		return ErrUserNotFound
	}
	return nil
}

// SeedDefaults tops the store up to n users. Seeded users get a random
// four digit id, username user<id>, email user<id>@example.com and
// password <id>-9.
func (s *UserService) SeedDefaults(ctx context.Context, n int) ([]domain.PublicUser, error) {
	count, err := s.userRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting users: %w", err)
	}

	var seeded []domain.PublicUser
	for attempts := 0; count+len(seeded) < n && attempts < 100*n; attempts++ {
		id := strconv.Itoa(1000 + rand.IntN(9000))
		existing, err := s.userRepo.GetByID(ctx, id)
		if err != nil {
			return seeded, err
		}
		if existing != nil {
			continue
		}

		user, err := insertUser(ctx, s.userRepo, id, RegisterInput{
			Username: "user" + id,
			Email:    "user" + id + "@example.com",
			Password: id + "-9",
		})
		if errors.Is(err, domain.ErrConflict) {
			continue
		}
		if err != nil {
			return seeded, fmt.Errorf("seeding user %s: %w", id, err)
		}
		seeded = append(seeded, user.Public())
	}

	if len(seeded) > 0 {
		l := log.Ctx(ctx)
		l.Info().Int("count", len(seeded)).Msg("seeded default users")
	}
	return seeded, nil
}
