package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/lollopanta/Projex-sub000/internal/domain"
)

// NewUserInput contains the parameters for creating a user.
// Fields are ordered to minimize memory padding.
type NewUserInput struct {
	AvailabilityByDay map[string]int // Weekday name -> minutes (optional)
	ID                string         // User ID (optional, generated if empty)
	Name              string         // Display name (required)
	WeeklyCapacity    int            // Minutes per week (optional, 0 = engine default)
}

// NewUserOutput contains the result of creating a user.
type NewUserOutput struct {
	UserID string `json:"userId"`
}

// NewUser is the use case for creating a user.
type NewUser struct {
	repo   domain.Repository
	logger domain.Logger
}

// NewNewUser creates a new NewUser use case.
func NewNewUser(repo domain.Repository, logger domain.Logger) *NewUser {
	return &NewUser{repo: repo, logger: logger}
}

// Execute validates and stores the user.
func (uc *NewUser) Execute(_ context.Context, in NewUserInput) (*NewUserOutput, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.ErrEmptyName
	}
	if in.WeeklyCapacity < 0 {
		return nil, fmt.Errorf("weekly capacity must not be negative: %d", in.WeeklyCapacity)
	}

	id := in.ID
	if id == "" {
		id = uuid.NewString()
	}
	user := &domain.UserRecord{
		ID:                id,
		Name:              name,
		WeeklyCapacity:    in.WeeklyCapacity,
		AvailabilityByDay: in.AvailabilityByDay,
	}
	// Reject what the snapshot model could not read back.
	if _, err := domain.ToUserSnapshot(user); err != nil {
		return nil, err
	}

	err := uc.repo.Atomic(func(tx domain.EntityStore) error {
		existing, err := tx.GetUser(id)
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}
		if existing != nil {
			return fmt.Errorf("user %s already exists", id)
		}
		if err := tx.SaveUser(user); err != nil {
			return fmt.Errorf("save user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if uc.logger != nil {
		uc.logger.Info("", "user", fmt.Sprintf("created %s: %q", id, name))
	}
	return &NewUserOutput{UserID: id}, nil
}
