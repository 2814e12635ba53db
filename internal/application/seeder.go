package application

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-user-directory/internal/domain/entity"
	repo "github.com/oksasatya/go-user-directory/internal/domain/repository"
)

// SampleUsers returns the fixed records inserted by Seed.
func SampleUsers() []entity.User {
	return []entity.User{
		{
			Email:       "john@example.com",
			FirstName:   "John",
			LastName:    "Doe",
			BirthDate:   civil.Date{Year: 1990, Month: 5, Day: 15},
			Address:     "123 Main St",
			PhoneNumber: "1234567890",
		},
		{
			Email:       "jane@example.com",
			FirstName:   "Jane",
			LastName:    "Doe",
			BirthDate:   civil.Date{Year: 1992, Month: 8, Day: 21},
			Address:     "456 Oak St",
			PhoneNumber: "9876543210",
		},
	}
}

// Seed inserts the sample users directly through the repository. It does not check
// for existing rows, so every run adds two more.
func Seed(ctx context.Context, r repo.UserRepository, logger *logrus.Logger) ([]entity.User, error) {
	users := SampleUsers()
	for i := range users {
		if err := r.Save(ctx, &users[i]); err != nil {
			return nil, fmt.Errorf("seed user %s: %w", users[i].Email, err)
		}
		if logger != nil {
			logger.WithFields(logrus.Fields{"user_id": users[i].ID, "email": users[i].Email}).Info("seeded user")
		}
	}
	return users, nil
}
