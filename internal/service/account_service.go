package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maheshrc27/postcast/internal/models"
	"github.com/maheshrc27/postcast/internal/repository"
)

type AccountService interface {
	List(ctx context.Context, userID int64) ([]*models.SocialAccount, error)
	Delete(ctx context.Context, userID, accountID int64) error
}

type accountService struct {
	sa repository.SocialAccountRepository
}

func NewAccountService(sa repository.SocialAccountRepository) AccountService {
	return &accountService{sa: sa}
}

func (s *accountService) List(ctx context.Context, userID int64) ([]*models.SocialAccount, error) {
	if userID == 0 {
		return nil, invalid("user is not valid")
	}

	accounts, err := s.sa.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting social accounts: %w", err)
	}

	return accounts, nil
}

// Delete disconnects an account. Scheduled posts for its platform stay in
// place and fail with a missing-account error until another account is
// connected.
func (s *accountService) Delete(ctx context.Context, userID, accountID int64) error {
	if userID == 0 {
		return invalid("user is not valid")
	}

	if accountID == 0 {
		return invalid("account id is not valid")
	}

	isValid, err := s.sa.CheckByUserID(ctx, accountID, userID)
	if err != nil {
		return err
	}

	if !isValid {
		slog.Info("social account not owned by user", "account_id", accountID, "user_id", userID)
		return repository.ErrAccountNotFound
	}

	if err = s.sa.Remove(ctx, accountID); err != nil {
		return fmt.Errorf("error removing account: %w", err)
	}

	slog.Info("social account removed", "account_id", accountID, "user_id", userID)
	return nil
}
