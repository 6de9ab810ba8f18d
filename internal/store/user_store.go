package store

import (
	"context"
	"errors"
	"strings"

	"github.com/securedocs/backend/internal/models"
	"gorm.io/gorm"
)

type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// GetByWallet looks up a user by wallet address, case-insensitively.
func (s *UserStore) GetByWallet(ctx context.Context, address string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Where("wallet_address = ?", strings.ToLower(address)).
		First(&user).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	user.WalletAddress = strings.ToLower(user.WalletAddress)
	return s.db.WithContext(ctx).Create(user).Error
}

// SetNonce stores a fresh login nonce, creating the user on first contact.
func (s *UserStore) SetNonce(ctx context.Context, address, nonce string) (*models.User, error) {
	user, err := s.GetByWallet(ctx, address)
	if errors.Is(err, ErrNotFound) {
		user = &models.User{WalletAddress: address, Nonce: nonce}
		if err := s.Create(ctx, user); err != nil {
			return nil, err
		}
		return user, nil
	}
	if err != nil {
		return nil, err
	}

	user.Nonce = nonce
	if err := s.db.WithContext(ctx).Model(user).Update("nonce", nonce).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserStore) Save(ctx context.Context, user *models.User) error {
	return s.db.WithContext(ctx).Save(user).Error
}
