package services

import (
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"favor-market/internal/models"
)

// AuthService handles wallet-based login
type AuthService struct {
	db *gorm.DB
}

// NewAuthService creates a new AuthService
func NewAuthService(db *gorm.DB) *AuthService {
	return &AuthService{db: db}
}

// ProcessWalletLogin finds or creates a user by wallet address and stamps the
// login time.
func (s *AuthService) ProcessWalletLogin(walletAddress string) (*models.User, error) {
	var user models.User

	result := s.db.Where("wallet_address = ?", walletAddress).First(&user)

	if result.Error == gorm.ErrRecordNotFound {
		user = models.User{
			WalletAddress: walletAddress,
		}
		if err := s.db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		log.Printf("New user created: wallet=%s (ID: %d)", walletAddress, user.ID)
	} else if result.Error != nil {
		return nil, fmt.Errorf("database error: %w", result.Error)
	} else {
		log.Printf("User logged in: wallet=%s (ID: %d)", walletAddress, user.ID)
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := s.db.Model(&models.User{}).Where("id = ?", user.ID).Update("last_login_at", now).Error; err != nil {
		log.Printf("Warning: failed to update last login for user %d: %v", user.ID, err)
	}

	return &user, nil
}

// GetUserByID retrieves a user by their ID
func (s *AuthService) GetUserByID(userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
