package services

import (
	"context"
	"regexp"

	"gorm.io/gorm"

	"github.com/tbourn/go-booking-backend/internal/domain"
	"github.com/tbourn/go-booking-backend/internal/repo"
)

// telegramIDRE accepts private (positive) and group (negative) chat ids.
var telegramIDRE = regexp.MustCompile(`^-?[0-9]{1,20}$`)

// ProfileService manages the per-owner notification profile.
type ProfileService struct {
	DB *gorm.DB
}

// Ensure returns userID's profile, creating an empty one on first sight.
func (s *ProfileService) Ensure(ctx context.Context, userID string) (*domain.UserProfile, error) {
	return repo.EnsureProfile(ctx, s.DB, userID)
}

// Update sets the telegram chat id and username of userID's profile. Blank
// values clear the field; a non-numeric id yields ErrInvalidTelegramID.
func (s *ProfileService) Update(ctx context.Context, userID string, telegramID, telegramUsername *string) (*domain.UserProfile, error) {
	telegramID = normalizeOptional(telegramID)
	telegramUsername = normalizeOptional(telegramUsername)
	if telegramID != nil && !telegramIDRE.MatchString(*telegramID) {
		return nil, ErrInvalidTelegramID
	}
	if telegramUsername != nil && (*telegramUsername)[0] == '@' {
		u := (*telegramUsername)[1:]
		telegramUsername = normalizeOptional(&u)
	}

	if _, err := repo.EnsureProfile(ctx, s.DB, userID); err != nil {
		return nil, err
	}
	if err := repo.UpdateProfile(ctx, s.DB, userID, telegramID, telegramUsername); err != nil {
		return nil, err
	}
	return repo.GetProfile(ctx, s.DB, userID)
}
