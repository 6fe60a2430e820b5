package profilerepo

import (
	"context"
	"errors"

	"lastmile/internal/core/domain/model/participant"
	"lastmile/internal/pkg/errs"

	"gorm.io/gorm"
)

// GormProfileRepository implements ProfileRepository using GORM.
type GormProfileRepository struct {
	db *gorm.DB
}

// NewGormProfileRepository creates a new GORM profile repository.
func NewGormProfileRepository(db *gorm.DB) *GormProfileRepository {
	return &GormProfileRepository{db: db}
}

// Add saves a new profile to the database.
func (r *GormProfileRepository) Add(ctx context.Context, profile participant.Profile) error {
	if profile.ID == "" {
		return participant.ErrParticipantIDIsRequired
	}
	if err := profile.Role.Validate(); err != nil {
		return err
	}

	dto := fromDomain(profile)
	if err := r.db.WithContext(ctx).Create(&dto).Error; err != nil {
		return errs.NewRepositoryError("add profile", err)
	}
	return nil
}

// Get retrieves a profile by participant ID.
func (r *GormProfileRepository) Get(ctx context.Context, participantID string) (participant.Profile, error) {
	if participantID == "" {
		return participant.Profile{}, participant.ErrParticipantIDIsRequired
	}

	var dto ProfileDTO
	if err := r.db.WithContext(ctx).First(&dto, "id = ?", participantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return participant.Profile{}, errs.NewRepositoryError(
				"get profile",
				errs.NewObjectNotFoundError("profile", participantID),
			)
		}
		return participant.Profile{}, errs.NewRepositoryError("get profile", err)
	}

	profile, err := toDomain(dto)
	if err != nil {
		return participant.Profile{}, errs.NewRepositoryError("get profile", err)
	}
	return profile, nil
}
