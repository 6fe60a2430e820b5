// Package profilerepo persists participant profiles of the identity store.
package profilerepo

import (
	"lastmile/internal/core/domain/model/participant"
)

// ProfileDTO represents one row of the profiles table. Kind holds the
// identity store's profile kind: empty or "client", "entregador" or
// "armazenador".
type ProfileDTO struct {
	ID   string `gorm:"primaryKey"`
	Name string `gorm:"not null;default:''"`
	Kind string `gorm:"type:varchar(16);not null;default:''"`
}

// TableName overrides GORM's default naming convention to use "profiles".
func (ProfileDTO) TableName() string {
	return "profiles"
}

func fromDomain(p participant.Profile) ProfileDTO {
	return ProfileDTO{
		ID:   p.ID,
		Name: p.Name,
		Kind: p.Role.String(),
	}
}

func toDomain(dto ProfileDTO) (participant.Profile, error) {
	role, err := participant.ParseRole(dto.Kind)
	if err != nil {
		return participant.Profile{}, err
	}
	return participant.Profile{ID: dto.ID, Name: dto.Name, Role: role}, nil
}
