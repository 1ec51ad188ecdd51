package entity

import (
	"time"

	"github.com/google/uuid"
)

// Pet is owned by the pet registry. The scheduler only reads it to check ownership.
type Pet struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	OwnerID   uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_id"`
	Name      string    `gorm:"type:varchar(100);not null" json:"name"`
	Species   string    `gorm:"type:varchar(50)" json:"species,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Pet) TableName() string {
	return "pets"
}

// IsOwnedBy checks if the given user owns the pet
func (p *Pet) IsOwnedBy(userID uuid.UUID) bool {
	return p.OwnerID == userID
}
