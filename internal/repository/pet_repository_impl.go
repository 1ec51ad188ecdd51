package repository

import (
	"context"
	"errors"

	"vetclinic-scheduler/internal/domain/entity"
	domainRepo "vetclinic-scheduler/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type petRepository struct {
	db *gorm.DB
}

func NewPetRepository(db *gorm.DB) domainRepo.PetRepository {
	return &petRepository{db: db}
}

func (r *petRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Pet, error) {
	var pet entity.Pet
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&pet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &pet, nil
}
