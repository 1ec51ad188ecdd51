package repository

import (
	"context"

	"vetclinic-scheduler/internal/domain/entity"

	"github.com/google/uuid"
)

type PetRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Pet, error)
}
