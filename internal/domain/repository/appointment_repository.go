package repository

import (
	"context"
	"time"

	"vetclinic-scheduler/internal/domain/entity"

	"github.com/google/uuid"
)

// AppointmentRepository persists appointments.
//
// Create and UpdateIfStatus must return entity.ErrSlotTaken when the write
// would leave two active appointments on the same (date, time). The check has
// to be atomic with the write; a prior read is not enough.
type AppointmentRepository interface {
	Create(ctx context.Context, appointment *entity.Appointment) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Appointment, error)
	FindAll(ctx context.Context, filter *entity.AppointmentFilter) ([]entity.Appointment, int64, error)
	FindActiveTimesByDate(ctx context.Context, date time.Time) ([]string, error)
	ExistsActiveAt(ctx context.Context, date time.Time, timeOfDay string, excludeID uuid.UUID) (bool, error)
	UpdateIfStatus(ctx context.Context, appointment *entity.Appointment, expected entity.AppointmentStatus) (int64, error)
}
