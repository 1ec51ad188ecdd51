package repository

import (
	"context"
	"errors"
	"time"

	"vetclinic-scheduler/internal/domain/entity"
	domainRepo "vetclinic-scheduler/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// activeSlotIndex is the partial unique index over (appointment_date, appointment_time)
// for rows whose status is not cancelled. It is the conflict guard.
const activeSlotIndex = "uq_appointments_active_slot"

type appointmentRepository struct {
	db *gorm.DB
}

func NewAppointmentRepository(db *gorm.DB) domainRepo.AppointmentRepository {
	return &appointmentRepository{db: db}
}

// Create inserts the appointment. A concurrent booking of the same slot loses
// on the unique index and gets entity.ErrSlotTaken.
func (r *appointmentRepository) Create(ctx context.Context, appointment *entity.Appointment) error {
	err := r.db.WithContext(ctx).Create(appointment).Error
	if err != nil {
		if isUniqueViolation(err, activeSlotIndex) {
			return entity.ErrSlotTaken
		}
		return err
	}
	return nil
}

func (r *appointmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Appointment, error) {
	var appointment entity.Appointment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&appointment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &appointment, nil
}

func (r *appointmentRepository) FindAll(ctx context.Context, filter *entity.AppointmentFilter) ([]entity.Appointment, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.Appointment{})

	if filter != nil {
		if filter.CustomerID != nil {
			query = query.Where("customer_id = ?", *filter.CustomerID)
		}
		if filter.PetID != nil {
			query = query.Where("pet_id = ?", *filter.PetID)
		}
		if filter.Date != nil {
			query = query.Where("appointment_date = ?", filter.Date.Format(entity.DateLayout))
		}
		if filter.Status != "" {
			query = query.Where("status = ?", filter.Status)
		}
		if filter.Type != "" {
			query = query.Where("type = ?", filter.Type)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter != nil && filter.Limit > 0 {
		query = query.Limit(filter.Limit).Offset(filter.Offset)
	}

	var appointments []entity.Appointment
	err := query.
		Order("appointment_date DESC, appointment_time DESC").
		Find(&appointments).Error
	if err != nil {
		return nil, 0, err
	}
	return appointments, total, nil
}

// FindActiveTimesByDate returns the HH:MM of every non-cancelled appointment on date
func (r *appointmentRepository) FindActiveTimesByDate(ctx context.Context, date time.Time) ([]string, error) {
	var times []string
	err := r.db.WithContext(ctx).Model(&entity.Appointment{}).
		Where("appointment_date = ? AND status != ?", date.Format(entity.DateLayout), entity.AppointmentStatusCancelled).
		Order("appointment_time ASC").
		Pluck("appointment_time", &times).Error
	if err != nil {
		return nil, err
	}
	return times, nil
}

func (r *appointmentRepository) ExistsActiveAt(ctx context.Context, date time.Time, timeOfDay string, excludeID uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).Model(&entity.Appointment{}).
		Where("appointment_date = ? AND appointment_time = ? AND status != ?",
			date.Format(entity.DateLayout), timeOfDay, entity.AppointmentStatusCancelled)
	if excludeID != uuid.Nil {
		query = query.Where("id != ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// UpdateIfStatus writes every column of the appointment ONLY if the stored status
// still equals expected. Returns affected rows: 1 = success, 0 = someone else
// moved the appointment first (compare-and-swap on status).
func (r *appointmentRepository) UpdateIfStatus(ctx context.Context, appointment *entity.Appointment, expected entity.AppointmentStatus) (int64, error) {
	result := r.db.WithContext(ctx).Model(appointment).
		Where("status = ?", expected).
		Select("*").
		Omit("ID", "CreatedAt", "CreatedBy").
		Updates(appointment)
	if result.Error != nil {
		if isUniqueViolation(result.Error, activeSlotIndex) {
			return 0, entity.ErrSlotTaken
		}
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
