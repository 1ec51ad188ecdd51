package entity

import (
	"time"

	"github.com/google/uuid"
)

// AppointmentFilter is a domain-level filter for listing appointments.
// Used by repository layer to avoid coupling with delivery DTOs.
type AppointmentFilter struct {
	CustomerID *uuid.UUID // restricts to one owner, set for customers
	PetID      *uuid.UUID
	Date       *time.Time
	Status     AppointmentStatus
	Type       AppointmentType
	Limit      int
	Offset     int
}
