package entity

import "errors"

// Lifecycle and conflict errors raised by the Appointment entity and its repository.
var (
	ErrInvalidTransition = errors.New("appointment status transition is not allowed")
	ErrCannotCancel      = errors.New("it is too late to cancel this appointment")
	ErrCannotReschedule  = errors.New("appointment can no longer be rescheduled")
	ErrSlotTaken         = errors.New("the selected time slot is already booked")
)
