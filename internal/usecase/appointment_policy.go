package usecase

import (
	"vetclinic-scheduler/internal/delivery/dto"
	"vetclinic-scheduler/internal/domain/entity"
)

// appointmentAction is a capability checked by the policy below.
type appointmentAction int

const (
	actionView appointmentAction = iota
	actionUpdate
	actionCancel
	actionReschedule
	actionManage // confirm, start, complete, no-show
	actionRemind
)

// authorize is the single place deciding who may do what with an existing appointment.
//
//	view, cancel, reschedule: the owning customer or clinic staff
//	update: admins, or the owning customer
//	manage: clinic staff
//	remind: admins
func authorize(actor entity.Actor, action appointmentAction, appt *entity.Appointment) error {
	owner := actor.IsCustomer() && appt.IsOwnedBy(actor.UserID)

	var allowed bool
	switch action {
	case actionView, actionCancel, actionReschedule:
		allowed = owner || actor.IsStaff()
	case actionUpdate:
		allowed = owner || actor.IsAdmin()
	case actionManage:
		allowed = actor.IsStaff()
	case actionRemind:
		allowed = actor.IsAdmin()
	}

	if !allowed {
		return ErrUnauthorized
	}
	return nil
}

// authorizeCreate allows a customer booking for their own pet, or an admin booking for anyone.
func authorizeCreate(actor entity.Actor, pet *entity.Pet) error {
	if actor.IsAdmin() {
		return nil
	}
	if actor.IsCustomer() && pet.IsOwnedBy(actor.UserID) {
		return nil
	}
	return ErrUnauthorized
}

// touchesAdminFields reports whether the patch sets a field only admins may change
func touchesAdminFields(req *dto.UpdateAppointmentRequest) bool {
	return req.VeterinarianID != nil || req.Notes != nil || req.Attachments != nil
}

// cancellingParty maps the actor to the party recorded on cancellation
func cancellingParty(actor entity.Actor) entity.CancelledBy {
	if actor.IsCustomer() {
		return entity.CancelledByCustomer
	}
	return entity.CancelledByVeterinarian
}
