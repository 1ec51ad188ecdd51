package converter

import (
	"testing"
	"time"

	"vetclinic-scheduler/internal/delivery/dto"
	"vetclinic-scheduler/internal/domain/entity"

	"github.com/google/uuid"
)

func TestAppointmentToResponse_DerivedFlags(t *testing.T) {
	loc := time.FixedZone("clinic", -5*3600)
	follow := time.Date(2030, 7, 1, 0, 0, 0, 0, time.UTC)
	a := &entity.Appointment{
		ID:           uuid.New(),
		Date:         time.Date(2030, 6, 4, 0, 0, 0, 0, time.UTC),
		Time:         "09:00",
		Status:       entity.AppointmentStatusConfirmed,
		FollowUpDate: &follow,
	}

	tests := []struct {
		name           string
		now            time.Time
		wantCancel     bool
		wantReschedule bool
	}{
		{"well ahead", time.Date(2030, 6, 3, 9, 0, 0, 0, loc), true, true},
		{"inside notice window", time.Date(2030, 6, 4, 8, 0, 0, 0, loc), false, true},
		{"started", time.Date(2030, 6, 4, 9, 0, 0, 0, loc), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := AppointmentToResponse(a, Timing{Now: tt.now, Location: loc, CancelNotice: 2 * time.Hour})
			if resp.CanBeCancelled != tt.wantCancel || resp.CanBeRescheduled != tt.wantReschedule {
				t.Fatalf("flags = (%v, %v), want (%v, %v)", resp.CanBeCancelled, resp.CanBeRescheduled, tt.wantCancel, tt.wantReschedule)
			}
			if resp.Date != "2030-06-04" || resp.FollowUpDate != "2030-07-01" {
				t.Fatalf("unexpected dates %q %q", resp.Date, resp.FollowUpDate)
			}
			if resp.Medications == nil || resp.Attachments == nil {
				t.Fatal("lists must serialize as empty arrays")
			}
		})
	}
}

func TestMedicationsFromRequests(t *testing.T) {
	if MedicationsFromRequests(nil) != nil {
		t.Fatal("nil requests must stay nil")
	}
	meds := MedicationsFromRequests([]dto.MedicationRequest{{Name: "Meloxicam", Dose: "0.1mg/kg"}})
	if len(meds) != 1 || meds[0].Name != "Meloxicam" || meds[0].Dose != "0.1mg/kg" {
		t.Fatalf("unexpected medications %+v", meds)
	}
}
