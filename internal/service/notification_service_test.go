package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"vetclinic-scheduler/internal/domain/entity"
	"vetclinic-scheduler/internal/infrastructure/mail"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type fakeUserRepo struct {
	users map[uuid.UUID]*entity.User
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	return r.users[id], nil
}

type fakePetRepo struct {
	pets map[uuid.UUID]*entity.Pet
}

func (r *fakePetRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Pet, error) {
	return r.pets[id], nil
}

type fakeSender struct {
	mu    sync.Mutex
	sent  []mail.Reminder
	err   error
	block bool
}

func (s *fakeSender) SendAppointmentReminder(ctx context.Context, r mail.Reminder) error {
	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	s.sent = append(s.sent, r)
	s.mu.Unlock()
	return nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newNotificationFixture(sender *fakeSender) (*NotificationService, *entity.Appointment) {
	owner := &entity.User{ID: uuid.New(), Email: "owner@example.com", FullName: "Ana Owner", RoleID: entity.RoleIDCustomer, IsActive: true}
	pet := &entity.Pet{ID: uuid.New(), OwnerID: owner.ID, Name: "Toby"}

	svc := NewNotificationService(
		sender,
		&fakeUserRepo{users: map[uuid.UUID]*entity.User{owner.ID: owner}},
		&fakePetRepo{pets: map[uuid.UUID]*entity.Pet{pet.ID: pet}},
		quietLogger(),
		50*time.Millisecond,
	)
	appt := &entity.Appointment{
		ID:         uuid.New(),
		PetID:      pet.ID,
		CustomerID: owner.ID,
		Date:       time.Date(2030, 6, 4, 0, 0, 0, 0, time.UTC),
		Time:       "09:30",
		Type:       entity.AppointmentTypeVaccination,
		Status:     entity.AppointmentStatusConfirmed,
	}
	return svc, appt
}

func TestNotificationService_SendReminder(t *testing.T) {
	sender := &fakeSender{}
	svc, appt := newNotificationFixture(sender)

	if err := svc.SendReminder(context.Background(), appt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected one reminder, got %d", len(sender.sent))
	}
	got := sender.sent[0]
	if got.Email != "owner@example.com" || got.PetName != "Toby" || got.Date != "2030-06-04" || got.Time != "09:30" {
		t.Fatalf("unexpected reminder %+v", got)
	}
}

func TestNotificationService_SendReminder_Failures(t *testing.T) {
	tests := []struct {
		name   string
		sender *fakeSender
		mutate func(*entity.Appointment)
	}{
		{"sender error", &fakeSender{err: errors.New("relay refused")}, nil},
		{"timeout", &fakeSender{block: true}, nil},
		{"unknown owner", &fakeSender{}, func(a *entity.Appointment) { a.CustomerID = uuid.New() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, appt := newNotificationFixture(tt.sender)
			if tt.mutate != nil {
				tt.mutate(appt)
			}
			err := svc.SendReminder(context.Background(), appt)
			if !errors.Is(err, ErrNotificationFailed) {
				t.Fatalf("expected ErrNotificationFailed, got %v", err)
			}
		})
	}
}

func TestNotificationService_NotifyConfirmed(t *testing.T) {
	sender := &fakeSender{}
	svc, appt := newNotificationFixture(sender)

	svc.NotifyConfirmed(appt)
	svc.Stop()

	if len(sender.sent) != 1 || sender.sent[0].Subject != confirmedSubject {
		t.Fatalf("expected one confirmation notice, got %+v", sender.sent)
	}

	// after Stop nothing is dispatched
	svc.NotifyConfirmed(appt)
	if len(sender.sent) != 1 {
		t.Fatal("notice dispatched after Stop")
	}
}

func TestNotificationService_NotifyConfirmed_DoesNotBlock(t *testing.T) {
	svc, appt := newNotificationFixture(&fakeSender{block: true})

	start := time.Now()
	svc.NotifyConfirmed(appt)
	if time.Since(start) > 20*time.Millisecond {
		t.Fatal("NotifyConfirmed blocked the caller")
	}
	svc.Stop()
}

func TestNotificationService_NotifyConfirmed_ConcurrentWithStop(t *testing.T) {
	sender := &fakeSender{}
	svc, appt := newNotificationFixture(sender)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.NotifyConfirmed(appt)
		}()
	}
	svc.Stop()

	// every notice accepted before Stop has finished once Stop returns
	sender.mu.Lock()
	afterStop := len(sender.sent)
	sender.mu.Unlock()

	wg.Wait()
	sender.mu.Lock()
	defer sender.mu.Unlock()
	if len(sender.sent) != afterStop {
		t.Fatalf("notices dispatched after Stop returned: %d then %d", afterStop, len(sender.sent))
	}
}
