package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"vetclinic-scheduler/internal/domain/entity"
	"vetclinic-scheduler/internal/domain/repository"
	"vetclinic-scheduler/internal/infrastructure/mail"

	"github.com/sirupsen/logrus"
)

var (
	// ErrNotificationFailed is returned when the reminder sender did not accept the message in time
	ErrNotificationFailed = errors.New("failed to send appointment notification")
	ErrRecipientNotFound  = errors.New("notification recipient not found")
)

const confirmedSubject = "Your appointment is confirmed"

// ReminderSender delivers one reminder. Implementations must honour ctx.
type ReminderSender interface {
	SendAppointmentReminder(ctx context.Context, reminder mail.Reminder) error
}

// NotificationService triggers owner notifications. Every call to the sender
// is bounded by timeout and never happens inside a database transaction.
type NotificationService struct {
	sender  ReminderSender
	users   repository.UserRepository
	pets    repository.PetRepository
	log     *logrus.Logger
	timeout time.Duration

	// mu orders wg.Add against Stop's wg.Wait
	mu      sync.Mutex
	wg      sync.WaitGroup
	stopped bool
}

func NewNotificationService(
	sender ReminderSender,
	users repository.UserRepository,
	pets repository.PetRepository,
	log *logrus.Logger,
	timeout time.Duration,
) *NotificationService {
	return &NotificationService{
		sender:  sender,
		users:   users,
		pets:    pets,
		log:     log,
		timeout: timeout,
	}
}

// SendReminder delivers the reminder of appt and waits for the outcome.
// Any failure, including the timeout, is reported as ErrNotificationFailed.
func (s *NotificationService) SendReminder(ctx context.Context, appt *entity.Appointment) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.deliver(ctx, appt, "", ""); err != nil {
		s.log.Warnf("Failed to send reminder for appointment %s: %+v", appt.ID, err)
		return fmt.Errorf("%w: %v", ErrNotificationFailed, err)
	}

	s.log.Infof("Reminder sent: appointment=%s", appt.ID)
	return nil
}

// NotifyConfirmed sends the confirmation notice in the background.
// The caller does not wait and failures are only logged.
func (s *NotificationService) NotifyConfirmed(appt *entity.Appointment) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	snapshot := *appt
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		if err := s.deliver(ctx, &snapshot, confirmedSubject, "Your appointment has been confirmed by the clinic."); err != nil {
			s.log.Warnf("Failed to send confirmation for appointment %s (non-fatal): %+v", snapshot.ID, err)
			return
		}
		s.log.Infof("Confirmation sent: appointment=%s", snapshot.ID)
	}()
}

// Stop waits for in-flight background notices. Safe to call multiple times.
func (s *NotificationService) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *NotificationService) deliver(ctx context.Context, appt *entity.Appointment, subject, intro string) error {
	owner, err := s.users.FindByID(ctx, appt.CustomerID)
	if err != nil {
		return fmt.Errorf("find owner %s: %w", appt.CustomerID, err)
	}
	if owner == nil {
		return fmt.Errorf("owner %s: %w", appt.CustomerID, ErrRecipientNotFound)
	}

	petName := ""
	pet, err := s.pets.FindByID(ctx, appt.PetID)
	if err != nil {
		return fmt.Errorf("find pet %s: %w", appt.PetID, err)
	}
	if pet != nil {
		petName = pet.Name
	}

	return s.sender.SendAppointmentReminder(ctx, mail.Reminder{
		Email:     owner.Email,
		OwnerName: owner.FullName,
		PetName:   petName,
		Date:      appt.Date.Format(entity.DateLayout),
		Time:      appt.Time,
		Type:      string(appt.Type),
		Subject:   subject,
		Intro:     intro,
	})
}
