package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"active slot violation", &pgconn.PgError{Code: "23505", ConstraintName: "uq_appointments_active_slot"}, true},
		{"wrapped violation", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "UQ_APPOINTMENTS_ACTIVE_SLOT"}), true},
		{"other constraint", &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}, false},
		{"foreign key violation", &pgconn.PgError{Code: "23503", ConstraintName: "uq_appointments_active_slot"}, false},
		{"plain error", errors.New("boom"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isUniqueViolation(tt.err, activeSlotIndex); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
