package service

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestOccupiedKey(t *testing.T) {
	got := OccupiedKey(time.Date(2030, 6, 4, 15, 0, 0, 0, time.UTC))
	if got != "slots:occupied:2030-06-04" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestSlotCacheService_CalculateTTL(t *testing.T) {
	loc := time.FixedZone("clinic", -5*3600)
	s := NewSlotCacheService(nil, logrus.New(), loc)

	tests := []struct {
		name string
		now  time.Time
		date time.Time
		want time.Duration
	}{
		{"future day is capped", time.Date(2030, 6, 1, 8, 0, 0, 0, loc), time.Date(2030, 6, 4, 0, 0, 0, 0, time.UTC), slotCacheMaxTTL},
		{"end of today", time.Date(2030, 6, 4, 23, 55, 0, 0, loc), time.Date(2030, 6, 4, 0, 0, 0, 0, time.UTC), 5 * time.Minute},
		{"past day", time.Date(2030, 6, 5, 8, 0, 0, 0, loc), time.Date(2030, 6, 4, 0, 0, 0, 0, time.UTC), time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := tt.now
			s.now = func() time.Time { return now }
			if got := s.calculateTTL(tt.date); got != tt.want {
				t.Fatalf("calculateTTL = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGenerationKey(t *testing.T) {
	got := GenerationKey(time.Date(2030, 6, 4, 15, 0, 0, 0, time.UTC))
	if got != "slots:generation:2030-06-04" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestParseGeneration(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want int64
	}{
		{"missing key", nil, 0},
		{"counter", "3", 3},
		{"garbage", "x", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseGeneration(tt.in); got != tt.want {
				t.Fatalf("parseGeneration(%v) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}
