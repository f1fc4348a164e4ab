package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestUsageServiceDisabled(t *testing.T) {
	userId := uuid.New()

	tests := []struct {
		name  string
		limit int
	}{
		{"no redis client", 50},
		{"zero limit", 0},
		{"negative limit", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			us := NewUsageService(nil, tt.limit)
			if err := us.CheckDailyLimit(context.Background(), userId); err != nil {
				t.Errorf("CheckDailyLimit = %v, quota must be disabled", err)
			}
			if err := us.Increment(context.Background(), userId); err != nil {
				t.Errorf("Increment = %v, quota must be disabled", err)
			}
		})
	}
}

func TestUsageServiceKeyIsPerUserPerDay(t *testing.T) {
	us := &usageService{limit: 50}
	userId := uuid.MustParse("6f9619ff-8b86-4d01-b42d-00cf4fc964ff")
	day := time.Date(2026, 8, 30, 23, 59, 0, 0, time.UTC)

	got := us.key(userId, day)
	want := "ai_usage:6f9619ff-8b86-4d01-b42d-00cf4fc964ff:2026-08-30"
	if got != want {
		t.Errorf("key = %q, want %q", got, want)
	}

	// Local timestamps normalize to the UTC date.
	local := day.In(time.FixedZone("UTC+7", 7*3600))
	if us.key(userId, local) != want {
		t.Errorf("key must be derived from the UTC date, got %q", us.key(userId, local))
	}
}
