package service

import (
	"anchor_gate_backend/internal/model"
	"testing"
	"time"
)

func attemptWithStatus(status model.AttemptStatus, number int) *model.AnchorAttempt {
	return &model.AnchorAttempt{
		StudentID:     1,
		AnchorTagID:   1,
		AttemptNumber: number,
		Status:        status,
		StartedAt:     time.Now(),
	}
}

func TestDeriveGateStatus(t *testing.T) {
	tests := []struct {
		name   string
		latest *model.AnchorAttempt
		want   GateStatus
	}{
		{
			name:   "no attempts",
			latest: nil,
			want:   GatePending,
		},
		{
			name:   "open attempt",
			latest: attemptWithStatus(model.AttemptInProgress, 1),
			want:   GateInProgress,
		},
		{
			name:   "latest completed",
			latest: attemptWithStatus(model.AttemptCompleted, 2),
			want:   GatePassed,
		},
		{
			name:   "latest failed",
			latest: attemptWithStatus(model.AttemptFailed, 3),
			want:   GateRetryRequired,
		},
		{
			name:   "unknown status falls back to pending",
			latest: attemptWithStatus(model.AttemptStatus("corrupted"), 1),
			want:   GatePending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveGateStatus(tt.latest); got != tt.want {
				t.Errorf("DeriveGateStatus() = %v, want %v", got, tt.want)
			}
		})
	}
}
