package workflow

import (
	"testing"
	"time"
)

func TestJobBackoff_DoublesAndCaps(t *testing.T) {
	cases := []struct {
		attempts int
		want     time.Duration
	}{
		{0, 30 * time.Second},
		{1, 30 * time.Second},
		{2, time.Minute},
		{3, 2 * time.Minute},
		{4, 4 * time.Minute},
		{5, 8 * time.Minute},
		{6, 10 * time.Minute},
		{20, 10 * time.Minute},
	}
	for _, tc := range cases {
		if got := jobBackoff(tc.attempts); got != tc.want {
			t.Fatalf("attempts=%d expected %s, got %s", tc.attempts, tc.want, got)
		}
	}
}

func TestDecodeJobMessage(t *testing.T) {
	msg, err := DecodeJobMessage([]byte(`{"job_id": 42, "correlation_id": "abc"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.JobId != 42 || msg.CorrelationId != "abc" {
		t.Fatalf("unexpected message: %+v", msg)
	}

	if _, err := DecodeJobMessage([]byte(`{"correlation_id": "abc"}`)); err == nil {
		t.Fatal("expected error when job_id is absent")
	}
	if _, err := DecodeJobMessage([]byte(`not json`)); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}
