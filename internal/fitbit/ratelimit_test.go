package fitbit

import (
	"net/http"
	"testing"
	"time"
)

func TestRateLimiterDefaults(t *testing.T) {
	rl := NewRateLimiter()
	status := rl.Status()

	if status.Limit != 150 {
		t.Errorf("Expected default limit 150, got %d", status.Limit)
	}
	if status.Remaining != 150 {
		t.Errorf("Expected default remaining 150, got %d", status.Remaining)
	}
}

func TestRateLimiterUpdateFromHeaders(t *testing.T) {
	rl := NewRateLimiter()

	h := http.Header{}
	h.Set("Fitbit-Rate-Limit-Limit", "150")
	h.Set("Fitbit-Rate-Limit-Remaining", "42")
	h.Set("Fitbit-Rate-Limit-Reset", "1800")

	before := time.Now()
	rl.UpdateFromHeaders(h)
	after := time.Now()

	status := rl.Status()

	if status.Limit != 150 {
		t.Errorf("Expected limit 150, got %d", status.Limit)
	}
	if status.Remaining != 42 {
		t.Errorf("Expected remaining 42, got %d", status.Remaining)
	}
	if status.ResetAt.Before(before.Add(1800*time.Second)) || status.ResetAt.After(after.Add(1800*time.Second)) {
		t.Errorf("ResetAt not within expected range: %v", status.ResetAt)
	}
	if status.LastUpdated.Before(before) || status.LastUpdated.After(after) {
		t.Error("LastUpdated timestamp not within expected range")
	}
}

func TestRateLimiterIgnoresMissingHeaders(t *testing.T) {
	rl := NewRateLimiter()

	h := http.Header{}
	h.Set("Fitbit-Rate-Limit-Limit", "150")
	h.Set("Fitbit-Rate-Limit-Remaining", "10")
	rl.UpdateFromHeaders(h)

	// Response with no rate limit headers leaves state untouched
	rl.UpdateFromHeaders(http.Header{})

	status := rl.Status()
	if status.Remaining != 10 {
		t.Errorf("Expected remaining 10 after headerless update, got %d", status.Remaining)
	}
}

func TestRateLimiterExhausted(t *testing.T) {
	rl := NewRateLimiter()

	if rl.Exhausted() {
		t.Error("Expected fresh limiter to not be exhausted")
	}

	h := http.Header{}
	h.Set("Fitbit-Rate-Limit-Limit", "150")
	h.Set("Fitbit-Rate-Limit-Remaining", "0")
	h.Set("Fitbit-Rate-Limit-Reset", "3600")
	rl.UpdateFromHeaders(h)

	if !rl.Exhausted() {
		t.Error("Expected limiter to be exhausted at zero remaining")
	}
}

func TestRateLimiterConcurrency(t *testing.T) {
	rl := NewRateLimiter()

	h := http.Header{}
	h.Set("Fitbit-Rate-Limit-Limit", "150")
	h.Set("Fitbit-Rate-Limit-Remaining", "100")
	h.Set("Fitbit-Rate-Limit-Reset", "600")

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				rl.UpdateFromHeaders(h)
				_ = rl.Status()
				_ = rl.Exhausted()
			}
			done <- true
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}
