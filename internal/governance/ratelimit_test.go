package governance

import (
	"testing"
	"time"
)

func TestTokenBucketBurstThenExhaustion(t *testing.T) {
	bucket := NewTokenBucket(1, 3)

	for i := 0; i < 3; i++ {
		if !bucket.Take() {
			t.Fatalf("take %d within burst should be admitted", i)
		}
	}
	if bucket.Take() {
		t.Error("take beyond burst capacity should be rejected")
	}
}

func TestTokenBucketRefill(t *testing.T) {
	bucket := NewTokenBucket(1000, 1)

	if !bucket.Take() {
		t.Fatal("first take should be admitted")
	}
	if bucket.Take() {
		t.Fatal("second immediate take should be rejected")
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if bucket.Take() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Error("bucket never refilled")
}

func TestTokenBucketAvailableCappedAtCapacity(t *testing.T) {
	bucket := NewTokenBucket(1000, 2)

	time.Sleep(10 * time.Millisecond)
	if got := bucket.Available(); got > 2 {
		t.Errorf("available tokens %f exceed capacity", got)
	}
}

func TestTokenBucketDefaults(t *testing.T) {
	bucket := NewTokenBucket(0, 0)
	if got := bucket.Available(); got < 99 {
		t.Errorf("expected defaulted bucket to start near 100 tokens, got %f", got)
	}
}
