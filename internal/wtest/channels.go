package wtest

import (
	"testing"
	"time"
)

// How long the *Soon helpers wait before declaring failure.
// Generous so that slow CI machines do not cause flakes;
// tests that pass locally finish these waits in microseconds.
const soonTimeout = 5 * time.Second

// ReceiveSoon receives a value from ch,
// calling t.Fatal if nothing arrives within a generous timeout.
func ReceiveSoon[T any](t *testing.T, ch <-chan T) T {
	t.Helper()

	timer := time.NewTimer(soonTimeout)
	defer timer.Stop()

	select {
	case v := <-ch:
		return v
	case <-timer.C:
		t.Fatalf("did not receive on channel within %s", soonTimeout)
		panic("unreachable")
	}
}

// SendSoon sends v on ch,
// calling t.Fatal if the send does not complete within a generous timeout.
func SendSoon[T any](t *testing.T, ch chan<- T, v T) {
	t.Helper()

	timer := time.NewTimer(soonTimeout)
	defer timer.Stop()

	select {
	case ch <- v:
	case <-timer.C:
		t.Fatalf("could not send on channel within %s", soonTimeout)
	}
}

// IsSending asserts that ch has a value immediately available
// and returns it.
// Unlike [ReceiveSoon] there is no waiting:
// the value must already be ready.
func IsSending[T any](t *testing.T, ch <-chan T) T {
	t.Helper()

	select {
	case v := <-ch:
		return v
	default:
		t.Fatal("expected channel to have a value ready, but it did not")
		panic("unreachable")
	}
}

// NotSending asserts that ch has no value immediately available.
func NotSending[T any](t *testing.T, ch <-chan T) {
	t.Helper()

	select {
	case v := <-ch:
		t.Fatalf("expected channel to be empty, but received %v", v)
	default:
	}
}
