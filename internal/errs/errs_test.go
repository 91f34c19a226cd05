package errs

import (
	"errors"
	"fmt"
	"testing"
)

var errSentinel = errors.New("step failed")

func TestWrapMatchesSentinelAndCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(errSentinel, cause)

	if !errors.Is(err, errSentinel) {
		t.Fatalf("errors.Is(err, sentinel) = false for %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("errors.Is(err, cause) = false for %v", err)
	}
	want := "step failed: disk full"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestWrapfFormatsMessage(t *testing.T) {
	err := Wrapf(errSentinel, "exit code %d", 42)

	if !errors.Is(err, errSentinel) {
		t.Fatalf("errors.Is(err, sentinel) = false for %v", err)
	}
	want := "step failed: exit code 42"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestWrapfKeepsNestedCause(t *testing.T) {
	cause := errors.New("no such file")
	err := Wrapf(errSentinel, "manifest: %w", cause)

	if !errors.Is(err, errSentinel) {
		t.Fatal("sentinel lost through Wrapf")
	}
	if !errors.Is(err, cause) {
		t.Fatal("nested cause lost through Wrapf")
	}
}

func TestWrapChains(t *testing.T) {
	inner := errors.New("inner")
	mid := Wrap(errSentinel, inner)
	outer := fmt.Errorf("outer: %w", mid)

	if !errors.Is(outer, errSentinel) {
		t.Fatal("sentinel lost two levels up")
	}
	if !errors.Is(outer, inner) {
		t.Fatal("inner cause lost two levels up")
	}
}
