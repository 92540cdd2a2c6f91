package server

import (
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestMultiLimiter_Allow(t *testing.T) {
	ml := newMultiLimiter(rate.Limit(2), 2, time.Minute)
	key := "test"
	if !ml.allow(key) {
		t.Fatal("first allow should pass")
	}
	if !ml.allow(key) {
		t.Fatal("second allow should pass")
	}
	if ml.allow(key) {
		t.Fatal("third allow should be rate limited")
	}
}

func TestMultiLimiter_KeysIndependent(t *testing.T) {
	ml := newMultiLimiter(rate.Limit(1), 1, time.Minute)
	if !ml.allow("a") {
		t.Fatal("first key should pass")
	}
	if !ml.allow("b") {
		t.Fatal("second key should have its own bucket")
	}
	if ml.allow("a") {
		t.Fatal("first key should now be limited")
	}
}

func TestGetClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.9:4444"
	if got := getClientIP(r); got != "10.0.0.9" {
		t.Fatalf("remote addr ip = %q", got)
	}

	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := getClientIP(r); got != "203.0.113.7" {
		t.Fatalf("xff ip = %q", got)
	}
}
