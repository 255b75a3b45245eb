package api

import (
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestGetHeaderAsInt(t *testing.T) {
	tests := []struct {
		name     string
		headers  map[string][]string
		key      string
		expected int
	}{
		{
			name: "Valid integer header",
			headers: map[string][]string{
				"X-Ratelimit-Used": {"42"},
			},
			key:      "X-Ratelimit-Used",
			expected: 42,
		},
		{
			name: "Empty header value",
			headers: map[string][]string{
				"X-Ratelimit-Used": {""},
			},
			key:      "X-Ratelimit-Used",
			expected: 0,
		},
		{
			name: "Missing header",
			headers: map[string][]string{
				"X-Ratelimit-Reset": {"10"},
			},
			key:      "X-Ratelimit-Used",
			expected: 0,
		},
		{
			name: "Non-integer header value",
			headers: map[string][]string{
				"X-Ratelimit-Used": {"not-a-number"},
			},
			key:      "X-Ratelimit-Used",
			expected: 0,
		},
		{
			name: "Multiple values for same header (should use first)",
			headers: map[string][]string{
				"X-Ratelimit-Used": {"100", "200"},
			},
			key:      "X-Ratelimit-Used",
			expected: 100,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			header := http.Header(tc.headers)
			result := getHeaderAsInt(header, tc.key)
			if result != tc.expected {
				t.Errorf("getHeaderAsInt(%v, %q) = %d; want %d",
					header, tc.key, result, tc.expected)
			}
		})
	}
}

func TestTokenBucketUpdate(t *testing.T) {
	tb := NewTokenBucket(10, 1.0, time.Second)

	tb.Update(200, 400) // 200 used, 400 seconds left in period

	// we expect .95 of the full rate
	expectedRate := (1000.0 / 600.0) * 0.95

	if tb.fillRate != expectedRate {
		t.Errorf("Update() fillRate = %f; want %f", tb.fillRate, expectedRate)
	}
}

func TestMapStatusError(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		expected error
	}{
		{
			name:     "404 maps to not found",
			status:   http.StatusNotFound,
			expected: ErrNotFound,
		},
		{
			name:     "403 maps to forbidden",
			status:   http.StatusForbidden,
			expected: ErrForbidden,
		},
		{
			name:     "429 maps to rate limited",
			status:   http.StatusTooManyRequests,
			expected: ErrRateLimited,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := mapStatusError(tc.status, "")
			if !errors.Is(err, tc.expected) {
				t.Errorf("mapStatusError(%d) = %v; want errors.Is %v", tc.status, err, tc.expected)
			}
		})
	}
}

func TestMapStatusErrorOtherStatuses(t *testing.T) {
	err := mapStatusError(http.StatusInternalServerError, "boom")
	for _, sentinel := range []error{ErrNotFound, ErrForbidden, ErrRateLimited, ErrMalformed} {
		if errors.Is(err, sentinel) {
			t.Errorf("mapStatusError(500) = %v; should not match %v", err, sentinel)
		}
	}
}
