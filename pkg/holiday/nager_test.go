package holiday

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wherewasi/wherewasi/internal/resilience"
)

// fastRetry keeps test backoffs in the microsecond range.
func fastRetry(attempts int) resilience.Policy {
	return resilience.Policy{MaxAttempts: attempts, InitialBackoff: time.Microsecond}
}

const nagerFixture = `[
	{"date": "2024-01-01", "name": "New Year's Day", "global": true, "counties": null},
	{"date": "2024-01-06", "name": "Epiphany", "global": false, "counties": ["DE-BW", "DE-BY", "DE-ST"]},
	{"date": "2024-10-03", "name": "German Unity Day", "global": true, "counties": null},
	{"date": "not-a-date", "name": "Broken", "global": true, "counties": null}
]`

func newNagerTestServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNagerResolveNationalSkipsCountyDays(t *testing.T) {
	srv := newNagerTestServer(t, http.StatusOK, nagerFixture)
	p := NewNagerProvider(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()), WithRateLimit(1000))

	days, err := p.Resolve(context.Background(), Jurisdiction{State: "DE"}, 2024, 2024)
	require.NoError(t, err)

	assert.Contains(t, days, day(t, "2024-01-01"))
	assert.Contains(t, days, day(t, "2024-10-03"))
	assert.NotContains(t, days, day(t, "2024-01-06"))
	// The malformed entry is skipped, not fatal.
	assert.Len(t, days, 2)
}

func TestNagerResolveProvinceIncludesCountyDays(t *testing.T) {
	srv := newNagerTestServer(t, http.StatusOK, nagerFixture)
	p := NewNagerProvider(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()), WithRateLimit(1000))

	days, err := p.Resolve(context.Background(), Jurisdiction{State: "DE", Province: "BY"}, 2024, 2024)
	require.NoError(t, err)

	assert.Contains(t, days, day(t, "2024-01-06"))
	assert.Len(t, days, 3)
}

func TestNagerResolveProvinceOutsideCounties(t *testing.T) {
	srv := newNagerTestServer(t, http.StatusOK, nagerFixture)
	p := NewNagerProvider(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()), WithRateLimit(1000))

	days, err := p.Resolve(context.Background(), Jurisdiction{State: "DE", Province: "HH"}, 2024, 2024)
	require.NoError(t, err)

	assert.NotContains(t, days, day(t, "2024-01-06"))
	assert.Len(t, days, 2)
}

func TestNagerResolveUnknownCountry(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"title": "Not Found"}`)
	}))
	t.Cleanup(srv.Close)

	p := NewNagerProvider(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()), WithRateLimit(1000),
		WithRetryPolicy(fastRetry(3)))

	_, err := p.Resolve(context.Background(), Jurisdiction{State: "ZZ"}, 2024, 2024)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownJurisdiction))
	// An unknown jurisdiction is permanent, so no retries.
	assert.Equal(t, 1, calls)
}

func TestNagerResolveServerErrorRetries(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, "boom")
	}))
	t.Cleanup(srv.Close)

	p := NewNagerProvider(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()), WithRateLimit(1000),
		WithRetryPolicy(fastRetry(2)))

	_, err := p.Resolve(context.Background(), Jurisdiction{State: "DE"}, 2024, 2024)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnknownJurisdiction))
	assert.Contains(t, err.Error(), "500")
	assert.Equal(t, 2, calls)
}

func TestNagerResolveRecoversAfterTransientError(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, nagerFixture)
	}))
	t.Cleanup(srv.Close)

	p := NewNagerProvider(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()), WithRateLimit(1000),
		WithRetryPolicy(fastRetry(3)))

	days, err := p.Resolve(context.Background(), Jurisdiction{State: "DE"}, 2024, 2024)
	require.NoError(t, err)
	assert.Len(t, days, 2)
	assert.Equal(t, 2, calls)
}

func TestNagerResolveRequestsEachYear(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[]`)
	}))
	t.Cleanup(srv.Close)

	p := NewNagerProvider(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()), WithRateLimit(1000))

	_, err := p.Resolve(context.Background(), Jurisdiction{State: "DE"}, 2023, 2025)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/PublicHolidays/2023/DE",
		"/PublicHolidays/2024/DE",
		"/PublicHolidays/2025/DE",
	}, paths)
}
