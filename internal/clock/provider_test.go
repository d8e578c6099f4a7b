package clock

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func timeAPI(t *testing.T, hits *int32, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		assert.Equal(t, "Asia/Jakarta", r.URL.Query().Get("timeZone"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

const sampleBody = `{"year":2024,"month":6,"day":15,"hour":10,"minute":30,"seconds":5,
	"dateTime":"2024-06-15T10:30:05.1234567","timeZone":"Asia/Jakarta","dayOfWeek":"Saturday"}`

func TestProviderFetchesAndCaches(t *testing.T) {
	var hits int32
	srv := timeAPI(t, &hits, http.StatusOK, sampleBody)

	sys := time.Date(2024, 6, 15, 3, 30, 0, 0, time.UTC)
	p, err := New(DefaultZone, WithBaseURL(srv.URL), WithSystemClock(func() time.Time { return sys }))
	require.NoError(t, err)

	info := p.Now(context.Background())
	assert.False(t, info.Fallback)
	assert.Equal(t, "2024-06-15", info.Date)
	assert.Equal(t, "10:30:05", info.Time)
	assert.Equal(t, "Sabtu", info.Weekday)
	assert.Equal(t, "Juni", info.MonthName)
	assert.Equal(t, 6, info.Month)
	assert.Equal(t, 2024, info.Year)
	assert.Equal(t, "2024-06-15", info.Today().String())

	p.Now(context.Background())
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits), "second call should be served from cache")

	sys = sys.Add(2 * time.Minute)
	p.Now(context.Background())
	assert.EqualValues(t, 2, atomic.LoadInt32(&hits), "expired cache should refetch")
}

func TestProviderFallsBackOnError(t *testing.T) {
	var hits int32
	srv := timeAPI(t, &hits, http.StatusInternalServerError, `oops`)

	sys := time.Date(2024, 12, 31, 20, 0, 0, 0, time.UTC) // 03:00 next day in Jakarta
	p, err := New(DefaultZone, WithBaseURL(srv.URL), WithSystemClock(func() time.Time { return sys }))
	require.NoError(t, err)

	info := p.Now(context.Background())
	assert.True(t, info.Fallback)
	assert.Equal(t, "2025-01-01", info.Date)
	assert.Equal(t, "Asia/Jakarta", info.Timezone)
	assert.Equal(t, "Rabu", info.Weekday)

	p.Now(context.Background())
	assert.EqualValues(t, 2, atomic.LoadInt32(&hits), "fallback results are not cached")
}

func TestProviderFallsBackOnTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	p, err := New(DefaultZone, WithBaseURL(srv.URL), WithTimeout(20*time.Millisecond))
	require.NoError(t, err)

	info := p.Now(context.Background())
	assert.True(t, info.Fallback)
}

func TestProviderRejectsIncompletePayload(t *testing.T) {
	var hits int32
	srv := timeAPI(t, &hits, http.StatusOK, `{"year":0}`)
	p, err := New(DefaultZone, WithBaseURL(srv.URL))
	require.NoError(t, err)
	assert.True(t, p.Now(context.Background()).Fallback)
}

func TestNewRejectsUnknownZone(t *testing.T) {
	_, err := New("Mars/Olympus")
	assert.Error(t, err)
}

func TestPromptContext(t *testing.T) {
	loc, err := time.LoadLocation(DefaultZone)
	require.NoError(t, err)
	info := FromTime(time.Date(2024, 6, 15, 10, 0, 0, 0, loc), true)
	ctx := info.PromptContext()
	assert.Contains(t, ctx, "Hari: Sabtu")
	assert.Contains(t, ctx, "Bulan: Juni")
	assert.Contains(t, ctx, "(Menggunakan waktu fallback)")
	assert.Equal(t, "13", MonthName(13))
}

func TestParseMonthName(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"Januari", 1, true},
		{"maret", 3, true},
		{" MEI ", 5, true},
		{"agu", 8, true},
		{"Des", 12, true},
		{"ma", 0, false},
		{"march", 0, false},
		{"3", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseMonthName(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
