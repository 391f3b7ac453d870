package characters_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ArturWagner/marvel-characters-df/internal/testutil"
	"github.com/ArturWagner/marvel-characters-df/pkg/auth"
	"github.com/ArturWagner/marvel-characters-df/pkg/characters"
	"github.com/ArturWagner/marvel-characters-df/pkg/client"
)

var testCreds = auth.Credentials{PublicKey: "pub-key", PrivateKey: "priv-key"}

func newTestClient(t *testing.T, baseURL string) *client.Client {
	t.Helper()

	cfg := client.DefaultConfig()
	cfg.BaseURL = baseURL
	cfg.Retry.Sleep = func(context.Context, time.Duration) error { return nil }

	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func newTestFetcher(t *testing.T, mock *testutil.MockMarvel, cfg characters.FetchConfig) *characters.Fetcher {
	t.Helper()

	fetcher, err := characters.NewFetcher(newTestClient(t, mock.BaseURL()), testCreds, cfg)
	if err != nil {
		t.Fatalf("new fetcher: %v", err)
	}

	// Monotonic fake clock so every request carries a distinct timestamp.
	tick := int64(0)
	fetcher.SetNow(func() time.Time {
		tick++
		return time.Unix(1700000000, tick)
	})

	return fetcher
}

func TestNewFetcher_Validation(t *testing.T) {
	c := newTestClient(t, "https://gateway.test/v1/public/")

	tests := []struct {
		name     string
		pageSize int
		wantErr  bool
	}{
		{name: "valid", pageSize: 100, wantErr: false},
		{name: "zero", pageSize: 0, wantErr: true},
		{name: "negative", pageSize: -5, wantErr: true},
		{name: "over api maximum", pageSize: 101, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := characters.NewFetcher(c, testCreds, characters.FetchConfig{PageSize: tt.pageSize})
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewFetcher(pageSize=%d) error = %v, wantErr %v", tt.pageSize, err, tt.wantErr)
			}
		})
	}

	t.Run("nil client", func(t *testing.T) {
		if _, err := characters.NewFetcher(nil, testCreds, characters.DefaultFetchConfig()); err == nil {
			t.Fatal("expected error for nil client")
		}
	})
}

func TestFetchAll_WalksAllPages(t *testing.T) {
	mock := testutil.NewMockMarvel(250)
	defer mock.Close()
	mock.RequireAuth(testCreds.PublicKey, testCreds.PrivateKey)

	fetcher := newTestFetcher(t, mock, characters.DefaultFetchConfig())

	records, err := fetcher.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(records) != 250 {
		t.Errorf("records = %d, want 250", len(records))
	}
	if mock.RequestCount != 3 {
		t.Errorf("requests = %d, want 3", mock.RequestCount)
	}

	wantOffsets := []int{0, 100, 200}
	if len(mock.Offsets) != len(wantOffsets) {
		t.Fatalf("offsets = %v, want %v", mock.Offsets, wantOffsets)
	}
	for i, want := range wantOffsets {
		if mock.Offsets[i] != want {
			t.Errorf("offset %d = %d, want %d", i, mock.Offsets[i], want)
		}
	}

	// Server order preserved, no duplicates, no gaps.
	for i, rec := range records {
		if rec.ID != 1000+i {
			t.Fatalf("record %d has ID %d, want %d", i, rec.ID, 1000+i)
		}
	}
}

func TestFetchAll_SinglePageCatalog(t *testing.T) {
	mock := testutil.NewMockMarvel(42)
	defer mock.Close()

	fetcher := newTestFetcher(t, mock, characters.DefaultFetchConfig())

	records, err := fetcher.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 42 {
		t.Errorf("records = %d, want 42", len(records))
	}
	if mock.RequestCount != 1 {
		t.Errorf("requests = %d, want 1", mock.RequestCount)
	}
}

func TestFetchAll_EmptyCatalog(t *testing.T) {
	mock := testutil.NewMockMarvel(0)
	defer mock.Close()

	fetcher := newTestFetcher(t, mock, characters.DefaultFetchConfig())

	records, err := fetcher.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("records = %d, want 0", len(records))
	}
	if mock.RequestCount != 1 {
		t.Errorf("requests = %d, want 1", mock.RequestCount)
	}
}

func TestFetchAll_ExactPageBoundary(t *testing.T) {
	// total == 2 * pageSize: must issue exactly 2 requests, not 3.
	mock := testutil.NewMockMarvel(200)
	defer mock.Close()

	fetcher := newTestFetcher(t, mock, characters.DefaultFetchConfig())

	records, err := fetcher.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 200 {
		t.Errorf("records = %d, want 200", len(records))
	}
	if mock.RequestCount != 2 {
		t.Errorf("requests = %d, want 2", mock.RequestCount)
	}
}

func TestFetchAll_FreshSignaturePerRequest(t *testing.T) {
	mock := testutil.NewMockMarvel(250)
	defer mock.Close()
	mock.RequireAuth(testCreds.PublicKey, testCreds.PrivateKey)

	fetcher := newTestFetcher(t, mock, characters.DefaultFetchConfig())

	if _, err := fetcher.FetchAll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seenTS := map[string]bool{}
	seenHash := map[string]bool{}
	for _, query := range mock.Queries {
		ts := query.Get("ts")
		hash := query.Get("hash")
		if seenTS[ts] {
			t.Errorf("timestamp %q reused across requests", ts)
		}
		if seenHash[hash] {
			t.Errorf("signature %q reused across requests", hash)
		}
		seenTS[ts] = true
		seenHash[hash] = true
	}
}

func TestFetchAll_ModifiedSincePassthrough(t *testing.T) {
	mock := testutil.NewMockMarvel(10)
	defer mock.Close()

	cfg := characters.DefaultFetchConfig()
	cfg.ModifiedSince = "2024-01-01"
	fetcher := newTestFetcher(t, mock, cfg)

	if _, err := fetcher.FetchAll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := mock.Queries[0].Get("modifiedSince"); got != "2024-01-01" {
		t.Errorf("modifiedSince = %q, want 2024-01-01", got)
	}
}

func TestFetchAll_NoModifiedSinceByDefault(t *testing.T) {
	mock := testutil.NewMockMarvel(10)
	defer mock.Close()

	fetcher := newTestFetcher(t, mock, characters.DefaultFetchConfig())

	if _, err := fetcher.FetchAll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, present := mock.Queries[0]["modifiedSince"]; present {
		t.Error("modifiedSince must not be sent unless configured")
	}
}

func TestFetchAll_TransportFailureAbortsWalk(t *testing.T) {
	mock := testutil.NewMockMarvel(250)
	defer mock.Close()

	// First page succeeds; the second request is rejected permanently.
	// The whole walk fails with no partial result.
	mock.FailAt(2, 404)

	fetcher := newTestFetcher(t, mock, characters.DefaultFetchConfig())

	records, err := fetcher.FetchAll(context.Background())
	if err == nil {
		t.Fatal("expected walk to abort on transport failure")
	}
	var reqErr *client.RequestFailedError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected RequestFailedError, got %v", err)
	}
	if reqErr.StatusCode != 404 {
		t.Errorf("StatusCode = %d, want 404", reqErr.StatusCode)
	}
	if records != nil {
		t.Errorf("expected no partial dataset, got %d records", len(records))
	}
}

func TestFetchAll_RetriesTransientServerErrors(t *testing.T) {
	mock := testutil.NewMockMarvel(150)
	defer mock.Close()
	mock.FailNext(502, 502)

	fetcher := newTestFetcher(t, mock, characters.DefaultFetchConfig())

	records, err := fetcher.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 150 {
		t.Errorf("records = %d, want 150", len(records))
	}
	// 2 failed attempts + 2 successful pages.
	if mock.RequestCount != 4 {
		t.Errorf("requests = %d, want 4", mock.RequestCount)
	}
}
