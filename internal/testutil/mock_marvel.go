// Package testutil provides testing utilities for the Marvel API extractor.
package testutil

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"

	"github.com/ArturWagner/marvel-characters-df/pkg/characters"
)

// MockMarvel is a configurable in-memory Marvel API server for testing.
// It serves a synthetic character catalog on /v1/public/characters with
// offset/limit pagination, optional hash authentication, and scriptable
// failure responses.
type MockMarvel struct {
	server  *httptest.Server
	catalog []characters.Character

	mu         sync.Mutex
	publicKey  string
	privateKey string
	failures   []int
	failAt     map[int]int

	// Tracking
	RequestCount int
	Offsets      []int
	Queries      []url.Values
}

// NewMockMarvel creates a mock server with a catalog of the given size.
func NewMockMarvel(totalRecords int) *MockMarvel {
	mock := &MockMarvel{
		catalog: syntheticCatalog(totalRecords),
		failAt:  make(map[int]int),
	}
	mock.server = httptest.NewServer(http.HandlerFunc(mock.handle))
	return mock
}

// BaseURL returns the versioned API base of the mock server, ending in a
// slash, suitable as a client base URL.
func (m *MockMarvel) BaseURL() string {
	return m.server.URL + "/v1/public/"
}

// Close shuts the server down.
func (m *MockMarvel) Close() {
	m.server.Close()
}

// RequireAuth enables signature validation for the given key pair.
// Requests with a missing ts or a wrong hash are rejected with 401.
func (m *MockMarvel) RequireAuth(publicKey, privateKey string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publicKey = publicKey
	m.privateKey = privateKey
}

// FailNext queues status codes to serve, one per request, before normal
// handling resumes.
func (m *MockMarvel) FailNext(statuses ...int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, statuses...)
}

// FailAt makes the nth request (1-based) fail with the given status,
// regardless of what else is queued.
func (m *MockMarvel) FailAt(n, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAt[n] = status
}

func (m *MockMarvel) handle(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.RequestCount++

	if status, ok := m.failAt[m.RequestCount]; ok {
		m.mu.Unlock()
		w.WriteHeader(status)
		fmt.Fprintf(w, `{"code":%d,"status":"injected failure"}`, status)
		return
	}

	if len(m.failures) > 0 {
		status := m.failures[0]
		m.failures = m.failures[1:]
		m.mu.Unlock()
		w.WriteHeader(status)
		fmt.Fprintf(w, `{"code":%d,"status":"injected failure"}`, status)
		return
	}

	publicKey, privateKey := m.publicKey, m.privateKey
	m.mu.Unlock()

	if r.URL.Path != "/v1/public/characters" {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"code":404,"status":"not found"}`)
		return
	}

	query := r.URL.Query()

	if publicKey != "" {
		ts := query.Get("ts")
		sum := md5.Sum([]byte(ts + privateKey + publicKey))
		if ts == "" || query.Get("apikey") != publicKey || query.Get("hash") != hex.EncodeToString(sum[:]) {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"code":"InvalidCredentials","message":"That hash, timestamp and key combination is invalid."}`)
			return
		}
	}

	offset, _ := strconv.Atoi(query.Get("offset"))
	limit, err := strconv.Atoi(query.Get("limit"))
	if err != nil || limit <= 0 {
		limit = 20
	}

	m.mu.Lock()
	m.Offsets = append(m.Offsets, offset)
	m.Queries = append(m.Queries, query)
	m.mu.Unlock()

	results := []characters.Character{}
	if offset < len(m.catalog) {
		end := offset + limit
		if end > len(m.catalog) {
			end = len(m.catalog)
		}
		results = m.catalog[offset:end]
	}

	envelope := characters.Envelope{
		Code:   200,
		Status: "Ok",
		Data: characters.Page{
			Offset:  offset,
			Limit:   limit,
			Total:   len(m.catalog),
			Count:   len(results),
			Results: results,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(envelope); err != nil {
		panic(fmt.Sprintf("encode mock response: %v", err))
	}
}

// syntheticCatalog builds n raw records with realistic counter groups.
func syntheticCatalog(n int) []characters.Character {
	catalog := make([]characters.Character, n)
	for i := range catalog {
		id := 1000 + i
		catalog[i] = characters.Character{
			ID:          id,
			Name:        fmt.Sprintf("Character %d", i),
			Description: fmt.Sprintf("Synthetic character number %d", i),
			Comics:      counterGroup(id, "comics", i%7),
			Series:      counterGroup(id, "series", i%5),
			Stories:     counterGroup(id, "stories", i%11),
			Events:      counterGroup(id, "events", i%3),
		}
	}
	return catalog
}

func counterGroup(id int, kind string, available int) json.RawMessage {
	group := fmt.Sprintf(
		`{"available":%d,"collectionURI":"http://gateway.marvel.com/v1/public/characters/%d/%s","items":[],"returned":0}`,
		available, id, kind,
	)
	return json.RawMessage(group)
}
