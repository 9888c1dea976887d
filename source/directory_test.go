package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDirectory(t *testing.T, url string, exchange *TokenVerifier) *Directory {
	t.Helper()
	d, err := NewDirectory(DirectoryConfig{
		BaseURL:         url,
		APIKey:          "anon-key",
		MaxTries:        2,
		InitialInterval: time.Millisecond,
	}, exchange)
	require.NoError(t, err)
	return d
}

func TestDirectoryLookupRequestShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/rest/v1/users", r.URL.Path)
		assert.Equal(t, "id,email,name,role,password_hash", r.URL.Query().Get("select"))
		assert.Equal(t, "eq.foo+bar@x.com", r.URL.Query().Get("email"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer anon-key", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":42,"email":"foo+bar@x.com","name":null,"role":"manager","password_hash":"$2a$04$abc"}]`))
	}))
	defer server.Close()

	d := newTestDirectory(t, server.URL+"/", nil)
	rec, err := d.Lookup(context.Background(), "foo+bar@x.com")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "42", rec.ID)
	assert.Equal(t, "foo+bar@x.com", rec.Email)
	assert.Equal(t, "", rec.Name)
	assert.Equal(t, "manager", rec.Role)
	assert.Equal(t, "$2a$04$abc", rec.PasswordHash)
}

func TestDirectoryLookupNoRow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	rec, err := newTestDirectory(t, server.URL, nil).Lookup(context.Background(), "nobody@x.com")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestDirectoryRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`[{"id":"u1","email":"a@x.com","password_hash":"h"}]`))
	}))
	defer server.Close()

	rec, err := newTestDirectory(t, server.URL, nil).Lookup(context.Background(), "a@x.com")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "u1", rec.ID)
	assert.Equal(t, int32(2), calls.Load())
}

func TestDirectoryUnavailableAfterRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	_, err := newTestDirectory(t, server.URL, nil).Lookup(context.Background(), "a@x.com")
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(2), calls.Load())
}

func TestDirectoryClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"invalid api key"}`))
	}))
	defer server.Close()

	_, err := newTestDirectory(t, server.URL, nil).Lookup(context.Background(), "a@x.com")
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "HTTP 401")
	assert.Equal(t, int32(1), calls.Load())
}

func TestDirectoryCoalescesConcurrentLookups(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		_ = json.NewEncoder(w).Encode([]map[string]string{{"id": "u1", "email": "a@x.com"}})
	}))
	defer server.Close()

	d := newTestDirectory(t, server.URL, nil)

	const n = 8
	var wg sync.WaitGroup
	results := make([]*Record, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec, err := d.Lookup(context.Background(), "a@x.com")
			assert.NoError(t, err)
			results[i] = rec
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, rec := range results {
		require.NotNil(t, rec)
		assert.Equal(t, "u1", rec.ID)
	}
	results[0].ID = "mutated"
	assert.Equal(t, "u1", results[1].ID, "callers must receive independent copies")
}

func TestDirectorySharedLookupSurvivesCallerCancel(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		time.Sleep(100 * time.Millisecond)
		_ = json.NewEncoder(w).Encode([]map[string]string{{"id": "u1", "email": "a@x.com"}})
	}))
	defer server.Close()

	d := newTestDirectory(t, server.URL, nil)

	shortErr := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := d.Lookup(ctx, "a@x.com")
		shortErr <- err
	}()

	// Join the in-flight lookup started by the short-lived caller.
	time.Sleep(5 * time.Millisecond)
	rec, err := d.Lookup(context.Background(), "a@x.com")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "u1", rec.ID)

	err = <-shortErr
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestNewDirectoryRequiresKey(t *testing.T) {
	_, err := NewDirectory(DirectoryConfig{BaseURL: "http://example.invalid"}, nil)
	assert.Error(t, err)
}

func TestDirectoryVerifierOrder(t *testing.T) {
	tv := NewTokenVerifier(NewRESTExchanger("http://example.invalid", "", "k", nil), "")
	d := newTestDirectory(t, "http://example.invalid", tv)

	vs := d.Verifiers()
	require.Len(t, vs, 2)
	assert.Equal(t, "hash", vs[0].Name())
	assert.Equal(t, "token_exchange", vs[1].Name())
}
