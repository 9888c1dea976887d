package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	defaultDirectoryTable   = "users"
	defaultDirectoryTries   = 2
	defaultDirectoryTimeout = 5 * time.Second
	defaultRetryInterval    = 100 * time.Millisecond
	maxBodyPreview          = 200
	maxResponseBytes        = 1 << 20
)

// DirectoryConfig configures the remote user directory.
type DirectoryConfig struct {
	BaseURL string
	APIKey  string
	// Table defaults to "users".
	Table string
	// MaxTries is the total number of lookup tries, first included.
	MaxTries        uint
	InitialInterval time.Duration
	// Timeout bounds one HTTP round trip when HTTPClient is nil.
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Enabled reports whether both the base URL and access key are set.
func (c DirectoryConfig) Enabled() bool {
	return strings.TrimSpace(c.BaseURL) != "" && strings.TrimSpace(c.APIKey) != ""
}

// Directory looks users up in a PostgREST-style directory:
//
//	GET {base}/rest/v1/{table}?select=id,email,name,role,password_hash&email=eq.{email}&limit=1
//
// Transport failures, 5xx/429 responses and undecodable bodies are retried
// with exponential backoff. Concurrent lookups of one email share a request.
type Directory struct {
	cfg       DirectoryConfig
	client    *http.Client
	logger    *zap.Logger
	group     singleflight.Group
	verifiers []Verifier
}

// NewDirectory builds a directory source. When exchange is non-nil a
// [TokenVerifier] is added after the hash verifier.
func NewDirectory(cfg DirectoryConfig, exchange *TokenVerifier) (*Directory, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("directory source requires base URL and access key")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("directory base URL: %w", err)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Table == "" {
		cfg.Table = defaultDirectoryTable
	}
	if cfg.MaxTries == 0 {
		cfg.MaxTries = defaultDirectoryTries
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = defaultRetryInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultDirectoryTimeout
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	verifiers := []Verifier{HashVerifier{}}
	if exchange != nil {
		verifiers = append(verifiers, exchange)
	}

	return &Directory{
		cfg:       cfg,
		client:    client,
		logger:    logger.Named("directory"),
		verifiers: verifiers,
	}, nil
}

func (d *Directory) Name() string { return "directory" }

func (d *Directory) Verifiers() []Verifier { return d.verifiers }

// Lookup implements [Source]. The shared request is detached from any one
// caller's cancellation and bounded by Timeout per try instead; a caller
// whose ctx ends stops waiting without failing the others.
func (d *Directory) Lookup(ctx context.Context, email string) (*Record, error) {
	ch := d.group.DoChan(email, func() (any, error) {
		budget := d.cfg.Timeout * time.Duration(d.cfg.MaxTries)
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), budget)
		defer cancel()
		return d.lookupWithRetry(sctx, email)
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: directory: %v", ErrUnavailable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		rec, _ := res.Val.(*Record)
		if rec == nil {
			return nil, nil
		}
		out := *rec
		return &out, nil
	}
}

func (d *Directory) lookupWithRetry(ctx context.Context, email string) (*Record, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.cfg.InitialInterval

	rec, err := backoff.Retry(ctx, func() (*Record, error) {
		return d.fetch(ctx, email)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(d.cfg.MaxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			d.logger.Debug("directory lookup retry", zap.Error(err), zap.Duration("backoff", next))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: directory: %v", ErrUnavailable, err)
	}
	return rec, nil
}

type directoryRow struct {
	ID           json.RawMessage `json:"id"`
	Email        string          `json:"email"`
	Name         *string         `json:"name"`
	Role         *string         `json:"role"`
	PasswordHash *string         `json:"password_hash"`
}

func (d *Directory) fetch(ctx context.Context, email string) (*Record, error) {
	q := url.Values{}
	q.Set("select", "id,email,name,role,password_hash")
	q.Set("email", "eq."+email)
	q.Set("limit", "1")
	endpoint := d.cfg.BaseURL + "/rest/v1/" + url.PathEscape(d.cfg.Table) + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("apikey", d.cfg.APIKey)
	req.Header.Set("Authorization", "Bearer "+d.cfg.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := fmt.Errorf("HTTP %d - %s", resp.StatusCode, preview(body))
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, statusErr
		}
		return nil, backoff.Permanent(statusErr)
	}

	var rows []directoryRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	row := rows[0]
	return &Record{
		ID:           rawID(row.ID),
		Email:        row.Email,
		Name:         deref(row.Name),
		Role:         deref(row.Role),
		PasswordHash: deref(row.PasswordHash),
	}, nil
}

func preview(body []byte) string {
	s := string(body)
	if len(s) > maxBodyPreview {
		s = s[:maxBodyPreview] + "..."
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// rawID accepts both string and numeric primary keys.
func rawID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
