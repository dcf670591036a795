// Package sheets implements a row Source over the Google Sheets and Drive
// HTTP APIs. Only read endpoints are used; authentication is an API key.
package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"policyhub/internal/rows/core"
)

const (
	defaultBaseURL      = "https://sheets.googleapis.com"
	defaultDriveBaseURL = "https://www.googleapis.com"
	defaultRange        = "A1:ZZ"
	defaultTimeout      = 30 * time.Second

	maxAttempts  = 3
	initialDelay = 500 * time.Millisecond
	maxBodyBytes = 16 << 20
)

// ErrUnexpectedStatus indicates an HTTP response with an unexpected status.
var ErrUnexpectedStatus = errors.New("sheets: unexpected status code")

// errNotFound is an internal marker for 404 responses; open methods convert
// it to core.NotFoundError with the caller's reference.
var errNotFound = errors.New("sheets: not found")

// Config holds explicit construction parameters. BaseURL and DriveBaseURL
// exist for tests; production uses the public Google endpoints.
type Config struct {
	APIKey       string // falls back to POLICYHUB_SHEETS_API_KEY
	BaseURL      string
	DriveBaseURL string
	Range        string // A1 notation, default A1:ZZ on the first visible tab
	HTTPClient   *http.Client
	Logger       *zap.Logger
}

// Source implements core.Source against the Sheets v4 values API, using the
// Drive v3 files API for name lookups.
type Source struct {
	apiKey    string
	baseURL   string
	driveURL  string
	cellRange string
	client    *http.Client
	logger    *zap.Logger
}

// New creates a Sheets row source from Config.
func New(cfg Config) (*Source, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("POLICYHUB_SHEETS_API_KEY")
	}
	if apiKey == "" && cfg.BaseURL == "" {
		return nil, fmt.Errorf("sheets api key required (set rows.sheets.api_key or POLICYHUB_SHEETS_API_KEY)")
	}
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	drive := strings.TrimSuffix(cfg.DriveBaseURL, "/")
	if drive == "" {
		if cfg.BaseURL != "" {
			drive = base
		} else {
			drive = defaultDriveBaseURL
		}
	}
	cellRange := cfg.Range
	if cellRange == "" {
		cellRange = defaultRange
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{apiKey: apiKey, baseURL: base, driveURL: drive, cellRange: cellRange, client: client, logger: logger}, nil
}

// Driver returns the row source driver identifier.
func (s *Source) Driver() core.Driver { return core.DriverSheets }

// Close is a no-op for the sheets driver.
func (s *Source) Close() error { return nil }

// OpenByID validates that a spreadsheet with the given document ID exists.
func (s *Source) OpenByID(ctx context.Context, id string) (core.Sheet, error) {
	path := "/v4/spreadsheets/" + url.PathEscape(id)
	var meta spreadsheetResponse
	q := url.Values{"fields": {"spreadsheetId"}}
	if err := s.getJSON(ctx, s.baseURL, path, q, &meta); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, core.NotFoundError{Ref: id}
		}
		return nil, err
	}
	resolved := meta.SpreadsheetID
	if resolved == "" {
		resolved = id
	}
	return &sheet{src: s, id: resolved}, nil
}

// OpenByName searches the Drive files listing for a spreadsheet with the
// exact name and opens the first match.
func (s *Source) OpenByName(ctx context.Context, name string) (core.Sheet, error) {
	query := fmt.Sprintf("name = '%s' and mimeType = 'application/vnd.google-apps.spreadsheet' and trashed = false", escapeDriveQuery(name))
	q := url.Values{
		"q":        {query},
		"fields":   {"files(id,name)"},
		"pageSize": {"5"},
	}
	var list driveListResponse
	if err := s.getJSON(ctx, s.driveURL, "/drive/v3/files", q, &list); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, core.NotFoundError{Ref: name}
		}
		return nil, err
	}
	if len(list.Files) == 0 {
		return nil, core.NotFoundError{Ref: name}
	}
	return &sheet{src: s, id: list.Files[0].ID}, nil
}

type sheet struct {
	src *Source
	id  string
}

func (s *sheet) ID() string { return s.id }

// Records fetches the configured range and maps each value row onto the
// header row (the first row returned). Short rows leave trailing columns
// absent; cells beyond the header are dropped.
func (s *sheet) Records(ctx context.Context) ([]core.Row, error) {
	values, err := s.fetchValues(ctx)
	if err != nil {
		return nil, err
	}
	if len(values.Values) == 0 {
		return nil, nil
	}
	headers := make([]string, len(values.Values[0]))
	for i, cell := range values.Values[0] {
		headers[i] = strings.TrimSpace(cellString(cell))
	}
	out := make([]core.Row, 0, len(values.Values)-1)
	for _, rec := range values.Values[1:] {
		row := make(core.Row, len(headers))
		for i, cell := range rec {
			if i >= len(headers) || headers[i] == "" {
				continue
			}
			row[headers[i]] = cell
		}
		out = append(out, row)
	}
	return out, nil
}

// Headers returns the trimmed header row, so a sheet with headers but no
// data rows still reports its columns.
func (s *sheet) Headers(ctx context.Context) ([]string, error) {
	values, err := s.fetchValues(ctx)
	if err != nil {
		return nil, err
	}
	if len(values.Values) == 0 {
		return nil, nil
	}
	var out []string
	for _, cell := range values.Values[0] {
		if h := strings.TrimSpace(cellString(cell)); h != "" {
			out = append(out, h)
		}
	}
	return out, nil
}

func (s *sheet) fetchValues(ctx context.Context) (valuesResponse, error) {
	path := "/v4/spreadsheets/" + url.PathEscape(s.id) + "/values/" + url.PathEscape(s.src.cellRange)
	var values valuesResponse
	if err := s.src.getJSON(ctx, s.src.baseURL, path, url.Values{}, &values); err != nil {
		return valuesResponse{}, fmt.Errorf("fetch values for %s: %w", s.id, err)
	}
	return values, nil
}

type spreadsheetResponse struct {
	SpreadsheetID string `json:"spreadsheetId"`
}

type driveListResponse struct {
	Files []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"files"`
}

type valuesResponse struct {
	Range  string  `json:"range"`
	Values [][]any `json:"values"`
}

// getJSON fetches base+path into out, retrying transient failures with a
// doubling delay. The API key never appears in logs.
func (s *Source) getJSON(ctx context.Context, base, path string, q url.Values, out any) error {
	if s.apiKey != "" {
		q.Set("key", s.apiKey)
	}
	rawURL := base + path
	if enc := q.Encode(); enc != "" {
		rawURL += "?" + enc
	}
	var lastErr error
	delay := initialDelay
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		resp, err := s.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed (attempt %d/%d): %w", attempt, maxAttempts, err)
			s.logger.Warn("sheets request retry", zap.String("path", path), zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("read response (attempt %d/%d): %w", attempt, maxAttempts, readErr)
			continue
		}
		switch {
		case resp.StatusCode == http.StatusOK:
			if err := json.Unmarshal(body, out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
			return nil
		case resp.StatusCode == http.StatusNotFound:
			return errNotFound
		case isRetryableStatus(resp.StatusCode):
			lastErr = fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
			s.logger.Warn("sheets request retry", zap.String("path", path), zap.Int("attempt", attempt), zap.Int("status", resp.StatusCode))
			continue
		default:
			return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
		}
	}
	return lastErr
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// escapeDriveQuery escapes a literal for a Drive query string expression.
func escapeDriveQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}
