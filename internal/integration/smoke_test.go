// Package integration exercises the full pipeline end to end: config file,
// factory-selected drivers, service, and the HTTP dashboard.
package integration

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"policyhub/internal/adapters/dashboard"
	"policyhub/internal/archive"
	"policyhub/internal/config"
	"policyhub/internal/core"
	"policyhub/internal/rows"
)

// TestIntegrationSmoke runs one minimal write/read cycle per seedable row
// source driver, pairing them with both archive drivers. It intentionally
// keeps scope tiny so it can act as a fast CI health check.
func TestIntegrationSmoke(t *testing.T) {
	variants := []struct {
		name          string
		rowsSection   func(t *testing.T) string
		archiveDriver string
	}{
		{
			name: "csvfile-rows-fs-archive",
			rowsSection: func(t *testing.T) string {
				dir := seedCSVDir(t)
				return fmt.Sprintf("rows:\n  driver: csvfile\n  csvfile:\n    dir: %q\n", dir)
			},
			archiveDriver: "fs",
		},
		{
			name: "sqlite-rows-memory-archive",
			rowsSection: func(t *testing.T) string {
				path := seedSQLiteRegistry(t)
				return fmt.Sprintf("rows:\n  driver: sqlite\n  sqlite:\n    path: %q\n", path)
			},
			archiveDriver: "memory",
		},
	}

	for _, variant := range variants {
		t.Run(variant.name, func(t *testing.T) {
			archiveDir := t.TempDir()
			cfgYAML := "listen_addr: \":0\"\n" +
				"cache_ttl_sec: 60\n" +
				"sheets:\n  - policies\n  - security\n" +
				"source_names:\n  policies: Policy Library\n  security: Security Docs\n" +
				variant.rowsSection(t) +
				fmt.Sprintf("archive:\n  driver: %s\n  fs:\n    dir: %q\n", variant.archiveDriver, archiveDir)

			cfgPath := filepath.Join(t.TempDir(), "policyhub.yaml")
			if err := os.WriteFile(cfgPath, []byte(cfgYAML), 0o600); err != nil {
				t.Fatalf("write config: %v", err)
			}
			cfg, err := config.Load(cfgPath)
			if err != nil {
				t.Fatalf("load config: %v", err)
			}

			src, err := rows.Open(rows.Config{
				Driver:     rows.Driver(cfg.Rows.Driver),
				CSVDir:     cfg.Rows.CSVFile.Dir,
				SQLitePath: cfg.Rows.SQLite.Path,
			}, nil)
			if err != nil {
				t.Fatalf("open rows source: %v", err)
			}
			t.Cleanup(func() { _ = src.Close() })

			ctx, cancel := context.WithCancel(context.Background())
			t.Cleanup(cancel)
			store, err := archive.Open(ctx, archive.Config{
				Driver: archive.Driver(cfg.Archive.Driver),
				FSDir:  cfg.Archive.FS.Dir,
			})
			if err != nil {
				t.Fatalf("open archive store: %v", err)
			}

			svc := core.NewService(src, core.Options{
				Sources:     cfg.SheetIdentifiers(),
				SourceNames: cfg.SourceNames,
				CacheTTL:    cfg.CacheTTL(),
			})
			handler := dashboard.NewHandler(svc)
			handler.Exports = core.NewArchiver(store, nil)

			ts := httptest.NewServer(handler.Routes())
			defer ts.Close()

			assertDashboard(t, ts)
			if variant.archiveDriver == "fs" {
				assertArchivedOnDisk(t, archiveDir)
			}
		})
	}
}

// assertDashboard drives the HTTP surface: the rendered index, a filtered
// CSV export, the JSON API, a refresh, and the export archive round trip.
func assertDashboard(t *testing.T, ts *httptest.Server) {
	t.Helper()

	body := getBody(t, ts.URL+"/")
	for _, want := range []string{"3 of 3 items", "Travel Policy", "Security Baseline", "Security Docs"} {
		if !strings.Contains(body, want) {
			t.Fatalf("index missing %q", want)
		}
	}

	raw := getBytes(t, ts.URL+"/export.csv?category=Engineering")
	if !bytes.HasPrefix(raw, []byte{0xEF, 0xBB, 0xBF}) {
		t.Fatalf("csv export missing BOM")
	}
	records, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF}))).ReadAll()
	if err != nil {
		t.Fatalf("parse exported csv: %v", err)
	}
	if len(records) != 2 || records[1][0] != "Security Baseline" {
		t.Fatalf("unexpected csv rows %v", records)
	}

	var view core.View
	decodeGet(t, ts.URL+"/api/v1/records?tag=travel", &view)
	if view.Total != 3 || view.Filtered != 1 {
		t.Fatalf("expected 1 of 3 records, got %d of %d", view.Filtered, view.Total)
	}
	if view.Records[0].SourceName != "Policy Library" {
		t.Fatalf("unexpected source name %q", view.Records[0].SourceName)
	}

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := client.Post(ts.URL+"/refresh?q=travel", "", nil)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/?q=travel" {
		t.Fatalf("unexpected refresh response: %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	resp, err = http.Post(ts.URL+"/api/v1/exports?format=csv&category=Finance", "", nil)
	if err != nil {
		t.Fatalf("create export: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected export status: %d", resp.StatusCode)
	}
	var created struct {
		Export archive.Info `json:"export"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode export response: %v", err)
	}

	download := getBytes(t, ts.URL+"/api/v1/exports/"+core.ArtifactID(created.Export.Key)+"?download=1")
	if !bytes.HasPrefix(download, []byte{0xEF, 0xBB, 0xBF}) {
		t.Fatalf("archived csv missing BOM")
	}
}

// assertArchivedOnDisk verifies that the fs archive materialized the export
// artifact and its metadata sidecar under the exports prefix.
func assertArchivedOnDisk(t *testing.T, root string) {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(root, "exports"))
	if err != nil {
		t.Fatalf("read archive dir: %v", err)
	}
	var artifacts, sidecars int
	for _, entry := range entries {
		switch {
		case strings.HasSuffix(entry.Name(), ".meta"):
			sidecars++
		case strings.HasSuffix(entry.Name(), ".csv"):
			artifacts++
		}
	}
	if artifacts != 1 || sidecars != 1 {
		t.Fatalf("expected one artifact with sidecar, got %d/%d", artifacts, sidecars)
	}
}

func seedCSVDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"policies.csv": "title,category,owner,tags,notes,drive_link,updated_at\n" +
			"Travel Policy,Finance,Dana,travel; finance,,https://example.com/travel,2026-01-10\n" +
			"Onboarding Guide,HR,Riley,onboarding,See the wiki.,https://example.com/onboarding,2026-03-01\n",
		"security.csv": "title,category,drive_link,updated_at\n" +
			"Security Baseline,Engineering,https://example.com/security,2026-02-20\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func seedSQLiteRegistry(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "registry.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()
	if _, err := db.Exec(`CREATE TABLE policyhub_sheets (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		payload TEXT NOT NULL
	)`); err != nil {
		t.Fatalf("create registry table: %v", err)
	}

	sheets := map[string][2]string{
		"policies": {"Policy Library", `[
			{"title":"Travel Policy","category":"Finance","owner":"Dana","tags":"travel; finance","drive_link":"https://example.com/travel","updated_at":"2026-01-10"},
			{"title":"Onboarding Guide","category":"HR","owner":"Riley","notes":"See the wiki.","drive_link":"https://example.com/onboarding","updated_at":"2026-03-01"}
		]`},
		"security": {"Security Docs", `[
			{"title":"Security Baseline","category":"Engineering","drive_link":"https://example.com/security","updated_at":"2026-02-20"}
		]`},
	}
	for id, entry := range sheets {
		if _, err := db.Exec(`INSERT INTO policyhub_sheets (id, name, payload) VALUES (?, ?, ?)`, id, entry[0], entry[1]); err != nil {
			t.Fatalf("seed sheet %s: %v", id, err)
		}
	}
	return path
}

func getBody(t *testing.T, url string) string {
	t.Helper()
	return string(getBytes(t, url))
}

func getBytes(t *testing.T, url string) []byte {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: unexpected status %d", url, resp.StatusCode)
	}
	body := new(bytes.Buffer)
	if _, err := body.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	return body.Bytes()
}

func decodeGet(t *testing.T, url string, out any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: unexpected status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
}
