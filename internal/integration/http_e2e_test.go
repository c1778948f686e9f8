//go:build integration || !unit

package integration

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-jwt/jwt/v5"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	httpserver "fixia/internal/adapters/http_server"
	"fixia/internal/app"
	mysqlrepo "fixia/internal/storage/mysql"
)

const e2eSecret = "e2e-test-secret"

// ---------- helpers ----------

func mustEnv(t *testing.T, k string) string {
	t.Helper()
	v := os.Getenv(k)
	if v == "" {
		t.Fatalf("%s not set; export it (e.g. MIGRATIONS_DIR=/path/to/sql)", k)
	}
	return v
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := mustEnv(t, "MIGRATIONS_DIR")

	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		t.Fatalf("MIGRATIONS_DIR=%s is not a directory or missing", dir)
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)
	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

type nopCache struct{}

func (nopCache) Get(ctx context.Context, key string, dst any) (bool, error)   { return false, nil }
func (nopCache) Set(ctx context.Context, key string, v any, ttlSec int) error { return nil }
func (nopCache) Del(ctx context.Context, key string) error                    { return nil }

func signToken(t *testing.T, explorerID int64) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": strconv.FormatInt(explorerID, 10),
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	s, err := tok.SignedString([]byte(e2eSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

// ---------- the test ----------

func TestHTTP_EndToEnd_ReviewObligationFlow(t *testing.T) {
	// Start isolated MySQL container
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}
	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=fixia",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	hostPort := resource.GetPort("3306/tcp")
	dsn := fmt.Sprintf("root:%s@tcp(127.0.0.1:%s)/%s?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		"root", hostPort, "fixia")

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)

	repo := mysqlrepo.New(db)
	ctx := context.Background()

	// Seed an explorer, a professional, and a completed connection.
	res, err := db.ExecContext(ctx,
		`INSERT INTO users (first_name, last_name, role, verification_status) VALUES (?,?,?,?)`,
		"Lucia", "Fernandez", "explorer", "verified")
	if err != nil {
		t.Fatalf("insert explorer: %v", err)
	}
	explorerID, _ := res.LastInsertId()

	res, err = db.ExecContext(ctx,
		`INSERT INTO users (first_name, last_name, role, verification_status) VALUES (?,?,?,?)`,
		"Carlos", "Gomez", "as", "verified")
	if err != nil {
		t.Fatalf("insert AS: %v", err)
	}
	asID, _ := res.LastInsertId()

	completed := time.Now().UTC().Add(-3 * 24 * time.Hour).Truncate(time.Second)
	res, err = db.ExecContext(ctx,
		`INSERT INTO service_connections
		   (explorer_id, as_user_id, service_title, status, service_completed_at)
		 VALUES (?,?,?,?,?)`,
		explorerID, asID, "Plumbing repair", "completed", completed)
	if err != nil {
		t.Fatalf("insert connection: %v", err)
	}
	connID, _ := res.LastInsertId()

	if err := repo.CreateObligation(ctx, connID, explorerID, completed.Add(7*24*time.Hour)); err != nil {
		t.Fatalf("CreateObligation: %v", err)
	}

	// Full server wiring minus redis/notify.
	q := app.NewQueryService(repo, nopCache{}, time.Minute)
	r := app.NewReviewService(repo, nopCache{}, nil)
	c := app.NewConnectionService(repo)
	srv := httpserver.New()
	srv.MountHandlers(&httpserver.Handlers{Q: q, R: r, C: c, Auth: httpserver.NewAuth(e2eSecret)})
	ts := httptest.NewServer(srv.Mux())
	defer ts.Close()

	token := signToken(t, explorerID)
	authGet := func(path string, out any) int {
		req, _ := http.NewRequest("GET", ts.URL+path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		defer resp.Body.Close()
		if out != nil && resp.StatusCode == http.StatusOK {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				t.Fatalf("decode %s: %v", path, err)
			}
		}
		return resp.StatusCode
	}

	// Blocked with one obligation.
	var st struct {
		IsBlocked       bool `json:"is_blocked"`
		ObligationCount int  `json:"obligation_count"`
	}
	if code := authGet("/api/explorer/blocking-status", &st); code != http.StatusOK {
		t.Fatalf("blocking-status: %d", code)
	}
	if !st.IsBlocked || st.ObligationCount != 1 {
		t.Fatalf("unexpected status: %+v", st)
	}

	var list []struct {
		ConnectionID int64  `json:"connection_id"`
		ASName       string `json:"as_name"`
	}
	if code := authGet("/api/explorer/review-obligations", &list); code != http.StatusOK {
		t.Fatalf("review-obligations: %d", code)
	}
	if len(list) != 1 || list[0].ConnectionID != connID || list[0].ASName != "Carlos" {
		t.Fatalf("unexpected obligations: %+v", list)
	}

	// Submit the review over HTTP.
	body, _ := json.Marshal(map[string]any{
		"connection_id": connID, "rating": 5, "comment": "Excelente trabajo",
		"would_hire_again": true, "recommend_to_others": true,
	})
	req, _ := http.NewRequest("POST", ts.URL+"/api/explorer/reviews", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST reviews: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("submit status: %d", resp.StatusCode)
	}

	// Unblocked afterwards.
	if code := authGet("/api/explorer/blocking-status", &st); code != http.StatusOK {
		t.Fatalf("blocking-status: %d", code)
	}
	if st.IsBlocked || st.ObligationCount != 0 {
		t.Fatalf("expected unblocked, got %+v", st)
	}
}
