//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/veristat/apiserver/config"
	"github.com/veristat/apiserver/internal/model"
	"github.com/veristat/apiserver/internal/server"
)

const serverPort = 18080

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	root, err := repoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to locate repo root: %v\n", err)
		os.Exit(1)
	}

	if err := dockerCompose(ctx, root, "up", "-d"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start docker compose: %v\n", err)
		os.Exit(1)
	}

	setTestEnv("")
	if err := waitForPostgres(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "postgres not ready: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	if err := runMigrations(root); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	artifactsDir, err := writeTestArtifacts()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to write artifacts: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	srv, err := startServer(artifactsDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	if err := waitForHealth(ctx, baseURL+"/healthz"); err != nil {
		fmt.Fprintf(os.Stderr, "server not healthy: %v\n", err)
		_ = srv.Shutdown()
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	code := m.Run()

	_ = srv.Shutdown()
	_ = os.RemoveAll(artifactsDir)
	_ = dockerCompose(context.Background(), root, "down")
	os.Exit(code)
}

func TestAuthPredictFlow(t *testing.T) {
	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	username := fmt.Sprintf("user_%d", time.Now().UnixNano())
	password := "testpass123!"

	if status, _ := postJSON(t, baseURL+"/auth/register", "", map[string]string{
		"username": username, "password": password,
	}); status != http.StatusCreated {
		t.Fatalf("register status = %d", status)
	}

	// A second register with the same username must conflict.
	if status, _ := postJSON(t, baseURL+"/auth/register", "", map[string]string{
		"username": username, "password": password,
	}); status != http.StatusConflict {
		t.Fatalf("duplicate register status = %d", status)
	}

	// Wrong password and unknown username both come back as 401.
	if status, _ := postJSON(t, baseURL+"/auth/login", "", map[string]string{
		"username": username, "password": "wrongpass",
	}); status != http.StatusUnauthorized {
		t.Fatalf("wrong-password login status = %d", status)
	}
	if status, _ := postJSON(t, baseURL+"/auth/login", "", map[string]string{
		"username": "no_such_" + username, "password": password,
	}); status != http.StatusUnauthorized {
		t.Fatalf("unknown-user login status = %d", status)
	}

	token := login(t, baseURL, username, password)

	status, body := postJSON(t, baseURL+"/predict", token, map[string]string{
		"statement": "The economy grew last quarter",
		"sources":   "treasury.gov, example.com",
	})
	if status != http.StatusOK {
		t.Fatalf("predict status = %d: %s", status, body)
	}

	var result struct {
		Label             string  `json:"label"`
		Confidence        float64 `json:"confidence"`
		ExtractedFeatures struct {
			NumSources        int  `json:"num_sources"`
			HasOfficialSource bool `json:"has_official_source"`
		} `json:"extracted_features"`
		Trust struct {
			RiskLevel string `json:"risk_level"`
		} `json:"trust"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("decode predict response: %v", err)
	}
	if result.Label != "Real" && result.Label != "Fake" {
		t.Fatalf("unexpected label %q", result.Label)
	}
	if result.ExtractedFeatures.NumSources != 2 || !result.ExtractedFeatures.HasOfficialSource {
		t.Fatalf("unexpected extracted features: %+v", result.ExtractedFeatures)
	}

	// Missing text is a caller error, not a server one.
	if status, _ := postJSON(t, baseURL+"/predict", token, map[string]string{
		"speaker": "someone",
	}); status != http.StatusBadRequest {
		t.Fatalf("empty predict status = %d", status)
	}

	status, body = getJSON(t, baseURL+"/predictions", token)
	if status != http.StatusOK {
		t.Fatalf("history status = %d", status)
	}
	var history struct {
		Predictions []struct {
			Statement  string  `json:"statement"`
			Label      string  `json:"label"`
			Confidence float64 `json:"confidence"`
		} `json:"predictions"`
	}
	if err := json.Unmarshal(body, &history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(history.Predictions) != 1 {
		t.Fatalf("history length = %d, want 1", len(history.Predictions))
	}
	if history.Predictions[0].Label != result.Label || history.Predictions[0].Confidence != result.Confidence {
		t.Fatalf("history row does not match the prediction: %+v", history.Predictions[0])
	}

	// Logout revokes the token even though it still decodes fine.
	if status, _ := postJSON(t, baseURL+"/auth/logout", token, nil); status != http.StatusOK {
		t.Fatalf("logout status = %d", status)
	}
	if status, _ := getJSON(t, baseURL+"/auth/me", token); status != http.StatusUnauthorized {
		t.Fatalf("me after logout status = %d", status)
	}
	// And a second logout is a quiet no-op.
	if status, _ := postJSON(t, baseURL+"/auth/logout", token, nil); status != http.StatusOK {
		t.Fatalf("second logout status = %d", status)
	}
}

func TestAdminEndpoints(t *testing.T) {
	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	username := fmt.Sprintf("admin_%d", time.Now().UnixNano())
	password := "testpass123!"

	if status, _ := postJSON(t, baseURL+"/auth/register", "", map[string]string{
		"username": username, "password": password,
	}); status != http.StatusCreated {
		t.Fatalf("register failed")
	}

	token := login(t, baseURL, username, password)

	if status, _ := getJSON(t, baseURL+"/admin/stats", token); status != http.StatusForbidden {
		t.Fatalf("non-admin stats status = %d", status)
	}

	if err := promoteUserToAdmin(username); err != nil {
		t.Fatalf("promote user: %v", err)
	}

	status, body := getJSON(t, baseURL+"/admin/stats", token)
	if status != http.StatusOK {
		t.Fatalf("admin stats status = %d: %s", status, body)
	}

	if status, _ := getJSON(t, baseURL+"/admin/predictions", token); status != http.StatusOK {
		t.Fatalf("admin predictions status = %d", status)
	}
}

func login(t *testing.T, baseURL, username, password string) string {
	t.Helper()
	status, body := postJSON(t, baseURL+"/auth/login", "", map[string]string{
		"username": username, "password": password,
	})
	if status != http.StatusOK {
		t.Fatalf("login status = %d: %s", status, body)
	}
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if resp.AccessToken == "" {
		t.Fatalf("empty access token")
	}
	return resp.AccessToken
}

func postJSON(t *testing.T, url, token string, payload any) (int, []byte) {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("encode payload: %v", err)
		}
	}
	req, err := http.NewRequest(http.MethodPost, url, &body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return doRequest(t, req)
}

func getJSON(t *testing.T, url, token string) (int, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return doRequest(t, req)
}

func doRequest(t *testing.T, req *http.Request) (int, []byte) {
	t.Helper()
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	return resp.StatusCode, buf.Bytes()
}

func promoteUserToAdmin(username string) error {
	db, err := sql.Open("postgres", buildPostgresURL(config.LoadConfig()))
	if err != nil {
		return err
	}
	defer db.Close()
	_, err = db.Exec("UPDATE users SET is_admin = TRUE WHERE username = $1", username)
	return err
}

// writeTestArtifacts produces a minimal but valid artifact set: a two-word
// vocabulary and a single-tree forest keyed on the official-source flag.
func writeTestArtifacts() (string, error) {
	dir, err := os.MkdirTemp("", "veristat-artifacts-")
	if err != nil {
		return "", err
	}

	artifacts := map[string]any{
		model.EncoderKey: map[string]any{
			"classes": []string{"other", "some politician"},
		},
		model.VectorizerKey: map[string]any{
			"vocabulary": map[string]int{"economy": 0, "grew": 1},
			"idf":        []float64{1.0, 1.0},
			"n_features": 2,
		},
		model.ClassifierKey: map[string]any{
			"n_classes":  2,
			"n_features": 5,
			"trees": []map[string]any{{
				"children_left":  []int{1, -1, -1},
				"children_right": []int{2, -1, -1},
				"feature":        []int{2, -2, -2},
				"threshold":      []float64{0.5, -2, -2},
				"value":          [][]float64{{0, 0}, {3, 1}, {1, 3}},
			}},
		},
		model.ManifestKey: map[string]any{"version": "e2e-test"},
	}
	for key, value := range artifacts {
		data, err := json.Marshal(value)
		if err != nil {
			return "", err
		}
		if err := os.WriteFile(filepath.Join(dir, key), data, 0o644); err != nil {
			return "", err
		}
	}
	return dir, nil
}

func waitForPostgres(ctx context.Context) error {
	db, err := sql.Open("postgres", buildPostgresURL(config.LoadConfig()))
	if err != nil {
		return err
	}
	defer db.Close()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := db.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres ping timeout: %w", err)
		case <-ticker.C:
		}
	}
}

func waitForHealth(ctx context.Context, url string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			return fmt.Errorf("health check failed with status")
		case <-ticker.C:
		}
	}
}

func runMigrations(root string) error {
	cfg := config.LoadConfig()
	dsn := buildPostgresURL(cfg)
	migrationsPath := filepath.Join(root, "internal", "db", "migrations")
	migrationsURL := "file://" + migrationsPath

	migrator, err := migrate.New(migrationsURL, dsn)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func buildPostgresURL(cfg config.Config) string {
	sslmode := "disable"
	if cfg.Database.UseSSL {
		sslmode = "require"
	}
	host := fmt.Sprintf("%s:%d", cfg.Database.Host, cfg.Database.Port)
	return fmt.Sprintf(
		"postgres://%s:%s@%s/%s?sslmode=%s",
		cfg.Database.User,
		cfg.Database.Password,
		host,
		cfg.Database.DBName,
		sslmode,
	)
}

func setTestEnv(artifactsDir string) {
	_ = os.Setenv("JWT_SECRET", "test-secret")
	_ = os.Setenv("SERVER_PORT", fmt.Sprintf("%d", serverPort))
	_ = os.Setenv("DB_HOST", "localhost")
	_ = os.Setenv("DB_PORT", "5432")
	_ = os.Setenv("DB_USER", "veristat")
	_ = os.Setenv("DB_PASSWORD", "veristat")
	_ = os.Setenv("DB_NAME", "veristat")
	_ = os.Setenv("DB_USE_SSL", "false")
	_ = os.Setenv("ARTIFACTS_BACKEND", "local")
	if artifactsDir != "" {
		_ = os.Setenv("ARTIFACTS_DIR", artifactsDir)
	}
}

func startServer(artifactsDir string) (*server.Server, error) {
	setTestEnv(artifactsDir)

	cfg := config.LoadConfig()
	srv, err := server.New(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	go func() {
		_ = srv.Start()
	}()

	return srv, nil
}

func dockerCompose(ctx context.Context, root string, args ...string) error {
	composeFile := filepath.Join(root, "development", "docker-compose.yml")
	baseArgs := append([]string{"compose", "-f", composeFile}, args...)
	cmd := exec.CommandContext(ctx, "docker", baseArgs...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found")
		}
		dir = parent
	}
}
