package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"divimport/internal/gateway"
	"divimport/internal/logging"
	"divimport/internal/recovery"
	"divimport/internal/server"
	"divimport/internal/testsupport"
)

type instantController struct{}

func (instantController) EnsureDaemonRunning(ctx context.Context) (*recovery.DaemonHandle, error) {
	return &recovery.DaemonHandle{PID: 1, Endpoint: "http://127.0.0.1:51473", DataDir: "/tmp/divi"}, nil
}

func (instantController) SubmitMnemonic(ctx context.Context, handle *recovery.DaemonHandle, mnemonic []byte) error {
	return nil
}

func (instantController) PollSyncProgress(ctx context.Context, handle *recovery.DaemonHandle) (recovery.ProgressReport, error) {
	return recovery.ProgressReport{Progress: 1.0, Blocks: 42}, nil
}

func (instantController) LaunchDesktopApp(ctx context.Context) error { return nil }

func (instantController) DaemonReachable(ctx context.Context, endpoint string) bool { return true }

type testEnv struct {
	base   string
	token  string
	client *http.Client
}

func startServer(t *testing.T) *testEnv {
	t.Helper()
	cfg := testsupport.NewConfig(t)

	token, err := gateway.IssueToken()
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	store := recovery.NewStore(cfg.SessionFilePath())
	orch := recovery.NewOrchestrator(cfg, store, instantController{}, token, logging.NewNop())

	srv := server.New(cfg, orch, token, logging.NewNop())
	if srv == nil {
		t.Fatal("expected a server for a configured bind address")
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(srv.Stop)

	return &testEnv{
		base:   strings.TrimSuffix(srv.URL(), "/"),
		token:  token.Value(),
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, e.base+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("X-Session-Token", e.token)
	resp, err := e.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()
	decoded := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

const validMnemonic = "abandon ability able about above absent absorb abstract absurd abuse access account"

func TestRequestsWithoutTokenAreRejected(t *testing.T) {
	env := startServer(t)
	resp, err := env.client.Get(env.base + "/api/status")
	if err != nil {
		t.Fatalf("GET status failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}
}

func TestIndexInjectsSessionToken(t *testing.T) {
	env := startServer(t)
	resp, err := env.client.Get(env.base + "/")
	if err != nil {
		t.Fatalf("GET / failed: %v", err)
	}
	defer resp.Body.Close()
	page, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read page: %v", err)
	}
	if !strings.Contains(string(page), env.token) {
		t.Fatal("expected the wizard page to carry the session token")
	}
	if strings.Contains(string(page), "__SESSION_TOKEN__") {
		t.Fatal("placeholder must be replaced")
	}
}

func TestBeginDrivesRecoveryToLaunched(t *testing.T) {
	env := startServer(t)
	resp, _ := env.do(t, http.MethodPost, "/api/recovery/begin", map[string]string{"mnemonic": validMnemonic})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202 from begin, got %d", resp.StatusCode)
	}

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		resp, body := env.do(t, http.MethodGet, "/api/status", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status returned %d", resp.StatusCode)
		}
		if body["status"] == string(recovery.StatusLaunched) {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("recovery never reached LAUNCHED")
}

func TestBeginRejectsInvalidMnemonic(t *testing.T) {
	env := startServer(t)
	resp, body := env.do(t, http.MethodPost, "/api/recovery/begin", map[string]string{"mnemonic": "UPPER case words"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if body["error"] != "InvalidMnemonicFormat" {
		t.Fatalf("expected InvalidMnemonicFormat code, got %v", body["error"])
	}
}

func TestClearReturnsOK(t *testing.T) {
	env := startServer(t)
	resp, _ := env.do(t, http.MethodPost, "/api/recovery/clear", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from clear, got %d", resp.StatusCode)
	}
}

func TestResumeWithoutSessionConflicts(t *testing.T) {
	env := startServer(t)
	resp, body := env.do(t, http.MethodPost, "/api/recovery/resume", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
	if body["error"] != "NoResumableSession" {
		t.Fatalf("unexpected error code %v", body["error"])
	}
}

func TestPlatformEndpointDescribesEnvironment(t *testing.T) {
	env := startServer(t)
	resp, body := env.do(t, http.MethodGet, "/api/platform", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if _, ok := body["data_dir"]; !ok {
		t.Fatalf("expected data_dir in response, got %v", body)
	}
}
