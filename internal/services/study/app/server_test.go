package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestServer_AssignSubmitRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "study.db")
	t.Setenv("SURVEYS_DB_PATH", dbPath)

	contentRoot := t.TempDir()
	studyDir := filepath.Join(contentRoot, "avalanche_2025")
	if err := os.MkdirAll(studyDir, 0o755); err != nil {
		t.Fatalf("create study dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(studyDir, "config.json"), []byte(`{"bank_version":"3"}`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SURVEYS_CONTENT_DIR", contentRoot)

	srv, err := NewWithAddr("127.0.0.1:0")
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()

	serveDone := make(chan error, 1)
	go func() {
		serveDone <- srv.Serve(runCtx)
	}()
	t.Cleanup(func() {
		runCancel()
		select {
		case serveErr := <-serveDone:
			if serveErr != nil {
				t.Fatalf("serve: %v", serveErr)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("timeout waiting for server shutdown")
		}
	})

	base := "http://" + srv.Addr()
	client := &http.Client{Timeout: 5 * time.Second}

	assignBody := `{"p_uuid":"u1","p_stratum":"novice","p_ap_list":["storm","wind","persistent"]}`
	resp, err := client.Post(base+"/api/studies/avalanche_2025/assign", "application/json", strings.NewReader(assignBody))
	if err != nil {
		t.Fatalf("assign request: %v", err)
	}
	var assigned struct {
		Pair    []string `json:"pair"`
		Stratum string   `json:"stratum"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&assigned); err != nil {
		t.Fatalf("decode assign response: %v", err)
	}
	if closeErr := resp.Body.Close(); closeErr != nil {
		t.Fatalf("close assign body: %v", closeErr)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("assign status = %d", resp.StatusCode)
	}
	if len(assigned.Pair) != 2 || assigned.Stratum != "novice" {
		t.Fatalf("assign response = %+v", assigned)
	}

	submitBody := fmt.Sprintf(
		`{"p_payload":{"uuid":"u1","survey_id":"avalanche_2025","pair":[%q,%q],"stratum":"novice","answers":{"q1":"a"}}}`,
		assigned.Pair[0], assigned.Pair[1],
	)
	resp, err = client.Post(base+"/api/studies/avalanche_2025/submit", "application/json", strings.NewReader(submitBody))
	if err != nil {
		t.Fatalf("submit request: %v", err)
	}
	if closeErr := resp.Body.Close(); closeErr != nil {
		t.Fatalf("close submit body: %v", closeErr)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("submit status = %d", resp.StatusCode)
	}

	resp, err = client.Get(base + "/api/studies/avalanche_2025/config")
	if err != nil {
		t.Fatalf("config request: %v", err)
	}
	if closeErr := resp.Body.Close(); closeErr != nil {
		t.Fatalf("close config body: %v", closeErr)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("config status = %d", resp.StatusCode)
	}
}
