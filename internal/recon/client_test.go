package recon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestClient_GetJobStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/jobs/abc-123" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		w.Write([]byte(`{"uuid":"abc-123","name":"nightly","model_name":"m1","status":"done","total_threats":2,"total_goals_achieved":0}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	status, err := c.GetJobStatus(context.Background(), "abc-123")
	if err != nil {
		t.Fatalf("GetJobStatus() error = %v", err)
	}
	if status.UUID != "abc-123" {
		t.Errorf("UUID = %q", status.UUID)
	}
	if !status.Successful() {
		t.Error("job with threats should be successful")
	}
}

func TestJobStatus_Successful(t *testing.T) {
	tests := []struct {
		name   string
		status JobStatus
		want   bool
	}{
		{"goals achieved", JobStatus{TotalGoalsAchieved: 1}, true},
		{"threats found", JobStatus{TotalThreats: 3}, true},
		{"clean", JobStatus{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.Successful(); got != tt.want {
				t.Errorf("Successful() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClient_DownloadReport(t *testing.T) {
	payload := []byte("PK\x03\x04fake-zip-bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/reports/abc-123" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("file_format"); got != "json" {
			t.Errorf("file_format = %q", got)
		}
		w.Write(payload)
	}))
	defer srv.Close()

	dir := t.TempDir()
	c := NewClient(srv.URL, "tok")
	path, err := c.DownloadReport(context.Background(), "abc-123", "json", dir)
	if err != nil {
		t.Fatalf("DownloadReport() error = %v", err)
	}
	if want := filepath.Join(dir, "abc-123_report.zip"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read saved report: %v", err)
	}
	if string(got) != string(payload) {
		t.Error("saved report does not match response body")
	}
}

func TestClient_DownloadReportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such job", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	if _, err := c.DownloadReport(context.Background(), "missing", "all", t.TempDir()); err == nil {
		t.Fatal("expected error for 404")
	}
}
