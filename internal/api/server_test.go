package api

import (
	"bufio"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/survey-ops/surveyor/internal/events"
	"github.com/survey-ops/surveyor/internal/survey"
)

type fixedStatus struct{ s survey.Status }

func (f fixedStatus) Status() survey.Status { return f.s }

func newTestServer(t *testing.T) (*Server, *events.Hub) {
	t.Helper()
	hub := events.NewHub(16)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	status := fixedStatus{s: survey.Status{Robot: "bumble", Action: "panorama bumble jem_bay4", Running: true}}
	return New(Config{Listen: "127.0.0.1:0", Token: "secret"}, status, hub, logger), hub
}

func TestHealthzIsUnauthenticated(t *testing.T) {
	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.routes())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestStatusRequiresToken(t *testing.T) {
	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.routes())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/status")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d, want 401", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/status", nil)
	req.Header.Set("Authorization", "Bearer secret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("authenticated status = %d", resp.StatusCode)
	}

	var got survey.Status
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if got.Robot != "bumble" || !got.Running {
		t.Fatalf("status = %+v", got)
	}
}

func TestStatusRejectsWrongToken(t *testing.T) {
	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.routes())
	defer ts.Close()

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/status", nil)
	req.Header.Set("Authorization", "Bearer nope")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestEventsStreamDeliversBufferedAndLive(t *testing.T) {
	s, hub := newTestServer(t)
	ts := httptest.NewServer(s.routes())
	defer ts.Close()

	hub.Publish(events.TypeActionStarted, "bumble", map[string]string{"action": "dock"})

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/events", nil)
	req.Header.Set("Authorization", "Bearer secret")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	sawBuffered := false
	sawLive := false
	timeout := time.After(5 * time.Second)
	published := false
	for !sawLive {
		select {
		case line, ok := <-lines:
			if !ok {
				t.Fatal("stream closed early")
			}
			if strings.HasPrefix(line, "event: "+events.TypeActionStarted) {
				sawBuffered = true
				if !published {
					hub.Publish(events.TypeActionFinished, "bumble", nil)
					published = true
				}
			}
			if strings.HasPrefix(line, "event: "+events.TypeActionFinished) {
				sawLive = true
			}
		case <-timeout:
			t.Fatalf("timed out (buffered=%v live=%v)", sawBuffered, sawLive)
		}
	}
}

func TestExtractToken(t *testing.T) {
	cases := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{"Bearer abc", "abc", false},
		{"Bearer   abc  ", "abc", false},
		{"", "", true},
		{"Basic abc", "", true},
		{"Bearer ", "", true},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			r.Header.Set("Authorization", tc.header)
		}
		got, err := ExtractToken(r)
		if tc.wantErr {
			if err == nil {
				t.Errorf("header %q: expected error", tc.header)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("header %q: got %q, %v", tc.header, got, err)
		}
	}
}
