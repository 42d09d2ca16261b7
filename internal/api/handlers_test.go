// Pulse - DaKshaa Festival Registration Live Statistics
// Copyright 2026 DaKshaa Tech Team
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dakshaa-fest/pulse

package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/dakshaa-fest/pulse/internal/database"
	"github.com/dakshaa-fest/pulse/internal/stats"
)

type fakeSource struct {
	snap    stats.Snapshot
	ok      bool
	status  database.SubscriptionStatus
	lastRun time.Time
}

func (f *fakeSource) Snapshot() (stats.Snapshot, bool)        { return f.snap, f.ok }
func (f *fakeSource) FeedStatus() database.SubscriptionStatus { return f.status }
func (f *fakeSource) LastRecompute() time.Time                { return f.lastRun }

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(context.Context) error { return f.err }

func testSnapshot() stats.Snapshot {
	return stats.Snapshot{
		ComputedAt:        time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
		BasePaid:          120,
		TotalParticipants: 150,
		Colleges: []stats.CollegeGroup{
			{Key: "KSRANGASAMYCOLLEGEOFTECHNOLOGY", DisplayName: "K S RANGASAMY COLLEGE OF TECHNOLOGY", Count: 80, PaidCount: 70},
			{Key: "SNSCOLLEGEOFTECHNOLOGY", DisplayName: "SNS COLLEGE OF TECHNOLOGY", Count: 40, PaidCount: 30},
		},
		OnSpot: stats.OnSpotStats{PaidRegistrations: 12, NewProfiles: 5},
	}
}

func newTestServer(t *testing.T, source *fakeSource, db Pinger) *httptest.Server {
	t.Helper()
	handler := NewHandler(source, db, "test")
	router := NewRouter(handler, NewChiMiddleware(nil), nil)
	srv := httptest.NewServer(router.SetupChi())
	t.Cleanup(srv.Close)
	return srv
}

func getBody(t *testing.T, srv *httptest.Server, path string) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return resp, body
}

func TestLiveReturnsSnapshot(t *testing.T) {
	source := &fakeSource{snap: testSnapshot(), ok: true, status: database.StatusSubscribed}
	srv := newTestServer(t, source, &fakePinger{})

	resp, body := getBody(t, srv, "/api/v1/stats/live")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body["status"] != "success" {
		t.Errorf("envelope status = %v, want success", body["status"])
	}
	data := body["data"].(map[string]interface{})
	if data["total_participants"].(float64) != 150 {
		t.Errorf("total_participants = %v, want 150", data["total_participants"])
	}
	if resp.Header.Get("ETag") == "" {
		t.Error("missing ETag header")
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
	if got := resp.Header.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
}

func TestLiveNotReady(t *testing.T) {
	srv := newTestServer(t, &fakeSource{status: database.StatusConnecting}, &fakePinger{})

	resp, body := getBody(t, srv, "/api/v1/stats/live")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
	errBody := body["error"].(map[string]interface{})
	if errBody["code"] != ErrCodeNotReady {
		t.Errorf("error code = %v, want %s", errBody["code"], ErrCodeNotReady)
	}
}

func TestCollegesJSONWithLimit(t *testing.T) {
	source := &fakeSource{snap: testSnapshot(), ok: true}
	srv := newTestServer(t, source, &fakePinger{})

	_, body := getBody(t, srv, "/api/v1/stats/colleges?limit=1")
	data := body["data"].([]interface{})
	if len(data) != 1 {
		t.Fatalf("returned %d colleges, want 1", len(data))
	}
	first := data[0].(map[string]interface{})
	if first["name"] != "K S RANGASAMY COLLEGE OF TECHNOLOGY" {
		t.Errorf("first college = %v", first["name"])
	}
}

func TestCollegesCSV(t *testing.T) {
	source := &fakeSource{snap: testSnapshot(), ok: true}
	srv := newTestServer(t, source, &fakePinger{})

	resp, err := http.Get(srv.URL + "/api/v1/stats/colleges?format=csv")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q, want text/csv", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment; filename=colleges-") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 3 {
		t.Fatalf("csv has %d lines, want 3: %q", len(lines), string(raw))
	}
	if lines[0] != "college,registrations,paid" {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "K S RANGASAMY COLLEGE OF TECHNOLOGY,80,70") {
		t.Errorf("first row = %q", lines[1])
	}
}

func TestCollegesRejectsUnknownFormat(t *testing.T) {
	source := &fakeSource{snap: testSnapshot(), ok: true}
	srv := newTestServer(t, source, &fakePinger{})

	resp, body := getBody(t, srv, "/api/v1/stats/colleges?format=xml")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	errBody := body["error"].(map[string]interface{})
	if errBody["code"] != ErrCodeInvalidParam {
		t.Errorf("error code = %v, want %s", errBody["code"], ErrCodeInvalidParam)
	}
}

func TestOnSpot(t *testing.T) {
	source := &fakeSource{snap: testSnapshot(), ok: true}
	srv := newTestServer(t, source, &fakePinger{})

	_, body := getBody(t, srv, "/api/v1/stats/onspot")
	data := body["data"].(map[string]interface{})
	if data["paid_registrations"].(float64) != 12 {
		t.Errorf("paid_registrations = %v, want 12", data["paid_registrations"])
	}
	if data["new_profiles"].(float64) != 5 {
		t.Errorf("new_profiles = %v, want 5", data["new_profiles"])
	}
}

func TestHealth(t *testing.T) {
	last := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name       string
		source     *fakeSource
		db         Pinger
		wantStatus string
	}{
		{
			name:       "healthy",
			source:     &fakeSource{snap: testSnapshot(), ok: true, status: database.StatusSubscribed, lastRun: last},
			db:         &fakePinger{},
			wantStatus: "ok",
		},
		{
			name:       "degraded snapshot",
			source:     &fakeSource{snap: stats.Snapshot{Degraded: true}, ok: true, status: database.StatusSubscribed},
			db:         &fakePinger{},
			wantStatus: "degraded",
		},
		{
			name:       "database down",
			source:     &fakeSource{snap: testSnapshot(), ok: true, status: database.StatusError},
			db:         &fakePinger{err: errors.New("refused")},
			wantStatus: "degraded",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, tt.source, tt.db)
			resp, body := getBody(t, srv, "/api/v1/health")
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d, want 200", resp.StatusCode)
			}
			data := body["data"].(map[string]interface{})
			if data["status"] != tt.wantStatus {
				t.Errorf("health status = %v, want %s", data["status"], tt.wantStatus)
			}
			if data["feed_state"] != string(tt.source.status) {
				t.Errorf("feed_state = %v, want %s", data["feed_state"], tt.source.status)
			}
		})
	}
}

func TestHealthReady(t *testing.T) {
	ready := &fakeSource{snap: testSnapshot(), ok: true}
	srv := newTestServer(t, ready, &fakePinger{})
	resp, _ := getBody(t, srv, "/api/v1/health/ready")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("ready status = %d, want 200", resp.StatusCode)
	}

	notReady := &fakeSource{}
	srv2 := newTestServer(t, notReady, &fakePinger{})
	resp2, _ := getBody(t, srv2, "/api/v1/health/ready")
	if resp2.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("not-ready status = %d, want 503", resp2.StatusCode)
	}
}

func TestGenerateETagStable(t *testing.T) {
	a := generateETag([]byte("snapshot"))
	b := generateETag([]byte("snapshot"))
	c := generateETag([]byte("snapshot2"))
	if a != b {
		t.Errorf("same input produced different etags: %s vs %s", a, b)
	}
	if a == c {
		t.Error("different inputs produced the same etag")
	}
}

func TestSanitizeLogValue(t *testing.T) {
	got := sanitizeLogValue("evil\nvalue\r\x00done")
	if got != "evilvaluedone" {
		t.Errorf("sanitizeLogValue = %q", got)
	}
}
