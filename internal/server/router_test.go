package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"animaaz/internal/handler"
	"animaaz/internal/models"
	"animaaz/internal/service"
	"animaaz/internal/testinfra"

	"github.com/golang-jwt/jwt/v5"
)

const secret = "router-secret"

func newTestRouter(t *testing.T, rateLimit int) (http.Handler, *testinfra.AnimeStore) {
	t.Helper()

	anime := testinfra.NewAnimeStore()
	curation := service.NewCurationService(anime, testinfra.NewCurationStore(), nil, nil)
	catalog := service.NewCatalogService(anime, testinfra.NewRatingStore(), testinfra.NewCommentStore(), nil, nil)

	return NewRouter(Deps{
		Anime:    handler.NewAnimeHandler(catalog, curation),
		Curation: handler.NewCurationHandler(curation),
		Admin:    handler.NewAdminAnimeHandler(curation, catalog),
		Health: handler.NewHealthHandler(map[string]handler.Check{
			"mongo": func(context.Context) error { return nil },
		}),
		JWTSecret:          secret,
		CORSOrigins:        []string{"https://animaaz.example"},
		RateLimitPerMinute: rateLimit,
	}), anime
}

func bearer(t *testing.T, role string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u1", "role": role}).SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}
	return "Bearer " + s
}

func TestRouter_Gating(t *testing.T) {
	t.Parallel()

	r, anime := newTestRouter(t, 0)
	id := anime.Add(models.Anime{Title: "A", IsActive: true}).Hex()

	tests := []struct {
		name       string
		method     string
		path       string
		auth       string
		body       string
		wantStatus int
	}{
		{name: "health", method: http.MethodGet, path: "/health", wantStatus: 200},
		{name: "metrics", method: http.MethodGet, path: "/metrics", wantStatus: 200},
		{name: "public list", method: http.MethodGet, path: "/anime/popular", wantStatus: 200},
		{name: "public detail", method: http.MethodGet, path: "/anime/" + id, wantStatus: 200},
		{name: "public banner bucket", method: http.MethodGet, path: "/curation/banner", wantStatus: 200},
		{name: "like anonymous", method: http.MethodPost, path: "/anime/" + id + "/like", wantStatus: 401},
		{name: "like signed in", method: http.MethodPost, path: "/anime/" + id + "/like", auth: bearer(t, "user"), wantStatus: 200},
		{name: "curation state as user", method: http.MethodGet, path: "/anime/admin/curation-state", auth: bearer(t, "user"), wantStatus: 403},
		{name: "curation state as admin", method: http.MethodGet, path: "/anime/admin/curation-state", auth: bearer(t, "admin"), wantStatus: 200},
		{name: "bucket list anonymous", method: http.MethodGet, path: "/curation", wantStatus: 401},
		{name: "banner put as admin", method: http.MethodPut, path: "/curation/banner", auth: bearer(t, "admin"), body: `{"animeIds":["` + id + `"]}`, wantStatus: 200},
		{name: "bulk labels as user", method: http.MethodPost, path: "/admin/anime/bulk-labels", auth: bearer(t, "user"), body: `{}`, wantStatus: 403},
		{name: "unknown route", method: http.MethodGet, path: "/movies/1", wantStatus: 404},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestRouter_RequestIDAndCORS(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t, 0)

	req := httptest.NewRequest(http.MethodGet, "/anime/featured", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	req.Header.Set("Origin", "https://animaaz.example")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("request id = %q, want abc-123", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://animaaz.example" {
		t.Errorf("allow origin = %q", got)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/anime/featured", nil))
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected a generated request id")
	}
}

func TestRouter_RateLimit(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t, 2)

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/anime/genres", nil)
		req.RemoteAddr = "203.0.113.7:5555"
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != 200 || codes[1] != 200 || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v, want [200 200 429]", codes)
	}

	// health is outside the limiter
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "203.0.113.7:5555"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("health status = %d", rec.Code)
	}
}

type fakeServer struct {
	mu       sync.Mutex
	stop     chan struct{}
	listen   error
	shutdown bool
}

func (f *fakeServer) ListenAndServe() error {
	if f.listen != nil {
		return f.listen
	}
	<-f.stop
	return http.ErrServerClosed
}

func (f *fakeServer) Shutdown(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shutdown = true
	close(f.stop)
	return nil
}

func TestHTTPService_GracefulShutdown(t *testing.T) {
	t.Parallel()

	srv := &fakeServer{stop: make(chan struct{})}
	svc := NewHTTPService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}

	srv.mu.Lock()
	defer srv.mu.Unlock()
	if !srv.shutdown {
		t.Error("Shutdown was not called")
	}
}

func TestHTTPService_ListenFailure(t *testing.T) {
	t.Parallel()

	svc := NewHTTPService(&fakeServer{listen: errors.New("address in use")}, time.Second)
	err := svc.Serve(context.Background())
	if err == nil || !strings.Contains(err.Error(), "address in use") {
		t.Fatalf("Serve returned %v", err)
	}
	if svc.String() != "http-server" {
		t.Errorf("String() = %q", svc.String())
	}
}
