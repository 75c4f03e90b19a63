package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"animaaz/internal/models"
	"animaaz/internal/service"
	"animaaz/internal/testinfra"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const testSecret = "test-secret"

type fixture struct {
	anime   *testinfra.AnimeStore
	buckets *testinfra.CurationStore
	cache   *testinfra.ListCache
	router  http.Handler
}

func newFixture() *fixture {
	f := &fixture{
		anime:   testinfra.NewAnimeStore(),
		buckets: testinfra.NewCurationStore(),
		cache:   testinfra.NewListCache(),
	}
	curation := service.NewCurationService(f.anime, f.buckets, f.cache, nil)
	catalog := service.NewCatalogService(f.anime, testinfra.NewRatingStore(), testinfra.NewCommentStore(), f.cache, nil)

	ah := NewAnimeHandler(catalog, curation)
	ch := NewCurationHandler(curation)
	adm := NewAdminAnimeHandler(curation, catalog)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(OptionalJWT(testSecret))
		r.Get("/anime", ah.List)
		r.Get("/anime/featured", ah.Featured)
		r.Get("/anime/{id}", ah.Get)
		r.Get("/curation/banner", ch.GetBanner)
		r.Get("/curation/{type}", ch.Get)
	})
	r.Group(func(r chi.Router) {
		r.Use(JWTAuth(testSecret))
		r.Post("/anime/{id}/like", ah.Like)
		r.Post("/anime/{id}/rate", ah.Rate)
		r.Post("/anime/{id}/comments", ah.Comment)
	})
	r.Group(func(r chi.Router) {
		r.Use(JWTAuth(testSecret))
		r.Use(AdminOnly())
		r.Get("/curation", ch.List)
		r.Put("/curation/{type}", ch.Put)
		r.Get("/anime/admin/curation-state", ch.State)
		MountAdminAnimeRoutes(r, adm)
	})
	f.router = r
	return f
}

func (f *fixture) add(title string, mutate func(a *models.Anime)) primitive.ObjectID {
	a := models.Anime{Title: title, Status: models.StatusOngoing, IsActive: true, UpdatedAt: time.Now().UTC()}
	if mutate != nil {
		mutate(&a)
	}
	return f.anime.Add(a)
}

func token(t *testing.T, sub any, role string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  sub,
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func (f *fixture) do(t *testing.T, method, path, bearer, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestFeatured_RanksByScore(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.add("Low", func(a *models.Anime) { a.Featured = true; a.Views = 10 })
	f.add("High", func(a *models.Anime) { a.Featured = true; a.DummyLikes = 50 })
	f.add("Unflagged", func(a *models.Anime) { a.Views = 1000 })

	rec := f.do(t, http.MethodGet, "/anime/featured", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}

	cards := decode[[]models.AnimeCard](t, rec)
	if len(cards) != 2 || cards[0].Title != "High" || cards[1].Title != "Low" {
		t.Fatalf("got %+v", cards)
	}
	if cards[0].Score != 50 || cards[1].Score != 10 {
		t.Errorf("scores = %d, %d, want 50, 10", cards[0].Score, cards[1].Score)
	}
}

func TestCuration_GetAndPut(t *testing.T) {
	t.Parallel()

	f := newFixture()
	a := f.add("A", func(a *models.Anime) { a.Trending = true })
	b := f.add("B", nil)
	admin := token(t, "admin-1", RoleAdmin)

	rec := f.do(t, http.MethodGet, "/curation/trending", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if v := decode[models.CurationView](t, rec); v.Source != models.SourceFlags || len(v.Items) != 1 {
		t.Fatalf("fallback view = %+v", v)
	}

	body := `{"animeIds":["` + b.Hex() + `","` + a.Hex() + `"],"metadata":{"title":"Hot"}}`
	rec = f.do(t, http.MethodPut, "/curation/trending", admin, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("put status = %d, body %s", rec.Code, rec.Body.String())
	}
	bucket := decode[models.CurationBucket](t, rec)
	if bucket.UpdatedBy != "admin-1" {
		t.Errorf("updatedBy = %q", bucket.UpdatedBy)
	}

	rec = f.do(t, http.MethodGet, "/curation/trending", "", "")
	v := decode[models.CurationView](t, rec)
	if v.Source != models.SourceCurated || len(v.Items) != 2 || v.Items[0].Title != "B" {
		t.Fatalf("curated view = %+v", v)
	}
	if f.cache.Invalidations == 0 {
		t.Error("expected list cache invalidation")
	}

	all := decode[[]models.CurationBucket](t, f.do(t, http.MethodGet, "/curation", admin, ""))
	if len(all) != 1 || all[0].Type != models.BucketTrending || all[0].Metadata["title"] != "Hot" {
		t.Errorf("buckets = %+v", all)
	}
}

func TestCuration_LimitQuery(t *testing.T) {
	t.Parallel()

	f := newFixture()
	for i := 0; i < 120; i++ {
		f.add("flagged", func(a *models.Anime) { a.Featured = true; a.Views = int64(i) })
	}

	tests := []struct {
		query   string
		wantLen int
		wantKey string
	}{
		{query: "", wantLen: 10, wantKey: "featured:10"},
		{query: "?limit=3", wantLen: 3, wantKey: "featured:3"},
		{query: "?limit=abc", wantLen: 10, wantKey: "featured:10"},
		{query: "?limit=-4", wantLen: 10, wantKey: "featured:10"},
		{query: "?limit=100000", wantLen: 100, wantKey: "featured:100"},
	}

	// subtests share the cache
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, "/curation/featured"+tt.query, "", "")
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
			}
			if v := decode[models.CurationView](t, rec); len(v.Items) != tt.wantLen {
				t.Fatalf("items = %d, want %d", len(v.Items), tt.wantLen)
			}
			if !f.cache.Has(tt.wantKey) {
				t.Fatalf("no cache entry %q", tt.wantKey)
			}
		})
	}
	if f.cache.Len() != 3 {
		t.Errorf("cache entries = %d, want 3", f.cache.Len())
	}
}

func TestCuration_Errors(t *testing.T) {
	t.Parallel()

	f := newFixture()
	admin := token(t, "admin-1", RoleAdmin)

	tests := []struct {
		name       string
		method     string
		path       string
		bearer     string
		body       string
		wantStatus int
		wantCode   string
	}{
		{name: "unknown type", method: http.MethodGet, path: "/curation/upcoming", wantStatus: 400, wantCode: "validation_error"},
		{name: "put without token", method: http.MethodPut, path: "/curation/featured", body: `{"animeIds":[]}`, wantStatus: 401, wantCode: "unauthorized"},
		{name: "put as user", method: http.MethodPut, path: "/curation/featured", bearer: token(t, "u1", "user"), body: `{"animeIds":[]}`, wantStatus: 403, wantCode: "forbidden"},
		{name: "put missing ids", method: http.MethodPut, path: "/curation/featured", bearer: admin, body: `{"metadata":{}}`, wantStatus: 400, wantCode: "validation_error"},
		{name: "put bad json", method: http.MethodPut, path: "/curation/featured", bearer: admin, body: `{"animeIds":`, wantStatus: 400, wantCode: "invalid_body"},
		{name: "put unknown type", method: http.MethodPut, path: "/curation/nope", bearer: admin, body: `{"animeIds":[]}`, wantStatus: 400, wantCode: "validation_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := f.do(t, tt.method, tt.path, tt.bearer, tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if got := decode[ErrorBody](t, rec).Error.Code; got != tt.wantCode {
				t.Errorf("code = %q, want %q", got, tt.wantCode)
			}
		})
	}
}

func TestCuration_EmptyPutSupersedesFlags(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.add("A", func(a *models.Anime) { a.ForYou = true })

	rec := f.do(t, http.MethodPut, "/curation/forYou", token(t, "admin-1", RoleAdmin), `{"animeIds":[]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	v := decode[models.CurationView](t, f.do(t, http.MethodGet, "/curation/forYou", "", ""))
	if v.Source != models.SourceCurated || len(v.Items) != 0 {
		t.Fatalf("view = %+v, want curated and empty", v)
	}
}

func TestAdminCounters(t *testing.T) {
	t.Parallel()

	f := newFixture()
	id := f.add("A", nil).Hex()
	admin := token(t, "admin-1", RoleAdmin)

	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
		wantLikes  int64
		wantViews  int64
	}{
		{name: "both as numbers", path: "/admin/anime/" + id + "/counters", body: `{"dummyLikes":5,"dummyViews":9}`, wantStatus: 200, wantLikes: 5, wantViews: 9},
		{name: "numeric string", path: "/admin/anime/" + id + "/counters", body: `{"dummyLikes":"42"}`, wantStatus: 200, wantLikes: 42, wantViews: 9},
		{name: "dummy likes value", path: "/admin/anime/" + id + "/dummy-likes", body: `{"value":"7"}`, wantStatus: 200, wantLikes: 7, wantViews: 9},
		{name: "dummy views named field", path: "/admin/anime/" + id + "/dummy-views", body: `{"dummyViews":3}`, wantStatus: 200, wantLikes: 7, wantViews: 3},
		{name: "negative", path: "/admin/anime/" + id + "/counters", body: `{"dummyLikes":-1}`, wantStatus: 400},
		{name: "nothing given", path: "/admin/anime/" + id + "/counters", body: `{}`, wantStatus: 400},
		{name: "not a number", path: "/admin/anime/" + id + "/dummy-likes", body: `{"value":"lots"}`, wantStatus: 400},
		{name: "bad id", path: "/admin/anime/xyz/counters", body: `{"dummyLikes":1}`, wantStatus: 400},
		{name: "unknown id", path: "/admin/anime/" + primitive.NewObjectID().Hex() + "/counters", body: `{"dummyLikes":1}`, wantStatus: 404},
	}

	// Sequential: each case builds on the counters left by the previous one.
	for _, tt := range tests {
		rec := f.do(t, http.MethodPost, tt.path, admin, tt.body)
		if rec.Code != tt.wantStatus {
			t.Fatalf("%s: status = %d, want %d (body %s)", tt.name, rec.Code, tt.wantStatus, rec.Body.String())
		}
		if tt.wantStatus != http.StatusOK {
			continue
		}
		res := decode[models.CountersResult](t, rec)
		if res.DummyLikes != tt.wantLikes || res.DummyViews != tt.wantViews {
			t.Errorf("%s: got likes=%d views=%d, want %d/%d", tt.name, res.DummyLikes, res.DummyViews, tt.wantLikes, tt.wantViews)
		}
	}
}

func TestAdminBulkLabels(t *testing.T) {
	t.Parallel()

	f := newFixture()
	a := f.add("A", func(a *models.Anime) { a.Banner = true })
	b := f.add("B", nil)
	admin := token(t, "admin-1", RoleAdmin)

	body := `{"bannerIds":["` + b.Hex() + `"],"trendingIds":[]}`
	rec := f.do(t, http.MethodPost, "/admin/anime/bulk-labels", admin, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	res := decode[models.BulkLabelsResult](t, rec)
	if res.Counts[models.BucketBanner] != 1 || res.Counts[models.BucketTrending] != 0 {
		t.Errorf("counts = %v", res.Counts)
	}

	if got, _ := f.anime.Snapshot(a); got.Banner {
		t.Error("A should have lost the banner flag")
	}

	state := decode[models.CurationState](t, f.do(t, http.MethodGet, "/anime/admin/curation-state", admin, ""))
	if len(state.BannerIDs) != 1 || state.BannerIDs[0] != b.Hex() {
		t.Errorf("banner ids = %v", state.BannerIDs)
	}
	if state.FeaturedIDs == nil {
		t.Error("empty lists must encode as []")
	}
}

func TestAdminContent(t *testing.T) {
	t.Parallel()

	f := newFixture()
	admin := token(t, "admin-1", RoleAdmin)

	rec := f.do(t, http.MethodPost, "/admin/anime", admin, `{"title":"New","status":"airing"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid create status = %d", rec.Code)
	}
	if fields := decode[ErrorBody](t, rec).Error.Fields; len(fields) != 1 || fields[0].Field != "status" {
		t.Errorf("fields = %+v", fields)
	}

	rec = f.do(t, http.MethodPost, "/admin/anime", admin, `{"title":"New","status":"upcoming","genres":["Drama"]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	created := decode[models.Anime](t, rec)

	rec = f.do(t, http.MethodPut, "/admin/anime/"+created.ID.Hex(), admin, `{"title":"Renamed"}`)
	if rec.Code != http.StatusOK || decode[models.Anime](t, rec).Title != "Renamed" {
		t.Fatalf("update status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodDelete, "/admin/anime/"+created.ID.Hex(), admin, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/anime/"+created.ID.Hex(), "", ""); rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", rec.Code)
	}
}

func TestEngagement(t *testing.T) {
	t.Parallel()

	f := newFixture()
	id := f.add("A", nil).Hex()
	user := token(t, "u1", "user")

	if rec := f.do(t, http.MethodPost, "/anime/"+id+"/like", "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous like status = %d", rec.Code)
	}

	rec := f.do(t, http.MethodPost, "/anime/"+id+"/like", user, "")
	if like := decode[models.LikeResult](t, rec); !like.Liked || like.LikesCount != 1 {
		t.Fatalf("like = %+v", like)
	}

	if rec := f.do(t, http.MethodPost, "/anime/"+id+"/rate", user, `{"value":6}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("rate 6 status = %d", rec.Code)
	}
	rec = f.do(t, http.MethodPost, "/anime/"+id+"/rate", user, `{"value":4}`)
	if res := decode[models.RatingResult](t, rec); res.AverageRating != 4 || res.RatingsCount != 1 {
		t.Fatalf("rating = %+v", res)
	}

	rec = f.do(t, http.MethodPost, "/anime/"+id+"/comments", user, `{"text":"great"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("comment status = %d, body %s", rec.Code, rec.Body.String())
	}
	parent := decode[models.Comment](t, rec)
	reply := `{"text":"agreed","parentId":"` + parent.ID.Hex() + `"}`
	if rec := f.do(t, http.MethodPost, "/anime/"+id+"/comments", user, reply); rec.Code != http.StatusCreated {
		t.Fatalf("reply status = %d", rec.Code)
	}
	orphan := `{"text":"lost","parentId":"` + primitive.NewObjectID().Hex() + `"}`
	if rec := f.do(t, http.MethodPost, "/anime/"+id+"/comments", user, orphan); rec.Code != http.StatusNotFound {
		t.Fatalf("orphan reply status = %d", rec.Code)
	}

	detail := decode[models.AnimeDetail](t, f.do(t, http.MethodGet, "/anime/"+id, user, ""))
	if !detail.Liked || detail.MyRating == nil || *detail.MyRating != 4 {
		t.Errorf("personal fields = liked %v rating %v", detail.Liked, detail.MyRating)
	}
	if len(detail.Comments) != 1 || len(detail.Comments[0].Replies) != 1 {
		t.Errorf("comments = %+v", detail.Comments)
	}

	anon := decode[models.AnimeDetail](t, f.do(t, http.MethodGet, "/anime/"+id, "", ""))
	if anon.Liked || anon.MyRating != nil {
		t.Errorf("anonymous detail carries personal fields: %+v", anon)
	}
}

func TestList_Validation(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.add("A", nil)

	if rec := f.do(t, http.MethodGet, "/anime?sort=random", "", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad sort status = %d", rec.Code)
	}
	rec := f.do(t, http.MethodGet, "/anime?limit=500", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if page := decode[models.AnimePage](t, rec); page.Limit != 100 || page.Total != 1 {
		t.Errorf("page = %+v", page)
	}
}

func TestStoreFailureIs500(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.anime.Err = errors.New("connection reset")

	rec := f.do(t, http.MethodGet, "/anime/featured", "", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode[ErrorBody](t, rec)
	if body.Error.Code != "server_error" || !strings.Contains(body.Error.Message, "connection reset") {
		t.Errorf("body = %+v", body)
	}
}

func TestJWT_NumericSubject(t *testing.T) {
	t.Parallel()

	var got string
	h := JWTAuth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = UserIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, 42, "user"))
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got != "42" {
		t.Errorf("user id = %q, want 42", got)
	}

	bad, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u1"}).SignedString([]byte("other"))
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+bad)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("foreign signature status = %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("no route to host") }

	tests := []struct {
		name       string
		checks     map[string]Check
		wantStatus int
		wantState  string
	}{
		{name: "all up", checks: map[string]Check{"mongo": ok, "redis": ok}, wantStatus: 200, wantState: "ok"},
		{name: "redis down", checks: map[string]Check{"mongo": ok, "redis": down}, wantStatus: 503, wantState: "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			NewHealthHandler(tt.checks).Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if res := decode[HealthResponse](t, rec); res.Status != tt.wantState {
				t.Errorf("status field = %q, want %q", res.Status, tt.wantState)
			}
		})
	}
}
