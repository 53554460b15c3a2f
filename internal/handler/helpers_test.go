package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/user/moviecatalog/internal/config"
	"github.com/user/moviecatalog/internal/handler"
	"github.com/user/moviecatalog/internal/middleware"
	"github.com/user/moviecatalog/internal/model"
	"github.com/user/moviecatalog/internal/repository"
	"github.com/user/moviecatalog/internal/router"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Success bool            `json:"success"`
}

type testServer struct {
	t       *testing.T
	engine  *gin.Engine
	handler *handler.Handler
	repos   *repository.Repositories
	token   string

	drama    *model.Category
	crime    *model.Genre
	thriller *model.Genre
	pacino   *model.Actor
	mann     *model.Actor
	stars    []model.RatingStar
}

func newTestServer(t *testing.T, opts ...func(*config.Config)) *testServer {
	t.Helper()
	ctx := context.Background()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := repository.OpenSQLite("file:h_"+name+"?mode=memory&cache=shared", nil)
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(ctx, db, nil))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	cfg := &config.Config{
		Env:           "test",
		AppSecret:     "test-secret",
		JWTExpiry:     time.Hour,
		SiteName:      "Movies",
		MediaRoot:     t.TempDir(),
		MediaURL:      "/media",
		AdminPageSize: 50,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	repos := repository.NewRepositories(db)
	h := handler.NewHandler(repos, cfg, nil)
	engine, err := router.New(h)
	require.NoError(t, err)

	admin, err := repos.User.Create(ctx, "admin", "secret-pass", model.RoleAdmin)
	require.NoError(t, err)
	token, err := middleware.GenerateToken(admin.ID, admin.Username, admin.Role, cfg.AppSecret, time.Hour)
	require.NoError(t, err)

	s := &testServer{
		t:        t,
		engine:   engine,
		handler:  h,
		repos:    repos,
		token:    token,
		drama:    &model.Category{Name: "Drama", Slug: "drama"},
		crime:    &model.Genre{Name: "Crime", Slug: "crime"},
		thriller: &model.Genre{Name: "Thriller", Slug: "thriller"},
		pacino:   &model.Actor{Name: "Al Pacino", Age: 84},
		mann:     &model.Actor{Name: "Michael Mann", Age: 81},
	}
	require.NoError(t, repos.Category.Create(ctx, s.drama))
	require.NoError(t, repos.Genre.Create(ctx, s.crime))
	require.NoError(t, repos.Genre.Create(ctx, s.thriller))
	require.NoError(t, repos.Actor.Create(ctx, s.pacino))
	require.NoError(t, repos.Actor.Create(ctx, s.mann))
	for _, v := range []int16{1, 2, 3, 4, 5} {
		star := model.RatingStar{Value: v}
		require.NoError(t, repos.Star.Create(ctx, &star))
		s.stars = append(s.stars, star)
	}
	return s
}

// movie stores a drama credited to Pacino and Mann.
func (s *testServer) movie(title, slug string, draft bool) *model.Movie {
	s.t.Helper()
	m := &model.Movie{
		Title:         title,
		Slug:          slug,
		Year:          1995,
		Country:       "USA",
		WorldPremiere: time.Date(1995, 12, 15, 0, 0, 0, 0, time.UTC),
		Poster:        "/media/movies/" + slug + ".jpg",
		Draft:         draft,
	}
	require.NoError(s.t, s.repos.Movie.Create(context.Background(), m, repository.MovieRelations{
		CategoryID:  &s.drama.ID,
		GenreIDs:    []uint{s.crime.ID},
		ActorIDs:    []uint{s.pacino.ID},
		DirectorIDs: []uint{s.mann.ID},
	}))
	return m
}

type request struct {
	method  string
	path    string
	body    io.Reader
	ctype   string
	html    bool
	admin   bool
	cookies []*http.Cookie
	header  http.Header
}

func (s *testServer) do(r request) *httptest.ResponseRecorder {
	s.t.Helper()
	req := httptest.NewRequest(r.method, r.path, r.body)
	if r.ctype != "" {
		req.Header.Set("Content-Type", r.ctype)
	}
	if r.html {
		req.Header.Set("Accept", "text/html")
	}
	if r.admin {
		req.AddCookie(&http.Cookie{Name: middleware.TokenCookie, Value: s.token})
	}
	for key, values := range r.header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	for _, c := range r.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *testServer) json(method, path string, body interface{}, admin bool) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = strings.NewReader(string(raw))
	}
	w := s.do(request{method: method, path: path, body: reader, ctype: "application/json", admin: admin})
	var env envelope
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func (s *testServer) form(path string, values url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	s.t.Helper()
	return s.do(request{
		method:  http.MethodPost,
		path:    path,
		body:    strings.NewReader(values.Encode()),
		ctype:   "application/x-www-form-urlencoded",
		html:    true,
		admin:   true,
		cookies: cookies,
	})
}

func parse(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func decode(t *testing.T, env envelope, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, dst))
}
