package router

import (
	"encoding/gob"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/multitemplate"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/user/moviecatalog/internal/handler"
	"github.com/user/moviecatalog/internal/middleware"
	"github.com/user/moviecatalog/internal/model"
	"github.com/user/moviecatalog/internal/utils"
	"github.com/user/moviecatalog/web"
)

const sessionName = "moviesession"

func init() {
	gob.Register(model.SessionUser{})
}

// New builds the engine with middleware, templates and every route.
func New(h *handler.Handler) (*gin.Engine, error) {
	if err := utils.RegisterValidators(); err != nil {
		return nil, err
	}

	r := gin.New()
	if err := r.SetTrustedProxies(h.Config.TrustedProxies); err != nil {
		return nil, err
	}
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(h.Log))
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	store := cookie.NewStore([]byte(h.Config.AppSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   h.Config.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))

	renderer, err := LoadTemplates(web.Templates)
	if err != nil {
		return nil, err
	}
	r.HTMLRender = renderer

	r.Static(h.Config.MediaURL, h.Config.MediaRoot)

	RegisterRoutes(r, h)
	return r, nil
}

// RegisterRoutes registers all routes.
func RegisterRoutes(r *gin.Engine, h *handler.Handler) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ==================== Public API ====================
	api := r.Group("/api")
	{
		api.GET("/movies", h.Movies)
		api.GET("/movies/:slug", h.Movie)
		api.POST("/movies/:slug/reviews", h.AddReview)
		api.POST("/movies/:slug/ratings", h.Rate)
		api.GET("/categories", h.Categories)
		api.GET("/genres", h.Genres)
		api.GET("/stars", h.Stars)
		api.GET("/actors/:id", h.Actor)
	}

	// ==================== Admin login ====================
	r.GET("/admin/login", h.LoginPage)
	r.POST("/admin/login", h.Login)
	r.POST("/admin/logout", h.Logout)

	// ==================== Admin pages ====================
	admin := r.Group("/admin")
	admin.Use(middleware.RequireAuth(h.Config.AppSecret))
	admin.Use(middleware.RequireAdmin())
	{
		admin.GET("", h.AdminDashboard)
		admin.GET("/categories", h.AdminCategories)
		admin.GET("/genres", h.AdminGenres)
		admin.GET("/actors", h.AdminActors)
		admin.GET("/movies", h.AdminMovies)
		admin.POST("/movies", h.AdminMoviesSubmit)
		admin.GET("/movies/:id", h.AdminMovieDetail)
		admin.POST("/movies/:id/save-as-new", h.AdminMovieSaveAsNew)
		admin.POST("/movies/:id/delete", h.AdminMovieDelete)
		admin.GET("/shots", h.AdminShots)
		admin.GET("/stars", h.AdminStars)
		admin.GET("/ratings", h.AdminRatings)
		admin.GET("/reviews", h.AdminReviews)
	}

	// ==================== Admin JSON API ====================
	adminAPI := admin.Group("/api")
	adminAPI.Use(h.InvalidateOnWrite())
	{
		crud(adminAPI, "/categories", h.APICategoryList, h.APICategoryGet, h.APICategoryCreate, h.APICategoryUpdate, h.APICategoryDelete)
		crud(adminAPI, "/genres", h.APIGenreList, h.APIGenreGet, h.APIGenreCreate, h.APIGenreUpdate, h.APIGenreDelete)
		crud(adminAPI, "/actors", h.APIActorList, h.APIActorGet, h.APIActorCreate, h.APIActorUpdate, h.APIActorDelete)
		crud(adminAPI, "/movies", h.APIMovieList, h.APIMovieGet, h.APIMovieCreate, h.APIMovieUpdate, h.APIMovieDelete)
		crud(adminAPI, "/shots", h.APIShotList, h.APIShotGet, h.APIShotCreate, h.APIShotUpdate, h.APIShotDelete)
		crud(adminAPI, "/stars", h.APIStarList, h.APIStarGet, h.APIStarCreate, h.APIStarUpdate, h.APIStarDelete)
		crud(adminAPI, "/ratings", h.APIRatingList, h.APIRatingGet, h.APIRatingCreate, h.APIRatingUpdate, h.APIRatingDelete)
		crud(adminAPI, "/reviews", h.APIReviewList, h.APIReviewGet, h.APIReviewCreate, h.APIReviewUpdate, h.APIReviewDelete)

		adminAPI.PATCH("/movies/:id/draft", h.APIMovieDraft)
		adminAPI.POST("/movies/actions", h.APIMovieAction)
	}
}

func crud(g *gin.RouterGroup, path string, list, get, create, update, remove gin.HandlerFunc) {
	g.GET(path, list)
	g.GET(path+"/:id", get)
	g.POST(path, create)
	g.PUT(path+"/:id", update)
	g.DELETE(path+"/:id", remove)
}

// TemplateFuncs are available in every admin template.
var TemplateFuncs = template.FuncMap{
	"dict": func(values ...interface{}) (map[string]interface{}, error) {
		if len(values)%2 != 0 {
			return nil, fmt.Errorf("invalid dict call")
		}
		dict := make(map[string]interface{}, len(values)/2)
		for i := 0; i < len(values); i += 2 {
			key, ok := values[i].(string)
			if !ok {
				return nil, fmt.Errorf("dict keys must be strings")
			}
			dict[key] = values[i+1]
		}
		return dict, nil
	},
	"default": func(defaultValue, value interface{}) interface{} {
		switch v := value.(type) {
		case string:
			if v == "" {
				return defaultValue
			}
		case int:
			if v == 0 {
				return defaultValue
			}
		case nil:
			return defaultValue
		}
		return value
	},
	"preview": utils.ImagePreview,
}

// adminPages are rendered as "<name>.html".
var adminPages = []string{
	"admin_login",
	"admin_index",
	"admin_changelist",
	"admin_movie",
}

// LoadTemplates parses every page together with the layouts into a multitemplate renderer.
func LoadTemplates(fsys fs.FS) (multitemplate.Renderer, error) {
	r := multitemplate.NewRenderer()

	for _, page := range adminPages {
		name := page + ".html"
		tmpl, err := template.New(name).Funcs(TemplateFuncs).ParseFS(fsys,
			"templates/layouts/*.html",
			"templates/pages/"+name,
		)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		r.Add(name, tmpl)
	}

	return r, nil
}
