package handler

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-hclog"
	"github.com/user/moviecatalog/internal/config"
	"github.com/user/moviecatalog/internal/middleware"
	"github.com/user/moviecatalog/internal/repository"
	"github.com/user/moviecatalog/internal/service"
	"github.com/user/moviecatalog/internal/utils"
)

// Handler serves the admin pages, the admin JSON API and the public API.
type Handler struct {
	Repos   *repository.Repositories
	Config  *config.Config
	Log     hclog.Logger
	Catalog *service.CatalogService
	Admin   *service.AdminService
	Media   *service.MediaStore
}

func NewHandler(repos *repository.Repositories, cfg *config.Config, log hclog.Logger) *Handler {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	catalog := service.NewCatalogService(repos, log)
	return &Handler{
		Repos:   repos,
		Config:  cfg,
		Log:     log,
		Catalog: catalog,
		Admin:   service.NewAdminService(repos, catalog, log),
		Media:   service.NewMediaStore(cfg.MediaRoot, cfg.MediaURL),
	}
}

// RenderData merges the data every admin page needs into data.
func (h *Handler) RenderData(c *gin.Context, data gin.H) gin.H {
	res := gin.H{
		"SiteName": h.Config.SiteName,
		"Path":     c.Request.URL.Path,
	}

	if u, ok := middleware.CurrentUser(c); ok {
		res["UserInfo"] = u
	}

	session := sessions.Default(c)
	if flashes := session.Flashes(); len(flashes) > 0 {
		messages := make([]string, 0, len(flashes))
		for _, f := range flashes {
			messages = append(messages, fmt.Sprint(f))
		}
		res["Messages"] = messages
		_ = session.Save()
	}

	for k, v := range data {
		res[k] = v
	}
	return res
}

// flash queues a message shown once on the next rendered admin page.
func (h *Handler) flash(c *gin.Context, message string) {
	session := sessions.Default(c)
	session.AddFlash(message)
	if err := session.Save(); err != nil {
		h.Log.Warn("save flash", "error", err)
	}
}

// fail maps an error to its status code and writes the JSON envelope.
func (h *Handler) fail(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		utils.BadRequest(c, validationMessage(verrs))
	case errors.Is(err, repository.ErrNotFound):
		utils.NotFound(c, "")
	case errors.Is(err, repository.ErrDuplicate):
		utils.Conflict(c, "a record with this value already exists")
	case errors.Is(err, repository.ErrInvalidReference),
		errors.Is(err, service.ErrUnknownAction),
		errors.Is(err, service.ErrNotImage),
		errors.Is(err, service.ErrFileTooLarge),
		errors.Is(err, errBadRequest):
		utils.BadRequest(c, err.Error())
	default:
		h.Log.Error("request failed", "method", c.Request.Method, "path", c.Request.URL.Path, "error", err)
		_ = c.Error(err)
		utils.InternalServerError(c, "")
	}
}

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

func validationMessage(verrs validator.ValidationErrors) string {
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			parts = append(parts, field+" is required")
		case "max":
			parts = append(parts, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		case "slug":
			parts = append(parts, field+" may only contain letters, numbers, hyphens and underscores")
		case "email":
			parts = append(parts, field+" must be a valid email address")
		case "ip":
			parts = append(parts, field+" must be an IPv4 or IPv6 address")
		case "datetime":
			parts = append(parts, field+" must be a date formatted as "+fe.Param())
		default:
			parts = append(parts, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

// bind reads a JSON or form body into dst and runs its validation rules.
func bind(c *gin.Context, dst interface{}) error {
	if err := c.ShouldBind(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return verrs
		}
		return badRequest("malformed body: %v", err)
	}
	return nil
}

// maxImageRef is the length of the image columns.
const maxImageRef = 255

// upload fills an image field of a form body. A sent file is stored and
// its URL written to dst; otherwise a text value is taken as the URL.
// JSON bodies bind the field themselves and are left alone.
func (h *Handler) upload(c *gin.Context, field, folder string, dst *string) error {
	switch c.ContentType() {
	case binding.MIMEMultipartPOSTForm:
		fh, err := c.FormFile(field)
		if err == nil {
			return h.saveUpload(fh, folder, dst)
		}
		if !errors.Is(err, http.ErrMissingFile) {
			return badRequest("%s: %v", field, err)
		}
	case binding.MIMEPOSTForm:
	default:
		return nil
	}

	if v, ok := c.GetPostForm(field); ok {
		if len(v) > maxImageRef {
			return badRequest("%s must be at most %d characters", field, maxImageRef)
		}
		*dst = v
	}
	return nil
}

func (h *Handler) saveUpload(fh *multipart.FileHeader, folder string, dst *string) error {
	url, err := h.Media.SaveFile(fh, folder)
	if err != nil {
		return err
	}
	*dst = url
	return nil
}

func parseID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, badRequest("invalid id %q", c.Param("id"))
	}
	return uint(id), nil
}

func queryUint(c *gin.Context, key string) uint {
	v, err := strconv.ParseUint(c.Query(key), 10, 32)
	if err != nil {
		return 0
	}
	return uint(v)
}

func queryInt(c *gin.Context, key string) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return v
}

// listQuery reads ?q= and ?page= with the admin page size.
func (h *Handler) listQuery(c *gin.Context) repository.ListQuery {
	return repository.ListQuery{
		Search:   strings.TrimSpace(c.Query("q")),
		Page:     queryInt(c, "page"),
		PageSize: h.Config.AdminPageSize,
	}
}

// formIDs parses every value of a repeated form field as an id.
func formIDs(c *gin.Context, key string) []uint {
	values := c.PostFormArray(key)
	ids := make([]uint, 0, len(values))
	for _, v := range values {
		id, err := strconv.ParseUint(v, 10, 32)
		if err == nil && id > 0 {
			ids = append(ids, uint(id))
		}
	}
	return ids
}
