package handler

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/user/moviecatalog/internal/middleware"
	"github.com/user/moviecatalog/internal/model"
	"github.com/user/moviecatalog/internal/repository"
	"github.com/user/moviecatalog/internal/service"
	"github.com/user/moviecatalog/internal/utils"
)

// Preview sizes of image columns.
const (
	listPreviewWidth    = 50
	listPreviewHeight   = 60
	detailPreviewWidth  = 100
	detailPreviewHeight = 110
)

// ==================== Login ====================

func (h *Handler) LoginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "admin_login.html", h.RenderData(c, gin.H{
		"Title": "Log in",
		"Next":  c.Query("next"),
	}))
}

func (h *Handler) Login(c *gin.Context) {
	username := strings.TrimSpace(c.PostForm("username"))
	password := c.PostForm("password")
	next := c.PostForm("next")
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		next = "/admin"
	}

	loginFailed := func(status int, message string) {
		c.HTML(status, "admin_login.html", h.RenderData(c, gin.H{
			"Title":    "Log in",
			"Error":    message,
			"Username": username,
			"Next":     next,
		}))
	}

	user, err := h.Repos.User.FindByUsername(c.Request.Context(), username)
	if err != nil || !h.Repos.User.CheckPassword(user, password) || !user.IsAdmin() {
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			h.Log.Error("login lookup failed", "error", err)
		}
		loginFailed(http.StatusOK, "Please enter the correct username and password for an admin account.")
		return
	}

	token, err := middleware.GenerateToken(user.ID, user.Username, user.Role, h.Config.AppSecret, h.Config.JWTExpiry)
	if err != nil {
		h.Log.Error("sign token", "error", err)
		loginFailed(http.StatusInternalServerError, "Login failed, please try again.")
		return
	}
	middleware.SetTokenCookie(c, token, h.Config.JWTExpiry)
	h.Log.Info("admin logged in", "username", user.Username)

	c.Redirect(http.StatusFound, next)
}

func (h *Handler) Logout(c *gin.Context) {
	middleware.ClearTokenCookie(c)
	c.Redirect(http.StatusFound, middleware.LoginPath)
}

// ==================== Dashboard ====================

func (h *Handler) AdminDashboard(c *gin.Context) {
	stats, err := h.Admin.Dashboard(c.Request.Context())
	if err != nil {
		h.Log.Error("dashboard", "error", err)
		c.String(http.StatusInternalServerError, "could not load dashboard")
		return
	}

	c.HTML(http.StatusOK, "admin_index.html", h.RenderData(c, gin.H{
		"Title": "Site administration",
		"Stats": stats,
	}))
}

// ==================== Change lists ====================

// ChangeList is the view model of an admin list page.
type ChangeList struct {
	Model   string
	Title   string
	Columns []string
	Rows    []ChangeRow
	Filters []ListFilter
	Search  bool
	Query   string
	Total   int64
	Page    int
	Pages   int
	PrevURL string
	NextURL string

	// movie list only
	Actions  []ListAction
	Editable bool
	Return   string
}

// ChangeRow is one rendered row. Cells are already escaped.
type ChangeRow struct {
	ID    uint
	Cells []template.HTML
}

type ListFilter struct {
	Label   string
	Options []FilterOption
}

type FilterOption struct {
	Label    string
	URL      string
	Selected bool
}

type ListAction struct {
	Name  string
	Label string
}

func text(v interface{}) template.HTML {
	return template.HTML(template.HTMLEscapeString(fmt.Sprint(v)))
}

func link(href string, v interface{}) template.HTML {
	return template.HTML(fmt.Sprintf(`<a href="%s">%s</a>`, template.HTMLEscapeString(href), text(v)))
}

func optional(v interface{}) template.HTML {
	if v == nil {
		return "-"
	}
	return text(v)
}

// newChangeList fills the paging part from page.
func newChangeList[T any](c *gin.Context, model, title string, page *repository.Page[T]) *ChangeList {
	cl := &ChangeList{
		Model: model,
		Title: title,
		Query: c.Query("q"),
		Total: page.Total,
		Page:  page.Page,
		Pages: page.Pages(),
	}
	if cl.Page > 1 {
		cl.PrevURL = withQuery(c, "page", strconv.Itoa(cl.Page-1))
	}
	if cl.Page < cl.Pages {
		cl.NextURL = withQuery(c, "page", strconv.Itoa(cl.Page+1))
	}
	return cl
}

// withQuery returns the current URL with key set to value; an empty value removes key.
func withQuery(c *gin.Context, key, value string) string {
	q := c.Request.URL.Query()
	if value == "" {
		q.Del(key)
	} else {
		q.Set(key, value)
	}
	if key != "page" {
		q.Del("page")
	}
	if len(q) == 0 {
		return c.Request.URL.Path
	}
	return c.Request.URL.Path + "?" + q.Encode()
}

func filter(c *gin.Context, label, param string, options [][2]string) ListFilter {
	current := c.Query(param)
	f := ListFilter{Label: label}
	f.Options = append(f.Options, FilterOption{Label: "All", URL: withQuery(c, param, ""), Selected: current == ""})
	for _, o := range options {
		f.Options = append(f.Options, FilterOption{Label: o[1], URL: withQuery(c, param, o[0]), Selected: current == o[0]})
	}
	return f
}

func (h *Handler) renderChangeList(c *gin.Context, cl *ChangeList) {
	c.HTML(http.StatusOK, "admin_changelist.html", h.RenderData(c, gin.H{
		"Title": cl.Title,
		"List":  cl,
	}))
}

func (h *Handler) pageError(c *gin.Context, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		c.String(http.StatusNotFound, "not found")
		return
	}
	h.Log.Error("admin page", "path", c.Request.URL.Path, "error", err)
	c.String(http.StatusInternalServerError, "internal server error")
}

func (h *Handler) AdminCategories(c *gin.Context) {
	page, err := h.Repos.Category.List(c.Request.Context(), h.listQuery(c))
	if err != nil {
		h.pageError(c, err)
		return
	}
	cl := newChangeList(c, "categories", "Categories", page)
	cl.Columns = []string{"ID", "Category", "Description", "Url"}
	cl.Search = true
	for _, cat := range page.Items {
		cl.Rows = append(cl.Rows, ChangeRow{ID: cat.ID, Cells: []template.HTML{
			text(cat.ID),
			link(fmt.Sprintf("/admin/api/categories/%d", cat.ID), cat.Name),
			text(cat.Description),
			text(cat.Slug),
		}})
	}
	h.renderChangeList(c, cl)
}

func (h *Handler) AdminGenres(c *gin.Context) {
	page, err := h.Repos.Genre.List(c.Request.Context(), h.listQuery(c))
	if err != nil {
		h.pageError(c, err)
		return
	}
	cl := newChangeList(c, "genres", "Genres", page)
	cl.Columns = []string{"Name", "Description", "Url"}
	cl.Search = true
	for _, g := range page.Items {
		cl.Rows = append(cl.Rows, ChangeRow{ID: g.ID, Cells: []template.HTML{
			link(fmt.Sprintf("/admin/api/genres/%d", g.ID), g.Name),
			text(g.Description),
			text(g.Slug),
		}})
	}
	h.renderChangeList(c, cl)
}

func (h *Handler) AdminActors(c *gin.Context) {
	page, err := h.Repos.Actor.List(c.Request.Context(), h.listQuery(c))
	if err != nil {
		h.pageError(c, err)
		return
	}
	cl := newChangeList(c, "actors", "Actors and directors", page)
	cl.Columns = []string{"Name", "Age", "Description", "Image"}
	cl.Search = true
	for _, a := range page.Items {
		cl.Rows = append(cl.Rows, ChangeRow{ID: a.ID, Cells: []template.HTML{
			link(fmt.Sprintf("/admin/api/actors/%d", a.ID), a.Name),
			text(a.Age),
			text(a.Description),
			utils.ImagePreview(a.Image, listPreviewWidth, listPreviewHeight),
		}})
	}
	h.renderChangeList(c, cl)
}

func (h *Handler) AdminMovies(c *gin.Context) {
	ctx := c.Request.Context()
	page, err := h.Repos.Movie.List(ctx, h.movieFilter(c))
	if err != nil {
		h.pageError(c, err)
		return
	}
	categories, err := h.Repos.Category.All(ctx)
	if err != nil {
		h.pageError(c, err)
		return
	}
	years, err := h.Repos.Movie.Years(ctx)
	if err != nil {
		h.pageError(c, err)
		return
	}

	cl := newChangeList(c, "movies", "Movies", page)
	cl.Columns = []string{"Title", "Category", "Url", "Draft", "Poster"}
	cl.Search = true
	cl.Editable = true
	cl.Return = c.Request.URL.RequestURI()
	cl.Actions = []ListAction{
		{Name: service.ActionPublish, Label: "Publish"},
		{Name: service.ActionUnpublish, Label: "Unpublish"},
	}

	catOptions := make([][2]string, 0, len(categories))
	for _, cat := range categories {
		catOptions = append(catOptions, [2]string{strconv.FormatUint(uint64(cat.ID), 10), cat.Name})
	}
	yearOptions := make([][2]string, 0, len(years))
	for _, y := range years {
		yearOptions = append(yearOptions, [2]string{strconv.Itoa(int(y)), strconv.Itoa(int(y))})
	}
	cl.Filters = []ListFilter{
		filter(c, "Category", "category", catOptions),
		filter(c, "Release Year", "year", yearOptions),
	}

	for _, m := range page.Items {
		var category interface{}
		if m.Category != nil {
			category = m.Category.Name
		}
		checked := ""
		if m.Draft {
			checked = " checked"
		}
		draft := template.HTML(fmt.Sprintf(
			`<input type="hidden" name="row" value="%d"><input type="checkbox" name="draft" value="%d"%s>`,
			m.ID, m.ID, checked))
		cl.Rows = append(cl.Rows, ChangeRow{ID: m.ID, Cells: []template.HTML{
			link(fmt.Sprintf("/admin/movies/%d", m.ID), m.Title),
			optional(category),
			text(m.Slug),
			draft,
			utils.ImagePreview(m.Poster, listPreviewWidth, listPreviewHeight),
		}})
	}
	h.renderChangeList(c, cl)
}

// AdminMoviesSubmit handles the movie change list form: either a bulk
// action on the selected rows or saving the editable draft column.
func (h *Handler) AdminMoviesSubmit(c *gin.Context) {
	ctx := c.Request.Context()
	back := c.PostForm("return")
	if !strings.HasPrefix(back, "/admin/movies") {
		back = "/admin/movies"
	}

	if c.PostForm("_save") != "" {
		n, err := h.saveDrafts(ctx, formIDs(c, "row"), formIDs(c, "draft"))
		if err != nil {
			h.pageError(c, err)
			return
		}
		h.Admin.Changed()
		h.flash(c, service.UpdatedMessage(n))
		c.Redirect(http.StatusFound, back)
		return
	}

	selected := formIDs(c, "_selected_action")
	if len(selected) == 0 {
		h.flash(c, "Items must be selected in order to perform actions on them. No items have been changed.")
		c.Redirect(http.StatusFound, back)
		return
	}

	res, err := h.Admin.RunAction(ctx, c.PostForm("action"), selected)
	if errors.Is(err, service.ErrUnknownAction) {
		h.flash(c, "No action selected.")
		c.Redirect(http.StatusFound, back)
		return
	}
	if err != nil {
		h.pageError(c, err)
		return
	}
	h.flash(c, res.Message)
	c.Redirect(http.StatusFound, back)
}

// saveDrafts sets draft on the checked rows and clears it on the other rows.
func (h *Handler) saveDrafts(ctx context.Context, rows, checked []uint) (int64, error) {
	isChecked := make(map[uint]bool, len(checked))
	for _, id := range checked {
		isChecked[id] = true
	}
	var drafts, published []uint
	for _, id := range rows {
		if isChecked[id] {
			drafts = append(drafts, id)
		} else {
			published = append(published, id)
		}
	}

	var total int64
	for _, group := range []struct {
		ids   []uint
		draft bool
	}{{drafts, true}, {published, false}} {
		if len(group.ids) == 0 {
			continue
		}
		n, err := h.Repos.Movie.SetDraft(ctx, group.ids, group.draft)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (h *Handler) AdminShots(c *gin.Context) {
	ctx := c.Request.Context()
	page, err := h.Repos.Shot.List(ctx, repository.ShotFilter{ListQuery: h.listQuery(c), MovieID: queryUint(c, "movie")})
	if err != nil {
		h.pageError(c, err)
		return
	}
	movieOptions, err := h.movieOptions(ctx)
	if err != nil {
		h.pageError(c, err)
		return
	}

	cl := newChangeList(c, "shots", "Movie shots", page)
	cl.Columns = []string{"Title", "Description", "Movie", "Image"}
	cl.Search = true
	cl.Filters = []ListFilter{filter(c, "Movie", "movie", movieOptions)}
	for _, s := range page.Items {
		var movie interface{}
		if s.Movie != nil {
			movie = s.Movie.Title
		}
		cl.Rows = append(cl.Rows, ChangeRow{ID: s.ID, Cells: []template.HTML{
			link(fmt.Sprintf("/admin/api/shots/%d", s.ID), s.Title),
			text(s.Description),
			optional(movie),
			utils.ImagePreview(s.Image, listPreviewWidth, listPreviewHeight),
		}})
	}
	h.renderChangeList(c, cl)
}

func (h *Handler) AdminStars(c *gin.Context) {
	page, err := h.Repos.Star.List(c.Request.Context(), h.listQuery(c))
	if err != nil {
		h.pageError(c, err)
		return
	}
	cl := newChangeList(c, "stars", "Rating stars", page)
	cl.Columns = []string{"Value"}
	for _, s := range page.Items {
		cl.Rows = append(cl.Rows, ChangeRow{ID: s.ID, Cells: []template.HTML{
			link(fmt.Sprintf("/admin/api/stars/%d", s.ID), s.Value),
		}})
	}
	h.renderChangeList(c, cl)
}

func (h *Handler) AdminRatings(c *gin.Context) {
	ctx := c.Request.Context()
	page, err := h.Repos.Rating.List(ctx, repository.RatingFilter{
		ListQuery: h.listQuery(c),
		MovieID:   queryUint(c, "movie"),
		StarID:    queryUint(c, "star"),
	})
	if err != nil {
		h.pageError(c, err)
		return
	}
	movieOptions, err := h.movieOptions(ctx)
	if err != nil {
		h.pageError(c, err)
		return
	}
	stars, err := h.Repos.Star.All(ctx)
	if err != nil {
		h.pageError(c, err)
		return
	}
	starOptions := make([][2]string, 0, len(stars))
	for _, s := range stars {
		starOptions = append(starOptions, [2]string{strconv.FormatUint(uint64(s.ID), 10), s.String()})
	}

	cl := newChangeList(c, "ratings", "Ratings", page)
	cl.Columns = []string{"Movie", "IP", "Star"}
	cl.Search = true
	cl.Filters = []ListFilter{
		filter(c, "Movie", "movie", movieOptions),
		filter(c, "Star", "star", starOptions),
	}
	for _, r := range page.Items {
		movie := "-"
		if r.Movie != nil {
			movie = r.Movie.Title
		}
		var star interface{}
		if r.Star != nil {
			star = r.Star.Value
		}
		cl.Rows = append(cl.Rows, ChangeRow{ID: r.ID, Cells: []template.HTML{
			link(fmt.Sprintf("/admin/api/ratings/%d", r.ID), movie),
			text(r.IP),
			optional(star),
		}})
	}
	h.renderChangeList(c, cl)
}

func (h *Handler) AdminReviews(c *gin.Context) {
	ctx := c.Request.Context()
	page, err := h.Repos.Review.List(ctx, repository.ReviewFilter{ListQuery: h.listQuery(c), MovieID: queryUint(c, "movie")})
	if err != nil {
		h.pageError(c, err)
		return
	}
	movieOptions, err := h.movieOptions(ctx)
	if err != nil {
		h.pageError(c, err)
		return
	}

	cl := newChangeList(c, "reviews", "Reviews", page)
	cl.Columns = []string{"Name", "Email", "Parent", "Movie", "ID"}
	cl.Search = true
	cl.Filters = []ListFilter{filter(c, "Movie", "movie", movieOptions)}
	for _, r := range page.Items {
		var parent, movie interface{}
		if r.Parent != nil {
			parent = r.Parent.String()
		}
		if r.Movie != nil {
			movie = r.Movie.Title
		}
		cl.Rows = append(cl.Rows, ChangeRow{ID: r.ID, Cells: []template.HTML{
			link(fmt.Sprintf("/admin/api/reviews/%d", r.ID), r.Name),
			text(r.Email),
			optional(parent),
			optional(movie),
			text(r.ID),
		}})
	}
	h.renderChangeList(c, cl)
}

// movieOptions lists every movie for a list filter.
func (h *Handler) movieOptions(ctx context.Context) ([][2]string, error) {
	page, err := h.Repos.Movie.List(ctx, repository.MovieFilter{ListQuery: repository.ListQuery{PageSize: 500}})
	if err != nil {
		return nil, err
	}
	options := make([][2]string, 0, len(page.Items))
	for _, m := range page.Items {
		options = append(options, [2]string{strconv.FormatUint(uint64(m.ID), 10), m.Title})
	}
	return options, nil
}

// ==================== Movie detail ====================

// Fieldset groups movie fields on the detail page.
type Fieldset struct {
	Fields []Field
}

type Field struct {
	Label string
	Value template.HTML
}

func names[T fmt.Stringer](items []T) template.HTML {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, it.String())
	}
	if len(parts) == 0 {
		return "-"
	}
	return text(strings.Join(parts, ", "))
}

func (h *Handler) AdminMovieDetail(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	ctx := c.Request.Context()
	movie, err := h.Repos.Movie.FindByID(ctx, id)
	if err != nil {
		h.pageError(c, err)
		return
	}
	reviews, err := h.Repos.Review.ListByMovie(ctx, id)
	if err != nil {
		h.pageError(c, err)
		return
	}

	var category interface{}
	if movie.Category != nil {
		category = movie.Category.Name
	}
	premiere := ""
	if !movie.WorldPremiere.IsZero() {
		premiere = movie.WorldPremiere.Format("2006-01-02")
	}

	fieldsets := []Fieldset{
		{Fields: []Field{{"Title", text(movie.Title)}, {"Tagline", text(movie.Tagline)}}},
		{Fields: []Field{
			{"Description", text(movie.Description)},
			{"Poster", utils.ImagePreview(movie.Poster, detailPreviewWidth, detailPreviewHeight)},
		}},
		{Fields: []Field{{"Release Year", text(movie.Year)}, {"In Theaters", text(premiere)}, {"Country", text(movie.Country)}}},
		{Fields: []Field{
			{"Actors", names(movie.Actors)},
			{"Directors", names(movie.Directors)},
			{"Genres", names(movie.Genres)},
			{"Category", optional(category)},
		}},
		{Fields: []Field{{"Budget", text(movie.Budget)}, {"Gross USA", text(movie.FeesInUSA)}, {"Worldwide Gross", text(movie.FeesInWorld)}}},
		{Fields: []Field{{"Url", text(movie.Slug)}, {"Draft", text(movie.Draft)}}},
	}

	shots := make([]gin.H, 0, len(movie.Shots))
	for _, s := range movie.Shots {
		shots = append(shots, gin.H{
			"ID":          s.ID,
			"Title":       s.Title,
			"Description": s.Description,
			"Image":       utils.ImagePreview(s.Image, detailPreviewWidth, detailPreviewHeight),
		})
	}

	c.HTML(http.StatusOK, "admin_movie.html", h.RenderData(c, gin.H{
		"Title":     movie.Title,
		"Movie":     movie,
		"Fieldsets": fieldsets,
		"Shots":     shots,
		"Reviews":   reviews,
		"Delete":    fmt.Sprintf("/admin/movies/%d/delete", movie.ID),
		"SaveAsNew": fmt.Sprintf("/admin/movies/%d/save-as-new", movie.ID),
	}))
}

// AdminMovieSaveAsNew copies the movie, with its credits and genres, under the posted slug.
func (h *Handler) AdminMovieSaveAsNew(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	ctx := c.Request.Context()
	src, err := h.Repos.Movie.FindByID(ctx, id)
	if err != nil {
		h.pageError(c, err)
		return
	}
	back := fmt.Sprintf("/admin/movies/%d", id)

	slug := strings.TrimSpace(c.PostForm("url"))
	if !utils.IsSlug(slug) {
		h.flash(c, "Enter a valid url: letters, numbers, hyphens and underscores.")
		c.Redirect(http.StatusFound, back)
		return
	}

	copied := &model.Movie{
		Title:         src.Title,
		Tagline:       src.Tagline,
		Description:   src.Description,
		Poster:        src.Poster,
		Year:          src.Year,
		Country:       src.Country,
		WorldPremiere: src.WorldPremiere,
		Budget:        src.Budget,
		FeesInUSA:     src.FeesInUSA,
		FeesInWorld:   src.FeesInWorld,
		Slug:          slug,
		Draft:         src.Draft,
	}
	rel := repository.MovieRelations{
		CategoryID:  src.CategoryID,
		GenreIDs:    genreIDs(src.Genres),
		ActorIDs:    actorIDs(src.Actors),
		DirectorIDs: actorIDs(src.Directors),
	}
	err = h.Admin.SaveMovieAsNew(ctx, id, copied, rel)
	if errors.Is(err, repository.ErrDuplicate) {
		h.flash(c, fmt.Sprintf("Movie with this url %q already exists.", slug))
		c.Redirect(http.StatusFound, back)
		return
	}
	if err != nil {
		h.pageError(c, err)
		return
	}
	h.flash(c, fmt.Sprintf("The movie %q was added.", copied.Title))
	c.Redirect(http.StatusFound, fmt.Sprintf("/admin/movies/%d", copied.ID))
}

// AdminMovieDelete removes the movie with its shots, ratings and reviews.
func (h *Handler) AdminMovieDelete(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	ctx := c.Request.Context()
	movie, err := h.Repos.Movie.FindByID(ctx, id)
	if err != nil {
		h.pageError(c, err)
		return
	}
	if err := h.Repos.Movie.Delete(ctx, id); err != nil {
		h.pageError(c, err)
		return
	}
	h.Admin.Changed()
	h.flash(c, fmt.Sprintf("The movie %q was deleted.", movie.Title))
	c.Redirect(http.StatusFound, "/admin/movies")
}

func genreIDs(genres []model.Genre) []uint {
	out := make([]uint, 0, len(genres))
	for _, g := range genres {
		out = append(out, g.ID)
	}
	return out
}

func actorIDs(actors []model.Actor) []uint {
	out := make([]uint, 0, len(actors))
	for _, a := range actors {
		out = append(out, a.ID)
	}
	return out
}
