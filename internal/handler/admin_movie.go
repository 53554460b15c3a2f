package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/user/moviecatalog/internal/model"
	"github.com/user/moviecatalog/internal/repository"
	"github.com/user/moviecatalog/internal/service"
	"github.com/user/moviecatalog/internal/utils"
)

// ==================== Movies ====================

type movieForm struct {
	Title         string `json:"title" form:"title" binding:"required,max=100"`
	Tagline       string `json:"tagline" form:"tagline" binding:"max=100"`
	Description   string `json:"description" form:"description"`
	Poster        string `json:"poster" form:"-" binding:"max=255"`
	Year          uint16 `json:"year" form:"year"`
	Country       string `json:"country" form:"country" binding:"max=30"`
	WorldPremiere string `json:"world_premiere" form:"world_premiere" binding:"omitempty,datetime=2006-01-02"`
	Budget        uint32 `json:"budget" form:"budget"`
	FeesInUSA     uint32 `json:"fees_in_usa" form:"fees_in_usa"`
	FeesInWorld   uint32 `json:"fees_in_world" form:"fees_in_world"`
	CategoryID    *uint  `json:"category_id" form:"category_id"`
	GenreIDs      []uint `json:"genre_ids" form:"genre_ids"`
	ActorIDs      []uint `json:"actor_ids" form:"actor_ids"`
	DirectorIDs   []uint `json:"director_ids" form:"director_ids"`
	URL           string `json:"url" form:"url" binding:"required,max=160,slug"`
	Draft         bool   `json:"draft" form:"draft"`
}

// movie converts the form, applying the column defaults for omitted values.
func (f movieForm) movie() (*model.Movie, repository.MovieRelations) {
	m := &model.Movie{
		Title:       f.Title,
		Tagline:     f.Tagline,
		Description: f.Description,
		Poster:      f.Poster,
		Year:        f.Year,
		Country:     f.Country,
		Budget:      f.Budget,
		FeesInUSA:   f.FeesInUSA,
		FeesInWorld: f.FeesInWorld,
		Slug:        f.URL,
		Draft:       f.Draft,
	}
	if m.Year == 0 {
		m.Year = 2019
	}
	if f.WorldPremiere != "" {
		// validated by the datetime rule
		m.WorldPremiere, _ = time.Parse(time.DateOnly, f.WorldPremiere)
	} else {
		m.WorldPremiere = time.Now().UTC().Truncate(24 * time.Hour)
	}
	rel := repository.MovieRelations{
		CategoryID:  f.CategoryID,
		GenreIDs:    f.GenreIDs,
		ActorIDs:    f.ActorIDs,
		DirectorIDs: f.DirectorIDs,
	}
	if rel.CategoryID != nil && *rel.CategoryID == 0 {
		rel.CategoryID = nil
	}
	return m, rel
}

type draftForm struct {
	Draft *bool `json:"draft" form:"draft" binding:"required"`
}

type actionForm struct {
	Action string `json:"action" form:"action" binding:"required,oneof=publish unpublish"`
	IDs    []uint `json:"ids" form:"ids" binding:"required,min=1"`
}

func (h *Handler) movieFilter(c *gin.Context) repository.MovieFilter {
	f := repository.MovieFilter{
		ListQuery: h.listQuery(c),
		Year:      uint16(queryUint(c, "year")),
	}
	if id := queryUint(c, "category"); id > 0 {
		f.CategoryID = &id
	}
	return f
}

func (h *Handler) APIMovieList(c *gin.Context) {
	page, err := h.Repos.Movie.List(c.Request.Context(), h.movieFilter(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, page)
}

func (h *Handler) APIMovieGet(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	movie, err := h.Repos.Movie.FindByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, movie)
}

func (h *Handler) APIMovieCreate(c *gin.Context) {
	var form movieForm
	if err := bind(c, &form); err != nil {
		h.fail(c, err)
		return
	}
	movie, rel := form.movie()
	if err := h.upload(c, "poster", service.FolderMovies, &movie.Poster); err != nil {
		h.fail(c, err)
		return
	}
	if err := h.Admin.SaveMovie(c.Request.Context(), movie, rel); err != nil {
		h.fail(c, err)
		return
	}
	h.respondMovie(c, movie.ID, true)
}

// APIMovieUpdate saves the movie, or stores the payload as a new movie
// when save_as_new is set.
func (h *Handler) APIMovieUpdate(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	var form movieForm
	if err := bind(c, &form); err != nil {
		h.fail(c, err)
		return
	}
	movie, rel := form.movie()
	if err := h.upload(c, "poster", service.FolderMovies, &movie.Poster); err != nil {
		h.fail(c, err)
		return
	}

	ctx := c.Request.Context()
	if c.Query("save_as_new") == "true" {
		if err := h.Admin.SaveMovieAsNew(ctx, id, movie, rel); err != nil {
			h.fail(c, err)
			return
		}
		h.respondMovie(c, movie.ID, true)
		return
	}

	movie.ID = id
	if err := h.Admin.SaveMovie(ctx, movie, rel); err != nil {
		h.fail(c, err)
		return
	}
	h.respondMovie(c, id, false)
}

func (h *Handler) respondMovie(c *gin.Context, id uint, created bool) {
	movie, err := h.Repos.Movie.FindByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if created {
		utils.Created(c, movie)
		return
	}
	utils.Success(c, movie)
}

func (h *Handler) APIMovieDelete(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.Repos.Movie.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, nil)
}

// APIMovieDraft is the list-editable draft toggle.
func (h *Handler) APIMovieDraft(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	var form draftForm
	if err := bind(c, &form); err != nil {
		h.fail(c, err)
		return
	}
	if err := h.Admin.SetDraft(c.Request.Context(), id, *form.Draft); err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, gin.H{"id": id, "draft": *form.Draft})
}

// APIMovieAction runs publish or unpublish on the selected movies.
func (h *Handler) APIMovieAction(c *gin.Context) {
	var form actionForm
	if err := bind(c, &form); err != nil {
		h.fail(c, err)
		return
	}
	res, err := h.Admin.RunAction(c.Request.Context(), form.Action, form.IDs)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.SuccessWithMessage(c, res.Message, res)
}
