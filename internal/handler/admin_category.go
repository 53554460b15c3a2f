package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/user/moviecatalog/internal/model"
	"github.com/user/moviecatalog/internal/utils"
)

// ==================== Categories & genres ====================

type categoryForm struct {
	Name        string `json:"name" form:"name" binding:"required,max=150"`
	Description string `json:"description" form:"description"`
	URL         string `json:"url" form:"url" binding:"required,max=160,slug"`
}

type genreForm struct {
	Name        string `json:"name" form:"name" binding:"required,max=100"`
	Description string `json:"description" form:"description"`
	URL         string `json:"url" form:"url" binding:"required,max=160,slug"`
}

func (h *Handler) APICategoryList(c *gin.Context) {
	page, err := h.Repos.Category.List(c.Request.Context(), h.listQuery(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, page)
}

func (h *Handler) APICategoryGet(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	category, err := h.Repos.Category.FindByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, category)
}

func (h *Handler) APICategoryCreate(c *gin.Context) {
	var form categoryForm
	if err := bind(c, &form); err != nil {
		h.fail(c, err)
		return
	}
	category := &model.Category{Name: form.Name, Description: form.Description, Slug: form.URL}
	if err := h.Repos.Category.Create(c.Request.Context(), category); err != nil {
		h.fail(c, err)
		return
	}
	utils.Created(c, category)
}

func (h *Handler) APICategoryUpdate(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	var form categoryForm
	if err := bind(c, &form); err != nil {
		h.fail(c, err)
		return
	}
	category := &model.Category{ID: id, Name: form.Name, Description: form.Description, Slug: form.URL}
	if err := h.Repos.Category.Update(c.Request.Context(), category); err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, category)
}

// APICategoryDelete keeps the category's movies; they lose their category.
func (h *Handler) APICategoryDelete(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.Repos.Category.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, nil)
}

func (h *Handler) APIGenreList(c *gin.Context) {
	page, err := h.Repos.Genre.List(c.Request.Context(), h.listQuery(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, page)
}

func (h *Handler) APIGenreGet(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	genre, err := h.Repos.Genre.FindByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, genre)
}

func (h *Handler) APIGenreCreate(c *gin.Context) {
	var form genreForm
	if err := bind(c, &form); err != nil {
		h.fail(c, err)
		return
	}
	genre := &model.Genre{Name: form.Name, Description: form.Description, Slug: form.URL}
	if err := h.Repos.Genre.Create(c.Request.Context(), genre); err != nil {
		h.fail(c, err)
		return
	}
	utils.Created(c, genre)
}

func (h *Handler) APIGenreUpdate(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	var form genreForm
	if err := bind(c, &form); err != nil {
		h.fail(c, err)
		return
	}
	genre := &model.Genre{ID: id, Name: form.Name, Description: form.Description, Slug: form.URL}
	if err := h.Repos.Genre.Update(c.Request.Context(), genre); err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, genre)
}

func (h *Handler) APIGenreDelete(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.Repos.Genre.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, nil)
}
