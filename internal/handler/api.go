package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/user/moviecatalog/internal/service"
	"github.com/user/moviecatalog/internal/utils"
)

// ==================== Public API ====================

type publicReviewForm struct {
	Email    string `json:"email" form:"email" binding:"required,email,max=254"`
	Name     string `json:"name" form:"name" binding:"required,max=100"`
	Text     string `json:"text" form:"text" binding:"required,max=5000"`
	ParentID *uint  `json:"parent_id" form:"parent_id"`
}

type publicRatingForm struct {
	StarID uint `json:"star_id" form:"star_id" binding:"required"`
}

// Movies lists published movies, newest premiere first.
func (h *Handler) Movies(c *gin.Context) {
	page, err := h.Catalog.Movies(c.Request.Context(), service.PublicFilter{
		Category: c.Query("category"),
		Genre:    c.Query("genre"),
		Year:     uint16(queryUint(c, "year")),
		Search:   c.Query("q"),
		Page:     queryInt(c, "page"),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, page)
}

// Movie returns one published movie by slug.
func (h *Handler) Movie(c *gin.Context) {
	detail, err := h.Catalog.Movie(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, detail)
}

func (h *Handler) AddReview(c *gin.Context) {
	var form publicReviewForm
	if err := bind(c, &form); err != nil {
		h.fail(c, err)
		return
	}
	review, err := h.Catalog.AddReview(c.Request.Context(), c.Param("slug"), service.ReviewInput{
		Email:    form.Email,
		Name:     form.Name,
		Text:     form.Text,
		ParentID: nonZero(form.ParentID),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Created(c, review)
}

// Rate stores the caller's star. A second rating from the same IP replaces the first.
func (h *Handler) Rate(c *gin.Context) {
	var form publicRatingForm
	if err := bind(c, &form); err != nil {
		h.fail(c, err)
		return
	}
	rating, err := h.Catalog.Rate(c.Request.Context(), c.Param("slug"), c.ClientIP(), form.StarID)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, rating)
}

func (h *Handler) Categories(c *gin.Context) {
	categories, err := h.Catalog.Categories(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, categories)
}

func (h *Handler) Genres(c *gin.Context) {
	genres, err := h.Catalog.Genres(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, genres)
}

func (h *Handler) Stars(c *gin.Context) {
	stars, err := h.Catalog.Stars(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, stars)
}

// Actor returns an actor with their published filmography.
func (h *Handler) Actor(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	actor, err := h.Catalog.Actor(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, actor)
}
