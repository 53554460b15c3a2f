package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/user/moviecatalog/internal/model"
	"github.com/user/moviecatalog/internal/repository"
	"github.com/user/moviecatalog/internal/service"
	"github.com/user/moviecatalog/internal/utils"
)

// InvalidateOnWrite drops the public caches after every successful admin write.
func (h *Handler) InvalidateOnWrite() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if c.Request.Method != http.MethodGet && c.Writer.Status() < http.StatusBadRequest {
			h.Admin.Changed()
		}
	}
}

// ==================== Actors ====================

type actorForm struct {
	Name        string `json:"name" form:"name" binding:"required,max=100"`
	Age         uint16 `json:"age" form:"age" binding:"lte=32767"`
	Description string `json:"description" form:"description"`
	Image       string `json:"image" form:"-" binding:"max=255"`
}

func (h *Handler) APIActorList(c *gin.Context) {
	page, err := h.Repos.Actor.List(c.Request.Context(), h.listQuery(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, page)
}

func (h *Handler) APIActorGet(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	actor, err := h.Repos.Actor.FindByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, actor)
}

func (h *Handler) APIActorCreate(c *gin.Context) {
	actor, err := h.bindActor(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.Repos.Actor.Create(c.Request.Context(), actor); err != nil {
		h.fail(c, err)
		return
	}
	utils.Created(c, actor)
}

func (h *Handler) APIActorUpdate(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	actor, err := h.bindActor(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	actor.ID = id
	if err := h.Repos.Actor.Update(c.Request.Context(), actor); err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, actor)
}

func (h *Handler) bindActor(c *gin.Context) (*model.Actor, error) {
	var form actorForm
	if err := bind(c, &form); err != nil {
		return nil, err
	}
	actor := &model.Actor{Name: form.Name, Age: form.Age, Description: form.Description, Image: form.Image}
	if err := h.upload(c, "image", service.FolderActors, &actor.Image); err != nil {
		return nil, err
	}
	return actor, nil
}

// APIActorDelete removes the actor from every movie credit but keeps the movies.
func (h *Handler) APIActorDelete(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.Repos.Actor.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, nil)
}

// ==================== Movie shots ====================

type shotForm struct {
	Title       string `json:"title" form:"title" binding:"required,max=100"`
	Description string `json:"description" form:"description"`
	Image       string `json:"image" form:"-" binding:"max=255"`
	MovieID     uint   `json:"movie_id" form:"movie_id" binding:"required"`
}

func (h *Handler) APIShotList(c *gin.Context) {
	page, err := h.Repos.Shot.List(c.Request.Context(), repository.ShotFilter{
		ListQuery: h.listQuery(c),
		MovieID:   queryUint(c, "movie"),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, page)
}

func (h *Handler) APIShotGet(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	shot, err := h.Repos.Shot.FindByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, shot)
}

func (h *Handler) APIShotCreate(c *gin.Context) {
	shot, err := h.bindShot(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.Repos.Shot.Create(c.Request.Context(), shot); err != nil {
		h.fail(c, err)
		return
	}
	utils.Created(c, shot)
}

func (h *Handler) APIShotUpdate(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	shot, err := h.bindShot(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	shot.ID = id
	if err := h.Repos.Shot.Update(c.Request.Context(), shot); err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, shot)
}

func (h *Handler) bindShot(c *gin.Context) (*model.MovieShot, error) {
	var form shotForm
	if err := bind(c, &form); err != nil {
		return nil, err
	}
	shot := &model.MovieShot{Title: form.Title, Description: form.Description, Image: form.Image, MovieID: form.MovieID}
	if err := h.upload(c, "image", service.FolderShots, &shot.Image); err != nil {
		return nil, err
	}
	return shot, nil
}

func (h *Handler) APIShotDelete(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.Repos.Shot.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, nil)
}

// ==================== Rating stars ====================

type starForm struct {
	Value int16 `json:"value" form:"value"`
}

func (h *Handler) APIStarList(c *gin.Context) {
	page, err := h.Repos.Star.List(c.Request.Context(), h.listQuery(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, page)
}

func (h *Handler) APIStarGet(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	star, err := h.Repos.Star.FindByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, star)
}

func (h *Handler) APIStarCreate(c *gin.Context) {
	var form starForm
	if err := bind(c, &form); err != nil {
		h.fail(c, err)
		return
	}
	star := &model.RatingStar{Value: form.Value}
	if err := h.Repos.Star.Create(c.Request.Context(), star); err != nil {
		h.fail(c, err)
		return
	}
	utils.Created(c, star)
}

func (h *Handler) APIStarUpdate(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	var form starForm
	if err := bind(c, &form); err != nil {
		h.fail(c, err)
		return
	}
	star := &model.RatingStar{ID: id, Value: form.Value}
	if err := h.Repos.Star.Update(c.Request.Context(), star); err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, star)
}

// APIStarDelete also deletes every rating given with this star.
func (h *Handler) APIStarDelete(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.Repos.Star.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, nil)
}

// ==================== Ratings ====================

type ratingForm struct {
	IP      string `json:"ip" form:"ip" binding:"required,ip"`
	StarID  uint   `json:"star_id" form:"star_id" binding:"required"`
	MovieID uint   `json:"movie_id" form:"movie_id" binding:"required"`
}

func (h *Handler) APIRatingList(c *gin.Context) {
	page, err := h.Repos.Rating.List(c.Request.Context(), repository.RatingFilter{
		ListQuery: h.listQuery(c),
		MovieID:   queryUint(c, "movie"),
		StarID:    queryUint(c, "star"),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, page)
}

func (h *Handler) APIRatingGet(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	rating, err := h.Repos.Rating.FindByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, rating)
}

func (h *Handler) APIRatingCreate(c *gin.Context) {
	var form ratingForm
	if err := bind(c, &form); err != nil {
		h.fail(c, err)
		return
	}
	rating := &model.Rating{IP: form.IP, StarID: form.StarID, MovieID: form.MovieID}
	if err := h.Repos.Rating.Create(c.Request.Context(), rating); err != nil {
		h.fail(c, err)
		return
	}
	utils.Created(c, rating)
}

func (h *Handler) APIRatingUpdate(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	var form ratingForm
	if err := bind(c, &form); err != nil {
		h.fail(c, err)
		return
	}
	rating := &model.Rating{ID: id, IP: form.IP, StarID: form.StarID, MovieID: form.MovieID}
	if err := h.Repos.Rating.Update(c.Request.Context(), rating); err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, rating)
}

func (h *Handler) APIRatingDelete(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.Repos.Rating.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, nil)
}

// ==================== Reviews ====================

type reviewForm struct {
	Email    string `json:"email" form:"email" binding:"required,email,max=254"`
	Name     string `json:"name" form:"name" binding:"required,max=100"`
	Text     string `json:"text" form:"text" binding:"required,max=5000"`
	ParentID *uint  `json:"parent_id" form:"parent_id"`
	MovieID  uint   `json:"movie_id" form:"movie_id" binding:"required"`
}

// reviewEditForm omits name and email, which are read-only once posted.
type reviewEditForm struct {
	Text     string `json:"text" form:"text" binding:"required,max=5000"`
	ParentID *uint  `json:"parent_id" form:"parent_id"`
}

func (h *Handler) APIReviewList(c *gin.Context) {
	page, err := h.Repos.Review.List(c.Request.Context(), repository.ReviewFilter{
		ListQuery: h.listQuery(c),
		MovieID:   queryUint(c, "movie"),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, page)
}

func (h *Handler) APIReviewGet(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	review, err := h.Repos.Review.FindByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, review)
}

func (h *Handler) APIReviewCreate(c *gin.Context) {
	var form reviewForm
	if err := bind(c, &form); err != nil {
		h.fail(c, err)
		return
	}
	review := &model.Review{
		Email:    form.Email,
		Name:     form.Name,
		Text:     form.Text,
		ParentID: nonZero(form.ParentID),
		MovieID:  form.MovieID,
	}
	if err := h.Repos.Review.Create(c.Request.Context(), review); err != nil {
		h.fail(c, err)
		return
	}
	utils.Created(c, review)
}

func (h *Handler) APIReviewUpdate(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	var form reviewEditForm
	if err := bind(c, &form); err != nil {
		h.fail(c, err)
		return
	}
	review := &model.Review{ID: id, Text: form.Text, ParentID: nonZero(form.ParentID)}
	if err := h.Repos.Review.Update(c.Request.Context(), review); err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, review)
}

// APIReviewDelete keeps the replies; they become top-level reviews.
func (h *Handler) APIReviewDelete(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.Repos.Review.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, nil)
}

func nonZero(id *uint) *uint {
	if id == nil || *id == 0 {
		return nil
	}
	return id
}
