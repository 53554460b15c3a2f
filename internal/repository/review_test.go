package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/moviecatalog/internal/model"
)

func newReview(movieID uint, name string, parent *uint) *model.Review {
	return &model.Review{Name: name, Email: name + "@example.com", Text: "text by " + name, MovieID: movieID, ParentID: parent}
}

func TestReviewParentRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.movie(t, "heat", 1995, false)
	other := f.movie(t, "ronin", 1998, false)

	root := newReview(m.ID, "ann", nil)
	require.NoError(t, f.repos.Review.Create(ctx, root))

	err := f.repos.Review.Create(ctx, newReview(other.ID, "bob", &root.ID))
	assert.ErrorIs(t, err, ErrInvalidReference, "parent from another movie")

	missing := uint(404)
	err = f.repos.Review.Create(ctx, newReview(m.ID, "bob", &missing))
	assert.ErrorIs(t, err, ErrInvalidReference)

	err = f.repos.Review.Create(ctx, newReview(4040, "bob", nil))
	assert.ErrorIs(t, err, ErrInvalidReference, "unknown movie")

	reply := newReview(m.ID, "bob", &root.ID)
	require.NoError(t, f.repos.Review.Create(ctx, reply))

	// root -> reply -> root would loop
	root.ParentID = &reply.ID
	assert.ErrorIs(t, f.repos.Review.Update(ctx, root), ErrInvalidReference)

	self := &model.Review{ID: root.ID, Text: "x", ParentID: &root.ID}
	assert.ErrorIs(t, f.repos.Review.Update(ctx, self), ErrInvalidReference)
}

func TestReviewUpdateKeepsNameAndEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.movie(t, "heat", 1995, false)
	rv := newReview(m.ID, "ann", nil)
	require.NoError(t, f.repos.Review.Create(ctx, rv))

	edit := &model.Review{ID: rv.ID, Name: "mallory", Email: "mallory@example.com", Text: "edited"}
	require.NoError(t, f.repos.Review.Update(ctx, edit))

	got, err := f.repos.Review.FindByID(ctx, rv.ID)
	require.NoError(t, err)
	assert.Equal(t, "ann", got.Name)
	assert.Equal(t, "ann@example.com", got.Email)
	assert.Equal(t, "edited", got.Text)
	assert.Equal(t, "ann", edit.Name, "the caller sees the stored values")
}

func TestReviewDeleteKeepsReplies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.movie(t, "heat", 1995, false)

	root := newReview(m.ID, "ann", nil)
	require.NoError(t, f.repos.Review.Create(ctx, root))
	reply := newReview(m.ID, "bob", &root.ID)
	require.NoError(t, f.repos.Review.Create(ctx, reply))
	nested := newReview(m.ID, "cat", &reply.ID)
	require.NoError(t, f.repos.Review.Create(ctx, nested))

	require.NoError(t, f.repos.Review.Delete(ctx, root.ID))

	got, err := f.repos.Review.FindByID(ctx, reply.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ParentID)

	got, err = f.repos.Review.FindByID(ctx, nested.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ParentID)
	assert.Equal(t, reply.ID, *got.ParentID, "only direct replies are detached")
}

func TestThread(t *testing.T) {
	one, two, gone := uint(1), uint(2), uint(99)
	reviews := []model.Review{
		{ID: 1, Name: "root"},
		{ID: 2, Name: "reply", ParentID: &one},
		{ID: 3, Name: "nested", ParentID: &two},
		{ID: 4, Name: "second root"},
		{ID: 5, Name: "orphan", ParentID: &gone},
	}

	roots := Thread(reviews)

	require.Len(t, roots, 3)
	assert.Equal(t, "root", roots[0].Name)
	require.Len(t, roots[0].Replies, 1)
	assert.Equal(t, "reply", roots[0].Replies[0].Name)
	require.Len(t, roots[0].Replies[0].Replies, 1)
	assert.Equal(t, "nested", roots[0].Replies[0].Replies[0].Name)
	assert.Equal(t, "second root", roots[1].Name)
	assert.Equal(t, "orphan", roots[2].Name)
}
