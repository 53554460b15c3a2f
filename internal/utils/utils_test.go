package utils

import (
	"testing"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImagePreview(t *testing.T) {
	assert.Equal(t, `<img src="/media/movies/a.jpg" width="50" height="60">`, string(ImagePreview("/media/movies/a.jpg", 50, 60)))
	assert.Equal(t, `<img src="/x.png?a=1&amp;b=&#34;2&#34;" width="100" height="110">`, string(ImagePreview(`/x.png?a=1&b="2"`, 100, 110)))
	assert.Empty(t, ImagePreview("", 50, 60))
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"The Godfather: Part II": "the-godfather-part-ii",
		"  --Heat--  ":           "heat",
		"2001: A Space Odyssey":  "2001-a-space-odyssey",
		"":                       "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), in)
	}

	assert.True(t, IsSlug("the_godfather-2"))
	assert.False(t, IsSlug("the godfather"))
	assert.False(t, IsSlug(""))
}

func TestSlugValidator(t *testing.T) {
	require.NoError(t, RegisterValidators())

	type form struct {
		URL string `binding:"required,slug"`
	}
	assert.NoError(t, binding.Validator.ValidateStruct(&form{URL: "heat-1995"}))
	assert.Error(t, binding.Validator.ValidateStruct(&form{URL: "heat 1995"}))
}

func TestTTLCacheExpiry(t *testing.T) {
	c := NewTTLCache[int](2, time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)
	_, ok := c.Get("a")
	assert.False(t, ok, "least recently used entry is evicted")
	assert.Equal(t, 2, c.Len())

	v, ok := c.Get("c")
	assert.True(t, ok)
	assert.Equal(t, 3, v)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("c")
	assert.False(t, ok, "expired")

	c.Clear()
	assert.Zero(t, c.Len())
}
