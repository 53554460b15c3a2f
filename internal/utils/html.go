package utils

import (
	"fmt"
	"html"
	"html/template"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// ImagePreview renders an <img> tag for admin lists and detail pages.
// An empty url renders nothing.
func ImagePreview(url string, width, height int) template.HTML {
	if url == "" {
		return ""
	}
	return template.HTML(fmt.Sprintf(`<img src="%s" width="%d" height="%d">`, html.EscapeString(url), width, height))
}

var (
	slugPattern = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
	nonSlug     = regexp.MustCompile(`[^a-z0-9]+`)
)

// Slugify lowercases s and joins its ASCII letters and digits with hyphens.
func Slugify(s string) string {
	s = nonSlug.ReplaceAllString(strings.ToLower(s), "-")
	return strings.Trim(s, "-")
}

// IsSlug reports whether s only holds letters, digits, hyphens and underscores.
func IsSlug(s string) bool {
	return slugPattern.MatchString(s)
}

// RegisterValidators adds the custom binding rules to gin's validator.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}
	return v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return IsSlug(fl.Field().String())
	})
}
