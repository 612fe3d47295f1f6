package validation

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/threaded-comments-api/internal/models"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,32}$`)
)

const minPasswordLength = 6

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validator checks and renders user supplied input
type Validator struct {
	maxContentLength int
	strict           *bluemonday.Policy
	ugc              *bluemonday.Policy
	markdown         goldmark.Markdown
}

// NewValidator creates a new validator instance
func NewValidator(maxContentLength int) *Validator {
	ugc := bluemonday.UGCPolicy()
	ugc.AddTargetBlankToFullyQualifiedLinks(true)
	ugc.RequireNoReferrerOnLinks(true)

	return &Validator{
		maxContentLength: maxContentLength,
		strict:           bluemonday.StrictPolicy(),
		ugc:              ugc,
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
	}
}

// NormalizeContent trims comment content and checks it carries visible text
// within the length limit
func (v *Validator) NormalizeContent(raw string) (string, error) {
	content := strings.TrimSpace(raw)
	if content == "" {
		return "", ValidationError{Field: "content", Message: "content is required"}
	}
	if strings.TrimSpace(v.strict.Sanitize(content)) == "" {
		return "", ValidationError{Field: "content", Message: "content has no visible text"}
	}
	if n := utf8.RuneCountInString(content); n > v.maxContentLength {
		return "", ValidationError{
			Field:   "content",
			Message: fmt.Sprintf("content exceeds %d characters", v.maxContentLength),
			Value:   n,
		}
	}
	return content, nil
}

// ValidateRegistration validates a registration request
func (v *Validator) ValidateRegistration(req *models.RegisterRequest) []ValidationError {
	var errors []ValidationError

	if req.Username == "" {
		errors = append(errors, ValidationError{Field: "username", Message: "username is required"})
	} else if !usernameRegex.MatchString(req.Username) {
		errors = append(errors, ValidationError{Field: "username", Message: "username must be 3-32 letters, digits, '.', '_' or '-'", Value: req.Username})
	}

	if req.Email == "" {
		errors = append(errors, ValidationError{Field: "email", Message: "email is required"})
	} else if !emailRegex.MatchString(req.Email) {
		errors = append(errors, ValidationError{Field: "email", Message: "invalid email format", Value: req.Email})
	}

	if utf8.RuneCountInString(req.Password) < minPasswordLength {
		errors = append(errors, ValidationError{Field: "password", Message: fmt.Sprintf("password must be at least %d characters", minPasswordLength)})
	}

	return errors
}

// RenderContent converts markdown content to sanitized HTML
func (v *Validator) RenderContent(content string) string {
	var buf bytes.Buffer
	if err := v.markdown.Convert([]byte(content), &buf); err != nil {
		return v.strict.Sanitize(content)
	}
	return v.ugc.Sanitize(buf.String())
}

// RenderComment fills ContentHTML on a comment and its materialized relations
func (v *Validator) RenderComment(c *models.Comment) {
	if c == nil {
		return
	}
	c.ContentHTML = v.RenderContent(c.Content)
	if c.Parent != nil {
		v.RenderComment(c.Parent)
	}
	for _, reply := range c.Replies {
		v.RenderComment(reply)
	}
}

// IsValidUUID reports whether s is a well formed UUID
func IsValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
