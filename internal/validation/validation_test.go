package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type shortenBody struct {
	URL  string `json:"url" validate:"required,http_url,max=2048"`
	Code string `json:"code,omitempty" validate:"omitempty,shortcode"`
}

type signupBody struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		input      any
		wantFields map[string]string
	}{
		{
			name:  "valid without code",
			input: shortenBody{URL: "https://example.com/path"},
		},
		{
			name:  "valid with code",
			input: shortenBody{URL: "https://example.com", Code: "my-code_1"},
		},
		{
			name:       "missing url",
			input:      shortenBody{},
			wantFields: map[string]string{"url": "is required"},
		},
		{
			name:       "relative url",
			input:      shortenBody{URL: "/just/a/path"},
			wantFields: map[string]string{"url": "must be a valid URL"},
		},
		{
			name:  "bad code",
			input: shortenBody{URL: "https://example.com", Code: "no spaces"},
			wantFields: map[string]string{
				"code": "must be 1-32 letters, digits, '-' or '_' and not a reserved word",
			},
		},
		{
			name: "several signup errors",
			input: signupBody{
				Name:     "Ada",
				Email:    "not-an-email",
				Password: "short",
			},
			wantFields: map[string]string{
				"email":    "must be a valid email",
				"password": "must be at least 8 characters",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.input)
			if tt.wantFields == nil {
				assert.NoError(t, err)
				return
			}

			var verr *Error
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantFields, verr.Fields)
		})
	}
}

func TestValidShortCode(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"abc1", true},
		{"A_b-9", true},
		{"", false},
		{"has space", false},
		{"slash/", false},
		{"abcdefghijklmnopqrstuvwxyz0123456", false},
		{"codes", false},
		{"Shorten", false},
		{"user", false},
		{"ping", false},
		{"pinger", true},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidShortCode(tt.code))
		})
	}
}

func TestError_Message(t *testing.T) {
	err := &Error{Fields: map[string]string{
		"url":  "is required",
		"code": "too long",
	}}
	assert.Equal(t, "validation failed: code: too long; url: is required", err.Error())
	assert.Equal(t, "validation failed: email: taken", NewError("email", "taken").Error())
}
