package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/linktrack/internal/config"
)

func TestURLValidator(t *testing.T) {
	tests := []struct {
		url        string
		strict     bool
		permissive bool
	}{
		{"https://example.com", true, true},
		{"http://localhost:8080/path", true, true},
		{"ftp://example.com", false, false},
		{"not a url", false, false},
		{"", false, false},
		{"javascript:alert(1)", false, false},
		{"HTTPS://EXAMPLE.COM/Path", true, true},
		{"https://sub.example.co.uk/a/b?c=d&e=f", true, true},
		{"http://192.168.1.10:3000", true, true},
		{"https://example.com/", true, true},
		{"http://intranet/wiki", false, true},
		{"https://example.com/path with space", false, true},
		{"https://-bad-.com", false, true},
		{"https://", false, false},
		{"mailto:someone@example.com", false, false},
		{"https://a.example", true, true},
		{"https://shop.company", true, true},
		{"https://foo.technology/x", true, true},
		{"https://docs.international/guide?lang=en", true, true},
	}

	strict, err := NewURLValidator(config.ValidationStrict)
	require.NoError(t, err)
	permissive, err := NewURLValidator(config.ValidationPermissive)
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.strict, strict.Validate(tt.url), "strict")
			assert.Equal(t, tt.permissive, permissive.Validate(tt.url), "permissive")
		})
	}
}

func TestURLValidator_RejectsOverlongURLs(t *testing.T) {
	v, err := NewURLValidator(config.ValidationPermissive)
	require.NoError(t, err)

	assert.False(t, v.Validate("https://example.com/"+strings.Repeat("a", maxURLLength)))
}

func TestURLValidator_StrictTLDLength(t *testing.T) {
	v, err := NewURLValidator(config.ValidationStrict)
	require.NoError(t, err)

	assert.Equal(t, config.ValidationStrict, v.Mode())
	assert.True(t, v.Validate("https://example."+strings.Repeat("a", 63)))
	assert.False(t, v.Validate("https://example."+strings.Repeat("a", 64)))
	assert.False(t, v.Validate("https://example.a"))
}

func TestNewURLValidator_UnknownMode(t *testing.T) {
	_, err := NewURLValidator("lenient")
	assert.Error(t, err)
}
