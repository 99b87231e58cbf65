package service

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/user/linktrack/internal/config"
)

// maxURLLength matches the longest URL old browsers accept.
const maxURLLength = 2083

// strictURLPattern admits http(s) URLs whose host is a domain name,
// localhost, or a dotted-quad IPv4 address, with optional port and path.
var strictURLPattern = regexp.MustCompile(`(?i)^https?://` +
	`(?:(?:[A-Z0-9](?:[A-Z0-9-]{0,61}[A-Z0-9])?\.)+[A-Z]{2,63}\.?|` +
	`localhost|` +
	`\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})` +
	`(?::\d+)?` +
	`(?:/?|[/?]\S+)$`)

// URLValidator accepts or rejects destination URLs before they are stored.
type URLValidator struct {
	mode string
}

// NewURLValidator returns a validator for mode ("strict" or "permissive").
func NewURLValidator(mode string) (*URLValidator, error) {
	switch mode {
	case config.ValidationStrict, config.ValidationPermissive:
		return &URLValidator{mode: mode}, nil
	default:
		return nil, fmt.Errorf("unknown URL validation mode %q", mode)
	}
}

// Mode returns the active policy.
func (v *URLValidator) Mode() string { return v.mode }

// Validate reports whether candidate may be stored. It never mutates it;
// callers trim whitespace first.
func (v *URLValidator) Validate(candidate string) bool {
	if candidate == "" || len(candidate) > maxURLLength {
		return false
	}

	if v.mode == config.ValidationStrict {
		return strictURLPattern.MatchString(candidate)
	}

	// Permissive: scheme prefix plus anything net/url can give a host.
	lower := strings.ToLower(candidate)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return false
	}
	u, err := url.Parse(candidate)
	return err == nil && u.Host != ""
}
