package view

import (
	"fmt"
	"net/url"
	"strings"
)

const uhrpScheme = "uhrp://"

// Gateway rewrites content-addressed uhrp:// image URLs into HTTP URLs served
// by a content gateway. Other URLs pass through unchanged.
type Gateway struct {
	base *url.URL
}

// NewGateway returns a Gateway rooted at base. An empty base disables
// rewriting.
func NewGateway(base string) (*Gateway, error) {
	if base == "" {
		return &Gateway{}, nil
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse uhrp gateway: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("uhrp gateway must be http(s), got %q", base)
	}
	return &Gateway{base: u}, nil
}

// Resolve maps uhrp://<hash> onto <gateway>/<hash>.
func (g *Gateway) Resolve(raw string) string {
	if g == nil || g.base == nil || len(raw) < len(uhrpScheme) || !strings.EqualFold(raw[:len(uhrpScheme)], uhrpScheme) {
		return raw
	}
	hash := strings.Trim(raw[len(uhrpScheme):], "/")
	if hash == "" {
		return raw
	}
	return g.base.JoinPath(hash).String()
}
