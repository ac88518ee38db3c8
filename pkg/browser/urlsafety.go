package browser

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gobwas/glob"
)

// URLPolicy decides which URLs the session may load. Only http and https
// schemes are allowed, and the host must not match any blocked pattern.
type URLPolicy struct {
	blocked []glob.Glob
}

// NewURLPolicy compiles the blocked-host glob patterns.
func NewURLPolicy(blockedHosts []string) (*URLPolicy, error) {
	policy := &URLPolicy{}
	for _, pattern := range blockedHosts {
		g, err := glob.Compile(strings.ToLower(pattern))
		if err != nil {
			return nil, fmt.Errorf("invalid blocked-host pattern %q: %w", pattern, err)
		}
		policy.blocked = append(policy.blocked, g)
	}
	return policy, nil
}

// Validate returns an error when rawURL is not a loadable http(s) URL or
// its host matches a blocked pattern.
func (p *URLPolicy) Validate(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("unsupported URL scheme %q", parsed.Scheme)
	}
	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return fmt.Errorf("URL %q has no host", rawURL)
	}
	if p == nil {
		return nil
	}
	for _, g := range p.blocked {
		if g.Match(host) {
			return fmt.Errorf("host %q is blocked by URL policy", host)
		}
	}
	return nil
}
