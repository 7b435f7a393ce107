package browser

import (
	"net/url"
	"strings"
)

// Allowlist is the set of hosts navigation is permitted to reach. An empty
// allowlist permits every destination.
type Allowlist []string

// ParseAllowlist builds an Allowlist from a comma-separated host string.
// Entries are trimmed and lowercased; empty entries are dropped.
func ParseAllowlist(csv string) Allowlist {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	var list Allowlist
	for _, entry := range strings.Split(csv, ",") {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry != "" {
			list = append(list, entry)
		}
	}
	return list
}

// Permits reports whether rawURL's host is an allowed destination. A host
// matches an entry on exact equality or as a subdomain ("sub.example.com"
// matches "example.com"; "notexample.com" does not).
func (a Allowlist) Permits(rawURL string) bool {
	if len(a) == 0 {
		return true
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}

	for _, d := range a {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
