package gitx

import (
	"net/url"
	"sort"
	"strings"
)

// NormalizeURL canonicalizes a git remote URL into a stable store
// identity: scheme and userinfo stripped, host lowercased, trailing
// ".git" and slashes removed.
//
//	git@github.com:Org/Repo.git     → github.com/Org/Repo
//	https://github.com/Org/Repo.git → github.com/Org/Repo
func NormalizeURL(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ""
	}

	host, path := splitRemoteURL(rawURL)
	host = strings.ToLower(host)
	path = strings.TrimRight(strings.TrimSuffix(path, ".git"), "/")
	if host == "" {
		return path
	}
	return host + "/" + path
}

// PrimaryRemote selects the remote discovery and status treat as the
// store's identity source: "origin" when present, otherwise the first
// name in sorted order.
func PrimaryRemote(remoteNames []string) string {
	if len(remoteNames) == 0 {
		return ""
	}
	for _, name := range remoteNames {
		if name == "origin" {
			return "origin"
		}
	}
	sorted := make([]string, len(remoteNames))
	copy(sorted, remoteNames)
	sort.Strings(sorted)
	return sorted[0]
}

func splitRemoteURL(rawURL string) (host, path string) {
	// SSH shorthand: user@host:path with no scheme.
	if at := strings.Index(rawURL, "@"); at >= 0 && !strings.Contains(rawURL[:at], "://") {
		rest := rawURL[at+1:]
		if colon := strings.Index(rest, ":"); colon >= 0 {
			return rest[:colon], rest[colon+1:]
		}
		return "", rawURL
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", rawURL
	}
	return parsed.Hostname(), strings.TrimPrefix(parsed.Path, "/")
}
