package source

import (
	"fmt"
	"strings"
)

// ParseRepoURL extracts owner/name from a GitHub URL, an SSH remote, or an
// owner/name shorthand, stripping a trailing ".git" suffix.
func ParseRepoURL(raw string) (owner, name string, err error) {
	url := strings.TrimSpace(raw)

	url = strings.TrimPrefix(url, "git@github.com:")
	url = strings.TrimPrefix(url, "https://github.com/")
	url = strings.TrimPrefix(url, "http://github.com/")
	url = strings.TrimSuffix(url, ".git")
	url = strings.TrimSuffix(url, "/")

	parts := strings.Split(url, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository url %q: expected owner/name", raw)
	}
	return parts[0], parts[1], nil
}

// BuildGitHubURL converts owner/name into a clonable HTTPS URL.
func BuildGitHubURL(owner, name string) string {
	return fmt.Sprintf("https://github.com/%s/%s", owner, name)
}
