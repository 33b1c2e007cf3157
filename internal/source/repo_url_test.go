package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRepoURL(t *testing.T) {
	cases := []struct {
		input string
		owner string
		name  string
	}{
		{"https://github.com/acme/widget", "acme", "widget"},
		{"https://github.com/acme/widget.git", "acme", "widget"},
		{"git@github.com:acme/widget.git", "acme", "widget"},
		{"acme/widget", "acme", "widget"},
	}

	for _, c := range cases {
		owner, name, err := ParseRepoURL(c.input)
		require.NoError(t, err, c.input)
		assert.Equal(t, c.owner, owner)
		assert.Equal(t, c.name, name)
	}
}

func TestParseRepoURLRejectsMalformed(t *testing.T) {
	_, _, err := ParseRepoURL("not-a-valid-url")
	assert.Error(t, err)
}

func TestBuildGitHubURL(t *testing.T) {
	assert.Equal(t, "https://github.com/acme/widget", BuildGitHubURL("acme", "widget"))
}
