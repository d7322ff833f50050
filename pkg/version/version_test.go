package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGitCommit(t *testing.T) {
	assert.NotEmpty(t, GitCommit)
	assert.LessOrEqual(t, len(GitCommit), 8)
}

func TestFull(t *testing.T) {
	full := Full()
	assert.True(t, strings.HasPrefix(full, AppName+"/"))
	assert.Equal(t, AppName+"/"+GitCommit, full)
}
