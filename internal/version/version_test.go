package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetInfo(t *testing.T) {
	info := GetInfo()

	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.InstanceID)
	assert.NotEmpty(t, info.Hostname)
}

func TestGetInfo_Cached(t *testing.T) {
	first := GetInfo()
	second := GetInfo()

	// Instance ID is computed once per process.
	assert.Equal(t, first.InstanceID, second.InstanceID)
}

func TestInfo_String(t *testing.T) {
	info := Info{Version: "v1.2.3", GitCommit: "abc1234", BuildDate: "2026-03-01T00:00:00Z"}

	s := info.String()
	assert.True(t, strings.HasPrefix(s, "gatekeeper version v1.2.3"))
	assert.Contains(t, s, "abc1234")
}
