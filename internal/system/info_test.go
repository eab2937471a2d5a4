package system

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSystemInfo(t *testing.T) {
	info, err := GetSystemInfo(context.Background(), 0)
	require.NoError(t, err)

	assert.Positive(t, info.CPUCores)
	assert.Positive(t, info.RAMTotal)
	assert.NotEmpty(t, info.OS)
	assert.Contains(t, info.Summary(), "cores")
}
