package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsAllowedIP(t *testing.T) {
	allowed := []string{"185.71.76.0/27", "not-a-cidr", "2a02:5180::/32"}

	assert.True(t, IsAllowedIP("185.71.76.31", allowed))
	assert.False(t, IsAllowedIP("185.71.76.32", allowed))
	assert.True(t, IsAllowedIP("2a02:5180::1", allowed))
	assert.False(t, IsAllowedIP("garbage", allowed))
	assert.False(t, IsAllowedIP("185.71.76.1", nil))
}
