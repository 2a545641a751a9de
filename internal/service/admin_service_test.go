package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdminRegistry(t *testing.T) {
	r := NewAdminRegistry([]int64{42, 7})

	assert.True(t, r.IsAdmin(7))
	assert.False(t, r.IsAdmin(8))
	assert.Equal(t, 2, r.Count())

	assert.True(t, r.Add(8))
	assert.False(t, r.Add(8))
	assert.Equal(t, []int64{7, 8, 42}, r.List())

	assert.True(t, r.Remove(42))
	assert.False(t, r.Remove(42))
	assert.Equal(t, []int64{7, 8}, r.List())
}
