package id

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewIsSortable(t *testing.T) {
	t.Parallel()

	ids := make([]string, 0, 100)
	for i := 0; i < 100; i++ {
		ids = append(ids, New())
	}

	assert.True(t, sort.StringsAreSorted(ids))
	for _, s := range ids {
		assert.True(t, Valid(s), s)
	}
}

func TestAtUsesTimestamp(t *testing.T) {
	t.Parallel()

	early := At(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	late := At(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.Less(t, early, late)
	assert.False(t, Valid("not-a-ulid"))
}
