package queue

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDrop(t *testing.T) {
	base := errors.New("missing user_id")

	dropped := Drop(base)
	assert.True(t, IsDrop(dropped))
	assert.ErrorIs(t, dropped, base)
	assert.Equal(t, base.Error(), dropped.Error())

	wrapped := fmt.Errorf("handle: %w", dropped)
	assert.True(t, IsDrop(wrapped))

	assert.False(t, IsDrop(base))
	assert.NoError(t, Drop(nil))
}
