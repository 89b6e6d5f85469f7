//go:build !opencv

package opencv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnavailable(t *testing.T) {
	assert.False(t, Available())

	p, err := NewPipeline()
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Nil(t, p)

	_, err = (&Pipeline{}).Apply(context.Background(), nil)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, PipelineName, (&Pipeline{}).Name())
}
