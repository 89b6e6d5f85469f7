//go:build opencv

package opencv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"image-enhancer/internal/core/vision"
)

func TestPipelineFlatGray(t *testing.T) {
	require.True(t, Available())

	p, err := NewPipeline()
	require.NoError(t, err)
	defer p.Close()

	src, err := vision.Fill(100, 100, 128, 128, 128)
	require.NoError(t, err)

	out, err := p.Apply(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 100, out.Width)
	assert.Equal(t, 100, out.Height)
	assert.Equal(t, 3, out.Channels)
	for _, v := range out.Pix {
		require.Equal(t, out.Pix[0], v, "flat input stays flat")
	}

	// OpenCV CLAHE 將 L=137 的平坦區塊映射到約 210，
	// 經 Lab→BGR 與 1.2 倍增益後接近飽和，純 Go 後端約為 164
	assert.InDelta(t, 254, int(out.Pix[0]), 3)
}

func TestPipelineRejectsGray(t *testing.T) {
	p, err := NewPipeline()
	require.NoError(t, err)
	defer p.Close()

	src, err := vision.Fill(4, 4, 10)
	require.NoError(t, err)
	_, err = p.Apply(context.Background(), src)
	assert.ErrorIs(t, err, vision.ErrChannels)
}
