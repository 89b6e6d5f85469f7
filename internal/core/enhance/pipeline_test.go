package enhance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"image-enhancer/internal/core/vision"
	"image-enhancer/internal/pkg/common"
)

// gradient 產生平滑的彩色漸層
func gradient(t *testing.T, w, h int) *vision.Bitmap {
	t.Helper()
	b, err := vision.NewBitmap(w, h, 3)
	require.NoError(t, err)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			b.Set(x, y, 0, uint8(40+x*2))
			b.Set(x, y, 1, uint8(60+y*2))
			b.Set(x, y, 2, uint8(120+(x+y)/2))
		}
	}
	return b
}

type failingStage struct{ err error }

func (f failingStage) Name() string { return "failing" }

func (f failingStage) Apply(context.Context, *vision.Bitmap) (*vision.Bitmap, error) {
	return nil, f.err
}

func TestDefaultPipelineStages(t *testing.T) {
	p := Default()
	assert.Equal(t, "enhance-v1", p.Name())
	assert.Equal(t, []string{"denoise", "sharpen", "local-contrast", "brightness"}, p.Stages())
}

func TestPipelinePreservesDimensions(t *testing.T) {
	src := gradient(t, 37, 23)
	out, err := Default().Apply(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 37, out.Width)
	assert.Equal(t, 23, out.Height)
	assert.Equal(t, 3, out.Channels)
	assert.Len(t, out.Pix, 37*23*3)
}

func TestPipelineDeterministic(t *testing.T) {
	src := gradient(t, 32, 32)
	before := src.Clone()

	first, err := Default().Apply(context.Background(), src)
	require.NoError(t, err)
	second, err := Default().Apply(context.Background(), src)
	require.NoError(t, err)

	assert.True(t, vision.Equal(first, second))
	assert.True(t, vision.Equal(before, src), "input must not be modified")
}

func TestPipelineFlatGray(t *testing.T) {
	src, err := vision.Fill(100, 100, 128, 128, 128)
	require.NoError(t, err)

	out, err := Default().Apply(context.Background(), src)
	require.NoError(t, err)

	lo, hi := out.Pix[0], out.Pix[0]
	for _, v := range out.Pix {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	assert.Equal(t, lo, hi, "flat input stays flat")
	assert.InDelta(t, 163, int(lo), 4)
}

func TestPipelineStageOrder(t *testing.T) {
	var seen []string
	p := Default(WithObserver(func(stage string, out *vision.Bitmap) {
		seen = append(seen, stage)
		assert.Equal(t, 3, out.Channels)
	}))
	_, err := p.Apply(context.Background(), gradient(t, 16, 16))
	require.NoError(t, err)
	assert.Equal(t, p.Stages(), seen)
}

func TestPipelineErrors(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		_, err := Default().Apply(context.Background(), &vision.Bitmap{})
		assert.ErrorIs(t, err, common.ErrProcessingError)
	})

	t.Run("stage failure is wrapped", func(t *testing.T) {
		boom := errors.New("boom")
		p := New("broken", []Transformer{NewSharpen(), failingStage{err: boom}})
		_, err := p.Apply(context.Background(), gradient(t, 8, 8))
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrProcessingError)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("classified error kept", func(t *testing.T) {
		p := New("broken", []Transformer{failingStage{err: common.ErrInvalidIntensity}})
		_, err := p.Apply(context.Background(), gradient(t, 8, 8))
		assert.Equal(t, common.ErrCodeBadInput, common.AsCustomError(err).Code)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Default().Apply(ctx, gradient(t, 8, 8))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestPipelineSimulatedLatency(t *testing.T) {
	p := New("slow", []Transformer{NewBrightness()}, WithSimulatedLatency(30*time.Millisecond))

	start := time.Now()
	_, err := p.Apply(context.Background(), gradient(t, 4, 4))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	slow := New("slow", []Transformer{NewBrightness()}, WithSimulatedLatency(time.Second))
	_, err = slow.Apply(ctx, gradient(t, 4, 4))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLocalContrastKeepsChroma(t *testing.T) {
	lab, err := vision.BGRToLab(gradient(t, 64, 48))
	require.NoError(t, err)

	equalized, err := NewLocalContrast().EqualizeLab(lab)
	require.NoError(t, err)

	in, err := vision.Split(lab)
	require.NoError(t, err)
	out, err := vision.Split(equalized)
	require.NoError(t, err)

	assert.True(t, vision.Equal(in[1], out[1]), "a plane unchanged")
	assert.True(t, vision.Equal(in[2], out[2]), "b plane unchanged")
}

func TestLocalContrastRejectsGray(t *testing.T) {
	gray, err := vision.Fill(8, 8, 100)
	require.NoError(t, err)
	_, err = NewLocalContrast().Apply(context.Background(), gray)
	assert.ErrorIs(t, err, vision.ErrChannels)
}

func TestBrightness(t *testing.T) {
	src, err := vision.Fill(2, 1, 0, 128, 250)
	require.NoError(t, err)
	out, err := NewBrightness().Apply(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, []uint8{10, 164, 255}, out.Pix[:3])
}
