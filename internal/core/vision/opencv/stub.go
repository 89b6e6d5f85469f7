//go:build !opencv

package opencv

import (
	"context"

	"image-enhancer/internal/core/vision"
)

// Pipeline 未啟用 OpenCV 時的佔位實作
type Pipeline struct{}

// Available 是否已編入 OpenCV
func Available() bool { return false }

// NewPipeline 未啟用 OpenCV 時一律失敗
func NewPipeline() (*Pipeline, error) {
	return nil, ErrUnavailable
}

func (p *Pipeline) Name() string { return PipelineName }

// Close 無資源需要釋放
func (p *Pipeline) Close() error { return nil }

func (p *Pipeline) Apply(context.Context, *vision.Bitmap) (*vision.Bitmap, error) {
	return nil, ErrUnavailable
}
