//go:build opencv

package opencv

import (
	"context"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"image-enhancer/internal/core/vision"
)

// Pipeline 以 OpenCV 執行與純 Go 版本相同的五個步驟
type Pipeline struct {
	kernel gocv.Mat
}

// Available 是否已編入 OpenCV
func Available() bool { return true }

// NewPipeline 建立 OpenCV 管線，使用完畢需呼叫 Close
func NewPipeline() (*Pipeline, error) {
	k := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV32F)
	sharpen := vision.SharpenKernel()
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			k.SetFloatAt(row, col, float32(sharpen.Data[row*3+col]))
		}
	}
	return &Pipeline{kernel: k}, nil
}

func (p *Pipeline) Name() string { return PipelineName }

// Close 釋放卷積核
func (p *Pipeline) Close() error {
	return p.kernel.Close()
}

// Apply 降噪、銳化、L 通道 CLAHE、線性亮度調整
func (p *Pipeline) Apply(ctx context.Context, src *vision.Bitmap) (*vision.Bitmap, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	if src.Channels != 3 {
		return nil, vision.ErrChannels
	}

	in, err := gocv.NewMatFromBytes(src.Height, src.Width, gocv.MatTypeCV8UC3, src.Pix)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap bitmap: %w", err)
	}
	defer in.Close()

	denoised := gocv.NewMat()
	defer denoised.Close()
	gocv.BilateralFilter(in, &denoised, 9, 75, 75)

	sharp := gocv.NewMat()
	defer sharp.Close()
	gocv.Filter2D(denoised, &sharp, -1, p.kernel, image.Pt(-1, -1), 0, gocv.BorderDefault)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lab := gocv.NewMat()
	defer lab.Close()
	gocv.CvtColor(sharp, &lab, gocv.ColorBGRToLab)

	planes := gocv.Split(lab)
	defer func() {
		for _, m := range planes {
			m.Close()
		}
	}()
	if len(planes) != 3 {
		return nil, vision.ErrChannels
	}

	clahe := gocv.NewCLAHEWithParams(2.0, image.Pt(8, 8))
	defer clahe.Close()
	lum := gocv.NewMat()
	defer lum.Close()
	clahe.Apply(planes[0], &lum)

	merged := gocv.NewMat()
	defer merged.Close()
	gocv.Merge([]gocv.Mat{lum, planes[1], planes[2]}, &merged)

	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(merged, &bgr, gocv.ColorLabToBGR)

	out := gocv.NewMat()
	defer out.Close()
	gocv.ConvertScaleAbs(bgr, &out, 1.2, 10)

	if out.Empty() {
		return nil, vision.ErrEmptyImage
	}
	return &vision.Bitmap{
		Width:    out.Cols(),
		Height:   out.Rows(),
		Channels: out.Channels(),
		Pix:      out.ToBytes(),
	}, nil
}
