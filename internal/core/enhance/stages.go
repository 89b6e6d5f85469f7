package enhance

import (
	"context"
	"fmt"

	"image-enhancer/internal/core/vision"
)

// 預設參數
const (
	DenoiseDiameter   = 9
	DenoiseSigmaColor = 75.0
	DenoiseSigmaSpace = 75.0

	CLAHEClipLimit = 2.0
	CLAHETiles     = 8

	ContrastGain     = 1.2
	BrightnessOffset = 10.0
)

// Denoise 雙邊濾波降噪
type Denoise struct {
	Diameter   int
	SigmaColor float64
	SigmaSpace float64
}

// NewDenoise 使用預設參數
func NewDenoise() *Denoise {
	return &Denoise{Diameter: DenoiseDiameter, SigmaColor: DenoiseSigmaColor, SigmaSpace: DenoiseSigmaSpace}
}

func (d *Denoise) Name() string { return "denoise" }

func (d *Denoise) Apply(_ context.Context, src *vision.Bitmap) (*vision.Bitmap, error) {
	return vision.BilateralFilter(src, d.Diameter, d.SigmaColor, d.SigmaSpace)
}

// Sharpen 卷積銳化
type Sharpen struct {
	Kernel vision.Kernel
}

// NewSharpen 使用中心 9、鄰居 -1 的銳化核
func NewSharpen() *Sharpen {
	return &Sharpen{Kernel: vision.SharpenKernel()}
}

func (s *Sharpen) Name() string { return "sharpen" }

func (s *Sharpen) Apply(_ context.Context, src *vision.Bitmap) (*vision.Bitmap, error) {
	return vision.Filter2D(src, s.Kernel)
}

// LocalContrast 轉到 Lab，只對亮度平面做 CLAHE，再轉回 BGR
type LocalContrast struct {
	ClipLimit float64
	TilesX    int
	TilesY    int
}

// NewLocalContrast 使用剪裁上限 2.0 與 8x8 分塊
func NewLocalContrast() *LocalContrast {
	return &LocalContrast{ClipLimit: CLAHEClipLimit, TilesX: CLAHETiles, TilesY: CLAHETiles}
}

func (l *LocalContrast) Name() string { return "local-contrast" }

func (l *LocalContrast) Apply(_ context.Context, src *vision.Bitmap) (*vision.Bitmap, error) {
	if src.Channels != 3 {
		return nil, fmt.Errorf("%w: local contrast needs 3 channels, have %d", vision.ErrChannels, src.Channels)
	}
	lab, err := vision.BGRToLab(src)
	if err != nil {
		return nil, err
	}
	equalized, err := l.EqualizeLab(lab)
	if err != nil {
		return nil, err
	}
	return vision.LabToBGR(equalized)
}

// EqualizeLab 對 Lab 影像的 L 平面做 CLAHE，a、b 平面原樣保留
func (l *LocalContrast) EqualizeLab(lab *vision.Bitmap) (*vision.Bitmap, error) {
	planes, err := vision.Split(lab)
	if err != nil {
		return nil, err
	}
	if len(planes) != 3 {
		return nil, vision.ErrChannels
	}
	lum, err := vision.CLAHE(planes[0], l.ClipLimit, l.TilesX, l.TilesY)
	if err != nil {
		return nil, err
	}
	return vision.Merge(lum, planes[1], planes[2])
}

// Brightness 線性調整 saturate(|v*Alpha + Beta|)
type Brightness struct {
	Alpha float64
	Beta  float64
}

// NewBrightness 使用增益 1.2 與偏移 10
func NewBrightness() *Brightness {
	return &Brightness{Alpha: ContrastGain, Beta: BrightnessOffset}
}

func (b *Brightness) Name() string { return "brightness" }

func (b *Brightness) Apply(_ context.Context, src *vision.Bitmap) (*vision.Bitmap, error) {
	return vision.ConvertScaleAbs(src, b.Alpha, b.Beta)
}
