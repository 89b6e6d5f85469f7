package filter

import (
	"math"

	"image-enhancer/internal/core/vision"
)

type entry struct {
	name string
	fn   Func
}

var catalogue = []entry{
	{"sepia", matrix(sepiaMatrix)},
	{"warm", matrix(warmMatrix)},
	{"cool", matrix(coolMatrix)},
	{"sketch", sketch},
	{"high_contrast", scale(func(t float64) float64 { return 1 + 0.5*t })},
	{"fade", scale(func(t float64) float64 { return 1 - 0.3*t })},
	{"black_white", blackWhite},
	{"vintage", vintage},
	{"blur", blur},
	{"edge", edge},
	{"emboss", emboss},
	{"negative", negative},
}

// 色彩矩陣，列與欄皆依 BGR 順序
var (
	sepiaMatrix = [3][3]float64{
		{0.272, 0.534, 0.131},
		{0.349, 0.686, 0.168},
		{0.393, 0.769, 0.189},
	}
	warmMatrix = [3][3]float64{
		{1.05, 0, 0},
		{0, 1.0, 0},
		{0, 0, 0.95},
	}
	coolMatrix = [3][3]float64{
		{0.95, 0, 0},
		{0, 1.0, 0},
		{0, 0, 1.05},
	}
	vintageMatrix = [3][3]float64{
		{0.393, 0.769, 0.189},
		{0.349, 0.686, 0.168},
		{0.272, 0.534, 0.131},
	}
)

const (
	sketchBlurSize = 21
	minBlurSize    = 5
	vintageVeil    = 0.15
)

// blend 原圖與結果依強度混合
func blend(orig, filtered *vision.Bitmap, t float64) (*vision.Bitmap, error) {
	return vision.AddWeighted(orig, 1-t, filtered, t, 0)
}

func matrix(m [3][3]float64) Func {
	return func(src *vision.Bitmap, t float64) (*vision.Bitmap, error) {
		out, err := vision.Transform(src, m)
		if err != nil {
			return nil, err
		}
		return blend(src, out, t)
	}
}

// scale 各通道乘上同一係數，不做混合
func scale(factor func(t float64) float64) Func {
	return func(src *vision.Bitmap, t float64) (*vision.Bitmap, error) {
		f := factor(t)
		return vision.Transform(src, [3][3]float64{{f, 0, 0}, {0, f, 0}, {0, 0, f}})
	}
}

func sketch(src *vision.Bitmap, t float64) (*vision.Bitmap, error) {
	gray, err := vision.BGRToGray(src)
	if err != nil {
		return nil, err
	}
	inv, err := vision.BitwiseNot(gray)
	if err != nil {
		return nil, err
	}
	blurred, err := vision.GaussianBlur(inv, sketchBlurSize, 0)
	if err != nil {
		return nil, err
	}
	// 255 - blur
	denom, err := vision.BitwiseNot(blurred)
	if err != nil {
		return nil, err
	}
	dodge, err := vision.Divide(gray, denom, 256)
	if err != nil {
		return nil, err
	}
	out, err := vision.GrayToBGR(dodge)
	if err != nil {
		return nil, err
	}
	return blend(src, out, t)
}

func blackWhite(src *vision.Bitmap, t float64) (*vision.Bitmap, error) {
	gray, err := vision.BGRToGray(src)
	if err != nil {
		return nil, err
	}
	out, err := vision.GrayToBGR(gray)
	if err != nil {
		return nil, err
	}
	return blend(src, out, t)
}

func vintage(src *vision.Bitmap, t float64) (*vision.Bitmap, error) {
	toned, err := vision.Transform(src, vintageMatrix)
	if err != nil {
		return nil, err
	}
	overlay, err := vision.Fill(src.Width, src.Height,
		uint8(math.RoundToEven(20*t)),
		uint8(math.RoundToEven(15*t)),
		uint8(math.RoundToEven(10*t)),
	)
	if err != nil {
		return nil, err
	}
	veiled, err := vision.AddWeighted(toned, 1-vintageVeil*t, overlay, vintageVeil*t, 0)
	if err != nil {
		return nil, err
	}
	return blend(src, veiled, t)
}

// blurSize 5 到 25 之間的奇數
func blurSize(t float64) int {
	size := int(minBlurSize + 20*t)
	if size%2 == 0 {
		size++
	}
	return size
}

func blur(src *vision.Bitmap, t float64) (*vision.Bitmap, error) {
	return vision.GaussianBlur(src, blurSize(t), 0)
}

func edge(src *vision.Bitmap, t float64) (*vision.Bitmap, error) {
	gray, err := vision.BGRToGray(src)
	if err != nil {
		return nil, err
	}
	edges, err := vision.Canny(gray, 50+100*t, 100+200*t)
	if err != nil {
		return nil, err
	}
	out, err := vision.GrayToBGR(edges)
	if err != nil {
		return nil, err
	}
	return blend(src, out, t)
}

func emboss(src *vision.Bitmap, t float64) (*vision.Bitmap, error) {
	gray, err := vision.BGRToGray(src)
	if err != nil {
		return nil, err
	}
	k, err := vision.NewKernel(3, 3,
		-2*t, -t, 0,
		-t, 1, t,
		0, t, 2*t,
	)
	if err != nil {
		return nil, err
	}
	relief, err := vision.Filter2D(gray, k)
	if err != nil {
		return nil, err
	}
	out, err := vision.GrayToBGR(relief)
	if err != nil {
		return nil, err
	}
	return blend(src, out, t)
}

func negative(src *vision.Bitmap, t float64) (*vision.Bitmap, error) {
	out, err := vision.BitwiseNot(src)
	if err != nil {
		return nil, err
	}
	return blend(src, out, t)
}
