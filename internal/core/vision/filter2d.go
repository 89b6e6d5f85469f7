package vision

import (
	"errors"
	"fmt"
	"math"
)

// ErrKernel 卷積核尺寸無效
var ErrKernel = errors.New("vision: invalid kernel")

// Kernel 卷積核，以列優先順序儲存，錨點位於中心
type Kernel struct {
	Width  int
	Height int
	Data   []float64
}

// NewKernel 建立卷積核，寬高必須為正奇數
func NewKernel(width, height int, data ...float64) (Kernel, error) {
	if width <= 0 || height <= 0 || width%2 == 0 || height%2 == 0 {
		return Kernel{}, fmt.Errorf("%w: %dx%d", ErrKernel, width, height)
	}
	if len(data) != width*height {
		return Kernel{}, fmt.Errorf("%w: want %d coefficients, have %d", ErrKernel, width*height, len(data))
	}
	return Kernel{Width: width, Height: height, Data: data}, nil
}

// SharpenKernel 中心 9、鄰居 -1 的 3x3 銳化核
func SharpenKernel() Kernel {
	return Kernel{Width: 3, Height: 3, Data: []float64{
		-1, -1, -1,
		-1, 9, -1,
		-1, -1, -1,
	}}
}

// Filter2D 對每個通道套用相同卷積核（相關運算，同 cv::filter2D），
// 結果飽和截斷至 [0, 255]，邊界採 BORDER_REFLECT_101
func Filter2D(src *Bitmap, k Kernel) (*Bitmap, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	if k.Width <= 0 || k.Height <= 0 || k.Width%2 == 0 || k.Height%2 == 0 || len(k.Data) != k.Width*k.Height {
		return nil, ErrKernel
	}

	w, h, cn := src.Width, src.Height, src.Channels
	ax, ay := k.Width/2, k.Height/2
	dst := &Bitmap{Width: w, Height: h, Channels: cn, Pix: make([]uint8, len(src.Pix))}

	// 預先計算越界映射，避免內層迴圈重複呼叫
	xmap := make([]int, w+2*ax)
	for i := range xmap {
		xmap[i] = reflect101(i-ax, w)
	}
	ymap := make([]int, h+2*ay)
	for i := range ymap {
		ymap[i] = reflect101(i-ay, h)
	}

	acc := make([]float64, cn)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			for c := range acc {
				acc[c] = 0
			}
			for ky := 0; ky < k.Height; ky++ {
				row := ymap[y+ky] * w
				for kx := 0; kx < k.Width; kx++ {
					coef := k.Data[ky*k.Width+kx]
					if coef == 0 {
						continue
					}
					off := (row + xmap[x+kx]) * cn
					for c := 0; c < cn; c++ {
						acc[c] += coef * float64(src.Pix[off+c])
					}
				}
			}
			out := (y*w + x) * cn
			for c := 0; c < cn; c++ {
				dst.Pix[out+c] = saturate(acc[c])
			}
		}
	}
	return dst, nil
}

// GaussianKernel1D 產生正規化的一維高斯核，sigma <= 0 時依尺寸推算（同 getGaussianKernel）
func GaussianKernel1D(size int, sigma float64) ([]float64, error) {
	if size <= 0 || size%2 == 0 {
		return nil, fmt.Errorf("%w: gaussian size %d", ErrKernel, size)
	}
	if sigma <= 0 {
		sigma = 0.3*(float64(size-1)*0.5-1) + 0.8
	}
	k := make([]float64, size)
	scale := -0.5 / (sigma * sigma)
	var sum float64
	for i := range k {
		x := float64(i - (size-1)/2)
		k[i] = math.Exp(scale * x * x)
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k, nil
}

// GaussianBlur 可分離高斯模糊，先水平後垂直，中間結果保留浮點精度
func GaussianBlur(src *Bitmap, size int, sigma float64) (*Bitmap, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	k, err := GaussianKernel1D(size, sigma)
	if err != nil {
		return nil, err
	}

	w, h, cn := src.Width, src.Height, src.Channels
	r := size / 2
	tmp := make([]float64, len(src.Pix))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			for c := 0; c < cn; c++ {
				var s float64
				for i, coef := range k {
					sx := reflect101(x+i-r, w)
					s += coef * float64(src.Pix[(y*w+sx)*cn+c])
				}
				tmp[(y*w+x)*cn+c] = s
			}
		}
	}

	dst := &Bitmap{Width: w, Height: h, Channels: cn, Pix: make([]uint8, len(src.Pix))}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			for c := 0; c < cn; c++ {
				var s float64
				for i, coef := range k {
					sy := reflect101(y+i-r, h)
					s += coef * tmp[(sy*w+x)*cn+c]
				}
				dst.Pix[(y*w+x)*cn+c] = saturate(s)
			}
		}
	}
	return dst, nil
}
