package vision

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

var (
	// ErrEmptyImage 影像寬或高為零
	ErrEmptyImage = errors.New("vision: empty image")
	// ErrChannels 不支援的通道數
	ErrChannels = errors.New("vision: unsupported channel count")
	// ErrSizeMismatch 兩張影像尺寸或通道不一致
	ErrSizeMismatch = errors.New("vision: size mismatch")
	// ErrMalformed 像素緩衝區長度與尺寸不符
	ErrMalformed = errors.New("vision: malformed pixel buffer")
)

// Bitmap 8 位元交錯像素緩衝區
// 三通道影像以 BGR 順序儲存，與 OpenCV 一致
type Bitmap struct {
	Width    int
	Height   int
	Channels int
	Pix      []uint8
}

// NewBitmap 建立指定尺寸的空白影像
func NewBitmap(width, height, channels int) (*Bitmap, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrEmptyImage
	}
	if channels != 1 && channels != 3 {
		return nil, fmt.Errorf("%w: %d", ErrChannels, channels)
	}
	return &Bitmap{
		Width:    width,
		Height:   height,
		Channels: channels,
		Pix:      make([]uint8, width*height*channels),
	}, nil
}

// Validate 檢查影像是否可被處理
func (b *Bitmap) Validate() error {
	if b == nil || b.Width <= 0 || b.Height <= 0 {
		return ErrEmptyImage
	}
	if b.Channels != 1 && b.Channels != 3 {
		return fmt.Errorf("%w: %d", ErrChannels, b.Channels)
	}
	if len(b.Pix) != b.Width*b.Height*b.Channels {
		return fmt.Errorf("%w: have %d bytes, want %d", ErrMalformed, len(b.Pix), b.Width*b.Height*b.Channels)
	}
	return nil
}

// At 取得 (x, y) 第 c 通道的值
func (b *Bitmap) At(x, y, c int) uint8 {
	return b.Pix[y*b.Width*b.Channels+x*b.Channels+c]
}

// Set 設定 (x, y) 第 c 通道的值
func (b *Bitmap) Set(x, y, c int, v uint8) {
	b.Pix[y*b.Width*b.Channels+x*b.Channels+c] = v
}

// Clone 深拷貝
func (b *Bitmap) Clone() *Bitmap {
	pix := make([]uint8, len(b.Pix))
	copy(pix, b.Pix)
	return &Bitmap{Width: b.Width, Height: b.Height, Channels: b.Channels, Pix: pix}
}

// SameShape 檢查兩張影像尺寸與通道是否相同
func (b *Bitmap) SameShape(o *Bitmap) bool {
	return b.Width == o.Width && b.Height == o.Height && b.Channels == o.Channels
}

// Equal 比較兩張影像是否逐位元組相同
func Equal(a, b *Bitmap) bool {
	if a == nil || b == nil {
		return a == b
	}
	if !a.SameShape(b) || len(a.Pix) != len(b.Pix) {
		return false
	}
	for i := range a.Pix {
		if a.Pix[i] != b.Pix[i] {
			return false
		}
	}
	return true
}

// Fill 以固定值填滿所有像素，values 依通道順序給定
func Fill(width, height int, values ...uint8) (*Bitmap, error) {
	dst, err := NewBitmap(width, height, len(values))
	if err != nil {
		return nil, err
	}
	for i := 0; i < len(dst.Pix); i += dst.Channels {
		copy(dst.Pix[i:i+dst.Channels], values)
	}
	return dst, nil
}

// FromImage 將標準庫影像轉為 BGR 三通道影像
// 灰階會複製到三個通道，alpha 會被捨棄（等同 IMREAD_COLOR）
func FromImage(img image.Image) (*Bitmap, error) {
	if img == nil {
		return nil, ErrEmptyImage
	}
	bounds := img.Bounds()
	dst, err := NewBitmap(bounds.Dx(), bounds.Dy(), 3)
	if err != nil {
		return nil, err
	}

	i := 0
	switch src := img.(type) {
	case *image.NRGBA:
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			off := src.PixOffset(bounds.Min.X, y)
			for x := 0; x < dst.Width; x++ {
				p := src.Pix[off+x*4 : off+x*4+3 : off+x*4+3]
				dst.Pix[i], dst.Pix[i+1], dst.Pix[i+2] = p[2], p[1], p[0]
				i += 3
			}
		}
	case *image.Gray:
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			off := src.PixOffset(bounds.Min.X, y)
			for x := 0; x < dst.Width; x++ {
				v := src.Pix[off+x]
				dst.Pix[i], dst.Pix[i+1], dst.Pix[i+2] = v, v, v
				i += 3
			}
		}
	default:
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
				dst.Pix[i], dst.Pix[i+1], dst.Pix[i+2] = c.B, c.G, c.R
				i += 3
			}
		}
	}
	return dst, nil
}

// ToImage 轉回標準庫影像，三通道回傳 *image.RGBA，單通道回傳 *image.Gray
func (b *Bitmap) ToImage() (image.Image, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	rect := image.Rect(0, 0, b.Width, b.Height)
	if b.Channels == 1 {
		g := image.NewGray(rect)
		copy(g.Pix, b.Pix)
		return g, nil
	}
	out := image.NewRGBA(rect)
	for i, j := 0, 0; i < len(b.Pix); i, j = i+3, j+4 {
		out.Pix[j] = b.Pix[i+2]
		out.Pix[j+1] = b.Pix[i+1]
		out.Pix[j+2] = b.Pix[i]
		out.Pix[j+3] = 0xff
	}
	return out, nil
}

// Split 將多通道影像拆成單通道平面
func Split(src *Bitmap) ([]*Bitmap, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	planes := make([]*Bitmap, src.Channels)
	for c := range planes {
		planes[c] = &Bitmap{Width: src.Width, Height: src.Height, Channels: 1, Pix: make([]uint8, src.Width*src.Height)}
	}
	for i, p := 0, 0; i < len(src.Pix); i, p = i+src.Channels, p+1 {
		for c := 0; c < src.Channels; c++ {
			planes[c].Pix[p] = src.Pix[i+c]
		}
	}
	return planes, nil
}

// Merge 將單通道平面合併為多通道影像
func Merge(planes ...*Bitmap) (*Bitmap, error) {
	if len(planes) != 1 && len(planes) != 3 {
		return nil, fmt.Errorf("%w: %d planes", ErrChannels, len(planes))
	}
	first := planes[0]
	for _, p := range planes {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if p.Channels != 1 || p.Width != first.Width || p.Height != first.Height {
			return nil, ErrSizeMismatch
		}
	}
	dst, err := NewBitmap(first.Width, first.Height, len(planes))
	if err != nil {
		return nil, err
	}
	for p := 0; p < first.Width*first.Height; p++ {
		for c, plane := range planes {
			dst.Pix[p*len(planes)+c] = plane.Pix[p]
		}
	}
	return dst, nil
}
