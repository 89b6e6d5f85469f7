package vision

import "math"

// ConvertScaleAbs 逐像素計算 saturate(|v*alpha + beta|)，同 cv::convertScaleAbs
func ConvertScaleAbs(src *Bitmap, alpha, beta float64) (*Bitmap, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	var lut [256]uint8
	for i := range lut {
		lut[i] = saturate(math.Abs(float64(i)*alpha + beta))
	}
	dst := &Bitmap{Width: src.Width, Height: src.Height, Channels: src.Channels, Pix: make([]uint8, len(src.Pix))}
	for i, v := range src.Pix {
		dst.Pix[i] = lut[v]
	}
	return dst, nil
}

// AddWeighted 計算 saturate(a*alpha + b*beta + gamma)
func AddWeighted(a *Bitmap, alpha float64, b *Bitmap, beta, gamma float64) (*Bitmap, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if !a.SameShape(b) {
		return nil, ErrSizeMismatch
	}
	dst := &Bitmap{Width: a.Width, Height: a.Height, Channels: a.Channels, Pix: make([]uint8, len(a.Pix))}
	for i := range a.Pix {
		dst.Pix[i] = saturate(float64(a.Pix[i])*alpha + float64(b.Pix[i])*beta + gamma)
	}
	return dst, nil
}

// BitwiseNot 逐位元反相
func BitwiseNot(src *Bitmap) (*Bitmap, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	dst := &Bitmap{Width: src.Width, Height: src.Height, Channels: src.Channels, Pix: make([]uint8, len(src.Pix))}
	for i, v := range src.Pix {
		dst.Pix[i] = ^v
	}
	return dst, nil
}

// Divide 計算 saturate(a*scale/b)，除數為零時結果為零，同 cv::divide
func Divide(a, b *Bitmap, scale float64) (*Bitmap, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if !a.SameShape(b) {
		return nil, ErrSizeMismatch
	}
	dst := &Bitmap{Width: a.Width, Height: a.Height, Channels: a.Channels, Pix: make([]uint8, len(a.Pix))}
	for i := range a.Pix {
		if b.Pix[i] == 0 {
			continue
		}
		dst.Pix[i] = saturate(float64(a.Pix[i]) * scale / float64(b.Pix[i]))
	}
	return dst, nil
}

// Transform 以 3x3 矩陣轉換三通道像素（同 cv::transform），
// m 的列與欄皆依 BGR 順序
func Transform(src *Bitmap, m [3][3]float64) (*Bitmap, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	if src.Channels != 3 {
		return nil, ErrChannels
	}
	dst := &Bitmap{Width: src.Width, Height: src.Height, Channels: 3, Pix: make([]uint8, len(src.Pix))}
	for i := 0; i < len(src.Pix); i += 3 {
		b := float64(src.Pix[i])
		g := float64(src.Pix[i+1])
		r := float64(src.Pix[i+2])
		for c := 0; c < 3; c++ {
			dst.Pix[i+c] = saturate(m[c][0]*b + m[c][1]*g + m[c][2]*r)
		}
	}
	return dst, nil
}
