package vision

import "math"

// D65 白點與 sRGB 轉換矩陣，數值與 OpenCV 相同
const (
	whiteX = 0.950456
	whiteZ = 1.088754

	labThreshold = 0.008856
	labKappa     = 903.3
	labSlope     = 7.787
	labOffset    = 16.0 / 116.0
)

var (
	rgbToXYZ = [3][3]float64{
		{0.412453, 0.357580, 0.180423},
		{0.212671, 0.715160, 0.072169},
		{0.019334, 0.119193, 0.950227},
	}
	xyzToRGB = [3][3]float64{
		{3.240479, -1.53715, -0.498535},
		{-0.969256, 1.875991, 0.041556},
		{0.055648, -0.204043, 1.057311},
	}

	// srgbLinear 8 位元 sRGB 值對應的線性強度
	srgbLinear [256]float64
)

func init() {
	for i := range srgbLinear {
		srgbLinear[i] = gammaExpand(float64(i) / 255)
	}
}

func gammaExpand(v float64) float64 {
	if v <= 0.04045 {
		return v / 12.92
	}
	return math.Pow((v+0.055)/1.055, 2.4)
}

func gammaCompress(v float64) float64 {
	if v <= 0.0031308 {
		return 12.92 * v
	}
	return 1.055*math.Pow(v, 1/2.4) - 0.055
}

func labF(t float64) float64 {
	if t > labThreshold {
		return math.Cbrt(t)
	}
	return labSlope*t + labOffset
}

// BGRToLab 轉換為 8 位元 Lab（L*255/100, a+128, b+128），對應 COLOR_BGR2Lab
func BGRToLab(src *Bitmap) (*Bitmap, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	if src.Channels != 3 {
		return nil, ErrChannels
	}
	dst := &Bitmap{Width: src.Width, Height: src.Height, Channels: 3, Pix: make([]uint8, len(src.Pix))}
	for i := 0; i < len(src.Pix); i += 3 {
		b := srgbLinear[src.Pix[i]]
		g := srgbLinear[src.Pix[i+1]]
		r := srgbLinear[src.Pix[i+2]]

		x := (rgbToXYZ[0][0]*r + rgbToXYZ[0][1]*g + rgbToXYZ[0][2]*b) / whiteX
		y := rgbToXYZ[1][0]*r + rgbToXYZ[1][1]*g + rgbToXYZ[1][2]*b
		z := (rgbToXYZ[2][0]*r + rgbToXYZ[2][1]*g + rgbToXYZ[2][2]*b) / whiteZ

		fx, fy, fz := labF(x), labF(y), labF(z)
		var l float64
		if y > labThreshold {
			l = 116*fy - 16
		} else {
			l = labKappa * y
		}

		dst.Pix[i] = saturate(l * 255 / 100)
		dst.Pix[i+1] = saturate(500*(fx-fy) + 128)
		dst.Pix[i+2] = saturate(200*(fy-fz) + 128)
	}
	return dst, nil
}

// LabToBGR 將 8 位元 Lab 轉回 BGR，對應 COLOR_Lab2BGR
func LabToBGR(src *Bitmap) (*Bitmap, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	if src.Channels != 3 {
		return nil, ErrChannels
	}
	dst := &Bitmap{Width: src.Width, Height: src.Height, Channels: 3, Pix: make([]uint8, len(src.Pix))}
	lThreshold := labThreshold * labKappa
	fThreshold := math.Cbrt(labThreshold)

	for i := 0; i < len(src.Pix); i += 3 {
		l := float64(src.Pix[i]) * 100 / 255
		a := float64(src.Pix[i+1]) - 128
		bb := float64(src.Pix[i+2]) - 128

		var y, fy float64
		if l <= lThreshold {
			y = l / labKappa
			fy = labSlope*y + labOffset
		} else {
			fy = (l + 16) / 116
			y = fy * fy * fy
		}
		fx := a/500 + fy
		fz := fy - bb/200

		x := labFInv(fx, fThreshold) * whiteX
		z := labFInv(fz, fThreshold) * whiteZ

		r := xyzToRGB[0][0]*x + xyzToRGB[0][1]*y + xyzToRGB[0][2]*z
		g := xyzToRGB[1][0]*x + xyzToRGB[1][1]*y + xyzToRGB[1][2]*z
		b := xyzToRGB[2][0]*x + xyzToRGB[2][1]*y + xyzToRGB[2][2]*z

		dst.Pix[i] = saturate(gammaCompress(clamp01(b)) * 255)
		dst.Pix[i+1] = saturate(gammaCompress(clamp01(g)) * 255)
		dst.Pix[i+2] = saturate(gammaCompress(clamp01(r)) * 255)
	}
	return dst, nil
}

func labFInv(f, threshold float64) float64 {
	if f > threshold {
		return f * f * f
	}
	return (f - labOffset) / labSlope
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// BGRToGray 灰階轉換，使用 OpenCV 的 14 位元定點係數
func BGRToGray(src *Bitmap) (*Bitmap, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	if src.Channels == 1 {
		return src.Clone(), nil
	}
	const (
		shift = 14
		cb    = 1868
		cg    = 9617
		cr    = 4899
	)
	dst := &Bitmap{Width: src.Width, Height: src.Height, Channels: 1, Pix: make([]uint8, src.Width*src.Height)}
	for i, p := 0, 0; i < len(src.Pix); i, p = i+3, p+1 {
		v := int(src.Pix[i])*cb + int(src.Pix[i+1])*cg + int(src.Pix[i+2])*cr
		dst.Pix[p] = uint8((v + (1 << (shift - 1))) >> shift)
	}
	return dst, nil
}

// GrayToBGR 將單通道複製為三通道
func GrayToBGR(src *Bitmap) (*Bitmap, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	if src.Channels != 1 {
		return nil, ErrChannels
	}
	return Merge(src, src, src)
}
