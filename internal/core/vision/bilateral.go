package vision

import "math"

// BilateralFilter 雙邊濾波
// 權重表與 OpenCV bilateralFilter 相同：空間支撐為半徑 d/2 的圓，
// 顏色距離為各通道絕對差之和，邊界採 BORDER_REFLECT_101
func BilateralFilter(src *Bitmap, diameter int, sigmaColor, sigmaSpace float64) (*Bitmap, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	if sigmaColor <= 0 {
		sigmaColor = 1
	}
	if sigmaSpace <= 0 {
		sigmaSpace = 1
	}

	var radius int
	if diameter <= 0 {
		radius = int(math.Round(sigmaSpace * 1.5))
	} else {
		radius = diameter / 2
	}
	if radius < 1 {
		radius = 1
	}

	colorCoeff := -0.5 / (sigmaColor * sigmaColor)
	spaceCoeff := -0.5 / (sigmaSpace * sigmaSpace)

	cn := src.Channels
	colorWeight := make([]float64, cn*256)
	for i := range colorWeight {
		colorWeight[i] = math.Exp(float64(i*i) * colorCoeff)
	}

	type tap struct {
		dx, dy int
		w      float64
	}
	taps := make([]tap, 0, (2*radius+1)*(2*radius+1))
	for i := -radius; i <= radius; i++ {
		for j := -radius; j <= radius; j++ {
			r := math.Sqrt(float64(i*i + j*j))
			if r > float64(radius) {
				continue
			}
			taps = append(taps, tap{dx: j, dy: i, w: math.Exp(r * r * spaceCoeff)})
		}
	}

	dst := &Bitmap{Width: src.Width, Height: src.Height, Channels: cn, Pix: make([]uint8, len(src.Pix))}
	w, h := src.Width, src.Height

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			center := (y*w + x) * cn
			if cn == 1 {
				v0 := int(src.Pix[center])
				var sum, wsum float64
				for _, t := range taps {
					sy := reflect101(y+t.dy, h)
					sx := reflect101(x+t.dx, w)
					v := int(src.Pix[sy*w+sx])
					d := v - v0
					if d < 0 {
						d = -d
					}
					wt := t.w * colorWeight[d]
					sum += float64(v) * wt
					wsum += wt
				}
				dst.Pix[center] = saturate(sum / wsum)
				continue
			}

			b0 := int(src.Pix[center])
			g0 := int(src.Pix[center+1])
			r0 := int(src.Pix[center+2])
			var sumB, sumG, sumR, wsum float64
			for _, t := range taps {
				sy := reflect101(y+t.dy, h)
				sx := reflect101(x+t.dx, w)
				off := (sy*w + sx) * 3
				b := int(src.Pix[off])
				g := int(src.Pix[off+1])
				r := int(src.Pix[off+2])
				wt := t.w * colorWeight[absInt(b-b0)+absInt(g-g0)+absInt(r-r0)]
				sumB += float64(b) * wt
				sumG += float64(g) * wt
				sumR += float64(r) * wt
				wsum += wt
			}
			wsum = 1 / wsum
			dst.Pix[center] = saturate(sumB * wsum)
			dst.Pix[center+1] = saturate(sumG * wsum)
			dst.Pix[center+2] = saturate(sumR * wsum)
		}
	}
	return dst, nil
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
