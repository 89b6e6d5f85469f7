package vision

import (
	"fmt"
	"math"
)

const histBins = 256

// CLAHE 對比受限自適應直方圖等化，只接受單通道影像
//
// 分塊、剪裁上限換算與雙線性 LUT 插值皆依照 OpenCV 的實作：
// 影像寬高無法被分塊數整除時，以 BORDER_REFLECT_101 向右下補邊後再計算直方圖。
// 剪裁後剩餘的像素數會平均分散到整個灰階範圍，使平坦區塊維持近似恆等映射。
func CLAHE(src *Bitmap, clipLimit float64, tilesX, tilesY int) (*Bitmap, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	if src.Channels != 1 {
		return nil, fmt.Errorf("%w: CLAHE needs a single plane, have %d", ErrChannels, src.Channels)
	}
	if tilesX <= 0 || tilesY <= 0 {
		return nil, fmt.Errorf("vision: invalid tile grid %dx%d", tilesX, tilesY)
	}

	w, h := src.Width, src.Height
	extW, extH := w, h
	if w%tilesX != 0 || h%tilesY != 0 {
		extW = w + tilesX - w%tilesX
		extH = h + tilesY - h%tilesY
	}
	tileW, tileH := extW/tilesX, extH/tilesY
	tileArea := tileW * tileH

	clip := 0
	if clipLimit > 0 {
		clip = int(clipLimit * float64(tileArea) / histBins)
		if clip < 1 {
			clip = 1
		}
	}
	lutScale := float64(histBins-1) / float64(tileArea)

	luts := make([][histBins]uint8, tilesX*tilesY)
	var hist [histBins]int
	for ty := 0; ty < tilesY; ty++ {
		for tx := 0; tx < tilesX; tx++ {
			for i := range hist {
				hist[i] = 0
			}
			for y := ty * tileH; y < (ty+1)*tileH; y++ {
				row := reflect101(y, h) * w
				for x := tx * tileW; x < (tx+1)*tileW; x++ {
					hist[src.Pix[row+reflect101(x, w)]]++
				}
			}

			if clip > 0 {
				clipHistogram(&hist, clip)
			}

			lut := &luts[ty*tilesX+tx]
			sum := 0
			for i := range hist {
				sum += hist[i]
				lut[i] = saturate(float64(sum) * lutScale)
			}
		}
	}

	dst := &Bitmap{Width: w, Height: h, Channels: 1, Pix: make([]uint8, w*h)}
	invTileW := 1 / float64(tileW)
	invTileH := 1 / float64(tileH)

	// 每一欄的左右分塊索引與權重只需計算一次
	tx1 := make([]int, w)
	tx2 := make([]int, w)
	xa := make([]float64, w)
	for x := 0; x < w; x++ {
		txf := float64(x)*invTileW - 0.5
		t1 := int(math.Floor(txf))
		t2 := t1 + 1
		xa[x] = txf - float64(t1)
		if t1 < 0 {
			t1 = 0
		}
		if t2 >= tilesX {
			t2 = tilesX - 1
		}
		tx1[x], tx2[x] = t1, t2
	}

	for y := 0; y < h; y++ {
		tyf := float64(y)*invTileH - 0.5
		ty1 := int(math.Floor(tyf))
		ty2 := ty1 + 1
		ya := tyf - float64(ty1)
		if ty1 < 0 {
			ty1 = 0
		}
		if ty2 >= tilesY {
			ty2 = tilesY - 1
		}
		top := luts[ty1*tilesX : ty1*tilesX+tilesX]
		bottom := luts[ty2*tilesX : ty2*tilesX+tilesX]

		for x := 0; x < w; x++ {
			v := src.Pix[y*w+x]
			a := xa[x]
			upper := float64(top[tx1[x]][v])*(1-a) + float64(top[tx2[x]][v])*a
			lower := float64(bottom[tx1[x]][v])*(1-a) + float64(bottom[tx2[x]][v])*a
			dst.Pix[y*w+x] = saturate(upper*(1-ya) + lower*ya)
		}
	}
	return dst, nil
}

// clipHistogram 剪裁直方圖並重新分配超出的計數。
// 餘數以等間距分散到全部 bin，平坦區塊的 LUT 因此近似恆等；
// OpenCV 從 bin 0 起逐一加一，平坦區塊會被推亮。
func clipHistogram(hist *[histBins]int, clip int) {
	clipped := 0
	for i := range hist {
		if hist[i] > clip {
			clipped += hist[i] - clip
			hist[i] = clip
		}
	}

	batch := clipped / histBins
	residual := clipped - batch*histBins
	for i := range hist {
		hist[i] += batch
	}
	if residual == 0 {
		return
	}
	for i := range hist {
		if (i+1)*residual/histBins > i*residual/histBins {
			hist[i]++
		}
	}
}
