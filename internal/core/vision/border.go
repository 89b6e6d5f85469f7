package vision

import "math"

// reflect101 以 gfedcb|abcdefgh|gfedcba 方式映射越界座標（OpenCV BORDER_REFLECT_101）
func reflect101(p, n int) int {
	if n == 1 {
		return 0
	}
	for p < 0 || p >= n {
		if p < 0 {
			p = -p
		} else {
			p = 2*n - 2 - p
		}
	}
	return p
}

// replicate 以 aaaaaa|abcdefgh|hhhhhhh 方式映射越界座標
func replicate(p, n int) int {
	if p < 0 {
		return 0
	}
	if p >= n {
		return n - 1
	}
	return p
}

// saturate 四捨五入（偶數捨入，同 cvRound）並截斷至 [0, 255]
func saturate(v float64) uint8 {
	r := math.RoundToEven(v)
	if r <= 0 || math.IsNaN(r) {
		return 0
	}
	if r >= 255 {
		return 255
	}
	return uint8(r)
}
