package vision

import "math"

// Canny 邊緣偵測：3x3 Sobel、L1 梯度強度、非極大值抑制與雙門檻連通
// 輸出為單通道，邊緣像素 255，其他為 0
func Canny(src *Bitmap, low, high float64) (*Bitmap, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	if src.Channels != 1 {
		return nil, ErrChannels
	}
	if low > high {
		low, high = high, low
	}

	w, h := src.Width, src.Height
	dx := make([]int, w*h)
	dy := make([]int, w*h)
	mag := make([]int, w*h)

	px := func(x, y int) int {
		return int(src.Pix[replicate(y, h)*w+replicate(x, w)])
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			gx := -px(x-1, y-1) - 2*px(x-1, y) - px(x-1, y+1) +
				px(x+1, y-1) + 2*px(x+1, y) + px(x+1, y+1)
			gy := -px(x-1, y-1) - 2*px(x, y-1) - px(x+1, y-1) +
				px(x-1, y+1) + 2*px(x, y+1) + px(x+1, y+1)
			i := y*w + x
			dx[i], dy[i] = gx, gy
			mag[i] = absInt(gx) + absInt(gy)
		}
	}

	magAt := func(x, y int) int {
		if x < 0 || y < 0 || x >= w || y >= h {
			return 0
		}
		return mag[y*w+x]
	}

	const (
		weak = iota + 1
		strong
	)
	lowT := int(math.Floor(low))
	highT := int(math.Floor(high))
	tan22 := math.Tan(math.Pi / 8)

	state := make([]uint8, w*h)
	stack := make([]int, 0, w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			m := mag[i]
			if m <= lowT {
				continue
			}
			ax := math.Abs(float64(dx[i]))
			ay := math.Abs(float64(dy[i]))
			tg22x := ax * tan22
			tg67x := tg22x + 2*ax

			var keep bool
			switch {
			case ay < tg22x:
				keep = m > magAt(x-1, y) && m >= magAt(x+1, y)
			case ay > tg67x:
				keep = m > magAt(x, y-1) && m >= magAt(x, y+1)
			default:
				s := 1
				if (dx[i] ^ dy[i]) < 0 {
					s = -1
				}
				keep = m > magAt(x-s, y-1) && m > magAt(x+s, y+1)
			}
			if !keep {
				continue
			}
			if m > highT {
				state[i] = strong
				stack = append(stack, i)
			} else {
				state[i] = weak
			}
		}
	}

	dst := &Bitmap{Width: w, Height: h, Channels: 1, Pix: make([]uint8, w*h)}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		dst.Pix[i] = 255
		x, y := i%w, i/w
		for ny := y - 1; ny <= y+1; ny++ {
			for nx := x - 1; nx <= x+1; nx++ {
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				j := ny*w + nx
				if state[j] == weak {
					state[j] = strong
					stack = append(stack, j)
				}
			}
		}
	}
	return dst, nil
}
