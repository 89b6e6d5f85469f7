// Package filter 具名藝術濾鏡
package filter

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"image-enhancer/internal/core/vision"
	"image-enhancer/internal/pkg/common"
)

// Func 濾鏡實作，intensity 已驗證在 [0,1]
type Func func(src *vision.Bitmap, intensity float64) (*vision.Bitmap, error)

// DefaultIntensity 未指定強度時使用
const DefaultIntensity = 1.0

// Filter 綁定強度後的濾鏡，可直接當作管線使用
type Filter struct {
	name      string
	intensity float64
	fn        Func
}

// Name 濾鏡名稱與完整精度的強度，例如 sepia@0.5，同時作為快取鍵
func (f *Filter) Name() string {
	return f.name + "@" + strconv.FormatFloat(f.intensity, 'g', -1, 64)
}

// Intensity 強度
func (f *Filter) Intensity() float64 {
	return f.intensity
}

// Apply 套用濾鏡
func (f *Filter) Apply(ctx context.Context, src *vision.Bitmap) (*vision.Bitmap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := src.Validate(); err != nil {
		return nil, common.NewProcessingError("無效的輸入影像", err)
	}
	out, err := f.fn(src, f.intensity)
	if err != nil {
		return nil, common.NewProcessingError(fmt.Sprintf("濾鏡 %s 失敗", f.name), err)
	}
	return out, nil
}

// Names 所有濾鏡名稱，依目錄順序
func Names() []string {
	names := make([]string, len(catalogue))
	for i, e := range catalogue {
		names[i] = e.name
	}
	return names
}

// Has 是否有此名稱的濾鏡
func Has(name string) bool {
	_, ok := find(name)
	return ok
}

// Lookup 依名稱取得濾鏡並綁定強度，名稱錯誤優先於強度錯誤
func Lookup(name string, intensity float64) (*Filter, error) {
	e, ok := find(name)
	if !ok {
		return nil, unknownFilter(name)
	}
	if err := ValidateIntensity(intensity); err != nil {
		return nil, err
	}
	return &Filter{name: e.name, intensity: intensity, fn: e.fn}, nil
}

func find(name string) (entry, bool) {
	for _, e := range catalogue {
		if e.name == name {
			return e, true
		}
	}
	return entry{}, false
}

func unknownFilter(name string) error {
	return common.NewError(common.ErrCodeNotFound,
		fmt.Sprintf("%s: %s", common.ErrUnknownFilter.Message, name),
		common.ErrUnknownFilter.Status, nil)
}

// ValidateIntensity 強度必須是 [0,1] 內的有限數值
func ValidateIntensity(intensity float64) error {
	if math.IsNaN(intensity) || intensity < 0 || intensity > 1 {
		return common.NewBadInput(
			fmt.Sprintf("%s: %v", common.ErrInvalidIntensity.Message, intensity), nil)
	}
	return nil
}

// ParseIntensity 解析字串強度，空字串使用預設值
func ParseIntensity(raw string) (float64, error) {
	if raw == "" {
		return DefaultIntensity, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, common.NewBadInput(common.ErrInvalidIntensity.Message, err)
	}
	if err := ValidateIntensity(v); err != nil {
		return 0, err
	}
	return v, nil
}
