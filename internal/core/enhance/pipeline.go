// Package enhance 影像增強管線
//
// 預設管線依序執行五個固定步驟：
//
//  1. 雙邊濾波降噪（直徑 9，σcolor 75，σspace 75）
//  2. 3x3 銳化卷積（中心 9，鄰居 -1）
//  3. BGR 轉 Lab 並拆成三個平面
//  4. 僅對 L 平面做 CLAHE（剪裁上限 2.0，8x8 分塊）
//  5. 合併回 Lab、轉回 BGR，再做 saturate(v*1.2 + 10)
//
// 步驟 3 到 5 的前半由 LocalContrast 負責，最後的線性調整由 Brightness 負責。
package enhance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"image-enhancer/internal/core/vision"
	"image-enhancer/internal/pkg/common"
)

// Transformer 影像轉換能力，管線本身與每個步驟都實作此介面
type Transformer interface {
	// Name 轉換名稱，用於日誌與快取鍵
	Name() string

	// Apply 套用轉換，不修改輸入
	Apply(ctx context.Context, src *vision.Bitmap) (*vision.Bitmap, error)
}

// Pipeline 依序執行多個步驟
type Pipeline struct {
	name    string
	stages  []Transformer
	latency time.Duration
	observe func(stage string, out *vision.Bitmap)
}

// Option 管線選項
type Option func(*Pipeline)

// WithSimulatedLatency 每次處理後額外等待 d，用於負載測試
func WithSimulatedLatency(d time.Duration) Option {
	return func(p *Pipeline) {
		p.latency = d
	}
}

// WithObserver 每個步驟完成後呼叫 fn，僅供測試檢查中間結果
func WithObserver(fn func(stage string, out *vision.Bitmap)) Option {
	return func(p *Pipeline) {
		p.observe = fn
	}
}

// New 建立自訂管線
func New(name string, stages []Transformer, opts ...Option) *Pipeline {
	p := &Pipeline{
		name:   name,
		stages: stages,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Default 建立預設的五步驟增強管線
func Default(opts ...Option) *Pipeline {
	return New("enhance-v1", []Transformer{
		NewDenoise(),
		NewSharpen(),
		NewLocalContrast(),
		NewBrightness(),
	}, opts...)
}

// Name 管線名稱
func (p *Pipeline) Name() string {
	return p.name
}

// Stages 步驟名稱列表
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}

// Apply 依序執行所有步驟，任何步驟失敗即中止
func (p *Pipeline) Apply(ctx context.Context, src *vision.Bitmap) (*vision.Bitmap, error) {
	if err := src.Validate(); err != nil {
		return nil, common.NewProcessingError("無效的輸入影像", err)
	}

	current := src
	for _, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()
		out, err := stage.Apply(ctx, current)
		if err != nil {
			common.LogImageProcessing("error",
				zap.String("pipeline", p.name),
				zap.String("stage", stage.Name()),
				zap.Error(err),
			)
			return nil, asProcessingError(stage.Name(), err)
		}
		common.LogImageProcessing("debug",
			zap.String("pipeline", p.name),
			zap.String("stage", stage.Name()),
			zap.Int("width", out.Width),
			zap.Int("height", out.Height),
			zap.Duration("耗時", time.Since(start)),
		)
		if p.observe != nil {
			p.observe(stage.Name(), out)
		}
		current = out
	}

	if p.latency > 0 {
		timer := time.NewTimer(p.latency)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return current, nil
}

// asProcessingError 保留已分類的錯誤與 context 錯誤，其餘包裝為處理錯誤
func asProcessingError(stage string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var ce *common.CustomError
	if errors.As(err, &ce) {
		return err
	}
	return common.NewProcessingError(fmt.Sprintf("步驟 %s 失敗", stage), err)
}
