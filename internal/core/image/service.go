package image

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	_ "image/gif" // 支援 GIF
	_ "image/png" // 支援 PNG

	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"  // 支援 BMP
	_ "golang.org/x/image/tiff" // 支援 TIFF
	_ "golang.org/x/image/webp" // 支援 WebP

	"image-enhancer/internal/core/vision"
	"image-enhancer/internal/pkg/common"
)

// DefaultJPEGQuality 輸出 JPEG 品質
const DefaultJPEGQuality = 95

// Service 圖片編解碼服務
type Service struct {
	maxSizeBytes int64
	maxDimension int
	maxPixels    int64
	quality      int
}

// Option 服務選項
type Option func(*Service)

// WithMaxDimension 解碼後將長邊縮至 n 像素以內，0 表示不縮放
func WithMaxDimension(n int) Option {
	return func(s *Service) {
		s.maxDimension = n
	}
}

// WithMaxPixels 解碼前依標頭拒絕像素數超過 n 的圖片，0 表示不限制
func WithMaxPixels(n int64) Option {
	return func(s *Service) {
		s.maxPixels = n
	}
}

// WithQuality 設定 JPEG 輸出品質
func WithQuality(q int) Option {
	return func(s *Service) {
		if q >= 1 && q <= 100 {
			s.quality = q
		}
	}
}

// NewService 創建新的圖片處理服務
func NewService(maxSizeBytes int64, opts ...Option) *Service {
	s := &Service{
		maxSizeBytes: maxSizeBytes,
		quality:      DefaultJPEGQuality,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Decode 解碼上傳的圖片為 BGR 影像，回傳影像與格式名稱
func (s *Service) Decode(data []byte) (*vision.Bitmap, string, error) {
	if len(data) == 0 {
		return nil, "", common.NewBadInput("上傳的圖片為空", nil)
	}

	// 檢查文件大小
	if s.maxSizeBytes > 0 && int64(len(data)) > s.maxSizeBytes {
		return nil, "", common.NewError(common.ErrCodeRequestTooLarge,
			fmt.Sprintf("圖片大小超出限制 %d bytes", s.maxSizeBytes),
			common.ErrInvalidImageSize.Status, nil)
	}

	// 先讀取標頭，避免為零尺寸圖片配置記憶體
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", common.NewBadInput(common.ErrInvalidImageFormat.Message, err)
	}
	if !isSupportedFormat(format) {
		return nil, format, common.NewBadInput(fmt.Sprintf("不支持的圖片類型: %s", format), nil)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, format, common.NewBadInput(common.ErrEmptyImage.Message, nil)
	}
	if s.maxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > s.maxPixels {
		return nil, format, common.NewError(common.ErrCodeRequestTooLarge,
			fmt.Sprintf("圖片尺寸 %dx%d 超出像素上限 %d", cfg.Width, cfg.Height, s.maxPixels),
			common.ErrInvalidImageSize.Status, nil)
	}

	// 解碼圖片
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, format, common.NewBadInput(common.ErrInvalidImageFormat.Message, err)
	}

	if s.maxDimension > 0 {
		img = s.fit(img)
	}

	bitmap, err := vision.FromImage(img)
	if err != nil {
		return nil, format, common.NewBadInput(common.ErrEmptyImage.Message, err)
	}
	return bitmap, format, nil
}

// fit 將長邊縮至 maxDimension 以內，保持比例
func (s *Service) fit(img image.Image) image.Image {
	b := img.Bounds()
	if b.Dx() <= s.maxDimension && b.Dy() <= s.maxDimension {
		return img
	}
	return resize.Thumbnail(uint(s.maxDimension), uint(s.maxDimension), img, resize.Lanczos3)
}

// EncodeJPEG 將影像編碼為 JPEG
func (s *Service) EncodeJPEG(b *vision.Bitmap) ([]byte, error) {
	img, err := b.ToImage()
	if err != nil {
		return nil, common.NewProcessingError("無法編碼輸出圖片", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: s.quality}); err != nil {
		return nil, common.NewProcessingError("無法編碼輸出圖片", err)
	}
	return buf.Bytes(), nil
}

// Quality 目前的 JPEG 品質
func (s *Service) Quality() int {
	return s.quality
}

// isSupportedFormat 檢查圖片格式是否支援
func isSupportedFormat(format string) bool {
	supportedFormats := map[string]bool{
		"jpeg": true,
		"png":  true,
		"gif":  true,
		"webp": true,
		"bmp":  true,
		"tiff": true,
	}
	return supportedFormats[format]
}
