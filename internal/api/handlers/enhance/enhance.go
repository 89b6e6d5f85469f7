package enhance

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"image-enhancer/internal/core/cache"
	coreEnhance "image-enhancer/internal/core/enhance"
	"image-enhancer/internal/core/vision"
	"image-enhancer/internal/pkg/common"
)

// FormField 上傳圖片的表單欄位
const FormField = "image"

// Codec 圖片編解碼能力
type Codec interface {
	Decode(data []byte) (*vision.Bitmap, string, error)
	EncodeJPEG(b *vision.Bitmap) ([]byte, error)
}

// Handler 上傳、轉換、回傳 JPEG 的共用流程
type Handler struct {
	pipeline coreEnhance.Transformer
	codec    Codec
	cache    cache.Store
	debug    bool
}

// NewHandler 創建處理器，store 可為 nil
func NewHandler(pipeline coreEnhance.Transformer, codec Codec, store cache.Store, debug bool) *Handler {
	return &Handler{
		pipeline: pipeline,
		codec:    codec,
		cache:    store,
		debug:    debug,
	}
}

// HandleProcess 處理 /process，套用預設增強管線
func (h *Handler) HandleProcess(c *gin.Context) {
	h.Serve(c, h.pipeline)
}

// Serve 讀取上傳圖片並以 t 轉換，成功時回傳 image/jpeg
func (h *Handler) Serve(c *gin.Context, t coreEnhance.Transformer) {
	start := time.Now()
	reqID := requestID(c)

	data, filename, err := readUpload(c)
	if err != nil {
		common.LogWarn("讀取上傳圖片失敗",
			zap.String("request_id", reqID),
			zap.Error(err),
		)
		common.WriteError(c, err, h.debug)
		return
	}

	var key string
	if h.cache != nil {
		key = cache.Key(t.Name(), data)
		if cached, ok := h.cache.Get(c.Request.Context(), key); ok {
			common.LogImageProcessing("info",
				zap.String("request_id", reqID),
				zap.String("transform", t.Name()),
				zap.Bool("cache_hit", true),
			)
			c.Header("X-Cache", "HIT")
			c.Data(http.StatusOK, "image/jpeg", cached)
			return
		}
	}

	out, err := h.run(c, t, data)
	if err != nil {
		common.LogError("圖片處理失敗",
			zap.String("request_id", reqID),
			zap.String("transform", t.Name()),
			zap.String("filename", filename),
			zap.Int("upload_bytes", len(data)),
			zap.Error(err),
		)
		common.WriteError(c, err, h.debug)
		return
	}

	if h.cache != nil {
		if err := h.cache.Set(c.Request.Context(), key, out); err != nil {
			common.LogWarn("寫入快取失敗",
				zap.String("request_id", reqID),
				zap.Error(err),
			)
		}
		c.Header("X-Cache", "MISS")
	}

	common.LogImageProcessing("info",
		zap.String("request_id", reqID),
		zap.String("transform", t.Name()),
		zap.String("filename", filename),
		zap.Int("upload_bytes", len(data)),
		zap.Int("output_bytes", len(out)),
		zap.Duration("耗時", time.Since(start)),
	)
	c.Data(http.StatusOK, "image/jpeg", out)
}

// run 解碼、轉換、編碼
func (h *Handler) run(c *gin.Context, t coreEnhance.Transformer, data []byte) ([]byte, error) {
	bitmap, format, err := h.codec.Decode(data)
	if err != nil {
		return nil, err
	}
	common.LogDebug("圖片已解碼",
		zap.String("format", format),
		zap.Int("width", bitmap.Width),
		zap.Int("height", bitmap.Height),
	)

	out, err := t.Apply(c.Request.Context(), bitmap)
	if err != nil {
		return nil, err
	}
	return h.codec.EncodeJPEG(out)
}

// readUpload 讀取 multipart 欄位 image 的內容
func readUpload(c *gin.Context) ([]byte, string, error) {
	header, err := c.FormFile(FormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "", common.NewError(common.ErrCodeRequestTooLarge,
				common.ErrRequestTooLarge.Message, common.ErrRequestTooLarge.Status, err)
		}
		// 缺少欄位或不是 multipart 請求
		return nil, "", common.NewBadInput(common.ErrMissingImage.Message, err)
	}

	file, err := header.Open()
	if err != nil {
		return nil, header.Filename, common.NewBadInput("無法讀取上傳的圖片", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, header.Filename, common.NewBadInput("無法讀取上傳的圖片", err)
	}
	return data, header.Filename, nil
}

// requestID 取得請求 ID，缺少時產生一個並回寫到標頭
func requestID(c *gin.Context) string {
	if id := requestid.Get(c); id != "" {
		return id
	}
	id := common.GenerateUUID()
	c.Header("X-Request-ID", id)
	return id
}
