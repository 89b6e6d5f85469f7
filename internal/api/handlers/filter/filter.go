package filter

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"image-enhancer/internal/api/handlers/enhance"
	coreFilter "image-enhancer/internal/core/filter"
	"image-enhancer/internal/pkg/common"
)

// ListResponse 濾鏡列表響應
type ListResponse struct {
	Filters          []string `json:"filters"`
	DefaultIntensity float64  `json:"default_intensity"`
}

// Handler 具名濾鏡處理器
type Handler struct {
	upload *enhance.Handler
	debug  bool
}

// NewHandler 創建濾鏡處理器，沿用 upload 的上傳與快取流程
func NewHandler(upload *enhance.Handler, debug bool) *Handler {
	return &Handler{upload: upload, debug: debug}
}

// HandleList 處理 GET /filters
func (h *Handler) HandleList(c *gin.Context) {
	c.JSON(http.StatusOK, ListResponse{
		Filters:          coreFilter.Names(),
		DefaultIntensity: coreFilter.DefaultIntensity,
	})
}

// HandleApply 處理 POST /filter/:name，強度可由表單或查詢參數 intensity 指定
func (h *Handler) HandleApply(c *gin.Context) {
	name := c.Param("name")
	if !coreFilter.Has(name) {
		common.LogWarn("不支援的濾鏡", zap.String("filter", name))
		common.WriteError(c, common.ErrUnknownFilter, h.debug)
		return
	}

	raw := c.PostForm("intensity")
	if raw == "" {
		raw = c.Query("intensity")
	}
	intensity, err := coreFilter.ParseIntensity(raw)
	if err != nil {
		common.LogWarn("無效的濾鏡強度",
			zap.String("filter", name),
			zap.String("intensity", raw),
		)
		common.WriteError(c, err, h.debug)
		return
	}

	f, err := coreFilter.Lookup(name, intensity)
	if err != nil {
		common.WriteError(c, err, h.debug)
		return
	}

	h.upload.Serve(c, f)
}
