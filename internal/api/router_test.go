package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"math/rand"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"image-enhancer/internal/api/handlers/filter"
	"image-enhancer/internal/core/cache"
	"image-enhancer/internal/core/enhance"
	imageService "image-enhancer/internal/core/image"
	"image-enhancer/internal/core/vision"
	"image-enhancer/internal/infrastructure/config"
	"image-enhancer/internal/pkg/common"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Version: "test", Env: "test"},
		Server: config.ServerConfig{
			Host:           "127.0.0.1",
			Port:           5000,
			RequestTimeout: 10 * time.Second,
		},
		Image:   config.ImageConfig{MaxSizeBytes: 10 << 20, JPEGQuality: 95},
		Enhance: config.EnhanceConfig{Backend: config.BackendNative},
	}
}

func newRouter(t *testing.T, cfg *config.Config, deps Dependencies) *gin.Engine {
	t.Helper()
	if deps.Pipeline == nil {
		deps.Pipeline = enhance.Default()
	}
	if deps.Codec == nil {
		deps.Codec = imageService.NewService(cfg.Image.MaxSizeBytes, imageService.WithQuality(cfg.Image.JPEGQuality))
	}
	r, err := SetupRouter(cfg, deps)
	require.NoError(t, err)
	return r
}

func grayJPEG(t *testing.T, w, h int, v uint8) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}))
	return buf.Bytes()
}

// upload 建立 multipart 請求，field 為空時不附檔案
func upload(t *testing.T, path, field string, data []byte, extra map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range extra {
		require.NoError(t, w.WriteField(k, v))
	}
	if field != "" {
		part, err := w.CreateFormFile(field, "photo.jpg")
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp common.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Code
}

type stubTransformer struct {
	name  string
	apply func(ctx context.Context, src *vision.Bitmap) (*vision.Bitmap, error)
}

func (s stubTransformer) Name() string { return s.name }

func (s stubTransformer) Apply(ctx context.Context, src *vision.Bitmap) (*vision.Bitmap, error) {
	return s.apply(ctx, src)
}

func TestProcessFlatGray(t *testing.T) {
	r := newRouter(t, testConfig(), Dependencies{})

	rec := serve(r, upload(t, "/process", "image", grayJPEG(t, 100, 100, 128), nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	img, format, err := image.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, image.Rect(0, 0, 100, 100), img.Bounds())

	for _, p := range []image.Point{{0, 0}, {50, 50}, {99, 99}, {10, 80}} {
		c := color.NRGBAModel.Convert(img.At(p.X, p.Y)).(color.NRGBA)
		assert.InDelta(t, 163, int(c.R), 5)
		assert.InDelta(t, 163, int(c.G), 5)
		assert.InDelta(t, 163, int(c.B), 5)
	}
}

func TestProcessBadInput(t *testing.T) {
	r := newRouter(t, testConfig(), Dependencies{})
	random := make([]byte, 2048)
	rand.New(rand.NewSource(7)).Read(random)

	tests := []struct {
		name string
		req  *http.Request
	}{
		{name: "missing field", req: upload(t, "/process", "", nil, map[string]string{"note": "no file"})},
		{name: "wrong field name", req: upload(t, "/process", "photo", grayJPEG(t, 8, 8, 10), nil)},
		{name: "random bytes", req: upload(t, "/process", "image", random, nil)},
		{name: "empty file", req: upload(t, "/process", "image", []byte{}, nil)},
		{name: "not multipart", req: func() *http.Request {
			req := httptest.NewRequest(http.MethodPost, "/process", bytes.NewReader([]byte(`{"image":"x"}`)))
			req.Header.Set("Content-Type", "application/json")
			return req
		}()},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(r, tc.req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, common.ErrCodeBadInput, errorCode(t, rec))
		})
	}
}

func TestProcessTooLarge(t *testing.T) {
	cfg := testConfig()
	codec := imageService.NewService(64)
	r := newRouter(t, cfg, Dependencies{Codec: codec})

	rec := serve(r, upload(t, "/process", "image", grayJPEG(t, 32, 32, 90), nil))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, common.ErrCodeRequestTooLarge, errorCode(t, rec))
}

func TestProcessStageFailure(t *testing.T) {
	failing := stubTransformer{name: "failing", apply: func(context.Context, *vision.Bitmap) (*vision.Bitmap, error) {
		return nil, errors.New("clahe exploded")
	}}
	r := newRouter(t, testConfig(), Dependencies{Pipeline: enhance.New("broken", []enhance.Transformer{failing})})

	rec := serve(r, upload(t, "/process", "image", grayJPEG(t, 16, 16, 90), nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, common.ErrCodeProcessingError, errorCode(t, rec))
}

func TestProcessTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.Server.RequestTimeout = 20 * time.Millisecond
	slow := stubTransformer{name: "slow", apply: func(ctx context.Context, _ *vision.Bitmap) (*vision.Bitmap, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	r := newRouter(t, cfg, Dependencies{Pipeline: slow})

	rec := serve(r, upload(t, "/process", "image", grayJPEG(t, 16, 16, 90), nil))
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Equal(t, common.ErrCodeRequestTimeout, errorCode(t, rec))
}

func TestProcessCache(t *testing.T) {
	store := cache.NewMemoryStore(cache.MemoryOptions{MaxSize: 4, TTL: time.Minute})
	defer store.Close()

	calls := 0
	counting := stubTransformer{name: "counting", apply: func(_ context.Context, src *vision.Bitmap) (*vision.Bitmap, error) {
		calls++
		return src.Clone(), nil
	}}
	r := newRouter(t, testConfig(), Dependencies{Pipeline: counting, Cache: store})
	data := grayJPEG(t, 16, 16, 90)

	first := serve(r, upload(t, "/process", "image", data, nil))
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	second := serve(r, upload(t, "/process", "image", data, nil))
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.Bytes(), second.Body.Bytes())
	assert.Equal(t, 1, calls)
}

func TestFilterCacheKeepsIntensity(t *testing.T) {
	store := cache.NewMemoryStore(cache.MemoryOptions{MaxSize: 4, TTL: time.Minute})
	defer store.Close()

	r := newRouter(t, testConfig(), Dependencies{Cache: store})
	data := grayJPEG(t, 16, 16, 100)

	// 兩者四捨五入到兩位小數都是 0.50
	low := serve(r, upload(t, "/filter/negative", "image", data, map[string]string{"intensity": "0.496"}))
	require.Equal(t, http.StatusOK, low.Code)
	assert.Equal(t, "MISS", low.Header().Get("X-Cache"))

	high := serve(r, upload(t, "/filter/negative", "image", data, map[string]string{"intensity": "0.504"}))
	require.Equal(t, http.StatusOK, high.Code)
	assert.Equal(t, "MISS", high.Header().Get("X-Cache"))
	assert.NotEqual(t, low.Body.Bytes(), high.Body.Bytes())

	again := serve(r, upload(t, "/filter/negative", "image", data, map[string]string{"intensity": "0.496"}))
	require.Equal(t, http.StatusOK, again.Code)
	assert.Equal(t, "HIT", again.Header().Get("X-Cache"))
	assert.Equal(t, low.Body.Bytes(), again.Body.Bytes())
}

func TestFilterRoutes(t *testing.T) {
	r := newRouter(t, testConfig(), Dependencies{})
	data := grayJPEG(t, 24, 24, 100)

	t.Run("list", func(t *testing.T) {
		rec := serve(r, httptest.NewRequest(http.MethodGet, "/filters", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		var resp filter.ListResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Len(t, resp.Filters, 12)
		assert.Equal(t, 1.0, resp.DefaultIntensity)
	})

	t.Run("negative", func(t *testing.T) {
		rec := serve(r, upload(t, "/filter/negative", "image", data, map[string]string{"intensity": "1"}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		img, err := jpeg.Decode(bytes.NewReader(rec.Body.Bytes()))
		require.NoError(t, err)
		c := color.GrayModel.Convert(img.At(12, 12)).(color.Gray)
		assert.InDelta(t, 155, int(c.Y), 4)
	})

	t.Run("intensity from query", func(t *testing.T) {
		rec := serve(r, upload(t, "/filter/sepia?intensity=0.3", "image", data, nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unknown filter", func(t *testing.T) {
		rec := serve(r, upload(t, "/filter/oil_paint", "image", data, map[string]string{"intensity": "9"}))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, common.ErrCodeNotFound, errorCode(t, rec))
	})

	t.Run("bad intensity", func(t *testing.T) {
		for _, v := range []string{"strong", "-0.5", "1.01"} {
			rec := serve(r, upload(t, "/filter/blur", "image", data, map[string]string{"intensity": v}))
			assert.Equal(t, http.StatusBadRequest, rec.Code, v)
			assert.Equal(t, common.ErrCodeBadInput, errorCode(t, rec))
		}
	})

	t.Run("missing image", func(t *testing.T) {
		rec := serve(r, upload(t, "/filter/blur", "", nil, map[string]string{"intensity": "0.5"}))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHealthRoutes(t *testing.T) {
	r := newRouter(t, testConfig(), Dependencies{})

	for _, path := range []string{"/health", "/ready", "/live"} {
		rec := serve(r, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/health", nil))
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "enhance-v1", resp["pipeline"])
	assert.Equal(t, "test", resp["version"])
}

func TestUnknownRoutes(t *testing.T) {
	r := newRouter(t, testConfig(), Dependencies{})

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, common.ErrCodeNotFound, errorCode(t, rec))

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/process", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, common.ErrCodeMethodNotAllowed, errorCode(t, rec))
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{Enabled: true, Requests: 1, Window: time.Hour}
	r := newRouter(t, cfg, Dependencies{})

	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/live", nil)).Code)
	rec := serve(r, httptest.NewRequest(http.MethodGet, "/live", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, common.ErrCodeTooManyRequests, errorCode(t, rec))
}

func TestSetupRouterRequiresPipeline(t *testing.T) {
	_, err := SetupRouter(testConfig(), Dependencies{Codec: imageService.NewService(1 << 20)})
	assert.Error(t, err)
}
