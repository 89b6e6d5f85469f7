// Package client 影像增強服務的 HTTP 客戶端
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"image-enhancer/internal/pkg/common"
)

// APIError 服務回傳的非 200 響應
type APIError struct {
	Status   int
	Response common.ErrorResponse
}

func (e *APIError) Error() string {
	if e.Response.Code == "" {
		return fmt.Sprintf("enhancer returned %d", e.Status)
	}
	return fmt.Sprintf("enhancer returned %d %s: %s", e.Status, e.Response.Code, e.Response.Message)
}

// Client 影像增強服務客戶端
type Client struct {
	client *resty.Client
}

// New 創建客戶端
func New(baseURL string, timeout time.Duration) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("User-Agent", "image-enhancer-client")

	return &Client{client: client}
}

// Enhance 上傳圖片並取得增強後的 JPEG
func (c *Client) Enhance(ctx context.Context, data []byte, filename string) ([]byte, error) {
	return c.upload(ctx, "/process", data, filename, nil)
}

// ApplyFilter 上傳圖片並套用具名濾鏡
func (c *Client) ApplyFilter(ctx context.Context, name string, intensity float64, data []byte, filename string) ([]byte, error) {
	form := map[string]string{
		"intensity": strconv.FormatFloat(intensity, 'f', -1, 64),
	}
	return c.upload(ctx, "/filter/"+name, data, filename, form)
}

// Filters 取得可用的濾鏡名稱
func (c *Client) Filters(ctx context.Context) ([]string, error) {
	var result struct {
		Filters []string `json:"filters"`
	}
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/filters")
	if err != nil {
		return nil, fmt.Errorf("failed to list filters: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, apiError(resp)
	}
	return result.Filters, nil
}

// Health 檢查服務是否就緒
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.client.R().SetContext(ctx).Get("/ready")
	if err != nil {
		return fmt.Errorf("failed to reach enhancer: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return apiError(resp)
	}
	return nil
}

func (c *Client) upload(ctx context.Context, path string, data []byte, filename string, form map[string]string) ([]byte, error) {
	req := c.client.R().
		SetContext(ctx).
		SetFileReader("image", filename, bytes.NewReader(data))
	if len(form) > 0 {
		req.SetFormData(form)
	}

	resp, err := req.Post(path)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to enhancer: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, apiError(resp)
	}
	return resp.Body(), nil
}

// apiError 解析錯誤響應，非 JSON 內容只保留狀態碼
func apiError(resp *resty.Response) error {
	e := &APIError{Status: resp.StatusCode()}
	_ = json.Unmarshal(resp.Body(), &e.Response)
	return e
}
