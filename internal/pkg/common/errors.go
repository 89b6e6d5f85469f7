package common

import (
	"context"
	"errors"
	"net/http"
)

// ErrorResponse 定義 API 錯誤響應結構
type ErrorResponse struct {
	Code    string `json:"code"`              // 錯誤代碼
	Message string `json:"message"`           // 錯誤信息
	Details string `json:"details,omitempty"` // 詳細信息（僅在開發模式顯示）
}

// CustomError 定義自定義錯誤類型
type CustomError struct {
	Code    string // 錯誤代碼
	Message string // 錯誤信息
	Err     error  // 原始錯誤
	Status  int    // HTTP 狀態碼
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap 取得原始錯誤
func (e *CustomError) Unwrap() error {
	return e.Err
}

// Is 以錯誤代碼比對，讓 errors.Is(err, ErrBadInput) 對任何 BAD_INPUT 錯誤成立
func (e *CustomError) Is(target error) bool {
	t, ok := target.(*CustomError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Response 轉換為 API 錯誤響應，debug 時附上原始錯誤
func (e *CustomError) Response(debug bool) ErrorResponse {
	resp := ErrorResponse{Code: e.Code, Message: e.Message}
	if debug && e.Err != nil {
		resp.Details = e.Err.Error()
	}
	return resp
}

// NewError 創建新的自定義錯誤
func NewError(code string, message string, status int, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// NewBadInput 創建輸入錯誤（4xx）
func NewBadInput(message string, err error) *CustomError {
	return NewError(ErrCodeBadInput, message, http.StatusBadRequest, err)
}

// NewProcessingError 創建處理錯誤（5xx）
func NewProcessingError(message string, err error) *CustomError {
	return NewError(ErrCodeProcessingError, message, http.StatusInternalServerError, err)
}

// AsCustomError 取出錯誤鏈中的 CustomError，逾時視為 504，其餘未分類的錯誤視為處理錯誤
func AsCustomError(err error) *CustomError {
	if err == nil {
		return nil
	}
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(ErrCodeRequestTimeout, ErrRequestTimeout.Message, ErrRequestTimeout.Status, err)
	}
	return NewProcessingError("影像處理失敗", err)
}

// 預定義錯誤代碼
const (
	// 客戶端錯誤 (4xx)
	ErrCodeBadInput         = "BAD_INPUT"          // 400
	ErrCodeNotFound         = "NOT_FOUND"          // 404
	ErrCodeMethodNotAllowed = "METHOD_NOT_ALLOWED" // 405
	ErrCodeRequestTooLarge  = "REQUEST_TOO_LARGE"  // 413
	ErrCodeTooManyRequests  = "TOO_MANY_REQUESTS"  // 429

	// 服務器錯誤 (5xx)
	ErrCodeInternalError      = "INTERNAL_ERROR"      // 500
	ErrCodeProcessingError    = "PROCESSING_ERROR"    // 500
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE" // 503
	ErrCodeRequestTimeout     = "REQUEST_TIMEOUT"     // 504
)

// 預定義錯誤
var (
	// 客戶端錯誤
	ErrBadInput         = NewError(ErrCodeBadInput, "無效的輸入", http.StatusBadRequest, nil)
	ErrNotFound         = NewError(ErrCodeNotFound, "資源不存在", http.StatusNotFound, nil)
	ErrMethodNotAllowed = NewError(ErrCodeMethodNotAllowed, "不支持的請求方法", http.StatusMethodNotAllowed, nil)
	ErrRequestTooLarge  = NewError(ErrCodeRequestTooLarge, "請求體過大", http.StatusRequestEntityTooLarge, nil)
	ErrTooManyRequests  = NewError(ErrCodeTooManyRequests, "請求過於頻繁", http.StatusTooManyRequests, nil)

	// 服務器錯誤
	ErrInternalError      = NewError(ErrCodeInternalError, "服務器內部錯誤", http.StatusInternalServerError, nil)
	ErrProcessingError    = NewError(ErrCodeProcessingError, "影像處理失敗", http.StatusInternalServerError, nil)
	ErrServiceUnavailable = NewError(ErrCodeServiceUnavailable, "服務暫時不可用", http.StatusServiceUnavailable, nil)
	ErrRequestTimeout     = NewError(ErrCodeRequestTimeout, "請求超時", http.StatusGatewayTimeout, nil)

	// 業務錯誤
	ErrMissingImage       = NewError(ErrCodeBadInput, "缺少上傳欄位 image", http.StatusBadRequest, nil)
	ErrInvalidImageFormat = NewError(ErrCodeBadInput, "無效的圖片格式", http.StatusBadRequest, nil)
	ErrEmptyImage         = NewError(ErrCodeBadInput, "圖片尺寸為零", http.StatusBadRequest, nil)
	ErrInvalidImageSize   = NewError(ErrCodeRequestTooLarge, "圖片大小超出限制", http.StatusRequestEntityTooLarge, nil)
	ErrInvalidIntensity   = NewError(ErrCodeBadInput, "強度必須介於 0 與 1 之間", http.StatusBadRequest, nil)
	ErrUnknownFilter      = NewError(ErrCodeNotFound, "不支援的濾鏡", http.StatusNotFound, nil)
)
