// Package opencv 以 OpenCV (gocv) 實作的增強管線
//
// 需要以 -tags opencv 建置並安裝 OpenCV，否則 NewPipeline 回傳 ErrUnavailable。
package opencv

import "errors"

// ErrUnavailable 建置時未啟用 OpenCV
var ErrUnavailable = errors.New("opencv backend not compiled in (build with -tags opencv)")

// PipelineName 快取鍵與日誌使用的名稱
const PipelineName = "enhance-v1-opencv"
