package model

import "time"

// DefaultMinScore 批量分析默认最低评分
const DefaultMinScore = 60

// StockAnalyzeRequest 单只股票分析请求
type StockAnalyzeRequest struct {
	StockCode string `json:"stockCode" form:"stockCode"`
	Market    string `json:"market" form:"market"`
}

// FuturesAnalyzeRequest 单个期货合约分析请求
type FuturesAnalyzeRequest struct {
	Symbol string `json:"symbol" form:"symbol"`
	Market string `json:"market" form:"market"`
}

// StockBatchRequest 批量股票分析请求
type StockBatchRequest struct {
	StockCodes []string `json:"stockCodes"`
	Market     string   `json:"market"`
	MinScore   int      `json:"min_score"`
}

// FuturesBatchRequest 批量期货分析请求
type FuturesBatchRequest struct {
	FuturesCodes []string `json:"futuresCodes"`
	Market       string   `json:"market"`
	MinScore     int      `json:"min_score"`
}

// BatchForm 页面批量分析表单
type BatchForm struct {
	Codes    string `form:"codes"`
	Market   string `form:"market"`
	MinScore int    `form:"min_score,default=60" binding:"min=0,max=100"`
}

// APIResponse 分析服务统一响应
// 服务端有两种形态：{success, message, data} 和 {status: "success", data}
type APIResponse[T any] struct {
	Success bool   `json:"success"`
	Status  string `json:"status,omitempty"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// OK 响应是否成功
func (r *APIResponse[T]) OK() bool {
	return r.Success || r.Status == "success"
}

// HealthStatus 健康检查结果
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp string    `json:"timestamp,omitempty"`
	Version   string    `json:"version,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}
