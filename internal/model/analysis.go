package model

// TrendType 均线趋势
type TrendType string

const (
	TrendUp   TrendType = "UP"
	TrendDown TrendType = "DOWN"
)

// SignalType MACD信号
type SignalType string

const (
	SignalBuy  SignalType = "BUY"
	SignalSell SignalType = "SELL"
	SignalHold SignalType = "HOLD"
)

// VolumeStatus 成交量状态
type VolumeStatus string

const (
	VolumeHigh   VolumeStatus = "HIGH"
	VolumeNormal VolumeStatus = "NORMAL"
	VolumeLow    VolumeStatus = "LOW"
)

// StockAnalysisResult 股票分析结果
type StockAnalysisResult struct {
	StockCode      string       `json:"stock_code"`
	StockName      string       `json:"stock_name"`
	Market         string       `json:"market"`
	Price          *float64     `json:"price"`
	PriceChange    *float64     `json:"price_change"` // 涨跌幅(%)
	Score          float64      `json:"score"`        // 0-100
	Recommendation string       `json:"recommendation"`
	AnalysisDate   string       `json:"analysis_date"`
	MATrend        TrendType    `json:"ma_trend"`
	RSI            *float64     `json:"rsi"`
	MACDSignal     SignalType   `json:"macd_signal"`
	VolumeStatus   VolumeStatus `json:"volume_status"`
	AIAnalysis     *string      `json:"ai_analysis,omitempty"` // AI分析原文
}

// FuturesAnalysisResult 期货分析结果
type FuturesAnalysisResult struct {
	FuturesCode           string       `json:"futures_code"`
	FuturesName           string       `json:"futures_name"`
	Market                string       `json:"market"`
	Price                 *float64     `json:"price"`
	PriceChange           *float64     `json:"price_change"`
	Score                 float64      `json:"score"`
	Recommendation        string       `json:"recommendation"`
	AnalysisDate          string       `json:"analysis_date"`
	MATrend               TrendType    `json:"ma_trend"`
	RSI                   *float64     `json:"rsi"`
	MACDSignal            SignalType   `json:"macd_signal"`
	VolumeStatus          VolumeStatus `json:"volume_status"`
	OpenInterestChange    *float64     `json:"open_interest_change"`    // 持仓量变化(%)
	LongShortRatio        *float64     `json:"long_short_ratio"`        // 多空比
	MajorPositionsChange  *float64     `json:"major_positions_change"`  // 主力持仓变化(%)
	RetailPositionsChange *float64     `json:"retail_positions_change"` // 散户持仓变化(%)
	PriceMomentum         *float64     `json:"price_momentum"`
	Volatility            *float64     `json:"volatility"`
	PriceDeviation        *float64     `json:"price_deviation"`
	SeasonalPerformance   *float64     `json:"seasonal_performance"`
	AIAnalysis            *string      `json:"ai_analysis,omitempty"`
}

// AIText 返回AI分析原文，没有时为空字符串
func (r *StockAnalysisResult) AIText() string {
	if r == nil || r.AIAnalysis == nil {
		return ""
	}
	return *r.AIAnalysis
}

// AIText 返回AI分析原文，没有时为空字符串
func (r *FuturesAnalysisResult) AIText() string {
	if r == nil || r.AIAnalysis == nil {
		return ""
	}
	return *r.AIAnalysis
}

// ScoreClass 评分样式：>=80 高, >=60 中, 其余低
func ScoreClass(score float64) string {
	switch {
	case score >= 80:
		return "score-high"
	case score >= 60:
		return "score-medium"
	default:
		return "score-low"
	}
}
