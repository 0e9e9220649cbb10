// Package web 页面模板和静态资源
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"math"
	"time"

	"github.com/fran0220/stock-scanner/internal/model"
	"github.com/fran0220/stock-scanner/internal/progress"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Templates 解析全部页面模板
func Templates() (*template.Template, error) {
	return template.New("").Funcs(Funcs()).ParseFS(templateFS, "templates/*.html")
}

// Static 静态资源
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// MarketOption 市场下拉选项
type MarketOption struct {
	Value string
	Label string
}

// Markets 分析类型可选的市场
func Markets(kind model.AnalysisKind) []MarketOption {
	if kind == model.KindFutures {
		return []MarketOption{
			{Value: model.FuturesMarketCN, Label: model.MarketName(model.FuturesMarketCN)},
			{Value: model.FuturesMarketGlobal, Label: model.MarketName(model.FuturesMarketGlobal)},
		}
	}
	return []MarketOption{
		{Value: model.MarketA, Label: model.MarketName(model.MarketA)},
		{Value: model.MarketUS, Label: model.MarketName(model.MarketUS)},
		{Value: model.MarketHK, Label: model.MarketName(model.MarketHK)},
	}
}

// Funcs 模板函数
func Funcs() template.FuncMap {
	return template.FuncMap{
		"scoreClass":  model.ScoreClass,
		"marketName":  model.MarketName,
		"priceClass":  PriceClass,
		"num":         FormatNumber,
		"signed":      FormatSigned,
		"absPercent":  FormatAbsPercent,
		"barWidth":    BarWidth,
		"positive":    Positive,
		"trendText":   TrendText,
		"signalText":  SignalText,
		"volumeText":  VolumeText,
		"formatDate":  FormatDate,
		"stepClass":   StepClass,
		"stepIcon":    StepIcon,
		"isUp":        func(t model.TrendType) bool { return t == model.TrendUp },
		"isBuy":       func(s model.SignalType) bool { return s == model.SignalBuy },
		"isHighVol":   func(v model.VolumeStatus) bool { return v == model.VolumeHigh },
		"currency":    Currency,
		"displayName": func(k model.AnalysisKind) string { return k.DisplayName() },
	}
}

// PriceClass 涨跌样式，缺失按上涨处理
func PriceClass(change *float64) string {
	if change != nil && *change < 0 {
		return "market-down"
	}
	return "market-up"
}

// FormatNumber 保留两位小数，缺失显示 N/A
func FormatNumber(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", *v)
}

// FormatSigned 带符号的百分比，如 +1.23%
func FormatSigned(v *float64) string {
	if v == nil {
		return "N/A"
	}
	sign := ""
	if *v > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, *v)
}

// FormatAbsPercent 涨跌幅绝对值
func FormatAbsPercent(v *float64) string {
	if v == nil {
		return "0.00%"
	}
	return fmt.Sprintf("%.2f%%", math.Abs(*v))
}

// BarWidth 进度条宽度百分比，不超过100
func BarWidth(v *float64, scale float64) float64 {
	if v == nil {
		return 0
	}
	return math.Min(math.Abs(*v*scale), 100)
}

// Positive 数值存在且大于0
func Positive(v *float64) bool {
	return v != nil && *v > 0
}

// TrendText 均线趋势
func TrendText(t model.TrendType) string {
	if t == model.TrendUp {
		return "上升"
	}
	return "下降"
}

// SignalText MACD信号
func SignalText(s model.SignalType) string {
	switch s {
	case model.SignalBuy:
		return "买入"
	case model.SignalSell:
		return "卖出"
	default:
		return "持有"
	}
}

// VolumeText 成交量状态
func VolumeText(v model.VolumeStatus) string {
	switch v {
	case model.VolumeHigh:
		return "放量"
	case model.VolumeLow:
		return "缩量"
	default:
		return "正常"
	}
}

var dateLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02",
}

// FormatDate 格式化为 yyyy-MM-dd，无法解析时原样返回
func FormatDate(s string) string {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return s
}

// Currency 价格符号
func Currency(market string) string {
	switch market {
	case model.MarketUS:
		return "$"
	case model.MarketHK:
		return "HK$"
	default:
		return "¥"
	}
}

// StepClass 步骤样式
func StepClass(status progress.StepStatus) string {
	return "step-" + string(status)
}

// StepIcon 步骤状态符号
func StepIcon(status progress.StepStatus) string {
	switch status {
	case progress.StatusCompleted:
		return "✓"
	case progress.StatusProcessing:
		return "…"
	case progress.StatusError:
		return "✕"
	default:
		return "○"
	}
}
