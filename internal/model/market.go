package model

import (
	"regexp"
	"strings"
)

// AnalysisKind 分析类型
type AnalysisKind string

const (
	KindStock   AnalysisKind = "stock"
	KindFutures AnalysisKind = "futures"
)

// Valid 是否为已知的分析类型
func (k AnalysisKind) Valid() bool {
	return k == KindStock || k == KindFutures
}

// DisplayName 页面显示名称
func (k AnalysisKind) DisplayName() string {
	if k == KindFutures {
		return "期货"
	}
	return "股票"
}

// 股票市场
const (
	MarketA  = "A"  // A股
	MarketUS = "US" // 美股
	MarketHK = "HK" // 港股
)

// 期货市场
const (
	FuturesMarketCN     = "CN"     // 国内期货
	FuturesMarketGlobal = "GLOBAL" // 国际期货
)

// DefaultMarket 分析类型的默认市场
func DefaultMarket(kind AnalysisKind) string {
	if kind == KindFutures {
		return FuturesMarketCN
	}
	return MarketA
}

// ValidMarket 校验市场是否属于该分析类型
func ValidMarket(kind AnalysisKind, market string) bool {
	switch kind {
	case KindStock:
		return market == MarketA || market == MarketUS || market == MarketHK
	case KindFutures:
		return market == FuturesMarketCN || market == FuturesMarketGlobal
	}
	return false
}

// MarketName 市场显示名称
func MarketName(market string) string {
	switch market {
	case MarketA:
		return "A股"
	case MarketUS:
		return "美股"
	case MarketHK:
		return "港股"
	case FuturesMarketCN:
		return "国内期货"
	case FuturesMarketGlobal:
		return "国际期货"
	default:
		return market
	}
}

var codeSeparator = regexp.MustCompile(`[\n,，\s]+`)

// ParseCodeList 解析批量输入的代码，支持换行、逗号（含全角）和空白分隔
func ParseCodeList(text string) []string {
	parts := codeSeparator.Split(text, -1)
	codes := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			codes = append(codes, p)
		}
	}
	return codes
}
