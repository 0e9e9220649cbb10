package mockservice

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/fran0220/stock-scanner/internal/model"
)

// indicators 由代码哈希得出的确定性指标
type indicators struct {
	score      float64
	price      float64
	change     float64
	rsi        float64
	trend      model.TrendType
	macd       model.SignalType
	volume     model.VolumeStatus
	momentum   float64
	volatility float64
}

func seed(code, market string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToUpper(code) + "@" + market))
	return h.Sum32()
}

func compute(code, market string) indicators {
	s := seed(code, market)
	ind := indicators{
		score:      float64(40 + s%56),
		price:      float64(5+s%400) + float64(s%100)/100,
		change:     float64(int(s%1000)-500) / 100,
		rsi:        float64(20 + (s>>8)%61),
		momentum:   float64(int((s>>4)%200)-100) / 10,
		volatility: float64((s>>12)%80) / 1000,
	}
	if ind.change >= 0 {
		ind.trend = model.TrendUp
	} else {
		ind.trend = model.TrendDown
	}
	switch (s >> 16) % 3 {
	case 0:
		ind.macd = model.SignalBuy
	case 1:
		ind.macd = model.SignalSell
	default:
		ind.macd = model.SignalHold
	}
	switch (s >> 20) % 3 {
	case 0:
		ind.volume = model.VolumeHigh
	case 1:
		ind.volume = model.VolumeNormal
	default:
		ind.volume = model.VolumeLow
	}
	return ind
}

func recommendation(score float64) string {
	switch {
	case score >= 80:
		return "强烈推荐买入"
	case score >= 60:
		return "建议买入"
	case score >= 40:
		return "观望"
	default:
		return "建议卖出"
	}
}

func ptr[T any](v T) *T { return &v }

// StockResult 生成股票分析结果
func StockResult(code, market string, now time.Time) model.StockAnalysisResult {
	ind := compute(code, market)
	name := "模拟股票" + code
	return model.StockAnalysisResult{
		StockCode:      code,
		StockName:      name,
		Market:         market,
		Price:          ptr(ind.price),
		PriceChange:    ptr(ind.change),
		Score:          ind.score,
		Recommendation: recommendation(ind.score),
		AnalysisDate:   now.Format("2006-01-02 15:04:05"),
		MATrend:        ind.trend,
		RSI:            ptr(ind.rsi),
		MACDSignal:     ind.macd,
		VolumeStatus:   ind.volume,
		AIAnalysis:     ptr(analysisText(code, name, ind)),
	}
}

// FuturesResult 生成期货分析结果
func FuturesResult(code, market string, now time.Time) model.FuturesAnalysisResult {
	ind := compute(code, market)
	name := "模拟期货" + code
	s := seed(code, market)
	return model.FuturesAnalysisResult{
		FuturesCode:           code,
		FuturesName:           name,
		Market:                market,
		Price:                 ptr(ind.price),
		PriceChange:           ptr(ind.change),
		Score:                 ind.score,
		Recommendation:        recommendation(ind.score),
		AnalysisDate:          now.Format("2006-01-02 15:04:05"),
		MATrend:               ind.trend,
		RSI:                   ptr(ind.rsi),
		MACDSignal:            ind.macd,
		VolumeStatus:          ind.volume,
		OpenInterestChange:    ptr(float64(int(s%400)-200) / 10),
		LongShortRatio:        ptr(0.5 + float64(s%150)/100),
		MajorPositionsChange:  ptr(float64(int((s>>3)%300)-150) / 10),
		RetailPositionsChange: ptr(float64(int((s>>5)%300)-150) / 10),
		PriceMomentum:         ptr(ind.momentum),
		Volatility:            ptr(ind.volatility),
		PriceDeviation:        ptr(float64(int((s>>7)%100)-50) / 10),
		SeasonalPerformance:   ptr(float64(int((s>>9)%60)-30) / 10),
		AIAnalysis:            ptr(analysisText(code, name, ind)),
	}
}

func analysisText(code, name string, ind indicators) string {
	trend := "震荡"
	switch {
	case ind.trend == model.TrendUp && ind.macd != model.SignalSell:
		trend = "偏多"
	case ind.trend == model.TrendDown && ind.macd != model.SignalBuy:
		trend = "偏空"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "根据技术指标，%s（%s）当前走势**%s**，综合评分 %.0f。\n\n", name, code, trend, ind.score)
	b.WriteString("## 技术分析\n")
	fmt.Fprintf(&b, "- 均线趋势：%s\n", trendCN(ind.trend))
	fmt.Fprintf(&b, "- MACD 信号：%s\n", macdCN(ind.macd))
	fmt.Fprintf(&b, "- RSI 为 %.1f，处于_%s_区间\n\n", ind.rsi, rsiZone(ind.rsi))
	b.WriteString("## 成交量分析\n")
	fmt.Fprintf(&b, "成交量%s，波动率%s。\n\n", volumeCN(ind.volume), volatilityDesc(ind.volatility))
	b.WriteString("## 投资建议\n")
	fmt.Fprintf(&b, "%s，建议结合市场整体环境和个人风险偏好做出投资决策。\n\n", recommendation(ind.score))
	b.WriteString("## 风险提示\n")
	b.WriteString("以上内容为模拟数据，不构成投资建议。")
	return b.String()
}

func trendCN(t model.TrendType) string {
	if t == model.TrendUp {
		return "多头排列"
	}
	return "空头排列"
}

func macdCN(s model.SignalType) string {
	switch s {
	case model.SignalBuy:
		return "金叉"
	case model.SignalSell:
		return "死叉"
	}
	return "中性"
}

func rsiZone(rsi float64) string {
	if rsi > 70 {
		return "超买"
	} else if rsi < 30 {
		return "超卖"
	}
	return "正常"
}

func volumeCN(v model.VolumeStatus) string {
	switch v {
	case model.VolumeHigh:
		return "放大"
	case model.VolumeLow:
		return "萎缩"
	}
	return "平稳"
}

func volatilityDesc(volatility float64) string {
	if volatility > 0.05 {
		return "较高"
	} else if volatility < 0.02 {
		return "较低"
	}
	return "正常"
}
