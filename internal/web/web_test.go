package web

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fran0220/stock-scanner/internal/model"
	"github.com/fran0220/stock-scanner/internal/progress"
)

func f(v float64) *float64 { return &v }

func TestTemplatesParse(t *testing.T) {
	tmpl, err := Templates()
	require.NoError(t, err)
	for _, name := range []string{"index.html", "analysis.html", "header", "footer", "progress", "batch"} {
		assert.NotNil(t, tmpl.Lookup(name), name)
	}
}

func TestStaticEmbedded(t *testing.T) {
	data, err := fs.ReadFile(Static(), "app.css")
	require.NoError(t, err)
	assert.Contains(t, string(data), ".score-high")
}

func TestFormatters(t *testing.T) {
	assert.Equal(t, "N/A", FormatNumber(nil))
	assert.Equal(t, "12.35", FormatNumber(f(12.346)))
	assert.Equal(t, "+1.50%", FormatSigned(f(1.5)))
	assert.Equal(t, "-2.00%", FormatSigned(f(-2)))
	assert.Equal(t, "0.00%", FormatSigned(f(0)))
	assert.Equal(t, "2.00%", FormatAbsPercent(f(-2)))
	assert.Equal(t, "market-down", PriceClass(f(-0.1)))
	assert.Equal(t, "market-up", PriceClass(f(0)))
	assert.Equal(t, "market-up", PriceClass(nil))
	assert.Equal(t, 100.0, BarWidth(f(-3), 100))
	assert.Equal(t, 30.0, BarWidth(f(0.3), 100))
	assert.True(t, Positive(f(0.1)))
	assert.False(t, Positive(nil))
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "上升", TrendText(model.TrendUp))
	assert.Equal(t, "下降", TrendText(model.TrendDown))
	assert.Equal(t, "买入", SignalText(model.SignalBuy))
	assert.Equal(t, "持有", SignalText(model.SignalHold))
	assert.Equal(t, "放量", VolumeText(model.VolumeHigh))
	assert.Equal(t, "✓", StepIcon(progress.StatusCompleted))
	assert.Equal(t, "step-error", StepClass(progress.StatusError))
	assert.Equal(t, "$", Currency("US"))
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "2024-05-01", FormatDate("2024-05-01 10:30:00"))
	assert.Equal(t, "2024-05-01", FormatDate("2024-05-01T10:30:00Z"))
	assert.Equal(t, "昨天", FormatDate("昨天"))
}

func TestMarkets(t *testing.T) {
	assert.Len(t, Markets(model.KindStock), 3)
	opts := Markets(model.KindFutures)
	require.Len(t, opts, 2)
	assert.Equal(t, "国际期货", opts[1].Label)
}
