package mockservice

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fran0220/stock-scanner/internal/sections"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestStockResultDeterministic(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.Local)
	a := StockResult("600519", "A", now)
	b := StockResult("600519", "A", now)
	assert.Equal(t, a, b)
	assert.GreaterOrEqual(t, a.Score, 40.0)
	assert.Less(t, a.Score, 96.0)
	assert.Equal(t, "2024-05-01 10:00:00", a.AnalysisDate)
}

func TestAnalysisTextHasSections(t *testing.T) {
	r := StockResult("AAPL", "US", time.Now())
	s := sections.Extract(r.AIText())

	assert.NotEmpty(t, s.Summary)
	assert.Contains(t, s.TechnicalAnalysis, "MACD")
	assert.NotEmpty(t, s.FundamentalAnalysis)
	assert.NotEmpty(t, s.Recommendation)
	assert.Contains(t, s.Risks, "模拟数据")
}

func TestAnalyzeStockEnvelope(t *testing.T) {
	s := New()
	w := do(t, s, http.MethodPost, "/api/stock/analyze", `{"stockCode":"600519","market":"A"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			StockCode string `json:"stock_code"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "600519", resp.Data.StockCode)
	assert.Equal(t, 1, s.Calls("/api/stock/analyze"))
}

func TestAnalyzeFailures(t *testing.T) {
	s := New()
	s.FailWith("bad", "股票代码不存在")

	w := do(t, s, http.MethodPost, "/api/stock/analyze", `{"stockCode":"BAD"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"detail":"股票代码不存在"}`, w.Body.String())

	w = do(t, s, http.MethodPost, "/api/futures/analyze", `{"symbol":""}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "期货代码不能为空")
}

func TestBatchFiltersByMinScore(t *testing.T) {
	s := New()
	w := do(t, s, http.MethodPost, "/api/stock/batch-analyze", `{"stockCodes":["600519","000858","AAPL"],"market":"A","min_score":0}`)
	require.Equal(t, http.StatusOK, w.Code)
	var all struct {
		Data []json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
	assert.Len(t, all.Data, 3)

	w = do(t, s, http.MethodPost, "/api/stock/batch-analyze", `{"stockCodes":["600519"],"min_score":101}`)
	assert.JSONEq(t, `{"status":"success","data":[]}`, w.Body.String())
}

func TestMarketList(t *testing.T) {
	s := New()
	w := do(t, s, http.MethodGet, "/api/futures/market-futures?market=GLOBAL", "")
	assert.JSONEq(t, `{"status":"success","data":["CL","GC","SI"]}`, w.Body.String())

	w = do(t, s, http.MethodGet, "/api/stock/market-stocks?market=XX", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
