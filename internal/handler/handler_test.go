package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fran0220/stock-scanner/internal/cache"
	"github.com/fran0220/stock-scanner/internal/client"
	"github.com/fran0220/stock-scanner/internal/config"
	"github.com/fran0220/stock-scanner/internal/metrics"
	"github.com/fran0220/stock-scanner/internal/mockservice"
	"github.com/fran0220/stock-scanner/internal/progress"
	"github.com/fran0220/stock-scanner/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	router *gin.Engine
	mock   *mockservice.Server
	svc    *service.Service
	cookie *http.Cookie
}

func newTestEnv(t *testing.T, opts ...service.Option) *testEnv {
	t.Helper()
	mock := mockservice.New()
	upstream := httptest.NewServer(mock.Handler())
	t.Cleanup(upstream.Close)

	m := metrics.New()
	api := client.New(config.UpstreamConfig{
		BaseURL:   upstream.URL,
		Timeout:   5 * time.Second,
		StaleTime: time.Minute,
	}, client.WithCache(cache.NewMemoryProvider()), client.WithMetrics(m))

	svc := service.New(api, config.ProgressConfig{
		Schedule:      []time.Duration{10 * time.Millisecond, 10 * time.Millisecond},
		CompleteDelay: 10 * time.Millisecond,
		HideDelay:     10 * time.Millisecond,
		SessionTTL:    time.Minute,
		SubmitBurst:   100,
	}, append([]service.Option{service.WithMetrics(m)}, opts...)...)
	t.Cleanup(svc.Close)

	r, err := NewRouter(config.ServerConfig{CORSOrigins: []string{"http://localhost:3000"}}, New(svc, "test-secret"), m)
	require.NoError(t, err)
	return &testEnv{router: r, mock: mock, svc: svc}
}

// do 发起请求并保存会话 cookie
func (e *testEnv) do(method, path, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if e.cookie != nil {
		req.AddCookie(e.cookie)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		if c.Name == SessionCookie {
			e.cookie = c
		}
	}
	return w
}

func (e *testEnv) postJSON(path, body string) *httptest.ResponseRecorder {
	return e.do(http.MethodPost, path, "application/json", body)
}

func (e *testEnv) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	return e.do(http.MethodPost, path, "application/x-www-form-urlencoded", form.Encode())
}

func decodeView(t *testing.T, w *httptest.ResponseRecorder) service.View {
	t.Helper()
	var v service.View
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

type failure struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func decodeFailure(t *testing.T, w *httptest.ResponseRecorder) failure {
	t.Helper()
	var f failure
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &f))
	return f
}

func TestSessionCookieReused(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/api/sessions/stock", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, env.cookie)
	first := env.cookie.Value

	w = env.do(http.MethodGet, "/api/sessions/stock", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Result().Cookies(), "有效 cookie 不应重新下发")
	assert.Equal(t, first, env.cookie.Value)
}

func TestSessionCookieTamperedIsReplaced(t *testing.T) {
	env := newTestEnv(t)
	env.cookie = &http.Cookie{Name: SessionCookie, Value: service.NewSessionID() + ".deadbeef"}

	w := env.do(http.MethodGet, "/api/sessions/stock", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, w.Result().Cookies(), 1)
	assert.NotContains(t, env.cookie.Value, "deadbeef")
}

func TestSessionSigner(t *testing.T) {
	s := newSessionSigner("secret")
	id := service.NewSessionID()

	got, ok := s.verify(s.sign(id))
	assert.True(t, ok)
	assert.Equal(t, id, got)

	_, ok = newSessionSigner("other").verify(s.sign(id))
	assert.False(t, ok)
	_, ok = s.verify("not-a-token")
	assert.False(t, ok)
}

func TestAPIAnalyzeStock(t *testing.T) {
	env := newTestEnv(t)

	w := env.postJSON("/api/stock/analyze", `{"stockCode":"600519","market":"A"}`)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	v := decodeView(t, w)
	assert.Equal(t, "600519", v.Code)
	assert.Equal(t, progress.RunRunning, v.State.Status)

	require.Eventually(t, func() bool {
		v = decodeView(t, env.do(http.MethodGet, "/api/sessions/stock", "", ""))
		return v.State.Status == progress.RunSucceeded && v.State.HasResult
	}, 2*time.Second, 10*time.Millisecond)
	require.NotNil(t, v.State.Result.Stock)
	assert.Equal(t, "600519", v.State.Result.Stock.StockCode)
	assert.NotEmpty(t, v.Sections.Blocks)
}

func TestAPIAnalyzeEmptyCode(t *testing.T) {
	env := newTestEnv(t)

	w := env.postJSON("/api/stock/analyze", `{"stockCode":"  ","market":"A"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "请输入股票代码")
	assert.False(t, decodeFailure(t, w).Success)
	assert.Zero(t, env.mock.Calls("/api/stock/analyze"))
}

func TestAPIAnalyzeFuturesFailure(t *testing.T) {
	env := newTestEnv(t)
	env.mock.FailWith("CU2409", "数据源不可用")

	w := env.postJSON("/api/futures/analyze", `{"symbol":"CU2409","market":"CN"}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	var v service.View
	require.Eventually(t, func() bool {
		v = decodeView(t, env.do(http.MethodGet, "/api/sessions/futures", "", ""))
		return v.State.Status == progress.RunFailed && v.Notice != nil
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "分析失败", v.Notice.Title)
	assert.Contains(t, v.Notice.Message, "数据源不可用")
	assert.True(t, v.State.Progress.HasError)

	w = env.do(http.MethodDelete, "/api/sessions/futures/notice", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decodeView(t, w).Notice)
}

func TestAPIRetryWithoutHistory(t *testing.T) {
	env := newTestEnv(t)

	w := env.postJSON("/api/sessions/stock/retry", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	f := decodeFailure(t, w)
	assert.False(t, f.Success)
	assert.NotEmpty(t, f.Message)
}

func TestAPIUnknownKind(t *testing.T) {
	env := newTestEnv(t)

	for _, req := range []struct{ method, path string }{
		{http.MethodGet, "/api/sessions/bonds"},
		{http.MethodGet, "/api/sessions/bonds/events"},
		{http.MethodDelete, "/api/sessions/bonds"},
		{http.MethodPost, "/api/sessions/bonds/retry"},
		{http.MethodDelete, "/api/sessions/bonds/notice"},
	} {
		w := env.do(req.method, req.path, "", "")
		assert.Equal(t, http.StatusNotFound, w.Code, req.path)
		f := decodeFailure(t, w)
		assert.False(t, f.Success, req.path)
		assert.Equal(t, "未知的分析类型", f.Message, req.path)
	}
}

func TestAPIAnalyzeBadBody(t *testing.T) {
	env := newTestEnv(t)

	w := env.postJSON("/api/stock/analyze", "{")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, failure{Success: false, Message: "请求参数错误"}, decodeFailure(t, w))
}

func TestAPIStopSession(t *testing.T) {
	env := newTestEnv(t)
	env.mock.SetDelay(time.Second)

	w := env.postJSON("/api/stock/analyze", `{"stockCode":"AAPL","market":"US"}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	w = env.do(http.MethodDelete, "/api/sessions/stock", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	v := decodeView(t, w)
	assert.NotEqual(t, progress.RunRunning, v.State.Status)
	assert.False(t, v.State.Progress.Visible)
}

func TestAPIBatchAnalyze(t *testing.T) {
	env := newTestEnv(t)

	w := env.postJSON("/api/stock/batch-analyze", `{"stockCodes":["600519","000858"],"market":"A","min_score":0}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Success bool              `json:"success"`
		Data    []json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Len(t, resp.Data, 2)
}

func TestAPIBatchAnalyzeValidation(t *testing.T) {
	env := newTestEnv(t)

	w := env.postJSON("/api/futures/batch-analyze", `{"futuresCodes":[],"market":"CN"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "请输入至少一个期货代码")

	w = env.postJSON("/api/futures/batch-analyze", `{"futuresCodes":["CU2409"],"min_score":120}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAPIMarketCodes(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/api/futures/market-futures?market=GLOBAL", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data []string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"CL", "GC", "SI"}, resp.Data)

	w = env.do(http.MethodGet, "/api/futures/market-futures?market=US", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
	assert.Contains(t, w.Body.String(), mockservice.Version)
}

func TestSessionEventsIdle(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/api/sessions/stock/events", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "event:snapshot")
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/event-stream"))
}

func TestPageSubmitEmptyCodeShowsNotice(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/stock", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "股票分析")

	w = env.postForm("/stock/analyze", url.Values{"stockCode": {""}, "market": {"A"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/stock", w.Header().Get("Location"))

	w = env.do(http.MethodGet, "/stock", "", "")
	assert.Contains(t, w.Body.String(), "请输入股票代码")

	w = env.postForm("/stock/notice/dismiss", url.Values{})
	require.Equal(t, http.StatusSeeOther, w.Code)
	w = env.do(http.MethodGet, "/stock", "", "")
	assert.NotContains(t, w.Body.String(), "请输入股票代码")
}

// 表单无法解析时写入提示，不调用分析服务
func TestPageSubmitMalformedForm(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/stock/analyze", "multipart/form-data", "garbage")
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/stock", w.Header().Get("Location"))

	w = env.do(http.MethodGet, "/stock", "", "")
	assert.Contains(t, w.Body.String(), "参数错误")
	assert.Contains(t, w.Body.String(), "提交的表单无法解析")
	assert.Zero(t, env.mock.Calls("/api/stock/analyze"))
}

func TestPageBatchSubmit(t *testing.T) {
	env := newTestEnv(t)

	w := env.postForm("/futures/batch", url.Values{
		"codes":     {"CU2409, RB2410"},
		"market":    {"CN"},
		"min_score": {"0"},
	})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/futures?tab=batch", w.Header().Get("Location"))

	w = env.do(http.MethodGet, "/futures?tab=batch", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "CU2409")
	assert.Contains(t, w.Body.String(), "RB2410")
}

func TestPageRefreshWhileActive(t *testing.T) {
	env := newTestEnv(t)
	env.mock.SetDelay(time.Second)

	w := env.postForm("/stock/analyze", url.Values{"stockCode": {"600519"}, "market": {"A"}})
	require.Equal(t, http.StatusSeeOther, w.Code)

	w = env.do(http.MethodGet, "/stock", "", "")
	assert.Contains(t, w.Body.String(), `http-equiv="refresh"`)

	w = env.postForm("/stock/stop", url.Values{})
	require.Equal(t, http.StatusSeeOther, w.Code)
	w = env.do(http.MethodGet, "/stock", "", "")
	assert.NotContains(t, w.Body.String(), `http-equiv="refresh"`)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodGet, "/health", "", "")

	w := env.do(http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{service.ErrInvalidInput, http.StatusBadRequest},
		{service.ErrNothingToRetry, http.StatusBadRequest},
		{service.ErrUnknownKind, http.StatusNotFound},
		{service.ErrRateLimited, http.StatusTooManyRequests},
		{errors.New("boom"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
