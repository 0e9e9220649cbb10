package handler

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fran0220/stock-scanner/internal/progress"
	"github.com/fran0220/stock-scanner/internal/progress/progresstest"
	"github.com/fran0220/stock-scanner/internal/service"
)

// openEvents 打开事件流，逐个读出 snapshot 事件；流结束时关闭通道
func openEvents(t *testing.T, env *testEnv, kind string) <-chan service.View {
	t.Helper()
	srv := httptest.NewServer(env.router)
	t.Cleanup(srv.Close)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/sessions/"+kind+"/events", nil)
	require.NoError(t, err)
	if env.cookie != nil {
		req.AddCookie(env.cookie)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream"))

	views := make(chan service.View, 64)
	go func() {
		defer close(views)
		sc := bufio.NewScanner(resp.Body)
		sc.Buffer(make([]byte, 64*1024), 1<<20)
		event := ""
		for sc.Scan() {
			line := sc.Text()
			switch {
			case strings.HasPrefix(line, "event:"):
				event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			case strings.HasPrefix(line, "data:") && event == "snapshot":
				var v service.View
				if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data:")), &v); err != nil {
					return
				}
				views <- v
			}
		}
	}()
	return views
}

func TestSessionEventsFollowRunningAnalysis(t *testing.T) {
	clock := progresstest.NewClock()
	env := newTestEnv(t, service.WithClock(clock))
	env.mock.SetDelay(200 * time.Millisecond)

	w := env.postJSON("/api/stock/analyze", `{"stockCode":"600519","market":"A"}`)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	views := openEvents(t, env, "stock")

	var got []service.View
	select {
	case v, ok := <-views:
		require.True(t, ok, "事件流未发送初始快照")
		got = append(got, v)
	case <-time.After(2 * time.Second):
		t.Fatal("未收到初始快照")
	}
	assert.Equal(t, progress.RunRunning, got[0].State.Status)

	// 测试环境的时间表有两段
	lastPhase := int(progress.PhaseDataFetched) + 2
	tick := time.NewTicker(5 * time.Millisecond)
	defer tick.Stop()
	deadline := time.After(5 * time.Second)
	closed := false
	for !closed {
		select {
		case v, ok := <-views:
			if !ok {
				closed = true
				break
			}
			got = append(got, v)
		case <-tick.C:
			// 阶段走完后等待真实结果，收到成功快照再推进完成和收起
			cur := got[len(got)-1]
			if cur.State.Status != progress.RunRunning || cur.State.Phase < lastPhase {
				clock.Advance(10 * time.Millisecond)
			}
		case <-deadline:
			t.Fatal("事件流未结束")
		}
	}

	last := -1
	var sawSucceeded bool
	for _, v := range got {
		if v.State.Status == progress.RunSucceeded {
			sawSucceeded = true
		}
		if !v.State.Progress.Visible {
			continue
		}
		assert.GreaterOrEqual(t, v.State.Progress.Progress, last)
		last = v.State.Progress.Progress
	}
	assert.True(t, sawSucceeded)
	assert.Equal(t, 100, last)
	assert.True(t, got[len(got)-1].Terminal())
}

// 会话过期清理后事件流随之结束
func TestSessionEventsClosedBySweep(t *testing.T) {
	var mu sync.Mutex
	now := time.Now()
	env := newTestEnv(t, service.WithNow(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}))
	env.mock.SetDelay(time.Minute)

	w := env.postJSON("/api/stock/analyze", `{"stockCode":"600519","market":"A"}`)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	views := openEvents(t, env, "stock")
	select {
	case v := <-views:
		require.Equal(t, progress.RunRunning, v.State.Status)
	case <-time.After(2 * time.Second):
		t.Fatal("未收到初始快照")
	}

	mu.Lock()
	now = now.Add(2 * time.Minute)
	mu.Unlock()
	require.Equal(t, 1, env.svc.Sweep())

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-views:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("清理后事件流未结束")
		}
	}
}
