package handler

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"
)

// SessionEvents 以 SSE 推送会话状态，直到分析结束或客户端断开
func (h *Handler) SessionEvents(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}
	sid := sessionID(c)

	changes, cancel, err := h.svc.Subscribe(sid, kind)
	if err != nil {
		fail(c, statusFor(err), err.Error())
		return
	}
	defer cancel()

	view, _ := h.svc.Snapshot(sid, kind)
	c.SSEvent("snapshot", view)
	c.Writer.Flush()
	if view.Terminal() {
		return
	}

	keepAlive := time.NewTicker(h.keepAlive)
	defer keepAlive.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case <-keepAlive.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		case _, open := <-changes:
			if !open {
				return false
			}
			view, _ := h.svc.Snapshot(sid, kind)
			c.SSEvent("snapshot", view)
			return !view.Terminal()
		}
	})
}
