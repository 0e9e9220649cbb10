package handler

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/fran0220/stock-scanner/internal/config"
	"github.com/fran0220/stock-scanner/internal/logger"
	"github.com/fran0220/stock-scanner/internal/metrics"
	"github.com/fran0220/stock-scanner/internal/web"
)

// NewRouter 创建 gin 引擎并注册全部路由
func NewRouter(cfg config.ServerConfig, h *Handler, m *metrics.Metrics) (*gin.Engine, error) {
	tmpl, err := web.Templates()
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(RequestLogger(), gin.Recovery())
	if m != nil {
		r.Use(m.Middleware())
	}

	// 配置 CORS
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
		}))
	}

	r.SetHTMLTemplate(tmpl)
	r.StaticFS("/static", http.FS(web.Static()))
	if m != nil {
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	h.Register(r)
	return r, nil
}

// RequestLogger 使用 logrus 记录请求日志
func RequestLogger() gin.HandlerFunc {
	log := logger.For("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"ip":      c.ClientIP(),
		})
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("请求失败")
			return
		}
		entry.Debug("请求完成")
	}
}
