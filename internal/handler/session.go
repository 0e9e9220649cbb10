package handler

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fran0220/stock-scanner/internal/service"
)

const (
	// SessionCookie 会话 cookie 名
	SessionCookie = "scanner_sid"
	sessionKey    = "sid"
	sessionMaxAge = 7 * 24 * 3600
)

// sessionSigner 会话ID签名：id.signature
type sessionSigner struct {
	secret []byte
}

func newSessionSigner(secret string) *sessionSigner {
	if secret == "" {
		b := make([]byte, 32)
		_, _ = rand.Read(b)
		return &sessionSigner{secret: b}
	}
	return &sessionSigner{secret: []byte(secret)}
}

func (s *sessionSigner) sign(id string) string {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(id))
	return id + "." + hex.EncodeToString(h.Sum(nil))
}

// verify 校验签名并返回会话ID
func (s *sessionSigner) verify(token string) (string, bool) {
	id, sig, ok := strings.Cut(token, ".")
	if !ok || !service.ValidSessionID(id) {
		return "", false
	}
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(id))
	expected := hex.EncodeToString(h.Sum(nil))
	if !hmac.Equal([]byte(sig), []byte(expected)) {
		return "", false
	}
	return id, true
}

// SessionMiddleware 会话中间件：cookie 缺失或签名无效时分配新会话
func (h *Handler) SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, err := c.Cookie(SessionCookie); err == nil {
			if id, ok := h.signer.verify(token); ok {
				c.Set(sessionKey, id)
				c.Next()
				return
			}
		}

		id := service.NewSessionID()
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(SessionCookie, h.signer.sign(id), sessionMaxAge, "/", "", false, true)
		c.Set(sessionKey, id)
		c.Next()
	}
}

func sessionID(c *gin.Context) string {
	return c.GetString(sessionKey)
}
