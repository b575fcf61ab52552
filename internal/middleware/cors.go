// Package middleware は CORS とアクセスログのミドルウェアを提供します。
package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS はリクエストの Origin と要求メソッド・ヘッダーをそのまま許可します。
// OPTIONS リクエストには空の 200 を返します。
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Set("Access-Control-Allow-Origin", headerOr(c, "Origin", "*"))
		h.Set("Access-Control-Allow-Methods", headerOr(c, "Access-Control-Request-Method", "*"))
		h.Set("Access-Control-Allow-Headers", headerOr(c, "Access-Control-Request-Headers", "*"))

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}

func headerOr(c *gin.Context, name, fallback string) string {
	if v := c.GetHeader(name); v != "" {
		return v
	}
	return fallback
}

// StrictCORS は許可オリジンを限定した CORS ミドルウェアです（カンマ区切り）。
func StrictCORS(origins string) gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()
	var allowed []string
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			allowed = append(allowed, o)
		}
	}
	corsConfig.AllowOrigins = allowed
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{
		"Origin",
		"Content-Type",
		"Accept",
		"Authorization",
		"X-Requested-With",
		"token", // セッションIDとして使うトークン
	}
	corsConfig.MaxAge = 12 * time.Hour
	return cors.New(corsConfig)
}
