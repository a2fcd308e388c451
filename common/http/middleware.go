package http

import (
	"net/http"
	"time"

	"shmahjong/common/log"
)

// CorsMiddleware 跨域中间件，只放行配置中的来源
func CorsMiddleware(allowOrigins []string) MiddlewareFunc {
	allowed := make(map[string]struct{}, len(allowOrigins))
	for _, o := range allowOrigins {
		allowed[o] = struct{}{}
	}
	_, allowAll := allowed["*"]

	return func(c *Context) error {
		origin := c.GetHeader("Origin")
		if origin != "" {
			if _, ok := allowed[origin]; ok || allowAll {
				c.SetHeader("Access-Control-Allow-Origin", origin)
				c.SetHeader("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				c.SetHeader("Access-Control-Allow-Headers", "Origin, X-Requested-With, Content-Type, Accept, Authorization")
				c.SetHeader("Access-Control-Allow-Credentials", "true")
				c.SetHeader("Vary", "Origin")
			}
		}

		// 处理预检请求
		if c.Method() == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
		}
		return nil
	}
}

// LoggerMiddleware 请求日志
func LoggerMiddleware() MiddlewareFunc {
	return func(c *Context) error {
		start := time.Now()
		c.Next()
		log.Debug("HTTP %s %s %d from %s in %v", c.Method(), c.Path(), c.Status(), c.ClientIP(), time.Since(start))
		return nil
	}
}
