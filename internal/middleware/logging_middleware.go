package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/annel0/mmo-worldgen/internal/logging"
)

// RequestLogger пишет каждый HTTP-запрос в логгер компонента api
type RequestLogger struct {
	logger *logging.Logger
}

// NewRequestLogger создаёт middleware логирования запросов
func NewRequestLogger() *RequestLogger {
	return &RequestLogger{logger: logging.GetAPILogger()}
}

// Handler возвращает gin.HandlerFunc для router.Use()
func (rl *RequestLogger) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		rl.logger.Debug("%s %s -> %d (%v)",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
