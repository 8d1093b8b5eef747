package middleware

import (
	"github.com/gin-gonic/gin"
	servertiming "github.com/mitchellh/go-server-timing"
)

// ServerTiming puts a Server-Timing header in the request context. Metrics
// started with telemetry.StartServerTiming are emitted when the response
// header is written.
func ServerTiming() gin.HandlerFunc {
	return func(c *gin.Context) {
		var timing servertiming.Header
		c.Request = c.Request.WithContext(servertiming.NewContext(c.Request.Context(), &timing))
		c.Writer = &timingWriter{ResponseWriter: c.Writer, timing: &timing}
		c.Next()
	}
}

type timingWriter struct {
	gin.ResponseWriter
	timing  *servertiming.Header
	flushed bool
}

func (w *timingWriter) setHeader() {
	if w.flushed || w.ResponseWriter.Written() {
		return
	}
	w.flushed = true
	if value := w.timing.String(); value != "" {
		w.Header().Set(servertiming.HeaderKey, value)
	}
}

func (w *timingWriter) WriteHeaderNow() {
	w.setHeader()
	w.ResponseWriter.WriteHeaderNow()
}

func (w *timingWriter) Write(data []byte) (int, error) {
	w.setHeader()
	return w.ResponseWriter.Write(data)
}

func (w *timingWriter) WriteString(s string) (int, error) {
	w.setHeader()
	return w.ResponseWriter.WriteString(s)
}
