package middleware

import (
	"context"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dperrym/ipsentry/internal/logger"
	"github.com/dperrym/ipsentry/internal/metrics"
	"github.com/dperrym/ipsentry/internal/services"
)

// Context keys the gate sets for the recorder.
const (
	ContextClientIP = "ipsentry_client_ip"
	ContextRoutable = "ipsentry_client_routable"
)

const deniedBody = "Access denied: IP address is blocked"

// IPGate is the pre-handler stage: it resolves the client address and denies
// the request outright when the address is denylisted. On allow it attaches
// the resolved address and its routability to the context so the recorder
// never re-derives them.
//
// A denylist store error fails closed unless failOpen is set: the request is
// aborted with a server error rather than let through unchecked.
func IPGate(blocklist *services.BlockListService, failOpen bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		if clientIP == "" {
			clientIP = "127.0.0.1"
		}

		metrics.IncGateRequest()

		blocked, err := blocklist.IsBlocked(c.Request.Context(), clientIP)
		if err != nil {
			if failOpen {
				logger.WithFields(map[string]interface{}{"ip": clientIP, "error": err.Error()}).
					Warn("block check failed, allowing request (fail-open configured)")
			} else {
				logger.WithFields(map[string]interface{}{"ip": clientIP, "error": err.Error()}).
					Error("block check failed, denying request")
				_ = c.Error(err)
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
		}

		if blocked {
			logger.WithFields(map[string]interface{}{"ip": clientIP, "path": c.Request.URL.Path}).
				Warn("blocked request from denylisted IP")
			metrics.IncGateDenied()
			c.String(http.StatusForbidden, deniedBody)
			c.Abort()
			return
		}

		c.Set(ContextClientIP, clientIP)
		c.Set(ContextRoutable, isRoutable(clientIP))
		c.Next()
	}
}

// RequestRecorder is the post-handler stage: once the downstream handler has
// produced its response for an allowed request, it persists one request-log
// entry. Failures are logged and never alter the response.
func RequestRecorder(logs *services.RequestLogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Absent key means the gate denied the request or never ran.
		clientIP, ok := c.Get(ContextClientIP)
		if !ok {
			return
		}

		in := services.RecordInput{
			IPAddress: clientIP.(string),
			Path:      c.Request.URL.Path,
			Method:    c.Request.Method,
			UserAgent: c.Request.UserAgent(),
		}

		// Recording outlives the client connection; the request context may
		// already be cancelled once the response has gone out.
		if err := logs.Record(context.Background(), in); err != nil {
			logger.WithFields(map[string]interface{}{"ip": in.IPAddress, "path": in.Path, "error": err.Error()}).
				Error("failed to log request")
			return
		}

		logger.WithFields(map[string]interface{}{"ip": in.IPAddress, "path": in.Path}).
			Debug("logged request")
	}
}

// isRoutable reports whether ipAddress is a public, globally routable address.
func isRoutable(ipAddress string) bool {
	ip := net.ParseIP(ipAddress)
	if ip == nil {
		return false
	}
	return !(ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsUnspecified())
}
