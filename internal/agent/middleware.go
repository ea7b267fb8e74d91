package agent

import (
	"time"

	"github.com/corralhq/corral/internal/logging"
	"github.com/gin-gonic/gin"
)

// HeaderNode is the response header carrying the name of the node that
// served the request. Fan-out callers hit many agents with identical
// requests, so each response identifies the agent that actually answered.
const HeaderNode = "X-Corral-Node"

// requestLogger records each agent API request through structured logging.
// The peer address and user agent distinguish corralctl invocations from
// daemon-to-daemon exec and stderr traffic.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logging.Info("%s %s -> %d in %v (peer=%s via %q)",
			c.Request.Method,
			c.Request.URL.Path,
			c.Writer.Status(),
			time.Since(start),
			c.ClientIP(),
			c.Request.UserAgent(),
		)
	}
}

// nodeIdentity stamps the serving node's name on every response.
func (s *Server) nodeIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header(HeaderNode, s.nodeName)
		c.Next()
	}
}
