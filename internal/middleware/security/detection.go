package security

import (
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/gin-gonic/gin"

	"spendsync/internal/log"
)

var suspiciousPatterns = []string{
	"../", "..\\", ".env", "wp-admin", "phpmyadmin",
	"admin.php", "config.php", ".git", ".ssh",
	"eval(", "javascript:", "<script", "union select",
	"etc/passwd", "cmd.exe",
}

var unusualMethods = []string{"TRACE", "TRACK", "DEBUG", "CONNECT"}

// Detector flags probing requests. Flagged requests are logged and counted;
// only unusual methods and path traversal are rejected.
type Detector struct {
	logger     *log.Logger
	suspicious atomic.Int64
}

func NewDetector(logger *log.Logger) *Detector {
	return &Detector{logger: logger.WithComponent(log.ComponentSecurity)}
}

// Inspect reports whether r looks like a probe and whether it must be
// rejected outright.
func (d *Detector) Inspect(r *http.Request) (suspicious, reject bool) {
	for _, m := range unusualMethods {
		if r.Method == m {
			return true, true
		}
	}
	if strings.Contains(r.URL.Path, "../") || strings.Contains(r.URL.Path, "..\\") {
		return true, true
	}

	path := strings.ToLower(r.URL.Path)
	query := strings.ToLower(r.URL.RawQuery)
	for _, p := range suspiciousPatterns {
		if strings.Contains(path, p) || strings.Contains(query, p) {
			return true, false
		}
	}
	if len(r.URL.String()) > 2048 {
		return true, false
	}
	return false, false
}

// Suspicious returns how many requests were flagged so far.
func (d *Detector) Suspicious() int64 {
	return d.suspicious.Load()
}

func (d *Detector) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		suspicious, reject := d.Inspect(c.Request)
		if suspicious {
			d.suspicious.Add(1)
			d.logger.WarnContext(c.Request.Context(), "Suspicious request",
				log.FieldMethod, c.Request.Method,
				log.FieldPath, c.Request.URL.Path,
				log.FieldClientIP, c.ClientIP(),
				log.FieldUserAgent, c.Request.UserAgent())
		}
		if reject {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"success": false, "error": "Bad request"})
			return
		}
		c.Next()
	}
}
