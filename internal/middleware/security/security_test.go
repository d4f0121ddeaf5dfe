package security

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"spendsync/internal/log"
)

func TestDetectorInspect(t *testing.T) {
	d := NewDetector(log.Discard())

	tests := []struct {
		name       string
		method     string
		target     string
		suspicious bool
		reject     bool
	}{
		{"plain api call", http.MethodGet, "/api/expenses", false, false},
		{"dotenv probe", http.MethodGet, "/.env", true, false},
		{"sql in query", http.MethodGet, "/api/expenses?q=1%20union%20select", true, false},
		{"trace method", "TRACE", "/api/expenses", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, r := d.Inspect(httptest.NewRequest(tt.method, tt.target, nil))
			if s != tt.suspicious || r != tt.reject {
				t.Fatalf("Inspect = (%v, %v), want (%v, %v)", s, r, tt.suspicious, tt.reject)
			}
		})
	}
}

func TestHeadersAndDetectorMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	d := NewDetector(log.Discard())

	r := gin.New()
	r.Use(Headers(DefaultHeadersConfig()), d.Middleware())
	r.Any("/*path", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/.git/config", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("flagged requests are not rejected, got %d", w.Code)
	}
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("missing nosniff header, got %q", got)
	}
	if w.Header().Get("Strict-Transport-Security") != "" {
		t.Fatal("HSTS must not be sent over plain HTTP")
	}
	if d.Suspicious() != 1 {
		t.Fatalf("expected one flagged request, got %d", d.Suspicious())
	}
}
