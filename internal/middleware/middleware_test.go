package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRateLimiterAllow(t *testing.T) {
	now := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("expected the first two requests to pass")
	}
	if rl.Allow("a") {
		t.Error("expected the third request to be limited")
	}
	if !rl.Allow("b") {
		t.Error("expected another key to have its own bucket")
	}

	now = now.Add(59 * time.Second)
	if rl.Allow("a") {
		t.Error("expected no refill before a whole interval")
	}

	now = now.Add(time.Second)
	if !rl.Allow("a") {
		t.Error("expected a refill after one interval")
	}
}

func TestRateLimiterMiddleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	r := gin.New()
	r.GET("/", rl.Middleware(), func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	codes := make([]int, 0, 2)
	for range 2 {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Errorf("unexpected status codes %v", codes)
	}
}

func brotliEngine(body string) *gin.Engine {
	r := gin.New()
	r.Use(BrotliWithConfig(BrotliConfig{Quality: 4, MinLength: 64}))
	r.GET("/", func(c *gin.Context) {
		// Two writes: the second one lands after compression has started.
		c.Writer.WriteString(body)
		c.Writer.WriteString("tail")
	})
	return r
}

func TestBrotliCompressesLargeBodies(t *testing.T) {
	body := strings.Repeat("exam portal ", 20)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip, br;q=0.9")
	w := httptest.NewRecorder()
	brotliEngine(body).ServeHTTP(w, req)

	if got := w.Header().Get("Content-Encoding"); got != "br" {
		t.Fatalf("expected br encoding, got %q", got)
	}
	plain, err := io.ReadAll(brotli.NewReader(bytes.NewReader(w.Body.Bytes())))
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if string(plain) != body+"tail" {
		t.Errorf("unexpected body %q", plain)
	}
}

func TestBrotliLeavesSmallBodies(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "br")
	w := httptest.NewRecorder()
	brotliEngine("short").ServeHTTP(w, req)

	if got := w.Header().Get("Content-Encoding"); got != "" {
		t.Errorf("expected no encoding, got %q", got)
	}
	if w.Body.String() != "shorttail" {
		t.Errorf("unexpected body %q", w.Body.String())
	}
}

func TestBrotliSkipsWithoutAcceptEncoding(t *testing.T) {
	body := strings.Repeat("x", 200)
	w := httptest.NewRecorder()
	brotliEngine(body).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Header().Get("Content-Encoding") != "" || w.Body.String() != body+"tail" {
		t.Errorf("expected an untouched response")
	}
}

func TestBrotliStaysPlainAfterEarlyFlush(t *testing.T) {
	r := gin.New()
	r.Use(BrotliWithConfig(BrotliConfig{MinLength: 64}))
	big := strings.Repeat("y", 200)
	r.GET("/", func(c *gin.Context) {
		c.Writer.WriteString("event: status\n")
		c.Writer.Flush()
		c.Writer.WriteString(big)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "br")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get("Content-Encoding"); got != "" {
		t.Errorf("expected no encoding after an early flush, got %q", got)
	}
	if w.Body.String() != "event: status\n"+big {
		t.Errorf("unexpected body %q", w.Body.String())
	}
}

func TestNoStore(t *testing.T) {
	r := gin.New()
	r.GET("/", NoStore(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Header().Get("Cache-Control") != "no-store" || w.Header().Get("Pragma") != "no-cache" {
		t.Errorf("unexpected headers %v", w.Header())
	}
}
