package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHeaders_DashboardAndChartPolicies(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig())
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {})

	rr := httptest.NewRecorder()
	h.Middleware(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	csp := rr.Header().Get("Content-Security-Policy")
	if !strings.Contains(csp, "https://unpkg.com") || strings.Contains(csp, "'unsafe-inline' "+ChartAssetsHost) {
		t.Fatalf("dashboard CSP = %q", csp)
	}
	if rr.Header().Get("X-Frame-Options") != "SAMEORIGIN" {
		t.Fatalf("X-Frame-Options = %q", rr.Header().Get("X-Frame-Options"))
	}
	if rr.Header().Get("Strict-Transport-Security") != "" {
		t.Fatal("HSTS must only be sent over TLS")
	}
	if rr.Header().Get("Cross-Origin-Embedder-Policy") != "" {
		t.Fatal("empty values are not sent")
	}

	rr = httptest.NewRecorder()
	h.Middleware(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/charts/product", nil))
	csp = rr.Header().Get("Content-Security-Policy")
	if !strings.Contains(csp, ChartAssetsHost) || !strings.Contains(csp, "'unsafe-inline'") {
		t.Fatalf("chart CSP = %q", csp)
	}
}

func TestHeaders_HSTSOverTLS(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.TLS = &tls.ConnectionState{}
	rr := httptest.NewRecorder()
	h.Middleware(http.NotFoundHandler()).ServeHTTP(rr, req)
	if got := rr.Header().Get("Strict-Transport-Security"); got != "max-age=31536000; includeSubDomains; preload" {
		t.Fatalf("HSTS = %q", got)
	}
}

func TestStaticAssetMiddleware(t *testing.T) {
	rr := httptest.NewRecorder()
	StaticAssetMiddleware(3600)(http.NotFoundHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/static/style.css", nil))
	if got := rr.Header().Get("Cache-Control"); got != "public, max-age=3600, immutable" {
		t.Fatalf("Cache-Control = %q", got)
	}
}

func TestDetectSuspiciousRequest(t *testing.T) {
	cases := []struct {
		name   string
		method string
		target string
		agent  string
		want   bool
	}{
		{"dashboard", http.MethodGet, "/?state=CO&state=TX&focus=CO", "Mozilla/5.0", false},
		{"traversal", http.MethodGet, "/static/../../etc/passwd", "", true},
		{"dotenv", http.MethodGet, "/.env", "", true},
		{"injection in query", http.MethodGet, "/?state=CO'%20union%20select", "", true},
		{"plus encoded injection", http.MethodGet, "/?state=CO'+UNION+SELECT+1", "", true},
		{"encoded script tag", http.MethodGet, "/?focus=%3Cscript%3Ealert(1)", "", true},
		{"undecodable query matched raw", http.MethodGet, "/?q=%zz&f=../config.php", "", true},
		{"undecodable query", http.MethodGet, "/?q=%zz", "", false},
		{"encoded state list", http.MethodGet, "/?state=CO%2CTX", "", false},
		{"scanner agent", http.MethodGet, "/", "sqlmap/1.7", true},
		{"trace method", "TRACE", "/", "", true},
		{"long url", http.MethodGet, "/?q=" + strings.Repeat("a", 2100), "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := NewDetector()
			req := httptest.NewRequest(tc.method, tc.target, nil)
			req.Header.Set("User-Agent", tc.agent)
			if got := d.DetectSuspiciousRequest(req); got != tc.want {
				t.Fatalf("DetectSuspiciousRequest = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDetectorMiddleware_RejectsUnusualMethods(t *testing.T) {
	d := NewDetector()
	flagged := 0
	h := d.Middleware(func(*http.Request) { flagged++ })(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("TRACE", "/", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("TRACE status = %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/wp-admin", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("flagged GET status = %d", rr.Code)
	}
	if flagged != 2 || d.GetMetrics().SuspiciousRequests != 2 {
		t.Fatalf("flagged = %d, metrics = %+v", flagged, d.GetMetrics())
	}
}

func TestExtractClientIP(t *testing.T) {
	d := NewDetector()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.5:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.5")
	if got := d.ExtractClientIP(req); got != "203.0.113.9" {
		t.Fatalf("behind trusted proxy: %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.7:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	if got := d.ExtractClientIP(req); got != "198.51.100.7" {
		t.Fatalf("untrusted peer must not be overridden: %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "127.0.0.1:80"
	req.Header.Set("X-Real-IP", "203.0.113.10")
	if got := d.ExtractClientIP(req); got != "203.0.113.10" {
		t.Fatalf("X-Real-IP: %q", got)
	}

	if err := d.AddTrustedProxy("not-a-cidr"); err == nil {
		t.Fatal("expected error for invalid CIDR")
	}
	if err := d.AddTrustedProxy("198.51.100.0/24"); err != nil {
		t.Fatal(err)
	}
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.7:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	if got := d.ExtractClientIP(req); got != "203.0.113.9" {
		t.Fatalf("added proxy: %q", got)
	}
}
