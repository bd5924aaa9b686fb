package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func runRequestID(t *testing.T, inbound string) (header, ctxValue string) {
	t.Helper()
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxValue = RequestIDFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/v1/healthz", nil)
	if inbound != "" {
		req.Header.Set("X-Request-ID", inbound)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec.Header().Get("X-Request-ID"), ctxValue
}

func TestRequestIDGeneratesWhenMissing(t *testing.T) {
	header, ctxValue := runRequestID(t, "")
	if header == "" {
		t.Fatal("no X-Request-ID on response")
	}
	if header != ctxValue {
		t.Fatalf("header %q != context value %q", header, ctxValue)
	}
}

func TestRequestIDKeepsInboundID(t *testing.T) {
	header, ctxValue := runRequestID(t, "klient-42")
	if header != "klient-42" || ctxValue != "klient-42" {
		t.Fatalf("inbound id not kept: header %q, ctx %q", header, ctxValue)
	}
}

func TestRequestIDReplacesUnusableInboundID(t *testing.T) {
	cases := map[string]string{
		"too long":     strings.Repeat("x", 65),
		"control char": "abc\ndef",
		"non ascii":    "żądanie-1",
	}
	for name, inbound := range cases {
		t.Run(name, func(t *testing.T) {
			header, _ := runRequestID(t, inbound)
			if header == inbound || header == "" {
				t.Fatalf("unusable inbound id %q was kept as %q", inbound, header)
			}
		})
	}
}
