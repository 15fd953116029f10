package fetch

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClientSendsIdentifyingHeaders(t *testing.T) {
	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	}))
	defer server.Close()

	client := NewClient("install", 0)
	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	resp.Body.Close()

	if ua := got.Get("User-Agent"); !strings.HasPrefix(ua, "gemstall/") {
		t.Fatalf("user agent: %q", ua)
	}
	if got.Get("X-Gemstall-Command") != "install" {
		t.Fatalf("command header: %q", got.Get("X-Gemstall-Command"))
	}
	if platform := got.Get("X-Gemstall-Platform"); !strings.Contains(platform, "/") {
		t.Fatalf("platform header: %q", platform)
	}
}
