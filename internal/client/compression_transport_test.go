package client

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/andybalholm/brotli"
)

func TestCompressionTransportGzip(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept-Encoding") == "" {
			t.Error("Accept-Encoding header not advertised")
		}
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		_, _ = gz.Write([]byte("compressed caption body"))
		_ = gz.Close()
	}))
	defer server.Close()

	client := &http.Client{Transport: newCompressionTransport(nil)}
	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(body) != "compressed caption body" {
		t.Errorf("body = %q, want the decompressed payload", body)
	}
	if resp.Header.Get("Content-Encoding") != "" {
		t.Error("Content-Encoding header must be stripped after decompression")
	}
}

func TestCompressionTransportBrotli(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "br")
		br := brotli.NewWriter(w)
		_, _ = br.Write([]byte("brotli payload"))
		_ = br.Close()
	}))
	defer server.Close()

	client := &http.Client{Transport: newCompressionTransport(nil)}
	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(body) != "brotli payload" {
		t.Errorf("body = %q, want the decompressed payload", body)
	}
}

func TestParseContentEncoding(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"empty", "", ""},
		{"plain gzip", "gzip", "gzip"},
		{"uppercase", "GZIP", "gzip"},
		{"whitespace", "  br  ", "br"},
		{"list takes outermost", "gzip, br", "br"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := parseContentEncoding(tt.header); got != tt.want {
				t.Errorf("parseContentEncoding(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}
