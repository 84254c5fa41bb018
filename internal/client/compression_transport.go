package client

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

// compressionTransport wraps an http.RoundTripper to automatically handle
// response decompression for gzip, brotli, and zstd encodings.
type compressionTransport struct {
	transport http.RoundTripper
}

func newCompressionTransport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &compressionTransport{transport: base}
}

// RoundTrip executes a single HTTP transaction, advertising supported
// encodings and decompressing the response transparently.
func (t *compressionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clone to avoid mutating the caller's request.
	req = cloneRequest(req)

	if req.Header.Get("Accept-Encoding") == "" {
		req.Header.Set("Accept-Encoding", "gzip, br, zstd")
	}

	resp, err := t.transport.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	// Nothing to decompress for HEAD, 204, 304 responses.
	if resp.Body == nil || resp.Body == http.NoBody {
		return resp, nil
	}

	encoding := parseContentEncoding(resp.Header.Get("Content-Encoding"))
	if encoding == "" {
		return resp, nil
	}

	var reader io.ReadCloser
	switch encoding {
	case "gzip":
		reader, err = gzip.NewReader(resp.Body)
		if err != nil {
			resp.Body.Close()
			return nil, err
		}
	case "br":
		reader = io.NopCloser(brotli.NewReader(resp.Body))
	case "zstd":
		zr, err := zstd.NewReader(resp.Body)
		if err != nil {
			resp.Body.Close()
			return nil, err
		}
		reader = zr.IOReadCloser()
	default:
		// Unknown encoding, return response as-is.
		return resp, nil
	}

	resp.Body = &decompressReadCloser{
		reader:       reader,
		originalBody: resp.Body,
	}

	// The decompressed body invalidates these.
	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1

	return resp, nil
}

// decompressReadCloser closes both the decompressor and the original body.
type decompressReadCloser struct {
	reader       io.ReadCloser
	originalBody io.ReadCloser
}

func (d *decompressReadCloser) Read(p []byte) (int, error) {
	return d.reader.Read(p)
}

func (d *decompressReadCloser) Close() error {
	readerErr := d.reader.Close()
	bodyErr := d.originalBody.Close()

	if readerErr != nil {
		return readerErr
	}
	return bodyErr
}

// cloneRequest creates a shallow copy of the request with deep-copied headers.
func cloneRequest(req *http.Request) *http.Request {
	r := new(http.Request)
	*r = *req

	r.Header = make(http.Header, len(req.Header))
	for k, v := range req.Header {
		r.Header[k] = append([]string(nil), v...)
	}

	return r
}

// parseContentEncoding extracts the outermost encoding from a
// Content-Encoding header, handling comma-separated lists and whitespace.
func parseContentEncoding(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}

	// The last listed encoding was applied last and must be removed first.
	parts := strings.Split(header, ",")
	return strings.ToLower(strings.TrimSpace(parts[len(parts)-1]))
}
