package client

import (
	"bytes"
	"io"

	"golang.org/x/net/html/charset"
)

// decodeToUTF8 converts a caption body of unknown encoding to UTF-8.
// The encoding is detected from a byte order mark or heuristically;
// already-UTF-8 content passes through with minimal overhead.
func decodeToUTF8(body []byte) (string, error) {
	reader, err := charset.NewReader(bytes.NewReader(body), "")
	if err != nil {
		return "", err
	}
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}
