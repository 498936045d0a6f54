package api

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
)

var errUploadTooLarge = errors.New("uploaded file is too large")

// readUpload reads a multipart file up to limit bytes and returns its media
// type. A missing or generic Content-Type header falls back to sniffing.
func readUpload(header *multipart.FileHeader, limit int64) ([]byte, string, error) {
	if header.Size > limit {
		return nil, "", errUploadTooLarge
	}

	f, err := header.Open()
	if err != nil {
		return nil, "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, "", errUploadTooLarge
	}
	if len(data) == 0 {
		return nil, "", errors.New("uploaded file is empty")
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, "", fmt.Errorf("invalid content type %q", contentType)
	}

	return data, mediaType, nil
}
