package storage

import (
	"errors"
	"strings"

	"github.com/minio/minio-go/v7"
)

// ErrObjectNotFound is returned by Fetch for missing keys.
var ErrObjectNotFound = errors.New("object not found")

// IsNoSuchKey reports whether err says the object does not exist.
func IsNoSuchKey(err error) bool {
	if err == nil {
		return false
	}

	var minioErr minio.ErrorResponse
	if errors.As(err, &minioErr) {
		switch strings.ToLower(strings.TrimSpace(minioErr.Code)) {
		case "nosuchkey", "notfound":
			return true
		}
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "nosuchkey") ||
		strings.Contains(lower, "specified key does not exist")
}
