package services

import (
	"bytes"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
)

// InferContentType determines the content type from explicit header, file extension, or body sniffing.
func InferContentType(explicit string, bodyFile string, body []byte) string {
	if explicit != "" {
		return explicit
	}

	if bodyFile != "" {
		ext := strings.ToLower(filepath.Ext(bodyFile))
		switch ext {
		case ".json":
			return "application/json"
		case ".xml":
			return "application/xml"
		case ".html", ".htm":
			return "text/html"
		case ".txt":
			return "text/plain"
		case ".csv":
			return "text/csv"
		}
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return "application/octet-stream"
	}

	if (trimmed[0] == '{' || trimmed[0] == '[') && gjson.ValidBytes(trimmed) {
		return "application/json"
	}
	if bytes.HasPrefix(trimmed, []byte("<?xml")) {
		return "application/xml"
	}

	return http.DetectContentType(body)
}
