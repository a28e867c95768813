package document

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/crimson-sun/blotter/internal/httpclient"
)

// contentTypes maps extensions to the MIME types sent to Tika.
var contentTypes = map[string]string{
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".doc":  "application/msword",
	".txt":  "text/plain",
	".html": "text/html",
	".rtf":  "application/rtf",
	".odt":  "application/vnd.oasis.opendocument.text",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
}

// TikaExtensions lists the extensions a Tika server is registered for.
var TikaExtensions = []string{".pdf", ".docx", ".doc", ".rtf", ".odt", ".tif", ".tiff"}

// RegistryFor returns a registry reading plain text, plus the Tika formats
// when tikaURL is set.
func RegistryFor(tikaURL string, opts ...httpclient.Option) *Registry {
	reg := NewRegistry()
	if tikaURL == "" {
		return reg
	}
	tika := NewTika(tikaURL, opts...)
	for _, ext := range TikaExtensions {
		reg.Register(ext, tika)
	}
	return reg
}

// Tika extracts text through an Apache Tika server.
type Tika struct {
	client *httpclient.Client
}

// NewTika creates an extractor for the Tika server at serverURL.
func NewTika(serverURL string, opts ...httpclient.Option) *Tika {
	return &Tika{client: httpclient.New(strings.TrimRight(serverURL, "/"), "", opts...)}
}

// Extract PUTs the document to /tika and splits the plain-text reply into
// pages on form feeds.
func (t *Tika) Extract(ctx context.Context, name string, r io.Reader) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("tika: read %s: %w", name, err)
	}

	contentType, ok := contentTypes[strings.ToLower(filepath.Ext(name))]
	if !ok {
		contentType = "application/octet-stream"
	}
	header := http.Header{
		"Content-Type": {contentType},
		"Accept":       {"text/plain"},
	}

	text, err := t.client.Do(ctx, http.MethodPut, "/tika", data, header)
	if err != nil {
		return nil, fmt.Errorf("tika: extract %s: %w", name, err)
	}
	return SplitPages(string(text)), nil
}
