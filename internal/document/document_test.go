package document

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/blotter/internal/httpclient"
)

func TestSplitPages(t *testing.T) {
	assert.Equal(t, []string{"one"}, SplitPages("one"))
	assert.Equal(t, []string{"one", "two"}, SplitPages("one\ftwo"))
	assert.Equal(t, []string{"one", "two"}, SplitPages("one\ftwo\f\n"))
	assert.Equal(t, []string{""}, SplitPages(""))
}

func TestRegistryText(t *testing.T) {
	reg := NewRegistry()
	assert.True(t, reg.Supports("report.TXT"))
	assert.False(t, reg.Supports("report.pdf"))

	pages, err := reg.Extract(context.Background(), "report.txt", strings.NewReader("Report Number: 1\fResolution: NONE"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Report Number: 1", "Resolution: NONE"}, pages)

	_, err = reg.Extract(context.Background(), "report.pdf", strings.NewReader(""))
	assert.True(t, errors.Is(err, ErrUnsupported))
}

func TestRegistryExtensions(t *testing.T) {
	reg := NewRegistry()
	reg.Register("PDF", Text{})
	assert.Equal(t, []string{".pdf", ".txt"}, reg.Extensions())
}

func TestTikaExtract(t *testing.T) {
	var gotType, gotAccept, gotBody, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		gotAccept = r.Header.Get("Accept")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Write([]byte("Report Number: 230514-0042\fPolice District: SOUTHERN\f"))
	}))
	defer srv.Close()

	reg := RegistryFor(srv.URL + "/")

	pages, err := reg.Extract(context.Background(), "scan.pdf", strings.NewReader("%PDF-1.7"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Report Number: 230514-0042", "Police District: SOUTHERN"}, pages)
	assert.Equal(t, "/tika", gotPath)
	assert.Equal(t, "application/pdf", gotType)
	assert.Equal(t, "text/plain", gotAccept)
	assert.Equal(t, "%PDF-1.7", gotBody)
}

func TestTikaRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("text"))
	}))
	defer srv.Close()

	pages, err := NewTika(srv.URL, httpclient.WithRetries(2, 10*time.Millisecond)).
		Extract(context.Background(), "scan.odt", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, []string{"text"}, pages)
	assert.Equal(t, int32(2), calls.Load())
}

func TestTikaClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte("encrypted document"))
	}))
	defer srv.Close()

	_, err := NewTika(srv.URL).Extract(context.Background(), "scan.pdf", strings.NewReader("x"))
	var apiErr *httpclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
}

func TestRegistryForWithoutTika(t *testing.T) {
	reg := RegistryFor("")
	assert.Equal(t, []string{".txt"}, reg.Extensions())
	assert.False(t, reg.Supports("scan.pdf"))
}
