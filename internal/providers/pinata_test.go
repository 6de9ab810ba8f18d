package providers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/securedocs/backend/config"
	"github.com/securedocs/backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPinata(t *testing.T, handler http.HandlerFunc) *PinataClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewPinataClient(config.PinataConfig{
		Enabled:     true,
		APIURL:      srv.URL,
		GatewayURL:  srv.URL,
		JWT:         "test-jwt",
		MaxFileSize: 1024,
	}, Timeouts{Upload: 5 * time.Second, Request: 5 * time.Second}, logger.NewNopLogger())
}

func TestPinataUpload(t *testing.T) {
	client := newTestPinata(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/pinning/pinFileToIPFS", r.URL.Path)
		assert.Equal(t, "Bearer test-jwt", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		body, _ := io.ReadAll(file)
		assert.Equal(t, "hello pinata", string(body))
		assert.Equal(t, "notes.txt", header.Filename)

		var meta pinataMetadata
		require.NoError(t, json.Unmarshal([]byte(r.FormValue("pinataMetadata")), &meta))
		assert.Equal(t, "7", meta.KeyValues["file_id"])
		assert.Equal(t, "attempt-1", meta.KeyValues["attempt_id"])
		assert.JSONEq(t, `{"cidVersion":1}`, r.FormValue("pinataOptions"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"IpfsHash":"bafytest","PinSize":12,"Timestamp":"2024-05-01T10:00:00Z"}`))
	})

	receipt, err := client.Upload(context.Background(), strings.NewReader("hello pinata"), UploadMetadata{
		Filename:  "notes.txt",
		MimeType:  "text/plain",
		UserID:    3,
		FileID:    7,
		AttemptID: "attempt-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "bafytest", receipt.ContentHash)
	assert.True(t, strings.HasSuffix(receipt.RemoteURL, "/ipfs/bafytest"))
	assert.Equal(t, int64(12), receipt.Size)
	require.NotNil(t, receipt.Timestamp)
	assert.Equal(t, 2024, receipt.Timestamp.Year())
	assert.Contains(t, string(receipt.Raw), "bafytest")
}

func TestPinataUploadErrorMessage(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{
			name:    "string error",
			status:  http.StatusUnauthorized,
			body:    `{"error":"Invalid API key"}`,
			message: "Invalid API key",
		},
		{
			name:    "structured error",
			status:  http.StatusBadRequest,
			body:    `{"error":{"reason":"INVALID_FILE","details":"file is empty"}}`,
			message: "INVALID_FILE: file is empty",
		},
		{
			name:    "plain text body",
			status:  http.StatusBadGateway,
			body:    `upstream unavailable`,
			message: "upstream unavailable",
		},
		{
			name:    "empty body",
			status:  http.StatusInternalServerError,
			body:    ``,
			message: "Internal Server Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestPinata(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.Upload(context.Background(), strings.NewReader("x"), UploadMetadata{Filename: "x.txt"})
			require.Error(t, err)

			var perr *Error
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.status, perr.StatusCode)
			assert.Equal(t, tt.message, perr.Message)
			assert.Equal(t, "pinata", perr.Provider)
		})
	}
}

func TestPinataRemove(t *testing.T) {
	t.Run("unpinned", func(t *testing.T) {
		client := newTestPinata(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodDelete, r.Method)
			assert.Equal(t, "/pinning/unpin/bafytest", r.URL.Path)
			w.WriteHeader(http.StatusOK)
		})
		ok, err := client.Remove(context.Background(), "bafytest")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("already gone", func(t *testing.T) {
		client := newTestPinata(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
		ok, err := client.Remove(context.Background(), "bafytest")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("provider error", func(t *testing.T) {
		client := newTestPinata(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		ok, err := client.Remove(context.Background(), "bafytest")
		require.Error(t, err)
		assert.False(t, ok)
	})
}

func TestPinataFetch(t *testing.T) {
	client := newTestPinata(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ipfs/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("remote bytes"))
	})

	rc, err := client.Fetch(context.Background(), "bafytest")
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "remote bytes", string(body))

	_, err = client.Fetch(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrContentNotFound)
}

func TestPinataTestConnection(t *testing.T) {
	client := newTestPinata(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/testAuthentication", r.URL.Path)
		_, _ = w.Write([]byte(`{"message":"Congratulations! You are communicating with the Pinata API!"}`))
	})
	status := client.TestConnection(context.Background())
	assert.True(t, status.OK)

	unconfigured := NewPinataClient(config.PinataConfig{}, Timeouts{}, logger.NewNopLogger())
	assert.False(t, unconfigured.IsConfigured())
	assert.False(t, unconfigured.TestConnection(context.Background()).OK)
}

func TestPinataKeyPairAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.Equal(t, "key", r.Header.Get("pinata_api_key"))
		assert.Equal(t, "secret", r.Header.Get("pinata_secret_api_key"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewPinataClient(config.PinataConfig{
		APIURL:    srv.URL,
		APIKey:    "key",
		SecretKey: "secret",
	}, Timeouts{}, logger.NewNopLogger())

	assert.True(t, client.IsConfigured())
	assert.True(t, client.TestConnection(context.Background()).OK)
}
