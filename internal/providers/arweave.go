package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/securedocs/backend/config"
	"github.com/securedocs/backend/pkg/logger"
)

const arweaveAppName = "SecureDocs"

// ArweaveClient stores files permanently on Arweave through an upload bundler.
// Content on Arweave cannot be deleted, so Remove is a no-op.
type ArweaveClient struct {
	cfg      config.ArweaveConfig
	bundler  *resty.Client
	gateway  *resty.Client
	timeouts Timeouts
	log      logger.Logger
}

type arweaveTag struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type arweaveUploadResponse struct {
	ID        string `json:"id"`
	Size      int64  `json:"size"`
	Timestamp int64  `json:"timestamp"`
}

func NewArweaveClient(cfg config.ArweaveConfig, timeouts Timeouts, log logger.Logger) *ArweaveClient {
	return &ArweaveClient{
		cfg:      cfg,
		bundler:  newRestyClient(cfg.BundlerURL),
		gateway:  newRestyClient(cfg.GatewayURL),
		timeouts: timeouts.withDefaults(),
		log:      log.WithField("provider", string(KindArweave)),
	}
}

func (a *ArweaveClient) Name() string       { return string(KindArweave) }
func (a *ArweaveClient) Permanent() bool    { return true }
func (a *ArweaveClient) MaxFileSize() int64 { return a.cfg.MaxFileSize }

func (a *ArweaveClient) IsConfigured() bool {
	return a.cfg.BundlerURL != "" && a.cfg.APIKey != ""
}

func (a *ArweaveClient) GatewayURL(contentHash string) string {
	return fmt.Sprintf("%s/%s", strings.TrimRight(a.cfg.GatewayURL, "/"), contentHash)
}

func (a *ArweaveClient) Upload(ctx context.Context, content io.Reader, meta UploadMetadata) (*Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeouts.Upload)
	defer cancel()

	contentType := meta.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	tags, err := json.Marshal(map[string][]arweaveTag{
		"tags": {
			{Name: "App-Name", Value: arweaveAppName},
			{Name: "Content-Type", Value: contentType},
			{Name: "File-Id", Value: strconv.FormatUint(uint64(meta.FileID), 10)},
			{Name: "User-Id", Value: strconv.FormatUint(uint64(meta.UserID), 10)},
			{Name: "Attempt-Id", Value: meta.AttemptID},
			{Name: "Original-Filename", Value: meta.Filename},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode arweave tags: %w", err)
	}

	counter := &countingReader{r: content}
	resp, err := a.bundler.R().
		SetContext(ctx).
		SetAuthToken(a.cfg.APIKey).
		SetFileReader("file", meta.Filename, counter).
		SetMultipartFormData(map[string]string{"metadata": string(tags)}).
		Post("/tx")
	if err != nil {
		return nil, transportError(a.Name(), err)
	}
	if resp.IsError() {
		return nil, toError(a.Name(), resp)
	}

	var out arweaveUploadResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil || out.ID == "" {
		return nil, &Error{Provider: a.Name(), StatusCode: resp.StatusCode(), Message: "response did not contain a transaction id", Raw: resp.Body()}
	}

	receipt := &Receipt{
		ContentHash: out.ID,
		RemoteURL:   a.GatewayURL(out.ID),
		Size:        out.Size,
		Raw:         resp.Body(),
	}
	if receipt.Size == 0 {
		receipt.Size = counter.n
	}
	if out.Timestamp > 0 {
		ts := time.UnixMilli(out.Timestamp).UTC()
		receipt.Timestamp = &ts
	}

	a.log.WithFields(map[string]interface{}{
		"tx_id":      out.ID,
		"file_id":    meta.FileID,
		"attempt_id": meta.AttemptID,
	}).Info("File stored on Arweave")

	return receipt, nil
}

func (a *ArweaveClient) Fetch(ctx context.Context, contentHash string) (io.ReadCloser, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeouts.Upload)

	resp, err := a.gateway.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get("/" + contentHash)
	if err != nil {
		cancel()
		return nil, transportError(a.Name(), err)
	}

	body := resp.RawBody()
	switch {
	case resp.StatusCode() == http.StatusNotFound:
		body.Close()
		cancel()
		return nil, ErrContentNotFound
	case resp.IsError():
		body.Close()
		cancel()
		return nil, &Error{Provider: a.Name(), StatusCode: resp.StatusCode(), Message: "gateway fetch failed"}
	}

	return &cancelOnClose{ReadCloser: body, cancel: cancel}, nil
}

// Remove always succeeds: Arweave storage is permanent.
func (a *ArweaveClient) Remove(_ context.Context, contentHash string) (bool, error) {
	a.log.WithField("tx_id", contentHash).Info("Arweave storage is permanent, removal is a no-op")
	return true, nil
}

func (a *ArweaveClient) TestConnection(ctx context.Context) ConnectionStatus {
	if !a.IsConfigured() {
		return ConnectionStatus{OK: false, Message: "arweave bundler url or api key is not configured"}
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeouts.Request)
	defer cancel()

	resp, err := a.bundler.R().
		SetContext(ctx).
		SetAuthToken(a.cfg.APIKey).
		Get("/info")
	if err != nil {
		return ConnectionStatus{OK: false, Message: err.Error()}
	}
	if resp.IsError() {
		return ConnectionStatus{OK: false, Message: toError(a.Name(), resp).Message}
	}

	return ConnectionStatus{OK: true, Message: "arweave bundler reachable"}
}
