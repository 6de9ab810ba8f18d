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

// PinataClient pins files on IPFS through the Pinata pinning API.
type PinataClient struct {
	cfg      config.PinataConfig
	api      *resty.Client
	gateway  *resty.Client
	timeouts Timeouts
	log      logger.Logger
}

type pinataPinResponse struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

type pinataMetadata struct {
	Name      string            `json:"name"`
	KeyValues map[string]string `json:"keyvalues"`
}

func NewPinataClient(cfg config.PinataConfig, timeouts Timeouts, log logger.Logger) *PinataClient {
	return &PinataClient{
		cfg:      cfg,
		api:      newRestyClient(cfg.APIURL),
		gateway:  newRestyClient(cfg.GatewayURL),
		timeouts: timeouts.withDefaults(),
		log:      log.WithField("provider", string(KindPinata)),
	}
}

func (p *PinataClient) Name() string       { return string(KindPinata) }
func (p *PinataClient) Permanent() bool    { return false }
func (p *PinataClient) MaxFileSize() int64 { return p.cfg.MaxFileSize }

// IsConfigured reports whether either a JWT or a key pair is present.
func (p *PinataClient) IsConfigured() bool {
	return p.cfg.JWT != "" || (p.cfg.APIKey != "" && p.cfg.SecretKey != "")
}

func (p *PinataClient) GatewayURL(contentHash string) string {
	return fmt.Sprintf("%s/ipfs/%s", strings.TrimRight(p.cfg.GatewayURL, "/"), contentHash)
}

func (p *PinataClient) authorize(req *resty.Request) *resty.Request {
	if p.cfg.JWT != "" {
		return req.SetAuthToken(p.cfg.JWT)
	}
	return req.
		SetHeader("pinata_api_key", p.cfg.APIKey).
		SetHeader("pinata_secret_api_key", p.cfg.SecretKey)
}

func (p *PinataClient) Upload(ctx context.Context, content io.Reader, meta UploadMetadata) (*Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeouts.Upload)
	defer cancel()

	metadataJSON, err := json.Marshal(pinataMetadata{
		Name: meta.Filename,
		KeyValues: map[string]string{
			"user_id":           strconv.FormatUint(uint64(meta.UserID), 10),
			"file_id":           strconv.FormatUint(uint64(meta.FileID), 10),
			"attempt_id":        meta.AttemptID,
			"original_filename": meta.Filename,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode pinata metadata: %w", err)
	}

	counter := &countingReader{r: content}
	resp, err := p.authorize(p.api.R()).
		SetContext(ctx).
		SetFileReader("file", meta.Filename, counter).
		SetMultipartFormData(map[string]string{
			"pinataMetadata": string(metadataJSON),
			"pinataOptions":  `{"cidVersion":1}`,
		}).
		Post("/pinning/pinFileToIPFS")
	if err != nil {
		return nil, transportError(p.Name(), err)
	}
	if resp.IsError() {
		return nil, toError(p.Name(), resp)
	}

	var out pinataPinResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil || out.IpfsHash == "" {
		return nil, &Error{Provider: p.Name(), StatusCode: resp.StatusCode(), Message: "response did not contain an IpfsHash", Raw: resp.Body()}
	}

	receipt := &Receipt{
		ContentHash: out.IpfsHash,
		RemoteURL:   p.GatewayURL(out.IpfsHash),
		Size:        out.PinSize,
		Raw:         resp.Body(),
	}
	if receipt.Size == 0 {
		receipt.Size = counter.n
	}
	if ts, err := time.Parse(time.RFC3339, out.Timestamp); err == nil {
		receipt.Timestamp = &ts
	}

	p.log.WithFields(map[string]interface{}{
		"cid":        out.IpfsHash,
		"file_id":    meta.FileID,
		"attempt_id": meta.AttemptID,
	}).Info("File pinned to IPFS")

	return receipt, nil
}

func (p *PinataClient) Fetch(ctx context.Context, contentHash string) (io.ReadCloser, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeouts.Upload)

	resp, err := p.gateway.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get("/ipfs/" + contentHash)
	if err != nil {
		cancel()
		return nil, transportError(p.Name(), err)
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
		return nil, &Error{Provider: p.Name(), StatusCode: resp.StatusCode(), Message: "gateway fetch failed"}
	}

	return &cancelOnClose{ReadCloser: body, cancel: cancel}, nil
}

// Remove unpins content. Content that is already unpinned counts as removed.
func (p *PinataClient) Remove(ctx context.Context, contentHash string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeouts.Request)
	defer cancel()

	resp, err := p.authorize(p.api.R()).
		SetContext(ctx).
		Delete("/pinning/unpin/" + contentHash)
	if err != nil {
		return false, transportError(p.Name(), err)
	}

	if resp.StatusCode() == http.StatusNotFound {
		p.log.WithField("cid", contentHash).Info("Content already unpinned")
		return true, nil
	}
	if resp.IsError() {
		return false, toError(p.Name(), resp)
	}

	p.log.WithField("cid", contentHash).Info("Content unpinned")
	return true, nil
}

func (p *PinataClient) TestConnection(ctx context.Context) ConnectionStatus {
	if !p.IsConfigured() {
		return ConnectionStatus{OK: false, Message: "pinata credentials are not configured"}
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeouts.Request)
	defer cancel()

	resp, err := p.authorize(p.api.R()).
		SetContext(ctx).
		Get("/data/testAuthentication")
	if err != nil {
		return ConnectionStatus{OK: false, Message: err.Error()}
	}
	if resp.IsError() {
		return ConnectionStatus{OK: false, Message: toError(p.Name(), resp).Message}
	}

	return ConnectionStatus{OK: true, Message: "authenticated with pinata"}
}
