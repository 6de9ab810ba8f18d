package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// Kind names a remote storage backend. The set is closed; New switches over it.
type Kind string

const (
	KindPinata  Kind = "pinata"
	KindArweave Kind = "arweave"
)

// Kinds lists every supported backend in display order.
var Kinds = []Kind{KindPinata, KindArweave}

var (
	ErrUnknownProvider  = errors.New("unknown storage provider")
	ErrProviderDisabled = errors.New("storage provider disabled")
	ErrContentNotFound  = errors.New("content not found on provider")
)

// ParseKind resolves a provider name case-insensitively.
func ParseKind(name string) (Kind, error) {
	kind := Kind(strings.ToLower(strings.TrimSpace(name)))
	for _, k := range Kinds {
		if k == kind {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProvider, name)
}

// UploadMetadata is attached to uploads so remote content can be traced back.
type UploadMetadata struct {
	Filename  string
	MimeType  string
	UserID    uint
	FileID    uint
	AttemptID string
}

// Receipt is the typed projection of a successful upload response.
type Receipt struct {
	ContentHash string
	RemoteURL   string
	Size        int64
	Timestamp   *time.Time
	Raw         []byte
}

type ConnectionStatus struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Client talks to one remote storage backend. Implementations hold only static
// configuration and are safe for concurrent use.
type Client interface {
	Upload(ctx context.Context, content io.Reader, meta UploadMetadata) (*Receipt, error)

	// Fetch returns ErrContentNotFound when the provider does not have the content.
	Fetch(ctx context.Context, contentHash string) (io.ReadCloser, error)

	// Remove is idempotent: removing missing content, or content on a permanent
	// backend, reports true.
	Remove(ctx context.Context, contentHash string) (bool, error)

	TestConnection(ctx context.Context) ConnectionStatus
	IsConfigured() bool
	MaxFileSize() int64
	Name() string
	Permanent() bool
	GatewayURL(contentHash string) string
}

// Error is returned when a provider call fails or answers with a non-2xx status.
type Error struct {
	Provider   string
	StatusCode int
	Message    string
	Raw        []byte
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}
