package providers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Timeouts bound provider calls. Uploads get the longer limit.
type Timeouts struct {
	Upload  time.Duration
	Request time.Duration
}

func (t Timeouts) withDefaults() Timeouts {
	if t.Upload <= 0 {
		t.Upload = 2 * time.Minute
	}
	if t.Request <= 0 {
		t.Request = 30 * time.Second
	}
	return t
}

func newRestyClient(baseURL string) *resty.Client {
	return resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Accept", "application/json")
}

// errorBody covers the two error shapes providers answer with:
// {"error": "message"} and {"error": {"reason": "...", "details": "..."}}.
type errorBody struct {
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
}

type errorDetail struct {
	Reason  string `json:"reason"`
	Details string `json:"details"`
}

// toError converts a non-2xx response into *Error, taking the message from the body's
// error field when present.
func toError(provider string, resp *resty.Response) *Error {
	e := &Error{
		Provider:   provider,
		StatusCode: resp.StatusCode(),
		Raw:        resp.Body(),
		Message:    http.StatusText(resp.StatusCode()),
	}

	var body errorBody
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		if text := strings.TrimSpace(string(resp.Body())); text != "" && len(text) < 512 {
			e.Message = text
		}
		return e
	}

	var text string
	if err := json.Unmarshal(body.Error, &text); err == nil && text != "" {
		e.Message = text
		return e
	}

	var detail errorDetail
	if err := json.Unmarshal(body.Error, &detail); err == nil && (detail.Reason != "" || detail.Details != "") {
		e.Message = strings.TrimSpace(strings.Trim(detail.Reason+": "+detail.Details, ": "))
		return e
	}

	if body.Message != "" {
		e.Message = body.Message
	}
	return e
}

// transportError wraps a failed round trip (DNS, refused connection, timeout).
func transportError(provider string, err error) *Error {
	return &Error{Provider: provider, Message: err.Error()}
}

// cancelOnClose releases a request context once the streamed body is closed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

// countingReader tracks how many bytes were sent to the provider.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
