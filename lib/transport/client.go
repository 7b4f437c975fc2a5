package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/pthm/suit"
)

// FormField is the form key carrying the JSON-encoded request data.
const FormField = "json"

// Client sends requests whose responses feed the runtime.
type Client struct {
	d Dispatcher
	s *settings
}

// NewClient creates a client dispatching to d.
func NewClient(d Dispatcher, opts ...Option) *Client {
	return &Client{d: d, s: newSettings(opts)}
}

// CallOption configures a single request.
type CallOption func(*call)

type call struct {
	then     func(suit.Completion) bool
	suppress Suppress
}

// Then runs fn with the completion before it is broadcast. Returning false
// keeps it off the runtime bus.
func Then(fn func(suit.Completion) bool) CallOption {
	return func(c *call) {
		c.then = fn
	}
}

// SuppressIf is WithSuppress for one request.
func SuppressIf(fn Suppress) CallOption {
	return func(c *call) {
		c.suppress = fn
	}
}

// File is an upload part.
type File struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// Post sends data JSON-encoded in the "json" form field and decodes the
// JSON response.
//
//	c, err := client.Post(ctx, "/cart/add", map[string]any{"sku": "A1"})
func (c *Client) Post(ctx context.Context, target string, data any, opts ...CallOption) (suit.Completion, error) {
	encoded, err := json.Marshal(data)
	if err != nil {
		return suit.Completion{}, c.fail(target, fmt.Errorf("encode request: %w", err))
	}
	form := url.Values{FormField: {string(encoded)}}
	return c.do(ctx, target, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()), opts)
}

// Upload sends fields as multipart/form-data. File values become file
// parts, strings are sent as-is, anything else JSON-encoded.
func (c *Client) Upload(ctx context.Context, target string, fields map[string]any, opts ...CallOption) (suit.Completion, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := writePart(mw, k, fields[k]); err != nil {
			return suit.Completion{}, c.fail(target, fmt.Errorf("encode field %q: %w", k, err))
		}
	}
	if err := mw.Close(); err != nil {
		return suit.Completion{}, c.fail(target, err)
	}
	return c.do(ctx, target, mw.FormDataContentType(), &buf, opts)
}

func writePart(mw *multipart.Writer, key string, v any) error {
	switch val := v.(type) {
	case File:
		return writeFile(mw, key, &val)
	case *File:
		return writeFile(mw, key, val)
	case string:
		return mw.WriteField(key, val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return err
		}
		return mw.WriteField(key, string(b))
	}
}

func writeFile(mw *multipart.Writer, key string, f *File) error {
	w, err := mw.CreateFormFile(key, f.Name)
	if err != nil {
		return err
	}
	if f.Body == nil {
		return nil
	}
	_, err = io.Copy(w, f.Body)
	return err
}

func (c *Client) do(ctx context.Context, target, contentType string, body io.Reader, opts []CallOption) (suit.Completion, error) {
	var cl call
	for _, opt := range opts {
		opt(&cl)
	}

	if c.s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.s.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, body)
	if err != nil {
		return suit.Completion{}, c.fail(target, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.s.httpClient.Do(req)
	if err != nil {
		return suit.Completion{}, c.fail(target, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return suit.Completion{}, c.fail(target, fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return suit.Completion{}, c.fail(target, fmt.Errorf("status %d", resp.StatusCode))
	}

	comp, err := suit.ParseCompletion(payload)
	if err != nil {
		return suit.Completion{}, c.fail(target, err)
	}

	c.s.logger.Debug("request completed", zap.String("url", target), zap.Int("status", resp.StatusCode))
	c.deliver(comp, cl)
	return comp, nil
}

func (c *Client) deliver(comp suit.Completion, cl call) {
	if cl.then != nil && !cl.then(comp) {
		return
	}
	if cl.suppress != nil && cl.suppress(comp) {
		return
	}
	if c.s.suppress != nil && c.s.suppress(comp) {
		return
	}
	c.d.Complete(comp)
}

// fail publishes err and returns it wrapped in suit.ErrTransport.
func (c *Client) fail(target string, err error) error {
	wrapped := fmt.Errorf("%w: %s: %v", suit.ErrTransport, target, err)
	c.s.logger.Warn("request failed", zap.String("url", target), zap.Error(err))
	c.d.Fail(suit.Error{Type: suit.ErrorTypeUnknown, Data: wrapped})
	return wrapped
}
