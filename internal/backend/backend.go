// Package backend is the REST transport for rooms and discussions: text
// messages, single-file media uploads and cursor-paginated history.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/zulandar/chatsync/internal/models"
	"golang.org/x/oauth2"
)

// DefaultTimeout bounds a single backend request.
const DefaultTimeout = 30 * time.Second

// Opts configures a Client.
type Opts struct {
	BaseURL string
	Token   string // bearer token
	Timeout time.Duration
	// HTTPClient is the transport wrapped with bearer auth. Tests pass
	// httptest clients here.
	HTTPClient *http.Client
}

// Client talks to the chats backend.
type Client struct {
	base *url.URL
	http *http.Client
}

// APIError is returned for non-2xx responses.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend: %s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// New creates a Client.
func New(opts Opts) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("backend: base url is required")
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("backend: parse base url: %w", err)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	inner := opts.HTTPClient
	if inner == nil {
		inner = &http.Client{Timeout: timeout}
	}

	httpClient := inner
	if opts.Token != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, inner)
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: opts.Token,
			TokenType:   "Bearer",
		}))
		httpClient.Timeout = timeout
	}
	return &Client{base: base, http: httpClient}, nil
}

func containerPath(c models.Container, tail string) string {
	return fmt.Sprintf("%ss/%s/%s", c.Kind, c.UUID, tail)
}

// SendItemMessage posts a text message to c and returns the confirmed
// message.
func (c *Client) SendItemMessage(ctx context.Context, cont models.Container, msg *models.Message) (*models.Message, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("backend: encode message: %w", err)
	}
	var out models.Message
	if err := c.do(ctx, http.MethodPost, containerPath(cont, "messages/"), nil,
		"application/json", bytes.NewReader(body), &out); err != nil {
		return nil, err
	}
	if out.Container.IsZero() {
		out.Container = cont
	}
	return &out, nil
}

// SendItemMedia uploads one file to c as multipart form data. onProgress,
// when set, receives the percentage of the request body sent.
func (c *Client) SendItemMedia(ctx context.Context, cont models.Container, file models.MediaFile, onProgress func(int)) (*models.MediaUpload, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(file.Name)))
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("backend: create form part: %w", err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, fmt.Errorf("backend: write form part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("backend: close form: %w", err)
	}

	var body io.Reader = &buf
	if onProgress != nil {
		body = &progressReader{r: &buf, total: int64(buf.Len()), fn: onProgress, last: -1}
	}

	var out models.MediaUpload
	if err := c.do(ctx, http.MethodPost, containerPath(cont, "media/"), nil,
		mw.FormDataContentType(), body, &out); err != nil {
		return nil, err
	}
	if out.Message != nil && out.Message.Container.IsZero() {
		out.Message.Container = cont
	}
	return &out, nil
}

// GetItemMessages returns the history page of c at cursor (empty for the
// newest page).
func (c *Client) GetItemMessages(ctx context.Context, cont models.Container, cursor string) (*models.Page, error) {
	q := url.Values{}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	var page models.Page
	if err := c.do(ctx, http.MethodGet, containerPath(cont, "messages/"), q, "", nil, &page); err != nil {
		return nil, err
	}
	for _, m := range page.Results {
		if m != nil && m.Container.IsZero() {
			m.Container = cont
		}
	}
	return &page, nil
}

// ListContainers returns the uuids of the agent's open rooms or
// discussions, in the backend's order.
func (c *Client) ListContainers(ctx context.Context, kind models.ContainerKind) ([]string, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("backend: unknown container kind %q", kind)
	}
	var page struct {
		Results []struct {
			UUID string `json:"uuid"`
		} `json:"results"`
	}
	if err := c.do(ctx, http.MethodGet, string(kind)+"s/", nil, "", nil, &page); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(page.Results))
	for _, r := range page.Results {
		out = append(out, r.UUID)
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, contentType string, body io.Reader, out any) error {
	u := c.base.ResolveReference(&url.URL{Path: path})
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("backend: build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if pr, ok := body.(*progressReader); ok {
		req.ContentLength = pr.total
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("backend: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("backend: decode %s %s: %w", method, path, err)
	}
	return nil
}

// progressReader reports the share of the body read so far.
type progressReader struct {
	r     io.Reader
	total int64
	read  int64
	fn    func(int)
	last  int
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	if p.total > 0 {
		pct := int(p.read * 100 / p.total)
		if pct != p.last {
			p.last = pct
			p.fn(pct)
		}
	}
	return n, err
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
