package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ErrUnavailable is returned when no daemon answers at the configured address.
var ErrUnavailable = errors.New("daemon api unavailable")

// StatusError carries a non-2xx response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api returned status %d", e.Code)
	}
	return fmt.Sprintf("api returned status %d: %s", e.Code, e.Message)
}

// Client talks to a running daemon.
type Client struct {
	base  *url.URL
	token string
	http  *http.Client
}

// NewClient builds a client for bind ("host:port" or a full URL).
func NewClient(bind, token string, timeout time.Duration) (*Client, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, errors.New("api bind address required")
	}
	if !strings.Contains(bind, "://") {
		bind = "http://" + bind
	}
	base, err := url.Parse(bind)
	if err != nil {
		return nil, err
	}
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""
	return &Client{
		base:  base,
		token: strings.TrimSpace(token),
		http:  &http.Client{Timeout: timeout},
	}, nil
}

// Status fetches /api/status.
func (c *Client) Status(ctx context.Context) (DaemonStatus, error) {
	var payload DaemonStatus
	err := c.getJSON(ctx, "/api/status", nil, &payload)
	return payload, err
}

// Models fetches /api/models.
func (c *Client) Models(ctx context.Context) ([]ModelInfo, error) {
	var payload ModelsResponse
	if err := c.getJSON(ctx, "/api/models", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Models, nil
}

// Jobs fetches the most recent jobs.
func (c *Client) Jobs(ctx context.Context, limit int) ([]Job, error) {
	values := url.Values{}
	if limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}
	var payload JobListResponse
	if err := c.getJSON(ctx, "/api/jobs", values, &payload); err != nil {
		return nil, err
	}
	return payload.Jobs, nil
}

// Job fetches a single job.
func (c *Client) Job(ctx context.Context, id string) (Job, error) {
	var payload JobResponse
	err := c.getJSON(ctx, "/api/jobs/"+url.PathEscape(id), nil, &payload)
	return payload.Job, err
}

// UploadResult is a rendered subtitle document returned by the daemon.
type UploadResult struct {
	Filename    string
	ContentType string
	JobID       string
	Content     []byte
}

// Upload posts a media file to /subtitles with the given query parameters.
func (c *Client) Upload(ctx context.Context, path string, params url.Values) (UploadResult, error) {
	var result UploadResult
	file, err := os.Open(path)
	if err != nil {
		return result, err
	}
	defer file.Close()

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	go func() {
		part, err := writer.CreateFormFile("file", filepath.Base(path))
		if err == nil {
			_, err = io.Copy(part, file)
		}
		if err == nil {
			err = writer.Close()
		}
		pw.CloseWithError(err)
	}()

	endpoint := c.base.ResolveReference(&url.URL{Path: "/subtitles", RawQuery: params.Encode()})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), pr)
	if err != nil {
		_ = pr.Close()
		return result, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := c.do(req)
	if err != nil {
		_ = pr.Close()
		return result, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return result, err
	}
	result.Content = body
	result.ContentType = resp.Header.Get("Content-Type")
	result.JobID = resp.Header.Get("X-Job-ID")
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		result.Filename = params["filename"]
	}
	return result, nil
}

func (c *Client) getJSON(ctx context.Context, path string, values url.Values, out any) error {
	endpoint := c.base.ResolveReference(&url.URL{Path: path, RawQuery: values.Encode()})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(out)
}

// do sends req and converts transport failures and non-2xx responses.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var payload ErrorResponse
		message := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
			message = payload.Error
		}
		return nil, &StatusError{Code: resp.StatusCode, Message: message}
	}
	return resp, nil
}
