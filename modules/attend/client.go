package attend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/Darlykn/ClockIn/common"
	"github.com/Darlykn/ClockIn/common/model"
)

// AttendClient defines the lower-level HTTP operations against the ClockIn
// API: GET/POST/PATCH plus multipart upload, response caching, and the
// one-shot refresh-and-replay protocol on a 401.
type AttendClient interface {
	GetJSON(ctx context.Context, endpoint string, entity interface{}, params map[string]string) error
	GetJSONFresh(ctx context.Context, endpoint string, entity interface{}, params map[string]string) error
	GetBytes(ctx context.Context, endpoint string, params map[string]string) ([]byte, error)
	PostJSON(ctx context.Context, endpoint string, body io.Reader, expectedStatusCodes ...int) ([]byte, error)
	PatchJSON(ctx context.Context, endpoint string, body io.Reader, expectedStatusCodes ...int) ([]byte, error)
	PostMultipart(ctx context.Context, endpoint, fieldName, filename string, file io.Reader) ([]byte, error)
	DoRequest(ctx context.Context, method, urlStr string, body io.Reader, expectedStatus ...int) ([]byte, error)
}

// Refresher is the single-flight refresh coordinator as seen from the
// pipeline. auth.RefreshCoordinator satisfies it. A nil Refresher turns a 401
// into a plain terminal error.
type Refresher interface {
	RequestRefresh(ctx context.Context) (*oauth2.Token, error)
}

type attendClient struct {
	baseURL    string
	httpClient common.HttpClient
	cache      common.CacheRepository
	tokens     common.TokenStore
	refresher  Refresher
	log        zerolog.Logger
}

// Request counters (optional)
var (
	totalCalls        int64
	unauthorizedCount int64
	successCount      int64
	failCount         int64
)

// How long GET responses stay cached. Statistics move slowly; five minutes
// matches the cache store default.
const defaultCacheExpiration = common.DefaultExpiration

// NewAttendClient creates an AttendClient for the given API origin. The token
// store is read fresh on every send; refresher may be nil for unauthenticated
// use.
func NewAttendClient(baseURL string, httpClient common.HttpClient, cache common.CacheRepository, tokens common.TokenStore, refresher Refresher, log zerolog.Logger) AttendClient {
	return &attendClient{
		baseURL:    baseURL,
		httpClient: httpClient,
		cache:      cache,
		tokens:     tokens,
		refresher:  refresher,
		log:        log,
	}
}

// ---------------------------------------------------
// Implementation of AttendClient interface
// ---------------------------------------------------

// GetJSON retrieves JSON from an endpoint and unmarshals into entity.
func (c *attendClient) GetJSON(ctx context.Context, endpoint string, entity interface{}, params map[string]string) error {
	data, err := c.GetBytes(ctx, endpoint, params)
	if err != nil {
		return err
	}
	return model.JSONUnmarshal(data, entity)
}

// GetJSONFresh bypasses the cache; used for listings that must reflect a
// mutation made a moment earlier.
func (c *attendClient) GetJSONFresh(ctx context.Context, endpoint string, entity interface{}, params map[string]string) error {
	urlStr, err := c.buildURL(endpoint, params)
	if err != nil {
		return err
	}
	data, err := c.DoRequest(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return err
	}
	return model.JSONUnmarshal(data, entity)
}

// GetBytes retrieves raw bytes from an endpoint, with caching and retry on
// transient 5xx. Auth failures inside the operation go through the refresh
// protocol in DoRequest and are not retried here.
func (c *attendClient) GetBytes(ctx context.Context, endpoint string, params map[string]string) ([]byte, error) {
	cacheKey := c.buildCacheKey(endpoint, params)
	if cached, found := c.cache.Get(cacheKey); found {
		return cached, nil
	}

	urlStr, err := c.buildURL(endpoint, params)
	if err != nil {
		return nil, err
	}

	operation := func() (interface{}, error) {
		data, err := c.DoRequest(ctx, http.MethodGet, urlStr, nil)
		if err != nil {
			return nil, err
		}
		// store in cache
		c.cache.Set(cacheKey, data, defaultCacheExpiration)
		return data, nil
	}

	result, err := c.httpClient.RetryWithExponentialBackoff(operation)
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

// PostJSON sends a POST with optional expected status codes.
func (c *attendClient) PostJSON(ctx context.Context, endpoint string, body io.Reader, expectedStatusCodes ...int) ([]byte, error) {
	urlStr, err := c.buildURL(endpoint, nil)
	if err != nil {
		return nil, err
	}
	return c.DoRequest(ctx, http.MethodPost, urlStr, body, expectedStatusCodes...)
}

// PatchJSON sends a PATCH with optional expected status codes.
func (c *attendClient) PatchJSON(ctx context.Context, endpoint string, body io.Reader, expectedStatusCodes ...int) ([]byte, error) {
	urlStr, err := c.buildURL(endpoint, nil)
	if err != nil {
		return nil, err
	}
	return c.DoRequest(ctx, http.MethodPatch, urlStr, body, expectedStatusCodes...)
}

// PostMultipart uploads a single file as multipart/form-data. The file is
// buffered in full so the request can be replayed after a refresh.
func (c *attendClient) PostMultipart(ctx context.Context, endpoint, fieldName, filename string, file io.Reader) ([]byte, error) {
	urlStr, err := c.buildURL(endpoint, nil)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(fieldName, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("failed to buffer upload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	return c.doRequest(ctx, http.MethodPost, urlStr, buf.Bytes(), writer.FormDataContentType(), http.StatusOK)
}

// DoRequest is the core pipeline method: it captures the request as a value,
// attaches the current token, executes it, and drives the one-shot
// refresh-and-replay on a 401.
func (c *attendClient) DoRequest(ctx context.Context, method, urlStr string, body io.Reader, expectedStatus ...int) ([]byte, error) {
	if len(expectedStatus) == 0 {
		expectedStatus = []int{http.StatusOK}
	}

	// read the entire body so we can replay the exact same request
	var bodyBytes []byte
	if body != nil {
		b, err := io.ReadAll(body)
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		bodyBytes = b
	}

	return c.doRequest(ctx, method, urlStr, bodyBytes, "application/json", expectedStatus...)
}

func (c *attendClient) doRequest(ctx context.Context, method, urlStr string, bodyBytes []byte, contentType string, expectedStatus ...int) ([]byte, error) {
	data, status, err := c.executeRequest(ctx, method, urlStr, bodyBytes, contentType)
	if err != nil {
		// transport-level failure: never an auth failure, pass through
		return nil, err
	}

	// One refresh-and-replay per logical request. A request that reaches the
	// replay never comes back here: a second 401 falls through as terminal.
	if status == http.StatusUnauthorized && c.refresher != nil {
		atomic.AddInt64(&unauthorizedCount, 1)
		c.log.Debug().Str("method", method).Str("url", urlStr).Msg("401 received, requesting token refresh")

		if _, refreshErr := c.refresher.RequestRefresh(ctx); refreshErr != nil {
			return nil, refreshErr
		}
		// replay once with the renewed token (read fresh from the store)
		data, status, err = c.executeRequest(ctx, method, urlStr, bodyBytes, contentType)
		if err != nil {
			return nil, err
		}
	}

	atomic.AddInt64(&totalCalls, 1)
	if status >= 200 && status < 300 {
		atomic.AddInt64(&successCount, 1)
	} else {
		atomic.AddInt64(&failCount, 1)
	}

	if !statusMatches(status, expectedStatus) {
		return nil, &common.HTTPError{
			StatusCode: status,
			Body:       data,
		}
	}
	return data, nil
}

// executeRequest actually does the low-level HTTP. The token is read from the
// store at send time, not captured when the caller queued up, so a replay
// after a refresh automatically picks up the new one.
func (c *attendClient) executeRequest(ctx context.Context, method, urlStr string, bodyBytes []byte, contentType string) ([]byte, int, error) {
	var body io.Reader
	if bodyBytes != nil {
		body = bytes.NewReader(bodyBytes)
	}
	req, err := http.NewRequestWithContext(ctx, method, urlStr, body)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	if token, ok := c.tokens.Get(); ok {
		req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	data, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", readErr)
	}
	return data, resp.StatusCode, nil
}

// buildURL merges baseURL + endpoint + params
func (c *attendClient) buildURL(endpoint string, params map[string]string) (string, error) {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	path, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint: %w", err)
	}

	fullURL := base.ResolveReference(path)
	q := fullURL.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	fullURL.RawQuery = q.Encode()
	return fullURL.String(), nil
}

func (c *attendClient) buildCacheKey(endpoint string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	queryParams := ""
	for _, k := range keys {
		queryParams += fmt.Sprintf("&%s=%s", k, params[k])
	}
	return fmt.Sprintf("attend:%s:%s", endpoint, queryParams)
}

func statusMatches(statusCode int, expected []int) bool {
	for _, s := range expected {
		if statusCode == s {
			return true
		}
	}
	return false
}
