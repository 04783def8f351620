// Package upstream wraps the shared http.Client with the conventions every
// backing service of the bot follows: a base URL, a static API key sent in the
// Authorization header, JSON bodies and typed errors for non-2xx statuses.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// StatusError 记录上游返回的非 2xx 状态，Body 仅保留前 1KB 便于日志排查。
type StatusError struct {
	Service string
	Status  int
	Body    string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Service, e.Status)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Service, e.Status, e.Body)
}

// IsStatus 判断 err 链中是否包含指定状态码的 StatusError。
func IsStatus(err error, status int) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Status == status
}

// Client 是单个上游服务的访问入口。
type Client struct {
	service string
	base    *url.URL
	apiKey  string
	http    *http.Client
}

// New 解析 baseURL 并绑定共享 http.Client；apiKey 为空时不发送 Authorization。
func New(service, baseURL, apiKey string, httpClient *http.Client) (*Client, error) {
	if httpClient == nil {
		return nil, errors.New("http client is required")
	}
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%s: invalid base url: %w", service, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("%s: base url must be absolute: %s", service, baseURL)
	}
	return &Client{
		service: service,
		base:    parsed,
		apiKey:  apiKey,
		http:    httpClient,
	}, nil
}

// URL 拼接相对路径与查询参数。
func (c *Client) URL(p string, query url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(p, "/")
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// NewRequest 构造带鉴权头的请求。
func (c *Client) NewRequest(ctx context.Context, method, p string, query url.Values) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.URL(p, query), http.NoBody)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", c.apiKey)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// Do 发送请求；非 2xx 状态会关闭 Body 并返回 *StatusError。
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.service, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		resp.Body.Close()
		return nil, &StatusError{
			Service: c.service,
			Status:  resp.StatusCode,
			Body:    strings.TrimSpace(string(body)),
		}
	}
	return resp, nil
}

// GetJSON 执行 GET 并将 JSON 响应解码到 out。
func (c *Client) GetJSON(ctx context.Context, p string, query url.Values, out any) error {
	req, err := c.NewRequest(ctx, http.MethodGet, p, query)
	if err != nil {
		return err
	}
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", c.service, err)
	}
	return nil
}

// Delete 执行 DELETE 并丢弃响应正文。
func (c *Client) Delete(ctx context.Context, p string) error {
	req, err := c.NewRequest(ctx, http.MethodDelete, p, nil)
	if err != nil {
		return err
	}
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}
