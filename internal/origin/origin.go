// Package origin fetches raw book files from the downloader service when no
// cache tier can serve them.
package origin

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/any-hub/book-hub/internal/upstream"
)

// ErrFetch 表示回源下载失败（网络错误或下载器返回非 2xx）。
var ErrFetch = errors.New("origin fetch failed")

// Payload 是一次回源下载的结果，Body 由调用方负责关闭。
type Payload struct {
	Body     io.ReadCloser
	Filename string
	Caption  string
	Size     int64
}

// Close 关闭正文流，允许在 nil Payload 上调用。
func (p *Payload) Close() error {
	if p == nil || p.Body == nil {
		return nil
	}
	return p.Body.Close()
}

// Client 访问下载器服务的 /download/{source}/{remote}/{format} 接口。
type Client struct {
	api *upstream.Client
}

// NewClient 绑定下载器服务客户端。
func NewClient(api *upstream.Client) *Client {
	return &Client{api: api}
}

// Fetch 以流的形式返回文件，文件名取自 Content-Disposition，说明取自 base64 编码的 X-Caption。
func (c *Client) Fetch(ctx context.Context, sourceID, remoteID int64, format string) (*Payload, error) {
	req, err := c.api.NewRequest(ctx, http.MethodGet, fmt.Sprintf("/download/%d/%d/%s", sourceID, remoteID, format), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	req.Header.Set("Accept", "*/*")

	resp, err := c.api.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	filename := filenameFromHeader(resp.Header.Get("Content-Disposition"))
	if filename == "" {
		filename = fmt.Sprintf("%d.%s", remoteID, format)
	}

	return &Payload{
		Body:     resp.Body,
		Filename: filename,
		Caption:  captionFromHeader(resp.Header.Get("X-Caption")),
		Size:     resp.ContentLength,
	}, nil
}

func filenameFromHeader(raw string) string {
	if raw == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(raw)
	if err != nil {
		return ""
	}
	// mime.ParseMediaType 已经解码 RFC 2231 的 filename*。
	return strings.TrimSpace(params["filename"])
}

func captionFromHeader(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return raw
	}
	return string(decoded)
}
