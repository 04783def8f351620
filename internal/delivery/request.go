package delivery

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrInvalidRequest 表示请求在触碰任何协作方之前就被判定为非法。
	ErrInvalidRequest = errors.New("invalid delivery request")
	// ErrDeliveryFailed 表示所有可用路径都已尝试且失败。
	ErrDeliveryFailed = errors.New("delivery failed")
)

var downloadCommand = regexp.MustCompile(`^/d_([a-zA-Z0-9]+)_([0-9]+)$`)

// Request 是一次文件投递请求。
type Request struct {
	BookID int64
	Format string
}

// Destination 是接收文件的会话，ReplyTo 为 0 时不引用原消息。
type Destination struct {
	ChatID  int64
	ReplyTo int64
}

// ParseCommand 解析 /d_<format>_<id> 命令，允许群聊中的 @botname 后缀。
func ParseCommand(text string) (Request, error) {
	command, _, _ := strings.Cut(strings.TrimSpace(text), "@")
	match := downloadCommand.FindStringSubmatch(command)
	if match == nil {
		return Request{}, fmt.Errorf("%w: %q", ErrInvalidRequest, text)
	}
	id, err := strconv.ParseInt(match[2], 10, 64)
	if err != nil {
		return Request{}, fmt.Errorf("%w: book id %q", ErrInvalidRequest, match[2])
	}
	req := Request{BookID: id, Format: match[1]}
	if err := req.Validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}

// IsCommand 判断文本是否形如下载命令，用于路由。
func IsCommand(text string) bool {
	command, _, _ := strings.Cut(strings.TrimSpace(text), "@")
	return downloadCommand.MatchString(command)
}

// Validate 校验书籍 ID 与格式。
func (r Request) Validate() error {
	if r.BookID <= 0 {
		return fmt.Errorf("%w: book id must be positive", ErrInvalidRequest)
	}
	if r.Format == "" {
		return fmt.Errorf("%w: empty format", ErrInvalidRequest)
	}
	for _, ch := range r.Format {
		if !(ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9') {
			return fmt.Errorf("%w: format %q", ErrInvalidRequest, r.Format)
		}
	}
	return nil
}
