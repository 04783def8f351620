package pagination

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/any-hub/book-hub/internal/catalog"
)

// ErrPageOutOfRange 表示一次钳制后页码仍然越界（目录在两次请求之间缩小）。
var ErrPageOutOfRange = errors.New("page out of range after clamp")

const itemSeparator = "\n\n\n"

// Button 是一个回调按钮，Data 为编码后的 token。
type Button struct {
	Text string `json:"text"`
	Data string `json:"callback_data"`
}

// Keyboard 是按钮行的集合，nil 表示无需翻页控件。
type Keyboard [][]Button

// Message 是渲染完成的一页。
type Message struct {
	Text     string
	Keyboard Keyboard
	Page     int
	Total    int
}

// ItemsGetter 从目录拉取一页条目，签名与 catalog.Client 的列表方法一致。
type ItemsGetter[T any] func(ctx context.Context, key string, page int, langs []string) (catalog.Page[T], error)

// Formatter 把单个条目渲染为展示文本。
type Formatter[T any] func(T) string

// Request 描述一次翻页渲染。
type Request struct {
	Prefix       string
	Key          string
	Page         int
	Langs        []string
	Header       string
	EmptyMessage string
}

// RequestFromToken 使用解码后的 token 构造请求。
func RequestFromToken(token Token, langs []string) Request {
	return Request{
		Prefix: token.Prefix,
		Key:    token.Key,
		Page:   token.Page,
		Langs:  langs,
	}
}

// Render 拉取并渲染一页。总页数为 0 时返回 EmptyMessage 且不带控件；
// 页码越界时最多额外请求一次最后一页。目录错误原样返回，不会输出半成品页面。
func Render[T any](ctx context.Context, req Request, getter ItemsGetter[T], format Formatter[T]) (Message, error) {
	if req.Page < 1 {
		return Message{}, fmt.Errorf("%w: %d", ErrInvalidPage, req.Page)
	}

	page := req.Page
	for hop := 0; hop < 2; hop++ {
		result, err := getter(ctx, req.Key, page, req.Langs)
		if err != nil {
			return Message{}, err
		}
		if result.TotalPages == 0 {
			return Message{Text: req.EmptyMessage}, nil
		}
		if page > result.TotalPages {
			page = result.TotalPages
			continue
		}
		return buildMessage(req, page, result, format)
	}
	return Message{}, fmt.Errorf("%w: %s%s", ErrPageOutOfRange, req.Prefix, req.Key)
}

func buildMessage[T any](req Request, page int, result catalog.Page[T], format Formatter[T]) (Message, error) {
	formatted := make([]string, 0, len(result.Items))
	for _, item := range result.Items {
		formatted = append(formatted, format(item))
	}

	var b strings.Builder
	b.WriteString(req.Header)
	b.WriteString(strings.Join(formatted, itemSeparator))
	fmt.Fprintf(&b, "\n\nСтраница %d/%d", page, result.TotalPages)

	keyboard, err := BuildKeyboard(req.Prefix, req.Key, page, result.TotalPages)
	if err != nil {
		return Message{}, err
	}
	return Message{
		Text:     b.String(),
		Keyboard: keyboard,
		Page:     page,
		Total:    result.TotalPages,
	}, nil
}

// BuildKeyboard 生成 −1/+1 与 −5/+5 两行按钮，越界的方向直接省略（不钳制到边界页）。
// key 按总页数的位数裁剪，保证任何按钮的 token 都不超过 MaxTokenBytes。
func BuildKeyboard(prefix, key string, page, total int) (Keyboard, error) {
	budget := MaxTokenBytes - len(prefix) - len(Separator) - len(strconv.Itoa(total))
	if budget < 0 {
		return nil, fmt.Errorf("%w: prefix %q", ErrTokenTooLong, prefix)
	}
	key = TruncateQuery(key, budget)

	var rows Keyboard
	for _, delta := range []int{1, 5} {
		var row []Button
		if page-delta > 0 {
			data, err := Encode(prefix, key, page-delta)
			if err != nil {
				return nil, err
			}
			row = append(row, Button{Text: fmt.Sprintf("-%d", delta), Data: data})
		}
		if page+delta <= total {
			data, err := Encode(prefix, key, page+delta)
			if err != nil {
				return nil, err
			}
			row = append(row, Button{Text: fmt.Sprintf("+%d", delta), Data: data})
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}
	return rows, nil
}
