// Package telegram is a minimal Bot API client: the handful of methods the
// bot needs, JSON in and out, plus a streaming multipart upload for documents.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/any-hub/book-hub/internal/origin"
)

// ErrForward 表示 copyMessage 失败，通常是缓存引用指向的消息已不存在。
var ErrForward = errors.New("forward cached message failed")

// APIError 是 Bot API 返回的 ok=false 响应。
type APIError struct {
	Method      string
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s: %d %s", e.Method, e.Code, e.Description)
}

// IsNotModified 判断错误是否为编辑内容未变化，此类错误可以忽略。
func IsNotModified(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return strings.Contains(apiErr.Description, "message is not modified")
}

type envelope struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
}

// Client 调用 {root}/bot{token}/{method}。
type Client struct {
	base   *url.URL
	token  string
	client *http.Client
}

// NewClient 创建 Bot API 客户端，apiRoot 例如 https://api.telegram.org。
func NewClient(apiRoot, token string, client *http.Client) (*Client, error) {
	if token == "" {
		return nil, errors.New("bot token is required")
	}
	base, err := url.Parse(strings.TrimRight(apiRoot, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid bot api root %q", apiRoot)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{base: base, token: token, client: client}, nil
}

func (c *Client) methodURL(method string) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + "/bot" + c.token + "/" + method
	return u.String()
}

func (c *Client) call(ctx context.Context, method string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram %s: encode: %w", method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(method, req, out)
}

func (c *Client) do(method string, req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		// url.Error 中的 URL 含 token，只保留内部原因。
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return &APIError{Method: method, Code: resp.StatusCode, Description: "malformed response"}
	}
	if !env.OK {
		code := env.ErrorCode
		if code == 0 {
			code = resp.StatusCode
		}
		return &APIError{Method: method, Code: code, Description: env.Description}
	}
	if out == nil || len(env.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("telegram %s: decode result: %w", method, err)
	}
	return nil
}

type sendMessageRequest struct {
	ChatID           int64           `json:"chat_id"`
	MessageID        int64           `json:"message_id,omitempty"`
	Text             string          `json:"text"`
	ReplyToMessageID int64           `json:"reply_to_message_id,omitempty"`
	ReplyMarkup      *InlineKeyboard `json:"reply_markup,omitempty"`
	DisablePreview   bool            `json:"disable_web_page_preview,omitempty"`
}

// SendMessage 发送文本消息。
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, opts SendOptions) (Message, error) {
	var msg Message
	err := c.call(ctx, "sendMessage", sendMessageRequest{
		ChatID:           chatID,
		Text:             text,
		ReplyToMessageID: opts.ReplyTo,
		ReplyMarkup:      opts.Keyboard,
		DisablePreview:   true,
	}, &msg)
	return msg, err
}

// EditMessageText 替换已有消息的文本与键盘。
func (c *Client) EditMessageText(ctx context.Context, chatID, messageID int64, text string, keyboard *InlineKeyboard) error {
	return c.call(ctx, "editMessageText", sendMessageRequest{
		ChatID:         chatID,
		MessageID:      messageID,
		Text:           text,
		ReplyMarkup:    keyboard,
		DisablePreview: true,
	}, nil)
}

type copyMessageRequest struct {
	ChatID                   int64 `json:"chat_id"`
	FromChatID               int64 `json:"from_chat_id"`
	MessageID                int64 `json:"message_id"`
	ReplyToMessageID         int64 `json:"reply_to_message_id,omitempty"`
	AllowSendingWithoutReply bool  `json:"allow_sending_without_reply"`
}

// CopyMessage 将 fromChatID 中的消息复制到 chatID，失败统一包装为 ErrForward。
func (c *Client) CopyMessage(ctx context.Context, chatID, fromChatID, messageID, replyTo int64) error {
	err := c.call(ctx, "copyMessage", copyMessageRequest{
		ChatID:                   chatID,
		FromChatID:               fromChatID,
		MessageID:                messageID,
		ReplyToMessageID:         replyTo,
		AllowSendingWithoutReply: true,
	}, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrForward, err)
	}
	return nil
}

// SendDocument 以 multipart 流式上传文件，不在内存中缓冲整个文件。
func (c *Client) SendDocument(ctx context.Context, chatID, replyTo int64, payload *origin.Payload) error {
	if payload == nil || payload.Body == nil {
		return errors.New("telegram sendDocument: empty payload")
	}
	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeDocumentForm(form, chatID, replyTo, payload))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL("sendDocument"), pr)
	if err != nil {
		pr.CloseWithError(err)
		return err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	err = c.do("sendDocument", req, nil)
	pr.CloseWithError(io.ErrClosedPipe)
	return err
}

func writeDocumentForm(form *multipart.Writer, chatID, replyTo int64, payload *origin.Payload) error {
	fields := [][2]string{{"chat_id", strconv.FormatInt(chatID, 10)}}
	if replyTo != 0 {
		fields = append(fields,
			[2]string{"reply_to_message_id", strconv.FormatInt(replyTo, 10)},
			[2]string{"allow_sending_without_reply", "true"})
	}
	if payload.Caption != "" {
		fields = append(fields, [2]string{"caption", payload.Caption})
	}
	for _, field := range fields {
		if err := form.WriteField(field[0], field[1]); err != nil {
			return err
		}
	}
	part, err := form.CreateFormFile("document", payload.Filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, payload.Body); err != nil {
		return err
	}
	return form.Close()
}

// SendChatAction 发送会话状态，例如 upload_document。
func (c *Client) SendChatAction(ctx context.Context, chatID int64, action string) error {
	return c.call(ctx, "sendChatAction", map[string]any{
		"chat_id": chatID,
		"action":  action,
	}, nil)
}

// AnswerCallbackQuery 结束按钮的加载状态，text 为空时不弹提示。
func (c *Client) AnswerCallbackQuery(ctx context.Context, queryID, text string) error {
	payload := map[string]any{"callback_query_id": queryID}
	if text != "" {
		payload["text"] = text
	}
	return c.call(ctx, "answerCallbackQuery", payload, nil)
}

// SetWebhook 注册 webhook 地址，只接收 message 与 callback_query。
func (c *Client) SetWebhook(ctx context.Context, webhookURL string) error {
	return c.call(ctx, "setWebhook", map[string]any{
		"url":             webhookURL,
		"allowed_updates": []string{"message", "callback_query"},
	}, nil)
}

// EditMessageReplyMarkup 只替换消息的键盘，keyboard 为 nil 时移除键盘。
func (c *Client) EditMessageReplyMarkup(ctx context.Context, chatID, messageID int64, keyboard *InlineKeyboard) error {
	if keyboard == nil {
		keyboard = &InlineKeyboard{Rows: [][]InlineButton{}}
	}
	return c.call(ctx, "editMessageReplyMarkup", map[string]any{
		"chat_id":      chatID,
		"message_id":   messageID,
		"reply_markup": keyboard,
	}, nil)
}
