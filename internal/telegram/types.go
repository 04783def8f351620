package telegram

// Update 是 webhook 推送的单条更新，只解析路由需要的字段。
type Update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *Message       `json:"message,omitempty"`
	CallbackQuery *CallbackQuery `json:"callback_query,omitempty"`
}

// ChatID 返回更新所属会话，无法判断时为 0。
func (u Update) ChatID() int64 {
	switch {
	case u.Message != nil:
		return u.Message.Chat.ID
	case u.CallbackQuery != nil && u.CallbackQuery.Message != nil:
		return u.CallbackQuery.Message.Chat.ID
	}
	return 0
}

type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	Username  string `json:"username,omitempty"`
}

type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from,omitempty"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text,omitempty"`
}

type CallbackQuery struct {
	ID      string   `json:"id"`
	From    User     `json:"from"`
	Message *Message `json:"message,omitempty"`
	Data    string   `json:"data,omitempty"`
}

// InlineButton 对应 InlineKeyboardButton，仅支持 callback_data。
type InlineButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

// InlineKeyboard 对应 InlineKeyboardMarkup。
type InlineKeyboard struct {
	Rows [][]InlineButton `json:"inline_keyboard"`
}

// SendOptions 是发送/编辑消息的可选项。
type SendOptions struct {
	ReplyTo  int64
	Keyboard *InlineKeyboard
}

// ChatActionUploadDocument 是投递期间展示的状态。
const ChatActionUploadDocument = "upload_document"
