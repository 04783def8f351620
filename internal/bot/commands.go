package bot

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/any-hub/book-hub/internal/delivery"
	"github.com/any-hub/book-hub/internal/format"
	"github.com/any-hub/book-hub/internal/pagination"
	"github.com/any-hub/book-hub/internal/telegram"
)

var (
	listCommand       = regexp.MustCompile(`^/([ats])_([0-9]+)$`)
	annotationCommand = regexp.MustCompile(`^/b_info_([0-9]+)$`)
)

var (
	bookItem       = format.BookShort
	authorItem     = format.Author
	translatorItem = format.Translator
	sequenceItem   = format.Sequence
)

// listPrefixes 把 /a_ /t_ /s_ 映射到对应的书目作用域。
var listPrefixes = map[string]string{
	"a": pagination.AuthorBooksPrefix,
	"t": pagination.TranslatorBooksPrefix,
	"s": pagination.SequenceBooksPrefix,
}

func (b *Bot) handleMessage(ctx context.Context, update telegram.Update) error {
	msg := update.Message
	text := strings.TrimSpace(msg.Text)
	command := stripMention(text)

	var err error
	switch {
	case command == "/start":
		err = b.handleStart(ctx, msg)
	case command == "/help":
		err = b.reply(ctx, msg, helpMessage, nil)
	case command == "/random":
		err = b.reply(ctx, msg, randomMessage, randomKeyboard())
	case delivery.IsCommand(command):
		err = b.handleDownload(ctx, msg, command)
	case annotationCommand.MatchString(command):
		err = b.handleAnnotation(ctx, msg, command)
	case listCommand.MatchString(command):
		err = b.handleList(ctx, msg, command)
	default:
		err = b.handleSearch(ctx, msg, text)
	}
	if err != nil {
		b.logError(update, "message", err)
	}
	return err
}

// stripMention 去掉群聊命令中的 @botname 后缀。
func stripMention(text string) string {
	if !strings.HasPrefix(text, "/") {
		return text
	}
	command, _, _ := strings.Cut(text, "@")
	return command
}

func (b *Bot) handleStart(ctx context.Context, msg *telegram.Message) error {
	name := defaultUserName
	if msg.From != nil {
		switch {
		case msg.From.FirstName != "":
			name = msg.From.FirstName
		case msg.From.Username != "":
			name = msg.From.Username
		}
	}
	return b.reply(ctx, msg, strings.ReplaceAll(startMessage, namePlaceholder, name), nil)
}

func (b *Bot) handleDownload(ctx context.Context, msg *telegram.Message, command string) error {
	req, err := delivery.ParseCommand(command)
	if err != nil {
		_ = b.reply(ctx, msg, errRepeatSearch, nil)
		return err
	}
	dest := delivery.Destination{ChatID: msg.Chat.ID, ReplyTo: msg.MessageID}
	signal := func(ctx context.Context) error {
		return b.messenger.SendChatAction(ctx, msg.Chat.ID, telegram.ChatActionUploadDocument)
	}

	if _, err := b.delivery.DeliverWithPresence(ctx, req, dest, signal); err != nil {
		text := errTryLater
		if errors.Is(err, delivery.ErrInvalidRequest) {
			text = errRepeatSearch
		}
		_ = b.reply(ctx, msg, text, nil)
		return err
	}
	return nil
}

func (b *Bot) handleAnnotation(ctx context.Context, msg *telegram.Message, command string) error {
	match := annotationCommand.FindStringSubmatch(command)
	id, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		_ = b.reply(ctx, msg, errRepeatSearch, nil)
		return err
	}
	annotation, err := b.catalog.GetBookAnnotation(ctx, id)
	if err != nil {
		_ = b.reply(ctx, msg, errTryLater, nil)
		return err
	}
	text := strings.TrimSpace(annotation.Text)
	if text == "" {
		text = noAnnotation
	}
	return b.reply(ctx, msg, text, nil)
}

func (b *Bot) handleList(ctx context.Context, msg *telegram.Message, command string) error {
	match := listCommand.FindStringSubmatch(command)
	req := pagination.Request{
		Prefix: listPrefixes[match[1]],
		Key:    match[2],
		Page:   1,
		Langs:  b.langs,
	}
	page, err := b.render(ctx, req)
	if err != nil {
		_ = b.reply(ctx, msg, errTryLater, nil)
		return err
	}
	return b.reply(ctx, msg, page.Text, inlineKeyboard(page.Keyboard))
}

// handleSearch 回复搜索类型选择键盘，每个按钮是对应作用域第一页的 token。
func (b *Bot) handleSearch(ctx context.Context, msg *telegram.Message, text string) error {
	query := pagination.TruncateQuery(text, b.maxQueryLength)
	if strings.TrimSpace(query) == "" {
		return nil
	}

	choices := []struct {
		label  string
		prefix string
	}{
		{searchBookLabel, pagination.SearchBooksPrefix},
		{searchAuthorLabel, pagination.SearchAuthorsPrefix},
		{searchSeqLabel, pagination.SearchSequencesPrefix},
		{searchTransLabel, pagination.SearchTranslatorsPrefix},
	}
	buttons := make([]telegram.InlineButton, 0, len(choices))
	for _, choice := range choices {
		data, err := pagination.Encode(choice.prefix, query, 1)
		if err != nil {
			return err
		}
		buttons = append(buttons, telegram.InlineButton{Text: choice.label, CallbackData: data})
	}
	return b.reply(ctx, msg, searchMessage, singleColumn(buttons...))
}

func randomKeyboard() *telegram.InlineKeyboard {
	return singleColumn(
		telegram.InlineButton{Text: searchBookLabel, CallbackData: RandomBook},
		telegram.InlineButton{Text: searchAuthorLabel, CallbackData: RandomAuthor},
		telegram.InlineButton{Text: searchSeqLabel, CallbackData: RandomSequence},
	)
}
