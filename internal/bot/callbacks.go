package bot

import (
	"context"
	"errors"

	"github.com/any-hub/book-hub/internal/catalog"
	"github.com/any-hub/book-hub/internal/format"
	"github.com/any-hub/book-hub/internal/pagination"
	"github.com/any-hub/book-hub/internal/telegram"
)

func (b *Bot) handleCallback(ctx context.Context, update telegram.Update) error {
	query := update.CallbackQuery
	defer func() {
		_ = b.messenger.AnswerCallbackQuery(ctx, query.ID, "")
	}()
	if query.Message == nil {
		return nil
	}

	var err error
	switch query.Data {
	case RandomBook, RandomAuthor, RandomSequence:
		err = b.handleRandom(ctx, query)
	default:
		if _, ok := b.codec.Match(query.Data); !ok {
			return nil
		}
		err = b.handlePage(ctx, query)
	}
	if err != nil {
		b.logError(update, "callback", err)
	}
	return err
}

// handlePage 解码 token 并原地编辑消息为目标页。
func (b *Bot) handlePage(ctx context.Context, query *telegram.CallbackQuery) error {
	msg := query.Message
	token, err := b.codec.Decode(query.Data)
	if err != nil {
		_ = b.reply(ctx, msg, errRepeatSearch, nil)
		return err
	}

	page, err := b.render(ctx, pagination.RequestFromToken(token, b.langs))
	if err != nil {
		text := errTryLater
		if errors.Is(err, pagination.ErrInvalidToken) ||
			errors.Is(err, pagination.ErrPageOutOfRange) ||
			errors.Is(err, pagination.ErrTokenTooLong) ||
			errors.Is(err, catalog.ErrInvalidKey) {
			text = errRepeatSearch
		}
		_ = b.reply(ctx, msg, text, nil)
		return err
	}

	err = b.messenger.EditMessageText(ctx, msg.Chat.ID, msg.MessageID, page.Text, inlineKeyboard(page.Keyboard))
	if err != nil && !telegram.IsNotModified(err) {
		_ = b.reply(ctx, msg, errTryLater, nil)
		return err
	}
	return nil
}

// handleRandom 移除原消息的键盘，并发送随机条目和“再来一次”按钮。
func (b *Bot) handleRandom(ctx context.Context, query *telegram.CallbackQuery) error {
	msg := query.Message

	var (
		text string
		err  error
	)
	switch query.Data {
	case RandomBook:
		item, getErr := b.catalog.RandomBook(ctx, b.langs)
		text, err = format.Book(item), getErr
	case RandomAuthor:
		item, getErr := b.catalog.RandomAuthor(ctx, b.langs)
		text, err = format.Author(item), getErr
	case RandomSequence:
		item, getErr := b.catalog.RandomSequence(ctx, b.langs)
		text, err = format.Sequence(item), getErr
	}
	if err != nil {
		_ = b.reply(ctx, msg, errTryLater, nil)
		return err
	}

	_ = b.messenger.EditMessageReplyMarkup(ctx, msg.Chat.ID, msg.MessageID, nil)

	keyboard := singleColumn(telegram.InlineButton{Text: retryButton, CallbackData: query.Data})
	_, err = b.messenger.SendMessage(ctx, msg.Chat.ID, text, telegram.SendOptions{Keyboard: keyboard})
	return err
}
