package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/maauso/videobackup-bot/internal/upload"
)

// Reply posts text in chatID as a reply to message replyTo.
func (c *Client) Reply(ctx context.Context, chatID int64, replyTo int, text string) (upload.MessageRef, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return upload.MessageRef{}, fmt.Errorf("telegram: reply: %w", err)
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyToMessageID = replyTo

	sent, err := c.api.Send(msg)
	if err != nil {
		return upload.MessageRef{}, fmt.Errorf("telegram: reply: %w", err)
	}
	return upload.MessageRef{ChatID: chatID, MessageID: sent.MessageID}, nil
}

// Edit replaces the text of a message posted by the bot.
func (c *Client) Edit(ctx context.Context, ref upload.MessageRef, text string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram: edit: %w", err)
	}

	if _, err := c.api.Request(tgbotapi.NewEditMessageText(ref.ChatID, ref.MessageID, text)); err != nil {
		return fmt.Errorf("telegram: edit: %w", err)
	}
	return nil
}

// Send posts text to a user's private chat.
func (c *Client) Send(ctx context.Context, userID int64, text string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram: send: %w", err)
	}

	if _, err := c.api.Send(tgbotapi.NewMessage(userID, text)); err != nil {
		return fmt.Errorf("telegram: send to %d: %w", userID, err)
	}
	return nil
}
