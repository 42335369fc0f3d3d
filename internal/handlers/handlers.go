// Package handlers owns the Telegram command surface of the bot.
package handlers

import (
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"followerwatch/internal/snapshot"
	"followerwatch/pkg/tasks"
)

// Handlers holds the bot's collaborators. The bot handle is constructed
// once at process start and passed in, never looked up globally.
type Handlers struct {
	bot         *tgbotapi.BotAPI
	asynqClient tasks.TaskEnqueuer
	store       *snapshot.Store
}

func New(bot *tgbotapi.BotAPI, asynqClient tasks.TaskEnqueuer, store *snapshot.Store) *Handlers {
	return &Handlers{
		bot:         bot,
		asynqClient: asynqClient,
		store:       store,
	}
}

// Run consumes the bot's update channel until it closes.
func (h *Handlers) Run() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := h.bot.GetUpdatesChan(u)

	for update := range updates {
		if update.CallbackQuery != nil {
			h.handleCallback(update.CallbackQuery)
			continue
		}
		if update.Message == nil || !update.Message.IsCommand() {
			continue
		}

		log.Printf("[%s] %s", senderName(update.Message), update.Message.Text)

		switch update.Message.Command() {
		case "start":
			h.handleStart(update.Message)
		case "add":
			h.handleAdd(update.Message)
		case "remove":
			h.handleRemove(update.Message)
		case "list":
			h.handleList(update.Message)
		case "update":
			h.handleUpdate(update.Message)
		case "delete_all":
			h.handleDeleteAll(update.Message)
		case "help":
			h.handleHelp(update.Message)
		default:
			h.reply(update.Message.Chat.ID, "I don't know that command")
		}
	}
}

// senderName labels a message for logging. From is nil for channel posts.
func senderName(message *tgbotapi.Message) string {
	if message.From == nil {
		return "channel"
	}
	return message.From.UserName
}

func (h *Handlers) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.Printf("Error sending reply to chat %d: %v", chatID, err)
	}
}

func (h *Handlers) replyHTML(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := h.bot.Send(msg); err != nil {
		log.Printf("Error sending reply to chat %d: %v", chatID, err)
	}
}
