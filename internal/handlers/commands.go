package handlers

import (
	"fmt"
	"log"
	"regexp"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"followerwatch/internal/db"
	"followerwatch/pkg/tasks"
)

var usernameRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

const welcomeMessage = `Welcome to the follower watch bot 🔍

What can this bot do?

Track Your Favorite Accounts:
Stay ahead by tracking any Twitter account. Receive instant notifications when it follows a new user or project.

EXAMPLE FOLLOWING ALERT 👇

<a href="https://twitter.com/dogecoin">@dogecoin</a> ← is followed by <a href="https://twitter.com/elonmusk">@elonmusk</a>

Details of Dogecoin:

•🗒 Bio: "Dogecoin is an open source peer-to-peer cryptocurrency, favored by shibas worldwide."

•📍 Location: the moon

•👥 Followers: 4,200,000

•📅 Account created: 01-12-2013 (4000 days ago)

•✅ Verified: Yes`

const helpMessage = `📜 Here are the commands you can use:
/start - Get a welcome message and bot description.
/add <username> - Start tracking a Twitter account.
/remove <username> - Stop tracking a Twitter account.
/list - Show the list of tracked accounts.
/update - Update the following list for tracked accounts (manually).
/delete_all - Delete all stored user data (requires confirmation).
/help - Get a list of all available commands.`

// parseUsername validates a command argument as a Twitter username,
// stripping a leading @.
func parseUsername(args string) (string, bool) {
	fields := strings.Fields(args)
	if len(fields) != 1 {
		return "", false
	}
	username := strings.TrimPrefix(fields[0], "@")
	if len(username) < 3 || !usernameRe.MatchString(username) {
		return "", false
	}
	return username, true
}

func (h *Handlers) handleStart(message *tgbotapi.Message) {
	if err := h.store.EnsureSubscriberDir(message.Chat.ID); err != nil {
		log.Printf("Error creating data dir for chat %d: %v", message.Chat.ID, err)
	}
	h.replyHTML(message.Chat.ID, welcomeMessage)
}

func (h *Handlers) handleAdd(message *tgbotapi.Message) {
	chatID := message.Chat.ID

	username, ok := parseUsername(message.CommandArguments())
	if !ok {
		h.reply(chatID, "❗Please provide a valid username to track. Usage: /add @username (at least 3 characters, letters, numbers, or underscores only)")
		return
	}

	tracked, err := db.IsAccountTracked(username, chatID)
	if err != nil {
		h.reply(chatID, "⚠️ An error occurred. Please try again later.")
		return
	}
	if tracked {
		h.replyHTML(chatID, fmt.Sprintf("⚠️ You are already tracking: <a href='https://twitter.com/%s'>@%s</a>", username, username))
		return
	}

	if err := db.AddAccount(username, chatID); err != nil {
		h.reply(chatID, "⚠️ An error occurred. Please try again later.")
		return
	}
	if err := h.store.EnsureSubscriberDir(chatID); err != nil {
		log.Printf("Error creating data dir for chat %d: %v", chatID, err)
	}

	// Seed the private snapshot in the background. The first cycle is a
	// silent population, so the subscriber gets no back-catalog flood.
	task, err := tasks.NewReconcilePairTask(chatID, username)
	if err != nil {
		log.Printf("Error creating task: %v", err)
	} else if _, err := h.asynqClient.Enqueue(task); err != nil {
		log.Printf("Error enqueuing task: %v", err)
	}

	h.replyHTML(chatID, fmt.Sprintf("✅ Now tracking: <a href='https://twitter.com/%s'>@%s</a>", username, username))
}

func (h *Handlers) handleRemove(message *tgbotapi.Message) {
	chatID := message.Chat.ID

	username, ok := parseUsername(message.CommandArguments())
	if !ok {
		h.reply(chatID, "❗Please provide a valid username to remove. Usage: /remove @username")
		return
	}

	tracked, err := db.IsAccountTracked(username, chatID)
	if err != nil {
		h.reply(chatID, "⚠️ An error occurred. Please try again later.")
		return
	}
	if !tracked {
		h.replyHTML(chatID, fmt.Sprintf("⚠️ You are not tracking: <a href='https://twitter.com/%s'>@%s</a>", username, username))
		return
	}

	if err := db.RemoveAccount(username, chatID); err != nil {
		h.reply(chatID, "⚠️ An error occurred. Please try again later.")
		return
	}
	if err := h.store.Remove(h.store.PrivatePath(chatID, username)); err != nil {
		log.Printf("Error removing snapshot of %s for chat %d: %v", username, chatID, err)
		h.replyHTML(chatID, fmt.Sprintf("❌ Error occurred while stopping tracking for @%s.", username))
		return
	}

	h.replyHTML(chatID, fmt.Sprintf("❌ Stopped tracking: <a href='https://twitter.com/%s'>@%s</a>", username, username))
}

func (h *Handlers) handleList(message *tgbotapi.Message) {
	chatID := message.Chat.ID

	accounts, err := db.GetAccountsByChat(chatID)
	if err != nil {
		h.reply(chatID, "⚠️ An error occurred. Please try again later.")
		return
	}
	if len(accounts) == 0 {
		h.reply(chatID, "🛑 You are not tracking any accounts yet.")
		return
	}

	var b strings.Builder
	b.WriteString("📝 Currently tracking:\n")
	for _, account := range accounts {
		fmt.Fprintf(&b, "<a href='https://twitter.com/%s'>@%s</a> (since %s)\n",
			account.Username, account.Username, account.AddedAt.Format("02-01-2006"))
	}
	h.replyHTML(chatID, b.String())
}

func (h *Handlers) handleUpdate(message *tgbotapi.Message) {
	chatID := message.Chat.ID

	progress, err := h.bot.Send(tgbotapi.NewMessage(chatID, "🔄 Updating followers in the background. This might take a while..."))
	if err != nil {
		log.Printf("Error sending progress message to chat %d: %v", chatID, err)
	}

	task, err := tasks.NewReconcileAllTask()
	if err == nil {
		_, err = h.asynqClient.Enqueue(task)
	}

	if progress.MessageID != 0 {
		if _, derr := h.bot.Request(tgbotapi.NewDeleteMessage(chatID, progress.MessageID)); derr != nil {
			log.Printf("Error deleting progress message in chat %d: %v", chatID, derr)
		}
	}

	if err != nil {
		log.Printf("Error in update followers process: %v", err)
		h.reply(chatID, "⚠️ An error occurred while updating followers.")
		return
	}
	h.reply(chatID, "Followers list update is on its way👍.")
}

func (h *Handlers) handleDeleteAll(message *tgbotapi.Message) {
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Yes", "delete_yes"),
			tgbotapi.NewInlineKeyboardButtonData("No", "delete_no"),
		),
	)
	msg := tgbotapi.NewMessage(message.Chat.ID, "Are you sure you want to delete all your stored data? Please choose below:")
	msg.ReplyMarkup = keyboard
	if _, err := h.bot.Send(msg); err != nil {
		log.Printf("Error sending confirmation to chat %d: %v", message.Chat.ID, err)
	}
}

func (h *Handlers) handleCallback(query *tgbotapi.CallbackQuery) {
	if _, err := h.bot.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		log.Printf("Error answering callback query: %v", err)
	}
	if query.Message == nil {
		return
	}
	chatID := query.Message.Chat.ID

	switch query.Data {
	case "delete_yes":
		text := "Your data has been deleted successfully. All tracked accounts have been removed."
		if err := h.deleteAllData(chatID); err != nil {
			log.Printf("Error deleting user data for %d: %v", chatID, err)
			text = "⚠️ An error occurred while deleting your data."
		}
		edit := tgbotapi.NewEditMessageText(chatID, query.Message.MessageID, text)
		if _, err := h.bot.Send(edit); err != nil {
			log.Printf("Error editing confirmation in chat %d: %v", chatID, err)
		}
	case "delete_no":
		edit := tgbotapi.NewEditMessageText(chatID, query.Message.MessageID, "Data deletion canceled.")
		if _, err := h.bot.Send(edit); err != nil {
			log.Printf("Error editing confirmation in chat %d: %v", chatID, err)
		}
	}
}

// deleteAllData purges a chat's registry rows and its private snapshots.
func (h *Handlers) deleteAllData(chatID int64) error {
	if err := h.store.RemoveSubscriberData(chatID); err != nil {
		return err
	}
	if err := db.DeleteUserData(chatID); err != nil {
		return err
	}
	log.Printf("All data for chat %d deleted.", chatID)
	return nil
}

func (h *Handlers) handleHelp(message *tgbotapi.Message) {
	h.reply(message.Chat.ID, helpMessage)
}
