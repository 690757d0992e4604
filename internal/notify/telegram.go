package notify

import (
	"context"
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// Callback data prefixes for the reminder's inline actions. The bot's
// callback-query router dispatches on these.
const (
	CallbackMarkGiven = "med_given"
	CallbackSnooze    = "med_snooze"
	CallbackDetail    = "med_detail"
)

type sentMessage struct {
	chatID    int64
	messageID int
}

// TelegramNotifier renders reminders as Telegram messages with a
// three-button inline keyboard. It remembers the message id sent for each
// notification slot so a re-shown reminder replaces the previous message
// instead of flooding the chat, and so Cancel can delete it.
type TelegramNotifier struct {
	api *tgbotapi.BotAPI

	mu   sync.Mutex
	sent map[int32]sentMessage
}

func NewTelegramNotifier(api *tgbotapi.BotAPI) *TelegramNotifier {
	return &TelegramNotifier{api: api, sent: make(map[int32]sentMessage)}
}

func (n *TelegramNotifier) Show(ctx context.Context, r Reminder) error {
	// Delete the previous message for this slot, if any. The user may have
	// deleted it already, so a failure here is logged and ignored.
	n.mu.Lock()
	prev, hadPrev := n.sent[r.NotificationID]
	n.mu.Unlock()
	if hadPrev {
		deleteMsg := tgbotapi.NewDeleteMessage(prev.chatID, prev.messageID)
		if _, err := n.api.Request(deleteMsg); err != nil {
			log.Warn().Err(err).Int("message_id", prev.messageID).Msg("failed to delete old reminder message")
		}
	}

	snoozeMinutes := r.SnoozeMinutes
	if snoozeMinutes <= 0 {
		snoozeMinutes = 15
	}

	msg := tgbotapi.NewMessage(r.ChatID, reminderText(r))
	msg.ParseMode = "Markdown"
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ 已給藥", fmt.Sprintf("%s:%d", CallbackMarkGiven, r.ScheduleID)),
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("⏰ 延後 %d 分", snoozeMinutes), fmt.Sprintf("%s:%d", CallbackSnooze, r.ScheduleID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📋 詳情", fmt.Sprintf("%s:%d", CallbackDetail, r.ScheduleID)),
		),
	)

	sent, err := n.api.Send(msg)
	if err != nil {
		return fmt.Errorf("notify: sending reminder for schedule %d: %w", r.ScheduleID, err)
	}

	n.mu.Lock()
	n.sent[r.NotificationID] = sentMessage{chatID: r.ChatID, messageID: sent.MessageID}
	n.mu.Unlock()

	log.Info().Int64("schedule_id", r.ScheduleID).Int64("chat_id", r.ChatID).Int("message_id", sent.MessageID).Msg("reminder shown")
	return nil
}

func (n *TelegramNotifier) Cancel(ctx context.Context, notificationID int32) error {
	n.mu.Lock()
	prev, ok := n.sent[notificationID]
	if ok {
		delete(n.sent, notificationID)
	}
	n.mu.Unlock()
	if !ok {
		return nil
	}

	deleteMsg := tgbotapi.NewDeleteMessage(prev.chatID, prev.messageID)
	if _, err := n.api.Request(deleteMsg); err != nil {
		log.Warn().Err(err).Int("message_id", prev.messageID).Msg("failed to delete reminder message")
	}
	return nil
}

func reminderText(r Reminder) string {
	title := "💊 *餵藥提醒*"
	if r.Snoozed {
		title = "💊 *餵藥提醒（已延後）*"
	}

	text := fmt.Sprintf("%s\n\n該給 *%s* 吃 *%s* 了", title, r.CatName, r.MedicineName)
	if r.Dosage != "" {
		text += "\n💉 劑量：" + r.Dosage
	}
	return text
}
