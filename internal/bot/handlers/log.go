package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

func (h *Handlers) handleGiven(ctx context.Context, msg *tgbotapi.Message) {
	arg := strings.TrimSpace(msg.CommandArguments())
	scheduleID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		h.sendMessage(msg.Chat.ID, "請提供排程編號\n用法: /given <排程編號>\n編號可以在 /schedules 查到")
		return
	}

	sc, err := h.lookupOwnedSchedule(ctx, msg.From.ID, scheduleID)
	if err != nil {
		h.sendMessage(msg.Chat.ID, "查詢排程失敗，請稍後再試")
		return
	}
	if sc == nil {
		h.sendMessage(msg.Chat.ID, fmt.Sprintf("找不到排程 #%d", scheduleID))
		return
	}

	if err := h.delivery.MarkGiven(ctx, scheduleID); err != nil {
		log.Error().Err(err).Int64("schedule_id", scheduleID).Msg("failed to mark given")
		h.sendMessage(msg.Chat.ID, "記錄失敗，請稍後再試")
		return
	}

	h.sendMessage(msg.Chat.ID, fmt.Sprintf("✅ 已記錄 *%s* 給藥 (%s)", sc.CatName, sc.MedicineName))
}

func (h *Handlers) handleSkip(ctx context.Context, msg *tgbotapi.Message) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) == 0 {
		h.sendMessage(msg.Chat.ID, "請提供排程編號\n用法: /skip <排程編號> [原因]")
		return
	}

	scheduleID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		h.sendMessage(msg.Chat.ID, "排程編號格式錯誤\n用法: /skip <排程編號> [原因]")
		return
	}

	sc, err := h.lookupOwnedSchedule(ctx, msg.From.ID, scheduleID)
	if err != nil {
		h.sendMessage(msg.Chat.ID, "查詢排程失敗，請稍後再試")
		return
	}
	if sc == nil {
		h.sendMessage(msg.Chat.ID, fmt.Sprintf("找不到排程 #%d", scheduleID))
		return
	}

	note := strings.Join(args[1:], " ")
	if err := h.delivery.MarkSkipped(ctx, scheduleID, note); err != nil {
		log.Error().Err(err).Int64("schedule_id", scheduleID).Msg("failed to mark skipped")
		h.sendMessage(msg.Chat.ID, "記錄失敗，請稍後再試")
		return
	}

	h.sendMessage(msg.Chat.ID, fmt.Sprintf("⏭ 已記錄 *%s* 這次略過 (%s)", sc.CatName, sc.MedicineName))
}

func (h *Handlers) handleLogList(ctx context.Context, msg *tgbotapi.Message) {
	rows, err := h.repos.MedicineLog.GetRecentByUserID(ctx, msg.From.ID, 20)
	if err != nil {
		log.Error().Err(err).Int64("user_id", msg.From.ID).Msg("failed to list medicine logs")
		h.sendMessage(msg.Chat.ID, "取得給藥記錄失敗，請稍後再試")
		return
	}

	if len(rows) == 0 {
		h.sendMessage(msg.Chat.ID, "📋 還沒有給藥記錄")
		return
	}

	var sb strings.Builder
	sb.WriteString("📋 *最近的給藥記錄*\n\n")
	for _, row := range rows {
		mark := "✅"
		if row.Entry.WasSkipped {
			mark = "⏭"
		}
		sb.WriteString(fmt.Sprintf("%s %s — %s (%s)\n", mark, row.Entry.AdministeredAt.Format("01-02 15:04"), row.MedicineName, row.CatName))
		if row.Entry.Note != "" {
			sb.WriteString(fmt.Sprintf("   📝 %s\n", row.Entry.Note))
		}
	}

	h.sendMessage(msg.Chat.ID, sb.String())
}
