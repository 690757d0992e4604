package handlers

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/hray3182/PawLine/internal/models"
)

func (h *Handlers) handleCatAdd(ctx context.Context, msg *tgbotapi.Message) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) == 0 {
		h.sendMessage(msg.Chat.ID, "請提供貓咪名字\n用法: /addcat <名字> [品種]\n例如: /addcat 咪咪 米克斯")
		return
	}

	cat := &models.Cat{
		UserID: msg.From.ID,
		Name:   args[0],
	}
	if len(args) > 1 {
		cat.Breed = strings.Join(args[1:], " ")
	}

	if err := h.repos.Cat.Create(ctx, cat); err != nil {
		log.Error().Err(err).Int64("user_id", msg.From.ID).Msg("failed to create cat")
		h.sendMessage(msg.Chat.ID, "新增貓咪失敗，請稍後再試")
		return
	}

	h.sendMessage(msg.Chat.ID, fmt.Sprintf("🐱 已新增貓咪 *%s*", cat.Name))
}

func (h *Handlers) handleCatList(ctx context.Context, msg *tgbotapi.Message) {
	cats, err := h.repos.Cat.GetByUserID(ctx, msg.From.ID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", msg.From.ID).Msg("failed to list cats")
		h.sendMessage(msg.Chat.ID, "取得貓咪列表失敗，請稍後再試")
		return
	}

	if len(cats) == 0 {
		h.sendMessage(msg.Chat.ID, "🐱 還沒有貓咪，用 /addcat 新增一隻吧")
		return
	}

	var sb strings.Builder
	sb.WriteString("🐱 *貓咪列表*\n\n")
	for _, cat := range cats {
		sb.WriteString(fmt.Sprintf("• *%s*", cat.Name))
		if cat.Breed != "" {
			sb.WriteString(fmt.Sprintf(" (%s)", cat.Breed))
		}
		if cat.BirthDate != nil {
			sb.WriteString(fmt.Sprintf("\n  🎂 %s", cat.BirthDate.Format("2006-01-02")))
		}
		sb.WriteString("\n")
	}

	h.sendMessage(msg.Chat.ID, sb.String())
}

// handleCatDelete removes a cat and everything hanging off it. The database
// cascades medicines, schedules and care entries; armed timers are cancelled
// here first so no reminder fires for a schedule row that is about to vanish.
func (h *Handlers) handleCatDelete(ctx context.Context, msg *tgbotapi.Message) {
	name := strings.TrimSpace(msg.CommandArguments())
	if name == "" {
		h.sendMessage(msg.Chat.ID, "請提供貓咪名字\n用法: /delcat <名字>")
		return
	}

	cat, err := h.repos.Cat.GetByName(ctx, msg.From.ID, name)
	if err != nil {
		log.Error().Err(err).Int64("user_id", msg.From.ID).Msg("failed to look up cat")
		h.sendMessage(msg.Chat.ID, "查詢貓咪失敗，請稍後再試")
		return
	}
	if cat == nil {
		h.sendMessage(msg.Chat.ID, fmt.Sprintf("找不到叫 *%s* 的貓咪", name))
		return
	}

	scheduleIDs, err := h.repos.Schedule.GetIDsByCatID(ctx, cat.CatID)
	if err != nil {
		log.Error().Err(err).Int64("cat_id", cat.CatID).Msg("failed to list schedules for cat")
		h.sendMessage(msg.Chat.ID, "刪除貓咪失敗，請稍後再試")
		return
	}
	for _, id := range scheduleIDs {
		h.alarms.Cancel(id)
	}

	if err := h.repos.Cat.Delete(ctx, cat.CatID, msg.From.ID); err != nil {
		log.Error().Err(err).Int64("cat_id", cat.CatID).Msg("failed to delete cat")
		h.sendMessage(msg.Chat.ID, "刪除貓咪失敗，請稍後再試")
		return
	}

	h.sendMessage(msg.Chat.ID, fmt.Sprintf("🗑 已刪除 *%s* 和相關的藥品、排程與記錄", cat.Name))
}
