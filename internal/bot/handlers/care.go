package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/hray3182/PawLine/internal/models"
)

func (h *Handlers) handleWeight(ctx context.Context, msg *tgbotapi.Message) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) < 2 {
		h.sendMessage(msg.Chat.ID, "請提供完整資訊\n用法: /weight <貓名> <公斤>\n例如: /weight 咪咪 4.2")
		return
	}

	cat, err := h.repos.Cat.GetByName(ctx, msg.From.ID, args[0])
	if err != nil {
		log.Error().Err(err).Int64("user_id", msg.From.ID).Msg("failed to look up cat")
		h.sendMessage(msg.Chat.ID, "查詢貓咪失敗，請稍後再試")
		return
	}
	if cat == nil {
		h.sendMessage(msg.Chat.ID, fmt.Sprintf("找不到叫 *%s* 的貓咪", args[0]))
		return
	}

	kg, err := strconv.ParseFloat(args[1], 64)
	if err != nil || kg <= 0 {
		h.sendMessage(msg.Chat.ID, "體重格式錯誤，請輸入公斤數 (例如 4.2)")
		return
	}

	entry := &models.WeightEntry{
		CatID:      cat.CatID,
		WeightKg:   kg,
		MeasuredAt: time.Now(),
	}
	if err := h.repos.Weight.Create(ctx, entry); err != nil {
		log.Error().Err(err).Int64("cat_id", cat.CatID).Msg("failed to record weight")
		h.sendMessage(msg.Chat.ID, "記錄體重失敗，請稍後再試")
		return
	}

	h.sendMessage(msg.Chat.ID, fmt.Sprintf("⚖️ 已記錄 *%s* 體重 %.1f 公斤", cat.Name, kg))
}

func (h *Handlers) handleWeightList(ctx context.Context, msg *tgbotapi.Message) {
	name := strings.TrimSpace(msg.CommandArguments())
	if name == "" {
		h.sendMessage(msg.Chat.ID, "請提供貓咪名字\n用法: /weights <貓名>")
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

	entries, err := h.repos.Weight.GetByCatID(ctx, cat.CatID, 10)
	if err != nil {
		log.Error().Err(err).Int64("cat_id", cat.CatID).Msg("failed to list weights")
		h.sendMessage(msg.Chat.ID, "取得體重記錄失敗，請稍後再試")
		return
	}

	if len(entries) == 0 {
		h.sendMessage(msg.Chat.ID, fmt.Sprintf("⚖️ *%s* 還沒有體重記錄", cat.Name))
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("⚖️ *%s 的體重*\n\n", cat.Name))
	for _, e := range entries {
		sb.WriteString(fmt.Sprintf("%s — %.1f kg\n", e.MeasuredAt.Format("2006-01-02"), e.WeightKg))
	}

	h.sendMessage(msg.Chat.ID, sb.String())
}

func (h *Handlers) handleFood(ctx context.Context, msg *tgbotapi.Message) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) < 2 {
		h.sendMessage(msg.Chat.ID, "請提供完整資訊\n用法: /food <貓名> <內容> [克數]\n例如: /food 咪咪 主食罐 80")
		return
	}

	cat, err := h.repos.Cat.GetByName(ctx, msg.From.ID, args[0])
	if err != nil {
		log.Error().Err(err).Int64("user_id", msg.From.ID).Msg("failed to look up cat")
		h.sendMessage(msg.Chat.ID, "查詢貓咪失敗，請稍後再試")
		return
	}
	if cat == nil {
		h.sendMessage(msg.Chat.ID, fmt.Sprintf("找不到叫 *%s* 的貓咪", args[0]))
		return
	}

	entry := &models.FoodEntry{
		CatID:     cat.CatID,
		FoodType:  "other",
		BrandName: args[1],
		FedAt:     time.Now(),
	}
	// Trailing number is grams
	if len(args) > 2 {
		if grams, err := strconv.Atoi(args[len(args)-1]); err == nil {
			entry.AmountGram = grams
			entry.BrandName = strings.Join(args[1:len(args)-1], " ")
		} else {
			entry.BrandName = strings.Join(args[1:], " ")
		}
	}

	if err := h.repos.Food.Create(ctx, entry); err != nil {
		log.Error().Err(err).Int64("cat_id", cat.CatID).Msg("failed to record food")
		h.sendMessage(msg.Chat.ID, "記錄進食失敗，請稍後再試")
		return
	}

	text := fmt.Sprintf("🍽 已記錄 *%s* 吃了 %s", cat.Name, entry.BrandName)
	if entry.AmountGram > 0 {
		text += fmt.Sprintf(" %d 克", entry.AmountGram)
	}
	h.sendMessage(msg.Chat.ID, text)
}

func (h *Handlers) handleDiary(ctx context.Context, msg *tgbotapi.Message) {
	args := strings.SplitN(strings.TrimSpace(msg.CommandArguments()), " ", 2)
	if len(args) < 2 {
		h.sendMessage(msg.Chat.ID, "請提供完整資訊\n用法: /diary <貓名> <內容>\n例如: /diary 咪咪 今天精神很好，有跳上窗台曬太陽")
		return
	}

	cat, err := h.repos.Cat.GetByName(ctx, msg.From.ID, args[0])
	if err != nil {
		log.Error().Err(err).Int64("user_id", msg.From.ID).Msg("failed to look up cat")
		h.sendMessage(msg.Chat.ID, "查詢貓咪失敗，請稍後再試")
		return
	}
	if cat == nil {
		h.sendMessage(msg.Chat.ID, fmt.Sprintf("找不到叫 *%s* 的貓咪", args[0]))
		return
	}

	note := &models.DiaryNote{
		CatID:    cat.CatID,
		Content:  args[1],
		Category: "general",
	}
	if err := h.repos.Diary.Create(ctx, note); err != nil {
		log.Error().Err(err).Int64("cat_id", cat.CatID).Msg("failed to create diary note")
		h.sendMessage(msg.Chat.ID, "寫日記失敗，請稍後再試")
		return
	}

	h.sendMessage(msg.Chat.ID, fmt.Sprintf("📔 已為 *%s* 寫下今天的日記", cat.Name))
}
