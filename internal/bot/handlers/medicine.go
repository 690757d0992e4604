package handlers

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/hray3182/PawLine/internal/alarm"
	"github.com/hray3182/PawLine/internal/models"
)

func (h *Handlers) handleMedicineAdd(ctx context.Context, msg *tgbotapi.Message) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) < 3 {
		h.sendMessage(msg.Chat.ID, "請提供完整資訊\n用法: /addmed <貓名> <藥名> <劑量> [注意事項]\n例如: /addmed 咪咪 心絲蟲藥 半顆 飯後服用")
		return
	}

	cat, err := h.repos.Cat.GetByName(ctx, msg.From.ID, args[0])
	if err != nil {
		log.Error().Err(err).Int64("user_id", msg.From.ID).Msg("failed to look up cat")
		h.sendMessage(msg.Chat.ID, "查詢貓咪失敗，請稍後再試")
		return
	}
	if cat == nil {
		h.sendMessage(msg.Chat.ID, fmt.Sprintf("找不到叫 *%s* 的貓咪，先用 /addcat 新增吧", args[0]))
		return
	}

	med := &models.Medicine{
		CatID:    cat.CatID,
		Name:     args[1],
		Dosage:   args[2],
		IsActive: true,
	}
	if len(args) > 3 {
		med.Instructions = strings.Join(args[3:], " ")
	}

	if err := h.repos.Medicine.Create(ctx, med); err != nil {
		log.Error().Err(err).Int64("cat_id", cat.CatID).Msg("failed to create medicine")
		h.sendMessage(msg.Chat.ID, "新增藥品失敗，請稍後再試")
		return
	}

	h.sendMessage(msg.Chat.ID, fmt.Sprintf("💊 已為 *%s* 新增藥品 *%s* (%s)\n接著用 /schedule %s <HH:MM> [星期] 建立餵藥排程",
		cat.Name, med.Name, med.Dosage, med.Name))
}

func (h *Handlers) handleMedicineList(ctx context.Context, msg *tgbotapi.Message) {
	name := strings.TrimSpace(msg.CommandArguments())
	if name == "" {
		h.sendMessage(msg.Chat.ID, "請提供貓咪名字\n用法: /medicines <貓名>")
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

	meds, err := h.repos.Medicine.GetByCatID(ctx, cat.CatID)
	if err != nil {
		log.Error().Err(err).Int64("cat_id", cat.CatID).Msg("failed to list medicines")
		h.sendMessage(msg.Chat.ID, "取得藥品列表失敗，請稍後再試")
		return
	}

	if len(meds) == 0 {
		h.sendMessage(msg.Chat.ID, fmt.Sprintf("💊 *%s* 目前沒有藥品", cat.Name))
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("💊 *%s 的藥品*\n\n", cat.Name))
	for _, med := range meds {
		status := "✅"
		if !med.IsActive {
			status = "⏸"
		}
		sb.WriteString(fmt.Sprintf("%s *%s* — %s\n", status, med.Name, med.Dosage))
		if med.Instructions != "" {
			sb.WriteString(fmt.Sprintf("   📝 %s\n", med.Instructions))
		}
	}

	h.sendMessage(msg.Chat.ID, sb.String())
}

// handleMedicineActive pauses or resumes a medicine. Pausing cancels every
// armed timer for its schedules; resuming re-arms them from the stored rules.
func (h *Handlers) handleMedicineActive(ctx context.Context, msg *tgbotapi.Message, active bool) {
	name := strings.TrimSpace(msg.CommandArguments())
	if name == "" {
		if active {
			h.sendMessage(msg.Chat.ID, "請提供藥名\n用法: /resumemed <藥名>")
		} else {
			h.sendMessage(msg.Chat.ID, "請提供藥名\n用法: /pausemed <藥名>")
		}
		return
	}

	med, err := h.repos.Medicine.GetByName(ctx, msg.From.ID, name)
	if err != nil {
		log.Error().Err(err).Int64("user_id", msg.From.ID).Msg("failed to look up medicine")
		h.sendMessage(msg.Chat.ID, "查詢藥品失敗，請稍後再試")
		return
	}
	if med == nil {
		h.sendMessage(msg.Chat.ID, fmt.Sprintf("找不到叫 *%s* 的藥品", name))
		return
	}

	if err := h.repos.Medicine.SetActive(ctx, med.MedicineID, active); err != nil {
		log.Error().Err(err).Int64("medicine_id", med.MedicineID).Msg("failed to update medicine")
		h.sendMessage(msg.Chat.ID, "更新藥品失敗，請稍後再試")
		return
	}

	scheduleIDs, err := h.repos.Schedule.GetIDsByMedicineID(ctx, med.MedicineID)
	if err != nil {
		log.Error().Err(err).Int64("medicine_id", med.MedicineID).Msg("failed to list schedules for medicine")
		scheduleIDs = nil
	}

	if !active {
		for _, id := range scheduleIDs {
			h.alarms.Cancel(id)
		}
		h.sendMessage(msg.Chat.ID, fmt.Sprintf("⏸ 已暫停 *%s* 的提醒", med.Name))
		return
	}

	for _, id := range scheduleIDs {
		sc, err := h.repos.Schedule.GetContext(ctx, id)
		if err != nil || sc == nil {
			log.Error().Err(err).Int64("schedule_id", id).Msg("failed to load schedule for re-arm")
			continue
		}
		if _, err := h.alarms.Arm(&sc.Schedule, alarm.PayloadFor(sc)); err != nil {
			log.Error().Err(err).Int64("schedule_id", id).Msg("failed to re-arm schedule")
		}
	}
	h.sendMessage(msg.Chat.ID, fmt.Sprintf("✅ 已恢復 *%s* 的提醒", med.Name))
}

func (h *Handlers) handleMedicineDelete(ctx context.Context, msg *tgbotapi.Message) {
	name := strings.TrimSpace(msg.CommandArguments())
	if name == "" {
		h.sendMessage(msg.Chat.ID, "請提供藥名\n用法: /delmed <藥名>")
		return
	}

	med, err := h.repos.Medicine.GetByName(ctx, msg.From.ID, name)
	if err != nil {
		log.Error().Err(err).Int64("user_id", msg.From.ID).Msg("failed to look up medicine")
		h.sendMessage(msg.Chat.ID, "查詢藥品失敗，請稍後再試")
		return
	}
	if med == nil {
		h.sendMessage(msg.Chat.ID, fmt.Sprintf("找不到叫 *%s* 的藥品", name))
		return
	}

	scheduleIDs, err := h.repos.Schedule.GetIDsByMedicineID(ctx, med.MedicineID)
	if err != nil {
		log.Error().Err(err).Int64("medicine_id", med.MedicineID).Msg("failed to list schedules for medicine")
		h.sendMessage(msg.Chat.ID, "刪除藥品失敗，請稍後再試")
		return
	}
	for _, id := range scheduleIDs {
		h.alarms.Cancel(id)
	}

	if err := h.repos.Medicine.Delete(ctx, med.MedicineID); err != nil {
		log.Error().Err(err).Int64("medicine_id", med.MedicineID).Msg("failed to delete medicine")
		h.sendMessage(msg.Chat.ID, "刪除藥品失敗，請稍後再試")
		return
	}

	h.sendMessage(msg.Chat.ID, fmt.Sprintf("🗑 已刪除 *%s* 和它的排程", med.Name))
}
