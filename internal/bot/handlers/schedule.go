package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/hray3182/PawLine/internal/alarm"
	"github.com/hray3182/PawLine/internal/models"
	"github.com/hray3182/PawLine/internal/recurrence"
)

func (h *Handlers) handleScheduleAdd(ctx context.Context, msg *tgbotapi.Message) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) < 2 {
		h.sendMessage(msg.Chat.ID, "請提供完整資訊\n用法: /schedule <藥名> <HH:MM> [星期]\n例如: /schedule 心絲蟲藥 09:00 一三五\n也可以直接貼 RRULE: /schedule 心絲蟲藥 RRULE:FREQ=WEEKLY;BYDAY=MO;BYHOUR=9;BYMINUTE=0")
		return
	}

	med, err := h.repos.Medicine.GetByName(ctx, msg.From.ID, args[0])
	if err != nil {
		log.Error().Err(err).Int64("user_id", msg.From.ID).Msg("failed to look up medicine")
		h.sendMessage(msg.Chat.ID, "查詢藥品失敗，請稍後再試")
		return
	}
	if med == nil {
		h.sendMessage(msg.Chat.ID, fmt.Sprintf("找不到叫 *%s* 的藥品，先用 /addmed 新增吧", args[0]))
		return
	}

	rule, err := parseRuleArgs(args[1:])
	if err != nil {
		h.sendMessage(msg.Chat.ID, "時間格式錯誤，請使用 HH:MM 格式 (例如 09:00)，星期如「一三五」或「每天」")
		return
	}
	if err := rule.Validate(); err != nil {
		h.sendMessage(msg.Chat.ID, "排程規則無效，請檢查時間與星期")
		return
	}

	sched := &models.MedicineSchedule{
		MedicineID: med.MedicineID,
		Rule:       rule,
	}
	if err := h.repos.Schedule.Create(ctx, sched); err != nil {
		log.Error().Err(err).Int64("medicine_id", med.MedicineID).Msg("failed to create schedule")
		h.sendMessage(msg.Chat.ID, "建立排程失敗，請稍後再試")
		return
	}

	sc, err := h.repos.Schedule.GetContext(ctx, sched.ScheduleID)
	if err != nil || sc == nil {
		log.Error().Err(err).Int64("schedule_id", sched.ScheduleID).Msg("failed to load schedule context")
		h.sendMessage(msg.Chat.ID, "排程已建立，但設定提醒失敗，請重啟後再試")
		return
	}

	res, err := h.alarms.Arm(&sc.Schedule, alarm.PayloadFor(sc))
	if err != nil {
		log.Error().Err(err).Int64("schedule_id", sched.ScheduleID).Msg("failed to arm schedule")
		h.sendMessage(msg.Chat.ID, "排程已建立，但設定提醒失敗")
		return
	}

	text := fmt.Sprintf("⏰ 排程 *#%d* 已建立\n💊 %s (%s)\n📅 %s",
		sched.ScheduleID, med.Name, med.Dosage, recurrence.Describe(rule))
	if res.Armed {
		text += fmt.Sprintf("\n下次提醒: %s", res.At.Format("2006-01-02 15:04"))
	} else {
		text += "\n⚠️ 這個規則目前不會觸發任何提醒"
	}
	h.sendMessage(msg.Chat.ID, text)
}

func (h *Handlers) handleScheduleList(ctx context.Context, msg *tgbotapi.Message) {
	contexts, err := h.repos.Schedule.GetContextsByUserID(ctx, msg.From.ID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", msg.From.ID).Msg("failed to list schedules")
		h.sendMessage(msg.Chat.ID, "取得排程列表失敗，請稍後再試")
		return
	}

	if len(contexts) == 0 {
		h.sendMessage(msg.Chat.ID, "⏰ 目前沒有餵藥排程")
		return
	}

	var sb strings.Builder
	sb.WriteString("⏰ *餵藥排程*\n\n")
	for _, sc := range contexts {
		status := ""
		if !sc.MedicineActive {
			status = " ⏸"
		}
		sb.WriteString(fmt.Sprintf("*#%d* 🐱 %s — 💊 %s (%s)%s\n", sc.Schedule.ScheduleID, sc.CatName, sc.MedicineName, sc.Dosage, status))
		sb.WriteString(fmt.Sprintf("   📅 %s\n\n", recurrence.Describe(sc.Schedule.Rule)))
	}

	h.sendMessage(msg.Chat.ID, sb.String())
}

func (h *Handlers) handleScheduleDelete(ctx context.Context, msg *tgbotapi.Message) {
	arg := strings.TrimSpace(msg.CommandArguments())
	scheduleID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		h.sendMessage(msg.Chat.ID, "請提供排程編號\n用法: /delschedule <編號>\n編號可以在 /schedules 查到")
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

	h.alarms.Cancel(scheduleID)
	if err := h.repos.Schedule.Delete(ctx, scheduleID); err != nil {
		log.Error().Err(err).Int64("schedule_id", scheduleID).Msg("failed to delete schedule")
		h.sendMessage(msg.Chat.ID, "刪除排程失敗，請稍後再試")
		return
	}

	h.sendMessage(msg.Chat.ID, fmt.Sprintf("🗑 已刪除排程 *#%d* (%s)", scheduleID, sc.MedicineName))
}

func (h *Handlers) sendScheduleDetail(ctx context.Context, chatID, userID, scheduleID int64) {
	sc, err := h.lookupOwnedSchedule(ctx, userID, scheduleID)
	if err != nil {
		h.sendMessage(chatID, "查詢排程失敗，請稍後再試")
		return
	}
	if sc == nil {
		h.sendMessage(chatID, "這個排程已經不存在了")
		return
	}

	text := fmt.Sprintf("📋 *排程 #%d*\n🐱 %s\n💊 %s\n💉 劑量: %s\n📅 %s",
		sc.Schedule.ScheduleID, sc.CatName, sc.MedicineName, sc.Dosage, recurrence.Describe(sc.Schedule.Rule))
	if !sc.MedicineActive {
		text += "\n⏸ 藥品已暫停"
	}
	h.sendMessage(chatID, text)
}

// lookupOwnedSchedule loads a schedule context and hides it when it belongs
// to another user's cat. nil, nil means not found (or not yours).
func (h *Handlers) lookupOwnedSchedule(ctx context.Context, userID, scheduleID int64) (*models.ScheduleContext, error) {
	sc, err := h.repos.Schedule.GetContext(ctx, scheduleID)
	if err != nil {
		log.Error().Err(err).Int64("schedule_id", scheduleID).Msg("failed to load schedule context")
		return nil, err
	}
	if sc == nil || sc.ChatID != userID {
		return nil, nil
	}
	return sc, nil
}

// parseRuleArgs accepts either "HH:MM [星期]" or a raw RRULE string.
func parseRuleArgs(args []string) (recurrence.Rule, error) {
	if strings.HasPrefix(strings.ToUpper(args[0]), "RRULE") {
		return recurrence.FromRRule(strings.Join(args, " "))
	}

	var hour, minute int
	if _, err := fmt.Sscanf(args[0], "%d:%d", &hour, &minute); err != nil {
		return recurrence.Rule{}, err
	}

	mask := recurrence.AllDays
	if len(args) > 1 {
		m, err := recurrence.ParseWeekdays(strings.Join(args[1:], ","))
		if err != nil {
			return recurrence.Rule{}, err
		}
		mask = m
	}

	return recurrence.Rule{Hour: hour, Minute: minute, WeekdayMask: mask}, nil
}
