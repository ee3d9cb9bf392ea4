package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"laundry-bot-backend/internal/line"
	"laundry-bot-backend/internal/model"
	"laundry-bot-backend/internal/template"
)

// Commands recognized by the router, in the bot's locale.
const (
	cmdWash = "ซักผ้า"
	cmdDry  = "อบผ้า"
)

// typeTexts collects the per-machine-type wording so listing and
// selection run through one flow instead of duplicated washer/dryer
// branches.
type typeTexts struct {
	selectPrefix string
	prompt       string
	noneFree     string
	buttonLabel  func(m model.MachineConfig) string
}

var machineTexts = map[model.MachineType]typeTexts{
	model.MachineTypeWasher: {
		selectPrefix: cmdWash + "_เลือก_",
		prompt:       "กรุณาเลือกหมายเลขเครื่องซักผ้าค่ะ",
		noneFree:     "ขออภัยค่ะ ขณะนี้ไม่มีเครื่องซักผ้าว่าง",
		buttonLabel: func(m model.MachineConfig) string {
			return fmt.Sprintf("เครื่อง %d", m.MachineID)
		},
	},
	model.MachineTypeDryer: {
		selectPrefix: cmdDry + "_เลือก_",
		prompt:       "กรุณาเลือกเวลาสำหรับเครื่องอบผ้าค่ะ",
		noneFree:     "ขออภัยค่ะ ขณะนี้ไม่มีเครื่องอบผ้าว่าง",
		buttonLabel: func(m model.MachineConfig) string {
			return fmt.Sprintf("%d นาที", m.DurationMinutes)
		},
	},
}

// HandleEvent routes one inbound webhook event. Every recognized or
// unrecognized text gets a reply; errors from the reservation flow are
// returned for request-level logging only.
func (s *Service) HandleEvent(ctx context.Context, st *model.Store, ev line.Event) error {
	if !ev.IsTextMessage() {
		if ev.ReplyToken != "" {
			s.reply(ctx, st, ev.ReplyToken, s.templates.Resolve(ctx, st.ID, template.IDNonTextMessage), nil)
		}
		return nil
	}

	text := strings.ToLower(strings.TrimSpace(ev.Message.Text))

	switch {
	case text == cmdWash:
		return s.listMachines(ctx, st, model.MachineTypeWasher, ev.ReplyToken)
	case text == cmdDry:
		return s.listMachines(ctx, st, model.MachineTypeDryer, ev.ReplyToken)
	case strings.HasPrefix(text, machineTexts[model.MachineTypeWasher].selectPrefix):
		return s.selectMachine(ctx, st, model.MachineTypeWasher, text, ev)
	case strings.HasPrefix(text, machineTexts[model.MachineTypeDryer].selectPrefix):
		return s.selectMachine(ctx, st, model.MachineTypeDryer, text, ev)
	default:
		s.reply(ctx, st, ev.ReplyToken, s.templates.Resolve(ctx, st.ID, template.IDInitialGreeting), menuButtons())
		return nil
	}
}

// listMachines replies with one quick reply button per active machine of
// the requested type, ordered by machine id.
func (s *Service) listMachines(ctx context.Context, st *model.Store, machineType model.MachineType, replyToken string) error {
	texts := machineTexts[machineType]

	machines, err := s.store.ListActiveMachines(ctx, st.ID, machineType)
	if err != nil {
		s.reply(ctx, st, replyToken, s.templates.Resolve(ctx, st.ID, template.IDGenericError), nil)
		return fmt.Errorf("machine listing failed: %w", err)
	}

	if len(machines) == 0 {
		s.reply(ctx, st, replyToken, texts.noneFree, nil)
		return nil
	}

	buttons := make([]line.QuickReplyItem, 0, len(machines))
	for _, m := range machines {
		buttons = append(buttons, line.MessageItem(
			texts.buttonLabel(m),
			fmt.Sprintf("%s%d", texts.selectPrefix, m.MachineID),
		))
	}
	s.reply(ctx, st, replyToken, texts.prompt, buttons)
	return nil
}

func (s *Service) selectMachine(ctx context.Context, st *model.Store, machineType model.MachineType, text string, ev line.Event) error {
	raw := strings.TrimPrefix(text, machineTexts[machineType].selectPrefix)
	machineID, err := strconv.Atoi(raw)
	if err != nil {
		s.reply(ctx, st, ev.ReplyToken, s.templates.Resolve(ctx, st.ID, template.IDMachineNotFound), nil)
		return nil
	}
	return s.Reserve(ctx, st, machineType, machineID, ev.Source.UserID, ev.ReplyToken)
}

func menuButtons() []line.QuickReplyItem {
	return []line.QuickReplyItem{
		line.MessageItem(cmdWash, cmdWash),
		line.MessageItem(cmdDry, cmdDry),
	}
}
