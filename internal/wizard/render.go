package wizard

import (
	"fmt"
	"strconv"

	"ombridge/internal/chat"
)

const menuColor = "#3AA3E3"

// MenuField describes one visible selector of a wizard menu. Which fields
// are visible is decided by the calling wizard, not here.
type MenuField struct {
	Name     string
	Label    string
	Options  []Option
	Selected *Selection
}

// RenderMenu is the pure transform from wizard state to an interactive
// message: header text plus one action group per visible field, with the
// current selection pre-highlighted. Extra attachments (buttons such as
// create or undo) are appended verbatim.
func RenderMenu(text, callbackID string, fields []MenuField, extra ...chat.Attachment) chat.Message {
	msg := chat.Message{Text: text}
	for _, field := range fields {
		action := chat.Action{
			Name:    field.Name,
			Text:    field.Label,
			Type:    "select",
			Options: actionOptions(field.Options),
		}
		if field.Selected != nil {
			action.SelectedOptions = []chat.ActionOption{{Text: field.Selected.Text, Value: field.Selected.Value}}
		}
		msg.Attachments = append(msg.Attachments, chat.Attachment{
			Text:       field.Label,
			Color:      menuColor,
			CallbackID: callbackID,
			Actions:    []chat.Action{action},
		})
	}
	msg.Attachments = append(msg.Attachments, extra...)
	return msg
}

func actionOptions(options []Option) []chat.ActionOption {
	out := make([]chat.ActionOption, 0, len(options))
	for _, opt := range options {
		out = append(out, chat.ActionOption{Text: opt.Text, Value: opt.Value})
	}
	return out
}

// TimeOptions enumerates the selectable durations: half-hour steps from half
// an hour up to ten hours, each valued as seconds.
func TimeOptions() []Option {
	options := make([]Option, 0, 20)
	for step := 1; step <= 20; step++ {
		seconds := step * 1800
		options = append(options, Option{
			Text:  fmt.Sprintf("%02d:%02d", seconds/3600, seconds%3600/60),
			Value: strconv.Itoa(seconds),
		})
	}
	return options
}

// FormatElapsed renders a committed duration as hours and minutes, with no
// zero padding on either part.
func FormatElapsed(seconds int) string {
	return fmt.Sprintf("%d:%d", seconds/3600, seconds%3600/60)
}
