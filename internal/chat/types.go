// Package chat models the chat-platform boundary: inbound command and
// callback invocations, outbound interactive messages, the one-time response
// sink, and the direct-message messenger.
package chat

import (
	"encoding/json"
	"strings"

	relayerrors "ombridge/internal/errors"
)

// CommandInvocation is a decoded slash-command request.
type CommandInvocation struct {
	Text        string // full free text after the slash command
	UserName    string // acting user identity
	ResponseURL string // one-time response handle
	Token       string // shared-secret verification token
	Integration string // integration id carried in the route
}

// CallbackInvocation is a decoded interactive-callback request, produced
// when the user clicks a button or picks a menu option.
type CallbackInvocation struct {
	CallbackID  string
	UserName    string
	Field       string // action name, e.g. "objective", "time", "project"
	Value       string // selected value, empty for plain buttons
	MessageRef  string // identity of the message the interaction came from
	ResponseURL string
	Token       string
	Integration string
}

// ActionOption is one selectable entry of a menu action.
type ActionOption struct {
	Text  string `json:"text"`
	Value string `json:"value"`
}

// Action is a single button or menu inside an attachment.
type Action struct {
	Name            string         `json:"name"`
	Text            string         `json:"text"`
	Type            string         `json:"type"` // "button" or "select"
	Value           string         `json:"value,omitempty"`
	Options         []ActionOption `json:"options,omitempty"`
	SelectedOptions []ActionOption `json:"selected_options,omitempty"`
}

// Attachment is one action group of an interactive message.
type Attachment struct {
	Text       string   `json:"text,omitempty"`
	Color      string   `json:"color,omitempty"`
	CallbackID string   `json:"callback_id,omitempty"`
	Actions    []Action `json:"actions,omitempty"`
}

// Message is an outbound chat message, either a deferred reply posted to a
// response handle or a direct message.
type Message struct {
	Text            string       `json:"text"`
	ResponseType    string       `json:"response_type,omitempty"`
	ReplaceOriginal bool         `json:"replace_original,omitempty"`
	Attachments     []Attachment `json:"attachments,omitempty"`
}

// callbackPayload mirrors the platform's interactive wire format.
type callbackPayload struct {
	Token      string `json:"token"`
	CallbackID string `json:"callback_id"`
	User       struct {
		Name string `json:"name"`
	} `json:"user"`
	Actions []struct {
		Name            string         `json:"name"`
		Value           string         `json:"value"`
		SelectedOptions []ActionOption `json:"selected_options"`
	} `json:"actions"`
	OriginalMessage struct {
		TS string `json:"ts"`
	} `json:"original_message"`
	MessageTS   string `json:"message_ts"`
	ResponseURL string `json:"response_url"`
}

// ParseCallback decodes the JSON body of an interactive callback into the
// tagged variant consumed by the wizard engine.
func ParseCallback(raw []byte) (*CallbackInvocation, error) {
	var payload callbackPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, &relayerrors.ValidationError{Field: "payload", Message: "malformed callback JSON"}
	}
	inv := &CallbackInvocation{
		CallbackID:  strings.TrimSpace(payload.CallbackID),
		UserName:    strings.TrimSpace(payload.User.Name),
		ResponseURL: payload.ResponseURL,
		Token:       payload.Token,
		MessageRef:  payload.MessageTS,
	}
	if inv.MessageRef == "" {
		inv.MessageRef = payload.OriginalMessage.TS
	}
	if len(payload.Actions) > 0 {
		action := payload.Actions[0]
		inv.Field = action.Name
		inv.Value = action.Value
		if inv.Value == "" && len(action.SelectedOptions) > 0 {
			inv.Value = action.SelectedOptions[0].Value
		}
	}
	if inv.CallbackID == "" {
		return nil, &relayerrors.ValidationError{Field: "callback_id", Message: "missing callback id"}
	}
	if inv.UserName == "" {
		return nil, &relayerrors.ValidationError{Field: "user.name", Message: "missing user identity"}
	}
	return inv, nil
}
