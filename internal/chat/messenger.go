package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"ombridge/internal/httpclient"
	"ombridge/internal/logging"
)

const maxAPIResponseBytes = 4 << 20

// Messenger sends unsolicited messages through the chat platform's API.
// Deferred replies go through Sink instead; this path exists for relays
// that start a conversation, such as the code-push notification.
type Messenger interface {
	LookupUserID(ctx context.Context, username string) (string, error)
	SendDirectMessage(ctx context.Context, userID string, msg Message) error
}

// APIMessenger talks to the chat platform REST API with a bot token.
type APIMessenger struct {
	baseURL  string
	botToken string
	client   *http.Client
	logger   logging.Logger
}

// NewAPIMessenger builds the production messenger.
func NewAPIMessenger(baseURL, botToken string, client *http.Client, logger logging.Logger) *APIMessenger {
	if client == nil {
		client = httpclient.New(httpclient.DefaultTimeout, logger, "chat")
	}
	return &APIMessenger{
		baseURL:  strings.TrimRight(baseURL, "/"),
		botToken: botToken,
		client:   client,
		logger:   logging.OrNop(logger),
	}
}

// LookupUserID resolves a username to the platform's user id.
func (m *APIMessenger) LookupUserID(ctx context.Context, username string) (string, error) {
	var listing struct {
		OK      bool   `json:"ok"`
		Error   string `json:"error"`
		Members []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"members"`
	}
	if err := m.get(ctx, "/users.list", &listing); err != nil {
		return "", err
	}
	if !listing.OK {
		return "", fmt.Errorf("user listing rejected: %s", listing.Error)
	}
	for _, member := range listing.Members {
		if member.Name == username {
			return member.ID, nil
		}
	}
	return "", fmt.Errorf("no chat user named %q", username)
}

// SendDirectMessage opens the private channel for userID and posts msg to it.
func (m *APIMessenger) SendDirectMessage(ctx context.Context, userID string, msg Message) error {
	channelID, err := m.channelForUser(ctx, userID)
	if err != nil {
		return err
	}

	form := url.Values{}
	form.Set("token", m.botToken)
	form.Set("channel", channelID)
	form.Set("as_user", "true")
	form.Set("text", msg.Text)
	if len(msg.Attachments) > 0 {
		encoded, err := json.Marshal(msg.Attachments)
		if err != nil {
			return fmt.Errorf("encode attachments: %w", err)
		}
		form.Set("attachments", string(encoded))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/chat.postMessage", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := httpclient.ReadAllWithLimit(resp.Body, maxAPIResponseBytes)
	if err != nil {
		return err
	}
	var result struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("decode post response: %w", err)
	}
	if !result.OK {
		return fmt.Errorf("message rejected: %s", result.Error)
	}
	return nil
}

// channelForUser finds the private conversation channel for a user id.
func (m *APIMessenger) channelForUser(ctx context.Context, userID string) (string, error) {
	var listing struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
		IMs   []struct {
			ID   string `json:"id"`
			User string `json:"user"`
		} `json:"ims"`
	}
	if err := m.get(ctx, "/im.list", &listing); err != nil {
		return "", err
	}
	if !listing.OK {
		return "", fmt.Errorf("channel listing rejected: %s", listing.Error)
	}
	for _, im := range listing.IMs {
		if im.User == userID {
			return im.ID, nil
		}
	}
	return "", fmt.Errorf("no private channel for user %q", userID)
}

func (m *APIMessenger) get(ctx context.Context, path string, out any) error {
	endpoint := fmt.Sprintf("%s%s?token=%s", m.baseURL, path, url.QueryEscape(m.botToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := httpclient.ReadAllWithLimit(resp.Body, maxAPIResponseBytes)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}

// MessengerCall records a single outbound call made through a RecordingMessenger.
type MessengerCall struct {
	Method   string // "LookupUserID" or "SendDirectMessage"
	Username string
	UserID   string
	Message  Message
}

// RecordingMessenger implements Messenger by recording all outbound calls
// for later assertion in tests. It returns configurable responses and errors.
type RecordingMessenger struct {
	mu    sync.Mutex
	calls []MessengerCall

	// UserIDs maps usernames to resolved ids. Unknown names return an error.
	UserIDs map[string]string

	// NextError, when set, is returned by the next call and then cleared.
	NextError error
}

// NewRecordingMessenger creates a RecordingMessenger with sensible defaults.
func NewRecordingMessenger() *RecordingMessenger {
	return &RecordingMessenger{UserIDs: map[string]string{}}
}

func (r *RecordingMessenger) popError() error {
	if r.NextError != nil {
		err := r.NextError
		r.NextError = nil
		return err
	}
	return nil
}

func (r *RecordingMessenger) LookupUserID(_ context.Context, username string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, MessengerCall{Method: "LookupUserID", Username: username})
	if err := r.popError(); err != nil {
		return "", err
	}
	if id, ok := r.UserIDs[username]; ok {
		return id, nil
	}
	return "", fmt.Errorf("no chat user named %q", username)
}

func (r *RecordingMessenger) SendDirectMessage(_ context.Context, userID string, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, MessengerCall{Method: "SendDirectMessage", UserID: userID, Message: msg})
	return r.popError()
}

// Calls returns a copy of the recorded calls.
func (r *RecordingMessenger) Calls() []MessengerCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]MessengerCall, len(r.calls))
	copy(out, r.calls)
	return out
}
