package relay

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	relayerrors "ombridge/internal/errors"
)

func TestBoardCardCreatedImportsTask(t *testing.T) {
	svc := &stubBackend{}
	router := newTestRouter(newTestRelay(svc, nil, nil))

	body := `{"action": {"data": {
		"card": {"id": "c-9", "name": "Renew certificate", "desc": "Expires soon", "shortUrl": "https://board.example/c/c-9"},
		"list": {"name": "To Do"},
		"board": {"name": "Ops Board"}
	}}}`
	rec := doJSON(router, http.MethodPost, "/board/cardcreated", body, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, svc.tasksMade, 1)
	task := svc.tasksMade[0]
	assert.Equal(t, "Renew certificate", task.Title)
	assert.Equal(t, "Expires soon", task.Description)
	assert.Equal(t, []string{"imported", "ops-board", "to-do"}, task.Tags)
	assert.Equal(t, "board", task.Origin)
	assert.Equal(t, "inbox", task.Project)
	assert.Equal(t, "importer", task.CreatedBy)
	assert.Equal(t, "https://board.example/c/c-9", task.ExternalURL)
	assert.Equal(t, "c-9", task.ExternalID)
}

func TestTrackerTaskCreatedCarriesProjectTag(t *testing.T) {
	svc := &stubBackend{}
	router := newTestRouter(newTestRelay(svc, nil, nil))

	body := `{"event": "task.created", "task": {
		"id": "t-7", "title": "Escalate outage", "url": "https://tracker.example/t-7",
		"project": "Customer Care", "list": "Urgent"
	}}`
	rec := doJSON(router, http.MethodPost, "/tracker/taskcreated", body, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, svc.tasksMade, 1)
	task := svc.tasksMade[0]
	assert.Equal(t, []string{"imported", "p/customer-care", "urgent"}, task.Tags)
	assert.Equal(t, "tracker", task.Origin)
	assert.Equal(t, "t-7", task.ExternalID)
}

func TestEmailNewEmailCleansSubjectAndBody(t *testing.T) {
	svc := &stubBackend{}
	router := newTestRouter(newTestRelay(svc, nil, nil))

	body := `{
		"subject": "Fwd: Re: Invoice overdue",
		"from": "billing@example.com",
		"body": "<html><body><style>p{}</style><p>Please pay <b>invoice 42</b></p></body></html>"
	}`
	rec := doJSON(router, http.MethodPost, "/email/newemail", body, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, svc.tasksMade, 1)
	task := svc.tasksMade[0]
	assert.Equal(t, "Invoice overdue", task.Title)
	assert.Contains(t, task.Description, "Please pay invoice 42")
	assert.NotContains(t, task.Description, "<b>")
	assert.Contains(t, task.Description, "From: billing@example.com")
	assert.Equal(t, "email", task.Origin)
}

func TestCleanSubject(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Re: Re: FW: ping", "ping"},
		{"fwd:   hello", "hello"},
		{"Regular subject", "Regular subject"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cleanSubject(tt.in))
	}
}

func TestStripHTMLPassesPlainTextThrough(t *testing.T) {
	assert.Equal(t, "two words", stripHTML("two\n\n  words"))
}

func TestImportFailureStatusByKind(t *testing.T) {
	body := `{"action": {"data": {"card": {"id": "c-1", "name": "x"}}}}`

	t.Run("no response is a gateway timeout", func(t *testing.T) {
		svc := &stubBackend{taskErr: &relayerrors.UpstreamError{
			Kind: relayerrors.UpstreamNetwork,
			Op:   "create-task",
		}}
		router := newTestRouter(newTestRelay(svc, nil, nil))
		rec := doJSON(router, http.MethodPost, "/board/cardcreated", body, nil)
		assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	})

	t.Run("backend error body is a bad gateway", func(t *testing.T) {
		svc := &stubBackend{taskErr: &relayerrors.UpstreamError{
			Kind:    relayerrors.UpstreamDomain,
			Op:      "create-task",
			Message: "project not found",
		}}
		router := newTestRouter(newTestRelay(svc, nil, nil))
		rec := doJSON(router, http.MethodPost, "/board/cardcreated", body, nil)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}
