package relay

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ombridge/internal/omservice"
)

func TestTimeTrackerCreateResolvesUserEmail(t *testing.T) {
	svc := &stubBackend{}
	directory := &stubDirectory{emails: map[string]string{"tt-5": "nico@example.com"}}
	router := newTestRouter(newTestRelay(svc, nil, directory))

	body := `{"id": "entry-1", "user_id": "tt-5", "title": "Code review", "project": "core", "seconds": 1800}`
	rec := doJSON(router, http.MethodPost, "/timetracker/webhook", body, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, svc.entries, 1)
	assert.Equal(t, omservice.TimeEntry{
		ID:      "entry-1",
		User:    "nico@example.com",
		Title:   "Code review",
		Project: "core",
		Time:    1800,
	}, svc.entries[0])
}

func TestTimeTrackerUnknownUserFails(t *testing.T) {
	router := newTestRouter(newTestRelay(&stubBackend{}, nil, &stubDirectory{}))
	body := `{"id": "entry-1", "user_id": "tt-404", "seconds": 1800}`
	rec := doJSON(router, http.MethodPost, "/timetracker/webhook", body, nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestTimeTrackerUpdateAndDelete(t *testing.T) {
	svc := &stubBackend{}
	router := newTestRouter(newTestRelay(svc, nil, nil))

	rec := doJSON(router, http.MethodPut, "/timetracker/webhook", `{"id": "entry-1", "seconds": 3600}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, svc.updates, 1)
	assert.Equal(t, durationUpdate{ID: "entry-1", Seconds: 3600}, svc.updates[0])

	rec = doJSON(router, http.MethodDelete, "/timetracker/webhook", `{"id": "entry-1"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"entry-1"}, svc.deletions)
}

func TestTimeTrackerRequiresEntryID(t *testing.T) {
	router := newTestRouter(newTestRelay(&stubBackend{}, nil, nil))
	rec := doJSON(router, http.MethodPost, "/timetracker/webhook", `{"seconds": 1800}`, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestDedupWindow(t *testing.T) {
	dedup := NewDedup()
	assert.False(t, dedup.Seen("d-1"))
	assert.True(t, dedup.Seen("d-1"))
	assert.False(t, dedup.Seen("d-2"))
}
