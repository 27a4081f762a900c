package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ombridge/internal/chat"
	relayerrors "ombridge/internal/errors"
	"ombridge/internal/omservice"
)

func dayObjectives() omservice.ObjectiveLevels {
	return omservice.ObjectiveLevels{
		Day:   []omservice.Objective{{ID: "obj-a", Title: "ship relay"}, {ID: "obj-b", Title: "review queue"}},
		Month: []omservice.Objective{{ID: "obj-m", Title: "stabilize ingest"}},
		Year:  []omservice.Objective{{ID: "obj-y", Title: "retire legacy"}},
	}
}

func optionCallback(callbackID, field, value, messageRef string) *chat.CallbackInvocation {
	return &chat.CallbackInvocation{
		CallbackID:  callbackID,
		UserName:    "nico",
		Field:       field,
		Value:       value,
		MessageRef:  messageRef,
		ResponseURL: "https://hooks.example/abc",
	}
}

func TestFlattenObjectivesPreservesLevelOrder(t *testing.T) {
	options := flattenObjectives(dayObjectives())
	require.Len(t, options, 4)
	assert.Equal(t, "obj-a", options[0].Value)
	assert.Equal(t, "obj-b", options[1].Value)
	assert.Equal(t, "obj-m", options[2].Value)
	assert.Equal(t, "obj-y", options[3].Value)
}

func TestWorkEntryCommitFlow(t *testing.T) {
	svc := &stubService{objectives: dayObjectives()}
	d, sink, store := newEngine(svc)

	ack := d.HandleCommand(&chat.CommandInvocation{Text: "time", UserName: "nico", ResponseURL: "https://hooks.example/abc"})
	assert.NotEmpty(t, ack.Text)

	// Initial render: both selectors visible, nothing committed yet.
	menu, ok := sink.Last()
	require.True(t, ok)
	require.Len(t, menu.Message.Attachments, 2)
	assert.Len(t, menu.Message.Attachments[0].Actions[0].Options, 4)
	assert.Empty(t, svc.workEntries, "no commit before both fields are chosen")

	require.Nil(t, d.HandleCallback(optionCallback(CallbackWorkEntryOption, FieldObjective, "obj-a", "111.1")))
	menu, _ = sink.Last()
	require.Len(t, menu.Message.Attachments, 2)
	require.Len(t, menu.Message.Attachments[0].Actions[0].SelectedOptions, 1)
	assert.Equal(t, "obj-a", menu.Message.Attachments[0].Actions[0].SelectedOptions[0].Value)
	assert.Empty(t, svc.workEntries, "no commit while duration is unchosen")

	require.Nil(t, d.HandleCallback(optionCallback(CallbackWorkEntryOption, FieldTime, "5400", "111.1")))
	require.Len(t, svc.workEntries, 1)
	assert.Equal(t, workEntryCall{ObjectiveID: "obj-a", Seconds: 5400, User: "nico"}, svc.workEntries[0])

	confirmation, _ := sink.Last()
	assert.Contains(t, confirmation.Message.Text, "1:30")
	assert.Contains(t, confirmation.Message.Text, "ship relay")
	require.Len(t, confirmation.Message.Attachments, 1)
	assert.Equal(t, CallbackUndoWorkEntry, confirmation.Message.Attachments[0].CallbackID)

	st, ok := store.Get("nico", KindWorkEntry)
	require.True(t, ok)
	require.NotNil(t, st.Committed)
	assert.Equal(t, "we-1", st.Committed.EntryID)
	assert.Equal(t, "111.1", st.MessageRef())
}

func TestWorkEntryObjectiveFetchFailureIsRetriable(t *testing.T) {
	svc := &stubService{
		objectivesErr: &relayerrors.UpstreamError{Kind: relayerrors.UpstreamNetwork, Op: "fetch-objectives"},
	}
	d, sink, store := newEngine(svc)

	d.HandleCommand(&chat.CommandInvocation{Text: "time", UserName: "nico", ResponseURL: "https://hooks.example/abc"})

	reply, ok := sink.Last()
	require.True(t, ok)
	assert.Contains(t, reply.Message.Text, "did not respond")

	st, ok := store.Get("nico", KindWorkEntry)
	require.True(t, ok)
	assert.Nil(t, st.Options[FieldObjective], "failed fetch leaves options unfetched")

	// Next interaction re-triggers the fetch.
	svc.objectivesErr = nil
	svc.objectives = dayObjectives()
	d.HandleCallback(optionCallback(CallbackWorkEntryOption, "", "", "111.1"))

	assert.Equal(t, 2, svc.objectiveFetches)
	menu, _ := sink.Last()
	require.Len(t, menu.Message.Attachments, 2)
	assert.Len(t, menu.Message.Attachments[0].Actions[0].Options, 4)
}

func TestWorkEntryCommitFailureLeavesStateUncommitted(t *testing.T) {
	svc := &stubService{
		objectives:   dayObjectives(),
		workEntryErr: &relayerrors.UpstreamError{Kind: relayerrors.UpstreamDomain, Op: "create-work-entry", Message: "objective is closed"},
	}
	d, sink, store := newEngine(svc)

	d.HandleCommand(&chat.CommandInvocation{Text: "time", UserName: "nico", ResponseURL: "https://hooks.example/abc"})
	d.HandleCallback(optionCallback(CallbackWorkEntryOption, FieldObjective, "obj-a", "111.1"))
	d.HandleCallback(optionCallback(CallbackWorkEntryOption, FieldTime, "1800", "111.1"))

	reply, _ := sink.Last()
	assert.Equal(t, "objective is closed", reply.Message.Text)
	st, _ := store.Get("nico", KindWorkEntry)
	assert.Nil(t, st.Committed)

	// The selections survive, so the next interaction retries the commit.
	svc.workEntryErr = nil
	d.HandleCallback(optionCallback(CallbackWorkEntryOption, FieldTime, "1800", "111.1"))
	require.Len(t, svc.workEntries, 1)
}

func TestUndoRequiresOriginalMessage(t *testing.T) {
	svc := &stubService{objectives: dayObjectives()}
	d, sink, _ := newEngine(svc)

	d.HandleCommand(&chat.CommandInvocation{Text: "time", UserName: "nico", ResponseURL: "https://hooks.example/abc"})
	d.HandleCallback(optionCallback(CallbackWorkEntryOption, FieldObjective, "obj-a", "111.1"))
	d.HandleCallback(optionCallback(CallbackWorkEntryOption, FieldTime, "5400", "111.1"))
	require.Len(t, svc.workEntries, 1)

	// Undo from a stale message is rejected without touching the backend.
	d.HandleCallback(optionCallback(CallbackUndoWorkEntry, "undo", "we-1", "999.9"))
	reply, _ := sink.Last()
	assert.Contains(t, reply.Message.Text, "most recent")
	assert.Contains(t, reply.Message.Text, "1:30", "rejection still carries the confirmation")
	assert.Empty(t, svc.deletes)

	// Undo from the wizard's own message deletes exactly the committed entry.
	d.HandleCallback(optionCallback(CallbackUndoWorkEntry, "undo", "we-1", "111.1"))
	require.Len(t, svc.deletes, 1)
	assert.Equal(t, deleteCall{ObjectiveID: "obj-a", EntryID: "we-1"}, svc.deletes[0])

	// A second undo finds nothing left to remove.
	d.HandleCallback(optionCallback(CallbackUndoWorkEntry, "undo", "we-1", "111.1"))
	require.Len(t, svc.deletes, 1)
	reply, _ = sink.Last()
	assert.Contains(t, reply.Message.Text, "nothing to undo")
}

func TestWorkEntryMissingSessionIsRecoverable(t *testing.T) {
	svc := &stubService{}
	d, sink, _ := newEngine(svc)

	d.HandleCallback(optionCallback(CallbackWorkEntryOption, FieldObjective, "obj-a", "111.1"))

	reply, ok := sink.Last()
	require.True(t, ok)
	assert.Contains(t, reply.Message.Text, "restart the command")
	assert.Zero(t, svc.objectiveFetches)
}

func TestWorkEntryCTARestartsWizard(t *testing.T) {
	svc := &stubService{objectives: dayObjectives()}
	d, _, store := newEngine(svc)

	d.HandleCommand(&chat.CommandInvocation{Text: "time", UserName: "nico", ResponseURL: "https://hooks.example/abc"})
	d.HandleCallback(optionCallback(CallbackWorkEntryOption, FieldObjective, "obj-a", "111.1"))

	d.HandleCallback(optionCallback(CallbackWorkEntryCTA, "", "", "222.2"))
	st, ok := store.Get("nico", KindWorkEntry)
	require.True(t, ok)
	_, selected := st.Selected(FieldObjective)
	assert.False(t, selected, "reinitialization discards prior selections")
	assert.Equal(t, 2, svc.objectiveFetches)
}
