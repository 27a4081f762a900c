package wizard

import (
	"context"
	"fmt"
	"strconv"

	"ombridge/internal/chat"
	"ombridge/internal/logging"
	"ombridge/internal/observability"
	"ombridge/internal/omservice"
)

// WorkEntryController runs the work-entry logging wizard: pick an objective
// and a duration, commit automatically once both are chosen, undo on demand.
type WorkEntryController struct {
	svc     omservice.Service
	sink    chat.Sink
	store   *Store
	logger  logging.Logger
	metrics *observability.Collector
}

// NewWorkEntryController wires the work-entry wizard.
func NewWorkEntryController(svc omservice.Service, sink chat.Sink, store *Store, logger logging.Logger, metrics *observability.Collector) *WorkEntryController {
	return &WorkEntryController{
		svc:     svc,
		sink:    sink,
		store:   store,
		logger:  logging.OrNop(logger),
		metrics: metrics,
	}
}

// Start (re)initializes the wizard. Duration options are static; objective
// options start unfetched so the first step pulls the day's objectives.
func (c *WorkEntryController) Start(ctx context.Context, user, responseURL string) {
	st := NewState(KindWorkEntry)
	st.Options[FieldTime] = TimeOptions()
	c.store.Put(user, st)
	c.step(ctx, user, responseURL, st)
}

// HandleOption processes one menu selection.
func (c *WorkEntryController) HandleOption(ctx context.Context, inv *chat.CallbackInvocation) {
	st, ok := c.store.Get(inv.UserName, KindWorkEntry)
	if !ok {
		send(ctx, c.sink, c.logger, inv.ResponseURL, restartReply())
		return
	}
	st.CaptureMessageRef(inv.MessageRef)
	if inv.Field != "" {
		st.Select(inv.Field, inv.Value)
	}
	c.step(ctx, inv.UserName, inv.ResponseURL, st)
}

// step fetches missing objective options, commits when both fields are
// chosen, and otherwise re-renders the menu with current picks highlighted.
func (c *WorkEntryController) step(ctx context.Context, user, responseURL string, st *State) {
	if st.Options[FieldObjective] == nil {
		levels, err := c.svc.FetchObjectives(ctx, user)
		if err != nil {
			c.logger.Warn("objective fetch failed for %s: %v", user, err)
			c.metrics.RecordUpstreamError(ctx, "fetch-objectives")
			send(ctx, c.sink, c.logger, responseURL, errorReply(err))
			return
		}
		st.Options[FieldObjective] = flattenObjectives(levels)
	}

	objective, haveObjective := st.Selected(FieldObjective)
	duration, haveDuration := st.Selected(FieldTime)
	if haveObjective && haveDuration {
		c.commit(ctx, user, responseURL, st, objective, duration)
		return
	}

	fields := []MenuField{
		{Name: FieldObjective, Label: "Which objective did you work on?", Options: st.Options[FieldObjective]},
		{Name: FieldTime, Label: "For how long?", Options: st.Options[FieldTime]},
	}
	if haveObjective {
		fields[0].Selected = &objective
	}
	if haveDuration {
		fields[1].Selected = &duration
	}
	send(ctx, c.sink, c.logger, responseURL, RenderMenu("Log a work entry.", CallbackWorkEntryOption, fields))
}

func (c *WorkEntryController) commit(ctx context.Context, user, responseURL string, st *State, objective, duration Selection) {
	seconds, err := strconv.Atoi(duration.Value)
	if err != nil {
		c.logger.Error("unparseable duration %q from %s", duration.Value, user)
		send(ctx, c.sink, c.logger, responseURL, chat.Message{Text: "That duration made no sense to me. Please pick one from the menu."})
		return
	}
	entry, err := c.svc.CreateWorkEntry(ctx, objective.Value, seconds, user)
	if err != nil {
		c.logger.Warn("work entry commit failed for %s: %v", user, err)
		c.metrics.RecordUpstreamError(ctx, "create-work-entry")
		send(ctx, c.sink, c.logger, responseURL, errorReply(err))
		return
	}
	st.Committed = &Committed{EntryID: entry.ID, ObjectiveID: entry.ObjectiveID, DurationSeconds: seconds}
	c.metrics.RecordWizardCommit(ctx, string(KindWorkEntry))
	c.logger.Info("work entry %s committed for %s (%s)", entry.ID, user, FormatElapsed(seconds))
	send(ctx, c.sink, c.logger, responseURL, c.confirmation(st, ""))
}

// confirmation renders the post-commit message carrying the undo button.
// notice, when non-empty, is prepended, used for the undo-rejection variant.
func (c *WorkEntryController) confirmation(st *State, notice string) chat.Message {
	objective, _ := st.Selected(FieldObjective)
	text := fmt.Sprintf("Added %s to %q.", FormatElapsed(st.Committed.DurationSeconds), objective.Text)
	if notice != "" {
		text = notice + "\n" + text
	}
	return chat.Message{
		Text: text,
		Attachments: []chat.Attachment{{
			CallbackID: CallbackUndoWorkEntry,
			Color:      menuColor,
			Actions: []chat.Action{{
				Name:  "undo",
				Text:  "Undo",
				Type:  "button",
				Value: st.Committed.EntryID,
			}},
		}},
	}
}

// HandleUndo deletes the committed entry, but only when the request comes
// from the wizard's original message. Any other message identity gets the
// rejection variant and no delete call is made.
func (c *WorkEntryController) HandleUndo(ctx context.Context, inv *chat.CallbackInvocation) {
	st, ok := c.store.Get(inv.UserName, KindWorkEntry)
	if !ok {
		send(ctx, c.sink, c.logger, inv.ResponseURL, restartReply())
		return
	}
	if st.Committed == nil {
		send(ctx, c.sink, c.logger, inv.ResponseURL, chat.Message{Text: "There is nothing to undo."})
		return
	}
	if inv.MessageRef != st.MessageRef() {
		c.metrics.RecordWizardUndo(ctx, "rejected")
		send(ctx, c.sink, c.logger, inv.ResponseURL, c.confirmation(st, "You can only undo your most recent entry."))
		return
	}
	if err := c.svc.DeleteWorkEntry(ctx, st.Committed.ObjectiveID, st.Committed.EntryID, inv.UserName); err != nil {
		c.logger.Warn("undo failed for %s: %v", inv.UserName, err)
		c.metrics.RecordUpstreamError(ctx, "delete-work-entry")
		send(ctx, c.sink, c.logger, inv.ResponseURL, errorReply(err))
		return
	}
	elapsed := FormatElapsed(st.Committed.DurationSeconds)
	st.Committed = nil
	c.metrics.RecordWizardUndo(ctx, "done")
	send(ctx, c.sink, c.logger, inv.ResponseURL, chat.Message{
		Text:            fmt.Sprintf("Undone, the %s entry is gone.", elapsed),
		ReplaceOriginal: true,
	})
}

// flattenObjectives merges the three hierarchy levels into one flat option
// list, day first, then month, then year, preserving order within each.
func flattenObjectives(levels omservice.ObjectiveLevels) []Option {
	out := make([]Option, 0, len(levels.Day)+len(levels.Month)+len(levels.Year))
	for _, group := range [][]omservice.Objective{levels.Day, levels.Month, levels.Year} {
		for _, objective := range group {
			out = append(out, Option{Text: objective.Title, Value: objective.ID})
		}
	}
	return out
}
