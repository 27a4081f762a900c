package wizard

import (
	"context"
	"regexp"
	"strings"
	"time"

	"ombridge/internal/chat"
	relayerrors "ombridge/internal/errors"
	"ombridge/internal/logging"
	"ombridge/internal/observability"
	"ombridge/internal/omservice"
)

// Callback identifiers bound to interactive messages.
const (
	CallbackWorkEntryCTA        = "work_entry_cta"
	CallbackWorkEntryOption     = "work_entry_option_chosen"
	CallbackUndoWorkEntry       = "undo_last_work_entry"
	CallbackTaskProjectSelected = "add_task_project_selected"
	CallbackObjectiveOption     = "objective_option_chosen"
)

// stepTimeout bounds one asynchronous wizard step, fetches included.
const stepTimeout = 25 * time.Second

// Dispatcher routes inbound commands and callbacks to the owning wizard.
// The synchronous return value is the platform-required immediate reply;
// the real work runs off the request goroutine, serialized per user, and
// reaches the user through the response sink.
type Dispatcher struct {
	workEntry  *WorkEntryController
	objective  *ObjectiveCreateController
	taskCreate *TaskCreateController

	svc    omservice.Service
	sink   chat.Sink
	store  *Store
	logger logging.Logger

	// spawn runs a step handler off the request goroutine. Tests replace it
	// with an inline call.
	spawn func(func())
}

// NewDispatcher wires the dispatcher and all three wizard controllers.
func NewDispatcher(svc omservice.Service, sink chat.Sink, store *Store, logger logging.Logger, metrics *observability.Collector) *Dispatcher {
	logger = logging.OrNop(logger)
	return &Dispatcher{
		workEntry:  NewWorkEntryController(svc, sink, store, logger, metrics),
		objective:  NewObjectiveCreateController(svc, sink, store, logger, metrics),
		taskCreate: NewTaskCreateController(svc, sink, store, logger, metrics),
		svc:        svc,
		sink:       sink,
		store:      store,
		logger:     logger,
		spawn:      func(fn func()) { go fn() },
	}
}

// HandleCommand maps the command verb to its wizard and returns the
// placeholder acknowledgment to send synchronously.
func (d *Dispatcher) HandleCommand(inv *chat.CommandInvocation) chat.Message {
	verb, rest := splitVerb(inv.Text)
	user, responseURL := inv.UserName, inv.ResponseURL

	switch strings.ToLower(verb) {
	case "time":
		d.run(user, func(ctx context.Context) {
			d.workEntry.Start(ctx, user, responseURL)
		})
		return chat.Message{Text: "Let me pull up today's objectives..."}
	case "objective":
		d.run(user, func(ctx context.Context) {
			d.objective.Start(ctx, user, responseURL)
		})
		return chat.Message{Text: "Fetching your projects..."}
	case "task":
		title, tags := ParseTags(rest)
		if title == "" {
			return chat.Message{Text: "Tell me what to create: `task <title> [tag1, tag2]`."}
		}
		integration := inv.Integration
		d.run(user, func(ctx context.Context) {
			d.taskCreate.Start(ctx, user, responseURL, integration, title, tags)
		})
		return chat.Message{Text: "One moment..."}
	case "auth":
		d.run(user, func(ctx context.Context) {
			d.sendAuthLink(ctx, user, responseURL)
		})
		return chat.Message{Text: "Fetching your sign-in link..."}
	default:
		return unknownCommandReply()
	}
}

// HandleCallback maps the callback identifier to its step handler. A nil
// return means the synchronous reply should be an empty acknowledgment, so
// the rendered menu stays in place until the deferred step replaces it.
func (d *Dispatcher) HandleCallback(inv *chat.CallbackInvocation) *chat.Message {
	var step func(context.Context)

	switch inv.CallbackID {
	case CallbackWorkEntryCTA:
		step = func(ctx context.Context) { d.workEntry.Start(ctx, inv.UserName, inv.ResponseURL) }
	case CallbackWorkEntryOption:
		step = func(ctx context.Context) { d.workEntry.HandleOption(ctx, inv) }
	case CallbackUndoWorkEntry:
		step = func(ctx context.Context) { d.workEntry.HandleUndo(ctx, inv) }
	case CallbackTaskProjectSelected:
		step = func(ctx context.Context) { d.taskCreate.HandleProjectSelected(ctx, inv) }
	case CallbackObjectiveOption:
		step = func(ctx context.Context) { d.objective.HandleOption(ctx, inv) }
	default:
		d.logger.Warn("unrecognized callback id %q from %s", inv.CallbackID, inv.UserName)
		reply := unknownCommandReply()
		return &reply
	}

	d.run(inv.UserName, step)
	return nil
}

// run executes one step off the request goroutine, holding the user's
// session lock so rapid double-taps cannot race on the same state.
func (d *Dispatcher) run(user string, step func(context.Context)) {
	d.spawn(func() {
		ctx, cancel := context.WithTimeout(context.Background(), stepTimeout)
		defer cancel()
		unlock := d.store.Lock(user)
		defer unlock()
		step(ctx)
	})
}

func (d *Dispatcher) sendAuthLink(ctx context.Context, user, responseURL string) {
	link, err := d.svc.FetchAuthLink(ctx, user)
	if err != nil {
		d.logger.Warn("auth link fetch failed for %s: %v", user, err)
		send(ctx, d.sink, d.logger, responseURL, errorReply(err))
		return
	}
	send(ctx, d.sink, d.logger, responseURL, chat.Message{
		Text: "Follow this link to connect your account: " + link,
	})
}

var tagBlock = regexp.MustCompile(`^(.*?)\s*\[([^\[\]]*)\]$`)

// ParseTags splits free text into a title and a trailing bracket-delimited,
// comma-separated tag list. Text without a bracket block yields no tags.
func ParseTags(text string) (string, []string) {
	text = strings.TrimSpace(text)
	match := tagBlock.FindStringSubmatch(text)
	if match == nil {
		return text, nil
	}
	var tags []string
	for _, tag := range strings.Split(match[2], ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return strings.TrimSpace(match[1]), tags
}

// splitVerb peels the first whitespace-delimited token off the command text.
func splitVerb(text string) (string, string) {
	text = strings.TrimSpace(text)
	verb, rest, found := strings.Cut(text, " ")
	if !found {
		return text, ""
	}
	return verb, strings.TrimSpace(rest)
}

func unknownCommandReply() chat.Message {
	return chat.Message{Text: "Sorry, I don't know that command. Try `task`, `time`, `objective` or `auth`."}
}

func restartReply() chat.Message {
	return errorReply(&relayerrors.StateError{Message: "I lost track of that conversation. Please restart the command."})
}

func errorReply(err error) chat.Message {
	return chat.Message{Text: relayerrors.UserMessage(err)}
}

// send delivers one deferred reply, logging but otherwise swallowing
// failures: the interaction already received its synchronous placeholder.
func send(ctx context.Context, sink chat.Sink, logger logging.Logger, responseURL string, msg chat.Message) {
	if err := sink.Deliver(ctx, responseURL, msg); err != nil {
		logging.OrNop(logger).Warn("deferred reply dropped: %v", err)
	}
}
