// Package wizard implements the interactive command engine: multi-turn
// conversational workflows driven by slash commands and follow-up menu or
// button interactions, with per-user state held in a bounded session store.
package wizard

// Kind tags the workflow a State belongs to.
type Kind string

const (
	KindWorkEntry       Kind = "work_entry"
	KindObjectiveCreate Kind = "objective_create"
	KindTaskCreate      Kind = "task_create"
)

// Field names used across the wizards.
const (
	FieldObjective = "objective"
	FieldTime      = "time"
	FieldProject   = "project"
	FieldTask      = "task"
)

// Option is one selectable entry of a wizard field.
type Option struct {
	Text  string
	Value string
}

// Selection records the user's choice for one field.
type Selection struct {
	Value string
	Text  string
}

// Committed holds the backend's answer to a successful work-entry commit,
// kept so undo can address the exact entry that was created.
type Committed struct {
	EntryID         string
	ObjectiveID     string
	DurationSeconds int
}

// TaskDraft is the task-creation wizard's staged input, captured before any
// network call happens.
type TaskDraft struct {
	Title       string
	Tags        []string
	Origin      string
	Integration string
}

// State is one wizard instance for one user. A nil option slice means the
// field's options were never fetched; an empty non-nil slice means the fetch
// succeeded and returned nothing.
type State struct {
	Kind       Kind
	Options    map[string][]Option
	Selections map[string]Selection
	Committed  *Committed
	Draft      *TaskDraft

	messageRef string
}

// NewState creates an empty wizard state of the given kind.
func NewState(kind Kind) *State {
	return &State{
		Kind:       kind,
		Options:    make(map[string][]Option),
		Selections: make(map[string]Selection),
	}
}

// CaptureMessageRef stores the identity of the first rendered message. Later
// calls are ignored so the reference stays pinned to the wizard's original
// menu for the lifetime of the instance.
func (s *State) CaptureMessageRef(ref string) {
	if s.messageRef == "" && ref != "" {
		s.messageRef = ref
	}
}

// MessageRef returns the captured message identity, or empty if no menu
// interaction happened yet.
func (s *State) MessageRef() string {
	return s.messageRef
}

// Select records the user's choice for a field, resolving the display text
// from the fetched options when possible.
func (s *State) Select(field, value string) {
	sel := Selection{Value: value, Text: value}
	for _, opt := range s.Options[field] {
		if opt.Value == value {
			sel.Text = opt.Text
			break
		}
	}
	s.Selections[field] = sel
}

// Selected returns the recorded choice for a field.
func (s *State) Selected(field string) (Selection, bool) {
	sel, ok := s.Selections[field]
	return sel, ok
}

// ClearField drops both the options and the selection of a field, forcing a
// refetch on the next render. Used when an upstream field changes and the
// dependent field's choices no longer apply.
func (s *State) ClearField(field string) {
	delete(s.Options, field)
	delete(s.Selections, field)
}
