package workflow

// EventKind names every event the machine understands.
type EventKind string

const (
	EventStart             EventKind = "start"
	EventUpdateConfig      EventKind = "update_config"
	EventValidationSuccess EventKind = "validation_success"
	EventValidationError   EventKind = "validation_error"
	EventFoldersCreated    EventKind = "folders_created"
	EventFoldersError      EventKind = "folders_error"
	EventManifestSaved     EventKind = "manifest_saved"
	EventManifestError     EventKind = "manifest_error"
	EventCopyProgress      EventKind = "copy_progress"
	EventCopyComplete      EventKind = "copy_complete"
	EventCopyError         EventKind = "copy_error"
	EventTemplateComplete  EventKind = "template_complete"
	EventTemplateError     EventKind = "template_error"
	EventReset             EventKind = "reset"
)

// Event is one unit of input to the machine. RunID is empty for
// caller-originated events, which always address the current run; events
// produced by asynchronous step tasks carry the run they were launched
// under so a stale completion can never mutate a newer run.
type Event struct {
	Kind    EventKind
	RunID   string
	Folder  string
	Percent int
	Message string
	Patch   *ConfigPatch
}

// WithRun stamps the event with the originating run identifier.
func (e Event) WithRun(runID string) Event {
	e.RunID = runID
	return e
}

func Start() Event { return Event{Kind: EventStart} }

func Reset() Event { return Event{Kind: EventReset} }

func UpdateConfig(patch ConfigPatch) Event {
	return Event{Kind: EventUpdateConfig, Patch: &patch}
}

func ValidationSuccess(folder string) Event {
	return Event{Kind: EventValidationSuccess, Folder: folder}
}

func ValidationError(msg string) Event {
	return Event{Kind: EventValidationError, Message: msg}
}

func FoldersCreated() Event { return Event{Kind: EventFoldersCreated} }

func FoldersError(msg string) Event {
	return Event{Kind: EventFoldersError, Message: msg}
}

func ManifestSaved() Event { return Event{Kind: EventManifestSaved} }

func ManifestError(msg string) Event {
	return Event{Kind: EventManifestError, Message: msg}
}

func CopyProgress(percent int) Event {
	return Event{Kind: EventCopyProgress, Percent: percent}
}

func CopyComplete() Event { return Event{Kind: EventCopyComplete} }

func CopyError(msg string) Event {
	return Event{Kind: EventCopyError, Message: msg}
}

func TemplateComplete() Event { return Event{Kind: EventTemplateComplete} }

func TemplateError(msg string) Event {
	return Event{Kind: EventTemplateError, Message: msg}
}
