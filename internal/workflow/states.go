package workflow

// State identifies where a build run currently sits in the pipeline.
type State string

const (
	StateIdle             State = "idle"
	StateValidating       State = "validating"
	StateCreatingFolders  State = "creating_folders"
	StateSavingManifest   State = "saving_manifest"
	StateCopyingFiles     State = "copying_files"
	StateCreatingTemplate State = "creating_template"
	StateShowingSuccess   State = "showing_success"
	StateError            State = "error"
)

var allStates = []State{
	StateIdle,
	StateValidating,
	StateCreatingFolders,
	StateSavingManifest,
	StateCopyingFiles,
	StateCreatingTemplate,
	StateShowingSuccess,
	StateError,
}

// States returns every state the machine can occupy, in pipeline order.
func States() []State {
	out := make([]State, len(allStates))
	copy(out, allStates)
	return out
}

// Terminal reports whether the state is a resting state a run can only leave
// via reset (or, for showing_success, a fresh validation).
func (s State) Terminal() bool {
	return s == StateShowingSuccess || s == StateError
}

// Label returns a human-readable name for status displays.
func (s State) Label() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateValidating:
		return "Validating destination"
	case StateCreatingFolders:
		return "Creating folders"
	case StateSavingManifest:
		return "Saving breadcrumbs"
	case StateCopyingFiles:
		return "Copying footage"
	case StateCreatingTemplate:
		return "Creating template"
	case StateShowingSuccess:
		return "Complete"
	case StateError:
		return "Failed"
	default:
		return string(s)
	}
}
