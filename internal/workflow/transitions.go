package workflow

// apply mutates the run context for the given event and returns the
// resulting state. matched is false when the event has no row for the
// current state, in which case nothing was touched. Callers hold the
// machine lock.
func (m *Machine) apply(ev Event) (to State, matched bool) {
	switch m.state {
	case StateIdle:
		switch ev.Kind {
		case EventStart:
			m.beginRun()
			return StateValidating, true
		case EventUpdateConfig:
			m.data.applyPatch(ev.Patch)
			return StateIdle, true
		case EventValidationSuccess:
			// Validation performed by the caller; the run starts here.
			m.beginRun()
			m.data.ProjectFolder = ev.Folder
			return StateCreatingFolders, true
		}

	case StateValidating:
		switch ev.Kind {
		case EventValidationSuccess:
			m.data.ProjectFolder = ev.Folder
			return StateCreatingFolders, true
		case EventValidationError:
			m.data.LastError = ev.Message
			return StateError, true
		}

	case StateCreatingFolders:
		switch ev.Kind {
		case EventFoldersCreated:
			return StateSavingManifest, true
		case EventFoldersError:
			m.data.LastError = ev.Message
			return StateError, true
		}

	case StateSavingManifest:
		switch ev.Kind {
		case EventManifestSaved:
			return StateCopyingFiles, true
		case EventManifestError:
			m.data.LastError = ev.Message
			return StateError, true
		}

	case StateCopyingFiles:
		switch ev.Kind {
		case EventCopyProgress:
			// The copy engine is the source of truth: values are stored as
			// given, clamped to 0..100 but not forced monotonic.
			m.data.CopyProgress = clampPercent(ev.Percent)
			return StateCopyingFiles, true
		case EventCopyComplete:
			return StateCreatingTemplate, true
		case EventCopyError:
			m.data.LastError = ev.Message
			return StateError, true
		}

	case StateCreatingTemplate:
		switch ev.Kind {
		case EventTemplateComplete:
			return StateShowingSuccess, true
		case EventTemplateError:
			m.data.LastError = ev.Message
			return StateError, true
		}

	case StateShowingSuccess:
		switch ev.Kind {
		case EventValidationSuccess:
			// Back-to-back run without an explicit reset.
			m.data.resetRunState()
			m.beginRun()
			m.data.ProjectFolder = ev.Folder
			return StateCreatingFolders, true
		case EventReset:
			m.resetToIdle()
			return StateIdle, true
		}

	case StateError:
		if ev.Kind == EventReset {
			m.resetToIdle()
			return StateIdle, true
		}
	}

	return m.state, false
}
