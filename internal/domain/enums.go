package domain

// Phase is the coarse-grained stage of the upload workflow.
type Phase string

const (
	PhaseIdle           Phase = "idle"
	PhaseUploading      Phase = "uploading"
	PhaseAwaitingStream Phase = "awaiting_stream"
	PhaseShowingResult  Phase = "showing_result"
)

// EventKind tags a progress stream message.
type EventKind string

const (
	EventKindProgress EventKind = "progress"
	EventKindError    EventKind = "error"
)

// RejectReason explains why the upload gate refused a file.
type RejectReason string

const (
	RejectWrongType RejectReason = "wrong-type"
	RejectTooLarge  RejectReason = "too-large"
)

// Layout is the viewport class the document viewer is rendered in.
type Layout string

const (
	LayoutWide    Layout = "wide"
	LayoutCompact Layout = "compact"
)

// ParseLayout maps a client-declared layout, defaulting to LayoutWide.
func ParseLayout(s string) Layout {
	if Layout(s) == LayoutCompact {
		return LayoutCompact
	}
	return LayoutWide
}

// PDFContentType is the only media type accepted for upload.
const PDFContentType = "application/pdf"
