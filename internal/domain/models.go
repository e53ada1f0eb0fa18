package domain

import "io"

// UploadTicket is the identifier/location pair returned by a successful upload.
// Identifier addresses the progress stream, LocationURL the source document.
type UploadTicket struct {
	Identifier   string `json:"file_key"`
	LocationURL  string `json:"file_url"`
	OriginalName string `json:"original_filename,omitempty"`
	Size         int64  `json:"file_size,omitempty"`
}

// Valid reports whether a stream may be opened for the ticket.
func (t *UploadTicket) Valid() bool {
	return t != nil && t.Identifier != "" && t.LocationURL != ""
}

// CandidateFile is a user-provided document that has not been uploaded yet.
type CandidateFile struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Initiative is one extracted ESG finding with its supporting evidence.
type Initiative struct {
	Summary      string `json:"evidence_summary"`
	EvidenceText string `json:"evidence_statement_with_newlines"`
	PageLabel    string `json:"page_label"`
	SourceName   string `json:"regulation_organization_or_framework"`
}

// AnalysisResult is the terminal payload of an analysis run.
type AnalysisResult struct {
	Initiatives []Initiative `json:"esg_initiatives"`
}

// Initiative returns the initiative at index i.
func (r *AnalysisResult) Initiative(i int) (Initiative, error) {
	if r == nil || i < 0 || i >= len(r.Initiatives) {
		return Initiative{}, ErrInitiativeNotFound
	}
	return r.Initiatives[i], nil
}

// ProgressEvent is a single decoded message from the progress stream.
// Kind is empty for an untyped message that only carries a result.
type ProgressEvent struct {
	Kind    EventKind
	Step    string
	Percent float64
	Message string
	Result  *AnalysisResult
}

// Terminal reports whether the event ends the stream.
func (e ProgressEvent) Terminal() bool {
	return e.Kind == EventKindError || e.Result != nil
}

// WorkflowState is the single source of truth for one upload session.
// Empty CurrentStep and Error mean "none".
type WorkflowState struct {
	Phase           Phase           `json:"phase"`
	Ticket          *UploadTicket   `json:"ticket,omitempty"`
	CurrentStep     string          `json:"current_step,omitempty"`
	ProgressPercent float64         `json:"progress_percent"`
	Result          *AnalysisResult `json:"result,omitempty"`
	Error           string          `json:"error,omitempty"`
}

// FileURL returns the location of the analysed document, if any.
func (s WorkflowState) FileURL() string {
	if s.Ticket == nil {
		return ""
	}
	return s.Ticket.LocationURL
}
