package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"

	"greenlens/internal/config"
	"greenlens/internal/domain"
	"greenlens/internal/export"
	"greenlens/internal/logging"
	"greenlens/internal/service"
	"greenlens/internal/viewer"
)

var analyzeFlags struct {
	export      string
	verifyPages bool
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <report.pdf>",
	Short: "Upload a report and print the extracted initiatives",
	Long: `Validates the PDF, uploads it to the analysis backend and follows the
progress stream until the analysis completes or fails. The extracted initiatives
are printed as a table. Use --export to also write them to a .csv or .xlsx file
and --verify-pages to check every page reference against the document.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVar(&analyzeFlags.export, "export", "", "write initiatives to this .csv or .xlsx file")
	f.BoolVar(&analyzeFlags.verifyPages, "verify-pages", false, "load the document and jump to every initiative's page")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// fail on a bad export path before spending a whole analysis run
	var exportFormat export.Format
	if analyzeFlags.export != "" {
		if exportFormat, err = export.FormatForPath(analyzeFlags.export); err != nil {
			return err
		}
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	candidate, closeFile, err := openCandidate(args[0])
	if err != nil {
		return err
	}
	defer closeFile()

	wf := newWorkflow(cfg)
	defer wf.Close()

	out := cmd.OutOrStdout()
	outcome := make(chan domain.WorkflowState, 1)
	stopObserving := wf.Observe(progressPrinter(out, outcome))
	defer stopObserving()

	if err := wf.StartUpload(ctx, candidate); err != nil {
		return err
	}

	var final domain.WorkflowState
	select {
	case final = <-outcome:
	case <-ctx.Done():
		return fmt.Errorf("analysis interrupted: %w", ctx.Err())
	}
	if final.Error != "" {
		return errors.New(final.Error)
	}

	var checks []error
	if analyzeFlags.verifyPages {
		if checks, err = verifyPages(ctx, cfg, final, cmd.ErrOrStderr()); err != nil {
			return err
		}
	}

	fmt.Fprintln(out, renderFindings(final.Result, checks))
	fmt.Fprintf(out, "%d initiatives found\n", len(final.Result.Initiatives))

	if analyzeFlags.export != "" {
		if err := exportFindings(analyzeFlags.export, exportFormat, final.Result); err != nil {
			return err
		}
		fmt.Fprintf(out, "Exported to %s\n", analyzeFlags.export)
	}

	if failed := countFailures(checks); failed > 0 {
		return fmt.Errorf("%d of %d page references could not be verified", failed, len(checks))
	}
	return nil
}

// openCandidate builds a CandidateFile from a local path. The declared type
// comes from content sniffing rather than the file extension.
func openCandidate(path string) (domain.CandidateFile, func(), error) {
	info, err := os.Stat(path)
	if err != nil {
		return domain.CandidateFile{}, nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if info.IsDir() {
		return domain.CandidateFile{}, nil, fmt.Errorf("%s is a directory", path)
	}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return domain.CandidateFile{}, nil, fmt.Errorf("detecting type of %s: %w", path, err)
	}
	contentType := mtype.String()
	if mtype.Is(domain.PDFContentType) {
		contentType = domain.PDFContentType
	}

	f, err := os.Open(path)
	if err != nil {
		return domain.CandidateFile{}, nil, fmt.Errorf("opening %s: %w", path, err)
	}
	candidate := domain.CandidateFile{
		Name:        filepath.Base(path),
		ContentType: contentType,
		Size:        info.Size(),
		Body:        f,
	}
	return candidate, func() { _ = f.Close() }, nil
}

// progressPrinter prints a line per step or percentage change and delivers
// the first terminal state (a result, or a return to idle with an error) to
// outcome. It runs under the workflow lock so it never blocks.
func progressPrinter(out io.Writer, outcome chan<- domain.WorkflowState) service.Observer {
	var lastStep string
	lastPercent := -1.0
	return func(s domain.WorkflowState) {
		switch s.Phase {
		case domain.PhaseUploading, domain.PhaseAwaitingStream:
			if s.CurrentStep == "" || (s.CurrentStep == lastStep && s.ProgressPercent == lastPercent) {
				return
			}
			lastStep, lastPercent = s.CurrentStep, s.ProgressPercent
			fmt.Fprintf(out, "[%3.0f%%] %s\n", s.ProgressPercent, s.CurrentStep)
			return
		case domain.PhaseShowingResult:
		case domain.PhaseIdle:
			if s.Error == "" {
				return
			}
		}
		select {
		case outcome <- s:
		default:
		}
	}
}

// verifyPages loads the analysed document into a headless viewer and jumps to
// every initiative's page. The returned slice holds one outcome per initiative.
func verifyPages(ctx context.Context, cfg *config.Config, state domain.WorkflowState, out io.Writer) ([]error, error) {
	source, err := newDocumentSource(cfg)
	if err != nil {
		return nil, err
	}
	pdf := viewer.NewPDFViewer(source, out)
	syncer := service.NewSynchronizer(pdf, nil, logging.New("sync"))

	if err := syncer.Present(ctx, state.FileURL(), state.Result); err != nil {
		return nil, fmt.Errorf("loading document for page verification: %w", err)
	}

	checks := make([]error, len(state.Result.Initiatives))
	for i, in := range state.Result.Initiatives {
		_, checks[i] = syncer.JumpTo(ctx, in)
	}
	return checks, nil
}

func exportFindings(path string, format export.Format, result *domain.AnalysisResult) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", path, cerr)
		}
	}()
	if err := export.Write(f, format, result); err != nil {
		return fmt.Errorf("exporting to %s: %w", path, err)
	}
	return nil
}

func countFailures(checks []error) int {
	n := 0
	for _, err := range checks {
		if err != nil {
			n++
		}
	}
	return n
}
