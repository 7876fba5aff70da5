package converter

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"vocusconv/internal/logger"
	"vocusconv/internal/models"
	"vocusconv/internal/state"
)

// Batch processes source documents strictly one after another, in the order
// supplied. A failed document never aborts the batch.
type Batch struct {
	conv      *Converter
	checker   *state.Checker
	log       *logger.Logger
	sink      ProgressSink
	reportDir string

	// SkipExisting converts only documents with no existing outputs.
	SkipExisting bool
	// Force reconverts everything, including fresh outputs.
	Force bool
}

// NewBatch creates a batch runner sharing the converter's progress sink.
func NewBatch(conv *Converter, checker *state.Checker, log *logger.Logger, reportDir string) *Batch {
	return &Batch{
		conv:      conv,
		checker:   checker,
		log:       log,
		sink:      conv.sink,
		reportDir: reportDir,
	}
}

// Run converts the given documents and persists a batch report. Cancellation
// is honored between documents; the partial report is still written and the
// context error returned alongside it.
func (b *Batch) Run(ctx context.Context, files []string) (*models.BatchReport, error) {
	report := &models.BatchReport{ConversionTime: time.Now()}

	toProcess := b.selectFiles(files)
	report.TotalFiles = len(toProcess)

	var runErr error

	for idx, sourcePath := range toProcess {
		if err := ctx.Err(); err != nil {
			b.sink.Publish(Event{Type: EventStatus, Message: "conversion cancelled", Severity: SeverityError})

			runErr = err

			break
		}

		if b.conv.gate != nil {
			if err := b.conv.gate.Wait(ctx); err != nil {
				runErr = err
				break
			}
		}

		filename := filepath.Base(sourcePath)

		b.sink.Publish(Event{Type: EventOverall, Current: idx, Total: len(toProcess)})
		b.sink.Publish(Event{
			Type:     EventStatus,
			Message:  fmt.Sprintf("processing %s", filename),
			Severity: SeverityInfo,
		})

		docReport, err := b.conv.Convert(ctx, sourcePath)
		if err != nil {
			if isContextErr(ctx) {
				report.Results = append(report.Results, *docReport)
				report.Failed++

				runErr = ctx.Err()

				break
			}

			docReport.Errors = append(docReport.Errors, err.Error())
			b.sink.Publish(Event{
				Type:     EventStatus,
				Message:  fmt.Sprintf("%s failed: %v", filename, err),
				Severity: SeverityError,
			})
		}

		report.Results = append(report.Results, *docReport)

		if docReport.Failed() || err != nil {
			report.Failed++
		} else {
			report.Successful++
		}
	}

	b.sink.Publish(Event{Type: EventOverall, Current: len(toProcess), Total: len(toProcess)})

	reportPath, err := WriteBatchReport(b.reportDir, report)
	if err != nil {
		b.log.Error("failed to persist batch report", "error", err)
	} else {
		b.sink.Publish(Event{Type: EventComplete, ReportPath: reportPath})
	}

	return report, runErr
}

// selectFiles applies the freshness policy: by default fresh outputs are
// skipped without downloading anything; SkipExisting narrows to brand-new
// documents; Force converts everything.
func (b *Batch) selectFiles(files []string) []string {
	if b.Force {
		return files
	}

	var selected []string

	for _, sourcePath := range files {
		rec, err := b.checker.Classify(sourcePath)
		if err != nil {
			// Unclassifiable documents go through the pipeline, which will
			// report the real failure.
			b.log.Warn("could not classify document", "path", sourcePath, "error", err)
			selected = append(selected, sourcePath)

			continue
		}

		skip := rec.Status == state.StatusFresh ||
			(b.SkipExisting && rec.Status != state.StatusNew)

		if skip {
			b.sink.Publish(Event{
				Type:     EventStatus,
				Message:  fmt.Sprintf("skipping %s (%s)", filepath.Base(sourcePath), rec.Status),
				Severity: SeverityInfo,
			})

			continue
		}

		selected = append(selected, sourcePath)
	}

	return selected
}

func isContextErr(ctx context.Context) bool {
	return ctx.Err() != nil
}
