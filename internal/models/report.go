package models

import "time"

// Stage outcome values recorded per rendered artifact.
const (
	StageSuccess = "success"
	StageFailed  = "failed"
	StageSkipped = "skipped"
)

// DocumentReport captures the outcome of converting one source document.
// A document with a non-empty Errors slice still counts the stages that
// succeeded; partial success is reported, never collapsed into failure.
type DocumentReport struct {
	Filename         string   `json:"filename" yaml:"filename"`
	TotalImages      int      `json:"total_images" yaml:"total_images"`
	DownloadedImages int      `json:"downloaded_images" yaml:"downloaded_images"`
	TextStatus       string   `json:"md_status" yaml:"md_status"`
	PaginatedStatus  string   `json:"pdf_status" yaml:"pdf_status"`
	Errors           []string `json:"errors" yaml:"errors"`
}

// Failed reports whether every requested stage failed for this document.
func (r *DocumentReport) Failed() bool {
	return len(r.Errors) > 0 && r.TextStatus != StageSuccess && r.PaginatedStatus != StageSuccess
}

// BatchReport aggregates the per-document outcomes of one batch run.
type BatchReport struct {
	ConversionTime time.Time        `json:"conversion_time" yaml:"conversion_time"`
	TotalFiles     int              `json:"total_files" yaml:"total_files"`
	Successful     int              `json:"successful_conversions" yaml:"successful_conversions"`
	Failed         int              `json:"failed_conversions" yaml:"failed_conversions"`
	Results        []DocumentReport `json:"results" yaml:"results"`
}
