// Package clean runs CSV cleaning jobs described by job descriptor files.
//
// A run loads the descriptor, resolves input and output locations, detects
// the input's encoding and delimiter unless the parameters pin them, and
// pushes the rows through normalization, type inference, trimming, null
// handling and deduplication before writing the cleaned CSV plus a JSON
// report. Progress checkpoints and the final status are persisted back
// into the descriptor after every stage.
package clean

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"csvclean/internal/config"
	"csvclean/internal/jobfile"
	"csvclean/internal/metrics"
	"csvclean/internal/sniff"
	"csvclean/internal/table"
)

// timeFormat renders report timestamps: UTC, millisecond precision.
const timeFormat = "2006-01-02T15:04:05.000Z"

// Runner executes cleaning jobs. The zero value works: a nil Log discards
// records and a nil Now falls back to the wall clock.
type Runner struct {
	Log *slog.Logger
	Now func() time.Time
}

func (r *Runner) log() *slog.Logger {
	if r.Log == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return r.Log
}

func (r *Runner) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

// Run executes the cleaning job described by the descriptor at jobPath.
//
// The descriptor is rewritten at every checkpoint. On success the cleaned
// CSV and the report are in place and the job reads completed; on failure
// the job reads failed with a classified error and the fault is returned
// to the caller. Nothing is retried internally.
func (r *Runner) Run(jobPath string) (*Report, error) {
	job, err := jobfile.Load(jobPath)
	if err != nil {
		return nil, err
	}
	if err := job.BeginAttempt(); err != nil {
		return nil, err
	}

	log := r.log().With("job", jobPath, "attempt", job.Attempts())
	start := r.now()

	rep, err := r.process(job, log, start)
	status := "completed"
	if err != nil {
		status = "failed"
	}
	metrics.IncCounter("csvclean_jobs_total", 1, metrics.Labels{"status": status})
	metrics.ObserveHistogram("csvclean_job_duration_seconds", r.now().Sub(start).Seconds(), metrics.Labels{"status": status})

	if err != nil {
		kind, step := classify(err)
		log.Error("job failed", "kind", kind, "step", step, "error", err)
		if werr := job.MarkFailed(err.Error(), kind, step); werr != nil {
			log.Error("persisting failure state failed", "error", werr)
		}
		return nil, err
	}

	log.Info("job completed", "rows_in", rep.RowsIn, "rows_out", rep.RowsOut,
		"duration", r.now().Sub(start).Truncate(time.Millisecond))
	return rep, nil
}

func (r *Runner) process(job *jobfile.Descriptor, log *slog.Logger, start time.Time) (*Report, error) {
	inputRaw, ok := job.Field("input")
	if !ok {
		return nil, atStep("validate", configErrorf("job file missing required field %q", "input"))
	}
	outputRaw, ok := job.Field("output")
	if !ok {
		return nil, atStep("validate", configErrorf("job file missing required field %q", "output"))
	}
	paramsRaw, ok := job.Field("parameters")
	if !ok {
		return nil, atStep("validate", configErrorf("job file missing required field %q", "parameters"))
	}

	inputPath, err := resolvePath(inputRaw, "path")
	if err != nil {
		return nil, atStep("validate", err)
	}
	outputFolder, err := resolvePath(outputRaw, "folder")
	if err != nil {
		return nil, atStep("validate", err)
	}
	rawParams, ok := paramsRaw.(map[string]any)
	if !ok {
		return nil, atStep("validate", configErrorf("parameters must be a JSON object"))
	}
	params := config.NormalizeParams(rawParams)

	if err := os.MkdirAll(outputFolder, 0o755); err != nil {
		return nil, atStep("validate", fmt.Errorf("create output folder: %w", err))
	}

	base := filepath.Base(inputPath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if ext == "" {
		ext = ".csv"
	}
	cleanedPath := filepath.Join(outputFolder, stem+"_cleaned"+ext)

	reportName := stem + "_cleaning_report.json"
	if id := job.ID(); id != "" {
		reportName = stem + "_cleaning_report_" + id + ".json"
	}
	reportPath := filepath.Join(outputFolder, reportName)

	rrn := params.Map("removeRowsWithNulls")
	rep := &Report{
		InputPath:      inputPath,
		OutputCsvPath:  cleanedPath,
		StartTime:      start.UTC().Format(timeFormat),
		ParametersUsed: params,
		RemovedNulls:   RemovedNulls{Mode: rrn.String("mode", "no")},
	}
	log.Info("processing", "input", inputPath, "output", cleanedPath)
	if err := job.SetProgress(0.0); err != nil {
		return nil, atStep("validate", err)
	}

	// Encoding.
	stageStart := r.now()
	encodingUsed := params.String("encoding", "Auto")
	if strings.EqualFold(encodingUsed, "auto") {
		encodingUsed, err = sniff.DetectEncoding(inputPath)
		if err != nil {
			return nil, atStep("encoding_detection", err)
		}
	}
	enc, err := sniff.Resolve(encodingUsed)
	if err != nil {
		return nil, atStep("encoding_detection", configErrorf("%v", err))
	}
	rep.EncodingUsed = encodingUsed
	rep.StepsApplied.EncodingDetection = true
	r.stageDone(log, "encoding_detection", stageStart)
	if err := job.SetProgress(0.1); err != nil {
		return nil, atStep("encoding_detection", err)
	}

	// Delimiter. An explicit delimiter parameter skips detection; it is
	// read untrimmed so a tab survives.
	stageStart = r.now()
	delimiterUsed := delimiterParam(params)
	if delimiterUsed == "" {
		var confident bool
		delimiterUsed, confident, err = sniff.DetectDelimiter(inputPath, encodingUsed)
		if err != nil {
			return nil, atStep("delimiter_detection", err)
		}
		if !confident {
			log.Warn("delimiter detection fell back to comma", "kind", KindFormatDetection)
		}
	} else if utf8.RuneCountInString(delimiterUsed) != 1 {
		return nil, atStep("delimiter_detection",
			configErrorf("delimiter must be a single character, got %q", delimiterUsed))
	}
	delimRune, _ := utf8.DecodeRuneInString(delimiterUsed)
	rep.DelimiterUsed = delimiterUsed
	rep.StepsApplied.DelimiterDetection = true
	r.stageDone(log, "delimiter_detection", stageStart)
	if err := job.SetProgress(0.2); err != nil {
		return nil, atStep("delimiter_detection", err)
	}

	// Load.
	stageStart = r.now()
	removeMismatch := params.YesNo("removeRowLengthMismatch")
	tbl, mismatchRemoved, err := table.Load(inputPath, enc, delimRune, removeMismatch)
	if err != nil {
		return nil, atStep("load", err)
	}
	rep.RowsIn = tbl.RowCount()
	rep.RemovedRowLengthMismatch = mismatchRemoved
	rep.StepsApplied.RemoveRowLengthMismatch = removeMismatch
	metrics.IncCounter("csvclean_rows_total", float64(rep.RowsIn), metrics.Labels{"direction": "in"})
	metrics.IncCounter("csvclean_rows_removed_total", float64(mismatchRemoved), metrics.Labels{"reason": "length_mismatch"})
	r.stageDone(log, "load", stageStart)
	if err := job.SetProgress(0.3); err != nil {
		return nil, atStep("load", err)
	}

	// Headers.
	stageStart = r.now()
	colNormMode := params.String("columnNameNormalization", "none")
	stripSpecial := params.YesNo("stripSpecialCharsFromHeaders")
	for i := range tbl.Columns {
		tbl.Columns[i].Name = normalizeHeader(tbl.Columns[i].Name, colNormMode, stripSpecial)
	}
	rep.StepsApplied.ColumnNameNormalization = colNormMode != "none"
	rep.StepsApplied.StripSpecialCharsFromHeaders = stripSpecial
	r.stageDone(log, "headers", stageStart)
	if err := job.SetProgress(0.4); err != nil {
		return nil, atStep("headers", err)
	}

	// Type inference. Empty strings become nulls first so they do not
	// block a column from converting.
	stageStart = r.now()
	doInfer := strings.EqualFold(params.String("dataTypeInference", "Auto"), "auto")
	if doInfer {
		InferTypes(tbl)
	}
	rep.StepsApplied.DataTypeInference = doInfer
	r.stageDone(log, "inference", stageStart)
	if err := job.SetProgress(0.5); err != nil {
		return nil, atStep("inference", err)
	}

	// Whitespace trimming.
	stageStart = r.now()
	doTrim := params.YesNo("whitespaceTrimming")
	if doTrim {
		trimStrings(tbl)
	}
	rep.StepsApplied.WhitespaceTrimming = doTrim
	r.stageDone(log, "trim", stageStart)
	if err := job.SetProgress(0.6); err != nil {
		return nil, atStep("trim", err)
	}

	// Empty strings to null.
	stageStart = r.now()
	doEmptyNull := params.YesNo("emptyStringToNull")
	if doEmptyNull {
		emptyToNull(tbl)
	}
	rep.StepsApplied.EmptyStringToNull = doEmptyNull
	r.stageDone(log, "empty_to_null", stageStart)
	if err := job.SetProgress(0.7); err != nil {
		return nil, atStep("empty_to_null", err)
	}

	// Null-row removal.
	stageStart = r.now()
	nullMode := strings.ToLower(rrn.String("mode", "no"))
	threshold, err := thresholdValue(rrn)
	if err != nil {
		return nil, atStep("null_removal", err)
	}
	nullsRemoved := removeNullRows(tbl, nullMode, threshold)
	rep.RemovedNulls = RemovedNulls{Count: nullsRemoved, Mode: nullMode}
	rep.StepsApplied.RemoveRowsWithNulls = nullMode != "no"
	metrics.IncCounter("csvclean_rows_removed_total", float64(nullsRemoved), metrics.Labels{"reason": "nulls"})
	r.stageDone(log, "null_removal", stageStart)
	if err := job.SetProgress(0.8); err != nil {
		return nil, atStep("null_removal", err)
	}

	// Deduplication.
	stageStart = r.now()
	doDedup := params.YesNo("duplicateRowsRemoval")
	dupesRemoved := 0
	if doDedup {
		dupesRemoved = dedupRows(tbl)
	}
	rep.RemovedDuplicates = dupesRemoved
	rep.StepsApplied.DuplicateRowsRemoval = doDedup
	metrics.IncCounter("csvclean_rows_removed_total", float64(dupesRemoved), metrics.Labels{"reason": "duplicates"})
	r.stageDone(log, "dedup", stageStart)
	if err := job.SetProgress(0.9); err != nil {
		return nil, atStep("dedup", err)
	}

	// Output.
	stageStart = r.now()
	if err := tbl.WriteCSV(cleanedPath); err != nil {
		return nil, atStep("write_output", err)
	}
	rep.RowsOut = tbl.RowCount()
	metrics.IncCounter("csvclean_rows_total", float64(rep.RowsOut), metrics.Labels{"direction": "out"})
	r.stageDone(log, "write_output", stageStart)

	// Report. Written only once the cleaned CSV is in place.
	stageStart = r.now()
	rep.EndTime = r.now().UTC().Format(timeFormat)
	if err := rep.Write(reportPath); err != nil {
		return nil, atStep("write_report", err)
	}
	r.stageDone(log, "write_report", stageStart)

	if err := job.MarkCompleted(); err != nil {
		return nil, atStep("finalize", err)
	}
	return rep, nil
}

func (r *Runner) stageDone(log *slog.Logger, stage string, start time.Time) {
	d := r.now().Sub(start)
	log.Debug("stage done", "stage", stage, "duration", d.Truncate(time.Millisecond))
	metrics.ObserveHistogram("csvclean_stage_duration_seconds", d.Seconds(), metrics.Labels{"stage": stage})
}

// resolvePath accepts a plain string or an object carrying the path under
// the primary key, "path", or "folder".
func resolvePath(v any, primary string) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case map[string]any:
		for _, k := range []string{primary, "path", "folder"} {
			if pv, ok := t[k]; ok {
				if s, sok := pv.(string); sok {
					return s, nil
				}
			}
		}
	}
	return "", configErrorf("cannot resolve path from %v", v)
}

// delimiterParam returns the explicit delimiter parameter, or "" when the
// job asks for detection.
func delimiterParam(params config.Options) string {
	v, ok := params.Any("delimiter")
	if !ok || v == nil {
		return ""
	}
	s, isStr := v.(string)
	if !isStr {
		s = fmt.Sprintf("%v", v)
	}
	if strings.EqualFold(strings.TrimSpace(s), "auto") {
		return ""
	}
	return s
}

// thresholdValue coerces the null-removal threshold from whatever JSON
// shape it arrived in.
func thresholdValue(rrn config.Options) (int, error) {
	v, ok := rrn.Any("threshold")
	if !ok || v == nil {
		return 1, nil
	}
	switch t := v.(type) {
	case float64:
		return int(t), nil
	case int:
		return t, nil
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, configErrorf("removeRowsWithNulls threshold %q is not an integer", t)
		}
		return n, nil
	}
	return 0, configErrorf("removeRowsWithNulls threshold has unsupported type %T", v)
}
