package clean

import (
	"encoding/json"
	"fmt"
	"os"

	"csvclean/internal/config"
)

// StepsApplied records which pipeline steps actually ran on this job.
// The two detection steps always run.
type StepsApplied struct {
	EncodingDetection            bool `json:"encoding_detection"`
	DelimiterDetection           bool `json:"delimiter_detection"`
	RemoveRowLengthMismatch      bool `json:"removeRowLengthMismatch"`
	ColumnNameNormalization      bool `json:"columnNameNormalization"`
	StripSpecialCharsFromHeaders bool `json:"stripSpecialCharsFromHeaders"`
	DataTypeInference            bool `json:"dataTypeInference"`
	WhitespaceTrimming           bool `json:"whitespaceTrimming"`
	EmptyStringToNull            bool `json:"emptyStringToNull"`
	RemoveRowsWithNulls          bool `json:"removeRowsWithNulls"`
	DuplicateRowsRemoval         bool `json:"duplicateRowsRemoval"`
}

// RemovedNulls describes the null-removal outcome.
type RemovedNulls struct {
	Count int    `json:"count"`
	Mode  string `json:"mode"`
}

// Report summarizes a cleaning run. It is written next to the cleaned CSV,
// and only when the run succeeds.
type Report struct {
	InputPath                string         `json:"inputPath"`
	OutputCsvPath            string         `json:"outputCsvPath"`
	StartTime                string         `json:"startTime"`
	EndTime                  string         `json:"endTime"`
	ParametersUsed           config.Options `json:"parametersUsed"`
	EncodingUsed             string         `json:"encodingUsed"`
	DelimiterUsed            string         `json:"delimiterUsed"`
	RowsIn                   int            `json:"rows_in"`
	RowsOut                  int            `json:"rows_out"`
	RemovedRowLengthMismatch int            `json:"removed_row_length_mismatch"`
	RemovedNulls             RemovedNulls   `json:"removed_nulls"`
	RemovedDuplicates        int            `json:"removed_duplicates"`
	StepsApplied             StepsApplied   `json:"steps_applied"`
}

// Write serializes the report with two-space indentation.
func (rep *Report) Write(path string) error {
	out, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
