package config

import (
	"sort"
	"strings"
)

// paramAliases maps lowercased caller-supplied keys to canonical parameter
// names. The table carries historical spellings seen in the wild (snake_case
// variants, the truncated "columnnormaliz") alongside the lowercase form of
// every canonical key, so any casing of a canonical name resolves.
var paramAliases = map[string]string{
	"encoding": "encoding",

	"columnnamenormalization":   "columnNameNormalization",
	"columnnormaliz":            "columnNameNormalization",
	"columnnormalization":       "columnNameNormalization",
	"column_name_normalization": "columnNameNormalization",

	"stripspecialcharsfromheaders": "stripSpecialCharsFromHeaders",
	"strip_special_chars":          "stripSpecialCharsFromHeaders",

	"datatypeinference":   "dataTypeInference",
	"data_type_inference": "dataTypeInference",

	"whitespacetrimming":  "whitespaceTrimming",
	"whitespace_trimming": "whitespaceTrimming",

	"emptystringtonull":    "emptyStringToNull",
	"empty_string_to_null": "emptyStringToNull",

	"removerowlengthmismatch":    "removeRowLengthMismatch",
	"remove_row_length_mismatch": "removeRowLengthMismatch",

	"removerowswithnulls":    "removeRowsWithNulls",
	"remove_rows_with_nulls": "removeRowsWithNulls",

	"duplicaterowsremoval":   "duplicateRowsRemoval",
	"duplicate_rows_removal": "duplicateRowsRemoval",
}

// paramDefaults fills canonical keys the caller omitted. The
// removeRowsWithNulls default is materialized as a fresh map per call in
// NormalizeParams so callers can never share (or mutate) it.
var paramDefaults = map[string]any{
	"encoding":                     "Auto",
	"columnNameNormalization":      "none",
	"stripSpecialCharsFromHeaders": "no",
	"dataTypeInference":            "Auto",
	"whitespaceTrimming":           "yes",
	"emptyStringToNull":            "yes",
	"removeRowLengthMismatch":      "no",
	"duplicateRowsRemoval":         "no",
}

// NormalizeParams maps raw job parameters onto their canonical names, fills
// defaults, and coerces removeRowsWithNulls into its {mode, threshold} shape.
//
// Unrecognized keys pass through verbatim; they stay visible to report
// consumers but are never interpreted. The input map and any nested maps are
// left untouched.
func NormalizeParams(raw map[string]any) Options {
	normalized := make(Options, len(raw)+len(paramDefaults)+1)

	// Sorted iteration keeps the aliased-vs-verbatim collision case
	// deterministic (JSON object order is lost at decode time anyway).
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if canonical, ok := paramAliases[strings.ToLower(k)]; ok {
			normalized[canonical] = raw[k]
		} else {
			normalized[k] = raw[k]
		}
	}

	for k, def := range paramDefaults {
		if _, ok := normalized[k]; !ok {
			normalized[k] = def
		}
	}

	switch rrn := normalized["removeRowsWithNulls"].(type) {
	case nil:
		normalized["removeRowsWithNulls"] = map[string]any{"mode": "no", "threshold": 1}
	case string:
		normalized["removeRowsWithNulls"] = map[string]any{"mode": rrn, "threshold": 1}
	case map[string]any:
		shaped := make(map[string]any, len(rrn)+2)
		for k, v := range rrn {
			shaped[k] = v
		}
		if _, ok := shaped["mode"]; !ok {
			shaped["mode"] = "no"
		}
		if _, ok := shaped["threshold"]; !ok {
			shaped["threshold"] = 1
		}
		normalized["removeRowsWithNulls"] = shaped
	default:
		// Unusable shape (number, array). Replace with the inert default so
		// the null-removal step always sees a {mode, threshold} map.
		normalized["removeRowsWithNulls"] = map[string]any{"mode": "no", "threshold": 1}
	}

	return normalized
}
