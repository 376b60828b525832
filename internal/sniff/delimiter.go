package sniff

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/transform"
)

// delimiterSampleSize bounds the byte prefix inspected by DetectDelimiter.
const delimiterSampleSize = 8192

// candidates are scored in this order; earlier wins ties.
const candidates = ",;\t|"

// DetectDelimiter guesses the field delimiter from a bounded sample decoded
// with the given encoding tag.
//
// confident is false only when the sample contained candidate characters but
// none of them scored, so the comma fallback may well be wrong. Callers use
// that to flag a suspect guess; single-column files stay confident.
func DetectDelimiter(path, encodingTag string) (delim string, confident bool, err error) {
	enc, err := Resolve(encodingTag)
	if err != nil {
		return "", false, err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", false, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	raw := make([]byte, delimiterSampleSize)
	n, err := io.ReadFull(f, raw)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", false, fmt.Errorf("read input: %w", err)
	}

	decoded, _, err := transform.Bytes(enc.NewDecoder(), raw[:n])
	if err != nil {
		return "", false, fmt.Errorf("decode sample: %w", err)
	}

	delim, confident = sniffDelimiter(string(decoded), n == delimiterSampleSize)
	return delim, confident, nil
}

// sniffDelimiter scores each candidate over the sample's complete lines.
//
// A candidate appearing the same number of times (at least once) on every
// line is consistent; the consistent candidate with the highest per-line
// count wins. When none is consistent, a candidate whose modal nonzero count
// covers at least 90% of lines is accepted, highest coverage first. Ties
// resolve in candidate order. Everything else falls back to the comma.
func sniffDelimiter(sample string, filled bool) (string, bool) {
	lines := strings.Split(sample, "\n")
	if filled && len(lines) > 0 {
		// The sample boundary may have cut the last line mid-row.
		lines = lines[:len(lines)-1]
	}

	rows := make([]string, 0, len(lines))
	for _, ln := range lines {
		ln = strings.TrimSuffix(ln, "\r")
		if ln != "" {
			rows = append(rows, ln)
		}
	}

	sawCandidate := strings.ContainsAny(sample, candidates)
	if len(rows) == 0 {
		return ",", !sawCandidate
	}

	var (
		consistentDelim string
		consistentCount int
		modalDelim      string
		modalShare      float64
	)

	for _, cand := range candidates {
		cs := string(cand)
		first := strings.Count(rows[0], cs)
		consistent := first >= 1
		counts := make(map[int]int, 4)
		for _, row := range rows {
			c := strings.Count(row, cs)
			counts[c]++
			if c != first || c < 1 {
				consistent = false
			}
		}

		if consistent && first > consistentCount {
			consistentDelim, consistentCount = cs, first
		}

		modalN := 0
		for c, n := range counts {
			if c >= 1 && n > modalN {
				modalN = n
			}
		}
		if share := float64(modalN) / float64(len(rows)); modalN > 0 && share >= 0.9 && share > modalShare {
			modalDelim, modalShare = cs, share
		}
	}

	if consistentDelim != "" {
		return consistentDelim, true
	}
	if modalDelim != "" {
		return modalDelim, true
	}
	return ",", !sawCandidate
}
