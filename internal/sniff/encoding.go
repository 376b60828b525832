// Package sniff detects the encoding and delimiter of delimited text files.
//
// Detection never fails on content: UTF-8 is probed first (with or without a
// byte order mark) and Latin-1 accepts any byte sequence as the universal
// fallback. The delimiter guess scores a fixed candidate set over a bounded
// sample.
package sniff

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Encoding tags as stored in reports and accepted as explicit parameters.
const (
	EncodingUTF8    = "utf-8"
	EncodingUTF8SIG = "utf-8-sig"
	EncodingLatin1  = "latin-1"
)

// encodingSampleSize bounds the byte prefix inspected by DetectEncoding.
const encodingSampleSize = 65536

var bomUTF8 = []byte{0xEF, 0xBB, 0xBF}

// DetectEncoding reads a bounded prefix of the file and classifies it.
// Valid UTF-8 starting with the BOM is "utf-8-sig", valid UTF-8 without is
// "utf-8", anything else is "latin-1". An empty file reads as "utf-8". The
// only possible error is the file read itself.
func DetectEncoding(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	sample := make([]byte, encodingSampleSize)
	n, err := io.ReadFull(f, sample)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", fmt.Errorf("read input: %w", err)
	}
	sample = sample[:n]

	probe := sample
	if n == encodingSampleSize {
		// The sample boundary can cut a multibyte rune in half; that must
		// not demote an otherwise valid UTF-8 file to Latin-1.
		probe = trimPartialRune(sample)
	}

	if utf8.Valid(probe) {
		if bytes.HasPrefix(sample, bomUTF8) {
			return EncodingUTF8SIG, nil
		}
		return EncodingUTF8, nil
	}
	return EncodingLatin1, nil
}

// Resolve maps an encoding tag to its decoder. Tags are matched after
// trimming and lowercasing; unrecognized tags are an error. All returned
// decoders replace malformed bytes rather than failing.
func Resolve(tag string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "utf-8", "utf8":
		return unicode.UTF8, nil
	case "utf-8-sig", "utf8-sig":
		return unicode.UTF8BOM, nil
	case "latin-1", "latin1", "iso-8859-1", "iso8859-1":
		return charmap.ISO8859_1, nil
	}
	return nil, fmt.Errorf("unsupported encoding %q", tag)
}

// trimPartialRune drops a trailing multibyte sequence cut off by the sample
// boundary. Invalid sequences are left alone so they still fail validation.
func trimPartialRune(b []byte) []byte {
	for k := 0; k < utf8.UTFMax && k < len(b); k++ {
		c := b[len(b)-1-k]
		if c < utf8.RuneSelf {
			return b
		}
		if utf8.RuneStart(c) {
			if !utf8.FullRune(b[len(b)-1-k:]) {
				return b[:len(b)-1-k]
			}
			return b
		}
	}
	return b
}
