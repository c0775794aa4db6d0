package collector

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/src-d/enry/v2"

	"github.com/masmgr/repohistory-go/internal/history"
)

// DefaultPlaceholder replaces file content that could not be fetched or decoded.
const DefaultPlaceholder = "[Binary or Unavailable]"

// FailureKind names why a file's content is not available as text.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureFetch
	FailureNotFound
	FailureDecode
	FailureBinary
)

// String returns a string representation of the failure kind.
func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureFetch:
		return "fetch"
	case FailureNotFound:
		return "not-found"
	case FailureDecode:
		return "decode"
	case FailureBinary:
		return "binary"
	default:
		return "unknown"
	}
}

// FileResult is the outcome of fetching one file of a snapshot.
type FileResult struct {
	Path    string
	Content string
	Failure FailureKind
	Err     error
}

// OK reports whether the content was fetched and decoded.
func (r FileResult) OK() bool {
	return r.Failure == FailureNone
}

// Text returns the decoded content, or placeholder on any failure.
func (r FileResult) Text(placeholder string) string {
	if r.OK() {
		return r.Content
	}
	return placeholder
}

// classifyFetch turns the result of a content fetch into a FileResult.
func classifyFetch(path string, data []byte, err error) FileResult {
	if err != nil {
		kind := FailureFetch
		switch {
		case errors.Is(err, history.ErrNotFound):
			kind = FailureNotFound
		case errors.Is(err, history.ErrUndecodable):
			kind = FailureDecode
		}
		return FileResult{Path: path, Failure: kind, Err: err}
	}
	return decodeContent(path, data)
}

// decodeContent converts raw bytes to text.
// Binary content is a failure; invalid UTF-8 sequences in text are dropped.
func decodeContent(path string, data []byte) FileResult {
	if enry.IsBinary(data) {
		return FileResult{Path: path, Failure: FailureBinary}
	}
	text := string(data)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "")
	}
	return FileResult{Path: path, Content: text}
}
