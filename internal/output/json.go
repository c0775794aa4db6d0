package output

import (
	"bytes"
	"fmt"
	"time"

	"github.com/masmgr/repohistory-go/internal/history"
)

// Report holds everything to be written for one run.
type Report struct {
	Repository string
	Commits    []history.CommitRecord
	Diffs      []history.DiffRecord
	Snapshots  []history.FileSnapshot
}

// WrittenFile describes one output file after writing.
type WrittenFile struct {
	Path    string
	Entries int
	Bytes   int64
}

// JSONCommit is the JSON output structure for a single commit.
type JSONCommit struct {
	SHA     string `json:"sha"`
	Message string `json:"message"`
	Author  string `json:"author,omitempty"`
	Date    string `json:"date,omitempty"`
	URL     string `json:"url,omitempty"`
}

// JSONDiff is the JSON output structure for a single diff.
type JSONDiff struct {
	SHA  string `json:"sha"`
	Diff string `json:"diff"`
}

// JSONSnapshot is the JSON output structure for a single snapshot.
type JSONSnapshot struct {
	SHA   string  `json:"sha"`
	Files FileMap `json:"files"`
}

// FileMap serializes snapshot files as a JSON object whose keys keep
// the tree-listing order.
type FileMap []history.FileEntry

// MarshalJSON implements json.Marshaler.
func (m FileMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalString(f.Path)
		if err != nil {
			return nil, fmt.Errorf("encode path %q: %w", f.Path, err)
		}
		value, err := marshalString(f.Content)
		if err != nil {
			return nil, fmt.Errorf("encode content of %q: %w", f.Path, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// JSONWriter writes the three collection files.
type JSONWriter struct{}

// Write writes commits, diffs and snapshots to their files, in that order.
// Each file is overwritten independently; a failure leaves earlier files in place.
func (w *JSONWriter) Write(report *Report, options OutputOptions) ([]WrittenFile, error) {
	var written []WrittenFile

	commits := make([]JSONCommit, len(report.Commits))
	for i, c := range report.Commits {
		commits[i] = toJSONCommit(c, options.IncludeMetadata)
	}
	f, err := writeFile(commits, len(commits), options.resolve(options.CommitsFile))
	if err != nil {
		return written, err
	}
	written = append(written, f)

	diffs := make([]JSONDiff, len(report.Diffs))
	for i, d := range report.Diffs {
		diffs[i] = JSONDiff{SHA: d.SHA, Diff: d.Diff}
	}
	f, err = writeFile(diffs, len(diffs), options.resolve(options.DiffsFile))
	if err != nil {
		return written, err
	}
	written = append(written, f)

	snapshots := make([]JSONSnapshot, len(report.Snapshots))
	for i, s := range report.Snapshots {
		snapshots[i] = JSONSnapshot{SHA: s.SHA, Files: FileMap(s.Files)}
	}
	f, err = writeFile(snapshots, len(snapshots), options.resolve(options.SnapshotsFile))
	if err != nil {
		return written, err
	}
	written = append(written, f)

	return written, nil
}

func writeFile(data any, entries int, path string) (WrittenFile, error) {
	n, err := writeJSON(data, path)
	if err != nil {
		return WrittenFile{}, fmt.Errorf("write %s: %w", path, err)
	}
	return WrittenFile{Path: path, Entries: entries, Bytes: n}, nil
}

func toJSONCommit(c history.CommitRecord, includeMetadata bool) JSONCommit {
	item := JSONCommit{SHA: c.SHA, Message: c.Message}
	if includeMetadata {
		item.Author = c.Author
		item.URL = c.URL
		if !c.When.IsZero() {
			item.Date = c.When.UTC().Format(time.RFC3339)
		}
	}
	return item
}
