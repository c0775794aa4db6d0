package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Default output file names.
const (
	DefaultCommitsFile   = "commit_messages.json"
	DefaultDiffsFile     = "micro_diffs.json"
	DefaultSnapshotsFile = "macro_snapshots.json"
)

// OutputOptions controls where and how the collected data is written.
type OutputOptions struct {
	Dir             string
	CommitsFile     string
	DiffsFile       string
	SnapshotsFile   string
	IncludeMetadata bool // Emit author, date and URL for each commit
}

// DefaultOutputOptions writes the three files to the working directory.
func DefaultOutputOptions() OutputOptions {
	return OutputOptions{
		Dir:           ".",
		CommitsFile:   DefaultCommitsFile,
		DiffsFile:     DefaultDiffsFile,
		SnapshotsFile: DefaultSnapshotsFile,
	}
}

// resolve joins a file name with the output directory.
// "-" means stdout and is returned unchanged.
func (o OutputOptions) resolve(name string) string {
	if name == "-" || o.Dir == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(o.Dir, name)
}

func openOutputWriter(outputPath string) (io.Writer, *os.File, error) {
	if outputPath == "-" {
		return os.Stdout, nil, nil
	}
	file, err := os.Create(outputPath)
	if err != nil {
		return nil, nil, err
	}
	return file, file, nil
}

// countingWriter tracks how many bytes were written.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// writeJSON encodes data as indented JSON to outputPath, overwriting it.
// It returns the number of bytes written.
func writeJSON(data any, outputPath string) (int64, error) {
	out, file, err := openOutputWriter(outputPath)
	if err != nil {
		return 0, err
	}
	if file != nil {
		defer file.Close()
	}

	cw := &countingWriter{w: out}
	encoder := json.NewEncoder(cw)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(data); err != nil {
		return cw.n, fmt.Errorf("failed to encode JSON: %w", err)
	}
	if file != nil {
		if err := file.Close(); err != nil {
			return cw.n, err
		}
	}
	return cw.n, nil
}

// marshalString encodes s as a JSON string without HTML escaping.
func marshalString(s string) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
