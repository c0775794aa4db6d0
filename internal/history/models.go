package history

import (
	"time"

	"github.com/go-git/go-git/v5/plumbing/filemode"
)

// CommitRecord represents a commit selected by the enumerator.
type CommitRecord struct {
	SHA     string
	Message string

	// Optional metadata, only serialized on request.
	Author string
	When   time.Time
	URL    string
}

// DiffRecord holds the unified diff of a single commit.
type DiffRecord struct {
	SHA  string
	Diff string
}

// FileEntry is one path of a snapshot with its decoded content
// (or the placeholder when the content could not be read).
type FileEntry struct {
	Path    string
	Content string
}

// FileSnapshot is the full file tree of a commit.
// Files keep the order of the tree listing.
type FileSnapshot struct {
	SHA   string
	Files []FileEntry
}

// Bytes returns the total size of the recorded contents.
func (s FileSnapshot) Bytes() int64 {
	var n int64
	for _, f := range s.Files {
		n += int64(len(f.Content))
	}
	return n
}

// EntryType is the object type a tree entry points at.
type EntryType string

const (
	EntryBlob   EntryType = "blob"
	EntryTree   EntryType = "tree"
	EntryCommit EntryType = "commit" // submodule
)

// TreeEntry is one entry of a recursive tree listing.
type TreeEntry struct {
	Path string
	Type EntryType
	Mode filemode.FileMode
	Size int64
	SHA  string
}

// IsFile reports whether the entry is a file blob (regular, executable or symlink).
// Entries without a known mode fall back to the object type.
func (e TreeEntry) IsFile() bool {
	if e.Mode != filemode.Empty {
		return e.Mode.IsFile()
	}
	return e.Type == EntryBlob
}

// EntryTypeForMode maps a git file mode to the object type it references.
func EntryTypeForMode(m filemode.FileMode) EntryType {
	switch m {
	case filemode.Dir:
		return EntryTree
	case filemode.Submodule:
		return EntryCommit
	default:
		return EntryBlob
	}
}
