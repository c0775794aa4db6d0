package history

import (
	"context"
	"errors"
	"testing"
)

func TestMockSource_Commits(t *testing.T) {
	commits := []CommitRecord{{SHA: "a"}, {SHA: "b"}, {SHA: "c"}}

	t.Run("yields all commits", func(t *testing.T) {
		src := NewMockSource(commits)
		var got []string
		for c, err := range src.Commits(context.Background()) {
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got = append(got, c.SHA)
		}
		if len(got) != 3 {
			t.Fatalf("got %d commits, expected 3", len(got))
		}
	})

	t.Run("stops when consumer stops", func(t *testing.T) {
		src := NewMockSource(commits)
		for range src.Commits(context.Background()) {
			break
		}
		if src.Pulled() != 1 {
			t.Errorf("Pulled() = %d, expected 1", src.Pulled())
		}
	})

	t.Run("returns trailing error", func(t *testing.T) {
		expectedErr := errors.New("test error")
		src := NewMockSource(nil)
		src.CommitsErr = expectedErr

		var gotErr error
		for _, err := range src.Commits(context.Background()) {
			gotErr = err
		}
		if gotErr != expectedErr {
			t.Errorf("expected error %v, got %v", expectedErr, gotErr)
		}
	})
}

func TestMockSource_DiffAndContent(t *testing.T) {
	src := NewMockSource(nil)
	src.Diffs["a"] = "diff --git a/x b/x"
	src.Contents[ContentKey("a", "x")] = []byte("hello")

	if d, err := src.Diff(context.Background(), "a"); err != nil || d == "" {
		t.Errorf("Diff(a) = %q, %v", d, err)
	}
	if _, err := src.Diff(context.Background(), "b"); !errors.Is(err, ErrDiffUnavailable) {
		t.Errorf("Diff(b) error = %v, expected ErrDiffUnavailable", err)
	}
	if _, err := src.FileContent(context.Background(), "a", "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FileContent(missing) error = %v, expected ErrNotFound", err)
	}
	if len(src.Fetched()) != 1 {
		t.Errorf("Fetched() = %v, expected one key", src.Fetched())
	}
}

func TestMockSource_ImplementsInterface(t *testing.T) {
	var _ Source = (*MockSource)(nil)
}
