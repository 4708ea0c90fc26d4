package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sharedash/sharedash/internal/metadata"
	"github.com/sharedash/sharedash/internal/scanner"
)

func TestKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"File.txt", "file.txt"},
		{"Reports/Q3/Budget.CSV", "reports/q3/budget.csv"},
		{`Reports\Q3\a.txt`, "reports/q3/a.txt"},
		{"already/lower.md", "already/lower.md"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Key(tt.in), tt.in)
	}
}

func fileInfo(path string, size int64, mod time.Time) *scanner.FileInfo {
	return &scanner.FileInfo{
		Path:     path,
		Size:     size,
		ModTime:  mod,
		FileType: scanner.DetectFileType(path),
	}
}

func record(path string, size int64, mod time.Time) *metadata.FileRecord {
	return &metadata.FileRecord{
		ID:           "id-" + path,
		RelativePath: path,
		FileType:     scanner.DetectFileType(path),
		SizeBytes:    size,
		ModifiedAt:   mod,
	}
}

func TestChanged(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		rec  *metadata.FileRecord
		file *scanner.FileInfo
		want bool
	}{
		{
			name: "identical",
			rec:  record("a.txt", 10, base),
			file: fileInfo("a.txt", 10, base),
			want: false,
		},
		{
			name: "size differs",
			rec:  record("a.txt", 10, base),
			file: fileInfo("a.txt", 11, base),
			want: true,
		},
		{
			name: "mtime within threshold",
			rec:  record("a.txt", 10, base),
			file: fileInfo("a.txt", 10, base.Add(ModTimeThreshold)),
			want: false,
		},
		{
			name: "mtime beyond threshold",
			rec:  record("a.txt", 10, base),
			file: fileInfo("a.txt", 10, base.Add(ModTimeThreshold+time.Nanosecond)),
			want: true,
		},
		{
			name: "stored mtime newer than disk",
			rec:  record("a.txt", 10, base.Add(time.Hour)),
			file: fileInfo("a.txt", 10, base),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, changed(tt.rec, tt.file))
		})
	}
}

func TestDiffClassifiesEveryPath(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	inventory := map[string]*scanner.FileInfo{
		Key("new.txt"):       fileInfo("new.txt", 5, base),
		Key("same.csv"):      fileInfo("same.csv", 20, base),
		Key("grown.md"):      fileInfo("grown.md", 99, base),
		Key("File.Case.txt"): fileInfo("File.Case.txt", 7, base),
	}
	records := map[string]*metadata.FileRecord{
		Key("same.csv"):      record("same.csv", 20, base),
		Key("grown.md"):      record("grown.md", 10, base),
		Key("gone.txt"):      record("gone.txt", 3, base),
		Key("file.case.TXT"): record("file.case.TXT", 7, base),
	}

	plan := Diff(inventory, records)

	assert.Len(t, plan.Creates, 1)
	assert.Equal(t, "new.txt", plan.Creates[0].Path)

	assert.Len(t, plan.Updates, 1)
	assert.Equal(t, "grown.md", plan.Updates[0].Record.RelativePath)

	assert.Len(t, plan.Deletes, 1)
	assert.Equal(t, "gone.txt", plan.Deletes[0].RelativePath)

	// same.csv plus the case-variant pair.
	assert.Len(t, plan.Unchanged, 2)
}

func TestDiffEmptyInputs(t *testing.T) {
	plan := Diff(map[string]*scanner.FileInfo{}, map[string]*metadata.FileRecord{})
	assert.Empty(t, plan.Creates)
	assert.Empty(t, plan.Updates)
	assert.Empty(t, plan.Deletes)
	assert.Empty(t, plan.Unchanged)
}
