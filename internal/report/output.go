package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/anatolykoptev/go-twitter-thread/internal/thread"
)

// ErrNoRecords is returned when there is nothing to write or analyze.
var ErrNoRecords = errors.New("no tweets to analyze")

// DefaultOutputDir is where reports land unless configured otherwise.
const DefaultOutputDir = "output"

// Writer writes thread dumps and summaries into Dir.
type Writer struct {
	Dir string
	Now func() time.Time
}

// NewWriter returns a Writer for dir using the wall clock.
func NewWriter(dir string) *Writer {
	if dir == "" {
		dir = DefaultOutputDir
	}
	return &Writer{Dir: dir, Now: time.Now}
}

// Paths lists the files produced by one WriteThread call.
type Paths struct {
	JSON    string
	Summary string
}

// FileStamp renders t as a filesystem-safe ISO-8601 timestamp,
// e.g. 2025-11-19T12-00-00-000Z.
func FileStamp(t time.Time) string {
	return strings.NewReplacer(":", "-", ".", "-").Replace(isoTime(t))
}

// WriteThread writes tweet-thread-<id>-<stamp>.json and
// tweet-summary-<id>-<stamp>.md, creating the output directory if needed.
func (w *Writer) WriteThread(rootID string, records []thread.Record) (Paths, error) {
	if len(records) == 0 {
		return Paths{}, ErrNoRecords
	}
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return Paths{}, fmt.Errorf("create output dir: %w", err)
	}
	stamp := FileStamp(w.Now())
	paths := Paths{
		JSON:    filepath.Join(w.Dir, fmt.Sprintf("tweet-thread-%s-%s.json", rootID, stamp)),
		Summary: filepath.Join(w.Dir, fmt.Sprintf("tweet-summary-%s-%s.md", rootID, stamp)),
	}

	data, err := MarshalRecords(records)
	if err != nil {
		return Paths{}, err
	}
	if err := os.WriteFile(paths.JSON, data, 0o644); err != nil {
		return Paths{}, fmt.Errorf("write thread json: %w", err)
	}
	slog.Info("thread saved", slog.String("path", paths.JSON), slog.Int("tweets", len(records)))

	if err := os.WriteFile(paths.Summary, []byte(RenderSummary(records)), 0o644); err != nil {
		return Paths{}, fmt.Errorf("write summary: %w", err)
	}
	slog.Info("summary saved", slog.String("path", paths.Summary))
	return paths, nil
}

// MarshalRecords encodes records as a two-space indented JSON array.
func MarshalRecords(records []thread.Record) ([]byte, error) {
	if records == nil {
		records = []thread.Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode records: %w", err)
	}
	return data, nil
}

// LoadRecords reads a JSON dump written by WriteThread.
func LoadRecords(path string) ([]thread.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []thread.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return records, nil
}
