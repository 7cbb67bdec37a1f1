package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go-twitter-thread/internal/report"
	"github.com/anatolykoptev/go-twitter-thread/internal/thread"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		outputDir, printOut = report.DefaultOutputDir, false
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSummary_WritesAnalysis(t *testing.T) {
	dir := t.TempDir()
	data, err := report.MarshalRecords([]thread.Record{
		{ID: "1", Author: "root", Content: "hello thread", CreatedAt: time.Now(), Likes: 3},
		{ID: "2", Author: "alice", Content: "a reply", CreatedAt: time.Now(), Depth: 1},
	})
	require.NoError(t, err)
	in := filepath.Join(dir, "thread.json")
	require.NoError(t, os.WriteFile(in, data, 0o644))

	outDir := filepath.Join(dir, "analysis")
	_, err = execute(t, in, "--output-dir", outDir)
	require.NoError(t, err)

	matches, err := filepath.Glob(filepath.Join(outDir, "analysis-tweets-*.md"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestSummary_EmptyDump(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(in, []byte("[]"), 0o644))

	_, err := execute(t, in, "--output-dir", dir)
	assert.ErrorIs(t, err, report.ErrNoRecords)
}

func TestSummary_MissingFile(t *testing.T) {
	_, err := execute(t, filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
