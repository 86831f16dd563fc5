package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aluiziolira/go-archive-books/config"
	"github.com/aluiziolira/go-archive-books/models"
	"github.com/aluiziolira/go-archive-books/pipeline"
	"github.com/aluiziolira/go-archive-books/scraper"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDRange(t *testing.T) {
	assert.Equal(t, []models.BookID{3, 4, 5}, idRange(3, 5))
	assert.Equal(t, []models.BookID{7}, idRange(7, 7))
	assert.Empty(t, idRange(5, 3))
}

func TestFlagsReachConfiguration(t *testing.T) {
	v := viper.New()
	cmd := newRootCmd(v)
	cmd.SetArgs([]string{"books", "--start-id", "9", "--end-id", "2"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "end id (2) cannot precede start id (9)")
	assert.Equal(t, 9, v.GetInt("archiver.start_id"))
}

func TestConfigFileIsRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archiver.yaml")
	require.NoError(t, os.WriteFile(path, []byte("archiver:\n  start_page: 4\n  end_page: 2\n"), 0o644))

	cmd := newRootCmd(viper.New())
	cmd.SetArgs([]string{"category", "--config", path})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "end page (2) cannot precede start page (4)")
}

func TestPrintSummary(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	result := &models.RunResult{
		Books:        []*models.Book{{ID: 1}, {ID: 2}},
		StartTime:    start,
		EndTime:      start.Add(2 * time.Second),
		Attempted:    4,
		AbsentCount:  1,
		ErrorCount:   1,
		FailedIDs:    []models.BookID{3},
		ErrorsByType: map[string]int{"parse": 1},
	}

	var buf bytes.Buffer
	printSummary(&buf, result, "books_description.json", nil)
	out := buf.String()

	assert.Contains(t, out, "Archived:      2")
	assert.Contains(t, out, "Absent:        1")
	assert.Contains(t, out, "Failed IDs:    [3]")
	assert.Contains(t, out, "Books/sec:     1.00")
	assert.NotContains(t, out, "Rejected:")
}

func TestExecuteWritesManifestAndReleasesShutdownHook(t *testing.T) {
	var notices atomic.Int32
	saved := shutdownNotice
	shutdownNotice = func() { notices.Add(1) }
	t.Cleanup(func() { shutdownNotice = saved })

	dir := t.TempDir()
	v := viper.New()
	v.Set("archiver.dest_folder", filepath.Join(dir, "media"))
	v.Set("archiver.json_path", filepath.Join(dir, "books_description.json"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := execute(ctx, v, func(context.Context, *scraper.Scraper, *config.Config, *pipeline.Manifest) (*models.RunResult, error) {
		now := time.Now()
		return &models.RunResult{StartTime: now, EndTime: now, ErrorsByType: map[string]int{}}, nil
	})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "books_description.json"))
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(data))

	cancel()
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, notices.Load(), "shutdown hook must be released when execute returns")
}

func TestExecuteCancelledRunWritesNoManifest(t *testing.T) {
	var notices atomic.Int32
	saved := shutdownNotice
	shutdownNotice = func() { notices.Add(1) }
	t.Cleanup(func() { shutdownNotice = saved })

	dir := t.TempDir()
	v := viper.New()
	v.Set("archiver.dest_folder", filepath.Join(dir, "media"))
	v.Set("archiver.json_path", filepath.Join(dir, "books_description.json"))

	ctx, cancel := context.WithCancel(context.Background())
	err := execute(ctx, v, func(ctx context.Context, _ *scraper.Scraper, _ *config.Config, _ *pipeline.Manifest) (*models.RunResult, error) {
		cancel()
		<-ctx.Done()
		return nil, ctx.Err()
	})
	require.ErrorIs(t, err, context.Canceled)

	_, statErr := os.Stat(filepath.Join(dir, "books_description.json"))
	assert.True(t, os.IsNotExist(statErr))
	assert.Eventually(t, func() bool { return notices.Load() == 1 }, time.Second, 5*time.Millisecond)
}
