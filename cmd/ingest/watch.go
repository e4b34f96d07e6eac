package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

// watchedExts are the file types uploaded by watch.
var watchedExts = []string{".txt", ".md"}

// settle is how long a file must stay quiet before it is uploaded.
const settle = 300 * time.Millisecond

func newWatchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "watch DIR",
		Short: "Upload .txt and .md files in DIR whenever they are created or modified",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			up, err := uploaderFromEnv()
			if err != nil {
				return err
			}
			return watchDir(cmd.Context(), cmd.OutOrStdout(), up, args[0], opts)
		},
	}
}

func isWatched(path string) bool {
	return slices.Contains(watchedExts, strings.ToLower(filepath.Ext(path)))
}

// watchDir uploads changed files until ctx is cancelled. Upload failures are
// reported and watching continues.
func watchDir(ctx context.Context, out io.Writer, up *uploader, dir string, opts *options) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	dimColor.Fprintf(out, "watching %s for %s files\n", dir, strings.Join(watchedExts, ", "))

	// Editors emit several events per save; each path is uploaded once it settles.
	pending := make(map[string]time.Time)
	tick := time.NewTicker(settle / 3)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !isWatched(ev.Name) || !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Write) {
				continue
			}
			pending[ev.Name] = time.Now()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			errColor.Fprintf(out, "watch error: %v\n", err)
		case now := <-tick.C:
			for path, last := range pending {
				if now.Sub(last) < settle {
					continue
				}
				delete(pending, path)
				doc, err := readDocument(path, fileID(path), opts.tenant, path, opts.tags)
				if err != nil {
					errColor.Fprintf(out, "✗ %v\n", err)
					continue
				}
				// upload reports its own failure; keep watching.
				upload(ctx, out, up, path, doc)
			}
		}
	}
}
