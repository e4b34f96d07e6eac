// Command ingest uploads text files to the helpdesk API, once or by watching
// a directory.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/WessleyAI/edgerag-helpdesk/engine/domain"
)

var (
	okColor  = color.New(color.FgGreen, color.Bold)
	errColor = color.New(color.FgRed, color.Bold)
	dimColor = color.New(color.FgCyan)
)

// options are shared by every subcommand.
type options struct {
	tenant string
	tags   []string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		errColor.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "ingest",
		Short:         "Upload documents to the helpdesk index",
		Long:          "Uploads text files to WORKER_URL/api/ingest using INGEST_TOKEN as the bearer token.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.tenant, "tenant", "public", "tenant the documents belong to")
	root.PersistentFlags().StringSliceVar(&opts.tags, "tags", []string{"demo"}, "tags stored with every chunk")

	root.AddCommand(newFileCmd(opts), newWatchCmd(opts))
	return root
}

func newFileCmd(opts *options) *cobra.Command {
	var id, source string
	cmd := &cobra.Command{
		Use:   "file PATH [tenant] [source]",
		Short: "Upload one file",
		Args:  cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			up, err := uploaderFromEnv()
			if err != nil {
				return err
			}
			path := args[0]
			tenant := opts.tenant
			if len(args) > 1 {
				tenant = args[1]
			}
			src := source
			if len(args) > 2 {
				src = args[2]
			}
			if src == "" {
				src = path
			}
			doc, err := readDocument(path, id, tenant, src, opts.tags)
			if err != nil {
				return err
			}
			return upload(cmd.Context(), cmd.OutOrStdout(), up, path, doc)
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "document id (generated by the server when empty)")
	cmd.Flags().StringVar(&source, "source", "", "source label (defaults to PATH)")
	return cmd
}

func uploaderFromEnv() (*uploader, error) {
	url, token := os.Getenv("WORKER_URL"), os.Getenv("INGEST_TOKEN")
	if url == "" || token == "" {
		return nil, errors.New("set WORKER_URL and INGEST_TOKEN env vars")
	}
	return newUploader(url, token), nil
}

func readDocument(path, id, tenant, source string, tags []string) (domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Document{}, fmt.Errorf("read %s: %w", path, err)
	}
	return domain.Document{ID: id, Text: string(data), Tenant: tenant, Source: source, Tags: tags}, nil
}

// fileID derives a stable document id from a path so re-uploads overwrite.
func fileID(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+path)).String()
}

func upload(ctx context.Context, out io.Writer, up *uploader, path string, doc domain.Document) error {
	res, err := up.Post(ctx, []domain.Document{doc})
	if err != nil {
		errColor.Fprintf(out, "✗ %s: %v\n", path, err)
		return err
	}
	okColor.Fprintf(out, "✓ %s", path)
	dimColor.Fprintf(out, " tenant=%s chunks=%d ops=%v\n", doc.Tenant, res.TotalChunks, res.Mutation.OperationIDs)
	return nil
}
