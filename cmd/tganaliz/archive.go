package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/FeldmanGot/ai-tg-analiz/archive"
)

func newArchiveCmd() *cobra.Command {
	var (
		chatRef string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Download a chat's history, transcripts and media, then build its profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := buildApp()
			if err != nil {
				return err
			}
			defer app.close()

			if err := app.ensureAuthorized(ctx); err != nil {
				return err
			}

			jobID, err := app.archiver().Archive(ctx, chatRef, limit)
			for _, status := range app.statuses.Snapshot() {
				if status.JobID != jobID {
					continue
				}
				fmt.Printf("job %s: %s, %d/%d messages, %d failures\n",
					jobID, status.State, status.Processed, status.Total, status.Failures)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&chatRef, "chat", "", "Chat to archive: @username, title, or numeric id.")
	cmd.Flags().IntVar(&limit, "limit", archive.DefaultLimit, "Maximum number of messages to fetch.")
	_ = cmd.MarkFlagRequired("chat")

	return cmd
}
