package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newListenCmd() *cobra.Command {
	var chatRef string

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Follow a chat live, appending messages and refreshing the profile",
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

			app.logger.Info("listening", "chat", chatRef)
			return app.listener().Listen(ctx, chatRef)
		},
	}

	cmd.Flags().StringVar(&chatRef, "chat", "", "Chat to follow: @username, title, or numeric id.")
	_ = cmd.MarkFlagRequired("chat")

	return cmd
}
