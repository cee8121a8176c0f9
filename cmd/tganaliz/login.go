package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/FeldmanGot/ai-tg-analiz/account"
)

func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authorize the Telegram account interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := buildApp()
			if err != nil {
				return err
			}
			defer app.close()

			if err := app.session.Connect(ctx); err != nil {
				return err
			}
			ok, err := app.session.CheckAuthorized(ctx)
			if err != nil {
				return err
			}
			if ok {
				fmt.Println("already authorized")
				return nil
			}

			if err := app.session.RequestCode(ctx); err != nil {
				return err
			}
			code, err := promptLine("Enter the code sent to your Telegram app: ")
			if err != nil {
				return err
			}
			if err := app.session.SubmitCode(ctx, code); err != nil {
				return err
			}

			if app.session.Status() == account.StatusAwaiting2FA {
				password, err := promptPassword("Enter your 2FA password: ")
				if err != nil {
					return err
				}
				if err := app.session.SubmitPassword(ctx, password); err != nil {
					return err
				}
			}

			fmt.Println("authorized")
			return nil
		},
	}

	return cmd
}

func promptLine(prompt string) (string, error) {
	fmt.Print(prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}
