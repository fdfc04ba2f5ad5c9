package control

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"parley/internal/responder"
	"parley/internal/session"

	"github.com/spf13/cobra"
)

const defaultAskText = "Hello, how are you doing?"

// NewAskCmd runs a single exchange against the configured responder.
func NewAskCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask [text]",
		Short: "Send one message and print the reply",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadRuntime(*cfgPath)
			if err != nil {
				return err
			}
			r, err := responder.New(cfg, logger)
			if err != nil {
				return err
			}
			text := defaultAskText
			if len(args) > 0 {
				text = strings.Join(args, " ")
			}
			s := session.New(r, logger)
			reply, err := s.Submit(cmd.Context(), text)
			if err != nil {
				return err
			}
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(AskResult{Response: reply, Log: s.Log()})
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), reply)
			return err
		},
	}
	cmd.Flags().Bool("json", false, "output JSON with the conversation log")
	return cmd
}

// NewChatCmd runs the looped chatbot on stdin/stdout until it fails or is
// interrupted. There is no exit command.
func NewChatCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the responder, one line per round",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadRuntime(*cfgPath)
			if err != nil {
				return err
			}
			r, err := responder.New(cfg, logger)
			if err != nil {
				return err
			}
			prompt := cfg.Chat.Prompt
			if cmd.Flags().Changed("prompt") {
				prompt, _ = cmd.Flags().GetString("prompt")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			read := promptReader(out, prompt, LineReader(cmd.InOrStdin()))
			logger.Infof("chat started with %s responder", cfg.Responder.Backend)
			err = session.New(r, logger).RunForever(ctx, read, out)
			logger.Infof("chat ended: %v", err)
			return err
		},
	}
	cmd.Flags().String("prompt", "", "override chat.prompt")
	return cmd
}
