package main

import (
	"fmt"
	"os"

	"parley/internal/control"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	root := &cobra.Command{
		Use:   "parley",
		Short: "Parley: console chatbot and audio transcription",
		Long: `Parley holds a console conversation with a seq2seq model (default facebook/blenderbot-400M-distill
on the Hugging Face Inference API) and transcribes downloaded audio with whisper.

Key commands:
  ask [text] [--json]       One exchange, print the reply
  chat                      Looped chatbot on stdin/stdout (Ctrl-C to stop)
  transcribe|fetch          Download audio, print the transcript
  models list|download|set  Manage whisper.cpp models
  doctor                    Check backends, keys and model files
  config show|path          Effective config / config location

Env overrides: PARLEY_RESPONDER_BACKEND/URL/MODEL, PARLEY_TRANSCRIBER_BACKEND/URL,
               PARLEY_AUDIO_URL, PARLEY_LOG_LEVEL/FORMAT`,
		Example: `  parley ask "Hello, how are you doing?"
  parley chat
  parley transcribe
  parley transcribe --skip-fetch --dest clip.wav
  parley models download ggml-tiny.en.bin
  PARLEY_RESPONDER_BACKEND=openai parley chat`,
		DisableFlagsInUseLine: true,
		SilenceUsage:          true,
		SilenceErrors:         true,
	}

	root.Version = version
	root.SetVersionTemplate("Parley v{{.Version}}\n")

	cfgPath := root.PersistentFlags().StringP("config", "c", "", "Path to config file (TOML). Defaults to ~/.config/parley/config.toml")
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(control.NewAskCmd(cfgPath))
	root.AddCommand(control.NewChatCmd(cfgPath))
	root.AddCommand(control.NewTranscribeCmd(cfgPath))
	root.AddCommand(control.NewFetchCmd(cfgPath))
	root.AddCommand(control.NewModelsCmd(cfgPath))
	root.AddCommand(control.NewDoctorCmd(cfgPath))
	root.AddCommand(control.NewConfigCmd(cfgPath))

	applyColorHelp(root)

	return root.Execute()
}

func applyColorHelp(root *cobra.Command) {
	const (
		boldBlue = "\033[1;34m"
		green    = "\033[32m"
		bold     = "\033[1m"
		dim      = "\033[2m"
		reset    = "\033[0m"
	)
	root.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		write := func(format string, args ...any) { _, _ = fmt.Fprintf(out, format, args...) }
		writeln := func(line string) { _, _ = fmt.Fprintln(out, line) }

		if cmd != root {
			write("%s%s%s\n\n", bold, cmd.Short, reset)
			write("%s", cmd.UsageString())
			return
		}

		write("%sParley%s: console chatbot and audio transcription %s(v%s)%s\n", boldBlue, reset, dim, version, reset)
		write("%sTalks to a hosted or local model and transcribes audio with whisper.%s\n\n", dim, reset)

		write("%sUsage%s\n", bold, reset)
		write("  parley [command] [flags]\n\n")

		write("%sKey commands%s\n", bold, reset)
		writeln("  ask [text] [--json]         one exchange (default \"Hello, how are you doing?\")")
		writeln("  chat                        looped chatbot, one line per round")
		writeln("  transcribe [--skip-fetch]   download audio and print the transcript")
		writeln("  fetch                       download audio only")
		writeln("  models list|download|set    manage whisper.cpp models")
		writeln("  doctor                      check backends/keys/model")
		writeln("  config show|path            effective config")
		writeln("")

		write("%sNotable flags & env%s\n", bold, reset)
		writeln("  -c, --config <path>     config file (default ~/.config/parley/config.toml)")
		writeln("  Env: PARLEY_RESPONDER_BACKEND=huggingface|openai|exec,")
		writeln("       PARLEY_TRANSCRIBER_BACKEND=whisper|sidecar|openai,")
		writeln("       PARLEY_AUDIO_URL=<url>, PARLEY_LOG_LEVEL=debug, PARLEY_LOG_FORMAT=json")
		writeln("")

		write("%sExamples%s\n", bold, reset)
		writeln("  parley ask \"Hello, how are you doing?\"")
		writeln("  parley chat")
		writeln("  parley transcribe")
		writeln("  parley models download ggml-tiny.en.bin")
		writeln("  PARLEY_RESPONDER_BACKEND=openai parley chat")
		writeln("")

		write("%sCommands%s\n", bold, reset)
		for _, c := range cmd.Commands() {
			if c.Hidden {
				continue
			}
			write("  %s%-15s%s %s\n", green, c.Name(), reset, c.Short)
		}
	})
}
