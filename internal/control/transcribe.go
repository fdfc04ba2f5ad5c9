package control

import (
	"fmt"

	"parley/internal/fetch"
	"parley/internal/transcribe"

	"github.com/spf13/cobra"
)

// NewTranscribeCmd fetches the configured audio file and prints its transcript.
func NewTranscribeCmd(cfgPath *string) *cobra.Command {
	var url, dest string
	var skipFetch bool
	cmd := &cobra.Command{
		Use:   "transcribe",
		Short: "Download an audio file and transcribe it",
		Long: `Download fetch.url to fetch.dest_path, then print its transcript.

The default whisper backend needs a binary built with -tags whisper and a
model (parley models download). Otherwise set transcriber.backend to
sidecar or openai.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadRuntime(*cfgPath)
			if err != nil {
				return err
			}
			if url == "" {
				url = cfg.Fetch.URL
			}
			if dest == "" {
				dest = cfg.Fetch.DestPath
			}
			t, err := transcribe.New(cfg, logger)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			var writeErr error
			runner := &transcribe.Runner{
				Transcriber: t,
				Logger:      logger,
				OnFetched: func(fetch.Result) {
					_, writeErr = fmt.Fprintln(out, "File downloaded successfully")
				},
			}
			var text string
			if skipFetch {
				text, err = runner.Transcribe(cmd.Context(), dest)
			} else {
				text, err = runner.Run(cmd.Context(), url, dest)
			}
			if writeErr != nil {
				return writeErr
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, text)
			return err
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "audio URL (default fetch.url)")
	cmd.Flags().StringVar(&dest, "dest", "", "local path for the download (default fetch.dest_path)")
	cmd.Flags().BoolVar(&skipFetch, "skip-fetch", false, "transcribe an existing file at --dest")
	return cmd
}

// NewFetchCmd downloads the configured audio file without transcribing it.
func NewFetchCmd(cfgPath *string) *cobra.Command {
	var url, dest string
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download the audio file only",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadRuntime(*cfgPath)
			if err != nil {
				return err
			}
			if url == "" {
				url = cfg.Fetch.URL
			}
			if dest == "" {
				dest = cfg.Fetch.DestPath
			}
			runner := &transcribe.Runner{Logger: logger}
			res, err := runner.Fetch(cmd.Context(), url, dest)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "File downloaded successfully (%d bytes -> %s)\n", res.Bytes, res.Path)
			return err
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "audio URL (default fetch.url)")
	cmd.Flags().StringVar(&dest, "dest", "", "local path (default fetch.dest_path)")
	return cmd
}
