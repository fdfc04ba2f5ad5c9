package control

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"parley/internal/config"
	"parley/internal/fetch"

	"github.com/spf13/cobra"
)

const modelBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/"

// known ggml models for the whisper backend.
var modelRegistry = map[string]string{
	"ggml-tiny.en.bin":             modelBaseURL + "ggml-tiny.en.bin",
	"ggml-base.en.bin":             modelBaseURL + "ggml-base.en.bin",
	"ggml-small-q5_1.bin":          modelBaseURL + "ggml-small-q5_1.bin",
	"ggml-medium-q5_1.bin":         modelBaseURL + "ggml-medium-q5_1.bin",
	"ggml-large-v3-turbo-q8_0.bin": modelBaseURL + "ggml-large-v3-turbo-q8_0.bin",
}

// NewModelsCmd wires up the models subcommands (list/download/set).
func NewModelsCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List/download/set whisper models",
	}
	cmd.AddCommand(newModelsListCmd(cfgPath))
	cmd.AddCommand(newModelsDownloadCmd(cfgPath))
	cmd.AddCommand(newModelsSetCmd(cfgPath))
	return cmd
}

func modelNames() []string {
	names := make([]string, 0, len(modelRegistry))
	for n := range modelRegistry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func localModels(dir string) map[string]bool {
	local := map[string]bool{}
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if !e.IsDir() {
			local[e.Name()] = true
		}
	}
	return local
}

func newModelsListCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List known models and those present locally",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			local := localModels(os.ExpandEnv(cfg.Paths.ModelDir))
			active := filepath.Base(cfg.Transcriber.ModelPath)
			out := cmd.OutOrStdout()
			for _, n := range modelNames() {
				var tags []string
				if local[n] {
					tags = append(tags, "downloaded")
				}
				if n == active {
					tags = append(tags, "active")
				}
				line := "- " + n
				if len(tags) > 0 {
					line += " (" + strings.Join(tags, ", ") + ")"
				}
				if _, err := fmt.Fprintln(out, line); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newModelsDownloadCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "download [model]",
		Short: "Download a model from the registry (default: the configured one)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadRuntime(*cfgPath)
			if err != nil {
				return err
			}
			name := filepath.Base(cfg.Transcriber.ModelPath)
			dest := os.ExpandEnv(cfg.Transcriber.ModelPath)
			if len(args) == 1 {
				name = args[0]
				dest = filepath.Join(os.ExpandEnv(cfg.Paths.ModelDir), name)
			}
			url, ok := modelRegistry[name]
			if !ok {
				return fmt.Errorf("unknown model %q; run models list", name)
			}
			if _, err := os.Stat(dest); err == nil {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "model already present at", dest)
				return err
			}
			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "downloading %s -> %s\n", name, dest); err != nil {
				return err
			}
			logger.Infof("model download %s from %s", name, url)
			res, err := fetch.Resource(cmd.Context(), nil, url, dest)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "model download complete (%d bytes)\n", res.Bytes)
			return err
		},
	}
}

func newModelsSetCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "set <model-name-or-path>",
		Short: "Set transcriber.model_path in config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			val := resolveModelPath(cfg.Paths.ModelDir, args[0])
			cfg.Transcriber.ModelPath = val
			if err := config.Save(cfg, cfg.Paths.ConfigPath); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "model set to %s\n", val)
			return err
		},
	}
}

// resolveModelPath maps a bare model name into modelDir.
func resolveModelPath(modelDir, val string) string {
	if strings.ContainsAny(val, `/\`) {
		return val
	}
	return filepath.Join(modelDir, val)
}
