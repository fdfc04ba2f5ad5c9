package doctor

import (
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"strings"

	"parley/internal/config"
	"parley/internal/responder"
	"parley/internal/transcribe"

	"github.com/google/shlex"
)

// Result represents a diagnostic check.
type Result struct {
	Name   string
	Pass   bool
	Detail string
}

// Run executes doctor checks.
func Run(cfg *config.Config) []Result {
	results := []Result{
		checkFile("config path", cfg.Paths.ConfigPath),
	}
	results = append(results, checkResponder(cfg)...)
	results = append(results, checkTranscriber(cfg)...)
	results = append(results, checkURL("fetch.url", cfg.Fetch.URL))
	return results
}

func checkResponder(cfg *config.Config) []Result {
	rc := cfg.Responder
	switch strings.ToLower(rc.Backend) {
	case "huggingface", "hf", "":
		return []Result{
			checkBaseURL("responder", rc.BaseURL, responder.DefaultHFBaseURL),
			checkEnv("responder key", rc.APIKeyEnv, true),
		}
	case "openai":
		return []Result{
			checkBaseURL("responder", rc.BaseURL, "api.openai.com"),
			checkEnv("responder key", rc.APIKeyEnv, false),
		}
	case "exec":
		return []Result{checkCommand("responder", rc.Command)}
	default:
		return []Result{{Name: "responder", Pass: false, Detail: fmt.Sprintf("unknown backend %q", rc.Backend)}}
	}
}

func checkTranscriber(cfg *config.Config) []Result {
	tc := cfg.Transcriber
	switch strings.ToLower(tc.Backend) {
	case "whisper", "":
		res := []Result{checkFile("model file", tc.ModelPath)}
		if !whisperBuild {
			res = append(res, Result{Name: "whisper", Pass: false, Detail: "not compiled in; rebuild with -tags whisper"})
		}
		return res
	case "sidecar":
		return []Result{checkBaseURL("transcriber", tc.URL, transcribe.DefaultSidecarURL)}
	case "openai":
		return []Result{checkEnv("transcriber key", tc.APIKeyEnv, false)}
	default:
		return []Result{{Name: "transcriber", Pass: false, Detail: fmt.Sprintf("unknown backend %q", tc.Backend)}}
	}
}

func checkFile(label, path string) Result {
	if path == "" {
		return Result{Name: label, Pass: false, Detail: "not set"}
	}
	if _, err := os.Stat(os.ExpandEnv(path)); err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	return Result{Name: label, Pass: true, Detail: path}
}

func checkURL(label, raw string) Result {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return Result{Name: label, Pass: false, Detail: fmt.Sprintf("invalid url %q", raw)}
	}
	return Result{Name: label, Pass: true, Detail: raw}
}

// checkBaseURL passes for an empty url, which selects the backend default.
func checkBaseURL(label, raw, fallback string) Result {
	if raw == "" {
		return Result{Name: label, Pass: true, Detail: fallback + " (default)"}
	}
	return checkURL(label, raw)
}

// checkEnv passes when the variable is set, or when optional is true.
func checkEnv(label, name string, optional bool) Result {
	if name == "" {
		return Result{Name: label, Pass: optional, Detail: "api_key_env not set"}
	}
	if os.Getenv(name) == "" {
		if optional {
			return Result{Name: label, Pass: true, Detail: fmt.Sprintf("$%s empty; sending anonymous requests", name)}
		}
		return Result{Name: label, Pass: false, Detail: fmt.Sprintf("$%s is empty", name)}
	}
	return Result{Name: label, Pass: true, Detail: fmt.Sprintf("$%s set", name)}
}

func checkCommand(label, command string) Result {
	argv, err := shlex.Split(command)
	if err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	if len(argv) == 0 {
		return Result{Name: label, Pass: false, Detail: "command not set"}
	}
	path := os.ExpandEnv(argv[0])
	// If contains a path separator, treat as explicit path.
	if strings.Contains(path, "/") || strings.Contains(path, "\\") {
		info, err := os.Stat(path)
		if err != nil {
			return Result{Name: label, Pass: false, Detail: err.Error()}
		}
		if info.IsDir() {
			return Result{Name: label, Pass: false, Detail: "is a directory; set responder.command to an executable file"}
		}
		if info.Mode().Perm()&0o111 == 0 {
			return Result{Name: label, Pass: false, Detail: "not executable; chmod +x or choose another command"}
		}
		return Result{Name: label, Pass: true, Detail: path}
	}
	// Else search PATH.
	resolved, err := exec.LookPath(path)
	if err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	return Result{Name: label, Pass: true, Detail: resolved}
}
