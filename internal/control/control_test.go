package control

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"parley/internal/config"
	"parley/internal/fetch"
	"parley/internal/session"

	"github.com/spf13/cobra"
)

// writeConfig saves a config rooted in a temp dir and returns its path.
func writeConfig(t *testing.T, mutate func(*config.Config)) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	cfg, err := config.Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	cfg.Paths.StateDir = filepath.Join(dir, "state")
	cfg.Paths.LogPath = filepath.Join(dir, "state", "parley.log")
	cfg.Paths.ModelDir = filepath.Join(dir, "state", "models")
	cfg.Fetch.DestPath = filepath.Join(dir, "downloaded_audio.mp3")
	if mutate != nil {
		mutate(cfg)
	}
	path := filepath.Join(dir, "config.toml")
	if err := config.Save(cfg, path); err != nil {
		t.Fatalf("save: %v", err)
	}
	return path
}

func newRoot(cfgPath string, args ...string) *cobra.Command {
	root := &cobra.Command{Use: "parley", SilenceUsage: true, SilenceErrors: true}
	path := root.PersistentFlags().StringP("config", "c", "", "")
	root.AddCommand(NewAskCmd(path), NewChatCmd(path), NewTranscribeCmd(path), NewFetchCmd(path),
		NewModelsCmd(path), NewDoctorCmd(path), NewConfigCmd(path))
	root.SetArgs(append([]string{"-c", cfgPath}, args...))
	return root
}

func execute(t *testing.T, cfgPath, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRoot(cfgPath, args...)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetIn(strings.NewReader(stdin))
	err := root.Execute()
	return out.String(), err
}

func echoResponder(c *config.Config) {
	c.Responder.Backend = "exec"
	c.Responder.Command = `sh -c 'echo "you said: $PARLEY_INPUT"'`
}

func TestLineReader(t *testing.T) {
	read := LineReader(strings.NewReader("Hello\r\n\nlast"))
	for _, want := range []string{"Hello", "", "last"} {
		got, err := read()
		if err != nil || got != want {
			t.Fatalf("got %q, %v; want %q", got, err, want)
		}
	}
	if _, err := read(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestPromptReaderWritesPromptEachRound(t *testing.T) {
	var out bytes.Buffer
	read := promptReader(&out, "> ", LineReader(strings.NewReader("a\nb\n")))
	_, _ = read()
	_, _ = read()
	if out.String() != "> > " {
		t.Fatalf("prompt output %q", out.String())
	}
}

func TestAskDefaultText(t *testing.T) {
	cfgPath := writeConfig(t, echoResponder)
	out, err := execute(t, cfgPath, "", "ask")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if out != "you said: Hello, how are you doing?\n" {
		t.Fatalf("output %q", out)
	}
}

func TestAskJSON(t *testing.T) {
	cfgPath := writeConfig(t, echoResponder)
	out, err := execute(t, cfgPath, "", "ask", "--json", "Hi", "there")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	var res AskResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if res.Response != "you said: Hi there" || len(res.Log) != 2 || res.Log[0] != "Hi there" {
		t.Fatalf("result %+v", res)
	}
}

func TestChatRunsUntilInputEnds(t *testing.T) {
	cfgPath := writeConfig(t, echoResponder)
	out, err := execute(t, cfgPath, "one\ntwo\n", "chat", "--prompt", "? ")
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF error, got %v", err)
	}
	want := "? you said: one\n? you said: two\n? "
	if out != want {
		t.Fatalf("output %q, want %q", out, want)
	}
}

func TestChatStopsOnResponderFailure(t *testing.T) {
	cfgPath := writeConfig(t, func(c *config.Config) {
		c.Responder.Backend = "exec"
		c.Responder.Command = "false"
		c.Chat.Prompt = ""
	})
	out, err := execute(t, cfgPath, "one\ntwo\n", "chat")
	var re *session.ResponderError
	if !errors.As(err, &re) || re.Round != 1 {
		t.Fatalf("expected round 1 responder error, got %v", err)
	}
	if out != "" {
		t.Fatalf("no output expected, got %q", out)
	}
}

func TestTranscribeFetchesThenTranscribes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/audio.mp3", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "fake mp3 bytes")
	})
	mux.HandleFunc("/transcribe", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"text":" the transcript"}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfgPath := writeConfig(t, func(c *config.Config) {
		c.Transcriber.Backend = "sidecar"
		c.Transcriber.URL = srv.URL
		c.Fetch.URL = srv.URL + "/audio.mp3"
	})
	out, err := execute(t, cfgPath, "", "transcribe")
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if out != "File downloaded successfully\n the transcript\n" {
		t.Fatalf("output %q", out)
	}
}

func TestTranscribeAbortsOnFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/transcribe" {
			t.Errorf("transcriber must not be called")
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	cfgPath := writeConfig(t, func(c *config.Config) {
		c.Transcriber.Backend = "sidecar"
		c.Transcriber.URL = srv.URL
	})
	out, err := execute(t, cfgPath, "", "transcribe", "--url", srv.URL+"/missing.mp3")
	var fe *fetch.FetchError
	if !errors.As(err, &fe) || fe.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 fetch error, got %v", err)
	}
	if strings.Contains(out, "File downloaded successfully") {
		t.Fatalf("unexpected success line: %q", out)
	}
}

func TestTranscribeSkipFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"text":"local file"}`)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "clip.mp3")
	if err := os.WriteFile(dest, []byte("fake mp3 bytes"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfgPath := writeConfig(t, func(c *config.Config) {
		c.Transcriber.Backend = "sidecar"
		c.Transcriber.URL = srv.URL
	})
	out, err := execute(t, cfgPath, "", "transcribe", "--skip-fetch", "--dest", dest)
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if out != "local file\n" {
		t.Fatalf("output %q", out)
	}
}

func TestFetchCmd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ABC")
	}))
	defer srv.Close()

	cfgPath := writeConfig(t, nil)
	dest := filepath.Join(t.TempDir(), "a.mp3")
	out, err := execute(t, cfgPath, "", "fetch", "--url", srv.URL, "--dest", dest)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !strings.HasPrefix(out, "File downloaded successfully") {
		t.Fatalf("output %q", out)
	}
	if data, _ := os.ReadFile(dest); string(data) != "ABC" {
		t.Fatalf("file content %q", data)
	}
}

func TestModelsSetAndList(t *testing.T) {
	cfgPath := writeConfig(t, nil)
	if _, err := execute(t, cfgPath, "", "models", "set", "ggml-base.en.bin"); err != nil {
		t.Fatalf("set: %v", err)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Transcriber.ModelPath != filepath.Join(cfg.Paths.ModelDir, "ggml-base.en.bin") {
		t.Fatalf("model path %q", cfg.Transcriber.ModelPath)
	}
	out, err := execute(t, cfgPath, "", "models", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "- ggml-base.en.bin (active)") {
		t.Fatalf("list output %q", out)
	}
	if _, err := execute(t, cfgPath, "", "models", "download", "ggml-nope.bin"); err == nil {
		t.Fatalf("expected unknown model error")
	}
}

func TestResolveModelPath(t *testing.T) {
	if got := resolveModelPath("/m", "ggml-tiny.en.bin"); got != filepath.Join("/m", "ggml-tiny.en.bin") {
		t.Fatalf("bare name %q", got)
	}
	if got := resolveModelPath("/m", "/opt/ggml.bin"); got != "/opt/ggml.bin" {
		t.Fatalf("explicit path %q", got)
	}
}

func TestConfigPathAndShow(t *testing.T) {
	cfgPath := writeConfig(t, nil)
	out, err := execute(t, cfgPath, "", "config", "path")
	if err != nil || strings.TrimSpace(out) != cfgPath {
		t.Fatalf("path %q, %v", out, err)
	}
	t.Setenv("PARLEY_RESPONDER_MODEL", "facebook/blenderbot-1B-distill")
	out, err = execute(t, cfgPath, "", "config", "show")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out, "facebook/blenderbot-1B-distill") {
		t.Fatalf("env override missing from output:\n%s", out)
	}
}

func TestChatStopsOnCancelWhileWaitingForInput(t *testing.T) {
	cfgPath := writeConfig(t, echoResponder)
	stdin, w := io.Pipe()
	defer w.Close()

	root := newRoot(cfgPath, "chat")
	root.SetIn(stdin)
	root.SetOut(io.Discard)
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	errc := make(chan error, 1)
	go func() { errc <- root.ExecuteContext(ctx) }()
	select {
	case err := <-errc:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected cancellation, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("chat kept waiting for input after cancel")
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("stdout closed") }

func TestCommandsReportWriteErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"text":"x"}`)
	}))
	defer srv.Close()
	cfgPath := writeConfig(t, func(c *config.Config) {
		c.Transcriber.Backend = "sidecar"
		c.Transcriber.URL = srv.URL
		c.Fetch.URL = srv.URL + "/audio.mp3"
	})
	for _, args := range [][]string{
		{"config", "path"},
		{"models", "list"},
		{"models", "set", "ggml-tiny.en.bin"},
		{"fetch"},
		{"transcribe"},
	} {
		root := newRoot(cfgPath, args...)
		root.SetOut(failingWriter{})
		if err := root.Execute(); err == nil || !strings.Contains(err.Error(), "stdout closed") {
			t.Fatalf("%v: expected write error, got %v", args, err)
		}
	}
}

func TestTranscribeHelpMentionsWhisperBuildTag(t *testing.T) {
	out, err := execute(t, writeConfig(t, nil), "", "transcribe", "--help")
	if err != nil {
		t.Fatalf("help: %v", err)
	}
	if !strings.Contains(out, "-tags whisper") {
		t.Fatalf("help output missing build hint:\n%s", out)
	}
}
