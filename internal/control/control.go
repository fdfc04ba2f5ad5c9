package control

import (
	"bufio"
	"io"
	"strings"

	"parley/internal/config"
	"parley/internal/logging"

	"github.com/sirupsen/logrus"
)

// AskResult is the --json output of ask.
type AskResult struct {
	Response string   `json:"response"`
	Log      []string `json:"log"`
}

// loadRuntime loads config and configures the logger.
func loadRuntime(cfgPath string) (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.Configure(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// LineReader returns a read func yielding one line per call with the line
// terminator removed. A final line without a newline is still returned; the
// call after it reports io.EOF.
func LineReader(r io.Reader) func() (string, error) {
	br := bufio.NewReader(r)
	return func() (string, error) {
		line, err := br.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
}

// promptReader writes prompt to w before each read.
func promptReader(w io.Writer, prompt string, read func() (string, error)) func() (string, error) {
	return func() (string, error) {
		if prompt != "" {
			if _, err := io.WriteString(w, prompt); err != nil {
				return "", err
			}
		}
		return read()
	}
}
