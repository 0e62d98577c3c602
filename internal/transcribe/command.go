package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Command runs a local speech-to-text program with the audio path as its
// last argument and reads the transcript from standard output.
type Command struct {
	name string
	args []string
}

// NewCommand parses a whitespace-separated command line. It returns nil for
// an empty line.
func NewCommand(line string) *Command {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	return &Command{name: fields[0], args: fields[1:]}
}

func (c *Command) Transcribe(ctx context.Context, path string) (string, error) {
	args := append(append([]string{}, c.args...), path)
	cmd := exec.CommandContext(ctx, c.name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("run %s: %w: %s", c.name, err, strings.TrimSpace(stderr.String()))
	}
	text := strings.TrimSpace(stdout.String())
	if text == "" {
		return "", fmt.Errorf("%s produced no transcript", c.name)
	}
	return text, nil
}
