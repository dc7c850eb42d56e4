package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Executor abstracts command execution for PDF conversion.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) ([]byte, error)
}

// commandExecutor executes commands using os/exec.
type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	return cmd.Output()
}

// ErrUnsupportedDocument reports a file that is neither text nor PDF.
var ErrUnsupportedDocument = errors.New("unsupported document type")

// Source reads manifest documents as page-concatenated text.
type Source struct {
	binary string
	exec   Executor
}

// NewSource reads PDFs through the pdftotext binary.
func NewSource(binary string) *Source {
	return NewSourceWithExecutor(binary, nil)
}

// NewSourceWithExecutor allows injecting a custom executor for testing.
func NewSourceWithExecutor(binary string, executor Executor) *Source {
	if executor == nil {
		executor = commandExecutor{}
	}
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "pdftotext"
	}
	return &Source{binary: binary, exec: executor}
}

// Supported reports whether path has an extension ReadDocument understands.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".pdf":
		return true
	}
	return false
}

// ReadDocument returns the text of a .txt file or a .pdf converted with
// `pdftotext -layout <file> -`. A missing or unreadable document is an error.
func (s *Source) ReadDocument(ctx context.Context, path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("open manifest document: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("manifest document %q is a directory", path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read manifest document: %w", err)
		}
		return string(data), nil
	case ".pdf":
		out, err := s.exec.Run(ctx, s.binary, []string{"-layout", path, "-"})
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
				return "", fmt.Errorf("pdftotext %s: %w: %s", filepath.Base(path), err, strings.TrimSpace(string(exitErr.Stderr)))
			}
			return "", fmt.Errorf("pdftotext %s: %w", filepath.Base(path), err)
		}
		// pdftotext separates pages with form feeds.
		return strings.ReplaceAll(string(out), "\f", "\n"), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedDocument, filepath.Ext(path))
	}
}
