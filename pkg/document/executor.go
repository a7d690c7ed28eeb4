package document

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// Executor runs external text extraction tools
type Executor interface {
	PDFToText(ctx context.Context, pdf []byte) ([]byte, error)
}

// DefaultExecutor runs the poppler pdftotext binary
type DefaultExecutor struct {
	Timeout time.Duration
}

// NewExecutor creates an executor with a 30 second timeout per document
func NewExecutor() Executor {
	return &DefaultExecutor{Timeout: 30 * time.Second}
}

// PDFToText writes the PDF to a temp file and returns pdftotext's UTF-8 output.
func (e *DefaultExecutor) PDFToText(ctx context.Context, pdf []byte) ([]byte, error) {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return nil, fmt.Errorf("pdftotext not found in PATH: %w", err)
	}

	tmpDir, err := os.MkdirTemp("", "link-analyzer-pdf-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	pdfPath := filepath.Join(tmpDir, "input.pdf")
	if err := os.WriteFile(pdfPath, pdf, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write temp PDF: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "pdftotext",
		"-enc", "UTF-8",
		"-eol", "unix",
		"-nopgbrk",
		"-q",
		pdfPath,
		"-",
	)
	cmd.Env = append(os.Environ(), "LANG=C.UTF-8", "LC_ALL=C.UTF-8")

	out, err := cmd.Output()
	if ctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("pdftotext timed out after %s", e.Timeout)
	}
	if err != nil {
		var stderr []byte
		if exitErr, ok := err.(*exec.ExitError); ok {
			stderr = exitErr.Stderr
		}
		return nil, fmt.Errorf("pdftotext failed: %w: %s", err, bytes.TrimSpace(stderr))
	}
	return out, nil
}
