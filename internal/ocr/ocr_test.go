package ocr

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/hoa-financials/internal/command"
	"github.com/sells-group/hoa-financials/internal/config"
)

type call struct {
	name string
	args []string
}

// recorder returns a runner that records calls and answers with fn.
func recorder(calls *[]call, fn func(name string, args []string) ([]byte, []byte, error)) command.Runner {
	return command.RunnerFunc(func(_ context.Context, _ []byte, name string, args ...string) ([]byte, []byte, error) {
		*calls = append(*calls, call{name: name, args: args})
		return fn(name, args)
	})
}

func TestNewTools_Defaults(t *testing.T) {
	tools := NewTools(config.OCRConfig{}, command.Exec{})
	assert.Equal(t, "pdftotext", tools.Text.binPath)
	assert.Equal(t, "pdftoppm", tools.Renderer.binPath)
	assert.Equal(t, defaultDPI, tools.Renderer.dpi)
	assert.Equal(t, "tesseract", tools.OCR.binPath)
	assert.Equal(t, "eng", tools.OCR.language)
}

func TestNewTools_Configured(t *testing.T) {
	tools := NewTools(config.OCRConfig{
		PdfToTextPath: "/opt/pdftotext",
		PdfToPPMPath:  "/opt/pdftoppm",
		TesseractPath: "/opt/tesseract",
		DPI:           300,
		Language:      "spa",
		TimeoutSecs:   5,
	}, command.Exec{})
	assert.Equal(t, "/opt/pdftotext", tools.Text.binPath)
	assert.Equal(t, 300, tools.Renderer.dpi)
	assert.Equal(t, "spa", tools.OCR.language)
	assert.Equal(t, 5*time.Second, tools.OCR.timeout)
}

func TestPdfToText_ExtractText(t *testing.T) {
	var calls []call
	p := NewPdfToText("", recorder(&calls, func(string, []string) ([]byte, []byte, error) {
		return []byte("Balance Sheet\n"), nil, nil
	}))

	got, err := p.ExtractText(context.Background(), "in.pdf")
	require.NoError(t, err)
	assert.Equal(t, "Balance Sheet\n", got)
	require.Len(t, calls, 1)
	assert.Equal(t, "pdftotext", calls[0].name)
	assert.Equal(t, []string{"-layout", "in.pdf", "-"}, calls[0].args)
}

func TestPdfToText_ExtractPages(t *testing.T) {
	var calls []call
	p := NewPdfToText("/usr/bin/pdftotext", recorder(&calls, func(string, []string) ([]byte, []byte, error) {
		return nil, nil, nil
	}))

	_, err := p.ExtractPages(context.Background(), "in.pdf", 3, 4)
	require.NoError(t, err)
	assert.Equal(t, []string{"-layout", "-f", "3", "-l", "4", "in.pdf", "-"}, calls[0].args)
}

func TestPdfToText_Error(t *testing.T) {
	var calls []call
	p := NewPdfToText("", recorder(&calls, func(string, []string) ([]byte, []byte, error) {
		return nil, []byte("Syntax Error: broken xref"), errors.New("exit status 1")
	}))

	_, err := p.ExtractText(context.Background(), "bad.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken xref")
}

func TestRenderer_Render(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "page-045")

	var calls []call
	r := NewRenderer("", 0, recorder(&calls, func(_ string, args []string) ([]byte, []byte, error) {
		return nil, nil, os.WriteFile(args[len(args)-1]+".png", []byte("png"), 0o644)
	}))

	got, err := r.Render(context.Background(), "page-045.pdf", prefix)
	require.NoError(t, err)
	assert.Equal(t, prefix+".png", got)
	assert.Equal(t, []string{"-png", "-r", "200", "-singlefile", "page-045.pdf", prefix}, calls[0].args)

	// A second render reuses the image.
	_, err = r.Render(context.Background(), "page-045.pdf", prefix)
	require.NoError(t, err)
	assert.Len(t, calls, 1)
}

func TestRenderer_NoImageProduced(t *testing.T) {
	var calls []call
	r := NewRenderer("", 150, recorder(&calls, func(string, []string) ([]byte, []byte, error) {
		return nil, nil, nil
	}))

	_, err := r.Render(context.Background(), "p.pdf", filepath.Join(t.TempDir(), "p"))
	assert.Error(t, err)
}

func TestRenderer_CommandFails(t *testing.T) {
	var calls []call
	r := NewRenderer("", 150, recorder(&calls, func(string, []string) ([]byte, []byte, error) {
		return nil, []byte("May not be a PDF file"), errors.New("exit status 1")
	}))

	_, err := r.Render(context.Background(), "p.pdf", filepath.Join(t.TempDir(), "p"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "May not be a PDF file")
}

func TestTesseract_Recognize(t *testing.T) {
	var calls []call
	tess := NewTesseract("", "", time.Second, recorder(&calls, func(string, []string) ([]byte, []byte, error) {
		return []byte("  INVOICE 123\n\n"), nil, nil
	}))

	assert.Equal(t, "INVOICE 123", tess.Recognize(context.Background(), "img.png"))
	assert.Equal(t, "tesseract", calls[0].name)
	assert.Equal(t, []string{"img.png", "stdout", "-l", "eng"}, calls[0].args)
}

func TestTesseract_FailureYieldsEmpty(t *testing.T) {
	var calls []call
	tess := NewTesseract("", "", 0, recorder(&calls, func(string, []string) ([]byte, []byte, error) {
		return []byte("partial"), []byte("Error opening data file"), errors.New("exit status 1")
	}))

	assert.Empty(t, tess.Recognize(context.Background(), "img.png"))
}
