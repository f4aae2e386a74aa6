package convert

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rafey804/flipfilex-sub000/internal/domain"
)

// PDFCompress shrinks a PDF through Ghostscript's pdfwrite device.
type PDFCompress struct {
	Ghostscript string
	Runner      *Runner
}

func (c *PDFCompress) Convert(ctx context.Context, req Request) (Result, error) {
	input := req.InputPaths[0]
	preset := "/ebook"
	switch req.Options.Get("level", "medium") {
	case "low":
		preset = "/printer"
	case "high":
		preset = "/screen"
	}

	args := []string{
		"-sDEVICE=pdfwrite",
		"-dCompatibilityLevel=1.4",
		"-dPDFSETTINGS=" + preset,
		"-dNOPAUSE", "-dQUIET", "-dBATCH",
		"-sOutputFile=" + req.OutputPath,
		input,
	}
	if _, err := c.Runner.Run(ctx, DocumentTimeout, c.Ghostscript, args...); err != nil {
		DiscardOutput(req.OutputPath)
		return Result{}, err
	}
	if err := VerifyOutput(req.OutputPath); err != nil {
		return Result{}, err
	}
	return Result{Metadata: sizeMetadata(input, req.OutputPath)}, nil
}

// PDFProtect encrypts a PDF with a user password via qpdf.
type PDFProtect struct {
	QPDF   string
	Runner *Runner
}

func (c *PDFProtect) Convert(ctx context.Context, req Request) (Result, error) {
	password := req.Options.Get("password", "")
	if password == "" {
		return Result{}, domain.NewError(domain.ErrInvalidRequest, "password is required")
	}

	args := []string{"--encrypt", password, password, "256", "--", req.InputPaths[0], req.OutputPath}
	if _, err := c.Runner.Run(ctx, DocumentTimeout, c.QPDF, args...); err != nil {
		DiscardOutput(req.OutputPath)
		return Result{}, err
	}
	if err := VerifyOutput(req.OutputPath); err != nil {
		return Result{}, err
	}
	return Result{}, nil
}

// PDFSplit explodes a PDF into one file per page inside the bundle dir.
type PDFSplit struct {
	QPDF   string
	Runner *Runner
}

func (c *PDFSplit) Convert(ctx context.Context, req Request) (Result, error) {
	pattern := filepath.Join(req.BundleDir, "page-%d.pdf")
	args := []string{"--split-pages=1", req.InputPaths[0], pattern}
	if _, err := c.Runner.Run(ctx, DocumentTimeout, c.QPDF, args...); err != nil {
		return Result{}, err
	}
	pages, err := countBundleFiles(req.BundleDir)
	if err != nil {
		return Result{}, err
	}
	return Result{Metadata: map[string]any{"pages": pages}}, nil
}

// PDFMerge concatenates several PDFs into one via qpdf.
type PDFMerge struct {
	QPDF   string
	Runner *Runner
}

func (c *PDFMerge) Convert(ctx context.Context, req Request) (Result, error) {
	if len(req.InputPaths) < 2 {
		return Result{}, domain.NewError(domain.ErrInvalidRequest, "merging needs at least two files")
	}

	args := []string{"--empty", "--pages"}
	args = append(args, req.InputPaths...)
	args = append(args, "--", req.OutputPath)
	if _, err := c.Runner.Run(ctx, DocumentTimeout, c.QPDF, args...); err != nil {
		DiscardOutput(req.OutputPath)
		return Result{}, err
	}
	if err := VerifyOutput(req.OutputPath); err != nil {
		return Result{}, err
	}
	return Result{Metadata: map[string]any{"merged": len(req.InputPaths)}}, nil
}

// PDFToImages renders each PDF page to PNG inside the bundle dir using
// poppler's pdftoppm.
type PDFToImages struct {
	Pdftoppm string
	Runner   *Runner
}

func (c *PDFToImages) Convert(ctx context.Context, req Request) (Result, error) {
	dpi := req.Options.Get("dpi", "150")
	prefix := filepath.Join(req.BundleDir, "page")
	args := []string{"-png", "-r", dpi, req.InputPaths[0], prefix}
	if _, err := c.Runner.Run(ctx, DocumentTimeout, c.Pdftoppm, args...); err != nil {
		return Result{}, err
	}
	pages, err := countBundleFiles(req.BundleDir)
	if err != nil {
		return Result{}, err
	}
	return Result{Metadata: map[string]any{"pages": pages}}, nil
}

// OCR extracts text from a scanned image or PDF with tesseract.
type OCR struct {
	Tesseract string
	Runner    *Runner
}

func (c *OCR) Convert(ctx context.Context, req Request) (Result, error) {
	lang := req.Options.Get("language", "eng")

	// tesseract appends the extension itself, so aim it at the output stem.
	stem := strings.TrimSuffix(req.OutputPath, filepath.Ext(req.OutputPath))
	args := []string{req.InputPaths[0], stem, "-l", lang}
	if strings.HasSuffix(req.OutputPath, ".pdf") {
		args = append(args, "pdf")
	}
	if _, err := c.Runner.Run(ctx, DocumentTimeout, c.Tesseract, args...); err != nil {
		DiscardOutput(req.OutputPath)
		return Result{}, err
	}
	if err := VerifyOutput(req.OutputPath); err != nil {
		return Result{}, err
	}
	return Result{Metadata: map[string]any{"language": lang}}, nil
}

func countBundleFiles(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, domain.WrapError(domain.ErrConverterFailed, "conversion produced no output", err)
	}
	count := 0
	for _, e := range entries {
		if e.Type().IsRegular() {
			count++
		}
	}
	if count == 0 {
		return 0, domain.NewError(domain.ErrConverterFailed, "conversion produced no output")
	}
	return count, nil
}
