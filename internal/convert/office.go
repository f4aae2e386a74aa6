package convert

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rafey804/flipfilex-sub000/internal/domain"
)

// OfficeToPDF renders office documents to PDF with a headless LibreOffice.
type OfficeToPDF struct {
	Soffice string
	Runner  *Runner
}

func (c *OfficeToPDF) Convert(ctx context.Context, req Request) (Result, error) {
	return sofficeConvert(ctx, c.Runner, c.Soffice, req, "pdf", nil)
}

// PDFToWord converts a PDF into an editable document via LibreOffice's PDF
// import. Two filter variants exist across LibreOffice versions; the first
// one that produces output wins.
type PDFToWord struct {
	Soffice string
	Runner  *Runner
}

func (c *PDFToWord) Convert(ctx context.Context, req Request) (Result, error) {
	filters := []string{
		`docx:MS Word 2007 XML`,
		`docx`,
	}
	var lastErr error
	for _, filter := range filters {
		res, err := sofficeConvert(ctx, c.Runner, c.Soffice, req, filter, []string{"--infilter=writer_pdf_import"})
		if err == nil {
			return res, nil
		}
		lastErr = err
		// A timeout will not improve on retry with another filter.
		if domain.KindOf(err) == domain.ErrTimeout {
			break
		}
	}
	return Result{}, lastErr
}

// sofficeConvert runs one soffice --convert-to invocation. LibreOffice names
// the output after the input stem, so the artifact is renamed onto
// req.OutputPath afterwards.
func sofficeConvert(ctx context.Context, runner *Runner, soffice string, req Request, convertTo string, extraArgs []string) (Result, error) {
	input := req.InputPaths[0]
	outDir := filepath.Dir(req.OutputPath)

	// Headless instances sharing a user profile lock each other out, so every
	// invocation gets a private one.
	profileDir, err := os.MkdirTemp("", "soffice-profile-")
	if err != nil {
		return Result{}, domain.WrapError(domain.ErrConverterFailed, "conversion workspace could not be prepared", err)
	}
	defer os.RemoveAll(profileDir)

	args := []string{
		"--headless",
		"--norestore",
		"-env:UserInstallation=file://" + filepath.ToSlash(profileDir),
	}
	args = append(args, extraArgs...)
	args = append(args, "--convert-to", convertTo, "--outdir", outDir, input)

	if _, err := runner.Run(ctx, DocumentTimeout, soffice, args...); err != nil {
		return Result{}, err
	}

	produced := sofficeOutputPath(input, outDir, convertTo)
	if err := VerifyOutput(produced); err != nil {
		return Result{}, err
	}
	if produced != req.OutputPath {
		if err := os.Rename(produced, req.OutputPath); err != nil {
			os.Remove(produced)
			return Result{}, domain.WrapError(domain.ErrConverterFailed, "conversion output could not be stored", err)
		}
	}
	return Result{Metadata: sizeMetadata(input, req.OutputPath)}, nil
}

func sofficeOutputPath(input, outDir, convertTo string) string {
	ext := convertTo
	if i := strings.Index(ext, ":"); i >= 0 {
		ext = ext[:i]
	}
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(outDir, stem+"."+ext)
}
