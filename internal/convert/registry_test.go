package convert

import (
	"testing"

	"github.com/rafey804/flipfilex-sub000/internal/domain"
	"github.com/rafey804/flipfilex-sub000/internal/infra"
)

func testConfig() *infra.Config {
	return &infra.Config{
		Tools: infra.ToolPaths{
			FFmpeg: "ffmpeg", FFprobe: "ffprobe", Soffice: "soffice",
			Ghostscript: "gs", QPDF: "qpdf", Pdftoppm: "pdftoppm",
			Tesseract: "tesseract", Qrencode: "qrencode",
		},
		TTSBaseURL:   "https://tts.example",
		ImageBaseURL: "https://img.example",
	}
}

func TestTableCoversAllKinds(t *testing.T) {
	table := Table(testConfig(), NewRunner(infra.NewLogger("test")))

	kinds := []domain.Kind{
		KindVideoFormat, KindAudioFormat, KindImageFormat, KindImageCompress,
		KindDocumentToPDF, KindPDFToWord, KindPDFCompress, KindPDFProtect,
		KindPDFSplit, KindPDFMerge, KindPDFToImages, KindOCR,
		KindQRGenerate, KindTextToSpeech, KindAIImage,
	}
	if len(table) != len(kinds) {
		t.Fatalf("table holds %d specs, want %d", len(table), len(kinds))
	}
	for _, kind := range kinds {
		spec, ok := table[kind]
		if !ok {
			t.Errorf("kind %s missing from table", kind)
			continue
		}
		if spec.Converter == nil {
			t.Errorf("kind %s has no converter", kind)
		}
		if spec.Timeout <= 0 {
			t.Errorf("kind %s has no timeout", kind)
		}
		if spec.RequiresFile && len(spec.InputExts) == 0 {
			t.Errorf("kind %s requires a file but accepts no extensions", kind)
		}
	}
}

func TestOnlyVideoIsHeavy(t *testing.T) {
	table := Table(testConfig(), NewRunner(infra.NewLogger("test")))
	for kind, spec := range table {
		heavy := spec.Class == domain.WorkloadHeavy
		if heavy != (kind == KindVideoFormat) {
			t.Errorf("kind %s class = %s", kind, spec.Class)
		}
	}
}

func TestResolveOutputExt(t *testing.T) {
	table := Table(testConfig(), NewRunner(infra.NewLogger("test")))

	video := table[KindVideoFormat]
	if got := video.ResolveOutputExt(Options{"target_format": "mkv"}); got != "mkv" {
		t.Fatalf("video target ext = %q", got)
	}
	if got := video.ResolveOutputExt(Options{}); got != "mp4" {
		t.Fatalf("video default ext = %q", got)
	}

	split := table[KindPDFSplit]
	if got := split.ResolveOutputExt(Options{}); got != "zip" {
		t.Fatalf("bundle kind ext = %q, want zip", got)
	}

	word := table[KindPDFToWord]
	if got := word.ResolveOutputExt(Options{"target_format": "odt"}); got != "docx" {
		t.Fatalf("fixed-output kind honored target_format: %q", got)
	}
}

func TestAccepts(t *testing.T) {
	table := Table(testConfig(), NewRunner(infra.NewLogger("test")))
	video := table[KindVideoFormat]

	if !video.AcceptsInput("mp4") || video.AcceptsInput("exe") {
		t.Fatalf("input extension filter broken")
	}
	if !video.AcceptsTarget("mkv") || video.AcceptsTarget("exe") {
		t.Fatalf("target filter broken")
	}

	qr := table[KindQRGenerate]
	if !qr.AcceptsTarget("anything") {
		t.Fatalf("kinds without target list must accept any target")
	}
}

func TestCapabilityProbesCoverTools(t *testing.T) {
	probes := CapabilityProbes(testConfig())
	byName := make(map[string]bool, len(probes))
	for _, p := range probes {
		byName[p.Name] = true
	}
	for _, name := range []string{CapFFmpeg, CapFFprobe, CapLibreOffice, CapGhostscript, CapQPDF, CapPoppler, CapTesseract, CapQrencode, CapTTSAPI, CapImageAPI} {
		if !byName[name] {
			t.Errorf("probe for %s missing", name)
		}
	}
}
