package convert

import (
	"github.com/rafey804/flipfilex-sub000/internal/capability"
	"github.com/rafey804/flipfilex-sub000/internal/domain"
	"github.com/rafey804/flipfilex-sub000/internal/infra"
)

// Conversion kinds. Each selects one Spec in the registry table.
const (
	KindVideoFormat   domain.Kind = "convert-video"
	KindAudioFormat   domain.Kind = "convert-audio"
	KindImageFormat   domain.Kind = "convert-image"
	KindImageCompress domain.Kind = "compress-image"
	KindDocumentToPDF domain.Kind = "document-to-pdf"
	KindPDFToWord     domain.Kind = "pdf-to-word"
	KindPDFCompress   domain.Kind = "compress-pdf"
	KindPDFProtect    domain.Kind = "protect-pdf"
	KindPDFSplit      domain.Kind = "split-pdf"
	KindPDFMerge      domain.Kind = "merge-pdf"
	KindPDFToImages   domain.Kind = "pdf-to-images"
	KindOCR           domain.Kind = "ocr"
	KindQRGenerate    domain.Kind = "generate-qr"
	KindTextToSpeech  domain.Kind = "text-to-speech"
	KindAIImage       domain.Kind = "generate-image"
)

// Capability names the registry table references.
const (
	CapFFmpeg      = "ffmpeg"
	CapFFprobe     = "ffprobe"
	CapLibreOffice = "libreoffice"
	CapGhostscript = "ghostscript"
	CapQPDF        = "qpdf"
	CapPoppler     = "poppler"
	CapTesseract   = "tesseract"
	CapQrencode    = "qrencode"
	CapTTSAPI      = "tts-api"
	CapImageAPI    = "image-api"
)

// CapabilityProbes builds the startup probe list from the configured tool
// paths and API keys.
func CapabilityProbes(cfg *infra.Config) []capability.Probe {
	return []capability.Probe{
		{Name: CapFFmpeg, Command: cfg.Tools.FFmpeg, VersionArg: "-version"},
		{Name: CapFFprobe, Command: cfg.Tools.FFprobe, VersionArg: "-version"},
		{Name: CapLibreOffice, Command: cfg.Tools.Soffice, VersionArg: "--version"},
		{Name: CapGhostscript, Command: cfg.Tools.Ghostscript, VersionArg: "--version"},
		{Name: CapQPDF, Command: cfg.Tools.QPDF, VersionArg: "--version"},
		{Name: CapPoppler, Command: cfg.Tools.Pdftoppm, VersionArg: "-v"},
		{Name: CapTesseract, Command: cfg.Tools.Tesseract, VersionArg: "--version"},
		{Name: CapQrencode, Command: cfg.Tools.Qrencode, VersionArg: "--version"},
		{Name: CapTTSAPI, Remote: true, Key: cfg.TTSAPIKey},
		{Name: CapImageAPI, Remote: true, Key: cfg.ImageAPIKey},
	}
}

var (
	videoExts    = []string{"mp4", "mkv", "webm", "mov", "avi", "flv", "wmv", "m4v", "3gp", "mpeg", "mpg", "ts"}
	audioExts    = []string{"mp3", "wav", "ogg", "flac", "aac", "m4a", "opus", "wma"}
	imageExts    = []string{"jpg", "jpeg", "png", "webp", "gif", "bmp", "tiff", "tif", "avif", "heic", "ico"}
	documentExts = []string{"doc", "docx", "xls", "xlsx", "ppt", "pptx", "odt", "rtf", "txt", "html"}

	videoTargets = []string{"mp4", "mkv", "webm", "mov", "avi"}
	audioTargets = []string{"mp3", "wav", "ogg", "flac", "aac", "m4a", "opus"}
	imageTargets = []string{"jpg", "jpeg", "png", "webp", "gif", "bmp", "tiff", "avif", "ico"}
)

// Table builds the static kind registry from the configuration. Converter
// construction happens once at startup; the table is read-only afterwards.
func Table(cfg *infra.Config, runner *Runner) map[domain.Kind]Spec {
	ffmpegVideo := &VideoConverter{FFmpeg: cfg.Tools.FFmpeg, FFprobe: cfg.Tools.FFprobe, Runner: runner}
	ffmpegAudio := &AudioConverter{FFmpeg: cfg.Tools.FFmpeg, FFprobe: cfg.Tools.FFprobe, Runner: runner}

	specs := []Spec{
		{
			Kind:                 KindVideoFormat,
			Category:             domain.CategoryVideo,
			Class:                domain.WorkloadHeavy,
			Mode:                 Background,
			InputExts:            videoExts,
			TargetExts:           videoTargets,
			OutputExt:            "mp4",
			RequiresFile:         true,
			RequiredCapabilities: []string{CapFFmpeg, CapFFprobe},
			Timeout:              MediaTimeout,
			Converter:            ffmpegVideo,
		},
		{
			Kind:                 KindAudioFormat,
			Category:             domain.CategoryAudio,
			Class:                domain.WorkloadLight,
			Mode:                 Background,
			InputExts:            audioExts,
			TargetExts:           audioTargets,
			OutputExt:            "mp3",
			RequiresFile:         true,
			RequiredCapabilities: []string{CapFFmpeg, CapFFprobe},
			Timeout:              MediaTimeout,
			Converter:            ffmpegAudio,
		},
		{
			Kind:                 KindImageFormat,
			Category:             domain.CategoryImage,
			Class:                domain.WorkloadLight,
			Mode:                 Inline,
			InputExts:            imageExts,
			TargetExts:           imageTargets,
			OutputExt:            "webp",
			RequiresFile:         true,
			RequiredCapabilities: []string{CapFFmpeg},
			Timeout:              ImageTimeout,
			Converter:            &ImageConverter{FFmpeg: cfg.Tools.FFmpeg, Runner: runner},
		},
		{
			Kind:                 KindImageCompress,
			Category:             domain.CategoryImage,
			Class:                domain.WorkloadLight,
			Mode:                 Inline,
			InputExts:            []string{"jpg", "jpeg", "png", "webp"},
			OutputExt:            "", // keeps the input extension
			RequiresFile:         true,
			RequiredCapabilities: []string{CapFFmpeg},
			Timeout:              ImageTimeout,
			Converter:            &ImageCompressor{FFmpeg: cfg.Tools.FFmpeg, Runner: runner},
		},
		{
			Kind:                 KindDocumentToPDF,
			Category:             domain.CategoryDocument,
			Class:                domain.WorkloadLight,
			Mode:                 Background,
			InputExts:            documentExts,
			OutputExt:            "pdf",
			RequiresFile:         true,
			RequiredCapabilities: []string{CapLibreOffice},
			Timeout:              DocumentTimeout,
			Converter:            &OfficeToPDF{Soffice: cfg.Tools.Soffice, Runner: runner},
		},
		{
			Kind:                 KindPDFToWord,
			Category:             domain.CategoryDocument,
			Class:                domain.WorkloadLight,
			Mode:                 Background,
			InputExts:            []string{"pdf"},
			OutputExt:            "docx",
			RequiresFile:         true,
			RequiredCapabilities: []string{CapLibreOffice},
			Timeout:              DocumentTimeout,
			Converter:            &PDFToWord{Soffice: cfg.Tools.Soffice, Runner: runner},
		},
		{
			Kind:                 KindPDFCompress,
			Category:             domain.CategoryDocument,
			Class:                domain.WorkloadLight,
			Mode:                 Background,
			InputExts:            []string{"pdf"},
			OutputExt:            "pdf",
			RequiresFile:         true,
			RequiredCapabilities: []string{CapGhostscript},
			Timeout:              DocumentTimeout,
			Converter:            &PDFCompress{Ghostscript: cfg.Tools.Ghostscript, Runner: runner},
		},
		{
			Kind:                 KindPDFProtect,
			Category:             domain.CategoryDocument,
			Class:                domain.WorkloadLight,
			Mode:                 Inline,
			InputExts:            []string{"pdf"},
			OutputExt:            "pdf",
			RequiresFile:         true,
			RequiredCapabilities: []string{CapQPDF},
			Timeout:              DocumentTimeout,
			Converter:            &PDFProtect{QPDF: cfg.Tools.QPDF, Runner: runner},
		},
		{
			Kind:                 KindPDFSplit,
			Category:             domain.CategoryDocument,
			Class:                domain.WorkloadLight,
			Mode:                 Background,
			InputExts:            []string{"pdf"},
			RequiresFile:         true,
			Bundle:               true,
			RequiredCapabilities: []string{CapQPDF},
			Timeout:              DocumentTimeout,
			Converter:            &PDFSplit{QPDF: cfg.Tools.QPDF, Runner: runner},
		},
		{
			Kind:                 KindPDFMerge,
			Category:             domain.CategoryDocument,
			Class:                domain.WorkloadLight,
			Mode:                 Background,
			InputExts:            []string{"pdf"},
			OutputExt:            "pdf",
			RequiresFile:         true,
			MultiInput:           true,
			RequiredCapabilities: []string{CapQPDF},
			Timeout:              DocumentTimeout,
			Converter:            &PDFMerge{QPDF: cfg.Tools.QPDF, Runner: runner},
		},
		{
			Kind:                 KindPDFToImages,
			Category:             domain.CategoryDocument,
			Class:                domain.WorkloadLight,
			Mode:                 Background,
			InputExts:            []string{"pdf"},
			RequiresFile:         true,
			Bundle:               true,
			RequiredCapabilities: []string{CapPoppler},
			Timeout:              DocumentTimeout,
			Converter:            &PDFToImages{Pdftoppm: cfg.Tools.Pdftoppm, Runner: runner},
		},
		{
			Kind:                 KindOCR,
			Category:             domain.CategoryDocument,
			Class:                domain.WorkloadLight,
			Mode:                 Background,
			InputExts:            []string{"pdf", "png", "jpg", "jpeg", "tiff", "tif", "bmp"},
			TargetExts:           []string{"txt", "pdf"},
			OutputExt:            "txt",
			RequiresFile:         true,
			RequiredCapabilities: []string{CapTesseract},
			Timeout:              DocumentTimeout,
			Converter:            &OCR{Tesseract: cfg.Tools.Tesseract, Runner: runner},
		},
		{
			Kind:                 KindQRGenerate,
			Category:             domain.CategoryImage,
			Class:                domain.WorkloadLight,
			Mode:                 Inline,
			OutputExt:            "png",
			RequiredCapabilities: []string{CapQrencode},
			Timeout:              ImageTimeout,
			Converter:            &QRGenerate{Qrencode: cfg.Tools.Qrencode, Runner: runner},
		},
		{
			Kind:                 KindTextToSpeech,
			Category:             domain.CategoryAudio,
			Class:                domain.WorkloadLight,
			Mode:                 Background,
			OutputExt:            "mp3",
			RequiredCapabilities: []string{CapTTSAPI},
			Timeout:              MediaTimeout,
			Converter:            &TextToSpeech{BaseURL: cfg.TTSBaseURL, APIKey: cfg.TTSAPIKey},
		},
		{
			Kind:                 KindAIImage,
			Category:             domain.CategoryImage,
			Class:                domain.WorkloadLight,
			Mode:                 Background,
			OutputExt:            "png",
			RequiredCapabilities: []string{CapImageAPI},
			Timeout:              DocumentTimeout,
			Converter:            &AIImageGenerate{BaseURL: cfg.ImageBaseURL, APIKey: cfg.ImageAPIKey},
		},
	}

	table := make(map[domain.Kind]Spec, len(specs))
	for _, s := range specs {
		table[s.Kind] = s
	}
	return table
}
