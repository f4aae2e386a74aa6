package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rafey804/flipfilex-sub000/internal/infra"
)

// writeSofficeStub fakes an soffice binary: it records its arguments and
// writes the stem-named artifact a real --convert-to run would produce.
func writeSofficeStub(t *testing.T, argsFile, producedFile string) string {
	t.Helper()
	body := fmt.Sprintf("printf '%%s\\n' \"$@\" > %q\necho converted > %q\n", argsFile, producedFile)
	return writeScript(t, body)
}

func TestSofficeConvertIsolatesUserProfile(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "report.docx")
	if err := os.WriteFile(input, []byte("doc"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	runner := NewRunner(infra.NewLogger("test"))
	profiles := make([]string, 0, 2)

	// Two invocations must not share a UserInstallation: headless instances
	// against the same profile lock each other out.
	for i := 0; i < 2; i++ {
		outPath := filepath.Join(dir, fmt.Sprintf("out-%d.pdf", i))
		argsFile := filepath.Join(dir, fmt.Sprintf("args-%d.txt", i))
		stub := writeSofficeStub(t, argsFile, filepath.Join(dir, "report.pdf"))

		req := Request{InputPaths: []string{input}, OutputPath: outPath}
		if _, err := sofficeConvert(context.Background(), runner, stub, req, "pdf", nil); err != nil {
			t.Fatalf("sofficeConvert: %v", err)
		}

		raw, err := os.ReadFile(argsFile)
		if err != nil {
			t.Fatalf("read args: %v", err)
		}
		var profile string
		for _, arg := range strings.Split(strings.TrimSpace(string(raw)), "\n") {
			if strings.HasPrefix(arg, "-env:UserInstallation=file://") {
				profile = arg
			}
		}
		if profile == "" {
			t.Fatalf("no UserInstallation argument passed, args:\n%s", raw)
		}
		profiles = append(profiles, profile)
	}

	if profiles[0] == profiles[1] {
		t.Fatalf("both invocations shared profile %q", profiles[0])
	}
}

func TestSofficeConvertRenamesStemOutput(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "letter.odt")
	if err := os.WriteFile(input, []byte("doc"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	outPath := filepath.Join(dir, "feedcafe.pdf")
	argsFile := filepath.Join(dir, "args.txt")
	stub := writeSofficeStub(t, argsFile, filepath.Join(dir, "letter.pdf"))

	runner := NewRunner(infra.NewLogger("test"))
	req := Request{InputPaths: []string{input}, OutputPath: outPath}
	if _, err := sofficeConvert(context.Background(), runner, stub, req, "pdf", nil); err != nil {
		t.Fatalf("sofficeConvert: %v", err)
	}

	if _, err := os.Stat(outPath); err != nil {
		t.Fatalf("artifact not renamed onto the output path: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "letter.pdf")); !os.IsNotExist(err) {
		t.Fatal("stem-named intermediate left behind")
	}
}
