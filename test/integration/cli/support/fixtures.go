package support

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/cucumber/godog"
	"github.com/disintegration/imaging"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/MeKo-Tech/qrlens/internal/generate"
	"github.com/MeKo-Tech/qrlens/internal/scan"
)

func (testCtx *TestContext) aQRCodeImageContaining(name, text string) error {
	path := testCtx.Path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	img, err := generate.Render(text, generate.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to render %q: %w", text, err)
	}
	return imaging.Save(img, path)
}

func (testCtx *TestContext) anInvertedQRCodeImageContaining(name, text string) error {
	img, err := generate.Render(text, generate.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to render %q: %w", text, err)
	}
	return imaging.Save(scan.Invert(img), testCtx.Path(name))
}

func (testCtx *TestContext) aBlankImage(name string) error {
	return imaging.Save(imaging.New(200, 200, color.White), testCtx.Path(name))
}

// aPDFWithQRCodes builds a PDF with one page per comma-separated text.
func (testCtx *TestContext) aPDFWithQRCodes(name, texts string) error {
	dir, err := os.MkdirTemp(testCtx.WorkDir, "pdf-src-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.RemoveAll(dir) }()

	var imgs []string
	for i, text := range strings.Split(texts, ",") {
		path := filepath.Join(dir, fmt.Sprintf("page%02d.png", i+1))
		img, err := generate.Render(strings.TrimSpace(text), generate.DefaultOptions())
		if err != nil {
			return err
		}
		if err := imaging.Save(img, path); err != nil {
			return err
		}
		imgs = append(imgs, path)
	}
	return api.ImportImagesFile(imgs, testCtx.Path(name), nil, nil)
}

func (testCtx *TestContext) aFileWith(name string, content *godog.DocString) error {
	path := testCtx.Path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content.Content), 0o600)
}

// RegisterFixtureSteps registers the steps that create input files.
func (testCtx *TestContext) RegisterFixtureSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a QR code image "([^"]*)" containing "([^"]*)"$`, testCtx.aQRCodeImageContaining)
	sc.Step(`^an inverted QR code image "([^"]*)" containing "([^"]*)"$`, testCtx.anInvertedQRCodeImageContaining)
	sc.Step(`^a blank image "([^"]*)"$`, testCtx.aBlankImage)
	sc.Step(`^a PDF "([^"]*)" with QR codes "([^"]*)"$`, testCtx.aPDFWithQRCodes)
	sc.Step(`^a file "([^"]*)" with:$`, testCtx.aFileWith)
	sc.Step(`^the environment variable "([^"]*)" is set to "([^"]*)"$`, testCtx.SetEnv)
}
