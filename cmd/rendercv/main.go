package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"cv-builder/internal/domain"
	"cv-builder/internal/preview"
	infra "cv-builder/pkg/infrastructure"
)

// rendercv renders a saved document JSON to HTML or PDF without the
// server, useful for template work and render debugging.
func main() {
	in := flag.String("in", "cv.json", "path to document JSON")
	out := flag.String("out", "cv.pdf", "output path (.html or .pdf)")
	tmplName := flag.String("template", preview.TemplateDefault, "template variant")
	font := flag.String("font", "Poppins", "font family")
	fontSize := flag.String("font-size", "16px", "base font size")
	color := flag.String("color", "#000000", "text and heading color")
	timeout := flag.Duration("timeout", 30*time.Second, "pdf export timeout")
	flag.Parse()

	raw, err := os.ReadFile(*in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read document: %v\n", err)
		os.Exit(2)
	}
	doc, err := domain.DecodeDocument(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "decode document: %v\n", err)
		os.Exit(2)
	}

	renderer := preview.NewRenderer()
	rendered, err := renderer.Render(preview.Input{
		Doc:         doc,
		Order:       domain.DefaultSectionOrder(),
		Sections:    domain.DefaultDescriptors(),
		Template:    *tmplName,
		Font:        *font,
		FontSizePx:  *fontSize,
		TextColor:   *color,
		HeaderColor: *color,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "render: %v\n", err)
		os.Exit(2)
	}

	var data []byte
	if wantsPDF(*out) {
		exporter := infra.NewChromedpRenderer(*timeout)
		data, err = exporter.RenderHTMLToPDF(context.Background(), rendered.HTML)
		if err != nil {
			fmt.Fprintf(os.Stderr, "export pdf: %v\n", err)
			os.Exit(2)
		}
	} else {
		data = []byte(rendered.HTML)
	}

	if err := os.WriteFile(*out, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write output: %v\n", err)
		os.Exit(2)
	}
	fmt.Printf("wrote %s (%d pages)\n", *out, rendered.Pages)
}

func wantsPDF(path string) bool {
	return len(path) > 4 && path[len(path)-4:] == ".pdf"
}
