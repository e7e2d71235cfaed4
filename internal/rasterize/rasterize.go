package rasterize

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"path"
	"strings"

	"github.com/gen2brain/go-fitz"

	"resume-feedback/internal/pipeline"
)

// DefaultDPI renders at four times the 72 DPI PDF base resolution.
const DefaultDPI = 288

type renderFunc func(pdf []byte, dpi float64) (image.Image, error)

// Converter renders the first page of a PDF to PNG.
type Converter struct {
	DPI    float64
	render renderFunc
}

// New returns a Converter backed by MuPDF.
func New(dpi float64) *Converter {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &Converter{DPI: dpi, render: renderFirstPage}
}

// Convert implements pipeline.Rasterizer. It never returns an error; failures
// are reported through Conversion.Err.
func (c *Converter) Convert(ctx context.Context, pdf pipeline.File) (conv pipeline.Conversion) {
	defer func() {
		if r := recover(); r != nil {
			conv = pipeline.Conversion{Err: fmt.Sprintf("renderer panic: %v", r)}
		}
	}()
	if err := ctx.Err(); err != nil {
		return pipeline.Conversion{Err: err.Error()}
	}
	if len(pdf.Data) == 0 {
		return pipeline.Conversion{Err: "pdf is empty"}
	}

	img, err := c.render(pdf.Data, c.DPI)
	if err != nil {
		return pipeline.Conversion{Err: fmt.Sprintf("render first page: %v", err)}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return pipeline.Conversion{Err: fmt.Sprintf("encode png: %v", err)}
	}
	return pipeline.Conversion{Image: &pipeline.File{
		Name:        ImageName(pdf.Name),
		ContentType: "image/png",
		Data:        buf.Bytes(),
	}}
}

// ImageName derives the image file name from the PDF name.
func ImageName(pdfName string) string {
	base := strings.TrimSpace(pdfName)
	if base == "" {
		return "resume.png"
	}
	if ext := path.Ext(base); strings.EqualFold(ext, ".pdf") {
		base = strings.TrimSuffix(base, ext)
	}
	return base + ".png"
}

func renderFirstPage(pdf []byte, dpi float64) (image.Image, error) {
	doc, err := fitz.NewFromMemory(pdf)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return nil, errors.New("document has no pages")
	}
	return doc.ImageDPI(0, dpi)
}

var _ pipeline.Rasterizer = (*Converter)(nil)
