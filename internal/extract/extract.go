package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

// MaxChars bounds the text handed to the model.
const MaxChars = 60000

// Opener reads stored objects by handle.
type Opener interface {
	Open(ctx context.Context, handle string) (io.ReadCloser, error)
}

// TextFromStore loads the PDF at handle and returns its normalized plain text.
func TextFromStore(ctx context.Context, store Opener, handle string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	body, err := store.Open(ctx, handle)
	if err != nil {
		return "", fmt.Errorf("extract text key=%s: %w", handle, err)
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("extract text key=%s: read: %w", handle, err)
	}

	text, err := PDFText(raw)
	if err != nil {
		return "", fmt.Errorf("extract text key=%s: %w", handle, err)
	}
	return text, nil
}

// PDFText extracts plain text from an in-memory PDF.
func PDFText(data []byte) (text string, err error) {
	if len(data) == 0 {
		return "", errors.New("empty pdf data")
	}
	// The pdf reader panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("parse pdf: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}

	text = Normalize(buf.String())
	if text == "" {
		return "", errors.New("pdf contains no extractable text")
	}
	return text, nil
}

// Normalize collapses runs of spaces, keeps single blank lines and truncates
// to MaxChars runes.
func Normalize(raw string) string {
	var out strings.Builder
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	blank := false
	for _, line := range lines {
		line = strings.Join(strings.FieldsFunc(line, unicode.IsSpace), " ")
		if line == "" {
			if out.Len() > 0 {
				blank = true
			}
			continue
		}
		if out.Len() > 0 {
			out.WriteString("\n")
			if blank {
				out.WriteString("\n")
			}
		}
		blank = false
		out.WriteString(line)
	}

	text := out.String()
	if runes := []rune(text); len(runes) > MaxChars {
		text = string(runes[:MaxChars])
	}
	return text
}
