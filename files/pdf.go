package files

import (
	"bytes"
	"errors"
	"os"

	pdf "rsc.io/pdf"
)

// defaultMaxChars keeps extracted text small enough to fit a model prompt.
const defaultMaxChars = 12000

// ExtractPDFText pulls the text layer out of a PDF, capped at maxChars.
// Quiz imports feed this straight into the question extractor, so scanned
// PDFs without a text layer fall back to the raw bytes rather than failing.
func ExtractPDFText(filePath string, maxChars int) (string, error) {
	if maxChars <= 0 {
		maxChars = defaultMaxChars
	}

	r, err := pdf.Open(filePath)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	for pageIndex := 1; pageIndex <= r.NumPage(); pageIndex++ {
		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}
		for _, t := range page.Content().Text {
			buf.WriteString(t.S)
		}
		buf.WriteString("\n\n")
		if buf.Len() >= maxChars {
			break
		}
	}

	if buf.Len() == 0 {
		return rawFallback(filePath, maxChars)
	}
	return clamp(buf.String(), maxChars), nil
}

// rawFallback returns a sanitized slice of the file bytes for PDFs with no
// extractable text layer.
func rawFallback(filePath string, maxChars int) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", errors.New("pdf appears empty")
	}
	data = bytes.ReplaceAll(data, []byte{'\x00'}, []byte{' '})
	return clamp(string(data), maxChars), nil
}

func clamp(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
