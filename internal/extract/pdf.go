package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"smartats/internal/errors"
)

// ExtractText extracts plain text from in-memory PDF bytes, page by page.
// Pages that fail to decode are skipped; the extraction fails only when the
// document as a whole yields no readable text.
func ExtractText(data []byte) (text string, err error) {
	// The PDF parser panics on some malformed documents
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = errors.NewIOError(errors.ErrCodeExtractionFailed,
				"Failed to parse PDF document", fmt.Errorf("parser panic: %v", r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", errors.NewIOError(errors.ErrCodeExtractionFailed,
			"Failed to open PDF document", err)
	}

	var textBuilder strings.Builder
	totalPage := reader.NumPage()

	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}

		textBuilder.WriteString(text)
		textBuilder.WriteString("\n\n")
	}

	text = textBuilder.String()
	if strings.TrimSpace(text) == "" {
		return "", errors.NewIOError(errors.ErrCodeExtractionFailed,
			"No readable text found in PDF", nil)
	}

	return text, nil
}

// ExtractTextFromFile extracts plain text from a PDF file on disk
func ExtractTextFromFile(filePath string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = errors.NewIOError(errors.ErrCodeExtractionFailed,
				"Failed to parse PDF document", fmt.Errorf("parser panic: %v", r)).
				WithContext("file", filePath)
		}
	}()

	f, reader, err := pdf.Open(filePath)
	if err != nil {
		return "", errors.NewIOError(errors.ErrCodeExtractionFailed,
			"Failed to open PDF file", err).WithContext("file", filePath)
	}
	defer f.Close()

	var textBuilder strings.Builder
	totalPage := reader.NumPage()

	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}

		textBuilder.WriteString(text)
		textBuilder.WriteString("\n\n")
	}

	text = textBuilder.String()
	if strings.TrimSpace(text) == "" {
		return "", errors.NewIOError(errors.ErrCodeExtractionFailed,
			"No readable text found in PDF", nil).WithContext("file", filePath)
	}

	return text, nil
}
