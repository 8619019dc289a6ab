package extract

import (
	"testing"

	"smartats/internal/errors"
)

func TestExtractTextRejectsNonPDFBytes(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty input", []byte{}},
		{"plain text", []byte("this is not a pdf document")},
		{"truncated header", []byte("%PDF-1.4")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExtractText(tt.data)
			if err == nil {
				t.Fatal("ExtractText() expected error, got nil")
			}
			if !errors.HasCode(err, errors.ErrCodeExtractionFailed) {
				t.Errorf("error code = %v, want %s", err, errors.ErrCodeExtractionFailed)
			}
		})
	}
}

func TestExtractTextFromFileMissingFile(t *testing.T) {
	_, err := ExtractTextFromFile("/nonexistent/resume.pdf")
	if err == nil {
		t.Fatal("ExtractTextFromFile() expected error, got nil")
	}
	if !errors.HasCode(err, errors.ErrCodeExtractionFailed) {
		t.Errorf("error code = %v, want %s", err, errors.ErrCodeExtractionFailed)
	}
}
