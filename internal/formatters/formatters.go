package formatters

import (
	"encoding/json"
	"fmt"
	"strings"

	"smartats/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("text", "Outcome", &AnalysisTextFormatter{})
	registry.RegisterFormatter("markdown", "Outcome", &AnalysisMarkdownFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	// Try specific formatter first
	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		// Fall back to generic formatter
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case types.Outcome:
		return "Outcome"
	default:
		return "any"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	// JSON output carries only the analysis result, matching the API payload
	if outcome, ok := data.(types.Outcome); ok {
		data = outcome.Result
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// AnalysisTextFormatter handles text formatting for analysis outcomes
type AnalysisTextFormatter struct{}

func (atf *AnalysisTextFormatter) Format(data any) (string, error) {
	outcome, ok := data.(types.Outcome)
	if !ok {
		return "", fmt.Errorf("expected Outcome, got %T", data)
	}

	var output strings.Builder

	output.WriteString("=== ATS ANALYSIS ===\n\n")
	output.WriteString(fmt.Sprintf("JD Match: %s\n\n", outcome.Result.JDMatch))

	if len(outcome.Result.MissingKeywords) > 0 {
		output.WriteString("Missing Keywords:\n")
		for _, keyword := range outcome.Result.MissingKeywords {
			output.WriteString(fmt.Sprintf("- %s\n", keyword))
		}
		output.WriteString("\n")
	} else {
		output.WriteString("Missing Keywords: none\n\n")
	}

	output.WriteString("Profile Summary:\n")
	output.WriteString(outcome.Result.ProfileSummary)
	output.WriteString("\n")

	if outcome.Fallback() {
		output.WriteString(fmt.Sprintf("\nNOTE: analysis service was unavailable after %d attempts, this is a placeholder result.\n", outcome.Attempts))
	}

	return output.String(), nil
}

func (atf *AnalysisTextFormatter) SupportedType() string {
	return "Outcome"
}

// AnalysisMarkdownFormatter handles markdown formatting for analysis outcomes
type AnalysisMarkdownFormatter struct{}

func (amf *AnalysisMarkdownFormatter) Format(data any) (string, error) {
	outcome, ok := data.(types.Outcome)
	if !ok {
		return "", fmt.Errorf("expected Outcome, got %T", data)
	}

	var output strings.Builder

	output.WriteString("# ATS Analysis\n\n")
	output.WriteString(fmt.Sprintf("**JD Match:** %s\n\n", outcome.Result.JDMatch))

	output.WriteString("## Missing Keywords\n\n")
	if len(outcome.Result.MissingKeywords) > 0 {
		for _, keyword := range outcome.Result.MissingKeywords {
			output.WriteString(fmt.Sprintf("- %s\n", keyword))
		}
		output.WriteString("\n")
	} else {
		output.WriteString("None identified.\n\n")
	}

	output.WriteString("## Profile Summary\n\n")
	output.WriteString(outcome.Result.ProfileSummary)
	output.WriteString("\n")

	if outcome.Fallback() {
		output.WriteString(fmt.Sprintf("\n> **Note:** the analysis service was unavailable after %d attempts. This is a placeholder result.\n", outcome.Attempts))
	}

	return output.String(), nil
}

func (amf *AnalysisMarkdownFormatter) SupportedType() string {
	return "Outcome"
}

// Global formatter registry
var GlobalRegistry = NewFormatterRegistry()
