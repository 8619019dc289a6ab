package cli

import (
	"fmt"

	"smartats/internal/ai"
	"smartats/internal/common"
	"smartats/internal/types"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [resume-file] [job-description-file]",
	Short: "Analyze a resume against a job description",
	Long: `Analyze a resume against a job description and report how well they
match. PDF resumes go through text extraction, plain text files are read
as-is.

The analysis includes:
- Match percentage against the job description
- Keywords present in the job description but missing from the resume
- A short profile summary of the candidate

When the model is unavailable after all retry attempts, a clearly marked
placeholder result is returned instead of an error.`,
	Args: cobra.ExactArgs(2),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		// Apply default format if not specified
		if analyzeConfig.OutputFormat == "" {
			analyzeConfig.OutputFormat = cfg.App.DefaultFormat
		}
		// Validate format against supported formats
		return common.ValidateOutputFormat(analyzeConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runAnalyze,
}

var analyzeConfig common.CommandConfig

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	analyzeCmd.Flags().StringVar(&analyzeConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")

	// Add completion for format flag
	_ = analyzeCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return common.GetSupportedFormats(cfg.App.SupportedFormats), cobra.ShellCompDirectiveNoFileComp
	})
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	aiService, err := ai.NewService(&cfg.AI, logger)
	if err != nil {
		return fmt.Errorf("failed to create AI service: %w", err)
	}
	defer func() {
		if err := aiService.Close(); err != nil {
			logger.Warn("Failed to close AI service", "error", err)
		}
	}()

	fileProcessor := common.NewFileProcessor(logger)

	resumeText, err := fileProcessor.ReadResume(args[0])
	if err != nil {
		return err
	}
	jobDescription, err := fileProcessor.ReadJobDescription(args[1])
	if err != nil {
		return err
	}

	input := types.AnalysisInput{
		ResumeText:     resumeText,
		JobDescription: jobDescription,
	}

	logger.Info("Starting resume analysis",
		"resume_chars", len(input.ResumeText),
		"job_chars", len(input.JobDescription),
		"output_format", analyzeConfig.OutputFormat)

	outcome, err := aiService.Analyze(cmd.Context(), input)
	if err != nil {
		return fmt.Errorf("failed to analyze resume: %w", err)
	}

	if outcome.Fallback() {
		logger.Warn("Analysis fell back to the placeholder result",
			"attempts", outcome.Attempts)
	} else {
		logger.Info("Resume analysis completed successfully",
			"attempts", outcome.Attempts,
			"jd_match", outcome.Result.JDMatch)
	}

	outputHandler := common.NewOutputHandler(logger)
	return outputHandler.HandleOutput(outcome, analyzeConfig)
}
