package server

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"smartats/internal/errors"
	"smartats/internal/extract"
	"smartats/internal/observability"
	"smartats/internal/store"
	"smartats/internal/types"
)

// multipartMemoryLimit is how much of a parsed multipart body is held in
// memory before spilling to disk. The total body size is already bounded
// by the request size limit middleware.
const multipartMemoryLimit = 8 << 20

// createAnalyzeHandler wraps the analyze handler with observability.
// It accepts a multipart form with a job_description text field and a
// resume PDF file, runs the analysis pipeline and returns the result.
// A fallback outcome is still a 200: callers always get a complete
// analysis object.
func (s *Server) createAnalyzeHandler(om *observability.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("smartats.api")
		ctx, span := tracer.Start(ctx, "api.analyze")
		defer span.End()

		metrics := om.GetMetrics()
		fail := func(title, detail, code string, status int) {
			span.SetAttributes(attribute.String("error.type", "validation"))
			if metrics != nil {
				metrics.RecordAnalysisError(ctx, code)
			}
			writeErrorResponse(w, title, detail, status)
		}

		if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
			span.RecordError(err)
			var maxBytesErr *http.MaxBytesError
			if stderrors.As(err, &maxBytesErr) {
				fail("Request too large", "Request body exceeds the configured size limit", errors.ErrCodeInvalidInput, http.StatusRequestEntityTooLarge)
				return
			}
			fail("Invalid request body", "Expected a multipart form with job_description and resume fields", errors.ErrCodeInvalidInput, http.StatusBadRequest)
			return
		}

		jobDescription := r.FormValue("job_description")
		if strings.TrimSpace(jobDescription) == "" {
			fail("Missing job description", "job_description field is required", errors.ErrCodeInvalidInput, http.StatusBadRequest)
			return
		}

		file, header, err := r.FormFile("resume")
		if err != nil {
			span.RecordError(err)
			fail("Missing resume", "resume file field is required", errors.ErrCodeInvalidInput, http.StatusBadRequest)
			return
		}
		defer func() { _ = file.Close() }()

		if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
			fail("Unsupported resume format", "Only PDF resumes are accepted", errors.ErrCodeInvalidFormat, http.StatusBadRequest)
			return
		}

		data, err := io.ReadAll(file)
		if err != nil {
			span.RecordError(err)
			var maxBytesErr *http.MaxBytesError
			if stderrors.As(err, &maxBytesErr) {
				fail("Request too large", "Request body exceeds the configured size limit", errors.ErrCodeInvalidInput, http.StatusRequestEntityTooLarge)
				return
			}
			fail("Unreadable resume", "Failed to read the uploaded resume", errors.ErrCodeInvalidInput, http.StatusBadRequest)
			return
		}

		resumeText, err := extract.ExtractText(data)
		if err != nil {
			span.RecordError(err)
			fail("Unreadable resume", "Could not extract text from the uploaded PDF", errors.ErrCodeExtractionFailed, http.StatusBadRequest)
			return
		}

		span.SetAttributes(
			attribute.Int("request.resume_length", len(resumeText)),
			attribute.Int("request.job_length", len(jobDescription)),
			attribute.String("resume.filename", header.Filename),
		)

		input := types.AnalysisInput{
			ResumeText:     resumeText,
			JobDescription: jobDescription,
		}

		outcome, err := s.AIService.Analyze(ctx, input)
		if err != nil {
			// Only invalid input surfaces from the pipeline; upstream
			// failures resolve to a fallback outcome instead.
			span.RecordError(err)
			if metrics != nil {
				metrics.RecordAnalysisError(ctx, errors.ErrCodeInvalidInput)
			}
			writeErrorResponse(w, "Invalid analysis input", err.Error(), http.StatusBadRequest)
			return
		}

		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.Bool("fallback", outcome.Fallback()),
			attribute.Int("attempts", outcome.Attempts),
		)

		s.persistReview(ctx, input, outcome)

		writeJSONResponse(w, outcome.Result, http.StatusOK)
	}
}

// persistReview records the outcome on the review store when enabled.
// Persistence failures are logged but never fail the request.
func (s *Server) persistReview(ctx context.Context, input types.AnalysisInput, outcome types.Outcome) {
	if !s.Store.Enabled() {
		return
	}

	review := store.NewReview(input, outcome)
	if err := s.Store.CreateReview(ctx, review); err != nil {
		s.Logger.LogError(err, "Failed to persist analysis review")
		return
	}

	s.Logger.Debug("Analysis review persisted",
		"review_id", review.ID.String(),
		"fallback", review.Fallback)
}
