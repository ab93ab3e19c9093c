package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ragqa/server/internal/agent/model"
	errx "github.com/ragqa/server/internal/core/error"
	"github.com/ragqa/server/internal/documents"
	logx "github.com/ragqa/server/pkg/logger"
)

// HeaderUserID carries the caller identity rendered into the prompt.
const HeaderUserID = "X-User-ID"

const (
	defaultListLimit = 10
	welcomeTimeFmt   = "2006-01-02 15:04:05"
)

// AskRequest is the request body for POST /api/v1/ask.
type AskRequest struct {
	Query string `json:"query"`
}

// UploadResponse is the response body for POST /api/v1/documents/upload.
type UploadResponse struct {
	Message    string `json:"message"`
	DocumentID string `json:"document_id"`
}

// DeleteResponse is the response body for DELETE /api/v1/documents/:id.
type DeleteResponse struct {
	Message    string `json:"message"`
	DocumentID string `json:"document_id"`
}

// TextResponse is the response body for GET /api/v1/documents/:id/text.
type TextResponse struct {
	DocumentID string `json:"document_id"`
	Text       string `json:"text"`
}

// HealthResponse is the response body for GET /api/v1/health.
type HealthResponse struct {
	Status           string `json:"status"`
	IndexedDocuments int    `json:"indexed_documents"`
}

// WelcomeResponse is the response body for GET /welcome.
type WelcomeResponse struct {
	Message   string            `json:"message"`
	Version   string            `json:"version"`
	Timestamp string            `json:"timestamp"`
	Endpoints map[string]string `json:"endpoints"`
	Status    string            `json:"status"`
}

var endpoints = map[string]string{
	"docs":      "/docs",
	"health":    "/api/v1/health",
	"upload":    "/api/v1/documents/upload",
	"documents": "/api/v1/documents",
	"ask":       "/api/v1/ask",
	"metrics":   "/metrics",
}

// now is replaced in tests.
var now = func() time.Time { return time.Now().UTC() }

func (s *Server) handleRoot(c echo.Context) error {
	return c.Redirect(http.StatusTemporaryRedirect, "/docs")
}

func (s *Server) handleDocs(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"title":     "Conversational AI API",
		"version":   APIVersion,
		"endpoints": endpoints,
	})
}

func (s *Server) handleWelcome(c echo.Context) error {
	return c.JSON(http.StatusOK, WelcomeResponse{
		Message:   "Welcome to the Conversational AI API",
		Version:   APIVersion,
		Timestamp: now().Format(welcomeTimeFmt),
		Endpoints: endpoints,
		Status:    "operational",
	})
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", IndexedDocuments: s.pipeline.Documents()})
}

// handleAsk answers a question against the indexed documents.
func (s *Server) handleAsk(c echo.Context) error {
	var req AskRequest
	if err := c.Bind(&req); err != nil {
		logx.Warn().Err(err).Msg("Invalid ask request")
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Query) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query field is required")
	}

	ans, err := s.pipeline.Execute(c.Request().Context(), model.QueryInput{
		Query: req.Query,
		User:  strings.TrimSpace(c.Request().Header.Get(HeaderUserID)),
	})
	if err != nil {
		return errx.Wrap(err, "Failed to process query")
	}
	return c.JSON(http.StatusOK, ans)
}

// handleUpload stores a PDF, extracts its text and indexes it for retrieval.
func (s *Server) handleUpload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file field is required")
	}
	if !strings.EqualFold(filepath.Ext(fh.Filename), ".pdf") {
		return echo.NewHTTPError(http.StatusBadRequest, "Only PDF files are supported")
	}

	meta := map[string]any{}
	if raw := strings.TrimSpace(c.FormValue("metadata")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &meta); err != nil || meta == nil {
			return echo.NewHTTPError(http.StatusBadRequest, "metadata must be a JSON object")
		}
	}
	if title := strings.TrimSpace(c.FormValue("title")); title != "" {
		meta["title"] = title
	}

	f, err := fh.Open()
	if err != nil {
		return errx.Internal(err, "open uploaded file")
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return errx.Internal(err, "read uploaded file")
	}

	ctx := c.Request().Context()
	rec, err := s.repo.Process(ctx, documents.Upload{Filename: fh.Filename, Content: content, Metadata: meta})
	if err != nil {
		return errx.Wrap(err, "Failed to process document")
	}

	text, err := s.repo.Text(ctx, rec.DocumentID)
	if err == nil {
		_, err = s.pipeline.AddDocument(ctx, model.Document{
			ID:         rec.DocumentID,
			Content:    text,
			SourceName: fh.Filename,
		})
	}
	if err != nil {
		if _, derr := s.repo.Delete(ctx, rec.DocumentID); derr != nil {
			logx.Error().Err(derr).Str("document_id", rec.DocumentID).Msg("Failed to roll back stored document")
		}
		return errx.Wrap(err, "Failed to process document")
	}

	// A concurrent delete may have run between Process and AddDocument.
	if _, err := s.repo.Get(ctx, rec.DocumentID); err != nil {
		s.pipeline.RemoveDocument(rec.DocumentID)
		if errors.Is(err, errx.ErrNotFound) {
			return errx.NotFound(nil, fmt.Sprintf("document %s was deleted during upload", rec.DocumentID))
		}
		return errx.Wrap(err, "Failed to process document")
	}

	logx.Info().Str("document_id", rec.DocumentID).Str("source", fh.Filename).Int("bytes", len(content)).Msg("Document uploaded")
	return c.JSON(http.StatusOK, UploadResponse{Message: "Document processed successfully", DocumentID: rec.DocumentID})
}

func (s *Server) handleListDocuments(c echo.Context) error {
	skip, err := intParam(c, "skip", 0)
	if err != nil {
		return err
	}
	limit, err := intParam(c, "limit", defaultListLimit)
	if err != nil {
		return err
	}

	page, err := s.repo.List(c.Request().Context(), skip, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

func (s *Server) handleGetDocument(c echo.Context) error {
	rec, err := s.repo.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

func (s *Server) handleDocumentText(c echo.Context) error {
	id := c.Param("id")
	text, err := s.repo.Text(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, TextResponse{DocumentID: id, Text: text})
}

// handleDeleteDocument removes a document from storage and from retrieval.
func (s *Server) handleDeleteDocument(c echo.Context) error {
	id := c.Param("id")
	existed, err := s.repo.Delete(c.Request().Context(), id)
	// Files are gone once the repository reports the id existed, even if the
	// index write failed, so retrieval must forget it either way.
	if existed && !s.pipeline.RemoveDocument(id) {
		logx.Warn().Str("document_id", id).Msg("Deleted document was not indexed")
	}
	if err != nil {
		return err
	}
	if !existed {
		return errx.NotFound(nil, fmt.Sprintf("document %s not found", id))
	}
	return c.JSON(http.StatusOK, DeleteResponse{Message: "Document deleted successfully", DocumentID: id})
}

func intParam(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("%s must be an integer", name))
	}
	return v, nil
}
