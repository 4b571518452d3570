package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/duynguyendang/kpextract/pkg/common/errors"
	"github.com/duynguyendang/kpextract/pkg/extract"
	"github.com/gin-gonic/gin"
)

// extractRequest is the body of POST /extract. A missing or null file_path
// is an empty batch.
type extractRequest struct {
	FilePath []string `json:"file_path"`
}

// handleExtract normalizes the requested paths, runs one batch extraction and
// returns the extractor's result verbatim.
func (s *Server) handleExtract(c *gin.Context) {
	var req extractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, errors.NewAppError(http.StatusBadRequest, errors.KindInvalidRequest, "Invalid request body", err))
		return
	}

	paths := extract.NormalizePaths(req.FilePath)
	logger := requestLogger(c)
	logger.Debug().Strs("paths", paths).Msg("normalized paths")

	ctx := c.Request.Context()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	result, err := s.extractor.ProcessDocuments(ctx, paths)
	if err != nil {
		handleError(c, err)
		return
	}

	// Marshal before writing so a bad result never produces a partial body.
	body, err := json.Marshal(result)
	if err != nil {
		handleError(c, fmt.Errorf("%w: %v", errors.ErrSerialization, err))
		return
	}
	logger.Debug().RawJSON("result", body).Msg("extraction result")

	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

// handleError writes the structured error body for err.
func handleError(c *gin.Context, err error) {
	appErr := errors.MapError(err)

	event := requestLogger(c).Warn()
	if appErr.Code >= http.StatusInternalServerError {
		event = requestLogger(c).Error()
	}
	event.Err(err).Int("status", appErr.Code).Str("kind", appErr.Kind).Msg("request failed")

	c.AbortWithStatusJSON(appErr.Code, gin.H{
		"error": gin.H{
			"kind":    appErr.Kind,
			"message": appErr.Error(),
		},
	})
}
