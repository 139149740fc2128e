package handlers

import (
	"errors"
	"net/http"

	"sheet-agent/dataset"
	apperrors "sheet-agent/errors"
	"sheet-agent/web/middleware"
	"sheet-agent/web/services"
	"sheet-agent/web/templates/pages"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AnalysisHandler struct {
	agent       services.Answerer
	uploads     *services.UploadService
	store       *services.SessionStore
	previewRows int
	logger      *zap.Logger
}

func NewAnalysisHandler(agent services.Answerer, uploads *services.UploadService, store *services.SessionStore, previewRows int, logger *zap.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		agent:       agent,
		uploads:     uploads,
		store:       store,
		previewRows: previewRows,
		logger:      logger,
	}
}

// render writes the analysis page for the request's session.
func (h *AnalysisHandler) render(c *gin.Context, status int, errMessage string) {
	sess, ok := middleware.CurrentSession(c)
	if !ok {
		c.String(http.StatusInternalServerError, "session not initialized")
		return
	}
	view := sess.View()
	kind := dataset.KindCSV
	if view.Dataset != nil {
		kind = view.Dataset.Kind
	}

	c.Status(status)
	c.Header("Content-Type", "text/html; charset=utf-8")
	page := pages.AnalysisPage(pages.PageData{
		View:        view,
		PreviewRows: h.previewRows,
		Kind:        kind,
		Error:       errMessage,
	})
	if err := page.Render(c.Request.Context(), c.Writer); err != nil {
		h.logger.Error("Failed to render page", zap.Error(err), zap.String("session_id", sess.ID))
	}
}

func (h *AnalysisHandler) Index(c *gin.Context) {
	h.render(c, http.StatusOK, "")
}

// Upload replaces the session's dataset with the posted file.
func (h *AnalysisHandler) Upload(c *gin.Context) {
	sess, _ := middleware.CurrentSession(c)

	file, err := c.FormFile("file")
	if err != nil {
		sess.Reset()
		h.respondWithClientError(c, http.StatusBadRequest, "Choose a file to upload.")
		return
	}

	if err := h.uploads.ProcessUpload(sess, file, c.PostForm("file_type")); err != nil {
		if apperrors.IsInvalidInput(err) {
			h.respondWithClientError(c, http.StatusBadRequest, "Could not load the file: "+err.Error())
			return
		}
		h.respondWithError(c, http.StatusInternalServerError, err, "Could not save the uploaded file.",
			zap.String("session_id", sess.ID))
		return
	}
	h.render(c, http.StatusOK, "")
}

// SelectSheet loads the chosen sheet of a pending workbook.
func (h *AnalysisHandler) SelectSheet(c *gin.Context) {
	sess, _ := middleware.CurrentSession(c)
	sheet := c.PostForm("sheet")

	if err := sess.SelectSheet(sheet); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, services.ErrNoSheetPending) {
			status = http.StatusConflict
		}
		h.respondWithClientError(c, status, err.Error())
		return
	}
	h.logger.Info("Sheet selected", zap.String("session_id", sess.ID), zap.String("sheet", sheet))
	h.render(c, http.StatusOK, "")
}

// Ask stores the question and runs the agent on it. The request blocks
// until the agent finishes.
func (h *AnalysisHandler) Ask(c *gin.Context) {
	sess, _ := middleware.CurrentSession(c)
	sess.SetQuestion(c.PostForm("question"))

	out, err := sess.Submit(c.Request.Context(), h.agent)
	switch {
	case errors.Is(err, services.ErrSubmitNotReady):
		h.respondWithClientError(c, http.StatusBadRequest, err.Error())
		return
	case err != nil && out != nil && out.Raw != "":
		// The agent answered; the error panel on the page shows why it
		// could not be displayed.
		h.logger.Warn("Model response could not be rendered",
			zap.Error(err),
			zap.String("session_id", sess.ID))
		h.render(c, http.StatusOK, userMessage(err))
		return
	case err != nil:
		h.respondWithError(c, http.StatusBadGateway, err, userMessage(err),
			zap.String("session_id", sess.ID))
		return
	}

	h.logger.Info("Question answered",
		zap.String("session_id", sess.ID),
		zap.Int("outputs", out.Result.Outputs()))
	h.render(c, http.StatusOK, "")
}

// Reset clears the session back to no file.
func (h *AnalysisHandler) Reset(c *gin.Context) {
	sess, _ := middleware.CurrentSession(c)
	sess.Reset()
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *AnalysisHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": h.store.Len()})
}
