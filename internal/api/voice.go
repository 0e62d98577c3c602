package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bull/voice-agent/internal/agent"
)

// MaxAudioSize is the largest accepted upload.
const MaxAudioSize = 25 << 20

// VoiceResponse pairs the transcript with the routed tool output.
type VoiceResponse struct {
	Transcript string         `json:"transcript"`
	Response   agent.Response `json:"response"`
}

// Voice accepts a multipart form with an "audio" file, transcribes it and
// routes the transcript like /route.
func (h *handler) Voice(c *gin.Context) {
	if h.transcriber == nil {
		Error(c, http.StatusServiceUnavailable, CodeUnavailable, "transcription is not configured")
		return
	}

	file, err := c.FormFile("audio")
	if err != nil {
		Error(c, http.StatusBadRequest, CodeBadRequest, "missing audio file (form field 'audio')")
		return
	}
	if file.Size > MaxAudioSize {
		Error(c, http.StatusBadRequest, CodeBadRequest, "audio too large (max 25MB)")
		return
	}

	// The extension is kept so the transcriber can infer the format.
	ext := strings.ToLower(filepath.Ext(file.Filename))
	path := filepath.Join(os.TempDir(), "voice-"+uuid.NewString()+ext)
	if err := c.SaveUploadedFile(file, path); err != nil {
		h.logger.Error("Save upload failed", "error", err)
		Error(c, http.StatusInternalServerError, CodeInternalServer, "failed to save upload")
		return
	}
	defer os.Remove(path)

	text, err := h.transcriber.Transcribe(c.Request.Context(), path)
	if err != nil {
		h.logger.Warn("Transcription failed", "error", err)
		Error(c, http.StatusServiceUnavailable, CodeUnavailable, "transcription failed")
		return
	}

	OK(c, VoiceResponse{
		Transcript: text,
		Response:   h.agent.Handle(c.Request.Context(), text),
	})
}
