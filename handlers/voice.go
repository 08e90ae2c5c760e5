package handlers

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"broadway/models"
	ai "broadway/services/intelligence"
	"broadway/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	MaxDurationSeconds = 60
	MaxFileSize        = 5 * 1024 * 1024
	AllowedExtension   = ".wav"
	waveHeaderSize     = 44
)

// waveHeader is the canonical 44-byte PCM WAV header ffmpeg writes.
type waveHeader struct {
	RiffTag       [4]byte
	FileSize      uint32
	WaveTag       [4]byte
	FmtTag        [4]byte
	FmtSize       uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	DataTag       [4]byte
	DataSize      uint32
}

func parseWaveHeader(clip []byte) (*waveHeader, error) {
	if len(clip) < waveHeaderSize {
		return nil, fmt.Errorf("clip is %d bytes, shorter than a WAV header", len(clip))
	}
	h := new(waveHeader)
	if err := binary.Read(bytes.NewReader(clip[:waveHeaderSize]), binary.LittleEndian, h); err != nil {
		return nil, err
	}
	if !bytes.Equal(h.RiffTag[:], []byte("RIFF")) || !bytes.Equal(h.WaveTag[:], []byte("WAVE")) {
		return nil, errors.New("not a RIFF/WAVE file")
	}
	return h, nil
}

// durationSeconds is the playback length implied by the clip size.
func (h *waveHeader) durationSeconds(clipLen int) float64 {
	if h.ByteRate == 0 {
		return 0
	}
	return float64(clipLen-waveHeaderSize) / float64(h.ByteRate)
}

// convertAudio resamples any ffmpeg-readable input to mono 16-bit PCM at the recognizer's rate.
func convertAudio(ctx context.Context, in, out string) error {
	bin, err := exec.LookPath("ffmpeg")
	if err != nil {
		return fmt.Errorf("ffmpeg unavailable: %w", err)
	}
	args := []string{
		"-y", "-i", in,
		"-map_metadata", "-1", "-fflags", "+bitexact",
		"-acodec", "pcm_s16le", "-ac", "1", "-ar", strconv.Itoa(ai.VoiceSampleRate),
		out,
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg: %s", strings.TrimSpace(stderr.String()))
	}
	return nil
}

// clipError is a rejection of the uploaded clip, already mapped to a status.
type clipError struct {
	status  int
	message string
	details string
}

func (e *clipError) Error() string { return e.message + ": " + e.details }

// VoiceTurnResponse is a chat turn plus the text it was transcribed from.
type VoiceTurnResponse struct {
	Transcription string `json:"transcription"`
	*models.ChatResponse
}

// VoiceHandler runs spoken utterances through the same turn pipeline as typed ones.
type VoiceHandler struct {
	chat        ai.ChatService
	transcriber ai.Transcriber
	convert     func(ctx context.Context, in, out string) error
}

func NewVoiceHandler(chat ai.ChatService, transcriber ai.Transcriber) *VoiceHandler {
	return &VoiceHandler{chat: chat, transcriber: transcriber, convert: convertAudio}
}

// prepareClip stores the upload, converts it and returns the PCM samples after the header.
func (h *VoiceHandler) prepareClip(ctx context.Context, fh *multipart.FileHeader) ([]byte, error) {
	if ext := strings.ToLower(filepath.Ext(fh.Filename)); ext != AllowedExtension {
		return nil, &clipError{http.StatusBadRequest, "invalid file type", fmt.Sprintf("expected %s, got %q", AllowedExtension, ext)}
	}
	if fh.Size > MaxFileSize {
		return nil, &clipError{http.StatusRequestEntityTooLarge, "audio file too large", fmt.Sprintf("limit is %d bytes", MaxFileSize)}
	}

	src, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	dir, err := os.MkdirTemp("", "voice-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)
	in, out := filepath.Join(dir, "upload.wav"), filepath.Join(dir, "pcm.wav")

	dst, err := os.Create(in)
	if err != nil {
		return nil, err
	}
	_, err = io.Copy(dst, io.LimitReader(src, MaxFileSize))
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}

	if err := h.convert(ctx, in, out); err != nil {
		return nil, &clipError{http.StatusBadRequest, "audio conversion failed", err.Error()}
	}
	clip, err := os.ReadFile(out)
	if err != nil {
		return nil, err
	}

	wav, err := parseWaveHeader(clip)
	if err != nil {
		return nil, &clipError{http.StatusBadRequest, "invalid audio", err.Error()}
	}
	if d := wav.durationSeconds(len(clip)); d > MaxDurationSeconds {
		return nil, &clipError{http.StatusBadRequest, "audio too long", fmt.Sprintf("maximum is %d seconds, got %.0f", MaxDurationSeconds, d)}
	}
	return clip[waveHeaderSize:], nil
}

// AISTTHandler transcribes a multipart "audio" clip and answers it as a chat turn.
func (h *VoiceHandler) AISTTHandler(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := c.PostForm("session_id")
	language := c.DefaultPostForm("language", "en-US")

	fh, err := c.FormFile("audio")
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "audio file is required", err.Error())
		return
	}

	pcm, err := h.prepareClip(ctx, fh)
	if err != nil {
		var ce *clipError
		if errors.As(err, &ce) {
			utils.JSONError(c, ce.status, ce.message, ce.details)
			return
		}
		getLogger(c).Error("Failed to stage audio clip", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "failed to process audio", "")
		return
	}

	text, err := h.transcriber.Transcribe(ctx, pcm, language)
	if err != nil {
		getLogger(c).Error("Speech recognition failed", zap.Error(err))
		utils.JSONError(c, http.StatusBadGateway, "speech recognition failed", "")
		return
	}
	if strings.TrimSpace(text) == "" {
		utils.JSONError(c, http.StatusBadRequest, "no speech detected", "")
		return
	}

	resp, err := h.chat.ProcessTurn(ctx, models.ChatRequest{SessionID: sessionID, Text: text})
	if err != nil {
		respondError(c, "invalid chat request", err)
		return
	}
	c.JSON(http.StatusOK, VoiceTurnResponse{Transcription: text, ChatResponse: resp})
}
