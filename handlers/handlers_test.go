package handlers

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"broadway/models"
	"broadway/services/catalog"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeChat struct {
	last  models.ChatRequest
	state *models.ConversationState
	msgs  []models.ChatMessage
	err   error
	reset string
}

func (f *fakeChat) ProcessTurn(_ context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	id := req.SessionID
	if id == "" {
		id = "minted"
	}
	return &models.ChatResponse{SessionID: id, Intent: "fallback", Stage: models.StageIdle, Reply: "Hello!"}, nil
}

func (f *fakeChat) Cart(_ context.Context, sessionID string) (*models.ConversationState, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.state == nil {
		return models.NewConversationState(sessionID), nil
	}
	return f.state, nil
}

func (f *fakeChat) History(context.Context, string) ([]models.ChatMessage, error) {
	return f.msgs, f.err
}

func (f *fakeChat) Reset(_ context.Context, sessionID string) error {
	f.reset = sessionID
	return f.err
}

func chatRouter(chat *fakeChat) *gin.Engine {
	h := NewChatHandler(chat, "Rs.")
	r := gin.New()
	r.POST("/api/chat/turn", h.TurnHandler)
	r.GET("/api/chat/:sessionID/cart", h.CartHandler)
	r.GET("/api/chat/:sessionID/history", h.HistoryHandler)
	r.DELETE("/api/chat/:sessionID", h.ResetHandler)
	return r
}

func doJSON(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTurnHandler(t *testing.T) {
	chat := &fakeChat{}
	w := doJSON(chatRouter(chat), http.MethodPost, "/api/chat/turn", `{"session_id":"s1","text":"hi"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ChatRequest{SessionID: "s1", Text: "hi"}, chat.last)

	var resp models.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "s1", resp.SessionID)
	assert.Equal(t, "Hello!", resp.Reply)
}

func TestTurnHandlerRejectsMalformedRequests(t *testing.T) {
	w := doJSON(chatRouter(&fakeChat{}), http.MethodPost, "/api/chat/turn", `{"text":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	chat := &fakeChat{err: &models.ValidationError{Field: "text", Reason: "message must not be empty"}}
	w = doJSON(chatRouter(chat), http.MethodPost, "/api/chat/turn", `{"text":"  "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "message must not be empty")
}

func TestCartHandler(t *testing.T) {
	st := models.NewConversationState("s1")
	st.Cart.Lines = []models.CartLine{{Name: "Garlic Bread", Quantity: 2, UnitPrice: decimal.NewFromInt(299)}}
	w := doJSON(chatRouter(&fakeChat{state: st}), http.MethodGet, "/api/chat/s1/cart", "")

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Stage models.Stage    `json:"stage"`
		Cart  models.CartView `json:"cart"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, models.StageIdle, body.Stage)
	assert.Equal(t, 2, body.Cart.ItemCount)
}

func TestCartHandlerStoreFailure(t *testing.T) {
	chat := &fakeChat{err: &models.PersistenceError{Op: "load state", Err: errors.New("redis down")}}
	w := doJSON(chatRouter(chat), http.MethodGet, "/api/chat/s1/cart", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "redis down")
}

func TestHistoryAndReset(t *testing.T) {
	chat := &fakeChat{}
	w := doJSON(chatRouter(chat), http.MethodGet, "/api/chat/s1/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"messages":[]`)

	w = doJSON(chatRouter(chat), http.MethodDelete, "/api/chat/s1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "s1", chat.reset)
}

type fakeCatalog struct {
	catalog.CatalogService
	items    []models.MenuItem
	category models.Category
	err      error
}

func (f *fakeCatalog) Menu(_ context.Context, category models.Category) ([]models.MenuItem, error) {
	f.category = category
	return f.items, f.err
}

func (f *fakeCatalog) Info(context.Context) (*models.RestaurantInfo, error) {
	return nil, f.err
}

func catalogRouter(svc *fakeCatalog) *gin.Engine {
	h := NewCatalogHandler(svc)
	r := gin.New()
	r.GET("/api/menu", h.MenuHandler)
	r.GET("/api/info", h.InfoHandler)
	return r
}

func TestMenuHandler(t *testing.T) {
	svc := &fakeCatalog{items: []models.MenuItem{{ID: "item_gbread", Name: "Garlic Bread"}}}
	w := doJSON(catalogRouter(svc), http.MethodGet, "/api/menu?category=Side", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.CategorySide, svc.category)
	assert.Contains(t, w.Body.String(), "Garlic Bread")

	w = doJSON(catalogRouter(svc), http.MethodGet, "/api/menu?category=sushi", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInfoHandlerNotFound(t *testing.T) {
	svc := &fakeCatalog{err: &models.NotFoundError{What: "restaurant info"}}
	w := doJSON(catalogRouter(svc), http.MethodGet, "/api/info", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type fakeOrders struct {
	order *models.Order
}

func (f *fakeOrders) Insert(context.Context, *models.Order) (*models.Order, error) { return nil, nil }

func (f *fakeOrders) GetByID(_ context.Context, id int64) (*models.Order, error) {
	if f.order == nil || f.order.ID != id {
		return nil, &models.NotFoundError{What: "order"}
	}
	return f.order, nil
}

func (f *fakeOrders) ListRecent(context.Context, int) ([]models.Order, error) { return nil, nil }

func TestGetOrderHandler(t *testing.T) {
	repo := &fakeOrders{order: &models.Order{
		ID: 7, CustomerName: "Ali Khan", CustomerPhone: "03001234567",
		Total: decimal.NewFromInt(949), Status: models.OrderPending, PlacedAt: time.Now(),
	}}
	r := gin.New()
	r.GET("/api/orders/:id", NewOrderHandler(repo).GetOrderHandler)

	w := doJSON(r, http.MethodGet, "/api/orders/7", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "0300****567")
	assert.NotContains(t, w.Body.String(), "03001234567")

	assert.Equal(t, http.StatusNotFound, doJSON(r, http.MethodGet, "/api/orders/8", "").Code)
	assert.Equal(t, http.StatusBadRequest, doJSON(r, http.MethodGet, "/api/orders/abc", "").Code)
}

type fakeTranscriber struct {
	text  string
	audio []byte
}

func (f *fakeTranscriber) Transcribe(_ context.Context, audio []byte, _ string) (string, error) {
	f.audio = audio
	return f.text, nil
}

func wavBytes(t *testing.T, seconds int) []byte {
	t.Helper()
	samples := make([]byte, seconds*16000*2)
	h := waveHeader{
		FmtSize: 16, AudioFormat: 1, NumChannels: 1, SampleRate: 16000,
		ByteRate: 32000, BlockAlign: 2, BitsPerSample: 16, DataSize: uint32(len(samples)),
	}
	copy(h.RiffTag[:], "RIFF")
	copy(h.WaveTag[:], "WAVE")
	copy(h.FmtTag[:], "fmt ")
	copy(h.DataTag[:], "data")
	h.FileSize = uint32(36 + len(samples))

	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, h))
	buf.Write(samples)
	return buf.Bytes()
}

func voiceRequest(t *testing.T, filename string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("session_id", "s1"))
	fw, err := mw.CreateFormFile("audio", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte("raw upload"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/chat/voice", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func voiceRouter(chat *fakeChat, tr *fakeTranscriber, wav []byte) *gin.Engine {
	h := NewVoiceHandler(chat, tr)
	h.convert = func(_ context.Context, _, out string) error {
		return os.WriteFile(out, wav, 0o600)
	}
	r := gin.New()
	r.POST("/api/chat/voice", h.AISTTHandler)
	return r
}

func TestVoiceHandlerRunsTranscriptAsTurn(t *testing.T) {
	chat := &fakeChat{}
	tr := &fakeTranscriber{text: "one garlic bread"}
	r := voiceRouter(chat, tr, wavBytes(t, 1))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, voiceRequest(t, "clip.wav"))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ChatRequest{SessionID: "s1", Text: "one garlic bread"}, chat.last)
	assert.Len(t, tr.audio, 32000)

	var resp VoiceTurnResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "one garlic bread", resp.Transcription)
	assert.Equal(t, "Hello!", resp.Reply)
}

func TestVoiceHandlerRejections(t *testing.T) {
	r := voiceRouter(&fakeChat{}, &fakeTranscriber{text: "hi"}, wavBytes(t, 1))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, voiceRequest(t, "clip.mp3"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	r = voiceRouter(&fakeChat{}, &fakeTranscriber{text: "hi"}, wavBytes(t, MaxDurationSeconds+1))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, voiceRequest(t, "clip.wav"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "audio too long")

	r = voiceRouter(&fakeChat{}, &fakeTranscriber{}, wavBytes(t, 1))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, voiceRequest(t, "clip.wav"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "no speech detected")
}
