package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Conceptual-Machines/thumbforge-api/internal/editor"
	"github.com/Conceptual-Machines/thumbforge-api/internal/generator"
	"github.com/Conceptual-Machines/thumbforge-api/internal/history"
	"github.com/Conceptual-Machines/thumbforge-api/internal/imagedata"
	"github.com/Conceptual-Machines/thumbforge-api/internal/middleware"
	"github.com/Conceptual-Machines/thumbforge-api/internal/models"
	"github.com/Conceptual-Machines/thumbforge-api/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGenerator struct {
	result   *generator.Result
	err      error
	enhanced string
	lastReq  generator.Request
}

func (s *stubGenerator) GenerateSet(_ context.Context, req generator.Request, onVariation func(models.ThumbnailVariation)) (*generator.Result, error) {
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	if onVariation != nil {
		for _, v := range s.result.Variations {
			onVariation(v)
		}
	}
	return s.result, nil
}

func (s *stubGenerator) EnhancePrompt(_ context.Context, text string) string {
	if s.enhanced == "" {
		return text
	}
	return s.enhanced
}

type testEnv struct {
	router  *gin.Engine
	store   *services.GuestStore
	history *history.Store
	gen     *stubGenerator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &testEnv{
		store:   services.NewGuestStore(),
		history: history.NewStore(history.NewMemoryBackend(), 0),
		gen:     &stubGenerator{},
	}

	router := gin.New()
	v1 := router.Group("/api/v1", middleware.GuestAuth(env.store))

	userHandler := NewUserHandler(env.store)
	v1.GET("/me", userHandler.GetProfile)
	v1.GET("/credits", userHandler.GetCredits)
	v1.GET("/usernames/:username", userHandler.CheckUsername)

	generationHandler := NewGenerationHandler(env.gen, nil)
	v1.POST("/generations", generationHandler.Generate)
	v1.POST("/prompts/enhance", generationHandler.EnhancePrompt)

	styleHandler := NewStyleHandler()
	v1.GET("/styles", styleHandler.ListStyles)
	v1.POST("/templates/apply", styleHandler.ApplyTemplate)

	v1.POST("/assets", NewAssetHandler().Upload)

	historyHandler := NewHistoryHandler(env.history)
	v1.GET("/history", historyHandler.GetHistory)
	v1.DELETE("/history/:id", historyHandler.DeleteEntry)

	editHandler := NewEditHandler(env.history, nil)
	v1.POST("/edits/preview", editHandler.Preview)
	v1.POST("/edits", editHandler.Apply)
	v1.POST("/history/:id/edits", editHandler.ApplyToHistory)

	v1.GET("/thumbnails", NewThumbnailHandler(env.store).ListThumbnails)
	router.PUT("/api/admin/users/:id/credits", NewAdminHandler(env.store).UpdateUserCredits)
	router.GET("/health", NewHealthHandler(nil, env.history).HealthCheck)
	router.GET("/api/metrics", NewMetricsHandler("test", env.history).GetMetrics)

	env.router = router
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func pngImage(t *testing.T, w, h int) imagedata.Image {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return imagedata.Image{MIMEType: imagedata.MIMETypePNG, Data: buf.Bytes()}
}

func sampleResult() *generator.Result {
	return &generator.Result{
		CycleID: "cycle-1",
		Variations: []models.ThumbnailVariation{
			{ID: "v0", CycleID: "cycle-1", VariationIndex: 0, Status: models.VariationCompleted, Title: "One"},
			{ID: "v2", CycleID: "cycle-1", VariationIndex: 2, Status: models.VariationCompleted, Title: "Three"},
		},
		Failures:    []generator.VariationFailure{{Index: 1, Reason: "safety"}},
		Suggestions: models.VideoSuggestions{Titles: []string{"One", "Two", "Three"}, Description: "Desc"},
	}
}

func TestGenerate_OneShot(t *testing.T) {
	env := newTestEnv(t)
	env.gen.result = sampleResult()

	w := env.do(t, http.MethodPost, "/api/v1/generations", gin.H{
		"concept": "cat surfing",
		"style":   "neon",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, "cycle-1", body["cycle_id"])
	assert.Len(t, body["variations"], 2)
	assert.Len(t, body["failures"], 1)

	assert.Equal(t, models.GuestUserID, env.gen.lastReq.OwnerID)
	assert.Equal(t, "cat surfing", env.gen.lastReq.Concept)
	assert.Equal(t, "neon", env.gen.lastReq.Style)
}

func TestGenerate_Template(t *testing.T) {
	env := newTestEnv(t)
	env.gen.result = sampleResult()

	w := env.do(t, http.MethodPost, "/api/v1/generations", gin.H{
		"template": gin.H{"title": "Speedrun Fails", "category": "Gaming"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, `A viral video thumbnail inspired by "Speedrun Fails". High energy, engaging elements, and vibrant colors.`,
		env.gen.lastReq.Concept)
	assert.Equal(t, models.StyleAnime, env.gen.lastReq.Style)

	w = env.do(t, http.MethodPost, "/api/v1/generations", gin.H{
		"concept":  "my own idea",
		"style":    models.StyleTech,
		"template": gin.H{"title": "Speedrun Fails", "category": "Gaming"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "my own idea", env.gen.lastReq.Concept)
	assert.Equal(t, models.StyleTech, env.gen.lastReq.Style)

	w = env.do(t, http.MethodPost, "/api/v1/generations", gin.H{"template": gin.H{"category": "Gaming"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStyles(t *testing.T) {
	env := newTestEnv(t)

	body := decode(t, env.do(t, http.MethodGet, "/api/v1/styles", nil))
	assert.Equal(t, models.DefaultStyle, body["default"])
	assert.Equal(t, []interface{}{
		models.StyleMrBeast, models.StyleDarkHorror, models.StyleTech, models.StyleAnime,
	}, body["styles"])

	w := env.do(t, http.MethodPost, "/api/v1/templates/apply", gin.H{"title": "Room Makeover", "category": "Lifestyle"})
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, models.StyleMrBeast, body["style"])
	assert.Contains(t, body["concept"], `"Room Makeover"`)

	w = env.do(t, http.MethodPost, "/api/v1/templates/apply", gin.H{"category": "Gaming"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerate_ReferenceImages(t *testing.T) {
	env := newTestEnv(t)
	env.gen.result = sampleResult()
	ref := pngImage(t, 2, 2)

	w := env.do(t, http.MethodPost, "/api/v1/generations", gin.H{
		"concept":          "x",
		"reference_images": []string{ref.DataURI()},
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, env.gen.lastReq.ReferenceImages, 1)
	assert.Equal(t, imagedata.MIMETypePNG, env.gen.lastReq.ReferenceImages[0].MIMEType)

	w = env.do(t, http.MethodPost, "/api/v1/generations", gin.H{
		"concept":          "x",
		"reference_images": []string{"data:text/plain;base64,aGVsbG8="},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerate_ErrorStatus(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"empty concept", generator.ErrEmptyConcept, http.StatusBadRequest, generator.ErrEmptyConcept.Error()},
		{"insufficient credits", generator.ErrInsufficientCredits, http.StatusPaymentRequired, "insufficient credits"},
		{"first variation failed", &generator.GenerationFailedError{Cause: errors.New("quota exceeded")}, http.StatusBadGateway, "quota exceeded"},
		{"first variation failed without reason", &generator.GenerationFailedError{}, http.StatusBadGateway, generator.DefaultFailureMessage},
		{"cancelled", context.Canceled, http.StatusRequestTimeout, "Generation cancelled"},
		{"unexpected", errors.New("db down"), http.StatusInternalServerError, generator.DefaultFailureMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.gen.err = tt.err

			w := env.do(t, http.MethodPost, "/api/v1/generations", gin.H{"concept": "x"})
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantError, decode(t, w)["error"])
		})
	}
}

func readEvents(t *testing.T, body string) []StreamEvent {
	t.Helper()
	var events []StreamEvent
	for _, chunk := range strings.Split(body, "\n\n") {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		require.True(t, strings.HasPrefix(chunk, "data: "), chunk)
		var ev StreamEvent
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(chunk, "data: ")), &ev))
		events = append(events, ev)
	}
	return events
}

func eventTypes(events []StreamEvent) []string {
	types := make([]string, len(events))
	for i, ev := range events {
		types[i] = ev.Type
	}
	return types
}

func TestGenerate_Stream(t *testing.T) {
	env := newTestEnv(t)
	env.gen.result = sampleResult()

	w := env.do(t, http.MethodPost, "/api/v1/generations", gin.H{"concept": "x", "stream": true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	events := readEvents(t, w.Body.String())
	assert.Equal(t, []string{
		eventVariation, eventVariation, eventVariationFailed, eventSuggestions, eventResult, eventDone,
	}, eventTypes(events))
	assert.Equal(t, "Variation 1 ready", events[0].Message)
	assert.Equal(t, "Variation 3 ready", events[1].Message)
}

func TestGenerate_StreamError(t *testing.T) {
	env := newTestEnv(t)
	env.gen.err = &generator.GenerationFailedError{Cause: errors.New("blocked")}

	w := env.do(t, http.MethodPost, "/api/v1/generations", gin.H{"concept": "x", "stream": true})
	require.Equal(t, http.StatusOK, w.Code)

	events := readEvents(t, w.Body.String())
	assert.Equal(t, []string{eventError, eventDone}, eventTypes(events))
	assert.Equal(t, "blocked", events[0].Message)
	assert.EqualValues(t, http.StatusBadGateway, events[0].Data.(map[string]interface{})["status"])
}

func TestEnhancePrompt(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/prompts/enhance", gin.H{"prompt": "cat"})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "cat", body["prompt"])
	assert.Equal(t, false, body["enhanced"])

	env.gen.enhanced = "A cat on a neon surfboard"
	body = decode(t, env.do(t, http.MethodPost, "/api/v1/prompts/enhance", gin.H{"prompt": "cat"}))
	assert.Equal(t, "A cat on a neon surfboard", body["prompt"])
	assert.Equal(t, true, body["enhanced"])

	w = env.do(t, http.MethodPost, "/api/v1/prompts/enhance", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUserEndpoints(t *testing.T) {
	env := newTestEnv(t)

	body := decode(t, env.do(t, http.MethodGet, "/api/v1/me", nil))
	profile := body["profile"].(map[string]interface{})
	assert.Equal(t, models.GuestUserID, profile["id"])
	assert.Equal(t, models.GuestUsername, profile["username"])

	body = decode(t, env.do(t, http.MethodGet, "/api/v1/credits", nil))
	assert.EqualValues(t, models.UserInitialCredits, body["credits"])

	body = decode(t, env.do(t, http.MethodGet, "/api/v1/usernames/GUEST_creator", nil))
	assert.Equal(t, true, body["taken"])
	body = decode(t, env.do(t, http.MethodGet, "/api/v1/usernames/someone_else", nil))
	assert.Equal(t, false, body["taken"])
}

func TestThumbnails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.store.SaveThumbnails(ctx, models.GuestUserID, []models.ThumbnailVariation{
		{ImageData: "data:a", VariationIndex: 0},
		{ImageData: "data:b", VariationIndex: 1},
	}))

	body := decode(t, env.do(t, http.MethodGet, "/api/v1/thumbnails?limit=1", nil))
	require.Len(t, body["thumbnails"], 1)
	assert.Equal(t, "data:b", body["thumbnails"].([]interface{})[0].(map[string]interface{})["url"])

	w := env.do(t, http.MethodGet, "/api/v1/thumbnails?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminUpdateCredits(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPut, "/api/admin/users/"+models.GuestUserID+"/credits", gin.H{"credits": 10})
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, models.UserInitialCredits+10, decode(t, w)["credits"])

	w = env.do(t, http.MethodPut, "/api/admin/users/missing/credits", gin.H{"credits": 10})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPut, "/api/admin/users/"+models.GuestUserID+"/credits", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHistoryEndpoints(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.history.Put(ctx, models.GuestUserID, models.ThumbnailVariation{ID: "a", ImageData: "data:a"})
	env.history.Put(ctx, models.GuestUserID, models.ThumbnailVariation{ID: "b", ImageData: "data:b"})

	body := decode(t, env.do(t, http.MethodGet, "/api/v1/history", nil))
	entries := body["history"].([]interface{})
	require.Len(t, entries, 2)
	assert.Equal(t, "b", entries[0].(map[string]interface{})["id"])
	assert.EqualValues(t, history.DefaultCap, body["cap"])

	w := env.do(t, http.MethodDelete, "/api/v1/history/a", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodDelete, "/api/v1/history/a", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Len(t, env.history.Get(ctx, models.GuestUserID), 1)
}

func TestEditPreview(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/edits/preview", gin.H{"rotation": 90, "brightness": 120})
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	settings := body["settings"].(map[string]interface{})
	assert.EqualValues(t, 100, settings["contrast"]) // omitted fields keep defaults
	assert.Equal(t, true, body["swaps_dimensions"])
	assert.Equal(t, false, body["identity"])

	preview := body["preview"].(map[string]interface{})
	assert.Contains(t, preview["filter"], "brightness(120%)")
	assert.Contains(t, preview["transform"], "rotate(90deg)")
}

func TestEditApply(t *testing.T) {
	env := newTestEnv(t)
	src := pngImage(t, 8, 4)

	w := env.do(t, http.MethodPost, "/api/v1/edits", gin.H{
		"image":           src.DataURI(),
		"settings":        gin.H{"rotation": 90},
		"variation_index": 1,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, "viralthumb-variation-2.jpg", body["filename"])

	out, err := imagedata.Parse(body["image"].(string))
	require.NoError(t, err)
	assert.Equal(t, imagedata.MIMETypeJPEG, out.MIMEType)
	cfg, _, err := image.DecodeConfig(bytes.NewReader(out.Data))
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Width)
	assert.Equal(t, 8, cfg.Height)
}

func TestEditApply_InvalidInput(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/edits", gin.H{"settings": gin.H{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// a PNG signature with a truncated body sniffs as an image but cannot decode
	broken := imagedata.Image{MIMEType: imagedata.MIMETypePNG, Data: []byte("\x89PNG\r\n\x1a\n\x00\x00")}
	w = env.do(t, http.MethodPost, "/api/v1/edits", gin.H{"image": broken.DataURI()})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestEditHistoryEntry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	src := pngImage(t, 6, 3)
	env.history.Put(ctx, models.GuestUserID, models.ThumbnailVariation{
		ID:             "entry",
		VariationIndex: 2,
		ImageData:      src.DataURI(),
		CreatedAt:      time.Now(),
	})

	w := env.do(t, http.MethodPost, "/api/v1/history/entry/edits", editor.DefaultSettings().WithBrightness(50))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "viralthumb-variation-3.jpg", body["filename"])

	stored, ok := env.history.Get(ctx, models.GuestUserID).Find("entry")
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(stored.ImageData, "data:image/jpeg"))

	w = env.do(t, http.MethodPost, "/api/v1/history/missing/edits", gin.H{})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAssetUpload(t *testing.T) {
	env := newTestEnv(t)
	img := pngImage(t, 2, 2)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for i := 0; i < 4; i++ {
		part, err := mw.CreateFormFile(uploadField, "ref.png")
		require.NoError(t, err)
		_, err = part.Write(img.Data)
		require.NoError(t, err)
	}
	part, err := mw.CreateFormFile(uploadField, "notes.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("just some text"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/assets", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Len(t, body["assets"], 3)
	assert.EqualValues(t, 1, body["dropped"])
	require.Len(t, body["skipped"], 1)
	assert.Equal(t, "notes.txt", body["skipped"].([]interface{})[0].(map[string]interface{})["filename"])
}

func TestAssetUpload_NoFiles(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodPost, "/api/v1/assets", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthCheck_GuestMode(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, statusHealthy, body["status"])
	assert.Equal(t, statusDisabled, body["database"].(map[string]interface{})["status"])
	assert.Equal(t, history.BackendMemory, body["history"].(map[string]interface{})["backend"])
}

func TestGetMetrics(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/edits", gin.H{"image": pngImage(t, 4, 4).DataURI()})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, http.MethodGet, "/api/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp MetricsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "test", resp.Version)
	assert.Equal(t, models.VariationsPerCycle, resp.Limits.VariationsPerCycle)
	assert.Equal(t, models.DefaultStyle, resp.Limits.DefaultStyle)
	assert.Equal(t, history.BackendMemory, resp.History.Backend)
	assert.Equal(t, history.DefaultCap, resp.History.Cap)
	assert.GreaterOrEqual(t, resp.Counters["edits.completed"], int64(1))
}
