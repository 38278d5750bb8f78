package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/hurricanerix/darkroom/internal/editor"
	"github.com/hurricanerix/darkroom/internal/genai"
	"github.com/hurricanerix/darkroom/internal/imagestore"
	"github.com/hurricanerix/darkroom/internal/logging"
	"github.com/hurricanerix/darkroom/internal/preset"
)

// fakeAI records requests and returns canned results.
type fakeAI struct {
	lastReq genai.Request
	result  genai.Result
	err     error
	busy    bool
}

func (f *fakeAI) Invoke(_ context.Context, r genai.Request) (genai.Result, error) {
	f.lastReq = r
	if f.err != nil {
		return genai.Result{}, f.err
	}
	return f.result, nil
}

func (f *fakeAI) Busy() bool { return f.busy }

// testEnv wires a server against in-memory stores and a fake gateway, and
// a client that keeps the session cookie across requests.
type testEnv struct {
	srv      *httptest.Server
	client   *http.Client
	ai       *fakeAI
	store    *imagestore.Store
	sessions *SessionManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	ai := &fakeAI{}
	store := imagestore.New()
	sm := NewSessionManager(8, 0, logging.New(logging.LevelError, &bytes.Buffer{}))
	t.Cleanup(sm.Shutdown)

	s := NewServer(Options{
		Sessions: sm,
		Store:    store,
		Presets:  preset.NewMemoryStore(),
		AI:       ai,
		Log:      logging.New(logging.LevelError, &bytes.Buffer{}),
	})

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}

	return &testEnv{
		srv:      srv,
		client:   &http.Client{Jar: jar},
		ai:       ai,
		store:    store,
		sessions: sm,
	}
}

func (e *testEnv) postJSON(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := e.client.Post(e.srv.URL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func (e *testEnv) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := e.client.Get(e.srv.URL + path)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatal(err)
	}
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func testImage(w, h int, c color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func (e *testEnv) upload(t *testing.T, img image.Image) {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("image", "photo.png")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(encodePNG(t, img)); err != nil {
		t.Fatal(err)
	}
	mw.Close()

	resp, err := e.client.Post(e.srv.URL+"/api/image", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload status = %d", resp.StatusCode)
	}
}

func (e *testEnv) state(t *testing.T) stateResponse {
	t.Helper()
	var st stateResponse
	decodeBody(t, e.get(t, "/api/state"), &st)
	return st
}

func TestUploadAndRender(t *testing.T) {
	env := newTestEnv(t)
	env.upload(t, testImage(8, 6, color.RGBA{120, 80, 40, 255}))

	st := env.state(t)
	if !st.Loaded || st.Width != 8 || st.Height != 6 {
		t.Fatalf("state = %+v", st)
	}
	if st.Adjustments != editor.DefaultAdjustments() {
		t.Errorf("fresh image adjustments = %+v", st.Adjustments)
	}

	resp := env.get(t, "/api/render")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("render status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("render content type = %q", ct)
	}
	img, err := png.Decode(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 8 || b.Dy() != 6 {
		t.Errorf("render bounds = %v", b)
	}
}

func TestUploadSurvivesConcurrentSweep(t *testing.T) {
	env := newTestEnv(t)

	// A sweeper spinning in the background must never release a freshly
	// uploaded image: the handler stores and seeds the session under one
	// session lock, and Refs blocks on that lock.
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				env.store.Sweep(env.sessions.Refs())
			}
		}
	}()

	for i := 0; i < 25; i++ {
		env.upload(t, testImage(6, 4, color.RGBA{uint8(i * 10), 80, 40, 255}))

		resp := env.get(t, "/api/render")
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("render after upload %d status = %d, want 200", i, resp.StatusCode)
		}
	}

	close(stop)
	wg.Wait()
}

func TestRenderWithoutImage(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get(t, "/api/render")
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("render status = %d, want 400", resp.StatusCode)
	}
}

func TestSliderFlowCommitsOneEntry(t *testing.T) {
	env := newTestEnv(t)
	env.upload(t, testImage(4, 4, color.RGBA{100, 100, 100, 255}))

	resp := env.postJSON(t, "/api/adjust/start", map[string]int{"displayWidth": 4, "displayHeight": 4})
	resp.Body.Close()

	// A drag produces many live events.
	for v := 101; v <= 150; v++ {
		adj := editor.DefaultAdjustments()
		adj.Brightness = v
		resp = env.postJSON(t, "/api/adjust/live", map[string]any{"adjustments": adj})
		resp.Body.Close()
	}

	var commit struct {
		Committed bool `json:"committed"`
	}
	decodeBody(t, env.postJSON(t, "/api/adjust/commit", struct{}{}), &commit)
	if !commit.Committed {
		t.Fatal("commit did not land")
	}

	st := env.state(t)
	if st.Adjustments.Brightness != 150 {
		t.Errorf("brightness = %d, want 150", st.Adjustments.Brightness)
	}
	if !st.CanUndo {
		t.Error("CanUndo = false after commit")
	}

	// The whole drag is one history entry.
	resp = env.postJSON(t, "/api/undo", struct{}{})
	resp.Body.Close()
	st = env.state(t)
	if st.Adjustments.Brightness != 100 {
		t.Errorf("brightness after undo = %d, want 100", st.Adjustments.Brightness)
	}
	if st.CanUndo {
		t.Error("CanUndo = true at history start")
	}
}

func TestPreviewRenderAppliesTransform(t *testing.T) {
	env := newTestEnv(t)
	env.upload(t, testImage(8, 6, color.RGBA{200, 120, 60, 255}))

	resp := env.postJSON(t, "/api/transform", editor.Transform{Zoom: 1, PanX: 4, PanY: 0})
	resp.Body.Close()
	resp = env.postJSON(t, "/api/adjust/start", map[string]int{"displayWidth": 8, "displayHeight": 6})
	resp.Body.Close()

	// The gesture is live, so the render is the preview stand-in. The pan
	// shifts the picture right, leaving the left columns empty, same as
	// the full pipeline would.
	resp = env.get(t, "/api/render")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("preview render status = %d", resp.StatusCode)
	}
	img, err := png.Decode(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 8 || b.Dy() != 6 {
		t.Fatalf("preview bounds = %v, want 8x6", b)
	}
	if _, _, _, a := img.At(0, 0).RGBA(); a != 0 {
		t.Error("panned-out pixel is not empty")
	}
	if _, _, _, a := img.At(6, 3).RGBA(); a == 0 {
		t.Error("panned-in pixel is empty")
	}
}

func TestLiveChangeWithoutStartIgnored(t *testing.T) {
	env := newTestEnv(t)
	env.upload(t, testImage(4, 4, color.RGBA{100, 100, 100, 255}))

	adj := editor.DefaultAdjustments()
	adj.Brightness = 180

	var res struct {
		Applied bool `json:"applied"`
	}
	decodeBody(t, env.postJSON(t, "/api/adjust/live", map[string]any{"adjustments": adj}), &res)
	if res.Applied {
		t.Error("live change applied with no interaction active")
	}

	if st := env.state(t); st.Adjustments.Brightness != 100 {
		t.Errorf("brightness = %d, want untouched 100", st.Adjustments.Brightness)
	}
}

func TestHSLLiveChange(t *testing.T) {
	env := newTestEnv(t)
	env.upload(t, testImage(4, 4, color.RGBA{100, 100, 100, 255}))

	resp := env.postJSON(t, "/api/adjust/start", map[string]int{"displayWidth": 4, "displayHeight": 4})
	resp.Body.Close()
	resp = env.postJSON(t, "/api/adjust/live", map[string]any{
		"hsl": map[string]any{"band": "blue", "shift": map[string]int{"h": 0, "s": -20, "l": 10}},
	})
	resp.Body.Close()
	resp = env.postJSON(t, "/api/adjust/commit", struct{}{})
	resp.Body.Close()

	st := env.state(t)
	want := editor.HSLShift{Saturation: -20, Lightness: 10}
	if st.HSL[editor.BandBlue] != want {
		t.Errorf("blue shift = %+v, want %+v", st.HSL[editor.BandBlue], want)
	}
}

func TestMaskLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.upload(t, testImage(6, 6, color.RGBA{100, 100, 100, 255}))

	resp := env.postJSON(t, "/api/mask/gradient", map[string]string{"kind": "linear"})
	resp.Body.Close()

	st := env.state(t)
	if st.MaskRef == "" {
		t.Fatal("no mask after gradient commit")
	}
	if st.MaskInverted {
		t.Error("fresh mask starts inverted")
	}

	resp = env.postJSON(t, "/api/mask/invert", map[string]bool{"inverted": true})
	resp.Body.Close()
	if st = env.state(t); !st.MaskInverted {
		t.Error("mask not inverted")
	}

	resp = env.postJSON(t, "/api/mask/clear", struct{}{})
	resp.Body.Close()
	st = env.state(t)
	if st.MaskRef != "" {
		t.Error("mask survived clear")
	}
	if st.MaskInverted {
		t.Error("inverted flag survived clear")
	}
}

func TestBrushStrokeCommitsSingleEntry(t *testing.T) {
	env := newTestEnv(t)
	env.upload(t, testImage(10, 10, color.RGBA{100, 100, 100, 255}))

	stroke := func(phase string, x, y float64) {
		resp := env.postJSON(t, "/api/mask/stroke", map[string]any{
			"phase": phase, "x": x, "y": y, "size": 4, "mode": "paint", "zoom": 1,
			"displayWidth": 10, "displayHeight": 10,
		})
		resp.Body.Close()
	}

	stroke("begin", 2, 2)
	stroke("move", 5, 5)
	stroke("end", 5, 5)

	st := env.state(t)
	if st.MaskRef == "" {
		t.Fatal("no mask after stroke")
	}

	// A second stroke of the same brush run overwrites the entry.
	stroke("begin", 7, 7)
	stroke("end", 8, 8)

	resp := env.postJSON(t, "/api/undo", struct{}{})
	resp.Body.Close()
	st = env.state(t)
	if st.MaskRef != "" {
		t.Error("one undo should remove the whole brush run")
	}
	if st.CanUndo {
		t.Error("extra history entries from brush strokes")
	}
}

func TestAIImageActionConsumesMask(t *testing.T) {
	env := newTestEnv(t)
	env.upload(t, testImage(6, 6, color.RGBA{100, 100, 100, 255}))

	resp := env.postJSON(t, "/api/mask/gradient", map[string]string{"kind": "radial"})
	resp.Body.Close()

	env.ai.result = genai.Result{
		ImagePNG: encodePNG(t, testImage(6, 6, color.RGBA{10, 200, 30, 255})),
		MimeType: "image/png",
	}

	before := env.state(t)
	resp = env.postJSON(t, "/api/ai/enhance", struct{}{})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ai status = %d", resp.StatusCode)
	}

	if len(env.ai.lastReq.MaskPNG) == 0 {
		t.Error("committed mask not attached to gateway request")
	}
	if env.ai.lastReq.Prompt == "" || env.ai.lastReq.WantText {
		t.Errorf("unexpected gateway request %+v", env.ai.lastReq)
	}

	st := env.state(t)
	if st.ImageRef == before.ImageRef {
		t.Error("image not replaced by generative result")
	}
	if st.MaskRef != "" {
		t.Error("mask survived a generative edit")
	}
}

func TestAIMaskAction(t *testing.T) {
	env := newTestEnv(t)
	env.upload(t, testImage(6, 6, color.RGBA{100, 100, 100, 255}))

	env.ai.result = genai.Result{
		ImagePNG: encodePNG(t, testImage(6, 6, color.RGBA{255, 255, 255, 255})),
		MimeType: "image/png",
	}

	before := env.state(t)
	resp := env.postJSON(t, "/api/ai/mask-sky", struct{}{})
	resp.Body.Close()

	st := env.state(t)
	if st.MaskRef == "" {
		t.Error("mask action committed no mask")
	}
	if st.ImageRef != before.ImageRef {
		t.Error("mask action replaced the image")
	}
}

func TestAIMaskActionSendsCommittedMask(t *testing.T) {
	env := newTestEnv(t)
	env.upload(t, testImage(6, 6, color.RGBA{100, 100, 100, 255}))

	resp := env.postJSON(t, "/api/mask/gradient", map[string]string{"kind": "linear"})
	resp.Body.Close()
	resp = env.postJSON(t, "/api/mask/invert", map[string]bool{"inverted": true})
	resp.Body.Close()
	before := env.state(t)

	env.ai.result = genai.Result{
		ImagePNG: encodePNG(t, testImage(6, 6, color.RGBA{255, 255, 255, 255})),
		MimeType: "image/png",
	}
	resp = env.postJSON(t, "/api/ai/mask-subject", struct{}{})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("mask action status = %d", resp.StatusCode)
	}

	// The existing mask and its polarity ride along on mask-producing
	// calls too, and the result replaces it.
	if len(env.ai.lastReq.MaskPNG) == 0 {
		t.Error("committed mask not attached to mask-producing request")
	}
	if !env.ai.lastReq.MaskInverted {
		t.Error("mask polarity not forwarded")
	}
	if st := env.state(t); st.MaskRef == "" || st.MaskRef == before.MaskRef {
		t.Errorf("mask not replaced: before %q after %q", before.MaskRef, st.MaskRef)
	}
}

func TestAITextAction(t *testing.T) {
	env := newTestEnv(t)
	env.upload(t, testImage(6, 6, color.RGBA{100, 100, 100, 255}))

	env.ai.result = genai.Result{Text: "lower the horizon"}

	var res struct {
		Text string `json:"text"`
	}
	decodeBody(t, env.postJSON(t, "/api/ai/composition-advice", struct{}{}), &res)
	if res.Text != "lower the horizon" {
		t.Errorf("text = %q", res.Text)
	}
	if !env.ai.lastReq.WantText {
		t.Error("text action did not request text")
	}

	if st := env.state(t); st.CanUndo {
		t.Error("text action touched history")
	}
}

func TestAIFillRequiresPromptAndMask(t *testing.T) {
	env := newTestEnv(t)
	env.upload(t, testImage(6, 6, color.RGBA{100, 100, 100, 255}))

	// Missing prompt.
	resp := env.postJSON(t, "/api/ai/fill", map[string]string{"prompt": ""})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("fill without prompt status = %d, want 400", resp.StatusCode)
	}

	// Missing mask.
	resp = env.postJSON(t, "/api/ai/fill", map[string]string{"prompt": "a red balloon"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("fill without mask status = %d, want 400", resp.StatusCode)
	}

	// With a mask it goes through and wraps the user prompt.
	resp = env.postJSON(t, "/api/mask/gradient", map[string]string{"kind": "linear"})
	resp.Body.Close()
	env.ai.result = genai.Result{
		ImagePNG: encodePNG(t, testImage(6, 6, color.RGBA{1, 2, 3, 255})),
	}
	resp = env.postJSON(t, "/api/ai/fill", map[string]string{"prompt": "a red balloon"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("fill status = %d", resp.StatusCode)
	}
	if !strings.Contains(env.ai.lastReq.Prompt, `"a red balloon"`) {
		t.Errorf("fill prompt = %q", env.ai.lastReq.Prompt)
	}
}

func TestAIUnknownAction(t *testing.T) {
	env := newTestEnv(t)
	env.upload(t, testImage(4, 4, color.RGBA{0, 0, 0, 255}))

	resp := env.postJSON(t, "/api/ai/does-not-exist", struct{}{})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestAIBusyMapsToConflict(t *testing.T) {
	env := newTestEnv(t)
	env.upload(t, testImage(4, 4, color.RGBA{0, 0, 0, 255}))

	env.ai.err = genai.ErrBusy
	resp := env.postJSON(t, "/api/ai/enhance", struct{}{})
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409", resp.StatusCode)
	}
}

func TestPresetRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	env.upload(t, testImage(4, 4, color.RGBA{100, 100, 100, 255}))

	var list []preset.Preset
	decodeBody(t, env.get(t, "/api/presets"), &list)
	if len(list) != 2 {
		t.Fatalf("initial presets = %d, want 2 built-ins", len(list))
	}

	// Commit an edit, save it as a preset.
	resp := env.postJSON(t, "/api/adjust/start", map[string]int{"displayWidth": 4, "displayHeight": 4})
	resp.Body.Close()
	adj := editor.DefaultAdjustments()
	adj.Contrast = 140
	resp = env.postJSON(t, "/api/adjust/live", map[string]any{"adjustments": adj})
	resp.Body.Close()
	resp = env.postJSON(t, "/api/adjust/commit", struct{}{})
	resp.Body.Close()

	resp = env.postJSON(t, "/api/presets", map[string]string{"name": "Punchy"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("save status = %d", resp.StatusCode)
	}

	// Reset, then apply the preset back.
	resp = env.postJSON(t, "/api/reset", struct{}{})
	resp.Body.Close()
	if st := env.state(t); st.Adjustments.Contrast != 100 {
		t.Fatalf("contrast after reset = %d", st.Adjustments.Contrast)
	}

	resp = env.postJSON(t, "/api/presets/apply", map[string]string{"name": "Punchy"})
	resp.Body.Close()
	if st := env.state(t); st.Adjustments.Contrast != 140 {
		t.Errorf("contrast after apply = %d, want 140", st.Adjustments.Contrast)
	}

	req, _ := http.NewRequest(http.MethodDelete, env.srv.URL+"/api/presets/Punchy", nil)
	delResp, err := env.client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	delResp.Body.Close()
	if delResp.StatusCode != http.StatusOK {
		t.Errorf("delete status = %d", delResp.StatusCode)
	}

	resp = env.postJSON(t, "/api/presets/apply", map[string]string{"name": "Punchy"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("apply deleted preset status = %d, want 404", resp.StatusCode)
	}
}

func TestResetIsNotUndoable(t *testing.T) {
	env := newTestEnv(t)
	env.upload(t, testImage(4, 4, color.RGBA{100, 100, 100, 255}))

	resp := env.postJSON(t, "/api/adjust/start", map[string]int{"displayWidth": 4, "displayHeight": 4})
	resp.Body.Close()
	adj := editor.DefaultAdjustments()
	adj.Sepia = 40
	resp = env.postJSON(t, "/api/adjust/live", map[string]any{"adjustments": adj})
	resp.Body.Close()
	resp = env.postJSON(t, "/api/adjust/commit", struct{}{})
	resp.Body.Close()

	resp = env.postJSON(t, "/api/reset", struct{}{})
	resp.Body.Close()

	// Reset reseeds the whole history rather than committing an entry.
	st := env.state(t)
	if st.Adjustments != editor.DefaultAdjustments() {
		t.Errorf("adjustments after reset = %+v", st.Adjustments)
	}
	if st.CanUndo || st.CanRedo {
		t.Errorf("history survived reset: canUndo=%v canRedo=%v", st.CanUndo, st.CanRedo)
	}
}

func TestTransformClamped(t *testing.T) {
	env := newTestEnv(t)
	env.upload(t, testImage(4, 4, color.RGBA{0, 0, 0, 255}))

	var applied editor.Transform
	decodeBody(t, env.postJSON(t, "/api/transform", editor.Transform{Zoom: 99, PanX: 5, PanY: -5}), &applied)
	if applied.Zoom != editor.MaxZoom {
		t.Errorf("zoom = %v, want clamped to %v", applied.Zoom, editor.MaxZoom)
	}
	if applied.PanX != 5 || applied.PanY != -5 {
		t.Errorf("pan = (%v,%v)", applied.PanX, applied.PanY)
	}
}

func TestExportJPEG(t *testing.T) {
	env := newTestEnv(t)
	env.upload(t, testImage(4, 4, color.RGBA{200, 10, 10, 255}))

	resp := env.postJSON(t, "/api/export", map[string]any{"format": "jpeg", "quality": 80})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("content type = %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Errorf("content disposition = %q", cd)
	}
}

func TestExportUnknownFormat(t *testing.T) {
	env := newTestEnv(t)
	env.upload(t, testImage(4, 4, color.RGBA{0, 0, 0, 255}))

	resp := env.postJSON(t, "/api/export", map[string]string{"format": "tiff"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestUploadRejectsNonImage(t *testing.T) {
	env := newTestEnv(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("image", "settings.xmp")
	if err != nil {
		t.Fatal(err)
	}
	fmt.Fprint(fw, `<x:xmpmeta xmlns:x="adobe:ns:meta/"></x:xmpmeta>`)
	mw.Close()

	resp, err := env.client.Post(env.srv.URL+"/api/image", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}
