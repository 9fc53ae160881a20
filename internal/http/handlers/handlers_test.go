package handlers

import (
	stdzip "archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"photobooth/internal/delivery"
	"photobooth/internal/domain"
)

type fakeRunner struct {
	jobs []domain.CaptureJob
	res  domain.PersistResult
	err  error
}

func (f *fakeRunner) Run(ctx context.Context, job domain.CaptureJob) (domain.PersistResult, error) {
	f.jobs = append(f.jobs, job)
	return f.res, f.err
}

type fakeSaver struct {
	url, screen string
}

func (f *fakeSaver) SaveRemote(ctx context.Context, imageURL, screenType string) (string, error) {
	f.url, f.screen = imageURL, screenType
	return "/srv/mirror/processed/" + screenType + "/x.jpg", nil
}

type fakeCatalog struct {
	allowed  []domain.EffectDefinition
	created  []domain.EffectDefinition
	groups   map[string]bool
	screenID string
	ids      []int64
}

func (f *fakeCatalog) ListAllowedEffects(ctx context.Context, screenID string) ([]domain.EffectDefinition, error) {
	if screenID == "missing" {
		return nil, domain.NewError(domain.KindNotFound, "screen %s", screenID)
	}
	return f.allowed, nil
}
func (f *fakeCatalog) ListEffects(ctx context.Context) ([]domain.EffectDefinition, error) {
	return f.allowed, nil
}
func (f *fakeCatalog) GetEffect(ctx context.Context, id int64) (domain.EffectDefinition, error) {
	for _, e := range f.allowed {
		if e.ID == id {
			return e, nil
		}
	}
	return domain.EffectDefinition{}, domain.NewError(domain.KindNotFound, "effect %d", id)
}
func (f *fakeCatalog) CreateEffect(ctx context.Context, def domain.EffectDefinition) (domain.EffectDefinition, error) {
	def.ID = int64(100 + len(f.created))
	f.created = append(f.created, def)
	return def, nil
}
func (f *fakeCatalog) UpdateEffect(ctx context.Context, def domain.EffectDefinition) (domain.EffectDefinition, error) {
	return def, nil
}
func (f *fakeCatalog) DeleteEffect(ctx context.Context, id int64) error { return nil }
func (f *fakeCatalog) SetScreenEffects(ctx context.Context, screenID string, effectIDs []int64) error {
	f.screenID, f.ids = screenID, effectIDs
	return nil
}
func (f *fakeCatalog) SetGroupEnabled(ctx context.Context, screenID, group string, enabled bool) error {
	if f.groups == nil {
		f.groups = map[string]bool{}
	}
	f.groups[screenID+"/"+group] = enabled
	return nil
}

type fakePhotos struct {
	photos []domain.PhotoRecord
}

func (f *fakePhotos) InsertPhoto(ctx context.Context, rec domain.PhotoRecord) (domain.PhotoRecord, error) {
	f.photos = append(f.photos, rec)
	return rec, nil
}
func (f *fakePhotos) GetPhoto(ctx context.Context, id string) (domain.PhotoRecord, error) {
	for _, p := range f.photos {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.PhotoRecord{}, domain.NewError(domain.KindNotFound, "photo %s", id)
}
func (f *fakePhotos) ListPhotosByEvent(ctx context.Context, eventID string) ([]domain.PhotoRecord, error) {
	var out []domain.PhotoRecord
	for _, p := range f.photos {
		if p.EventID == eventID {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeMailer struct {
	err  error
	sent []string
}

func (f *fakeMailer) SendPhoto(ctx context.Context, recipient string, photo domain.PhotoRecord) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, recipient+"|"+photo.ID)
	return "msg-1", nil
}

type fixture struct {
	app     *App
	runner  *fakeRunner
	saver   *fakeSaver
	catalog *fakeCatalog
	photos  *fakePhotos
	mailer  *fakeMailer
	router  http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		runner:  &fakeRunner{},
		saver:   &fakeSaver{},
		catalog: &fakeCatalog{},
		photos:  &fakePhotos{},
		mailer:  &fakeMailer{},
	}
	f.app = NewApp(Options{
		Pipeline:      f.runner,
		Saver:         f.saver,
		Catalog:       f.catalog,
		Photos:        f.photos,
		Mailer:        f.mailer,
		Links:         delivery.NewLinks("https://gallery.example"),
		MaxImageBytes: 1 << 20,
	})
	r := chi.NewRouter()
	r.Post("/apply-effects", f.app.ApplyEffects)
	r.Post("/save-processed", f.app.SaveProcessed)
	r.Get("/screens/{screenId}/effects", f.app.ScreenEffects)
	r.Get("/photos/{id}/qr", f.app.PhotoQR)
	r.Post("/photos/{id}/email", f.app.EmailPhoto)
	r.Post("/admin/effects", f.app.AdminCreateEffect)
	r.Put("/admin/screens/{screenId}/groups/{group}", f.app.AdminSetGroup)
	r.Put("/admin/screens/{screenId}/effects", f.app.AdminSetScreenEffects)
	r.Get("/admin/events/{eventId}/export", f.app.AdminExportEvent)
	f.router = r
	return f
}

func (f *fixture) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return out
}

func dataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func TestApplyEffectsMagical(t *testing.T) {
	f := newFixture(t)
	f.runner.res = domain.PersistResult{
		Record:   domain.PhotoRecord{ID: "p1", URL: "https://cdn/p1.jpg", OriginalURL: "https://cdn/o1.png"},
		Category: "vertical-category-1",
	}
	rec := f.do(http.MethodPost, "/apply-effects", map[string]string{
		"image":      dataURL("image/png", []byte("png-bytes")),
		"magicalId":  " cartoon_jpcartoon ",
		"screenId":   "screen-1",
		"screenType": "vertical",
		"eventId":    "ev-1",
		"standId":    "stand-2",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["success"] != true || body["imageUrl"] != "https://cdn/p1.jpg" || body["photoId"] != "p1" || body["category"] != "vertical-category-1" || body["originalUrl"] != "https://cdn/o1.png" {
		t.Fatalf("unexpected body %v", body)
	}
	if len(f.runner.jobs) != 1 {
		t.Fatalf("expected one job, got %d", len(f.runner.jobs))
	}
	job := f.runner.jobs[0]
	if job.EffectKey != "cartoon_jpcartoon" || job.ScreenID != "screen-1" || job.DeclaredFormat != "image/png" || string(job.Image) != "png-bytes" {
		t.Fatalf("unexpected job %+v", job)
	}
	if job.EventID != "ev-1" || job.StandID != "stand-2" || job.ScreenType != "vertical" {
		t.Fatalf("unexpected job metadata %+v", job)
	}
}

func TestApplyEffectsNormalSkipsEffect(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodPost, "/apply-effects", map[string]string{
		"image":      base64.StdEncoding.EncodeToString([]byte("raw")),
		"fileName":   "capture.jpg",
		"effectType": "normal",
		"magicalId":  "cartoon_jpcartoon",
		"normalId":   "bw",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	job := f.runner.jobs[0]
	if job.EffectKey != "" || job.NormalName != "bw" || job.DeclaredFormat != "capture.jpg" {
		t.Fatalf("unexpected job %+v", job)
	}
}

func TestApplyEffectsValidation(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name string
		body any
	}{
		{"missing image", map[string]string{"magicalId": "x", "screenId": "s"}},
		{"missing screen", map[string]string{"image": dataURL("image/png", []byte("x")), "magicalId": "x"}},
		{"bad effect type", map[string]string{"image": dataURL("image/png", []byte("x")), "effectType": "sparkly"}},
		{"bad file name", map[string]string{"image": "eA==", "fileName": "capture.gif"}},
		{"not base64", map[string]string{"image": "data:image/png;base64,@@@"}},
		{"not json", "{"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(http.MethodPost, "/apply-effects", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
			}
			if decodeBody(t, rec)["success"] != false {
				t.Fatalf("expected success=false")
			}
		})
	}
	if len(f.runner.jobs) != 0 {
		t.Fatalf("invalid requests must not reach the pipeline")
	}
}

func TestApplyEffectsBodyLimit(t *testing.T) {
	f := newFixture(t)
	big := strings.Repeat("A", 2<<20)
	rec := f.do(http.MethodPost, "/apply-effects", map[string]string{"image": big, "magicalId": "x", "screenId": "s"})
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestApplyEffectsErrorStatus(t *testing.T) {
	tests := []struct {
		kind domain.ErrorKind
		want int
	}{
		{domain.KindInvalidInput, http.StatusBadRequest},
		{domain.KindNotFound, http.StatusNotFound},
		{domain.KindProviderRejected, http.StatusBadGateway},
		{domain.KindProviderFailed, http.StatusBadGateway},
		{domain.KindNetworkError, http.StatusBadGateway},
		{domain.KindTimeout, http.StatusGatewayTimeout},
		{domain.KindPersistenceError, http.StatusInternalServerError},
		{domain.KindPartialPersistence, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			f := newFixture(t)
			f.runner.err = &domain.Error{Kind: tt.kind, Provider: "ailabapi", Code: 1001, Message: "Image too small"}
			rec := f.do(http.MethodPost, "/apply-effects", map[string]string{
				"image":     dataURL("image/jpeg", []byte("x")),
				"magicalId": "cartoon_jpcartoon",
				"screenId":  "s",
			})
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			body := decodeBody(t, rec)
			if msg, _ := body["error"].(string); !strings.Contains(msg, "Image too small (code 1001)") {
				t.Fatalf("error = %q", msg)
			}
		})
	}

	f := newFixture(t)
	f.runner.err = errors.New("boom")
	rec := f.do(http.MethodPost, "/apply-effects", map[string]string{"image": dataURL("image/jpeg", []byte("x"))})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("unknown error status = %d", rec.Code)
	}
}

func TestSaveProcessed(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodPost, "/save-processed", map[string]string{"imageUrl": "ftp://host/x.jpg"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("ftp status = %d", rec.Code)
	}
	rec = f.do(http.MethodPost, "/save-processed", map[string]string{"imageUrl": "https://cdn/x.jpg", "screenType": "horizontal"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if decodeBody(t, rec)["path"] != "/srv/mirror/processed/horizontal/x.jpg" || f.saver.url != "https://cdn/x.jpg" {
		t.Fatalf("unexpected save %+v body=%s", f.saver, rec.Body.String())
	}
}

func TestScreenEffects(t *testing.T) {
	f := newFixture(t)
	f.catalog.allowed = []domain.EffectDefinition{{
		ID: 7, DisplayName: "JP Cartoon", EffectGroup: domain.GroupCartoon,
		StaticParams: []domain.Param{{Name: "type", Value: "jpcartoon"}},
	}}
	rec := f.do(http.MethodGet, "/screens/screen-1/effects", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Effects []struct {
			ID  int64  `json:"id"`
			Key string `json:"key"`
		} `json:"effects"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Effects) != 1 || body.Effects[0].Key != "cartoon_jpcartoon" || body.Effects[0].ID != 7 {
		t.Fatalf("unexpected effects %+v", body.Effects)
	}
	if rec := f.do(http.MethodGet, "/screens/missing/effects", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("missing screen status = %d", rec.Code)
	}
}

func TestPhotoQR(t *testing.T) {
	f := newFixture(t)
	f.photos.photos = []domain.PhotoRecord{{ID: "p1", URL: "https://cdn/p1.jpg"}}
	rec := f.do(http.MethodGet, "/photos/p1/qr?size=256", nil)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("status = %d type=%s", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")) {
		t.Fatalf("expected png body")
	}
	if rec := f.do(http.MethodGet, "/photos/nope/qr", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown photo status = %d", rec.Code)
	}
}

func TestEmailPhoto(t *testing.T) {
	f := newFixture(t)
	f.photos.photos = []domain.PhotoRecord{{ID: "p1"}}
	if rec := f.do(http.MethodPost, "/photos/p1/email", map[string]string{"email": "nope"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid email status = %d", rec.Code)
	}
	rec := f.do(http.MethodPost, "/photos/p1/email", map[string]string{"email": "guest@example.com"})
	if rec.Code != http.StatusOK || len(f.mailer.sent) != 1 || f.mailer.sent[0] != "guest@example.com|p1" {
		t.Fatalf("status = %d sent=%v", rec.Code, f.mailer.sent)
	}

	f.mailer.err = delivery.ErrMailDisabled
	if rec := f.do(http.MethodPost, "/photos/p1/email", map[string]string{"email": "guest@example.com"}); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("disabled status = %d", rec.Code)
	}
}

func TestAdminCreateEffect(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodPost, "/admin/effects", map[string]any{
		"displayName":  "JP Cartoon",
		"providerName": "ailabapi",
		"endpoint":     "/api/portrait/effects/portrait-animation",
		"effectGroup":  "sparkles",
	})
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "effectGroup") {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}

	rec = f.do(http.MethodPost, "/admin/effects", map[string]any{
		"displayName":  "JP Cartoon",
		"providerName": "ailabapi",
		"endpoint":     "/api/portrait/effects/portrait-animation",
		"effectGroup":  "cartoon",
		"staticParams": []map[string]string{{"name": "type", "value": "jpcartoon"}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if len(f.catalog.created) != 1 || !f.catalog.created[0].IsVisible || f.catalog.created[0].EffectGroup != domain.GroupCartoon {
		t.Fatalf("unexpected created %+v", f.catalog.created)
	}
}

func TestAdminScreenSettings(t *testing.T) {
	f := newFixture(t)
	if rec := f.do(http.MethodPut, "/admin/screens/s1/groups/universe", map[string]any{}); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing enabled status = %d", rec.Code)
	}
	if rec := f.do(http.MethodPut, "/admin/screens/s1/groups/bogus", map[string]any{"enabled": true}); rec.Code != http.StatusBadRequest {
		t.Fatalf("bogus group status = %d", rec.Code)
	}
	if rec := f.do(http.MethodPut, "/admin/screens/s1/groups/universe", map[string]any{"enabled": false}); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if enabled, ok := f.catalog.groups["s1/universe"]; !ok || enabled {
		t.Fatalf("groups = %v", f.catalog.groups)
	}
	if rec := f.do(http.MethodPut, "/admin/screens/s1/effects", map[string]any{"effectIds": []int64{3, 0}}); rec.Code != http.StatusBadRequest {
		t.Fatalf("zero id status = %d", rec.Code)
	}
	if rec := f.do(http.MethodPut, "/admin/screens/s1/effects", map[string]any{"effectIds": []int64{3, 1}}); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if f.catalog.screenID != "s1" || len(f.catalog.ids) != 2 || f.catalog.ids[0] != 3 {
		t.Fatalf("screen effects = %s %v", f.catalog.screenID, f.catalog.ids)
	}
}

func TestAdminExportEvent(t *testing.T) {
	cdn := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/gone.jpg" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("jpeg:" + r.URL.Path))
	}))
	defer cdn.Close()

	f := newFixture(t)
	f.photos.photos = []domain.PhotoRecord{
		{ID: "p1", URL: cdn.URL + "/p1.jpg", EventID: "ev"},
		{ID: "p2", URL: cdn.URL + "/gone.jpg", EventID: "ev"},
		{ID: "p3", URL: cdn.URL + "/p3.jpg", EventID: "other"},
	}
	rec := f.do(http.MethodGet, "/admin/events/ev/export", nil)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/zip" {
		t.Fatalf("status = %d type=%s", rec.Code, rec.Header().Get("Content-Type"))
	}
	zr, err := stdzip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	names := map[string]bool{}
	for _, file := range zr.File {
		names[file.Name] = true
	}
	if len(names) != 2 || !names["p1.jpg"] || !names["manifest.json"] {
		t.Fatalf("entries = %v", names)
	}
}
