package httpapi

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ironsheep/photo-forensics-mcp/internal/config"
	"github.com/ironsheep/photo-forensics-mcp/internal/exiftest"
	"github.com/ironsheep/photo-forensics-mcp/internal/metadata"
	"github.com/ironsheep/photo-forensics-mcp/internal/workspace"
)

type upload struct {
	name string
	data []byte
}

func multipartBody(t *testing.T, files ...upload) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := mw.CreateFormFile(uploadField, f.name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := part.Write(f.data); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func grayPNG(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 128
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func taggedJPEG(t *testing.T) []byte {
	return exiftest.SolidJPEG(t, 64, 48, color.Gray{Y: 128}, exiftest.Tags{
		Make:      "Acme",
		Model:     "X1",
		HasGPS:    true,
		Latitude:  10,
		Longitude: 20,
	})
}

func newTestAPI() (*API, http.Handler) {
	api := New(config.Default(), workspace.New(), nil)
	return api, api.Routes()
}

func do(t *testing.T, h http.Handler, method, target string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, body)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to decode body: %v\n%s", err, rec.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	_, h := newTestAPI()
	rec := do(t, h, http.MethodGet, "/healthz", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	var body map[string]string
	decode(t, rec, &body)
	if body["status"] != "ok" {
		t.Errorf("body: got %v", body)
	}
}

type analyzeResponse struct {
	Results []struct {
		Name   string `json:"name"`
		ID     string `json:"id"`
		Report *struct {
			HasGPS             bool `json:"has_gps"`
			HasDeviceSignature bool `json:"has_device_signature"`
			Stripped           *struct {
				Quality int `json:"quality"`
			} `json:"stripped"`
			Overlay *struct {
				Data string `json:"data"`
			} `json:"overlay"`
		} `json:"report"`
		Error   string `json:"error"`
		Message string `json:"message"`
	} `json:"results"`
}

func TestAnalyze(t *testing.T) {
	api, h := newTestAPI()
	body, ct := multipartBody(t, upload{"photo.jpg", taggedJPEG(t)})

	rec := do(t, h, http.MethodPost, "/v1/analyze?strip=1", body, ct)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp analyzeResponse
	decode(t, rec, &resp)
	if len(resp.Results) != 1 {
		t.Fatalf("results: got %d, want 1", len(resp.Results))
	}
	res := resp.Results[0]
	if res.Name != "photo.jpg" || res.ID == "" || res.Report == nil {
		t.Fatalf("result: %+v", res)
	}
	if !res.Report.HasGPS || !res.Report.HasDeviceSignature {
		t.Errorf("report flags: %+v", res.Report)
	}
	if res.Report.Stripped == nil || res.Report.Stripped.Quality != 95 {
		t.Errorf("stripped artifact missing: %+v", res.Report.Stripped)
	}

	if api.ws.Len() != 1 {
		t.Errorf("workspace Len: got %d, want 1", api.ws.Len())
	}
	if cur, err := api.ws.Current(); err != nil || cur.ID != res.ID {
		t.Errorf("workspace current: got %v, %v", cur, err)
	}
}

func TestAnalyze_WorkspaceKeepsNoPixels(t *testing.T) {
	api, h := newTestAPI()
	body, ct := multipartBody(t, upload{"photo.jpg", taggedJPEG(t)})

	rec := do(t, h, http.MethodPost, "/v1/analyze?overlay=1&strip=1", body, ct)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var resp analyzeResponse
	decode(t, rec, &resp)
	if ov := resp.Results[0].Report.Overlay; ov == nil || ov.Data == "" {
		t.Fatalf("response should carry the overlay image: %+v", ov)
	}

	cur, err := api.ws.Current()
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	r := cur.Report
	if r.Sample != nil || r.Overlay.Image != nil || r.Overlay.Data != "" || r.Stripped.Data != nil {
		t.Error("workspace entry holds pixel buffers")
	}
	if r.Overlay.Width != 64 || r.Stripped.Quality != 95 || r.Digest.Hex == "" {
		t.Errorf("workspace entry lost its summary: %+v", r)
	}
}

func TestAnalyze_Batch(t *testing.T) {
	api, h := newTestAPI()
	body, ct := multipartBody(t,
		upload{"a.png", grayPNG(t, 20, 10)},
		upload{"broken.jpg", []byte("not an image")},
		upload{"c.jpg", taggedJPEG(t)},
	)

	rec := do(t, h, http.MethodPost, "/v1/analyze", body, ct)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}

	var resp analyzeResponse
	decode(t, rec, &resp)
	if len(resp.Results) != 3 {
		t.Fatalf("results: got %d, want 3", len(resp.Results))
	}
	for i, name := range []string{"a.png", "broken.jpg", "c.jpg"} {
		if resp.Results[i].Name != name {
			t.Errorf("results[%d].Name: got %s, want %s", i, resp.Results[i].Name, name)
		}
	}
	if resp.Results[1].Report != nil || resp.Results[1].Message != "could not analyze this image" {
		t.Errorf("broken upload: %+v", resp.Results[1])
	}
	if resp.Results[0].Report == nil || resp.Results[2].Report == nil {
		t.Error("valid uploads should have reports")
	}
	if api.ws.Len() != 2 {
		t.Errorf("workspace Len: got %d, want 2", api.ws.Len())
	}
}

func TestAnalyze_Errors(t *testing.T) {
	tests := []struct {
		name       string
		build      func(t *testing.T) (*bytes.Buffer, string)
		maxUpload  int64
		wantStatus int
	}{
		{
			"single undecodable file",
			func(t *testing.T) (*bytes.Buffer, string) {
				return multipartBody(t, upload{"x.jpg", []byte("garbage")})
			},
			0,
			http.StatusUnprocessableEntity,
		},
		{
			"empty file",
			func(t *testing.T) (*bytes.Buffer, string) {
				return multipartBody(t, upload{"empty.jpg", nil})
			},
			0,
			http.StatusUnprocessableEntity,
		},
		{
			"no file field",
			func(t *testing.T) (*bytes.Buffer, string) {
				return multipartBody(t)
			},
			0,
			http.StatusBadRequest,
		},
		{
			"not multipart",
			func(t *testing.T) (*bytes.Buffer, string) {
				return bytes.NewBufferString(`{"file":"x"}`), "application/json"
			},
			0,
			http.StatusBadRequest,
		},
		{
			"upload over the size limit",
			func(t *testing.T) (*bytes.Buffer, string) {
				return multipartBody(t, upload{"big.png", bytes.Repeat([]byte{0xAB}, 8<<10)})
			},
			1024,
			http.StatusRequestEntityTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			if tt.maxUpload > 0 {
				cfg.HTTP.MaxUploadBytes = tt.maxUpload
			}
			api := New(cfg, workspace.New(), nil)
			h := api.Routes()
			body, ct := tt.build(t)
			rec := do(t, h, http.MethodPost, "/v1/analyze", body, ct)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status: got %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			var resp map[string]string
			decode(t, rec, &resp)
			if resp["error"] == "" {
				t.Error("error body should carry a message")
			}
			if api.ws.Len() != 0 {
				t.Error("failed uploads should not reach the workspace")
			}
		})
	}
}

func TestStrip(t *testing.T) {
	_, h := newTestAPI()
	body, ct := multipartBody(t, upload{"holiday.jpg", taggedJPEG(t)})

	rec := do(t, h, http.MethodPost, "/v1/strip?quality=80", body, ct)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("Content-Type: got %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, `"holiday-stripped.jpg"`) {
		t.Errorf("Content-Disposition: got %q", cd)
	}

	data := rec.Body.Bytes()
	if !bytes.HasPrefix(data, []byte{0xFF, 0xD8}) {
		t.Fatal("body is not a JPEG")
	}
	md, err := metadata.Parse(data)
	if err != nil {
		t.Fatalf("metadata.Parse failed: %v", err)
	}
	if !md.Empty() {
		t.Errorf("stripped image still has metadata: %+v", md)
	}
}

func TestStrip_Errors(t *testing.T) {
	_, h := newTestAPI()

	body, ct := multipartBody(t, upload{"a.jpg", taggedJPEG(t)})
	if rec := do(t, h, http.MethodPost, "/v1/strip?quality=0", body, ct); rec.Code != http.StatusBadRequest {
		t.Errorf("quality=0: got %d, want 400", rec.Code)
	}

	body, ct = multipartBody(t, upload{"a.jpg", []byte("nope")})
	rec := do(t, h, http.MethodPost, "/v1/strip", body, ct)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("undecodable: got %d, want 422", rec.Code)
	}

	cfg := config.Default()
	cfg.HTTP.MaxUploadBytes = 1024
	small := New(cfg, nil, nil).Routes()
	body, ct = multipartBody(t, upload{"big.jpg", bytes.Repeat([]byte{0xAB}, 8<<10)})
	if rec := do(t, small, http.MethodPost, "/v1/strip", body, ct); rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("oversized: got %d, want 413", rec.Code)
	}
}

func TestHash(t *testing.T) {
	_, h := newTestAPI()
	payload := []byte("original bytes as uploaded")
	sum := sha256.Sum256(payload)

	rec := do(t, h, http.MethodPost, "/v1/hash", bytes.NewBuffer(payload), "application/octet-stream")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	var digest struct {
		Algorithm string `json:"algorithm"`
		Hex       string `json:"hex"`
	}
	decode(t, rec, &digest)
	if digest.Algorithm != "sha256" || digest.Hex != hex.EncodeToString(sum[:]) {
		t.Errorf("digest: got %+v", digest)
	}

	rec = do(t, h, http.MethodPost, "/v1/hash?algorithm=blake3", bytes.NewBuffer(payload), "")
	decode(t, rec, &digest)
	if digest.Algorithm != "blake3" || len(digest.Hex) != 64 {
		t.Errorf("blake3 digest: got %+v", digest)
	}

	rec = do(t, h, http.MethodPost, "/v1/hash?algorithm=BLAKE3", bytes.NewBuffer(payload), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("BLAKE3: got %d, want 200", rec.Code)
	}
	decode(t, rec, &digest)
	if digest.Algorithm != "blake3" {
		t.Errorf("BLAKE3 digest: got %+v", digest)
	}

	rec = do(t, h, http.MethodPost, "/v1/hash?algorithm=md5", bytes.NewBuffer(payload), "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("md5: got %d, want 400", rec.Code)
	}
}

func TestHash_TooLarge(t *testing.T) {
	cfg := config.Default()
	cfg.HTTP.MaxUploadBytes = 16
	h := New(cfg, nil, nil).Routes()

	rec := do(t, h, http.MethodPost, "/v1/hash", bytes.NewBufferString(strings.Repeat("x", 64)), "")
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status: got %d, want 413", rec.Code)
	}
}

func TestWorkspaceEndpoints(t *testing.T) {
	api, h := newTestAPI()

	if rec := do(t, h, http.MethodGet, "/v1/workspace/current", nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("current on empty workspace: got %d, want 404", rec.Code)
	}

	a := api.ws.Add("a.jpg", nil)
	b := api.ws.Add("b.jpg", nil)

	rec := do(t, h, http.MethodGet, "/v1/workspace", nil, "")
	var list struct {
		Selected int                 `json:"selected"`
		Entries  []workspace.Summary `json:"entries"`
	}
	decode(t, rec, &list)
	if list.Selected != 0 || len(list.Entries) != 2 || list.Entries[1].ID != b.ID {
		t.Errorf("list: got %+v", list)
	}

	rec = do(t, h, http.MethodPost, "/v1/workspace/select/1", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("select: got %d", rec.Code)
	}
	var entry workspace.Entry
	decode(t, rec, &entry)
	if entry.ID != b.ID {
		t.Errorf("selected: got %s, want %s", entry.ID, b.ID)
	}

	rec = do(t, h, http.MethodGet, "/v1/workspace/current", nil, "")
	decode(t, rec, &entry)
	if entry.Name != "b.jpg" {
		t.Errorf("current: got %s", entry.Name)
	}

	for target, want := range map[string]int{
		"/v1/workspace/select/7":   http.StatusNotFound,
		"/v1/workspace/select/abc": http.StatusBadRequest,
	} {
		if rec := do(t, h, http.MethodPost, target, nil, ""); rec.Code != want {
			t.Errorf("%s: got %d, want %d", target, rec.Code, want)
		}
	}

	if rec := do(t, h, http.MethodDelete, "/v1/workspace/"+a.ID, nil, ""); rec.Code != http.StatusNoContent {
		t.Errorf("delete: got %d, want 204", rec.Code)
	}
	if rec := do(t, h, http.MethodDelete, "/v1/workspace/"+a.ID, nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("second delete: got %d, want 404", rec.Code)
	}
	if api.ws.Len() != 1 || api.ws.SelectedIndex() != 0 {
		t.Errorf("after delete: len %d, selected %d", api.ws.Len(), api.ws.SelectedIndex())
	}
}
