package roboflow

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lewtec/labelsync/internal/domain"
)

// pngHeader is enough for content sniffing
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type recordedRequest struct {
	Method string
	Path   string
	Query  map[string]string
	Body   []byte
	Type   string
	File   []byte
	Part   string
}

type fakeAPI struct {
	mu       sync.Mutex
	requests []recordedRequest
	handler  func(w http.ResponseWriter, r *http.Request)
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := recordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  map[string]string{},
		Type:   r.Header.Get("Content-Type"),
	}
	for k := range r.URL.Query() {
		rec.Query[k] = r.URL.Query().Get(k)
	}
	if r.MultipartForm == nil && r.Header.Get("Content-Type") != "application/json" && r.Method == http.MethodPost {
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			if file, header, err := r.FormFile("file"); err == nil {
				rec.File, _ = io.ReadAll(file)
				rec.Part = header.Header.Get("Content-Type")
				file.Close()
			}
		}
	} else {
		rec.Body, _ = io.ReadAll(r.Body)
	}
	f.mu.Lock()
	f.requests = append(f.requests, rec)
	f.mu.Unlock()
	f.handler(w, r)
}

func newTestClient(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*Client, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{handler: handler}
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)
	client := NewClient(Config{APIURL: server.URL, APIKey: "secret", Split: "train"}, nil)
	return client, api
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, body)
}

func TestUploadImage_WithAnnotation(t *testing.T) {
	client, api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/dataset/boxes/upload":
			writeJSON(w, http.StatusOK, `{"success": true, "id": "img-1"}`)
		case "/dataset/boxes/annotate/img-1":
			writeJSON(w, http.StatusOK, `{"success": true}`)
		default:
			http.NotFound(w, r)
		}
	})

	annotation := domain.ConvertedAnnotation{
		Lines:    []string{"0 0.500000 0.500000 0.250000 0.250000"},
		LabelMap: map[int]string{0: "label"},
	}
	result, err := client.UploadImage(context.Background(), "acme/boxes", pngHeader, "a.png", annotation)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "img-1", result.ImageID)

	require.Len(t, api.requests, 2)
	upload := api.requests[0]
	assert.Equal(t, "secret", upload.Query["api_key"])
	assert.Equal(t, "a.png", upload.Query["name"])
	assert.Equal(t, "train", upload.Query["split"])
	assert.Equal(t, pngHeader, upload.File)
	assert.Equal(t, "image/png", upload.Part)

	annotate := api.requests[1]
	assert.Equal(t, "a.txt", annotate.Query["name"])
	var body annotationRequest
	require.NoError(t, json.Unmarshal(annotate.Body, &body))
	assert.Equal(t, "0 0.500000 0.500000 0.250000 0.250000", body.AnnotationFile)
	assert.Equal(t, map[string]string{"0": "label"}, body.LabelMap)
}

func TestUploadImage_EmptyAnnotationSkipsAnnotate(t *testing.T) {
	client, api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"success": true, "id": "img-2"}`)
	})

	result, err := client.UploadImage(context.Background(), "boxes", pngHeader, "b.png", domain.ConvertedAnnotation{})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Len(t, api.requests, 1)
}

func TestUploadImage_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"error string", http.StatusBadRequest, `{"error": "bad image"}`, "bad image"},
		{"error object", http.StatusBadRequest, `{"error": {"message": "project not found"}}`, "project not found"},
		{"unsuccessful 200", http.StatusOK, `{"success": false, "message": "quota exceeded"}`, "quota exceeded"},
		{"unsuccessful without message", http.StatusOK, `{"success": false}`, ""},
		{"non json error", http.StatusBadGateway, `upstream down`, "HTTP 502: upstream down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})
			result, err := client.UploadImage(context.Background(), "boxes", pngHeader, "a.png", domain.ConvertedAnnotation{})
			require.NoError(t, err)
			assert.False(t, result.Success)
			assert.Equal(t, tt.wantMsg, result.Error)
		})
	}
}

func TestUploadImage_AnnotateRejected(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/dataset/boxes/upload" {
			writeJSON(w, http.StatusOK, `{"duplicate": true, "id": "img-3"}`)
			return
		}
		writeJSON(w, http.StatusBadRequest, `{"error": {"message": "malformed annotation"}}`)
	})

	result, err := client.UploadImage(context.Background(), "boxes", pngHeader, "a.png",
		domain.ConvertedAnnotation{Lines: []string{"0 0.1 0.1 0.1 0.1"}})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "malformed annotation", result.Error)
	assert.Equal(t, "img-3", result.ImageID)
}

func TestUploadImage_TransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()
	client := NewClient(Config{APIURL: server.URL, APIKey: "secret"}, nil)

	_, err := client.UploadImage(context.Background(), "boxes", pngHeader, "a.png", domain.ConvertedAnnotation{})
	require.Error(t, err)
}

func TestUploadImage_NoAPIKey(t *testing.T) {
	client := NewClient(Config{}, nil)
	_, err := client.UploadImage(context.Background(), "boxes", pngHeader, "a.png", domain.ConvertedAnnotation{})
	assert.True(t, errors.Is(err, ErrNoAPIKey))
}

func TestListProjects(t *testing.T) {
	client, api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			writeJSON(w, http.StatusOK, `{"workspace": "acme"}`)
		case "/acme":
			writeJSON(w, http.StatusOK, `{"workspace": {"name": "Acme", "url": "acme", "projects": [
				{"id": "acme/boxes", "name": "Boxes", "type": "object-detection", "images": 42, "created": 1700000000.5, "updated": 1700000100}
			]}}`)
		default:
			http.NotFound(w, r)
		}
	})

	projects, err := client.ListProjects(context.Background())
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, domain.Project{
		ID:      "acme/boxes",
		Name:    "Boxes",
		Type:    "object-detection",
		Images:  42,
		Created: 1700000000,
		Updated: 1700000100,
	}, projects[0])
	assert.Len(t, api.requests, 2)
}

func TestListProjects_Unauthorized(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"error": "invalid api key"}`)
	})
	client.workspace = "acme"

	_, err := client.ListProjects(context.Background())
	assert.True(t, errors.Is(err, ErrUnauthorized))
}

func TestProjectSlug(t *testing.T) {
	assert.Equal(t, "boxes", projectSlug("boxes"))
	assert.Equal(t, "boxes", projectSlug("acme/boxes"))
	assert.Equal(t, "boxes", projectSlug("/acme/boxes/"))
	assert.Equal(t, "", projectSlug(""))
}
