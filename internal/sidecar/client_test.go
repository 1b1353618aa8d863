// client_test.go — тесты клиента и обработчика Upload Sidecar.
package sidecar

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bigkaa/rentstore/internal/blobstore"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newSidecarServer поднимает полный стек sidecar: blobstore + handler.
func newSidecarServer(t *testing.T, maxUploadBytes int64) *httptest.Server {
	t.Helper()

	store, err := blobstore.New(t.TempDir())
	if err != nil {
		t.Fatalf("blobstore.New: %v", err)
	}
	h := NewHandler(store, maxUploadBytes, testLogger())

	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload", h.Upload)
	mux.HandleFunc("GET /health", h.Health)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientUpload(t *testing.T) {
	srv := newSidecarServer(t, 1<<20)
	client := NewClient(srv.URL, 5*time.Second, testLogger())

	content := "содержимое файла"
	hash, size, err := client.Upload(context.Background(), "report.pdf", strings.NewReader(content))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	sum := sha256.Sum256([]byte(content))
	if hash != hex.EncodeToString(sum[:]) {
		t.Errorf("hash = %s, ожидался SHA-256 содержимого", hash)
	}
	if size != int64(len(content)) {
		t.Errorf("size = %d, ожидалось %d", size, len(content))
	}
}

func TestClientUploadServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second, testLogger())
	_, _, err := client.Upload(context.Background(), "x", strings.NewReader("x"))
	if err == nil {
		t.Fatal("ожидалась ошибка при статусе 500")
	}
}

func TestClientUploadUnreachable(t *testing.T) {
	// Закрытый сервер: соединение отклоняется.
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	client := NewClient(srv.URL, time.Second, testLogger())
	_, _, err := client.Upload(context.Background(), "x", strings.NewReader("x"))
	if err == nil {
		t.Fatal("ожидалась ошибка соединения")
	}
}

func TestClientCheckReady(t *testing.T) {
	srv := newSidecarServer(t, 1<<20)
	client := NewClient(srv.URL, 5*time.Second, testLogger())

	if err := client.CheckReady(context.Background()); err != nil {
		t.Errorf("CheckReady: %v", err)
	}
}

func TestHandlerUploadMissingFile(t *testing.T) {
	srv := newSidecarServer(t, 1<<20)

	// Multipart без поля file.
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("other", "значение")
	mw.Close()

	resp, err := http.Post(srv.URL+"/upload", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, ожидалось 400", resp.StatusCode)
	}

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("декодирование ответа: %v", err)
	}
	if body.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("code = %q, ожидалось VALIDATION_ERROR", body.Error.Code)
	}
}

func TestHandlerUploadTooLarge(t *testing.T) {
	srv := newSidecarServer(t, 64)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("file", "big.bin")
	_, _ = part.Write(bytes.Repeat([]byte("x"), 1024))
	mw.Close()

	resp, err := http.Post(srv.URL+"/upload", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, ожидалось 413", resp.StatusCode)
	}
}
