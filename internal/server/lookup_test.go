package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mcp-nutrition-tracker/internal/models"
)

func gatewayServer(t *testing.T, text string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/openrouter-gateway" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		if status != http.StatusOK {
			http.Error(w, "boom", status)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"result": map[string]interface{}{
				"content": []map[string]interface{}{{"type": "text", "text": text}},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testProfileClient(url string) *ProfileClient {
	c := NewProfileClient()
	c.proxyURL = url
	c.apiKey = "test-key"
	return c
}

func TestProfileClientLookup(t *testing.T) {
	completion, _ := json.Marshal(map[string]string{
		"content": "Here you go:\n{\"name\":\"apple\",\"unit\":\"piece\",\"piece_avg_weight\":150,\"avg_gram\":null,\"cal\":52,\"protein\":0.3,\"fat\":0.2,\"carbohydrates\":14}",
	})
	srv := gatewayServer(t, string(completion), http.StatusOK)

	p, err := testProfileClient(srv.URL).LookupProfile(context.Background(), "apple")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	want := models.NutritionProfile{Name: "apple", Unit: models.UnitPiece, PieceAvgWeight: 150, Calories: 52, Protein: 0.3, Fat: 0.2, Carbs: 14}
	if *p != want {
		t.Errorf("expected %+v, got %+v", want, *p)
	}
}

func TestProfileClientLookupFailures(t *testing.T) {
	srv := gatewayServer(t, "", http.StatusBadGateway)
	if _, err := testProfileClient(srv.URL).LookupProfile(context.Background(), "apple"); err == nil {
		t.Error("expected error for gateway failure")
	}

	srv = gatewayServer(t, "I don't know that food", http.StatusOK)
	if _, err := testProfileClient(srv.URL).LookupProfile(context.Background(), "apple"); err == nil {
		t.Error("expected error for completion without JSON")
	}
}

func TestParseProfileValidation(t *testing.T) {
	tests := []struct {
		name string
		in   string
		ok   bool
	}{
		{"raw object", `{"name":"rice","unit":"Gram","avg_gram":200,"cal":130,"protein":2.7,"fat":0.3,"carbohydrates":28}`, true},
		{"bad unit", `{"name":"rice","unit":"cup","cal":130}`, false},
		{"negative density", `{"name":"rice","unit":"gram","cal":-1}`, false},
		{"truncated", `{"name":"rice","unit":"gram"`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := parseProfile(tt.in)
			if (err == nil) != tt.ok {
				t.Fatalf("expected ok=%v, got err=%v", tt.ok, err)
			}
			if tt.ok && p.Unit != models.UnitGram {
				t.Errorf("expected unit normalized to gram, got %q", p.Unit)
			}
		})
	}
}

func TestHTTPUploader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, hdr, err := r.FormFile("image")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "No image provided"})
			return
		}
		defer f.Close()
		b, _ := io.ReadAll(f)
		if string(b) != "jpegbytes" || !strings.HasPrefix(hdr.Filename, "photo.") {
			t.Errorf("unexpected upload %q %q", hdr.Filename, b)
		}
		json.NewEncoder(w).Encode(map[string]string{"url": "https://cdn.example/abc.png"})
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "meal.png")
	if err := os.WriteFile(path, []byte("jpegbytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	u := NewHTTPUploader(srv.URL)
	url, err := u.Upload(context.Background(), "file://"+path)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if url != "https://cdn.example/abc.png" {
		t.Errorf("unexpected url %q", url)
	}

	if got, err := u.Upload(context.Background(), "https://already.hosted/x.jpg"); err != nil || got != "https://already.hosted/x.jpg" {
		t.Errorf("hosted image should pass through, got %q %v", got, err)
	}
	if _, err := u.Upload(context.Background(), ""); err == nil {
		t.Error("expected error for empty image")
	}
	if _, err := NewHTTPUploader("").Upload(context.Background(), path); err == nil {
		t.Error("expected error without upload endpoint")
	}
}

func TestHTTPUploaderServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "disk full"})
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "meal.jpg")
	os.WriteFile(path, []byte("x"), 0o644)

	_, err := NewHTTPUploader(srv.URL).Upload(context.Background(), path)
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Errorf("expected upload error mentioning disk full, got %v", err)
	}
}
