package notary

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAttestPostsAndReturnsRef(t *testing.T) {
	var got attestRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/attest" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(attestResponse{Ref: "att-42"})
	}))
	defer srv.Close()

	c := NewHTTP(srv.URL)
	ref, err := c.Attest(context.Background(), "msg-1", "deadbeef")
	if err != nil {
		t.Fatalf("Attest: %v", err)
	}
	if ref != "att-42" {
		t.Fatalf("ref: got %q, want att-42", ref)
	}
	if got.MessageID != "msg-1" || got.Hash != "deadbeef" {
		t.Fatalf("request body: %+v", got)
	}
}

func TestAttestSurfacesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := NewHTTP(srv.URL).Attest(context.Background(), "msg-1", "deadbeef"); err == nil {
		t.Fatal("want error on 500, got nil")
	}
}

func TestAttestHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewHTTP(srv.URL).Attest(ctx, "msg-1", "deadbeef"); err == nil {
		t.Fatal("want error from cancelled context, got nil")
	}
}
