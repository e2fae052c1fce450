package analysisapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fixmystore/audit-engine/internal/domain/audit"
)

func TestValidateShopifySuccess(t *testing.T) {
	var gotAuth, gotURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/stepwise-analysis/validate-shopify" {
			t.Errorf("path = %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		gotURL = body["url"]
		fmt.Fprint(w, `{"success":true,"message":"ok","data":{"isShopify":true,"storeInfo":{"name":"Demo"}}}`)
	}))
	defer srv.Close()

	c := New(srv.URL, "secret", time.Second)
	res, err := c.ValidateShopify(context.Background(), "demo.myshopify.com")
	if err != nil {
		t.Fatalf("ValidateShopify: %v", err)
	}
	if !res.IsShopify {
		t.Error("IsShopify = false")
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	// The client normalizes before dialing.
	if gotURL != "https://demo.myshopify.com" {
		t.Errorf("sent url = %q", gotURL)
	}
}

// isShopify=false is a result, not a transport error. The caller decides.
func TestValidateShopifyNegativeResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":true,"data":{"isShopify":false,"error":"Not a Shopify store"}}`)
	}))
	defer srv.Close()

	c := New(srv.URL, "", time.Second)
	res, err := c.ValidateShopify(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("negative validation must not error: %v", err)
	}
	if res.IsShopify {
		t.Error("IsShopify = true")
	}
	if res.Error != "Not a Shopify store" {
		t.Errorf("Error = %q", res.Error)
	}
}

func TestCallSurfacesBackendMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"success":false,"message":"screenshot service unavailable"}`)
	}))
	defer srv.Close()

	c := New(srv.URL, "", time.Second)
	_, err := c.TakeScreenshot(context.Background(), "https://shop.example.com", audit.PageHomepage)
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "screenshot service unavailable" {
		t.Errorf("err = %q, want the backend's message verbatim", err)
	}
}

func TestCallNonJSONFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "upstream exploded")
	}))
	defer srv.Close()

	c := New(srv.URL, "", time.Second)
	_, err := c.AnalyzeWithGemini(context.Background(), "/tmp/shot.png")
	if err == nil {
		t.Fatal("expected error for non-JSON 502")
	}
}

func TestAnalyzeWithChecklistSingleEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":true,"data":{"checklistAnalysis":[{"checklistItem":"Hero CTA","status":"FAIL","reason":"missing"}],"pageType":"homepage","itemCount":1}}`)
	}))
	defer srv.Close()

	c := New(srv.URL, "", time.Second)
	var chunks int
	res, err := c.AnalyzeWithChecklist(context.Background(), "analysis", audit.PageHomepage, "", func(audit.ChunkProgress) { chunks++ })
	if err != nil {
		t.Fatalf("AnalyzeWithChecklist: %v", err)
	}
	if chunks != 0 {
		t.Errorf("plain response fired %d chunk callbacks", chunks)
	}
	if len(res.ChecklistAnalysis) != 1 || res.ItemCount != 1 {
		t.Errorf("res = %+v", res)
	}
}

func TestAnalyzeWithChecklistChunked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["category"] != "fashion" {
			t.Errorf("category = %q", body["category"])
		}
		fmt.Fprintln(w, `{"success":true,"data":{"chunkNumber":1,"totalChunks":3,"isComplete":false,"checklistAnalysis":[{"checklistItem":"a","status":"FAIL","reason":"r"},{"checklistItem":"b","status":"FAIL","reason":"r"}]}}`)
		fmt.Fprintln(w, `{"success":true,"data":{"chunkNumber":2,"totalChunks":3,"isComplete":false,"checklistAnalysis":[{"checklistItem":"c","status":"FAIL","reason":"r"}]}}`)
		fmt.Fprintln(w, `{"success":true,"data":{"chunkNumber":3,"totalChunks":3,"isComplete":true,"checklistAnalysis":[{"checklistItem":"d","status":"FAIL","reason":"r"}]}}`)
	}))
	defer srv.Close()

	c := New(srv.URL, "", time.Second)
	var seen []audit.ChunkProgress
	res, err := c.AnalyzeWithChecklist(context.Background(), "analysis", audit.PageHomepage, "fashion", func(cp audit.ChunkProgress) {
		seen = append(seen, cp)
	})
	if err != nil {
		t.Fatalf("AnalyzeWithChecklist: %v", err)
	}

	if len(seen) != 3 {
		t.Fatalf("saw %d chunks, want 3", len(seen))
	}
	for i, cp := range seen {
		if cp.CurrentChunk != i+1 {
			t.Errorf("chunk %d reported CurrentChunk=%d", i, cp.CurrentChunk)
		}
		if cp.TotalChunks != 3 {
			t.Errorf("chunk %d TotalChunks=%d", i, cp.TotalChunks)
		}
	}
	if !seen[2].IsComplete {
		t.Error("last chunk should be marked complete")
	}
	if len(res.ChecklistAnalysis) != 4 {
		t.Errorf("aggregate has %d items, want 4", len(res.ChecklistAnalysis))
	}
	if res.ItemCount != 4 {
		t.Errorf("ItemCount = %d, want 4", res.ItemCount)
	}
}

func TestAnalyzeWithChecklistMidStreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"success":true,"data":{"chunkNumber":1,"totalChunks":2,"isComplete":false,"checklistAnalysis":[{"checklistItem":"a","status":"FAIL","reason":"r"}]}}`)
		fmt.Fprintln(w, `{"success":false,"message":"model overloaded"}`)
	}))
	defer srv.Close()

	c := New(srv.URL, "", time.Second)
	_, err := c.AnalyzeWithChecklist(context.Background(), "analysis", audit.PageHomepage, "", nil)
	if err == nil || err.Error() != "model overloaded" {
		t.Errorf("err = %v, want the mid-stream failure message", err)
	}
}

func TestAnalyzeWithChecklistPayloadError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":true,"data":{"error":"no checklist for this page"}}`)
	}))
	defer srv.Close()

	c := New(srv.URL, "", time.Second)
	_, err := c.AnalyzeWithChecklist(context.Background(), "analysis", audit.PageCart, "", nil)
	if err == nil || err.Error() != "no checklist for this page" {
		t.Errorf("err = %v", err)
	}
}
