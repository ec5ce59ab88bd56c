package openapi_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JaimeStill/glimpse/pkg/openapi"
)

func TestNewSpec(t *testing.T) {
	spec := openapi.NewSpec("Test API", "1.0.0")

	if spec.OpenAPI != "3.1.0" {
		t.Errorf("openapi version: got %s, want 3.1.0", spec.OpenAPI)
	}
	if spec.Info.Title != "Test API" {
		t.Errorf("title: got %s, want Test API", spec.Info.Title)
	}
	if spec.Components.SecuritySchemes[openapi.BearerScheme] == nil {
		t.Error("missing bearer security scheme")
	}
	if len(spec.Security) != 1 {
		t.Errorf("default security: got %v", spec.Security)
	}
}

func TestAddOperation(t *testing.T) {
	spec := openapi.NewSpec("Test", "1.0.0")
	get := &openapi.Operation{Summary: "get"}
	put := &openapi.Operation{Summary: "put"}

	spec.AddOperation("/items/{id}", http.MethodGet, get)
	spec.AddOperation("/items/{id}", http.MethodPut, put)
	spec.AddOperation("/items/{id}", "PATCH", &openapi.Operation{})

	item := spec.Paths["/items/{id}"]
	if item.Get != get || item.Put != put {
		t.Errorf("operations not attached: %+v", item)
	}
	if item.Post != nil || item.Delete != nil {
		t.Error("unexpected operations")
	}
}

func TestPublicOperationSerializesEmptySecurity(t *testing.T) {
	spec := openapi.NewSpec("Test", "1.0.0")
	spec.AddOperation("/auth/session", http.MethodPost, (&openapi.Operation{Summary: "sign in"}).Public())
	spec.AddOperation("/users/me", http.MethodGet, &openapi.Operation{Summary: "me"})

	data, err := openapi.MarshalJSON(spec)
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}

	var doc struct {
		Paths map[string]map[string]map[string]json.RawMessage `json:"paths"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if got := string(doc.Paths["/auth/session"]["post"]["security"]); got != "[]" {
		t.Errorf("public security: got %s, want []", got)
	}
	if _, found := doc.Paths["/users/me"]["get"]["security"]; found {
		t.Error("protected operation should inherit document security")
	}
}

func TestComponentsErrorResponses(t *testing.T) {
	c := openapi.NewComponents()

	for _, name := range []string{"BadRequest", "Unauthorized", "Forbidden", "NotFound", "Conflict", "PayloadTooLarge"} {
		r, ok := c.Responses[name]
		if !ok {
			t.Errorf("missing response %s", name)
			continue
		}
		if r.Content["application/json"].Schema.Ref != "#/components/schemas/Error" {
			t.Errorf("%s schema: got %s", name, r.Content["application/json"].Schema.Ref)
		}
	}
}

func TestServeSpec(t *testing.T) {
	body := []byte(`{"openapi":"3.1.0"}`)
	handler := openapi.ServeSpec(body)

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest("GET", "/openapi.json", nil))

	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		t.Errorf("content type: got %s", rec.Header().Get("Content-Type"))
	}
	got, _ := io.ReadAll(rec.Body)
	if string(got) != string(body) {
		t.Errorf("body: got %s", got)
	}
}

func TestConfigDefaults(t *testing.T) {
	var cfg openapi.Config
	if err := cfg.Finalize(nil); err != nil {
		t.Fatal(err)
	}
	if cfg.Title != "Glimpse API" {
		t.Errorf("title: got %s", cfg.Title)
	}
}
