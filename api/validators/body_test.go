package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/paybridge/pkg/errors"
)

type samplePayload struct {
	Name  string `json:"name" validate:"required"`
	Count int    `json:"count" validate:"min=1"`
}

func newRequest(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
}

func TestDecodeJSONBody_Valid(t *testing.T) {
	var dest samplePayload
	if err := DecodeJSONBody(newRequest(`{"name":"a","count":2}`), &dest); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dest.Name != "a" || dest.Count != 2 {
		t.Fatalf("unexpected payload %+v", dest)
	}
}

func TestDecodeJSONBody_MalformedIsValidationError(t *testing.T) {
	var dest samplePayload
	err := DecodeJSONBody(newRequest(`{"name":`), &dest)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeJSONBody_UnknownFields(t *testing.T) {
	body := `{"name":"a","count":1,"extra":true}`

	var strict samplePayload
	if err := DecodeJSONBody(newRequest(body), &strict); err == nil {
		t.Fatal("expected unknown field to be rejected")
	}

	var lenient samplePayload
	if err := DecodeJSONBody(newRequest(body), &lenient, AllowUnknownFields()); err != nil {
		t.Fatalf("expected unknown field to be accepted, got %v", err)
	}
}

func TestDecodeJSONBody_ValidationDetails(t *testing.T) {
	var dest samplePayload
	err := DecodeJSONBody(newRequest(`{"count":0}`), &dest)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("expected details map, got %T", typed.Details())
	}
	if details["name"] != "is required" || details["count"] != "must be at least 1" {
		t.Fatalf("unexpected details %v", details)
	}
}
