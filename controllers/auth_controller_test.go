package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/HSouheill/matrix_backend/models"
)

func postJSON(t *testing.T, handler echo.HandlerFunc, body string) (*httptest.ResponseRecorder, models.Response) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	if err := handler(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler: %v", err)
	}
	var resp models.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return rec, resp
}

func TestGetRememberedCredentials_RequiresToken(t *testing.T) {
	ac := NewAuthController(nil)

	rec, resp := postJSON(t, ac.GetRememberedCredentials, `{}`)
	if rec.Code != http.StatusBadRequest || resp.Status != http.StatusBadRequest {
		t.Fatalf("code = %d resp = %+v, want 400", rec.Code, resp)
	}
}

func TestGetRememberedCredentials_WithoutRedis(t *testing.T) {
	ac := NewAuthController(nil)

	rec, resp := postJSON(t, ac.GetRememberedCredentials, `{"rememberMeToken":"some-token"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("code = %d, want 500 when the credential store is down", rec.Code)
	}
	if !strings.Contains(resp.Message, "unavailable") {
		t.Errorf("message = %q", resp.Message)
	}
}

func TestRemoveRememberedCredentials_RequiresToken(t *testing.T) {
	ac := NewAuthController(nil)

	rec, _ := postJSON(t, ac.RemoveRememberedCredentials, `{"rememberMeToken":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400", rec.Code)
	}
}

func TestRemoveRememberedCredentials_WithoutRedis(t *testing.T) {
	ac := NewAuthController(nil)

	rec, _ := postJSON(t, ac.RemoveRememberedCredentials, `{"rememberMeToken":"some-token"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("code = %d, want 500 when the credential store is down", rec.Code)
	}
}
