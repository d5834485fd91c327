package httpapp

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v5"

	"github.com/open-idm/open-idm/internal/apperr"
	"github.com/open-idm/open-idm/internal/http/handlers"
)

func newErrorHandlerContext(t *testing.T, target string) (*echo.Context, *httptest.ResponseRecorder, *EchoServer) {
	t.Helper()
	e := echo.New()
	e.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec, &EchoServer{h: &handlers.Handlers{}, e: e}
}

func TestHTTPErrorHandlerInternalErrorIsGeneric(t *testing.T) {
	c, rec, es := newErrorHandlerContext(t, "http://example.com/test")
	c.Set(handlers.ContextKeyRequestID, "req-123")

	es.httpErrorHandler(c, errors.New("very sensitive error"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d want %d", rec.Code, http.StatusInternalServerError)
	}

	body := rec.Body.String()
	if strings.Contains(body, "very sensitive") {
		t.Fatalf("response leaked error details: %q", body)
	}
	if !strings.Contains(body, "Internal server error") {
		t.Fatalf("response missing generic message: %q", body)
	}
	if !strings.Contains(body, "Reference: req-123") {
		t.Fatalf("response missing request reference: %q", body)
	}
	if !strings.Contains(body, "Code: "+handlers.InternalErrorCode) {
		t.Fatalf("response missing error code: %q", body)
	}
}

func TestHTTPErrorHandlerNotFoundDoesNotLeakMessage(t *testing.T) {
	c, rec, es := newErrorHandlerContext(t, "http://example.com/missing")

	es.httpErrorHandler(c, echo.NewHTTPError(http.StatusNotFound, "leaky not found"))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d want %d", rec.Code, http.StatusNotFound)
	}

	body := rec.Body.String()
	if strings.Contains(body, "leaky") {
		t.Fatalf("response leaked error details: %q", body)
	}
	if !strings.Contains(body, "404 page not found") {
		t.Fatalf("response missing not found message: %q", body)
	}
}

func TestHTTPErrorHandlerEchoErrNotFoundUsesNotFoundStatus(t *testing.T) {
	c, rec, es := newErrorHandlerContext(t, "http://example.com/missing")

	es.httpErrorHandler(c, echo.ErrNotFound)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d want %d", rec.Code, http.StatusNotFound)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "404 page not found") {
		t.Fatalf("response missing not found message: %q", body)
	}
}

func TestHTTPStatusFromErrorUsesStatusCoder(t *testing.T) {
	if got := httpStatusFromError(echo.ErrNotFound); got != http.StatusNotFound {
		t.Fatalf("status=%d want %d", got, http.StatusNotFound)
	}
	if got := httpStatusFromError(echo.ErrForbidden); got != http.StatusForbidden {
		t.Fatalf("status=%d want %d", got, http.StatusForbidden)
	}
	if got := httpStatusFromError(errors.New("boom")); got != http.StatusInternalServerError {
		t.Fatalf("status=%d want %d", got, http.StatusInternalServerError)
	}
}

func TestHTTPErrorHandlerBadRequestUsesStatusText(t *testing.T) {
	c, rec, es := newErrorHandlerContext(t, "http://example.com/bad")

	es.httpErrorHandler(c, echo.NewHTTPError(http.StatusBadRequest, "leaky bad request"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d want %d", rec.Code, http.StatusBadRequest)
	}

	body := rec.Body.String()
	if strings.Contains(body, "leaky") {
		t.Fatalf("response leaked error details: %q", body)
	}
	if got := strings.TrimSpace(body); got != http.StatusText(http.StatusBadRequest) {
		t.Fatalf("body=%q want %q", got, http.StatusText(http.StatusBadRequest))
	}
}

func TestHTTPErrorHandlerValidationErrorListsFields(t *testing.T) {
	c, rec, es := newErrorHandlerContext(t, "http://example.com/systems")

	es.httpErrorHandler(c, apperr.Invalid("name", "is required"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d want %d", rec.Code, http.StatusBadRequest)
	}

	var body struct {
		Error  string `json:"error"`
		Fields []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		} `json:"fields"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if len(body.Fields) != 1 || body.Fields[0].Field != "name" {
		t.Fatalf("fields=%+v want one entry for name", body.Fields)
	}
}

func TestHTTPErrorHandlerTaxonomyStatuses(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"authorization", apperr.Forbidden("account", "list"), http.StatusForbidden},
		{"not found", apperr.NotFound("system", "abc"), http.StatusNotFound},
		{"conflict", apperr.Conflict("system", "name taken"), http.StatusConflict},
		{"connector", apperr.Connector("sys-1", "readSchema", errors.New("refused")), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec, es := newErrorHandlerContext(t, "http://example.com/x")

			es.httpErrorHandler(c, tt.err)

			if rec.Code != tt.status {
				t.Fatalf("status=%d want %d", rec.Code, tt.status)
			}
		})
	}
}

func TestHTTPErrorHandlerConnectorErrorIsRetryable(t *testing.T) {
	c, rec, es := newErrorHandlerContext(t, "http://example.com/generate")

	es.httpErrorHandler(c, apperr.ConnectorTimeout("sys-1", "readSchema", errors.New("deadline")))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status=%d want %d", rec.Code, http.StatusBadGateway)
	}

	var body struct {
		Retryable bool `json:"retryable"`
		Timeout   bool `json:"timeout"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if !body.Retryable || !body.Timeout {
		t.Fatalf("body=%+v want retryable timeout", body)
	}
}
