package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gohttp "github.com/km-arc/go-inject/framework/http"
	"github.com/km-arc/go-inject/framework/inject"
)

type clock struct{ ticks int }

// scopedRequest returns a request whose context carries a live scope of a
// fresh injector binding a scoped "clock".
func scopedRequest(t *testing.T) (*http.Request, *inject.Injector) {
	t.Helper()
	inj := inject.New(inject.WithScopeStore(inject.NewScopeStore()))
	inj.Scoped("clock", func(context.Context, *inject.Container) (any, error) {
		return &clock{}, nil
	})
	ctx, err := inj.StartScope(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = inj.EndScope(ctx) })
	return httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx), inj
}

// ── Request ──────────────────────────────────────────────────────────────────

func TestRequest_MakeWithinScope(t *testing.T) {
	r, inj := scopedRequest(t)
	req := gohttp.NewRequestWith(r, inj)

	a, err := req.Make("clock")
	require.NoError(t, err)
	b, err := gohttp.Resolve[*clock](req, "clock")
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestRequest_MakeOutsideScope(t *testing.T) {
	_, inj := scopedRequest(t)
	req := gohttp.NewRequestWith(httptest.NewRequest(http.MethodGet, "/", nil), inj)

	_, err := req.Make("clock")
	assert.ErrorIs(t, err, inject.ErrNoRequestStarted)
}

func TestRequest_ResolveThroughRegisteredInjector(t *testing.T) {
	r, inj := scopedRequest(t)
	req := gohttp.NewRequest(r)

	_, err := gohttp.Resolve[*clock](req, "clock")
	assert.ErrorIs(t, err, inject.ErrNoInjector)

	require.NoError(t, inj.Register())
	t.Cleanup(func() { _ = inj.Unregister() })

	c, err := gohttp.Resolve[*clock](req, "clock")
	require.NoError(t, err)
	again, err := req.Make("clock")
	require.NoError(t, err)
	assert.Same(t, c, again)
}

func TestRequest_Bind(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Alice"}`))
	var p struct {
		Name string `json:"name"`
	}
	require.NoError(t, gohttp.NewRequest(r).Bind(&p))
	assert.Equal(t, "Alice", p.Name)

	empty := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	assert.Error(t, gohttp.NewRequest(empty).Bind(&p))
}

func TestRequest_Bind_BodyTooLarge(t *testing.T) {
	body := `{"name":"` + strings.Repeat("a", gohttp.MaxBodyBytes) + `"}`
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))

	var p struct {
		Name string `json:"name"`
	}
	err := gohttp.NewRequest(r).Bind(&p)
	require.Error(t, err)
	assert.Equal(t, http.StatusRequestEntityTooLarge, gohttp.StatusFor(err))
	assert.Empty(t, p.Name)
}

func TestRequest_Input(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/users?page=2", nil)
	r.Header.Set("Authorization", "Bearer secret")
	req := gohttp.NewRequest(r)

	assert.Equal(t, "2", req.Query("page"))
	assert.Equal(t, "10", req.Query("limit", "10"))
	assert.Equal(t, "secret", req.BearerToken())
	assert.Equal(t, http.MethodGet, req.Method())
	assert.Equal(t, "/users", req.Path())
}

func TestRequest_RouteParam(t *testing.T) {
	var got string
	mux := chi.NewRouter()
	mux.Get("/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		got = gohttp.NewRequest(r).RouteParam("id")
	})
	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/users/42", nil))
	assert.Equal(t, "42", got)
}

// ── Response ─────────────────────────────────────────────────────────────────

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func TestResponse_Success(t *testing.T) {
	rr := httptest.NewRecorder()
	gohttp.NewResponse(rr).Success(map[string]int{"n": 1})

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, map[string]any{"data": map[string]any{"n": float64(1)}}, decode(t, rr))
}

func TestResponse_ErrorHelpers(t *testing.T) {
	rr := httptest.NewRecorder()
	gohttp.NewResponse(rr).NotFound()
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Not found.", decode(t, rr)["message"])

	rr = httptest.NewRecorder()
	gohttp.NewResponse(rr).ServerError("down")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "down", decode(t, rr)["message"])

	rr = httptest.NewRecorder()
	gohttp.NewResponse(rr).NoContent()
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, rr.Body.String())
}

func TestResponse_Fail(t *testing.T) {
	rr := httptest.NewRecorder()
	gohttp.NewResponse(rr).Fail(fmt.Errorf("load: %w", gohttp.Abort(http.StatusForbidden, "nope")))
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "nope", decode(t, rr)["message"])

	rr = httptest.NewRecorder()
	gohttp.NewResponse(rr).Fail(errors.New("database password is hunter2"))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "Internal Server Error", decode(t, rr)["message"])
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"abort", gohttp.Abort(http.StatusConflict), http.StatusConflict},
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"no injector", inject.ErrNoInjector, http.StatusServiceUnavailable},
		{"no request", inject.ErrNoRequestStarted, http.StatusInternalServerError},
		{"not bound", &inject.BindingNotFoundError{Key: "db"}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, gohttp.StatusFor(tt.err))
		})
	}
}

func TestAbort_DefaultMessage(t *testing.T) {
	err := gohttp.Abort(http.StatusTeapot)
	assert.Equal(t, "I'm a teapot", err.Error())
}
