package http

import (
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"

	perr "issuemirror/internal/platform/errors"
)

func record(resp Response) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(stdhttp.MethodGet, "/", nil)
	Handle(func(*stdhttp.Request) Response { return resp })(w, r)
	return w
}

func TestOKEnvelope(t *testing.T) {
	t.Parallel()

	w := record(OK(map[string]string{"k": "v"}))
	if w.Code != stdhttp.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var env Envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.StatusCode != 200 || env.Status != "OK" {
		t.Fatalf("envelope=%+v", env)
	}
	if env.Data == nil {
		t.Fatal("data missing")
	}
}

func TestErrorDerivesStatus(t *testing.T) {
	t.Parallel()

	w := record(Error(perr.NotFoundf("nope")))
	if w.Code != stdhttp.StatusNotFound {
		t.Fatalf("status=%d want 404", w.Code)
	}
	var env Envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Error == "" || env.Code != perr.ErrorCodeNotFound {
		t.Fatalf("envelope=%+v", env)
	}
}

func TestNotModifiedHasNoBody(t *testing.T) {
	t.Parallel()

	w := record(NotModified().WithHeader("ETag", `W/"x"`))
	if w.Code != stdhttp.StatusNotModified {
		t.Fatalf("status=%d", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Fatalf("304 body=%q want empty", w.Body.String())
	}
	if w.Header().Get("ETag") != `W/"x"` {
		t.Fatal("header lost on 304")
	}
}

func TestNoContent(t *testing.T) {
	t.Parallel()

	w := record(NoContent())
	if w.Code != stdhttp.StatusNoContent || w.Body.Len() != 0 {
		t.Fatalf("status=%d body=%q", w.Code, w.Body.String())
	}
}

func TestListCarriesPageBlock(t *testing.T) {
	t.Parallel()

	w := record(List([]int{1, 2, 3}, 30, 2, 3))
	var env Envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Page == nil {
		t.Fatal("page block missing")
	}
	if env.Page.Total != 30 || env.Page.Page != 2 || env.Page.PageSize != 3 {
		t.Fatalf("page=%+v", env.Page)
	}
}

func TestWithHeaderDoesNotMutate(t *testing.T) {
	t.Parallel()

	base := OK(nil).WithHeader("X-A", "1")
	derived := base.WithHeader("X-B", "2")

	if base.Header.Get("X-B") != "" {
		t.Fatal("WithHeader must copy, not mutate the receiver")
	}
	if derived.Header.Get("X-A") != "1" || derived.Header.Get("X-B") != "2" {
		t.Fatalf("derived headers=%v", derived.Header)
	}

	w := record(derived)
	if w.Header().Get("X-A") != "1" || w.Header().Get("X-B") != "2" {
		t.Fatal("headers not written to the response")
	}
}
