package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/formloom/formloom/internal/runtime"
	"github.com/formloom/formloom/internal/server"
	"github.com/formloom/formloom/internal/store"
)

func newTestServer(t *testing.T) (*server.Server, *store.SQLStore) {
	t.Helper()
	s, err := store.Open("sqlite", filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	loader := &runtime.Loader{Store: s}
	srv := server.New(s, loader, zap.NewNop(), server.Options{Port: 0})
	return srv, s
}

func seedPublished(t *testing.T, s *store.SQLStore) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.CreateForm(ctx, &store.Form{
		ID: "f1", OrgID: "org1", Name: "Contato", Slug: "contato",
		Kind: store.KindEmbedded, Status: store.StatusDraft,
		PostSubmit: store.PostSubmitConfig{Mode: "message", Message: "Obrigado!"},
	}))
	require.NoError(t, s.SetFormStatus(ctx, "f1", store.StatusPublished))
	require.NoError(t, s.CreateField(ctx, &store.Field{
		ID: "nome", FormID: "f1", Type: store.FieldText, Label: "Nome", Required: true, SortOrder: 1,
	}))
	require.NoError(t, s.CreateField(ctx, &store.Field{
		ID: "email", FormID: "f1", Type: store.FieldEmail, Label: "E-mail", SortOrder: 2,
	}))
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}, mutate func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if mutate != nil {
		mutate(req)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func asBearer(srv *server.Server) func(*http.Request) {
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+srv.Token())
	}
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv.Handler(), "GET", "/health", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body server.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
}

func TestAuthMiddleware(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	// No credentials.
	rec := doJSON(t, h, "GET", "/api/forms", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Wrong bearer token.
	rec = doJSON(t, h, "GET", "/api/forms", nil, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer wrong")
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Right bearer token.
	rec = doJSON(t, h, "GET", "/api/forms", nil, asBearer(srv))
	assert.Equal(t, http.StatusOK, rec.Code)

	// Query token sets the cookie and redirects without the token.
	rec = doJSON(t, h, "GET", "/dashboard?token="+srv.Token(), nil, nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.NotContains(t, rec.Header().Get("Location"), "token=")
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, srv.Token(), cookies[0].Value)

	// The cookie then authenticates on its own.
	rec = doJSON(t, h, "GET", "/api/forms", nil, func(r *http.Request) {
		r.AddCookie(cookies[0])
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEmbedJS(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := doJSON(t, h, "GET", "/embed.js", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "form parameter is required")

	rec = doJSON(t, h, "GET", "/embed.js?form=contato&mode=modal", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/javascript", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Cache-Control"), "max-age=60")
	assert.Contains(t, rec.Body.String(), "'contato'")
}

func TestResolvedForm(t *testing.T) {
	srv, s := newTestServer(t)
	seedPublished(t, s)
	h := srv.Handler()

	rec := doJSON(t, h, "GET", "/f/missing?vid=vis1", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h, "GET", "/f/contato?vid=vis1", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Slug string `json:"Slug"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "contato", body.Slug)

	rec = doJSON(t, h, "GET", "/f/contato?vid=vis1&format=html", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), `data-fl-form="f1"`)
}

func TestSubmit(t *testing.T) {
	srv, s := newTestServer(t)
	seedPublished(t, s)
	h := srv.Handler()

	// Missing required field: 422 with a per-field message.
	rec := doJSON(t, h, "POST", "/f/contato/submit", map[string]interface{}{
		"vid":    "vis1",
		"values": map[string]string{"email": "ana@example.com"},
	}, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var failure struct {
		Error  string            `json:"error"`
		Errors map[string]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &failure))
	assert.Equal(t, "Nome é obrigatório", failure.Errors["nome"])

	// Valid submission.
	rec = doJSON(t, h, "POST", "/f/contato/submit", map[string]interface{}{
		"vid":    "vis1",
		"values": map[string]string{"nome": "Ana", "email": "ana@example.com"},
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var success struct {
		ID         string                 `json:"id"`
		PostSubmit store.PostSubmitConfig `json:"post_submit"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &success))
	assert.NotEmpty(t, success.ID)
	assert.Equal(t, "Obrigado!", success.PostSubmit.Message)

	subs, err := s.ListSubmissions(context.Background(), "f1", 10, 0)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "Ana", subs[0].Data["nome"])
}

func TestEvaluate(t *testing.T) {
	srv, s := newTestServer(t)
	seedPublished(t, s)
	require.NoError(t, s.CreateRule(context.Background(), &store.Rule{
		ID: "r1", FormID: "f1", Active: true, SortOrder: 1, Logic: store.LogicAnd,
		Conditions: []store.Condition{
			{FieldID: "nome", Operator: store.OpNotEmpty},
		},
		Action: store.ActionHide, TargetFieldID: "email",
	}))

	rec := doJSON(t, srv.Handler(), "POST", "/f/contato/evaluate", map[string]interface{}{
		"values": map[string]string{"nome": "Ana"},
	}, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var decision struct {
		Hidden map[string]bool `json:"hidden"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decision))
	assert.True(t, decision.Hidden["email"])
}

func TestBeacon(t *testing.T) {
	srv, s := newTestServer(t)
	seedPublished(t, s)
	h := srv.Handler()

	rec := doJSON(t, h, "POST", "/b", server.BeaconRequest{
		FormSlug: "contato", EventType: "view", VisitorID: "vis1",
	}, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, h, "POST", "/b", server.BeaconRequest{
		FormSlug: "contato", EventType: "bogus", VisitorID: "vis1",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, "POST", "/b", server.BeaconRequest{EventType: "view"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	stats, err := s.FunnelStats(context.Background(), "f1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Views)
}

func TestFormAdminFlow(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()
	auth := asBearer(srv)

	// Create. The status field is forced to draft no matter what the
	// client sends.
	rec := doJSON(t, h, "POST", "/api/forms", map[string]interface{}{
		"name": "Newsletter", "slug": "news", "org_id": "org1", "status": "published",
	}, auth)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created store.Form
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, store.StatusDraft, created.Status)
	require.NotEmpty(t, created.ID)

	// Duplicate slug conflicts.
	rec = doJSON(t, h, "POST", "/api/forms", map[string]interface{}{
		"name": "Outra", "slug": "news", "org_id": "org1",
	}, auth)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Publish, then the public runtime can see it.
	rec = doJSON(t, h, "POST", "/api/forms/"+created.ID+"/publish", nil, auth)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, "GET", "/f/news?vid=vis1", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Delete hides it again.
	rec = doJSON(t, h, "DELETE", "/api/forms/"+created.ID, nil, auth)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, h, "GET", "/api/forms/"+created.ID, nil, auth)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVariantLockedWhileRunning(t *testing.T) {
	srv, s := newTestServer(t)
	seedPublished(t, s)
	h := srv.Handler()
	auth := asBearer(srv)
	ctx := context.Background()

	require.NoError(t, s.CreateTest(ctx, &store.ABTest{
		ID: "t1", FormID: "f1", Name: "Botão", Status: store.TestDraft,
	}))
	require.NoError(t, s.CreateVariant(ctx, &store.Variant{
		ID: "va", TestID: "t1", Letter: "A", Name: "Original", Control: true, TrafficPct: 50,
	}))
	require.NoError(t, s.CreateVariant(ctx, &store.Variant{
		ID: "vb", TestID: "t1", Letter: "B", Name: "Verde", TrafficPct: 50,
	}))

	rec := doJSON(t, h, "POST", "/api/tests/t1/start", nil, auth)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, h, "PUT", "/api/variants/vb", map[string]interface{}{
		"test_id": "t1", "letter": "B", "name": "Vermelho", "traffic_pct": 50,
	}, auth)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "locked")
}

func TestFieldNameDerivedFromLabel(t *testing.T) {
	srv, s := newTestServer(t)
	seedPublished(t, s)
	h := srv.Handler()
	auth := asBearer(srv)

	// A create body without a name derives one from the label.
	rec := doJSON(t, h, "POST", "/api/forms/f1/fields", map[string]interface{}{
		"type": "email", "label": "Seu E-mail",
	}, auth)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var field store.Field
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &field))
	assert.Equal(t, "seu-e-mail", field.Name)

	// An explicit name is kept as sent.
	rec = doJSON(t, h, "PUT", "/api/fields/"+field.ID, map[string]interface{}{
		"type": "email", "label": "Seu E-mail", "name": "email_corp",
	}, auth)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated store.Field
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "email_corp", updated.Name)

	// Dropping the name on update re-derives it from the new label.
	rec = doJSON(t, h, "PUT", "/api/fields/"+field.ID, map[string]interface{}{
		"type": "email", "label": "Email corporativo",
	}, auth)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "email-corporativo", updated.Name)
	assert.Equal(t, "f1", updated.FormID, "the stored form id wins over the body")
}

func TestConcludeTestWithoutWinner(t *testing.T) {
	srv, s := newTestServer(t)
	seedPublished(t, s)
	h := srv.Handler()
	auth := asBearer(srv)
	ctx := context.Background()

	require.NoError(t, s.CreateTest(ctx, &store.ABTest{
		ID: "t1", FormID: "f1", Name: "Botão", Status: store.TestDraft,
	}))
	require.NoError(t, s.CreateVariant(ctx, &store.Variant{
		ID: "va", TestID: "t1", Letter: "A", Name: "Original", Control: true, TrafficPct: 50,
	}))
	require.NoError(t, s.CreateVariant(ctx, &store.Variant{
		ID: "vb", TestID: "t1", Letter: "B", Name: "Verde", TrafficPct: 50,
	}))

	rec := doJSON(t, h, "POST", "/api/tests/t1/start", nil, auth)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// No body at all: the winner is optional.
	rec = doJSON(t, h, "POST", "/api/tests/t1/conclude", nil, auth)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	test, err := s.GetTest(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, store.TestConcluded, test.Status)
	assert.Nil(t, test.WinnerID)
}

func TestEditorWritesInvalidateCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	s, err := store.Open("sqlite", filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	seedPublished(t, s)

	loader := &runtime.Loader{Store: s, Cache: cache, TTL: time.Hour}
	srv := server.New(s, loader, zap.NewNop(), server.Options{Port: 0})
	h := srv.Handler()
	auth := asBearer(srv)
	const key = "fl:snapshot:contato"

	prime := func() {
		t.Helper()
		rec := doJSON(t, h, "GET", "/f/contato?vid=vis1", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.True(t, mr.Exists(key))
	}

	// A field update whose body omits form_id still drops the snapshot.
	prime()
	rec := doJSON(t, h, "PUT", "/api/fields/nome", map[string]interface{}{
		"type": "text", "label": "Nome", "required": true,
	}, auth)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.False(t, mr.Exists(key), "field update must invalidate the snapshot")

	// Deleting a field drops it too.
	prime()
	rec = doJSON(t, h, "DELETE", "/api/fields/email", nil, auth)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, mr.Exists(key), "field delete must invalidate the snapshot")

	// Same for rule deletion.
	rec = doJSON(t, h, "POST", "/api/forms/f1/rules", map[string]interface{}{
		"id": "r1", "name": "esconder nome", "active": true, "sort_order": 1,
		"action": "ocultar", "target_field_id": "nome",
	}, auth)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	prime()
	rec = doJSON(t, h, "DELETE", "/api/rules/r1", nil, auth)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, mr.Exists(key), "rule delete must invalidate the snapshot")
}

func TestSnippetEndpoint(t *testing.T) {
	srv, s := newTestServer(t)
	seedPublished(t, s)

	rec := doJSON(t, srv.Handler(), "GET", "/api/forms/f1/snippet?framework=react", nil, asBearer(srv))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "useEffect") ||
		strings.Contains(rec.Body.String(), "FormEmbed"), rec.Body.String())
}
