package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/savestate/internal/core/models"
	"github.com/zeusync/savestate/internal/core/snapshot"
	"github.com/zeusync/savestate/internal/core/storage"
	"github.com/zeusync/savestate/internal/demo"
	"github.com/zeusync/savestate/pkg/encoding"
)

func newPartyServer(t *testing.T, opts ...Option) (*models.World, *Server) {
	t.Helper()
	w := models.NewWorld()
	catalog := demo.NewCatalog()
	e := snapshot.NewEngine(w, snapshot.All(encoding.JSONCodec{}))
	require.NoError(t, demo.Register(e, catalog))
	_, err := demo.Populate(w, catalog)
	require.NoError(t, err)
	return w, New(e, opts...)
}

func do(t *testing.T, method, url string, body []byte, header http.Header) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Body.Close() })
	return res
}

func TestSnapshotRoutes(t *testing.T) {
	w, s := newPartyServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	res := do(t, http.MethodGet, ts.URL+"/snapshot", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "application/json", res.Header.Get("Content-Type"))
	etag := res.Header.Get("ETag")
	require.NotEmpty(t, etag)
	doc, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Equal(t, `"`+encoding.Digest(doc)+`"`, etag)

	res = do(t, http.MethodGet, ts.URL+"/snapshot", nil, http.Header{"If-None-Match": {etag}})
	assert.Equal(t, http.StatusNotModified, res.StatusCode)

	res = do(t, http.MethodDelete, ts.URL+"/snapshot", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var reset resetResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&reset))
	assert.Equal(t, 23, reset.Removed)
	assert.Zero(t, models.Count[demo.Unit](w))

	res = do(t, http.MethodPut, ts.URL+"/snapshot", doc, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var loaded loadResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&loaded))
	assert.Equal(t, 2, loaded.Applied["Unit"])
	assert.Empty(t, loaded.Errors)
	assert.Equal(t, 2, models.Count[demo.Unit](w))

	res = do(t, http.MethodPut, ts.URL+"/snapshot", []byte("{"), nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = do(t, http.MethodPut, ts.URL+"/snapshot", []byte(`{"Campaign":[{},{}]}`), nil)
	assert.Equal(t, http.StatusConflict, res.StatusCode)
	var failed errorResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&failed))
	assert.True(t, failed.Fatal)

	res = do(t, http.MethodPost, ts.URL+"/snapshot", nil, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, res.StatusCode)
}

func TestUploadLimit(t *testing.T) {
	_, s := newPartyServer(t, WithMaxBody(8))
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	res := do(t, http.MethodPut, ts.URL+"/snapshot", []byte(`{"Unit": []}`), nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, res.StatusCode)
}

func TestTokenAuth(t *testing.T) {
	_, s := newPartyServer(t, WithToken("secret"))
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	assert.Equal(t, http.StatusUnauthorized, do(t, http.MethodGet, ts.URL+"/snapshot", nil, nil).StatusCode)
	assert.Equal(t, http.StatusOK, do(t, http.MethodGet, ts.URL+"/snapshot?token=secret", nil, nil).StatusCode)
	assert.Equal(t, http.StatusOK, do(t, http.MethodGet, ts.URL+"/snapshot", nil, http.Header{"Authorization": {"Bearer secret"}}).StatusCode)
	assert.Equal(t, http.StatusOK, do(t, http.MethodGet, ts.URL+"/healthz", nil, nil).StatusCode)

	u := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebSocketSnapshot(t *testing.T) {
	w, s := newPartyServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	u := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("save")))
	var status wsStatus
	require.NoError(t, conn.ReadJSON(&status))
	require.True(t, status.OK, status.Error)
	kind, doc, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, kind)
	assert.Equal(t, encoding.Digest(doc), status.Digest)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("reset")))
	status = wsStatus{}
	require.NoError(t, conn.ReadJSON(&status))
	assert.Equal(t, 23, status.Removed)

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, doc))
	status = wsStatus{}
	require.NoError(t, conn.ReadJSON(&status))
	require.True(t, status.OK, status.Error)
	require.NotNil(t, status.Load)
	assert.Equal(t, 9, status.Load.Applied["Item"])
	assert.Equal(t, 9, models.Count[demo.Item](w))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("dance")))
	status = wsStatus{}
	require.NoError(t, conn.ReadJSON(&status))
	assert.False(t, status.OK)
	assert.Contains(t, status.Error, ErrInvalidMessage.Error())
}

func TestStartStop(t *testing.T) {
	_, s := newPartyServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.ErrorIs(t, s.Stop(ctx), ErrServerNotRunning)
	require.NoError(t, s.Start(ctx, "127.0.0.1:0"))
	assert.ErrorIs(t, s.Start(ctx, "127.0.0.1:0"), ErrServerAlreadyRunning)

	res := do(t, http.MethodGet, "http://"+s.Addr()+"/healthz", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var health map[string]any
	require.NoError(t, json.NewDecoder(res.Body).Decode(&health))
	assert.Equal(t, "all", health["profile"])
	require.NoError(t, res.Body.Close())

	require.NoError(t, s.Stop(ctx))
	assert.Empty(t, s.Addr())
}

func TestSaveSlots(t *testing.T) {
	w, s := newPartyServer(t, WithStorage(storage.NewMemory()))
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	res := do(t, http.MethodPut, ts.URL+"/slots/before-reset", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var slot slotResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&slot))
	assert.Equal(t, "before-reset", slot.Slot)
	assert.NotEmpty(t, slot.Digest)

	res = do(t, http.MethodGet, ts.URL+"/slots", nil, nil)
	var list slotsResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&list))
	assert.Equal(t, []string{"before-reset"}, list.Slots)
	assert.Equal(t, 1, list.Stats.Keys)

	require.Equal(t, http.StatusOK, do(t, http.MethodDelete, ts.URL+"/snapshot", nil, nil).StatusCode)
	assert.Zero(t, models.Count[demo.Buff](w))

	res = do(t, http.MethodPost, ts.URL+"/slots/before-reset/load", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, 6, models.Count[demo.Buff](w))

	assert.Equal(t, http.StatusNotFound, do(t, http.MethodPost, ts.URL+"/slots/nope/load", nil, nil).StatusCode)
	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodPut, ts.URL+"/slots/.bad", nil, nil).StatusCode)
	assert.Equal(t, http.StatusNoContent, do(t, http.MethodDelete, ts.URL+"/slots/before-reset", nil, nil).StatusCode)
	assert.Equal(t, http.StatusNotFound, do(t, http.MethodDelete, ts.URL+"/slots/before-reset", nil, nil).StatusCode)
}
