// FILE: scribelog/src/internal/status/server_test.go
package status

import (
	"net"
	"sync/atomic"
	"testing"

	"github.com/goccy/go-json"
	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

type fakeController struct {
	paused atomic.Bool
}

func (f *fakeController) GetStats() map[string]any {
	return map[string]any{"receiver": map[string]any{"incoming": 3}}
}
func (f *fakeController) Processing() bool { return !f.paused.Load() }
func (f *fakeController) Pause()           { f.paused.Store(true) }
func (f *fakeController) Resume()          { f.paused.Store(false) }

func do(s *Server, method, path string) (int, map[string]any) {
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(path)
	s.requestHandler(&ctx)

	var body map[string]any
	_ = json.Unmarshal(ctx.Response.Body(), &body)
	return ctx.Response.StatusCode(), body
}

func TestServer_Handler(t *testing.T) {
	ctrl := &fakeController{}
	s := NewServer("127.0.0.1", 0, ctrl, log.NewLogger())

	t.Run("Health", func(t *testing.T) {
		code, body := do(s, "GET", "/health")
		assert.Equal(t, fasthttp.StatusOK, code)
		assert.Equal(t, "ok", body["status"])
		assert.Equal(t, true, body["processing"])
	})

	t.Run("Status", func(t *testing.T) {
		code, body := do(s, "GET", "/status")
		assert.Equal(t, fasthttp.StatusOK, code)
		assert.Contains(t, body, "receiver")
	})

	t.Run("PauseResume", func(t *testing.T) {
		code, body := do(s, "POST", "/processing/pause")
		assert.Equal(t, fasthttp.StatusOK, code)
		assert.Equal(t, false, body["processing"])
		assert.False(t, ctrl.Processing())

		code, body = do(s, "POST", "/processing/resume")
		assert.Equal(t, fasthttp.StatusOK, code)
		assert.Equal(t, true, body["processing"])
	})

	t.Run("WrongMethod", func(t *testing.T) {
		code, _ := do(s, "GET", "/processing/pause")
		assert.Equal(t, fasthttp.StatusMethodNotAllowed, code)
		assert.True(t, ctrl.Processing())

		code, _ = do(s, "DELETE", "/status")
		assert.Equal(t, fasthttp.StatusMethodNotAllowed, code)
	})

	t.Run("NotFound", func(t *testing.T) {
		code, body := do(s, "GET", "/metrics")
		assert.Equal(t, fasthttp.StatusNotFound, code)
		assert.Equal(t, "Not Found", body["error"])
	})
}

func TestServer_Lifecycle(t *testing.T) {
	s := NewServer("127.0.0.1", 0, &fakeController{}, log.NewLogger())
	require.NoError(t, s.Start())
	defer s.Stop()

	code, body, err := fasthttp.Get(nil, "http://"+s.Addr().String()+"/health")
	require.NoError(t, err)
	assert.Equal(t, fasthttp.StatusOK, code)
	assert.Contains(t, string(body), `"status":"ok"`)

	// a second server on the same address fails synchronously
	other := NewServer("127.0.0.1", int64(s.Addr().(*net.TCPAddr).Port), &fakeController{}, log.NewLogger())
	assert.Error(t, other.Start())
}
