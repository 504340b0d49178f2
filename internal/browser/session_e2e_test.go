//go:build e2e

package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixturePage = `<!doctype html>
<html><head><title>Fixture</title></head>
<body>
  <nav><button id="go">Go Somewhere</button></nav>
  <textarea id="box"></textarea>
  <p id="echo"></p>
  <div class="dream-item">one</div>
  <div class="dream-item">two</div>
  <script>
    document.getElementById('box').addEventListener('input', e => {
      document.getElementById('echo').textContent = e.target.value;
    });
    document.getElementById('go').addEventListener('click', () => {
      document.title = 'clicked';
    });
    fetch('/slow');
  </script>
</body></html>`

func fixtureServer(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, fixturePage)
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		fmt.Fprint(w, "ok")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func openTestSession(t *testing.T) *Session {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	t.Cleanup(cancel)

	s, err := Open(ctx, Options{
		Headless:          true,
		ActionTimeout:     2 * time.Second,
		NavigationTimeout: 10 * time.Second,
		IdleQuiet:         200 * time.Millisecond,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSession_Walk(t *testing.T) {
	srv := fixtureServer(t)
	s := openTestSession(t)
	ctx := context.Background()

	require.NoError(t, s.Navigate(ctx, srv.URL))
	require.NoError(t, s.WaitNetworkIdle(ctx))

	n, err := s.Count(ctx, CSS("entries", ".dream-item", ".dream-entry"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.Count(ctx, ButtonText("go", "go somewhere"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, s.Click(ctx, ButtonText("go", "Go")))

	require.NoError(t, s.Fill(ctx, CSS("box", "textarea#box"), "テスト\nline two"))
	html, err := s.OuterHTML(ctx, CSS("echo", "#echo"))
	require.NoError(t, err)
	assert.Contains(t, html, "テスト")

	doc, location, err := s.Document(ctx)
	require.NoError(t, err)
	assert.Contains(t, doc, "dream-item")
	assert.Contains(t, location, srv.URL)

	png, err := s.Screenshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), png[:4])
}

const hiddenSiblingPage = `<!doctype html>
<html><head><title>Views</title></head>
<body>
  <nav><button onclick="document.title = 'nav'">記録</button></nav>
  <section hidden>
    <textarea class="entry"></textarea>
    <button onclick="document.title = 'save'">記録する</button>
  </section>
  <textarea class="entry"></textarea>
</body></html>`

func TestSession_ClickIgnoresHiddenLaterMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, hiddenSiblingPage)
	}))
	t.Cleanup(srv.Close)

	s := openTestSession(t)
	ctx := context.Background()
	require.NoError(t, s.Navigate(ctx, srv.URL))

	record := ButtonText("record", "記録")
	n, err := s.Count(ctx, record)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	start := time.Now()
	require.NoError(t, s.Click(ctx, record))
	assert.Less(t, time.Since(start), 2*time.Second)

	doc, _, err := s.Document(ctx)
	require.NoError(t, err)
	assert.Contains(t, doc, "<title>nav</title>")

	// the first textarea is hidden, so the fill waits out the timeout
	err = s.Fill(ctx, CSS("entry", "textarea.entry"), "x")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestSession_ClickMissingIsNotFound(t *testing.T) {
	srv := fixtureServer(t)
	s := openTestSession(t)
	ctx := context.Background()

	require.NoError(t, s.Navigate(ctx, srv.URL))

	err := s.Click(ctx, ButtonText("missing", "does not exist"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
}

func TestSession_NavigateUnreachable(t *testing.T) {
	s := openTestSession(t)

	err := s.Navigate(context.Background(), "http://127.0.0.1:1")
	require.Error(t, err)
}

func TestSession_CloseIsIdempotent(t *testing.T) {
	s := openTestSession(t)
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}
