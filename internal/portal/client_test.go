package portal

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/muurk/zoothing/internal/identity"
)

func TestClientSetURL(t *testing.T) {
	c := NewClient("http://192.168.4.1/")

	got := c.SetURL(identity.Submission{Name: "Fido", SSID: "my net", Passphrase: "p&ss", APPassphrase: ""})
	want := "http://192.168.4.1/set?appass=&pass=p%26ss&ssid=my+net&thing=Fido"
	if got != want {
		t.Errorf("SetURL() = %q, want %q", got, want)
	}
}

func TestClientPush(t *testing.T) {
	backend := &fakeBackend{}
	srv := httptest.NewServer(NewHandler(backend, nil, nil))
	defer srv.Close()

	c := NewClient(srv.URL)
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}

	sub := identity.Submission{Name: "Fido", SSID: "home", Passphrase: "secret", APPassphrase: "longenough"}
	resp, err := c.Push(context.Background(), sub)
	if err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if resp != "settings updates, trying to reconnect..." {
		t.Errorf("Push() = %q", resp)
	}
	if subs := backend.submissions(); len(subs) != 1 || subs[0] != sub {
		t.Errorf("submissions = %+v, want [%+v]", subs, sub)
	}
}

func TestClientDoesNotRetryHTTPErrors(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		http.Error(w, "missing thing", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	c.RetryDelay = time.Millisecond

	_, err := c.Push(context.Background(), identity.Submission{})
	var cErr *ClientError
	if !errors.As(err, &cErr) {
		t.Fatalf("Push() error = %v, want *ClientError", err)
	}
	if cErr.StatusCode != http.StatusBadRequest || cErr.Retryable() {
		t.Errorf("ClientError = %+v, want non-retryable 400", cErr)
	}
	if n := requests.Load(); n != 1 {
		t.Errorf("requests = %d, want 1", n)
	}
}

func TestClientRetriesTransportErrors(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url)
	c.RetryDelay = time.Millisecond
	c.MaxRetryDelay = 2 * time.Millisecond
	c.MaxRetries = 2

	_, err := c.Push(context.Background(), identity.Submission{Name: "Fido"})
	var cErr *ClientError
	if !errors.As(err, &cErr) {
		t.Fatalf("Push() error = %v, want *ClientError", err)
	}
	if !cErr.Retryable() || cErr.StatusCode != 0 {
		t.Errorf("ClientError = %+v, want retryable transport error", cErr)
	}
}

func TestClientPushHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url)
	c.RetryDelay = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := c.Push(ctx, identity.Submission{Name: "Fido"}); err == nil {
		t.Error("Push() should fail once the context expires")
	}
}
