package relay_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"keyward/internal/identity"
	"keyward/internal/logging"
	"keyward/internal/relay"
)

func TestServer_RegisterThenFetch(t *testing.T) {
	srv := httptest.NewServer(relay.NewServer(logging.Discard()).Handler())
	defer srv.Close()

	id, err := identity.Generate()
	if err != nil {
		t.Fatal(err)
	}
	bundle, _, err := identity.NewBundle(id, "alice", 1, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	body, err := json.Marshal(bundle)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := srv.Client().Post(srv.URL+"/register", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("register status = %d", resp.StatusCode)
	}

	c := relay.NewHTTP(srv.URL, srv.Client(), time.Second)
	got, err := c.FetchPreKeyBundle(context.Background(), "alice")
	if err != nil {
		t.Fatalf("FetchPreKeyBundle: %v", err)
	}
	if got.IdentityKey != bundle.IdentityKey || got.SignedPreKeyID != bundle.SignedPreKeyID {
		t.Fatalf("bundle mismatch: %+v", got)
	}
	if _, err := c.FetchPreKeyBundle(context.Background(), "bob"); !errors.Is(err, relay.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestServer_RejectsBadRegistration(t *testing.T) {
	srv := httptest.NewServer(relay.NewServer(logging.Discard()).Handler())
	defer srv.Close()

	for _, body := range []string{"{not json", `{"username":""}`} {
		resp, err := srv.Client().Post(srv.URL+"/register", "application/json", bytes.NewBufferString(body))
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, resp.StatusCode)
		}
	}
}
