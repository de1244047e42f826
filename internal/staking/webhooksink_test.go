package staking

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestWebhookSinkDeliversEvent(t *testing.T) {
	received := make(map[string]string)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Fatalf("content type = %s, want application/json", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := NewWebhookSink(srv.URL, time.Second, zerolog.Nop())
	sink.Emit(context.Background(), Event{
		Name:      EventStake,
		Asset:     assetAddr,
		Holder:    holderAddr,
		Amount:    big.NewInt(42),
		Timestamp: time.Unix(1_700_000_000, 0).UTC(),
	})

	if received["name"] != EventStake {
		t.Fatalf("name = %q, want %q", received["name"], EventStake)
	}
	if received["holder"] != holderAddr.Hex() {
		t.Fatalf("holder = %q, want %q", received["holder"], holderAddr.Hex())
	}
	if received["amount"] != "42" {
		t.Fatalf("amount = %q, want 42", received["amount"])
	}
	if _, ok := received["old_owner"]; ok {
		t.Fatal("old_owner must be omitted for stake events")
	}
}

func TestWebhookSinkOmitsOptionalFields(t *testing.T) {
	received := make(map[string]string)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := NewWebhookSink(srv.URL, time.Second, zerolog.Nop())
	sink.Emit(context.Background(), Event{
		Name:      EventPaused,
		Holder:    ownerAddr,
		Timestamp: time.Unix(1_700_000_000, 0).UTC(),
	})

	if _, ok := received["asset"]; ok {
		t.Fatal("asset must be omitted for pause events")
	}
	if _, ok := received["amount"]; ok {
		t.Fatal("amount must be omitted for pause events")
	}
}

func TestWebhookSinkSwallowsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	sink := NewWebhookSink(srv.URL, time.Second, zerolog.Nop())

	// Delivery failure must not escape the sink.
	sink.Emit(context.Background(), Event{
		Name:      EventUnpaused,
		Holder:    ownerAddr,
		Timestamp: time.Unix(1_700_000_000, 0).UTC(),
	})
}
