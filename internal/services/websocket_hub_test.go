package services

import (
	"encoding/json"
	"testing"
	"time"

	"portfolio-tracker/internal/models"
)

func TestClientWantsQuote(t *testing.T) {
	client := &WebSocketClient{}
	if !client.wantsQuote("AAPL") {
		t.Error("a client with no subscription should receive every quote")
	}

	client.symbols = map[string]bool{"AAPL": true}
	if !client.wantsQuote("AAPL") {
		t.Error("a watched symbol should pass the filter")
	}
	if client.wantsQuote("MSFT") {
		t.Error("an unwatched symbol should be filtered out")
	}

	client.symbols = map[string]bool{}
	if !client.wantsQuote("TSLA") {
		t.Error("an empty watch set should mean no filtering")
	}
}

// receiveQuote pulls the next broadcast frame off the client's send
// queue and decodes it.
func receiveQuote(t *testing.T, client *WebSocketClient) models.Quote {
	t.Helper()
	select {
	case raw := <-client.send:
		var q models.Quote
		if err := json.Unmarshal(raw, &q); err != nil {
			t.Fatalf("Unmarshal broadcast frame: %v", err)
		}
		return q
	case <-time.After(time.Second):
		t.Fatal("no broadcast frame delivered")
		return models.Quote{}
	}
}

func TestHub_SubscriptionFiltersBroadcast(t *testing.T) {
	hub := NewWebSocketHub()
	go hub.Run()

	client := hub.RegisterClient(nil, "tester")

	// Watch only AAPL; symbol case in the request does not matter.
	client.handleMessage([]byte(`{"action":"subscribe","symbols":["aapl"]}`))

	hub.BroadcastQuote(models.Quote{Symbol: "MSFT", CurrentPrice: 412})
	hub.BroadcastQuote(models.Quote{Symbol: "AAPL", CurrentPrice: 187})

	got := receiveQuote(t, client)
	if got.Symbol != "AAPL" {
		t.Fatalf("received %s first, want the MSFT frame filtered out", got.Symbol)
	}

	// An empty subscribe resets the client to the full feed.
	client.handleMessage([]byte(`{"action":"subscribe","symbols":[]}`))
	hub.BroadcastQuote(models.Quote{Symbol: "TSLA", CurrentPrice: 250})

	got = receiveQuote(t, client)
	if got.Symbol != "TSLA" {
		t.Errorf("received %s after reset, want TSLA", got.Symbol)
	}
}

func TestHub_MalformedControlMessageIsIgnored(t *testing.T) {
	hub := NewWebSocketHub()
	go hub.Run()

	client := hub.RegisterClient(nil, "tester")
	client.handleMessage([]byte("not json"))
	client.handleMessage([]byte(`{"action":"dance","symbols":["AAPL"]}`))

	// The client still receives everything.
	hub.BroadcastQuote(models.Quote{Symbol: "GOOGL", CurrentPrice: 141})
	got := receiveQuote(t, client)
	if got.Symbol != "GOOGL" {
		t.Errorf("received %s, want GOOGL on the unfiltered feed", got.Symbol)
	}
}
