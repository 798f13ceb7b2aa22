// Package main runs a demo WebSocket client for solver run progress.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

type wsMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	// Seed a tiny request set
	records := []byte(`{"name":"demo","records":[
		{"requestedAt":68400,"pickupLon":-73.98,"pickupLat":40.75,"dropoffLon":-73.97,"dropoffLat":40.78},
		{"requestedAt":68500,"pickupLon":-73.99,"pickupLat":40.74,"dropoffLon":-73.96,"dropoffLat":40.77}
	]}`)
	resp, err := http.Post(base+"/v1/requestsets", "application/json", bytes.NewReader(records))
	if err != nil {
		log.Fatal(err)
	}
	var meta struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		log.Fatal(err)
	}
	_ = resp.Body.Close()
	log.Printf("Request set: %s", meta.ID)

	// Start a solve
	solve := []byte(fmt.Sprintf(`{"requestSetId":%q,"params":{"timeBudgetMs":5000,"seed":42}}`, meta.ID))
	resp, err = http.Post(base+"/v1/solve", "application/json", bytes.NewReader(solve))
	if err != nil {
		log.Fatal(err)
	}
	var accepted struct {
		RunID string `json:"runId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&accepted); err != nil {
		log.Fatal(err)
	}
	_ = resp.Body.Close()
	log.Printf("Run ID: %s", accepted.RunID)

	// Connect WS
	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/runs/ws"}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	// connection_init
	if err := c.WriteJSON(wsMessage{Type: "connection_init"}); err != nil {
		log.Fatal(err)
	}
	// subscribe to run progress
	pl, _ := json.Marshal(map[string]any{"runId": accepted.RunID})
	if err := c.WriteJSON(wsMessage{Type: "subscribe", ID: "1", Payload: pl}); err != nil {
		log.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var m wsMessage
			if err := c.ReadJSON(&m); err != nil {
				log.Printf("read: %v", err)
				return
			}
			log.Printf("WS <- %s: %s", m.Type, string(m.Payload))
			if m.Type == "complete" {
				return
			}
		}
	}()

	select {
	case <-time.After(10 * time.Second):
	case <-done:
	}
}
