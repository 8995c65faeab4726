package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	BaseURL   = "http://localhost:8080"
	WSURL     = "ws://localhost:8080/ws"
	PairCount = 50 // ⚠️ Start small. Each pair is two users hammering one DM thread.
	MsgCount  = 20 // Messages per user
)

type AuthResponse struct {
	Token string `json:"access_token"`
	ID    string `json:"id"`
}

func main() {
	log.Printf("🔥 STARTING STRESS TEST: %d Users, %d Messages each...", PairCount*2, MsgCount)
	var wg sync.WaitGroup

	// Pairs: User 0a DMs User 0b, 1a DMs 1b...
	for i := 0; i < PairCount; i++ {
		wg.Add(1)
		go func(pairID int) {
			defer wg.Done()
			runPair(pairID)
		}(i)
	}

	wg.Wait()
	log.Println("✅ LOAD TEST COMPLETE")
}

func runPair(pairID int) {
	emailA := fmt.Sprintf("u_%d_a@loadtest.local", pairID)
	emailB := fmt.Sprintf("u_%d_b@loadtest.local", pairID)
	pass := "password123"

	tokenA, idA := authenticate(emailA, pass)
	tokenB, idB := authenticate(emailB, pass)

	if tokenA == "" || tokenB == "" {
		return // Failed auth
	}

	// Both sides open the same normalized DM thread and spam it. The
	// server reconciles push, poll and optimistic copies into one log.
	threadKey := dmKey(idA, idB)

	var wsWg sync.WaitGroup
	wsWg.Add(2)

	go spamThread(&wsWg, tokenA, threadKey, emailA)
	go spamThread(&wsWg, tokenB, threadKey, emailB)

	wsWg.Wait()
}

// dmKey normalizes the pair the same way the server does.
func dmKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return fmt.Sprintf("dm:%s:%s", a, b)
}

// authenticate registers (ignores error if exists) and logs in
func authenticate(email, password string) (string, string) {
	postJSON("/register", map[string]string{
		"email": email, "password": password, "full_name": email,
	})

	resp, err := postJSON("/login", map[string]string{"email": email, "password": password})
	if err != nil {
		log.Printf("❌ Login Failed [%s]: %v", email, err)
		return "", ""
	}
	defer resp.Body.Close()

	var data AuthResponse
	json.NewDecoder(resp.Body).Decode(&data)
	return data.Token, data.ID
}

func spamThread(wg *sync.WaitGroup, token, threadKey, user string) {
	defer wg.Done()

	url := fmt.Sprintf("%s?token=%s&thread=%s", WSURL, token, threadKey)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		log.Printf("❌ WS Connect Fail [%s]: %v", user, err)
		return
	}
	defer conn.Close()

	// Drain snapshots so the server's write side never backs up.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for i := 0; i < MsgCount; i++ {
		msg := map[string]string{
			"body": fmt.Sprintf("LoadTest Msg %d from %s", i, user),
		}
		if err := conn.WriteJSON(msg); err != nil {
			log.Printf("❌ Send Fail [%s]: %v", user, err)
			break
		}
		// Small sleep to prevent instant localhost bottleneck (simulate real network)
		time.Sleep(10 * time.Millisecond)
	}
	log.Printf("✅ %s finished sending %d msgs", user, MsgCount)
}

func postJSON(endpoint string, data interface{}) (*http.Response, error) {
	jsonData, _ := json.Marshal(data)
	return http.Post(BaseURL+endpoint, "application/json", bytes.NewBuffer(jsonData))
}
