package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const (
	baseURL = "http://localhost:8080"
)

func main() {
	// Wait for server to start
	time.Sleep(2 * time.Second)

	fmt.Println("Starting Integration Test...")

	// 1. Ping
	fmt.Println("1. Ping...")
	if !sendRequest("GET", "/ping", nil) {
		fmt.Println("FAILED: Ping")
		os.Exit(1)
	}
	fmt.Println("PASSED: Ping")

	// 2. Generate a query from a note list
	fmt.Println("2. Generating Query...")
	payload := map[string]interface{}{
		"notes":          `[[["c/5"],4,0],[["d/5"],8,0]]`,
		"pitch_distance": 1.0,
		"alpha":          0.5,
	}
	if !sendRequest("POST", "/generate-query", payload) {
		fmt.Println("FAILED: Generate query")
		os.Exit(1)
	}
	fmt.Println("PASSED: Generate query")

	// 3. Execute a fuzzy query end to end
	fmt.Println("3. Executing Fuzzy Query...")
	query := "MATCH (e0:Event)-[n0:NEXT]->(e1:Event), " +
		"(e0)--(f0:Fact{class:'c', octave:5}), (e1)--(f1:Fact{class:'d', octave:5}) " +
		"RETURN e0.source AS source, e0.start AS start"
	if !sendRequest("POST", "/execute-fuzzy-query", map[string]interface{}{"query": query}) {
		fmt.Println("FAILED: Execute fuzzy query")
		os.Exit(1)
	}
	fmt.Println("PASSED: Execute fuzzy query")

	// 4. Mutating queries must be refused
	fmt.Println("4. Rejecting Mutation...")
	resp, err := post("/execute-crisp-query", map[string]interface{}{"query": "CREATE (n:Event)"})
	if err != nil || resp.StatusCode != http.StatusBadRequest {
		fmt.Println("FAILED: Mutation was not rejected")
		os.Exit(1)
	}
	resp.Body.Close()
	fmt.Println("PASSED: Mutation rejected")

	fmt.Println("Integration Test Complete.")
}

func post(path string, payload interface{}) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return http.Post(baseURL+path, "application/json", bytes.NewReader(body))
}

func sendRequest(method, path string, payload interface{}) bool {
	var resp *http.Response
	var err error

	switch method {
	case "GET":
		resp, err = http.Get(baseURL + path)
	case "POST":
		resp, err = post(path, payload)
	}
	if err != nil {
		fmt.Printf("Request error: %v\n", err)
		return false
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	fmt.Printf("  %s %s -> %d: %s\n", method, path, resp.StatusCode, truncate(string(body), 200))

	return resp.StatusCode == http.StatusOK
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
