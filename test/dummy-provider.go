package main

import (
	"fmt"
	"io"
	"log"
	"net/http"
)

// Stands in for the token, verification and mail endpoints so the
// gateway can be exercised locally without real credentials.
func main() {
	http.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("Token exchange: %s %s", r.Method, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token": "dummy-token", "expires_in": 3600}`)
	})

	http.HandleFunc("/siteverify", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("Verification check: %s %s", r.Method, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"success": true}`)
	})

	http.HandleFunc("/sendMail", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		log.Printf("Dispatch received (%d bytes): %s", len(body), r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusAccepted)
	})

	log.Println("Dummy provider starting on :3001")
	if err := http.ListenAndServe(":3001", nil); err != nil {
		log.Fatal(err)
	}
}
