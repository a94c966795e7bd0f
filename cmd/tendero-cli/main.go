package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// CLI for talking to a running server without WhatsApp.
//
// Examples:
//
//	go run ./cmd/tendero-cli ask --prompt "¿cuánto arroz debo pedir?"
//	go run ./cmd/tendero-cli repl --session tienda-1
func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	godotenv.Load()

	serverURL := os.Getenv("CHAT_SERVER_URL")
	if strings.TrimSpace(serverURL) == "" {
		serverURL = "http://localhost:8090"
	}

	switch os.Args[1] {
	case "ask":
		ask(os.Args[2:], serverURL)
	case "repl":
		repl(os.Args[2:], serverURL)
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	_, _ = fmt.Fprintln(os.Stderr, "usage:")
	_, _ = fmt.Fprintln(os.Stderr, "  tendero-cli ask --prompt <text> [--session <id>]")
	_, _ = fmt.Fprintln(os.Stderr, "  tendero-cli repl [--session <id>]")
}

func ask(args []string, serverURL string) {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	prompt := fs.String("prompt", "", "message to send")
	session := fs.String("session", "cli", "session id for conversation continuity")
	_ = fs.Parse(args)

	if *prompt == "" {
		usage()
		os.Exit(2)
	}

	out, err := send(serverURL, *session, *prompt)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	fmt.Println(out)
}

func repl(args []string, serverURL string) {
	fs := flag.NewFlagSet("repl", flag.ExitOnError)
	session := fs.String("session", "cli", "session id for conversation continuity")
	_ = fs.Parse(args)

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "exit" || line == "quit" {
			return
		}
		if line != "" {
			out, err := send(serverURL, *session, line)
			if err != nil {
				_, _ = fmt.Fprintln(os.Stderr, err.Error())
			} else {
				fmt.Println(out)
			}
		}
		fmt.Print("> ")
	}
}

func send(serverURL, session, prompt string) (string, error) {
	payload, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequest(http.MethodPost, serverURL+"/chat", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Session-ID", session)

	client := &http.Client{Timeout: 2 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("server returned %s", resp.Status)
	}

	var body struct {
		Output string `json:"output"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return body.Output, nil
}
