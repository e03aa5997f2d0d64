package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

func stateCmd(args []string) {
	fs := flag.NewFlagSet("state", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)

	u := strings.TrimRight(strings.TrimSpace(*baseURL), "/") + "/admin/v1/state"
	cl := &http.Client{Timeout: 5 * time.Second}
	resp, err := cl.Get(u)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Println(string(b))
	if resp.StatusCode/100 != 2 {
		os.Exit(1)
	}
}

// commandCmd runs a spawn cycle command (forcespawnmove, checkspawn,
// reloadcenter) through the server's local admin endpoint.
func commandCmd(args []string) {
	fs := flag.NewFlagSet("command", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)
	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: admin command [-url URL] <name> [args...]")
		os.Exit(2)
	}

	body, _ := json.Marshal(map[string]any{"name": fs.Arg(0), "args": fs.Args()[1:]})
	u := strings.TrimRight(strings.TrimSpace(*baseURL), "/") + "/admin/v1/command"
	req, _ := http.NewRequest(http.MethodPost, u, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	cl := &http.Client{Timeout: 10 * time.Second}
	resp, err := cl.Do(req)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	var out struct {
		OK    bool     `json:"ok"`
		Lines []string `json:"lines"`
		Error string   `json:"error"`
	}
	b, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(b, &out); err != nil {
		fmt.Println(string(b))
		os.Exit(1)
	}
	for _, l := range out.Lines {
		fmt.Println(l)
	}
	if out.Error != "" {
		fmt.Fprintln(os.Stderr, out.Error)
	}
	if resp.StatusCode/100 != 2 || !out.OK {
		os.Exit(1)
	}
}
