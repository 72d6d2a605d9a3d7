package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/avremote-network/avremote/internal/daemon"
)

// apiBase resolves the daemon address: the --addr flag wins, then the
// on-disk config.
func apiBase() string {
	if flagAddr != "" {
		return "http://" + flagAddr
	}
	cfg, err := daemon.LoadConfig()
	if err != nil {
		cfg = daemon.DefaultConfig()
	}
	return fmt.Sprintf("http://%s:%d", cfg.API.Host, cfg.API.Port)
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func decodeResponse(resp *http.Response, out interface{}) error {
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		var apiErr apiError
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("%s", apiErr.Error.Message)
		}
		return fmt.Errorf("daemon returned %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// getJSON fetches path from the daemon and decodes the response into out.
func getJSON(path string, out interface{}) error {
	resp, err := http.Get(apiBase() + path)
	if err != nil {
		return fmt.Errorf("is the daemon running? %w", err)
	}
	return decodeResponse(resp, out)
}

// postJSON posts body to path and decodes the response into out.
func postJSON(path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := http.Post(apiBase()+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("is the daemon running? %w", err)
	}
	return decodeResponse(resp, out)
}
