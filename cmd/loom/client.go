package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ServerFlag is embedded by every thin-client subcommand: the base URL
// of a running `loom serve` instance.
type ServerFlag struct {
	Server string `default:"http://localhost:8080" help:"Base URL of a running loom serve instance."`
}

func (s ServerFlag) post(path string, body any) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(data)
	}
	resp, err := http.Post(strings.TrimRight(s.Server, "/")+path, "application/json", r)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s: %s: %s", path, resp.Status, string(msg))
	}
	return nil
}

func (s ServerFlag) getJSON(path string, out any) error {
	resp, err := http.Get(strings.TrimRight(s.Server, "/") + path)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s: %s: %s", path, resp.Status, string(msg))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// parseInputs turns repeated --input key=value flags into the map
// team.Team.Start expects.
func parseInputs(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --input %q: want key=value", p)
		}
		out[k] = v
	}
	return out, nil
}
