package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
)

// apiClient returns an http.Client that connects over the Unix socket.
func apiClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				return (&net.Dialer{}).DialContext(ctx, "unix", socketPath)
			},
		},
	}
}

// apiGet performs a GET and decodes the JSON response.
func apiGet(path string, dest any) error {
	resp, err := apiClient().Get("http://mkxray" + path)
	if err != nil {
		return fmt.Errorf("cannot connect to mkxray-web at %s: %w", socketPath, err)
	}
	defer resp.Body.Close()
	return decodeResponse(resp, dest)
}

// apiPost sends body as JSON and decodes the JSON response.
func apiPost(path string, body, dest any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := apiClient().Post("http://mkxray"+path, "application/json", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("cannot connect to mkxray-web at %s: %w", socketPath, err)
	}
	defer resp.Body.Close()
	return decodeResponse(resp, dest)
}

func decodeResponse(resp *http.Response, dest any) error {
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("mkxray-web returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if dest != nil {
		return json.NewDecoder(resp.Body).Decode(dest)
	}
	return nil
}
