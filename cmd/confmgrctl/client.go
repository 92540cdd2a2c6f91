package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type client struct {
	base string
	http *http.Client
}

func newClient() *client {
	return &client{
		base: strings.TrimSuffix(flagServer, "/"),
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

// readValueArg accepts a JSON literal, @file, or - for stdin.
func readValueArg(v string) (json.RawMessage, error) {
	switch {
	case v == "-":
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, err
		}
		return json.RawMessage(b), nil
	case strings.HasPrefix(v, "@"):
		b, err := os.ReadFile(strings.TrimPrefix(v, "@"))
		if err != nil {
			return nil, err
		}
		return json.RawMessage(b), nil
	default:
		return json.RawMessage(v), nil
	}
}

func (c *client) do(method, path string, body any) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.base+path, rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if flagToken != "" {
		req.Header.Set("Authorization", "Bearer "+flagToken)
	}
	if flagAPIKey != "" {
		req.Header.Set("X-API-Key", flagAPIKey)
	}
	if flagActor != "" {
		req.Header.Set("X-Actor-Id", flagActor)
	}
	return c.http.Do(req)
}

func (c *client) getItem(out io.Writer, kind, path string, version int64, mask bool) error {
	q := url.Values{}
	if version > 0 {
		q.Set("version", strconv.FormatInt(version, 10))
	}
	if mask {
		q.Set("mask", "true")
	}
	target := "/" + kind + "/" + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	return c.get(out, target)
}

func (c *client) putItem(out io.Writer, kind, path string, value json.RawMessage) error {
	resp, err := c.do(http.MethodPost, "/"+kind+"/"+path, map[string]json.RawMessage{"value": value})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return respError(resp)
	}
	return prettyPrint(out, resp.Body)
}

func (c *client) login(out io.Writer, username, password string) error {
	resp, err := c.do(http.MethodPost, "/auth/login", map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return respError(resp)
	}
	return prettyPrint(out, resp.Body)
}

func (c *client) get(out io.Writer, path string) error {
	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return respError(resp)
	}
	return prettyPrint(out, resp.Body)
}

func respError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(b))
	if msg == "" {
		msg = resp.Status
	}
	return fmt.Errorf("%s: %s", resp.Status, msg)
}

func prettyPrint(out io.Writer, r io.Reader) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, bytes.TrimSpace(b), "", "  "); err != nil {
		_, err = out.Write(b)
		return err
	}
	buf.WriteByte('\n')
	_, err = out.Write(buf.Bytes())
	return err
}
