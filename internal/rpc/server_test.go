package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/hyperifyio/gutenextract/internal/config"
	"github.com/hyperifyio/gutenextract/internal/tools"
)

const pngB64 = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	reg, err := tools.NewDefaultRegistry(tools.Deps{Config: config.Default(), Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return NewServer(reg, zerolog.Nop(), opts...)
}

type decoded struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *Error          `json:"error"`
}

func roundTrip(t *testing.T, s *Server, msg string) *decoded {
	t.Helper()
	resp := s.HandleMessage(context.Background(), []byte(msg))
	if resp == nil {
		return nil
	}
	b, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var d decoded
	if err := json.Unmarshal(b, &d); err != nil {
		t.Fatalf("unmarshal %s: %v", b, err)
	}
	return &d
}

func TestServer_Initialize(t *testing.T) {
	d := roundTrip(t, newTestServer(t), `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`)
	if d.Error != nil || string(d.ID) != "1" {
		t.Fatalf("unexpected response: %+v", d)
	}
	var res struct {
		ProtocolVersion string         `json:"protocolVersion"`
		Capabilities    map[string]any `json:"capabilities"`
		ServerInfo      ServerInfo     `json:"serverInfo"`
	}
	if err := json.Unmarshal(d.Result, &res); err != nil {
		t.Fatal(err)
	}
	if res.ProtocolVersion != "2024-11-05" || res.ServerInfo.Name != "gutenberg-extractor" || res.ServerInfo.Version != "2.0.0" {
		t.Fatalf("unexpected initialize result: %+v", res)
	}
	if _, ok := res.Capabilities["tools"]; !ok {
		t.Fatalf("tools capability missing")
	}
}

func TestServer_ToolsList(t *testing.T) {
	d := roundTrip(t, newTestServer(t), `{"jsonrpc":"2.0","id":"a","method":"tools/list"}`)
	var res struct {
		Tools []struct {
			Name        string          `json:"name"`
			InputSchema json.RawMessage `json:"inputSchema"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(d.Result, &res); err != nil {
		t.Fatal(err)
	}
	if len(res.Tools) != 5 || res.Tools[0].Name != "analyze_file" || len(res.Tools[0].InputSchema) == 0 {
		t.Fatalf("unexpected tools: %+v", res.Tools)
	}
	if string(d.ID) != `"a"` {
		t.Fatalf("id not echoed: %s", d.ID)
	}
}

func TestServer_ErrorCodes(t *testing.T) {
	cases := []struct {
		name string
		msg  string
		code int
		text string
		id   string
	}{
		{"parse", `{not json`, ParseError, "Parse error", "null"},
		{"version", `{"jsonrpc":"1.0","id":1,"method":"ping"}`, InvalidRequest, "Invalid Request", "1"},
		{"method", `{"jsonrpc":"2.0","id":2,"method":"nope"}`, MethodNotFound, "Method not found: nope", "2"},
		{"tool", `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"nope"}}`, MethodNotFound, "Tool not found: nope", "3"},
		{"no name", `{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{}}`, InvalidParams, "Tool name is required", "4"},
		{"missing arg", `{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"extract_resources","arguments":{}}}`, InvalidParams, "file_path is required", "5"},
		{"legacy missing arg", `{"jsonrpc":"2.0","id":6,"method":"get_statistics","params":{}}`, InvalidParams, "metadata_file_path is required", "6"},
	}
	s := newTestServer(t)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := roundTrip(t, s, tc.msg)
			if d == nil || d.Error == nil {
				t.Fatalf("expected error response, got %+v", d)
			}
			if d.Error.Code != tc.code || d.Error.Message != tc.text {
				t.Fatalf("got %d %q, want %d %q", d.Error.Code, d.Error.Message, tc.code, tc.text)
			}
			if string(d.ID) != tc.id {
				t.Fatalf("id = %s, want %s", d.ID, tc.id)
			}
		})
	}
}

func TestServer_NotificationsGetNoResponse(t *testing.T) {
	s := newTestServer(t)
	if d := roundTrip(t, s, `{"jsonrpc":"2.0","method":"notifications/initialized"}`); d != nil {
		t.Fatalf("unexpected response: %+v", d)
	}
	if d := roundTrip(t, s, `{"jsonrpc":"2.0","method":"ping"}`); d != nil {
		t.Fatalf("unexpected response to notification: %+v", d)
	}
}

func TestServer_ToolCallReturnsToolResult(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "page.gutenberg")
	if err := os.WriteFile(in, []byte(`<img src="data:image/png;base64,`+pngB64+`">`), 0o644); err != nil {
		t.Fatal(err)
	}
	params, _ := json.Marshal(map[string]any{
		"name":      "extract_resources",
		"arguments": map[string]any{"file_path": in, "threshold_kb": 0.05},
	})
	d := roundTrip(t, newTestServer(t), `{"jsonrpc":"2.0","id":7,"method":"tools/call","params":`+string(params)+`}`)
	if d.Error != nil {
		t.Fatalf("unexpected error: %+v", d.Error)
	}
	var res struct {
		Success bool `json:"success"`
		Results struct {
			Count int `json:"extracted_resources_count"`
		} `json:"results"`
	}
	if err := json.Unmarshal(d.Result, &res); err != nil {
		t.Fatal(err)
	}
	if !res.Success || res.Results.Count != 1 {
		t.Fatalf("unexpected result: %s", d.Result)
	}
}

func TestServer_EngineFailureIsNotAnRPCError(t *testing.T) {
	msg := `{"jsonrpc":"2.0","id":8,"method":"extract_resources","params":{"file_path":"/nonexistent/x.gutenberg"}}`
	d := roundTrip(t, newTestServer(t), msg)
	if d.Error != nil {
		t.Fatalf("engine failure surfaced as rpc error: %+v", d.Error)
	}
	if !strings.Contains(string(d.Result), `"success":false`) {
		t.Fatalf("unexpected result: %s", d.Result)
	}
}

func TestServeStdio(t *testing.T) {
	in := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize"}`,
		``,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"ping"}`,
		`garbage`,
	}, "\n")
	var out bytes.Buffer
	if err := newTestServer(t).ServeStdio(context.Background(), strings.NewReader(in), &out); err != nil {
		t.Fatalf("serve: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 responses, got %d:\n%s", len(lines), out.String())
	}
	var last decoded
	if err := json.Unmarshal([]byte(lines[2]), &last); err != nil {
		t.Fatal(err)
	}
	if last.Error == nil || last.Error.Code != ParseError {
		t.Fatalf("expected parse error last, got %s", lines[2])
	}
	if !strings.Contains(lines[1], `"id":2`) {
		t.Fatalf("responses out of order: %s", lines[1])
	}
}

func TestHTTPHandler(t *testing.T) {
	srv := httptest.NewServer(newTestServer(t, WithMetrics(NewMetrics())).Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/", "application/json", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`))
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"result":{}`) {
		t.Fatalf("ping: %d %s", resp.StatusCode, body)
	}

	resp, err = http.Post(srv.URL+"/", "application/json", strings.NewReader(`{"jsonrpc":"2.0","method":"notifications/initialized"}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("notification status = %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "Gutenberg Extractor MCP Server") {
		t.Fatalf("banner: %s", body)
	}

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), `gutenextract_rpc_requests_total{method="ping",outcome="ok"} 1`) {
		t.Fatalf("metrics missing ping counter:\n%s", body)
	}
}
