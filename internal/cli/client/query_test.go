package client

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer answers each path with a fixed body and records requests.
type fakeServer struct {
	*httptest.Server
	bodies map[string]string
	got    map[string][]byte
	query  map[string]string
}

func newFakeServer(t *testing.T, bodies map[string]string) *fakeServer {
	t.Helper()
	f := &fakeServer{bodies: bodies, got: map[string][]byte{}, query: map[string]string{}}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.got[r.URL.Path] = body
		f.query[r.URL.Path] = r.URL.RawQuery
		resp, ok := f.bodies[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"not found"}`))
			return
		}
		_, _ = w.Write([]byte(resp))
	}))
	t.Cleanup(f.Close)
	return f
}

func runCLI(t *testing.T, srv *fakeServer, args ...string) (string, error) {
	t.Helper()
	useTempConfig(t)
	t.Setenv(envAPIKey, "")
	t.Setenv(envAPIURL, "")

	root := &cobra.Command{Use: "aqacs", SilenceUsage: true, SilenceErrors: true}
	root.PersistentFlags().Bool("output", false, "Output as JSON")
	root.PersistentFlags().String("api-key", "", "")
	root.PersistentFlags().String("api-url", "", "")
	root.AddCommand(TariffCmd(), SearchCmd(), SemanticCmd(), AskCmd(), HealthCmd())

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs(append(args, "--api-url", srv.URL))
	err := root.Execute()
	return out.String(), err
}

func TestTariffCmd(t *testing.T) {
	srv := newFakeServer(t, map[string]string{
		"/v1/tariff": `{"data":{"disclaimer":"advisory","snapshot_id":"S1","code":"0101210010","chapter":1,"section":null,
			"rates":{"general":"Free","special":"","col2":"20%"},"citation":"HTSUS S1, Chapter 1, Section n/a, Code 0101210010"}}`,
	})

	out, err := runCLI(t, srv, "tariff", "0101.21.00.10")
	require.NoError(t, err)

	assert.JSONEq(t, `{"code":"0101.21.00.10"}`, string(srv.got["/v1/tariff"]))
	assert.Contains(t, out, "0101210010 (chapter 1, section n/a)")
	assert.Contains(t, out, "General: Free | Special: - | Column 2: 20%")
	assert.Contains(t, out, "advisory")
}

func TestTariffCmd_NotFound(t *testing.T) {
	srv := newFakeServer(t, map[string]string{})

	_, err := runCLI(t, srv, "tariff", "9999")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API error (404)")
}

func TestSearchCmd_JoinsArgsAndSendsLimit(t *testing.T) {
	srv := newFakeServer(t, map[string]string{
		"/v1/search": `{"data":{"disclaimer":"advisory","snapshot_id":"S1","items":[
			{"code":"0101210010","chapter":1,"section":null,"article":"Purebred breeding horses","uoq":"No.",
			 "rates":{"general":"Free","special":"","col2":""},"citation":"c"}]}}`,
	})

	out, err := runCLI(t, srv, "search", "breeding", "horses", "-n", "3")
	require.NoError(t, err)

	assert.Equal(t, "limit=3&q=breeding+horses", srv.query["/v1/search"])
	assert.Contains(t, out, "1. 0101210010  Purebred breeding horses")
}

func TestSearchCmd_LimitOnlyWhenGiven(t *testing.T) {
	srv := newFakeServer(t, map[string]string{
		"/v1/search": `{"data":{"disclaimer":"advisory","snapshot_id":"S1","items":[]}}`,
	})

	_, err := runCLI(t, srv, "search", "horses")
	require.NoError(t, err)
	assert.Equal(t, "q=horses", srv.query["/v1/search"])

	_, err = runCLI(t, srv, "search", "horses", "-n", "0")
	require.NoError(t, err)
	assert.Equal(t, "limit=0&q=horses", srv.query["/v1/search"])
}

func TestSemanticCmd_JSONOutput(t *testing.T) {
	srv := newFakeServer(t, map[string]string{
		"/v1/semantic": `{"data":{"snapshot_id":"S1","collection":"us_hts_S1","hits":[
			{"id":"p1","score":0.8,"chapter":1,"description":"Horses","code":"0101","rates":{"general":"","special":"","col2":""},"source_csv":"ch_01.csv"}]}}`,
	})

	out, err := runCLI(t, srv, "semantic", "horses", "--output")
	require.NoError(t, err)

	var data map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &data))
	assert.Equal(t, "us_hts_S1", data["collection"])
	assert.Len(t, data["hits"], 1)
}

func TestAskCmd(t *testing.T) {
	srv := newFakeServer(t, map[string]string{
		"/v1/qa": `{"data":{"snapshot_id":"S1","question":"duty on horses?","answer":"Free","confidence":0.91,
			"excerpt":"General Rate of Duty: Free","sources":[{"id":"p1","score":0.8,"chapter":1,"code":"0101",
			"description":"Horses","source_csv":"ch_01.csv","row_index":4}]}}`,
	})

	out, err := runCLI(t, srv, "ask", "duty", "on", "horses?")
	require.NoError(t, err)

	assert.JSONEq(t, `{"question":"duty on horses?"}`, string(srv.got["/v1/qa"]))
	assert.Contains(t, out, "Answer: Free")
	assert.Contains(t, out, "Confidence: 0.91")
	assert.Contains(t, out, "Excerpt: General Rate of Duty: Free")
	assert.Contains(t, out, "ch_01.csv row 4 (0101)")
}

func TestAskCmd_NoExcerpt(t *testing.T) {
	srv := newFakeServer(t, map[string]string{
		"/v1/qa": `{"data":{"snapshot_id":"S1","question":"q","answer":"No confident answer found.","confidence":0,"excerpt":null,"sources":[]}}`,
	})

	out, err := runCLI(t, srv, "ask", "q", "-n", "2")
	require.NoError(t, err)

	assert.JSONEq(t, `{"question":"q","limit":2}`, string(srv.got["/v1/qa"]))
	assert.NotContains(t, out, "Excerpt:")
}

func TestHealthCmd(t *testing.T) {
	srv := newFakeServer(t, map[string]string{
		"/v1/health": `{"data":{"status":"ok","env":"dev","timestamp":"2025-10-18T12:00:00Z"}}`,
	})

	out, err := runCLI(t, srv, "health")
	require.NoError(t, err)
	assert.Contains(t, out, "ok (dev)")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
