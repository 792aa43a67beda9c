package graph_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"texlipse/internal/graph"
	"texlipse/internal/outline"
	"texlipse/internal/parser"
)

func sample() graph.GraphData {
	res := parser.Parse("\\section{A}\n\\label{a}\n\\section{B}\n", parser.Options{File: "main.tex"})
	return graph.FromInput(outline.NewInput(res.Tree))
}

func TestFromInput(t *testing.T) {
	data := sample()
	require.Len(t, data.Nodes, 3)
	require.Equal(t, "A", data.Nodes[0].Label)
	require.Equal(t, "section", data.Nodes[0].Type)
	require.True(t, data.Nodes[0].Root)
	require.Equal(t, "a", data.Nodes[1].Label)
	require.False(t, data.Nodes[1].Root)
	require.Equal(t, []graph.Link{{Source: data.Nodes[0].ID, Target: data.Nodes[1].ID}}, data.Links)
}

func readMessage(t *testing.T, conn *websocket.Conn) graph.IncrementalMessage {
	t.Helper()
	var msg graph.IncrementalMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestRoutesAndUpdates(t *testing.T) {
	o := graph.New()
	srv := httptest.NewServer(o)
	defer srv.Close()
	defer o.Close()

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "texlipse outline")

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	msg := readMessage(t, conn)
	require.Equal(t, "init", msg.Op)
	require.Empty(t, msg.Graph.Nodes)

	require.NoError(t, o.Publish(sample()))
	msg = readMessage(t, conn)
	require.Equal(t, "update", msg.Op)
	require.Len(t, msg.Graph.Nodes, 3)

	resp, err = http.Get(srv.URL + "/outline.json")
	require.NoError(t, err)
	defer resp.Body.Close()
	var data graph.GraphData
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&data))
	require.Equal(t, sample(), data)
}

func TestListen(t *testing.T) {
	o := graph.New()
	url, err := o.Listen("localhost:0")
	require.NoError(t, err)
	defer o.Close()

	resp, err := http.Get(url + "outline.json")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNotFound(t *testing.T) {
	rec := httptest.NewRecorder()
	graph.New().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
