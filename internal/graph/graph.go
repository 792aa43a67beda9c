// Package graph serves a live view of the project outline: a small web page
// that receives outline snapshots over a websocket.
package graph

import (
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"net"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/tliron/commonlog"

	"texlipse/internal/outline"
)

var log = commonlog.GetLogger("texlipse.graph")

// GraphData holds the nodes of the outline and the parent to child links
// between them.
type GraphData struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`
}

// Node represents an outline node. ID is unique within one GraphData.
type Node struct {
	ID      int    `json:"id"`
	Label   string `json:"label"`
	Type    string `json:"type"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line"`
	EndLine int    `json:"end_line"`
	Root    bool   `json:"root,omitempty"`
}

// Link represents a directed edge from a parent to a child.
type Link struct {
	Source int `json:"source"`
	Target int `json:"target"`
}

// IncrementalMessage is sent over WebSocket to update clients.
type IncrementalMessage struct {
	Op    string     `json:"op"` // "init" or "update"
	Graph *GraphData `json:"graph"`
}

// FromInput converts an outline snapshot, children in document order.
func FromInput(in outline.Input) GraphData {
	data := GraphData{Nodes: []Node{}, Links: []Link{}}
	if in.Tree == nil {
		return data
	}
	var add func(id outline.NodeID, root bool)
	add = func(id outline.NodeID, root bool) {
		n := in.Tree.Node(id)
		data.Nodes = append(data.Nodes, Node{
			ID:      int(id),
			Label:   n.Name,
			Type:    n.Type.String(),
			File:    n.File,
			Line:    n.BeginLine,
			EndLine: n.EndLine,
			Root:    root,
		})
		for _, c := range in.Tree.Children(id) {
			data.Links = append(data.Links, Link{Source: int(id), Target: int(c)})
			add(c, false)
		}
	}
	for _, id := range in.Roots {
		add(id, true)
	}
	return data
}

//go:embed static/*
var staticFiles embed.FS

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// Outline is the view server. The zero value is not usable; call New.
type Outline struct {
	router chi.Router

	graphMu sync.Mutex
	graph   GraphData

	clientsMu sync.Mutex
	clients   map[*websocket.Conn]bool

	srv *http.Server
}

func New() *Outline {
	o := &Outline{
		graph:   GraphData{Nodes: []Node{}, Links: []Link{}},
		clients: make(map[*websocket.Conn]bool),
	}
	static, _ := fs.Sub(staticFiles, "static")

	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFileFS(w, r, static, "index.html")
	})
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	r.Get("/ws", o.handleWS)
	r.Get("/outline.json", o.handleJSON)
	o.router = r
	return o
}

func (o *Outline) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	o.router.ServeHTTP(w, r)
}

// Listen starts the HTTP and WebSocket server on the given address (e.g.
// "localhost:0"). It returns the URL where the outline can be viewed.
func (o *Outline) Listen(addr string) (string, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return "", err
	}
	o.srv = &http.Server{Handler: o}
	go func() {
		if err := o.srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("outline server: %v", err)
		}
	}()
	url := "http://" + l.Addr().String() + "/"
	log.Infof("outline view at %s", url)
	return url, nil
}

// Close stops the server and disconnects all clients.
func (o *Outline) Close() error {
	o.clientsMu.Lock()
	for conn := range o.clients {
		conn.Close()
		delete(o.clients, conn)
	}
	o.clientsMu.Unlock()
	if o.srv == nil {
		return nil
	}
	return o.srv.Close()
}

// Publish replaces the current outline and sends it to all clients.
func (o *Outline) Publish(data GraphData) error {
	o.graphMu.Lock()
	o.graph = data
	o.graphMu.Unlock()
	return o.broadcastMessage(IncrementalMessage{Op: "update", Graph: &data})
}

// GetGraph returns the current outline.
func (o *Outline) GetGraph() GraphData {
	o.graphMu.Lock()
	defer o.graphMu.Unlock()
	return o.graph
}

// broadcastMessage marshals and sends a message to all clients.
func (o *Outline) broadcastMessage(msg IncrementalMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	o.clientsMu.Lock()
	defer o.clientsMu.Unlock()
	for conn := range o.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Warningf("broadcast error: %v", err)
			conn.Close()
			delete(o.clients, conn)
		}
	}
	return nil
}

func (o *Outline) handleJSON(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(o.GetGraph()); err != nil {
		log.Warningf("encode outline: %v", err)
	}
}

// handleWS upgrades HTTP connections and sends the current outline.
func (o *Outline) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warningf("WS upgrade error: %v", err)
		return
	}

	// The init message is written under clientsMu so no update overtakes it.
	o.clientsMu.Lock()
	state := o.GetGraph()
	data, err := json.Marshal(IncrementalMessage{Op: "init", Graph: &state})
	if err == nil {
		err = conn.WriteMessage(websocket.TextMessage, data)
	}
	if err != nil {
		o.clientsMu.Unlock()
		log.Warningf("init message: %v", err)
		conn.Close()
		return
	}
	o.clients[conn] = true
	o.clientsMu.Unlock()

	defer func() {
		o.clientsMu.Lock()
		delete(o.clients, conn)
		o.clientsMu.Unlock()
		conn.Close()
	}()

	// keep connection open
	for {
		if _, _, err := conn.NextReader(); err != nil {
			break
		}
	}
}
