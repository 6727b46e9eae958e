package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/xhad/glance/internal/models"
	"github.com/xhad/glance/internal/types"
	"github.com/xhad/glance/pkg/fetch"
	"github.com/xhad/glance/pkg/llm"
	"github.com/xhad/glance/pkg/ocr"
	"github.com/xhad/glance/pkg/render"
	"github.com/xhad/glance/pkg/source"
)

// 32 MB upload cap, same as the API's document limit ballpark.
const maxUploadBytes = 32 << 20

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Be careful with this in production
	},
}

type Message struct {
	Type    string      `json:"type"`
	Content string      `json:"content"`
	Data    interface{} `json:"data,omitempty"`
}

type Config struct {
	Port         string
	Theme        string
	Timeout      time.Duration
	HistoryLimit int
}

type Server struct {
	config   Config
	engine   types.Engine
	store    types.HistoryStore
	embedder types.Embedder
	probe    *fetch.Probe
}

func New(config Config, engine types.Engine, store types.HistoryStore, embedder types.Embedder) *Server {
	if config.Port == "" {
		config.Port = "8080"
	}
	if config.Theme == "" {
		config.Theme = "light"
	}
	if config.Timeout == 0 {
		config.Timeout = 180 * time.Second
	}
	if config.HistoryLimit == 0 {
		config.HistoryLimit = 50
	}

	return &Server{
		config:   config,
		engine:   engine,
		store:    store,
		embedder: embedder,
		probe:    fetch.New(),
	}
}

func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/extract", s.handleExtract)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

func (s *Server) ListenAndServe() error {
	log.Printf("Starting server on port %s", s.config.Port)
	return http.ListenAndServe(":"+s.config.Port, s.Routes())
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(strings.ReplaceAll(indexPage, "{{theme}}", s.config.Theme)))
}

type extractRequest struct {
	URL string `json:"url"`
}

type extractResponse struct {
	Text     string   `json:"text"`
	Markdown string   `json:"markdown"`
	HTML     string   `json:"html"`
	Images   []string `json:"images"`
	Pages    int      `json:"pages"`
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}

	src, title, err := s.parseInput(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.config.Timeout)
	defer cancel()

	response, result, err := s.extract(ctx, src)
	if err != nil {
		http.Error(w, err.Error(), upstreamStatus(err))
		return
	}

	s.record(ctx, src, title, result)

	writeJSON(w, http.StatusOK, response)
}

// parseInput builds a document source from either a JSON body with a URL
// or a multipart file upload. For URLs it also probes the target for a
// title to label the history entry; probe failures are ignored.
func (s *Server) parseInput(r *http.Request) (models.Source, string, error) {
	contentType := r.Header.Get("Content-Type")

	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return models.Source{}, "", fmt.Errorf("bad upload: %v", err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return models.Source{}, "", fmt.Errorf("please upload a file")
		}
		defer file.Close()

		content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
		if err != nil {
			return models.Source{}, "", fmt.Errorf("failed to read upload: %v", err)
		}

		src, err := source.FromUpload(header.Filename, content)
		return src, "", err
	}

	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return models.Source{}, "", fmt.Errorf("bad json: %v", err)
	}

	src, err := source.FromURL(req.URL)
	if err != nil {
		return models.Source{}, "", err
	}

	title := ""
	if info, err := s.probe.Probe(r.Context(), src.URL); err == nil {
		title = info.Title
	}

	return src, title, nil
}

func (s *Server) extract(ctx context.Context, src models.Source) (*extractResponse, *models.Result, error) {
	result, err := s.engine.Process(ctx, src)
	if err != nil {
		return nil, nil, err
	}

	markdown := render.Rewrite(result)
	html, err := render.HTML(markdown)
	if err != nil {
		return nil, nil, err
	}

	return &extractResponse{
		Text:     render.PlainText(result),
		Markdown: markdown,
		HTML:     html,
		Images:   render.Images(result),
		Pages:    len(result.Pages),
	}, result, nil
}

// record appends to history. History must never fail an extraction, so
// errors are only logged.
func (s *Server) record(ctx context.Context, src models.Source, title string, result *models.Result) {
	if s.store == nil {
		return
	}

	err := s.store.Add(ctx, models.Entry{
		URL:   src.Input,
		Title: title,
		Pages: len(result.Pages),
		Text:  render.PlainText(result),
	})
	if err != nil {
		log.Printf("failed to record history entry: %v", err)
	}
}

type searchStore interface {
	Search(ctx context.Context, embedding []float32, limit int) ([]models.Entry, error)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusOK, []models.Entry{})
		return
	}

	ctx := r.Context()

	// A query parameter switches to similarity search when the store and
	// an embedder support it.
	if q := r.URL.Query().Get("q"); q != "" {
		if searcher, ok := s.store.(searchStore); ok && s.embedder != nil {
			embeddings, err := s.embedder.CreateEmbedding(ctx, []string{q})
			if err == nil && len(embeddings) == 1 {
				entries, err := searcher.Search(ctx, llm.FlattenEmbeddings(embeddings), s.config.HistoryLimit)
				if err != nil {
					http.Error(w, err.Error(), http.StatusInternalServerError)
					return
				}
				writeJSON(w, http.StatusOK, nonNil(entries))
				return
			}
		}
	}

	entries, err := s.store.List(ctx, s.config.HistoryLimit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, nonNil(entries))
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var msg Message
		if err := json.Unmarshal(message, &msg); err != nil {
			s.sendMessage(conn, "error", fmt.Sprintf("bad message: %v", err))
			continue
		}

		s.handleMessage(conn, msg)
	}
}

// handleMessage runs one extraction over the websocket, emitting status
// updates as it goes. Only URL sources are supported here; uploads go
// through the HTTP endpoint.
func (s *Server) handleMessage(conn *websocket.Conn, msg Message) {
	if msg.Type != "extract" {
		s.sendMessage(conn, "error", fmt.Sprintf("unknown message type: %s", msg.Type))
		return
	}

	src, err := source.FromURL(msg.Content)
	if err != nil {
		s.sendMessage(conn, "error", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Timeout)
	defer cancel()

	title := ""
	s.sendMessage(conn, "status", fmt.Sprintf("Probing %s", src.URL))
	if info, err := s.probe.Probe(ctx, src.URL); err == nil {
		title = info.Title
	}

	s.sendMessage(conn, "status", "Extracting text and images...")
	response, result, err := s.extract(ctx, src)
	if err != nil {
		s.sendMessage(conn, "error", err.Error())
		return
	}

	s.record(ctx, src, title, result)

	s.sendMessage(conn, "status", fmt.Sprintf("Processed %d pages", response.Pages))
	if err := conn.WriteJSON(Message{Type: "result", Data: response}); err != nil {
		log.Printf("Error sending result: %v", err)
	}
}

func (s *Server) sendMessage(conn *websocket.Conn, msgType string, content string) {
	msg := Message{
		Type:    msgType,
		Content: content,
	}
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}

// upstreamStatus maps extraction failures onto HTTP statuses: API errors
// keep a gateway flavor, everything else is treated as upstream trouble
// too since the pipeline has no local failure modes past input parsing.
func upstreamStatus(err error) int {
	var apiErr *ocr.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden {
			return http.StatusBadGateway
		}
		if apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			return http.StatusUnprocessableEntity
		}
	}
	return http.StatusBadGateway
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func nonNil(entries []models.Entry) []models.Entry {
	if entries == nil {
		return []models.Entry{}
	}
	return entries
}
