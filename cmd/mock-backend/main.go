// Command mock-backend fakes the Tongyi/Qwen web endpoints for local
// development and integration testing. The conversation endpoint emits
// cumulative snapshot SSE streams the way the real backend does, and the
// task endpoints script an async generation job that resolves after a
// few polls.
//
// Configuration:
//
//	MOCK_PORT - Listen port (default: 9090)
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"
)

func main() {
	port := os.Getenv("MOCK_PORT")
	if port == "" {
		port = "9090"
	}

	b := newBackend()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /dialog/conversation", b.handleConversation)
	mux.HandleFunc("POST /assistant/api/record/list", b.handleRecordList)
	mux.HandleFunc("POST /api/v2/chat/completions", b.handleTaskSubmit)
	mux.HandleFunc("GET /api/v1/tasks/status/{id}", b.handleTaskStatus)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	srv := &http.Server{Addr: ":" + port, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mock backend starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("mock backend failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("mock backend shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}

// backend holds the scripted task state.
type backend struct {
	mu     sync.Mutex
	nextID int
	tasks  map[string]*task
}

type task struct {
	msgType string
	polls   int
}

func newBackend() *backend {
	return &backend{tasks: make(map[string]*task)}
}

// --- Conversation endpoint ---

type conversationRequest struct {
	Contents []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"contents"`
	Model string `json:"model"`
}

// handleConversation streams the reply as cumulative snapshots: each SSE
// event repeats everything sent so far plus one more word.
func (b *backend) handleConversation(w http.ResponseWriter, r *http.Request) {
	var req conversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"errorMsg":"invalid payload"}`, http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")

	reply := replyFor(lastUserContent(&req))
	words := strings.Fields(reply)

	var full strings.Builder
	for i, word := range words {
		if i > 0 {
			full.WriteString(" ")
		}
		full.WriteString(word)
		writeSnapshot(w, full.String())
		flusher.Flush()
	}

	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

func writeSnapshot(w http.ResponseWriter, content string) {
	event := map[string]any{
		"contents": []map[string]any{
			{"role": "assistant", "content": content, "contentType": "text"},
		},
	}
	data, _ := json.Marshal(event)
	fmt.Fprintf(w, "data: %s\n\n", data)
}

func replyFor(prompt string) string {
	if strings.Contains(strings.ToLower(prompt), "count from 1 to 5") {
		return "1 2 3 4 5"
	}
	return "Hello there, nice day for a mock conversation!"
}

func lastUserContent(req *conversationRequest) string {
	for i := len(req.Contents) - 1; i >= 0; i-- {
		if req.Contents[i].Role == "user" {
			return req.Contents[i].Content
		}
	}
	return ""
}

// --- Pre-warm endpoint ---

func (b *backend) handleRecordList(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{"success":true,"data":{"records":[]}}`)
}

// --- Task endpoints ---

type taskSubmitRequest struct {
	MsgType string `json:"msg_type"`
	Model   string `json:"model"`
}

// handleTaskSubmit accepts a generation job and answers with an SSE
// stream that names the task ID, mirroring the real submission shape.
func (b *backend) handleTaskSubmit(w http.ResponseWriter, r *http.Request) {
	var req taskSubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"errorMsg":"invalid payload"}`, http.StatusBadRequest)
		return
	}

	b.mu.Lock()
	b.nextID++
	id := fmt.Sprintf("mock-task-%d", b.nextID)
	b.tasks[id] = &task{msgType: req.MsgType}
	b.mu.Unlock()

	slog.Info("task accepted", "task_id", id, "msg_type", req.MsgType)

	w.Header().Set("Content-Type", "text/event-stream")
	fmt.Fprint(w, "data: {\"contents\":[]}\n\n")
	fmt.Fprintf(w, "data: {\"taskIds\":[%q]}\n\n", id)
	fmt.Fprint(w, "data: [DONE]\n\n")
}

// handleTaskStatus reports pending twice, then succeeded with a canned
// artifact URL matching the job type.
func (b *backend) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	b.mu.Lock()
	t, ok := b.tasks[id]
	if ok {
		t.polls++
	}
	b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if !ok {
		fmt.Fprint(w, `{"status":"failed","result":"unknown task"}`)
		return
	}

	if t.polls <= 2 {
		fmt.Fprint(w, `{"status":"pending"}`)
		return
	}

	if t.msgType == "t2v" {
		fmt.Fprintf(w, `{"status":"succeeded","result":{"videos":[{"url":"https://mock.local/%s.mp4"}]}}`, id)
		return
	}
	fmt.Fprintf(w, `{"status":"succeeded","result":{"images":[{"url":"https://mock.local/%s.png"}]}}`, id)
}
