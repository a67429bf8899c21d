package api

import (
	"bufio"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"reddit-agent/internal/config"
	"reddit-agent/internal/ollama"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// safeWSConn serializes writes; gorilla connections allow one writer at a time.
type safeWSConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *safeWSConn) WriteJSON(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

func (s *safeWSConn) Close() error {
	return s.conn.Close()
}

// WSToken is one streamed summary fragment.
type WSToken struct {
	Token string `json:"token"`
	Index int    `json:"index"`
}

// GET /ws/summarize?post_id=...&model=... streams a post summary token by
// token. The client can send {"event":"stop"} to abort generation.
func WSSummarizeHandler(cfg *config.Config, svc *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		postID := c.Query("post_id")
		if postID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "post_id is required"}})
			return
		}
		model := c.Query("model")

		rawConn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("[WS] Upgrade failed: %v", err)
			return
		}
		conn := &safeWSConn{conn: rawConn}
		defer conn.Close()

		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()

		// Listen for stop messages from client
		go func() {
			for {
				_, msg, err := rawConn.ReadMessage()
				if err != nil {
					cancel() // WS closed
					return
				}
				var req map[string]interface{}
				if json.Unmarshal(msg, &req) == nil && req["event"] == "stop" {
					cancel() // Explicit stop message
					return
				}
			}
		}()

		p, err := loadPost(ctx, svc, postID)
		if err != nil {
			conn.WriteJSON(gin.H{"event": "error", "message": "Post not found or Reddit unreachable"})
			return
		}
		content := postContent(ctx, cfg, p)
		if content == "" {
			conn.WriteJSON(gin.H{"event": "error", "message": "Post has no text to summarize"})
			return
		}

		if err := streamSummaryWS(ctx, conn, svc.Ollama, model, ollama.SummarizePrompt(content)); err != nil {
			log.Printf("[WS] Streaming failed for %s: %v", postID, err)
			conn.WriteJSON(gin.H{"event": "error", "message": "Summary generation failed"})
		}
	}
}

// streamSummaryWS relays Ollama's NDJSON stream to the WebSocket client.
func streamSummaryWS(ctx context.Context, conn *safeWSConn, client *ollama.Client, model, prompt string) error {
	resp, cancel, err := client.GenerateStream(ctx, model, prompt)
	if err != nil {
		return err
	}
	defer cancel()
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	index := 0
	var startTime time.Time
	for scanner.Scan() {
		var chunk struct {
			Response string `json:"response"`
			Done     bool   `json:"done"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &chunk); err != nil {
			log.Printf("[WS] Stream decode error: %v", err)
			continue
		}

		if chunk.Response != "" {
			if startTime.IsZero() {
				startTime = time.Now()
			}
			conn.WriteJSON(WSToken{Token: chunk.Response, Index: index})
			index++
		}
		if chunk.Done {
			break
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return err
	}

	var toksPerSec float64
	if !startTime.IsZero() {
		duration := time.Since(startTime).Seconds()
		if duration > 0 {
			toksPerSec = float64(index) / duration
		}
	}
	conn.WriteJSON(gin.H{
		"event":          "end",
		"tokens_per_sec": toksPerSec,
	})
	return nil
}
