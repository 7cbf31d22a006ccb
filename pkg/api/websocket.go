package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"transcriptor/pkg/models"
	"transcriptor/pkg/storage"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketMessage struct {
	Type   string          `json:"type"`
	JobID  string          `json:"job_id,omitempty"`
	Status string          `json:"status,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// WebSocketHandler streams job status transitions. Clients send
// {"type":"watch","job_id":...} and receive status updates until the job
// completes or fails.
func (h *Handlers) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	for {
		var msg WebSocketMessage
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}

		switch msg.Type {
		case "watch":
			if msg.JobID == "" {
				h.sendMessage(conn, WebSocketMessage{Type: "error", Error: "job_id is required"})
				continue
			}
			go h.watchJob(conn, msg.JobID)
		case "ping":
			h.sendMessage(conn, WebSocketMessage{Type: "pong"})
		default:
			h.sendMessage(conn, WebSocketMessage{Type: "error", Error: "unknown message type"})
		}
	}
}

func (h *Handlers) watchJob(conn *websocket.Conn, jobID string) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	var lastStatus models.JobStatus

	for {
		select {
		case <-h.baseCtx.Done():
			return
		case <-ticker.C:
			job, err := h.jobs.GetJob(jobID)
			if err != nil {
				if errors.Is(err, storage.ErrJobNotFound) {
					h.sendMessage(conn, WebSocketMessage{Type: "error", JobID: jobID, Error: "job not found"})
				}
				return
			}

			if job.Status != lastStatus {
				lastStatus = job.Status
				h.sendMessage(conn, WebSocketMessage{
					Type:   "status_update",
					JobID:  jobID,
					Status: string(job.Status),
				})
			}

			switch job.Status {
			case models.StatusCompleted:
				h.sendMessage(conn, WebSocketMessage{
					Type:  "job_complete",
					JobID: jobID,
					Data:  mustMarshal(job),
				})
				return
			case models.StatusFailed:
				h.sendMessage(conn, WebSocketMessage{
					Type:  "job_failed",
					JobID: jobID,
					Error: job.Error,
				})
				return
			}
		}
	}
}

func (h *Handlers) sendMessage(conn *websocket.Conn, msg WebSocketMessage) {
	if err := conn.WriteJSON(msg); err != nil {
		h.log.Debug("websocket write failed", "error", err)
	}
}

func mustMarshal(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
