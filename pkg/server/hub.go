package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"pivsynth/internal/models"
	"pivsynth/pkg/config"
	"pivsynth/pkg/synthesis"
	"pivsynth/pkg/visualization"
)

// SnapshotContent is the JSON payload of a snapshot message
type SnapshotContent struct {
	Index   int                   `json:"index"`
	Metrics synthesis.PairMetrics `json:"metrics"`
	Dropped int                   `json:"dropped"`
	Width   int                   `json:"width"`
	Height  int                   `json:"height"`
	Image1  string                `json:"image1"`
	Image2  string                `json:"image2"`
}

// FinishedContent is the JSON payload of a finished message
type FinishedContent struct {
	Pairs     int            `json:"pairs"`
	Seeded    int            `json:"seeded"`
	Failures  map[string]int `json:"failures"`
	ElapsedMS int64          `json:"elapsedMs"`
}

// Hub serves one websocket connection.
// A single writer goroutine owns all writes to the connection.
type Hub struct {
	conn *websocket.Conn
	base *config.Config

	// response
	send chan models.Msg
	done chan struct{}

	mu      sync.Mutex
	current *job
	jobs    sync.WaitGroup
}

// job is one background synthesis run
type job struct {
	cancel context.CancelFunc
}

func NewHub(conn *websocket.Conn, base *config.Config) *Hub {
	return &Hub{
		conn: conn,
		base: base,
		send: make(chan models.Msg, 64),
		done: make(chan struct{}),
	}
}

// Run serves requests until the peer disconnects
func (h *Hub) Run() {
	var writer sync.WaitGroup
	writer.Add(1)
	go func() {
		defer writer.Done()
		h.handleResponse()
	}()

	h.handleRequest()

	h.stop()
	h.jobs.Wait()
	close(h.done)
	writer.Wait()
	h.conn.Close()
}

func (h *Hub) handleResponse() {
	for {
		select {
		case reply := <-h.send:
			if err := h.conn.WriteJSON(&reply); err != nil {
				log.WithError(err).Warn("websocket write failed")
			}
		case <-h.done:
			return
		}
	}
}

func (h *Hub) handleRequest() {
	for {
		var msg models.Msg
		if err := h.conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Debug("websocket read ended")
			}
			return
		}

		switch msg.Type {
		case models.MsgRun:
			if err := h.start(msg.Content); err != nil {
				h.reply(models.MsgError, err.Error())
			}
		case models.MsgCancel:
			if !h.stop() {
				h.reply(models.MsgError, "no run in progress")
			}
		default:
			h.reply(models.MsgError, fmt.Sprintf("unknown message type %q", msg.Type))
		}
	}
}

// reply queues a message for the writer
func (h *Hub) reply(kind, content string) {
	h.send <- models.Msg{Type: kind, Content: content}
}

// replyJSON queues a message whose content is v encoded as JSON
func (h *Hub) replyJSON(kind string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		h.reply(models.MsgError, err.Error())
		return
	}
	h.reply(kind, string(data))
}

// stop cancels the active run and reports whether there was one
func (h *Hub) stop() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current == nil {
		return false
	}
	h.current.cancel()
	h.current = nil
	return true
}

// start builds a synthesizer from the base configuration overlaid with
// overlay and runs it in the background
func (h *Hub) start(overlay string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current != nil {
		return errors.New("a run is already in progress")
	}

	cfg := *h.base
	if err := config.Parse([]byte(overlay), &cfg); err != nil {
		return fmt.Errorf("invalid run configuration: %w", err)
	}
	params, sampler, err := synthesis.FromConfig(&cfg)
	if err != nil {
		return err
	}
	params.Progress = func(e synthesis.Event) {
		h.replyJSON(models.MsgProgress, e)
	}
	synth, err := synthesis.New(params, sampler)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	j := &job{cancel: cancel}
	h.current = j
	h.jobs.Add(1)
	go func() {
		defer h.jobs.Done()
		defer synth.Close()
		h.execute(ctx, synth)

		cancel()
		h.mu.Lock()
		if h.current == j {
			h.current = nil
		}
		h.mu.Unlock()
	}()
	return nil
}

// execute runs one synthesis and reports its outcome
func (h *Hub) execute(ctx context.Context, synth *synthesis.Synthesizer) {
	p := synth.Params()
	h.replyJSON(models.MsgStarted, map[string]int{
		"pairs":     p.Pairs,
		"particles": p.Diameters.Count,
		"width":     p.Camera.XResolution,
		"height":    p.Camera.YResolution,
	})

	summary, err := synth.Run(ctx, func(snap *synthesis.Snapshot) error {
		content, err := snapshotContent(snap)
		if err != nil {
			return err
		}
		h.replyJSON(models.MsgSnapshot, content)
		return nil
	})

	switch {
	case errors.Is(err, synthesis.ErrCancelled):
		h.reply(models.MsgCancelled, err.Error())
	case err != nil:
		log.WithError(err).Error("synthesis run failed")
		h.reply(models.MsgError, err.Error())
	default:
		failures := make(map[string]int, len(summary.Failures))
		for kind, n := range summary.Failures {
			failures[kind.String()] = n
		}
		h.replyJSON(models.MsgFinished, FinishedContent{
			Pairs:     summary.Pairs,
			Seeded:    summary.Seeded,
			Failures:  failures,
			ElapsedMS: summary.Elapsed.Milliseconds(),
		})
	}
}

// snapshotContent encodes both images of snap as base64 PNG
func snapshotContent(snap *synthesis.Snapshot) (*SnapshotContent, error) {
	png1, err := visualization.EncodePNG(snap.Image1)
	if err != nil {
		return nil, err
	}
	png2, err := visualization.EncodePNG(snap.Image2)
	if err != nil {
		return nil, err
	}
	return &SnapshotContent{
		Index:   snap.Index,
		Metrics: snap.Metrics,
		Dropped: len(snap.Failures),
		Width:   snap.Image1.Width,
		Height:  snap.Image1.Height,
		Image1:  base64.StdEncoding.EncodeToString(png1),
		Image2:  base64.StdEncoding.EncodeToString(png2),
	}, nil
}
