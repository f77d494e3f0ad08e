package main

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/hbarrio/logic2-toolkit/lib/tools"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

//go:embed webui
var webuiFS embed.FS

var (
	webPortFlag string
	webAddrFlag string
)

var webCmd = &cobra.Command{
	Use:   "web",
	Short: "Start web server with UI for running captures",
	Long: `Start a web server that serves a UI for driving the analyzer.
The UI triggers captures and receives results via WebSocket connection.
Capture metrics are exposed on /metrics in Prometheus format.`,
	Run: func(cmd *cobra.Command, args []string) {
		executeWeb(webAddrFlag, webPortFlag)
	},
}

func init() {
	webCmd.Flags().StringVarP(&webAddrFlag, "address", "a", "", "Address to bind the web server (overrides config)")
	webCmd.Flags().StringVarP(&webPortFlag, "web-port", "w", "", "Port for the web server (overrides config)")
	rootCmd.AddCommand(webCmd)
}

// WebSocket upgrader
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Command string          `json:"command"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// WSResponse represents a WebSocket response
type WSResponse struct {
	Command string      `json:"command"`
	Success bool        `json:"success"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// CaptureRequest represents the data for a capture command
type CaptureRequest struct {
	Channels       []int    `json:"channels"`
	Duration       float64  `json:"duration"`
	SampleRate     int      `json:"sample_rate"`
	ThresholdVolts *float64 `json:"threshold_volts,omitempty"`
}

// AnalyzeRequest represents the data for an analyze command
type AnalyzeRequest struct {
	Directory string `json:"directory"`
}

// WebClient represents a WebSocket client connection
type WebClient struct {
	conn *websocket.Conn
	svc  *tools.Service
	mu   sync.Mutex
}

func executeWeb(addr, port string) {
	cfg := loadConfig()
	if addr == "" {
		addr = cfg.Web.Address
	}
	if port == "" {
		port = cfg.Web.Port
	}

	registry := prometheus.NewRegistry()
	svc := newService(cfg, tools.NewMetrics(registry))

	// Serve static files from embedded webui directory
	staticFS, err := fs.Sub(webuiFS, "webui")
	if err != nil {
		log.Fatalf("Failed to access webui directory: %v", err)
	}

	http.Handle("/", http.FileServer(http.FS(staticFS)))
	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(w, r, svc)
	})

	listenAddr := fmt.Sprintf("%s:%s", addr, port)
	fmt.Printf("Starting web server on http://%s\n", listenAddr)
	fmt.Printf("Press Ctrl+C to stop the server\n")

	if err := http.ListenAndServe(listenAddr, nil); err != nil {
		log.Fatalf("Failed to start web server: %v", err)
	}
}

func handleWebSocket(w http.ResponseWriter, r *http.Request, svc *tools.Service) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	client := &WebClient{
		conn: conn,
		svc:  svc,
	}

	log.Printf("WebSocket client connected from %s", r.RemoteAddr)

	for {
		var msg WSMessage
		err := conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		client.handleMessage(msg)
	}

	log.Printf("WebSocket client disconnected from %s", r.RemoteAddr)
}

func (c *WebClient) handleMessage(msg WSMessage) {
	switch msg.Command {
	case "devices":
		c.handleDevices()
	case "capture-digital":
		c.handleCapture(msg.Command, msg.Data, false)
	case "capture-analog":
		c.handleCapture(msg.Command, msg.Data, true)
	case "analyze":
		c.handleAnalyze(msg.Data)
	case "close":
		c.handleClose()
	default:
		c.sendResponse(WSResponse{
			Command: msg.Command,
			Success: false,
			Error:   fmt.Sprintf("unknown command: %s", msg.Command),
		})
	}
}

func (c *WebClient) handleDevices() {
	devices, err := c.svc.Devices(context.Background())
	if err != nil {
		c.sendResponse(WSResponse{
			Command: "devices",
			Success: false,
			Error:   fmt.Sprintf("failed to list devices: %v", err),
		})
		return
	}

	c.sendResponse(WSResponse{
		Command: "devices",
		Success: true,
		Data:    devices,
	})
}

func (c *WebClient) handleCapture(command string, data json.RawMessage, analog bool) {
	var req CaptureRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.sendResponse(WSResponse{
			Command: command,
			Success: false,
			Error:   fmt.Sprintf("invalid capture request: %v", err),
		})
		return
	}

	if req.Duration <= 0 {
		req.Duration = 1.0
	}
	if req.SampleRate <= 0 {
		if analog {
			req.SampleRate = tools.DefaultAnalogSampleRate
		} else {
			req.SampleRate = tools.DefaultDigitalSampleRate
		}
	}

	// A capture can take as long as its duration plus processing, so run
	// it off the read loop and push the result when it lands.
	go func() {
		var report interface{}
		if analog {
			report = c.svc.CaptureAndAnalyzeAnalog(context.Background(), tools.AnalogRequest{
				Channels:        req.Channels,
				DurationSeconds: req.Duration,
				SampleRate:      req.SampleRate,
			})
		} else {
			report = c.svc.CaptureAndAnalyzeDigital(context.Background(), tools.DigitalRequest{
				Channels:        req.Channels,
				DurationSeconds: req.Duration,
				SampleRate:      req.SampleRate,
				ThresholdVolts:  req.ThresholdVolts,
			})
		}

		c.sendResponse(WSResponse{
			Command: command,
			Success: true,
			Data:    report,
		})
	}()
}

func (c *WebClient) handleAnalyze(data json.RawMessage) {
	var req AnalyzeRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.sendResponse(WSResponse{
			Command: "analyze",
			Success: false,
			Error:   fmt.Sprintf("invalid analyze request: %v", err),
		})
		return
	}

	c.sendResponse(WSResponse{
		Command: "analyze",
		Success: true,
		Data:    c.svc.AnalyzeDirectory(req.Directory),
	})
}

func (c *WebClient) handleClose() {
	c.sendResponse(WSResponse{
		Command: "close",
		Success: true,
	})

	// Close the WebSocket connection
	c.conn.Close()
}

func (c *WebClient) sendResponse(resp WSResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.WriteJSON(resp); err != nil {
		log.Printf("Failed to send WebSocket response: %v", err)
	}
}
