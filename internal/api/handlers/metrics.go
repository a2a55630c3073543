package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/Conceptual-Machines/thumbforge-api/internal/assets"
	"github.com/Conceptual-Machines/thumbforge-api/internal/editor"
	"github.com/Conceptual-Machines/thumbforge-api/internal/history"
	"github.com/Conceptual-Machines/thumbforge-api/internal/metrics"
	"github.com/Conceptual-Machines/thumbforge-api/internal/models"
	"github.com/gin-gonic/gin"
)

const bytesToMB = 1024 * 1024

// MetricsHandler reports service limits and the domain counters recorded
// since start. The Prometheus series are served separately on /metrics.
type MetricsHandler struct {
	startTime time.Time
	version   string
	history   *history.Store
}

func NewMetricsHandler(version string, historyStore *history.Store) *MetricsHandler {
	return &MetricsHandler{
		startTime: time.Now(),
		version:   version,
		history:   historyStore,
	}
}

type MetricsResponse struct {
	Status        string           `json:"status"`
	Version       string           `json:"version"`
	StartTime     string           `json:"start_time"`
	Uptime        string           `json:"uptime"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Limits        ServiceLimits    `json:"limits"`
	History       HistoryMetrics   `json:"history"`
	Counters      map[string]int64 `json:"counters"`
	Runtime       RuntimeMetrics   `json:"runtime"`
}

type ServiceLimits struct {
	VariationsPerCycle int    `json:"variations_per_cycle"`
	MaxReferenceImages int    `json:"max_reference_images"`
	MaxUploadMB        int64  `json:"max_upload_mb"`
	EditorJPEGQuality  int    `json:"editor_jpeg_quality"`
	DefaultStyle       string `json:"default_style"`
}

type HistoryMetrics struct {
	Backend string `json:"backend"`
	Cap     int    `json:"cap"`
}

type RuntimeMetrics struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	MemAllocMB   uint64 `json:"mem_alloc_mb"`
	NumGC        uint32 `json:"num_gc"`
}

func (h *MetricsHandler) GetMetrics(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	uptime := time.Since(h.startTime)
	resp := MetricsResponse{
		Status:        "healthy",
		Version:       h.version,
		StartTime:     h.startTime.UTC().Format(time.RFC3339),
		Uptime:        uptime.Round(time.Second).String(),
		UptimeSeconds: int64(uptime.Seconds()),
		Limits: ServiceLimits{
			VariationsPerCycle: models.VariationsPerCycle,
			MaxReferenceImages: assets.MaxAssets,
			MaxUploadMB:        assets.MaxFileSize / bytesToMB,
			EditorJPEGQuality:  editor.JPEGQuality,
			DefaultStyle:       models.DefaultStyle,
		},
		Counters: metrics.Snapshot(),
		Runtime: RuntimeMetrics{
			GoVersion:    runtime.Version(),
			NumGoroutine: runtime.NumGoroutine(),
			MemAllocMB:   m.Alloc / bytesToMB,
			NumGC:        m.NumGC,
		},
	}
	if h.history != nil {
		resp.History = HistoryMetrics{Backend: h.history.BackendName(), Cap: h.history.Cap()}
	}

	c.JSON(http.StatusOK, resp)
}
