package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/market-scan/internal/model"
	"github.com/sells-group/market-scan/internal/scan"
	"github.com/sells-group/market-scan/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the scan API server",
	Long:  "Serves scan creation, history, and live progress over HTTP. Progress streams as server-sent events.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if pruned, err := st.DeleteExpiredListings(ctx); err != nil {
			zap.L().Warn("cache prune failed", zap.Error(err))
		} else if pruned > 0 {
			zap.L().Info("pruned expired cached listings", zap.Int("count", pruned))
		}

		orch, err := newOrchestrator(st)
		if err != nil {
			return err
		}

		api := &scanAPI{store: st, orch: orch}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: api.routes(),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(context.Background()) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// scanAPI serves the HTTP surface over the store and orchestrator.
type scanAPI struct {
	store store.Store
	orch  *scan.Orchestrator
}

func (a *scanAPI) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/scans", func(r chi.Router) {
		r.Post("/", a.createScan)
		r.Get("/", a.listScans)
		r.Get("/{scanID}", a.getScan)
		r.Get("/{scanID}/events", a.streamEvents)
		r.Post("/{scanID}/decision", a.postDecision)
	})

	return r
}

func (a *scanAPI) createScan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Keyword        string `json:"keyword"`
		SampleSize     int    `json:"sample_size"`
		IncludeReviews *bool  `json:"include_reviews"`
		ForceRefresh   bool   `json:"force_refresh"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Keyword == "" {
		writeError(w, http.StatusBadRequest, "keyword is required")
		return
	}

	sampleSize := req.SampleSize
	if sampleSize == 0 {
		sampleSize = cfg.Scan.SampleSize
	}
	includeReviews := true
	if req.IncludeReviews != nil {
		includeReviews = *req.IncludeReviews
	}

	sc, err := a.store.CreateScan(r.Context(), req.Keyword, model.ScanOptions{
		SampleSize:     sampleSize,
		IncludeReviews: includeReviews,
		ForceRefresh:   req.ForceRefresh,
	})
	if err != nil {
		zap.L().Error("create scan failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create scan")
		return
	}

	// The scan outlives the request; progress is observable via the
	// events stream and the persisted record.
	go func() {
		if err := a.orch.Run(context.Background(), sc); err != nil {
			zap.L().Error("scan failed",
				zap.String("scan_id", sc.ID),
				zap.Error(err),
			)
		}
	}()

	writeJSON(w, http.StatusAccepted, sc)
}

func (a *scanAPI) listScans(w http.ResponseWriter, r *http.Request) {
	filter := store.ScanFilter{
		Status:  model.ScanStatus(r.URL.Query().Get("status")),
		Keyword: r.URL.Query().Get("keyword"),
		Limit:   50,
	}

	scans, err := a.store.ListScans(r.Context(), filter)
	if err != nil {
		zap.L().Error("list scans failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list scans")
		return
	}

	writeJSON(w, http.StatusOK, scans)
}

func (a *scanAPI) getScan(w http.ResponseWriter, r *http.Request) {
	detail, err := loadScanDetail(r.Context(), a.store, chi.URLParam(r, "scanID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "scan not found")
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// streamEvents streams progress for one scan as server-sent events. It
// subscribes before snapshotting persisted state, so a scan that
// finishes in between is replayed from the record rather than missed;
// mid-scan connects get a resume event with the current status.
func (a *scanAPI) streamEvents(w http.ResponseWriter, r *http.Request) {
	scanID := chi.URLParam(r, "scanID")
	if _, err := a.store.GetScan(r.Context(), scanID); err != nil {
		writeError(w, http.StatusNotFound, "scan not found")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	events, cancel := a.orch.Broadcaster().Subscribe(scanID)
	defer cancel()

	sc, err := a.store.GetScan(r.Context(), scanID)
	if err != nil {
		return
	}
	if sc.Status.Terminal() {
		writeSSE(w, terminalEvent(sc))
		flusher.Flush()
		return
	}
	if sc.Status != model.ScanStatusQueued {
		writeSSE(w, model.ProgressEvent{
			Phase:    sc.Status,
			Message:  fmt.Sprintf("Resuming — current status: %s", sc.Status),
			Progress: 0,
		})
		flusher.Flush()
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-events:
			if !open {
				return
			}
			writeSSE(w, ev)
			flusher.Flush()
			if ev.Phase.Terminal() {
				return
			}
		}
	}
}

func (a *scanAPI) postDecision(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Decision string `json:"decision"`
		Notes    string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	verdict := model.DecisionValue(req.Decision)
	switch verdict {
	case model.DecisionBuild, model.DecisionKill, model.DecisionHold:
	default:
		writeError(w, http.StatusBadRequest, "decision must be build, kill, or hold")
		return
	}

	sc, err := a.store.GetScan(r.Context(), chi.URLParam(r, "scanID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "scan not found")
		return
	}
	if !sc.Status.Terminal() {
		writeError(w, http.StatusConflict, "scan is still running")
		return
	}

	d := model.Decision{
		ScanID:    sc.ID,
		Decision:  verdict,
		Notes:     req.Notes,
		DecidedAt: time.Now().UTC(),
	}
	if err := a.store.SaveDecision(r.Context(), d); err != nil {
		zap.L().Error("save decision failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to save decision")
		return
	}

	writeJSON(w, http.StatusOK, d)
}

// terminalEvent synthesizes the final progress event for a scan that
// finished before the subscriber connected.
func terminalEvent(sc *model.Scan) model.ProgressEvent {
	ev := model.ProgressEvent{Phase: sc.Status, Progress: 100}
	switch sc.Status {
	case model.ScanStatusComplete:
		ev.Message = "Brief ready"
	case model.ScanStatusNeedsReview:
		ev.Message = "Brief needs review — QA issues found"
	case model.ScanStatusError:
		ev.Message = sc.ErrorMessage
		ev.Progress = -1
	}
	return ev
}

func writeSSE(w http.ResponseWriter, ev model.ProgressEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
