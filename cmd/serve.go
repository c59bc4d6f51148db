package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cavena/mobility-cli/internal/export"
	"github.com/cavena/mobility-cli/internal/model"
	"github.com/cavena/mobility-cli/internal/store"
)

var servePort int

// runTrigger starts the pipeline for a created run; the serve command
// provides the real asynchronous implementation, tests provide a stub.
type runTrigger func(runID, site, city, csvData string)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the audit API over stored runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		trigger := func(runID, site, city, csvData string) {
			go func() {
				// Detached from the request context: a run outlives the
				// HTTP exchange that accepted it.
				_, _, err := executeRun(context.Background(), st, runID, site, city, "", strings.NewReader(csvData))
				if err != nil {
					zap.L().Error("api run failed", zap.String("run_id", runID), zap.Error(err))
					return
				}
				zap.L().Info("api run complete", zap.String("run_id", runID))
			}()
		}

		router := newServeRouter(st, trigger)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

// newServeRouter builds the HTTP API.
func newServeRouter(st store.Store, trigger runTrigger) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/runs", func(w http.ResponseWriter, req *http.Request) {
		filter := store.RunFilter{
			Status: model.RunStatus(req.URL.Query().Get("status")),
			Site:   req.URL.Query().Get("site"),
		}
		runs, err := st.ListRuns(req.Context(), filter)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, runs)
	})

	r.Get("/runs/{id}", func(w http.ResponseWriter, req *http.Request) {
		run, err := st.GetRun(req.Context(), chi.URLParam(req, "id"))
		if err != nil {
			writeRunError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, run)
	})

	r.Get("/runs/{id}/geojson", func(w http.ResponseWriter, req *http.Request) {
		run, err := st.GetRun(req.Context(), chi.URLParam(req, "id"))
		if err != nil {
			writeRunError(w, err)
			return
		}
		if run.State == nil {
			writeError(w, http.StatusConflict, eris.New("run has no stored state"))
			return
		}

		routes, err := export.RoutesCollection(run.State.Routes)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"points":     export.PointsCollection(run.State.GeocodedTrips),
			"routes":     routes,
			"isochrones": export.AllIsochrones(run.State.Isochrones),
		})
	})

	r.Post("/runs", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			SiteName string `json:"site_name"`
			City     string `json:"city"`
			CSV      string `json:"csv"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, eris.New("invalid request body"))
			return
		}
		if strings.TrimSpace(body.CSV) == "" {
			writeError(w, http.StatusBadRequest, eris.New("csv is required"))
			return
		}

		run, err := st.CreateRun(req.Context(), body.SiteName, body.City)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		trigger(run.ID, body.SiteName, body.City, body.CSV)

		writeJSON(w, http.StatusAccepted, map[string]string{
			"run_id": run.ID,
			"status": "accepted",
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeRunError(w http.ResponseWriter, err error) {
	if eris.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeError(w, http.StatusInternalServerError, err)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
