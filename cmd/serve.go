package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wherewasi/wherewasi/internal/export"
	"github.com/wherewasi/wherewasi/internal/model"
	"github.com/wherewasi/wherewasi/internal/pipeline"
	"github.com/wherewasi/wherewasi/internal/store"
	"github.com/wherewasi/wherewasi/internal/visit"
)

var (
	servePort  int
	serveRules string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Serve exposes imports, classification, visits, and areas over HTTP.
Archives POSTed to /api/classify are classified without being stored.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initClassifyEnv(ctx, "serve", serveRules)
		if err != nil {
			return err
		}
		defer env.Close()

		// Sweep expired holiday cache rows while the server runs.
		go store.NewJanitor(env.Store, 24*time.Hour).Run(ctx)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newMux(env),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			_ = srv.Shutdown(context.Background())
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().StringVar(&serveRules, "rules", "", "rule file (default: rules.path from config)")
	rootCmd.AddCommand(serveCmd)
}

// classifyResponse is the wire shape of both classify endpoints.
type classifyResponse struct {
	Stats  pipeline.Snapshot       `json:"stats"`
	Points []model.ClassifiedPoint `json:"points"`
}

// visitsResponse is the wire shape of the visits endpoint.
type visitsResponse struct {
	Visits  []visit.Visit `json:"visits"`
	Summary visit.Summary `json:"summary"`
}

// newMux builds the API routes. Split out so tests can drive the
// handlers through httptest.
func newMux(env *classifyEnv) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("GET /api/imports", func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if q := r.URL.Query().Get("limit"); q != "" {
			n, err := strconv.Atoi(q)
			if err != nil {
				writeError(w, http.StatusBadRequest, "limit must be an integer")
				return
			}
			limit = n
		}

		imports, err := env.Store.ListImports(r.Context(), limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, imports)
	})

	mux.HandleFunc("GET /api/imports/{id}", func(w http.ResponseWriter, r *http.Request) {
		imp, err := env.Store.GetImport(r.Context(), r.PathValue("id"))
		if eris.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "import not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, imp)
	})

	mux.HandleFunc("GET /api/classify", func(w http.ResponseWriter, r *http.Request) {
		filter, err := filterParams(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		points, year, ok := loadStoredPoints(w, r, env)
		if !ok {
			return
		}

		classified, snap, err := classifySlice(r.Context(), env, points, year)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, classifyResponse{Stats: snap, Points: filter.Apply(classified)})
	})

	mux.HandleFunc("POST /api/classify", func(w http.ResponseWriter, r *http.Request) {
		filter, err := filterParams(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		year, ok := yearParam(w, r)
		if !ok {
			return
		}

		points, err := collectArchivePoints(r.Context(), r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		classified, snap, err := classifySlice(r.Context(), env, points, year)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, classifyResponse{Stats: snap, Points: filter.Apply(classified)})
	})

	mux.HandleFunc("GET /api/visits", func(w http.ResponseWriter, r *http.Request) {
		points, year, ok := loadStoredPoints(w, r, env)
		if !ok {
			return
		}

		classified, _, err := classifySlice(r.Context(), env, points, year)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		seg := visit.NewSegmenter(env.Rules.Location())
		for _, cp := range classified {
			seg.Add(cp)
		}
		visits := seg.Finish()
		writeJSON(w, http.StatusOK, visitsResponse{Visits: visits, Summary: visit.Summarize(visits)})
	})

	mux.HandleFunc("GET /api/areas", func(w http.ResponseWriter, _ *http.Request) {
		data, err := export.MarshalAreasGeoJSON(env.Rules.Areas)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/geo+json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	})

	return mux
}

// loadStoredPoints resolves the import and year query parameters and
// fetches the matching points. ok is false when a response has already
// been written.
func loadStoredPoints(w http.ResponseWriter, r *http.Request, env *classifyEnv) ([]model.Point, int, bool) {
	importID := r.URL.Query().Get("import")
	if importID == "" {
		writeError(w, http.StatusBadRequest, "import query parameter is required")
		return nil, 0, false
	}

	year, ok := yearParam(w, r)
	if !ok {
		return nil, 0, false
	}

	if _, err := env.Store.GetImport(r.Context(), importID); err != nil {
		if eris.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "import not found")
		} else {
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return nil, 0, false
	}

	points, err := loadPoints(r.Context(), env.Store, importID, "", year)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, 0, false
	}
	return points, year, true
}

// yearParam parses the optional year query parameter, writing a 400 on
// a malformed value.
func yearParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	q := r.URL.Query().Get("year")
	if q == "" {
		return 0, true
	}
	year, err := strconv.Atoi(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, "year must be an integer")
		return 0, false
	}
	return year, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
