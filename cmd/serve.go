package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/dashboard-engine/internal/appconfig"
	"github.com/sells-group/dashboard-engine/internal/dashboard"
	"github.com/sells-group/dashboard-engine/internal/scope"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(e, cfg.Dashboard.FetchLimit, cfg.Server.AllowedOrigins),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
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
	rootCmd.AddCommand(serveCmd)
}

func newRouter(e *env, fetchLimit int, origins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/api/dashboard/{view}", func(w http.ResponseWriter, req *http.Request) {
		handleDashboard(w, req, e, fetchLimit)
	})

	r.Get("/api/config", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, e.Store.Current())
	})

	r.Put("/api/config", func(w http.ResponseWriter, req *http.Request) {
		handleConfigUpdate(w, req, e)
	})

	return r
}

func handleDashboard(w http.ResponseWriter, req *http.Request, e *env, fetchLimit int) {
	view := dashboard.View(chi.URLParam(req, "view"))
	objectType, ok := view.ObjectType()
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown view %q", view))
		return
	}

	snap := e.Store.Current()
	q := req.URL.Query()

	viewer := scope.Viewer{
		UserID: q.Get("user_id"),
		OrgID:  q.Get("org_id"),
	}
	viewer.Role = snap.Config.RoleFor(viewer.UserID, q.Get("crm_role"))
	if viewer.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	dreq := dashboard.Request{
		View:   view,
		Viewer: viewer,
		Scope:  q.Get("scope"),
		Search: q.Get("search"),
		Limit:  intParam(q.Get("limit")),
		Offset: intParam(q.Get("offset")),
	}
	if field := q.Get("sort"); field != "" {
		dreq.Sort = &dashboard.SortSpec{Field: field, Descending: q.Get("desc") == "true"}
	}

	records, err := fetchForObject(req.Context(), e.CRM, objectType, fetchLimit)
	if err != nil {
		zap.L().Error("dashboard: fetch failed",
			zap.String("view", string(view)),
			zap.Error(err),
		)
		writeError(w, http.StatusBadGateway, "crm fetch failed")
		return
	}

	result, err := e.Aggregator.Build(req.Context(), records, dreq, &snap.Config)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result.ConfigVersion = snap.Version

	writeJSON(w, http.StatusOK, result)
}

type configUpdateRequest struct {
	Config    appconfig.AppConfig `json:"config"`
	UpdatedBy string              `json:"updated_by"`
}

func handleConfigUpdate(w http.ResponseWriter, req *http.Request, e *env) {
	var body configUpdateRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	snap, err := e.Store.Update(req.Context(), body.Config, body.UpdatedBy)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	zap.L().Info("config updated",
		zap.String("version", snap.Version),
		zap.String("updated_by", snap.UpdatedBy),
	)
	writeJSON(w, http.StatusOK, snap)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func intParam(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
