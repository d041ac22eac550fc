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

	"github.com/aozora-apps/sms-cli/internal/engine"
	"github.com/aozora-apps/sms-cli/internal/model"
	"github.com/aozora-apps/sms-cli/internal/procs"
	"github.com/aozora-apps/sms-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for collectors and the console",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		eng, st, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		api := &apiServer{eng: eng, store: st, procs: procs.NewTable()}

		r := chi.NewRouter()
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "Authorization"},
		}))

		r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Post("/api/collector", api.handleCollector)
		r.Get("/api/history", api.handleHistory)
		r.Post("/api/sms/send", api.handleSend)

		r.Get("/api/config/{userUid}", api.handleGetConfig)
		r.Put("/api/config/{userUid}", api.handlePutConfig)

		r.Get("/api/processes", api.handleListProcesses)
		r.Get("/api/processes/{userUid}", api.handleGetProcess)
		r.Delete("/api/processes/{userUid}", api.handleRemoveProcess)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		// Graceful shutdown
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

type apiServer struct {
	eng   *engine.Engine
	store store.Store
	procs *procs.Table
}

func (s *apiServer) handleCollector(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserUID string            `json:"userUid"`
		Results []model.RawRecord `json:"results"`
		// Config overrides the stored user config for this batch only.
		Config *model.UserConfig `json:"config,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserUID == "" {
		writeError(w, http.StatusBadRequest, "userUid is required")
		return
	}

	userCfg := req.Config
	if userCfg == nil {
		stored, err := s.store.GetUserConfig(r.Context(), req.UserUID)
		if err != nil {
			zap.L().Error("collector: config lookup failed",
				zap.String("user", req.UserUID),
				zap.Error(err),
			)
			writeError(w, http.StatusInternalServerError, "config lookup failed")
			return
		}
		userCfg = stored
	}
	if userCfg == nil {
		zap.L().Warn("collector: no config stored, delivery disabled",
			zap.String("user", req.UserUID),
		)
		userCfg = &model.UserConfig{}
	}

	s.procs.Start(req.UserUID, "collector")
	result := s.eng.ProcessBatch(r.Context(), req.UserUID, req.Results, *userCfg)
	s.procs.AppendLog(req.UserUID, "stdout",
		fmt.Sprintf("processed %d records, saved %d", len(req.Results), result.SavedCount))
	s.procs.Finish(req.UserUID, procs.StatusCompleted, 0, "")

	zap.L().Info("collector batch processed",
		zap.String("user", req.UserUID),
		zap.Int("received", len(req.Results)),
		zap.Int("saved", result.SavedCount),
	)
	writeJSON(w, http.StatusOK, result)
}

func (s *apiServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	userUID := r.URL.Query().Get("userUid")
	if userUID == "" {
		writeError(w, http.StatusBadRequest, "userUid is required")
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}

	entries, err := s.store.ListEntries(r.Context(), userUID, limit)
	if err != nil {
		zap.L().Error("history lookup failed",
			zap.String("user", userUID),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "history lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

func (s *apiServer) handleSend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserUID string `json:"userUid"`
		Phone   string `json:"phone"`
		Message string `json:"message"`
		// Config overrides the stored gateway credentials for this send.
		Config *model.SmsConfig `json:"config,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserUID == "" || req.Phone == "" || req.Message == "" {
		writeError(w, http.StatusBadRequest, "userUid, phone and message are required")
		return
	}

	smsCfg := req.Config
	if smsCfg == nil {
		userCfg, err := s.store.GetUserConfig(r.Context(), req.UserUID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "config lookup failed")
			return
		}
		if userCfg == nil {
			writeError(w, http.StatusBadRequest, "no sms config stored for user")
			return
		}
		smsCfg = &userCfg.SmsConfig
	}

	outcome := s.eng.Send(r.Context(), *smsCfg, req.Phone, req.Message)
	writeJSON(w, http.StatusOK, outcome)
}

func (s *apiServer) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	userUID := chi.URLParam(r, "userUid")
	userCfg, err := s.store.GetUserConfig(r.Context(), userUID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "config lookup failed")
		return
	}
	if userCfg == nil {
		writeError(w, http.StatusNotFound, "no config stored for user")
		return
	}
	writeJSON(w, http.StatusOK, userCfg)
}

func (s *apiServer) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	userUID := chi.URLParam(r, "userUid")
	var userCfg model.UserConfig
	if err := json.NewDecoder(r.Body).Decode(&userCfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.store.PutUserConfig(r.Context(), userUID, userCfg); err != nil {
		zap.L().Error("config store failed",
			zap.String("user", userUID),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "config store failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *apiServer) handleListProcesses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"processes": s.procs.List()})
}

func (s *apiServer) handleGetProcess(w http.ResponseWriter, r *http.Request) {
	userUID := chi.URLParam(r, "userUid")
	info, ok := s.procs.Get(userUID)
	if !ok {
		writeError(w, http.StatusNotFound, "no process for user")
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *apiServer) handleRemoveProcess(w http.ResponseWriter, r *http.Request) {
	userUID := chi.URLParam(r, "userUid")
	if !s.procs.Remove(userUID) {
		writeError(w, http.StatusNotFound, "no process for user")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
