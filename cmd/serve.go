package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/account-advisor/internal/advisor"
	"github.com/sells-group/account-advisor/internal/model"
	"github.com/sells-group/account-advisor/internal/monitoring"
	"github.com/sells-group/account-advisor/internal/store"
	"github.com/sells-group/account-advisor/pkg/notion"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the recommendation and approval API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		pb, err := loadPlaybook()
		if err != nil {
			return err
		}

		opts := []advisor.AdvisorOption{advisor.WithStore(st)}
		if cfg.Notion.Token != "" && cfg.Notion.ReviewDB != "" {
			opts = append(opts, advisor.WithNotion(notion.NewClient(cfg.Notion.Token)))
		}
		adv := advisor.New(cfg, pb, opts...)
		collector := monitoring.NewCollector()

		api := &apiServer{store: st, advisor: adv, collector: collector}

		r := chi.NewRouter()
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "Authorization"},
		}))

		r.Get("/health", api.handleHealth)
		r.Get("/metrics", api.handleMetrics)
		r.Route("/accounts/{accountID}", func(r chi.Router) {
			r.Post("/recommendations", api.handleGenerate)
			r.Get("/batch", api.handleLatestBatch)
		})
		r.Route("/recommendations", func(r chi.Router) {
			r.Get("/pending", api.handlePending)
			r.Get("/{id}", api.handleGet)
			r.Post("/{id}/approve", api.handleApprove)
			r.Post("/{id}/reject", api.handleReject)
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
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

type apiServer struct {
	store     store.Store
	advisor   *advisor.Advisor
	collector *monitoring.Collector
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *apiServer) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.collector.Collect())
}

func (s *apiServer) handleGenerate(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	var rctx model.RecommendationContext
	if err := json.NewDecoder(r.Body).Decode(&rctx); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if rctx.AccountID == "" {
		rctx.AccountID = accountID
	}
	if rctx.AccountID != accountID {
		writeError(w, http.StatusBadRequest, "account_id does not match path")
		return
	}

	result, err := s.advisor.GenerateBatch(r.Context(), &rctx)
	if err != nil {
		zap.L().Error("batch generation failed",
			zap.String("account", accountID),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "batch generation failed")
		return
	}
	s.collector.ObserveBatch(result)

	writeJSON(w, http.StatusCreated, result)
}

func (s *apiServer) handleLatestBatch(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	batch, err := s.store.GetLatestBatch(r.Context(), accountID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "load batch failed")
		return
	}
	if batch == nil {
		writeError(w, http.StatusNotFound, "no batch for account")
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

func (s *apiServer) handlePending(w http.ResponseWriter, r *http.Request) {
	filter := store.PendingFilter{
		AccountID: r.URL.Query().Get("account"),
		Limit:     50,
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = n
	}

	recs, err := s.store.ListPending(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list pending failed")
		return
	}
	if recs == nil {
		recs = []model.Recommendation{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *apiServer) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := s.store.GetRecommendation(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "load recommendation failed")
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "recommendation not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *apiServer) handleApprove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		ApproverID    string                 `json:"approver_id"`
		Modifications *advisor.Modifications `json:"modifications,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ApproverID == "" {
		writeError(w, http.StatusBadRequest, "approver_id is required")
		return
	}

	rec, err := s.store.GetRecommendation(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "load recommendation failed")
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "recommendation not found")
		return
	}

	if err := s.advisor.Gate().Approve(rec, req.ApproverID, req.Modifications); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err := s.store.RecordDecision(r.Context(), rec, model.StatusPendingApproval); err != nil {
		if eris.Is(err, store.ErrStaleStatus) {
			writeError(w, http.StatusConflict, "recommendation already decided")
			return
		}
		writeError(w, http.StatusInternalServerError, "record decision failed")
		return
	}
	s.collector.ObserveDecision(rec.Status)

	writeJSON(w, http.StatusOK, rec)
}

func (s *apiServer) handleReject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		ApproverID string `json:"approver_id"`
		Reason     string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ApproverID == "" || req.Reason == "" {
		writeError(w, http.StatusBadRequest, "approver_id and reason are required")
		return
	}

	rec, err := s.store.GetRecommendation(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "load recommendation failed")
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "recommendation not found")
		return
	}

	if err := s.advisor.Gate().Reject(rec, req.ApproverID, req.Reason); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err := s.store.RecordDecision(r.Context(), rec, model.StatusPendingApproval); err != nil {
		if eris.Is(err, store.ErrStaleStatus) {
			writeError(w, http.StatusConflict, "recommendation already decided")
			return
		}
		writeError(w, http.StatusInternalServerError, "record decision failed")
		return
	}
	s.collector.ObserveDecision(rec.Status)

	writeJSON(w, http.StatusOK, rec)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
