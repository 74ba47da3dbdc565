package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"fundflow-lab/internal/domain"
	"fundflow-lab/internal/fundflow"
	"fundflow-lab/internal/observability"
	"fundflow-lab/internal/pipeline"
	"fundflow-lab/internal/storage"
)

var (
	serveFixtures bool
	serveInterval time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve metrics, the taxonomy and stored sequences over HTTP",
	Long: `Starts an HTTP server exposing:

  GET  /health                 liveness
  GET  /metrics                Prometheus metrics
  GET  /status                 pipeline run counters
  GET  /taxonomy               taxonomy artifact
  GET  /sequences/{address}    stored sequence of a contract
  POST /sequences/{address}    build and store the sequence of a contract

With --interval the pipeline also runs over every stored contract on a schedule.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		stores, cleanup, err := openStores(ctx, cfg.Storage)
		if err != nil {
			return err
		}
		defer cleanup()

		if serveFixtures {
			if err := pipeline.LoadFixtures(ctx, stores.contracts, stores.transactions); err != nil {
				return err
			}
		}

		tax, err := loadTaxonomy()
		if err != nil {
			return err
		}
		if _, err := syncCases(cmd, stores.cases, tax); err != nil {
			return err
		}

		s := newServer(stores, tax, logger)
		if serveInterval > 0 {
			go s.runScheduled(ctx, serveInterval)
		}

		httpServer := &http.Server{
			Addr:              cfg.Server.MetricsAddr,
			Handler:           s.routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("starting HTTP server", zap.String("addr", httpServer.Addr))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveFixtures, "fixtures", false, "Load the demonstration dataset first")
	serveCmd.Flags().DurationVar(&serveInterval, "interval", 0, "Run the pipeline over all contracts on this schedule (0 disables)")
}

// server serves stored sequences and runs the pipeline on demand.
type server struct {
	contracts storage.ContractStore
	sequences storage.SequenceStore
	taxonomy  *fundflow.Taxonomy
	runner    *pipeline.Runner
	logger    *zap.Logger
	started   time.Time

	mu           sync.Mutex
	pipelineRuns int
	lastRun      time.Time
	lastResult   *pipeline.RunResult
}

func newServer(stores *allStores, tax *fundflow.Taxonomy, logger *zap.Logger) *server {
	workers := 1
	failFast := false
	tolerance := fundflow.DefaultTolerance
	if cfg != nil {
		workers = cfg.Pipeline.Workers
		failFast = cfg.Pipeline.FailFast
		tolerance = cfg.ToleranceDecimal()
	}

	return &server{
		contracts: stores.contracts,
		sequences: stores.sequences,
		taxonomy:  tax,
		runner: pipeline.New(pipeline.Options{
			Contracts:    stores.contracts,
			Transactions: stores.transactions,
			Sequences:    stores.sequences,
			Classifier:   fundflow.NewClassifier(tax, fundflow.WithTolerance(tolerance)),
			Workers:      workers,
			FailFast:     failFast,
			Logger:       logger,
			Metrics:      observability.DefaultMetrics,
		}),
		logger:  logger.Named("server"),
		started: time.Now().UTC(),
	}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", observability.Handler())
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /taxonomy", s.handleTaxonomy)
	mux.HandleFunc("GET /sequences/{address}", s.handleGetSequence)
	mux.HandleFunc("POST /sequences/{address}", s.handleBuildSequence)

	return mux
}

// runScheduled runs the pipeline over all contracts on every tick until ctx ends.
func (s *server) runScheduled(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.run(ctx, nil)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.run(ctx, nil)
		}
	}
}

func (s *server) run(ctx context.Context, addresses []domain.Address) (*pipeline.RunResult, error) {
	result, err := s.runner.Run(ctx, addresses)

	s.mu.Lock()
	s.pipelineRuns++
	s.lastRun = time.Now().UTC()
	if result != nil {
		s.lastResult = result
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("pipeline run failed", zap.Error(err))
	}
	return result, err
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status       string              `json:"status"`
	Uptime       string              `json:"uptime"`
	TaxonomySize int                 `json:"taxonomy_size"`
	Digest       string              `json:"taxonomy_digest"`
	PipelineRuns int                 `json:"pipeline_runs"`
	LastRun      *time.Time          `json:"last_run,omitempty"`
	LastResult   *pipeline.RunResult `json:"last_result,omitempty"`
}

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		Status:       "running",
		Uptime:       time.Since(s.started).Round(time.Second).String(),
		TaxonomySize: s.taxonomy.Len(),
		Digest:       s.taxonomy.Digest(),
		PipelineRuns: s.pipelineRuns,
		LastResult:   s.lastResult,
	}
	if !s.lastRun.IsZero() {
		last := s.lastRun
		resp.LastRun = &last
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleTaxonomy(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := fundflow.WriteArtifact(w, s.taxonomy); err != nil {
		s.logger.Warn("write taxonomy", zap.Error(err))
	}
}

// SequenceResponse is the JSON form of a stored sequence.
type SequenceResponse struct {
	Address        string   `json:"address"`
	SequenceID     string   `json:"sequence_id"`
	Cases          []int    `json:"cases"`
	Names          []string `json:"names"`
	TaxonomyDigest string   `json:"taxonomy_digest"`
	CreatedAt      int64    `json:"created_at"`
}

func (s *server) sequenceResponse(seq *domain.FundFlowSequence) SequenceResponse {
	resp := SequenceResponse{
		Address:        string(seq.ContractAddress),
		SequenceID:     seq.SequenceID,
		Cases:          make([]int, len(seq.Cases)),
		Names:          make([]string, len(seq.Cases)),
		TaxonomyDigest: seq.TaxonomyDigest,
		CreatedAt:      seq.CreatedAt,
	}
	for i, id := range seq.Cases {
		resp.Cases[i] = int(id)
		resp.Names[i], _ = s.taxonomy.Name(int(id))
	}
	return resp
}

func (s *server) handleGetSequence(w http.ResponseWriter, r *http.Request) {
	addr := domain.NewAddress(r.PathValue("address"))

	seq, err := s.sequences.GetByAddress(r.Context(), addr)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no sequence for "+string(addr))
		return
	}
	if err != nil {
		s.logger.Warn("read sequence", zap.String("address", string(addr)), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "storage error")
		return
	}

	writeJSON(w, http.StatusOK, s.sequenceResponse(seq))
}

func (s *server) handleBuildSequence(w http.ResponseWriter, r *http.Request) {
	addr := domain.NewAddress(r.PathValue("address"))

	_, err := s.contracts.GetByAddress(r.Context(), addr)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "unknown contract "+string(addr))
		return
	}
	if err != nil {
		s.logger.Warn("read contract", zap.String("address", string(addr)), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "storage error")
		return
	}

	result, err := s.run(r.Context(), []domain.Address{addr})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if result.Failed > 0 {
		msg := "sequence build failed"
		if len(result.Errors) > 0 {
			msg = result.Errors[0]
		}
		writeError(w, http.StatusUnprocessableEntity, msg)
		return
	}

	seq, err := s.sequences.GetByAddress(r.Context(), addr)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage error")
		return
	}

	status := http.StatusCreated
	if result.AlreadyProcessed > 0 {
		status = http.StatusOK
	}
	writeJSON(w, status, s.sequenceResponse(seq))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
