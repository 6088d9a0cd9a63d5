package health

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"market_maker/internal/modules/config"
	"market_maker/internal/modules/health/service"
	supsvc "market_maker/internal/modules/supervisor/service"
	"market_maker/internal/state"
)

type Config struct {
	Addr string // например ":8080"
}

func NewConfig(cfg *config.Config) Config {
	return Config{Addr: cfg.Service.HealthAddr}
}

func NewMux(probe *service.State, workers service.WorkerStatuses, st *state.MarketPositionState, log *zap.Logger) *http.ServeMux {
	log = log.Named("health")
	mux := http.NewServeMux()

	mux.HandleFunc("GET /livez", func(w http.ResponseWriter, r *http.Request) {
		// liveness: процесс жив
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		// readiness: есть котировки
		if !probe.Ready() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, probe.Report(workers))
	})

	mux.HandleFunc("POST /pause", func(w http.ResponseWriter, r *http.Request) {
		st.SafeUpdate(state.WithPaused(true))
		log.Warn("[HEALTH] strategy paused by operator", zap.String("remote", r.RemoteAddr))
		writeJSON(w, map[string]bool{"strategyPaused": true})
	})

	mux.HandleFunc("POST /resume", func(w http.ResponseWriter, r *http.Request) {
		st.SafeUpdate(state.WithPaused(false))
		log.Warn("[HEALTH] strategy resumed by operator", zap.String("remote", r.RemoteAddr))
		writeJSON(w, map[string]bool{"strategyPaused": false})
	})

	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	body, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

func RunHTTP(lc fx.Lifecycle, cfg Config, mux *http.ServeMux, log *zap.Logger) {
	if cfg.Addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", cfg.Addr)
			if err != nil {
				return err
			}
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("health server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

func Module() fx.Option {
	return fx.Module("health",
		fx.Provide(
			service.NewState,
			NewConfig,
			func(s *supsvc.Supervisor) service.WorkerStatuses { return s },
			NewMux,
		),
		fx.Invoke(RunHTTP),
	)
}
