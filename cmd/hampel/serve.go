package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/ardanlabs/hampel/api"
	"github.com/ardanlabs/hampel/config"
	"github.com/ardanlabs/hampel/metrics"
	"github.com/ardanlabs/hampel/outliers"
)

const shutdownTimeout = 5 * time.Second

func serveCommand() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gRPC outliers service and the HTTP metrics API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}

			log, err := cfg.Logger()
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, log)
		},
	}

	addFilterFlags(cmd, &cfgFile)
	def := config.Default()
	flags := cmd.Flags()
	flags.String("db-file", def.DBFile, "SQLite metrics database")
	flags.String("grpc-addr", def.GRPCAddr, "gRPC address, empty to disable")
	flags.String("http-addr", def.HTTPAddr, "HTTP address, empty to disable")
	flags.String("log-level", def.LogLevel, "log level")
	return cmd
}

// serve runs the servers until ctx is done or one of them fails.
func serve(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	db, err := metrics.NewDB(cfg.DBFile)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("close database", zap.Error(err))
		}
	}()
	log.Info("connected", zap.String("db", cfg.DBFile))

	g, ctx := errgroup.WithContext(ctx)

	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return err
		}

		srv := grpc.NewServer()
		outliers.Register(srv, outliers.NewServer(log, db))

		g.Go(func() error {
			log.Info("grpc server listening", zap.String("addr", lis.Addr().String()))
			if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			srv.GracefulStop()
			return nil
		})
	}

	if cfg.HTTPAddr != "" {
		hs := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           api.NewHandler(log, db, cfg.Filter.Params()),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g.Go(func() error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return hs.Shutdown(sctx)
		})
	}

	err = g.Wait()
	log.Info("servers stopped", zap.Error(err))
	return err
}
