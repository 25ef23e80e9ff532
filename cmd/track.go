package cmd

import (
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"lobby-tracker/core/config"
	"lobby-tracker/core/database"
	"lobby-tracker/core/logger"
	"lobby-tracker/feature/ops"
	"lobby-tracker/feature/tracker"
	"lobby-tracker/feature/tracker/journal"
	"lobby-tracker/feature/tracker/models"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// trackCmd represents the track command
var trackCmd = &cobra.Command{
	Use:   "track [region]",
	Short: "Run the lobby reconciliation workers",
	Long: `Starts one reconciliation worker per region. An optional positional
argument restricts tracking to a single region (1=US, 2=EU, 3=KR); without it
all three regions run concurrently.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		// 1. Load Configuration
		cfg, err := config.LoadConfig(".")
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		// 2. Initialize Logger
		logg, err := logger.New(&cfg.Log)
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		regions := []models.RegionID{models.RegionUS, models.RegionEU, models.RegionKR}
		if len(args) > 0 {
			id, err := strconv.Atoi(args[0])
			if err != nil || !models.RegionID(id).Valid() {
				logg.Fatal("provided invalid region", zap.String("arg", args[0]))
			}
			regions = []models.RegionID{models.RegionID(id)}
		}

		ctx := context.Background()
		openSource := journal.OpenDir(cfg.Journal.Dir)

		// 3. Open one worker per region, each on its own connection
		workers := make([]*tracker.Worker, 0, len(regions))
		for _, region := range regions {
			db, err := database.Connect(cfg.Database)
			if err != nil {
				logg.Fatal("Database connection failed", zap.Error(err))
			}
			if missing, err := database.VerifyTables(db, models.TrackerTables()); err != nil {
				logg.Fatal("Schema verification failed", zap.Error(err))
			} else if len(missing) > 0 {
				logg.Fatal("Schema is missing tables", zap.Strings("tables", missing))
			}

			w := tracker.New(region, db, logg)
			if err := w.Open(ctx, openSource); err != nil {
				logg.Fatal("Worker open failed",
					zap.String("region", region.Code()), zap.Error(err))
			}
			workers = append(workers, w)
		}

		// 4. Optional ops surface
		var opsServer *ops.Server
		if cfg.Ops.Enabled {
			db, err := database.Connect(cfg.Database)
			if err != nil {
				logg.Fatal("Database connection failed", zap.Error(err))
			}
			opsServer = ops.NewServer(db, logg, regions)
			go func() {
				logg.Info("Starting ops server", zap.String("port", cfg.Ops.Port))
				if err := opsServer.Listen(cfg.Ops.Port); err != nil {
					logg.Error("Ops server failed", zap.Error(err))
				}
			}()
		}

		notifyReady(logg)

		// 5. Graceful shutdown: first signal drains, second forces exit
		sigs := make(chan os.Signal, 2)
		signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
		go func() {
			for sig := range sigs {
				logg.Info("Received signal", zap.String("signal", sig.String()))
				for _, w := range workers {
					logg.Info("Closing worker", zap.String("region", w.Region().Code()))
					w.Close()
				}
			}
		}()

		// 6. Run workers until drained
		var g errgroup.Group
		for _, w := range workers {
			w := w
			g.Go(func() error {
				return w.Work(ctx)
			})
		}
		if err := g.Wait(); err != nil {
			logg.Fatal("Worker aborted", zap.Error(err))
		}
		for _, w := range workers {
			if err := w.CloseStore(); err != nil {
				logg.Warn("Closing worker store failed",
					zap.String("region", w.Region().Code()), zap.Error(err))
			}
		}
		if opsServer != nil {
			_ = opsServer.Shutdown()
		}
		logg.Info("All workers exited")
	},
}

// notifyReady pings the service supervisor once every worker has opened.
// Outside of a NOTIFY_SOCKET environment this is a no-op.
func notifyReady(logg *zap.Logger) {
	socket := os.Getenv("NOTIFY_SOCKET")
	if socket == "" {
		return
	}
	conn, err := net.Dial("unixgram", socket)
	if err != nil {
		logg.Warn("sd_notify dial failed", zap.Error(err))
		return
	}
	defer conn.Close()
	if _, err := conn.Write([]byte("READY=1")); err != nil {
		logg.Warn("sd_notify write failed", zap.Error(err))
		return
	}
	logg.Debug("sd_notify ready sent")
}

func init() {
	RootCmd.AddCommand(trackCmd)
}
