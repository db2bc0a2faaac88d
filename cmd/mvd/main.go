// Command mvd is the multi-display installation's control daemon: it loads
// persisted state, wires the matrix reconciler, STB queues, and volume
// worker to the orchestrator, and serves the HTTP command ingress until a
// signal asks it to stop. Grounded on cmd/breeze-agent/main.go's cobra
// root + run/status/version subcommands and signal-driven graceful
// shutdown, with the stop-running-daemon-by-pidfile and
// save-state-on-shutdown sequencing supplemented from
// original_source/mvd.py's become_daemon().
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sweeks/multiviewer/internal/clock"
	"github.com/sweeks/multiviewer/internal/config"
	"github.com/sweeks/multiviewer/internal/httpapi"
	"github.com/sweeks/multiviewer/internal/irbridge"
	"github.com/sweeks/multiviewer/internal/logging"
	"github.com/sweeks/multiviewer/internal/matrix"
	"github.com/sweeks/multiviewer/internal/matrixmgr"
	"github.com/sweeks/multiviewer/internal/orchestrator"
	"github.com/sweeks/multiviewer/internal/statestore"
	"github.com/sweeks/multiviewer/internal/stbclient"
	"github.com/sweeks/multiviewer/internal/stbqueue"
	"github.com/sweeks/multiviewer/internal/sysstatus"
	"github.com/sweeks/multiviewer/internal/tv"
	"github.com/sweeks/multiviewer/internal/volume"
	"github.com/sweeks/multiviewer/internal/workerpool"
)

var (
	version = "0.1.0"
	cfgFile string
)

var log = logging.L("main")

var rootCmd = &cobra.Command{
	Use:   "mvd",
	Short: "mvd - Multiviewer control daemon",
	Long:  `mvd drives the HDMI matrix, set-top boxes, and IR volume bridge behind a single remote-control command surface.`,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the daemon",
	Run: func(cmd *cobra.Command, args []string) {
		runDaemon()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("mvd v%s\n", version)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check whether a daemon is listening and report host resource usage",
	Run: func(cmd *cobra.Command, args []string) {
		checkStatus()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is /etc/mvd/mvd.yaml)")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initLogging(cfg *config.Config) {
	var output io.Writer = os.Stdout
	logFileFallback := false

	if cfg.LogFile != "" {
		rw, err := logging.NewRotatingWriter(cfg.LogFile, cfg.LogMaxSizeMB, cfg.LogMaxBackups)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v (logging to stdout)\n", cfg.LogFile, err)
			logFileFallback = true
		} else {
			output = logging.TeeWriter(os.Stdout, rw)
		}
	}

	logging.Init(cfg.LogFormat, cfg.LogLevel, output)
	log = logging.L("main")

	if logFileFallback {
		log.Warn("log file fallback active, logging to stdout only", "requestedFile", cfg.LogFile)
	}
}

// daemonComponents holds every long-running piece runDaemon starts, so
// shutdown can stop them in the right order and persist final state.
type daemonComponents struct {
	cfg        *config.Config
	dispatcher *orchestrator.Dispatcher
	matrixMgr  *matrixmgr.Manager
	volumeW    *volume.Worker
	httpServer *http.Server
	runCtx     context.Context
	cancelRun  context.CancelFunc
}

func runDaemon() {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	initLogging(cfg)
	log.Info("starting mvd", "version", version)

	stopPreviousInstance(cfg.PIDFile)
	writePIDFile(cfg.PIDFile)
	defer os.Remove(cfg.PIDFile)

	comps, err := startDaemon(cfg)
	if err != nil {
		log.Error("failed to start daemon", logging.KeyError, err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Info("shutting down mvd")

	shutdownDaemon(comps)
	log.Info("mvd stopped")
}

// startDaemon builds every subsystem, wires it into the orchestrator,
// restores persisted state, and starts serving. It is the Go shape of
// original_source/mvd.py's become_daemon() body, minus the signal/http-loop
// plumbing the caller owns.
func startDaemon(cfg *config.Config) (*daemonComponents, error) {
	clk := clock.Real{}

	driver := matrix.NewDriver(fmt.Sprintf("%s:%d", cfg.MatrixHost, cfg.MatrixPort), time.Duration(cfg.MatrixReadTimeoutMs)*time.Millisecond)
	matrixMgr := matrixmgr.NewManager(driver, clk, time.Duration(cfg.MatrixSyncWatchdogSecs)*time.Second)

	irClient := irbridge.New(fmt.Sprintf("%s:%d", cfg.IRBridgeHost, cfg.IRBridgePort), time.Duration(cfg.MatrixReadTimeoutMs)*time.Millisecond, time.Duration(cfg.IRPulseDelayMs)*time.Millisecond)
	volumeW := volume.New(irClient, true)

	queues := make(map[tv.TV]*stbqueue.Queue, len(tv.All()))
	for _, t := range tv.All() {
		addr, ok := cfg.STBAddrs[t.String()]
		if !ok {
			log.Warn("no STB address configured, commands to this TV will be dropped", "tv", t.String())
			continue
		}
		stb := stbclient.New(t, addr, time.Duration(cfg.MatrixReadTimeoutMs)*time.Millisecond, true)
		queues[t] = stbqueue.New(stb, cfg.StbQueueSize)
	}

	snap, err := statestore.Load(cfg.StateFile)
	if err != nil {
		log.Warn("no usable persisted state, starting fresh", logging.KeyError, err)
		snap = statestore.Default()
	}
	mvScreen, err := snap.Screen()
	if err != nil {
		log.Warn("persisted screen invalid, starting fresh", logging.KeyError, err)
		snap = statestore.Default()
		mvScreen, _ = snap.Screen()
	}
	power, err := snap.PowerState()
	if err != nil {
		power = matrix.PowerOn
	}
	deltas, err := snap.VolumeDeltas()
	if err != nil {
		deltas = nil
	}

	dispatcher := orchestrator.New(mvScreen, matrixMgr, volumeW, queues, clk, time.Duration(cfg.DoubleTapWindowMs)*time.Millisecond)
	dispatcher.Power = power
	dispatcher.RestoreVolumeDeltas(deltas)

	runCtx, cancelRun := context.WithCancel(context.Background())
	go func() {
		if err := matrixMgr.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("matrix manager loop exited", logging.KeyError, err)
		}
	}()
	go func() {
		if err := volumeW.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("volume worker loop exited", logging.KeyError, err)
		}
	}()

	dispatcher.Initialize(runCtx)

	monitor := sysstatus.NewMonitor()

	handler := httpapi.New(dispatcher, monitor)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTPHost, cfg.HTTPPort),
		Handler: handler.Routes(),
	}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server exited", logging.KeyError, err)
		}
	}()

	go logHostSnapshots(runCtx)
	go probeReachability(runCtx, cfg, monitor)

	log.Info("mvd is running", "http", httpServer.Addr)

	return &daemonComponents{
		cfg:        cfg,
		dispatcher: dispatcher,
		matrixMgr:  matrixMgr,
		volumeW:    volumeW,
		httpServer: httpServer,
		runCtx:     runCtx,
		cancelRun:  cancelRun,
	}, nil
}

// shutdownDaemon stops the HTTP ingress first so no new command can arrive,
// drains in-flight STB/matrix/volume work, persists final state, then tears
// down the background reconcilers — the Go mirror of become_daemon()'s
// http_server.stop / mv.save / mv.shutdown sequence.
func shutdownDaemon(comps *daemonComponents) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = comps.httpServer.Shutdown(shutdownCtx)

	comps.dispatcher.Close()

	drainCtx, drainCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer drainCancel()
	if err := comps.dispatcher.Synced(drainCtx); err != nil {
		log.Warn("shutdown proceeding before full sync", logging.KeyError, err)
	}

	snap := statestore.FromLive(comps.dispatcher.Screen, comps.dispatcher.Power, comps.dispatcher.VolumeDeltas())
	if err := statestore.Save(comps.cfg.StateFile, snap); err != nil {
		log.Error("failed to save state on shutdown", logging.KeyError, err)
	}

	comps.cancelRun()
}

// stopPreviousInstance kills any mvd already listening, reading its pid
// from the pidfile rather than scanning for the HTTP port the way
// original_source/mvd.py's lsof-based stop_running_daemon() does — this
// avoids a dependency on an external lsof binary being present.
func stopPreviousInstance(pidFile string) {
	data, err := os.ReadFile(pidFile)
	if err != nil {
		return
	}
	pid, err := strconv.Atoi(string(data))
	if err != nil || pid <= 0 {
		return
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return
	}
	log.Info("stopped previous mvd instance", "pid", pid)
	time.Sleep(1 * time.Second)
}

func writePIDFile(pidFile string) {
	if err := os.MkdirAll(parentDir(pidFile), 0o755); err != nil {
		log.Warn("failed to create pidfile directory", logging.KeyError, err)
		return
	}
	if err := os.WriteFile(pidFile, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		log.Warn("failed to write pidfile", logging.KeyError, err)
	}
}

func parentDir(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}

// logHostSnapshots periodically logs host resource usage so an operator
// reading journald output can tell a hung reconciler from a starved host.
func logHostSnapshots(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := sysstatus.Snapshot()
			log.Info("host snapshot", "uptimeSeconds", snap.UptimeSeconds, "cpuPercent", snap.CPUPercent, "memUsedPercent", snap.MemUsedPct)
		}
	}
}

// probeReachability periodically fans out a TCP reachability check to the
// matrix, the IR bridge, and every configured STB concurrently through a
// bounded workerpool.Pool, recording each result in monitor so /healthz and
// "mvd status" can report device-level health independent of whether the
// reconcilers currently have anything to converge.
func probeReachability(ctx context.Context, cfg *config.Config, monitor *sysstatus.Monitor) {
	targets := map[string]string{
		"matrix":   fmt.Sprintf("%s:%d", cfg.MatrixHost, cfg.MatrixPort),
		"irbridge": fmt.Sprintf("%s:%d", cfg.IRBridgeHost, cfg.IRBridgePort),
	}
	for _, t := range tv.All() {
		if addr, ok := cfg.STBAddrs[t.String()]; ok {
			targets["stb:"+t.String()] = addr
		}
	}

	pool := workerpool.New(len(targets), len(targets))
	defer func() {
		pool.StopAccepting()
		pool.Drain(context.Background())
	}()

	runOnce := func() {
		for name, addr := range targets {
			name, addr := name, addr
			pool.Submit(func() {
				dialer := net.Dialer{Timeout: 2 * time.Second}
				conn, err := dialer.Dial("tcp", addr)
				if err != nil {
					monitor.Update(name, sysstatus.Unhealthy, err.Error())
					return
				}
				conn.Close()
				monitor.Update(name, sysstatus.Healthy, "")
			})
		}
	}

	runOnce()
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}

func checkStatus() {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Println("Status: not configured")
		return
	}

	host := cfg.HTTPHost
	if host == "0.0.0.0" || host == "" {
		host = "localhost"
	}
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://%s:%d/", host, cfg.HTTPPort))
	if err != nil {
		fmt.Println("Status: not running")
	} else {
		resp.Body.Close()
		fmt.Println("Status: running")

		if healthResp, err := client.Get(fmt.Sprintf("http://%s:%d/healthz", host, cfg.HTTPPort)); err == nil {
			defer healthResp.Body.Close()
			body, _ := io.ReadAll(healthResp.Body)
			fmt.Printf("Health: %s\n", string(body))
		}
	}

	snap := sysstatus.Snapshot()
	fmt.Printf("Uptime: %ds\n", snap.UptimeSeconds)
	fmt.Printf("CPU: %.1f%%\n", snap.CPUPercent)
	fmt.Printf("Memory: %.1f%%\n", snap.MemUsedPct)
}
