package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"diesel.com/sph/app"
	"diesel.com/sph/app/viewer"
	"diesel.com/sph/config"
	F "diesel.com/sph/fluid"
	V "diesel.com/sph/vector"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	jww "github.com/spf13/jwalterweatherman"
)

var (
	runConfigFile string
	v             = config.NewViper()
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "dieselsph",
		Short:        "Smoothed particle hydrodynamics fluid simulation",
		SilenceUsage: true,
	}
	flags := root.PersistentFlags()
	flags.StringVar(&runConfigFile, "config", "", "run config file (toml, yaml or json)")
	flags.String("scene", "", "gcfg scene file, empty uses the built in example")
	flags.Int("frames", config.DefaultRunConfig().Frames, "number of frames to simulate, 0 runs until closed in view and serve")
	flags.Float64("fps", config.DefaultRunConfig().FPS, "frames per second of simulation time")
	flags.Int("workers", 0, "worker goroutines, 0 uses every CPU")
	flags.String("log-level", config.DefaultRunConfig().LogLevel, "trace, debug, info, warn or error")
	flags.String("profile", "", "cpu or mem profiling")
	for _, name := range []string{"scene", "frames", "fps", "workers", "profile"} {
		v.BindPFlag(name, flags.Lookup(name))
	}
	v.BindPFlag("log_level", flags.Lookup("log-level"))

	root.AddCommand(runCmd(), viewCmd(), serveCmd(), configCmd())
	return root
}

//session holds what every simulating command needs
type session struct {
	rc     config.RunConfig
	scene  *config.SceneConfig
	exec   F.Executor
	log    *jww.Notepad
	solver *F.Solver
	sim    *app.Simulation
}

func newSession() (*session, error) {
	rc, err := config.LoadRunConfig(v, runConfigFile)
	if err != nil {
		return nil, err
	}
	threshold, _ := config.ParseLogLevel(rc.LogLevel)
	jww.SetStdoutThreshold(threshold)
	notepad := jww.NewNotepad(threshold, jww.LevelWarn, os.Stdout, io.Discard, "", log.Ldate|log.Ltime)

	var scene *config.SceneConfig
	if rc.Scene == "" {
		scene, err = config.ParseSceneConfig(config.ExampleSceneFile)
	} else {
		scene, err = config.ReadSceneConfig(rc.Scene)
	}
	if err != nil {
		return nil, err
	}
	exec := app.NewExecutor(rc.Workers)
	solver, err := app.BuildSolver(scene, exec, notepad)
	if err != nil {
		return nil, err
	}
	sim, err := app.NewSimulation(solver, rc, exec, scene.Bounds(), notepad)
	if err != nil {
		return nil, err
	}
	if err := sim.Queue(rc.Overrides); err != nil {
		return nil, fmt.Errorf("overrides: %w", err)
	}
	notepad.INFO.Printf("Scene ready: %d particles, %s model", solver.ParticleCount(), solver.Model().Kind())
	return &session{rc: rc, scene: scene, exec: exec, log: notepad, solver: solver, sim: sim}, nil
}

//startProfile returns the stopper for the configured profile mode
func startProfile(mode string) interface{ Stop() } {
	switch strings.ToLower(mode) {
	case "cpu":
		return profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook)
	case "mem":
		return profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.NoShutdownHook)
	}
	return noProfile{}
}

type noProfile struct{}

func (noProfile) Stop() {}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Simulate headless, writing particle tables to --output",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession()
			if err != nil {
				return err
			}
			defer startProfile(s.rc.Profile).Stop()
			ctx, cancel := signalContext()
			defer cancel()
			return s.sim.Run(ctx, s.rc.Frames)
		},
	}
	cmd.Flags().String("output", "", "directory for particle snapshots")
	cmd.Flags().Int("snapshot-every", 1, "write every n-th frame")
	cmd.Flags().Int("voxels", 0, "voxel resolution of density dumps, 0 disables them")
	v.BindPFlag("output", cmd.Flags().Lookup("output"))
	v.BindPFlag("snapshot_every", cmd.Flags().Lookup("snapshot-every"))
	v.BindPFlag("voxels", cmd.Flags().Lookup("voxels"))
	return cmd
}

func viewCmd() *cobra.Command {
	var width, height int
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Simulate in an OpenGL window. Space pauses, drag or arrows orbit",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession()
			if err != nil {
				return err
			}
			defer startProfile(s.rc.Profile).Stop()
			ctx, cancel := signalContext()
			defer cancel()

			bounds := s.scene.Bounds()
			if bounds.IsEmpty(s.solver.Parameters().Dimension) {
				bounds = particleBounds(s.solver)
			}
			return viewer.Run(ctx, s.sim, viewer.AppWindow{Width: width, Height: height, Name: "Diesel Particle SPH"}, bounds)
		},
	}
	cmd.Flags().IntVar(&width, "width", 1440, "window width")
	cmd.Flags().IntVar(&height, "height", 800, "window height")
	return cmd
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Simulate in real time and stream frames over a websocket at /ws",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession()
			if err != nil {
				return err
			}
			defer startProfile(s.rc.Profile).Stop()
			ctx, cancel := signalContext()
			defer cancel()

			hub := app.NewHub(s.sim.Queue, s.log)
			s.sim.AddObserver(hub)
			go hub.Run(ctx)
			if runConfigFile != "" {
				config.WatchOverrides(v, func(o config.Overrides) {
					if err := s.sim.Queue(o); err != nil {
						s.log.WARN.Printf("Overrides rejected: %v", err)
					}
				})
			}

			mux := http.NewServeMux()
			mux.Handle("/ws", hub)
			srv := &http.Server{Addr: s.rc.Addr, Handler: mux}
			go func() {
				<-ctx.Done()
				shutdown, done := context.WithTimeout(context.Background(), 5*time.Second)
				defer done()
				srv.Shutdown(shutdown)
			}()
			go func() {
				s.log.INFO.Printf("Streaming frames on ws://%s/ws", s.rc.Addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					s.log.ERROR.Printf("Server: %v", err)
					cancel()
				}
			}()

			timer := app.NewAnimationTimer(s.rc.FPS, time.Now())
			tick := time.NewTicker(timer.Interval)
			defer tick.Stop()
			for frames := 0; s.rc.Frames == 0 || frames < s.rc.Frames; frames++ {
				select {
				case <-ctx.Done():
					return nil
				case <-tick.C:
				}
				if _, err := s.sim.Step(ctx); err != nil {
					if ctx.Err() != nil {
						return nil
					}
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().String("addr", config.DefaultRunConfig().Addr, "listen address")
	v.BindPFlag("addr", cmd.Flags().Lookup("addr"))
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print configuration files",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Print the effective run config as TOML",
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := config.LoadRunConfig(v, runConfigFile)
			if err != nil {
				return err
			}
			out, err := config.DumpTOML(rc)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}, &cobra.Command{
		Use:   "example",
		Short: "Print an example scene file",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), config.ExampleSceneFile)
		},
	})
	return cmd
}

//particleBounds frames the current particles when the scene has no bounded collider
func particleBounds(s *F.Solver) F.BoundingBox {
	pos := s.Positions()
	if len(pos) == 0 {
		return F.BoundingBox{Upper: V.NewVec3(1)}
	}
	b := F.BoundingBox{Lower: pos[0], Upper: pos[0]}
	for _, p := range pos[1:] {
		b.Lower = V.Min(b.Lower, p)
		b.Upper = V.Max(b.Upper, p)
	}
	return b
}
