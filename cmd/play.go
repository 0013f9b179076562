package cmd

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/abhisek/triplehelix/internal/app"
	"github.com/abhisek/triplehelix/internal/backend"
	"github.com/abhisek/triplehelix/internal/catalogue"
	"github.com/abhisek/triplehelix/internal/helix"
	"github.com/abhisek/triplehelix/internal/jobs"
	"github.com/abhisek/triplehelix/internal/stitch"
	"github.com/abhisek/triplehelix/internal/syncer"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Start a learning session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPlay(cmd)
	},
}

// runPlay opens the store, loads the catalogue, restores persisted state,
// and launches the session driver with sync and jobs running out of band.
func runPlay(cmd *cobra.Command) error {
	ctx := cmd.Context()
	log := newLogger()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	threads, err := catalogue.Load(cfg.CataloguePath)
	if err != nil {
		return err
	}
	queue, err := stitch.NewQueue(threads)
	if err != nil {
		return fmt.Errorf("build queue: %w", err)
	}

	// With a backend URL the store of record is remote; otherwise the
	// local sqlite store fills both roles.
	var (
		recorder backend.Recorder     = st
		boot     backend.Bootstrapper = st
	)
	if cfg.Backend.URL != "" {
		client, err := backend.NewClient(backend.DefaultClientConfig(cfg.Backend.URL))
		if err != nil {
			return err
		}
		recorder, boot = client, client
	}

	// Bootstrap is best-effort: an unreachable backend must not prevent
	// a session from starting on catalogue defaults.
	if recs, err := boot.LoadStitches(ctx); err != nil {
		log.Warn("could not load persisted stitch state", "err", err)
	} else {
		helix.RestoreRecords(queue, recs, log)
	}
	session, ok, err := boot.LoadSession(ctx)
	if err != nil {
		log.Warn("could not load persisted session pointer", "err", err)
	} else if !ok {
		session = backend.SessionRecord{}
	}

	sync := syncer.New(recorder, syncer.Config{
		ImmediateDelay:  cfg.Sync.ImmediateDelay,
		MinImmediateGap: cfg.Sync.MinImmediateGap,
		FlushInterval:   cfg.Sync.FlushInterval,
		DeliveryTimeout: cfg.Sync.DeliveryTimeout,
	}, log)
	sync.Start(ctx)
	defer sync.Stop()

	controller, err := helix.New(helix.Options{
		Queue:       queue,
		Sink:        sync,
		Events:      st.EventRepo(),
		Logger:      log,
		SessionID:   uuid.NewString(),
		InitialTube: stitch.TubeNumber(session.ActiveTube),
		CycleCount:  session.CycleCount,
	})
	if err != nil {
		return err
	}

	sched := jobs.NewScheduler(log)
	if _, err := sched.Register(
		fmt.Sprintf("@every %s", sync.Config().FlushInterval),
		jobs.NewSyncFlushJob(sync),
	); err != nil {
		return fmt.Errorf("register flush job: %w", err)
	}
	if _, err := sched.Register(
		fmt.Sprintf("@every %s", cfg.Snapshot.Interval),
		jobs.NewSnapshotJob(controller, st.SnapshotRepo(), cfg.Snapshot.Keep),
	); err != nil {
		return fmt.Errorf("register snapshot job: %w", err)
	}
	sched.Start()
	defer func() { <-sched.Stop().Done() }()

	if err := app.Run(app.Options{Controller: controller, Syncer: sync}); err != nil {
		fmt.Fprintln(os.Stderr, "Error running session:", err)
		return err
	}

	// Capture the final state so the next session resumes exactly here.
	if err := st.SnapshotRepo().Save(ctx, controller.Export()); err != nil {
		log.Warn("final snapshot failed", "err", err)
	}
	return nil
}
