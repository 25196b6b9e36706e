package app

import (
	"context"
	"fmt"

	"github.com/delixor/shadowbot/internal/bizconn"
	"github.com/delixor/shadowbot/internal/bot"
	"github.com/delixor/shadowbot/internal/config"
	"github.com/delixor/shadowbot/internal/core"
	"github.com/delixor/shadowbot/internal/cron"
	"github.com/delixor/shadowbot/internal/gateway"
	"github.com/delixor/shadowbot/internal/metrics"
	"github.com/delixor/shadowbot/internal/shadow"
	"github.com/delixor/shadowbot/internal/store/sqlite"
	"github.com/delixor/shadowbot/internal/subscription"
	"github.com/delixor/shadowbot/internal/telegram"
	"github.com/delixor/shadowbot/internal/telemetry"
	"github.com/delixor/shadowbot/internal/transcript"
)

// sweepOnStart triggers the retention job once the scheduler is running, so
// a restart after a long outage does not wait for the first tick.
type sweepOnStart struct {
	scheduler *cron.Scheduler
}

func (m *sweepOnStart) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{ID: "cron.startup_sweep"}
}

func (m *sweepOnStart) Start() error {
	return m.scheduler.Trigger(cron.RetentionJobName)
}

// wire builds every component described by cfg and returns the app with its
// modules added in start order: telemetry, storage, cache, jobs, the HTTP
// gateway and finally the update transport.
func wire(cfg *config.Config, appCtx *core.AppContext, version string) (*core.App, error) {
	ctx := context.Background()
	application := core.NewApp(appCtx)
	m := metrics.New()
	appCtx.RegisterService("metrics", m)

	tel, err := telemetry.Setup(ctx, cfg.Telemetry, appCtx.ForModule("telemetry").Logger)
	if err != nil {
		return nil, err
	}
	application.Add(tel)

	st, err := sqlite.Open(ctx, cfg.Storage, cfg.DataDir, appCtx.ForModule("store.sqlite").Logger)
	if err != nil {
		return nil, err
	}
	application.Add(st)
	appCtx.RegisterService("store.sqlite", st)

	client := telegram.NewClient(cfg.Telegram.Token, cfg.Telegram.APIURL, cfg.Telegram.RateLimit)
	me, err := client.GetMe(ctx)
	if err != nil {
		_ = st.Stop(ctx)
		return nil, fmt.Errorf("telegram: getMe failed (check token): %w", err)
	}
	appCtx.Logger.Info("telegram bot authenticated", "id", me.ID, "username", me.Username)

	checks := map[string]gateway.Pinger{"sqlite": st}
	cache := bizconn.NewCache(cfg.Cache)
	if rc, ok := cache.(*bizconn.RedisCache); ok {
		application.Add(rc)
		checks["redis"] = rc
	}
	owners := bizconn.NewResolver(client, cache, appCtx.ForModule("bizconn").Logger)

	gate := subscription.NewGate(st, nil)
	subs := subscription.NewService(gate, cfg.Subscription.Plans)

	// The live feed only exists with a gateway; a nil sink disables publishing.
	var (
		hub  *gateway.EventHub
		sink shadow.EventSink
	)
	if cfg.Gateway != nil {
		hub = gateway.NewEventHub(cfg.Gateway.EventBuffer, nil, appCtx.ForModule("gateway.events").Logger)
		sink = hub
	}

	// The reconciler refreshes the owner's open transcript after deletes; the
	// bot that owns those views is built next.
	var b *bot.Bot
	reconciler := shadow.NewReconciler(shadow.Options{
		Owners:   owners,
		Gate:     gate,
		Store:    st,
		Notifier: bot.NewNotifier(client),
		Logger:   appCtx.ForModule("shadow").Logger,
		Sink:     sink,
		Metrics:  m,
		Tracer:   tel.Tracer("shadowbot/shadow"),
		OnDeleted: func(ctx context.Context, ownerID int64) {
			b.RefreshTranscript(ctx, ownerID)
		},
	})

	b = bot.New(bot.Options{
		API:             client,
		Reconciler:      reconciler,
		Store:           st,
		Subscriptions:   subs,
		Renderer:        transcript.NewRenderer(st, me.Username, cfg.Shadow.PageSize),
		Connections:     owners,
		Snapshots:       st,
		Admins:          cfg.Admins,
		InstructionsURL: cfg.Telegram.InstructionsURL,
		Logger:          appCtx.ForModule("bot").Logger,
		Metrics:         m,
		Tracer:          tel.Tracer("shadowbot/bot"),
	})

	scheduler := cron.NewScheduler(appCtx.ForModule("cron").Logger)
	if err := scheduler.RegisterJob(&cron.RetentionJob{
		Store:        st,
		MaxAge:       cfg.Shadow.Retention,
		ScheduleExpr: cfg.Shadow.SweepSchedule,
		Logger:       appCtx.ForModule("cron").Logger,
		Metrics:      m,
	}); err != nil {
		return nil, err
	}
	application.Add(scheduler)
	application.Add(&sweepOnStart{scheduler: scheduler})

	if cfg.Gateway != nil {
		var webhook gateway.WebhookHandler
		if cfg.Telegram.Mode == telegram.ModeWebhook {
			webhook = telegram.NewWebhookReceiver(b.HandleUpdate, appCtx.ForModule("telegram.webhook").Logger, cfg.Telegram.WebhookSecret)
		}
		application.Add(gateway.New(*cfg.Gateway, gateway.Options{
			Checks:  checks,
			Metrics: m,
			Webhook: webhook,
			Events:  hub,
			Version: version,
		}, appCtx.ForModule("gateway.http").Logger))
	}

	application.Add(telegram.NewTransport(client, b.HandleUpdate, appCtx.ForModule("telegram.transport").Logger, cfg.Telegram))
	return application, nil
}
