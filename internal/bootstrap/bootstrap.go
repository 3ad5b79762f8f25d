package bootstrap

import (
	"fmt"
	"io"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	attentioninadapter "tabclock/internal/modules/attention/adapter/in"
	attentionoutadapter "tabclock/internal/modules/attention/adapter/out"
	attentiondomain "tabclock/internal/modules/attention/domain"
	attentionservice "tabclock/internal/modules/attention/service"
	attentionusecase "tabclock/internal/modules/attention/usecase"
	sessioninadapter "tabclock/internal/modules/session/adapter/in"
	sessionoutadapter "tabclock/internal/modules/session/adapter/out"
	sessionservice "tabclock/internal/modules/session/service"
	sessionusecase "tabclock/internal/modules/session/usecase"
	trackerinadapter "tabclock/internal/modules/tracker/adapter/in"
	trackeroutadapter "tabclock/internal/modules/tracker/adapter/out"
	trackerservice "tabclock/internal/modules/tracker/service"
	trackerusecase "tabclock/internal/modules/tracker/usecase"
	"tabclock/internal/platform/browser"
	"tabclock/internal/platform/clock"
	"tabclock/internal/platform/config"
	"tabclock/internal/platform/id"
	"tabclock/internal/platform/kv"
	"tabclock/internal/platform/logging"
	uiapp "tabclock/internal/ui/app"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	TrackerCLI   trackerinadapter.CLIHandler
	AttentionCLI attentioninadapter.CLIHandler
	SessionCLI   sessioninadapter.CLIHandler

	store kv.Store
}

// New wires every module over one SQLite store. The attention and session
// handlers on App read that store directly; everything that mutates state
// goes through the daemon runtime.
func New(cfg config.Config, logOut io.Writer) (*App, error) {
	logger, err := logging.New(cfg.Logging, logOut)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	store, err := kv.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	clk := clock.SystemClock{}
	ids := id.UUID{}

	mirror := trackeroutadapter.NewMirrorEnvironment()
	var env browser.Environment = mirror
	if cfg.DevToolsURL != "" {
		env = trackeroutadapter.NewCDPEnvironment(cfg.DevToolsURL, mirror, logger.With("component", "cdp"))
	}

	policy := attentiondomain.Policy{MinSegment: cfg.MinSegment, MaxSegment: cfg.MaxSegment}
	attentionUC := attentionusecase.NewInteractor(attentionservice.NewAttentionService(
		clk,
		policy,
		attentionoutadapter.NewKVLedgerStore(store),
		env,
		logger.With("module", "attention"),
	))
	sessionUC := sessionusecase.NewInteractor(sessionservice.NewSessionService(
		clk,
		ids,
		env,
		sessionservice.Stores{
			Active:   sessionoutadapter.NewKVSnapshotStore(store),
			Archive:  sessionoutadapter.NewKVArchiveStore(store),
			Settings: sessionoutadapter.NewKVSettingsStore(store),
		},
		cfg.MaxSessions,
		logger.With("module", "session"),
	))

	runtime := trackerservice.NewRuntime(attentionUC, sessionUC, mirror, clk, trackerservice.OptionsFromConfig(cfg), logger.With("module", "tracker"))
	trackerUC := trackerusecase.NewInteractor(trackerservice.NewDaemonService(
		cfg,
		runtime,
		trackeroutadapter.NewFileDaemonStore(cfg.DataDir),
		trackeroutadapter.NewJSONRPCServer(),
		trackeroutadapter.NewJSONRPCClient(),
		trackeroutadapter.NewWebSocketEventServer(logger.With("component", "ws")),
		logger.With("module", "daemon"),
	))

	return &App{
		Config:       cfg,
		Logger:       logger,
		TrackerCLI:   trackerinadapter.NewCLIHandler(trackerUC),
		AttentionCLI: attentioninadapter.NewCLIHandler(attentionUC),
		SessionCLI:   sessioninadapter.NewCLIHandler(sessionUC),
		store:        store,
	}, nil
}

func (a *App) Close() error {
	if a == nil || a.store == nil {
		return nil
	}
	return a.store.Close()
}

func RunTUI(app *App, days int) error {
	model := uiapp.NewModel(app.TrackerCLI, days)
	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err := program.Run()
	return err
}
