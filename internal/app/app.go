package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"useradmin/client/internal/apiclient"
	"useradmin/client/internal/config"
	"useradmin/client/internal/logging"
	"useradmin/client/internal/session"
	"useradmin/client/internal/state"
	"useradmin/client/internal/ui"
)

// Application связывает state machine, API-клиент и хранилище сессии.
type Application struct {
	cfg       *config.Config
	logger    *logging.Logger
	api       *apiclient.Client
	sessions  *session.Store
	machine   *state.Machine
	ctx       *state.AppContext
	ui        *ui.Manager
	shutdown  chan struct{}
	runCtx    context.Context
	runCancel context.CancelFunc
	stopOnce  sync.Once
}

// New создаёт Application и настраивает state machine callbacks.
// Сохранённая сессия восстанавливается сразу: state machine решит при
// запуске, показывать логин или главное окно.
func New(cfg *config.Config, logger *logging.Logger) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}
	client, err := apiclient.New(cfg.APIBaseURL, apiclient.Options{Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("init api client: %w", err)
	}
	stateCtx := state.NewAppContext(cfg)
	runCtx, runCancel := context.WithCancel(context.Background())
	app := &Application{
		cfg:       cfg,
		logger:    logger,
		api:       client,
		sessions:  session.NewStore(cfg.SessionFile),
		ctx:       stateCtx,
		shutdown:  make(chan struct{}),
		runCtx:    runCtx,
		runCancel: runCancel,
	}
	app.restoreSession()
	uiManager := ui.NewManager(ui.Options{
		AppID:    "useradmin.client",
		AppName:  "UserAdmin",
		Logger:   logger,
		Dispatch: app.dispatch,
	})
	app.ui = uiManager
	callbacks := state.Callbacks{
		StartLogin:      app.startLogin,
		StartFetchUsers: app.startFetchUsers,
		StartCreateUser: app.startCreateUser,
		StartDeleteUser: app.startDeleteUser,
		StartFetchMe:    app.startFetchMe,
		SaveSession:     app.saveSession,
		ClearSession:    app.clearSession,
		ShowLoginWindow: uiManager.ShowLoginWindow,
		ShowMainWindow:  uiManager.ShowMainWindow,
		UpdateUI:        uiManager.UpdateUI,
		ShowModalError:  uiManager.ShowModalError,
		CleanupAndExit:  app.cleanupAndExit,
	}
	app.machine = state.NewMachine(stateCtx, logger, callbacks)
	return app, nil
}

// Run запускает state machine и инициирует сценарий старта.
func (a *Application) Run() error {
	if a.machine == nil {
		return fmt.Errorf("machine is not initialized")
	}
	if a.ui != nil {
		a.ui.Start()
		a.ui.UpdateUI(a.ctx)
	}
	a.machine.Start()
	return a.dispatch(state.Event{Type: state.EventUILaunch, TS: time.Now()})
}

// RunUILoop запускает главный цикл Fyne и блокирует вызывающую горутину до выхода.
func (a *Application) RunUILoop() {
	if a.ui == nil {
		return
	}
	a.ui.RunMainLoop()
}

// Stop останавливает state machine и UI.
func (a *Application) Stop() {
	a.stopOnce.Do(func() {
		if a.runCancel != nil {
			a.runCancel()
		}
		if a.ui != nil {
			a.ui.Shutdown()
			if !a.ui.WaitAsync(3*time.Second) && a.logger != nil {
				a.logger.Errorf("ui background tasks did not finish before timeout")
			}
		}
		if a.machine != nil {
			a.machine.Stop()
			if !a.machine.WaitAsync(3*time.Second) && a.logger != nil {
				a.logger.Errorf("state machine background tasks did not finish before timeout")
			}
		}
		close(a.shutdown)
	})
}

// Done возвращает канал, закрывающийся после полной остановки приложения.
func (a *Application) Done() <-chan struct{} {
	return a.shutdown
}

func (a *Application) dispatch(evt state.Event) error {
	if err := a.machine.Dispatch(evt); err != nil {
		a.logger.Errorf("dispatch %s failed: %v", evt.Type, err)
		return err
	}
	return nil
}

// restoreSession читает сохранённую сессию и заполняет контекст приложения.
// Повреждённое или пустое хранилище означает отсутствие сессии.
func (a *Application) restoreSession() {
	data, ok, err := a.sessions.Restore()
	if err != nil {
		a.logger.Errorf("session restore failed: %v", err)
		return
	}
	if !ok {
		a.logger.Debugf("no saved session found")
		return
	}
	sess := state.Session{
		Token:    data.AuthToken,
		Username: data.CurrentUser,
	}
	claims := session.ParseClaims(data.AuthToken)
	sess.UUID = claims.UUID
	sess.ExpiresAt = claims.ExpiresAt
	a.ctx.Session = &sess
	a.logger.Infof("session restored for user %q", data.CurrentUser)
}

func (a *Application) saveSession(sess state.Session) {
	data := session.Data{AuthToken: sess.Token, CurrentUser: sess.Username}
	if err := a.sessions.Save(data); err != nil {
		a.logger.Errorf("session save failed: %v", err)
		return
	}
	a.logger.Infof("session saved for user %q", sess.Username)
}

func (a *Application) clearSession() {
	if err := a.sessions.Clear(); err != nil {
		a.logger.Errorf("session clear failed: %v", err)
		return
	}
	a.logger.Infof("session cleared")
}

func (a *Application) cleanupAndExit(_ *state.AppContext) {
	a.logger.Infof("state machine requested shutdown")
	a.Stop()
}

// sessionToken возвращает текущий bearer-токен или пустую строку.
func (a *Application) sessionToken() string {
	if a.ctx == nil || a.ctx.Session == nil {
		return ""
	}
	return strings.TrimSpace(a.ctx.Session.Token)
}
