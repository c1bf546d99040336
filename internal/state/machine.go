package state

import (
	"errors"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"useradmin/client/internal/logging"
)

// State описывает состояние конечного автомата приложения.
type State string

const (
	StateAppStarting    State = "AppStarting"
	StateWaitingLogin   State = "WaitingLogin"
	StateAuthInProgress State = "AuthInProgress"
	StateUsersLoading   State = "UsersLoading"
	StateUsersReady     State = "UsersReady"
	StateUserCreating   State = "UserCreating"
	StateUserDeleting   State = "UserDeleting"
	StateAboutView      State = "AboutView"
	StateExiting        State = "Exiting"
)

// EventType представляет собой тип события из очереди state machine.
type EventType string

const (
	EventUILaunch             EventType = "UI_LAUNCH"
	EventUICredentialsChanged EventType = "UI_CREDENTIALS_CHANGED"
	EventUIClickLogin         EventType = "UI_CLICK_LOGIN"
	EventUIOpenCreateDialog   EventType = "UI_OPEN_CREATE_DIALOG"
	EventUISubmitCreate       EventType = "UI_SUBMIT_CREATE"
	EventUICancelDialog       EventType = "UI_CANCEL_DIALOG"
	EventUIRequestDelete      EventType = "UI_REQUEST_DELETE"
	EventUIConfirmDelete      EventType = "UI_CONFIRM_DELETE"
	EventUIRequestLogout      EventType = "UI_REQUEST_LOGOUT"
	EventUIConfirmLogout      EventType = "UI_CONFIRM_LOGOUT"
	EventUIClickLogoutDirect  EventType = "UI_CLICK_LOGOUT_DIRECT"
	EventUIOpenAbout          EventType = "UI_OPEN_ABOUT"
	EventUIBackToUsers        EventType = "UI_BACK_TO_USERS"
	EventUIRefreshUsers       EventType = "UI_REFRESH_USERS"
	EventUIDismissNotice      EventType = "UI_DISMISS_NOTICE"
	EventUIExit               EventType = "UI_EXIT"

	EventSysLoginSuccess  EventType = "SYS_LOGIN_SUCCESS"
	EventSysLoginFailure  EventType = "SYS_LOGIN_FAILURE"
	EventSysUsersLoaded   EventType = "SYS_USERS_LOADED"
	EventSysUsersFailure  EventType = "SYS_USERS_FAILURE"
	EventSysCreateSuccess EventType = "SYS_CREATE_SUCCESS"
	EventSysCreateFailure EventType = "SYS_CREATE_FAILURE"
	EventSysDeleteSuccess EventType = "SYS_DELETE_SUCCESS"
	EventSysDeleteFailure EventType = "SYS_DELETE_FAILURE"
	EventSysMeLoaded      EventType = "SYS_ME_LOADED"
	EventSysMeFailure     EventType = "SYS_ME_FAILURE"
	EventSysNoticeExpired EventType = "SYS_NOTICE_EXPIRED"
)

const defaultNoticeTTL = 5 * time.Second

// Event инкапсулирует событие очереди и произвольную полезную нагрузку.
type Event struct {
	Type    EventType
	Payload any
	TS      time.Time
}

// CredentialsPayload передаёт имя пользователя и пароль из формы входа.
type CredentialsPayload struct {
	Username string
	Password string
}

// LoginSuccessPayload содержит собранную сессию и роль из ответа сервера.
// Роль проверяется автоматом: сессия устанавливается только для admin.
type LoginSuccessPayload struct {
	Session Session
	Role    Role
}

// UsersLoadedPayload содержит свежий список пользователей.
type UsersLoadedPayload struct {
	Users []User
}

// CreateUserPayload передаёт поля диалога создания.
type CreateUserPayload struct {
	Username string
	Password string
	Role     Role
}

// DeleteTargetPayload указывает строку списка, для которой запрошено удаление.
type DeleteTargetPayload struct {
	UUID     string
	Username string
}

// MeLoadedPayload содержит роль текущего пользователя для экрана профиля.
type MeLoadedPayload struct {
	Role Role
}

// NoticeExpiredPayload привязывает срабатывание таймера к конкретному уведомлению.
type NoticeExpiredPayload struct {
	Seq uint64
}

// ScenarioResultPayload описывает успех/ошибку фоновых запросов.
type ScenarioResultPayload struct {
	Kind             ErrorKind
	Message          string
	TechnicalMessage string
}

// Callbacks содержит функции, вызываемые state machine для побочных эффектов.
type Callbacks struct {
	StartLogin      func(ctx *AppContext, username, password string)
	StartFetchUsers func(ctx *AppContext)
	StartCreateUser func(ctx *AppContext, username, password string, role Role)
	StartDeleteUser func(ctx *AppContext, uuid string)
	StartFetchMe    func(ctx *AppContext)
	SaveSession     func(session Session)
	ClearSession    func()
	ShowLoginWindow func(ctx *AppContext)
	ShowMainWindow  func(ctx *AppContext)
	UpdateUI        func(ctx *AppContext)
	ShowModalError  func(info *ErrorInfo)
	CleanupAndExit  func(ctx *AppContext)
}

// Machine инкапсулирует event-loop и текущее состояние приложения.
type Machine struct {
	ctx         *AppContext
	callbacks   Callbacks
	logger      *logging.Logger
	events      chan Event
	priority    chan Event
	done        chan struct{}
	stopped     atomic.Bool
	loopOnce    sync.Once
	stopOnce    sync.Once
	wg          sync.WaitGroup
	noticeTTL   time.Duration
	noticeTimer *time.Timer
	noticeSeq   uint64
}

// ErrMachineStopped возвращается при попытке отправить событие после остановки петли.
var ErrMachineStopped = errors.New("state machine stopped")

// NewMachine создаёт новый state machine в состоянии AppStarting.
func NewMachine(ctx *AppContext, logger *logging.Logger, callbacks Callbacks) *Machine {
	return &Machine{
		ctx:       ctx,
		callbacks: callbacks,
		logger:    logger,
		events:    make(chan Event, 64),
		priority:  make(chan Event, 8),
		done:      make(chan struct{}),
		noticeTTL: defaultNoticeTTL,
	}
}

// Start запускает event-loop в отдельной горутине.
func (m *Machine) Start() {
	m.loopOnce.Do(func() {
		go m.loopSafely()
	})
}

// Stop завершает event-loop.
func (m *Machine) Stop() {
	m.stopOnce.Do(func() {
		m.cancelNoticeTimer()
		m.stopped.Store(true)
		close(m.done)
		close(m.priority)
		close(m.events)
	})
}

// WaitAsync ждёт завершения фоновых задач, запущенных state machine.
func (m *Machine) WaitAsync(timeout time.Duration) bool {
	if m == nil {
		return true
	}
	if timeout <= 0 {
		m.wg.Wait()
		return true
	}
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Dispatch отправляет событие в очередь state machine.
func (m *Machine) Dispatch(evt Event) error {
	if m.stopped.Load() {
		return ErrMachineStopped
	}
	if m.logger != nil {
		m.logger.Debugf("event queued: %s", evt.Type)
	}
	ch := m.events
	if m.isExitEvent(evt.Type) {
		ch = m.priority
	}
	select {
	case <-m.done:
		return ErrMachineStopped
	case ch <- evt:
		return nil
	default:
		// если канал заполнен, блокируемся, пока возможно отправить
		if m.stopped.Load() {
			return ErrMachineStopped
		}
		if m.safeSend(ch, evt) {
			return nil
		}
		return ErrMachineStopped
	}
}

func (m *Machine) loop() {
	for {
		if m.stopped.Load() {
			return
		}

		select {
		case evt, ok := <-m.priority:
			if !ok {
				return
			}
			m.handleEvent(evt)
			continue
		default:
		}

		select {
		case evt, ok := <-m.priority:
			if !ok {
				return
			}
			m.handleEvent(evt)
		case evt, ok := <-m.events:
			if !ok {
				return
			}
			m.handleEvent(evt)
		}
	}
}

func (m *Machine) loopSafely() {
	defer m.logPanic("state loop")
	m.loop()
}

func (m *Machine) handleEvent(evt Event) {
	if evt.TS.IsZero() {
		evt.TS = time.Now()
	}
	if m.logger != nil {
		m.logger.Debugf("event handle: %s state=%s", evt.Type, m.ctx.State)
	}
	if m.isExitEvent(evt.Type) {
		m.transition(StateExiting)
		m.invokeCleanup()
		return
	}
	// Уведомление — сквозное состояние главного окна: закрытие и
	// истечение таймера обрабатываются независимо от экрана.
	switch evt.Type {
	case EventUIDismissNotice:
		m.clearNotice()
		return
	case EventSysNoticeExpired:
		payload, _ := evt.Payload.(NoticeExpiredPayload)
		if payload.Seq == m.noticeSeq {
			m.clearNotice()
		}
		return
	}

	switch m.ctx.State {
	case StateAppStarting:
		m.handleAppStarting(evt)
	case StateWaitingLogin:
		m.handleWaitingLogin(evt)
	case StateAuthInProgress:
		m.handleAuthInProgress(evt)
	case StateUsersLoading:
		m.handleUsersLoading(evt)
	case StateUsersReady:
		m.handleUsersReady(evt)
	case StateUserCreating:
		m.handleUserCreating(evt)
	case StateUserDeleting:
		m.handleUserDeleting(evt)
	case StateAboutView:
		m.handleAboutView(evt)
	case StateExiting:
		// игнор
	default:
		m.logger.Debugf("state machine: unknown state %s", m.ctx.State)
	}
}

func (m *Machine) handleAppStarting(evt Event) {
	switch evt.Type {
	case EventUILaunch:
		if m.ctx.Session != nil && strings.TrimSpace(m.ctx.Session.Token) != "" {
			m.transition(StateUsersLoading)
			m.invokeShowMain()
			m.invokeFetchUsers()
			return
		}
		m.ctx.UI.LoginStatusText = "Введите логин и пароль"
		m.transition(StateWaitingLogin)
		m.invokeShowLogin()
	case EventUICredentialsChanged:
		m.applyCredentials(evt)
	default:
		m.logger.Debugf("appStarting: ignored %s", evt.Type)
	}
}

func (m *Machine) handleWaitingLogin(evt Event) {
	switch evt.Type {
	case EventUICredentialsChanged:
		m.applyCredentials(evt)
	case EventUIClickLogin:
		m.applyCredentials(evt)
		if strings.TrimSpace(m.ctx.UI.LoginInput) == "" || strings.TrimSpace(m.ctx.UI.PasswordInput) == "" {
			m.ctx.UI.LoginStatusText = "Укажите логин и пароль"
			m.refreshUI()
			return
		}
		m.ctx.UI.LoginStatusText = "Выполняется вход..."
		m.transition(StateAuthInProgress)
		m.invokeLogin()
	default:
		m.logger.Debugf("waitingLogin: ignored %s", evt.Type)
	}
}

func (m *Machine) handleAuthInProgress(evt Event) {
	switch evt.Type {
	case EventSysLoginSuccess:
		payload, _ := evt.Payload.(LoginSuccessPayload)
		if payload.Role != RoleAdmin {
			// Токен не сохраняется: сессия для не-администратора не устанавливается.
			m.ctx.Session = nil
			m.ctx.UI.LoginStatusText = "Введите логин и пароль"
			m.transition(StateWaitingLogin)
			m.invokeShowLogin()
			m.showModalError(&ErrorInfo{
				Kind:             ErrorKindRoleDenied,
				UserMessage:      "Вход разрешён только администраторам",
				TechnicalMessage: "login rejected: role " + string(payload.Role),
				OccurredAt:       time.Now(),
			})
			return
		}
		sess := payload.Session
		m.ctx.Session = &sess
		m.ctx.LastError = nil
		m.ctx.UI.LoginStatusText = ""
		m.ctx.UI.PasswordInput = ""
		m.invokeSaveSession(sess)
		m.transition(StateUsersLoading)
		m.invokeShowMain()
		m.invokeFetchUsers()
	case EventSysLoginFailure:
		payload, _ := evt.Payload.(ScenarioResultPayload)
		message := payload.Message
		if message == "" {
			message = "Не удалось выполнить вход"
		}
		m.ctx.UI.LoginStatusText = message
		m.transition(StateWaitingLogin)
	case EventUICredentialsChanged:
		m.applyCredentials(evt)
	default:
		m.logger.Debugf("auth: ignored %s", evt.Type)
	}
}

func (m *Machine) handleUsersLoading(evt Event) {
	switch evt.Type {
	case EventSysUsersLoaded:
		payload, _ := evt.Payload.(UsersLoadedPayload)
		m.ctx.Users = payload.Users
		m.ctx.UI.UsersError = ""
		m.transition(StateUsersReady)
	case EventSysUsersFailure:
		payload, _ := evt.Payload.(ScenarioResultPayload)
		message := payload.Message
		if message == "" {
			message = "Не удалось загрузить список пользователей"
		}
		m.ctx.Users = nil
		m.ctx.UI.UsersError = message
		m.transition(StateUsersReady)
	default:
		m.logger.Debugf("usersLoading: ignored %s", evt.Type)
	}
}

func (m *Machine) handleUsersReady(evt Event) {
	switch evt.Type {
	case EventUIOpenCreateDialog:
		m.ctx.UI.Dialog = DialogCreate
		m.ctx.UI.DialogError = ""
		m.refreshUI()
	case EventUISubmitCreate:
		payload, _ := evt.Payload.(CreateUserPayload)
		if payload.Role == "" {
			payload.Role = RoleUser
		}
		if strings.TrimSpace(payload.Username) == "" || strings.TrimSpace(payload.Password) == "" {
			m.ctx.UI.DialogError = "Заполните все поля"
			m.refreshUI()
			return
		}
		if !payload.Role.Valid() {
			m.ctx.UI.DialogError = "Неизвестная роль"
			m.refreshUI()
			return
		}
		m.ctx.UI.DialogError = ""
		m.transition(StateUserCreating)
		m.invokeCreateUser(payload)
	case EventUICancelDialog:
		m.closeDialog()
	case EventUIRequestDelete:
		payload, _ := evt.Payload.(DeleteTargetPayload)
		if m.isOwnTarget(payload) {
			m.showNotice("Нельзя удалить собственную учётную запись")
			return
		}
		target := m.ctx.FindUser(payload.UUID)
		if target == nil {
			m.logger.Debugf("delete requested for unknown uuid %s", payload.UUID)
			return
		}
		copied := *target
		m.ctx.UI.Dialog = DialogDeleteConfirm
		m.ctx.UI.DialogTarget = &copied
		m.refreshUI()
	case EventUIConfirmDelete:
		target := m.ctx.UI.DialogTarget
		if target == nil || m.ctx.UI.Dialog != DialogDeleteConfirm {
			m.logger.Debugf("delete confirmed without target")
			return
		}
		// Повторная проверка на самоудаление: защита сохраняется, даже
		// если строка списка устарела к моменту подтверждения.
		if m.ctx.Session.IsOwn(*target) {
			m.closeDialog()
			m.showNotice("Нельзя удалить собственную учётную запись")
			return
		}
		m.transition(StateUserDeleting)
		m.invokeDeleteUser(target.UUID)
	case EventUIRequestLogout:
		m.ctx.UI.Dialog = DialogLogoutConfirm
		m.refreshUI()
	case EventUIConfirmLogout:
		if m.ctx.UI.Dialog != DialogLogoutConfirm {
			m.logger.Debugf("logout confirmed without dialog")
			return
		}
		m.performLogout()
	case EventUIOpenAbout:
		m.ctx.Users = nil
		m.ctx.UI.ProfileRole = ""
		m.transition(StateAboutView)
		m.invokeFetchMe()
	case EventUIRefreshUsers:
		m.transition(StateUsersLoading)
		m.invokeFetchUsers()
	default:
		m.logger.Debugf("usersReady: ignored %s", evt.Type)
	}
}

func (m *Machine) handleUserCreating(evt Event) {
	switch evt.Type {
	case EventSysCreateSuccess:
		m.ctx.UI.Dialog = DialogNone
		m.ctx.UI.DialogError = ""
		m.transition(StateUsersLoading)
		m.invokeFetchUsers()
	case EventSysCreateFailure:
		payload, _ := evt.Payload.(ScenarioResultPayload)
		message := payload.Message
		if message == "" {
			message = "Не удалось создать пользователя"
		}
		// Диалог остаётся открытым, ошибка показывается внутри него.
		m.ctx.UI.DialogError = message
		m.transition(StateUsersReady)
	default:
		m.logger.Debugf("userCreating: ignored %s", evt.Type)
	}
}

func (m *Machine) handleUserDeleting(evt Event) {
	switch evt.Type {
	case EventSysDeleteSuccess:
		m.ctx.UI.Dialog = DialogNone
		m.ctx.UI.DialogTarget = nil
		m.transition(StateUsersLoading)
		m.invokeFetchUsers()
	case EventSysDeleteFailure:
		payload, _ := evt.Payload.(ScenarioResultPayload)
		message := payload.Message
		if message == "" {
			message = "Не удалось удалить пользователя"
		}
		m.ctx.UI.Dialog = DialogNone
		m.ctx.UI.DialogTarget = nil
		m.transition(StateUsersReady)
		m.showNotice(message)
	default:
		m.logger.Debugf("userDeleting: ignored %s", evt.Type)
	}
}

func (m *Machine) handleAboutView(evt Event) {
	switch evt.Type {
	case EventSysMeLoaded:
		payload, _ := evt.Payload.(MeLoadedPayload)
		m.ctx.UI.ProfileRole = payload.Role
		m.refreshUI()
	case EventSysMeFailure:
		// Роль остаётся пустой, ошибка не показывается.
		m.logger.Debugf("me request failed, role stays blank")
	case EventUIBackToUsers:
		m.transition(StateUsersLoading)
		m.invokeFetchUsers()
	case EventUIClickLogoutDirect:
		// Экран профиля выходит без подтверждения, в отличие от списка.
		m.performLogout()
	default:
		m.logger.Debugf("aboutView: ignored %s", evt.Type)
	}
}

func (m *Machine) performLogout() {
	m.cancelNoticeTimer()
	m.ctx.Session = nil
	m.ctx.Users = nil
	m.ctx.LastError = nil
	m.ctx.UI = UIState{LoginStatusText: "Введите логин и пароль"}
	m.invokeClearSession()
	m.transition(StateWaitingLogin)
	m.invokeShowLogin()
}

func (m *Machine) closeDialog() {
	m.ctx.UI.Dialog = DialogNone
	m.ctx.UI.DialogTarget = nil
	m.ctx.UI.DialogError = ""
	m.refreshUI()
}

func (m *Machine) isOwnTarget(payload DeleteTargetPayload) bool {
	return m.ctx.Session.IsOwn(User{UUID: payload.UUID, Username: payload.Username})
}

func (m *Machine) applyCredentials(evt Event) {
	if payload, ok := evt.Payload.(CredentialsPayload); ok {
		m.ctx.UI.LoginInput = payload.Username
		m.ctx.UI.PasswordInput = payload.Password
	}
}

func (m *Machine) transition(next State) {
	if m.ctx.State == next {
		return
	}
	prev := m.ctx.State
	m.ctx.State = next
	m.logger.Debugf("state transition %s → %s", prev, next)
	m.updateUIForState(next)
}

func (m *Machine) updateUIForState(state State) {
	m.ctx.UI.CanLogin = false
	switch state {
	case StateWaitingLogin:
		m.ctx.UI.IsLoginVisible = true
		m.ctx.UI.IsMainVisible = false
		m.ctx.UI.CanLogin = true
		m.ctx.UI.UsersLoading = false
		m.ctx.UI.Dialog = DialogNone
		m.ctx.UI.DialogTarget = nil
		m.ctx.UI.DialogBusy = false
	case StateAuthInProgress:
		m.ctx.UI.IsLoginVisible = true
		m.ctx.UI.IsMainVisible = false
	case StateUsersLoading:
		m.ctx.UI.IsLoginVisible = false
		m.ctx.UI.IsMainVisible = true
		m.ctx.UI.ActiveView = ViewUsers
		m.ctx.UI.UsersLoading = true
		m.ctx.UI.DialogBusy = false
	case StateUsersReady:
		m.ctx.UI.IsLoginVisible = false
		m.ctx.UI.IsMainVisible = true
		m.ctx.UI.ActiveView = ViewUsers
		m.ctx.UI.UsersLoading = false
		m.ctx.UI.DialogBusy = false
	case StateUserCreating, StateUserDeleting:
		m.ctx.UI.DialogBusy = true
	case StateAboutView:
		m.ctx.UI.IsLoginVisible = false
		m.ctx.UI.IsMainVisible = true
		m.ctx.UI.ActiveView = ViewAbout
		m.ctx.UI.UsersLoading = false
		m.ctx.UI.Dialog = DialogNone
		m.ctx.UI.DialogTarget = nil
	}
	m.refreshUI()
}

// showNotice показывает одно уведомление; новое заменяет предыдущее,
// таймер автозакрытия перезапускается.
func (m *Machine) showNotice(message string) {
	m.cancelNoticeTimer()
	m.noticeSeq++
	m.ctx.UI.Notice = message
	seq := m.noticeSeq
	m.noticeTimer = time.AfterFunc(m.noticeTTL, func() {
		_ = m.Dispatch(Event{Type: EventSysNoticeExpired, Payload: NoticeExpiredPayload{Seq: seq}})
	})
	m.refreshUI()
}

func (m *Machine) clearNotice() {
	m.cancelNoticeTimer()
	if m.ctx.UI.Notice == "" {
		return
	}
	m.ctx.UI.Notice = ""
	m.refreshUI()
}

func (m *Machine) cancelNoticeTimer() {
	if m.noticeTimer != nil {
		m.noticeTimer.Stop()
		m.noticeTimer = nil
	}
}

func (m *Machine) showModalError(info *ErrorInfo) {
	m.ctx.LastError = info
	if m.callbacks.ShowModalError != nil {
		m.callbacks.ShowModalError(info)
	}
}

func (m *Machine) invokeLogin() {
	if m.callbacks.StartLogin != nil {
		username := m.ctx.UI.LoginInput
		password := m.ctx.UI.PasswordInput
		m.runAsync(func() { m.callbacks.StartLogin(m.ctx, username, password) })
	}
}

func (m *Machine) invokeFetchUsers() {
	if m.callbacks.StartFetchUsers != nil {
		m.runAsync(func() { m.callbacks.StartFetchUsers(m.ctx) })
	}
}

func (m *Machine) invokeCreateUser(payload CreateUserPayload) {
	if m.callbacks.StartCreateUser != nil {
		m.runAsync(func() {
			m.callbacks.StartCreateUser(m.ctx, payload.Username, payload.Password, payload.Role)
		})
	}
}

func (m *Machine) invokeDeleteUser(uuid string) {
	if m.callbacks.StartDeleteUser != nil {
		m.runAsync(func() { m.callbacks.StartDeleteUser(m.ctx, uuid) })
	}
}

func (m *Machine) invokeFetchMe() {
	if m.callbacks.StartFetchMe != nil {
		m.runAsync(func() { m.callbacks.StartFetchMe(m.ctx) })
	}
}

func (m *Machine) invokeSaveSession(session Session) {
	if m.callbacks.SaveSession != nil {
		m.runAsync(func() { m.callbacks.SaveSession(session) })
	}
}

func (m *Machine) invokeClearSession() {
	if m.callbacks.ClearSession != nil {
		m.runAsync(func() { m.callbacks.ClearSession() })
	}
}

func (m *Machine) runAsync(fn func()) {
	if fn == nil {
		return
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer m.logPanic("async task")
		fn()
	}()
}

func (m *Machine) logPanic(scope string) {
	if r := recover(); r != nil {
		if m.logger != nil {
			m.logger.Errorf("panic in %s: %v\n%s", scope, r, debug.Stack())
		}
		panic(r)
	}
}

func (m *Machine) invokeCleanup() {
	if m.callbacks.CleanupAndExit != nil {
		m.callbacks.CleanupAndExit(m.ctx)
		return
	}
	if !m.stopped.Load() {
		m.Stop()
	}
}

func (m *Machine) invokeShowLogin() {
	if m.callbacks.ShowLoginWindow != nil {
		m.callbacks.ShowLoginWindow(m.ctx)
	}
}

func (m *Machine) invokeShowMain() {
	if m.callbacks.ShowMainWindow != nil {
		m.callbacks.ShowMainWindow(m.ctx)
	}
}

func (m *Machine) refreshUI() {
	if m.callbacks.UpdateUI != nil {
		m.callbacks.UpdateUI(m.ctx)
	}
}

func (m *Machine) isExitEvent(t EventType) bool {
	return t == EventUIExit
}

func (m *Machine) safeSend(ch chan Event, evt Event) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	ch <- evt
	return true
}
