package ui

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"useradmin/client/internal/logging"
	"useradmin/client/internal/state"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"golang.org/x/text/encoding/charmap"
)

// Options описывает параметры инициализации UI Manager.
type Options struct {
	AppID    string
	AppName  string
	Logger   *logging.Logger
	Dispatch func(state.Event) error
}

// Manager управляет окнами Fyne и связывает их со state machine.
type Manager struct {
	app                fyne.App
	appName            string
	logger             *logging.Logger
	dispatch           func(state.Event) error
	loginWin           fyne.Window
	mainWin            fyne.Window
	loginWinVisible    bool
	mainWinVisible     bool
	loginEntry         *widget.Entry
	passwordEntry      *widget.Entry
	loginStatus        *widget.Label
	loginBtn           *widget.Button
	usersView          *fyne.Container
	aboutView          *fyne.Container
	userList           *widget.List
	users              []userRow
	usersError         *widget.Label
	spinner            *widget.ProgressBarInfinite
	noticeBox          *fyne.Container
	noticeLabel        *widget.Label
	profileName        *widget.Label
	profileRole        *widget.Label
	profileExpiry      *widget.Label
	createDialog       dialog.Dialog
	createName         *widget.Entry
	createPassword     *widget.Entry
	createRole         *widget.Select
	createError        *widget.Label
	createSubmit       *widget.Button
	confirmDialog      dialog.Dialog
	shownDialog        state.DialogKind
	suppressCredEvents bool
	updateCh           chan uiSnapshot
	stopCh             chan struct{}
	runOnce            sync.Once
	shutdownOnce       sync.Once
	wg                 sync.WaitGroup
}

// userRow дополняет пользователя признаком собственной учётной записи:
// для неё кнопка удаления в списке не показывается.
type userRow struct {
	state.User
	Own bool
}

// uiSnapshot переносит срез состояния UI из state machine в goroutine UI.
type uiSnapshot struct {
	LoginVisible  bool
	MainVisible   bool
	ActiveView    state.View
	CanLogin      bool
	LoginStatus   string
	LoginInput    string
	PasswordInput string
	UsersLoading  bool
	UsersError    string
	Dialog        state.DialogKind
	DialogTarget  *state.User
	DialogError   string
	DialogBusy    bool
	Notice        string
	ProfileName   string
	ProfileRole   state.Role
	ProfileExpiry *time.Time
	Users         []userRow
}

// NewManager создаёт новый UI Manager.
func NewManager(opts Options) *Manager {
	appID := strings.TrimSpace(opts.AppID)
	if appID == "" {
		appID = "useradmin.client"
	}
	name := strings.TrimSpace(opts.AppName)
	if name == "" {
		name = "UserAdmin"
	}
	fyneApp := fyneapp.NewWithID(appID)
	m := &Manager{
		app:      fyneApp,
		appName:  name,
		logger:   opts.Logger,
		dispatch: opts.Dispatch,
		updateCh: make(chan uiSnapshot, 16),
		stopCh:   make(chan struct{}),
	}
	m.buildLoginWindow()
	m.buildMainWindow()
	return m
}

// Start запускает фоновые goroutine UI и главный цикл Fyne.
func (m *Manager) Start() {
	m.runOnce.Do(func() {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.processUpdates()
		}()
	})
}

// RunMainLoop блокирует текущую горутину до завершения цикла Fyne.
func (m *Manager) RunMainLoop() {
	if m.app == nil {
		return
	}
	m.app.Run()
}

// Shutdown останавливает обновления и закрывает Fyne-приложение.
func (m *Manager) Shutdown() {
	m.shutdownOnce.Do(func() {
		close(m.stopCh)
		m.callOnUI(func() {
			m.hideDialogs()
			if m.mainWin != nil {
				m.mainWin.Close()
			}
			if m.loginWin != nil {
				m.loginWin.Close()
			}
			m.mainWinVisible = false
			m.loginWinVisible = false
			if m.app != nil {
				m.app.Quit()
			}
		})
	})
}

// WaitAsync ждёт завершения фоновых UI goroutine.
func (m *Manager) WaitAsync(timeout time.Duration) bool {
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

// ShowLoginWindow отображает окно логина.
func (m *Manager) ShowLoginWindow(_ *state.AppContext) {
	m.callOnUI(func() {
		m.hideDialogs()
		if m.mainWin != nil {
			m.mainWin.Hide()
			m.mainWinVisible = false
		}
		if m.loginWin != nil {
			wasVisible := m.loginWinVisible
			if !wasVisible {
				m.loginWin.Show()
			}
			if !wasVisible && m.loginEntry != nil {
				if canvas := m.loginWin.Canvas(); canvas != nil {
					canvas.Focus(m.loginEntry)
				}
			}
			m.loginWinVisible = true
		}
	})
}

// ShowMainWindow отображает главное окно.
func (m *Manager) ShowMainWindow(_ *state.AppContext) {
	m.callOnUI(func() {
		if m.loginWin != nil {
			m.loginWin.Hide()
			m.loginWinVisible = false
		}
		if m.mainWin != nil {
			m.mainWin.Show()
			m.mainWin.RequestFocus()
			m.mainWinVisible = true
		}
	})
}

// UpdateUI передаёт снимок состояния UI в безопасную для Fyne goroutine.
func (m *Manager) UpdateUI(ctx *state.AppContext) {
	if ctx == nil {
		return
	}
	snap := uiSnapshot{
		LoginVisible:  ctx.UI.IsLoginVisible,
		MainVisible:   ctx.UI.IsMainVisible,
		ActiveView:    ctx.UI.ActiveView,
		CanLogin:      ctx.UI.CanLogin,
		LoginStatus:   ctx.UI.LoginStatusText,
		LoginInput:    ctx.UI.LoginInput,
		PasswordInput: ctx.UI.PasswordInput,
		UsersLoading:  ctx.UI.UsersLoading,
		UsersError:    ctx.UI.UsersError,
		Dialog:        ctx.UI.Dialog,
		DialogError:   ctx.UI.DialogError,
		DialogBusy:    ctx.UI.DialogBusy,
		Notice:        ctx.UI.Notice,
		ProfileRole:   ctx.UI.ProfileRole,
	}
	if ctx.UI.DialogTarget != nil {
		copied := *ctx.UI.DialogTarget
		snap.DialogTarget = &copied
	}
	if ctx.Session != nil {
		snap.ProfileName = ctx.Session.Username
		if ctx.Session.ExpiresAt != nil {
			expiry := *ctx.Session.ExpiresAt
			snap.ProfileExpiry = &expiry
		}
	}
	snap.Users = make([]userRow, 0, len(ctx.Users))
	for _, user := range ctx.Users {
		snap.Users = append(snap.Users, userRow{User: user, Own: ctx.Session.IsOwn(user)})
	}
	select {
	case <-m.stopCh:
		return
	case m.updateCh <- snap:
	default:
		select {
		case <-m.updateCh:
		default:
		}
		m.updateCh <- snap
	}
}

// ShowModalError отображает модальное окно ошибки.
func (m *Manager) ShowModalError(info *state.ErrorInfo) {
	if info == nil {
		return
	}
	m.callOnUI(func() {
		win := m.activeWindow()
		message := info.UserMessage
		if message == "" {
			message = "Произошла ошибка"
		}
		message = normalizeUserText(message)
		dialog.ShowError(errors.New(message), win)
		if (info.Kind == state.ErrorKindAuthFailed || info.Kind == state.ErrorKindNetworkUnavailable) && m.loginStatus != nil {
			m.loginStatus.SetText(message)
		}
	})
}

func (m *Manager) processUpdates() {
	for {
		select {
		case <-m.stopCh:
			return
		case snap := <-m.updateCh:
			m.applySnapshot(snap)
		}
	}
}

func (m *Manager) applySnapshot(snap uiSnapshot) {
	m.callOnUI(func() {
		m.updateLoginControls(snap)
		m.updateCredentials(snap.LoginInput, snap.PasswordInput)
		m.updateUsersView(snap)
		m.updateAboutView(snap)
		m.updateActiveView(snap)
		m.updateNotice(snap.Notice)
		m.updateDialogs(snap)
	})
}

func (m *Manager) updateLoginControls(snap uiSnapshot) {
	if m.loginStatus != nil {
		m.loginStatus.SetText(normalizeUserText(snap.LoginStatus))
	}
	if m.loginBtn != nil {
		if snap.CanLogin {
			m.loginBtn.Enable()
		} else {
			m.loginBtn.Disable()
		}
	}
}

func (m *Manager) updateCredentials(login, password string) {
	if m.loginEntry == nil || m.passwordEntry == nil {
		return
	}
	m.suppressCredEvents = true
	if m.loginEntry.Text != login {
		m.loginEntry.SetText(login)
	}
	if m.passwordEntry.Text != password {
		m.passwordEntry.SetText(password)
	}
	m.suppressCredEvents = false
}

func (m *Manager) updateUsersView(snap uiSnapshot) {
	m.users = snap.Users
	if m.userList != nil {
		m.userList.Refresh()
	}
	if m.usersError != nil {
		text := normalizeUserText(snap.UsersError)
		m.usersError.SetText(text)
		if text == "" {
			m.usersError.Hide()
		} else {
			m.usersError.Show()
		}
	}
	if m.spinner != nil {
		if snap.UsersLoading {
			m.spinner.Show()
			m.spinner.Start()
		} else {
			m.spinner.Stop()
			m.spinner.Hide()
		}
	}
}

func (m *Manager) updateAboutView(snap uiSnapshot) {
	if m.profileName != nil {
		name := snap.ProfileName
		if name == "" {
			name = "—"
		}
		m.profileName.SetText(name)
	}
	if m.profileRole != nil {
		role := string(snap.ProfileRole)
		if role == "" {
			role = "—"
		}
		m.profileRole.SetText(role)
	}
	if m.profileExpiry != nil {
		expiry := "—"
		if snap.ProfileExpiry != nil {
			expiry = snap.ProfileExpiry.Local().Format("02.01.2006 15:04")
		}
		m.profileExpiry.SetText(expiry)
	}
}

func (m *Manager) updateActiveView(snap uiSnapshot) {
	if m.usersView == nil || m.aboutView == nil {
		return
	}
	if snap.ActiveView == state.ViewAbout {
		m.usersView.Hide()
		m.aboutView.Show()
		return
	}
	m.aboutView.Hide()
	m.usersView.Show()
}

func (m *Manager) updateNotice(message string) {
	if m.noticeBox == nil || m.noticeLabel == nil {
		return
	}
	message = normalizeUserText(message)
	if message == "" {
		m.noticeBox.Hide()
		return
	}
	m.noticeLabel.SetText(message)
	m.noticeBox.Show()
}

// updateDialogs синхронизирует открытые диалоги Fyne с состоянием автомата.
// Пока идёт фоновый запрос, уже открытые диалоги не трогаются.
func (m *Manager) updateDialogs(snap uiSnapshot) {
	if snap.Dialog == m.shownDialog {
		if snap.Dialog == state.DialogCreate {
			m.updateCreateDialog(snap)
		}
		return
	}
	if snap.DialogBusy {
		return
	}
	m.hideDialogs()
	m.shownDialog = snap.Dialog
	switch snap.Dialog {
	case state.DialogCreate:
		m.openCreateDialog(snap)
	case state.DialogDeleteConfirm:
		m.openDeleteConfirm(snap.DialogTarget)
	case state.DialogLogoutConfirm:
		m.openLogoutConfirm()
	}
}

func (m *Manager) updateCreateDialog(snap uiSnapshot) {
	if m.createError != nil {
		m.createError.SetText(normalizeUserText(snap.DialogError))
	}
	if m.createSubmit != nil {
		if snap.DialogBusy {
			m.createSubmit.Disable()
		} else {
			m.createSubmit.Enable()
		}
	}
}

func (m *Manager) openCreateDialog(snap uiSnapshot) {
	if m.mainWin == nil {
		return
	}
	m.createName = widget.NewEntry()
	m.createName.SetPlaceHolder("Логин")
	m.createPassword = widget.NewPasswordEntry()
	m.createPassword.SetPlaceHolder("Пароль")
	m.createRole = widget.NewSelect([]string{string(state.RoleUser), string(state.RoleAdmin)}, nil)
	m.createRole.SetSelected(string(state.RoleUser))
	m.createError = widget.NewLabel(normalizeUserText(snap.DialogError))
	m.createError.Wrapping = fyne.TextWrapWord

	submit := widget.NewButton("Создать", m.handleCreateSubmitted)
	submit.Importance = widget.HighImportance
	m.createSubmit = submit
	cancel := widget.NewButton("Отмена", func() { m.sendSimpleEvent(state.EventUICancelDialog) })

	fields := container.NewVBox(
		widget.NewLabelWithStyle("Логин", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		m.createName,
		widget.NewLabelWithStyle("Пароль", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		m.createPassword,
		widget.NewLabelWithStyle("Роль", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		m.createRole,
		m.createError,
		container.NewGridWithColumns(2, cancel, submit),
	)
	d := dialog.NewCustomWithoutButtons("Новый пользователь", fields, m.mainWin)
	d.Resize(fyne.NewSize(360, 0))
	d.SetOnClosed(func() {
		if m.shownDialog == state.DialogCreate {
			m.shownDialog = state.DialogNone
			m.sendSimpleEvent(state.EventUICancelDialog)
		}
	})
	m.createDialog = d
	d.Show()
	if canvas := m.mainWin.Canvas(); canvas != nil {
		canvas.Focus(m.createName)
	}
}

func (m *Manager) openDeleteConfirm(target *state.User) {
	if m.mainWin == nil || target == nil {
		return
	}
	message := fmt.Sprintf("Удалить пользователя «%s»?", normalizeUserText(target.Username))
	d := dialog.NewConfirm("Удаление", message, func(confirmed bool) {
		m.shownDialog = state.DialogNone
		if confirmed {
			m.sendSimpleEvent(state.EventUIConfirmDelete)
			return
		}
		m.sendSimpleEvent(state.EventUICancelDialog)
	}, m.mainWin)
	d.SetConfirmText("Удалить")
	d.SetDismissText("Отмена")
	m.confirmDialog = d
	d.Show()
}

func (m *Manager) openLogoutConfirm() {
	if m.mainWin == nil {
		return
	}
	d := dialog.NewConfirm("Выход", "Выйти из учётной записи?", func(confirmed bool) {
		m.shownDialog = state.DialogNone
		if confirmed {
			m.sendSimpleEvent(state.EventUIConfirmLogout)
			return
		}
		m.sendSimpleEvent(state.EventUICancelDialog)
	}, m.mainWin)
	d.SetConfirmText("Выйти")
	d.SetDismissText("Отмена")
	m.confirmDialog = d
	d.Show()
}

func (m *Manager) hideDialogs() {
	if m.createDialog != nil {
		d := m.createDialog
		m.createDialog = nil
		d.SetOnClosed(nil)
		d.Hide()
	}
	if m.confirmDialog != nil {
		d := m.confirmDialog
		m.confirmDialog = nil
		d.Hide()
	}
	m.shownDialog = state.DialogNone
}

func (m *Manager) buildLoginWindow() {
	if m.app == nil {
		return
	}
	win := m.app.NewWindow(fmt.Sprintf("%s — Вход", m.appName))
	win.Resize(fyne.NewSize(420, 360))
	win.CenterOnScreen()
	win.SetFixedSize(true)

	title := widget.NewLabelWithStyle(m.appName, fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	subtitle := widget.NewLabel("Авторизация")

	m.loginEntry = widget.NewEntry()
	m.loginEntry.SetPlaceHolder("Логин")
	m.loginEntry.OnChanged = func(string) { m.handleCredentialsEdited() }
	m.loginEntry.OnSubmitted = func(string) { m.handleLoginClicked() }

	m.passwordEntry = widget.NewPasswordEntry()
	m.passwordEntry.SetPlaceHolder("Пароль")
	m.passwordEntry.OnChanged = func(string) { m.handleCredentialsEdited() }
	m.passwordEntry.OnSubmitted = func(string) { m.handleLoginClicked() }

	loginButton := widget.NewButton("Войти", m.handleLoginClicked)
	loginButton.Importance = widget.HighImportance
	loginButton.Disable()
	m.loginBtn = loginButton

	m.loginStatus = widget.NewLabel("")
	m.loginStatus.Wrapping = fyne.TextWrapWord

	fields := container.NewVBox(
		widget.NewLabelWithStyle("Логин", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		m.loginEntry,
		widget.NewLabelWithStyle("Пароль", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		m.passwordEntry,
	)
	header := container.NewVBox(title, subtitle)
	form := container.NewVBox(fields, loginButton, layout.NewSpacer())
	statusArea := container.NewVBox(widget.NewSeparator(), m.loginStatus)
	content := container.NewBorder(header, statusArea, nil, nil, form)
	win.SetContent(container.NewPadded(content))
	win.SetCloseIntercept(func() {
		m.handleExitRequested()
	})
	win.Show()
	m.loginWin = win
}

func (m *Manager) buildMainWindow() {
	if m.app == nil {
		return
	}
	win := m.app.NewWindow(m.appName)
	win.Resize(fyne.NewSize(720, 480))

	m.userList = widget.NewList(
		func() int { return len(m.users) },
		func() fyne.CanvasObject {
			name := widget.NewLabel("")
			role := widget.NewLabel("")
			del := widget.NewButtonWithIcon("", theme.DeleteIcon(), nil)
			return container.NewHBox(name, role, layout.NewSpacer(), del)
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			box := obj.(*fyne.Container)
			name := box.Objects[0].(*widget.Label)
			role := box.Objects[1].(*widget.Label)
			del := box.Objects[3].(*widget.Button)
			if id < 0 || id >= len(m.users) {
				name.SetText("—")
				role.SetText("")
				del.Hide()
				return
			}
			row := m.users[id]
			name.SetText(normalizeUserText(row.Username))
			role.SetText(string(row.Role))
			if row.Own {
				del.Hide()
			} else {
				del.OnTapped = func() { m.handleDeleteRequested(row.User) }
				del.Show()
			}
		},
	)

	m.usersError = widget.NewLabel("")
	m.usersError.Wrapping = fyne.TextWrapWord
	m.usersError.Hide()

	m.spinner = widget.NewProgressBarInfinite()
	m.spinner.Hide()

	m.noticeLabel = widget.NewLabel("")
	m.noticeLabel.Wrapping = fyne.TextWrapWord
	noticeClose := widget.NewButtonWithIcon("", theme.CancelIcon(), func() {
		m.sendSimpleEvent(state.EventUIDismissNotice)
	})
	m.noticeBox = container.NewBorder(nil, nil, nil, noticeClose, m.noticeLabel)
	m.noticeBox.Hide()

	createBtn := widget.NewButton("Создать", func() { m.sendSimpleEvent(state.EventUIOpenCreateDialog) })
	refreshBtn := widget.NewButton("Обновить", func() { m.sendSimpleEvent(state.EventUIRefreshUsers) })
	aboutBtn := widget.NewButton("О программе", func() { m.sendSimpleEvent(state.EventUIOpenAbout) })
	logoutBtn := widget.NewButton("Выйти", func() { m.sendSimpleEvent(state.EventUIRequestLogout) })
	toolbar := container.NewHBox(createBtn, refreshBtn, layout.NewSpacer(), aboutBtn, logoutBtn)

	listCard := widget.NewCard("Пользователи", "", container.NewMax(m.userList))
	usersTop := container.NewVBox(toolbar, m.noticeBox, m.usersError, m.spinner)
	m.usersView = container.NewBorder(usersTop, nil, nil, nil, listCard)

	m.profileName = widget.NewLabelWithStyle("—", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	m.profileRole = widget.NewLabel("—")
	m.profileExpiry = widget.NewLabel("—")
	backBtn := widget.NewButton("Назад", func() { m.sendSimpleEvent(state.EventUIBackToUsers) })
	directLogoutBtn := widget.NewButton("Выйти", func() { m.sendSimpleEvent(state.EventUIClickLogoutDirect) })
	profile := container.NewVBox(
		widget.NewLabelWithStyle("Профиль", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewHBox(widget.NewLabel("Логин:"), m.profileName),
		container.NewHBox(widget.NewLabel("Роль:"), m.profileRole),
		container.NewHBox(widget.NewLabel("Сессия до:"), m.profileExpiry),
		layout.NewSpacer(),
		container.NewHBox(backBtn, layout.NewSpacer(), directLogoutBtn),
	)
	m.aboutView = container.NewPadded(profile)
	m.aboutView.Hide()

	win.SetContent(container.NewPadded(container.NewMax(m.usersView, m.aboutView)))
	win.SetCloseIntercept(func() {
		m.handleExitRequested()
	})
	win.Hide()
	m.mainWin = win
}

func (m *Manager) handleLoginClicked() {
	if m.loginEntry == nil || m.passwordEntry == nil {
		m.sendSimpleEvent(state.EventUIClickLogin)
		return
	}
	payload := state.CredentialsPayload{
		Username: m.loginEntry.Text,
		Password: m.passwordEntry.Text,
	}
	evt := state.Event{Type: state.EventUIClickLogin, Payload: payload, TS: time.Now()}
	m.dispatchEvent(evt)
}

func (m *Manager) handleCredentialsEdited() {
	if m.suppressCredEvents {
		return
	}
	payload := state.CredentialsPayload{
		Username: m.loginEntry.Text,
		Password: m.passwordEntry.Text,
	}
	evt := state.Event{Type: state.EventUICredentialsChanged, Payload: payload, TS: time.Now()}
	m.dispatchEvent(evt)
}

func (m *Manager) handleCreateSubmitted() {
	if m.createName == nil || m.createPassword == nil || m.createRole == nil {
		return
	}
	payload := state.CreateUserPayload{
		Username: m.createName.Text,
		Password: m.createPassword.Text,
		Role:     state.Role(m.createRole.Selected),
	}
	evt := state.Event{Type: state.EventUISubmitCreate, Payload: payload, TS: time.Now()}
	m.dispatchEvent(evt)
}

func (m *Manager) handleDeleteRequested(user state.User) {
	payload := state.DeleteTargetPayload{UUID: user.UUID, Username: user.Username}
	evt := state.Event{Type: state.EventUIRequestDelete, Payload: payload, TS: time.Now()}
	m.dispatchEvent(evt)
}

func (m *Manager) handleExitRequested() {
	m.sendSimpleEvent(state.EventUIExit)
}

func (m *Manager) sendSimpleEvent(t state.EventType) {
	evt := state.Event{Type: t, TS: time.Now()}
	m.dispatchEvent(evt)
}

func (m *Manager) dispatchEvent(evt state.Event) {
	if m.dispatch == nil {
		return
	}
	if err := m.dispatch(evt); err != nil && m.logger != nil {
		m.logger.Errorf("ui dispatch %s failed: %v", evt.Type, err)
	}
}

func (m *Manager) activeWindow() fyne.Window {
	if m.loginWinVisible && m.loginWin != nil {
		return m.loginWin
	}
	if m.mainWinVisible && m.mainWin != nil {
		return m.mainWin
	}
	if m.loginWin != nil {
		return m.loginWin
	}
	return m.mainWin
}

func (m *Manager) callOnUI(fn func()) {
	if m.app == nil || fn == nil {
		return
	}
	if drv := m.app.Driver(); drv != nil {
		drv.DoFromGoroutine(fn, true)
		return
	}
	fn()
}

func normalizeUserText(message string) string {
	message = strings.TrimSpace(message)
	if message == "" {
		return message
	}
	encoded, err := charmap.Windows1251.NewEncoder().Bytes([]byte(message))
	if err != nil {
		return message
	}
	if utf8.Valid(encoded) {
		fixed := string(encoded)
		if fixed != "" {
			return fixed
		}
	}
	return message
}
