package state

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"useradmin/client/internal/config"
	"useradmin/client/internal/logging"
)

// callbackRecorder фиксирует вызовы callbacks state machine.
type callbackRecorder struct {
	mu          sync.Mutex
	loginUsers  []string
	fetchUsers  int
	createUsers []string
	deleteUUIDs []string
	fetchMe     int
	saved       []Session
	cleared     int
	showLogin   int
	showMain    int
	modalErrors []*ErrorInfo
}

func (r *callbackRecorder) callbacks() Callbacks {
	return Callbacks{
		StartLogin: func(_ *AppContext, username, _ string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.loginUsers = append(r.loginUsers, username)
		},
		StartFetchUsers: func(_ *AppContext) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.fetchUsers++
		},
		StartCreateUser: func(_ *AppContext, username, _ string, _ Role) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.createUsers = append(r.createUsers, username)
		},
		StartDeleteUser: func(_ *AppContext, uuid string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.deleteUUIDs = append(r.deleteUUIDs, uuid)
		},
		StartFetchMe: func(_ *AppContext) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.fetchMe++
		},
		SaveSession: func(sess Session) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.saved = append(r.saved, sess)
		},
		ClearSession: func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.cleared++
		},
		ShowLoginWindow: func(_ *AppContext) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.showLogin++
		},
		ShowMainWindow: func(_ *AppContext) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.showMain++
		},
		ShowModalError: func(info *ErrorInfo) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.modalErrors = append(r.modalErrors, info)
		},
	}
}

func newTestMachine(t *testing.T) (*Machine, *callbackRecorder) {
	t.Helper()
	logger, err := logging.New(filepath.Join(t.TempDir(), "test.log"), logging.ParseLevel("debug"))
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	t.Cleanup(func() { logger.Close() })
	rec := &callbackRecorder{}
	ctx := NewAppContext(&config.Config{APIBaseURL: "http://127.0.0.1:8000"})
	m := NewMachine(ctx, logger, rec.callbacks())
	return m, rec
}

// flush ждёт завершения асинхронных callbacks.
func flush(t *testing.T, m *Machine) {
	t.Helper()
	if !m.WaitAsync(time.Second) {
		t.Fatal("async callbacks did not finish")
	}
}

func adminSession() Session {
	return Session{Token: "tok-1", Username: "root", UUID: "u-1"}
}

func TestLaunchWithoutSessionShowsLogin(t *testing.T) {
	m, rec := newTestMachine(t)
	m.handleEvent(Event{Type: EventUILaunch})
	flush(t, m)

	if m.ctx.State != StateWaitingLogin {
		t.Errorf("state = %s, want WaitingLogin", m.ctx.State)
	}
	if rec.showLogin != 1 {
		t.Errorf("login window shown %d times, want 1", rec.showLogin)
	}
	if !m.ctx.UI.CanLogin {
		t.Error("login must be enabled")
	}
}

func TestLaunchWithSavedSessionFetchesUsers(t *testing.T) {
	m, rec := newTestMachine(t)
	sess := adminSession()
	m.ctx.Session = &sess
	m.handleEvent(Event{Type: EventUILaunch})
	flush(t, m)

	if m.ctx.State != StateUsersLoading {
		t.Errorf("state = %s, want UsersLoading", m.ctx.State)
	}
	if rec.showMain != 1 {
		t.Errorf("main window shown %d times, want 1", rec.showMain)
	}
	if rec.fetchUsers != 1 {
		t.Errorf("users fetched %d times, want 1", rec.fetchUsers)
	}
	if rec.showLogin != 0 {
		t.Error("login window must stay hidden")
	}
}

func TestEmptyCredentialsBlockLogin(t *testing.T) {
	m, rec := newTestMachine(t)
	m.handleEvent(Event{Type: EventUILaunch})
	m.handleEvent(Event{Type: EventUIClickLogin, Payload: CredentialsPayload{Username: "  ", Password: ""}})
	flush(t, m)

	if m.ctx.State != StateWaitingLogin {
		t.Errorf("state = %s, want WaitingLogin", m.ctx.State)
	}
	if len(rec.loginUsers) != 0 {
		t.Error("login request must not start")
	}
	if m.ctx.UI.LoginStatusText == "" {
		t.Error("status text must explain the problem")
	}
}

func TestLoginStartsAuth(t *testing.T) {
	m, rec := newTestMachine(t)
	m.handleEvent(Event{Type: EventUILaunch})
	m.handleEvent(Event{Type: EventUIClickLogin, Payload: CredentialsPayload{Username: "root", Password: "secret"}})
	flush(t, m)

	if m.ctx.State != StateAuthInProgress {
		t.Errorf("state = %s, want AuthInProgress", m.ctx.State)
	}
	if len(rec.loginUsers) != 1 || rec.loginUsers[0] != "root" {
		t.Errorf("login calls = %v", rec.loginUsers)
	}
}

func TestLoginRejectsNonAdmin(t *testing.T) {
	m, rec := newTestMachine(t)
	m.ctx.State = StateAuthInProgress
	payload := LoginSuccessPayload{Session: Session{Token: "tok-2", Username: "guest"}, Role: RoleUser}
	m.handleEvent(Event{Type: EventSysLoginSuccess, Payload: payload})
	flush(t, m)

	if m.ctx.State != StateWaitingLogin {
		t.Errorf("state = %s, want WaitingLogin", m.ctx.State)
	}
	if m.ctx.Session != nil {
		t.Error("session must not be established for non-admin")
	}
	if len(rec.saved) != 0 {
		t.Error("session must not be persisted for non-admin")
	}
	if len(rec.modalErrors) != 1 || rec.modalErrors[0].Kind != ErrorKindRoleDenied {
		t.Errorf("modal errors = %+v, want one RoleDenied", rec.modalErrors)
	}
}

func TestLoginAdminEstablishesSession(t *testing.T) {
	m, rec := newTestMachine(t)
	m.ctx.State = StateAuthInProgress
	m.ctx.UI.PasswordInput = "secret"
	payload := LoginSuccessPayload{Session: adminSession(), Role: RoleAdmin}
	m.handleEvent(Event{Type: EventSysLoginSuccess, Payload: payload})
	flush(t, m)

	if m.ctx.State != StateUsersLoading {
		t.Errorf("state = %s, want UsersLoading", m.ctx.State)
	}
	if m.ctx.Session == nil || m.ctx.Session.Token != "tok-1" {
		t.Errorf("session = %+v", m.ctx.Session)
	}
	if len(rec.saved) != 1 || rec.saved[0].Username != "root" {
		t.Errorf("saved sessions = %+v", rec.saved)
	}
	if rec.fetchUsers != 1 {
		t.Errorf("users fetched %d times, want 1", rec.fetchUsers)
	}
	if m.ctx.UI.PasswordInput != "" {
		t.Error("password input must be cleared")
	}
}

func TestLoginFailureShowsInlineMessage(t *testing.T) {
	m, _ := newTestMachine(t)
	m.ctx.State = StateAuthInProgress
	payload := ScenarioResultPayload{Kind: ErrorKindAuthFailed, Message: "Неверный логин или пароль"}
	m.handleEvent(Event{Type: EventSysLoginFailure, Payload: payload})
	flush(t, m)

	if m.ctx.State != StateWaitingLogin {
		t.Errorf("state = %s, want WaitingLogin", m.ctx.State)
	}
	if m.ctx.UI.LoginStatusText != "Неверный логин или пароль" {
		t.Errorf("status = %q", m.ctx.UI.LoginStatusText)
	}
}

func readyMachine(t *testing.T) (*Machine, *callbackRecorder) {
	t.Helper()
	m, rec := newTestMachine(t)
	sess := adminSession()
	m.ctx.Session = &sess
	m.ctx.State = StateUsersReady
	m.ctx.Users = []User{
		{UUID: "u-1", Username: "root", Role: RoleAdmin},
		{UUID: "u-2", Username: "guest", Role: RoleUser},
	}
	return m, rec
}

func TestSelfDeleteGuardOnRequest(t *testing.T) {
	m, rec := readyMachine(t)
	m.handleEvent(Event{Type: EventUIRequestDelete, Payload: DeleteTargetPayload{UUID: "u-1", Username: "root"}})
	flush(t, m)

	if m.ctx.UI.Dialog != DialogNone {
		t.Errorf("dialog = %q, want none", m.ctx.UI.Dialog)
	}
	if m.ctx.UI.Notice == "" {
		t.Error("notice must explain the self-delete guard")
	}
	if len(rec.deleteUUIDs) != 0 {
		t.Error("delete request must not start")
	}
}

func TestSelfDeleteGuardOnConfirm(t *testing.T) {
	m, rec := readyMachine(t)
	m.ctx.UI.Dialog = DialogDeleteConfirm
	m.ctx.UI.DialogTarget = &User{UUID: "u-1", Username: "root", Role: RoleAdmin}
	m.handleEvent(Event{Type: EventUIConfirmDelete})
	flush(t, m)

	if m.ctx.State != StateUsersReady {
		t.Errorf("state = %s, want UsersReady", m.ctx.State)
	}
	if m.ctx.UI.Notice == "" {
		t.Error("notice must explain the self-delete guard")
	}
	if len(rec.deleteUUIDs) != 0 {
		t.Error("delete request must not start")
	}
}

func TestDeleteFlow(t *testing.T) {
	m, rec := readyMachine(t)
	m.handleEvent(Event{Type: EventUIRequestDelete, Payload: DeleteTargetPayload{UUID: "u-2", Username: "guest"}})
	if m.ctx.UI.Dialog != DialogDeleteConfirm || m.ctx.UI.DialogTarget == nil {
		t.Fatalf("confirm dialog not opened: %+v", m.ctx.UI)
	}

	m.handleEvent(Event{Type: EventUIConfirmDelete})
	flush(t, m)
	if m.ctx.State != StateUserDeleting {
		t.Errorf("state = %s, want UserDeleting", m.ctx.State)
	}
	if len(rec.deleteUUIDs) != 1 || rec.deleteUUIDs[0] != "u-2" {
		t.Errorf("delete calls = %v", rec.deleteUUIDs)
	}

	m.handleEvent(Event{Type: EventSysDeleteSuccess})
	flush(t, m)
	if m.ctx.State != StateUsersLoading {
		t.Errorf("state = %s, want UsersLoading after delete", m.ctx.State)
	}
	if rec.fetchUsers != 1 {
		t.Errorf("users fetched %d times, want 1", rec.fetchUsers)
	}
}

func TestDeleteFailureShowsNotice(t *testing.T) {
	m, _ := readyMachine(t)
	m.ctx.State = StateUserDeleting
	m.ctx.UI.Dialog = DialogDeleteConfirm
	m.ctx.UI.DialogTarget = &User{UUID: "u-2", Username: "guest"}
	payload := ScenarioResultPayload{Kind: ErrorKindRequestFailed, Message: "Пользователь не найден"}
	m.handleEvent(Event{Type: EventSysDeleteFailure, Payload: payload})
	flush(t, m)

	if m.ctx.State != StateUsersReady {
		t.Errorf("state = %s, want UsersReady", m.ctx.State)
	}
	if m.ctx.UI.Dialog != DialogNone {
		t.Error("dialog must be closed after failure")
	}
	if m.ctx.UI.Notice != "Пользователь не найден" {
		t.Errorf("notice = %q", m.ctx.UI.Notice)
	}
}

func TestCreateFlow(t *testing.T) {
	m, rec := readyMachine(t)
	m.handleEvent(Event{Type: EventUIOpenCreateDialog})
	if m.ctx.UI.Dialog != DialogCreate {
		t.Fatalf("dialog = %q, want Create", m.ctx.UI.Dialog)
	}

	m.handleEvent(Event{Type: EventUISubmitCreate, Payload: CreateUserPayload{Username: "", Password: ""}})
	if m.ctx.UI.DialogError == "" {
		t.Error("empty fields must produce an inline dialog error")
	}
	if m.ctx.State != StateUsersReady {
		t.Errorf("state = %s, want UsersReady", m.ctx.State)
	}

	m.handleEvent(Event{Type: EventUISubmitCreate, Payload: CreateUserPayload{Username: "newbie", Password: "pass", Role: RoleUser}})
	flush(t, m)
	if m.ctx.State != StateUserCreating {
		t.Errorf("state = %s, want UserCreating", m.ctx.State)
	}
	if len(rec.createUsers) != 1 || rec.createUsers[0] != "newbie" {
		t.Errorf("create calls = %v", rec.createUsers)
	}

	payload := ScenarioResultPayload{Kind: ErrorKindRequestFailed, Message: "Имя уже занято"}
	m.handleEvent(Event{Type: EventSysCreateFailure, Payload: payload})
	if m.ctx.UI.Dialog != DialogCreate {
		t.Error("create dialog must stay open after failure")
	}
	if m.ctx.UI.DialogError != "Имя уже занято" {
		t.Errorf("dialog error = %q", m.ctx.UI.DialogError)
	}

	m.handleEvent(Event{Type: EventUISubmitCreate, Payload: CreateUserPayload{Username: "newbie", Password: "pass", Role: RoleUser}})
	m.handleEvent(Event{Type: EventSysCreateSuccess})
	flush(t, m)
	if m.ctx.UI.Dialog != DialogNone {
		t.Error("create dialog must close after success")
	}
	if m.ctx.State != StateUsersLoading {
		t.Errorf("state = %s, want UsersLoading after create", m.ctx.State)
	}
}

func TestLogoutConfirmClearsSession(t *testing.T) {
	m, rec := readyMachine(t)
	m.handleEvent(Event{Type: EventUIRequestLogout})
	if m.ctx.UI.Dialog != DialogLogoutConfirm {
		t.Fatalf("dialog = %q, want LogoutConfirm", m.ctx.UI.Dialog)
	}

	m.handleEvent(Event{Type: EventUIConfirmLogout})
	flush(t, m)
	if m.ctx.State != StateWaitingLogin {
		t.Errorf("state = %s, want WaitingLogin", m.ctx.State)
	}
	if m.ctx.Session != nil {
		t.Error("session must be dropped")
	}
	if rec.cleared != 1 {
		t.Errorf("session cleared %d times, want 1", rec.cleared)
	}
	if rec.showLogin != 1 {
		t.Errorf("login window shown %d times, want 1", rec.showLogin)
	}
}

func TestLogoutCancelKeepsSession(t *testing.T) {
	m, rec := readyMachine(t)
	m.handleEvent(Event{Type: EventUIRequestLogout})
	m.handleEvent(Event{Type: EventUICancelDialog})
	flush(t, m)

	if m.ctx.UI.Dialog != DialogNone {
		t.Error("dialog must be closed")
	}
	if m.ctx.Session == nil {
		t.Error("session must survive a cancelled logout")
	}
	if rec.cleared != 0 {
		t.Error("session must not be cleared")
	}
}

func TestAboutFlow(t *testing.T) {
	m, rec := readyMachine(t)
	m.handleEvent(Event{Type: EventUIOpenAbout})
	flush(t, m)
	if m.ctx.State != StateAboutView {
		t.Errorf("state = %s, want AboutView", m.ctx.State)
	}
	if rec.fetchMe != 1 {
		t.Errorf("me fetched %d times, want 1", rec.fetchMe)
	}
	if m.ctx.Users != nil {
		t.Error("users cache must be dropped on screen change")
	}

	m.handleEvent(Event{Type: EventSysMeLoaded, Payload: MeLoadedPayload{Role: RoleAdmin}})
	if m.ctx.UI.ProfileRole != RoleAdmin {
		t.Errorf("profile role = %q, want admin", m.ctx.UI.ProfileRole)
	}

	m.handleEvent(Event{Type: EventUIBackToUsers})
	flush(t, m)
	if m.ctx.State != StateUsersLoading {
		t.Errorf("state = %s, want UsersLoading", m.ctx.State)
	}
	if rec.fetchUsers != 1 {
		t.Errorf("users fetched %d times, want 1", rec.fetchUsers)
	}
}

func TestAboutDirectLogout(t *testing.T) {
	m, rec := readyMachine(t)
	m.ctx.State = StateAboutView
	m.handleEvent(Event{Type: EventUIClickLogoutDirect})
	flush(t, m)

	if m.ctx.State != StateWaitingLogin {
		t.Errorf("state = %s, want WaitingLogin", m.ctx.State)
	}
	if rec.cleared != 1 {
		t.Errorf("session cleared %d times, want 1", rec.cleared)
	}
}

func TestNoticeAutoDismiss(t *testing.T) {
	logger, err := logging.New(filepath.Join(t.TempDir(), "test.log"), logging.ParseLevel("debug"))
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	defer logger.Close()

	notices := make(chan string, 64)
	ctx := NewAppContext(&config.Config{APIBaseURL: "http://127.0.0.1:8000"})
	sess := adminSession()
	ctx.Session = &sess
	ctx.State = StateUsersReady
	ctx.Users = []User{{UUID: "u-1", Username: "root", Role: RoleAdmin}}
	m := NewMachine(ctx, logger, Callbacks{
		UpdateUI: func(c *AppContext) { notices <- c.UI.Notice },
	})
	m.noticeTTL = 30 * time.Millisecond
	m.Start()
	defer m.Stop()

	if err := m.Dispatch(Event{Type: EventUIRequestDelete, Payload: DeleteTargetPayload{UUID: "u-1", Username: "root"}}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	waitNotice := func(want bool) {
		t.Helper()
		deadline := time.After(2 * time.Second)
		for {
			select {
			case notice := <-notices:
				if (notice != "") == want {
					return
				}
			case <-deadline:
				t.Fatalf("notice state (present=%v) not reached in time", want)
			}
		}
	}
	waitNotice(true)
	waitNotice(false)
}

func TestNoticeManualDismiss(t *testing.T) {
	m, _ := readyMachine(t)
	m.noticeTTL = time.Hour
	m.showNotice("Нельзя удалить собственную учётную запись")
	if m.ctx.UI.Notice == "" {
		t.Fatal("notice must be visible")
	}
	m.handleEvent(Event{Type: EventUIDismissNotice})
	if m.ctx.UI.Notice != "" {
		t.Errorf("notice = %q, want empty", m.ctx.UI.Notice)
	}
	if m.noticeTimer != nil {
		t.Error("auto-dismiss timer must be cancelled")
	}
}

func TestStaleNoticeTimerIgnored(t *testing.T) {
	m, _ := readyMachine(t)
	m.noticeTTL = time.Hour
	m.showNotice("первое")
	staleSeq := m.noticeSeq
	m.showNotice("второе")

	m.handleEvent(Event{Type: EventSysNoticeExpired, Payload: NoticeExpiredPayload{Seq: staleSeq}})
	if m.ctx.UI.Notice != "второе" {
		t.Errorf("notice = %q, stale timer must not clear the newer notice", m.ctx.UI.Notice)
	}

	m.handleEvent(Event{Type: EventSysNoticeExpired, Payload: NoticeExpiredPayload{Seq: m.noticeSeq}})
	if m.ctx.UI.Notice != "" {
		t.Errorf("notice = %q, want empty after matching expiry", m.ctx.UI.Notice)
	}
}

func TestExitEventTriggersCleanup(t *testing.T) {
	m, _ := newTestMachine(t)
	cleaned := make(chan struct{}, 1)
	m.callbacks.CleanupAndExit = func(_ *AppContext) { cleaned <- struct{}{} }
	m.handleEvent(Event{Type: EventUIExit})

	if m.ctx.State != StateExiting {
		t.Errorf("state = %s, want Exiting", m.ctx.State)
	}
	select {
	case <-cleaned:
	default:
		t.Error("cleanup callback was not invoked")
	}
}
