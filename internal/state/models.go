package state

import (
	"time"

	"useradmin/client/internal/config"
)

// ErrorKind описывает тип ошибки, отображаемой пользователю и используемой для логики состояния.
type ErrorKind string

const (
	ErrorKindNetworkUnavailable ErrorKind = "NetworkUnavailable"
	ErrorKindAuthFailed         ErrorKind = "AuthFailed"
	ErrorKindRoleDenied         ErrorKind = "RoleDenied"
	ErrorKindRequestFailed      ErrorKind = "RequestFailed"
	ErrorKindConfigFailed       ErrorKind = "ConfigFailed"
	ErrorKindUnknown            ErrorKind = "Unknown"
)

// Role задаёт роль учётной записи на сервере.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid сообщает, известна ли роль клиенту.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User описывает учётную запись, полученную от сервера.
// Список пользователей — кэш только для чтения, живущий до смены экрана.
type User struct {
	UUID     string `json:"uuid"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// Session описывает установленную авторизацию: токен и имя пользователя,
// введённое при входе. UUID и срок действия извлекаются из токена и могут
// отсутствовать.
type Session struct {
	Token     string
	Username  string
	UUID      string
	ExpiresAt *time.Time
}

// IsOwn сообщает, относится ли строка списка к текущей сессии.
// Совпадение проверяется и по имени, и по UUID из токена.
func (s *Session) IsOwn(user User) bool {
	if s == nil {
		return false
	}
	if s.Username != "" && s.Username == user.Username {
		return true
	}
	if s.UUID != "" && s.UUID == user.UUID {
		return true
	}
	return false
}

// View задаёт активный экран главного окна.
type View string

const (
	ViewUsers View = "Users"
	ViewAbout View = "About"
)

// DialogKind описывает открытый модальный диалог. Одновременно открыт не более одного.
type DialogKind string

const (
	DialogNone          DialogKind = ""
	DialogCreate        DialogKind = "Create"
	DialogDeleteConfirm DialogKind = "DeleteConfirm"
	DialogLogoutConfirm DialogKind = "LogoutConfirm"
)

// ErrorInfo описывает ошибку для UI и логов.
type ErrorInfo struct {
	Kind             ErrorKind
	UserMessage      string
	TechnicalMessage string
	OccurredAt       time.Time
}

// UIState хранит минимально необходимую информацию для управления UI.
type UIState struct {
	IsLoginVisible  bool
	IsMainVisible   bool
	ActiveView      View
	CanLogin        bool
	LoginStatusText string
	LoginInput      string
	PasswordInput   string
	UsersLoading    bool
	UsersError      string
	Dialog          DialogKind
	DialogTarget    *User
	DialogError     string
	DialogBusy      bool
	Notice          string
	ProfileRole     Role
}

// AppContext содержит всё состояние приложения.
type AppContext struct {
	Config    *config.Config
	Session   *Session
	Users     []User
	LastError *ErrorInfo
	UI        UIState
	State     State
}

// NewAppContext создаёт AppContext в начальном состоянии.
func NewAppContext(cfg *config.Config) *AppContext {
	return &AppContext{
		Config: cfg,
		State:  StateAppStarting,
	}
}

// FindUser возвращает пользователя из кэша списка по UUID.
func (ctx *AppContext) FindUser(uuid string) *User {
	for i := range ctx.Users {
		if ctx.Users[i].UUID == uuid {
			return &ctx.Users[i]
		}
	}
	return nil
}
