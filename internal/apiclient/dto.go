package apiclient

import (
	"fmt"
	"strings"

	"useradmin/client/internal/state"
)

// LoginRequest описывает тело запроса POST /api/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse соответствует успешному ответу /api/login.
// Сервер дублирует имя пользователя, но клиент использует введённое.
type LoginResponse struct {
	Token    string `json:"token"`
	Role     string `json:"role"`
	Username string `json:"username"`
}

// LoginResult — проверенный результат входа.
type LoginResult struct {
	Token string
	Role  state.Role
}

// MessageResponse соответствует телу ошибки {"message": ...}.
type MessageResponse struct {
	Message string `json:"message"`
}

// UserDTO соответствует элементу ответа GET /api/users.
type UserDTO struct {
	UUID     string `json:"uuid"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// CreateUserRequest описывает тело запроса POST /api/users.
type CreateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// MeResponse соответствует ответу GET /api/users/me.
type MeResponse struct {
	UUID     string `json:"uuid"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// MeResult — проверенные сведения о текущей учётной записи.
type MeResult struct {
	UUID     string
	Username string
	Role     state.Role
}

// Validate преобразует ответ входа в LoginResult, выполняя проверки.
func (dto LoginResponse) Validate() (LoginResult, error) {
	if strings.TrimSpace(dto.Token) == "" {
		return LoginResult{}, fmt.Errorf("login response: token is empty")
	}
	role := state.Role(strings.TrimSpace(dto.Role))
	if role == "" {
		return LoginResult{}, fmt.Errorf("login response: role is empty")
	}
	return LoginResult{Token: dto.Token, Role: role}, nil
}

// Validate преобразует DTO в бизнес-модель User, выполняя проверки.
func (dto UserDTO) Validate() (state.User, error) {
	if dto.UUID == "" {
		return state.User{}, fmt.Errorf("user uuid is empty")
	}
	if dto.Username == "" {
		return state.User{}, fmt.Errorf("user %s: username is empty", dto.UUID)
	}
	role := state.Role(dto.Role)
	if !role.Valid() {
		return state.User{}, fmt.Errorf("user %s: unknown role %q", dto.UUID, dto.Role)
	}
	return state.User{
		UUID:     dto.UUID,
		Username: dto.Username,
		Role:     role,
	}, nil
}

// Validate преобразует MeResponse в MeResult.
// Роль здесь не обязана быть известной: экран профиля показывает её как есть.
func (dto MeResponse) Validate() (MeResult, error) {
	if strings.TrimSpace(dto.Role) == "" {
		return MeResult{}, fmt.Errorf("me response: role is empty")
	}
	return MeResult{
		UUID:     dto.UUID,
		Username: dto.Username,
		Role:     state.Role(strings.TrimSpace(dto.Role)),
	}, nil
}
