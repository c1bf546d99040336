package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"useradmin/client/internal/apiclient"
	"useradmin/client/internal/session"
	"useradmin/client/internal/state"
)

const requestTimeout = 15 * time.Second

func (a *Application) startLogin(_ *state.AppContext, username, password string) {
	if a.isStopping() {
		return
	}
	ctx, cancel := a.requestContext(requestTimeout)
	defer cancel()
	result, err := a.api.Login(ctx, username, password)
	if err != nil {
		a.logger.Errorf("login request failed: %v", err)
		payload := buildLoginFailurePayload(err)
		a.dispatch(state.Event{Type: state.EventSysLoginFailure, Payload: payload})
		return
	}
	a.logger.Infof("login succeeded for user %q role %q", username, result.Role)
	// Имя берётся из формы входа, uuid и срок действия — из токена.
	sess := state.Session{Token: result.Token, Username: username}
	claims := session.ParseClaims(result.Token)
	sess.UUID = claims.UUID
	sess.ExpiresAt = claims.ExpiresAt
	payload := state.LoginSuccessPayload{Session: sess, Role: result.Role}
	a.dispatch(state.Event{Type: state.EventSysLoginSuccess, Payload: payload})
}

func (a *Application) startFetchUsers(_ *state.AppContext) {
	if a.isStopping() {
		return
	}
	token := a.sessionToken()
	if token == "" {
		a.logger.Errorf("users fetch requested without session")
		payload := buildRequestFailurePayload(errors.New("session token is empty"), "Не удалось загрузить список пользователей")
		a.dispatch(state.Event{Type: state.EventSysUsersFailure, Payload: payload})
		return
	}
	ctx, cancel := a.requestContext(requestTimeout)
	defer cancel()
	users, err := a.api.ListUsers(ctx, token)
	if err != nil {
		a.logger.Errorf("users fetch failed: %v", err)
		payload := buildRequestFailurePayload(err, "Не удалось загрузить список пользователей")
		a.dispatch(state.Event{Type: state.EventSysUsersFailure, Payload: payload})
		return
	}
	a.logger.Infof("users fetched: %d", len(users))
	a.dispatch(state.Event{Type: state.EventSysUsersLoaded, Payload: state.UsersLoadedPayload{Users: users}})
}

func (a *Application) startCreateUser(_ *state.AppContext, username, password string, role state.Role) {
	if a.isStopping() {
		return
	}
	ctx, cancel := a.requestContext(requestTimeout)
	defer cancel()
	if err := a.api.CreateUser(ctx, a.sessionToken(), username, password, role); err != nil {
		a.logger.Errorf("create user %q failed: %v", username, err)
		payload := buildRequestFailurePayload(err, "Не удалось создать пользователя")
		a.dispatch(state.Event{Type: state.EventSysCreateFailure, Payload: payload})
		return
	}
	a.logger.Infof("user %q created with role %q", username, role)
	a.dispatch(state.Event{Type: state.EventSysCreateSuccess})
}

func (a *Application) startDeleteUser(_ *state.AppContext, uuid string) {
	if a.isStopping() {
		return
	}
	ctx, cancel := a.requestContext(requestTimeout)
	defer cancel()
	if err := a.api.DeleteUser(ctx, a.sessionToken(), uuid); err != nil {
		a.logger.Errorf("delete user %s failed: %v", uuid, err)
		payload := buildRequestFailurePayload(err, "Не удалось удалить пользователя")
		a.dispatch(state.Event{Type: state.EventSysDeleteFailure, Payload: payload})
		return
	}
	a.logger.Infof("user %s deleted", uuid)
	a.dispatch(state.Event{Type: state.EventSysDeleteSuccess})
}

func (a *Application) startFetchMe(_ *state.AppContext) {
	if a.isStopping() {
		return
	}
	ctx, cancel := a.requestContext(requestTimeout)
	defer cancel()
	me, err := a.api.Me(ctx, a.sessionToken())
	if err != nil {
		// Экран профиля показывает прочерк вместо роли, ошибка только в логе.
		a.logger.Errorf("me request failed: %v", err)
		a.dispatch(state.Event{Type: state.EventSysMeFailure})
		return
	}
	a.dispatch(state.Event{Type: state.EventSysMeLoaded, Payload: state.MeLoadedPayload{Role: me.Role}})
}

// buildLoginFailurePayload строит сообщение об ошибке входа. Текст из тела
// ответа сервера имеет приоритет над типовыми сообщениями.
func buildLoginFailurePayload(err error) state.ScenarioResultPayload {
	payload := state.ScenarioResultPayload{
		Kind:    state.ErrorKindAuthFailed,
		Message: "Не удалось выполнить вход",
	}
	if err == nil {
		return payload
	}
	payload.TechnicalMessage = err.Error()
	if errors.Is(err, context.DeadlineExceeded) {
		payload.Kind = state.ErrorKindNetworkUnavailable
		payload.Message = "Истекло время ожидания ответа сервера"
		return payload
	}
	var cErr *apiclient.Error
	if errors.As(err, &cErr) {
		if cErr.Kind != "" {
			payload.Kind = cErr.Kind
		}
		if cErr.Message != "" {
			payload.Message = cErr.Message
			return payload
		}
		switch cErr.Kind {
		case state.ErrorKindAuthFailed:
			payload.Message = "Неверный логин или пароль"
		case state.ErrorKindNetworkUnavailable:
			payload.Message = "Не удалось подключиться к серверу"
		default:
			if cErr.Status > 0 {
				payload.Message = fmt.Sprintf("Ошибка входа (код %d)", cErr.Status)
			}
		}
		return payload
	}
	payload.Kind = state.ErrorKindNetworkUnavailable
	payload.Message = "Не удалось подключиться к серверу"
	return payload
}

// buildRequestFailurePayload строит сообщение об ошибке запроса к API
// с запасным текстом для случаев без ответа сервера.
func buildRequestFailurePayload(err error, fallback string) state.ScenarioResultPayload {
	payload := state.ScenarioResultPayload{
		Kind:    state.ErrorKindRequestFailed,
		Message: fallback,
	}
	if err == nil {
		return payload
	}
	payload.TechnicalMessage = err.Error()
	if errors.Is(err, context.DeadlineExceeded) {
		payload.Kind = state.ErrorKindNetworkUnavailable
		payload.Message = "Истекло время ожидания ответа сервера"
		return payload
	}
	var cErr *apiclient.Error
	if errors.As(err, &cErr) {
		if cErr.Kind != "" {
			payload.Kind = cErr.Kind
		}
		if cErr.Message != "" {
			payload.Message = cErr.Message
			return payload
		}
		if cErr.Status > 0 {
			payload.Message = fmt.Sprintf("%s (код %d)", fallback, cErr.Status)
		}
	}
	return payload
}

func (a *Application) requestContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = requestTimeout
	}
	parent := context.Background()
	if a != nil && a.runCtx != nil {
		parent = a.runCtx
	}
	return context.WithTimeout(parent, timeout)
}

func (a *Application) isStopping() bool {
	if a == nil || a.runCtx == nil {
		return false
	}
	select {
	case <-a.runCtx.Done():
		return true
	default:
		return false
	}
}
