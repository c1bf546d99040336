package app

import (
	"context"
	"errors"
	"testing"

	"useradmin/client/internal/apiclient"
	"useradmin/client/internal/state"
)

func TestBuildLoginFailurePayloadPrefersServerMessage(t *testing.T) {
	err := &apiclient.Error{
		Op:      "Login",
		Kind:    state.ErrorKindAuthFailed,
		Status:  401,
		Message: "Bad username or password",
		Err:     errors.New("unexpected status 401"),
	}
	payload := buildLoginFailurePayload(err)
	if payload.Kind != state.ErrorKindAuthFailed {
		t.Errorf("kind = %q, want AuthFailed", payload.Kind)
	}
	if payload.Message != "Bad username or password" {
		t.Errorf("message = %q, server message must win", payload.Message)
	}
}

func TestBuildLoginFailurePayloadWithoutServerMessage(t *testing.T) {
	err := &apiclient.Error{
		Op:     "Login",
		Kind:   state.ErrorKindAuthFailed,
		Status: 401,
		Err:    errors.New("unexpected status 401"),
	}
	payload := buildLoginFailurePayload(err)
	if payload.Message != "Неверный логин или пароль" {
		t.Errorf("message = %q", payload.Message)
	}
}

func TestBuildLoginFailurePayloadTimeout(t *testing.T) {
	payload := buildLoginFailurePayload(context.DeadlineExceeded)
	if payload.Kind != state.ErrorKindNetworkUnavailable {
		t.Errorf("kind = %q, want NetworkUnavailable", payload.Kind)
	}
	if payload.Message != "Истекло время ожидания ответа сервера" {
		t.Errorf("message = %q", payload.Message)
	}
}

func TestBuildLoginFailurePayloadPlainError(t *testing.T) {
	payload := buildLoginFailurePayload(errors.New("dial tcp: connection refused"))
	if payload.Kind != state.ErrorKindNetworkUnavailable {
		t.Errorf("kind = %q, want NetworkUnavailable", payload.Kind)
	}
	if payload.TechnicalMessage == "" {
		t.Error("technical message must keep the raw error")
	}
}

func TestBuildRequestFailurePayload(t *testing.T) {
	fallback := "Не удалось удалить пользователя"

	payload := buildRequestFailurePayload(nil, fallback)
	if payload.Message != fallback {
		t.Errorf("message = %q, want fallback", payload.Message)
	}

	err := &apiclient.Error{
		Op:      "DeleteUser",
		Kind:    state.ErrorKindRequestFailed,
		Status:  404,
		Message: "User not found",
		Err:     errors.New("unexpected status 404"),
	}
	payload = buildRequestFailurePayload(err, fallback)
	if payload.Message != "User not found" {
		t.Errorf("message = %q, server message must win", payload.Message)
	}

	noMessage := &apiclient.Error{
		Op:     "DeleteUser",
		Kind:   state.ErrorKindRequestFailed,
		Status: 500,
		Err:    errors.New("unexpected status 500"),
	}
	payload = buildRequestFailurePayload(noMessage, fallback)
	if payload.Message != fallback+" (код 500)" {
		t.Errorf("message = %q", payload.Message)
	}

	payload = buildRequestFailurePayload(context.DeadlineExceeded, fallback)
	if payload.Kind != state.ErrorKindNetworkUnavailable {
		t.Errorf("kind = %q, want NetworkUnavailable", payload.Kind)
	}
}
