package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// ErrStoreFailed обозначает любую проблему с чтением или записью файла сессии.
var ErrStoreFailed = errors.New("session: store operation failed")

// Data содержит сохраняемую пару ключей сессии.
// Оба ключа записываются и удаляются только вместе.
type Data struct {
	AuthToken   string `yaml:"auth_token"`
	CurrentUser string `yaml:"current_user"`
}

// Store сохраняет сессию в session.yaml рядом с приложением,
// чтобы вход переживал перезапуск.
type Store struct {
	path string
	mu   sync.Mutex
	data Data
}

// NewStore создаёт хранилище сессии, привязанное к указанному файлу.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Restore читает ранее сохранённую сессию, если файл существует.
// Отсутствие файла означает отсутствие сессии и не является ошибкой.
func (s *Store) Restore() (Data, bool, error) {
	if s == nil || s.path == "" {
		return Data{}, false, fmt.Errorf("%w: store path is empty", ErrStoreFailed)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Data{}, false, nil
		}
		return Data{}, false, fmt.Errorf("%w: read %s: %v", ErrStoreFailed, s.path, err)
	}
	var data Data
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return Data{}, false, fmt.Errorf("%w: parse %s: %v", ErrStoreFailed, s.path, err)
	}
	if strings.TrimSpace(data.AuthToken) == "" || strings.TrimSpace(data.CurrentUser) == "" {
		return Data{}, false, nil
	}
	s.data = data
	return data, true, nil
}

// Save записывает оба ключа сессии на диск. Файл доступен только владельцу.
func (s *Store) Save(data Data) error {
	if s == nil || s.path == "" {
		return fmt.Errorf("%w: store path is empty", ErrStoreFailed)
	}
	if strings.TrimSpace(data.AuthToken) == "" {
		return fmt.Errorf("%w: auth token is empty", ErrStoreFailed)
	}
	if strings.TrimSpace(data.CurrentUser) == "" {
		return fmt.Errorf("%w: current user is empty", ErrStoreFailed)
	}
	raw, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("%w: encode session: %v", ErrStoreFailed, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: create session directory %s: %v", ErrStoreFailed, dir, err)
		}
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrStoreFailed, s.path, err)
	}
	s.data = data
	return nil
}

// Clear удаляет файл сессии и сбрасывает состояние в памяти.
// Отсутствие файла не считается ошибкой.
func (s *Store) Clear() error {
	if s == nil || s.path == "" {
		return fmt.Errorf("%w: store path is empty", ErrStoreFailed)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = Data{}
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: remove %s: %v", ErrStoreFailed, s.path, err)
	}
	return nil
}

// Current возвращает сессию, находящуюся в памяти.
func (s *Store) Current() (Data, bool) {
	if s == nil {
		return Data{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data.AuthToken == "" {
		return Data{}, false
	}
	return s.data, true
}
