package core

import (
	"context"
	"errors"
	"fmt"
)

var (
	errModuleExists     = errors.New("module already registered")
	errUnknownModule    = errors.New("unknown module")
	errInvalidArguments = errors.New("invalid arguments")
)

// Response описывает унифицированный результат команды модуля.
type Response struct {
	Status    string      `json:"status"`
	Data      interface{} `json:"data,omitempty"`
	ErrorCode string      `json:"error_code,omitempty"`
}

// OK собирает успешный ответ с данными.
func OK(data interface{}) Response {
	return Response{Status: "ok", Data: data}
}

// Fail собирает ответ об ошибке с машинным кодом.
func Fail(code string, data interface{}) Response {
	return Response{Status: "error", Data: data, ErrorCode: code}
}

// CommandProvider определяет контракт модуля команд.
type CommandProvider interface {
	Name() string
	Init(ctx context.Context) error
	Execute(ctx context.Context, cmd string, args []string) (Response, error)
}

// Registry хранит зарегистрированные модули и маршрутизирует команды.
type Registry struct {
	modules map[string]CommandProvider
}

// NewRegistry создает пустой реестр.
func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]CommandProvider)}
}

// Register добавляет модуль; имя должно быть уникальным и непустым.
func (r *Registry) Register(ctx context.Context, mod CommandProvider) error {
	if mod == nil {
		return fmt.Errorf("module is nil: %w", errInvalidArguments)
	}
	name := mod.Name()
	if name == "" {
		return fmt.Errorf("module name is empty: %w", errInvalidArguments)
	}
	if _, exists := r.modules[name]; exists {
		return fmt.Errorf("%s: %w", name, errModuleExists)
	}
	if err := mod.Init(ctx); err != nil {
		return fmt.Errorf("init %s: %w", name, err)
	}
	r.modules[name] = mod
	return nil
}

// Execute вызывает команду модуля по имени.
func (r *Registry) Execute(ctx context.Context, module, cmd string, args []string) (Response, error) {
	mod, ok := r.modules[module]
	if !ok {
		return Fail("module_not_found", nil), fmt.Errorf("%s: %w", module, errUnknownModule)
	}
	return mod.Execute(ctx, cmd, args)
}

// Modules возвращает имена зарегистрированных модулей.
func (r *Registry) Modules() []string {
	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	return names
}
