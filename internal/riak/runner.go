package riak

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Runner абстрагирует запуск shell-команды и захват результата.
// Политики retry/timeout лежат на вызывающей стороне через контекст.
type Runner interface {
	// Output возвращает захваченный stdout; ненулевой код выхода не ошибка.
	Output(ctx context.Context, command string) (string, error)
	// ExitCode возвращает код выхода команды.
	ExitCode(ctx context.Context, command string) (int, error)
}

// ShellRunner исполняет команды через shell, по умолчанию /bin/sh.
type ShellRunner struct {
	Shell string
}

func (r ShellRunner) shell() string {
	if r.Shell == "" {
		return "/bin/sh"
	}
	return r.Shell
}

// Output запускает команду и возвращает stdout без завершающих переводов строки.
func (r ShellRunner) Output(ctx context.Context, command string) (string, error) {
	out, err := exec.CommandContext(ctx, r.shell(), "-c", command).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return "", fmt.Errorf("run %q: %w", command, err)
		}
		// riak-admin печатает диагностику и при ненулевом коде выхода.
	}
	return strings.TrimRight(string(out), "\n"), nil
}

// ExitCode запускает команду и возвращает ее код выхода.
func (r ShellRunner) ExitCode(ctx context.Context, command string) (int, error) {
	err := exec.CommandContext(ctx, r.shell(), "-c", command).Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, fmt.Errorf("run %q: %w", command, err)
}
