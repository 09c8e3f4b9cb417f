package core

import "fmt"

// Subject описывает источник команды (transport) и идентификатор вызывающего.
type Subject struct {
	Source string
	ID     string
}

// Action описывает целевую пару модуль/команда.
type Action struct {
	Module  string
	Command string
}

// Authorizer решает, допущен ли subject к действию.
type Authorizer interface {
	Authorize(subject Subject, action Action) error
}

// AllowlistAuthorizer реализует deny-by-default допуск по source/id.
type AllowlistAuthorizer struct {
	allowed map[string]map[string]struct{}
}

// NewAllowlistAuthorizer строит authorizer из map[source][]id.
func NewAllowlistAuthorizer(src map[string][]string) *AllowlistAuthorizer {
	allowed := make(map[string]map[string]struct{}, len(src))
	for source, ids := range src {
		set := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			if id == "" {
				continue
			}
			set[id] = struct{}{}
		}
		allowed[source] = set
	}
	return &AllowlistAuthorizer{allowed: allowed}
}

// Authorize возвращает ошибку, если subject отсутствует в allowlist.
func (a *AllowlistAuthorizer) Authorize(subject Subject, action Action) error {
	if subject.Source == "" || subject.ID == "" {
		return fmt.Errorf("empty subject: %w", errInvalidArguments)
	}
	ids, ok := a.allowed[subject.Source]
	if !ok {
		return fmt.Errorf("source %s is not allowed", subject.Source)
	}
	if _, ok := ids[subject.ID]; !ok {
		return fmt.Errorf("subject %s/%s is not allowed", subject.Source, subject.ID)
	}
	_ = action
	return nil
}
