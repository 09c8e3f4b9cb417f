package riak

import (
	"context"
	"fmt"
	"strings"
)

const (
	defaultBin      = "riak"
	defaultAdminBin = "riak-admin"
)

// OpResult описывает исход staged-операции кластера: успех либо
// первая содержательная строка ответа riak-admin дословно.
type OpResult struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// CommitResult описывает исход cluster commit. При NeedsVerify riak-admin
// требует проверить план; Plan тогда содержит свежий вывод cluster plan.
type CommitResult struct {
	Message     string   `json:"message,omitempty"`
	NeedsVerify bool     `json:"needs_verify,omitempty"`
	Plan        []string `json:"plan,omitempty"`
}

// MemberInfo описывает строку узла в таблице member-status.
type MemberInfo struct {
	Status  string `json:"Status"`
	Ring    string `json:"Ring"`
	Pending string `json:"Pending"`
}

// MemberStatus агрегирует membership-таблицу и сводную строку счетчиков.
type MemberStatus struct {
	Membership map[string]MemberInfo `json:"membership"`
	Summary    map[string]string     `json:"summary"`
}

// Admin — адаптер команд riak/riak-admin поверх внешнего Runner.
// Состояния между вызовами нет: каждая операция строит команду,
// запускает ее и интерпретирует вывод.
type Admin struct {
	run      Runner
	bin      string
	adminBin string
}

// NewAdmin создает адаптер; пустые имена бинарей заменяются умолчаниями.
func NewAdmin(run Runner, bin, adminBin string) *Admin {
	if bin == "" {
		bin = defaultBin
	}
	if adminBin == "" {
		adminBin = defaultAdminBin
	}
	return &Admin{run: run, bin: bin, adminBin: adminBin}
}

// validNodeName проверяет форму имени узла user@host.
func validNodeName(node string) bool {
	return len(strings.Split(node, "@")) == 2
}

func (a *Admin) normalized(ctx context.Context, command string) ([]string, error) {
	out, err := a.run.Output(ctx, command)
	if err != nil {
		return nil, err
	}
	return normalize(out), nil
}

func (a *Admin) firstNormalized(ctx context.Context, command string) (string, error) {
	msgs, err := a.normalized(ctx, command)
	if err != nil {
		return "", err
	}
	return firstOf(msgs)
}

func (a *Admin) rawLines(ctx context.Context, command string) ([]string, error) {
	out, err := a.run.Output(ctx, command)
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

func (a *Admin) exitOK(ctx context.Context, command string) (bool, error) {
	rc, err := a.run.ExitCode(ctx, command)
	if err != nil {
		return false, err
	}
	return rc == 0, nil
}

// Version возвращает версию узла Riak.
func (a *Admin) Version(ctx context.Context) (string, error) {
	return a.firstNormalized(ctx, a.bin+" version")
}

// Ping возвращает "pong" для работающего узла, иначе пустую строку.
func (a *Admin) Ping(ctx context.Context) (string, error) {
	up, err := a.IsUp(ctx)
	if err != nil {
		return "", err
	}
	if up {
		return "pong", nil
	}
	return "", nil
}

// IsUp проверяет доступность узла по коду выхода riak ping.
func (a *Admin) IsUp(ctx context.Context) (bool, error) {
	return a.exitOK(ctx, a.bin+" ping")
}

// Start запускает узел; true, если узел остался в работающем состоянии.
func (a *Admin) Start(ctx context.Context) (bool, error) {
	return a.exitOK(ctx, a.bin+" start")
}

// Stop останавливает узел; true, если узел остановлен.
func (a *Admin) Stop(ctx context.Context) (bool, error) {
	return a.exitOK(ctx, a.bin+" stop")
}

// Restart перезапускает узел без выхода из Erlang VM.
func (a *Admin) Restart(ctx context.Context) (bool, error) {
	return a.exitOK(ctx, a.bin+" restart")
}

func (a *Admin) stagedChange(ctx context.Context, command string) (OpResult, error) {
	line, err := a.firstNormalized(ctx, command)
	if err != nil {
		return OpResult{}, err
	}
	if strings.HasPrefix(line, "Success") {
		return OpResult{OK: true}, nil
	}
	return OpResult{Message: line}, nil
}

// ClusterJoin ставит присоединение к кластеру node в staged-изменения.
// Некорректное имя узла отклоняется без запуска команды.
func (a *Admin) ClusterJoin(ctx context.Context, node string) (OpResult, error) {
	if !validNodeName(node) {
		return OpResult{}, nil
	}
	return a.stagedChange(ctx, fmt.Sprintf("%s cluster join %s", a.adminBin, node))
}

// ClusterLeave ставит выход узла из кластера; пустой node означает текущий
// узел. force переключает на force-remove без передачи партиций.
func (a *Admin) ClusterLeave(ctx context.Context, node string, force bool) (OpResult, error) {
	if node != "" && !validNodeName(node) {
		return OpResult{}, nil
	}
	command := a.adminBin + " cluster leave"
	if force {
		command = a.adminBin + " cluster force-remove"
	}
	if node != "" {
		command = fmt.Sprintf("%s %s", command, node)
	}
	return a.stagedChange(ctx, command)
}

// ClusterReplace ставит передачу партиций node1 узлу node2. Отклоняет
// запрос, только когда некорректны ОБА имени: одиночное плохое имя
// уходит в riak-admin как есть (совместимость с историческим поведением).
// force принимается для симметрии сигнатуры и на команду не влияет.
func (a *Admin) ClusterReplace(ctx context.Context, node1, node2 string, force bool) (OpResult, error) {
	if !validNodeName(node1) && !validNodeName(node2) {
		return OpResult{}, nil
	}
	return a.stagedChange(ctx, fmt.Sprintf("%s cluster replace %s %s", a.adminBin, node1, node2))
}

// ClusterPlan возвращает текущие staged-изменения; nil, когда их нет.
func (a *Admin) ClusterPlan(ctx context.Context) ([]string, error) {
	msgs, err := a.normalized(ctx, a.adminBin+" cluster plan")
	if err != nil {
		return nil, err
	}
	first, err := firstOf(msgs)
	if err != nil {
		return nil, err
	}
	if first == "There are no staged changes" {
		return nil, nil
	}
	return msgs, nil
}

// ClusterClear сбрасывает staged-изменения.
func (a *Admin) ClusterClear(ctx context.Context) (OpResult, error) {
	line, err := a.firstNormalized(ctx, a.adminBin+" cluster clear")
	if err != nil {
		return OpResult{}, err
	}
	if line == "Cleared staged cluster changes" {
		return OpResult{OK: true}, nil
	}
	return OpResult{Message: line}, nil
}

// ClusterCommit применяет staged-изменения. Если riak-admin требует сначала
// проверить план, возвращается NeedsVerify вместе со свежим планом.
func (a *Admin) ClusterCommit(ctx context.Context) (CommitResult, error) {
	line, err := a.firstNormalized(ctx, a.adminBin+" cluster commit")
	if err != nil {
		return CommitResult{}, err
	}
	if strings.HasPrefix(line, "You must verify the plan") {
		plan, err := a.ClusterPlan(ctx)
		if err != nil {
			return CommitResult{}, err
		}
		return CommitResult{NeedsVerify: true, Plan: plan}, nil
	}
	return CommitResult{Message: line}, nil
}

// RingReady сообщает, согласны ли все узлы кластера с состоянием кольца.
func (a *Admin) RingReady(ctx context.Context) (bool, error) {
	lines, err := a.rawLines(ctx, a.adminBin+" ringready")
	if err != nil {
		return false, err
	}
	return strings.HasPrefix(lines[0], "TRUE"), nil
}

// RingStatus возвращает содержательные строки ring-status: первая строка
// вывода, разделители "=" и строки с отступом отбрасываются.
func (a *Admin) RingStatus(ctx context.Context) ([]string, error) {
	lines, err := a.rawLines(ctx, a.adminBin+" ring-status")
	if err != nil {
		return nil, err
	}
	ret := []string{}
	for _, line := range lines[1:] {
		if len(line) == 0 || line[:1] == "=" || line[:1] == " " {
			continue
		}
		ret = append(ret, line)
	}
	return ret, nil
}

// MemberStatus разбирает таблицу member-status в membership и summary.
func (a *Admin) MemberStatus(ctx context.Context) (MemberStatus, error) {
	ret := MemberStatus{
		Membership: map[string]MemberInfo{},
		Summary: map[string]string{
			"Valid":   "0",
			"Leaving": "0",
			"Exiting": "0",
			"Joining": "0",
			"Down":    "0",
		},
	}
	lines, err := a.rawLines(ctx, a.adminBin+" member-status")
	if err != nil {
		return MemberStatus{}, err
	}
	for _, line := range lines {
		if strings.HasPrefix(line, "=") || strings.HasPrefix(line, "-") || strings.HasPrefix(line, "Status") {
			continue
		}
		if strings.Contains(line, "/") {
			// Сводная строка вида "Valid:1 / Leaving:0 / ...".
			for _, item := range strings.Split(line, "/") {
				kv := strings.SplitN(item, ":", 2)
				if len(kv) != 2 {
					continue
				}
				ret.Summary[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
			}
		}
		vals := strings.Fields(line)
		if len(vals) == 4 {
			ret.Membership[vals[3]] = MemberInfo{
				Status:  vals[0],
				Ring:    vals[1],
				Pending: vals[2],
			}
		}
	}
	return ret, nil
}

// Transfers возвращает вывод riak-admin transfers построчно, без обработки.
func (a *Admin) Transfers(ctx context.Context) ([]string, error) {
	return a.rawLines(ctx, a.adminBin+" transfers")
}

// Diag возвращает вывод riak-admin diag построчно, без обработки.
func (a *Admin) Diag(ctx context.Context) ([]string, error) {
	return a.rawLines(ctx, a.adminBin+" diag")
}

// Status возвращает статистику узла как упорядоченный список пар
// ключ-значение; учитываются только строки с разделителем " : ".
func (a *Admin) Status(ctx context.Context) ([]map[string]string, error) {
	lines, err := a.rawLines(ctx, a.adminBin+" status")
	if err != nil {
		return nil, err
	}
	ret := []map[string]string{}
	for _, line := range lines {
		parts := strings.Split(line, " : ")
		if len(parts) == 2 {
			ret = append(ret, map[string]string{parts[0]: parts[1]})
		}
	}
	return ret, nil
}
