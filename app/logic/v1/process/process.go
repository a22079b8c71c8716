package process

import (
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/quka-ai/airag/app/core"
	"github.com/quka-ai/airag/pkg/register"
)

type Process struct {
	cron *cron.Cron
	core *core.Core
}

type ProcessKey struct{}

func NewProcess(core *core.Core) *Process {
	p := &Process{
		cron: cron.New(),
		core: core,
	}

	n := register.Apply(ProcessKey{}, p)
	slog.Debug("process jobs registered", slog.Int("count", n))

	return p
}

func (p *Process) Cron() *cron.Cron {
	return p.cron
}

func (p *Process) Core() *core.Core {
	return p.core
}

func (p *Process) Start() {
	p.cron.Start()
}

func (p *Process) Stop() {
	// 停止 cron 调度器
	if p.cron != nil {
		ctx := p.cron.Stop()
		<-ctx.Done()
	}
}
