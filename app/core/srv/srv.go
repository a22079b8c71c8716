package srv

type Srv struct {
	rbac  *RBACSrv
	ai    *AI
	tower *Tower
}

type ApplyFunc func(s *Srv)

func SetupSrvs(opts ...ApplyFunc) *Srv {
	a := &Srv{
		rbac: SetupRBACSrv(), // 角色鉴权
	}

	for _, opt := range opts {
		opt(a)
	}
	return a
}

func ApplyAI(a *AI) ApplyFunc {
	return func(s *Srv) {
		s.ai = a
	}
}

func (s *Srv) RBAC() *RBACSrv {
	return s.rbac
}

func (s *Srv) AI() *AI {
	return s.ai
}

func (s *Srv) Tower() *Tower {
	return s.tower
}

// GetAIStatus 获取AI系统状态
func (s *Srv) GetAIStatus() map[string]interface{} {
	return s.ai.Status()
}
