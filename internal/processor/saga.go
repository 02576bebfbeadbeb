package processor

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// Saga 记录事务外副作用(写入的简历文件)的补偿动作。
// 数据库事务回滚后调用 Compensate 按逆序执行
type Saga struct {
	name  string
	steps []compensation
	log   zerolog.Logger
}

type compensation struct {
	name string
	fn   func(ctx context.Context) error
}

// NewSaga 创建补偿记录
func NewSaga(name string, log zerolog.Logger) *Saga {
	return &Saga{name: name, log: log}
}

// Add 登记一个补偿动作
func (s *Saga) Add(name string, fn func(ctx context.Context) error) {
	s.steps = append(s.steps, compensation{name: name, fn: fn})
}

// Len 已登记的补偿动作数
func (s *Saga) Len() int {
	return len(s.steps)
}

// Compensate 逆序执行全部补偿，单个失败不影响后续。
// 调用方的 ctx 可能已取消，清理使用脱离取消的 ctx
func (s *Saga) Compensate(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	var errs []error
	for i := len(s.steps) - 1; i >= 0; i-- {
		step := s.steps[i]
		if err := step.fn(ctx); err != nil {
			s.log.Error().Err(err).Str("saga", s.name).Str("step", step.name).Msg("补偿动作执行失败")
			errs = append(errs, fmt.Errorf("%s: %w", step.name, err))
			continue
		}
		s.log.Debug().Str("saga", s.name).Str("step", step.name).Msg("补偿动作已执行")
	}
	s.steps = nil
	return errors.Join(errs...)
}
