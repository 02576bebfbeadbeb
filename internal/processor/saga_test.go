package processor

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestSagaCompensatesInReverseOrder(t *testing.T) {
	var order []string
	s := NewSaga("test", zerolog.Nop())
	s.Add("first", func(context.Context) error { order = append(order, "first"); return nil })
	s.Add("second", func(context.Context) error { order = append(order, "second"); return errors.New("disk gone") })
	s.Add("third", func(context.Context) error { order = append(order, "third"); return nil })
	assert.Equal(t, 3, s.Len())

	err := s.Compensate(context.Background())
	assert.Equal(t, []string{"third", "second", "first"}, order)
	assert.ErrorContains(t, err, "second: disk gone")
	assert.Equal(t, 0, s.Len())
}

func TestSagaRunsAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	s := NewSaga("test", zerolog.Nop())
	s.Add("cleanup", func(ctx context.Context) error {
		ran = true
		return ctx.Err()
	})
	assert.NoError(t, s.Compensate(ctx))
	assert.True(t, ran)
}

func TestSagaEmpty(t *testing.T) {
	assert.NoError(t, NewSaga("noop", zerolog.Nop()).Compensate(context.Background()))
}
