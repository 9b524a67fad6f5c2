package framework

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type runFunc func(context.Context) error

func (f runFunc) Run(ctx context.Context) error { return f(ctx) }

type closeRecorder struct{ closed int }

func (c *closeRecorder) Close() error {
	c.closed++
	return nil
}

func TestRunnerAggregatesErrors(t *testing.T) {
	errA, errB := errors.New("a"), errors.New("b")
	r := NewRunner().Go(
		NamedRun("a", runFunc(func(context.Context) error { return errA })),
		runFunc(func(context.Context) error { return context.Canceled }),
		NamedRun("b", runFunc(func(context.Context) error { return errB })),
		runFunc(func(context.Context) error { return nil }),
	)
	err := r.Wait()
	require.Error(t, err)
	require.True(t, errors.Is(err, errA))
	require.True(t, errors.Is(err, errB))
	require.Len(t, err.(*AggregatedError).Errors, 2)
	require.Contains(t, err.Error(), "a: a")
	require.Contains(t, err.Error(), "b: b")
}

func TestRunnerUnnamedIndex(t *testing.T) {
	errX := errors.New("x")
	r := NewRunner().Go(
		runFunc(func(context.Context) error { return nil }),
		runFunc(func(context.Context) error { return errX }),
	)
	err := r.Wait()
	require.ErrorIs(t, err, errX)
	require.Equal(t, "1: x", err.Error())
}

func TestRunnerNoError(t *testing.T) {
	r := NewRunner().Go(runFunc(func(context.Context) error { return nil }))
	require.NoError(t, r.Wait())
}

func TestAggregatedErrorMessage(t *testing.T) {
	var errs AggregatedError
	require.NoError(t, errs.Add(nil).Aggregate())
	errs.Add(errors.New("one"))
	require.Equal(t, "one", errs.Error())
	errs.Add(errors.New("two"))
	require.Equal(t, "2 errors:\n  one\n  two", errs.Error())
}

func TestAddExcept(t *testing.T) {
	var errs AggregatedError
	errs.AddExcept(context.Canceled, nil, context.Canceled, fmt.Errorf("rx: %w", context.Canceled))
	require.NoError(t, errs.Aggregate())
	errs.AddExcept(context.Canceled, errors.New("tx"))
	require.EqualError(t, errs.Aggregate(), "tx")
}

func TestRunWithContextCloser(t *testing.T) {
	var c closeRecorder
	err := RunWithContextCloser(context.Background(), &c, func() error { return nil })
	require.NoError(t, err)
	require.Equal(t, 1, c.closed)

	ctx, cancel := context.WithCancel(context.Background())
	unblock := make(chan struct{})
	c = closeRecorder{}
	closer := closeFunc(func() error {
		c.closed++
		close(unblock)
		return nil
	})
	cancel()
	err = RunWithContextCloser(ctx, closer, func() error {
		<-unblock
		return errors.New("closed")
	})
	require.Equal(t, context.Canceled, err)
	require.Equal(t, 1, c.closed)
}

type closeFunc func() error

func (f closeFunc) Close() error { return f() }
