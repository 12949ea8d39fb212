package options

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	workers int
	name    string
}

func withWorkers(n int) Option[*testConfig] {
	return New(func(c *testConfig) error {
		if n < 1 {
			return errors.New("workers must be positive")
		}
		c.workers = n

		return nil
	})
}

func withName(name string) Option[*testConfig] {
	return NoError(func(c *testConfig) {
		c.name = name
	})
}

func TestApply(t *testing.T) {
	t.Run("AppliesInOrder", func(t *testing.T) {
		cfg := &testConfig{}
		err := Apply(cfg, withWorkers(2), withName("a"), withWorkers(4))
		require.NoError(t, err)
		require.Equal(t, 4, cfg.workers)
		require.Equal(t, "a", cfg.name)
	})

	t.Run("StopsAtFirstError", func(t *testing.T) {
		cfg := &testConfig{}
		err := Apply(cfg, withWorkers(0), withName("skipped"))
		require.EqualError(t, err, "workers must be positive")
		require.Empty(t, cfg.name)
	})

	t.Run("SkipsNil", func(t *testing.T) {
		cfg := &testConfig{}
		require.NoError(t, Apply(cfg, nil, withName("b")))
		require.Equal(t, "b", cfg.name)
	})
}
