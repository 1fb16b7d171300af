package cmd

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/webitel/event-fanout-service/config"
	"go.uber.org/fx"
)

func TestOptions_GraphIsComplete(t *testing.T) {
	cfg, v, err := config.LoadConfig([]string{"--source.driver=memory"})
	require.NoError(t, err)

	require.NoError(t, fx.ValidateApp(Options(cfg, v)))
}
