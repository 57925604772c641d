package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_DisabledWithoutEndpoint(t *testing.T) {
	p, err := Setup(context.Background(), "", false)
	require.NoError(t, err)
	assert.Nil(t, p.Tracer)
	assert.Nil(t, p.Logger)
	assert.Nil(t, p.LoggerProvider())
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestSetup_InstallsProviders(t *testing.T) {
	// Exporters connect lazily, so no collector is needed.
	p, err := Setup(context.Background(), "localhost:4318", true)
	require.NoError(t, err)
	require.NotNil(t, p.Tracer)
	require.NotNil(t, p.Logger)
	assert.NotNil(t, p.LoggerProvider())

	_, span := p.Tracer.Tracer("test").Start(context.Background(), "startup")
	span.End()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = p.Shutdown(ctx)
	assert.Empty(t, p.shutdownFuncs)
}
