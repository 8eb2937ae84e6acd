package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitLoggerWithoutEndpointKeepsStdout(t *testing.T) {
	t.Cleanup(func() { SetLogger(zap.NewNop()) })

	require.NoError(t, InitLogger("checkout-test", ""))

	assert.Nil(t, loggerProvider)
	assert.NotNil(t, GetLogger())
	assert.Equal(t, "checkout-test", serviceName)
	assert.NoError(t, Shutdown(context.Background()))
}
