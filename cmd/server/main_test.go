package main

import (
	"io"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.ngs.io/climatology-api/internal/domain"
	httpHandler "go.ngs.io/climatology-api/internal/http"
	"go.ngs.io/climatology-api/internal/observability"
	"go.ngs.io/climatology-api/internal/usecase"
)

func captureUsage(t *testing.T) string {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	stdout := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = stdout }()

	printUsage()
	require.NoError(t, w.Close())
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(out)
}

func TestPrintUsage_ListsEveryRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	uc, err := usecase.NewClimatologyUseCase(domain.NewDatasetBuilder().Build(), usecase.Options{
		Logger: observability.NopLogger(),
	})
	require.NoError(t, err)
	router := httpHandler.SetupRouter(uc, httpHandler.RouterOptions{Logger: observability.NopLogger()})

	usage := captureUsage(t)
	routes := router.Routes()
	require.NotEmpty(t, routes)
	for _, route := range routes {
		assert.Contains(t, usage, route.Method+" "+route.Path+" ")
	}
	assert.Contains(t, usage, "SNAPSHOT_PATH")
}
