package clickhouse

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// frequencySchema mirrors migrations/clickhouse, which imports this package.
const frequencySchema = `
CREATE TABLE IF NOT EXISTS fund_flow_case_frequencies (
	contract_address  String,
	case_id           UInt8,
	count             UInt32,
	sequence_length   UInt32,
	frequency         Float64,
	created_at        DateTime DEFAULT now()
) ENGINE = ReplacingMergeTree(created_at)
ORDER BY (contract_address, case_id)`

// newTestConn starts a ClickHouse container with the frequency table created.
// The container is terminated when the test ends.
func newTestConn(t *testing.T) *Conn {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "clickhouse/clickhouse-server:24.1-alpine",
			ExposedPorts: []string{"9000/tcp"},
			Env:          map[string]string{"CLICKHOUSE_DB": "fundflow"},
			WaitingFor: wait.ForAll(
				wait.ForLog("Ready for connections").WithStartupTimeout(60*time.Second),
				wait.ForListeningPort("9000/tcp"),
			),
		},
		Started: true,
	})
	require.NoError(t, err, "start clickhouse container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	endpoint, err := container.PortEndpoint(ctx, "9000/tcp", "")
	require.NoError(t, err)

	conn, err := NewConn(ctx, fmt.Sprintf("clickhouse://%s/fundflow", endpoint))
	require.NoError(t, err, "connect")
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, conn.Exec(ctx, frequencySchema))
	return conn
}
