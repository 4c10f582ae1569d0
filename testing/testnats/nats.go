// Package testnats starts a NATS server in docker for event publishing tests.
package testnats

import (
	"context"
	"sync"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const image = "nats:2.10-alpine"

var (
	sharedContainer *NATSContainer
	sharedOnce      sync.Once
)

type NATSContainer struct {
	Container testcontainers.Container
	URL       string
}

// SetupSharedNATS starts one NATS container for the whole test binary.
// Tests are skipped under -short since they need docker.
//
// Tests using the shared container must not run in parallel.
//
//	natsContainer := testnats.SetupSharedNATS(t)
//	defer natsContainer.Cleanup(t)
//	sub := natsContainer.Subscribe(t, "tutor.events")
func SetupSharedNATS(t *testing.T) *NATSContainer {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping NATS container test in short mode")
	}

	sharedOnce.Do(func() {
		ctx := context.Background()

		container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        image,
				ExposedPorts: []string{"4222/tcp"},
				WaitingFor:   wait.ForListeningPort("4222/tcp"),
			},
			Started: true,
		})
		require.NoError(t, err)

		host, err := container.Host(ctx)
		require.NoError(t, err)

		port, err := container.MappedPort(ctx, "4222")
		require.NoError(t, err)

		sharedContainer = &NATSContainer{
			Container: container,
			URL:       "nats://" + host + ":" + port.Port(),
		}
	})

	require.NotNil(t, sharedContainer, "NATS container failed to start")
	return sharedContainer
}

func (nc *NATSContainer) Cleanup(t *testing.T) {
	t.Helper()

	if nc.Container != nil {
		if err := nc.Container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}
}

func (nc *NATSContainer) Connect(t *testing.T) *nats.Conn {
	t.Helper()

	conn, err := nats.Connect(nc.URL)
	require.NoError(t, err)

	t.Cleanup(func() { conn.Close() })

	return conn
}

// Subscribe returns a synchronous subscription that is active on the server
// before it is returned, so nothing published afterwards is missed.
func (nc *NATSContainer) Subscribe(t *testing.T, subject string) *nats.Subscription {
	t.Helper()

	conn := nc.Connect(t)
	sub, err := conn.SubscribeSync(subject)
	require.NoError(t, err)
	require.NoError(t, conn.Flush())

	return sub
}
