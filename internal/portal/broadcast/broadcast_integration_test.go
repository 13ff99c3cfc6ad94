//go:build integration

package broadcast_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"dataportal/internal/platform/kafka/consumer"
	"dataportal/internal/platform/kafka/producer"
	"dataportal/internal/portal/broadcast"
	"dataportal/pkg/testutil/containers"
)

type replica struct {
	invalidations atomic.Int32
}

func (r *replica) Invalidate(context.Context) error {
	r.invalidations.Add(1)
	return nil
}

type BroadcastIntegrationSuite struct {
	suite.Suite
	kafka *containers.KafkaContainer
}

func TestBroadcastIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(BroadcastIntegrationSuite))
}

func (s *BroadcastIntegrationSuite) SetupSuite() {
	s.kafka = containers.GetManager().GetKafka(s.T())
}

func (s *BroadcastIntegrationSuite) listen(ctx context.Context, topic, instance string, r *replica) {
	c, err := consumer.New(consumer.Config{
		Brokers:   s.kafka.Brokers,
		GroupID:   "portal-it-" + instance,
		Topics:    []string{topic},
		FromStart: true,
	}, broadcast.NewListener(instance, r, nil), nil)
	s.Require().NoError(err)
	go c.Run(ctx)
}

func (s *BroadcastIntegrationSuite) TestPeerReceivesRefresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	topic := "portal.cache.refresh." + uuid.NewString()
	s.Require().NoError(s.kafka.CreateTopic(ctx, topic, 1))

	prod, err := producer.New(producer.DefaultConfig(s.kafka.Brokers), nil)
	s.Require().NoError(err)
	defer prod.Close()
	s.Require().NoError(prod.Ping(ctx))

	origin, peer := &replica{}, &replica{}
	s.listen(ctx, topic, "replica-a", origin)
	s.listen(ctx, topic, "replica-b", peer)

	s.Require().NoError(broadcast.NewNotifier(prod, topic, "replica-a").Announce(ctx, time.Now()))

	s.Eventually(func() bool { return peer.invalidations.Load() == 1 }, 30*time.Second, 100*time.Millisecond)
	s.Zero(origin.invalidations.Load())
}
