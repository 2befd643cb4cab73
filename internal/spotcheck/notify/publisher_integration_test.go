//go:build integration

package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spotcheck/pkg/testutil/containers"
)

func TestKafkaPublisherPublishesReportEvents(t *testing.T) {
	ctx := context.Background()
	redpanda := containers.NewRedpandaContainer(t)
	t.Cleanup(func() { _ = redpanda.Container.Terminate(context.Background()) })

	const topic = "spotcheck.report-events.test"
	publisher, err := NewKafkaPublisher([]string{redpanda.Broker}, topic)
	require.NoError(t, err)
	t.Cleanup(publisher.Close)

	require.NoError(t, publisher.EnsureTopic(ctx, 1))
	// A second call against the existing topic must stay a no-op.
	require.NoError(t, publisher.EnsureTopic(ctx, 1))

	event := ReportEvent{
		ReferenceType:  "LBDC_DAYBREAK",
		ReportDateTime: time.Date(2023, time.March, 1, 6, 0, 0, 0, time.UTC),
		New:            3,
		Existing:       1,
		Resolved:       2,
	}
	require.NoError(t, publisher.ReportIngested(ctx, event))

	consumer := redpanda.NewConsumer(t, topic)
	fetchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	fetches := consumer.PollFetches(fetchCtx)
	require.NoError(t, fetches.Err())

	records := fetches.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "LBDC_DAYBREAK", string(records[0].Key),
		"events are keyed by reference type for per-source ordering")

	var got ReportEvent
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	assert.Equal(t, event.ReferenceType, got.ReferenceType)
	assert.True(t, got.ReportDateTime.Equal(event.ReportDateTime))
	assert.Equal(t, event.New, got.New)
	assert.Equal(t, event.Existing, got.Existing)
	assert.Equal(t, event.Resolved, got.Resolved)
}
