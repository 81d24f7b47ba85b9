package framework

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"
)

func at(seconds int64) time.Time {
	return time.Unix(seconds, 0)
}

func TestFutureQueueDrain(t *testing.T) {
	clk := clock.NewMock()
	producer, consumer := NewFutureQueue[string](WithClock(clk))
	producer.Announce()
	producer.Announce()
	producer.Announce()

	clk.Set(at(10))
	test.That(t, producer.Finalize("first"), test.ShouldBeNil)
	clk.Set(at(11))
	test.That(t, producer.Finalize("second"), test.ShouldBeNil)

	items, pending := consumer.Consume(at(12))
	test.That(t, items, test.ShouldResemble, []Item[string]{
		{Timestamp: at(10), Data: "first"},
		{Timestamp: at(11), Data: "second"},
	})
	test.That(t, pending, test.ShouldNotBeNil)
	test.That(t, *pending, test.ShouldEqual, at(12))
	test.That(t, consumer.Len(), test.ShouldEqual, 1)
}

func TestFutureQueueWaitsForAnnouncedSlots(t *testing.T) {
	producer, consumer := NewFutureQueue[int](WithClock(clock.NewMock()))
	producer.Announce()
	items, pending := consumer.Consume(at(5))
	test.That(t, items, test.ShouldBeEmpty)
	test.That(t, *pending, test.ShouldEqual, at(5))

	// finalize fills the oldest announced slot
	producer.Announce()
	test.That(t, producer.Finalize(1), test.ShouldBeNil)
	items, _ = consumer.Consume(at(6))
	test.That(t, items, test.ShouldResemble, []Item[int]{{Timestamp: at(5), Data: 1}})

	test.That(t, producer.Finalize(2), test.ShouldBeNil)
	items, pending = consumer.Consume(at(7))
	test.That(t, items, test.ShouldResemble, []Item[int]{{Timestamp: at(6), Data: 2}})
	test.That(t, pending, test.ShouldBeNil)
}

func TestFutureQueueLateItemsAreKept(t *testing.T) {
	clk := clock.NewMock()
	producer, consumer := NewFutureQueue[int](WithClock(clk))
	producer.Announce()
	clk.Set(at(20))
	test.That(t, producer.Finalize(1), test.ShouldBeNil)

	// the result belongs to the future of this tick and is consumed on the next one
	items, pending := consumer.Consume(at(15))
	test.That(t, items, test.ShouldBeEmpty)
	test.That(t, pending, test.ShouldBeNil)
	items, _ = consumer.Consume(at(21))
	test.That(t, items, test.ShouldHaveLength, 1)
}

func TestFutureQueueMonotonicTimestamps(t *testing.T) {
	clk := clock.NewMock()
	producer, consumer := NewFutureQueue[int](WithClock(clk))
	clk.Set(at(10))
	producer.Announce()
	test.That(t, producer.Finalize(1), test.ShouldBeNil)
	items, _ := consumer.Consume(at(10))
	test.That(t, items, test.ShouldHaveLength, 1)

	// a producer clock running behind does not move time backwards
	clk.Set(at(8))
	producer.Announce()
	test.That(t, producer.Finalize(2), test.ShouldBeNil)
	items, _ = consumer.Consume(at(12))
	test.That(t, items, test.ShouldResemble, []Item[int]{{Timestamp: at(10), Data: 2}})
}

func TestFutureQueueErrors(t *testing.T) {
	producer, _ := NewFutureQueue[int]()
	test.That(t, producer.Finalize(1), test.ShouldBeError, ErrNotAnnounced)
	test.That(t, producer.Abandon(), test.ShouldBeError, ErrNotAnnounced)
}

func TestFutureQueueAbandon(t *testing.T) {
	clk := clock.NewMock()
	producer, consumer := NewFutureQueue[int](WithClock(clk))
	producer.Announce()
	producer.Announce()
	test.That(t, producer.Abandon(), test.ShouldBeNil)
	test.That(t, producer.Finalize(7), test.ShouldBeNil)
	items, pending := consumer.Consume(at(1))
	test.That(t, items, test.ShouldHaveLength, 1)
	test.That(t, items[0].Data, test.ShouldEqual, 7)
	test.That(t, pending, test.ShouldBeNil)
}

func TestFutureQueueCapacity(t *testing.T) {
	clk := clock.NewMock()
	producer, consumer := NewFutureQueue[int](WithClock(clk), WithCapacity(2))
	for i := 1; i <= 4; i++ {
		producer.Announce()
		test.That(t, producer.Finalize(i), test.ShouldBeNil)
	}
	test.That(t, consumer.Dropped(), test.ShouldEqual, 2)
	items, _ := consumer.Consume(clk.Now())
	test.That(t, items, test.ShouldHaveLength, 2)
	test.That(t, items[0].Data, test.ShouldEqual, 3)
	test.That(t, items[1].Data, test.ShouldEqual, 4)
}
