package event

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

// Benchmark event bus operations

func BenchmarkEventBus_Subscribe(b *testing.B) {
	bus := NewEventBus(false)
	handler := func(ctx context.Context, evt Event) error {
		return nil
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bus.Subscribe(EventQueryExecuted, handler)
	}
}

func BenchmarkEventBus_Unsubscribe(b *testing.B) {
	bus := NewEventBus(false)
	handler := func(ctx context.Context, evt Event) error {
		return nil
	}

	// Subscribe handlers
	for i := 0; i < b.N; i++ {
		bus.Subscribe(EventQueryExecuted, handler)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bus.Unsubscribe(EventQueryExecuted)
	}
}

func BenchmarkEventBus_PublishSync(b *testing.B) {
	bus := NewEventBus(false)

	bus.Subscribe(EventQueryExecuted, func(ctx context.Context, evt Event) error {
		return nil
	})

	event := Event{
		Type:     EventQueryExecuted,
		Severity: SeverityInfo,
		Source:   "test",
		ConnectionID: "conn-123",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = bus.Publish(context.Background(), event)
	}
}

func BenchmarkEventBus_PublishAsync(b *testing.B) {
	bus := NewEventBus(true)

	bus.Subscribe(EventQueryExecuted, func(ctx context.Context, evt Event) error {
		return nil
	})

	event := Event{
		Type:     EventQueryExecuted,
		Severity: SeverityInfo,
		Source:   "test",
		ConnectionID: "conn-123",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = bus.Publish(context.Background(), event)
	}
}

func BenchmarkEventBus_PublishNoSubscribers(b *testing.B) {
	bus := NewEventBus(false)

	event := Event{
		Type:     EventQueryExecuted,
		Severity: SeverityInfo,
		Source:   "test",
		ConnectionID: "conn-123",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = bus.Publish(context.Background(), event)
	}
}

func BenchmarkEventBus_PublishMultipleSubscribers(b *testing.B) {
	bus := NewEventBus(false)

	// Subscribe 10 handlers
	for i := 0; i < 10; i++ {
		bus.Subscribe(EventQueryExecuted, func(ctx context.Context, evt Event) error {
			return nil
		})
	}

	event := Event{
		Type:     EventQueryExecuted,
		Severity: SeverityInfo,
		Source:   "test",
		ConnectionID: "conn-123",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = bus.Publish(context.Background(), event)
	}
}

// Benchmark concurrent operations

func BenchmarkEventBus_ConcurrentPublish(b *testing.B) {
	bus := NewEventBus(true)

	bus.Subscribe(EventQueryExecuted, func(ctx context.Context, evt Event) error {
		return nil
	})

	event := Event{
		Type:     EventQueryExecuted,
		Severity: SeverityInfo,
		Source:   "test",
		ConnectionID: "conn-123",
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = bus.Publish(context.Background(), event)
		}
	})
}

func BenchmarkEventBus_ConcurrentSubscribe(b *testing.B) {
	bus := NewEventBus(false)
	handler := func(ctx context.Context, evt Event) error {
		return nil
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			bus.Subscribe(EventQueryExecuted, handler)
		}
	})
}

func BenchmarkEventBus_ConcurrentMixed(b *testing.B) {
	bus := NewEventBus(true)

	handler := func(ctx context.Context, evt Event) error {
		return nil
	}

	event := Event{
		Type:     EventQueryExecuted,
		Severity: SeverityInfo,
		Source:   "test",
		ConnectionID: "conn-123",
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			// Mix of operations
			bus.Subscribe(EventQueryExecuted, handler)
			_ = bus.Publish(context.Background(), event)
		}
	})
}

// Benchmark different event types

func BenchmarkEventBus_QueryEvents(b *testing.B) {
	bus := NewEventBus(false)

	bus.Subscribe(EventQueryExecuted, func(ctx context.Context, evt Event) error {
		return nil
	})

	event := Event{
		Type:         EventQueryExecuted,
		Severity:     SeverityInfo,
		Source:       "executor",
		ConnectionID: "conn-123",
		Data: map[string]interface{}{
			"row_count": 42,
			"duration":  "120ms",
		},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = bus.Publish(context.Background(), event)
	}
}

func BenchmarkEventBus_SchemaEvents(b *testing.B) {
	bus := NewEventBus(false)

	bus.Subscribe(EventSchemaIngested, func(ctx context.Context, evt Event) error {
		return nil
	})

	event := Event{
		Type:         EventSchemaIngested,
		Severity:     SeverityInfo,
		Source:       "schema",
		ConnectionID: "conn-123",
		Data: map[string]interface{}{
			"table_count":  12,
			"column_count": 87,
		},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = bus.Publish(context.Background(), event)
	}
}

func BenchmarkEventBus_ConnectionEvents(b *testing.B) {
	bus := NewEventBus(false)

	bus.Subscribe(EventConnectionEstablished, func(ctx context.Context, evt Event) error {
		return nil
	})

	event := Event{
		Type:         EventConnectionEstablished,
		Severity:     SeverityInfo,
		Source:       "connection",
		ConnectionID: "conn-123",
		Data: map[string]interface{}{
			"kind": "postgres",
		},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = bus.Publish(context.Background(), event)
	}
}

func BenchmarkEventBus_SystemEvents(b *testing.B) {
	bus := NewEventBus(false)

	bus.Subscribe(EventSystemError, func(ctx context.Context, evt Event) error {
		return nil
	})

	event := Event{
		Type:     EventSystemError,
		Severity: SeverityError,
		Source:   "system",
		Data: map[string]interface{}{
			"error":     "Connection timeout",
			"component": "database",
		},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = bus.Publish(context.Background(), event)
	}
}

// Benchmark with different payload sizes

func BenchmarkEventBus_SmallPayload(b *testing.B) {
	bus := NewEventBus(false)

	bus.Subscribe(EventQueryExecuted, func(ctx context.Context, evt Event) error {
		return nil
	})

	event := Event{
		Type:     EventQueryExecuted,
		Severity: SeverityInfo,
		Source:   "test",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = bus.Publish(context.Background(), event)
	}
}

func BenchmarkEventBus_MediumPayload(b *testing.B) {
	bus := NewEventBus(false)

	bus.Subscribe(EventQueryExecuted, func(ctx context.Context, evt Event) error {
		return nil
	})

	event := Event{
		Type:     EventQueryExecuted,
		Severity: SeverityInfo,
		Source:   "test",
		ConnectionID: "conn-123",
		Data: map[string]interface{}{
			"key1": "value1",
			"key2": "value2",
			"key3": "value3",
			"key4": "value4",
			"key5": "value5",
		},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = bus.Publish(context.Background(), event)
	}
}

func BenchmarkEventBus_LargePayload(b *testing.B) {
	bus := NewEventBus(false)

	bus.Subscribe(EventQueryExecuted, func(ctx context.Context, evt Event) error {
		return nil
	})

	data := make(map[string]interface{})
	for i := 0; i < 100; i++ {
		data[fmt.Sprintf("key%d", i)] = fmt.Sprintf("value%d with some additional data", i)
	}

	event := Event{
		Type:     EventQueryExecuted,
		Severity: SeverityInfo,
		Source:   "test",
		ConnectionID: "conn-123",
		Data:     data,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = bus.Publish(context.Background(), event)
	}
}

// Benchmark global bus

func BenchmarkGlobalBus_Publish(b *testing.B) {
	bus := GetGlobalBus()

	bus.Subscribe(EventQueryExecuted, func(ctx context.Context, evt Event) error {
		return nil
	})

	event := Event{
		Type:     EventQueryExecuted,
		Severity: SeverityInfo,
		Source:   "test",
		ConnectionID: "conn-123",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = bus.Publish(context.Background(), event)
	}
}

// Benchmark memory allocations

func BenchmarkEvent_Creation(b *testing.B) {
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_ = Event{
			Type:     EventQueryExecuted,
			Severity: SeverityInfo,
			Source:   "test",
			ConnectionID: "conn-123",
			Data: map[string]interface{}{
				"key": "value",
			},
		}
	}
}

func BenchmarkEventBus_PublishAllocations(b *testing.B) {
	bus := NewEventBus(false)

	bus.Subscribe(EventQueryExecuted, func(ctx context.Context, evt Event) error {
		return nil
	})

	event := Event{
		Type:     EventQueryExecuted,
		Severity: SeverityInfo,
		Source:   "test",
		ConnectionID: "conn-123",
	}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_ = bus.Publish(context.Background(), event)
	}
}

// Benchmark stress scenarios

func BenchmarkStress_HighVolumePublish(b *testing.B) {
	bus := NewEventBus(true)

	bus.Subscribe(EventQueryExecuted, func(ctx context.Context, evt Event) error {
		return nil
	})

	event := Event{
		Type:     EventQueryExecuted,
		Severity: SeverityInfo,
		Source:   "test",
		ConnectionID: "conn-123",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for j := 0; j < 100; j++ {
			_ = bus.Publish(context.Background(), event)
		}
	}
}

func BenchmarkStress_ManySubscribers(b *testing.B) {
	bus := NewEventBus(false)

	// Subscribe 100 handlers
	for i := 0; i < 100; i++ {
		bus.Subscribe(EventQueryExecuted, func(ctx context.Context, evt Event) error {
			return nil
		})
	}

	event := Event{
		Type:     EventQueryExecuted,
		Severity: SeverityInfo,
		Source:   "test",
		ConnectionID: "conn-123",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = bus.Publish(context.Background(), event)
	}
}

func BenchmarkStress_ConcurrentSubscribePublish(b *testing.B) {
	bus := NewEventBus(true)

	handler := func(ctx context.Context, evt Event) error {
		return nil
	}

	event := Event{
		Type:     EventQueryExecuted,
		Severity: SeverityInfo,
		Source:   "test",
		ConnectionID: "conn-123",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var wg sync.WaitGroup
		for j := 0; j < 50; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				bus.Subscribe(EventQueryExecuted, handler)
			}()

			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = bus.Publish(context.Background(), event)
			}()
		}
		wg.Wait()
	}
}

// Benchmark all event types

func BenchmarkEventBus_AllQueryEventTypes(b *testing.B) {
	bus := NewEventBus(false)

	eventTypes := []EventType{
		EventQueryExecuted,
		EventQueryBlocked,
		EventQueryFailed,
		EventConnectionEstablished,
		EventConnectionClosed,
		EventConnectionFailed,
		EventSchemaIngested,
		EventSchemaIngestFailed,
	}

	for _, eventType := range eventTypes {
		bus.Subscribe(eventType, func(ctx context.Context, evt Event) error {
			return nil
		})
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, eventType := range eventTypes {
			event := Event{
				Type:         eventType,
				Severity:     SeverityInfo,
				Source:       "test",
				ConnectionID: "conn-123",
			}
			_ = bus.Publish(context.Background(), event)
		}
	}
}

// Benchmark error handling

func BenchmarkEventBus_PublishWithErrors(b *testing.B) {
	bus := NewEventBus(false)

	bus.Subscribe(EventQueryExecuted, func(ctx context.Context, evt Event) error {
		return fmt.Errorf("handler error")
	})

	event := Event{
		Type:     EventQueryExecuted,
		Severity: SeverityInfo,
		Source:   "test",
		ConnectionID: "conn-123",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = bus.Publish(context.Background(), event)
	}
}

func BenchmarkEventBus_GetErrors(b *testing.B) {
	bus := NewEventBus(false)

	bus.Subscribe(EventQueryExecuted, func(ctx context.Context, evt Event) error {
		return fmt.Errorf("handler error")
	})

	event := Event{
		Type:     EventQueryExecuted,
		Severity: SeverityInfo,
		Source:   "test",
		ConnectionID: "conn-123",
	}

	// Generate some errors
	for i := 0; i < 10; i++ {
		_ = bus.Publish(context.Background(), event)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = bus.GetErrors()
	}
}

// Benchmark comparison: sync vs async

func BenchmarkComparison_SyncVsAsync_Sync(b *testing.B) {
	bus := NewEventBus(false)

	bus.Subscribe(EventQueryExecuted, func(ctx context.Context, evt Event) error {
		return nil
	})

	event := Event{
		Type:     EventQueryExecuted,
		Severity: SeverityInfo,
		Source:   "test",
		ConnectionID: "conn-123",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = bus.Publish(context.Background(), event)
	}
}

func BenchmarkComparison_SyncVsAsync_Async(b *testing.B) {
	bus := NewEventBus(true)

	bus.Subscribe(EventQueryExecuted, func(ctx context.Context, evt Event) error {
		return nil
	})

	event := Event{
		Type:     EventQueryExecuted,
		Severity: SeverityInfo,
		Source:   "test",
		ConnectionID: "conn-123",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = bus.Publish(context.Background(), event)
	}
}
