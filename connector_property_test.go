package radio

import (
	"context"
	"slices"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/tidwall/gjson"
)

// Packets emitted before readiness are delivered exactly once, in order,
// before anything emitted afterwards, and pongs are never held back.
func TestEmitOrderProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	events := gen.SliceOf(gen.Identifier())

	properties.Property("queued packets flush in order", prop.ForAll(
		func(queued, pings int, after []string, before []string) bool {
			env := newTestEnv(t, nil)
			c := env.connector
			split := 0
			if len(before) > 0 {
				split = queued % (len(before) + 1)
			}
			for _, event := range before[:split] {
				if c.Emit(event, map[string]any{}) != nil {
					return false
				}
			}
			if c.Connect(context.Background()) != nil {
				return false
			}
			s := env.dialer.last()
			for _, event := range before[split:] {
				if c.Emit(event, map[string]any{}) != nil {
					return false
				}
			}
			for i := 0; i < pings; i++ {
				s.message(`{"event":"ping"}`)
			}
			if len(s.transport.frames()) != pings {
				return false
			}
			s.message(`{"event":"connection","message":{"client_id":"sock-1"}}`)
			for _, event := range after {
				if c.Emit(event, map[string]any{}) != nil {
					return false
				}
			}

			frames := s.transport.frames()[pings:]
			want := slices.Concat(before, after)
			if len(frames) != len(want) {
				return false
			}
			for i, frame := range frames {
				if gjson.Get(frame, "event").String() != want[i] {
					return false
				}
				if i < len(before) && gjson.Get(frame, "message.socket_id").String() != "sock-1" {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 100),
		gen.IntRange(0, 3),
		events,
		events,
	))

	properties.TestingRun(t)
}
