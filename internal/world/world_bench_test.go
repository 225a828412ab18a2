package world

import (
	"context"
	"testing"

	"github.com/udisondev/npcspawn/internal/model"
)

// BenchmarkWorld_LiveNpcs measures the per-room query the scheduler runs for every entry.
func BenchmarkWorld_LiveNpcs(b *testing.B) {
	w := New()
	w.AddTemplate(Template{ID: 20001, Key: "wolf"})
	w.AddTemplate(Template{ID: 20002, Key: "orc"})
	for id := int64(1); id <= 100; id++ {
		w.AddRoom(id, "", "bench")
	}

	ctx := context.Background()
	for id := int64(1); id <= 100; id++ {
		room, _ := w.RoomByID(id)
		for i := range 10 {
			tmpl := model.TemplateByID(20001 + int32(i%2))
			if _, err := w.SpawnNpc(ctx, tmpl, room); err != nil {
				b.Fatal(err)
			}
		}
	}

	room, _ := w.RoomByID(50)
	tmpl := model.TemplateByID(20001)

	b.ResetTimer()
	b.ReportAllocs()

	for range b.N {
		_ = w.LiveNpcs(tmpl, room)
	}
}

// BenchmarkWorld_Npc_Parallel measures concurrent lookups under the read lock.
func BenchmarkWorld_Npc_Parallel(b *testing.B) {
	w := New()
	w.AddTemplate(Template{ID: 20001, Key: "wolf"})
	room := w.AddRoom(1, "square", "bench")

	npcID, err := w.SpawnNpc(context.Background(), model.TemplateByID(20001), room)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.ReportAllocs()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _ = w.Npc(npcID)
		}
	})
}
