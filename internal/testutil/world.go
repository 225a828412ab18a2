package testutil

import (
	"testing"

	"github.com/udisondev/npcspawn/internal/world"
)

// Шаблоны тестового мира.
const (
	TemplateWolf int32 = 1000
	TemplateOrc  int32 = 1001
)

// NewWorld creates a world with three rooms in two areas and two templates:
//
//	1 village_square (talking_island)
//	2 elven_forest   (talking_island)
//	3 gludio_gate    (gludio)
//
// clock may be nil.
func NewWorld(tb testing.TB, clock *Clock) *world.World {
	tb.Helper()

	w := world.New()
	if clock != nil {
		w.SetClock(clock.Now)
	}
	w.AddRoom(1, "village_square", "talking_island")
	w.AddRoom(2, "elven_forest", "talking_island")
	w.AddRoom(3, "gludio_gate", "gludio")
	w.AddTemplate(world.Template{ID: TemplateWolf, Key: "wolf", Name: "Wolf"})
	w.AddTemplate(world.Template{ID: TemplateOrc, Key: "orc", Name: "Orc"})
	return w
}
