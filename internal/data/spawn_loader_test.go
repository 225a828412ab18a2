package data

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/udisondev/npcspawn/internal/model"
	"github.com/udisondev/npcspawn/internal/world"
)

const spawnsYAML = `
spawns:
  - area: Talking_Island
    template: 20001
    room: village_square
    max_count: 3
    respawn_delay: 60
  - area: talking_island
    template: "key:orc"
    room: "#12"
    max_count: 1
    respawn_delay: 1.5
  - area: broken
    template: wolf
    room: 1
    max_count: -1
  - area: broken
    room: 1
    max_count: 1
`

const spawnsTOML = `
[[spawns]]
area = "gludio"
template = "20001"
room = 7
max_count = 2
respawn_delay = 30

[[spawns]]
area = ""
template = 1
room = 1
`

const worldYAML = `
rooms:
  - {id: 1, key: village_square, area: talking_island}
  - {id: 12, key: elven_forest, area: talking_island}
  - {id: 0, key: nowhere}
templates:
  - {id: 20001, key: wolf, name: Wolf}
  - {id: 20002, key: orc, name: Orc}
`

func TestParseDeclarations_YAML(t *testing.T) {
	decls, err := ParseDeclarations([]byte(spawnsYAML), FormatYAML)
	if err != nil {
		t.Fatalf("ParseDeclarations() error = %v", err)
	}
	if len(decls) != 2 {
		t.Fatalf("ParseDeclarations() = %d decls, want 2 (invalid ones dropped)", len(decls))
	}

	first := decls[0]
	if first.Area != "talking_island" {
		t.Errorf("Area = %q, want lowercased", first.Area)
	}
	if first.Template != model.TemplateByID(20001) {
		t.Errorf("Template = %s, want id:20001", first.Template)
	}
	if first.Room != model.RoomByKey("village_square") {
		t.Errorf("Room = %s, want key:village_square", first.Room)
	}
	if first.RespawnDelay != time.Minute {
		t.Errorf("RespawnDelay = %v, want 1m", first.RespawnDelay)
	}

	second := decls[1]
	if second.Template != model.TemplateByKey("orc") || second.Room != model.RoomByID(12) {
		t.Errorf("second decl = %s/%s, want key:orc/id:12", second.Template, second.Room)
	}
	if second.RespawnDelay != 1500*time.Millisecond {
		t.Errorf("RespawnDelay = %v, want 1.5s", second.RespawnDelay)
	}
}

func TestParseDeclarations_TOML(t *testing.T) {
	decls, err := ParseDeclarations([]byte(spawnsTOML), FormatTOML)
	if err != nil {
		t.Fatalf("ParseDeclarations() error = %v", err)
	}
	if len(decls) != 1 {
		t.Fatalf("ParseDeclarations() = %d decls, want 1", len(decls))
	}
	if decls[0].Template != model.TemplateByID(20001) {
		t.Errorf("Template = %s, numeric string should equal integer id", decls[0].Template)
	}
	if decls[0].Room != model.RoomByID(7) {
		t.Errorf("Room = %s, want id:7", decls[0].Room)
	}
}

func TestParseDeclarations_Errors(t *testing.T) {
	if _, err := ParseDeclarations([]byte("spawns: [unclosed"), FormatYAML); err == nil {
		t.Error("ParseDeclarations(broken yaml) error = nil")
	}
	if _, err := ParseDeclarations([]byte("x"), Format("xml")); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("ParseDeclarations(xml) error = %v, want ErrUnknownFormat", err)
	}
}

func TestFormatOf(t *testing.T) {
	tests := []struct {
		name    string
		want    Format
		wantErr bool
	}{
		{"spawns.yaml", FormatYAML, false},
		{"spawns.YML", FormatYAML, false},
		{"world/spawns.toml", FormatTOML, false},
		{"spawns.json", "", true},
	}
	for _, tt := range tests {
		got, err := FormatOf(tt.name)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("FormatOf(%q) = %q, %v; want %q, err=%v", tt.name, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "spawns.toml")
	if err := os.WriteFile(path, []byte(spawnsTOML), 0o644); err != nil {
		t.Fatal(err)
	}

	decls, err := FileSource{Path: path}.Declarations(context.Background())
	if err != nil {
		t.Fatalf("Declarations() error = %v", err)
	}
	if len(decls) != 1 {
		t.Errorf("Declarations() = %d, want 1", len(decls))
	}

	_, err = FileSource{Path: filepath.Join(dir, "missing.yaml")}.Declarations(context.Background())
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Declarations(missing) error = %v, want not exist", err)
	}
}

func TestLoadWorld(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.yaml")
	if err := os.WriteFile(path, []byte(worldYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	w := world.New()
	if err := LoadWorld(path, w); err != nil {
		t.Fatalf("LoadWorld() error = %v", err)
	}

	if w.RoomCount() != 2 {
		t.Errorf("RoomCount() = %d, want 2 (room without id skipped)", w.RoomCount())
	}
	if _, ok := w.RoomByKey("elven_forest"); !ok {
		t.Error("RoomByKey(elven_forest) not found")
	}
	if got, ok := w.CanonicalTemplate(model.TemplateByKey("orc")); !ok || got != model.TemplateByID(20002) {
		t.Errorf("CanonicalTemplate(orc) = %s, %v; want id:20002", got, ok)
	}
}

func TestShippedWorldData(t *testing.T) {
	w := world.New()
	if err := LoadWorld(filepath.Join("..", "..", "data", "world.yaml"), w); err != nil {
		t.Fatalf("LoadWorld(data/world.yaml) error = %v", err)
	}

	decls, err := LoadDeclarations(filepath.Join("..", "..", "data", "spawns.yaml"))
	if err != nil {
		t.Fatalf("LoadDeclarations(data/spawns.yaml) error = %v", err)
	}
	if len(decls) == 0 {
		t.Fatal("LoadDeclarations(data/spawns.yaml) returned no declarations")
	}

	// Каждая декларация должна ссылаться на существующие комнату и шаблон.
	for _, d := range decls {
		if _, ok := w.CanonicalTemplate(d.Template); !ok {
			t.Errorf("template %s not in world data", d.Template)
		}
		var found bool
		switch d.Room.Kind() {
		case model.RoomRefID:
			_, found = w.RoomByID(d.Room.ID())
		case model.RoomRefKey:
			_, found = w.RoomByKey(d.Room.Key())
		}
		if !found {
			t.Errorf("room %s not in world data", d.Room)
		}
	}
}
