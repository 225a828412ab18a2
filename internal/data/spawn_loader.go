package data

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/udisondev/npcspawn/internal/model"
	"github.com/udisondev/npcspawn/internal/world"
)

// Format is the encoding of a world-data document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// ErrUnknownFormat is returned for files that are neither YAML nor TOML.
var ErrUnknownFormat = errors.New("unknown world data format")

// FormatOf picks the format from a file or object name extension.
func FormatOf(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, name)
	}
}

func decode(data []byte, format Format) (worldFile, error) {
	var f worldFile
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &f); err != nil {
			return f, fmt.Errorf("parsing yaml: %w", err)
		}
	case FormatTOML:
		if err := toml.Unmarshal(data, &f); err != nil {
			return f, fmt.Errorf("parsing toml: %w", err)
		}
	default:
		return f, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return f, nil
}

// ParseDeclarations decodes spawn declarations.
// Invalid declarations are logged and skipped; the rest still load.
func ParseDeclarations(data []byte, format Format) ([]model.Declaration, error) {
	f, err := decode(data, format)
	if err != nil {
		return nil, err
	}

	decls := make([]model.Declaration, 0, len(f.Spawns))
	for i, def := range f.Spawns {
		decl, err := def.declaration()
		if err != nil {
			slog.Error("skipping spawn declaration", "index", i, "area", def.Area, "error", err)
			continue
		}
		decls = append(decls, decl)
	}
	return decls, nil
}

// LoadDeclarations reads spawn declarations from a YAML or TOML file.
func LoadDeclarations(path string) ([]model.Declaration, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading spawn declarations %s: %w", path, err)
	}

	decls, err := ParseDeclarations(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	slog.Info("loaded spawn declarations", "path", path, "count", len(decls))
	return decls, nil
}

func (d spawnDef) declaration() (model.Declaration, error) {
	tmpl, err := model.ParseTemplateRef(d.Template)
	if err != nil {
		return model.Declaration{}, fmt.Errorf("%w: %v", model.ErrMalformedEntry, err)
	}
	room, err := model.ParseRoomRef(d.Room)
	if err != nil {
		return model.Declaration{}, fmt.Errorf("%w: %v", model.ErrMalformedEntry, err)
	}
	if d.RespawnDelay < 0 || math.IsNaN(d.RespawnDelay) || d.RespawnDelay > math.MaxInt64/float64(time.Second) {
		return model.Declaration{}, fmt.Errorf("%w: respawn_delay %v", model.ErrMalformedEntry, d.RespawnDelay)
	}

	decl := model.Declaration{
		Area:         strings.ToLower(strings.TrimSpace(d.Area)),
		Template:     tmpl,
		Room:         room,
		MaxCount:     d.MaxCount,
		RespawnDelay: time.Duration(d.RespawnDelay * float64(time.Second)),
	}
	if err := decl.Validate(); err != nil {
		return model.Declaration{}, err
	}
	return decl, nil
}

// ApplyWorld registers the rooms and templates of a world-data document.
func ApplyWorld(data []byte, format Format, w *world.World) error {
	f, err := decode(data, format)
	if err != nil {
		return err
	}

	for _, r := range f.Rooms {
		if r.ID <= 0 {
			slog.Error("skipping room without id", "key", r.Key)
			continue
		}
		w.AddRoom(r.ID, r.Key, r.Area)
	}
	for _, t := range f.Templates {
		if t.ID <= 0 {
			slog.Error("skipping template without id", "key", t.Key)
			continue
		}
		w.AddTemplate(world.Template{ID: t.ID, Key: t.Key, Name: t.Name})
	}
	return nil
}

// LoadWorld reads rooms and templates from a YAML or TOML file into w.
func LoadWorld(path string, w *world.World) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading world data %s: %w", path, err)
	}
	if err := ApplyWorld(data, format, w); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	slog.Info("loaded world data",
		"path", path,
		"rooms", w.RoomCount())
	return nil
}

// FileSource reads declarations from a local file on every reload.
type FileSource struct {
	Path string
}

// Declarations implements spawn.DeclarationSource.
func (s FileSource) Declarations(ctx context.Context) ([]model.Declaration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return LoadDeclarations(s.Path)
}
