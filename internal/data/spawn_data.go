package data

// worldFile — формат файла мировых данных. Любая секция может отсутствовать:
// декларации и комнаты/шаблоны можно держать в разных файлах.
type worldFile struct {
	Rooms     []roomDef     `yaml:"rooms" toml:"rooms"`
	Templates []templateDef `yaml:"templates" toml:"templates"`
	Spawns    []spawnDef    `yaml:"spawns" toml:"spawns"`
}

// spawnDef — одна декларация спавна.
// template и room принимают число или строку ("20001", "id:20001", "wolf", "key:village").
type spawnDef struct {
	Area         string  `yaml:"area" toml:"area"`
	Template     any     `yaml:"template" toml:"template"`
	Room         any     `yaml:"room" toml:"room"`
	MaxCount     int32   `yaml:"max_count" toml:"max_count"`
	RespawnDelay float64 `yaml:"respawn_delay" toml:"respawn_delay"` // seconds
}

type roomDef struct {
	ID   int64  `yaml:"id" toml:"id"`
	Key  string `yaml:"key" toml:"key"`
	Area string `yaml:"area" toml:"area"`
}

type templateDef struct {
	ID   int32  `yaml:"id" toml:"id"`
	Key  string `yaml:"key" toml:"key"`
	Name string `yaml:"name" toml:"name"`
}
