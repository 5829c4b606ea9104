package world

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/hearth/internal/game/entity"
)

// Zone file layout. A file holds a single top-level "zone" mapping.
type (
	zoneFile struct {
		Zone yamlZone `yaml:"zone"`
	}
	yamlZone struct {
		ID          string          `yaml:"id"`
		Name        string          `yaml:"name"`
		Description string          `yaml:"description"`
		StartRoom   string          `yaml:"start_room"`
		Rooms       []yamlRoom      `yaml:"rooms"`
		Templates   []yamlTemplate  `yaml:"templates"`
		Placements  []yamlPlacement `yaml:"placements"`
		Spawners    []yamlSpawner   `yaml:"spawners"`
	}
	yamlRoom struct {
		ID          string     `yaml:"id"`
		Name        string     `yaml:"name"`
		Description string     `yaml:"description"`
		Exits       []yamlExit `yaml:"exits"`
	}
	yamlExit struct {
		Direction string `yaml:"direction"`
		To        string `yaml:"to"`
	}
	// yamlTemplate is an object prototype that placements and spawners name
	// by Ref.
	yamlTemplate struct {
		Ref           string `yaml:"ref"`
		entity.Object `yaml:",inline"`
	}
	yamlPlacement struct {
		Template string `yaml:"template"`
		Room     string `yaml:"room"`
	}
	// yamlSpawner keeps one copy of Template in Room, checking every Interval.
	yamlSpawner struct {
		Template string        `yaml:"template"`
		Room     string        `yaml:"room"`
		Interval time.Duration `yaml:"interval"`
	}
)

// LoadZoneFromBytes parses and validates one zone file.
func LoadZoneFromBytes(data []byte) (*Zone, error) {
	var f zoneFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing zone YAML: %w", err)
	}
	zone, err := convertYAMLZone(f.Zone)
	if err != nil {
		return nil, err
	}
	if err := zone.Validate(); err != nil {
		return nil, fmt.Errorf("validating zone: %w", err)
	}
	return zone, nil
}

// LoadZones loads every *.yaml and *.yml file at the root of fsys in name
// order. At least one zone is required.
func LoadZones(fsys fs.FS) ([]*Zone, error) {
	var names []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		m, err := fs.Glob(fsys, pattern)
		if err != nil {
			return nil, err
		}
		names = append(names, m...)
	}
	slices.Sort(names)

	zones := make([]*Zone, 0, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("reading zone file %s: %w", name, err)
		}
		zone, err := LoadZoneFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("loading zone from %s: %w", path.Base(name), err)
		}
		zones = append(zones, zone)
	}
	if len(zones) == 0 {
		return nil, errors.New("no zone files found")
	}
	return zones, nil
}

// LoadZonesFromDir is LoadZones over the directory dir.
func LoadZonesFromDir(dir string) ([]*Zone, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("reading zone directory: %w", err)
	}
	zones, err := LoadZones(os.DirFS(dir))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", dir, err)
	}
	return zones, nil
}

// convertYAMLZone builds the Zone, cloning a template for every placement and
// spawner that names it.
func convertYAMLZone(yz yamlZone) (*Zone, error) {
	zone := &Zone{
		ID:          yz.ID,
		Name:        yz.Name,
		Description: strings.TrimSpace(yz.Description),
		StartRoom:   yz.StartRoom,
		Rooms:       make(map[string]*Room, len(yz.Rooms)),
		Templates:   make(map[string]*entity.Object, len(yz.Templates)),
	}

	for _, yr := range yz.Rooms {
		if _, dup := zone.Rooms[yr.ID]; dup {
			return nil, fmt.Errorf("zone %q: duplicate room %q", yz.ID, yr.ID)
		}
		room := &Room{
			ID:          yr.ID,
			ZoneID:      yz.ID,
			Name:        yr.Name,
			Description: strings.TrimSpace(yr.Description),
		}
		for _, ye := range yr.Exits {
			room.Exits = append(room.Exits, Exit{
				Direction: Direction(strings.ToLower(ye.Direction)),
				To:        ye.To,
			})
		}
		zone.Rooms[room.ID] = room
	}

	for _, yt := range yz.Templates {
		if yt.Ref == "" {
			return nil, fmt.Errorf("zone %q: template %q has no ref", yz.ID, yt.Name)
		}
		if _, dup := zone.Templates[yt.Ref]; dup {
			return nil, fmt.Errorf("zone %q: duplicate template %q", yz.ID, yt.Ref)
		}
		tmpl := yt.Object.Clone()
		tmpl.ID = 0
		if tmpl.Fighter != nil && tmpl.Fighter.HP == 0 {
			tmpl.Fighter.HP = tmpl.Fighter.MaxHP
		}
		if tmpl.Fighter != nil && tmpl.Fighter.Level == 0 {
			tmpl.Fighter.Level = 1
		}
		zone.Templates[yt.Ref] = tmpl
	}

	lookup := func(ref, room string) (*entity.Object, error) {
		tmpl, ok := zone.Templates[ref]
		if !ok {
			return nil, fmt.Errorf("zone %q: unknown template %q", yz.ID, ref)
		}
		if _, ok := zone.Rooms[room]; !ok {
			return nil, fmt.Errorf("zone %q: template %q placed in unknown room %q", yz.ID, ref, room)
		}
		obj := tmpl.Clone()
		obj.RoomID = room
		return obj, nil
	}

	for _, yp := range yz.Placements {
		obj, err := lookup(yp.Template, yp.Room)
		if err != nil {
			return nil, err
		}
		zone.Placements = append(zone.Placements, obj)
	}

	for _, ys := range yz.Spawners {
		tmpl, err := lookup(ys.Template, ys.Room)
		if err != nil {
			return nil, err
		}
		zone.Placements = append(zone.Placements, &entity.Object{
			Kind:      entity.KindSpawner,
			Name:      tmpl.Name + " spawner",
			RoomID:    ys.Room,
			Invisible: true,
			Spawner:   &entity.Spawner{Template: tmpl, Interval: ys.Interval},
		})
	}

	return zone, nil
}
