// Package seed loads an optional YAML room manifest at startup, grounded
// on the teacher's YAML-based config.Config, but scoped to seeding room
// rows through the normal service layer rather than parsing live config.
package seed

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/chatterbox/chatserver/internal/registry"
	"github.com/chatterbox/chatserver/internal/service"
)

// Manifest is the top-level shape of a room seed file.
type Manifest struct {
	Rooms []RoomSpec `yaml:"rooms"`
}

// RoomSpec describes one room to create. Apply creates it unconditionally;
// it does not check for an existing room with the same name.
type RoomSpec struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	MaxUsers    int    `yaml:"max_users"`
	CreatorID   int64  `yaml:"creator_id"`
}

// Load parses path into a Manifest.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed file %s: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing seed file %s: %w", path, err)
	}
	return &m, nil
}

// Apply creates every room in the manifest through the room service and
// loads it into the registry's active set, matching the path a live
// CREATE_ROOM request takes. Errors for individual rooms are logged and
// skipped rather than aborting the whole run, so one bad entry doesn't
// block startup.
func Apply(m *Manifest, rooms *service.RoomService, reg *registry.Registry) int {
	created := 0
	for _, spec := range m.Rooms {
		result := rooms.CreateRoom(spec.CreatorID, spec.Name, spec.Description, spec.MaxUsers)
		if !result.OK() {
			slog.Warn("seed: skipping room", "name", spec.Name, "reason", result.Message)
			continue
		}
		reg.LoadRoom(result.Value)
		created++
	}
	return created
}
