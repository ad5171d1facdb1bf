package wifi

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// The helpers below operate on the profiles of a single interface, ordered by
// Position. Each returns a new slice whose positions are 0..N-1.

// Renumber assigns consecutive zero-based positions in slice order.
func Renumber(profiles []Profile) {
	for i := range profiles {
		profiles[i].Position = i
	}
}

func indexOfProfile(profiles []Profile, name string) int {
	return slices.IndexFunc(profiles, func(p Profile) bool { return p.Name == name })
}

// InsertProfile inserts p at position, clamped to the list bounds.
func InsertProfile(profiles []Profile, p Profile, position int) []Profile {
	position = max(0, min(position, len(profiles)))
	r := slices.Insert(slices.Clone(profiles), position, p)
	Renumber(r)
	return r
}

// UpsertProfile replaces the profile with the same name in place, or inserts
// p with the highest priority when no such profile exists.
func UpsertProfile(profiles []Profile, p Profile) []Profile {
	i := indexOfProfile(profiles, p.Name)
	if i < 0 {
		return InsertProfile(profiles, p, 0)
	}
	r := slices.Clone(profiles)
	r[i] = p
	Renumber(r)
	return r
}

// RemoveProfile deletes the named profile.
func RemoveProfile(profiles []Profile, name string) ([]Profile, error) {
	i := indexOfProfile(profiles, name)
	if i < 0 {
		return profiles, fmt.Errorf("profile %q: %w", name, ErrNotFound)
	}
	r := slices.Delete(slices.Clone(profiles), i, i+1)
	Renumber(r)
	return r, nil
}

// MoveProfile moves the named profile to position.
func MoveProfile(profiles []Profile, name string, position int) ([]Profile, error) {
	i := indexOfProfile(profiles, name)
	if i < 0 {
		return profiles, fmt.Errorf("profile %q: %w", name, ErrNotFound)
	}
	if position < 0 || position >= len(profiles) {
		return profiles, fmt.Errorf("position %d of %d: %w", position, len(profiles), ErrInvalidPosition)
	}
	p := profiles[i]
	r := slices.Delete(slices.Clone(profiles), i, i+1)
	r = slices.Insert(r, position, p)
	Renumber(r)
	return r, nil
}

// CheckPositions verifies that, per interface, positions form the contiguous
// range 0..N-1 with no duplicates.
func CheckPositions(profiles []Profile) error {
	seen := map[uuid.UUID]map[int]bool{}
	for _, p := range profiles {
		if seen[p.InterfaceID] == nil {
			seen[p.InterfaceID] = map[int]bool{}
		}
		if seen[p.InterfaceID][p.Position] {
			return fmt.Errorf("duplicate position %d on interface %s: %w", p.Position, p.InterfaceID, ErrInvalidPosition)
		}
		seen[p.InterfaceID][p.Position] = true
	}
	for id, positions := range seen {
		for i := range len(positions) {
			if !positions[i] {
				return fmt.Errorf("missing position %d on interface %s: %w", i, id, ErrInvalidPosition)
			}
		}
	}
	return nil
}
