package db

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

// openTestDB opens an in-memory SQLite DB with migrations applied.
func openTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func char(id int64) Character {
	return Character{
		CharacterID:   id,
		CharacterName: fmt.Sprintf("Pilot %d", id),
		CorporationID: 98000001,
		AccessToken:   "at",
		RefreshToken:  "rt",
		TokenExpiry:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestDB_MigrateIsIdempotent(t *testing.T) {
	d := openTestDB(t)
	if err := d.migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	var version int
	if err := d.SqlDB().QueryRow("SELECT MAX(version) FROM schema_version").Scan(&version); err != nil {
		t.Fatal(err)
	}
	if version != 1 {
		t.Errorf("version = %d, want 1", version)
	}
}

func TestAddCharacter_FirstBecomesActive(t *testing.T) {
	d := openTestDB(t)
	if err := d.AddCharacter(char(1)); err != nil {
		t.Fatal(err)
	}
	if err := d.AddCharacter(char(2)); err != nil {
		t.Fatal(err)
	}
	active, err := d.ActiveCharacter()
	if err != nil {
		t.Fatal(err)
	}
	if active == nil || active.CharacterID != 1 {
		t.Errorf("active = %+v, want 1", active)
	}
}

func TestAddCharacter_UpsertByID(t *testing.T) {
	d := openTestDB(t)
	d.AddCharacter(char(1))
	updated := char(1)
	updated.CharacterName = "Renamed"
	if err := d.AddCharacter(updated); err != nil {
		t.Fatal(err)
	}
	chars, _ := d.Characters()
	if len(chars) != 1 || chars[0].CharacterName != "Renamed" {
		t.Errorf("characters = %+v", chars)
	}
}

func TestAddCharacter_LimitLeavesStateUntouched(t *testing.T) {
	d := openTestDB(t)
	for i := int64(1); i <= MaxCharacters; i++ {
		if err := d.AddCharacter(char(i)); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}
	before, _ := d.Characters()

	err := d.AddCharacter(char(MaxCharacters + 1))
	if !errors.Is(err, ErrCharacterLimit) {
		t.Fatalf("err = %v, want ErrCharacterLimit", err)
	}
	after, _ := d.Characters()
	if len(after) != len(before) || len(after) != MaxCharacters {
		t.Errorf("len = %d, want %d", len(after), MaxCharacters)
	}

	// Updating an existing character at the cap still works.
	if err := d.AddCharacter(char(50)); err != nil {
		t.Errorf("upsert at cap: %v", err)
	}
}

func TestRemoveCharacter_ReassignsActive(t *testing.T) {
	d := openTestDB(t)
	d.AddCharacter(char(1))
	d.AddCharacter(char(2))
	d.AddCharacter(char(3))

	if err := d.RemoveCharacter(1); err != nil {
		t.Fatal(err)
	}
	active, _ := d.ActiveCharacter()
	if active == nil || active.CharacterID != 2 {
		t.Errorf("active = %+v, want 2", active)
	}

	// Removing a non-active character keeps the pointer.
	d.RemoveCharacter(3)
	active, _ = d.ActiveCharacter()
	if active == nil || active.CharacterID != 2 {
		t.Errorf("active = %+v, want 2", active)
	}

	d.RemoveCharacter(2)
	active, err := d.ActiveCharacter()
	if err != nil || active != nil {
		t.Errorf("active = %+v, err = %v, want nil", active, err)
	}
	chars, _ := d.Characters()
	if len(chars) != 0 {
		t.Errorf("characters = %+v", chars)
	}
}

func TestRemoveCharacter_UnknownIsNoop(t *testing.T) {
	d := openTestDB(t)
	d.AddCharacter(char(1))
	if err := d.RemoveCharacter(42); err != nil {
		t.Fatal(err)
	}
	chars, _ := d.Characters()
	if len(chars) != 1 {
		t.Errorf("characters = %+v", chars)
	}
}

func TestSetActiveCharacter(t *testing.T) {
	d := openTestDB(t)
	d.AddCharacter(char(1))
	d.AddCharacter(char(2))

	if err := d.SetActiveCharacter(2); err != nil {
		t.Fatal(err)
	}
	active, _ := d.ActiveCharacter()
	if active.CharacterID != 2 {
		t.Errorf("active = %d, want 2", active.CharacterID)
	}
	if err := d.SetActiveCharacter(9); !errors.Is(err, ErrCharacterNotFound) {
		t.Errorf("err = %v, want ErrCharacterNotFound", err)
	}
	active, _ = d.ActiveCharacter()
	if active.CharacterID != 2 {
		t.Errorf("failed activate changed pointer to %d", active.CharacterID)
	}
}

func TestCharacterAndUpdate(t *testing.T) {
	d := openTestDB(t)
	d.AddCharacter(char(1))

	if _, err := d.Character(2); !errors.Is(err, ErrCharacterNotFound) {
		t.Errorf("Character(2) err = %v", err)
	}

	c := char(1)
	c.SecurityStatus = -2.5
	if err := d.UpdateCharacter(c); err != nil {
		t.Fatal(err)
	}
	got, err := d.Character(1)
	if err != nil {
		t.Fatal(err)
	}
	if got.SecurityStatus != -2.5 || !got.TokenExpiry.Equal(c.TokenExpiry) {
		t.Errorf("Character(1) = %+v", got)
	}

	// Update of an absent character does not insert it.
	if err := d.UpdateCharacter(char(7)); err != nil {
		t.Fatal(err)
	}
	chars, _ := d.Characters()
	if len(chars) != 1 {
		t.Errorf("characters = %+v", chars)
	}
}

func TestCurrentCharacter(t *testing.T) {
	d := openTestDB(t)
	if c, err := d.CurrentCharacter(); err != nil || c != nil {
		t.Fatalf("empty store: %+v, %v", c, err)
	}
	if err := d.SaveCurrentCharacter(char(5)); err != nil {
		t.Fatal(err)
	}
	c, err := d.CurrentCharacter()
	if err != nil || c == nil || c.CharacterID != 5 || c.RefreshToken != "rt" {
		t.Fatalf("CurrentCharacter = %+v, %v", c, err)
	}
	if err := d.ClearCurrentCharacter(); err != nil {
		t.Fatal(err)
	}
	if c, _ := d.CurrentCharacter(); c != nil {
		t.Errorf("after clear = %+v", c)
	}
}

func TestCharacter_PublicDropsTokens(t *testing.T) {
	p := char(1).Public()
	if p.AccessToken != "" || p.RefreshToken != "" || p.CharacterID != 1 {
		t.Errorf("Public = %+v", p)
	}
}
