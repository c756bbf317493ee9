package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// MaxCharacters is the number of characters the profile store will hold.
const MaxCharacters = 100

const (
	slotCharacters       = "characters"
	slotActiveCharacter  = "active_character"
	slotCurrentCharacter = "current_character"
)

var (
	ErrCharacterLimit    = errors.New("character limit reached")
	ErrCharacterNotFound = errors.New("character not found")
)

// Character is a stored EVE character profile, tokens included.
type Character struct {
	CharacterID    int64     `json:"character_id"`
	CharacterName  string    `json:"character_name"`
	CorporationID  int64     `json:"corporation_id"`
	AllianceID     int64     `json:"alliance_id,omitempty"`
	Birthday       string    `json:"birthday,omitempty"`
	SecurityStatus float64   `json:"security_status"`
	AccessToken    string    `json:"access_token"`
	RefreshToken   string    `json:"refresh_token"`
	TokenExpiry    time.Time `json:"token_expiry"`
}

// Public strips tokens for API responses.
func (c Character) Public() Character {
	c.AccessToken = ""
	c.RefreshToken = ""
	return c
}

type queryer interface {
	QueryRow(query string, args ...any) *sql.Row
	Exec(query string, args ...any) (sql.Result, error)
}

// readSlot decodes a kv slot into dst. A missing slot reports false.
func readSlot(q queryer, key string, dst any) (bool, error) {
	var raw string
	err := q.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func writeSlot(q queryer, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	_, err = q.Exec(`INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, string(raw))
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func deleteSlot(q queryer, key string) error {
	if _, err := q.Exec("DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func readCharacters(q queryer) ([]Character, error) {
	var chars []Character
	if _, err := readSlot(q, slotCharacters, &chars); err != nil {
		return nil, err
	}
	if chars == nil {
		chars = []Character{}
	}
	return chars, nil
}

// readActive returns the active character ID, or 0 when none is set.
func readActive(q queryer) (int64, error) {
	var s string
	ok, err := readSlot(q, slotActiveCharacter, &s)
	if err != nil || !ok {
		return 0, err
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("decode %s: %w", slotActiveCharacter, err)
	}
	return id, nil
}

func writeActive(q queryer, id int64) error {
	return writeSlot(q, slotActiveCharacter, strconv.FormatInt(id, 10))
}

func indexOf(chars []Character, id int64) int {
	for i := range chars {
		if chars[i].CharacterID == id {
			return i
		}
	}
	return -1
}

// inTx runs fn in a transaction, committing only when it returns nil.
func (d *DB) inTx(fn func(tx *sql.Tx) error) error {
	tx, err := d.sql.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// AddCharacter upserts c by ID. A new character beyond MaxCharacters fails
// with ErrCharacterLimit and changes nothing. The first stored character
// becomes active.
func (d *DB) AddCharacter(c Character) error {
	return d.inTx(func(tx *sql.Tx) error {
		chars, err := readCharacters(tx)
		if err != nil {
			return err
		}
		if i := indexOf(chars, c.CharacterID); i >= 0 {
			chars[i] = c
		} else {
			if len(chars) >= MaxCharacters {
				return ErrCharacterLimit
			}
			chars = append(chars, c)
		}
		if err := writeSlot(tx, slotCharacters, chars); err != nil {
			return err
		}
		active, err := readActive(tx)
		if err != nil {
			return err
		}
		if active == 0 {
			return writeActive(tx, c.CharacterID)
		}
		return nil
	})
}

// RemoveCharacter deletes a stored character. When it was active the first
// remaining character takes over, or the pointer is cleared. Unknown IDs are
// a no-op.
func (d *DB) RemoveCharacter(id int64) error {
	return d.inTx(func(tx *sql.Tx) error {
		chars, err := readCharacters(tx)
		if err != nil {
			return err
		}
		i := indexOf(chars, id)
		if i < 0 {
			return nil
		}
		chars = append(chars[:i], chars[i+1:]...)
		if err := writeSlot(tx, slotCharacters, chars); err != nil {
			return err
		}
		active, err := readActive(tx)
		if err != nil {
			return err
		}
		if active != id {
			return nil
		}
		if len(chars) == 0 {
			return deleteSlot(tx, slotActiveCharacter)
		}
		return writeActive(tx, chars[0].CharacterID)
	})
}

// SetActiveCharacter points the active slot at a stored character.
func (d *DB) SetActiveCharacter(id int64) error {
	return d.inTx(func(tx *sql.Tx) error {
		chars, err := readCharacters(tx)
		if err != nil {
			return err
		}
		if indexOf(chars, id) < 0 {
			return ErrCharacterNotFound
		}
		return writeActive(tx, id)
	})
}

// Characters returns every stored character in insertion order.
func (d *DB) Characters() ([]Character, error) {
	return readCharacters(d.sql)
}

// Character returns a stored character by ID.
func (d *DB) Character(id int64) (*Character, error) {
	chars, err := readCharacters(d.sql)
	if err != nil {
		return nil, err
	}
	i := indexOf(chars, id)
	if i < 0 {
		return nil, ErrCharacterNotFound
	}
	return &chars[i], nil
}

// ActiveCharacter returns the active character, or nil when none is set.
func (d *DB) ActiveCharacter() (*Character, error) {
	var out *Character
	err := d.inTx(func(tx *sql.Tx) error {
		active, err := readActive(tx)
		if err != nil || active == 0 {
			return err
		}
		chars, err := readCharacters(tx)
		if err != nil {
			return err
		}
		if i := indexOf(chars, active); i >= 0 {
			out = &chars[i]
		}
		return nil
	})
	return out, err
}

// UpdateCharacter replaces a stored character. Absent characters are ignored.
func (d *DB) UpdateCharacter(c Character) error {
	return d.inTx(func(tx *sql.Tx) error {
		chars, err := readCharacters(tx)
		if err != nil {
			return err
		}
		i := indexOf(chars, c.CharacterID)
		if i < 0 {
			return nil
		}
		chars[i] = c
		return writeSlot(tx, slotCharacters, chars)
	})
}

// SaveCurrentCharacter stores the logged-in character.
func (d *DB) SaveCurrentCharacter(c Character) error {
	return writeSlot(d.sql, slotCurrentCharacter, c)
}

// CurrentCharacter returns the logged-in character, or nil.
func (d *DB) CurrentCharacter() (*Character, error) {
	var c Character
	ok, err := readSlot(d.sql, slotCurrentCharacter, &c)
	if err != nil || !ok {
		return nil, err
	}
	return &c, nil
}

// ClearCurrentCharacter logs out.
func (d *DB) ClearCurrentCharacter() error {
	return deleteSlot(d.sql, slotCurrentCharacter)
}
