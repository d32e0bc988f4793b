package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// Binding maps a gesture label to an actuator command plugin.
type Binding struct {
	ID          string
	Gesture     string
	PluginName  string
	CommandName string
	Config      json.RawMessage
	// CooldownMS overrides the global dispatch cooldown when > 0.
	CooldownMS int64
	Enabled    bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// BindingRepository provides CRUD operations for bindings.
type BindingRepository struct {
	db *sql.DB
}

// Bindings returns the binding repository for this store.
func (s *Store) Bindings() *BindingRepository {
	return &BindingRepository{db: s.db}
}

// Create inserts a new binding into the database.
func (r *BindingRepository) Create(b *Binding) error {
	now := time.Now()
	b.CreatedAt = now
	b.UpdatedAt = now

	config := b.Config
	if config == nil {
		config = json.RawMessage("{}")
	}

	_, err := r.db.Exec(
		`INSERT INTO bindings (id, gesture, plugin_name, command_name, config, cooldown_ms, enabled, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Gesture, b.PluginName, b.CommandName, string(config), b.CooldownMS, b.Enabled, b.CreatedAt, b.UpdatedAt,
	)
	return err
}

// GetByID retrieves a binding by its ID.
func (r *BindingRepository) GetByID(id string) (*Binding, error) {
	return r.scanOne(r.db.QueryRow(
		`SELECT id, gesture, plugin_name, command_name, config, cooldown_ms, enabled, created_at, updated_at
		 FROM bindings WHERE id = ?`,
		id,
	))
}

// GetByGesture retrieves the binding for a gesture label.
func (r *BindingRepository) GetByGesture(gesture string) (*Binding, error) {
	return r.scanOne(r.db.QueryRow(
		`SELECT id, gesture, plugin_name, command_name, config, cooldown_ms, enabled, created_at, updated_at
		 FROM bindings WHERE gesture = ?`,
		gesture,
	))
}

func (r *BindingRepository) scanOne(row *sql.Row) (*Binding, error) {
	b := &Binding{}
	var config string
	var enabled int

	err := row.Scan(&b.ID, &b.Gesture, &b.PluginName, &b.CommandName, &config, &b.CooldownMS, &enabled, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	b.Config = json.RawMessage(config)
	b.Enabled = enabled != 0
	return b, nil
}

// List retrieves all bindings from the database.
func (r *BindingRepository) List() ([]*Binding, error) {
	rows, err := r.db.Query(
		`SELECT id, gesture, plugin_name, command_name, config, cooldown_ms, enabled, created_at, updated_at
		 FROM bindings ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bindings []*Binding
	for rows.Next() {
		b := &Binding{}
		var config string
		var enabled int

		err := rows.Scan(&b.ID, &b.Gesture, &b.PluginName, &b.CommandName, &config, &b.CooldownMS, &enabled, &b.CreatedAt, &b.UpdatedAt)
		if err != nil {
			return nil, err
		}

		b.Config = json.RawMessage(config)
		b.Enabled = enabled != 0
		bindings = append(bindings, b)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bindings, nil
}

// Update updates an existing binding in the database.
func (r *BindingRepository) Update(b *Binding) error {
	b.UpdatedAt = time.Now()

	config := b.Config
	if config == nil {
		config = json.RawMessage("{}")
	}

	enabled := 0
	if b.Enabled {
		enabled = 1
	}

	result, err := r.db.Exec(
		`UPDATE bindings SET gesture = ?, plugin_name = ?, command_name = ?, config = ?, cooldown_ms = ?, enabled = ?, updated_at = ?
		 WHERE id = ?`,
		b.Gesture, b.PluginName, b.CommandName, string(config), b.CooldownMS, enabled, b.UpdatedAt, b.ID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a binding from the database by its ID.
func (r *BindingRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM bindings WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
