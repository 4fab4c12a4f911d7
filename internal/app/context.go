// Package app wires up the shared bootstrap: workspace database, schema
// migrations, dataset config, and the decision engine.
package app

import (
	"database/sql"
	"fmt"

	"permitwise/internal/config"
	"permitwise/internal/db"
	"permitwise/internal/engine"
	"permitwise/internal/migrate"
)

// Context is everything a command or server needs to run.
type Context struct {
	DB     *sql.DB
	Config *config.Config
	Engine engine.Engine
}

// Open prepares the workspace: opens the sqlite database, applies migrations,
// loads the dataset config (built-in defaults when no permitwise.yml exists)
// and builds the engine.
func Open(workspace string) (*Context, error) {
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	cfg, err := config.Load(workspace)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &Context{
		DB:     conn,
		Config: cfg,
		Engine: engine.New(conn, cfg),
	}, nil
}

// Close releases the database handle.
func (c *Context) Close() error {
	if c == nil || c.DB == nil {
		return nil
	}
	return c.DB.Close()
}
