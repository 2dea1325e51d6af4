package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/url"
	"os"
	"strings"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	_ "modernc.org/ql/driver"

	"github.com/vespa-cd/controller/pkg/application"
)

var (
	ErrNoSchemaDefinedForDriver = errors.New("schema not defined for driver")

	qlSchema = `
      CREATE TABLE IF NOT EXISTS applications
        (id          string NOT NULL,
         application string NOT NULL,
         stamp       time NOT NULL)
    `

	pgSchema = `
      CREATE TABLE IF NOT EXISTS applications
        (id          varchar(255) NOT NULL PRIMARY KEY,
         application text NOT NULL,
         stamp       timestamp with time zone NOT NULL)
    `

	schemaByDriver = map[string]string{
		"ql":       qlSchema,
		"ql-mem":   qlSchema,
		"postgres": pgSchema,
	}
)

// DriverForScheme translates the scheme of a database URL to the name
// of its SQL driver. Most drivers are named after their scheme; ql
// uses the schemes "file" and "memory", and names its drivers `ql`
// and `ql-mem`.
func DriverForScheme(scheme string) string {
	switch scheme {
	case "file":
		return "ql"
	case "memory":
		return "ql-mem"
	default:
		return scheme
	}
}

// SQLStore keeps applications as JSON, one row per application.
// Locks are held in this process, so there must be only one
// controller writing to a database.
type SQLStore struct {
	locks *locks
	conn  *sql.DB
}

// DriverForURL gives the SQL driver for a database URL, and fails
// if there is no schema for that driver.
func DriverForURL(dbURL string) (string, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return "", errors.Wrap(err, "parsing database URL")
	}
	driver := DriverForScheme(u.Scheme)
	if _, ok := schemaByDriver[driver]; !ok {
		return "", errors.Wrapf(ErrNoSchemaDefinedForDriver, "database URL %s", dbURL)
	}
	return driver, nil
}

// Open connects to the database at the URL, creating the table if
// necessary.
func Open(dbURL string) (*SQLStore, error) {
	driver, err := DriverForURL(dbURL)
	if err != nil {
		return nil, err
	}
	u, _ := url.Parse(dbURL)
	source := dbURL
	if driver == "ql" || driver == "ql-mem" {
		source = strings.TrimPrefix(dbURL, u.Scheme+"://")
	}
	return NewSQLStore(driver, source)
}

func NewSQLStore(driver, datasource string) (*SQLStore, error) {
	schema := schemaByDriver[driver]
	if schema == "" {
		return nil, ErrNoSchemaDefinedForDriver
	}
	conn, err := sql.Open(driver, datasource)
	if err != nil {
		return nil, err
	}
	s := &SQLStore{
		locks: newLocks(),
		conn:  conn,
	}
	return s, s.ensureTables(schema)
}

func (s *SQLStore) Lock(ctx context.Context, id application.ID) (Lock, error) {
	return s.locks.lock(ctx, id)
}

func (s *SQLStore) Read(ctx context.Context, id application.ID) (application.Application, error) {
	var a string
	err := s.conn.QueryRowContext(ctx, `SELECT application FROM applications WHERE id = $1`, id.String()).Scan(&a)
	if err == sql.ErrNoRows {
		return application.Application{}, ErrNotFound(id)
	}
	if err != nil {
		return application.Application{}, errors.Wrapf(err, "reading application %s", id)
	}
	var app application.Application
	if err := json.Unmarshal([]byte(a), &app); err != nil {
		return application.Application{}, errors.Wrapf(err, "decoding application %s", id)
	}
	return app, nil
}

func (s *SQLStore) Write(ctx context.Context, app application.Application) error {
	bytes, err := json.Marshal(app)
	if err != nil {
		return errors.Wrapf(err, "encoding application %s", app.ID())
	}
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM applications WHERE id = $1`, app.ID().String())
	if err == nil {
		_, err = tx.ExecContext(ctx, `INSERT INTO applications (id, application, stamp) VALUES
                       ($1, $2, now())`, app.ID().String(), string(bytes))
	}
	if err == nil {
		err = tx.Commit()
	} else {
		tx.Rollback()
	}
	return errors.Wrapf(err, "writing application %s", app.ID())
}

func (s *SQLStore) List(ctx context.Context) ([]application.ID, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT id FROM applications ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "listing applications")
	}
	defer rows.Close()

	var ids []application.ID
	for rows.Next() {
		var str string
		if err := rows.Scan(&str); err != nil {
			return nil, err
		}
		id, err := application.ParseID(str)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLStore) Close() error {
	return s.conn.Close()
}

// ---

func (s *SQLStore) ensureTables(schema string) error {
	// ql driver needs this to work correctly in a container
	os.MkdirAll(os.TempDir(), 0777)
	tx, err := s.conn.Begin()
	if err != nil {
		return err
	}
	_, err = tx.Exec(schema)
	if err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
