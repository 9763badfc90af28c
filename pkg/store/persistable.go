package store

import (
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/richard-senior/matchpredict/internal/logger"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by FindByPrimaryKey when no row matches
var ErrNotFound = errors.New("record not found")

// Persistable is implemented by row types. Columns come from struct tags:
// dbtype (required), column, primary, index.
type Persistable interface {
	GetTableName() string
	GetPrimaryKey() map[string]any
}

// querier is the part of *sql.DB and *sql.Tx the ORM needs
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// Store wraps one sqlite database
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the sqlite database at path and creates the tables.
// ":memory:" gives a private in-memory database.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is empty")
	}
	db, err := sql.Open("sqlite", path+"?_time_format=sqlite&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows one writer and every :memory: connection is a separate database
	db.SetMaxOpenConns(1)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	s := New(db)
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("Database initialized successfully", path)
	return s, nil
}

// New wraps an already open database without creating tables
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) createTables() error {
	for _, obj := range []Persistable{&MatchRow{}, &PredictionRecord{}} {
		if err := s.CreateTable(obj); err != nil {
			return err
		}
	}
	return nil
}

// CreateTable creates a table and its indexes for the given persistable type
func (s *Store) CreateTable(obj Persistable) error {
	tableName := obj.GetTableName()
	createSQL := generateCreateTableSQL(obj, tableName)
	logger.Debug("Creating table with SQL", createSQL)

	if _, err := s.db.Exec(createSQL); err != nil {
		return fmt.Errorf("failed to create table %s: %w", tableName, err)
	}
	for _, query := range generateIndexSQL(obj, tableName) {
		if _, err := s.db.Exec(query); err != nil {
			logger.Warn("Failed to create index", err)
		}
	}
	return nil
}

type column struct {
	name    string
	dbType  string
	primary bool
	index   bool
	field   int
}

// columns reads the persisted fields of a struct type in declaration order
func columns(t reflect.Type) []column {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	var out []column
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() || f.Tag.Get("db") == "-" {
			continue
		}
		dbType := f.Tag.Get("dbtype")
		if dbType == "" {
			continue
		}
		name := f.Tag.Get("column")
		if name == "" {
			name = strings.ToLower(f.Name)
		}
		out = append(out, column{
			name:    name,
			dbType:  dbType,
			primary: f.Tag.Get("primary") == "true",
			index:   f.Tag.Get("index") == "true",
			field:   i,
		})
	}
	return out
}

func generateCreateTableSQL(obj any, tableName string) string {
	var defs, primaryKeys []string
	for _, c := range columns(reflect.TypeOf(obj)) {
		defs = append(defs, c.name+" "+c.dbType)
		if c.primary {
			primaryKeys = append(primaryKeys, c.name)
		}
	}
	if len(primaryKeys) > 0 {
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(primaryKeys, ", ")))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", tableName, strings.Join(defs, ", "))
}

func generateIndexSQL(obj any, tableName string) []string {
	var out []string
	for _, c := range columns(reflect.TypeOf(obj)) {
		if c.index {
			out = append(out, fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s(%s)", tableName, c.name, tableName, c.name))
		}
	}
	return out
}

// Save inserts the object or updates it when its primary key already exists
func (s *Store) Save(obj Persistable) error {
	return save(s.db, obj)
}

func save(q querier, obj Persistable) error {
	found, err := exists(q, obj)
	if err != nil {
		return fmt.Errorf("failed to check existence: %w", err)
	}
	if found {
		return update(q, obj)
	}
	return insert(q, obj)
}

func insert(q querier, obj Persistable) error {
	tableName := obj.GetTableName()
	v := reflect.Indirect(reflect.ValueOf(obj))

	var names, placeholders []string
	var values []any
	for _, c := range columns(v.Type()) {
		names = append(names, c.name)
		placeholders = append(placeholders, "?")
		values = append(values, v.Field(c.field).Interface())
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		tableName, strings.Join(names, ", "), strings.Join(placeholders, ", "))

	if _, err := q.Exec(query, values...); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", tableName, err)
	}
	return nil
}

func update(q querier, obj Persistable) error {
	tableName := obj.GetTableName()
	v := reflect.Indirect(reflect.ValueOf(obj))

	var setPairs []string
	var values []any
	for _, c := range columns(v.Type()) {
		if c.primary {
			continue
		}
		setPairs = append(setPairs, c.name+" = ?")
		values = append(values, v.Field(c.field).Interface())
	}
	if len(setPairs) == 0 {
		return nil
	}
	where, whereValues := buildWhereClause(obj.GetPrimaryKey())
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s", tableName, strings.Join(setPairs, ", "), where)

	if _, err := q.Exec(query, append(values, whereValues...)...); err != nil {
		return fmt.Errorf("failed to update %s: %w", tableName, err)
	}
	return nil
}

// Exists checks if a row with the object's primary key exists
func (s *Store) Exists(obj Persistable) (bool, error) {
	return exists(s.db, obj)
}

func exists(q querier, obj Persistable) (bool, error) {
	tableName := obj.GetTableName()
	where, values := buildWhereClause(obj.GetPrimaryKey())

	var count int
	err := q.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", tableName, where), values...).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check existence in %s: %w", tableName, err)
	}
	return count > 0, nil
}

// Delete removes the row with the object's primary key
func (s *Store) Delete(obj Persistable) error {
	tableName := obj.GetTableName()
	where, values := buildWhereClause(obj.GetPrimaryKey())
	if _, err := s.db.Exec(fmt.Sprintf("DELETE FROM %s WHERE %s", tableName, where), values...); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", tableName, err)
	}
	return nil
}

// FindByPrimaryKey fills obj from the row matching its primary key
func (s *Store) FindByPrimaryKey(obj Persistable) error {
	tableName := obj.GetTableName()
	names, dest := getSelectData(obj)
	where, values := buildWhereClause(obj.GetPrimaryKey())

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s", strings.Join(names, ", "), tableName, where)
	if err := s.db.QueryRow(query, values...).Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%s: %w", tableName, ErrNotFound)
		}
		return fmt.Errorf("failed to scan row from %s: %w", tableName, err)
	}
	return nil
}

// FindWhere returns every row of T matching a WHERE clause. An empty clause matches all rows.
func FindWhere[T any, P interface {
	*T
	Persistable
}](s *Store, whereClause string, args ...any) ([]*T, error) {
	zero := P(new(T))
	tableName := zero.GetTableName()
	names, _ := getSelectData(zero)

	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(names, ", "), tableName)
	if whereClause != "" {
		query += " WHERE " + whereClause
	}
	logger.Debug("FindWhere SQL", query)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", tableName, err)
	}
	defer rows.Close()

	var results []*T
	for rows.Next() {
		obj := new(T)
		_, dest := getSelectData(obj)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan row from %s: %w", tableName, err)
		}
		results = append(results, obj)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows from %s: %w", tableName, err)
	}
	return results, nil
}

// BulkSave saves every object in one transaction
func BulkSave[P Persistable](s *Store, objects []P) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, obj := range objects {
		if err := save(tx, obj); err != nil {
			return fmt.Errorf("failed to save object: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func getSelectData(obj any) ([]string, []any) {
	v := reflect.Indirect(reflect.ValueOf(obj))
	var names []string
	var dest []any
	for _, c := range columns(v.Type()) {
		names = append(names, c.name)
		dest = append(dest, v.Field(c.field).Addr().Interface())
	}
	return names, dest
}

// buildWhereClause joins the key columns with AND, in column name order
func buildWhereClause(primaryKey map[string]any) (string, []any) {
	keys := make([]string, 0, len(primaryKey))
	for k := range primaryKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	conditions := make([]string, 0, len(keys))
	values := make([]any, 0, len(keys))
	for _, k := range keys {
		conditions = append(conditions, k+" = ?")
		values = append(values, primaryKey[k])
	}
	return strings.Join(conditions, " AND "), values
}
