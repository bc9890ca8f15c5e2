package store

// Migrate ensures the document table exists (idempotent).
func (s *Store) Migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			collection TEXT NOT NULL,
			doc        TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection);`,
	}

	for _, q := range stmts {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}
