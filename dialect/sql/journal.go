package sql

import (
	"context"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/polystore/dialect"
)

// JournalVersion is the encoding version written by WriteJournal.
const JournalVersion = 1

// Journal is a recorded sequence of compiled statements of one dialect,
// kept to be replayed later against a database.
type Journal struct {
	Version int            `msgpack:"version"`
	Dialect string         `msgpack:"dialect"`
	Entries []JournalEntry `msgpack:"entries"`
}

// JournalEntry is one recorded statement.
type JournalEntry struct {
	Label     string     `msgpack:"label"`
	Statement *Statement `msgpack:"statement"`
}

// NewJournal returns an empty journal for the dialect.
func NewJournal(dialect string) *Journal {
	return &Journal{Version: JournalVersion, Dialect: dialect}
}

// Add records st under label. Nil statements are skipped.
func (j *Journal) Add(label string, st *Statement) error {
	if st == nil {
		return nil
	}
	if st.Dialect != j.Dialect {
		return fmt.Errorf("dialect/sql: journal of %s cannot record a %s statement", j.Dialect, st.Dialect)
	}
	j.Entries = append(j.Entries, JournalEntry{Label: label, Statement: st})
	return nil
}

// Statements returns the recorded statements in order.
func (j *Journal) Statements() []*Statement {
	stmts := make([]*Statement, len(j.Entries))
	for i, e := range j.Entries {
		stmts[i] = e.Statement
	}
	return stmts
}

// WriteJournal encodes j to w.
func WriteJournal(w io.Writer, j *Journal) error {
	if err := msgpack.NewEncoder(w).Encode(j); err != nil {
		return fmt.Errorf("dialect/sql: encode journal: %w", err)
	}
	return nil
}

// ReadJournal decodes a journal written by WriteJournal.
func ReadJournal(r io.Reader) (*Journal, error) {
	j := &Journal{}
	if err := msgpack.NewDecoder(r).Decode(j); err != nil {
		return nil, fmt.Errorf("dialect/sql: decode journal: %w", err)
	}
	if j.Version != JournalVersion {
		return nil, fmt.Errorf("dialect/sql: unsupported journal version %d", j.Version)
	}
	return j, nil
}

// Replay executes the recorded statements in order on ex and stops at the
// first failure.
func (j *Journal) Replay(ctx context.Context, ex dialect.ExecQuerier) error {
	for _, e := range j.Entries {
		if _, err := Exec(ctx, ex, e.Statement); err != nil {
			return fmt.Errorf("dialect/sql: replay %q: %w", e.Label, err)
		}
	}
	return nil
}
