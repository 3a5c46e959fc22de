package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/baodaydungsone/chai/internal/llm"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens or creates a SQLite database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, errors.Wrap(err, "create db dir")
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, errors.Wrap(err, "open db")
	}

	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "migrate")
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS personas (
		id               TEXT PRIMARY KEY,
		name             TEXT NOT NULL,
		personality      TEXT NOT NULL,
		greeting         TEXT NOT NULL DEFAULT '',
		voice_tone       TEXT NOT NULL DEFAULT '',
		example_dialogue TEXT NOT NULL DEFAULT '',
		system_prompt    TEXT NOT NULL DEFAULT '',
		avatar_url       TEXT NOT NULL DEFAULT '',
		created_at       INTEGER NOT NULL,
		updated_at       INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS chat_groups (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		member_ids TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		id           TEXT PRIMARY KEY,
		chat_id      TEXT NOT NULL,
		sender       TEXT NOT NULL,
		persona_id   TEXT NOT NULL DEFAULT '',
		content      TEXT NOT NULL,
		image_mime   TEXT,
		image_data   BLOB,
		attributions TEXT,
		ts           INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_chat_ts ON messages(chat_id, ts, id);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) PutPersona(ctx context.Context, p *llm.Persona) (*llm.Persona, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	out := *p
	now := s.now().UTC()
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = now
	}
	out.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO personas (id, name, personality, greeting, voice_tone, example_dialogue, system_prompt, avatar_url, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name, personality = excluded.personality, greeting = excluded.greeting,
		   voice_tone = excluded.voice_tone, example_dialogue = excluded.example_dialogue,
		   system_prompt = excluded.system_prompt, avatar_url = excluded.avatar_url,
		   updated_at = excluded.updated_at`,
		out.ID, out.Name, out.Personality, out.Greeting, out.VoiceTone, out.ExampleDialogue,
		out.SystemPrompt, out.AvatarURL, out.CreatedAt.UnixNano(), out.UpdatedAt.UnixNano())
	if err != nil {
		return nil, errors.Wrap(err, "upsert persona")
	}
	return &out, nil
}

const personaColumns = `id, name, personality, greeting, voice_tone, example_dialogue, system_prompt, avatar_url, created_at, updated_at`

func (s *SQLiteStore) GetPersona(ctx context.Context, id string) (*llm.Persona, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+personaColumns+` FROM personas WHERE id = ?`, id)
	p, err := scanPersona(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrNotFound, "persona %s", id)
	}
	return p, err
}

func (s *SQLiteStore) ListPersonas(ctx context.Context) ([]*llm.Persona, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+personaColumns+` FROM personas ORDER BY created_at, id`)
	if err != nil {
		return nil, errors.Wrap(err, "list personas")
	}
	defer rows.Close()

	var out []*llm.Persona
	for rows.Next() {
		p, err := scanPersona(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeletePersona removes the persona and its one-on-one chat.
func (s *SQLiteStore) DeletePersona(ctx context.Context, id string) error {
	return s.deleteWithChat(ctx, "personas", id)
}

func (s *SQLiteStore) PutGroup(ctx context.Context, g *llm.Group) (*llm.Group, error) {
	if g == nil || g.Name == "" {
		return nil, errors.Wrap(llm.ErrValidation, "group name is required")
	}
	out := *g
	now := s.now().UTC()
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = now
	}
	out.UpdatedAt = now
	if out.MemberIDs == nil {
		out.MemberIDs = []string{}
	}

	members, err := json.Marshal(out.MemberIDs)
	if err != nil {
		return nil, errors.Wrap(err, "encode member ids")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO chat_groups (id, name, member_ids, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, member_ids = excluded.member_ids, updated_at = excluded.updated_at`,
		out.ID, out.Name, string(members), out.CreatedAt.UnixNano(), out.UpdatedAt.UnixNano())
	if err != nil {
		return nil, errors.Wrap(err, "upsert group")
	}
	return &out, nil
}

func (s *SQLiteStore) GetGroup(ctx context.Context, id string) (*llm.Group, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, member_ids, created_at, updated_at FROM chat_groups WHERE id = ?`, id)
	g, err := scanGroup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrNotFound, "group %s", id)
	}
	return g, err
}

func (s *SQLiteStore) ListGroups(ctx context.Context) ([]*llm.Group, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, member_ids, created_at, updated_at FROM chat_groups ORDER BY created_at, id`)
	if err != nil {
		return nil, errors.Wrap(err, "list groups")
	}
	defer rows.Close()

	var out []*llm.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteGroup(ctx context.Context, id string) error {
	return s.deleteWithChat(ctx, "chat_groups", id)
}

func (s *SQLiteStore) deleteWithChat(ctx context.Context, table, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return errors.Wrapf(err, "delete from %s", table)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrapf(ErrNotFound, "%s %s", table, id)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE chat_id = ?`, id); err != nil {
		return errors.Wrap(err, "delete chat messages")
	}
	return tx.Commit()
}

func (s *SQLiteStore) AppendMessages(ctx context.Context, msgs ...llm.Message) ([]llm.Message, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	out := make([]llm.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.ChatID == "" {
			return nil, errors.Wrap(llm.ErrValidation, "message has no chat id")
		}
		if m.ID == "" {
			m.ID = ulid.Make().String()
		}
		if m.Timestamp.IsZero() {
			m.Timestamp = s.now()
		}

		var mime *string
		var data []byte
		if m.Image != nil {
			mime = &m.Image.MIMEType
			data = m.Image.Data
		}
		var attributions *string
		if len(m.Attributions) > 0 {
			b, err := json.Marshal(m.Attributions)
			if err != nil {
				return nil, errors.Wrap(err, "encode attributions")
			}
			a := string(b)
			attributions = &a
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO messages (id, chat_id, sender, persona_id, content, image_mime, image_data, attributions, ts)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			m.ID, m.ChatID, string(m.Sender), m.PersonaID, m.Content, mime, data, attributions, m.Timestamp.UnixNano())
		if err != nil {
			return nil, errors.Wrap(err, "insert message")
		}
		out = append(out, m)
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "commit messages")
	}
	return out, nil
}

func (s *SQLiteStore) RecentMessages(ctx context.Context, chatID string, limit int) ([]llm.Message, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, chat_id, sender, persona_id, content, image_mime, image_data, attributions, ts FROM (
		   SELECT * FROM messages WHERE chat_id = ? ORDER BY ts DESC, id DESC LIMIT ?
		 ) ORDER BY ts, id`, chatID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query messages")
	}
	defer rows.Close()

	out := []llm.Message{}
	for rows.Next() {
		var (
			m            llm.Message
			sender       string
			mime         sql.NullString
			data         []byte
			attributions sql.NullString
			ts           int64
		)
		if err := rows.Scan(&m.ID, &m.ChatID, &sender, &m.PersonaID, &m.Content, &mime, &data, &attributions, &ts); err != nil {
			return nil, errors.Wrap(err, "scan message")
		}
		m.Sender = llm.Sender(sender)
		m.Timestamp = time.Unix(0, ts).UTC()
		if mime.Valid {
			m.Image = &llm.Image{MIMEType: mime.String, Data: data}
		}
		if attributions.Valid {
			if err := json.Unmarshal([]byte(attributions.String), &m.Attributions); err != nil {
				return nil, errors.Wrap(err, "decode attributions")
			}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ClearMessages(ctx context.Context, chatID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE chat_id = ?`, chatID)
	return errors.Wrap(err, "clear messages")
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPersona(row scanner) (*llm.Persona, error) {
	var (
		p                llm.Persona
		created, updated int64
	)
	err := row.Scan(&p.ID, &p.Name, &p.Personality, &p.Greeting, &p.VoiceTone, &p.ExampleDialogue,
		&p.SystemPrompt, &p.AvatarURL, &created, &updated)
	if err != nil {
		return nil, err
	}
	p.CreatedAt = time.Unix(0, created).UTC()
	p.UpdatedAt = time.Unix(0, updated).UTC()
	return &p, nil
}

func scanGroup(row scanner) (*llm.Group, error) {
	var (
		g                llm.Group
		members          string
		created, updated int64
	)
	if err := row.Scan(&g.ID, &g.Name, &members, &created, &updated); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(members), &g.MemberIDs); err != nil {
		return nil, errors.Wrap(err, "decode member ids")
	}
	g.CreatedAt = time.Unix(0, created).UTC()
	g.UpdatedAt = time.Unix(0, updated).UTC()
	return &g, nil
}
