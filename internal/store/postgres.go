package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/LickLitty/ungservice2025/internal/conv"
	"github.com/LickLitty/ungservice2025/internal/thread"
)

// Store is the data access port: Postgres for the relations, Redis pub/sub
// to fan message inserts out to subscribed sessions on every instance.
type Store struct {
	db    *sql.DB
	redis *redis.Client
}

func New(db *sql.DB, redisClient *redis.Client) *Store {
	return &Store{db: db, redis: redisClient}
}

// FetchMessages returns confirmed messages for the thread newer than since,
// oldest first. A zero since returns the whole history. Job threads read
// the messages relation, direct threads the direct_messages pair.
func (s *Store) FetchMessages(ctx context.Context, key conv.ThreadKey, since time.Time) ([]conv.Message, error) {
	var rows *sql.Rows
	var err error

	if key.IsJob() {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, sender, body, created_at
			FROM messages
			WHERE job_id = $1 AND created_at > $2
			ORDER BY created_at ASC, id ASC`,
			key.JobID, since)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, sender, body, created_at
			FROM direct_messages
			WHERE ((sender = $1 AND recipient = $2) OR (sender = $2 AND recipient = $1))
			  AND created_at > $3
			ORDER BY created_at ASC, id ASC`,
			key.UserA, key.UserB, since)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch messages %s: %w", key, err)
	}
	defer rows.Close()

	var msgs []conv.Message
	for rows.Next() {
		m := conv.Message{Thread: key.String(), State: conv.StateConfirmed}
		if err := rows.Scan(&m.ID, &m.Sender, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// InsertMessage persists the message, then publishes it on the thread's
// pub/sub channel so live sessions everywhere pick it up.
func (s *Store) InsertMessage(ctx context.Context, key conv.ThreadKey, senderID, body string) (conv.Message, error) {
	m := conv.Message{
		Thread: key.String(),
		Sender: senderID,
		Body:   body,
		State:  conv.StateConfirmed,
	}

	var err error
	if key.IsJob() {
		err = s.db.QueryRowContext(ctx, `
			INSERT INTO messages (job_id, sender, body)
			VALUES ($1, $2, $3)
			RETURNING id, created_at`,
			key.JobID, senderID, body).Scan(&m.ID, &m.CreatedAt)
	} else {
		err = s.db.QueryRowContext(ctx, `
			INSERT INTO direct_messages (sender, recipient, body)
			VALUES ($1, $2, $3)
			RETURNING id, created_at`,
			senderID, key.OtherParty(senderID), body).Scan(&m.ID, &m.CreatedAt)
	}
	if err != nil {
		return conv.Message{}, fmt.Errorf("insert message %s: %w", key, err)
	}

	s.publish(ctx, key, m)
	return m, nil
}

// FetchRelationSignals reads one of the three relations a conversation
// partner can be derived from.
func (s *Store) FetchRelationSignals(ctx context.Context, userID string, kind thread.SignalKind) ([]thread.Signal, error) {
	switch kind {
	case thread.KindDirectMessage:
		return s.directMessageSignals(ctx, userID)
	case thread.KindJobApplicant:
		return s.querySignals(ctx, `
			SELECT a.applicant, a.created_at
			FROM applications a
			JOIN jobs j ON j.id = a.job_id
			WHERE j.owner = $1
			ORDER BY a.created_at DESC`, userID)
	case thread.KindJobOwner:
		return s.querySignals(ctx, `
			SELECT j.owner, a.created_at
			FROM applications a
			JOIN jobs j ON j.id = a.job_id
			WHERE a.applicant = $1
			ORDER BY a.created_at DESC`, userID)
	default:
		return nil, fmt.Errorf("unknown signal kind %q", kind)
	}
}

// directMessageSignals returns one signal per direct message involving the
// user, newest first, with the body as preview. The aggregator keeps the
// first occurrence per counterparty.
func (s *Store) directMessageSignals(ctx context.Context, userID string) ([]thread.Signal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sender, recipient, body, created_at
		FROM direct_messages
		WHERE sender = $1 OR recipient = $1
		ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sigs []thread.Signal
	for rows.Next() {
		var sender, recipient, body string
		var at time.Time
		if err := rows.Scan(&sender, &recipient, &body, &at); err != nil {
			return nil, err
		}
		other := sender
		if sender == userID {
			other = recipient
		}
		sigs = append(sigs, thread.Signal{CounterpartyID: other, At: at, Preview: body})
	}
	return sigs, rows.Err()
}

func (s *Store) querySignals(ctx context.Context, query, userID string) ([]thread.Signal, error) {
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sigs []thread.Signal
	for rows.Next() {
		var sig thread.Signal
		if err := rows.Scan(&sig.CounterpartyID, &sig.At); err != nil {
			return nil, err
		}
		sigs = append(sigs, sig)
	}
	return sigs, rows.Err()
}

// ResolveDisplayNames looks every id up in one query.
func (s *Store) ResolveDisplayNames(ctx context.Context, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := fmt.Sprintf(
		`SELECT id, COALESCE(full_name, '') FROM profiles WHERE id IN (%s)`,
		strings.Join(placeholders, ", "))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("resolve names: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		names[id] = name
	}
	return names, rows.Err()
}
